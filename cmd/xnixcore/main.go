//
// Copyright 2026 The xnixcore Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/xnix-project/xnixcore/boot"
	"github.com/xnix-project/xnixcore/console"
	"github.com/xnix-project/xnixcore/irq"
	"github.com/xnix-project/xnixcore/kmsg"
	"github.com/xnix-project/xnixcore/perm"
	"github.com/xnix-project/xnixcore/physmem"
	"github.com/xnix-project/xnixcore/process"
	"github.com/xnix-project/xnixcore/sched"
	"github.com/xnix-project/xnixcore/syscalls"
	"github.com/xnix-project/xnixcore/vmm"
)

var (
	edition = "community"
	version = "0.1.0"
)

// buildDriverStack wires the IRQ chip named by the boot decision
// (xnix.irqchip, defaulting to the legacy PIC when unset), the
// dispatcher and the timer. irq.Timer is the only timer driver:
// xnix.timer is logged but does not select a different one.
func buildDriverStack(d *boot.Decision, s *sched.Scheduler) (*irq.Dispatcher, *irq.UserIRQ) {
	var chip irq.ChipOps
	switch d.IRQChip {
	case "apic":
		chip = irq.NewAPIC()
	default:
		chip = irq.NewPIC()
	}

	const timerIRQ = 0
	disp := irq.NewDispatcher(chip, timerIRQ)
	timer := irq.NewTimer(chip, timerIRQ, s, 0)
	disp.SetHandler(timerIRQ, timer.Handler)

	logrus.WithFields(logrus.Fields{"chip": chip.Name(), "timer": d.Timer}).Info("xnixcore: driver stack ready")
	return disp, irq.NewUserIRQ(chip)
}

func main() {
	app := cli.NewApp()
	app.Name = "xnixcore"
	app.Usage = "hosted x86 microkernel core"
	app.Version = version

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "cmdline",
			Value: "",
			Usage: "kernel command line, standing in for the bootloader's cmdline (e.g. \"xnix.mmu=off xnix.smp=off xnix.initmod=0\")",
		},
		cli.StringFlag{
			Name:  "modules-file",
			Value: "",
			Usage: "path to an INI module manifest, standing in for the bootloader's module list",
		},
		cli.IntFlag{
			Name:  "cpus",
			Value: 1,
			Usage: "number of simulated CPUs",
		},
		cli.StringFlag{
			Name:  "log",
			Value: "",
			Usage: "log file path or empty string for stderr output (default: \"\")",
		},
		cli.StringFlag{
			Name:  "log-level",
			Value: "info",
			Usage: "log categories to include (debug, info, warning, error, fatal)",
		},
		cli.StringFlag{
			Name:  "log-format",
			Value: "text",
			Usage: "log format; must be json or text",
		},
	}

	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Printf("xnixcore\n\tedition: \t%s\n\tversion: \t%s\n", edition, c.App.Version)
	}

	app.Before = func(ctx *cli.Context) error {
		if path := ctx.GlobalString("log"); path != "" {
			f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND|os.O_SYNC, 0666)
			if err != nil {
				logrus.Fatalf("Error opening log file %v: %v. Exiting ...", path, err)
				return err
			}
			logrus.SetOutput(f)
			log.SetOutput(f)
		} else {
			logrus.SetOutput(os.Stderr)
			log.SetOutput(os.Stderr)
		}

		if ctx.GlobalString("log-format") == "json" {
			logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"})
		} else {
			logrus.SetFormatter(&logrus.TextFormatter{TimestampFormat: "2006-01-02 15:04:05", FullTimestamp: true})
		}

		switch ctx.GlobalString("log-level") {
		case "debug":
			logrus.SetLevel(logrus.DebugLevel)
		case "info", "":
			logrus.SetLevel(logrus.InfoLevel)
		case "warning":
			logrus.SetLevel(logrus.WarnLevel)
		case "error":
			logrus.SetLevel(logrus.ErrorLevel)
		case "fatal":
			logrus.SetLevel(logrus.FatalLevel)
		default:
			logrus.Fatalf("log-level option '%v' not recognized. Exiting ...", ctx.GlobalString("log-level"))
		}

		return nil
	}

	app.Action = func(ctx *cli.Context) error {
		logrus.Info("Initiating xnixcore ...")

		cpuCount := ctx.GlobalInt("cpus")
		probe := boot.ProbeFeatures(cpuCount)
		rec := &boot.Record{Magic: boot.BootloaderMagic, Cmdline: ctx.GlobalString("cmdline")}
		decision := boot.Decide(probe, rec)

		logrus.WithFields(logrus.Fields{
			"mmu": decision.Features.Has(boot.FeatureMMU),
			"smp": decision.Features.Has(boot.FeatureSMP),
			"cpus": decision.Features.CPUCount,
		}).Info("xnixcore: boot decision made")

		var modules []boot.ModuleEntry
		if path := ctx.GlobalString("modules-file"); path != "" {
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open modules file: %v", err)
			}
			defer f.Close()
			modules, err = boot.LoadModuleManifest(f)
			if err != nil {
				return fmt.Errorf("failed to parse modules file: %v", err)
			}
		}

		// Core subsystems, in spec.md's component dependency order:
		// physical memory and address spaces before the scheduler, the
		// scheduler before processes, processes before syscalls.
		phys := physmem.New(0, 256*1024*1024)

		var vmmOps vmm.Ops
		if decision.Features.Has(boot.FeatureMMU) {
			vmmOps = vmm.NewMMU()
		} else {
			vmmOps = vmm.NewNoMMU()
		}

		s := sched.NewScheduler(int(decision.Features.CPUCount))

		registry := perm.NewRegistry()
		profiles := perm.NewProfileSet()
		initProfile, _, _, defaultProfile := perm.BuiltinProfiles(profiles, registry)

		procs := process.NewManager(vmmOps, registry, 65536)

		_, userIRQ := buildDriverStack(decision, s)

		kmsgRing := kmsg.New(4096, func() uint64 { return uint64(time.Now().UnixNano()) })

		// k is wired here so every syscall handler has a live kernel to
		// operate on; the frame-level trap path that calls
		// table.Dispatch belongs to the trampoline/arch layer and isn't
		// driven by this command's run loop.
		_ = syscalls.NewKernel(s, procs, vmmOps, phys, registry, profiles, userIRQ, kmsgRing)
		table := syscalls.NewTable()
		syscalls.RegisterAll(table)
		_ = table

		early := console.NewMultiplexer()
		if err := early.Register(console.NewSerialBackend(os.Stdout)); err != nil {
			return fmt.Errorf("failed to register serial console: %v", err)
		}
		if err := early.Init(); err != nil {
			return fmt.Errorf("failed to init console: %v", err)
		}
		early.Puts("xnixcore: console ready\n")

		if len(modules) > 0 {
			initEntry, err := decision.ResolveInitModule(modules)
			if err != nil {
				return fmt.Errorf("failed to resolve init module: %v", err)
			}
			profile := defaultProfile
			if initEntry.Profile == "init" {
				profile = initProfile
			}
			if _, err := procs.Create(initEntry.Name, profile); err != nil {
				return fmt.Errorf("failed to create init process %q: %v", initEntry.Name, err)
			}
			logrus.WithField("module", initEntry.Name).Info("xnixcore: init module loaded")
		} else if strings.TrimSpace(decision.Cmdline) != "" {
			logrus.Warn("xnixcore: cmdline given but no modules file supplied")
		}

		exitChan := make(chan os.Signal, 1)
		signal.Notify(exitChan, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

		runLoop := make(chan struct{})
		go func() {
			for {
				ran := false
				for cpuID := 0; cpuID < int(decision.Features.CPUCount); cpuID++ {
					if s.RunOnce(cpuID) {
						ran = true
					}
				}
				if !ran {
					select {
					case <-runLoop:
						return
					case <-time.After(time.Millisecond):
					}
				}
				select {
				case <-runLoop:
					return
				default:
				}
			}
		}()

		logrus.Info("Ready ...")
		<-exitChan
		close(runLoop)
		logrus.Info("Done.")
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}
