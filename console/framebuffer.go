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

package console

import (
	"sync"

	"github.com/gdamore/tcell/v2"
)

// palette maps kcolor_t's 16-color VGA text-mode palette onto tcell's
// named colors, grounded on
// _examples/original_source/main/include/xnix/types.h's KCOLOR_*
// ordering and main/arch/x86/drivers/vga.c's 80x25 color cell grid.
var palette = [...]tcell.Color{
	Black:      tcell.ColorBlack,
	Blue:       tcell.ColorNavy,
	Green:      tcell.ColorGreen,
	Cyan:       tcell.ColorTeal,
	Red:        tcell.ColorMaroon,
	Magenta:    tcell.ColorPurple,
	Brown:      tcell.ColorOlive,
	LightGray:  tcell.ColorSilver,
	DarkGray:   tcell.ColorGray,
	LightBlue:  tcell.ColorBlue,
	LightGreen: tcell.ColorLime,
	LightCyan:  tcell.ColorAqua,
	LightRed:   tcell.ColorRed,
	Pink:       tcell.ColorFuchsia,
	Yellow:     tcell.ColorYellow,
	White:      tcell.ColorWhite,
}

// FramebufferBackend is the hosted analogue of the VGA text-mode
// driver: an 80x25 cell grid with an independent foreground color,
// cursor position and wraparound/scroll, rendered through
// gdamore/tcell/v2 instead of writing 0xB8000 cell bytes directly.
// Grounded on the tcell.Screen usage pattern in
// _examples/gravwell-gravwell/migrate/gui.go, adapted away from that
// repo's tview widget layer (not part of this module's dependency
// set) down to tcell's own SetContent/Show primitives.
type FramebufferBackend struct {
	mu     sync.Mutex
	screen tcell.Screen
	cols   int
	rows   int
	col    int
	row    int
	fg     tcell.Color
}

// NewFramebufferBackend constructs a backend with no live screen yet;
// Init creates and starts it, matching console.h's init hook being
// the point at which the driver touches hardware for the first time.
func NewFramebufferBackend() *FramebufferBackend {
	return &FramebufferBackend{fg: tcell.ColorSilver}
}

func (fb *FramebufferBackend) Name() string { return "framebuffer" }
func (fb *FramebufferBackend) Mode() Mode   { return Sync }

func (fb *FramebufferBackend) Init() error {
	s, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := s.Init(); err != nil {
		return err
	}
	fb.screen = s
	fb.cols, fb.rows = s.Size()
	s.Clear()
	s.Show()
	return nil
}

// Close tears the screen down; never invoked from the emergency path,
// since panic output must keep writing to whatever screen is already
// live rather than risk a Fini deadlock.
func (fb *FramebufferBackend) Close() {
	if fb.screen != nil {
		fb.screen.Fini()
	}
}

func (fb *FramebufferBackend) Putc(c byte) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.screen == nil {
		return
	}
	switch c {
	case '\n':
		fb.newline()
	case '\r':
		fb.col = 0
	case 0x08:
		if fb.col > 0 {
			fb.col--
		}
	default:
		style := tcell.StyleDefault.Foreground(fb.fg)
		fb.screen.SetContent(fb.col, fb.row, rune(c), nil, style)
		fb.col++
		if fb.col >= fb.cols {
			fb.newline()
		}
	}
	fb.screen.Show()
}

// newline advances the cursor, scrolling the whole grid up one row
// once the bottom is reached. Caller holds fb.mu.
func (fb *FramebufferBackend) newline() {
	fb.col = 0
	fb.row++
	if fb.row < fb.rows {
		return
	}
	fb.row = fb.rows - 1
	for y := 1; y < fb.rows; y++ {
		for x := 0; x < fb.cols; x++ {
			mainc, combc, style, _ := fb.screen.GetContent(x, y)
			fb.screen.SetContent(x, y-1, mainc, combc, style)
		}
	}
	for x := 0; x < fb.cols; x++ {
		fb.screen.SetContent(x, fb.rows-1, ' ', nil, tcell.StyleDefault)
	}
}

func (fb *FramebufferBackend) SetColor(c Color) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if c == Default || int(c) < 0 || int(c) >= len(palette) {
		fb.fg = tcell.ColorSilver
		return
	}
	fb.fg = palette[c]
}

func (fb *FramebufferBackend) ResetColor() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.fg = tcell.ColorSilver
}

func (fb *FramebufferBackend) Clear() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.screen == nil {
		return
	}
	fb.screen.Clear()
	fb.col, fb.row = 0, 0
	fb.screen.Show()
}
