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

package boot

import "strings"

// ParseCmdline tokenizes a space-separated key=value command line,
// grounded on boot_cmdline_has_kv/boot_cmdline_get_u32's scan loop: a
// bare token with no '=' (like "xnix.debug.console") maps to the empty
// string, which callers test for with the two-value map form so a
// present-but-valueless flag is still distinguishable from an absent
// one.
func ParseCmdline(cmdline string) map[string]string {
	tokens := make(map[string]string)
	for _, field := range strings.Fields(cmdline) {
		if key, value, ok := strings.Cut(field, "="); ok {
			tokens[key] = value
		} else {
			tokens[field] = ""
		}
	}
	return tokens
}
