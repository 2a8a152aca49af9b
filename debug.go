// Copyright 2026 The go-msdemu Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package msdemu

import (
	"encoding/hex"
	"fmt"
	"os"
)

// debugEnabled controls whether debug logging is active
var debugEnabled = false

func init() {
	// Enable debug logging if DEBUG environment variable is set
	if os.Getenv("MSDEMU_DEBUG") != "" || os.Getenv("DEBUG") != "" {
		debugEnabled = true
	}
}

// SetDebugEnabled allows programmatic control of debug logging.
// Useful for testing or application-controlled debug modes.
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// Debugf prints debug information when debug mode is enabled.
func Debugf(format string, args ...any) {
	if debugEnabled {
		_, _ = fmt.Printf("DEBUG: "+format+"\n", args...)
	}
}

// Debugln prints debug information when debug mode is enabled.
func Debugln(args ...any) {
	if debugEnabled {
		_, _ = fmt.Print("DEBUG: ")
		_, _ = fmt.Println(args...)
	}
}

// DebugHex prints a labeled hexdump of buf when debug mode is enabled. Used
// to trace every command/answer pair on the air interface.
func DebugHex(label string, buf []byte) {
	if !debugEnabled {
		return
	}
	dump := hex.EncodeToString(buf)
	out := make([]byte, 0, len(dump)+len(dump)/2)
	for i := 0; i < len(dump); i += 2 {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, dump[i], dump[i+1])
	}
	_, _ = fmt.Printf("DEBUG: [ %s ] %s\n", label, out)
}
