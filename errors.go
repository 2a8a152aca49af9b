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
	"errors"
	"fmt"
)

// Error categories. Every failure of the protocol core maps onto one of
// these sentinels; none of them terminates a controller run by itself.
var (
	// Backend errors - recovered locally by the sessions
	ErrNoCard         = errors.New("no card detected")
	ErrTransportEmpty = errors.New("transport returned no data")
	ErrFieldLost      = errors.New("reader field lost")
	ErrBackendClosed  = errors.New("backend is closed")

	// Session errors
	ErrEmulationInit  = errors.New("emulation init failed")
	ErrModulationPrep = errors.New("modulation preparation failed")

	// Compiler errors
	ErrPDOLCapacity = errors.New("compiled PDOL command exceeds capacity")

	// Data errors
	ErrInvalidTrack2    = errors.New("invalid track 2 record")
	ErrInvalidParameter = errors.New("invalid parameter")
)

// BackendError wraps backend-level errors with operation context.
type BackendError struct {
	Err  error  // Underlying error
	Op   string // Operation that failed
	Port string // Port or device identifier
}

func (e *BackendError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// IsFieldLost reports whether err means the external reader's field dropped,
// which ends an emulation session without being a hard failure.
func IsFieldLost(err error) bool {
	return errors.Is(err, ErrFieldLost)
}

// IsTransportEmpty reports whether err is the tolerated empty-exchange
// condition of the reading script.
func IsTransportEmpty(err error) bool {
	return errors.Is(err, ErrTransportEmpty)
}
