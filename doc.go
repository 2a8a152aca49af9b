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

/*
Package msdemu implements a contactless payment-card protocol engine that can
act either as an ISO14443A reader of an EMV-style card or as an emulator of
one, switching between the two roles at runtime.

In reading mode the engine drives a fixed four-step APDU script (SELECT PPSE,
SELECT AID, GET PROCESSING OPTIONS, READ RECORD) against a present card,
compiling a PDOL-derived GET PROCESSING OPTIONS command on the fly when the
card requests one, and captures the 19-byte Track 2 Equivalent Data record
from the read response. In emulation mode it answers an external reader's
frames from a phase-indexed dispatch table, splicing the previously captured
record into the READ RECORD response.

The engine is hardware-agnostic: RF front-end access goes through the
Initiator and Target backend interfaces (see the transport/uart package for a
serial front-end), and operator I/O goes through the Panel interface (see
panel/gpiopanel for a GPIO button and LEDs).

Basic usage:

	backend, err := uart.New("/dev/ttyACM0")
	if err != nil {
	    log.Fatal(err)
	}
	defer backend.Close()

	ctrl := msdemu.NewController(backend, msdemu.NopPanel{}, nil)
	if err := ctrl.Run(ctx); err != nil {
	    log.Fatal(err)
	}

The controller starts in reading mode, switches to emulation automatically
once a record is captured, and toggles between modes on button clicks. A
button hold or context cancellation terminates the run.
*/
package msdemu
