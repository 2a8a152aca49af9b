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

// Emulator response templates. Byte layouts are pinned for interoperability
// with real point-of-sale readers; the trailing 90 00 status words are
// literal template bytes here, not authored by a transport layer.

// fciPPSE is the FCI template answering the PPSE directory selection. It
// names 2PAY.SYS.DDF01 and embeds the Visa AID as the single directory
// entry.
var fciPPSE = []byte{
	0x6F, 0x23, 0x84, 0x0E, 0x32, 0x50, 0x41, 0x59,
	0x2E, 0x53, 0x59, 0x53, 0x2E, 0x44, 0x44, 0x46,
	0x30, 0x31, 0xA5, 0x11, 0xBF, 0x0C, 0x0E, 0x61,
	0x0C, 0x4F,
	0x07, 0xA0, 0x00, 0x00, 0x00, 0x03, 0x10, 0x10,
	0x87, 0x01, 0x01, 0x90, 0x00,
}

// fciVisa is the FCI template answering the Visa AID selection. It carries
// the application label "VISA CREDIT" and requests a 3-byte PDOL (tag 9F66,
// length 2).
var fciVisa = []byte{
	0x6F, 0x1E, 0x84,
	0x07, 0xA0, 0x00, 0x00, 0x00, 0x03, 0x10, 0x10,
	0xA5, 0x13, 0x50,
	0x0B, 0x56, 0x49, 0x53, 0x41, 0x20, 0x43, 0x52, 0x45, 0x44, 0x49, 0x54,
	0x9F, 0x38, 0x03, 0x9F, 0x66, 0x02,
	0x90, 0x00,
}

// gpoResponse is the AIP/AFL payload answering GET PROCESSING OPTIONS: MSD
// profile, one record in SFI 1.
var gpoResponse = []byte{0x80, 0x06, 0x00, 0x80, 0x08, 0x01, 0x01, 0x00, 0x90, 0x00}

// recordTemplate is the READ RECORD answer: a 70 template wrapping tag 57
// length 13, with the record bytes spliced in at recordTrack2Offset.
var recordTemplate = []byte{
	0x70, 0x15, 0x57, 0x13, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x90, 0x00,
}

const recordTrack2Offset = 4

// statusNotFound is the generic answer to any command the current phase
// does not expect.
var statusNotFound = []byte{0x6F, 0x00}

// buildRecordResponse splices the captured record into the READ RECORD
// template. Without a capture the template's zero fill goes out unchanged.
func buildRecordResponse(rec Track2Record, present bool) []byte {
	resp := append([]byte(nil), recordTemplate...)
	if present {
		copy(resp[recordTrack2Offset:recordTrack2Offset+Track2Length], rec[:])
	}
	return resp
}
