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

// ISO14443A protocol-level command bytes handled by the emulator before any
// APDU dispatch takes place.
const (
	cmdREQA            = 0x26 // 7-bit request, polled repeatedly by readers
	cmdWUPA            = 0x52 // wake-up, restarts the activation sequence
	cmdHALT            = 0x50 // first byte of the 4-byte HLTA frame
	cmdRATS            = 0xE0 // request for answer to select
	cmdAnticollCascade = 0x93 // anticollision / select, cascade level 1
)

// Second byte of an anticollision frame distinguishes the two sub-commands.
const (
	anticollProbe  = 0x20 // reader asks for the UID
	anticollSelect = 0x70 // reader confirms the UID, expects SAK
)

// I-block PCB values. ISO14443-4 block numbering alternates between the two.
const (
	pcbIBlock0 = 0x02
	pcbIBlock1 = 0x03
)

// APDU instruction bytes used by both the reading script and the emulator
// dispatcher.
const (
	insSelect        = 0xA4
	insGetProcessing = 0xA8
	insReadRecord    = 0xB2
)

// MaxFrameSize bounds every APDU command and response buffer exchanged with
// the RF front-end.
const MaxFrameSize = 255

// SelectPPSE selects the 2PAY.SYS.DDF01 proximity payment directory. This is
// always the first command of the reading script.
var SelectPPSE = []byte{
	0x00, 0xA4, 0x04, 0x00, 0x0E, 0x32, 0x50, 0x41,
	0x59, 0x2E, 0x53, 0x59, 0x53, 0x2E, 0x44, 0x44,
	0x46, 0x30, 0x31, 0x00,
}

// SelectVisaAID selects the classic Visa debit/credit application
// (RID A0 00 00 00 03, PIX 10 10).
var SelectVisaAID = []byte{
	0x00, 0xA4, 0x04, 0x00, 0x07,
	0xA0, 0x00, 0x00, 0x00, 0x03, 0x10, 0x10, 0x00,
}

// VisaRID is the registered application provider identifier shared by every
// Visa AID.
var VisaRID = []byte{0xA0, 0x00, 0x00, 0x00, 0x03}

// VisaAID is the application identifier emulated on the target side and
// selected by the reading script.
var VisaAID = []byte{0xA0, 0x00, 0x00, 0x00, 0x03, 0x10, 0x10}

// CandidateAIDs lists the known Visa application identifiers. The reading
// script selects only VisaAID; the table documents the scheme's other
// applications for operators probing unusual cards.
var CandidateAIDs = []string{
	"A00000000305076010", // Visa ELO Credit
	"A0000000031010",     // Visa Debit/Credit (Classic)
	"A000000003101001",   // Visa Credit
	"A000000003101002",   // Visa Debit
	"A0000000032010",     // Visa Electron
	"A0000000032020",     // Visa
	"A0000000033010",     // Visa Interlink
	"A0000000034010",     // Visa Specific
	"A0000000035010",     // Visa Specific
	"A0000000036010",     // Domestic Visa Cash Stored Value
	"A0000000036020",     // International Visa Cash Stored Value
	"A0000000038002",     // Visa Auth, VisaRemAuthen EMV-CAP (DPA)
	"A0000000038010",     // Visa Plus
	"A0000000039010",     // Visa Loyalty
	"A000000003999910",   // Visa Proprietary ATM
	"A000000098",         // Visa USA Debit Card
	"A0000000980848",     // Visa USA Debit Card
}

// DefaultGPO is the static GET PROCESSING OPTIONS command sent when the card
// publishes no PDOL, or when PDOL compilation fails.
var DefaultGPO = []byte{0x80, 0xA8, 0x00, 0x00, 0x02, 0x83, 0x00, 0x00}

// ReadRecordSFI reads record 1 of SFI 1, where Visa MSD cards keep the
// Track 2 Equivalent Data object.
var ReadRecordSFI = []byte{0x00, 0xB2, 0x01, 0x0C, 0x00}

// responseBody strips the trailing status word pair appended by the
// transport. Responses shorter than a status word are returned unchanged.
func responseBody(resp []byte) []byte {
	if len(resp) < 2 {
		return resp
	}
	return resp[:len(resp)-2]
}
