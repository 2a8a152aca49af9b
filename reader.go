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

import "bytes"

// ReaderSession drives the fixed MSD reading script against a present card:
// SELECT PPSE, SELECT AID, GET PROCESSING OPTIONS, READ RECORD. A failed
// step is logged and the script continues; the session either yields a
// captured Track 2 record or nothing.
type ReaderSession struct {
	initiator Initiator
	Panel     Panel // optional activity indicator

	gpo      []byte
	usedPDOL bool
}

// NewReaderSession creates a session over the given initiator backend.
func NewReaderSession(initiator Initiator) *ReaderSession {
	return &ReaderSession{initiator: initiator}
}

// UsedPDOL reports whether the last run compiled a card-supplied PDOL
// instead of sending the static GET PROCESSING OPTIONS command. Diagnostic
// only.
func (s *ReaderSession) UsedPDOL() bool {
	return s.usedPDOL
}

// Run executes one pass of the script. It returns the captured record, or
// nil when no card was present or the READ RECORD response carried no
// Track 2 object. It never returns a hard error: per-step transport
// failures only cost the capture.
func (s *ReaderSession) Run() *Track2Record {
	card, err := s.initiator.SelectCard()
	if err != nil || card == nil {
		return nil
	}
	Debugf("card detected, uid % X", card.UID)

	s.gpo = DefaultGPO
	s.usedPDOL = false

	s.exchange("SELECT PPSE", SelectPPSE)

	if resp := s.exchange("SELECT AID", SelectVisaAID); resp != nil {
		s.compileGPO(resp)
	}

	s.exchange("GET PROCESSING OPTIONS", s.gpo)

	resp := s.exchange("READ RECORD", ReadRecordSFI)
	rec, ok := captureTrack2(resp)
	if !ok {
		return nil
	}
	Debugln("track 2:", rec.String())
	return &rec
}

// exchange performs one script step. An empty or failed exchange returns
// nil; the caller proceeds to the next step regardless.
func (s *ReaderSession) exchange(step string, cmd []byte) []byte {
	s.setActivity(true)
	defer s.setActivity(false)

	resp, err := s.initiator.ExchangeAPDU(cmd)
	if err != nil || len(resp) == 0 {
		Debugf("%s: error reading the card", step)
		return nil
	}
	DebugHex("command", cmd)
	DebugHex("card answer", responseBody(resp))
	return resp
}

// compileGPO extracts a PDOL from the AID selection response and, when one
// is found and compiles, substitutes the generated command for the static
// GET PROCESSING OPTIONS. Compilation failure keeps the default.
func (s *ReaderSession) compileGPO(resp []byte) {
	pdol, ok := extractPDOL(resp)
	if !ok {
		return
	}
	cmd, err := CompilePDOL(pdol)
	if err != nil {
		Debugf("pdol compile: %v, keeping default command", err)
		return
	}
	s.gpo = cmd
	s.usedPDOL = true
	DebugHex("challenge generated", cmd)
}

func (s *ReaderSession) setActivity(on bool) {
	if s.Panel != nil {
		s.Panel.SetLED(LEDActivity, on)
	}
}

// extractPDOL locates tag 9F38 in a SELECT response and returns its value
// prefixed with the declared length byte, the input shape CompilePDOL
// expects. Well-formed responses go through the TLV decoder; anything the
// decoder rejects falls back to the historical linear scan.
func extractPDOL(resp []byte) ([]byte, bool) {
	body := responseBody(resp)

	if value, ok := findTag(body, "9F38"); ok {
		if len(value) > 0xFF {
			return nil, false
		}
		pdol := make([]byte, 0, len(value)+1)
		pdol = append(pdol, byte(len(value)))
		pdol = append(pdol, value...)
		return pdol, true
	}

	idx, ok := scanPattern(body, []byte{0x9F, 0x38})
	if !ok || idx >= len(body) {
		return nil, false
	}
	length := int(body[idx])
	end := idx + 1 + length
	if end > len(body) {
		end = len(body)
	}
	return bytes.Clone(body[idx:end]), true
}

// captureTrack2 scans a READ RECORD response for the first 57 13 tag/length
// pattern and copies the 19 bytes that follow. Only the leftmost match is
// taken; later occurrences are ignored even if the first one is truncated.
func captureTrack2(resp []byte) (Track2Record, bool) {
	var rec Track2Record
	if resp == nil {
		return rec, false
	}
	body := responseBody(resp)
	idx, ok := scanPattern(body, []byte{0x57, 0x13})
	if !ok || idx+Track2Length > len(body) {
		return rec, false
	}
	copy(rec[:], body[idx:idx+Track2Length])
	return rec, true
}
