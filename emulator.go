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
	"bytes"
	"context"
	"fmt"

	"github.com/nfcemu/go-msdemu/internal/frame"
)

// TransactionPhase tracks how far the external reader has progressed
// through an emulated MSD transaction. It advances by exactly one on each
// correctly matched command; mismatches leave it unchanged except for the
// documented wraparound at PhaseReset.
type TransactionPhase int

const (
	PhaseSelectPPSE TransactionPhase = iota // expect PPSE select
	PhaseSelectAID                          // expect AID select
	PhaseGetProcessing                      // expect GET PROCESSING OPTIONS
	PhaseReadRecord                         // expect READ RECORD
	PhaseComplete                           // cycle complete
	PhaseReset                              // reset point, wraps to PhaseSelectPPSE
)

func (p TransactionPhase) String() string {
	switch p {
	case PhaseSelectPPSE:
		return "select-ppse"
	case PhaseSelectAID:
		return "select-aid"
	case PhaseGetProcessing:
		return "get-processing"
	case PhaseReadRecord:
		return "read-record"
	case PhaseComplete:
		return "complete"
	case PhaseReset:
		return "reset"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Outcome is the result of an emulation session. The emulator is stateless
// with respect to payment success; the only way a session ends is the
// transport reporting the reader field gone (or cancellation), both reported
// as an abort.
type Outcome int

// OutcomeAborted means the receive primitive failed or the session was
// cancelled.
const OutcomeAborted Outcome = iota

// phaseRule binds one expected command shape to its response and successor
// phase. The emulator walks this table instead of switching on magic byte
// offsets inline.
type phaseRule struct {
	phase TransactionPhase
	match func(cmd []byte) bool
	build func(s *EmulatorSession) []byte
	next  TransactionPhase
}

// emulationRules is the I-block dispatch table. Matchers see the whole
// frame including the leading PCB byte, so APDU fields start at offset 1.
var emulationRules = []phaseRule{
	{
		phase: PhaseSelectPPSE,
		match: func(cmd []byte) bool {
			// SELECT with a name field starting the "2PAY..." directory string
			return len(cmd) >= 7 && cmd[2] == insSelect && cmd[6] == 0x32
		},
		build: func(*EmulatorSession) []byte { return fciPPSE },
		next:  PhaseSelectAID,
	},
	{
		phase: PhaseSelectAID,
		match: func(cmd []byte) bool {
			// SELECT carrying the Visa RID/PIX bytes
			return len(cmd) >= 12 && cmd[2] == insSelect && cmd[10] == 0x03 && cmd[11] == 0x10
		},
		build: func(*EmulatorSession) []byte { return fciVisa },
		next:  PhaseGetProcessing,
	},
	{
		phase: PhaseGetProcessing,
		match: func(cmd []byte) bool {
			return len(cmd) >= 7 && cmd[1] == 0x80 && cmd[2] == insGetProcessing && cmd[6] == 0x83
		},
		build: func(*EmulatorSession) []byte { return gpoResponse },
		next:  PhaseReadRecord,
	},
	{
		phase: PhaseReadRecord,
		match: func(cmd []byte) bool {
			return len(cmd) >= 3 && cmd[2] == insReadRecord
		},
		build: func(s *EmulatorSession) []byte {
			return buildRecordResponse(s.track2, s.hasTrack2)
		},
		next: PhaseComplete,
	},
}

// EmulatorSession answers an external reader's frames until the field is
// lost. The captured record is copied in at construction; the session never
// touches the shared store.
type EmulatorSession struct {
	target    Target
	Panel     Panel // optional activity indicator
	track2    Track2Record
	hasTrack2 bool
	responses *TargetResponses
	phase     TransactionPhase
	oddReply  bool
}

// NewEmulatorSession creates a session for the given target backend. A nil
// record emulates a card with a zeroed Track 2.
func NewEmulatorSession(target Target, rec *Track2Record) *EmulatorSession {
	s := &EmulatorSession{target: target}
	if rec != nil {
		s.track2 = *rec
		s.hasTrack2 = true
	}
	return s
}

// Phase returns the current transaction phase.
func (s *EmulatorSession) Phase() TransactionPhase {
	return s.phase
}

// Run initializes target mode for uid and answers reader frames until the
// field is lost or ctx is cancelled. Init failure is returned wrapped in
// ErrEmulationInit; an ordinary field loss returns OutcomeAborted with a nil
// error.
func (s *EmulatorSession) Run(ctx context.Context, uid []byte) (Outcome, error) {
	responses, err := s.target.InitTarget(uid)
	if err != nil {
		return OutcomeAborted, fmt.Errorf("%w: %w", ErrEmulationInit, err)
	}
	s.responses = responses
	s.phase = PhaseSelectPPSE
	s.oddReply = true

	for {
		s.setActivity(false)
		cmd, err := s.target.ReceiveCommand(ctx)
		if err != nil {
			Debugln("emulator stopped:", err)
			return OutcomeAborted, nil
		}
		if len(cmd) == 0 {
			continue
		}
		s.setActivity(true)

		precompiled, dynamic := s.handle(cmd)
		switch {
		case dynamic != nil:
			DebugHex("emulator answer", dynamic)
			resp := frame.AppendCRCA(dynamic)
			if err := s.target.PrepareModulation(resp); err != nil {
				Debugln("modulation prep failed, skipping cycle:", err)
				continue
			}
			_ = s.target.SendResponse(resp)
		case precompiled != nil:
			_ = s.target.SendResponse(precompiled)
		}
	}
}

// handle classifies one incoming frame. Protocol-level frames map onto the
// precompiled activation responses; I-blocks go through the phase table and
// produce a dynamic response that still needs a checksum.
func (s *EmulatorSession) handle(cmd []byte) (precompiled, dynamic []byte) {
	switch {
	case len(cmd) == 1 && cmd[0] == cmdREQA:
		// answer alternating polls only
		s.oddReply = !s.oddReply
		if s.oddReply {
			return s.responses.ATQA, nil
		}
		return nil, nil
	case len(cmd) == 4 && cmd[0] == cmdHALT:
		return nil, nil
	case len(cmd) == 1 && cmd[0] == cmdWUPA:
		s.phase = PhaseSelectPPSE
		return s.responses.ATQA, nil
	case len(cmd) == 2 && cmd[0] == cmdAnticollCascade && cmd[1] == anticollProbe:
		return s.responses.UID1, nil
	case len(cmd) == 9 && cmd[0] == cmdAnticollCascade && cmd[1] == anticollSelect:
		return s.responses.SAK1, nil
	case len(cmd) == 4 && cmd[0] == cmdRATS:
		s.phase = PhaseSelectPPSE
		return s.responses.ATS, nil
	}

	if cmd[0] == pcbIBlock0 || cmd[0] == pcbIBlock1 {
		DebugHex("card reader command", cmd)
		body := s.dispatch(cmd)
		resp := make([]byte, 0, len(body)+1)
		resp = append(resp, cmd[0]) // echo the reader's block number
		resp = append(resp, body...)
		return nil, resp
	}

	Debugln("received unknown command")
	if s.phase < PhaseComplete {
		// handshake-compatibility fallback: reflect the frame verbatim
		return nil, bytes.Clone(cmd)
	}
	return nil, nil
}

// dispatch runs the phase table for an I-block and advances the phase on a
// match. Anything unexpected gets the generic not-found status, with the
// phase left alone apart from the reset-point wraparound.
func (s *EmulatorSession) dispatch(cmd []byte) []byte {
	for _, rule := range emulationRules {
		if rule.phase == s.phase && rule.match(cmd) {
			body := rule.build(s)
			s.phase = rule.next
			return body
		}
	}
	if s.phase == PhaseReset {
		s.phase = PhaseSelectPPSE
	}
	return statusNotFound
}

func (s *EmulatorSession) setActivity(on bool) {
	if s.Panel != nil {
		s.Panel.SetLED(LEDActivity, on)
	}
}
