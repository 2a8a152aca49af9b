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

	"github.com/nfcemu/go-msdemu/internal/syncutil"
)

// Track2Length is the size of a captured Track 2 Equivalent Data value as
// carried in tag 57 with length 0x13.
const Track2Length = 19

// Track2Record holds the magnetic-stripe-equivalent payment data captured
// from a card: 8 bytes of BCD card number, a separator, the nibble-packed
// expiry date, then service code, discretionary data and padding.
type Track2Record [Track2Length]byte

// ParseTrack2 decodes a hex string into a record. Used to preload the
// emulator with an operator-supplied token.
func ParseTrack2(s string) (Track2Record, error) {
	var rec Track2Record
	raw, err := hex.DecodeString(s)
	if err != nil {
		return rec, fmt.Errorf("%w: %w", ErrInvalidTrack2, err)
	}
	if len(raw) != Track2Length {
		return rec, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidTrack2, len(raw), Track2Length)
	}
	copy(rec[:], raw)
	return rec, nil
}

// CardNumber returns the 16-digit primary account number.
func (r Track2Record) CardNumber() string {
	return hex.EncodeToString(r[:8])
}

// Expiry returns the expiry date as "YY/MM". The date sits in the nibbles
// straddling the field separator, so it is read from the raw digit stream
// rather than on byte boundaries.
func (r Track2Record) Expiry() string {
	digits := hex.EncodeToString(r[8:11])
	// digits[0] is the separator nibble (D)
	return digits[1:3] + "/" + digits[3:5]
}

// String renders the record with the account number partially redacted, so
// it is safe to put in logs.
func (r Track2Record) String() string {
	pan := r.CardNumber()
	return fmt.Sprintf("%s******%s exp %s", pan[:6], pan[12:], r.Expiry())
}

// Track2Store holds at most one captured record. Writes are whole-record
// only; a partially captured record is never observable. The store is safe
// for concurrent use, though the mode state machine already serializes the
// single writer (a reading session) against the readers (emulation sessions
// started afterwards).
type Track2Store struct {
	mu      syncutil.RWMutex
	rec     Track2Record
	present bool
}

// Set replaces the stored record in a single atomic copy and marks it valid.
func (s *Track2Store) Set(rec Track2Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = rec
	s.present = true
}

// Get returns a copy of the stored record and whether one is present.
// Sessions keep the copy for their whole run; they never hold a reference
// into the store.
func (s *Track2Store) Get() (Track2Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec, s.present
}

// Present reports whether a valid record is stored. This is the guard for
// the Reading to Emulating transition.
func (s *Track2Store) Present() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.present
}

// Clear invalidates the stored record.
func (s *Track2Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = Track2Record{}
	s.present = false
}
