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
	"context"
	"sync"
)

// CardInfo describes a card selected on the initiator side.
type CardInfo struct {
	UID []byte
	SAK byte
}

// Initiator is the reader-side contract of an RF front-end. Implementations
// own anticollision, framing and checksum handling; the protocol core only
// sees APDU payloads.
type Initiator interface {
	// SelectCard attempts card detection and activation. Non-blocking per
	// call: returns ErrNoCard when the field is empty.
	SelectCard() (*CardInfo, error)

	// ExchangeAPDU performs one half-duplex exchange. The returned response
	// includes the trailing status word appended by the front-end. A failed
	// exchange yields ErrTransportEmpty.
	ExchangeAPDU(cmd []byte) ([]byte, error)

	// FieldOff drops the reader field after a reading pass.
	FieldOff() error
}

// TargetResponses holds the precompiled, modulation-ready activation
// responses built by the front-end when target mode is initialized.
type TargetResponses struct {
	ATQA []byte // answer to REQA/WUPA
	UID1 []byte // anticollision cascade 1 UID frame
	SAK1 []byte // select acknowledge, cascade 1
	ATS  []byte // answer to RATS
}

// Target is the card-side contract of an RF front-end.
type Target interface {
	// InitTarget configures target mode for the given 4-byte UID and
	// returns the precompiled activation responses. Failure is reported as
	// ErrEmulationInit.
	InitTarget(uid []byte) (*TargetResponses, error)

	// ReceiveCommand blocks until a reader frame arrives, the field is lost
	// (ErrFieldLost), or ctx is cancelled.
	ReceiveCommand(ctx context.Context) ([]byte, error)

	// PrepareModulation readies a checksummed response for transmission.
	// ErrModulationPrep means this cycle must be skipped.
	PrepareModulation(resp []byte) error

	// SendResponse transmits a prepared or precompiled response.
	SendResponse(resp []byte) error
}

// Backend combines both front-end roles. The mode controller switches a
// single backend between them; the two roles are never active at once.
type Backend interface {
	Initiator
	Target
	Close() error
}

// MockBackend provides a scripted implementation of Backend for testing.
type MockBackend struct {
	mu sync.Mutex

	// initiator side
	card          *CardInfo
	apduResponses [][]byte
	apduCommands  [][]byte
	fieldOffCount int

	// target side
	initErr     error
	targetUID   []byte
	responses   *TargetResponses
	incoming    [][]byte
	sent        [][]byte
	prepared    [][]byte
	prepareErrs int
	recvCount   int
}

// NewMockBackend creates a mock backend with default target responses.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		responses: &TargetResponses{
			ATQA: []byte{0x04, 0x00},
			UID1: []byte{0xE9, 0x66, 0x5D, 0x20, 0xD2},
			SAK1: []byte{0x20, 0xFC, 0x70},
			ATS:  []byte{0x05, 0x78, 0x80, 0x70, 0x02},
		},
	}
}

// SetCard configures the card returned by SelectCard; nil means no card.
func (m *MockBackend) SetCard(card *CardInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.card = card
}

// QueueAPDUResponse appends one scripted ExchangeAPDU response. An empty
// entry simulates a failed exchange.
func (m *MockBackend) QueueAPDUResponse(resp []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apduResponses = append(m.apduResponses, resp)
}

// QueueCommand appends one scripted reader frame for ReceiveCommand. Once
// the queue drains, ReceiveCommand reports a lost field.
func (m *MockBackend) QueueCommand(cmd []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incoming = append(m.incoming, cmd)
}

// SetInitError makes InitTarget fail.
func (m *MockBackend) SetInitError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initErr = err
}

// FailPrepare makes the next n PrepareModulation calls fail.
func (m *MockBackend) FailPrepare(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prepareErrs = n
}

// SentCommands returns the APDUs sent through ExchangeAPDU.
func (m *MockBackend) SentCommands() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.apduCommands
}

// SentResponses returns everything transmitted through SendResponse.
func (m *MockBackend) SentResponses() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent
}

// TargetUID returns the UID passed to InitTarget.
func (m *MockBackend) TargetUID() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.targetUID
}

// SelectCard implements Initiator.
func (m *MockBackend) SelectCard() (*CardInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.card == nil {
		return nil, ErrNoCard
	}
	return m.card, nil
}

// ExchangeAPDU implements Initiator.
func (m *MockBackend) ExchangeAPDU(cmd []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apduCommands = append(m.apduCommands, append([]byte(nil), cmd...))
	if len(m.apduResponses) == 0 {
		return nil, ErrTransportEmpty
	}
	resp := m.apduResponses[0]
	m.apduResponses = m.apduResponses[1:]
	if len(resp) == 0 {
		return nil, ErrTransportEmpty
	}
	return resp, nil
}

// FieldOff implements Initiator.
func (m *MockBackend) FieldOff() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fieldOffCount++
	return nil
}

// InitTarget implements Target.
func (m *MockBackend) InitTarget(uid []byte) (*TargetResponses, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initErr != nil {
		return nil, m.initErr
	}
	m.targetUID = append([]byte(nil), uid...)
	return m.responses, nil
}

// ReceiveCommand implements Target. Drains the scripted queue, then reports
// a lost field.
func (m *MockBackend) ReceiveCommand(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.incoming) == 0 {
		return nil, ErrFieldLost
	}
	cmd := m.incoming[0]
	m.incoming = m.incoming[1:]
	m.recvCount++
	return cmd, nil
}

// PrepareModulation implements Target.
func (m *MockBackend) PrepareModulation(resp []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prepareErrs > 0 {
		m.prepareErrs--
		return ErrModulationPrep
	}
	m.prepared = append(m.prepared, append([]byte(nil), resp...))
	return nil
}

// SendResponse implements Target.
func (m *MockBackend) SendResponse(resp []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, append([]byte(nil), resp...))
	return nil
}

// Close implements Backend.
func (*MockBackend) Close() error {
	return nil
}
