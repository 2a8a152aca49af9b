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

package uart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	msdemu "github.com/nfcemu/go-msdemu"
	"github.com/nfcemu/go-msdemu/internal/frame"
)

// mockPort is an in-memory serial.Port. Each Write records the request frame
// and loads the next scripted reply into the read buffer.
type mockPort struct {
	mu       sync.Mutex
	requests [][]byte
	replies  [][]byte
	readBuf  []byte
	closed   bool
}

func (m *mockPort) queueReply(raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, raw)
}

func (m *mockPort) requestOps() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	ops := make([]byte, 0, len(m.requests))
	for _, req := range m.requests {
		ops = append(ops, req[1])
	}
	return ops
}

func (m *mockPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, append([]byte(nil), p...))
	if len(m.replies) > 0 {
		m.readBuf = append(m.readBuf, m.replies[0]...)
		m.replies = m.replies[1:]
	}
	return len(p), nil
}

func (m *mockPort) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.readBuf) == 0 {
		// emulate a read timeout
		return 0, nil
	}
	n := copy(p, m.readBuf)
	m.readBuf = m.readBuf[n:]
	return n, nil
}

func (m *mockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockPort) SetMode(*serial.Mode) error { return nil }
func (m *mockPort) Drain() error { return nil }
func (m *mockPort) ResetInputBuffer() error { return nil }
func (m *mockPort) ResetOutputBuffer() error { return nil }
func (m *mockPort) SetDTR(bool) error { return nil }
func (m *mockPort) SetRTS(bool) error { return nil }
func (m *mockPort) SetReadTimeout(time.Duration) error { return nil }
func (m *mockPort) Break(time.Duration) error { return nil }
func (m *mockPort) GetModemStatusBits() (*serial.ModemStatusBits, error) {
	return &serial.ModemStatusBits{}, nil
}

var _ serial.Port = (*mockPort)(nil)

// replyFrame builds a scripted answer: a full wire frame whose payload is the
// status byte followed by data.
func replyFrame(op, status byte, data []byte) []byte {
	return buildFrame(op, append([]byte{status}, data...))
}

func newTestTransport() (*Transport, *mockPort) {
	port := &mockPort{}
	return NewWithPort(port, "mem0"), port
}

func TestBuildFrame(t *testing.T) {
	t.Parallel()

	payload := []byte{0xDE, 0xAD}
	raw := buildFrame(opExchangeAPDU, payload)
	require.Len(t, raw, len(payload)+5)

	assert.Equal(t, byte(frameStart), raw[0])
	assert.Equal(t, byte(opExchangeAPDU), raw[1])
	assert.Equal(t, byte(0x00), raw[2])
	assert.Equal(t, byte(0x02), raw[3])
	assert.Equal(t, payload, raw[4:6])
	assert.Equal(t, frame.Sum(raw[1:len(raw)-1]), raw[len(raw)-1])
}

func TestReadFrameSkipsNoise(t *testing.T) {
	t.Parallel()
	tr, port := newTestTransport()

	port.readBuf = append([]byte{0x00, 0xFF, 0x13}, replyFrame(opSelectCard, statusOK, []byte{0x20})...)

	op, payload, err := tr.readFrame(time.Now().Add(100 * time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, byte(opSelectCard), op)
	assert.Equal(t, []byte{statusOK, 0x20}, payload)
}

func TestReadFrameChecksumMismatch(t *testing.T) {
	t.Parallel()
	tr, port := newTestTransport()

	raw := replyFrame(opSelectCard, statusOK, []byte{0x20})
	raw[len(raw)-1] ^= 0xFF
	port.readBuf = raw

	_, _, err := tr.readFrame(time.Now().Add(100 * time.Millisecond))
	assert.ErrorIs(t, err, errFrameCorrupted)
}

func TestReadFrameTimeout(t *testing.T) {
	t.Parallel()
	tr, _ := newTestTransport()

	_, _, err := tr.readFrame(time.Now().Add(20 * time.Millisecond))
	assert.ErrorIs(t, err, errFrameCorrupted)
}

func TestSelectCard(t *testing.T) {
	t.Parallel()
	tr, port := newTestTransport()

	port.queueReply(replyFrame(opFieldReader, statusOK, nil))
	port.queueReply(replyFrame(opSelectCard, statusOK, []byte{0x20, 0xE9, 0x66, 0x5D, 0x20}))

	card, err := tr.SelectCard()
	require.NoError(t, err)
	assert.Equal(t, byte(0x20), card.SAK)
	assert.Equal(t, []byte{0xE9, 0x66, 0x5D, 0x20}, card.UID)
	assert.Equal(t, []byte{opFieldReader, opSelectCard}, port.requestOps())
}

func TestSelectCardEmptyField(t *testing.T) {
	t.Parallel()
	tr, port := newTestTransport()

	port.queueReply(replyFrame(opFieldReader, statusOK, nil))
	port.queueReply(replyFrame(opSelectCard, statusNoCard, nil))

	_, err := tr.SelectCard()
	assert.ErrorIs(t, err, msdemu.ErrNoCard)
}

func TestExchangeAPDU(t *testing.T) {
	t.Parallel()
	tr, port := newTestTransport()

	port.queueReply(replyFrame(opExchangeAPDU, statusOK, []byte{0x6F, 0x00, 0x90, 0x00}))

	resp, err := tr.ExchangeAPDU(msdemu.SelectPPSE)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x6F, 0x00, 0x90, 0x00}, resp)

	// the command travelled as the request payload
	require.Len(t, port.requests, 1)
	req := port.requests[0]
	assert.Equal(t, msdemu.SelectPPSE, req[4:len(req)-1])
}

func TestExchangeAPDUEmpty(t *testing.T) {
	t.Parallel()
	tr, port := newTestTransport()

	port.queueReply(replyFrame(opExchangeAPDU, statusEmpty, nil))

	_, err := tr.ExchangeAPDU(msdemu.SelectPPSE)
	assert.ErrorIs(t, err, msdemu.ErrTransportEmpty)
}

func TestExchangeAPDUOpcodeMismatch(t *testing.T) {
	t.Parallel()
	tr, port := newTestTransport()

	port.queueReply(replyFrame(opTargetRecv, statusOK, []byte{0x90, 0x00}))

	_, err := tr.ExchangeAPDU(msdemu.SelectPPSE)
	require.Error(t, err)
	var backendErr *msdemu.BackendError
	assert.ErrorAs(t, err, &backendErr)
}

func TestInitTarget(t *testing.T) {
	t.Parallel()
	tr, port := newTestTransport()

	table := []byte{
		2, 0x04, 0x00, // ATQA
		5, 0xE9, 0x66, 0x5D, 0x20, 0xD2, // UID frame
		3, 0x20, 0xFC, 0x70, // SAK frame
		5, 0x05, 0x78, 0x80, 0x70, 0x02, // ATS
	}
	port.queueReply(replyFrame(opTargetInit, statusOK, table))

	responses, err := tr.InitTarget([]byte{0xE9, 0x66, 0x5D, 0x20})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04, 0x00}, responses.ATQA)
	assert.Equal(t, []byte{0xE9, 0x66, 0x5D, 0x20, 0xD2}, responses.UID1)
	assert.Equal(t, []byte{0x20, 0xFC, 0x70}, responses.SAK1)
	assert.Equal(t, []byte{0x05, 0x78, 0x80, 0x70, 0x02}, responses.ATS)

	// the UID travelled as the request payload
	req := port.requests[0]
	assert.Equal(t, []byte{0xE9, 0x66, 0x5D, 0x20}, req[4:len(req)-1])
}

func TestInitTargetFailures(t *testing.T) {
	t.Parallel()

	t.Run("front-end status", func(t *testing.T) {
		t.Parallel()
		tr, port := newTestTransport()
		port.queueReply(replyFrame(opTargetInit, statusInitFailed, nil))
		_, err := tr.InitTarget([]byte{0x01, 0x02, 0x03, 0x04})
		assert.ErrorIs(t, err, msdemu.ErrEmulationInit)
	})

	t.Run("truncated response table", func(t *testing.T) {
		t.Parallel()
		tr, port := newTestTransport()
		port.queueReply(replyFrame(opTargetInit, statusOK, []byte{2, 0x04, 0x00, 5, 0xE9}))
		_, err := tr.InitTarget([]byte{0x01, 0x02, 0x03, 0x04})
		assert.ErrorIs(t, err, msdemu.ErrEmulationInit)
	})
}

func TestReceiveCommand(t *testing.T) {
	t.Parallel()
	tr, port := newTestTransport()

	// first poll comes back empty, second delivers a frame
	port.queueReply(replyFrame(opTargetRecv, statusOK, nil))
	port.queueReply(replyFrame(opTargetRecv, statusOK, []byte{0x26}))

	cmd, err := tr.ReceiveCommand(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte{0x26}, cmd)
	assert.Equal(t, []byte{opTargetRecv, opTargetRecv}, port.requestOps())
}

func TestReceiveCommandFieldLost(t *testing.T) {
	t.Parallel()
	tr, port := newTestTransport()

	port.queueReply(replyFrame(opTargetRecv, statusFieldLost, nil))

	_, err := tr.ReceiveCommand(context.Background())
	assert.ErrorIs(t, err, msdemu.ErrFieldLost)
}

func TestReceiveCommandCancellation(t *testing.T) {
	t.Parallel()
	tr, _ := newTestTransport()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.ReceiveCommand(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPrepareModulation(t *testing.T) {
	t.Parallel()
	tr, port := newTestTransport()

	port.queueReply(replyFrame(opTargetPrep, statusOK, nil))
	require.NoError(t, tr.PrepareModulation([]byte{0x02, 0x90, 0x00}))

	port.queueReply(replyFrame(opTargetPrep, statusPrepFailed, nil))
	assert.ErrorIs(t, tr.PrepareModulation([]byte{0x02, 0x90, 0x00}), msdemu.ErrModulationPrep)
}

func TestSendResponse(t *testing.T) {
	t.Parallel()
	tr, port := newTestTransport()

	port.queueReply(replyFrame(opTargetSend, statusOK, nil))
	require.NoError(t, tr.SendResponse([]byte{0x02, 0x90, 0x00}))

	req := port.requests[0]
	assert.Equal(t, []byte{0x02, 0x90, 0x00}, req[4:len(req)-1])
}

func TestClose(t *testing.T) {
	t.Parallel()
	tr, port := newTestTransport()

	require.NoError(t, tr.Close())
	assert.True(t, port.closed)
	require.NoError(t, tr.Close(), "closing twice is fine")

	_, err := tr.ExchangeAPDU(msdemu.SelectPPSE)
	assert.ErrorIs(t, err, msdemu.ErrBackendClosed)
}

func TestFieldOff(t *testing.T) {
	t.Parallel()
	tr, port := newTestTransport()

	port.queueReply(replyFrame(opFieldOff, statusOK, nil))
	require.NoError(t, tr.FieldOff())
	assert.Equal(t, []byte{opFieldOff}, port.requestOps())
}
