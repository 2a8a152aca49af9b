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

// Package uart implements the msdemu backend over a serial RF front-end.
//
// The front-end speaks a simple half-duplex framing: a start byte, an
// opcode, a big-endian 16-bit payload length, the payload, and an 8-bit
// additive checksum over opcode, length and payload. Every request is
// answered with one frame whose first payload byte is a status code.
package uart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	msdemu "github.com/nfcemu/go-msdemu"
	"github.com/nfcemu/go-msdemu/internal/frame"
	"go.bug.st/serial"
)

const frameStart = 0xAA

// Front-end opcodes.
const (
	opFieldReader  = 0x01 // raise the reader field
	opSelectCard   = 0x02 // detect and activate a card, returns UID
	opExchangeAPDU = 0x03 // half-duplex APDU exchange
	opFieldOff     = 0x04 // drop the field
	opTargetInit   = 0x10 // enter target mode, returns canned responses
	opTargetRecv   = 0x11 // fetch the next reader frame, if any
	opTargetPrep   = 0x12 // load a response into the modulation buffer
	opTargetSend   = 0x13 // transmit the loaded response
)

// Status codes in the first payload byte of every answer frame.
const (
	statusOK          = 0x00
	statusNoCard      = 0x01
	statusFieldLost   = 0x02
	statusEmpty       = 0x03
	statusPrepFailed  = 0x04
	statusInitFailed  = 0x05
	statusBadCommand  = 0x06
	statusUnspecified = 0xFF
)

const (
	readTimeout  = 50 * time.Millisecond
	recvPollGap  = 10 * time.Millisecond
	maxFrameWait = 1 * time.Second
)

var errFrameCorrupted = errors.New("frame corrupted")

// Transport implements msdemu.Backend for a serial front-end.
type Transport struct {
	port     serial.Port
	portName string
	mu       sync.Mutex
	closed   bool
}

// New opens the serial port and creates a transport.
func New(portName string) (*Transport, error) {
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}
	return &Transport{port: port, portName: portName}, nil
}

// NewWithPort creates a transport over an already-open port. Used by tests
// with an in-memory port.
func NewWithPort(port serial.Port, portName string) *Transport {
	return &Transport{port: port, portName: portName}
}

// buildFrame assembles one wire frame for op and payload.
func buildFrame(op byte, payload []byte) []byte {
	buf := make([]byte, 0, len(payload)+5)
	buf = append(buf, frameStart, op, byte(len(payload)>>8), byte(len(payload)))
	buf = append(buf, payload...)
	return append(buf, frame.Sum(buf[1:]))
}

// readFrame reads one frame from the port, skipping noise before the start
// byte. The per-read timeout is the port's; overall patience is bounded by
// deadline.
func (t *Transport) readFrame(deadline time.Time) (op byte, payload []byte, err error) {
	var (
		buf    []byte
		one    [64]byte
		header = -1
	)
	for {
		if time.Now().After(deadline) {
			return 0, nil, fmt.Errorf("%w: timeout", errFrameCorrupted)
		}
		n, rerr := t.port.Read(one[:])
		if rerr != nil {
			return 0, nil, fmt.Errorf("serial read: %w", rerr)
		}
		if n == 0 {
			continue
		}
		buf = append(buf, one[:n]...)

		if header < 0 {
			for i, b := range buf {
				if b == frameStart {
					header = 0
					buf = buf[i:]
					break
				}
			}
			if header < 0 {
				buf = buf[:0]
				continue
			}
		}
		if len(buf) < 4 {
			continue
		}
		plen := int(buf[2])<<8 | int(buf[3])
		total := 4 + plen + 1
		if len(buf) < total {
			continue
		}
		if frame.Sum(buf[1:total-1]) != buf[total-1] {
			return 0, nil, errFrameCorrupted
		}
		return buf[1], buf[4 : 4+plen], nil
	}
}

// roundTrip sends one request frame and reads the matching answer.
func (t *Transport) roundTrip(op byte, payload []byte) (status byte, data []byte, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, nil, msdemu.ErrBackendClosed
	}

	if _, err := t.port.Write(buildFrame(op, payload)); err != nil {
		return 0, nil, &msdemu.BackendError{Op: "write", Port: t.portName, Err: err}
	}
	respOp, resp, err := t.readFrame(time.Now().Add(maxFrameWait))
	if err != nil {
		return 0, nil, &msdemu.BackendError{Op: "read", Port: t.portName, Err: err}
	}
	if respOp != op || len(resp) == 0 {
		return 0, nil, &msdemu.BackendError{Op: "read", Port: t.portName, Err: errFrameCorrupted}
	}
	return resp[0], resp[1:], nil
}

// SelectCard implements msdemu.Initiator.
func (t *Transport) SelectCard() (*msdemu.CardInfo, error) {
	if _, _, err := t.roundTrip(opFieldReader, nil); err != nil {
		return nil, err
	}
	status, data, err := t.roundTrip(opSelectCard, nil)
	if err != nil {
		return nil, err
	}
	if status != statusOK || len(data) < 2 {
		return nil, msdemu.ErrNoCard
	}
	// payload: SAK byte, then UID
	return &msdemu.CardInfo{SAK: data[0], UID: data[1:]}, nil
}

// ExchangeAPDU implements msdemu.Initiator.
func (t *Transport) ExchangeAPDU(cmd []byte) ([]byte, error) {
	status, data, err := t.roundTrip(opExchangeAPDU, cmd)
	if err != nil {
		return nil, err
	}
	if status != statusOK || len(data) == 0 {
		return nil, msdemu.ErrTransportEmpty
	}
	return data, nil
}

// FieldOff implements msdemu.Initiator.
func (t *Transport) FieldOff() error {
	_, _, err := t.roundTrip(opFieldOff, nil)
	return err
}

// InitTarget implements msdemu.Target. The answer payload carries the four
// precompiled activation responses, each prefixed with a length byte, in
// ATQA, UID, SAK, ATS order.
func (t *Transport) InitTarget(uid []byte) (*msdemu.TargetResponses, error) {
	status, data, err := t.roundTrip(opTargetInit, uid)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", msdemu.ErrEmulationInit, err)
	}
	if status != statusOK {
		return nil, fmt.Errorf("%w: front-end status 0x%02X", msdemu.ErrEmulationInit, status)
	}
	responses := &msdemu.TargetResponses{}
	for _, slot := range []*[]byte{&responses.ATQA, &responses.UID1, &responses.SAK1, &responses.ATS} {
		if len(data) < 1 {
			return nil, fmt.Errorf("%w: truncated response table", msdemu.ErrEmulationInit)
		}
		n := int(data[0])
		if len(data) < 1+n {
			return nil, fmt.Errorf("%w: truncated response table", msdemu.ErrEmulationInit)
		}
		*slot = append([]byte(nil), data[1:1+n]...)
		data = data[1+n:]
	}
	return responses, nil
}

// ReceiveCommand implements msdemu.Target. The front-end is polled until a
// reader frame arrives; a field-lost status ends the session.
func (t *Transport) ReceiveCommand(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		status, data, err := t.roundTrip(opTargetRecv, nil)
		if err != nil {
			return nil, err
		}
		switch status {
		case statusOK:
			if len(data) > 0 {
				return data, nil
			}
		case statusFieldLost:
			return nil, msdemu.ErrFieldLost
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(recvPollGap):
		}
	}
}

// PrepareModulation implements msdemu.Target.
func (t *Transport) PrepareModulation(resp []byte) error {
	status, _, err := t.roundTrip(opTargetPrep, resp)
	if err != nil {
		return err
	}
	if status != statusOK {
		return msdemu.ErrModulationPrep
	}
	return nil
}

// SendResponse implements msdemu.Target.
func (t *Transport) SendResponse(resp []byte) error {
	_, _, err := t.roundTrip(opTargetSend, resp)
	return err
}

// Close implements msdemu.Backend.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}

// Verify interface implementation
var _ msdemu.Backend = (*Transport)(nil)
