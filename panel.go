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
	"sync"
	"time"
)

// ButtonEvent is the result of one bounded button poll.
type ButtonEvent int

const (
	// ButtonNone means no press happened within the poll window.
	ButtonNone ButtonEvent = iota
	// ButtonClick is a press released before the hold threshold.
	ButtonClick
	// ButtonHold is a press held at least the hold threshold.
	ButtonHold
)

// LED identifies one of the panel indicators. The assignment follows the
// device legend: reading mode, activity, record-in-memory, spare status.
type LED int

const (
	LEDReading LED = iota
	LEDActivity
	LEDRecord
	LEDStatus
)

// Panel is the operator I/O consumed by the mode controller: one button and
// a row of LEDs. Implementations must make WaitButton return within roughly
// the given timeout so the controller loop keeps sampling its abort signal.
type Panel interface {
	// WaitButton polls for a button event, distinguishing click from hold
	// at the given threshold.
	WaitButton(threshold time.Duration) ButtonEvent

	// SetLED switches an indicator on or off.
	SetLED(led LED, on bool)
}

// NopPanel is a Panel without hardware: no button events, discarded LEDs.
// Used when the device runs purely host-controlled.
type NopPanel struct{}

// WaitButton implements Panel.
func (NopPanel) WaitButton(_ time.Duration) ButtonEvent { return ButtonNone }

// SetLED implements Panel.
func (NopPanel) SetLED(_ LED, _ bool) {}

// MockPanel provides a scripted Panel for testing.
type MockPanel struct {
	mu     sync.Mutex
	events []ButtonEvent
	leds   map[LED]bool
}

// NewMockPanel creates an empty mock panel.
func NewMockPanel() *MockPanel {
	return &MockPanel{leds: make(map[LED]bool)}
}

// Push queues a button event to be returned by the next WaitButton call.
func (m *MockPanel) Push(ev ButtonEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

// WaitButton implements Panel. Pops a queued event or reports none.
func (m *MockPanel) WaitButton(_ time.Duration) ButtonEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return ButtonNone
	}
	ev := m.events[0]
	m.events = m.events[1:]
	return ev
}

// SetLED implements Panel.
func (m *MockPanel) SetLED(led LED, on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leds[led] = on
}

// LEDState returns the last state written for an indicator.
func (m *MockPanel) LEDState(led LED) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leds[led]
}
