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
	"time"

	"github.com/nfcemu/go-msdemu/internal/syncutil"
)

// Mode is the controller's top-level state.
type Mode int

const (
	// ModeReading polls for a card and runs the reading script.
	ModeReading Mode = iota
	// ModeEmulating answers an external reader with the captured record.
	ModeEmulating
)

func (m Mode) String() string {
	if m == ModeEmulating {
		return "emulating"
	}
	return "reading"
}

// ControllerConfig contains configuration options for the Controller.
type ControllerConfig struct {
	// HoldThreshold distinguishes a button click from a hold. A hold
	// terminates the run.
	HoldThreshold time.Duration
	// LoopDelay is the fixed pause between controller iterations.
	LoopDelay time.Duration
	// TargetUID is the 4-byte UID presented in emulation mode.
	TargetUID []byte
	// Preload starts the controller directly in emulation mode with an
	// operator-supplied record.
	Preload *Track2Record
}

// DefaultControllerConfig returns the default controller configuration.
func DefaultControllerConfig() *ControllerConfig {
	return &ControllerConfig{
		HoldThreshold: 1000 * time.Millisecond,
		LoopDelay:     500 * time.Millisecond,
		TargetUID:     []byte{0xE9, 0x66, 0x5D, 0x20},
	}
}

// Controller owns the Reading/Emulating state machine. Each loop iteration
// samples the abort signal (the context) and the button, applies the
// transition rules, then dispatches one unit of work to the current mode's
// session. Execution is single-threaded and cooperative; the mode itself
// enforces mutual exclusion between the two sessions.
type Controller struct {
	backend Backend
	panel   Panel
	config  *ControllerConfig
	store   Track2Store

	mu   syncutil.RWMutex
	mode Mode
}

// NewController creates a controller over the given backend and panel. A
// nil config uses DefaultControllerConfig.
func NewController(backend Backend, panel Panel, config *ControllerConfig) *Controller {
	if config == nil {
		config = DefaultControllerConfig()
	}
	if panel == nil {
		panel = NopPanel{}
	}
	return &Controller{
		backend: backend,
		panel:   panel,
		config:  config,
	}
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

func (c *Controller) setMode(mode Mode) {
	c.mu.Lock()
	c.mode = mode
	c.mu.Unlock()
	Debugf("[ %s mode ]", mode)
}

// Store exposes the record store, e.g. for host-side reporting.
func (c *Controller) Store() *Track2Store {
	return &c.store
}

// Run executes the controller loop until the button is held past the
// threshold (nil return) or ctx is cancelled (ctx.Err returned). A preloaded
// record puts the controller straight into emulation mode.
func (c *Controller) Run(ctx context.Context) error {
	if c.config.Preload != nil {
		c.store.Set(*c.config.Preload)
		c.setMode(ModeEmulating)
		Debugln("initialized with preloaded record, waiting for a card reader")
	} else {
		c.setMode(ModeReading)
		Debugln("initialized, waiting for a card")
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch c.panel.WaitButton(c.config.HoldThreshold) {
		case ButtonHold:
			c.allLEDsOff()
			return nil
		case ButtonClick:
			c.toggleMode()
		case ButtonNone:
		}

		if err := sleepContext(ctx, c.config.LoopDelay); err != nil {
			return err
		}

		switch c.Mode() {
		case ModeReading:
			c.readingCycle()
		case ModeEmulating:
			c.emulationCycle(ctx)
		}
	}
}

// toggleMode applies the manual transition rules: Reading to Emulating only
// with a valid record in memory, Emulating to Reading unconditionally.
func (c *Controller) toggleMode() {
	if c.Mode() == ModeReading {
		if c.store.Present() {
			c.setMode(ModeEmulating)
		} else {
			Debugln("nothing in memory to emulate")
		}
		return
	}
	c.setMode(ModeReading)
}

// readingCycle runs one reading pass: a single card poll, then the script.
// A successful capture switches to emulation mode immediately.
func (c *Controller) readingCycle() {
	c.panel.SetLED(LEDReading, true)
	c.panel.SetLED(LEDRecord, c.store.Present())

	session := NewReaderSession(c.backend)
	session.Panel = c.panel
	rec := session.Run()
	_ = c.backend.FieldOff()

	if rec == nil {
		return
	}
	c.store.Set(*rec)
	c.panel.SetLED(LEDRecord, true)
	c.setMode(ModeEmulating)
	Debugln("waiting for a card reader")
}

// emulationCycle runs one emulation session with a copy of the stored
// record taken at session start. Init failure or a lost field both put the
// controller back into reading mode; the store is left untouched.
func (c *Controller) emulationCycle(ctx context.Context) {
	c.panel.SetLED(LEDReading, false)
	c.panel.SetLED(LEDRecord, true)

	var recPtr *Track2Record
	if rec, ok := c.store.Get(); ok {
		recPtr = &rec
	}

	session := NewEmulatorSession(c.backend, recPtr)
	session.Panel = c.panel
	if _, err := session.Run(ctx, c.config.TargetUID); err != nil {
		Debugln("emulation session failed:", err)
	}
	c.panel.SetLED(LEDActivity, false)
	c.setMode(ModeReading)
}

func (c *Controller) allLEDsOff() {
	for _, led := range []LED{LEDReading, LEDActivity, LEDRecord, LEDStatus} {
		c.panel.SetLED(led, false)
	}
}

// sleepContext pauses for d unless ctx is cancelled first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
