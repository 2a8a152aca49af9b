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

// Package gpiopanel implements the msdemu panel over GPIO pins using
// periph.io: one active-low push button and up to four LEDs.
package gpiopanel

import (
	"fmt"
	"time"

	msdemu "github.com/nfcemu/go-msdemu"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Config names the pins to use, in the platform's pin registry naming
// (e.g. "GPIO17"). An empty LED name leaves that indicator unwired.
type Config struct {
	ButtonPin string
	LEDPins   map[msdemu.LED]string
}

// Panel implements msdemu.Panel over GPIO.
type Panel struct {
	button gpio.PinIO
	leds   map[msdemu.LED]gpio.PinIO
}

// New initializes the host drivers and claims the configured pins. The
// button pin is configured with a pull-up; the button is expected to pull
// it low when pressed.
func New(cfg Config) (*Panel, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init failed: %w", err)
	}
	if cfg.ButtonPin == "" {
		return nil, fmt.Errorf("%w: button pin required", msdemu.ErrInvalidParameter)
	}

	button := gpioreg.ByName(cfg.ButtonPin)
	if button == nil {
		return nil, fmt.Errorf("%w: unknown pin %q", msdemu.ErrInvalidParameter, cfg.ButtonPin)
	}
	if err := button.In(gpio.PullUp, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("failed to configure button pin: %w", err)
	}

	leds := make(map[msdemu.LED]gpio.PinIO, len(cfg.LEDPins))
	for led, name := range cfg.LEDPins {
		if name == "" {
			continue
		}
		pin := gpioreg.ByName(name)
		if pin == nil {
			return nil, fmt.Errorf("%w: unknown pin %q", msdemu.ErrInvalidParameter, name)
		}
		if err := pin.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("failed to configure LED pin %q: %w", name, err)
		}
		leds[led] = pin
	}

	return &Panel{button: button, leds: leds}, nil
}

// WaitButton implements msdemu.Panel. It waits up to threshold for a press,
// then holds the poll until release or until the press duration reaches the
// same threshold, which classifies the event as a hold.
func (p *Panel) WaitButton(threshold time.Duration) msdemu.ButtonEvent {
	if !p.button.WaitForEdge(threshold) {
		return msdemu.ButtonNone
	}
	if p.button.Read() == gpio.High {
		// release edge of an earlier press
		return msdemu.ButtonNone
	}

	pressed := time.Now()
	for p.button.Read() == gpio.Low {
		if time.Since(pressed) >= threshold {
			p.waitRelease()
			return msdemu.ButtonHold
		}
		time.Sleep(10 * time.Millisecond)
	}
	return msdemu.ButtonClick
}

// waitRelease drains the press so a hold is reported once.
func (p *Panel) waitRelease() {
	for p.button.Read() == gpio.Low {
		time.Sleep(10 * time.Millisecond)
	}
}

// SetLED implements msdemu.Panel. Unwired indicators are ignored.
func (p *Panel) SetLED(led msdemu.LED, on bool) {
	pin, ok := p.leds[led]
	if !ok {
		return
	}
	_ = pin.Out(gpio.Level(on))
}

// Verify interface implementation
var _ msdemu.Panel = (*Panel)(nil)
