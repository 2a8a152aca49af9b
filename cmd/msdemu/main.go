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

// Command msdemu runs the card read/replay engine against a serial RF
// front-end: it captures a card's Track 2 Equivalent Data in reading mode
// and replays it to a point-of-sale reader in emulation mode.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	msdemu "github.com/nfcemu/go-msdemu"
	"github.com/nfcemu/go-msdemu/panel/gpiopanel"
	"github.com/nfcemu/go-msdemu/transport/uart"
)

type config struct {
	devicePath string
	track2Hex  string
	uidHex     string
	buttonPin  string
	ledPins    string
	debug      bool
}

// Package-level flag variables
var (
	flagDevicePath string
	flagTrack2     string
	flagUID        string
	flagButtonPin  string
	flagLEDPins    string
	flagDebug      bool
)

func init() {
	flag.StringVar(&flagDevicePath, "device", "", "Serial port of the RF front-end (required)")
	flag.StringVar(&flagTrack2, "track2", "", "Hex-encoded 19-byte record to preload (starts in emulation mode)")
	flag.StringVar(&flagUID, "uid", "", "Hex-encoded 4-byte UID for emulation (default E9665D20)")
	flag.StringVar(&flagButtonPin, "button", "", "GPIO pin of the mode button (no panel if empty)")
	flag.StringVar(&flagLEDPins, "leds", "", "Comma-separated GPIO pins for the reading,activity,record,status LEDs")
	flag.BoolVar(&flagDebug, "debug", false, "Enable debug output")
}

func parseConfig() *config {
	cfg := &config{
		devicePath: flagDevicePath,
		track2Hex:  flagTrack2,
		uidHex:     flagUID,
		buttonPin:  flagButtonPin,
		ledPins:    flagLEDPins,
		debug:      flagDebug,
	}
	if cfg.debug {
		msdemu.SetDebugEnabled(true)
	}
	return cfg
}

// newPanel wires the GPIO panel when a button pin is given, otherwise the
// device runs host-controlled without operator I/O.
func newPanel(cfg *config) (msdemu.Panel, error) {
	if cfg.buttonPin == "" {
		return msdemu.NopPanel{}, nil
	}
	panelCfg := gpiopanel.Config{
		ButtonPin: cfg.buttonPin,
		LEDPins:   make(map[msdemu.LED]string),
	}
	order := []msdemu.LED{msdemu.LEDReading, msdemu.LEDActivity, msdemu.LEDRecord, msdemu.LEDStatus}
	for i, name := range strings.Split(cfg.ledPins, ",") {
		if i >= len(order) || name == "" {
			continue
		}
		panelCfg.LEDPins[order[i]] = strings.TrimSpace(name)
	}
	panel, err := gpiopanel.New(panelCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GPIO panel: %w", err)
	}
	return panel, nil
}

func newControllerConfig(cfg *config) (*msdemu.ControllerConfig, error) {
	ctrlCfg := msdemu.DefaultControllerConfig()
	if cfg.uidHex != "" {
		uid, err := hex.DecodeString(cfg.uidHex)
		if err != nil || len(uid) != 4 {
			return nil, fmt.Errorf("invalid -uid value %q: want 4 hex bytes", cfg.uidHex)
		}
		ctrlCfg.TargetUID = uid
	}
	if cfg.track2Hex != "" {
		rec, err := msdemu.ParseTrack2(cfg.track2Hex)
		if err != nil {
			return nil, fmt.Errorf("invalid -track2 value: %w", err)
		}
		ctrlCfg.Preload = &rec
	}
	return ctrlCfg, nil
}

func run() error {
	cfg := parseConfig()
	if cfg.devicePath == "" {
		flag.Usage()
		return errors.New("missing required -device flag")
	}

	backend, err := uart.New(cfg.devicePath)
	if err != nil {
		return fmt.Errorf("failed to open front-end: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to close front-end: %v\n", err)
		}
	}()

	panel, err := newPanel(cfg)
	if err != nil {
		return err
	}

	ctrlCfg, err := newControllerConfig(cfg)
	if err != nil {
		return err
	}

	// The host abort signal: SIGINT/SIGTERM cancel the controller context.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctrl := msdemu.NewController(backend, panel, ctrlCfg)
	if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("controller stopped: %w", err)
	}

	if rec, ok := ctrl.Store().Get(); ok {
		fmt.Printf("captured record: %s\n", rec.String())
	}
	return nil
}

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
