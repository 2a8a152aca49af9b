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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleTrack2Hex is the documented MSD token format: card number
// 4412 3456 0578 1234, expiry 17/11, service code 201, then discretionary
// data.
const sampleTrack2Hex = "4412345605781234d17112010000030000991f"

func sampleTrack2(t *testing.T) Track2Record {
	t.Helper()
	rec, err := ParseTrack2(sampleTrack2Hex)
	require.NoError(t, err)
	return rec
}

func TestParseTrack2(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:  "valid token",
			input: sampleTrack2Hex,
		},
		{
			name:    "too short",
			input:   "4412345605781234",
			wantErr: true,
		},
		{
			name:    "too long",
			input:   sampleTrack2Hex + "00",
			wantErr: true,
		},
		{
			name:    "not hex",
			input:   "zz12345605781234d17112010000030000991f",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec, err := ParseTrack2(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidTrack2)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, byte(0x44), rec[0])
			assert.Equal(t, byte(0x1F), rec[18])
		})
	}
}

func TestTrack2RecordFields(t *testing.T) {
	t.Parallel()
	rec := sampleTrack2(t)

	assert.Equal(t, "4412345605781234", rec.CardNumber())
	assert.Equal(t, "17/11", rec.Expiry())
	assert.Equal(t, "441234******1234 exp 17/11", rec.String())
}

func TestTrack2StoreLifecycle(t *testing.T) {
	t.Parallel()
	var store Track2Store

	// empty store
	assert.False(t, store.Present())
	_, ok := store.Get()
	assert.False(t, ok)

	// set and read back
	rec := sampleTrack2(t)
	store.Set(rec)
	assert.True(t, store.Present())
	got, ok := store.Get()
	require.True(t, ok)
	assert.Equal(t, rec, got)

	// the returned record is a copy
	got[0] = 0xFF
	again, _ := store.Get()
	assert.Equal(t, byte(0x44), again[0])

	// clear invalidates
	store.Clear()
	assert.False(t, store.Present())
	cleared, ok := store.Get()
	assert.False(t, ok)
	assert.Equal(t, Track2Record{}, cleared)
}
