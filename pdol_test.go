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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagPlaceholder(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		tag         uint16
		declaredLen byte
		want        []byte
	}{
		{
			name: "terminal transaction qualifiers",
			tag:  0x9F66,
			want: []byte{0xF6, 0x20, 0xC0, 0x00},
		},
		{
			name: "terminal country code echoes tag",
			tag:  0x9F1A,
			want: []byte{0x9F, 0x1A},
		},
		{
			name: "transaction currency code echoes tag",
			tag:  0x5F2A,
			want: []byte{0x5F, 0x2A},
		},
		{
			name: "transaction date",
			tag:  0x009A,
			want: []byte{0x9A, 0x9A, 0x9A},
		},
		{
			name: "terminal verification results",
			tag:  0x0095,
			want: []byte{0x95, 0x95, 0x95, 0x95, 0x95},
		},
		{
			name: "transaction type",
			tag:  0x009C,
			want: []byte{0x9C},
		},
		{
			name: "unpredictable number",
			tag:  0x9F37,
			want: []byte{0x9F, 0x37, 0x9F, 0x37},
		},
		{
			name:        "unknown tag zero-filled to declared length",
			tag:         0x9F02,
			declaredLen: 6,
			want:        []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		},
		{
			name:        "unknown tag with zero length",
			tag:         0x00C1,
			declaredLen: 0,
			want:        []byte{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := TagPlaceholder(tt.tag, tt.declaredLen)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompilePDOL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		pdol       []byte
		wantValues []byte
	}{
		{
			name:       "unpredictable number and transaction type",
			pdol:       []byte{0x04, 0x9F, 0x37, 0x04, 0x9C, 0x01},
			wantValues: []byte{0x9F, 0x37, 0x9F, 0x37, 0x9C},
		},
		{
			name:       "single ttq entry",
			pdol:       []byte{0x03, 0x9F, 0x66, 0x02},
			wantValues: []byte{0xF6, 0x20, 0xC0, 0x00},
		},
		{
			name:       "empty pdol equals static command",
			pdol:       []byte{0x00},
			wantValues: nil,
		},
		{
			name: "all recognized tags in order",
			pdol: []byte{
				0x0F,
				0x9F, 0x66, 0x04,
				0x9F, 0x1A, 0x02,
				0x5F, 0x2A, 0x02,
				0x9A, 0x03,
				0x95, 0x05,
				0x9C, 0x01,
			},
			wantValues: []byte{
				0xF6, 0x20, 0xC0, 0x00,
				0x9F, 0x1A,
				0x5F, 0x2A,
				0x9A, 0x9A, 0x9A,
				0x95, 0x95, 0x95, 0x95, 0x95,
				0x9C,
			},
		},
		{
			name:       "unknown one-byte tag zero-filled",
			pdol:       []byte{0x02, 0x91, 0x03},
			wantValues: []byte{0x00, 0x00, 0x00},
		},
		{
			name:       "unknown two-byte tag zero-filled",
			pdol:       []byte{0x03, 0xBF, 0x0C, 0x02},
			wantValues: []byte{0x00, 0x00},
		},
		{
			name:       "repeated unknown tag is idempotent",
			pdol:       []byte{0x04, 0x91, 0x02, 0x91, 0x02},
			wantValues: []byte{0x00, 0x00, 0x00, 0x00},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cmd, err := CompilePDOL(tt.pdol)
			require.NoError(t, err)

			// fixed header, outer length, 83 object with inner length
			want := []byte{0x80, 0xA8, 0x00, 0x00, byte(len(tt.wantValues) + 2), 0x83, byte(len(tt.wantValues))}
			want = append(want, tt.wantValues...)
			want = append(want, 0x00)
			assert.Equal(t, want, cmd)
			assert.Len(t, cmd, 7+len(tt.wantValues)+1)
		})
	}
}

func TestCompilePDOLEmptyInput(t *testing.T) {
	t.Parallel()
	cmd, err := CompilePDOL(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultGPO, cmd)
}

func TestCompilePDOLCapacityExceeded(t *testing.T) {
	t.Parallel()
	// one unknown entry declaring 255 value bytes already overflows the
	// 255-byte command budget
	_, err := CompilePDOL([]byte{0x02, 0x91, 0xFF})
	require.ErrorIs(t, err, ErrPDOLCapacity)

	// several mid-size entries crossing the boundary together
	pdol := []byte{0x08}
	for i := 0; i < 4; i++ {
		pdol = append(pdol, 0x91, 70)
	}
	_, err = CompilePDOL(pdol)
	require.ErrorIs(t, err, ErrPDOLCapacity)
}

func TestCompilePDOLTruncatedInput(t *testing.T) {
	t.Parallel()
	// declared length runs past the buffer; the compiler consumes what is
	// there and still emits a well-formed command
	cmd, err := CompilePDOL([]byte{0x10, 0x9F, 0x37, 0x04})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(cmd, []byte{0x80, 0xA8, 0x00, 0x00}))
	assert.Equal(t, byte(0x00), cmd[len(cmd)-1])
}
