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

package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksumA(t *testing.T) {
	t.Parallel()

	// empty input leaves the preset untouched
	assert.Equal(t, uint16(0x6363), ChecksumA(nil))

	// the CRC-16/ISO-IEC-14443-3-A check value
	assert.Equal(t, uint16(0xBF05), ChecksumA([]byte("123456789")))
}

func TestAppendCRCA(t *testing.T) {
	t.Parallel()

	data := []byte("123456789")
	out := AppendCRCA(data)
	require.Len(t, out, len(data)+2)

	// low byte first on the wire
	assert.Equal(t, byte(0x05), out[len(out)-2])
	assert.Equal(t, byte(0xBF), out[len(out)-1])

	// the input buffer is left alone
	assert.Equal(t, []byte("123456789"), data)
}

func TestCheckCRCA(t *testing.T) {
	t.Parallel()

	frames := [][]byte{
		nil,
		{0x26},
		{0x02, 0x6F, 0x00},
		{0x00, 0xA4, 0x04, 0x00, 0x0E, 0x32, 0x50, 0x41, 0x59},
	}
	for _, f := range frames {
		out := AppendCRCA(f)
		assert.True(t, CheckCRCA(out))

		corrupted := append([]byte(nil), out...)
		corrupted[0] ^= 0x01
		assert.False(t, CheckCRCA(corrupted))
	}

	assert.False(t, CheckCRCA(nil))
	assert.False(t, CheckCRCA([]byte{0x63}))
}

func TestSum(t *testing.T) {
	t.Parallel()

	assert.Equal(t, byte(0), Sum(nil))
	assert.Equal(t, byte(0x06), Sum([]byte{0x01, 0x02, 0x03}))
	// wraps modulo 256
	assert.Equal(t, byte(0x01), Sum([]byte{0xFF, 0x02}))
}
