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

// Package frame provides the checksums used on the two wire layers: the
// ISO14443A CRC_A appended to every air-interface response, and the additive
// checksum of the serial front-end framing.
package frame

// ChecksumA computes the ISO14443A CRC_A over data: 16 bits, reversed
// polynomial 0x8408, initial value 0x6363, no final XOR, transmitted low
// byte first.
func ChecksumA(data []byte) uint16 {
	crc := uint16(0x6363)
	for _, b := range data {
		b ^= byte(crc)
		b ^= b << 4
		bb := uint16(b)
		crc = crc>>8 ^ bb<<8 ^ bb<<3 ^ bb>>4
	}
	return crc
}

// AppendCRCA returns a new buffer with the CRC_A of data appended, low byte
// first. The input slice is not modified.
func AppendCRCA(data []byte) []byte {
	crc := ChecksumA(data)
	out := make([]byte, 0, len(data)+2)
	out = append(out, data...)
	return append(out, byte(crc), byte(crc>>8))
}

// CheckCRCA reports whether the last two bytes of data are the correct
// CRC_A of the preceding bytes.
func CheckCRCA(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	crc := ChecksumA(data[:len(data)-2])
	return data[len(data)-2] == byte(crc) && data[len(data)-1] == byte(crc>>8)
}

// Sum computes the 8-bit additive checksum used by the serial front-end
// framing.
func Sum(data []byte) byte {
	chk := byte(0)
	for _, b := range data {
		chk += b
	}
	return chk
}
