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

// EMV data-object tags the compiler knows placeholder values for. Two-byte
// tags are written as their big-endian uint16 value, one-byte tags with a
// zero high byte.
const (
	tagTTQ            = 0x9F66 // Terminal Transaction Qualifiers
	tagCountryCode    = 0x9F1A // Terminal Country Code
	tagCurrencyCode   = 0x5F2A // Transaction Currency Code
	tagTxDate         = 0x009A // Transaction Date
	tagTVR            = 0x0095 // Terminal Verification Results
	tagTxType         = 0x009C // Transaction Type
	tagUnpredictable  = 0x9F37 // Unpredictable Number
	tagPDOL           = 0x9F38 // Processing Options Data Object List
	tagTrack2         = 0x0057 // Track 2 Equivalent Data
	tagSubsequentByte = 0x1F   // low five bits set: tag continues into the next byte
)

// gpoHeader is the fixed CLA/INS/P1/P2 prefix of every GET PROCESSING
// OPTIONS command. The full layout is
// 80 A8 00 00 <values+2> 83 <values> <value bytes...> 00.
var gpoHeader = []byte{0x80, 0xA8, 0x00, 0x00}

// pdolValueCapacity bounds the accumulated value bytes so the finished
// command (7-byte header, values, trailing zero) stays within MaxFrameSize.
const pdolValueCapacity = MaxFrameSize - 8

// TagPlaceholder returns the value bytes emitted for a single PDOL entry
// when the real terminal value is unknown. Recognized tags get fixed
// handshake-safe placeholders; any other tag is zero-filled to its declared
// length.
func TagPlaceholder(tag uint16, declaredLen byte) []byte {
	switch tag {
	case tagTTQ:
		// contactless MSD-capable qualifiers
		return []byte{0xF6, 0x20, 0xC0, 0x00}
	case tagCountryCode:
		return []byte{0x9F, 0x1A}
	case tagCurrencyCode:
		return []byte{0x5F, 0x2A}
	case tagTxDate:
		return []byte{0x9A, 0x9A, 0x9A}
	case tagTVR:
		// all risk flags clear
		return []byte{0x95, 0x95, 0x95, 0x95, 0x95}
	case tagTxType:
		return []byte{0x9C}
	case tagUnpredictable:
		return []byte{0x9F, 0x37, 0x9F, 0x37}
	default:
		return make([]byte, int(declaredLen))
	}
}

// CompilePDOL builds a complete GET PROCESSING OPTIONS command from raw PDOL
// bytes as carried in tag 9F38 of an AID selection response. The first input
// byte declares the total PDOL length; the rest is a sequence of (tag,
// length) pairs with no value field. Entry order is preserved in the output.
//
// Returns ErrPDOLCapacity if the accumulated command would exceed
// MaxFrameSize; callers fall back to DefaultGPO in that case.
func CompilePDOL(pdol []byte) ([]byte, error) {
	var declared int
	if len(pdol) > 0 {
		declared = int(pdol[0])
	}

	var values []byte
	i := 1
	for i <= declared && i < len(pdol) {
		first := pdol[i]
		tag := uint16(first)
		i++
		if first&tagSubsequentByte == tagSubsequentByte && i < len(pdol) {
			tag = tag<<8 | uint16(pdol[i])
			i++
		}
		var length byte
		if i < len(pdol) {
			length = pdol[i]
			i++
		}
		values = append(values, TagPlaceholder(tag, length)...)
		if len(values) > pdolValueCapacity {
			return nil, ErrPDOLCapacity
		}
	}

	cmd := make([]byte, 0, len(gpoHeader)+3+len(values)+1)
	cmd = append(cmd, gpoHeader...)
	cmd = append(cmd, byte(len(values)+2)) // outer length: 83-object plus its header
	cmd = append(cmd, 0x83, byte(len(values)))
	cmd = append(cmd, values...)
	cmd = append(cmd, 0x00)
	return cmd, nil
}
