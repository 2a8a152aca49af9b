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
	"strings"

	"github.com/moov-io/bertlv"
)

// findTag decodes data as BER-TLV and returns the value of the first node
// carrying the given hex tag, searching constructed templates depth-first.
// Returns false when data does not decode or the tag is absent; callers then
// fall back to a raw byte scan so that responses with non-TLV padding still
// yield their payload.
func findTag(data []byte, tag string) ([]byte, bool) {
	nodes, err := bertlv.Decode(data)
	if err != nil {
		return nil, false
	}
	return findTagIn(nodes, tag)
}

func findTagIn(nodes []bertlv.TLV, tag string) ([]byte, bool) {
	for _, node := range nodes {
		if strings.EqualFold(node.Tag, tag) {
			return node.Value, true
		}
		if len(node.TLVs) > 0 {
			if v, ok := findTagIn(node.TLVs, tag); ok {
				return v, true
			}
		}
	}
	return nil, false
}

// scanPattern finds the first occurrence of pattern in data and returns the
// index of the byte following it. This is the literal first-leftmost-match
// scan required for Track 2 capture.
func scanPattern(data, pattern []byte) (int, bool) {
	idx := bytes.Index(data, pattern)
	if idx < 0 {
		return 0, false
	}
	return idx + len(pattern), true
}
