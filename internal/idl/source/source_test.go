// Copyright 2025 EngFlow Inc. All rights reserved.
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

package source

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromLiteral(t *testing.T) {
	s := FromLiteral("module m {};")
	assert.Equal(t, "module m {};", s.Code())
	assert.True(t, filepath.IsAbs(s.Path()))
	assert.Equal(t, "unknown.idl", filepath.Base(s.Path()))
}

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.idl")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// TestBOMParity exercises scenario / invariant 7 from the front-end spec:
// loading the same logical content across every supported BOM must yield
// byte-identical UTF-8 buffers after BOM stripping and transcoding.
func TestBOMParity(t *testing.T) {
	const want = "module m { long x; };"

	utf16Units := func(order binary.ByteOrder) []byte {
		buf := make([]byte, 0, len(want)*2)
		for _, r := range want {
			var tmp [2]byte
			order.PutUint16(tmp[:], uint16(r))
			buf = append(buf, tmp[:]...)
		}
		return buf
	}
	utf32Units := func(order binary.ByteOrder) []byte {
		buf := make([]byte, 0, len(want)*4)
		for _, r := range want {
			var tmp [4]byte
			order.PutUint32(tmp[:], uint32(r))
			buf = append(buf, tmp[:]...)
		}
		return buf
	}

	cases := map[string][]byte{
		"utf8":    append([]byte{0xEF, 0xBB, 0xBF}, []byte(want)...),
		"utf16be": append([]byte{0xFE, 0xFF}, utf16Units(binary.BigEndian)...),
		"utf16le": append([]byte{0xFF, 0xFE}, utf16Units(binary.LittleEndian)...),
		"utf32be": append([]byte{0x00, 0x00, 0xFE, 0xFF}, utf32Units(binary.BigEndian)...),
		"utf32le": append([]byte{0xFF, 0xFE, 0x00, 0x00}, utf32Units(binary.LittleEndian)...),
		"raw8bit": []byte(want),
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeTemp(t, raw)
			src, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, want, src.Code())
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.idl"))
	require.Error(t, err)
}
