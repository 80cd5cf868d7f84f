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

// Package source loads an IDL source file, detects its byte-order mark,
// and normalizes the content to a single immutable UTF-8 buffer paired
// with an absolute path. It is the leaf of the front end's dependency
// graph: every Cursor, Token, and expansion chunk borrows a Source's
// buffer for as long as it is alive.
package source

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/sdv-oss/idlc/internal/idl/ierrors"
)

// Source owns an absolute path and the UTF-8 buffer decoded from it. Once
// constructed, a Source is immutable and safe to share across Cursors.
type Source struct {
	path string
	code string
}

// Load reads path, detects its byte-order mark among {UTF-8, UTF-16 LE/BE,
// UTF-32 LE/BE, raw 8-bit}, and returns a Source holding the UTF-8-encoded
// content and the absolute path.
func Load(path string) (*Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, ierrors.Wrap(ierrors.KindIO, ierrors.NoPosition, err, "cannot read %s", path).WithPath(path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, ierrors.Wrap(ierrors.KindIO, ierrors.NoPosition, err, "cannot resolve absolute path for %s", path).WithPath(path)
	}
	code, err := decode(raw)
	if err != nil {
		return nil, ierrors.Wrap(ierrors.KindEncoding, ierrors.NoPosition, err, "cannot decode %s", path).WithPath(path)
	}
	return &Source{path: abs, code: code}, nil
}

// FromLiteral builds a Source directly from in-memory text, for tests and
// for synthetic compilation units. Its path is "<cwd>/unknown.idl".
func FromLiteral(text string) *Source {
	path := "unknown.idl"
	if cwd, err := os.Getwd(); err == nil {
		path = filepath.Join(cwd, "unknown.idl")
	}
	return &Source{path: path, code: text}
}

// Path returns the absolute path of the source file.
func (s *Source) Path() string { return s.path }

// Code returns the normalized UTF-8 buffer.
func (s *Source) Code() string { return s.code }

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF32BE = []byte{0x00, 0x00, 0xFE, 0xFF}
	bomUTF32LE = []byte{0xFF, 0xFE, 0x00, 0x00}
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
)

// decode strips a detected BOM and transcodes the remainder to UTF-8.
// Input with no recognized BOM is passed through unmodified when it is
// already valid UTF-8, and is otherwise read as Latin-1 and re-encoded.
func decode(raw []byte) (string, error) {
	switch {
	case hasPrefix(raw, bomUTF8):
		return string(raw[len(bomUTF8):]), nil
	case hasPrefix(raw, bomUTF32BE):
		return decodeUTF32(raw[len(bomUTF32BE):], binary.BigEndian)
	case hasPrefix(raw, bomUTF32LE):
		return decodeUTF32(raw[len(bomUTF32LE):], binary.LittleEndian)
	case hasPrefix(raw, bomUTF16BE):
		return decodeUTF16(raw[len(bomUTF16BE):], binary.BigEndian)
	case hasPrefix(raw, bomUTF16LE):
		return decodeUTF16(raw[len(bomUTF16LE):], binary.LittleEndian)
	default:
		// No BOM: input that is already valid UTF-8 (which includes pure
		// 7-bit ASCII) is kept as-is; otherwise every byte is taken as a
		// Latin-1 code point and re-encoded.
		if utf8.Valid(raw) {
			return string(raw), nil
		}
		return latin1ToUTF8(raw), nil
	}
}

func hasPrefix(data, prefix []byte) bool {
	if len(data) < len(prefix) {
		return false
	}
	for i, b := range prefix {
		if data[i] != b {
			return false
		}
	}
	return true
}

func latin1ToUTF8(raw []byte) string {
	buf := make([]byte, 0, len(raw)*2)
	var tmp [utf8.UTFMax]byte
	for _, b := range raw {
		n := utf8.EncodeRune(tmp[:], rune(b))
		buf = append(buf, tmp[:n]...)
	}
	return string(buf)
}

func decodeUTF16(raw []byte, order binary.ByteOrder) (string, error) {
	if len(raw)%2 != 0 {
		return "", ierrors.New(ierrors.KindEncoding, ierrors.NoPosition, "truncated UTF-16 code unit")
	}
	units := make([]uint16, len(raw)/2)
	for i := range units {
		units[i] = order.Uint16(raw[i*2:])
	}
	runes := utf16.Decode(units)
	buf := make([]byte, 0, len(runes)*utf8.UTFMax)
	var tmp [utf8.UTFMax]byte
	for _, r := range runes {
		if r == utf8.RuneError {
			return "", ierrors.New(ierrors.KindEncoding, ierrors.NoPosition, "invalid UTF-16 sequence")
		}
		n := utf8.EncodeRune(tmp[:], r)
		buf = append(buf, tmp[:n]...)
	}
	return string(buf), nil
}

func decodeUTF32(raw []byte, order binary.ByteOrder) (string, error) {
	if len(raw)%4 != 0 {
		return "", ierrors.New(ierrors.KindEncoding, ierrors.NoPosition, "truncated UTF-32 code unit")
	}
	buf := make([]byte, 0, len(raw))
	var tmp [utf8.UTFMax]byte
	for i := 0; i < len(raw); i += 4 {
		cp := order.Uint32(raw[i:])
		r := rune(cp)
		if cp > utf8.MaxRune || !utf8.ValidRune(r) {
			return "", ierrors.New(ierrors.KindEncoding, ierrors.NoPosition, "invalid UTF-32 code point 0x%X", cp)
		}
		n := utf8.EncodeRune(tmp[:], r)
		buf = append(buf, tmp[:n]...)
	}
	return string(buf), nil
}
