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

package lexer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sdv-oss/idlc/internal/idl/ierrors"
)

// TokenKind classifies a Token at the coarsest level the lexer assigns.
type TokenKind int

const (
	KindUnknown TokenKind = iota
	KindIdentifier
	KindKeyword
	KindLiteral
	KindPunctuator
	KindDirective // a '#'-introduced directive keyword; the preprocessor reads the rest of its line
	KindComment
	KindWhitespace
	KindEOF
)

func (k TokenKind) String() string {
	switch k {
	case KindIdentifier:
		return "identifier"
	case KindKeyword:
		return "keyword"
	case KindLiteral:
		return "literal"
	case KindPunctuator:
		return "punctuator"
	case KindDirective:
		return "directive"
	case KindComment:
		return "comment"
	case KindWhitespace:
		return "whitespace"
	case KindEOF:
		return "eof"
	default:
		return "unknown"
	}
}

// LiteralKind further classifies a KindLiteral token. Bit flags let a
// single literal be tagged along more than one axis (e.g. IsUnsigned and
// IsLongLong together).
type LiteralKind uint32

const (
	LitNone LiteralKind = 0

	LitInteger LiteralKind = 1 << iota
	LitFloat
	LitFixedPoint
	LitChar
	LitCharSequence
	LitString
	LitBool
	LitNull

	LitSigned
	LitUnsigned
	LitLong
	LitLongLong

	LitDecimal
	LitHex
	LitOctal
	LitBinary

	LitASCII
	LitUTF8
	LitUTF16
	LitUTF32
	LitWide
	LitRaw
)

func (k LiteralKind) has(bit LiteralKind) bool { return k&bit != 0 }

func (k LiteralKind) IsInteger() bool      { return k.has(LitInteger) }
func (k LiteralKind) IsFloat() bool        { return k.has(LitFloat) }
func (k LiteralKind) IsFixedPoint() bool   { return k.has(LitFixedPoint) }
func (k LiteralKind) IsChar() bool         { return k.has(LitChar) }
func (k LiteralKind) IsCharSequence() bool { return k.has(LitCharSequence) }
func (k LiteralKind) IsString() bool       { return k.has(LitString) }
func (k LiteralKind) IsBool() bool         { return k.has(LitBool) }
func (k LiteralKind) IsNull() bool         { return k.has(LitNull) }
func (k LiteralKind) IsSigned() bool       { return k.has(LitSigned) }
func (k LiteralKind) IsUnsigned() bool     { return k.has(LitUnsigned) }
func (k LiteralKind) IsLong() bool         { return k.has(LitLong) }
func (k LiteralKind) IsLongLong() bool     { return k.has(LitLongLong) }
func (k LiteralKind) IsDec() bool          { return k.has(LitDecimal) }
func (k LiteralKind) IsHex() bool          { return k.has(LitHex) }
func (k LiteralKind) IsOct() bool          { return k.has(LitOctal) }
func (k LiteralKind) IsBin() bool          { return k.has(LitBinary) }
func (k LiteralKind) IsASCII() bool        { return k.has(LitASCII) }
func (k LiteralKind) IsUTF8() bool         { return k.has(LitUTF8) }
func (k LiteralKind) IsUTF16() bool        { return k.has(LitUTF16) }
func (k LiteralKind) IsUTF32() bool        { return k.has(LitUTF32) }
func (k LiteralKind) IsWide() bool         { return k.has(LitWide) }
func (k LiteralKind) IsRaw() bool          { return k.has(LitRaw) }
func (k LiteralKind) IsLiteral() bool      { return k != LitNone }

// MetaKind tags a directive token with the preprocessing construct it
// opens, so the preprocessor does not have to re-lex the directive name.
type MetaKind int

const (
	MetaNone MetaKind = iota
	MetaDefine
	MetaUndef
	MetaIf
	MetaIfdef
	MetaIfndef
	MetaElif
	MetaElse
	MetaEndif
	MetaIncludeLocal  // #include "local.idl"
	MetaIncludeGlobal // #include <system.idl>
	MetaPragma
	MetaVerbatim
	MetaVerbatimBegin
	MetaVerbatimEnd
	MetaUnknown
)

type tokenOrigin int

const (
	originSource tokenOrigin = iota
	originChunk
)

// Token is a lexed unit of text. Its backing text is either a span of the
// originating Source's buffer, or an index into the owning Cursor's chunk
// table when the span was read from a now-drained prepended buffer.
type Token struct {
	Kind        TokenKind
	LiteralKind LiteralKind
	Meta        MetaKind

	pos       Position
	ctx       *Cursor
	startMark mark

	origin   tokenOrigin
	start    int // valid when origin == originSource
	length   int // valid when origin == originSource
	chunkIdx int // valid when origin == originChunk

	text   string
	cached bool
}

// Pos returns the position of the first rune of the token.
func (t Token) Pos() Position { return t.pos }

// Text returns the token's literal source text, decoding it lazily from
// whichever backing store holds it.
func (t *Token) Text() string {
	if t.cached {
		return t.text
	}
	switch t.origin {
	case originChunk:
		t.text = t.ctx.chunkText(t.chunkIdx)
	default:
		end := t.start + t.length
		if end > len(t.ctx.code) {
			end = len(t.ctx.code)
		}
		t.text = t.ctx.code[t.start:end]
	}
	t.cached = true
	return t.text
}

// IsEOF reports whether this token marks end of input.
func (t Token) IsEOF() bool { return t.Kind == KindEOF }

// Value decodes a literal token into a Go value: integers become int64,
// or uint64 when tagged unsigned or too large for int64 (no narrower
// integer type is ever chosen), floats become float64, fixed-point keeps
// its decimal string form (exactness matters more than a machine float),
// chars and strings stay as their unescaped Go string, and bool/null
// return their trivial Go values.
func (t *Token) Value() (any, error) {
	if !t.LiteralKind.IsLiteral() {
		return nil, ierrors.New(ierrors.KindInternal, t.pos, "Value called on non-literal token")
	}
	text := t.Text()
	switch {
	case t.LiteralKind.IsBool():
		return strings.EqualFold(text, "true"), nil
	case t.LiteralKind.IsNull():
		return nil, nil
	case t.LiteralKind.IsInteger():
		return decodeInteger(text, t.LiteralKind, t.pos)
	case t.LiteralKind.IsFloat():
		v, err := strconv.ParseFloat(stripFloatSuffix(text), 64)
		if err != nil || math.IsInf(v, 0) {
			return nil, ierrors.New(ierrors.KindRange, t.pos, "float literal %q out of range", text)
		}
		return v, nil
	case t.LiteralKind.IsFixedPoint():
		return strings.TrimSuffix(strings.TrimSuffix(text, "D"), "d"), nil
	case t.LiteralKind.IsChar(), t.LiteralKind.IsCharSequence(), t.LiteralKind.IsString():
		return unescapeLiteral(text)
	default:
		return nil, ierrors.New(ierrors.KindInternal, t.pos, "unrecognized literal kind for %q", text)
	}
}

func stripFloatSuffix(s string) string {
	if n := len(s); n > 0 {
		switch s[n-1] {
		case 'f', 'F', 'l', 'L':
			return s[:n-1]
		}
	}
	return s
}

func decodeInteger(text string, lk LiteralKind, pos Position) (any, error) {
	base := 10
	clean := text
	switch {
	case lk.IsHex():
		base = 16
		clean = strings.TrimPrefix(strings.TrimPrefix(clean, "0x"), "0X")
	case lk.IsBin():
		base = 2
		clean = strings.TrimPrefix(strings.TrimPrefix(clean, "0b"), "0B")
	case lk.IsOct():
		base = 8
		clean = strings.TrimPrefix(clean, "0")
		if clean == "" {
			clean = "0"
		}
	}
	clean = strings.TrimRight(clean, "uUlL")
	if clean == "" {
		clean = "0"
	}
	if lk.IsUnsigned() {
		v, err := strconv.ParseUint(clean, base, 64)
		if err != nil {
			return nil, ierrors.New(ierrors.KindRange, pos, "integer literal %q out of range", text)
		}
		return v, nil
	}
	v, err := strconv.ParseInt(clean, base, 64)
	if err != nil {
		uv, uerr := strconv.ParseUint(clean, base, 64)
		if uerr != nil {
			return nil, ierrors.New(ierrors.KindRange, pos, "integer literal %q out of range", text)
		}
		return uv, nil
	}
	return v, nil
}

func unescapeLiteral(text string) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(text) {
		c := text[i]
		if c != '\\' {
			b.WriteByte(c)
			i++
			continue
		}
		i++
		if i >= len(text) {
			return "", fmt.Errorf("dangling escape in literal %q", text)
		}
		switch e := text[i]; e {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '0':
			b.WriteByte(0)
		case '\\', '\'', '"':
			b.WriteByte(e)
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		default:
			b.WriteByte(e)
		}
		i++
	}
	return b.String(), nil
}
