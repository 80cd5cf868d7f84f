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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdv-oss/idlc/internal/idl/source"
)

func lexAll(t *testing.T, code string) ([]Token, *StoreCallback) {
	t.Helper()
	lx, err := NewLexer(ModeIDL)
	require.NoError(t, err)
	cur := NewCursor(source.FromLiteral(code))
	cb := &StoreCallback{}
	var toks []Token
	for {
		tok, err := lx.Next(cur, cb)
		require.NoError(t, err)
		if tok.IsEOF() {
			break
		}
		toks = append(toks, tok)
	}
	return toks, cb
}

func TestLexerBasicTokens(t *testing.T) {
	toks, _ := lexAll(t, `module m { long x; };`)
	var kinds []TokenKind
	var texts []string
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
		texts = append(texts, tok.Text())
	}
	assert.Equal(t, []string{"module", "m", "{", "long", "x", ";", "}", ";"}, texts)
	assert.Equal(t, KindKeyword, kinds[0])
	assert.Equal(t, KindIdentifier, kinds[1])
	assert.Equal(t, KindPunctuator, kinds[2])
	assert.Equal(t, KindKeyword, kinds[3])
}

func TestLexerKeywordsRequireExactCaseByDefault(t *testing.T) {
	toks, _ := lexAll(t, `MODULE m {};`)
	require.NotEmpty(t, toks)
	assert.Equal(t, KindIdentifier, toks[0].Kind)
}

func TestLexerKeywordExactCaseAlwaysClassifies(t *testing.T) {
	toks, _ := lexAll(t, `module m {};`)
	require.NotEmpty(t, toks)
	assert.Equal(t, KindKeyword, toks[0].Kind)
}

func TestLexerCaseInsensitiveModeCollidesOnNearMiss(t *testing.T) {
	lx, err := NewLexer(ModeIDL)
	require.NoError(t, err)
	require.NoError(t, lx.SetKeywordExtensions(KeywordExtensions{}))
	cur := NewCursor(source.FromLiteral("MODULE m {};"))
	_, err = lx.Next(cur, DummyCallback{})
	require.Error(t, err)
}

func TestLexerCaseInsensitiveModeStillClassifiesExactCase(t *testing.T) {
	lx, err := NewLexer(ModeIDL)
	require.NoError(t, err)
	require.NoError(t, lx.SetKeywordExtensions(KeywordExtensions{}))
	cur := NewCursor(source.FromLiteral("module m {};"))
	tok, err := lx.Next(cur, DummyCallback{})
	require.NoError(t, err)
	assert.Equal(t, KindKeyword, tok.Kind)
}

func TestLexerLiteralClassification(t *testing.T) {
	cases := []struct {
		name string
		code string
		want LiteralKind
	}{
		{"decimal", "42", LitInteger | LitDecimal},
		{"hex", "0x2A", LitInteger | LitHex},
		{"binary", "0b101010", LitInteger | LitBinary},
		{"octal", "052", LitInteger | LitOctal},
		{"float", "3.14", LitFloat},
		{"fixed", "3.14d", LitFixedPoint},
		{"string", `"hi"`, LitString | LitASCII},
		{"char", `'a'`, LitChar | LitASCII},
		{"utf8 string", `u8"hi"`, LitString | LitUTF8},
		{"utf16 string", `u"hi"`, LitString | LitUTF16},
		{"utf32 string", `U"hi"`, LitString | LitUTF32},
		{"wide string", `L"hi"`, LitString | LitWide},
		{"wide char", `L'a'`, LitChar | LitWide},
		{"raw string", `R"(hi)"`, LitString | LitRaw},
		{"utf8 raw string", `u8R"(hi)"`, LitString | LitUTF8 | LitRaw},
		{"bool upper", "TRUE", LitBool},
		{"bool lower", "true", LitBool},
		{"bool false lower", "false", LitBool},
		{"nullptr", "nullptr", LitNull},
		{"NULL", "NULL", LitNull},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			toks, _ := lexAll(t, tc.code)
			require.Len(t, toks, 1)
			assert.Equal(t, tc.want, toks[0].LiteralKind)
		})
	}
}

func TestLexerIntegerValueDecoding(t *testing.T) {
	toks, _ := lexAll(t, "0x2A")
	v, err := toks[0].Value()
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}

func TestLexerCommentsRoutedToCallback(t *testing.T) {
	toks, cb := lexAll(t, "// a comment\nmodule m {};")
	assert.Len(t, cb.Comments, 1)
	assert.Equal(t, "// a comment", cb.Comments[0].Text())
	assert.Equal(t, "module", toks[0].Text())
}

func TestLexerDirectiveRoutedToCallback(t *testing.T) {
	toks, cb := lexAll(t, "#define FOO 1\nmodule m {};")
	require.Len(t, cb.Directives, 1)
	assert.Equal(t, MetaDefine, cb.Directives[0].Meta)
	assert.Equal(t, "module", toks[0].Text())
}

// TestLexerRoundTripsSourceText checks that every token whose text still
// lives in the original source buffer reports a span that, sliced out of
// that buffer, equals its decoded Text() exactly.
func TestLexerRoundTripsSourceText(t *testing.T) {
	code := `module m { long x; }; // trailing comment`
	lx, err := NewLexer(ModeIDL)
	require.NoError(t, err)
	cur := NewCursor(source.FromLiteral(code))
	cb := &StoreCallback{}
	for {
		tok, err := lx.Next(cur, cb)
		require.NoError(t, err)
		if tok.IsEOF() {
			break
		}
		if tok.origin != originSource {
			continue
		}
		assert.Equal(t, code[tok.start:tok.start+tok.length], tok.Text())
	}
}

// TestLexerPositionMonotonic is the front-end's position-monotonicity
// invariant: token positions never go backwards and line numbers only
// advance on newlines actually present in the source buffer.
func TestLexerPositionMonotonic(t *testing.T) {
	toks, _ := lexAll(t, "module m {\n  long x;\n};")
	var lastLine, lastCol int
	for _, tok := range toks {
		p := tok.Pos()
		assert.True(t, p.Line > lastLine || (p.Line == lastLine && p.Column >= lastCol))
		lastLine, lastCol = p.Line, p.Column
	}
}

func TestLexerUnrecognizedCharacterIsLexError(t *testing.T) {
	lx, err := NewLexer(ModeIDL)
	require.NoError(t, err)
	cur := NewCursor(source.FromLiteral("$"))
	_, err = lx.Next(cur, DummyCallback{})
	require.Error(t, err)
}

func TestNewLexerRejectsColldingExtraKeyword(t *testing.T) {
	_, err := NewLexer(ModeIDL, "MODULE")
	require.Error(t, err)
}
