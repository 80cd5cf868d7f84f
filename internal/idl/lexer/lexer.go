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
	"strings"

	"github.com/sdv-oss/idlc/internal/idl/ierrors"
)

// Mode selects which rule table the lexer scans with. ModeIDL tokenizes
// ordinary IDL-4.2 text and recognizes a directive's '#keyword' as a
// KindDirective token; ModePreprocessorLine tokenizes the remainder of a
// directive line for the preprocessor's own expression grammar.
type Mode int

const (
	ModeIDL Mode = iota
	ModePreprocessorLine
)

// Callback lets a caller observe trivia the parser layer does not need to
// see token-by-token, mirroring the reference compiler's lexer callback
// interface: whitespace and comments are reported for formatting-
// preserving tools, and directive lines are routed to the preprocessor
// instead of being handed back as ordinary tokens.
type Callback interface {
	InsertWhitespace(tok Token)
	InsertComment(tok Token)
	ProcessPreprocDirective(tok Token) error
}

// DummyCallback discards whitespace and comments and rejects directives,
// for callers that only want plain IDL token streams (e.g. tests).
type DummyCallback struct{}

func (DummyCallback) InsertWhitespace(Token) {}
func (DummyCallback) InsertComment(Token)    {}
func (DummyCallback) ProcessPreprocDirective(tok Token) error {
	return ierrors.New(ierrors.KindUnsupportedDirective, tok.Pos(), "directive not accepted in this context: %q", tok.Text())
}

// StoreCallback records whitespace, comments, and directives it sees, for
// callers building a lossless token stream.
type StoreCallback struct {
	Whitespace []Token
	Comments   []Token
	Directives []Token
}

func (s *StoreCallback) InsertWhitespace(tok Token) { s.Whitespace = append(s.Whitespace, tok) }
func (s *StoreCallback) InsertComment(tok Token)    { s.Comments = append(s.Comments, tok) }
func (s *StoreCallback) ProcessPreprocDirective(tok Token) error {
	s.Directives = append(s.Directives, tok)
	return nil
}

// KeywordExtensions selects which of the front end's optional keyword
// families are recognized, and whether reserved-word matching requires
// exact case. Each field defaults to true (DefaultKeywordExtensions), and
// a strict build turns every field off to fall back to bare IDL-4.2.
type KeywordExtensions struct {
	CaseSensitive bool // require exact case for a reserved word to classify as KindKeyword
	UnicodeChar   bool // char16, char32, u8string, u16string, u32string
	PointerType   bool // pointer, null
	InterfaceType bool // interface_id, interface_t
	ExceptionType bool // exception_id
}

// DefaultKeywordExtensions returns every extension enabled, the lexer's
// out-of-the-box behavior.
func DefaultKeywordExtensions() KeywordExtensions {
	return KeywordExtensions{CaseSensitive: true, UnicodeChar: true, PointerType: true, InterfaceType: true, ExceptionType: true}
}

// Lexer tokenizes a Cursor's text according to Mode, dispatching trivia
// through a Callback.
type Lexer struct {
	mode Mode

	caseSensitive bool
	extraKeywords []string

	// keywordsExact holds every recognized keyword spelled exactly as the
	// grammar defines it; an exact match always classifies as
	// KindKeyword. keywordsFold holds the same set lowercased, consulted
	// only when caseSensitive is false to detect a near-miss spelling.
	keywordsExact map[string]struct{}
	keywordsFold  map[string]struct{}
}

// NewLexer returns a Lexer for mode with the default keyword extensions,
// seeded with the IDL-4.2 keyword set plus any extraKeywords (e.g.
// code-generation pragmas recognized only by a particular backend).
// extraKeywords that collide with an existing keyword raise
// KindCaseCollision immediately.
func NewLexer(mode Mode, extraKeywords ...string) (*Lexer, error) {
	lx := &Lexer{mode: mode, extraKeywords: append([]string(nil), extraKeywords...)}
	if err := lx.SetKeywordExtensions(DefaultKeywordExtensions()); err != nil {
		return nil, err
	}
	return lx, nil
}

// SetKeywordExtensions rebuilds the lexer's keyword tables from ext,
// gating each optional keyword family behind its corresponding flag and
// recording whether reserved-word classification requires exact case.
// It can be called again on an already-constructed Lexer to change its
// extension set mid-stream (e.g. per compilation unit).
func (lx *Lexer) SetKeywordExtensions(ext KeywordExtensions) error {
	lx.caseSensitive = ext.CaseSensitive

	tables := []map[string]struct{}{idlKeywords}
	if ext.UnicodeChar {
		tables = append(tables, unicodeExtensionKeywords)
	}
	if ext.PointerType {
		tables = append(tables, pointerExtensionKeywords)
	}
	if ext.InterfaceType {
		tables = append(tables, interfaceExtensionKeywords)
	}
	if ext.ExceptionType {
		tables = append(tables, exceptionExtensionKeywords)
	}

	exact := make(map[string]struct{})
	fold := make(map[string]struct{})
	for _, table := range tables {
		for k := range table {
			exact[k] = struct{}{}
			fold[strings.ToLower(k)] = struct{}{}
		}
	}
	for _, k := range lx.extraKeywords {
		if _, exists := exact[k]; exists {
			return ierrors.New(ierrors.KindCaseCollision, ierrors.NoPosition, "extra keyword %q collides with an existing reserved word", k)
		}
		if _, exists := fold[strings.ToLower(k)]; exists {
			return ierrors.New(ierrors.KindCaseCollision, ierrors.NoPosition, "extra keyword %q collides with an existing reserved word", k)
		}
		exact[k] = struct{}{}
		fold[strings.ToLower(k)] = struct{}{}
	}

	lx.keywordsExact = exact
	lx.keywordsFold = fold
	return nil
}

func (lx *Lexer) ruleTable() []matchingRule {
	if lx.mode == ModePreprocessorLine {
		return preprocLineRules
	}
	return matchingRules
}

// Next scans and returns the next significant token from cur, routing
// whitespace, comments, and directive lines through cb rather than
// returning them directly. It loops internally until a non-trivia token
// or EOF is produced.
func (lx *Lexer) Next(cur *Cursor, cb Callback) (Token, error) {
	for {
		if cur.AtEOF() {
			return cur.Location(KindEOF), nil
		}
		tok, err := lx.scanOne(cur)
		if err != nil {
			return Token{}, err
		}
		switch tok.Kind {
		case KindWhitespace:
			cb.InsertWhitespace(tok)
			continue
		case KindComment:
			cb.InsertComment(tok)
			continue
		case KindDirective:
			if lx.mode == ModeIDL {
				line := tok.Pos().Line
				if err := cb.ProcessPreprocDirective(tok); err != nil {
					return Token{}, err
				}
				// Whatever the callback left unread on the directive's own
				// line is discarded, up to (not including) its newline.
				for cur.Pos().Line == line {
					if r, ok := cur.Deref(); !ok || r == '\n' {
						break
					}
					cur.Advance(1)
				}
				continue
			}
			return tok, nil
		default:
			return lx.classify(tok)
		}
	}
}

// classify promotes a generic identifier token to KindKeyword when its
// text is a reserved word. An exact-case match always promotes,
// regardless of the case_sensitive extension flag. Short of an exact
// match, a spelling that differs from a reserved word only in case is a
// plain identifier when case_sensitive is on (the default: case matters,
// so a different casing is legitimately a different name), or a
// KindCaseCollision error when case_sensitive is off (the grammar folds
// case for reserved words, so an inconsistent spelling is ambiguous
// rather than a deliberate distinct identifier).
func (lx *Lexer) classify(tok Token) (Token, error) {
	if tok.Kind != KindIdentifier {
		return tok, nil
	}
	text := tok.Text()
	if _, ok := lx.keywordsExact[text]; ok {
		tok.Kind = KindKeyword
		return tok, nil
	}
	if !lx.caseSensitive {
		if _, ok := lx.keywordsFold[strings.ToLower(text)]; ok {
			return Token{}, ierrors.New(ierrors.KindCaseCollision, tok.Pos(), "%q differs only in case from a reserved word", text)
		}
	}
	return tok, nil
}

// lookaheadBytes bounds how much of the cursor's remaining text a single
// scan considers; IDL-4.2 tokens (including block comments split across
// reasonable line counts) comfortably fit within it, and an unterminated
// construct is reported as a lex error rather than scanning unboundedly.
const lookaheadBytes = 1 << 16

// scanOne finds the best matching rule at the cursor's current position
// and advances the cursor across it, returning one raw (unclassified)
// token.
func (lx *Lexer) scanOne(cur *Cursor) (Token, error) {
	data := cur.window(lookaheadBytes)
	if len(data) == 0 {
		return cur.Location(KindEOF), nil
	}

	var best matchingResult
	found := false
	for _, rule := range lx.ruleTable() {
		res, ok := rule.match(data, 0)
		if !ok || res.beginIndex != 0 {
			continue
		}
		if !found || res.Less(best) {
			best = res
			found = true
		}
	}
	if len(data) >= 2 && data[0] == '/' && data[1] == '*' && (!found || best.rule.kind != KindComment) {
		return Token{}, ierrors.New(ierrors.KindLex, cur.Pos(), "unterminated block comment")
	}
	if !found {
		pos := cur.Pos()
		r, _ := cur.Deref()
		return Token{}, ierrors.New(ierrors.KindLex, pos, "unrecognized character %q", r)
	}

	start := cur.Location(best.rule.kind)
	start.Meta = best.rule.meta
	runeCount := len([]rune(string(data[best.beginIndex:best.endIndex])))
	cur.Advance(runeCount)
	cur.UpdateLocation(&start, best.rule.lit)
	start.Kind = best.rule.kind
	return start, nil
}
