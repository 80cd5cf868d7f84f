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

// Package frontend wires the source loader, cursor, lexer, macro
// expander, and preprocessor together into the single Compile entry
// point the command line driver and tests call.
package frontend

import (
	"path/filepath"
	"strings"

	"github.com/sdv-oss/idlc/internal/idl/env"
	"github.com/sdv-oss/idlc/internal/idl/ierrors"
	"github.com/sdv-oss/idlc/internal/idl/lexer"
	"github.com/sdv-oss/idlc/internal/idl/macro"
	"github.com/sdv-oss/idlc/internal/idl/preproc"
	"github.com/sdv-oss/idlc/internal/idl/sink"
	"github.com/sdv-oss/idlc/internal/idl/source"
)

// keywordExtensionsFromFlags bridges the environment's extension-flag
// surface to the lexer's own KeywordExtensions type, keeping the lexer
// package free of any dependency on env.
func keywordExtensionsFromFlags(f env.Flags) lexer.KeywordExtensions {
	return lexer.KeywordExtensions{
		CaseSensitive: f.CaseSensitive,
		UnicodeChar:   f.UnicodeChar,
		PointerType:   f.PointerType,
		InterfaceType: f.InterfaceType,
		ExceptionType: f.ExceptionType,
	}
}

// Compile tokenizes path and every file it transitively #includes,
// expanding macros and resolving conditional compilation along the way,
// and feeds the resulting plain token stream to out in order.
func Compile(path string, e *env.Environment, out sink.TokenSink) error {
	src, err := source.Load(path)
	if err != nil {
		return err
	}
	return compileSource(src, e, out, nil)
}

// compileSource is the recursive worker: includeStack holds the
// absolute paths of files currently open, innermost last, so nested
// #include resolution can both detect cycles and search relative to the
// right directory.
func compileSource(src *source.Source, e *env.Environment, out sink.TokenSink, includeStack []string) error {
	if err := out.EnterFile(src.Path()); err != nil {
		return err
	}
	defer out.LeaveFile(src.Path())

	includeStack = append(includeStack, src.Path())
	dir := filepath.Dir(src.Path())

	lx, err := lexer.NewLexer(lexer.ModeIDL)
	if err != nil {
		return err
	}
	if err := lx.SetKeywordExtensions(keywordExtensionsFromFlags(e.ExtensionFlags())); err != nil {
		return err
	}
	cur := lexer.NewCursor(src)
	pp := preproc.New(e, includeStack)

	cb := &frontendCallback{pp: pp, cur: cur, dir: dir, env: e, out: out, includeStack: includeStack}
	used := macro.UsedSet{}
	for {
		wasExpanding := cur.InExpansion()
		tok, err := lx.Next(cur, cb)
		if err != nil {
			return err
		}
		if tok.IsEOF() {
			break
		}
		if !pp.Active() {
			continue
		}
		if !wasExpanding {
			used = macro.UsedSet{}
		}
		didExpand, nextUsed, err := expandToken(tok, pp, cur, lx, used)
		if err != nil {
			return err
		}
		if didExpand {
			used = nextUsed
			continue
		}
		if err := out.Token(tok); err != nil {
			return err
		}
	}
	return pp.Finish(cur.Pos())
}

// expandToken runs the macro expander over a single identifier token
// when it names a currently-defined macro, consuming a following
// argument list from cur for function-like macros, and prepends the
// expansion onto cur so it is re-lexed exactly like source text:
// expanded literals, keywords and punctuators all receive their real
// Kind instead of being force-tagged as identifiers. The returned
// UsedSet guards against a macro re-expanding itself while its own
// expansion is still being fed back through the cursor.
func expandToken(tok lexer.Token, pp *preproc.Preprocessor, cur *lexer.Cursor, lx *lexer.Lexer, used macro.UsedSet) (bool, macro.UsedSet, error) {
	if tok.Kind != lexer.KindIdentifier {
		return false, used, nil
	}
	def, ok := pp.Environment().Macros().Get(tok.Text())
	if !ok || used.Contains(tok.Text()) {
		return false, used, nil
	}

	var args [][]string
	if def.FunctionLike {
		r, ok := cur.Deref()
		if !ok || r != '(' {
			return false, used, nil
		}
		cur.Advance(1)
		toks, err := readArgList(cur, lx)
		if err != nil {
			return false, used, err
		}
		args = toks
	}

	expanded, didExpand, err := macro.TestAndExpand(pp.Environment().Macros(), used, tok.Text(), args)
	if err != nil {
		return false, used, err
	}
	if !didExpand {
		return false, used, nil
	}

	cur.Prepend(strings.Join(expanded, " "))
	return true, used.With(tok.Text()), nil
}

// readArgList consumes a function-like macro's argument list from cur,
// starting immediately after the opening '(' (already consumed by the
// caller), and returns each argument's raw token texts.
func readArgList(cur *lexer.Cursor, lx *lexer.Lexer) ([][]string, error) {
	var args [][]string
	var current []string
	depth := 0
	for {
		if cur.AtEOF() {
			return nil, ierrors.New(ierrors.KindUnbalancedDirective, cur.Pos(), "unterminated macro argument list")
		}
		tok, err := lx.Next(cur, lexer.DummyCallback{})
		if err != nil {
			return nil, err
		}
		switch tok.Text() {
		case "(":
			depth++
			current = append(current, tok.Text())
		case ")":
			if depth == 0 {
				args = append(args, current)
				return args, nil
			}
			depth--
			current = append(current, tok.Text())
		case ",":
			if depth == 0 {
				args = append(args, current)
				current = nil
			} else {
				current = append(current, tok.Text())
			}
		default:
			current = append(current, tok.Text())
		}
	}
}

// frontendCallback routes lexer trivia: whitespace and comments are
// dropped, and directive lines are handed to the preprocessor. A
// resolved #include target is compiled recursively on the spot, so an
// included file's macro and conditional-compilation effects are visible
// to whatever directive follows it in the including file.
type frontendCallback struct {
	pp           *preproc.Preprocessor
	cur          *lexer.Cursor
	dir          string
	env          *env.Environment
	out          sink.TokenSink
	includeStack []string
}

func (frontendCallback) InsertWhitespace(lexer.Token) {}
func (frontendCallback) InsertComment(lexer.Token)    {}

func (fc *frontendCallback) ProcessPreprocDirective(tok lexer.Token) error {
	inc, err := fc.pp.ProcessDirective(tok.Meta, fc.cur, fc.dir)
	if err != nil {
		return err
	}
	if inc == nil || inc.Suppressed {
		return nil
	}
	incSrc, err := source.Load(inc.Path)
	if err != nil {
		return err
	}
	return compileSource(incSrc, fc.env, fc.out, fc.includeStack)
}
