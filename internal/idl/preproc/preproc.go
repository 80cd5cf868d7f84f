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

// Package preproc drives conditional compilation and macro definition
// directives over a token stream, and resolves #include references to
// files on disk. It owns the conditional-frame stack; the lexer and the
// surrounding frontend are responsible for handing it each directive
// line as it is found.
package preproc

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sdv-oss/idlc/internal/collections"
	"github.com/sdv-oss/idlc/internal/idl/env"
	"github.com/sdv-oss/idlc/internal/idl/ierrors"
	"github.com/sdv-oss/idlc/internal/idl/lexer"
	"github.com/sdv-oss/idlc/internal/idl/macro"
)

// MaxIncludeDepth bounds how deeply #include may nest, guarding against
// runaway or accidentally-cyclic include graphs that local cycle
// suppression does not itself catch (e.g. each file including a
// different, ever-deeper generated header).
const MaxIncludeDepth = 48

// frame is one level of the conditional-compilation stack, tracking the
// #if/#ifdef/#ifndef chain it belongs to.
type frame struct {
	parentActive bool // whether the enclosing region was live when this frame opened
	taken        bool // whether this arm is currently the selected one
	done         bool // whether some earlier arm in this chain already matched
	meta         lexer.MetaKind
}

// Preprocessor evaluates conditional-compilation directives and resolves
// macro definitions against a shared Environment, and resolves #include
// targets against the environment's search path.
type Preprocessor struct {
	env          *env.Environment
	stack        []frame
	includeStack []string // absolute paths of files currently open, innermost last
}

// New returns a Preprocessor operating over e. includeStack seeds the
// include-cycle detector with the files already open in the enclosing
// compilation (the top-level source file, plus any #include chain that
// led here).
func New(e *env.Environment, includeStack []string) *Preprocessor {
	return &Preprocessor{env: e, includeStack: append([]string(nil), includeStack...)}
}

// Environment returns the environment this preprocessor mutates.
func (p *Preprocessor) Environment() *env.Environment { return p.env }

// Active reports whether tokens encountered right now belong to a live
// (not preprocessed-out) region of the file.
func (p *Preprocessor) Active() bool {
	for _, f := range p.stack {
		if !f.taken {
			return false
		}
	}
	return true
}

// Finish reports an error if a conditional block was left unterminated
// at end of file.
func (p *Preprocessor) Finish(pos ierrors.Position) error {
	if len(p.stack) != 0 {
		return ierrors.New(ierrors.KindUnbalancedDirective, pos, "unterminated conditional block (missing #endif)")
	}
	return nil
}

// Include describes a resolved #include target the frontend must load
// and recursively process.
type Include struct {
	Path       string
	Suppressed bool // true when the include was skipped as an already-open cycle
}

// readRestOfLineRaw consumes and returns the remainder of the current
// line exactly as written, without running it through any lexer rule
// table. #verbatim's payload is arbitrary backend-specific text that
// must reach the generator unreinterpreted, so it cannot be tokenized
// the way every other directive's operand is.
func readRestOfLineRaw(cur *lexer.Cursor) string {
	var b strings.Builder
	for {
		r, ok := cur.Deref()
		if !ok || r == '\n' {
			break
		}
		b.WriteRune(r)
		cur.Advance(1)
	}
	return b.String()
}

// readVerbatimBlock consumes raw lines, unreinterpreted, up to and
// including the line holding the matching #verbatim_end, and returns the
// lines in between joined back together.
func readVerbatimBlock(cur *lexer.Cursor, pos ierrors.Position) (string, error) {
	var lines []string
	for {
		if cur.AtEOF() {
			return "", ierrors.New(ierrors.KindUnbalancedDirective, pos, "unterminated #verbatim_begin block (missing #verbatim_end)")
		}
		line := readRestOfLineRaw(cur)
		if r, ok := cur.Deref(); ok && r == '\n' {
			cur.Advance(1)
		}
		if strings.TrimSpace(line) == "#verbatim_end" {
			return strings.Join(lines, "\n"), nil
		}
		lines = append(lines, line)
	}
}

// tokenizeRestOfLine lexes everything from cur's current position to the
// end of the directive's logical line (honoring backslash-newline
// continuations via the preprocessor line-continuation rule already
// encoded in the lexer's preprocessor-mode rule table) and returns the
// resulting token texts, discarding whitespace and comments.
func tokenizeRestOfLine(cur *lexer.Cursor) ([]string, error) {
	lx, err := lexer.NewLexer(lexer.ModePreprocessorLine)
	if err != nil {
		return nil, err
	}
	var toks []string
	for {
		if cur.AtEOL() {
			break
		}
		tok, err := lx.Next(cur, lexer.DummyCallback{})
		if err != nil {
			return nil, err
		}
		if tok.IsEOF() {
			break
		}
		if tok.Kind == lexer.KindPunctuator && strings.HasPrefix(tok.Text(), "\\") {
			continue // line continuation
		}
		toks = append(toks, tok.Text())
	}
	return toks, nil
}

// ProcessDirective handles the directive introduced by meta, reading its
// remaining line from cur. For #include it returns a non-nil *Include
// for the frontend to load; for every other directive it returns nil
// and has already applied its full effect to the environment or the
// conditional stack.
func (p *Preprocessor) ProcessDirective(meta lexer.MetaKind, cur *lexer.Cursor, currentDir string) (*Include, error) {
	pos := cur.Pos()
	switch meta {
	case lexer.MetaDefine:
		toks, err := tokenizeRestOfLine(cur)
		if err != nil {
			return nil, err
		}
		if p.Active() {
			return nil, p.define(toks, pos)
		}
		return nil, nil
	case lexer.MetaUndef:
		toks, err := tokenizeRestOfLine(cur)
		if err != nil {
			return nil, err
		}
		if p.Active() && len(toks) > 0 {
			p.env.RemoveDefinition(toks[0])
		}
		return nil, nil
	case lexer.MetaIf:
		toks, err := tokenizeRestOfLine(cur)
		if err != nil {
			return nil, err
		}
		return nil, p.pushIf(toks, pos, meta)
	case lexer.MetaIfdef, lexer.MetaIfndef:
		toks, err := tokenizeRestOfLine(cur)
		if err != nil {
			return nil, err
		}
		if len(toks) != 1 {
			return nil, ierrors.New(ierrors.KindUnbalancedDirective, pos, "%s expects exactly one identifier", metaName(meta))
		}
		defined := p.env.Defined(toks[0])
		if meta == lexer.MetaIfndef {
			defined = !defined
		}
		return nil, p.pushCondition(defined, pos, meta)
	case lexer.MetaElif:
		toks, err := tokenizeRestOfLine(cur)
		if err != nil {
			return nil, err
		}
		return nil, p.elif(toks, pos)
	case lexer.MetaElse:
		return nil, p.elseBranch(pos)
	case lexer.MetaEndif:
		return nil, p.endif(pos)
	case lexer.MetaIncludeLocal, lexer.MetaIncludeGlobal:
		toks, err := tokenizeRestOfLine(cur)
		if err != nil {
			return nil, err
		}
		if !p.Active() {
			return nil, nil
		}
		return p.resolveInclude(toks, pos, currentDir)
	case lexer.MetaPragma:
		return nil, ierrors.New(ierrors.KindUnsupportedDirective, pos, "#pragma is not supported")
	case lexer.MetaVerbatim:
		readRestOfLineRaw(cur)
		return nil, nil
	case lexer.MetaVerbatimBegin:
		_, err := readVerbatimBlock(cur, pos)
		return nil, err
	case lexer.MetaVerbatimEnd:
		return nil, ierrors.New(ierrors.KindUnbalancedDirective, pos, "#verbatim_end without matching #verbatim_begin")
	default:
		return nil, ierrors.New(ierrors.KindUnknownDirective, pos, "unknown preprocessor directive")
	}
}

func metaName(m lexer.MetaKind) string {
	switch m {
	case lexer.MetaDefine:
		return "#define"
	case lexer.MetaUndef:
		return "#undef"
	case lexer.MetaIf:
		return "#if"
	case lexer.MetaIfdef:
		return "#ifdef"
	case lexer.MetaIfndef:
		return "#ifndef"
	case lexer.MetaElif:
		return "#elif"
	case lexer.MetaElse:
		return "#else"
	case lexer.MetaEndif:
		return "#endif"
	case lexer.MetaIncludeLocal, lexer.MetaIncludeGlobal:
		return "#include"
	case lexer.MetaPragma:
		return "#pragma"
	case lexer.MetaVerbatim:
		return "#verbatim"
	case lexer.MetaVerbatimBegin:
		return "#verbatim_begin"
	case lexer.MetaVerbatimEnd:
		return "#verbatim_end"
	default:
		return "#<unknown>"
	}
}

func (p *Preprocessor) define(toks []string, pos ierrors.Position) error {
	if len(toks) == 0 {
		return ierrors.New(ierrors.KindUnbalancedDirective, pos, "#define requires a macro name")
	}
	name := toks[0]
	rest := toks[1:]

	def := macro.Definition{Name: name, Pos: pos}
	if len(rest) > 0 && rest[0] == "(" {
		close := indexOf(rest, ")")
		if close < 0 {
			return ierrors.New(ierrors.KindUnbalancedDirective, pos, "unterminated parameter list in #define %s", name)
		}
		def.FunctionLike = true
		for _, raw := range splitOnCommas(rest[1:close]) {
			if len(raw) == 1 && raw[0] == "..." {
				def.Variadic = true
			}
			if len(raw) > 0 {
				def.Params = append(def.Params, raw[0])
			}
		}
		def.Body = rest[close+1:]
	} else {
		def.Body = rest
	}
	return p.env.Macros().Define(def)
}

func indexOf(toks []string, s string) int {
	for i, t := range toks {
		if t == s {
			return i
		}
	}
	return -1
}

func splitOnCommas(toks []string) [][]string {
	if len(toks) == 0 {
		return nil
	}
	var out [][]string
	var cur []string
	for _, t := range toks {
		if t == "," {
			out = append(out, cur)
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	out = append(out, cur)
	return out
}

func (p *Preprocessor) pushIf(toks []string, pos ierrors.Position, meta lexer.MetaKind) error {
	parentActive := p.Active()
	f := frame{parentActive: parentActive, meta: meta}
	if parentActive {
		v, err := p.evalCondition(toks, pos)
		if err != nil {
			return err
		}
		f.taken = v
		f.done = v
	} else {
		f.done = true
	}
	p.stack = append(p.stack, f)
	return nil
}

func (p *Preprocessor) pushCondition(taken bool, pos ierrors.Position, meta lexer.MetaKind) error {
	parentActive := p.Active()
	f := frame{parentActive: parentActive, meta: meta}
	if parentActive {
		f.taken = taken
		f.done = taken
	} else {
		f.done = true
	}
	p.stack = append(p.stack, f)
	return nil
}

func (p *Preprocessor) evalCondition(toks []string, pos ierrors.Position) (bool, error) {
	expanded, err := macro.ExpandAll(p.env.Macros(), macro.UsedSet{}, toks)
	if err != nil {
		return false, err
	}
	expr, err := ParseExpr(expanded)
	if err != nil {
		return false, err
	}
	v, err := expr.Eval(func(name string) (int64, bool) {
		def, ok := p.env.Macros().Get(name)
		if !ok {
			return 0, false
		}
		if len(def.Body) == 0 {
			return 0, true
		}
		inner, err := ParseExpr(def.Body)
		if err != nil {
			return 0, true
		}
		val, err := inner.Eval(func(string) (int64, bool) { return 0, false })
		if err != nil {
			return 0, true
		}
		return val, true
	})
	if err != nil {
		if ie, ok := err.(*ierrors.Error); ok {
			if ie.Pos == ierrors.NoPosition {
				ie.Pos = pos
			}
			return false, ie
		}
		return false, ierrors.Wrap(ierrors.KindInternal, pos, err, "failed to evaluate conditional expression")
	}
	return v != 0, nil
}

func (p *Preprocessor) elif(toks []string, pos ierrors.Position) error {
	if len(p.stack) == 0 {
		return ierrors.New(ierrors.KindUnbalancedDirective, pos, "#elif without matching #if")
	}
	top := &p.stack[len(p.stack)-1]
	if !top.parentActive {
		top.taken = false
		return nil
	}
	if top.done {
		top.taken = false
		return nil
	}
	v, err := p.evalCondition(toks, pos)
	if err != nil {
		return err
	}
	top.taken = v
	top.done = v
	return nil
}

func (p *Preprocessor) elseBranch(pos ierrors.Position) error {
	if len(p.stack) == 0 {
		return ierrors.New(ierrors.KindUnbalancedDirective, pos, "#else without matching #if")
	}
	top := &p.stack[len(p.stack)-1]
	if !top.parentActive || top.done {
		top.taken = false
		return nil
	}
	top.taken = true
	top.done = true
	return nil
}

func (p *Preprocessor) endif(pos ierrors.Position) error {
	if len(p.stack) == 0 {
		return ierrors.New(ierrors.KindUnbalancedDirective, pos, "#endif without matching #if")
	}
	p.stack = p.stack[:len(p.stack)-1]
	return nil
}

// resolveInclude parses an #include operand (either "local.idl" or
// <system.idl>) and searches for it: a quoted path is tried relative to
// the including file's directory first, then the environment's include
// directories, in order; a bracketed path searches only the include
// directories. An absolute operand bypasses search entirely. A target
// already open on the current include chain is reported as Suppressed
// rather than as an error, so a benign include-guard-free cycle does not
// abort compilation.
func (p *Preprocessor) resolveInclude(toks []string, pos ierrors.Position, currentDir string) (*Include, error) {
	if len(p.includeStack) >= MaxIncludeDepth {
		return nil, ierrors.New(ierrors.KindIncludeNotFound, pos, "include depth exceeds %d, probable include cycle", MaxIncludeDepth)
	}
	if len(toks) == 0 {
		return nil, ierrors.New(ierrors.KindUnbalancedDirective, pos, "#include requires a file name")
	}
	spec := strings.Join(toks, "")
	systemPath := strings.HasPrefix(spec, "<") && strings.HasSuffix(spec, ">")
	quoted := strings.HasPrefix(spec, `"`) && strings.HasSuffix(spec, `"`)
	if !systemPath && !quoted {
		return nil, ierrors.New(ierrors.KindLex, pos, "malformed #include operand %q", spec)
	}
	name := spec[1 : len(spec)-1]

	var candidates []string
	if filepath.IsAbs(name) {
		candidates = []string{name}
	} else {
		if !systemPath {
			candidates = append(candidates, filepath.Join(currentDir, name))
		}
		candidates = append(candidates, collections.MapSlice(p.env.IncludeDirs(), func(dir string) string {
			return filepath.Join(dir, name)
		})...)
	}

	for _, cand := range candidates {
		abs, err := filepath.Abs(cand)
		if err != nil {
			continue
		}
		if _, err := os.Stat(abs); err != nil {
			continue
		}
		if collections.ToSet(p.includeStack).Contains(abs) {
			return &Include{Path: abs, Suppressed: true}, nil
		}
		return &Include{Path: abs}, nil
	}
	return nil, ierrors.New(ierrors.KindIncludeNotFound, pos, "cannot find include file %q", name)
}
