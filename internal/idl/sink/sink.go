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

// Package sink defines the downstream consumer interface the front end
// drives once conditional compilation and macro expansion have produced
// a plain token stream: a parser or entity builder that turns tokens
// into an IDL abstract syntax tree. This front end ships the interface
// and two reference implementations of it (counting and text-collecting)
// since a full grammar-driven parser is outside this front end's scope.
package sink

import "github.com/sdv-oss/idlc/internal/idl/lexer"

// TokenSink receives the fully-preprocessed token stream of one
// compilation unit, in order, with included files already spliced in at
// their #include points.
type TokenSink interface {
	// Token is called once per significant (non-trivia) token.
	Token(tok lexer.Token) error
	// EnterFile is called when a new file begins contributing tokens,
	// either the top-level source or a #include target.
	EnterFile(path string) error
	// LeaveFile is called when a file's tokens are exhausted and control
	// returns to its includer.
	LeaveFile(path string) error
}

// Logger is the narrow logging surface the front end depends on,
// satisfied directly by the standard library's *log.Logger.
type Logger interface {
	Printf(format string, args ...any)
}

// CountingSink tallies tokens per kind, useful for smoke-testing a
// compilation without building a full AST.
type CountingSink struct {
	Total int
	Kinds map[lexer.TokenKind]int
	log   Logger
}

// NewCountingSink returns a CountingSink that also reports each entered
// and left file to log, if non-nil.
func NewCountingSink(log Logger) *CountingSink {
	return &CountingSink{Kinds: make(map[lexer.TokenKind]int), log: log}
}

func (c *CountingSink) Token(tok lexer.Token) error {
	c.Total++
	c.Kinds[tok.Kind]++
	return nil
}

func (c *CountingSink) EnterFile(path string) error {
	if c.log != nil {
		c.log.Printf("entering %s", path)
	}
	return nil
}

func (c *CountingSink) LeaveFile(path string) error {
	if c.log != nil {
		c.log.Printf("leaving %s", path)
	}
	return nil
}

// CollectingSink accumulates every token's text in order, for tests and
// for tools that just want a preprocessed token dump.
type CollectingSink struct {
	Tokens []lexer.Token
}

func (c *CollectingSink) Token(tok lexer.Token) error {
	c.Tokens = append(c.Tokens, tok)
	return nil
}

func (c *CollectingSink) EnterFile(string) error { return nil }
func (c *CollectingSink) LeaveFile(string) error { return nil }
