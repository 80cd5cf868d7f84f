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

// Package lexer implements the IDL-4.2 code cursor, token model, and
// tokenizer. The Cursor navigates a Source's immutable buffer while also
// supporting in-band prepending of synthesized text for macro expansion,
// without invalidating tokens whose span crosses a prepended region.
package lexer

import (
	"unicode/utf8"

	"github.com/sdv-oss/idlc/internal/idl/ierrors"
	"github.com/sdv-oss/idlc/internal/idl/source"
)

// Position is the shared line/column coordinate used by cursors, tokens,
// and errors throughout the front end.
type Position = ierrors.Position

// PositionInit is the position of the first character of a file.
var PositionInit = Position{Line: 1, Column: 1}

// prependFrame is one layer of synthetic text injected in front of the
// cursor's source-buffer offset. A new Prepend call folds any unconsumed
// text of the current frame into the new one, so only one frame is ever
// active at a time.
type prependFrame struct {
	text   string
	offset int
}

// mark records where a token began, so UpdateLocation can later compute
// its final span relative to the cursor's then-current position.
type mark struct {
	inPrepend     bool
	frame         *prependFrame // the frame active when the mark was taken
	prependOffset int           // offset within frame.text at mark time
	sourceOffset  int           // source buffer offset: resume point once frame drains
}

// Cursor is a position-tracking view over a Source's buffer. It is the
// single navigation primitive the lexer, macro expander, and preprocessor
// all drive.
type Cursor struct {
	src     *source.Source
	code    string
	offset  int // byte offset into code
	pos     Position
	prepend *prependFrame
	chunks  []string // text fragments promoted from a prepended buffer
}

// NewCursor returns a cursor positioned at the start of src.
func NewCursor(src *source.Source) *Cursor {
	return &Cursor{src: src, code: src.Code(), pos: PositionInit}
}

// Source returns the Source this cursor navigates.
func (c *Cursor) Source() *source.Source { return c.src }

// Reset returns the cursor to the start of the source buffer and drops any
// prepended text.
func (c *Cursor) Reset() {
	c.offset = 0
	c.pos = PositionInit
	c.prepend = nil
}

// Pos returns the cursor's current position.
func (c *Cursor) Pos() Position { return c.pos }

// InExpansion reports whether the cursor is currently reading from a
// prepended (synthetic) buffer rather than the source buffer.
func (c *Cursor) InExpansion() bool {
	return c.prepend != nil && c.prepend.offset < len(c.prepend.text)
}

// AtEOF reports whether there is no more text left to read, in either the
// prepended buffer or the source buffer.
func (c *Cursor) AtEOF() bool {
	return !c.InExpansion() && c.offset >= len(c.code)
}

// AtEOL reports whether the next character is a newline or EOF.
func (c *Cursor) AtEOL() bool {
	r, ok := c.Deref()
	return !ok || r == '\n'
}

// window returns up to maxBytes of the logical remaining text, stitching
// together the active prepended buffer (if any) and the source buffer
// that follows it. It never mutates cursor state.
func (c *Cursor) window(maxBytes int) []byte {
	var buf []byte
	if c.InExpansion() {
		avail := c.prepend.text[c.prepend.offset:]
		if len(avail) >= maxBytes {
			return []byte(avail[:maxBytes])
		}
		buf = append(buf, avail...)
		maxBytes -= len(avail)
	}
	rest := c.code[min(c.offset, len(c.code)):]
	if len(rest) > maxBytes {
		rest = rest[:maxBytes]
	}
	return append(buf, rest...)
}

// lookaheadWindow is large enough to decode a handful of runes of
// lookahead plus one full UTF-8 sequence; the lexer never peeks further
// than a small fixed distance ahead.
const lookaheadWindow = 64

// Peek returns the rune `offset` positions ahead of the cursor without
// consuming it. offset=0 is the same as Deref.
func (c *Cursor) Peek(offset int) (rune, bool) {
	data := c.window(lookaheadWindow)
	for i := 0; i < offset; i++ {
		if len(data) == 0 {
			return 0, false
		}
		_, size := utf8.DecodeRune(data)
		if size == 0 {
			return 0, false
		}
		data = data[size:]
	}
	if len(data) == 0 {
		return 0, false
	}
	r, _ := utf8.DecodeRune(data)
	return r, true
}

// Deref returns the rune currently under the cursor.
func (c *Cursor) Deref() (rune, bool) { return c.Peek(0) }

// advanceOne moves the cursor forward by one rune, updating line/column per
// the front end's accounting rules: the line counter only increments on a
// newline found in the *source* buffer (expansions are synthetic and are
// attributed to the invoking line); a tab advances the column to the next
// multiple of 4.
func (c *Cursor) advanceOne() {
	if c.InExpansion() {
		r, size := utf8.DecodeRuneInString(c.prepend.text[c.prepend.offset:])
		if size > 0 {
			c.prepend.offset += size
			_ = r // synthetic text never moves line/column
			return
		}
		c.prepend = nil
	}
	if c.offset >= len(c.code) {
		return
	}
	r, size := utf8.DecodeRuneInString(c.code[c.offset:])
	if size == 0 {
		c.offset = len(c.code)
		return
	}
	c.offset += size
	switch r {
	case '\n':
		c.pos.Line++
		c.pos.Column = 1
	case '\t':
		c.pos.Column = ((c.pos.Column-1)/4+1)*4 + 1
	default:
		c.pos.Column++
	}
}

// Advance moves the cursor forward by n runes.
func (c *Cursor) Advance(n int) {
	for i := 0; i < n; i++ {
		c.advanceOne()
	}
}

// currentMark snapshots enough state to later compute a token's span.
func (c *Cursor) currentMark() mark {
	if c.InExpansion() {
		return mark{inPrepend: true, frame: c.prepend, prependOffset: c.prepend.offset, sourceOffset: c.offset}
	}
	return mark{inPrepend: false, sourceOffset: c.offset}
}

// Location returns a zero-length Token snapshotting the cursor's current
// position and kind, to be finalized by a later call to UpdateLocation.
func (c *Cursor) Location(kind TokenKind) Token {
	return Token{Kind: kind, pos: c.pos, ctx: c, startMark: c.currentMark()}
}

// UpdateLocation finalizes tok's span based on how far the cursor has
// moved since tok was created by Location, and tags it with litKind. If
// tok's start lies inside a prepended buffer that has since drained or
// been replaced, the spanned text is copied into a cursor-owned chunk so
// the token stays valid after the buffer disappears.
func (c *Cursor) UpdateLocation(tok *Token, litKind LiteralKind) {
	tok.LiteralKind = litKind
	if !tok.startMark.inPrepend {
		tok.origin = originSource
		tok.start = tok.startMark.sourceOffset
		tok.length = c.offset - tok.startMark.sourceOffset
		return
	}
	if c.prepend == tok.startMark.frame && c.offset == tok.startMark.sourceOffset {
		// Still inside the same synthetic buffer: a plain slice of it.
		text := tok.startMark.frame.text[tok.startMark.prependOffset:c.prepend.offset]
		tok.origin = originChunk
		tok.chunkIdx = c.persistChunk(text)
		return
	}
	// The token straddles the end of the prepended buffer: stitch its
	// unconsumed tail to the source text consumed after the buffer
	// drained and control resumed at the recorded return point.
	tail := tok.startMark.frame.text[tok.startMark.prependOffset:]
	resumed := c.code[tok.startMark.sourceOffset:min(c.offset, len(c.code))]
	tok.origin = originChunk
	tok.chunkIdx = c.persistChunk(tail + resumed)
}

func (c *Cursor) persistChunk(text string) int {
	c.chunks = append(c.chunks, text)
	return len(c.chunks) - 1
}

func (c *Cursor) chunkText(idx int) string { return c.chunks[idx] }

// Prepend injects text in front of the cursor's current read position.
// Any text left unconsumed in the currently active prepended buffer is
// folded into the new one so it is not lost. Advancing "through" the new
// buffer transparently resumes reading the source buffer from the same
// offset it was at before the call.
func (c *Cursor) Prepend(text string) {
	if c.InExpansion() {
		text = text + c.prepend.text[c.prepend.offset:]
	}
	c.prepend = &prependFrame{text: text}
}
