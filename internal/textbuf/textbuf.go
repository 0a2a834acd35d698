// Package textbuf provides the append-only decoded input buffer shared by
// the decoder, tokenizer, and token batches.
//
// Offsets are absolute for the lifetime of a document: trimming the buffer
// prefix never invalidates offsets, only the ability to resolve spans that
// point into the trimmed region.
package textbuf

import (
	"errors"
	"fmt"
)

var (
	errBufferPinned = errors.New("buffer is pinned by an open batch")
	errSpanTrimmed  = errors.New("span points into a trimmed buffer region")
	errSpanBounds   = errors.New("span is out of buffer bounds")
)

// Span is a zero-copy (start, end) byte range into the decoded buffer.
// Offsets are absolute document offsets and always lie on UTF-8 boundaries.
type Span struct {
	Start int
	End   int
}

// IsEmpty reports whether the span covers no bytes.
func (s Span) IsEmpty() bool {
	return s.Start >= s.End
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	if s.IsEmpty() {
		return 0
	}
	return s.End - s.Start
}

// Buffer is an append-only decoded text buffer.
//
// Invariants:
//   - content is valid UTF-8; the decoder only appends whole runes
//   - data is append-only while any span over it is live
//   - the prefix may be trimmed only while no batch pins the buffer
type Buffer struct {
	data []byte
	base int
	pins int
}

// New returns an empty buffer.
func New() *Buffer {
	return &Buffer{}
}

// Append adds decoded text to the buffer.
func (b *Buffer) Append(text []byte) {
	b.data = append(b.data, text...)
}

// AppendString adds decoded text to the buffer.
func (b *Buffer) AppendString(text string) {
	b.data = append(b.data, text...)
}

// Base returns the absolute offset of the first retained byte.
func (b *Buffer) Base() int {
	return b.base
}

// End returns the absolute offset one past the last byte.
func (b *Buffer) End() int {
	return b.base + len(b.data)
}

// Byte returns the byte at absolute offset off.
// The caller must ensure Base() <= off < End().
func (b *Buffer) Byte(off int) byte {
	return b.data[off-b.base]
}

// Window returns the retained bytes from absolute offset off to the end.
// The returned slice is valid until the next Append or TrimTo.
func (b *Buffer) Window(off int) []byte {
	return b.data[off-b.base:]
}

// Resolve returns the bytes covered by the span.
// The returned slice is valid until the next Append or TrimTo.
func (b *Buffer) Resolve(s Span) ([]byte, error) {
	if s.Start > s.End {
		return nil, fmt.Errorf("resolve span [%d,%d): %w", s.Start, s.End, errSpanBounds)
	}
	if s.Start < b.base {
		return nil, fmt.Errorf("resolve span [%d,%d): %w", s.Start, s.End, errSpanTrimmed)
	}
	if s.End > b.End() {
		return nil, fmt.Errorf("resolve span [%d,%d): %w", s.Start, s.End, errSpanBounds)
	}
	return b.data[s.Start-b.base : s.End-b.base], nil
}

// Pin marks the buffer as borrowed by an open batch epoch.
// While pinned the prefix cannot be trimmed.
func (b *Buffer) Pin() {
	b.pins++
}

// Unpin releases one batch borrow.
func (b *Buffer) Unpin() {
	if b.pins > 0 {
		b.pins--
	}
}

// Pinned reports whether any batch epoch is open.
func (b *Buffer) Pinned() bool {
	return b.pins > 0
}

// TrimTo drops all bytes before absolute offset off.
// It fails while a batch pins the buffer; spans into the trimmed region
// become unresolvable afterwards.
func (b *Buffer) TrimTo(off int) error {
	if b.pins > 0 {
		return errBufferPinned
	}
	if off <= b.base {
		return nil
	}
	if off > b.End() {
		off = b.End()
	}
	n := off - b.base
	b.data = b.data[:copy(b.data, b.data[n:])]
	b.base = off
	return nil
}
