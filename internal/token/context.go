package token

import (
	"fmt"

	"github.com/jacoelho/htmlstream/internal/atom"
)

// DocMode is the document compatibility mode.
// It is decided once during bootstrap and immutable afterwards.
type DocMode uint8

const (
	ModeUndecided DocMode = iota
	ModeNoQuirks
	ModeLimitedQuirks
	ModeQuirks
)

// String returns a stable name for the mode.
func (m DocMode) String() string {
	switch m {
	case ModeUndecided:
		return "undecided"
	case ModeNoQuirks:
		return "no-quirks"
	case ModeLimitedQuirks:
		return "limited-quirks"
	case ModeQuirks:
		return "quirks"
	default:
		return "unknown"
	}
}

// ErrorOrigin reports which stage recorded a parse error.
type ErrorOrigin uint8

const (
	OriginTokenizer ErrorOrigin = iota
	OriginTreeBuilder
)

// ErrorCode classifies recoverable parse errors.
type ErrorCode uint8

const (
	ErrUnexpectedNull ErrorCode = iota
	ErrUnexpectedEOF
	ErrInvalidCharRef
	ErrMalformedTag
	ErrMalformedDoctype
	ErrMalformedComment
	ErrDuplicateAttr
	ErrUnexpectedToken
	ErrMisnestedTag
)

// ParseError is one recorded, non-fatal parse error.
type ParseError struct {
	Origin ErrorOrigin
	Code   ErrorCode
	Offset int
	Detail string
}

// Error formats the parse error with its input offset.
func (e ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Offset, e.Detail)
}

// Counters holds per-document instrumentation.
type Counters struct {
	TokensEmitted    uint64
	ParseErrors      uint64
	ErrorsDropped    uint64
	FallbackElements uint64
}

// Context is the document-scoped parse state shared by the tokenizer and
// tree builder: the atom table, the decided document mode, the charset
// lock status, and the parse-error record.
type Context struct {
	Atoms         *atom.Table
	Counters      Counters
	Mode          DocMode
	CharsetLocked bool

	maxStored int
	errors    []ParseError
}

// NewContext returns a parse context storing at most maxErrors parse
// errors (oldest dropped first). maxErrors <= 0 disables storage;
// counters are always maintained.
func NewContext(maxErrors int) *Context {
	return &Context{
		Atoms:     atom.NewTable(),
		Mode:      ModeUndecided,
		maxStored: maxErrors,
	}
}

// RecordError records a recoverable parse error. It never fails and never
// panics on malformed input.
func (c *Context) RecordError(e ParseError) {
	c.Counters.ParseErrors++
	if c.maxStored <= 0 {
		return
	}
	if len(c.errors) >= c.maxStored {
		copy(c.errors, c.errors[1:])
		c.errors = c.errors[:len(c.errors)-1]
		c.Counters.ErrorsDropped++
	}
	c.errors = append(c.errors, e)
}

// Errors returns the stored parse errors in record order.
func (c *Context) Errors() []ParseError {
	return c.errors
}

// LockMode freezes the document mode. Later attempts are ignored:
// mode is decided during early bootstrap and immutable afterwards.
func (c *Context) LockMode(mode DocMode) {
	if c.Mode != ModeUndecided {
		return
	}
	c.Mode = mode
}
