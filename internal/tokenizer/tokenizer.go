// Package tokenizer implements the HTML tokenizer state machine.
//
// The tokenizer is streaming and resumable: it consumes the decoded input
// buffer incrementally, never requires unbounded lookahead, and produces
// the same token sequence for any chunking of the same logical input.
// Tokens carry spans into the decoded buffer; spans are valid only within
// the batch epoch that delivered them.
package tokenizer

import (
	xatom "golang.org/x/net/html/atom"

	"github.com/jacoelho/htmlstream/internal/atom"
	"github.com/jacoelho/htmlstream/internal/textbuf"
	"github.com/jacoelho/htmlstream/internal/token"
)

// Result reports the outcome of a Pump or Finish call.
type Result uint8

const (
	// Progress means tokens may be available and more work may remain.
	Progress Result = iota
	// NeedMoreInput means the tokenizer is blocked on further input.
	NeedMoreInput
	// EmittedEOF means end-of-file processing has run; no further input
	// will be consumed.
	EmittedEOF
)

// Stats holds tokenizer instrumentation counters.
type Stats struct {
	Steps             uint64
	StateTransitions  uint64
	TokensEmitted     uint64
	BudgetExhaustions uint64
}

// maxStepsPerPump bounds one Pump call so a single call cannot starve the
// session loop. Exhausting the budget without observable progress is an
// internal bug surfaced via ErrStalled.
const maxStepsPerPump = 16384

// pendingTag accumulates the tag currently being parsed.
type pendingTag struct {
	name      atom.ID
	nameStart int
	attrs     []token.Attr
	isEnd     bool
	selfClose bool

	attrNameStart int
	attrName      atom.ID
	valueStart    int
	valueOwned    []byte
	valueIsOwned  bool
	quote         byte
}

// pendingDoctype accumulates the DOCTYPE currently being parsed.
type pendingDoctype struct {
	name        atom.ID
	nameStart   int
	idStart     int
	quote       byte
	publicID    string
	systemID    string
	hasPublic   bool
	hasSystem   bool
	forceQuirks bool
}

// Tokenizer is the streaming HTML tokenizer.
//
// Invariants:
//   - the cursor only moves forward
//   - pending token state references the append-only buffer; the session
//     must not trim past LowWaterMark
//   - Finish fires end-of-file processing exactly once
type Tokenizer struct {
	buf *textbuf.Buffer
	ctx *token.Context

	state  state
	cursor int
	tokens []token.Token

	// Pending text run. runStart < 0 means no run is open. Once owned,
	// all further run content is appended to runOwned.
	runStart int
	runOwned []byte
	runIsOwn bool

	tag     pendingTag
	doctype pendingDoctype

	commentStart int

	endOfStream bool
	eofEmitted  bool
	stats       Stats
}

// New returns a tokenizer bound to one decoded buffer and parse context
// for its lifetime.
func New(buf *textbuf.Buffer, ctx *token.Context) *Tokenizer {
	return &Tokenizer{
		buf:      buf,
		ctx:      ctx,
		state:    stateData,
		runStart: -1,
	}
}

// Stats returns a copy of the instrumentation counters.
func (t *Tokenizer) Stats() Stats {
	return t.stats
}

// State returns the current state name for diagnostics.
func (t *Tokenizer) State() string {
	return t.state.String()
}

// Cursor returns the absolute offset of the next unconsumed byte.
func (t *Tokenizer) Cursor() int {
	return t.cursor
}

// LowWaterMark returns the lowest absolute buffer offset still referenced
// by pending tokenizer state. The buffer may be trimmed up to this offset
// once no batch epoch is open.
func (t *Tokenizer) LowWaterMark() int {
	low := t.cursor
	mark := func(off int) {
		if off >= 0 && off < low {
			low = off
		}
	}
	if t.runStart >= 0 && !t.runIsOwn {
		mark(t.runStart)
	}
	switch t.state {
	case stateTagName:
		mark(t.tag.nameStart)
	case stateAttrName:
		mark(t.tag.attrNameStart)
	case stateAttrValueDouble, stateAttrValueSingle, stateAttrValueUnquoted:
		if !t.tag.valueIsOwned {
			mark(t.tag.valueStart)
		}
	case stateCommentStart, stateCommentStartDash, stateComment,
		stateCommentEndDash, stateCommentEnd, stateCommentEndBang,
		stateBogusComment:
		mark(t.commentStart)
	case stateDoctypeName:
		mark(t.doctype.nameStart)
	case stateDoctypePublicIDQuoted, stateDoctypeSystemIDQuoted:
		mark(t.doctype.idStart)
	}
	// Attribute spans already committed to the pending tag also pin the
	// buffer until the tag is emitted and its batch closed.
	for i := range t.tag.attrs {
		a := &t.tag.attrs[i]
		if a.HasValue && !a.IsOwned {
			mark(a.Value.Start)
		}
	}
	for i := range t.tokens {
		markTokenSpans(&t.tokens[i], mark)
	}
	return low
}

func markTokenSpans(tok *token.Token, mark func(int)) {
	if !tok.IsOwned && !tok.Text.IsEmpty() {
		mark(tok.Text.Start)
	}
	for i := range tok.Attrs {
		a := &tok.Attrs[i]
		if a.HasValue && !a.IsOwned {
			mark(a.Value.Start)
		}
	}
}

// Pump consumes available input until it needs more input or exhausts the
// per-call step budget. It reports whether observable progress was made.
func (t *Tokenizer) Pump() Result {
	if t.eofEmitted {
		return EmittedEOF
	}
	initialCursor := t.cursor
	initialTokens := len(t.tokens)
	initialTransitions := t.stats.StateTransitions

	budget := maxStepsPerPump
	for budget > 0 {
		budget--
		t.stats.Steps++
		if !t.step() {
			break
		}
	}
	if budget == 0 {
		t.stats.BudgetExhaustions++
	}

	if t.cursor != initialCursor ||
		len(t.tokens) != initialTokens ||
		t.stats.StateTransitions != initialTransitions {
		return Progress
	}
	return NeedMoreInput
}

// Finish marks end-of-stream and runs end-of-file processing exactly
// once: pending runs are flushed, in-flight comments and doctypes are
// emitted with their recovery behavior, and an EOF token is appended.
// Subsequent calls are no-ops.
func (t *Tokenizer) Finish() Result {
	t.endOfStream = true
	if t.eofEmitted {
		return EmittedEOF
	}
	// Drain whatever the final input allows before applying EOF rules.
	for t.step() {
	}
	t.finishEOF()
	t.eofEmitted = true
	return EmittedEOF
}

// NextBatch drains the accumulated tokens as one batch epoch.
// The batch pins the buffer; spans inside the tokens are valid until the
// batch is closed.
func (t *Tokenizer) NextBatch() *Batch {
	tokens := t.tokens
	t.tokens = nil
	t.buf.Pin()
	return &Batch{tokens: tokens, buf: t.buf}
}

// HasTokens reports whether a drainable token is available.
func (t *Tokenizer) HasTokens() bool {
	return len(t.tokens) > 0
}

func (t *Tokenizer) transition(next state) {
	if t.state == next {
		return
	}
	t.state = next
	t.stats.StateTransitions++
}

func (t *Tokenizer) emit(tok token.Token) {
	t.tokens = append(t.tokens, tok)
	t.stats.TokensEmitted++
	t.ctx.Counters.TokensEmitted++
}

func (t *Tokenizer) recordError(code token.ErrorCode, detail string) {
	t.ctx.RecordError(token.ParseError{
		Origin: token.OriginTokenizer,
		Code:   code,
		Offset: t.cursor,
		Detail: detail,
	})
}

// step advances the machine by one bounded unit of work.
// It returns false when more input is required.
func (t *Tokenizer) step() bool {
	switch t.state {
	case stateData:
		return t.stepData()
	case stateTagOpen:
		return t.stepTagOpen()
	case stateEndTagOpen:
		return t.stepEndTagOpen()
	case stateTagName:
		return t.stepTagName()
	case stateBeforeAttrName:
		return t.stepBeforeAttrName()
	case stateAttrName:
		return t.stepAttrName()
	case stateAfterAttrName:
		return t.stepAfterAttrName()
	case stateBeforeAttrValue:
		return t.stepBeforeAttrValue()
	case stateAttrValueDouble, stateAttrValueSingle:
		return t.stepAttrValueQuoted()
	case stateAttrValueUnquoted:
		return t.stepAttrValueUnquoted()
	case stateAfterAttrValueQuoted:
		return t.stepAfterAttrValueQuoted()
	case stateSelfClosingStartTag:
		return t.stepSelfClosingStartTag()
	case stateMarkupDeclarationOpen:
		return t.stepMarkupDeclarationOpen()
	case stateCommentStart, stateCommentStartDash, stateComment,
		stateCommentEndDash, stateCommentEnd, stateCommentEndBang:
		return t.stepComment()
	case stateBogusComment:
		return t.stepBogusComment()
	default:
		return t.stepDoctype()
	}
}

func (t *Tokenizer) avail() int {
	return t.buf.End() - t.cursor
}

func (t *Tokenizer) peek() (byte, bool) {
	if t.cursor >= t.buf.End() {
		return 0, false
	}
	return t.buf.Byte(t.cursor), true
}

// window returns the unconsumed bytes.
func (t *Tokenizer) window() []byte {
	if t.cursor >= t.buf.End() {
		return nil
	}
	return t.buf.Window(t.cursor)
}

type prefixMatch uint8

const (
	matchYes prefixMatch = iota
	matchNo
	matchNeedMore
)

// matchASCIIFold matches seq (lower-case ASCII) case-insensitively at the
// cursor without consuming. It reports matchNeedMore when the available
// input is a proper prefix of a potential match.
func (t *Tokenizer) matchASCIIFold(seq string) prefixMatch {
	w := t.window()
	for i := 0; i < len(seq); i++ {
		if i >= len(w) {
			if t.endOfStream {
				return matchNo
			}
			return matchNeedMore
		}
		b := w[i]
		if b >= 'A' && b <= 'Z' {
			b += 'a' - 'A'
		}
		if b != seq[i] {
			return matchNo
		}
	}
	return matchYes
}

func (t *Tokenizer) matchExact(seq string) prefixMatch {
	w := t.window()
	for i := 0; i < len(seq); i++ {
		if i >= len(w) {
			if t.endOfStream {
				return matchNo
			}
			return matchNeedMore
		}
		if w[i] != seq[i] {
			return matchNo
		}
	}
	return matchYes
}

func isWhitespace(b byte) bool {
	switch b {
	case '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isASCIILetter(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

// voidElements is the HTML void set; their start tags never stay open.
var voidElements = map[atom.ID]bool{
	atom.Known(xatom.Area):   true,
	atom.Known(xatom.Base):   true,
	atom.Known(xatom.Br):     true,
	atom.Known(xatom.Col):    true,
	atom.Known(xatom.Embed):  true,
	atom.Known(xatom.Hr):     true,
	atom.Known(xatom.Img):    true,
	atom.Known(xatom.Input):  true,
	atom.Known(xatom.Link):   true,
	atom.Known(xatom.Meta):   true,
	atom.Known(xatom.Param):  true,
	atom.Known(xatom.Source): true,
	atom.Known(xatom.Track):  true,
	atom.Known(xatom.Wbr):    true,
}

// IsVoidElement reports whether name is in the HTML void set.
func IsVoidElement(name atom.ID) bool {
	return voidElements[name]
}
