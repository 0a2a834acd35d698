package tokenizer

import (
	"github.com/jacoelho/htmlstream/internal/entity"
	"github.com/jacoelho/htmlstream/internal/textbuf"
	"github.com/jacoelho/htmlstream/internal/token"
)

const replacementChar = "�"

// stepData handles the data text state: plain character runs, character
// references, and dispatch into tag open.
//
// A text run is flushed only at a structural delimiter ('<') or at EOF,
// never at a chunk boundary, so token boundaries are chunk-invariant.
func (t *Tokenizer) stepData() bool {
	w := t.window()
	if len(w) == 0 {
		return false
	}

	switch w[0] {
	case '<':
		t.flushText()
		t.cursor++
		t.transition(stateTagOpen)
		return true
	case '&':
		res := entity.Decode(w, t.endOfStream, false)
		if res.NeedMore {
			return false
		}
		if res.Malformed {
			t.recordError(token.ErrInvalidCharRef, "invalid character reference")
		}
		if res.Decoded {
			t.appendRunOwned(res.Text)
			t.cursor += res.Consumed
			return true
		}
		// Pass through: the '&' is ordinary text.
		t.extendRun(1)
		return true
	case 0:
		t.recordError(token.ErrUnexpectedNull, "unexpected null character")
		t.appendRunOwned(replacementChar)
		t.cursor++
		return true
	}

	// Consume the plain run up to the next delimiter.
	n := len(w)
	for i, b := range w {
		if b == '<' || b == '&' || b == 0 {
			n = i
			break
		}
	}
	t.extendRun(n)
	return n < len(w)
}

// extendRun adds the next n buffer bytes to the open text run.
func (t *Tokenizer) extendRun(n int) {
	if n <= 0 {
		return
	}
	if t.runStart < 0 {
		t.runStart = t.cursor
		t.runIsOwn = false
		t.runOwned = t.runOwned[:0]
	}
	if t.runIsOwn {
		t.runOwned = append(t.runOwned, t.window()[:n]...)
	}
	t.cursor += n
}

// appendRunOwned converts the open run (if any) to owned form and appends
// synthesized text such as a decoded character reference.
func (t *Tokenizer) appendRunOwned(text string) {
	if t.runStart < 0 {
		t.runStart = t.cursor
		t.runIsOwn = true
		t.runOwned = t.runOwned[:0]
	} else if !t.runIsOwn {
		span, err := t.buf.Resolve(textbuf.Span{Start: t.runStart, End: t.cursor})
		if err == nil {
			t.runOwned = append(t.runOwned[:0], span...)
		} else {
			t.runOwned = t.runOwned[:0]
		}
		t.runIsOwn = true
	}
	t.runOwned = append(t.runOwned, text...)
}

// flushText emits the open text run, if any.
func (t *Tokenizer) flushText() {
	if t.runStart < 0 {
		return
	}
	start := t.runStart
	t.runStart = -1
	if t.runIsOwn {
		if len(t.runOwned) == 0 {
			return
		}
		t.emit(token.Token{
			Kind:    token.KindText,
			Owned:   string(t.runOwned),
			IsOwned: true,
		})
		return
	}
	if start == t.cursor {
		return
	}
	t.emit(token.Token{
		Kind: token.KindText,
		Text: textbuf.Span{Start: start, End: t.cursor},
	})
}

// emitOwnedText emits synthesized text that is not part of the open run,
// such as a recovered '<' literal.
func (t *Tokenizer) emitOwnedText(text string) {
	if text == "" {
		return
	}
	t.appendRunOwned(text)
}

// finishEOF applies the per-state end-of-file rules and emits EOF.
func (t *Tokenizer) finishEOF() {
	switch t.state {
	case stateData:
		// Nothing pending beyond the run.
	case stateTagOpen:
		t.recordError(token.ErrUnexpectedEOF, "eof before tag name")
		t.emitOwnedText("<")
	case stateEndTagOpen:
		t.recordError(token.ErrUnexpectedEOF, "eof before tag name")
		t.emitOwnedText("</")
	case stateTagName, stateBeforeAttrName, stateAttrName, stateAfterAttrName,
		stateBeforeAttrValue, stateAttrValueDouble, stateAttrValueSingle,
		stateAttrValueUnquoted, stateAfterAttrValueQuoted, stateSelfClosingStartTag:
		t.recordError(token.ErrUnexpectedEOF, "eof in tag")
	case stateMarkupDeclarationOpen:
		t.recordError(token.ErrMalformedComment, "incorrectly opened comment")
		t.emitCommentOwned("")
	case stateCommentStart, stateCommentStartDash, stateComment,
		stateCommentEndDash, stateCommentEnd, stateCommentEndBang:
		t.recordError(token.ErrUnexpectedEOF, "eof in comment")
		t.emitCommentSpan(t.commentStart, t.buf.End())
	case stateBogusComment:
		t.emitCommentSpan(t.commentStart, t.buf.End())
	case stateDoctypeName:
		t.internDoctypeName(t.buf.End())
		fallthrough
	case stateDoctype, stateBeforeDoctypeName,
		stateAfterDoctypeName, stateAfterDoctypePublicKeyword,
		stateBeforeDoctypePublicID, stateAfterDoctypePublicID,
		stateAfterDoctypeSystemKeyword, stateBeforeDoctypeSystemID,
		stateAfterDoctypeSystemID:
		t.recordError(token.ErrUnexpectedEOF, "eof in doctype")
		t.doctype.forceQuirks = true
		t.emitDoctype()
	case stateDoctypePublicIDQuoted:
		t.recordError(token.ErrUnexpectedEOF, "eof in doctype")
		t.captureDoctypeID(t.buf.End(), true)
		t.doctype.forceQuirks = true
		t.emitDoctype()
	case stateDoctypeSystemIDQuoted:
		t.recordError(token.ErrUnexpectedEOF, "eof in doctype")
		t.captureDoctypeID(t.buf.End(), false)
		t.doctype.forceQuirks = true
		t.emitDoctype()
	case stateBogusDoctype:
		t.emitDoctype()
	}
	t.flushText()
	t.transition(stateData)
	t.emit(token.Token{Kind: token.KindEOF})
}

// emitCommentSpan emits a comment whose content is a buffer span.
func (t *Tokenizer) emitCommentSpan(start, end int) {
	if start > end {
		start = end
	}
	t.emit(token.Token{
		Kind: token.KindComment,
		Text: textbuf.Span{Start: start, End: end},
	})
}

func (t *Tokenizer) emitCommentOwned(text string) {
	t.emit(token.Token{
		Kind:    token.KindComment,
		Owned:   text,
		IsOwned: true,
	})
}

// spanBytes resolves a span against the buffer, tolerating invalid spans
// by returning nil (the caller records the parse error).
func (t *Tokenizer) spanBytes(start, end int) []byte {
	b, err := t.buf.Resolve(textbuf.Span{Start: start, End: end})
	if err != nil {
		return nil
	}
	return b
}
