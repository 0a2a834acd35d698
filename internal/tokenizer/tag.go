package tokenizer

import (
	"github.com/jacoelho/htmlstream/internal/atom"
	"github.com/jacoelho/htmlstream/internal/entity"
	"github.com/jacoelho/htmlstream/internal/textbuf"
	"github.com/jacoelho/htmlstream/internal/token"
)

func (t *Tokenizer) stepTagOpen() bool {
	b, ok := t.peek()
	if !ok {
		return false
	}
	switch {
	case b == '/':
		t.cursor++
		t.transition(stateEndTagOpen)
	case b == '!':
		t.cursor++
		t.transition(stateMarkupDeclarationOpen)
	case b == '?':
		t.recordError(token.ErrMalformedTag, "unexpected question mark instead of tag name")
		t.commentStart = t.cursor
		t.transition(stateBogusComment)
	case isASCIILetter(b):
		t.resetTag(false)
		t.tag.nameStart = t.cursor
		t.transition(stateTagName)
	default:
		// Recovery: '<' was not a tag opener; it is text.
		t.recordError(token.ErrMalformedTag, "invalid first character of tag name")
		t.emitOwnedText("<")
		t.transition(stateData)
	}
	return true
}

func (t *Tokenizer) stepEndTagOpen() bool {
	b, ok := t.peek()
	if !ok {
		return false
	}
	switch {
	case isASCIILetter(b):
		t.resetTag(true)
		t.tag.nameStart = t.cursor
		t.transition(stateTagName)
	case b == '>':
		// "</>" is dropped entirely.
		t.recordError(token.ErrMalformedTag, "missing end tag name")
		t.cursor++
		t.transition(stateData)
	default:
		t.recordError(token.ErrMalformedTag, "invalid first character of end tag name")
		t.commentStart = t.cursor
		t.transition(stateBogusComment)
	}
	return true
}

func (t *Tokenizer) stepTagName() bool {
	w := t.window()
	if len(w) == 0 {
		return false
	}
	for i, b := range w {
		switch {
		case isWhitespace(b):
			t.internTagName(t.cursor + i)
			t.cursor += i + 1
			t.transition(stateBeforeAttrName)
			return true
		case b == '/':
			t.internTagName(t.cursor + i)
			t.cursor += i + 1
			t.transition(stateSelfClosingStartTag)
			return true
		case b == '>':
			t.internTagName(t.cursor + i)
			t.cursor += i + 1
			t.emitTag()
			t.transition(stateData)
			return true
		case b == 0:
			t.recordError(token.ErrUnexpectedNull, "unexpected null in tag name")
		}
	}
	t.cursor += len(w)
	return false
}

func (t *Tokenizer) internTagName(end int) {
	t.tag.name = t.ctx.Atoms.Intern(t.spanBytes(t.tag.nameStart, end))
}

func (t *Tokenizer) resetTag(isEnd bool) {
	t.tag.name = atom.Invalid
	t.tag.nameStart = -1
	t.tag.attrs = t.tag.attrs[:0]
	t.tag.isEnd = isEnd
	t.tag.selfClose = false
	t.resetAttr()
}

func (t *Tokenizer) resetAttr() {
	t.tag.attrNameStart = -1
	t.tag.attrName = atom.Invalid
	t.tag.valueStart = -1
	t.tag.valueOwned = t.tag.valueOwned[:0]
	t.tag.valueIsOwned = false
	t.tag.quote = 0
}

func (t *Tokenizer) stepBeforeAttrName() bool {
	for {
		b, ok := t.peek()
		if !ok {
			return false
		}
		switch {
		case isWhitespace(b):
			t.cursor++
		case b == '/':
			t.cursor++
			t.transition(stateSelfClosingStartTag)
			return true
		case b == '>':
			t.cursor++
			t.emitTag()
			t.transition(stateData)
			return true
		case b == '=':
			t.recordError(token.ErrMalformedTag, "unexpected equals sign before attribute name")
			t.tag.attrNameStart = t.cursor
			t.cursor++
			t.transition(stateAttrName)
			return true
		default:
			t.tag.attrNameStart = t.cursor
			t.transition(stateAttrName)
			return true
		}
	}
}

func (t *Tokenizer) stepAttrName() bool {
	w := t.window()
	if len(w) == 0 {
		return false
	}
	for i, b := range w {
		switch {
		case isWhitespace(b):
			t.internAttrName(t.cursor + i)
			t.cursor += i + 1
			t.transition(stateAfterAttrName)
			return true
		case b == '/' || b == '>':
			t.internAttrName(t.cursor + i)
			t.cursor += i
			t.commitAttr(false)
			t.transition(stateBeforeAttrName)
			return true
		case b == '=':
			t.internAttrName(t.cursor + i)
			t.cursor += i + 1
			t.transition(stateBeforeAttrValue)
			return true
		case b == 0:
			t.recordError(token.ErrUnexpectedNull, "unexpected null in attribute name")
		}
	}
	t.cursor += len(w)
	return false
}

func (t *Tokenizer) internAttrName(end int) {
	t.tag.attrName = t.ctx.Atoms.Intern(t.spanBytes(t.tag.attrNameStart, end))
}

func (t *Tokenizer) stepAfterAttrName() bool {
	for {
		b, ok := t.peek()
		if !ok {
			return false
		}
		switch {
		case isWhitespace(b):
			t.cursor++
		case b == '=':
			t.cursor++
			t.transition(stateBeforeAttrValue)
			return true
		case b == '/' || b == '>':
			t.commitAttr(false)
			t.transition(stateBeforeAttrName)
			return true
		default:
			t.commitAttr(false)
			t.tag.attrNameStart = t.cursor
			t.transition(stateAttrName)
			return true
		}
	}
}

func (t *Tokenizer) stepBeforeAttrValue() bool {
	for {
		b, ok := t.peek()
		if !ok {
			return false
		}
		switch {
		case isWhitespace(b):
			t.cursor++
		case b == '"':
			t.cursor++
			t.tag.valueStart = t.cursor
			t.tag.quote = '"'
			t.transition(stateAttrValueDouble)
			return true
		case b == '\'':
			t.cursor++
			t.tag.valueStart = t.cursor
			t.tag.quote = '\''
			t.transition(stateAttrValueSingle)
			return true
		case b == '>':
			t.recordError(token.ErrMalformedTag, "missing attribute value")
			t.tag.valueStart = t.cursor
			t.commitValue(t.cursor)
			t.cursor++
			t.emitTag()
			t.transition(stateData)
			return true
		default:
			t.tag.valueStart = t.cursor
			t.transition(stateAttrValueUnquoted)
			return true
		}
	}
}

func (t *Tokenizer) stepAttrValueQuoted() bool {
	w := t.window()
	if len(w) == 0 {
		return false
	}
	quote := t.tag.quote
	i := 0
	for i < len(w) {
		b := w[i]
		switch {
		case b == quote:
			t.extendValue(i)
			t.commitValue(t.cursor)
			t.cursor++
			t.transition(stateAfterAttrValueQuoted)
			return true
		case b == '&':
			t.extendValue(i)
			res := entity.Decode(t.window(), t.endOfStream, true)
			if res.NeedMore {
				return false
			}
			if res.Malformed {
				t.recordError(token.ErrInvalidCharRef, "invalid character reference in attribute value")
			}
			if res.Decoded {
				t.appendValueOwned(res.Text)
				t.cursor += res.Consumed
			} else {
				t.extendValue(1)
			}
			w = t.window()
			i = 0
		case b == 0:
			t.extendValue(i)
			t.recordError(token.ErrUnexpectedNull, "unexpected null in attribute value")
			t.appendValueOwned(replacementChar)
			t.cursor++
			w = t.window()
			i = 0
		default:
			i++
		}
	}
	t.extendValue(len(w))
	return false
}

func (t *Tokenizer) stepAttrValueUnquoted() bool {
	w := t.window()
	if len(w) == 0 {
		return false
	}
	i := 0
	for i < len(w) {
		b := w[i]
		switch {
		case isWhitespace(b):
			t.extendValue(i)
			t.commitValue(t.cursor)
			t.cursor++
			t.transition(stateBeforeAttrName)
			return true
		case b == '>':
			t.extendValue(i)
			t.commitValue(t.cursor)
			t.cursor++
			t.emitTag()
			t.transition(stateData)
			return true
		case b == '&':
			t.extendValue(i)
			res := entity.Decode(t.window(), t.endOfStream, true)
			if res.NeedMore {
				return false
			}
			if res.Malformed {
				t.recordError(token.ErrInvalidCharRef, "invalid character reference in attribute value")
			}
			if res.Decoded {
				t.appendValueOwned(res.Text)
				t.cursor += res.Consumed
			} else {
				t.extendValue(1)
			}
			w = t.window()
			i = 0
		case b == 0:
			t.extendValue(i)
			t.recordError(token.ErrUnexpectedNull, "unexpected null in attribute value")
			t.appendValueOwned(replacementChar)
			t.cursor++
			w = t.window()
			i = 0
		default:
			if b == '"' || b == '\'' || b == '<' || b == '=' || b == '`' {
				t.recordError(token.ErrMalformedTag, "unexpected character in unquoted attribute value")
			}
			i++
		}
	}
	t.extendValue(len(w))
	return false
}

func (t *Tokenizer) stepAfterAttrValueQuoted() bool {
	b, ok := t.peek()
	if !ok {
		return false
	}
	switch {
	case isWhitespace(b):
		t.cursor++
		t.transition(stateBeforeAttrName)
	case b == '/':
		t.cursor++
		t.transition(stateSelfClosingStartTag)
	case b == '>':
		t.cursor++
		t.emitTag()
		t.transition(stateData)
	default:
		t.recordError(token.ErrMalformedTag, "missing whitespace between attributes")
		t.transition(stateBeforeAttrName)
	}
	return true
}

func (t *Tokenizer) stepSelfClosingStartTag() bool {
	b, ok := t.peek()
	if !ok {
		return false
	}
	if b == '>' {
		t.cursor++
		t.tag.selfClose = true
		t.emitTag()
		t.transition(stateData)
		return true
	}
	t.recordError(token.ErrMalformedTag, "unexpected solidus in tag")
	t.transition(stateBeforeAttrName)
	return true
}

// extendValue adds the next n buffer bytes to the pending attribute value.
func (t *Tokenizer) extendValue(n int) {
	if n <= 0 {
		return
	}
	if t.tag.valueIsOwned {
		t.tag.valueOwned = append(t.tag.valueOwned, t.window()[:n]...)
	}
	t.cursor += n
}

func (t *Tokenizer) appendValueOwned(text string) {
	if !t.tag.valueIsOwned {
		t.tag.valueOwned = append(t.tag.valueOwned[:0], t.spanBytes(t.tag.valueStart, t.cursor)...)
		t.tag.valueIsOwned = true
	}
	t.tag.valueOwned = append(t.tag.valueOwned, text...)
}

// commitValue closes the pending attribute value ending at end and
// commits the attribute.
func (t *Tokenizer) commitValue(end int) {
	if t.tag.valueIsOwned {
		t.commitAttrOwned(string(t.tag.valueOwned))
		return
	}
	t.commitAttrSpan(textbuf.Span{Start: t.tag.valueStart, End: end})
}

func (t *Tokenizer) commitAttr(hasValue bool) {
	t.appendAttr(token.Attr{Name: t.tag.attrName, HasValue: hasValue})
}

func (t *Tokenizer) commitAttrSpan(value textbuf.Span) {
	t.appendAttr(token.Attr{Name: t.tag.attrName, Value: value, HasValue: true})
}

func (t *Tokenizer) commitAttrOwned(value string) {
	t.appendAttr(token.Attr{Name: t.tag.attrName, Owned: value, IsOwned: true, HasValue: true})
}

// appendAttr applies first-wins duplicate semantics on the case-folded
// name; duplicates are dropped here so the tree builder never sees them.
func (t *Tokenizer) appendAttr(a token.Attr) {
	defer t.resetAttr()
	if a.Name == atom.Invalid {
		return
	}
	for i := range t.tag.attrs {
		if t.tag.attrs[i].Name == a.Name {
			t.recordError(token.ErrDuplicateAttr, "duplicate attribute")
			return
		}
	}
	t.tag.attrs = append(t.tag.attrs, a)
}

// emitTag emits the pending start or end tag token.
func (t *Tokenizer) emitTag() {
	if t.tag.name == atom.Invalid {
		return
	}
	if t.tag.isEnd {
		if len(t.tag.attrs) > 0 {
			t.recordError(token.ErrMalformedTag, "end tag with attributes")
		}
		if t.tag.selfClose {
			t.recordError(token.ErrMalformedTag, "end tag with trailing solidus")
		}
		t.emit(token.Token{Kind: token.KindEndTag, Name: t.tag.name})
		return
	}
	attrs := make([]token.Attr, len(t.tag.attrs))
	copy(attrs, t.tag.attrs)
	selfClosing := t.tag.selfClose
	if voidElements[t.tag.name] {
		selfClosing = true
	}
	t.emit(token.Token{
		Kind:        token.KindStartTag,
		Name:        t.tag.name,
		Attrs:       attrs,
		SelfClosing: selfClosing,
	})
}
