package tokenizer

import (
	"github.com/jacoelho/htmlstream/internal/atom"
	"github.com/jacoelho/htmlstream/internal/token"
)

func (t *Tokenizer) stepMarkupDeclarationOpen() bool {
	switch t.matchExact("--") {
	case matchYes:
		t.cursor += 2
		t.commentStart = t.cursor
		t.transition(stateCommentStart)
		return true
	case matchNeedMore:
		return false
	case matchNo:
	}

	switch t.matchASCIIFold("doctype") {
	case matchYes:
		t.cursor += len("doctype")
		t.resetDoctype()
		t.transition(stateDoctype)
		return true
	case matchNeedMore:
		return false
	case matchNo:
	}

	switch t.matchExact("[CDATA[") {
	case matchYes:
		// CDATA outside foreign content is a bogus comment that keeps the
		// "[CDATA[" prefix as content.
		t.recordError(token.ErrMalformedComment, "cdata in html content")
		t.commentStart = t.cursor
		t.transition(stateBogusComment)
		return true
	case matchNeedMore:
		return false
	case matchNo:
	}

	if t.avail() == 0 {
		return false
	}
	t.recordError(token.ErrMalformedComment, "incorrectly opened comment")
	t.commentStart = t.cursor
	t.transition(stateBogusComment)
	return true
}

// stepComment walks the comment states. Content is the raw byte span
// between "<!--" and the closing sequence, so no copying happens on the
// well-formed path.
func (t *Tokenizer) stepComment() bool {
	for {
		b, ok := t.peek()
		if !ok {
			return false
		}
		switch t.state {
		case stateCommentStart:
			switch b {
			case '-':
				t.cursor++
				t.transition(stateCommentStartDash)
			case '>':
				t.recordError(token.ErrMalformedComment, "abrupt closing of empty comment")
				t.cursor++
				t.emitCommentSpan(t.commentStart, t.commentStart)
				t.transition(stateData)
				return true
			default:
				t.transition(stateComment)
			}
		case stateCommentStartDash:
			switch b {
			case '-':
				t.cursor++
				t.transition(stateCommentEnd)
			case '>':
				t.recordError(token.ErrMalformedComment, "abrupt closing of empty comment")
				t.cursor++
				t.emitCommentSpan(t.commentStart, t.commentStart)
				t.transition(stateData)
				return true
			default:
				t.transition(stateComment)
			}
		case stateComment:
			// Fast scan to the next '-' or NUL.
			w := t.window()
			n := len(w)
			for i, c := range w {
				if c == '-' || c == 0 {
					n = i
					break
				}
			}
			t.cursor += n
			if n == len(w) {
				return false
			}
			if w[n] == 0 {
				t.recordError(token.ErrUnexpectedNull, "unexpected null in comment")
				t.cursor++
				continue
			}
			t.cursor++
			t.transition(stateCommentEndDash)
		case stateCommentEndDash:
			if b == '-' {
				t.cursor++
				t.transition(stateCommentEnd)
			} else {
				t.transition(stateComment)
			}
		case stateCommentEnd:
			switch b {
			case '>':
				t.cursor++
				t.emitCommentSpan(t.commentStart, t.cursor-3)
				t.transition(stateData)
				return true
			case '!':
				t.cursor++
				t.transition(stateCommentEndBang)
			case '-':
				// Extra dashes stay in the content.
				t.cursor++
			default:
				t.transition(stateComment)
			}
		case stateCommentEndBang:
			switch b {
			case '>':
				t.recordError(token.ErrMalformedComment, "incorrectly closed comment")
				t.cursor++
				t.emitCommentSpan(t.commentStart, t.cursor-4)
				t.transition(stateData)
				return true
			case '-':
				t.cursor++
				t.transition(stateCommentEndDash)
			default:
				t.transition(stateComment)
			}
		default:
			return false
		}
	}
}

func (t *Tokenizer) stepBogusComment() bool {
	w := t.window()
	if len(w) == 0 {
		return false
	}
	for i, b := range w {
		if b == '>' {
			t.emitCommentSpan(t.commentStart, t.cursor+i)
			t.cursor += i + 1
			t.transition(stateData)
			return true
		}
	}
	t.cursor += len(w)
	return false
}

func (t *Tokenizer) resetDoctype() {
	t.doctype = pendingDoctype{name: atom.Invalid, nameStart: -1, idStart: -1}
}

func (t *Tokenizer) internDoctypeName(end int) {
	t.doctype.name = t.ctx.Atoms.Intern(t.spanBytes(t.doctype.nameStart, end))
}

// captureDoctypeID closes the quoted public or system identifier at end.
func (t *Tokenizer) captureDoctypeID(end int, public bool) {
	text := string(t.spanBytes(t.doctype.idStart, end))
	if public {
		t.doctype.publicID = text
		t.doctype.hasPublic = true
	} else {
		t.doctype.systemID = text
		t.doctype.hasSystem = true
	}
}

func (t *Tokenizer) emitDoctype() {
	t.emit(token.Token{
		Kind:        token.KindDoctype,
		Name:        t.doctype.name,
		PublicID:    t.doctype.publicID,
		SystemID:    t.doctype.systemID,
		HasPublicID: t.doctype.hasPublic,
		HasSystemID: t.doctype.hasSystem,
		ForceQuirks: t.doctype.forceQuirks,
	})
}

func (t *Tokenizer) stepDoctype() bool {
	for {
		b, ok := t.peek()
		if !ok {
			return false
		}
		switch t.state {
		case stateDoctype:
			if isWhitespace(b) {
				t.cursor++
			} else if b != '>' {
				t.recordError(token.ErrMalformedDoctype, "missing whitespace before doctype name")
			}
			t.transition(stateBeforeDoctypeName)
		case stateBeforeDoctypeName:
			switch {
			case isWhitespace(b):
				t.cursor++
			case b == '>':
				t.recordError(token.ErrMalformedDoctype, "missing doctype name")
				t.cursor++
				t.doctype.forceQuirks = true
				t.emitDoctype()
				t.transition(stateData)
				return true
			default:
				t.doctype.nameStart = t.cursor
				t.transition(stateDoctypeName)
			}
		case stateDoctypeName:
			switch {
			case isWhitespace(b):
				t.internDoctypeName(t.cursor)
				t.cursor++
				t.transition(stateAfterDoctypeName)
			case b == '>':
				t.internDoctypeName(t.cursor)
				t.cursor++
				t.emitDoctype()
				t.transition(stateData)
				return true
			default:
				t.cursor++
			}
		case stateAfterDoctypeName:
			switch {
			case isWhitespace(b):
				t.cursor++
			case b == '>':
				t.cursor++
				t.emitDoctype()
				t.transition(stateData)
				return true
			default:
				switch t.matchASCIIFold("public") {
				case matchYes:
					t.cursor += len("public")
					t.transition(stateAfterDoctypePublicKeyword)
					continue
				case matchNeedMore:
					return false
				case matchNo:
				}
				switch t.matchASCIIFold("system") {
				case matchYes:
					t.cursor += len("system")
					t.transition(stateAfterDoctypeSystemKeyword)
					continue
				case matchNeedMore:
					return false
				case matchNo:
				}
				t.recordError(token.ErrMalformedDoctype, "invalid character sequence after doctype name")
				t.doctype.forceQuirks = true
				t.transition(stateBogusDoctype)
			}
		case stateAfterDoctypePublicKeyword, stateAfterDoctypeSystemKeyword:
			public := t.state == stateAfterDoctypePublicKeyword
			next := stateBeforeDoctypeSystemID
			if public {
				next = stateBeforeDoctypePublicID
			}
			switch {
			case isWhitespace(b):
				t.cursor++
				t.transition(next)
			case b == '"' || b == '\'':
				t.recordError(token.ErrMalformedDoctype, "missing whitespace after doctype keyword")
				t.transition(next)
			case b == '>':
				t.recordError(token.ErrMalformedDoctype, "missing doctype identifier")
				t.cursor++
				t.doctype.forceQuirks = true
				t.emitDoctype()
				t.transition(stateData)
				return true
			default:
				t.recordError(token.ErrMalformedDoctype, "missing quote before doctype identifier")
				t.doctype.forceQuirks = true
				t.transition(stateBogusDoctype)
			}
		case stateBeforeDoctypePublicID, stateBeforeDoctypeSystemID:
			public := t.state == stateBeforeDoctypePublicID
			switch {
			case isWhitespace(b):
				t.cursor++
			case b == '"' || b == '\'':
				t.doctype.quote = b
				t.cursor++
				t.doctype.idStart = t.cursor
				if public {
					t.transition(stateDoctypePublicIDQuoted)
				} else {
					t.transition(stateDoctypeSystemIDQuoted)
				}
			case b == '>':
				t.recordError(token.ErrMalformedDoctype, "missing doctype identifier")
				t.cursor++
				t.doctype.forceQuirks = true
				t.emitDoctype()
				t.transition(stateData)
				return true
			default:
				t.recordError(token.ErrMalformedDoctype, "missing quote before doctype identifier")
				t.doctype.forceQuirks = true
				t.transition(stateBogusDoctype)
			}
		case stateDoctypePublicIDQuoted, stateDoctypeSystemIDQuoted:
			public := t.state == stateDoctypePublicIDQuoted
			switch b {
			case t.doctype.quote:
				t.captureDoctypeID(t.cursor, public)
				t.cursor++
				if public {
					t.transition(stateAfterDoctypePublicID)
				} else {
					t.transition(stateAfterDoctypeSystemID)
				}
			case '>':
				t.recordError(token.ErrMalformedDoctype, "abrupt doctype identifier")
				t.captureDoctypeID(t.cursor, public)
				t.cursor++
				t.doctype.forceQuirks = true
				t.emitDoctype()
				t.transition(stateData)
				return true
			default:
				t.cursor++
			}
		case stateAfterDoctypePublicID:
			switch {
			case isWhitespace(b):
				t.cursor++
			case b == '"' || b == '\'':
				t.doctype.quote = b
				t.cursor++
				t.doctype.idStart = t.cursor
				t.transition(stateDoctypeSystemIDQuoted)
			case b == '>':
				t.cursor++
				t.emitDoctype()
				t.transition(stateData)
				return true
			default:
				t.recordError(token.ErrMalformedDoctype, "missing quote before doctype system identifier")
				t.doctype.forceQuirks = true
				t.transition(stateBogusDoctype)
			}
		case stateAfterDoctypeSystemID:
			switch {
			case isWhitespace(b):
				t.cursor++
			case b == '>':
				t.cursor++
				t.emitDoctype()
				t.transition(stateData)
				return true
			default:
				// Trailing junk does not force quirks here.
				t.recordError(token.ErrMalformedDoctype, "unexpected character after doctype system identifier")
				t.transition(stateBogusDoctype)
			}
		case stateBogusDoctype:
			if b == '>' {
				t.cursor++
				t.emitDoctype()
				t.transition(stateData)
				return true
			}
			t.cursor++
		default:
			return false
		}
	}
}
