// Package token defines the tokenizer output model and the document-scoped
// parse context shared by the tokenizer and tree builder.
package token

import (
	"github.com/jacoelho/htmlstream/internal/atom"
	"github.com/jacoelho/htmlstream/internal/textbuf"
)

// Kind identifies the kind of a tokenizer output unit.
type Kind uint8

const (
	KindNone Kind = iota
	KindDoctype
	KindStartTag
	KindEndTag
	KindComment
	KindText
	KindEOF
)

// String returns a stable name for the kind, suitable for debugging.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindDoctype:
		return "Doctype"
	case KindStartTag:
		return "StartTag"
	case KindEndTag:
		return "EndTag"
	case KindComment:
		return "Comment"
	case KindText:
		return "Text"
	case KindEOF:
		return "EOF"
	default:
		return "Unknown"
	}
}

// Attr is one attribute on a start tag.
//
// Value is either a span into the decoded buffer (owned == false) or an
// owned string produced by entity decoding. Spans are valid only within
// the batch epoch that delivered the token.
type Attr struct {
	Name     atom.ID
	Value    textbuf.Span
	Owned    string
	IsOwned  bool
	HasValue bool
}

// Token is one tokenizer output unit.
//
// Span payloads (Text, attribute values) are valid only within the batch
// epoch that delivered the token and must be copied before the epoch ends.
type Token struct {
	Kind        Kind
	Name        atom.ID
	Attrs       []Attr
	SelfClosing bool

	// Text and comment payload: span form or owned form.
	Text      textbuf.Span
	Owned     string
	IsOwned   bool

	// Doctype payload.
	PublicID    string
	SystemID    string
	HasPublicID bool
	HasSystemID bool
	ForceQuirks bool
}
