package treebuilder

import (
	"strings"

	"github.com/jacoelho/htmlstream/internal/atom"
	"github.com/jacoelho/htmlstream/internal/token"
	"github.com/jacoelho/htmlstream/internal/tokenizer"
)

const asciiWhitespace = " \t\n\f\r"

func splitLeadingWhitespace(s string) (lead, rest string) {
	i := 0
	for i < len(s) && strings.IndexByte(asciiWhitespace, s[i]) >= 0 {
		i++
	}
	return s[:i], s[i:]
}

// doctypeMode decides the document compatibility mode from the doctype
// token. The well-known XHTML and HTML 4.01 transitional identifiers
// select limited quirks; anything not plainly "html" selects quirks.
func doctypeMode(tok *token.Token) token.DocMode {
	if tok.ForceQuirks || tok.Name != atomHTML {
		return token.ModeQuirks
	}
	if tok.HasPublicID {
		p := strings.ToLower(tok.PublicID)
		switch {
		case strings.HasPrefix(p, "-//w3c//dtd xhtml 1.0 frameset//"),
			strings.HasPrefix(p, "-//w3c//dtd xhtml 1.0 transitional//"):
			return token.ModeLimitedQuirks
		case tok.HasSystemID &&
			(strings.HasPrefix(p, "-//w3c//dtd html 4.01 frameset//") ||
				strings.HasPrefix(p, "-//w3c//dtd html 4.01 transitional//")):
			return token.ModeLimitedQuirks
		}
	}
	return token.ModeNoQuirks
}

func (b *Builder) modeInitial(tok *token.Token) (bool, error) {
	switch tok.Kind {
	case token.KindDoctype:
		b.doctypeSeen = true
		if tok.Name != atom.Invalid {
			b.doctypeName = b.ctx.Atoms.Name(tok.Name)
		}
		b.ctx.LockMode(doctypeMode(tok))
		b.mode = ModeBeforeHTML
		return false, nil
	case token.KindComment:
		b.insertComment(b.text)
		return false, nil
	case token.KindText:
		_, rest := splitLeadingWhitespace(b.text)
		if rest == "" {
			return false, nil
		}
		b.text = rest
	}
	b.recordError(token.ErrUnexpectedToken, "content before doctype")
	b.ctx.LockMode(token.ModeQuirks)
	b.mode = ModeBeforeHTML
	return true, nil
}

func (b *Builder) modeBeforeHTML(tok *token.Token) (bool, error) {
	switch tok.Kind {
	case token.KindDoctype:
		b.recordError(token.ErrUnexpectedToken, "duplicate doctype")
		return false, nil
	case token.KindComment:
		b.insertComment(b.text)
		return false, nil
	case token.KindText:
		_, rest := splitLeadingWhitespace(b.text)
		if rest == "" {
			return false, nil
		}
		b.text = rest
	case token.KindStartTag:
		if tok.Name == atomHTML {
			b.htmlKey = b.insertElement(atomHTML, b.attrs, true)
			b.htmlAttrs = attrNameSet(b.attrs)
			b.mode = ModeBeforeHead
			return false, nil
		}
	case token.KindEndTag:
		switch tok.Name {
		case atomHead, atomBody, atomHTML, atomBr:
		default:
			b.recordError(token.ErrUnexpectedToken, "end tag before html")
			return false, nil
		}
	}
	b.htmlKey = b.insertElement(atomHTML, nil, true)
	b.htmlAttrs = make(map[string]struct{})
	b.mode = ModeBeforeHead
	return true, nil
}

func (b *Builder) modeBeforeHead(tok *token.Token) (bool, error) {
	switch tok.Kind {
	case token.KindDoctype:
		b.recordError(token.ErrUnexpectedToken, "doctype after html")
		return false, nil
	case token.KindComment:
		b.insertComment(b.text)
		return false, nil
	case token.KindText:
		_, rest := splitLeadingWhitespace(b.text)
		if rest == "" {
			return false, nil
		}
		b.text = rest
	case token.KindStartTag:
		switch tok.Name {
		case atomHTML:
			b.mergeAttrs(b.htmlKey, b.htmlAttrs, b.attrs)
			return false, nil
		case atomHead:
			b.insertElement(atomHead, b.attrs, true)
			b.mode = ModeInHead
			return false, nil
		}
	case token.KindEndTag:
		switch tok.Name {
		case atomHead, atomBody, atomHTML, atomBr:
		default:
			b.recordError(token.ErrUnexpectedToken, "end tag before head")
			return false, nil
		}
	}
	b.insertElement(atomHead, nil, true)
	b.mode = ModeInHead
	return true, nil
}

func (b *Builder) modeInHead(tok *token.Token) (bool, error) {
	switch tok.Kind {
	case token.KindDoctype:
		b.recordError(token.ErrUnexpectedToken, "doctype in head")
		return false, nil
	case token.KindComment:
		b.insertComment(b.text)
		return false, nil
	case token.KindText:
		// Inside an open head container (title, style, ...) all text
		// belongs to that element.
		if b.insideHeadContainer() {
			b.insertText(b.text)
			return false, nil
		}
		lead, rest := splitLeadingWhitespace(b.text)
		if lead != "" {
			b.insertText(lead)
		}
		if rest == "" {
			return false, nil
		}
		b.text = rest
	case token.KindStartTag:
		name := tok.Name
		switch {
		case name == atomHTML:
			b.mergeAttrs(b.htmlKey, b.htmlAttrs, b.attrs)
			return false, nil
		case name == atomHead:
			b.recordError(token.ErrUnexpectedToken, "nested head")
			return false, nil
		default:
			if _, ok := headVoids[name]; ok {
				b.insertElement(name, b.attrs, false)
				return false, nil
			}
			if _, ok := headContainers[name]; ok {
				// Content is parsed as ordinary markup rather than raw
				// text; the counter records the downgrade.
				b.ctx.Counters.FallbackElements++
				b.insertElement(name, b.attrs, true)
				return false, nil
			}
		}
	case token.KindEndTag:
		switch tok.Name {
		case atomHead:
			b.popPast(atomHead)
			b.mode = ModeAfterHead
			return false, nil
		case atomBody, atomHTML, atomBr:
		default:
			if _, ok := headContainers[tok.Name]; ok {
				if i := b.indexOf(tok.Name); i >= 0 {
					b.popTo(i)
					return false, nil
				}
			}
			b.recordError(token.ErrMisnestedTag, "unmatched end tag in head")
			return false, nil
		}
	}
	b.popPast(atomHead)
	b.mode = ModeAfterHead
	return true, nil
}

func (b *Builder) modeAfterHead(tok *token.Token) (bool, error) {
	switch tok.Kind {
	case token.KindDoctype:
		b.recordError(token.ErrUnexpectedToken, "doctype after head")
		return false, nil
	case token.KindComment:
		b.insertComment(b.text)
		return false, nil
	case token.KindText:
		lead, rest := splitLeadingWhitespace(b.text)
		if lead != "" {
			b.insertText(lead)
		}
		if rest == "" {
			return false, nil
		}
		b.text = rest
	case token.KindStartTag:
		switch tok.Name {
		case atomHTML:
			b.mergeAttrs(b.htmlKey, b.htmlAttrs, b.attrs)
			return false, nil
		case atomBody:
			b.bodyKey = b.insertElement(atomBody, b.attrs, true)
			b.bodyAttrs = attrNameSet(b.attrs)
			b.mode = ModeInBody
			return false, nil
		case atomHead:
			b.recordError(token.ErrUnexpectedToken, "head after head")
			return false, nil
		}
	case token.KindEndTag:
		switch tok.Name {
		case atomBody, atomHTML, atomBr:
		default:
			b.recordError(token.ErrUnexpectedToken, "end tag after head")
			return false, nil
		}
	}
	b.bodyKey = b.insertElement(atomBody, nil, true)
	b.bodyAttrs = make(map[string]struct{})
	b.mode = ModeInBody
	return true, nil
}

func (b *Builder) modeInBody(tok *token.Token) (bool, error) {
	switch tok.Kind {
	case token.KindDoctype:
		b.recordError(token.ErrUnexpectedToken, "doctype in body")
		return false, nil
	case token.KindComment:
		b.insertComment(b.text)
		return false, nil
	case token.KindText:
		b.reconstructFormatting()
		b.insertText(b.text)
		return false, nil
	case token.KindStartTag:
		return b.inBodyStartTag(tok)
	case token.KindEndTag:
		return b.inBodyEndTag(tok)
	case token.KindEOF:
		b.endTextRun()
		return false, nil
	}
	return false, nil
}

func (b *Builder) inBodyStartTag(tok *token.Token) (bool, error) {
	name := tok.Name
	switch name {
	case atomHTML:
		b.recordError(token.ErrUnexpectedToken, "duplicate html")
		b.mergeAttrs(b.htmlKey, b.htmlAttrs, b.attrs)
		return false, nil
	case atomBody:
		b.recordError(token.ErrUnexpectedToken, "duplicate body")
		b.mergeAttrs(b.bodyKey, b.bodyAttrs, b.attrs)
		return false, nil
	case atomHead:
		b.recordError(token.ErrUnexpectedToken, "head in body")
		return false, nil
	}

	_, isBlock := closesParagraph[name]
	if isBlock {
		b.closeParagraphIfOpen()
	}

	switch {
	case isFormatting(name):
		b.reconstructFormatting()
		key := b.insertElement(name, b.attrs, true)
		b.afePushElement(key, name, b.attrs)
	case isScopeMarker(name):
		b.reconstructFormatting()
		b.insertElement(name, b.attrs, true)
		b.afePushMarker()
	case tokenizer.IsVoidElement(name):
		// Block-level tags do not reconstruct formatting; phrasing ones do.
		if !isBlock {
			b.reconstructFormatting()
		}
		b.insertElement(name, b.attrs, false)
	default:
		if !isBlock {
			b.reconstructFormatting()
		}
		b.insertElement(name, b.attrs, true)
	}
	return false, nil
}

func (b *Builder) inBodyEndTag(tok *token.Token) (bool, error) {
	name := tok.Name
	switch name {
	case atomBody, atomHTML:
		// Body and html stay open until end of stream so trailing
		// content still lands in the body.
		return false, nil
	case atomP:
		if b.bodyScopeIndex(atomP) < 0 {
			b.recordError(token.ErrMisnestedTag, "unmatched </p>")
			return false, nil
		}
		b.closeParagraphIfOpen()
		return false, nil
	case atomBr:
		b.recordError(token.ErrUnexpectedToken, "</br> treated as <br>")
		b.reconstructFormatting()
		b.insertElement(atomBr, nil, false)
		return false, nil
	}

	switch {
	case isFormatting(name):
		// No adoption agency: the matching open element is popped when
		// present and the formatting entry dropped, which keeps
		// misnested formatting deterministic at the cost of
		// standard-exact trees.
		i := b.bodyScopeIndex(name)
		if i < 0 {
			b.recordError(token.ErrMisnestedTag, "unmatched formatting end tag")
			b.afeRemoveLatest(name)
			return false, nil
		}
		b.popTo(i)
		b.afeRemoveLatest(name)
	case isScopeMarker(name):
		i := b.bodyScopeIndex(name)
		if i < 0 {
			b.recordError(token.ErrMisnestedTag, "unmatched end tag")
			return false, nil
		}
		b.popTo(i)
		b.afeClearToMarker()
	default:
		i := b.bodyScopeIndex(name)
		if i < 0 {
			b.recordError(token.ErrMisnestedTag, "unmatched end tag")
			return false, nil
		}
		b.popTo(i)
	}
	return false, nil
}

func (b *Builder) insideHeadContainer() bool {
	if len(b.open) == 0 {
		return false
	}
	_, ok := headContainers[b.open[len(b.open)-1].name]
	return ok
}

func (b *Builder) indexOf(name atom.ID) int {
	for i := len(b.open) - 1; i >= 0; i-- {
		if b.open[i].name == name {
			return i
		}
	}
	return -1
}

func isFormatting(name atom.ID) bool {
	_, ok := formattingElements[name]
	return ok
}

func isScopeMarker(name atom.ID) bool {
	_, ok := scopeMarkers[name]
	return ok
}
