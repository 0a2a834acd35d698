package treebuilder

import (
	xatom "golang.org/x/net/html/atom"

	"github.com/jacoelho/htmlstream/dompatch"
	"github.com/jacoelho/htmlstream/internal/atom"
)

var (
	atomHTML = atom.Known(xatom.Html)
	atomHead = atom.Known(xatom.Head)
	atomBody = atom.Known(xatom.Body)
	atomP    = atom.Known(xatom.P)
	atomBr   = atom.Known(xatom.Br)
)

func knownSet(as ...xatom.Atom) map[atom.ID]struct{} {
	s := make(map[atom.ID]struct{}, len(as))
	for _, a := range as {
		s[atom.Known(a)] = struct{}{}
	}
	return s
}

// formattingElements take part in active formatting reconstruction.
var formattingElements = knownSet(
	xatom.A, xatom.B, xatom.Big, xatom.Code, xatom.Em, xatom.Font,
	xatom.I, xatom.Nobr, xatom.S, xatom.Small, xatom.Strike,
	xatom.Strong, xatom.Tt, xatom.U,
)

// scopeMarkers insert a marker into the active formatting list so
// reconstruction never crosses their boundary.
var scopeMarkers = knownSet(xatom.Applet, xatom.Marquee, xatom.Object, xatom.Template)

// closesParagraph lists start tags that imply </p> when a p element is
// open in body scope.
var closesParagraph = knownSet(
	xatom.Address, xatom.Article, xatom.Aside, xatom.Blockquote,
	xatom.Center, xatom.Details, xatom.Dialog, xatom.Dir, xatom.Div,
	xatom.Dl, xatom.Fieldset, xatom.Figcaption, xatom.Figure,
	xatom.Footer, xatom.Form, xatom.H1, xatom.H2, xatom.H3, xatom.H4,
	xatom.H5, xatom.H6, xatom.Header, xatom.Hgroup, xatom.Hr,
	xatom.Listing, xatom.Main, xatom.Menu, xatom.Nav, xatom.Ol,
	xatom.P, xatom.Plaintext, xatom.Pre, xatom.Section, xatom.Summary,
	xatom.Table, xatom.Ul,
)

// headVoids are the void elements the in-head mode keeps in the head.
var headVoids = knownSet(xatom.Base, xatom.Basefont, xatom.Bgsound, xatom.Link, xatom.Meta)

// headContainers are the head elements whose content would normally
// switch the tokenizer; their content is parsed as ordinary markup and
// the fallback counter records the downgrade.
var headContainers = knownSet(
	xatom.Title, xatom.Style, xatom.Script, xatom.Noscript,
	xatom.Noframes, xatom.Template,
)

func (b *Builder) emit(p dompatch.Patch) {
	b.patches = append(b.patches, p)
}

// ensureDocument emits the document creation patch on first use. The
// doctype, when one was seen, rides on it; a document is created at
// most once per baseline.
func (b *Builder) ensureDocument() dompatch.Key {
	if !b.docEmitted {
		b.docKey = b.keys.Next()
		b.emit(dompatch.Patch{
			Op:      dompatch.OpCreateDocument,
			Key:     b.docKey,
			Text:    b.doctypeName,
			HasText: b.doctypeSeen,
		})
		b.docEmitted = true
	}
	return b.docKey
}

func (b *Builder) currentParent() dompatch.Key {
	if n := len(b.open); n > 0 {
		return b.open[n-1].key
	}
	return b.ensureDocument()
}

// endTextRun seals the current text run. The next text insertion starts
// a new node.
func (b *Builder) endTextRun() {
	b.hasPending = false
}

func (b *Builder) insertElement(name atom.ID, attrs []dompatch.Attribute, push bool) dompatch.Key {
	b.endTextRun()
	parent := b.currentParent()
	key := b.keys.Next()
	b.emit(dompatch.Patch{
		Op:     dompatch.OpCreateElement,
		Key:    key,
		Parent: parent,
		Name:   b.ctx.Atoms.Name(name),
		Attrs:  attrs,
	})
	b.emit(dompatch.Patch{Op: dompatch.OpAppendChild, Parent: parent, Key: key})
	if push {
		b.open = append(b.open, openElement{key: key, name: name})
	}
	return key
}

func (b *Builder) insertComment(text string) {
	b.endTextRun()
	parent := b.currentParent()
	key := b.keys.Next()
	b.emit(dompatch.Patch{Op: dompatch.OpCreateComment, Key: key, Parent: parent, Text: text})
	b.emit(dompatch.Patch{Op: dompatch.OpAppendChild, Parent: parent, Key: key})
}

// insertText inserts character data at the current position. Adjacent
// runs under the same parent extend one text node: the first run is a
// creation, every extension re-emits the node's cumulative content.
func (b *Builder) insertText(text string) {
	if text == "" {
		return
	}
	parent := b.currentParent()
	if b.cfg.CoalesceText && b.hasPending && b.pending.parent == parent {
		b.pending.text = append(b.pending.text, text...)
		b.emit(dompatch.Patch{
			Op:   dompatch.OpSetText,
			Key:  b.pending.key,
			Text: string(b.pending.text),
		})
		return
	}
	key := b.keys.Next()
	b.emit(dompatch.Patch{Op: dompatch.OpCreateText, Key: key, Parent: parent, Text: text})
	b.emit(dompatch.Patch{Op: dompatch.OpAppendChild, Parent: parent, Key: key})
	b.pending = pendingText{parent: parent, key: key, text: append([]byte(nil), text...)}
	b.hasPending = b.cfg.CoalesceText
}

// mergeAttrs applies attributes from a duplicate start tag onto an
// already created element. Existing names win.
func (b *Builder) mergeAttrs(key dompatch.Key, present map[string]struct{}, attrs []dompatch.Attribute) {
	for _, a := range attrs {
		if _, ok := present[a.Name]; ok {
			continue
		}
		present[a.Name] = struct{}{}
		b.emit(dompatch.Patch{Op: dompatch.OpSetAttribute, Key: key, Name: a.Name, Value: a.Value})
	}
}

func attrNameSet(attrs []dompatch.Attribute) map[string]struct{} {
	s := make(map[string]struct{}, len(attrs))
	for _, a := range attrs {
		s[a.Name] = struct{}{}
	}
	return s
}

// bodyScopeIndex finds the nearest open element with the given name,
// stopping at the html and body boundary so end tags in body never
// unwind the document scaffold.
func (b *Builder) bodyScopeIndex(name atom.ID) int {
	for i := len(b.open) - 1; i >= 0; i-- {
		e := b.open[i]
		if e.name == name {
			return i
		}
		if e.name == atomHTML || e.name == atomBody {
			return -1
		}
	}
	return -1
}

func (b *Builder) popTo(i int) {
	b.open = b.open[:i]
	b.endTextRun()
}

// popPast pops open elements until the named element was popped.
func (b *Builder) popPast(name atom.ID) {
	for i := len(b.open) - 1; i >= 0; i-- {
		if b.open[i].name == name {
			b.popTo(i)
			return
		}
	}
}

func (b *Builder) closeParagraphIfOpen() {
	if i := b.bodyScopeIndex(atomP); i >= 0 {
		b.popTo(i)
	}
}

func (b *Builder) onOpenStack(key dompatch.Key) bool {
	for i := range b.open {
		if b.open[i].key == key {
			return true
		}
	}
	return false
}

func (b *Builder) afePushMarker() {
	b.afe = append(b.afe, afeEntry{marker: true})
}

// afePushElement records a formatting element. A simplified Noah's ark
// clause caps identical names between markers at three, dropping the
// oldest.
func (b *Builder) afePushElement(key dompatch.Key, name atom.ID, attrs []dompatch.Attribute) {
	count := 0
	oldest := -1
	for i := len(b.afe) - 1; i >= 0; i-- {
		e := b.afe[i]
		if e.marker {
			break
		}
		if e.name == name {
			count++
			oldest = i
		}
	}
	if count >= 3 {
		b.afe = append(b.afe[:oldest], b.afe[oldest+1:]...)
	}
	b.afe = append(b.afe, afeEntry{key: key, name: name, attrs: attrs})
}

func (b *Builder) afeClearToMarker() {
	for len(b.afe) > 0 {
		last := b.afe[len(b.afe)-1]
		b.afe = b.afe[:len(b.afe)-1]
		if last.marker {
			return
		}
	}
}

// afeRemoveLatest drops the most recent non-marker entry with the given
// name, searching no further back than the nearest marker.
func (b *Builder) afeRemoveLatest(name atom.ID) {
	for i := len(b.afe) - 1; i >= 0; i-- {
		e := b.afe[i]
		if e.marker {
			return
		}
		if e.name == name {
			b.afe = append(b.afe[:i], b.afe[i+1:]...)
			return
		}
	}
}

// reconstructFormatting reopens formatting elements that were closed by
// block boundaries. Entries already on the open stack, and everything
// behind the nearest marker, stay untouched; reopened entries are
// rebound to their fresh keys.
func (b *Builder) reconstructFormatting() {
	n := len(b.afe)
	if n == 0 {
		return
	}
	if e := b.afe[n-1]; e.marker || b.onOpenStack(e.key) {
		return
	}
	i := n - 1
	for i > 0 {
		prev := b.afe[i-1]
		if prev.marker || b.onOpenStack(prev.key) {
			break
		}
		i--
	}
	for ; i < n; i++ {
		e := &b.afe[i]
		attrs := append([]dompatch.Attribute(nil), e.attrs...)
		e.key = b.insertElement(e.name, attrs, true)
	}
}
