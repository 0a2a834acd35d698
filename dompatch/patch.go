// Package dompatch defines the incremental DOM patch protocol emitted by
// the parse session and applied by a consumer-side store.
//
// Batches are transactional: a consumer applies all patches of a batch or
// none. Node keys are monotonic and never reused within a document
// handle's lifetime, including across Clear baselines.
package dompatch

import (
	"fmt"
	"strings"
)

// Key is the stable handle of a DOM node in the patch protocol.
// Zero is reserved as invalid.
type Key uint64

// InvalidKey is the reserved "unassigned" key.
const InvalidKey Key = 0

// Handle identifies one document instance at the consumer.
type Handle uint64

// Version is the monotonic document version advanced by each batch.
type Version uint64

// Op identifies a patch operation.
type Op uint8

const (
	OpClear Op = iota
	OpCreateDocument
	OpCreateElement
	OpCreateText
	OpCreateComment
	OpAppendChild
	OpSetText
	OpSetAttribute
)

// String returns a stable name for the operation.
func (o Op) String() string {
	switch o {
	case OpClear:
		return "clear"
	case OpCreateDocument:
		return "create-document"
	case OpCreateElement:
		return "create-element"
	case OpCreateText:
		return "create-text"
	case OpCreateComment:
		return "create-comment"
	case OpAppendChild:
		return "append-child"
	case OpSetText:
		return "set-text"
	case OpSetAttribute:
		return "set-attribute"
	default:
		return "unknown"
	}
}

// Attribute is one element attribute in a patch payload.
// Boolean attributes carry an empty Value.
type Attribute struct {
	Name  string
	Value string
}

// Patch is one DOM mutation operation.
//
// Field usage by operation:
//
//	Clear          -
//	CreateDocument Key, Text (doctype name, may be empty), HasText
//	CreateElement  Key, Parent, Name, Attrs
//	CreateText     Key, Parent, Text (initial content)
//	CreateComment  Key, Parent, Text
//	AppendChild    Parent, Key (child)
//	SetText        Key, Text (cumulative full content)
//	SetAttribute   Key, Name, Value
type Patch struct {
	Op      Op
	Key     Key
	Parent  Key
	Name    string
	Value   string
	Text    string
	HasText bool
	Attrs   []Attribute
}

// String renders the patch in a stable single-line form used by golden
// tests and the CLI.
func (p Patch) String() string {
	var b strings.Builder
	b.WriteString(p.Op.String())
	switch p.Op {
	case OpClear:
	case OpCreateDocument:
		fmt.Fprintf(&b, " key=%d", p.Key)
		if p.HasText {
			fmt.Fprintf(&b, " doctype=%q", p.Text)
		}
	case OpCreateElement:
		fmt.Fprintf(&b, " key=%d parent=%d name=%s", p.Key, p.Parent, p.Name)
		for _, a := range p.Attrs {
			fmt.Fprintf(&b, " %s=%q", a.Name, a.Value)
		}
	case OpCreateText:
		fmt.Fprintf(&b, " key=%d parent=%d text=%q", p.Key, p.Parent, p.Text)
	case OpCreateComment:
		fmt.Fprintf(&b, " key=%d parent=%d text=%q", p.Key, p.Parent, p.Text)
	case OpAppendChild:
		fmt.Fprintf(&b, " parent=%d child=%d", p.Parent, p.Key)
	case OpSetText:
		fmt.Fprintf(&b, " key=%d text=%q", p.Key, p.Text)
	case OpSetAttribute:
		fmt.Fprintf(&b, " key=%d name=%s value=%q", p.Key, p.Name, p.Value)
	}
	return b.String()
}

// Batch is one transactional patch batch for a document handle.
// Versions are increment-only: applying requires the store to be at From
// and moves it to To.
type Batch struct {
	Handle  Handle
	From    Version
	To      Version
	Patches []Patch
}

// Allocator issues monotonic node keys for one document handle.
//
// The allocator is never reset, including across Clear baselines, so a
// key can never be observed twice for the same handle.
type Allocator struct {
	next Key
}

// NewAllocator returns an allocator whose first key is 1.
func NewAllocator() *Allocator {
	return &Allocator{next: 1}
}

// Next returns a fresh key.
func (a *Allocator) Next() Key {
	k := a.next
	a.next++
	return k
}

// Peek returns the key the next call to Next will return.
func (a *Allocator) Peek() Key {
	return a.next
}
