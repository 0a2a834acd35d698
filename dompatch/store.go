package dompatch

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrUnknownHandle   = errors.New("unknown document handle")
	ErrDuplicateHandle = errors.New("document handle already exists")
	ErrVersionMismatch = errors.New("batch version does not match store version")
	ErrClearPlacement  = errors.New("clear patch outside batch position 0")
	ErrInvalidKey      = errors.New("invalid node key")
	ErrReusedKey       = errors.New("node key reused within handle lifetime")
	ErrMissingKey      = errors.New("node key does not exist")
	ErrWrongNodeKind   = errors.New("operation applied to wrong node kind")
	ErrNotContainer    = errors.New("parent node cannot hold children")
	ErrCycle           = errors.New("append would create a cycle")
	ErrHasParent       = errors.New("child already has a parent")
	ErrDuplicateRoot   = errors.New("document already created for baseline")
)

// ProtocolError reports a rejected batch with the offending patch index.
type ProtocolError struct {
	Handle Handle
	Index  int
	Patch  Patch
	Err    error
}

// Error formats the protocol violation.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("patch protocol violation at index %d (%s): %v", e.Index, e.Patch, e.Err)
}

// Unwrap exposes the underlying sentinel.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// NodeKind identifies a materialized node kind.
type NodeKind uint8

const (
	KindDocument NodeKind = iota
	KindElement
	KindText
	KindComment
)

// Node is a materialized DOM node snapshot.
type Node struct {
	Kind     NodeKind
	Key      Key
	Name     string
	Attrs    []Attribute
	Text     string
	Doctype  string
	Children []*Node
}

type storeNode struct {
	kind     NodeKind
	name     string
	attrs    []Attribute
	text     string
	doctype  string
	parent   Key
	children []Key
}

type document struct {
	version Version
	nodes   map[Key]*storeNode
	root    Key
	// seen records every key ever created for this handle; it survives
	// Clear so reuse across baselines is detected as a violation.
	seen map[Key]struct{}
}

// Store is a consumer-side DOM store applying patch batches
// transactionally and validating the protocol invariants.
type Store struct {
	docs map[Handle]*document
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{docs: make(map[Handle]*document)}
}

// Create registers a new document handle at the initial version.
func (s *Store) Create(h Handle) error {
	if _, ok := s.docs[h]; ok {
		return fmt.Errorf("create handle %d: %w", h, ErrDuplicateHandle)
	}
	s.docs[h] = &document{
		nodes: make(map[Key]*storeNode),
		seen:  make(map[Key]struct{}),
	}
	return nil
}

// Drop discards a document handle and all its nodes.
func (s *Store) Drop(h Handle) {
	delete(s.docs, h)
}

// Version reports the current version for a handle.
func (s *Store) Version(h Handle) (Version, error) {
	doc, ok := s.docs[h]
	if !ok {
		return 0, fmt.Errorf("version of handle %d: %w", h, ErrUnknownHandle)
	}
	return doc.version, nil
}

// Apply applies one batch transactionally: on any protocol violation the
// document is left exactly as before and a ProtocolError is returned.
func (s *Store) Apply(b Batch) error {
	doc, ok := s.docs[b.Handle]
	if !ok {
		return fmt.Errorf("apply batch: %w", ErrUnknownHandle)
	}
	if doc.version != b.From {
		return fmt.Errorf("apply batch: have %d, batch from %d: %w",
			doc.version, b.From, ErrVersionMismatch)
	}

	staged := doc.clone()
	for i, p := range b.Patches {
		if err := staged.apply(p, i == 0); err != nil {
			return &ProtocolError{Handle: b.Handle, Index: i, Patch: p, Err: err}
		}
	}
	staged.version = b.To
	s.docs[b.Handle] = staged
	return nil
}

// Materialize returns a deep snapshot of the current tree, or nil when no
// document baseline exists yet.
func (s *Store) Materialize(h Handle) (*Node, error) {
	doc, ok := s.docs[h]
	if !ok {
		return nil, fmt.Errorf("materialize handle %d: %w", h, ErrUnknownHandle)
	}
	if doc.root == InvalidKey {
		return nil, nil
	}
	return doc.materialize(doc.root), nil
}

func (d *document) clone() *document {
	nodes := make(map[Key]*storeNode, len(d.nodes))
	for k, n := range d.nodes {
		c := &storeNode{
			kind:    n.kind,
			name:    n.name,
			text:    n.text,
			doctype: n.doctype,
			parent:  n.parent,
		}
		c.attrs = append(c.attrs, n.attrs...)
		c.children = append(c.children, n.children...)
		nodes[k] = c
	}
	seen := make(map[Key]struct{}, len(d.seen))
	for k := range d.seen {
		seen[k] = struct{}{}
	}
	return &document{
		version: d.version,
		nodes:   nodes,
		root:    d.root,
		seen:    seen,
	}
}

func (d *document) apply(p Patch, first bool) error {
	switch p.Op {
	case OpClear:
		if !first {
			return ErrClearPlacement
		}
		// New baseline: all prior keys are invalidated but stay recorded
		// in seen so they can never come back.
		d.nodes = make(map[Key]*storeNode)
		d.root = InvalidKey
		return nil
	case OpCreateDocument:
		if err := d.create(p.Key); err != nil {
			return err
		}
		if d.root != InvalidKey {
			return ErrDuplicateRoot
		}
		d.nodes[p.Key] = &storeNode{kind: KindDocument, doctype: p.Text}
		d.root = p.Key
		return nil
	case OpCreateElement:
		if err := d.create(p.Key); err != nil {
			return err
		}
		n := &storeNode{kind: KindElement, name: p.Name}
		n.attrs = append(n.attrs, p.Attrs...)
		d.nodes[p.Key] = n
		return nil
	case OpCreateText:
		if err := d.create(p.Key); err != nil {
			return err
		}
		d.nodes[p.Key] = &storeNode{kind: KindText, text: p.Text}
		return nil
	case OpCreateComment:
		if err := d.create(p.Key); err != nil {
			return err
		}
		d.nodes[p.Key] = &storeNode{kind: KindComment, text: p.Text}
		return nil
	case OpAppendChild:
		return d.appendChild(p.Parent, p.Key)
	case OpSetText:
		n, err := d.lookup(p.Key)
		if err != nil {
			return err
		}
		if n.kind != KindText {
			return ErrWrongNodeKind
		}
		n.text = p.Text
		return nil
	case OpSetAttribute:
		n, err := d.lookup(p.Key)
		if err != nil {
			return err
		}
		if n.kind != KindElement {
			return ErrWrongNodeKind
		}
		for i := range n.attrs {
			if n.attrs[i].Name == p.Name {
				n.attrs[i].Value = p.Value
				return nil
			}
		}
		n.attrs = append(n.attrs, Attribute{Name: p.Name, Value: p.Value})
		return nil
	default:
		return fmt.Errorf("unknown op %d: %w", p.Op, ErrInvalidKey)
	}
}

func (d *document) create(k Key) error {
	if k == InvalidKey {
		return ErrInvalidKey
	}
	if _, ok := d.seen[k]; ok {
		return ErrReusedKey
	}
	d.seen[k] = struct{}{}
	return nil
}

func (d *document) lookup(k Key) (*storeNode, error) {
	if k == InvalidKey {
		return nil, ErrInvalidKey
	}
	n, ok := d.nodes[k]
	if !ok {
		return nil, ErrMissingKey
	}
	return n, nil
}

func (d *document) appendChild(parent, child Key) error {
	if parent == child {
		return ErrCycle
	}
	p, err := d.lookup(parent)
	if err != nil {
		return err
	}
	c, err := d.lookup(child)
	if err != nil {
		return err
	}
	if p.kind != KindDocument && p.kind != KindElement {
		return ErrNotContainer
	}
	if c.parent != InvalidKey {
		return ErrHasParent
	}
	// The child must not be an ancestor of the parent.
	for k := parent; k != InvalidKey; k = d.nodes[k].parent {
		if k == child {
			return ErrCycle
		}
	}
	c.parent = parent
	p.children = append(p.children, child)
	return nil
}

func (d *document) materialize(k Key) *Node {
	n := d.nodes[k]
	out := &Node{
		Kind:    n.kind,
		Key:     k,
		Name:    n.name,
		Text:    n.text,
		Doctype: n.doctype,
	}
	out.Attrs = append(out.Attrs, n.attrs...)
	for _, c := range n.children {
		out.Children = append(out.Children, d.materialize(c))
	}
	return out
}

// Handles returns the registered handles in ascending order.
func (s *Store) Handles() []Handle {
	out := make([]Handle, 0, len(s.docs))
	for h := range s.docs {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
