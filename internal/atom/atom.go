// Package atom interns HTML tag and attribute names into small integer
// identifiers with ASCII case-folding.
//
// Well-known HTML names resolve through golang.org/x/net/html/atom without
// touching the document table; everything else is interned per document so
// independent parses stay deterministic.
package atom

import (
	xatom "golang.org/x/net/html/atom"
)

// ID identifies an interned, case-folded name.
// The zero value means "no name".
type ID uint32

// Invalid is the reserved "no name" identifier.
const Invalid ID = 0

// dynamicBase separates document-scoped ids from x/net/html/atom values,
// whose encoding stays well below this bound.
const dynamicBase ID = 1 << 24

// Known returns the ID for a well-known HTML atom.
func Known(a xatom.Atom) ID {
	return ID(a)
}

// Table is a document-scoped intern table for names that are not in the
// static HTML atom set.
type Table struct {
	names  []string
	ids    map[string]ID
	folded []byte
}

// NewTable returns an empty intern table.
func NewTable() *Table {
	return &Table{ids: make(map[string]ID, 16)}
}

// Intern returns the ID for name, folding ASCII upper case to lower case.
// Equal names (after folding) always return the same ID within one table.
func (t *Table) Intern(name []byte) ID {
	if len(name) == 0 {
		return Invalid
	}
	folded := t.fold(name)
	if a := xatom.Lookup(folded); a != 0 {
		return ID(a)
	}
	if id, ok := t.ids[string(folded)]; ok {
		return id
	}
	owned := string(folded)
	id := dynamicBase + ID(len(t.names))
	t.names = append(t.names, owned)
	t.ids[owned] = id
	return id
}

// InternString is Intern for string input.
func (t *Table) InternString(name string) ID {
	if len(name) == 0 {
		return Invalid
	}
	t.folded = append(t.folded[:0], name...)
	return t.Intern(t.folded)
}

// Name resolves an ID back to its canonical lower-case name.
// Unknown ids resolve to the empty string.
func (t *Table) Name(id ID) string {
	if id == Invalid {
		return ""
	}
	if id < dynamicBase {
		return xatom.Atom(id).String()
	}
	i := int(id - dynamicBase)
	if i >= len(t.names) {
		return ""
	}
	return t.names[i]
}

// Len reports the number of document-scoped (non-static) atoms.
func (t *Table) Len() int {
	return len(t.names)
}

func (t *Table) fold(name []byte) []byte {
	upper := false
	for _, b := range name {
		if b >= 'A' && b <= 'Z' {
			upper = true
			break
		}
	}
	if !upper {
		return name
	}
	t.folded = append(t.folded[:0], name...)
	for i, b := range t.folded {
		if b >= 'A' && b <= 'Z' {
			t.folded[i] = b + ('a' - 'A')
		}
	}
	return t.folded
}
