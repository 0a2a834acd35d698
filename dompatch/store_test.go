package dompatch

import (
	"errors"
	"testing"
)

func applyAll(t *testing.T, s *Store, h Handle, from Version, patches ...Patch) {
	t.Helper()
	if err := s.Apply(Batch{Handle: h, From: from, To: from + 1, Patches: patches}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
}

func baseline(t *testing.T, s *Store, h Handle) {
	t.Helper()
	applyAll(t, s, h, 0,
		Patch{Op: OpCreateDocument, Key: 1},
		Patch{Op: OpCreateElement, Key: 2, Parent: 1, Name: "html"},
		Patch{Op: OpAppendChild, Parent: 1, Key: 2},
	)
}

func TestApplyAndMaterialize(t *testing.T) {
	s := NewStore()
	if err := s.Create(7); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	applyAll(t, s, 7, 0,
		Patch{Op: OpCreateDocument, Key: 1, Text: "html", HasText: true},
		Patch{Op: OpCreateElement, Key: 2, Parent: 1, Name: "html"},
		Patch{Op: OpAppendChild, Parent: 1, Key: 2},
		Patch{Op: OpCreateText, Key: 3, Parent: 2, Text: "hi"},
		Patch{Op: OpAppendChild, Parent: 2, Key: 3},
		Patch{Op: OpSetText, Key: 3, Text: "hi there"},
		Patch{Op: OpSetAttribute, Key: 2, Name: "lang", Value: "en"},
	)

	root, err := s.Materialize(7)
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	if root.Kind != KindDocument || root.Doctype != "html" {
		t.Fatalf("root = %+v, want document with doctype html", root)
	}
	el := root.Children[0]
	if el.Name != "html" || len(el.Attrs) != 1 || el.Attrs[0] != (Attribute{Name: "lang", Value: "en"}) {
		t.Errorf("element = %+v, want html[lang=en]", el)
	}
	if got := el.Children[0].Text; got != "hi there" {
		t.Errorf("text = %q, want %q", got, "hi there")
	}

	v, err := s.Version(7)
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if v != 1 {
		t.Errorf("Version() = %d, want 1", v)
	}
}

func TestVersionMismatchRejected(t *testing.T) {
	s := NewStore()
	if err := s.Create(1); err != nil {
		t.Fatal(err)
	}
	err := s.Apply(Batch{Handle: 1, From: 3, To: 4, Patches: []Patch{{Op: OpCreateDocument, Key: 1}}})
	if !errors.Is(err, ErrVersionMismatch) {
		t.Errorf("Apply() error = %v, want %v", err, ErrVersionMismatch)
	}
}

func TestClearOnlyAtBatchStart(t *testing.T) {
	s := NewStore()
	if err := s.Create(1); err != nil {
		t.Fatal(err)
	}
	baseline(t, s, 1)

	err := s.Apply(Batch{Handle: 1, From: 1, To: 2, Patches: []Patch{
		{Op: OpCreateElement, Key: 3, Name: "div"},
		{Op: OpClear},
	}})
	if !errors.Is(err, ErrClearPlacement) {
		t.Fatalf("Apply() error = %v, want %v", err, ErrClearPlacement)
	}

	// The rejection left the document untouched.
	if v, _ := s.Version(1); v != 1 {
		t.Errorf("Version() = %d after rejected batch, want 1", v)
	}
	root, err := s.Materialize(1)
	if err != nil {
		t.Fatal(err)
	}
	if root == nil || len(root.Children) != 1 {
		t.Errorf("tree changed by rejected batch: %+v", root)
	}

	// At position 0 the clear is accepted and drops to an empty baseline.
	applyAll(t, s, 1, 1, Patch{Op: OpClear})
	root, err = s.Materialize(1)
	if err != nil {
		t.Fatal(err)
	}
	if root != nil {
		t.Errorf("Materialize() after clear = %+v, want nil", root)
	}
}

func TestKeyReuseRejected(t *testing.T) {
	s := NewStore()
	if err := s.Create(1); err != nil {
		t.Fatal(err)
	}
	baseline(t, s, 1)

	err := s.Apply(Batch{Handle: 1, From: 1, To: 2, Patches: []Patch{
		{Op: OpCreateElement, Key: 2, Name: "div"},
	}})
	if !errors.Is(err, ErrReusedKey) {
		t.Errorf("Apply() error = %v, want %v", err, ErrReusedKey)
	}
}

func TestKeyReuseAcrossClearRejected(t *testing.T) {
	s := NewStore()
	if err := s.Create(1); err != nil {
		t.Fatal(err)
	}
	baseline(t, s, 1)
	applyAll(t, s, 1, 1, Patch{Op: OpClear})

	// Keys from the discarded baseline can never come back.
	err := s.Apply(Batch{Handle: 1, From: 2, To: 3, Patches: []Patch{
		{Op: OpCreateDocument, Key: 1},
	}})
	if !errors.Is(err, ErrReusedKey) {
		t.Errorf("Apply() error = %v, want %v", err, ErrReusedKey)
	}
}

func TestTransactionalRollback(t *testing.T) {
	s := NewStore()
	if err := s.Create(1); err != nil {
		t.Fatal(err)
	}
	baseline(t, s, 1)

	err := s.Apply(Batch{Handle: 1, From: 1, To: 2, Patches: []Patch{
		{Op: OpCreateElement, Key: 3, Name: "div"},
		{Op: OpAppendChild, Parent: 2, Key: 3},
		{Op: OpAppendChild, Parent: 99, Key: 3},
	}})
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("Apply() error = %v, want *ProtocolError", err)
	}
	if pe.Index != 2 {
		t.Errorf("ProtocolError.Index = %d, want 2", pe.Index)
	}
	if !errors.Is(err, ErrMissingKey) {
		t.Errorf("ProtocolError wraps %v, want %v", pe.Err, ErrMissingKey)
	}

	root, merr := s.Materialize(1)
	if merr != nil {
		t.Fatal(merr)
	}
	if len(root.Children[0].Children) != 0 {
		t.Error("partial batch leaked into the document")
	}
}

func TestAppendChildChecks(t *testing.T) {
	s := NewStore()
	if err := s.Create(1); err != nil {
		t.Fatal(err)
	}
	applyAll(t, s, 1, 0,
		Patch{Op: OpCreateDocument, Key: 1},
		Patch{Op: OpCreateElement, Key: 2, Parent: 1, Name: "html"},
		Patch{Op: OpAppendChild, Parent: 1, Key: 2},
		Patch{Op: OpCreateText, Key: 3, Parent: 2, Text: "x"},
		Patch{Op: OpAppendChild, Parent: 2, Key: 3},
	)

	tests := []struct {
		name  string
		patch Patch
		want  error
	}{
		{name: "self cycle", patch: Patch{Op: OpAppendChild, Parent: 2, Key: 2}, want: ErrCycle},
		{name: "already parented", patch: Patch{Op: OpAppendChild, Parent: 1, Key: 3}, want: ErrHasParent},
		{name: "text is not a container", patch: Patch{Op: OpAppendChild, Parent: 3, Key: 2}, want: ErrNotContainer},
		{name: "missing child", patch: Patch{Op: OpAppendChild, Parent: 2, Key: 42}, want: ErrMissingKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Apply(Batch{Handle: 1, From: 1, To: 2, Patches: []Patch{tt.patch}})
			if !errors.Is(err, tt.want) {
				t.Errorf("Apply() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestHandleLifecycle(t *testing.T) {
	s := NewStore()
	if err := s.Create(1); err != nil {
		t.Fatal(err)
	}
	if err := s.Create(1); !errors.Is(err, ErrDuplicateHandle) {
		t.Errorf("Create() duplicate error = %v, want %v", err, ErrDuplicateHandle)
	}
	if err := s.Create(2); err != nil {
		t.Fatal(err)
	}
	if got := s.Handles(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("Handles() = %v, want [1 2]", got)
	}
	s.Drop(1)
	if _, err := s.Version(1); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("Version() after drop error = %v, want %v", err, ErrUnknownHandle)
	}
}

func TestAllocatorNeverRepeats(t *testing.T) {
	a := NewAllocator()
	seen := make(map[Key]bool)
	for i := 0; i < 100; i++ {
		k := a.Next()
		if k == InvalidKey {
			t.Fatal("allocator issued the invalid key")
		}
		if seen[k] {
			t.Fatalf("key %d issued twice", k)
		}
		seen[k] = true
	}
	if a.Peek() != 101 {
		t.Errorf("Peek() = %d, want 101", a.Peek())
	}
}

func TestPatchString(t *testing.T) {
	tests := []struct {
		patch Patch
		want  string
	}{
		{Patch{Op: OpClear}, "clear"},
		{Patch{Op: OpCreateDocument, Key: 1, Text: "html", HasText: true}, `create-document key=1 doctype="html"`},
		{Patch{Op: OpCreateDocument, Key: 1}, "create-document key=1"},
		{
			Patch{Op: OpCreateElement, Key: 2, Parent: 1, Name: "a", Attrs: []Attribute{{Name: "href", Value: "x"}}},
			`create-element key=2 parent=1 name=a href="x"`,
		},
		{Patch{Op: OpSetText, Key: 3, Text: "ab"}, `set-text key=3 text="ab"`},
		{Patch{Op: OpAppendChild, Parent: 1, Key: 2}, "append-child parent=1 child=2"},
	}
	for _, tt := range tests {
		if got := tt.patch.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
