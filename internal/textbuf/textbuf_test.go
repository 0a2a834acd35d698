package textbuf

import (
	"errors"
	"testing"
)

func TestAppendAndResolve(t *testing.T) {
	buf := New()
	buf.AppendString("hello")
	buf.AppendString(" world")

	got, err := buf.Resolve(Span{Start: 0, End: 5})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("Resolve() = %q, want %q", got, "hello")
	}
	if buf.End() != 11 {
		t.Errorf("End() = %d, want 11", buf.End())
	}
}

func TestOffsetsSurviveTrim(t *testing.T) {
	buf := New()
	buf.AppendString("abcdef")
	if err := buf.TrimTo(3); err != nil {
		t.Fatalf("TrimTo() error = %v", err)
	}

	if buf.Base() != 3 {
		t.Errorf("Base() = %d, want 3", buf.Base())
	}
	got, err := buf.Resolve(Span{Start: 3, End: 6})
	if err != nil {
		t.Fatalf("Resolve() after trim error = %v", err)
	}
	if string(got) != "def" {
		t.Errorf("Resolve() = %q, want %q", got, "def")
	}

	buf.AppendString("gh")
	got, err = buf.Resolve(Span{Start: 6, End: 8})
	if err != nil {
		t.Fatalf("Resolve() appended error = %v", err)
	}
	if string(got) != "gh" {
		t.Errorf("Resolve() = %q, want %q", got, "gh")
	}
}

func TestResolveTrimmedSpanFails(t *testing.T) {
	buf := New()
	buf.AppendString("abcdef")
	if err := buf.TrimTo(4); err != nil {
		t.Fatalf("TrimTo() error = %v", err)
	}
	if _, err := buf.Resolve(Span{Start: 0, End: 2}); !errors.Is(err, errSpanTrimmed) {
		t.Errorf("Resolve() error = %v, want %v", err, errSpanTrimmed)
	}
}

func TestResolveBounds(t *testing.T) {
	buf := New()
	buf.AppendString("abc")
	if _, err := buf.Resolve(Span{Start: 1, End: 9}); !errors.Is(err, errSpanBounds) {
		t.Errorf("Resolve() past end error = %v, want %v", err, errSpanBounds)
	}
	if _, err := buf.Resolve(Span{Start: 2, End: 1}); !errors.Is(err, errSpanBounds) {
		t.Errorf("Resolve() inverted error = %v, want %v", err, errSpanBounds)
	}
}

func TestPinBlocksTrim(t *testing.T) {
	buf := New()
	buf.AppendString("abcdef")
	buf.Pin()
	if err := buf.TrimTo(3); !errors.Is(err, errBufferPinned) {
		t.Fatalf("TrimTo() while pinned error = %v, want %v", err, errBufferPinned)
	}
	buf.Unpin()
	if err := buf.TrimTo(3); err != nil {
		t.Fatalf("TrimTo() after unpin error = %v", err)
	}
}

func TestSpanHelpers(t *testing.T) {
	if !(Span{Start: 2, End: 2}).IsEmpty() {
		t.Error("IsEmpty() = false for zero-length span")
	}
	if got := (Span{Start: 2, End: 5}).Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
	if got := (Span{Start: 5, End: 2}).Len(); got != 0 {
		t.Errorf("Len() inverted = %d, want 0", got)
	}
}
