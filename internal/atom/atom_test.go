package atom

import (
	"testing"

	xatom "golang.org/x/net/html/atom"
)

func TestKnownNamesBypassTable(t *testing.T) {
	tbl := NewTable()
	if got, want := tbl.InternString("div"), Known(xatom.Div); got != want {
		t.Errorf("InternString(div) = %d, want %d", got, want)
	}
	if tbl.Len() != 0 {
		t.Errorf("Len() = %d after known name, want 0", tbl.Len())
	}
}

func TestCaseFolding(t *testing.T) {
	tbl := NewTable()
	lower := tbl.InternString("div")
	upper := tbl.InternString("DIV")
	mixed := tbl.InternString("DiV")
	if lower != upper || lower != mixed {
		t.Errorf("folded ids differ: %d %d %d", lower, upper, mixed)
	}
	if got := tbl.Name(lower); got != "div" {
		t.Errorf("Name() = %q, want %q", got, "div")
	}
}

func TestDynamicIntern(t *testing.T) {
	tbl := NewTable()
	a := tbl.InternString("x-widget")
	b := tbl.InternString("X-WIDGET")
	if a != b {
		t.Errorf("same folded name interned twice: %d != %d", a, b)
	}
	if a == Invalid {
		t.Error("dynamic intern returned Invalid")
	}
	if got := tbl.Name(a); got != "x-widget" {
		t.Errorf("Name() = %q, want %q", got, "x-widget")
	}
	if tbl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tbl.Len())
	}

	c := tbl.InternString("x-other")
	if c == a {
		t.Error("distinct names share an id")
	}
}

func TestEmptyAndUnknown(t *testing.T) {
	tbl := NewTable()
	if got := tbl.InternString(""); got != Invalid {
		t.Errorf("InternString(\"\") = %d, want Invalid", got)
	}
	if got := tbl.Name(Invalid); got != "" {
		t.Errorf("Name(Invalid) = %q, want empty", got)
	}
	if got := tbl.Name(dynamicBase + 99); got != "" {
		t.Errorf("Name(out of range) = %q, want empty", got)
	}
}
