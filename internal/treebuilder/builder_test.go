package treebuilder

import (
	"testing"

	"github.com/jacoelho/htmlstream/dompatch"
	"github.com/jacoelho/htmlstream/internal/textbuf"
	"github.com/jacoelho/htmlstream/internal/token"
	"github.com/jacoelho/htmlstream/internal/tokenizer"
)

type pipeline struct {
	ctx     *token.Context
	builder *Builder
}

// build tokenizes the whole input and feeds it through a fresh builder.
func build(t *testing.T, input string, cfg Config) ([]dompatch.Patch, *pipeline) {
	t.Helper()
	buf := textbuf.New()
	ctx := token.NewContext(32)
	tz := tokenizer.New(buf, ctx)
	b := New(ctx, dompatch.NewAllocator(), cfg)

	buf.AppendString(input)
	for tz.Pump() == tokenizer.Progress {
	}
	tz.Finish()
	batch := tz.NextBatch()
	defer batch.Close()
	for i := range batch.Tokens() {
		res, err := b.PushToken(&batch.Tokens()[i], batch)
		if err != nil {
			t.Fatalf("PushToken() error = %v", err)
		}
		if res != Continue {
			t.Fatalf("PushToken() = %v, want Continue", res)
		}
	}
	if err := b.Finish(); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	return b.TakePatches(), &pipeline{ctx: ctx, builder: b}
}

func patchStrings(patches []dompatch.Patch) []string {
	out := make([]string, len(patches))
	for i, p := range patches {
		out[i] = p.String()
	}
	return out
}

func assertPatches(t *testing.T, got []dompatch.Patch, want []string) {
	t.Helper()
	gs := patchStrings(got)
	if len(gs) != len(want) {
		t.Fatalf("patch count = %d, want %d\n got %v\nwant %v", len(gs), len(want), gs, want)
	}
	for i := range gs {
		if gs[i] != want[i] {
			t.Errorf("patch %d = %s, want %s", i, gs[i], want[i])
		}
	}
}

func TestBootstrapScaffold(t *testing.T) {
	patches, p := build(t, `<!DOCTYPE html><html><body>hi</body></html>`, Config{CoalesceText: true})
	assertPatches(t, patches, []string{
		`create-document key=1 doctype="html"`,
		`create-element key=2 parent=1 name=html`,
		`append-child parent=1 child=2`,
		`create-element key=3 parent=2 name=head`,
		`append-child parent=2 child=3`,
		`create-element key=4 parent=2 name=body`,
		`append-child parent=2 child=4`,
		`create-text key=5 parent=4 text="hi"`,
		`append-child parent=4 child=5`,
	})
	if p.ctx.Mode != token.ModeNoQuirks {
		t.Errorf("mode = %v, want no-quirks", p.ctx.Mode)
	}
	if p.builder.OpenDepth() != 0 {
		t.Errorf("OpenDepth() after Finish = %d, want 0", p.builder.OpenDepth())
	}
}

func TestKeysMonotonic(t *testing.T) {
	patches, _ := build(t, `<!DOCTYPE html><div><p>a</p><p>b</p></div>`, Config{CoalesceText: true})
	var last dompatch.Key
	for _, p := range patches {
		switch p.Op {
		case dompatch.OpCreateDocument, dompatch.OpCreateElement,
			dompatch.OpCreateText, dompatch.OpCreateComment:
			if p.Key <= last {
				t.Fatalf("key %d not greater than previous %d", p.Key, last)
			}
			last = p.Key
		}
	}
}

func TestMissingDoctypeLocksQuirks(t *testing.T) {
	_, p := build(t, `x`, Config{})
	if p.ctx.Mode != token.ModeQuirks {
		t.Errorf("mode = %v, want quirks", p.ctx.Mode)
	}
}

func TestDoctypeModes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  token.DocMode
	}{
		{name: "standard", input: `<!DOCTYPE html>x`, want: token.ModeNoQuirks},
		{name: "missing name", input: `<!DOCTYPE >x`, want: token.ModeQuirks},
		{name: "non html name", input: `<!DOCTYPE foo>x`, want: token.ModeQuirks},
		{
			name:  "xhtml transitional",
			input: `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN">x`,
			want:  token.ModeLimitedQuirks,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, p := build(t, tt.input, Config{})
			if p.ctx.Mode != tt.want {
				t.Errorf("mode = %v, want %v", p.ctx.Mode, tt.want)
			}
		})
	}
}

func TestModeLockedAtBootstrap(t *testing.T) {
	_, p := build(t, `<!DOCTYPE html><!DOCTYPE bogus><p>x`, Config{})
	if p.ctx.Mode != token.ModeNoQuirks {
		t.Errorf("mode = %v, want no-quirks after late doctype", p.ctx.Mode)
	}
}

func TestCommentBeforeDoctype(t *testing.T) {
	patches, _ := build(t, `<!--x--><p>t`, Config{CoalesceText: true})
	if patches[0].Op != dompatch.OpCreateDocument {
		t.Fatalf("first patch = %s, want create-document", patches[0])
	}
	if patches[0].HasText {
		t.Error("document created with a doctype that never arrived")
	}
	if patches[1].Op != dompatch.OpCreateComment || patches[1].Parent != patches[0].Key {
		t.Errorf("second patch = %s, want comment under document", patches[1])
	}
}

func TestFormattingReconstruction(t *testing.T) {
	patches, _ := build(t, `<p><b>x</p><p>y`, Config{CoalesceText: true})
	assertPatches(t, patches, []string{
		`create-document key=1`,
		`create-element key=2 parent=1 name=html`,
		`append-child parent=1 child=2`,
		`create-element key=3 parent=2 name=head`,
		`append-child parent=2 child=3`,
		`create-element key=4 parent=2 name=body`,
		`append-child parent=2 child=4`,
		`create-element key=5 parent=4 name=p`,
		`append-child parent=4 child=5`,
		`create-element key=6 parent=5 name=b`,
		`append-child parent=5 child=6`,
		`create-text key=7 parent=6 text="x"`,
		`append-child parent=6 child=7`,
		`create-element key=8 parent=4 name=p`,
		`append-child parent=4 child=8`,
		`create-element key=9 parent=8 name=b`,
		`append-child parent=8 child=9`,
		`create-text key=10 parent=9 text="y"`,
		`append-child parent=9 child=10`,
	})
}

func TestDuplicateHTMLAttributesMerge(t *testing.T) {
	patches, _ := build(t, `<html lang="en"><html lang="de" dir="ltr"><body>x`, Config{})
	var setAttrs []dompatch.Patch
	for _, p := range patches {
		if p.Op == dompatch.OpSetAttribute {
			setAttrs = append(setAttrs, p)
		}
	}
	if len(setAttrs) != 1 {
		t.Fatalf("set-attribute count = %d, want 1 (existing names win)", len(setAttrs))
	}
	if setAttrs[0].Name != "dir" || setAttrs[0].Value != "ltr" {
		t.Errorf("merged attribute = %s=%q, want dir=%q", setAttrs[0].Name, setAttrs[0].Value, "ltr")
	}
}

func TestHeadElements(t *testing.T) {
	patches, _ := build(t, `<!DOCTYPE html><head><meta charset="utf-8"><title>t</title></head><p>x`, Config{CoalesceText: true})
	gs := patchStrings(patches)
	want := []string{
		`create-document key=1 doctype="html"`,
		`create-element key=2 parent=1 name=html`,
		`append-child parent=1 child=2`,
		`create-element key=3 parent=2 name=head`,
		`append-child parent=2 child=3`,
		`create-element key=4 parent=3 name=meta charset="utf-8"`,
		`append-child parent=3 child=4`,
		`create-element key=5 parent=3 name=title`,
		`append-child parent=3 child=5`,
		`create-text key=6 parent=5 text="t"`,
		`append-child parent=5 child=6`,
		`create-element key=7 parent=2 name=body`,
		`append-child parent=2 child=7`,
		`create-element key=8 parent=7 name=p`,
		`append-child parent=7 child=8`,
		`create-text key=9 parent=8 text="x"`,
		`append-child parent=8 child=9`,
	}
	if len(gs) != len(want) {
		t.Fatalf("patches:\n got %v\nwant %v", gs, want)
	}
	for i := range gs {
		if gs[i] != want[i] {
			t.Errorf("patch %d = %s, want %s", i, gs[i], want[i])
		}
	}
}

func TestSuspendHook(t *testing.T) {
	buf := textbuf.New()
	ctx := token.NewContext(8)
	tz := tokenizer.New(buf, ctx)

	calls := 0
	cfg := Config{SuspendHook: func(tok *token.Token) bool {
		if tok.Kind == token.KindStartTag && calls == 0 {
			calls++
			return true
		}
		return false
	}}
	b := New(ctx, dompatch.NewAllocator(), cfg)

	buf.AppendString(`<p>x`)
	for tz.Pump() == tokenizer.Progress {
	}
	tz.Finish()
	batch := tz.NextBatch()
	defer batch.Close()

	tok := &batch.Tokens()[0]
	res, err := b.PushToken(tok, batch)
	if err != nil {
		t.Fatalf("PushToken() error = %v", err)
	}
	if res != Suspend {
		t.Fatalf("PushToken() = %v, want Suspend", res)
	}
	if got := b.TakePatches(); len(got) != 0 {
		t.Errorf("suspended token emitted %d patches, want 0", len(got))
	}

	// Redelivery of the same token proceeds.
	res, err = b.PushToken(tok, batch)
	if err != nil {
		t.Fatalf("PushToken() resume error = %v", err)
	}
	if res != Continue {
		t.Fatalf("PushToken() resume = %v, want Continue", res)
	}
}

func TestUnmatchedEndTagsIgnored(t *testing.T) {
	patches, p := build(t, `<!DOCTYPE html><div>a</span></p></div>b`, Config{CoalesceText: true})
	if p.ctx.Counters.ParseErrors == 0 {
		t.Error("unmatched end tags recorded no parse errors")
	}
	// The final text lands back under body after the div closes.
	last := patches[len(patches)-2]
	if last.Op != dompatch.OpCreateText || last.Text != "b" {
		t.Errorf("tail patch = %s, want create-text \"b\"", last)
	}
}

func TestReprocessGuard(t *testing.T) {
	// Exercising the guard needs a dispatch bug; the bound itself must
	// stay comfortably above the deepest legal reprocess chain (initial
	// through in-body is five hops).
	if maxReprocess < 8 {
		t.Fatalf("maxReprocess = %d, too small for mode fallthrough", maxReprocess)
	}
}
