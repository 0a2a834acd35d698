package tokenizer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/jacoelho/htmlstream/internal/textbuf"
	"github.com/jacoelho/htmlstream/internal/token"
)

// tokenize feeds the input in the given chunks and returns the rendered
// token sequence.
func tokenize(t *testing.T, chunks ...string) []string {
	t.Helper()
	buf := textbuf.New()
	ctx := token.NewContext(32)
	tz := New(buf, ctx)

	var out []string
	drain := func() {
		if !tz.HasTokens() {
			return
		}
		b := tz.NextBatch()
		defer b.Close()
		for i := range b.Tokens() {
			out = append(out, renderToken(t, ctx, b, &b.Tokens()[i]))
		}
	}
	for _, c := range chunks {
		buf.AppendString(c)
		for tz.Pump() == Progress {
		}
		drain()
	}
	tz.Finish()
	drain()
	return out
}

func renderToken(t *testing.T, ctx *token.Context, b *Batch, tok *token.Token) string {
	t.Helper()
	switch tok.Kind {
	case token.KindText:
		text, err := b.Text(tok)
		if err != nil {
			t.Fatalf("resolve text: %v", err)
		}
		return fmt.Sprintf("%q", text)
	case token.KindComment:
		text, err := b.Text(tok)
		if err != nil {
			t.Fatalf("resolve comment: %v", err)
		}
		return "<!--" + text + "-->"
	case token.KindStartTag:
		var sb strings.Builder
		sb.WriteByte('<')
		sb.WriteString(ctx.Atoms.Name(tok.Name))
		for i := range tok.Attrs {
			a := &tok.Attrs[i]
			sb.WriteByte(' ')
			sb.WriteString(ctx.Atoms.Name(a.Name))
			if a.HasValue {
				v, err := b.AttrValue(a)
				if err != nil {
					t.Fatalf("resolve attribute: %v", err)
				}
				fmt.Fprintf(&sb, "=%q", v)
			}
		}
		if tok.SelfClosing {
			sb.WriteByte('/')
		}
		sb.WriteByte('>')
		return sb.String()
	case token.KindEndTag:
		return "</" + ctx.Atoms.Name(tok.Name) + ">"
	case token.KindDoctype:
		var sb strings.Builder
		sb.WriteString("<!DOCTYPE")
		if tok.Name != 0 {
			sb.WriteByte(' ')
			sb.WriteString(ctx.Atoms.Name(tok.Name))
		}
		if tok.HasPublicID {
			fmt.Fprintf(&sb, " PUBLIC %q", tok.PublicID)
		}
		if tok.HasSystemID {
			fmt.Fprintf(&sb, " SYSTEM %q", tok.SystemID)
		}
		if tok.ForceQuirks {
			sb.WriteString(" force-quirks")
		}
		sb.WriteByte('>')
		return sb.String()
	case token.KindEOF:
		return "EOF"
	default:
		return "?"
	}
}

func TestTokenizeBasic(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "element with text",
			input: `<div id="x">hi</div>`,
			want:  []string{`<div id="x">`, `"hi"`, `</div>`, "EOF"},
		},
		{
			name:  "void element",
			input: `a<br>b`,
			want:  []string{`"a"`, `<br/>`, `"b"`, "EOF"},
		},
		{
			name:  "self closing",
			input: `<input type="text"/>`,
			want:  []string{`<input type="text"/>`, "EOF"},
		},
		{
			name:  "unquoted and bare attributes",
			input: `<p class=note hidden>x</p>`,
			want:  []string{`<p class="note" hidden>`, `"x"`, `</p>`, "EOF"},
		},
		{
			name:  "single quoted attribute",
			input: `<a href='q'>x</a>`,
			want:  []string{`<a href="q">`, `"x"`, `</a>`, "EOF"},
		},
		{
			name:  "entity in text",
			input: `a&amp;b`,
			want:  []string{`"a&b"`, "EOF"},
		},
		{
			name:  "entity in attribute",
			input: `<a title="a&amp;b">`,
			want:  []string{`<a title="a&b">`, "EOF"},
		},
		{
			name:  "numeric references",
			input: `&#65;&#x42;`,
			want:  []string{`"AB"`, "EOF"},
		},
		{
			name:  "bare ampersand is text",
			input: `a & b`,
			want:  []string{`"a & b"`, "EOF"},
		},
		{
			name:  "comment",
			input: `a<!-- note -->b`,
			want:  []string{`"a"`, `<!-- note -->`, `"b"`, "EOF"},
		},
		{
			name:  "comment with inner dashes",
			input: `<!--a-b--c-->`,
			want:  []string{`<!--a-b--c-->`, "EOF"},
		},
		{
			name:  "doctype",
			input: `<!DOCTYPE html>`,
			want:  []string{`<!DOCTYPE html>`, "EOF"},
		},
		{
			name:  "doctype case folded",
			input: `<!doctype HTML>`,
			want:  []string{`<!DOCTYPE html>`, "EOF"},
		},
		{
			name:  "doctype with identifiers",
			input: `<!DOCTYPE html PUBLIC "pub" "sys">`,
			want:  []string{`<!DOCTYPE html PUBLIC "pub" SYSTEM "sys">`, "EOF"},
		},
		{
			name:  "doctype missing name",
			input: `<!DOCTYPE >`,
			want:  []string{`<!DOCTYPE force-quirks>`, "EOF"},
		},
		{
			name:  "empty end tag dropped",
			input: `a</>b`,
			want:  []string{`"a"`, `"b"`, "EOF"},
		},
		{
			name:  "stray less than is text",
			input: `a<3`,
			want:  []string{`"a"`, `"<3"`, "EOF"},
		},
		{
			name:  "end tag slash bogus comment",
			input: `</ x>y`,
			want:  []string{`<!-- x-->`, `"y"`, "EOF"},
		},
		{
			name:  "bogus comment from question mark",
			input: `<?xml version="1.0"?>x`,
			want:  []string{`<!--?xml version="1.0"?-->`, `"x"`, "EOF"},
		},
		{
			name:  "cdata is bogus comment",
			input: `<![CDATA[x]]>`,
			want:  []string{`<!--[CDATA[x]]-->`, "EOF"},
		},
		{
			name:  "duplicate attribute dropped",
			input: `<a href="1" href="2">`,
			want:  []string{`<a href="1">`, "EOF"},
		},
		{
			name:  "null becomes replacement",
			input: "a\x00b",
			want:  []string{`"a�b"`, "EOF"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokenize(t, tt.input)
			assertSequence(t, got, tt.want)
		})
	}
}

func TestTokenizeEOFRecovery(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "eof after open angle", input: "a<", want: []string{`"a<"`, "EOF"}},
		{name: "eof after end open", input: "a</", want: []string{`"a</"`, "EOF"}},
		{name: "eof in tag dropped", input: "<div cl", want: []string{"EOF"}},
		{name: "eof in comment", input: "<!--x", want: []string{"<!--x-->", "EOF"}},
		{name: "eof in doctype", input: "<!DOCTYPE ht", want: []string{"<!DOCTYPE ht force-quirks>", "EOF"}},
		{name: "eof mid entity", input: "&am", want: []string{`"&am"`, "EOF"}},
		{name: "eof legacy entity", input: "x&amp", want: []string{`"x&"`, "EOF"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokenize(t, tt.input)
			assertSequence(t, got, tt.want)
		})
	}
}

// Chunk boundaries must never change the emitted token sequence.
func TestTokenizeChunkInvariance(t *testing.T) {
	inputs := []string{
		`<!DOCTYPE html><p class="a&amp;b">x &copy; y</p><!--c-->`,
		`<a href='q'>&#65;&#x41;</a>`,
		`plain text with & ampersands <and> more`,
		`<div id="x" class='y' hidden>content</div>`,
		`<!-- comment -- almost closed --><p>t</p>`,
		"h\u00e9llo <b>w\u00f6rld</b>",
		`a</>b<3<br>`,
	}
	sizes := []int{1, 2, 3, 5, 7}
	for _, input := range inputs {
		whole := tokenize(t, input)
		for _, size := range sizes {
			var chunks []string
			for i := 0; i < len(input); i += size {
				end := i + size
				if end > len(input) {
					end = len(input)
				}
				chunks = append(chunks, input[i:end])
			}
			got := tokenize(t, chunks...)
			if !equalStrings(got, whole) {
				t.Errorf("input %q chunk size %d:\n got %v\nwant %v", input, size, got, whole)
			}
		}
	}
}

func TestTokenizeRecordsErrors(t *testing.T) {
	buf := textbuf.New()
	ctx := token.NewContext(8)
	tz := New(buf, ctx)
	buf.AppendString(`<a href="1" href="2">`)
	for tz.Pump() == Progress {
	}
	tz.Finish()

	if ctx.Counters.ParseErrors == 0 {
		t.Fatal("duplicate attribute recorded no parse error")
	}
	found := false
	for _, e := range ctx.Errors() {
		if e.Code == token.ErrDuplicateAttr {
			found = true
		}
	}
	if !found {
		t.Errorf("errors = %v, want a duplicate attribute record", ctx.Errors())
	}
}

func TestLowWaterMarkCoversPendingRun(t *testing.T) {
	buf := textbuf.New()
	ctx := token.NewContext(8)
	tz := New(buf, ctx)

	buf.AppendString("hello")
	for tz.Pump() == Progress {
	}
	// The run is still open: nothing may be trimmed past its start.
	if got := tz.LowWaterMark(); got != 0 {
		t.Errorf("LowWaterMark() = %d, want 0 while run open", got)
	}

	buf.AppendString("<b>")
	for tz.Pump() == Progress {
	}
	// The text token still spans offset 0 until its batch is closed.
	if got := tz.LowWaterMark(); got != 0 {
		t.Errorf("LowWaterMark() = %d, want 0 while token pending", got)
	}
	b := tz.NextBatch()
	b.Close()
	if got := tz.LowWaterMark(); got != tz.Cursor() {
		t.Errorf("LowWaterMark() = %d, want cursor %d after drain", got, tz.Cursor())
	}
}

func TestBatchCloseInvalidatesSpans(t *testing.T) {
	buf := textbuf.New()
	ctx := token.NewContext(8)
	tz := New(buf, ctx)
	buf.AppendString("hi<b>")
	for tz.Pump() == Progress {
	}
	b := tz.NextBatch()
	tok := &b.Tokens()[0]
	if _, err := b.Text(tok); err != nil {
		t.Fatalf("Text() before close error = %v", err)
	}
	b.Close()
	if _, err := b.Text(tok); err == nil {
		t.Error("Text() after close succeeded, want error")
	}
}

func assertSequence(t *testing.T, got, want []string) {
	t.Helper()
	if !equalStrings(got, want) {
		t.Errorf("token sequence:\n got %v\nwant %v", got, want)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
