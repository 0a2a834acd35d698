// Package treebuilder turns the token stream into an incremental DOM
// patch stream.
//
// The builder runs a small set of insertion modes (initial through
// in-body) over the tokens, maintaining the stack of open elements and
// the list of active formatting elements. Every mutation it decides on
// is emitted as a dompatch.Patch; the builder never holds a tree of its
// own. Node keys come from a shared allocator and are monotonic for the
// lifetime of the document handle.
package treebuilder

import (
	"errors"
	"fmt"

	"github.com/jacoelho/htmlstream/dompatch"
	"github.com/jacoelho/htmlstream/internal/atom"
	"github.com/jacoelho/htmlstream/internal/token"
	"github.com/jacoelho/htmlstream/internal/tokenizer"
)

// Mode is the current insertion mode.
type Mode uint8

const (
	ModeInitial Mode = iota
	ModeBeforeHTML
	ModeBeforeHead
	ModeInHead
	ModeAfterHead
	ModeInBody
)

// String returns a stable name for the mode.
func (m Mode) String() string {
	switch m {
	case ModeInitial:
		return "initial"
	case ModeBeforeHTML:
		return "before-html"
	case ModeBeforeHead:
		return "before-head"
	case ModeInHead:
		return "in-head"
	case ModeAfterHead:
		return "after-head"
	case ModeInBody:
		return "in-body"
	default:
		return "unknown"
	}
}

// StepResult reports how one token delivery ended.
type StepResult uint8

const (
	// Continue means the token was fully processed.
	Continue StepResult = iota
	// Suspend means the token was not processed; the caller must deliver
	// the same token again once it decides to resume.
	Suspend
)

// maxReprocess bounds mode-switch reprocessing of a single token. The
// mode graph is acyclic for any fixed token, so hitting the bound means
// a dispatch bug, not bad input.
const maxReprocess = 64

var (
	errReprocessLoop = errors.New("token reprocessed too many times")
)

// Config carries the builder knobs.
type Config struct {
	// CoalesceText merges adjacent text insertions under the same parent
	// into one text node, re-emitting its cumulative content.
	CoalesceText bool

	// SuspendHook, when set, is consulted before each token is
	// processed. Returning true suspends the step; the caller re-delivers
	// the same token when it resumes.
	SuspendHook func(*token.Token) bool
}

type openElement struct {
	key  dompatch.Key
	name atom.ID
}

type afeEntry struct {
	marker bool
	key    dompatch.Key
	name   atom.ID
	attrs  []dompatch.Attribute
}

type pendingText struct {
	parent dompatch.Key
	key    dompatch.Key
	text   []byte
}

// Builder is the tree construction stage.
type Builder struct {
	ctx  *token.Context
	cfg  Config
	keys *dompatch.Allocator

	mode    Mode
	patches []dompatch.Patch
	open    []openElement
	afe     []afeEntry

	docKey      dompatch.Key
	docEmitted  bool
	doctypeSeen bool
	doctypeName string

	htmlKey   dompatch.Key
	bodyKey   dompatch.Key
	htmlAttrs map[string]struct{}
	bodyAttrs map[string]struct{}

	pending    pendingText
	hasPending bool

	// text and attrs hold the resolved payload of the token currently
	// being dispatched; reprocessing reuses them instead of re-resolving.
	text  string
	attrs []dompatch.Attribute

	fatal error
}

// New returns a builder in the initial insertion mode. The allocator is
// shared with the session so keys stay monotonic across baselines.
func New(ctx *token.Context, keys *dompatch.Allocator, cfg Config) *Builder {
	return &Builder{ctx: ctx, cfg: cfg, keys: keys}
}

// Mode reports the current insertion mode.
func (b *Builder) Mode() Mode {
	return b.mode
}

// DocumentKey reports the root key, or InvalidKey before the document
// patch was emitted.
func (b *Builder) DocumentKey() dompatch.Key {
	if !b.docEmitted {
		return dompatch.InvalidKey
	}
	return b.docKey
}

// OpenDepth reports the depth of the stack of open elements.
func (b *Builder) OpenDepth() int {
	return len(b.open)
}

// TakePatches drains the patches accumulated so far.
func (b *Builder) TakePatches() []dompatch.Patch {
	p := b.patches
	b.patches = nil
	return p
}

// PushToken processes one token, emitting patches as a side effect.
//
// A Suspend result means the token was not consumed and must be
// delivered again. Any error is fatal: the builder refuses further
// tokens and the session must discard the document.
func (b *Builder) PushToken(tok *token.Token, batch *tokenizer.Batch) (StepResult, error) {
	if b.fatal != nil {
		return Continue, b.fatal
	}
	if b.cfg.SuspendHook != nil && b.cfg.SuspendHook(tok) {
		return Suspend, nil
	}

	switch tok.Kind {
	case token.KindText, token.KindComment:
		text, err := batch.Text(tok)
		if err != nil {
			return Continue, b.fail(fmt.Errorf("resolve token payload: %w", err))
		}
		b.text = text
	case token.KindStartTag:
		attrs, err := b.resolveAttrs(tok, batch)
		if err != nil {
			return Continue, b.fail(err)
		}
		b.attrs = attrs
	}

	for steps := 0; ; steps++ {
		if steps >= maxReprocess {
			return Continue, b.fail(fmt.Errorf("%w: %s token in mode %s",
				errReprocessLoop, tok.Kind, b.mode))
		}
		again, err := b.dispatch(tok)
		if err != nil {
			return Continue, b.fail(err)
		}
		if !again {
			return Continue, nil
		}
	}
}

// Finish seals the document: the pending text run ends and the stack of
// open elements is unwound. Unwinding emits no patches; children stay
// where they were appended.
func (b *Builder) Finish() error {
	if b.fatal != nil {
		return b.fatal
	}
	b.endTextRun()
	b.ensureDocument()
	b.open = b.open[:0]
	b.afe = b.afe[:0]
	return nil
}

func (b *Builder) fail(err error) error {
	b.fatal = err
	return err
}

func (b *Builder) dispatch(tok *token.Token) (bool, error) {
	switch b.mode {
	case ModeInitial:
		return b.modeInitial(tok)
	case ModeBeforeHTML:
		return b.modeBeforeHTML(tok)
	case ModeBeforeHead:
		return b.modeBeforeHead(tok)
	case ModeInHead:
		return b.modeInHead(tok)
	case ModeAfterHead:
		return b.modeAfterHead(tok)
	case ModeInBody:
		return b.modeInBody(tok)
	default:
		return false, fmt.Errorf("dispatch in unknown mode %d", b.mode)
	}
}

func (b *Builder) resolveAttrs(tok *token.Token, batch *tokenizer.Batch) ([]dompatch.Attribute, error) {
	if len(tok.Attrs) == 0 {
		return nil, nil
	}
	out := make([]dompatch.Attribute, 0, len(tok.Attrs))
	for i := range tok.Attrs {
		a := &tok.Attrs[i]
		v, err := batch.AttrValue(a)
		if err != nil {
			return nil, fmt.Errorf("resolve attribute value: %w", err)
		}
		out = append(out, dompatch.Attribute{Name: b.ctx.Atoms.Name(a.Name), Value: v})
	}
	return out, nil
}

func (b *Builder) recordError(code token.ErrorCode, detail string) {
	b.ctx.RecordError(token.ParseError{
		Origin: token.OriginTreeBuilder,
		Code:   code,
		Detail: detail,
	})
}
