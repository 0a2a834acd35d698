// Package htmlstream parses HTML incrementally and emits the document
// as a stream of DOM patches.
//
// A Session owns one document: bytes go in through PushBytes in
// arbitrary chunks, Pump advances the decode/tokenize/build pipeline,
// and TakeBatch drains the resulting patches as transactional,
// version-stamped batches. The patch sequence for a given logical input
// does not depend on how the input was chunked.
package htmlstream

import (
	"fmt"
	"sync/atomic"

	"github.com/jacoelho/htmlstream/charset"
	"github.com/jacoelho/htmlstream/dompatch"
	"github.com/jacoelho/htmlstream/internal/textbuf"
	"github.com/jacoelho/htmlstream/internal/token"
	"github.com/jacoelho/htmlstream/internal/tokenizer"
	"github.com/jacoelho/htmlstream/internal/treebuilder"
)

const (
	defaultMaxParseErrors  = 64
	defaultMaxOpenElements = 512
	defaultMaxAttrs        = 256
)

var handleCounter atomic.Uint64

// Stats holds per-session instrumentation counters.
type Stats struct {
	TokensEmitted    uint64
	ParseErrors      uint64
	ErrorsDropped    uint64
	FallbackElements uint64
}

// Session is one streaming parse of one document.
// A Session is not safe for concurrent use.
type Session struct {
	handle dompatch.Handle
	opts   Options

	dec     *charset.Decoder
	buf     *textbuf.Buffer
	ctx     *token.Context
	tok     *tokenizer.Tokenizer
	builder *treebuilder.Builder
	keys    *dompatch.Allocator

	version dompatch.Version
	patches []dompatch.Patch

	// Suspended delivery state: the open batch and the index of the
	// token the tree stage has not consumed yet.
	susBatch *tokenizer.Batch
	susIdx   int

	finished bool
	fatal    error
}

// NewSession returns a session bound to a fresh document handle.
func NewSession(opts ...Options) *Session {
	merged := JoinOptions(opts...)
	if !merged.maxParseErrorsSet {
		merged.maxParseErrors = defaultMaxParseErrors
	}
	if !merged.maxOpenElementsSet {
		merged.maxOpenElements = defaultMaxOpenElements
	}
	if !merged.maxAttrsSet {
		merged.maxAttrs = defaultMaxAttrs
	}
	if !merged.coalesceTextSet {
		merged.coalesceText = true
	}

	s := &Session{
		handle: dompatch.Handle(handleCounter.Add(1)),
		opts:   merged,
		keys:   dompatch.NewAllocator(),
	}
	s.arm()
	return s
}

// arm builds a fresh pipeline. The handle and key allocator survive so
// versions and keys stay monotonic across baselines.
func (s *Session) arm() {
	s.dec = charset.NewDecoder(s.opts.charsetLabel)
	s.buf = textbuf.New()
	s.ctx = token.NewContext(s.opts.maxParseErrors)
	s.tok = tokenizer.New(s.buf, s.ctx)
	s.builder = treebuilder.New(s.ctx, s.keys, treebuilder.Config{
		CoalesceText: s.opts.coalesceText,
		SuspendHook:  s.opts.suspendHook,
	})
	s.susBatch = nil
	s.susIdx = 0
	s.finished = false
	s.fatal = nil
}

// Handle returns the document handle patch batches are stamped with.
func (s *Session) Handle() dompatch.Handle {
	return s.handle
}

// Version returns the version the next batch will start from.
func (s *Session) Version() dompatch.Version {
	return s.version
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	c := s.ctx.Counters
	return Stats{
		TokensEmitted:    c.TokensEmitted,
		ParseErrors:      c.ParseErrors,
		ErrorsDropped:    c.ErrorsDropped,
		FallbackElements: c.FallbackElements,
	}
}

// CompatMode reports the document compatibility mode, decided once
// during bootstrap ("undecided" until then).
func (s *Session) CompatMode() string {
	return s.ctx.Mode.String()
}

// ParseErrors returns the retained recoverable parse errors, formatted.
func (s *Session) ParseErrors() []string {
	errs := s.ctx.Errors()
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Error()
	}
	return out
}

// PushBytes appends one input chunk. Chunk boundaries carry no meaning;
// any split of the same bytes yields the same patch stream.
func (s *Session) PushBytes(chunk []byte) error {
	if s.fatal != nil {
		return s.fatal
	}
	if s.finished {
		return ErrSessionFinished
	}
	out, err := s.dec.Feed(chunk)
	if err != nil {
		return s.fail("charset", err)
	}
	s.buf.Append(out)
	return nil
}

// Pump advances the pipeline as far as the buffered input allows,
// accumulating patches for TakeBatch. It returns once more input is
// needed or the tree stage suspended.
func (s *Session) Pump() error {
	if s.fatal != nil {
		return s.fatal
	}
	if err := s.resume(); err != nil || s.susBatch != nil {
		return err
	}
	for {
		res := s.tok.Pump()
		if s.tok.HasTokens() {
			if err := s.deliver(); err != nil || s.susBatch != nil {
				return err
			}
		}
		if res != tokenizer.Progress {
			return nil
		}
	}
}

// Finish signals end of input, flushes the decoder and tokenizer, and
// completes the document. Finishing twice is a no-op.
func (s *Session) Finish() error {
	if s.fatal != nil {
		return s.fatal
	}
	if s.finished {
		return nil
	}
	if err := s.resume(); err != nil {
		return err
	}
	if s.susBatch != nil {
		return ErrSessionSuspended
	}

	out, err := s.dec.Finish()
	if err != nil {
		return s.fail("charset", err)
	}
	s.buf.Append(out)
	if err := s.Pump(); err != nil {
		return err
	}
	if s.susBatch != nil {
		return ErrSessionSuspended
	}

	s.tok.Finish()
	if s.tok.HasTokens() {
		if err := s.deliver(); err != nil {
			return err
		}
		if s.susBatch != nil {
			return ErrSessionSuspended
		}
	}
	if err := s.builder.Finish(); err != nil {
		return s.fail("tree", err)
	}
	s.collect()
	s.finished = true
	return nil
}

// Reset discards the current document and re-arms the pipeline on the
// same handle: pending patches are dropped and the next batch opens
// with a clear so the consumer falls back to an empty baseline. Keys
// and versions continue; nothing is ever reissued.
func (s *Session) Reset() {
	s.closeSuspended()
	s.arm()
	s.patches = append(s.patches[:0], dompatch.Patch{Op: dompatch.OpClear})
}

// TakeBatch drains the accumulated patches as one transactional batch,
// advancing the session version. ok is false when nothing accumulated.
func (s *Session) TakeBatch() (b dompatch.Batch, ok bool) {
	s.collect()
	if len(s.patches) == 0 {
		return dompatch.Batch{}, false
	}
	from := s.version
	s.version++
	b = dompatch.Batch{
		Handle:  s.handle,
		From:    from,
		To:      s.version,
		Patches: s.patches,
	}
	s.patches = nil
	return b, true
}

// TakePatches drains the accumulated patches without stamping a batch.
func (s *Session) TakePatches() []dompatch.Patch {
	s.collect()
	p := s.patches
	s.patches = nil
	return p
}

func (s *Session) deliver() error {
	s.susBatch = s.tok.NextBatch()
	s.susIdx = 0
	return s.resume()
}

// resume feeds the open batch to the tree stage, honoring suspension.
func (s *Session) resume() error {
	if s.susBatch == nil {
		return nil
	}
	tokens := s.susBatch.Tokens()
	for s.susIdx < len(tokens) {
		tok := &tokens[s.susIdx]
		if s.opts.maxAttrs > 0 && len(tok.Attrs) > s.opts.maxAttrs {
			tok.Attrs = tok.Attrs[:s.opts.maxAttrs]
			s.ctx.RecordError(token.ParseError{
				Origin: token.OriginTreeBuilder,
				Code:   token.ErrMalformedTag,
				Detail: "attribute count limit reached",
			})
		}
		res, err := s.builder.PushToken(tok, s.susBatch)
		if err != nil {
			return s.fail("tree", err)
		}
		if res == treebuilder.Suspend {
			s.collect()
			return nil
		}
		s.susIdx++
		if s.opts.maxOpenElements > 0 && s.builder.OpenDepth() > s.opts.maxOpenElements {
			return s.fail("tree", fmt.Errorf("depth %d: %w", s.builder.OpenDepth(), errDepthLimit))
		}
	}
	s.collect()
	s.closeSuspended()
	s.trim()
	return nil
}

func (s *Session) collect() {
	s.patches = append(s.patches, s.builder.TakePatches()...)
}

func (s *Session) closeSuspended() {
	if s.susBatch != nil {
		s.susBatch.Close()
		s.susBatch = nil
		s.susIdx = 0
	}
}

// trim releases the buffer prefix no live span can reference.
func (s *Session) trim() {
	if s.buf.Pinned() {
		return
	}
	_ = s.buf.TrimTo(s.tok.LowWaterMark())
}

func (s *Session) fail(stage string, err error) error {
	ee := &EngineError{Handle: s.handle, Stage: stage, Err: err}
	s.fatal = ee
	return ee
}

// Parse runs a whole document through a fresh session and returns its
// patch stream.
func Parse(input []byte, opts ...Options) ([]dompatch.Patch, error) {
	s := NewSession(opts...)
	if err := s.PushBytes(input); err != nil {
		return nil, err
	}
	if err := s.Pump(); err != nil {
		return nil, err
	}
	if err := s.Finish(); err != nil {
		return nil, err
	}
	return s.TakePatches(), nil
}
