package tokenizer

import (
	"errors"
	"fmt"

	"github.com/jacoelho/htmlstream/internal/textbuf"
	"github.com/jacoelho/htmlstream/internal/token"
)

var errBatchClosed = errors.New("token batch epoch is closed")

// Batch is a drained set of tokens bound to one epoch.
//
// Spans inside the tokens are valid only while the batch is open; the
// batch pins the decoded buffer so the prefix cannot be trimmed under
// live spans. Consumers must copy or intern payloads before Close.
type Batch struct {
	tokens []token.Token
	buf    *textbuf.Buffer
	closed bool
}

// Tokens returns the tokens in emission order.
func (b *Batch) Tokens() []token.Token {
	return b.tokens
}

// Len reports the number of tokens in the batch.
func (b *Batch) Len() int {
	return len(b.tokens)
}

// Resolve returns the bytes for a span within this batch epoch.
func (b *Batch) Resolve(s textbuf.Span) ([]byte, error) {
	if b.closed {
		return nil, errBatchClosed
	}
	return b.buf.Resolve(s)
}

// Text resolves a token's text payload (text and comment tokens).
func (b *Batch) Text(tok *token.Token) (string, error) {
	if tok.IsOwned {
		return tok.Owned, nil
	}
	if tok.Text.IsEmpty() {
		return "", nil
	}
	raw, err := b.Resolve(tok.Text)
	if err != nil {
		return "", fmt.Errorf("resolve token text: %w", err)
	}
	return string(raw), nil
}

// AttrValue resolves an attribute's value payload.
func (b *Batch) AttrValue(a *token.Attr) (string, error) {
	if !a.HasValue {
		return "", nil
	}
	if a.IsOwned {
		return a.Owned, nil
	}
	if a.Value.IsEmpty() {
		return "", nil
	}
	raw, err := b.Resolve(a.Value)
	if err != nil {
		return "", fmt.Errorf("resolve attribute value: %w", err)
	}
	return string(raw), nil
}

// Close ends the batch epoch and releases the buffer pin.
// Spans must not be resolved after Close.
func (b *Batch) Close() {
	if b.closed {
		return
	}
	b.closed = true
	b.buf.Unpin()
}
