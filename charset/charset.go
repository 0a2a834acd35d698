// Package charset decodes the incoming byte stream to UTF-8 before
// tokenization.
//
// The encoding is decided once: an explicit transport label wins,
// otherwise the decoder sniffs a bounded prefix (byte order marks and
// meta prescan included) and then locks. Decoded output has newlines
// normalized to LF, with CR LF pairs split across chunk boundaries
// handled correctly.
package charset

import (
	"bytes"
	"errors"
	"fmt"

	xcharset "golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// sniffWindow is how many bytes the decoder is willing to hold back
// before committing to an encoding.
const sniffWindow = 1024

var (
	// ErrUnknownLabel reports an explicit charset label with no known
	// encoding.
	ErrUnknownLabel = errors.New("unknown charset label")

	errDecoderClosed = errors.New("charset decoder is finished")
)

// Decoder converts one document's bytes to UTF-8.
type Decoder struct {
	label string

	enc     encoding.Encoding
	name    string
	certain bool
	decided bool

	tr transform.Transformer

	pending []byte // bytes held while undecided
	rem     []byte // undecoded tail of the last transform

	lastWasCR bool
	emitted   bool
	closed    bool
}

// NewDecoder returns a decoder. A non-empty label (from the transport,
// e.g. a Content-Type charset parameter) overrides sniffing.
func NewDecoder(label string) *Decoder {
	return &Decoder{label: label}
}

// EncodingName reports the decided encoding's canonical name, or ""
// while undecided.
func (d *Decoder) EncodingName() string {
	return d.name
}

// Decided reports whether the encoding is locked.
func (d *Decoder) Decided() bool {
	return d.decided
}

// Certain reports whether the decision came from an authoritative
// source (label or byte order mark) rather than content sniffing.
func (d *Decoder) Certain() bool {
	return d.certain
}

// Feed decodes one input chunk. While the encoding is undecided and the
// sniff window is not yet full, Feed buffers the bytes and returns no
// output; the decision is forced once the window fills or Finish runs.
func (d *Decoder) Feed(chunk []byte) ([]byte, error) {
	if d.closed {
		return nil, errDecoderClosed
	}
	if !d.decided {
		d.pending = append(d.pending, chunk...)
		if d.label == "" && len(d.pending) < sniffWindow {
			return nil, nil
		}
		if err := d.decide(); err != nil {
			return nil, err
		}
		chunk = d.pending
		d.pending = nil
		return d.process(chunk, false)
	}
	return d.process(chunk, false)
}

// Finish flushes the decoder: an undecided stream is decided from
// whatever arrived, and partial trailing sequences decode to their
// replacement forms.
func (d *Decoder) Finish() ([]byte, error) {
	if d.closed {
		return nil, errDecoderClosed
	}
	d.closed = true
	if !d.decided {
		if err := d.decide(); err != nil {
			return nil, err
		}
		chunk := d.pending
		d.pending = nil
		return d.process(chunk, true)
	}
	return d.process(nil, true)
}

func (d *Decoder) decide() error {
	if d.label != "" {
		enc, name := xcharset.Lookup(d.label)
		if enc == nil {
			return fmt.Errorf("charset %q: %w", d.label, ErrUnknownLabel)
		}
		d.enc, d.name, d.certain = enc, name, true
	} else {
		d.enc, d.name, d.certain = xcharset.DetermineEncoding(d.pending, "")
	}
	d.tr = d.enc.NewDecoder()
	d.decided = true
	return nil
}

func (d *Decoder) process(src []byte, atEOF bool) ([]byte, error) {
	d.rem = append(d.rem, src...)

	var out []byte
	var scratch [4096]byte
	for {
		nDst, nSrc, err := d.tr.Transform(scratch[:], d.rem, atEOF)
		out = append(out, scratch[:nDst]...)
		d.rem = d.rem[nSrc:]
		switch err {
		case nil:
			if len(d.rem) == 0 {
				d.rem = nil
				return d.normalize(out), nil
			}
		case transform.ErrShortDst:
			// Loop with the scratch buffer drained.
		case transform.ErrShortSrc:
			// A partial sequence stays buffered for the next chunk.
			d.rem = append([]byte(nil), d.rem...)
			return d.normalize(out), nil
		default:
			return nil, fmt.Errorf("decode %s: %w", d.name, err)
		}
	}
}

// normalize strips a leading byte order mark from the first output and
// rewrites CR and CR LF to LF in place, carrying a trailing CR flag
// across chunks so split pairs collapse to one newline.
func (d *Decoder) normalize(in []byte) []byte {
	if !d.emitted && len(in) > 0 {
		d.emitted = true
		in = bytes.TrimPrefix(in, []byte("\ufeff"))
	}
	j := 0
	for _, c := range in {
		if c == '\n' && d.lastWasCR {
			d.lastWasCR = false
			continue
		}
		if c == '\r' {
			d.lastWasCR = true
			in[j] = '\n'
			j++
			continue
		}
		d.lastWasCR = false
		in[j] = c
		j++
	}
	return in[:j]
}
