package htmlstream

import "github.com/jacoelho/htmlstream/internal/token"

// Options holds session configuration values.
// The zero value means no overrides.
type Options struct {
	coalesceText    bool
	maxParseErrors  int
	maxOpenElements int
	maxAttrs        int
	charsetLabel    string
	suspendHook     func(*token.Token) bool

	coalesceTextSet    bool
	maxParseErrorsSet  bool
	maxOpenElementsSet bool
	maxAttrsSet        bool
	charsetLabelSet    bool
	suspendHookSet     bool
}

// JoinOptions combines multiple option sets into one in declaration order.
// Later options override earlier ones when set.
func JoinOptions(srcs ...Options) Options {
	var merged Options
	for _, src := range srcs {
		merged.merge(src)
	}
	return merged
}

func (opts *Options) merge(src Options) {
	if src.coalesceTextSet {
		opts.coalesceText = src.coalesceText
		opts.coalesceTextSet = true
	}
	if src.maxParseErrorsSet {
		opts.maxParseErrors = src.maxParseErrors
		opts.maxParseErrorsSet = true
	}
	if src.maxOpenElementsSet {
		opts.maxOpenElements = src.maxOpenElements
		opts.maxOpenElementsSet = true
	}
	if src.maxAttrsSet {
		opts.maxAttrs = src.maxAttrs
		opts.maxAttrsSet = true
	}
	if src.charsetLabelSet {
		opts.charsetLabel = src.charsetLabel
		opts.charsetLabelSet = true
	}
	if src.suspendHookSet {
		opts.suspendHook = src.suspendHook
		opts.suspendHookSet = true
	}
}

// CoalesceText merges adjacent text insertions under the same parent
// into one text node. Enabled by default.
func CoalesceText(value bool) Options {
	return Options{coalesceText: value, coalesceTextSet: true}
}

// MaxParseErrors limits how many recoverable parse errors are retained.
// Counting continues past the limit; the oldest records are dropped.
func MaxParseErrors(value int) Options {
	return Options{maxParseErrors: value, maxParseErrorsSet: true}
}

// MaxOpenElements limits element nesting depth. Exceeding it is fatal.
func MaxOpenElements(value int) Options {
	return Options{maxOpenElements: value, maxOpenElementsSet: true}
}

// MaxAttrs limits the number of attributes on a start tag. Excess
// attributes are dropped with a recorded parse error.
func MaxAttrs(value int) Options {
	return Options{maxAttrs: value, maxAttrsSet: true}
}

// Charset sets an authoritative encoding label (e.g. from a
// Content-Type header), overriding content sniffing.
func Charset(label string) Options {
	return Options{charsetLabel: label, charsetLabelSet: true}
}

func withSuspendHook(fn func(*token.Token) bool) Options {
	return Options{suspendHook: fn, suspendHookSet: true}
}
