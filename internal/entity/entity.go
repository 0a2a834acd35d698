// Package entity decodes HTML character references for the tokenizer.
//
// The named table is a bounded subset of the HTML5 set; unknown names pass
// through unchanged, which is the documented fallback for this engine.
// Numeric references (decimal and hex) require a terminating semicolon and
// a valid Unicode scalar value; NUL and surrogate code points decode to
// U+FFFD and are flagged as malformed.
package entity

import "unicode/utf8"

// Result reports the outcome of a decode attempt at a '&'.
type Result struct {
	// Text is the replacement text when Decoded is true.
	Text string
	// Consumed is the number of input bytes covered by the reference,
	// including the leading '&'. Zero unless Decoded.
	Consumed int
	// Decoded reports that a replacement was produced.
	Decoded bool
	// NeedMore reports that the reference may continue past the available
	// input; the caller should retry with more input or atEOF set.
	NeedMore bool
	// Malformed reports a recoverable parse error (invalid numeric form or
	// scalar value); it may be set whether or not Decoded is.
	Malformed bool
}

const (
	maxNameLen   = 10
	maxDecDigits = 7 // 1114111
	maxHexDigits = 6 // 10FFFF
)

// named maps entity names (semicolon-terminated form, name only) to their
// replacement text.
var named = map[string]string{
	"amp":    "&",
	"lt":     "<",
	"gt":     ">",
	"quot":   "\"",
	"apos":   "'",
	"nbsp":   " ",
	"copy":   "©",
	"reg":    "®",
	"trade":  "™",
	"hellip": "…",
	"mdash":  "—",
	"ndash":  "–",
	"lsquo":  "‘",
	"rsquo":  "’",
	"ldquo":  "“",
	"rdquo":  "”",
	"laquo":  "«",
	"raquo":  "»",
	"times":  "×",
	"divide": "÷",
	"plusmn": "±",
	"deg":    "°",
	"micro":  "µ",
	"sect":   "§",
	"para":   "¶",
	"middot": "·",
	"bull":   "•",
	"dagger": "†",
	"prime":  "′",
	"Prime":  "″",
	"larr":   "←",
	"uarr":   "↑",
	"rarr":   "→",
	"darr":   "↓",
	"minus":  "−",
	"radic":  "√",
	"infin":  "∞",
	"ne":     "≠",
	"le":     "≤",
	"ge":     "≥",
	"euro":   "€",
	"pound":  "£",
	"cent":   "¢",
	"yen":    "¥",
	"shy":    "­",
}

// legacy names that historically decode without a trailing semicolon.
var legacy = map[string]bool{
	"amp":  true,
	"lt":   true,
	"gt":   true,
	"quot": true,
	"nbsp": true,
	"copy": true,
	"reg":  true,
}

// Decode attempts to decode a character reference at input[0] == '&'.
//
// inAttr applies the attribute-value restriction: a legacy (semicolonless)
// named match is not decoded when followed by '=' or an alphanumeric.
// atEOF disables NeedMore signalling; whatever is present is final.
func Decode(input []byte, atEOF, inAttr bool) Result {
	if len(input) == 0 || input[0] != '&' {
		return Result{}
	}
	if len(input) < 2 {
		if atEOF {
			return Result{}
		}
		return Result{NeedMore: true}
	}
	if input[1] == '#' {
		return decodeNumeric(input, atEOF)
	}
	return decodeNamed(input, atEOF, inAttr)
}

func decodeNamed(input []byte, atEOF, inAttr bool) Result {
	// Scan the candidate name: ASCII alphanumerics after '&'.
	i := 1
	for i < len(input) && i <= maxNameLen+1 && isAlnum(input[i]) {
		i++
	}
	if i >= len(input) && !atEOF && i <= maxNameLen+1 {
		return Result{NeedMore: true}
	}
	nameEnd := i
	if nameEnd > maxNameLen+1 {
		nameEnd = maxNameLen + 1
	}

	// Longest match wins; prefer the semicolon-terminated form.
	for end := nameEnd; end > 1; end-- {
		name := string(input[1:end])
		repl, ok := named[name]
		if !ok {
			continue
		}
		if end < len(input) && input[end] == ';' {
			return Result{Text: repl, Consumed: end + 1, Decoded: true}
		}
		if end >= len(input) && !atEOF {
			return Result{NeedMore: true}
		}
		if !legacy[name] {
			continue
		}
		if inAttr && end < len(input) && (input[end] == '=' || isAlnum(input[end])) {
			// Historical attribute rule: do not decode.
			return Result{}
		}
		return Result{Text: repl, Consumed: end, Decoded: true, Malformed: true}
	}
	return Result{}
}

func decodeNumeric(input []byte, atEOF bool) Result {
	hex := false
	start := 2
	if start < len(input) && (input[start] == 'x' || input[start] == 'X') {
		hex = true
		start++
	}
	maxDigits := maxDecDigits
	if hex {
		maxDigits = maxHexDigits
	}

	i := start
	var value uint32
	for i < len(input) {
		b := input[i]
		if b == ';' {
			break
		}
		var d uint32
		switch {
		case b >= '0' && b <= '9':
			d = uint32(b - '0')
		case hex && b >= 'a' && b <= 'f':
			d = uint32(b-'a') + 10
		case hex && b >= 'A' && b <= 'F':
			d = uint32(b-'A') + 10
		default:
			// Not a digit run ending in ';': pass through unchanged.
			return Result{Malformed: true}
		}
		if i-start >= maxDigits {
			return Result{Malformed: true}
		}
		if hex {
			value = value*16 + d
		} else {
			value = value*10 + d
		}
		i++
	}
	if i >= len(input) {
		if atEOF {
			return Result{Malformed: true}
		}
		return Result{NeedMore: true}
	}
	if i == start {
		// "&#;" or "&#x;": no digits.
		return Result{Malformed: true}
	}

	consumed := i + 1
	r := rune(value)
	if r == 0 || (r >= 0xd800 && r <= 0xdfff) || r > 0x10ffff {
		return Result{Text: string(utf8.RuneError), Consumed: consumed, Decoded: true, Malformed: true}
	}
	return Result{Text: string(r), Consumed: consumed, Decoded: true}
}

func isAlnum(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
