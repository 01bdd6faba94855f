// Package jsontree decodes JSON documents into an ordered value tree.
//
// It is used for both sides of an output comparison: the reference
// output.json of a fixture and the stdout of the subject parser. Numbers keep
// their integer/float distinction, and integers keep arbitrary precision, so
// that 1 and 1.0 or two integers beyond 2^53 never compare equal by accident.
//
// Decoding follows what a typical dynamic-language JSON reader accepts: a
// repeated object key keeps its first position but takes the last value,
// numbers too large for a double become ±Inf, and the NaN, Infinity and
// -Infinity literals are read as floats. Lone surrogate escapes are
// rejected.
package jsontree

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"
)

// Limits for denial-of-service protection against a misbehaving subject.
const (
	// DefaultMaxDepth is the maximum nesting depth for objects and arrays.
	DefaultMaxDepth = 1000

	// DefaultMaxInputSize is the maximum input size in bytes (64 MiB).
	DefaultMaxInputSize = 64 * 1024 * 1024
)

// Value represents a decoded JSON value.
type Value struct {
	Kind    Kind
	Str     string   // KindString: decoded string; KindBool: "true" or "false"
	Int     *big.Int // KindInteger
	Num     float64  // KindFloat
	Members []Member // KindObject: members in document order
	Elems   []Value  // KindArray
}

// Kind identifies the type of a JSON value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInteger
	KindFloat
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Member is a key-value pair in a JSON object.
type Member struct {
	Key   string
	Value Value
}

// SyntaxError is returned when the input is not an acceptable JSON document.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("jsontree: at byte %d: %s", e.Offset, e.Msg)
}

// Options controls decoder behavior.
type Options struct {
	MaxDepth     int // 0 means DefaultMaxDepth
	MaxInputSize int // 0 means DefaultMaxInputSize
}

func (o *Options) maxDepth() int {
	if o != nil && o.MaxDepth > 0 {
		return o.MaxDepth
	}
	return DefaultMaxDepth
}

func (o *Options) maxInputSize() int {
	if o != nil && o.MaxInputSize > 0 {
		return o.MaxInputSize
	}
	return DefaultMaxInputSize
}

type decoder struct {
	data     []byte
	pos      int
	depth    int
	maxDepth int
}

// Decode decodes a complete JSON text. Leading and trailing whitespace is
// allowed; any other trailing content is an error.
func Decode(data []byte) (*Value, error) {
	return DecodeWithOptions(data, nil)
}

// DecodeWithOptions is like Decode but accepts configuration options.
func DecodeWithOptions(data []byte, opts *Options) (*Value, error) {
	maxInput := opts.maxInputSize()
	if len(data) > maxInput {
		return nil, &SyntaxError{
			Offset: 0,
			Msg:    fmt.Sprintf("input size %d exceeds maximum %d", len(data), maxInput),
		}
	}

	d := &decoder{data: data, maxDepth: opts.maxDepth()}

	d.skipWhitespace()
	v, err := d.value()
	if err != nil {
		return nil, err
	}
	d.skipWhitespace()
	if d.pos != len(d.data) {
		return nil, d.errorf("trailing content after JSON value")
	}
	return v, nil
}

func (d *decoder) errorf(format string, args ...any) *SyntaxError {
	return &SyntaxError{Offset: d.pos, Msg: fmt.Sprintf(format, args...)}
}

func (d *decoder) peek() (byte, bool) {
	if d.pos >= len(d.data) {
		return 0, false
	}
	return d.data[d.pos], true
}

func (d *decoder) expect(b byte) error {
	if d.pos >= len(d.data) {
		return d.errorf("unexpected end of input, expected %q", string(b))
	}
	c := d.data[d.pos]
	if c != b {
		return d.errorf("expected %q, got %q", string(b), string(c))
	}
	d.pos++
	return nil
}

func (d *decoder) skipWhitespace() {
	for d.pos < len(d.data) {
		switch d.data[d.pos] {
		case ' ', '\t', '\n', '\r':
			d.pos++
		default:
			return
		}
	}
}

func (d *decoder) enter() error {
	d.depth++
	if d.depth > d.maxDepth {
		return d.errorf("nesting depth %d exceeds maximum %d", d.depth, d.maxDepth)
	}
	return nil
}

func (d *decoder) leave() {
	d.depth--
}

func (d *decoder) value() (*Value, error) {
	c, ok := d.peek()
	if !ok {
		return nil, d.errorf("unexpected end of input")
	}

	switch c {
	case '{':
		return d.object()
	case '[':
		return d.array()
	case '"':
		s, err := d.str()
		if err != nil {
			return nil, err
		}
		return &Value{Kind: KindString, Str: s}, nil
	case 't':
		return d.literal("true", Value{Kind: KindBool, Str: "true"})
	case 'f':
		return d.literal("false", Value{Kind: KindBool, Str: "false"})
	case 'n':
		return d.literal("null", Value{Kind: KindNull})
	case 'N':
		return d.literal("NaN", Value{Kind: KindFloat, Num: math.NaN()})
	case 'I':
		return d.literal("Infinity", Value{Kind: KindFloat, Num: math.Inf(1)})
	default:
		return d.number()
	}
}

func (d *decoder) object() (*Value, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	if err := d.expect('{'); err != nil {
		return nil, err
	}
	d.skipWhitespace()

	v := &Value{Kind: KindObject}
	if c, ok := d.peek(); ok && c == '}' {
		d.pos++
		return v, nil
	}

	// index of each key in v.Members; a repeated key overwrites in place
	seen := make(map[string]int)
	for {
		d.skipWhitespace()
		key, err := d.str()
		if err != nil {
			return nil, err
		}

		d.skipWhitespace()
		if err := d.expect(':'); err != nil {
			return nil, err
		}
		d.skipWhitespace()

		val, err := d.value()
		if err != nil {
			return nil, err
		}
		if i, dup := seen[key]; dup {
			v.Members[i].Value = *val
		} else {
			seen[key] = len(v.Members)
			v.Members = append(v.Members, Member{Key: key, Value: *val})
		}

		d.skipWhitespace()
		c, ok := d.peek()
		switch {
		case !ok:
			return nil, d.errorf("unexpected end of input in object")
		case c == '}':
			d.pos++
			return v, nil
		case c == ',':
			d.pos++
		default:
			return nil, d.errorf("expected ',' or '}' in object, got %q", string(c))
		}
	}
}

func (d *decoder) array() (*Value, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	if err := d.expect('['); err != nil {
		return nil, err
	}
	d.skipWhitespace()

	v := &Value{Kind: KindArray}
	if c, ok := d.peek(); ok && c == ']' {
		d.pos++
		return v, nil
	}

	for {
		d.skipWhitespace()
		elem, err := d.value()
		if err != nil {
			return nil, err
		}
		v.Elems = append(v.Elems, *elem)

		d.skipWhitespace()
		c, ok := d.peek()
		switch {
		case !ok:
			return nil, d.errorf("unexpected end of input in array")
		case c == ']':
			d.pos++
			return v, nil
		case c == ',':
			d.pos++
		default:
			return nil, d.errorf("expected ',' or ']' in array, got %q", string(c))
		}
	}
}

func (d *decoder) str() (string, error) {
	if err := d.expect('"'); err != nil {
		return "", err
	}

	var buf []byte
	for {
		if d.pos >= len(d.data) {
			return "", d.errorf("unterminated string")
		}
		b := d.data[d.pos]

		switch {
		case b == '"':
			d.pos++
			return string(buf), nil
		case b == '\\':
			d.pos++
			r, err := d.escape()
			if err != nil {
				return "", err
			}
			buf = utf8.AppendRune(buf, r)
		case b < 0x20:
			return "", d.errorf("unescaped control character 0x%02X in string", b)
		default:
			r, size := utf8.DecodeRune(d.data[d.pos:])
			if r == utf8.RuneError && size <= 1 {
				return "", d.errorf("invalid UTF-8 byte 0x%02X in string", b)
			}
			buf = append(buf, d.data[d.pos:d.pos+size]...)
			d.pos += size
		}
	}
}

func (d *decoder) escape() (rune, error) {
	if d.pos >= len(d.data) {
		return 0, d.errorf("unterminated escape sequence")
	}
	b := d.data[d.pos]
	d.pos++

	switch b {
	case '"', '\\', '/':
		return rune(b), nil
	case 'b':
		return '\b', nil
	case 'f':
		return '\f', nil
	case 'n':
		return '\n', nil
	case 'r':
		return '\r', nil
	case 't':
		return '\t', nil
	case 'u':
		return d.unicodeEscape()
	default:
		return 0, d.errorf("invalid escape character %q", string(b))
	}
}

// unicodeEscape decodes \uXXXX, joining a surrogate pair when one follows.
func (d *decoder) unicodeEscape() (rune, error) {
	r1, err := d.hex4()
	if err != nil {
		return 0, err
	}
	if !utf16.IsSurrogate(r1) {
		return r1, nil
	}
	if r1 >= 0xDC00 {
		return 0, d.errorf("lone low surrogate U+%04X", r1)
	}
	if d.pos+1 >= len(d.data) || d.data[d.pos] != '\\' || d.data[d.pos+1] != 'u' {
		return 0, d.errorf("lone high surrogate U+%04X", r1)
	}
	d.pos += 2
	r2, err := d.hex4()
	if err != nil {
		return 0, err
	}
	decoded := utf16.DecodeRune(r1, r2)
	if decoded == unicode.ReplacementChar {
		return 0, d.errorf("high surrogate U+%04X followed by U+%04X", r1, r2)
	}
	return decoded, nil
}

func (d *decoder) hex4() (rune, error) {
	if d.pos+4 > len(d.data) {
		return 0, d.errorf("incomplete \\u escape")
	}
	hex := string(d.data[d.pos : d.pos+4])
	d.pos += 4
	val, err := strconv.ParseUint(hex, 16, 16)
	if err != nil {
		return 0, d.errorf("invalid hex in \\u escape: %q", hex)
	}
	return rune(val), nil
}

func (d *decoder) number() (*Value, error) {
	start := d.pos
	isFloat := false

	if d.pos < len(d.data) && d.data[d.pos] == '-' {
		d.pos++
	}
	if d.pos >= len(d.data) {
		return nil, d.errorf("unexpected end of input in number")
	}
	if d.data[d.pos] == 'I' && d.pos > start {
		return d.literal("Infinity", Value{Kind: KindFloat, Num: math.Inf(-1)})
	}

	switch c := d.data[d.pos]; {
	case c == '0':
		d.pos++
		if d.pos < len(d.data) && isDigit(d.data[d.pos]) {
			return nil, d.errorf("leading zero in number")
		}
	case c >= '1' && c <= '9':
		d.digits()
	default:
		return nil, d.errorf("invalid character %q", string(c))
	}

	if d.pos < len(d.data) && d.data[d.pos] == '.' {
		isFloat = true
		d.pos++
		if d.pos >= len(d.data) || !isDigit(d.data[d.pos]) {
			return nil, d.errorf("expected digit after decimal point")
		}
		d.digits()
	}

	if d.pos < len(d.data) && (d.data[d.pos] == 'e' || d.data[d.pos] == 'E') {
		isFloat = true
		d.pos++
		if d.pos < len(d.data) && (d.data[d.pos] == '+' || d.data[d.pos] == '-') {
			d.pos++
		}
		if d.pos >= len(d.data) || !isDigit(d.data[d.pos]) {
			return nil, d.errorf("expected digit in exponent")
		}
		d.digits()
	}

	raw := string(d.data[start:d.pos])

	if !isFloat {
		n, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			return nil, &SyntaxError{Offset: start, Msg: fmt.Sprintf("invalid integer %q", raw)}
		}
		return &Value{Kind: KindInteger, Int: n}, nil
	}

	// Out-of-range values saturate: overflow to ±Inf, underflow to ±0.
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return nil, &SyntaxError{Offset: start, Msg: fmt.Sprintf("invalid number %q", raw)}
	}
	return &Value{Kind: KindFloat, Num: f}, nil
}

func (d *decoder) digits() {
	for d.pos < len(d.data) && isDigit(d.data[d.pos]) {
		d.pos++
	}
}

func (d *decoder) literal(word string, v Value) (*Value, error) {
	end := d.pos + len(word)
	if end > len(d.data) || string(d.data[d.pos:end]) != word {
		return nil, d.errorf("invalid literal")
	}
	d.pos = end
	return &v, nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
