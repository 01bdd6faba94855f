// Package canon produces a canonical byte form for decoded JSON value trees
// and compares trees by that form.
//
// The canonical form follows RFC 8785 (JCS) for layout, string escaping and
// object member ordering, with two deliberate differences: integers are
// written with full precision, floats always carry a fraction or exponent
// so that 1 and 1.0 stay distinct, and non-finite floats are written as
// NaN, Infinity and -Infinity. Two trees are Equal when their
// canonical forms are byte-identical, which makes equality insensitive to
// object member order and sensitive to array element order.
package canon

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"

	"github.com/lattice-substrate/joml-conformance/jsontree"
)

// Serialize produces the canonical byte sequence for a decoded value.
// The output is deterministic for any given value tree.
func Serialize(v *jsontree.Value) ([]byte, error) {
	return serializeValue(nil, v)
}

// Equal reports whether a and b have the same canonical form.
func Equal(a, b *jsontree.Value) (bool, error) {
	ca, err := Serialize(a)
	if err != nil {
		return false, err
	}
	cb, err := Serialize(b)
	if err != nil {
		return false, err
	}
	return string(ca) == string(cb), nil
}

func serializeValue(buf []byte, v *jsontree.Value) ([]byte, error) {
	switch v.Kind {
	case jsontree.KindNull:
		return append(buf, "null"...), nil
	case jsontree.KindBool:
		return append(buf, v.Str...), nil
	case jsontree.KindInteger:
		if v.Int == nil {
			return nil, fmt.Errorf("canon: integer value without digits")
		}
		return v.Int.Append(buf, 10), nil
	case jsontree.KindFloat:
		s, err := FormatFloat(v.Num)
		if err != nil {
			return nil, err
		}
		return append(buf, s...), nil
	case jsontree.KindString:
		return serializeString(buf, v.Str), nil
	case jsontree.KindArray:
		return serializeArray(buf, v)
	case jsontree.KindObject:
		return serializeObject(buf, v)
	default:
		return nil, fmt.Errorf("canon: unknown value kind %d", v.Kind)
	}
}

// FormatFloat renders f in ECMAScript Number::toString form, then marks it as
// a float: integral results gain a ".0" suffix and negative zero keeps its
// sign.
func FormatFloat(f float64) (string, error) {
	switch {
	case math.IsNaN(f):
		return "NaN", nil
	case math.IsInf(f, 1):
		return "Infinity", nil
	case math.IsInf(f, -1):
		return "-Infinity", nil
	case f == 0 && math.Signbit(f):
		return "-0.0", nil
	}
	s, err := jsoncanonicalizer.NumberToJSON(f)
	if err != nil {
		return "", fmt.Errorf("canon: number serialization error: %w", err)
	}
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s, nil
}

// serializeString applies JCS string escaping (RFC 8785 §3.2.2.2): quote,
// backslash and control characters are escaped, everything else is copied
// as raw UTF-8.
func serializeString(buf []byte, s string) []byte {
	buf = append(buf, '"')
	for i := 0; i < len(s); i++ {
		b := s[i]
		switch {
		case b == '"':
			buf = append(buf, '\\', '"')
		case b == '\\':
			buf = append(buf, '\\', '\\')
		case b == '\b':
			buf = append(buf, '\\', 'b')
		case b == '\t':
			buf = append(buf, '\\', 't')
		case b == '\n':
			buf = append(buf, '\\', 'n')
		case b == '\f':
			buf = append(buf, '\\', 'f')
		case b == '\r':
			buf = append(buf, '\\', 'r')
		case b < 0x20:
			buf = append(buf, '\\', 'u', '0', '0', hexDigit(b>>4), hexDigit(b&0x0F))
		default:
			buf = append(buf, b)
		}
	}
	return append(buf, '"')
}

func hexDigit(b byte) byte {
	if b < 10 {
		return '0' + b
	}
	return 'a' + (b - 10)
}

func serializeArray(buf []byte, v *jsontree.Value) ([]byte, error) {
	buf = append(buf, '[')
	for i := range v.Elems {
		if i > 0 {
			buf = append(buf, ',')
		}
		var err error
		buf, err = serializeValue(buf, &v.Elems[i])
		if err != nil {
			return nil, err
		}
	}
	return append(buf, ']'), nil
}

func serializeObject(buf []byte, v *jsontree.Value) ([]byte, error) {
	sorted := make([]jsontree.Member, len(v.Members))
	copy(sorted, v.Members)
	sort.SliceStable(sorted, func(i, j int) bool {
		return compareUTF16(sorted[i].Key, sorted[j].Key) < 0
	})

	buf = append(buf, '{')
	for i := range sorted {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = serializeString(buf, sorted[i].Key)
		buf = append(buf, ':')
		var err error
		buf, err = serializeValue(buf, &sorted[i].Value)
		if err != nil {
			return nil, err
		}
	}
	return append(buf, '}'), nil
}

// compareUTF16 compares two strings by their UTF-16 code-unit sequences
// (RFC 8785 §3.2.3). It differs from byte order only for supplementary-plane
// characters.
func compareUTF16(a, b string) int {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	n := len(ua)
	if len(ub) < n {
		n = len(ub)
	}
	for i := 0; i < n; i++ {
		if ua[i] != ub[i] {
			if ua[i] < ub[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(ua) < len(ub):
		return -1
	case len(ua) > len(ub):
		return 1
	default:
		return 0
	}
}
