package jsontree_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/lattice-substrate/joml-conformance/jsontree"
)

func mustDecode(t *testing.T, in string) *jsontree.Value {
	t.Helper()
	v, err := jsontree.Decode([]byte(in))
	if err != nil {
		t.Fatalf("decode %q: %v", in, err)
	}
	return v
}

func mustDecodeErr(t *testing.T, in []byte) *jsontree.SyntaxError {
	t.Helper()
	_, err := jsontree.Decode(in)
	if err == nil {
		t.Fatalf("expected error for %q", in)
	}
	var se *jsontree.SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("expected *jsontree.SyntaxError, got %T: %v", err, err)
	}
	return se
}

func TestDecodeScalars(t *testing.T) {
	cases := []struct {
		in   string
		kind jsontree.Kind
	}{
		{`null`, jsontree.KindNull},
		{`true`, jsontree.KindBool},
		{`false`, jsontree.KindBool},
		{`0`, jsontree.KindInteger},
		{`-12`, jsontree.KindInteger},
		{`1.0`, jsontree.KindFloat},
		{`1e3`, jsontree.KindFloat},
		{`"s"`, jsontree.KindString},
		{` [] `, jsontree.KindArray},
		{"\n{}\n", jsontree.KindObject},
	}
	for _, tc := range cases {
		if got := mustDecode(t, tc.in).Kind; got != tc.kind {
			t.Errorf("%q: kind = %s, want %s", tc.in, got, tc.kind)
		}
	}
}

func TestDecodeKeepsIntegerPrecision(t *testing.T) {
	v := mustDecode(t, `18446744073709551617`)
	if v.Kind != jsontree.KindInteger {
		t.Fatalf("kind = %s, want integer", v.Kind)
	}
	if got := v.Int.String(); got != "18446744073709551617" {
		t.Fatalf("int = %s", got)
	}
}

func TestDecodeNegativeZeroFloat(t *testing.T) {
	v := mustDecode(t, `-0.0`)
	if v.Kind != jsontree.KindFloat || v.Num != 0 || !math.Signbit(v.Num) {
		t.Fatalf("got kind=%s num=%v", v.Kind, v.Num)
	}
}

func TestDecodeUnderflowIsZero(t *testing.T) {
	v := mustDecode(t, `1e-400`)
	if v.Kind != jsontree.KindFloat || v.Num != 0 {
		t.Fatalf("got kind=%s num=%v", v.Kind, v.Num)
	}
}

func TestDecodeOverflowSaturates(t *testing.T) {
	for in, sign := range map[string]int{`1e400`: 1, `-1e400`: -1, `[2.5e999]`: 1} {
		v := mustDecode(t, in)
		if v.Kind == jsontree.KindArray {
			v = &v.Elems[0]
		}
		if v.Kind != jsontree.KindFloat || !math.IsInf(v.Num, sign) {
			t.Fatalf("%s: got kind=%s num=%v", in, v.Kind, v.Num)
		}
	}
}

func TestDecodeNonFiniteLiterals(t *testing.T) {
	v := mustDecode(t, `[NaN, Infinity, -Infinity]`)
	if len(v.Elems) != 3 {
		t.Fatalf("got %d elements", len(v.Elems))
	}
	if e := v.Elems[0]; e.Kind != jsontree.KindFloat || !math.IsNaN(e.Num) {
		t.Fatalf("NaN: got kind=%s num=%v", e.Kind, e.Num)
	}
	if e := v.Elems[1]; e.Kind != jsontree.KindFloat || !math.IsInf(e.Num, 1) {
		t.Fatalf("Infinity: got kind=%s num=%v", e.Kind, e.Num)
	}
	if e := v.Elems[2]; e.Kind != jsontree.KindFloat || !math.IsInf(e.Num, -1) {
		t.Fatalf("-Infinity: got kind=%s num=%v", e.Kind, e.Num)
	}
}

func TestDecodeDuplicateKeyLastValueWins(t *testing.T) {
	v := mustDecode(t, `{"a":1,"b":true,"\u0061":{"c":2}}`)
	if len(v.Members) != 2 {
		t.Fatalf("members = %+v, want 2", v.Members)
	}
	if m := v.Members[0]; m.Key != "a" || m.Value.Kind != jsontree.KindObject {
		t.Fatalf("first member = %+v, want a with the later object value", m)
	}
	if v.Members[1].Key != "b" {
		t.Fatalf("second member key = %q, want b", v.Members[1].Key)
	}
}

func TestDecodeObjectPreservesMemberOrder(t *testing.T) {
	v := mustDecode(t, `{"b":1,"a":{"d":[1,2],"c":null}}`)
	if len(v.Members) != 2 || v.Members[0].Key != "b" || v.Members[1].Key != "a" {
		t.Fatalf("unexpected members: %+v", v.Members)
	}
	inner := v.Members[1].Value
	if inner.Kind != jsontree.KindObject || inner.Members[0].Key != "d" {
		t.Fatalf("unexpected inner object: %+v", inner)
	}
	if n := len(inner.Members[0].Value.Elems); n != 2 {
		t.Fatalf("inner array length = %d, want 2", n)
	}
}

func TestDecodeStringEscapes(t *testing.T) {
	v := mustDecode(t, `"a\"b\\c\/d\b\f\n\r\té😀"`)
	want := "a\"b\\c/d\b\f\n\r\té😀"
	if v.Str != want {
		t.Fatalf("got %q, want %q", v.Str, want)
	}
}

func TestDecodeRejects(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		msg  string
	}{
		{"empty", []byte(``), "unexpected end of input"},
		{"leading_zero", []byte(`01`), "leading zero"},
		{"trailing_comma_object", []byte(`{"a":1,}`), "expected"},
		{"trailing_comma_array", []byte(`[1,]`), "invalid character"},
		{"lone_high_surrogate", []byte(`"\ud800"`), "lone high surrogate"},
		{"lone_low_surrogate", []byte(`"\udc00"`), "lone low surrogate"},
		{"control_char", []byte("\"a\x01\""), "unescaped control character"},
		{"invalid_utf8", []byte{'"', 0xff, '"'}, "invalid UTF-8"},
		{"bad_literal", []byte(`nul`), "invalid literal"},
		{"trailing_content", []byte(`{} {}`), "trailing content"},
		{"unterminated_string", []byte(`"abc`), "unterminated string"},
		{"lowercase_nan", []byte(`nan`), "invalid literal"},
		{"truncated_infinity", []byte(`-Inf`), "invalid literal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			se := mustDecodeErr(t, tc.in)
			if !strings.Contains(se.Msg, tc.msg) {
				t.Fatalf("message %q does not contain %q", se.Msg, tc.msg)
			}
		})
	}
}

func TestDecodeDepthLimit(t *testing.T) {
	in := strings.Repeat("[", 5) + strings.Repeat("]", 5)
	_, err := jsontree.DecodeWithOptions([]byte(in), &jsontree.Options{MaxDepth: 4})
	if err == nil || !strings.Contains(err.Error(), "nesting depth") {
		t.Fatalf("expected nesting depth error, got %v", err)
	}
	if _, err := jsontree.DecodeWithOptions([]byte(in), &jsontree.Options{MaxDepth: 5}); err != nil {
		t.Fatalf("depth 5 rejected: %v", err)
	}
}

func TestDecodeInputSizeLimit(t *testing.T) {
	_, err := jsontree.DecodeWithOptions([]byte(`"abcdef"`), &jsontree.Options{MaxInputSize: 4})
	if err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
		t.Fatalf("expected size error, got %v", err)
	}
}
