package canon

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lattice-substrate/joml-conformance/jsontree"
)

func decode(t *testing.T, in string) *jsontree.Value {
	t.Helper()
	v, err := jsontree.Decode([]byte(in))
	if err != nil {
		t.Fatalf("decode %q: %v", in, err)
	}
	return v
}

func canonical(t *testing.T, in string) string {
	t.Helper()
	out, err := Serialize(decode(t, in))
	if err != nil {
		t.Fatalf("serialize %q: %v", in, err)
	}
	return string(out)
}

func TestSerializeWhitespaceRemoval(t *testing.T) {
	if got := canonical(t, `{ "a" : [ 1 , 2 ] }`); got != `{"a":[1,2]}` {
		t.Fatalf("got %q", got)
	}
}

func TestSerializeSortsKeysRecursively(t *testing.T) {
	got := canonical(t, `{"z":{"y":1,"b":2},"a":[{"d":1,"c":2}]}`)
	if got != `{"a":[{"c":2,"d":1}],"z":{"b":2,"y":1}}` {
		t.Fatalf("got %q", got)
	}
}

func TestSerializeUTF16SortDivergence(t *testing.T) {
	got := canonical(t, `{"\uE000":1,"\uD800\uDC00":2}`)
	if got != "{\"𐀀\":2,\"\ue000\":1}" {
		t.Fatalf("got %q", got)
	}
}

func TestSerializeEscapesControlCharacters(t *testing.T) {
	got := canonical(t, `"\u0008\u0009\u000a\u000c\u000d\u001f\"\\"`)
	if got != `"\b\t\n\f\r\u001f\"\\"` {
		t.Fatalf("got %q", got)
	}
}

func TestSerializeNoEscapeChars(t *testing.T) {
	if got := canonical(t, `"<>&\/é"`); got != `"<>&/é"` {
		t.Fatalf("got %q", got)
	}
}

func TestSerializeNumbers(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`1`, `1`},
		{`-0`, `0`},
		{`123456789012345678901234567890`, `123456789012345678901234567890`},
		{`1.0`, `1.0`},
		{`1e2`, `100.0`},
		{`-0.0`, `-0.0`},
		{`0.1`, `0.1`},
		{`1e21`, `1e+21`},
		{`1.5e-7`, `1.5e-7`},
		{`1e400`, `Infinity`},
		{`-1e400`, `-Infinity`},
		{`NaN`, `NaN`},
	}
	for _, tc := range cases {
		if got := canonical(t, tc.in); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEqual(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{`{"a":1,"b":[1,2]}`, `{"b":[1,2],"a":1}`, true},
		{`{"a":1}`, `{"a":2}`, false},
		{`[1,2]`, `[2,1]`, false},
		{`{"a":1}`, `{"a":1.0}`, false},
		{`{"a":0.5}`, `{"a":5e-1}`, true},
		{`{"a":"1"}`, `{"a":1}`, false},
		{`{}`, `[]`, false},
		{`{"a":{"b":null}}`, ` { "a" : { "b" : null } } `, true},
		{`{"a":1,"a":2}`, `{"a":2}`, true},
		{`{"a":1e400}`, `{"a":Infinity}`, true},
		{`{"a":-1e999}`, `{"a":1e999}`, false},
		{`[NaN]`, `[NaN]`, true},
	}
	for _, tc := range cases {
		got, err := Equal(decode(t, tc.a), decode(t, tc.b))
		if err != nil {
			t.Fatalf("Equal(%s, %s): %v", tc.a, tc.b, err)
		}
		if got != tc.want {
			t.Errorf("Equal(%s, %s) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestFormatFloatNonFinite(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{math.NaN(), "NaN"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
	}
	for _, tc := range cases {
		got, err := FormatFloat(tc.in)
		if err != nil {
			t.Fatalf("FormatFloat(%v): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("FormatFloat(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPlain(t *testing.T) {
	got := Plain(decode(t, `{"b":[1,2.5,"x",true,null],"a":{}}`))
	want := map[string]any{
		"a": map[string]any{},
		"b": []any{json.Number("1"), json.Number("2.5"), "x", true, nil},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Plain mismatch (-want +got):\n%s", diff)
	}
}
