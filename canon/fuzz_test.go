package canon_test

import (
	"bytes"
	"testing"

	"github.com/lattice-substrate/joml-conformance/canon"
	"github.com/lattice-substrate/joml-conformance/jsontree"
)

// FuzzDecodeCanonicalRoundTrip: decode → serialize → decode → serialize idempotence.
func FuzzDecodeCanonicalRoundTrip(f *testing.F) {
	seeds := [][]byte{
		[]byte(`null`),
		[]byte(`{"a":1,"z":[3,2,1]}`),
		[]byte(`{"":1,"𐀀":2}`),
		[]byte(`[1, 1.0, -0.0, 1e21, 5e-324]`),
		[]byte(`{"big":123456789012345678901234567890}`),
		[]byte(`"a\/b\u001f"`),
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, in []byte) {
		if len(in) > 1<<20 {
			return
		}

		v, err := jsontree.Decode(in)
		if err != nil {
			return
		}

		out1, err := canon.Serialize(v)
		if err != nil {
			t.Fatalf("serialize decoded value: %v", err)
		}

		v2, err := jsontree.Decode(out1)
		if err != nil {
			t.Fatalf("redecode canonical output %q: %v", out1, err)
		}
		out2, err := canon.Serialize(v2)
		if err != nil {
			t.Fatalf("reserialize canonical output: %v", err)
		}
		if !bytes.Equal(out1, out2) {
			t.Fatalf("non-deterministic canonical bytes: %q vs %q", out1, out2)
		}

		equal, err := canon.Equal(v, v2)
		if err != nil || !equal {
			t.Fatalf("canonical output not equal to input: equal=%v err=%v", equal, err)
		}
	})
}
