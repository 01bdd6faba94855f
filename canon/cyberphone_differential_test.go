package canon

import (
	"testing"

	cyberphone "github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
)

// For documents whose numbers are all non-integral floats the canonical form
// must match the reference JCS implementation byte for byte.
func TestCyberphoneDifferentialFloatDocuments(t *testing.T) {
	cases := []string{
		`{"b":0.1,"a":[1.5e-7,123.456,1.1e21]}`,
		`{"€":"euro","$":"dollar","\r":"cr","1":"one"}`,
		`[{"z":-2.25,"y":"a\u0001b"},0.000001]`,
		`{"nested":{"list":[0.5,"<>&",null,true],"k":3.14}}`,
	}

	for _, in := range cases {
		t.Run(in, func(t *testing.T) {
			want, err := cyberphone.Transform([]byte(in))
			if err != nil {
				t.Fatalf("cyberphone rejected input: %v", err)
			}
			got := canonical(t, in)
			if got != string(want) {
				t.Fatalf("canonical form mismatch\n got=%q\nwant=%q", got, want)
			}
		})
	}
}
