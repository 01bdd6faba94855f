package evaluate_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-substrate/joml-conformance/evaluate"
	"github.com/lattice-substrate/joml-conformance/executil"
	"github.com/lattice-substrate/joml-conformance/fixture"
	"github.com/lattice-substrate/joml-conformance/fixture/fixturetest"
	"github.com/lattice-substrate/joml-conformance/jsontree"
)

func outputFixture(t *testing.T, reference string) fixture.Fixture {
	t.Helper()
	v, err := jsontree.Decode([]byte(reference))
	require.NoError(t, err)
	return fixture.Fixture{ID: "valid/case", Kind: fixture.ExpectOutput, Output: v}
}

func errorFixture(fragment string) fixture.Fixture {
	return fixture.Fixture{ID: "invalid/case", Kind: fixture.ExpectError, ErrorFragment: fragment}
}

func TestEvaluateExpectOutput(t *testing.T) {
	cases := []struct {
		name       string
		reference  string
		res        executil.Result
		wantPass   bool
		wantReason string
		wantDetail string
	}{
		{
			name:      "equal",
			reference: `{"a": 1}`,
			res:       executil.Result{Stdout: []byte(`{"a":1}`)},
			wantPass:  true,
		},
		{
			name:      "key_order_ignored",
			reference: `{"a": 1, "b": {"d": 2, "c": [1, 2]}}`,
			res:       executil.Result{Stdout: []byte(`{"b":{"c":[1,2],"d":2},"a":1}` + "\n")},
			wantPass:  true,
		},
		{
			name:       "value_differs",
			reference:  `{"a": 2}`,
			res:        executil.Result{Stdout: []byte(`{"a":1}`)},
			wantReason: evaluate.ReasonOutputDiffers,
			wantDetail: `{"a":1}`,
		},
		{
			name:       "array_order_significant",
			reference:  `{"a": [1, 2]}`,
			res:        executil.Result{Stdout: []byte(`{"a":[2,1]}`)},
			wantReason: evaluate.ReasonOutputDiffers,
			wantDetail: `{"a":[2,1]}`,
		},
		{
			name:      "duplicate_key_last_value_wins",
			reference: `{"a": 2}`,
			res:       executil.Result{Stdout: []byte(`{"a":1,"a":2}`)},
			wantPass:  true,
		},
		{
			name:       "duplicate_key_earlier_value_ignored",
			reference:  `{"a": 1}`,
			res:        executil.Result{Stdout: []byte(`{"a":1,"a":2}`)},
			wantReason: evaluate.ReasonOutputDiffers,
			wantDetail: `{"a":1,"a":2}`,
		},
		{
			name:      "overflow_is_infinity",
			reference: `{"a": 1e400}`,
			res:       executil.Result{Stdout: []byte(`{"a":Infinity}`)},
			wantPass:  true,
		},
		{
			name:       "infinity_differs_from_finite",
			reference:  `{"a": 1.0}`,
			res:        executil.Result{Stdout: []byte(`{"a":1e400}`)},
			wantReason: evaluate.ReasonOutputDiffers,
			wantDetail: `{"a":1e400}`,
		},
		{
			name:       "nonzero_exit",
			reference:  `{"a": 1}`,
			res:        executil.Result{ExitCode: 1, Stderr: []byte("boom\n")},
			wantReason: evaluate.ReasonParsingFailed,
			wantDetail: "boom\n",
		},
		{
			name:       "malformed_stdout",
			reference:  `{"a": 1}`,
			res:        executil.Result{Stdout: []byte(`{"a":`)},
			wantReason: evaluate.ReasonInvalidOutput,
			wantDetail: `{"a":`,
		},
		{
			name:       "timed_out",
			reference:  `{"a": 1}`,
			res:        executil.Result{ExitCode: -1, TimedOut: true, Stderr: []byte("partial")},
			wantReason: evaluate.ReasonTimedOut,
			wantDetail: "partial",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := tc.res
			v := evaluate.Evaluate(outputFixture(t, tc.reference), &res)
			assert.Equal(t, tc.wantPass, v.Pass)
			assert.Equal(t, tc.wantReason, v.Reason)
			assert.Equal(t, tc.wantDetail, v.Detail)
		})
	}
}

func TestEvaluateOutputDiffersCarriesDiff(t *testing.T) {
	res := executil.Result{Stdout: []byte(`{"a":1,"b":"x"}`)}
	v := evaluate.Evaluate(outputFixture(t, `{"a": 2, "b": "x"}`), &res)

	require.False(t, v.Pass)
	assert.Contains(t, v.Diff, `"a"`)
}

func TestEvaluateExpectError(t *testing.T) {
	cases := []struct {
		name       string
		fragment   string
		res        executil.Result
		wantPass   bool
		wantReason string
		wantDetail string
	}{
		{
			name:     "fragment_present",
			fragment: "unexpected end of input",
			res:      executil.Result{ExitCode: 2, Stderr: []byte("error: line 1: unexpected end of input\n")},
			wantPass: true,
		},
		{
			name:       "fragment_absent",
			fragment:   "unexpected end of input",
			res:        executil.Result{ExitCode: 2, Stderr: []byte("syntax error at line 1")},
			wantReason: evaluate.ReasonWrongError,
			wantDetail: "syntax error at line 1",
		},
		{
			name:       "succeeded",
			fragment:   "unexpected end of input",
			res:        executil.Result{Stdout: []byte(`{"a":[]}`)},
			wantReason: evaluate.ReasonParsingSucceeded,
			wantDetail: `{"a":[]}`,
		},
		{
			name:     "any_nonzero_exit",
			fragment: "bad",
			res:      executil.Result{ExitCode: 137, Stderr: []byte("bad")},
			wantPass: true,
		},
		{
			name:       "literal_not_pattern",
			fragment:   "line .*",
			res:        executil.Result{ExitCode: 1, Stderr: []byte("line 7")},
			wantReason: evaluate.ReasonWrongError,
			wantDetail: "line 7",
		},
		{
			name:       "trailing_newline_is_part_of_fragment",
			fragment:   "bad key\n",
			res:        executil.Result{ExitCode: 1, Stderr: []byte("bad key")},
			wantReason: evaluate.ReasonWrongError,
			wantDetail: "bad key",
		},
		{
			name:     "empty_fragment_matches",
			fragment: "",
			res:      executil.Result{ExitCode: 1},
			wantPass: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := tc.res
			v := evaluate.Evaluate(errorFixture(tc.fragment), &res)
			assert.Equal(t, tc.wantPass, v.Pass)
			assert.Equal(t, tc.wantReason, v.Reason)
			assert.Equal(t, tc.wantDetail, v.Detail)
		})
	}
}

func TestEvaluateCRLFErrorFileMatchesLFStderr(t *testing.T) {
	root := fixturetest.WriteTree(t, "")
	fixturetest.WriteFile(t, root, "case/input.joml", []byte("a ="))
	fixturetest.WriteFile(t, root, "case/error", []byte("bad key\r\n"))
	f, err := fixture.Load(filepath.Join(root, "case"), "case")
	require.NoError(t, err)

	res := executil.Result{ExitCode: 1, Stderr: []byte("error: bad key\n")}
	assert.True(t, evaluate.Evaluate(f, &res).Pass)
}
