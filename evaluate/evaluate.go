// Package evaluate compares a subject's captured execution against a
// fixture's expected outcome.
package evaluate

import (
	"bytes"

	"github.com/google/go-cmp/cmp"

	"github.com/lattice-substrate/joml-conformance/canon"
	"github.com/lattice-substrate/joml-conformance/executil"
	"github.com/lattice-substrate/joml-conformance/fixture"
	"github.com/lattice-substrate/joml-conformance/jsontree"
)

// Failure reasons shown inline in verdict lines.
const (
	ReasonParsingFailed    = "parsing failed"
	ReasonInvalidOutput    = "invalid output"
	ReasonOutputDiffers    = "output differs"
	ReasonParsingSucceeded = "parsing succeeded"
	ReasonWrongError       = "wrong error"
	ReasonTimedOut         = "timed out"
)

// Verdict is the result of evaluating one fixture.
type Verdict struct {
	Pass   bool
	Reason string
	// Detail is the raw subject stream that explains a failure.
	Detail string
	// Diff is a structural diff (-want +got) for ReasonOutputDiffers.
	Diff string
}

// Pass is the passing verdict.
func Pass() Verdict {
	return Verdict{Pass: true}
}

// Fail builds a failing verdict.
func Fail(reason, detail string) Verdict {
	return Verdict{Reason: reason, Detail: detail}
}

// Evaluate applies the fixture's comparison rule to res. Only zero and
// non-zero exit codes are distinguished.
func Evaluate(f fixture.Fixture, res *executil.Result) Verdict {
	if res.TimedOut {
		return Fail(ReasonTimedOut, string(res.Stderr))
	}

	switch f.Kind {
	case fixture.ExpectOutput:
		return expectOutput(f.Output, res)
	case fixture.ExpectError:
		return expectError(f.ErrorFragment, res)
	default:
		// Discovery never yields such a fixture.
		return Fail("no reference", "")
	}
}

func expectOutput(want *jsontree.Value, res *executil.Result) Verdict {
	if res.ExitCode != 0 {
		return Fail(ReasonParsingFailed, string(res.Stderr))
	}

	got, err := jsontree.Decode(res.Stdout)
	if err != nil {
		return Fail(ReasonInvalidOutput, string(res.Stdout))
	}

	equal, err := canon.Equal(want, got)
	if err != nil {
		return Fail(ReasonInvalidOutput, string(res.Stdout))
	}
	if !equal {
		v := Fail(ReasonOutputDiffers, string(res.Stdout))
		v.Diff = cmp.Diff(canon.Plain(want), canon.Plain(got))
		return v
	}
	return Pass()
}

func expectError(fragment string, res *executil.Result) Verdict {
	if res.ExitCode == 0 {
		return Fail(ReasonParsingSucceeded, string(res.Stdout))
	}
	if !bytes.Contains(res.Stderr, []byte(fragment)) {
		return Fail(ReasonWrongError, string(res.Stderr))
	}
	return Pass()
}
