// Package report renders verdicts and run summaries.
//
// Console produces the human-readable transcript: one verdict line per
// fixture on the primary stream, failure details on the diagnostic stream.
// Summary accumulates the run's tallies and can be persisted as JSON or
// rendered as an HTML report.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/lattice-substrate/joml-conformance/evaluate"
)

// Console writes verdict lines and the final summary.
type Console struct {
	out     io.Writer
	diag    io.Writer
	verbose bool
	pass    *color.Color
	fail    *color.Color
}

// NewConsole creates a Console. mode is one of "auto", "always" or
// "never"; auto enables color only when out is a terminal and NO_COLOR is
// unset. When verbose is set, structural diffs accompany "output differs"
// failures.
func NewConsole(out, diag io.Writer, mode string, verbose bool) *Console {
	c := &Console{
		out:     out,
		diag:    diag,
		verbose: verbose,
		pass:    color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
	}
	if UseColor(mode, out) {
		c.pass.EnableColor()
		c.fail.EnableColor()
	} else {
		c.pass.DisableColor()
		c.fail.DisableColor()
	}
	return c
}

// UseColor resolves a color mode against the destination writer.
func UseColor(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Begin prints the in-progress marker for a fixture.
func (c *Console) Begin(id string) {
	fmt.Fprintf(c.out, "# %s: ", id)
}

// Finish completes the verdict line started by Begin.
func (c *Console) Finish(id string, v evaluate.Verdict) {
	if v.Pass {
		fmt.Fprintln(c.out, c.pass.Sprint("PASS"))
		return
	}
	fmt.Fprintf(c.out, "%s (%s)\n", c.fail.Sprint("FAIL"), v.Reason)

	if v.Detail != "" {
		writeBlock(c.diag, v.Detail)
	}
	if c.verbose && v.Diff != "" {
		fmt.Fprintf(c.diag, "%s: mismatch (-want +got):\n", id)
		writeBlock(c.diag, v.Diff)
	}
}

// Abort terminates a verdict line whose fixture could not be evaluated
// because the run is stopping.
func (c *Console) Abort(id string) {
	fmt.Fprintln(c.out, c.fail.Sprint("ERROR"))
}

// Summary prints the closing tally.
func (c *Console) Summary(s *Summary) {
	if len(s.Failed) == 0 {
		fmt.Fprintln(c.out, "All tests passed")
		return
	}
	fmt.Fprintf(c.out, "Failed %d of %d total tests:\n", len(s.Failed), s.Total)
	for _, id := range s.Failed {
		fmt.Fprintln(c.out, id)
	}
}

func writeBlock(w io.Writer, text string) {
	io.WriteString(w, text)
	if !strings.HasSuffix(text, "\n") {
		io.WriteString(w, "\n")
	}
}
