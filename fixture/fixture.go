// Package fixture models conformance test cases and discovers them on disk.
//
// A fixture directory holds the document fed to the subject parser
// (input.joml) and exactly one reference file: output.json when parsing must
// succeed, or error when it must fail.
package fixture

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lattice-substrate/joml-conformance/jsontree"
	"github.com/lattice-substrate/joml-conformance/runerr"
)

// File names inside a fixture directory.
const (
	InputFile  = "input.joml"
	OutputFile = "output.json"
	ErrorFile  = "error"
)

// Kind is the expected outcome of a fixture.
type Kind int

const (
	// ExpectOutput fixtures must parse and produce output.json.
	ExpectOutput Kind = iota + 1
	// ExpectError fixtures must fail with the error fragment on stderr.
	ExpectError
)

func (k Kind) String() string {
	switch k {
	case ExpectOutput:
		return "output"
	case ExpectError:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Fixture is one test case.
type Fixture struct {
	// ID is the fixture path relative to the run root.
	ID        string
	Dir       string
	InputPath string
	Kind      Kind

	// Output is the decoded output.json, set iff Kind == ExpectOutput.
	Output *jsontree.Value
	// ErrorFragment is the full content of the error file, set iff
	// Kind == ExpectError.
	ErrorFragment string
}

// Load builds a Fixture from dir. The reference files are checked in order,
// output.json first; if neither exists the fixture is misconfigured.
func Load(dir, id string) (Fixture, error) {
	f := Fixture{
		ID:        id,
		Dir:       dir,
		InputPath: filepath.Join(dir, InputFile),
	}
	if !isFile(f.InputPath) {
		return Fixture{}, runerr.New(runerr.MissingInput, id, fmt.Sprintf("%s is not present", InputFile))
	}

	outputPath := filepath.Join(dir, OutputFile)
	if isFile(outputPath) {
		data, err := os.ReadFile(outputPath)
		if err != nil {
			return Fixture{}, runerr.Wrap(runerr.InvalidReference, id, "read "+OutputFile, err)
		}
		v, err := jsontree.Decode(data)
		if err != nil {
			return Fixture{}, runerr.Wrap(runerr.InvalidReference, id, "decode "+OutputFile, err)
		}
		f.Kind = ExpectOutput
		f.Output = v
		return f, nil
	}

	errorPath := filepath.Join(dir, ErrorFile)
	if isFile(errorPath) {
		data, err := os.ReadFile(errorPath)
		if err != nil {
			return Fixture{}, runerr.Wrap(runerr.InvalidReference, id, "read "+ErrorFile, err)
		}
		f.Kind = ExpectError
		f.ErrorFragment = normalizeNewlines(string(data))
		return f, nil
	}

	return Fixture{}, runerr.New(runerr.MissingReference, id,
		fmt.Sprintf("neither %s nor %s is present", OutputFile, ErrorFile))
}

// normalizeNewlines reads the error file as text: CRLF and lone CR become LF.
func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
