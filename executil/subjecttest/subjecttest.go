// Package subjecttest turns a test binary into a scriptable subject parser.
//
// A test package calls Main from its TestMain. When the test binary is then
// re-executed by the harness with EnvVar set, it reads the input document
// given as its only argument and interprets each line as a directive instead
// of running tests:
//
//	stdout <text>   write text and a newline to stdout
//	stderr <text>   write text and a newline to stderr
//	env <name>      write name=value of an environment variable to stdout
//	sleep <dur>     sleep for a time.ParseDuration duration
//	exit <code>     exit with code (default 0)
//
// Other lines are ignored, so an input document can carry plain notes.
package subjecttest

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"
)

// EnvVar switches a re-executed test binary into subject mode.
const EnvVar = "JOML_FAKE_SUBJECT"

// Main runs the fake subject and exits when EnvVar is set; otherwise it
// returns immediately.
func Main() {
	if os.Getenv(EnvVar) != "1" {
		return
	}
	os.Exit(run(os.Args[1:]))
}

// Binary returns the path of the running test binary and enables subject
// mode for every child process the test starts.
func Binary(t testing.TB) string {
	t.Helper()
	t.Setenv(EnvVar, "1")
	bin, err := os.Executable()
	if err != nil {
		t.Fatalf("resolve test binary: %v", err)
	}
	return bin
}

// Script joins directives into an input document.
func Script(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func run(args []string) int {
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "usage: subject <input-path>, got %d arguments\n", len(args))
		return 64
	}
	f, err := os.Open(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "open input: %v\n", err)
		return 66
	}
	defer f.Close()

	code := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		directive, arg, _ := strings.Cut(sc.Text(), " ")
		switch directive {
		case "stdout":
			fmt.Fprintln(os.Stdout, arg)
		case "stderr":
			fmt.Fprintln(os.Stderr, arg)
		case "env":
			fmt.Fprintf(os.Stdout, "%s=%s\n", arg, os.Getenv(arg))
		case "sleep":
			d, err := time.ParseDuration(arg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "bad sleep %q: %v\n", arg, err)
				return 65
			}
			time.Sleep(d)
		case "exit":
			n, err := strconv.Atoi(arg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "bad exit %q: %v\n", arg, err)
				return 65
			}
			code = n
		}
	}
	return code
}
