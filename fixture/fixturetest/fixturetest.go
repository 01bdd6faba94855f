// Package fixturetest materializes fixture trees for tests.
//
// Trees are written as txtar archives, one file per section:
//
//	-- valid/int/input.joml --
//	a = 1
//	-- valid/int/output.json --
//	{"a": 1}
package fixturetest

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/tools/txtar"
)

// Sentinel is the file that marks a run root.
const Sentinel = "runner.yaml"

// WriteTree writes every file of the archive under a fresh temporary
// directory and returns that directory. An empty runner.yaml sentinel is
// added unless the archive provides one.
func WriteTree(t testing.TB, archive string) string {
	t.Helper()
	root := t.TempDir()
	ar := txtar.Parse([]byte(archive))
	hasSentinel := false
	for _, f := range ar.Files {
		if f.Name == Sentinel {
			hasSentinel = true
		}
		WriteFile(t, root, f.Name, f.Data)
	}
	if !hasSentinel {
		WriteFile(t, root, Sentinel, nil)
	}
	return root
}

// WriteFile writes data to root/name, creating parent directories.
func WriteFile(t testing.TB, root, name string, data []byte) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", name, err)
	}
	if err := os.WriteFile(p, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}
