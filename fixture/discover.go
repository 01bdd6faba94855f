package fixture

import (
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/lattice-substrate/joml-conformance/runerr"
)

// Discover returns the fixtures under root in run order.
//
// With an empty selection every immediate entry of root is a candidate, in
// lexicographic order. Otherwise the selected paths (relative to root) are the
// candidates, verbatim and in the given order. A candidate directory holding
// input.joml is a fixture; any other candidate directory is a group whose
// immediate subdirectories are fixtures. Non-directory candidates are
// skipped.
//
// Discovery loads every reference file before returning, so a misconfigured
// fixture aborts the run before anything executes.
func Discover(root string, selection []string) ([]Fixture, error) {
	candidates := selection
	if len(candidates) == 0 {
		names, err := subdirs(root, root)
		if err != nil {
			return nil, err
		}
		candidates = names
	}

	var fixtures []Fixture
	for _, candidate := range candidates {
		id := path.Clean(filepath.ToSlash(candidate))
		dir := filepath.Join(root, filepath.FromSlash(id))
		if filepath.IsAbs(candidate) {
			dir = filepath.Clean(candidate)
		}
		if !isDir(dir) {
			continue
		}

		if isFile(filepath.Join(dir, InputFile)) {
			f, err := Load(dir, id)
			if err != nil {
				return nil, err
			}
			fixtures = append(fixtures, f)
			continue
		}

		children, err := subdirs(dir, id)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			f, err := Load(filepath.Join(dir, child), path.Join(id, child))
			if err != nil {
				return nil, err
			}
			fixtures = append(fixtures, f)
		}
	}
	return fixtures, nil
}

// IDs returns the identifiers of fixtures in order.
func IDs(fixtures []Fixture) []string {
	ids := make([]string, len(fixtures))
	for i := range fixtures {
		ids[i] = fixtures[i].ID
	}
	return ids
}

// vcsDirs are version-control metadata directories; they are never fixtures.
var vcsDirs = map[string]bool{".git": true, ".hg": true, ".svn": true, ".bzr": true}

// subdirs lists the names of the immediate subdirectories of dir, sorted.
func subdirs(dir, id string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, runerr.Wrap(runerr.InternalIO, id, "list directory", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if vcsDirs[entry.Name()] {
			continue
		}
		if entry.IsDir() || (entry.Type()&os.ModeSymlink != 0 && isDir(filepath.Join(dir, entry.Name()))) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
