package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/lattice-substrate/joml-conformance/runerr"
)

// WriteJSON persists s as an indented JSON document at path.
func WriteJSON(path string, s *Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return runerr.Wrap(runerr.InternalError, path, "encode summary", err)
	}
	data = append(data, '\n')
	return lockAndWrite(path, data)
}

// Markdown renders s as a markdown document.
func Markdown(s *Summary) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# JOML conformance run %s\n\n", s.RunID)
	fmt.Fprintf(&b, "- Subject: `%s`\n", s.Subject)
	fmt.Fprintf(&b, "- Started: %s\n", s.StartedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "- Duration: %s\n", s.Duration.Round(time.Millisecond))
	if s.Passed() {
		fmt.Fprintf(&b, "- Result: all %d tests passed\n\n", s.Total)
	} else {
		fmt.Fprintf(&b, "- Result: failed %d of %d total tests\n\n", len(s.Failed), s.Total)
	}

	b.WriteString("| Fixture | Verdict | Reason | Duration |\n")
	b.WriteString("|---------|---------|--------|----------|\n")
	for _, r := range s.Results {
		verdict := "PASS"
		if !r.Pass {
			verdict = "FAIL"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", cell(r.ID), verdict, cell(r.Reason), r.Duration.Round(time.Millisecond))
	}

	for _, r := range s.Results {
		if r.Pass || r.Detail == "" {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n```\n%s\n```\n", cell(r.ID), strings.TrimRight(r.Detail, "\n"))
	}
	return b.Bytes()
}

// WriteHTML renders s to a standalone HTML page at path.
func WriteHTML(path string, s *Summary) error {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))

	var body bytes.Buffer
	if err := md.Convert(Markdown(s), &body); err != nil {
		return runerr.Wrap(runerr.InternalError, path, "render report", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&page, "<title>JOML conformance run %s</title>\n", html.EscapeString(s.RunID))
	page.WriteString("</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return lockAndWrite(path, page.Bytes())
}

// cell escapes text for a markdown table cell or heading.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// lockAndWrite holds <path>.lock while replacing path atomically, so that
// concurrent runs sharing an artifact path never interleave.
func lockAndWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return runerr.Wrap(runerr.InternalIO, dir, "create artifact directory", err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return runerr.Wrap(runerr.InternalIO, path, "acquire lock", err)
	}
	defer lock.Unlock()

	if err := atomicWrite(path, data); err != nil {
		return runerr.Wrap(runerr.InternalIO, path, "write artifact", err)
	}
	return nil
}

func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	committed = true
	return nil
}
