package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"
)

// fakePandoc writes an executable shell script standing in for pandoc.
// --version prints a banner; any other call records its arguments, one per
// line, into $WIKIDOC_FAKE_ARGS and exits with $WIKIDOC_FAKE_EXIT.
func fakePandoc(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake pandoc script requires a POSIX shell")
	}
	script := `#!/bin/sh
if [ "$1" = "--version" ]; then
  echo "pandoc 3.1.9"
  echo "Features: +server"
  exit 0
fi
: > "$WIKIDOC_FAKE_ARGS"
for a in "$@"; do echo "$a" >> "$WIKIDOC_FAKE_ARGS"; done
if [ "${WIKIDOC_FAKE_EXIT:-0}" != "0" ]; then
  echo "pandoc: could not read input" >&2
  exit "$WIKIDOC_FAKE_EXIT"
fi
`
	path := filepath.Join(t.TempDir(), "pandoc")
	if err := os.WriteFile(path, []byte(script), 0o700); err != nil { //#nosec G306 -- test executable
		t.Fatalf("write fake pandoc: %v", err)
	}
	return path
}

func TestJob_Args(t *testing.T) {
	job := Job{
		Inputs:       []string{"/w/Home.md", "/w/Setup-Guide.md", "/w/FAQ.md", "/w/Extra.md"},
		From:         "gfm",
		Output:       "/out/wiki.docx",
		TOC:          true,
		TOCDepth:     2,
		ReferenceDoc: "/styles/ref.docx",
		ResourcePath: "/w",
		Metadata:     map[string]string{"title": "Wiki", "lang": "en"},
	}

	want := []string{
		"--from", "gfm", "--to", "docx", "--standalone", "--output", "/out/wiki.docx",
		"--toc", "--toc-depth=2",
		"--resource-path=/w",
		"--reference-doc", "/styles/ref.docx",
		"--metadata=lang:en", "--metadata=title:Wiki",
		"/w/Home.md", "/w/Setup-Guide.md", "/w/FAQ.md", "/w/Extra.md",
	}
	if got := job.Args(); !reflect.DeepEqual(got, want) {
		t.Errorf("Args() =\n%q\nwant\n%q", got, want)
	}
}

func TestJob_ArgsMinimal(t *testing.T) {
	job := Job{Inputs: []string{"page.html"}, From: "html", To: "odt", Output: "page.odt"}
	want := []string{"--from", "html", "--to", "odt", "--standalone", "--output", "page.odt", "page.html"}
	if got := job.Args(); !reflect.DeepEqual(got, want) {
		t.Errorf("Args() = %q, want %q", got, want)
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]string{
		"wiki.docx":  "docx",
		"WIKI.DOCX":  "docx",
		"book.epub":  "epub",
		"page.odt":   "odt",
		"out.html":   "html",
		"paper.pdf":  "pdf",
		"noext":      "docx",
		"thing.what": "docx",
	}
	for path, want := range tests {
		if got := FormatFromPath(path); got != want {
			t.Errorf("FormatFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestNewPandoc_Missing(t *testing.T) {
	_, err := NewPandoc(context.Background(), filepath.Join(t.TempDir(), "no-such-pandoc"))
	if !errors.Is(err, ErrPandocNotFound) {
		t.Errorf("NewPandoc() error = %v, want ErrPandocNotFound", err)
	}
}

func TestNewPandoc_Version(t *testing.T) {
	p, err := NewPandoc(context.Background(), fakePandoc(t))
	if err != nil {
		t.Fatalf("NewPandoc() error = %v", err)
	}
	if p.Version() != "pandoc 3.1.9" {
		t.Errorf("Version() = %q", p.Version())
	}
}

func TestPandoc_RenderPassesInputsInOrder(t *testing.T) {
	bin := fakePandoc(t)
	argsFile := filepath.Join(t.TempDir(), "args.txt")
	t.Setenv("WIKIDOC_FAKE_ARGS", argsFile)
	t.Setenv("WIKIDOC_FAKE_EXIT", "0")

	p, err := NewPandoc(context.Background(), bin)
	if err != nil {
		t.Fatalf("NewPandoc() error = %v", err)
	}
	job := Job{
		Inputs: []string{"Home.md", "Setup-Guide.md", "FAQ.md"},
		From:   "gfm",
		Output: "wiki.docx",
	}
	if err := p.Render(context.Background(), job); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	data, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if !reflect.DeepEqual(lines, job.Args()) {
		t.Errorf("pandoc received %q, want %q", lines, job.Args())
	}
	tail := lines[len(lines)-3:]
	if !reflect.DeepEqual(tail, job.Inputs) {
		t.Errorf("inputs out of order: %q", tail)
	}
}

func TestPandoc_RenderFailure(t *testing.T) {
	bin := fakePandoc(t)
	t.Setenv("WIKIDOC_FAKE_ARGS", filepath.Join(t.TempDir(), "args.txt"))
	t.Setenv("WIKIDOC_FAKE_EXIT", "3")

	p, err := NewPandoc(context.Background(), bin)
	if err != nil {
		t.Fatalf("NewPandoc() error = %v", err)
	}
	err = p.Render(context.Background(), Job{Inputs: []string{"a.md"}, From: "gfm", Output: "a.docx"})
	if !errors.Is(err, ErrRenderFailed) {
		t.Fatalf("Render() error = %v, want ErrRenderFailed", err)
	}
	if !strings.Contains(err.Error(), "could not read input") {
		t.Errorf("expected stderr in error, got %v", err)
	}
}

func TestPandoc_RenderRejectsEmptyJob(t *testing.T) {
	p := &Pandoc{binary: "pandoc"}
	if err := p.Render(context.Background(), Job{Output: "x.docx"}); !errors.Is(err, ErrRenderFailed) {
		t.Errorf("expected ErrRenderFailed for no inputs, got %v", err)
	}
	if err := p.Render(context.Background(), Job{Inputs: []string{"a.md"}}); !errors.Is(err, ErrRenderFailed) {
		t.Errorf("expected ErrRenderFailed for no output, got %v", err)
	}
}
