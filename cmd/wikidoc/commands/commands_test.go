package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/wikidoc/internal/render"
	"github.com/jmylchreest/wikidoc/internal/source"
	"github.com/jmylchreest/wikidoc/pkg/fetcher"
	"github.com/jmylchreest/wikidoc/pkg/wiki"
)

// execute runs a fresh command tree with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// fakePandoc writes a stand-in pandoc that records its arguments, one per
// line, into the returned file.
func fakePandoc(t *testing.T) (bin, argsFile string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake pandoc script requires a POSIX shell")
	}
	dir := t.TempDir()
	argsFile = filepath.Join(dir, "args.txt")
	script := `#!/bin/sh
if [ "$1" = "--version" ]; then
  echo "pandoc 3.1.9"
  exit 0
fi
: > "` + argsFile + `"
for a in "$@"; do echo "$a" >> "` + argsFile + `"; done
`
	bin = filepath.Join(dir, "pandoc")
	if err := os.WriteFile(bin, []byte(script), 0o700); err != nil { //#nosec G306 -- test executable
		t.Fatalf("write fake pandoc: %v", err)
	}
	return bin, argsFile
}

func readArgs(t *testing.T, argsFile string) []string {
	t.Helper()
	data, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("pandoc was not invoked: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// writeWiki creates the Home/Setup-Guide/FAQ/Extra wiki used across tests.
func writeWiki(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"Home.md":        "# Home\n",
		"_Sidebar.md":    "* [[Setup Guide]]\n* [FAQ](FAQ)\n",
		"_Footer.md":     "footer\n",
		"Setup-Guide.md": "# Setup\n",
		"FAQ.md":         "# FAQ\n",
		"Extra.md":       "# Extra\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	canonical, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatal(err)
	}
	return canonical
}

// --- order ---

func TestOrder_Text(t *testing.T) {
	dir := writeWiki(t)

	out, err := execute(t, "order", "--dir", dir)
	if err != nil {
		t.Fatalf("order error = %v", err)
	}
	want := "01. Home.md\n02. Setup-Guide.md\n03. FAQ.md\n04. Extra.md\n"
	if out != want {
		t.Errorf("order output =\n%s\nwant\n%s", out, want)
	}
}

func TestOrder_JSON(t *testing.T) {
	dir := writeWiki(t)

	out, err := execute(t, "order", "--dir", dir, "--format", "json")
	if err != nil {
		t.Fatalf("order error = %v", err)
	}
	var entries []orderEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(entries))
	}
	if entries[1].Position != 2 || entries[1].Path != filepath.Join(dir, "Setup-Guide.md") {
		t.Errorf("entry 2 = %+v", entries[1])
	}
}

func TestOrder_NoPages(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "_Sidebar.md"), []byte("[[Home]]"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "order", "--dir", dir); !errors.Is(err, wiki.ErrNoPages) {
		t.Errorf("error = %v, want ErrNoPages", err)
	}
}

func TestOrder_UnsupportedFormat(t *testing.T) {
	if _, err := execute(t, "order", "--dir", t.TempDir(), "--format", "xml"); err == nil {
		t.Error("expected an error for --format xml")
	}
}

// --- wiki ---

func TestWiki_RendersPagesInOrder(t *testing.T) {
	dir := writeWiki(t)
	bin, argsFile := fakePandoc(t)
	outFile := filepath.Join(t.TempDir(), "wiki.docx")

	stdout, err := execute(t, "wiki", "--pandoc", bin, "--repo", dir, "-o", outFile)
	if err != nil {
		t.Fatalf("wiki error = %v", err)
	}
	if !strings.Contains(stdout, "01. Home.md\n02. Setup-Guide.md\n03. FAQ.md\n04. Extra.md") {
		t.Errorf("order listing missing from output:\n%s", stdout)
	}

	args := readArgs(t, argsFile)
	wantInputs := []string{
		filepath.Join(dir, "Home.md"),
		filepath.Join(dir, "Setup-Guide.md"),
		filepath.Join(dir, "FAQ.md"),
		filepath.Join(dir, "Extra.md"),
	}
	tail := args[len(args)-len(wantInputs):]
	for i := range wantInputs {
		if tail[i] != wantInputs[i] {
			t.Errorf("input %d = %q, want %q", i, tail[i], wantInputs[i])
		}
	}
	for _, want := range []string{"gfm", "docx", "--toc", "--toc-depth=3", "--resource-path=" + dir, outFile} {
		if !contains(args, want) {
			t.Errorf("pandoc args %q missing %q", args, want)
		}
	}
	if contains(args, filepath.Join(dir, "_Footer.md")) {
		t.Error("reserved page passed to pandoc")
	}
}

func TestWiki_NoTOCAndFormatOverride(t *testing.T) {
	dir := writeWiki(t)
	bin, argsFile := fakePandoc(t)

	_, err := execute(t, "wiki", "--pandoc", bin, "--repo", dir,
		"-o", filepath.Join(t.TempDir(), "wiki.out"), "--no-toc", "--to", "odt")
	if err != nil {
		t.Fatalf("wiki error = %v", err)
	}
	args := readArgs(t, argsFile)
	if contains(args, "--toc") {
		t.Error("--no-toc still produced --toc")
	}
	if !contains(args, "odt") {
		t.Errorf("--to odt not passed: %q", args)
	}
}

func TestWiki_MissingPandoc(t *testing.T) {
	_, err := execute(t, "wiki", "--pandoc", filepath.Join(t.TempDir(), "no-pandoc"), "--repo", writeWiki(t))
	if !errors.Is(err, render.ErrPandocNotFound) {
		t.Errorf("error = %v, want ErrPandocNotFound", err)
	}
}

func TestWiki_UnrecognizedRepo(t *testing.T) {
	bin, _ := fakePandoc(t)
	_, err := execute(t, "wiki", "--pandoc", bin, "--repo", filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, source.ErrUnrecognized) {
		t.Errorf("error = %v, want ErrUnrecognized", err)
	}
}

func TestWiki_EmptyDirectory(t *testing.T) {
	bin, _ := fakePandoc(t)
	_, err := execute(t, "wiki", "--pandoc", bin, "--repo", t.TempDir())
	if !errors.Is(err, wiki.ErrNoPages) {
		t.Errorf("error = %v, want ErrNoPages", err)
	}
}

func TestWiki_Validation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"toc depth", []string{"--toc-depth", "0"}, "--toc-depth must be at least 1"},
		{"reference docx alias", []string{"--reference-docx", "/no/such/ref.docx"}, "--reference-doc: no such file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"wiki", "--repo", t.TempDir()}, tt.args...)
			_, err := execute(t, args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

// --- page ---

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/page", http.StatusFound)
	})
	mux.HandleFunc("/docs/page", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>Guide</title></head><body>
<nav><a href="/">home</a></nav>
<main><h1>Guide</h1><img src="img/pic.png"><a href="../about">about</a><script>alert(1)</script></main>
</body></html>`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPage_EndToEnd(t *testing.T) {
	srv := newSite(t)
	bin, argsFile := fakePandoc(t)
	outDir := t.TempDir()
	dump := filepath.Join(outDir, "dump.html")

	_, err := execute(t, "page", "--pandoc", bin, "--url", srv.URL+"/old",
		"-o", filepath.Join(outDir, "page.docx"), "--keep-temp", "--dump-html", dump, "--toc")
	if err != nil {
		t.Fatalf("page error = %v", err)
	}

	args := readArgs(t, argsFile)
	staged := args[len(args)-1]
	t.Cleanup(func() { _ = os.RemoveAll(filepath.Dir(staged)) })
	if filepath.Ext(staged) != ".html" || !contains(args, "html") || !contains(args, "--toc") {
		t.Errorf("unexpected pandoc args %q", args)
	}

	data, err := os.ReadFile(staged)
	if err != nil {
		t.Fatalf("staged file missing with --keep-temp: %v", err)
	}
	html := string(data)
	for _, want := range []string{
		`src="` + srv.URL + `/docs/img/pic.png"`,
		`href="` + srv.URL + `/about"`,
		"<title>Guide</title>",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("staged page missing %s:\n%s", want, html)
		}
	}
	for _, unwanted := range []string{"<script", "<nav"} {
		if strings.Contains(html, unwanted) {
			t.Errorf("staged page contains %s:\n%s", unwanted, html)
		}
	}

	if _, err := os.Stat(dump); err != nil {
		t.Errorf("--dump-html file missing: %v", err)
	}
}

func TestPage_MarkdownStageCarriesTitle(t *testing.T) {
	srv := newSite(t)
	bin, argsFile := fakePandoc(t)

	_, err := execute(t, "page", "--pandoc", bin, "--url", srv.URL+"/docs/page",
		"-o", filepath.Join(t.TempDir(), "page.docx"), "--stage", "markdown")
	if err != nil {
		t.Fatalf("page error = %v", err)
	}
	args := readArgs(t, argsFile)
	if !contains(args, "gfm") || !contains(args, "--metadata=title:Guide") {
		t.Errorf("unexpected pandoc args %q", args)
	}
	if staged := args[len(args)-1]; fileExists(staged) {
		t.Errorf("staging directory was not removed: %s", staged)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestPage_RequestHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><main><p>token=` + r.Header.Get("X-Token") +
			` lang=` + r.Header.Get("Accept-Language") + `</p></main></body></html>`))
	}))
	t.Cleanup(srv.Close)
	bin, argsFile := fakePandoc(t)

	_, err := execute(t, "page", "--pandoc", bin, "--url", srv.URL, "--keep-temp",
		"-o", filepath.Join(t.TempDir(), "page.docx"),
		"-H", "x-token: secret", "--header", "Accept-Language:  en-GB ")
	if err != nil {
		t.Fatalf("page error = %v", err)
	}
	args := readArgs(t, argsFile)
	staged := args[len(args)-1]
	t.Cleanup(func() { _ = os.RemoveAll(filepath.Dir(staged)) })

	data, err := os.ReadFile(staged)
	if err != nil {
		t.Fatalf("staged file missing: %v", err)
	}
	if !strings.Contains(string(data), "token=secret lang=en-GB") {
		t.Errorf("request headers not sent, staged page:\n%s", data)
	}
}

func TestParseHeaders(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    map[string]string
		wantErr bool
	}{
		{"none", nil, nil, false},
		{"canonical_name", []string{"x-token: a"}, map[string]string{"X-Token": "a"}, false},
		{"empty_value", []string{"X-Empty:"}, map[string]string{"X-Empty": ""}, false},
		{"colon_in_value", []string{"Referer: https://a.test/"}, map[string]string{"Referer": "https://a.test/"}, false},
		{"missing_colon", []string{"X-Token"}, nil, true},
		{"empty_name", []string{": v"}, nil, true},
		{"space_in_name", []string{"X Token: v"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseHeaders(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseHeaders() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseHeaders() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTOCDepthHelpNamesRange(t *testing.T) {
	for _, cmd := range []*cobra.Command{newWikiCmd(), newPageCmd()} {
		flag := cmd.Flags().Lookup("toc-depth")
		if flag == nil {
			t.Fatalf("%s has no --toc-depth flag", cmd.Name())
		}
		if !strings.Contains(flag.Usage, "1-6") {
			t.Errorf("%s --toc-depth usage %q does not name the accepted range", cmd.Name(), flag.Usage)
		}
	}
}

func TestPage_FetchFailure(t *testing.T) {
	srv := newSite(t)
	bin, _ := fakePandoc(t)

	_, err := execute(t, "page", "--pandoc", bin, "--url", srv.URL+"/missing")
	if !errors.Is(err, fetcher.ErrStatus) {
		t.Errorf("error = %v, want ErrStatus", err)
	}
}

func TestPage_Validation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing scheme", []string{"--url", "example.com/page"}, "missing a scheme"},
		{"zero timeout", []string{"--url", "https://example.com", "--timeout", "0s"}, "--timeout must be greater than"},
		{"fetch mode", []string{"--url", "https://example.com", "--fetch-mode", "curl"}, "--fetch-mode must be one of: static, dynamic"},
		{"stage", []string{"--url", "https://example.com", "--stage", "pdf"}, "unsupported stage format"},
		{"selector", []string{"--url", "https://example.com", "--css-selector", "main[", "--pandoc", "/no/pandoc"}, "invalid CSS selector"},
		{"header", []string{"--url", "https://example.com", "--header", "no-colon"}, `invalid --header "no-colon"`},
		{"toc depth", []string{"--url", "https://example.com", "--toc-depth", "7"}, "--toc-depth must be at most 6"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append([]string{"page"}, tt.args...)...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

// --- misc ---

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out, "wikidoc ") {
		t.Errorf("version output = %q", out)
	}

	out, err = execute(t, "version", "--format", "json")
	if err != nil {
		t.Fatalf("version --format json error = %v", err)
	}
	if !strings.Contains(out, `"go_version"`) {
		t.Errorf("json version output = %q", out)
	}
}

func TestFlagName(t *testing.T) {
	tests := map[string]string{
		"TOCDepth":     "toc-depth",
		"ReferenceDoc": "reference-doc",
		"URL":          "url",
		"FetchMode":    "fetch-mode",
		"DumpHTML":     "dump-html",
		"Timeout":      "timeout",
	}
	for field, want := range tests {
		if got := flagName(field); got != want {
			t.Errorf("flagName(%q) = %q, want %q", field, got, want)
		}
	}
}
