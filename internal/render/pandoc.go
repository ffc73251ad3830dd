// Package render converts staged documents with pandoc.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jmylchreest/wikidoc/internal/logger"
)

// DefaultBinary is looked up on PATH when no binary is configured.
const DefaultBinary = "pandoc"

var (
	// ErrPandocNotFound means the pandoc binary is missing or unusable.
	ErrPandocNotFound = errors.New("pandoc not found: install it from https://pandoc.org/installing.html")
	// ErrRenderFailed means pandoc exited with a nonzero status.
	ErrRenderFailed = errors.New("pandoc failed")
)

// Job describes one pandoc invocation.
type Job struct {
	Inputs       []string          // input files, concatenated in order
	From         string            // input format, e.g. "gfm" or "html"
	To           string            // output format; inferred from Output when empty
	Output       string            // output file path
	TOC          bool              // emit a table of contents
	TOCDepth     int               // heading depth of the table of contents
	ReferenceDoc string            // optional style template
	ResourcePath string            // where pandoc looks up images
	Dir          string            // working directory of the process
	Metadata     map[string]string // --metadata key:value pairs
}

// Args returns the pandoc command line for the job, without the binary.
// Inputs come last, in job order.
func (j Job) Args() []string {
	to := j.To
	if to == "" {
		to = FormatFromPath(j.Output)
	}
	args := []string{"--from", j.From, "--to", to, "--standalone", "--output", j.Output}
	if j.TOC {
		args = append(args, "--toc", "--toc-depth="+strconv.Itoa(j.TOCDepth))
	}
	if j.ResourcePath != "" {
		args = append(args, "--resource-path="+j.ResourcePath)
	}
	if j.ReferenceDoc != "" {
		args = append(args, "--reference-doc", j.ReferenceDoc)
	}
	keys := make([]string, 0, len(j.Metadata))
	for k := range j.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--metadata="+k+":"+j.Metadata[k])
	}
	return append(args, j.Inputs...)
}

// outputFormats maps output file extensions to pandoc writer names.
var outputFormats = map[string]string{
	".docx": "docx",
	".odt":  "odt",
	".epub": "epub",
	".html": "html",
	".htm":  "html",
	".pdf":  "pdf",
	".rtf":  "rtf",
	".tex":  "latex",
	".pptx": "pptx",
}

// FormatFromPath infers the pandoc output format from a file extension,
// defaulting to docx.
func FormatFromPath(path string) string {
	if f, ok := outputFormats[strings.ToLower(filepath.Ext(path))]; ok {
		return f
	}
	return "docx"
}

// Pandoc runs a verified pandoc binary.
type Pandoc struct {
	binary  string
	version string
}

// NewPandoc locates the binary and runs `pandoc --version` once. It is the
// single tool-availability check of a run.
func NewPandoc(ctx context.Context, binary string) (*Pandoc, error) {
	if binary == "" {
		binary = DefaultBinary
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("%w (%v)", ErrPandocNotFound, err)
	}

	out, err := exec.CommandContext(ctx, path, "--version").Output() //#nosec G204 -- binary is user-configured
	if err != nil {
		return nil, fmt.Errorf("%w: %s --version: %v", ErrPandocNotFound, path, err)
	}

	version := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
	return &Pandoc{binary: path, version: version}, nil
}

// Version returns the first line of `pandoc --version`.
func (p *Pandoc) Version() string {
	return p.version
}

// Binary returns the resolved binary path.
func (p *Pandoc) Binary() string {
	return p.binary
}

// Render runs the job. A nonzero exit is reported as ErrRenderFailed with
// pandoc's stderr attached.
func (p *Pandoc) Render(ctx context.Context, job Job) error {
	if len(job.Inputs) == 0 {
		return fmt.Errorf("%w: no input documents", ErrRenderFailed)
	}
	if job.Output == "" {
		return fmt.Errorf("%w: no output path", ErrRenderFailed)
	}

	args := job.Args()
	cmd := exec.CommandContext(ctx, p.binary, args...) //#nosec G204 -- arguments are built from validated options
	cmd.Dir = job.Dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger.Info("running pandoc", "command", p.binary+" "+strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("%w: %s", ErrRenderFailed, msg)
	}
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		logger.Warn("pandoc reported warnings", "stderr", msg)
	}
	return nil
}
