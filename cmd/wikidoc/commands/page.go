package commands

import (
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/wikidoc/internal/logger"
	"github.com/jmylchreest/wikidoc/internal/render"
	"github.com/jmylchreest/wikidoc/pkg/content"
	"github.com/jmylchreest/wikidoc/pkg/fetcher"
)

// pageOptions are the validated inputs of the page command.
type pageOptions struct {
	URL          string `validate:"required,url"`
	Output       string `validate:"required"`
	To           string
	CSSSelector  string
	Readability  bool
	UserAgent    string
	Headers      map[string]string
	Timeout      time.Duration `validate:"gt=0"`
	TOC          bool
	TOCDepth     int    `validate:"gte=1,lte=6"`
	ReferenceDoc string `validate:"omitempty,file"`
	FetchMode    string `validate:"oneof=static dynamic"`
	Stage        content.StageFormat
	DumpHTML     string
	KeepTemp     bool
}

func newPageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "page",
		Short: "Convert the main content of a web page into a document",
		Long: `Fetch one web page, keep only its main content, make every link and
resource address absolute and render the result with pandoc.

The content is chosen by the first strategy that matches:
  1. --css-selector, when given
  2. readability extraction, with --readability
  3. the first of main, article, #content, .content, #main, .post, #root
  4. the whole body

Examples:
  wikidoc page --url https://example.com/post -o post.docx
  wikidoc page --url https://example.com/docs --css-selector "#content" --toc
  wikidoc page --url https://spa.example.com --fetch-mode dynamic --readability
  wikidoc page --url https://intranet.example.com/doc -H "Authorization: Bearer $TOKEN"`,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindFlags(cmd, map[string]string{
				"reference_doc": "reference-doc",
				"toc_depth":     "toc-depth",
				"user_agent":    "user-agent",
				"timeout":       "timeout",
			})
		},
		RunE: runPage,
	}

	flags := cmd.Flags()
	flags.StringP("url", "u", "", "absolute URL of the page (required)")
	flags.StringP("output", "o", "page.docx", "output file")
	flags.String("to", "", "pandoc output format (default: from the output extension)")
	flags.String("css-selector", "", "CSS selector of the content element (e.g. #content, main, article)")
	flags.Bool("readability", false, "enable readability content extraction")
	flags.String("user-agent", "", "custom User-Agent header")
	flags.StringArrayP("header", "H", nil, `extra request header "Name: Value" (repeatable)`)
	flags.Duration("timeout", fetcher.DefaultTimeout, "request timeout")
	flags.Bool("toc", false, "include a table of contents")
	flags.Int("toc-depth", 3, "table of contents depth, 1-6 (with --toc)")
	flags.String("reference-doc", "", "style template passed to pandoc --reference-doc")
	flags.String("fetch-mode", "static", "fetch mode: static, dynamic")
	flags.String("stage", "html", "markup handed to pandoc: html, markdown")
	flags.String("dump-html", "", "also write the extracted content as indented HTML to this file")
	flags.Bool("keep-temp", false, "keep the temporary staging directory")

	_ = cmd.MarkFlagRequired("url")
	return cmd
}

// requireScheme rejects addresses such as "example.com/page" before any
// request is made.
func requireScheme(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme == "" {
		return fmt.Errorf("URL is missing a scheme (for example https://): %s", raw)
	}
	return nil
}

func pageOptionsFromFlags(cmd *cobra.Command) (pageOptions, error) {
	flags := cmd.Flags()
	rawURL, _ := flags.GetString("url")
	out, _ := flags.GetString("output")
	to, _ := flags.GetString("to")
	selector, _ := flags.GetString("css-selector")
	readability, _ := flags.GetBool("readability")
	toc, _ := flags.GetBool("toc")
	mode, _ := flags.GetString("fetch-mode")
	stage, _ := flags.GetString("stage")
	dump, _ := flags.GetString("dump-html")
	keep, _ := flags.GetBool("keep-temp")
	headerValues, _ := flags.GetStringArray("header")

	rawURL = strings.TrimSpace(rawURL)
	if err := requireScheme(rawURL); err != nil {
		return pageOptions{}, err
	}
	headers, err := parseHeaders(headerValues)
	if err != nil {
		return pageOptions{}, err
	}
	stageFormat, err := content.ParseStageFormat(stage)
	if err != nil {
		return pageOptions{}, err
	}
	outPath, err := absPath(out)
	if err != nil {
		return pageOptions{}, err
	}
	refDoc, err := absPath(viper.GetString("reference_doc"))
	if err != nil {
		return pageOptions{}, err
	}
	dumpPath, err := absPath(dump)
	if err != nil {
		return pageOptions{}, err
	}

	opts := pageOptions{
		URL:          rawURL,
		Output:       outPath,
		To:           to,
		CSSSelector:  selector,
		Readability:  readability,
		UserAgent:    viper.GetString("user_agent"),
		Headers:      headers,
		Timeout:      viper.GetDuration("timeout"),
		TOC:          toc,
		TOCDepth:     viper.GetInt("toc_depth"),
		ReferenceDoc: refDoc,
		FetchMode:    strings.ToLower(mode),
		Stage:        stageFormat,
		DumpHTML:     dumpPath,
		KeepTemp:     keep,
	}
	return opts, validateOptions(opts)
}

func runPage(cmd *cobra.Command, _ []string) error {
	initLogger()

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts, err := pageOptionsFromFlags(cmd)
	if err != nil {
		return err
	}
	logger.Debug("page command starting", "url", opts.URL, "output", opts.Output, "fetch_mode", opts.FetchMode)

	// Build the chain first so a bad selector fails before any request.
	extractor, err := content.New(content.Options{
		Selector:    opts.CSSSelector,
		Readability: opts.Readability,
	})
	if err != nil {
		return err
	}
	logger.Debug("content strategies", "chain", extractor.Name())

	pandoc, err := newPandoc(ctx)
	if err != nil {
		return err
	}

	f, err := fetcher.New(opts.FetchMode, fetcher.Config{
		UserAgent: opts.UserAgent,
		Timeout:   opts.Timeout,
		Headers:   opts.Headers,
	})
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	logger.Debug("fetcher ready", "type", f.Type(), "headers", len(opts.Headers))

	page, err := f.Fetch(ctx, opts.URL)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}
	logInfo("Fetched %s (%s)", page.URL, humanize.Bytes(uint64(len(page.HTML))))

	// Relative references resolve against the post-redirect address.
	frag, err := extractor.Extract(page.HTML, page.URL)
	if err != nil {
		return err
	}
	changed, err := content.Absolutize(frag, page.URL)
	if err != nil {
		return err
	}
	logger.Debug("content extracted", "strategy", frag.Strategy, "title", frag.Title, "absolutized", changed)

	if opts.DumpHTML != "" {
		if err := dumpFragment(frag, opts.DumpHTML); err != nil {
			return err
		}
		logInfo("Wrote extracted HTML to %s", opts.DumpHTML)
	}

	tmp, err := os.MkdirTemp("", "wikidoc-page-")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() {
		if opts.KeepTemp {
			logInfo("Kept staging directory %s", tmp)
			return
		}
		if err := os.RemoveAll(tmp); err != nil {
			logger.Warn("failed to remove staging directory", "dir", tmp, "error", err)
		}
	}()

	staged, err := frag.Stage(opts.Stage)
	if err != nil {
		return err
	}
	stagedPath := filepath.Join(tmp, "page"+opts.Stage.FileExt())
	if err := os.WriteFile(stagedPath, []byte(staged), 0o600); err != nil {
		return fmt.Errorf("failed to write staged page: %w", err)
	}

	job := render.Job{
		Inputs:       []string{stagedPath},
		From:         opts.Stage.PandocFormat(),
		To:           opts.To,
		Output:       opts.Output,
		TOC:          opts.TOC,
		TOCDepth:     opts.TOCDepth,
		ReferenceDoc: opts.ReferenceDoc,
		Dir:          tmp,
	}
	if opts.Stage == content.StageMarkdown && frag.Title != "" {
		job.Metadata = map[string]string{"title": frag.Title}
	}
	if err := pandoc.Render(ctx, job); err != nil {
		return err
	}

	logInfo("Wrote %s", describeOutput(opts.Output))
	return nil
}

func dumpFragment(frag *content.Fragment, path string) error {
	pretty, err := frag.Pretty()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(pretty), 0o600); err != nil { //#nosec G304 -- CLI tool writes to user-specified file
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
