package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/wikidoc/internal/logger"
	"github.com/jmylchreest/wikidoc/internal/output"
	"github.com/jmylchreest/wikidoc/internal/render"
	"github.com/jmylchreest/wikidoc/internal/source"
	"github.com/jmylchreest/wikidoc/pkg/wiki"
)

// wikiOptions are the validated inputs of the wiki command.
type wikiOptions struct {
	Repo         string `validate:"required"`
	Output       string `validate:"required"`
	To           string
	ReferenceDoc string `validate:"omitempty,file"`
	TOC          bool
	TOCDepth     int `validate:"gte=1,lte=6"`
	Branch       string
	KeepClone    bool
}

func newWikiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wiki",
		Short: "Convert a Markdown wiki repository into one document",
		Long: `Clone (or open) a Markdown wiki and render all of its pages into a single
document, in reading order: Home.md, then the pages linked from
_Sidebar.md, then the remaining pages alphabetically. _Sidebar.md,
_Footer.md, _Header.md and README.md are never rendered as content.

--repo accepts a clone URL (https://github.com/owner/repo.wiki.git,
git@github.com:owner/repo.wiki.git), a repository or wiki web address
(https://github.com/owner/repo/wiki), or a local directory.

Examples:
  wikidoc wiki --repo https://github.com/owner/repo -o repo.docx
  wikidoc wiki --repo ~/src/repo.wiki --toc-depth 2 --reference-doc ref.docx
  wikidoc wiki --repo git@github.com:owner/repo.wiki.git -o wiki.epub`,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindFlags(cmd, map[string]string{
				"reference_doc": "reference-doc",
				"toc_depth":     "toc-depth",
			})
		},
		RunE: runWiki,
	}

	flags := cmd.Flags()
	flags.StringP("repo", "r", "", "wiki clone URL, repository URL or local directory (required)")
	flags.StringP("output", "o", "wiki.docx", "output file")
	flags.String("to", "", "pandoc output format (default: from the output extension)")
	flags.String("reference-doc", "", "style template passed to pandoc --reference-doc")
	flags.Int("toc-depth", 3, "table of contents depth, 1-6")
	flags.Bool("no-toc", false, "omit the table of contents")
	flags.String("branch", "", "branch to clone (default: the remote's default branch)")
	flags.Bool("keep-clone", false, "keep the temporary clone directory")

	_ = cmd.MarkFlagRequired("repo")
	return cmd
}

func wikiOptionsFromFlags(cmd *cobra.Command) (wikiOptions, error) {
	flags := cmd.Flags()
	repo, _ := flags.GetString("repo")
	out, _ := flags.GetString("output")
	to, _ := flags.GetString("to")
	noTOC, _ := flags.GetBool("no-toc")
	branch, _ := flags.GetString("branch")
	keep, _ := flags.GetBool("keep-clone")

	outPath, err := absPath(out)
	if err != nil {
		return wikiOptions{}, err
	}
	refDoc, err := absPath(viper.GetString("reference_doc"))
	if err != nil {
		return wikiOptions{}, err
	}

	opts := wikiOptions{
		Repo:         repo,
		Output:       outPath,
		To:           to,
		ReferenceDoc: refDoc,
		TOC:          !noTOC,
		TOCDepth:     viper.GetInt("toc_depth"),
		Branch:       branch,
		KeepClone:    keep,
	}
	return opts, validateOptions(opts)
}

func runWiki(cmd *cobra.Command, _ []string) error {
	initLogger()

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts, err := wikiOptionsFromFlags(cmd)
	if err != nil {
		return err
	}
	logger.Debug("wiki command starting", "repo", opts.Repo, "output", opts.Output)

	pandoc, err := newPandoc(ctx)
	if err != nil {
		return err
	}

	var progress io.Writer
	if viper.GetBool("debug") {
		progress = os.Stderr
	}
	ws, err := source.Open(ctx, opts.Repo, source.Options{
		Branch:   opts.Branch,
		Depth:    1,
		Keep:     opts.KeepClone,
		Progress: progress,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := ws.Close(); cerr != nil {
			logger.Warn("failed to remove clone directory", "dir", ws.Dir, "error", cerr)
		}
	}()
	if ws.Source.Kind == source.KindRemote {
		logInfo("Cloned %s", ws.Source.Location)
	}

	var assembleOpts []wiki.Option
	if site, ok := ws.Site(); ok {
		logger.Debug("wiki site detected", "site", site.String())
		assembleOpts = append(assembleOpts, wiki.WithSite(site))
	}
	set, err := wiki.Assemble(ws.Dir, assembleOpts...)
	if err != nil {
		if errors.Is(err, wiki.ErrNoPages) {
			return fmt.Errorf("%w in %s", err, ws.Dir)
		}
		return err
	}

	if !viper.GetBool("quiet") {
		fmt.Fprintln(cmd.OutOrStdout(), "Merging pages in this order:")
		if err := writeOrder(cmd.OutOrStdout(), set, output.FormatText); err != nil {
			return err
		}
	}

	job := render.Job{
		Inputs:       set.Paths(),
		From:         "gfm",
		To:           opts.To,
		Output:       opts.Output,
		TOC:          opts.TOC,
		TOCDepth:     opts.TOCDepth,
		ReferenceDoc: opts.ReferenceDoc,
		ResourcePath: set.Dir,
		Dir:          set.Dir,
	}
	if err := pandoc.Render(ctx, job); err != nil {
		return err
	}

	logInfo("Wrote %s", describeOutput(opts.Output))
	return nil
}
