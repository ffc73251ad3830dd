package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/wikidoc/internal/output"
	"github.com/jmylchreest/wikidoc/internal/source"
	"github.com/jmylchreest/wikidoc/pkg/wiki"
)

// orderEntry is one line of an order listing.
type orderEntry struct {
	Position int    `json:"position" yaml:"position"`
	Name     string `json:"name" yaml:"name"`
	Path     string `json:"path" yaml:"path"`
}

func (e orderEntry) String() string {
	return fmt.Sprintf("%02d. %s", e.Position, e.Name)
}

func newOrderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Print the page order of a local wiki without rendering",
		Long: `Assemble the document set of a local wiki directory and print it.

Examples:
  wikidoc order --dir ./repo.wiki
  wikidoc order --dir ./repo.wiki --format json`,
		RunE: runOrder,
	}

	flags := cmd.Flags()
	flags.StringP("dir", "d", "", "local wiki directory (required)")
	flags.StringP("format", "f", "text", "output format: text, json, jsonl, yaml")

	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

func runOrder(cmd *cobra.Command, _ []string) error {
	initLogger()

	dirFlag, _ := cmd.Flags().GetString("dir")
	formatFlag, _ := cmd.Flags().GetString("format")

	format, err := output.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	dir, err := absPath(dirFlag)
	if err != nil {
		return err
	}

	var assembleOpts []wiki.Option
	if site, ok := source.LocalSite(dir); ok {
		assembleOpts = append(assembleOpts, wiki.WithSite(site))
	}
	set, err := wiki.Assemble(dir, assembleOpts...)
	if err != nil {
		return fmt.Errorf("%w in %s", err, dir)
	}
	return writeOrder(cmd.OutOrStdout(), set, format)
}

// writeOrder lists set in the given format, numbering pages from 1.
func writeOrder(w io.Writer, set wiki.DocumentSet, format output.Format) error {
	writer, err := output.NewWriter(w, format)
	if err != nil {
		return err
	}
	for i, p := range set.Pages {
		entry := orderEntry{Position: i + 1, Name: p.Name(), Path: p.Path}
		if err := writer.Write(entry); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return writer.Flush()
}
