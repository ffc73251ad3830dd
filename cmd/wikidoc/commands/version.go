package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/wikidoc/internal/output"
	"github.com/jmylchreest/wikidoc/internal/version"
)

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			formatFlag, _ := cmd.Flags().GetString("format")
			format, err := output.ParseFormat(formatFlag)
			if err != nil {
				return err
			}
			if format == output.FormatText {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Full())
				return err
			}
			w, err := output.NewWriter(cmd.OutOrStdout(), format)
			if err != nil {
				return err
			}
			if err := w.Write(version.Get()); err != nil {
				return err
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringP("format", "f", "text", "output format: text, json, jsonl, yaml")
	return cmd
}
