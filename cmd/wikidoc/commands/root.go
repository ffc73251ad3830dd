// Package commands implements the CLI commands for wikidoc.
package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jmylchreest/wikidoc/internal/logger"
	"github.com/jmylchreest/wikidoc/internal/version"
)

var rootCmd = newRootCmd()

func init() {
	cobra.OnInitialize(initConfig)
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wikidoc",
		Short: "Convert a Markdown wiki or a web page into a single document",
		Long: `wikidoc turns a Markdown wiki repository, or the main content of a single
web page, into one document (DOCX by default) using pandoc.

Wiki pages are ordered the way a reader sees them: Home first, then the
pages linked from _Sidebar.md in order, then every remaining page
alphabetically.

Examples:
  # Convert a GitHub wiki
  wikidoc wiki --repo https://github.com/owner/repo -o repo-wiki.docx

  # Convert a local wiki checkout with a style template
  wikidoc wiki --repo ./repo.wiki --reference-doc styles.docx

  # Show the page order without rendering
  wikidoc order --dir ./repo.wiki

  # Convert the main content of a web page
  wikidoc page --url "https://example.com/post" --readability --toc`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.String("config", "", "config file (default $HOME/.wikidoc.yaml)")
	flags.Bool("debug", false, "enable debug logging")
	flags.BoolP("quiet", "q", false, "suppress progress output")
	flags.String("pandoc", "", "pandoc binary (default: pandoc on PATH)")

	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))
	_ = viper.BindPFlag("quiet", flags.Lookup("quiet"))
	_ = viper.BindPFlag("pandoc", flags.Lookup("pandoc"))

	cmd.AddCommand(newWikiCmd(), newPageCmd(), newOrderCmd(), newVersionCmd())
	cmd.SetGlobalNormalizationFunc(normalizeFlagName)
	return cmd
}

// normalizeFlagName accepts the --reference-docx spelling for --reference-doc.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if name == "reference-docx" {
		name = "reference-doc"
	}
	return pflag.NormalizedName(name)
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".wikidoc")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("WIKIDOC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		logError("%v", err)
		return err
	}
	return nil
}

// bindFlags binds command-local flags to viper keys. It runs when the
// command starts so commands sharing a key each bind their own flag.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, flag := range keys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", flag, err)
		}
	}
	return nil
}

// initLogger configures logging from the global flags.
func initLogger() {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
	})
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// logInfo prints an info message to stderr (unless quiet mode).
func logInfo(format string, args ...any) {
	if !viper.GetBool("quiet") {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
