// Package cli implements SourceRack's command-line front end (spec §6):
// one thin command per C12 query operation plus index/gc, sharing a single
// store-wiring helper (app.go) and a JSON/human output switch (output.go).
//
// Grounded on the teacher's internal/cli/root.go (a package-level rootCmd,
// cobra.OnInitialize for config loading, persistent flags bound via
// viper.BindPFlag), generalized from the teacher's single-project flag set
// onto the spec's multi-repo scope flags.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgDir     string
	jsonOutput bool
	commitFlag string
	repoFlags  []string
	allRepos   bool
	groupFlag  string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sourcerack",
	Short: "SourceRack - local code intelligence over indexed git repositories",
	Long: `SourceRack indexes one or more git repositories into a structured
query index (symbols, usages, imports, endpoints) and answers structural
questions about them: definitions, call graphs, dead code, change impact,
and more.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(); it only needs to run once.
// A subcommand's RunE error is expected to carry an exitError (output.go)
// so the process exits with spec §6/§7's code instead of cobra's default 1.
func Execute() {
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config-dir", "", "configuration directory (default: per-user config directory)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print compact single-line JSON instead of indented JSON")
	rootCmd.PersistentFlags().StringVar(&commitFlag, "commit", "", "ref to resolve per repository (default HEAD)")
	rootCmd.PersistentFlags().StringSliceVar(&repoFlags, "repos", nil, "repository ids to scope the query to (default: all tracked repos)")
	rootCmd.PersistentFlags().BoolVar(&allRepos, "all-repos", false, "explicitly scope the query to every tracked repository")
	rootCmd.PersistentFlags().StringVar(&groupFlag, "group", "", "restrict the query to one configured group")
}
