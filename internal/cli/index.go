package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/sourcerack/sourcerack/internal/orchestrator"
)

var (
	indexRef         string
	indexGroup       string
	indexDisplayName string
	indexForce       bool
	indexSkipEmbed   bool
	indexQuiet       bool
)

// indexCmd represents the index command.
var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a git repository into the structured query index",
	Long: `Index resolves a ref (default HEAD), parses every tracked source file,
extracts symbols/usages/imports/endpoints into the structured query index,
and embeds content chunks into vector storage.

Examples:
  sourcerack index
  sourcerack index /path/to/repo --ref v1.2.0
  sourcerack index --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexRef, "ref", "HEAD", "git ref to index")
	indexCmd.Flags().StringVar(&indexGroup, "group", "", "group to tag this repository with")
	indexCmd.Flags().StringVar(&indexDisplayName, "display-name", "", "human-readable name for this repository")
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "re-index even if this commit was already indexed")
	indexCmd.Flags().BoolVar(&indexSkipEmbed, "skip-embeddings", false, "skip embedding generation, leaving chunks unembedded")
	indexCmd.Flags().BoolVarP(&indexQuiet, "quiet", "q", false, "disable the progress bar")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	repoPath := "."
	if len(args) > 0 {
		repoPath = args[0]
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, cancelling indexing...")
		cancel()
	}()

	a, err := newApp()
	if err != nil {
		return wrapErr(err)
	}
	defer a.Close()

	orch, err := a.Orchestrator()
	if err != nil {
		return wrapErr(err)
	}

	bar := newIndexProgressBar(indexQuiet)
	observer := func(ev orchestrator.ProgressEvent) {
		if bar == nil {
			return
		}
		switch ev.Type {
		case orchestrator.EventFilesListed:
			bar.ChangeMax(ev.Counts["files"])
		case orchestrator.EventFileParsed:
			bar.Add(ev.Counts["file"])
		case orchestrator.EventCompleted, orchestrator.EventFailed:
			bar.Finish()
		}
	}

	result, err := orch.Run(ctx, orchestrator.Options{
		RepoPath:       repoPath,
		Ref:            indexRef,
		Group:          indexGroup,
		DisplayName:    indexDisplayName,
		Force:          indexForce,
		SkipEmbeddings: indexSkipEmbed,
		Observer:       observer,
	})
	if err != nil {
		return wrapErr(err)
	}

	return print(true, "", result)
}

func newIndexProgressBar(quiet bool) *progressbar.ProgressBar {
	if quiet {
		return nil
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Indexing"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionShowElapsedTimeOnFinish(),
	)
}
