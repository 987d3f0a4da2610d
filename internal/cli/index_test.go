package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestIndexCommand_RealGitRepo drives the index subcommand end to end
// against a real git repository (initGitRepo), the way a user invoking
// `sourcerack index` would, rather than exercising the orchestrator
// directly. Embedding is disabled so the test never reaches out to a
// local embedding server.
func TestIndexCommand_RealGitRepo(t *testing.T) {
	repoDir := t.TempDir()
	initGitRepo(t, repoDir)

	mainFile := filepath.Join(repoDir, "main.go")
	require.NoError(t, os.WriteFile(mainFile, []byte("package main\n\nfunc main() {}\n"), 0644))

	configDir := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "sourcerack.db")
	config := fmt.Sprintf(`{
		"storage": {"databasePath": %q},
		"vectorStorage": {"provider": "sqlite-vss"},
		"embedding": {"enabled": false}
	}`, dbPath)
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.json"), []byte(config), 0644))

	rootCmd.SetArgs([]string{"index", repoDir, "--config-dir", configDir, "--quiet"})
	require.NoError(t, rootCmd.Execute())

	_, err := os.Stat(dbPath)
	require.NoError(t, err)
}
