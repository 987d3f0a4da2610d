package gitview

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcerack/sourcerack/internal/sqerr"
)

// Integration tests against real `git` invocations, grounded on
// internal/git/operations_integration_test.go's fixture style. No
// t.Parallel(): sequential to avoid resource exhaustion across subprocess
// spawns, same rationale as the teacher suite.

func TestGitViewIntegration(t *testing.T) {
	view := New()
	ctx := context.Background()

	t.Run("ResolveRef HEAD", func(t *testing.T) {
		dir := createTestRepo(t)
		sha, err := view.ResolveRef(ctx, dir, "HEAD")
		require.NoError(t, err)
		assert.Len(t, sha, 40)
	})

	t.Run("ResolveRef unknown ref", func(t *testing.T) {
		dir := createTestRepo(t)
		_, err := view.ResolveRef(ctx, dir, "does-not-exist")
		require.Error(t, err)
		kind, ok := sqerr.KindOf(err)
		require.True(t, ok)
		assert.Equal(t, sqerr.KindUnknownRef, kind)
	})

	t.Run("ResolveRef non git directory", func(t *testing.T) {
		dir := t.TempDir()
		_, err := view.ResolveRef(ctx, dir, "HEAD")
		require.Error(t, err)
	})

	t.Run("ListFiles lists tracked paths with blob SHAs", func(t *testing.T) {
		dir := createTestRepo(t)
		sha, err := view.ResolveRef(ctx, dir, "HEAD")
		require.NoError(t, err)

		files, err := view.ListFiles(ctx, dir, sha)
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, "README.md", files[0].Path)
		assert.Len(t, files[0].BlobSHA, 40)
	})

	t.Run("ReadBlob returns file content", func(t *testing.T) {
		dir := createTestRepo(t)
		sha, err := view.ResolveRef(ctx, dir, "HEAD")
		require.NoError(t, err)
		files, err := view.ListFiles(ctx, dir, sha)
		require.NoError(t, err)

		content, err := view.ReadBlob(ctx, dir, files[0].BlobSHA)
		require.NoError(t, err)
		assert.Equal(t, "# Test\n", string(content))
	})

	t.Run("WorktreeRoot from subdirectory", func(t *testing.T) {
		dir := createTestRepo(t)
		sub := filepath.Join(dir, "sub")
		require.NoError(t, os.MkdirAll(sub, 0755))

		root := view.WorktreeRoot(ctx, sub)
		dirResolved, _ := filepath.EvalSymlinks(dir)
		rootResolved, _ := filepath.EvalSymlinks(root)
		assert.Equal(t, dirResolved, rootResolved)
	})

	t.Run("WorktreeRoot non git directory falls back to path", func(t *testing.T) {
		dir := t.TempDir()
		assert.Equal(t, dir, view.WorktreeRoot(ctx, dir))
	})
}

func TestIsBinary(t *testing.T) {
	assert.False(t, IsBinary([]byte("package main\n")))
	assert.True(t, IsBinary([]byte{0x00, 0x01, 0x02}))
	assert.False(t, IsBinary(nil))
}

func createTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	cmd := exec.Command("git", "init", "-b", "main")
	cmd.Dir = dir
	require.NoError(t, cmd.Run())

	run := func(args ...string) {
		c := exec.Command("git", args...)
		c.Dir = dir
		out, err := c.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "Test User")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# Test\n"), 0644))
	run("add", "README.md")
	run("commit", "-m", "initial")

	return dir
}
