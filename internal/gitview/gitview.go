// Package gitview provides read-only access to a Git commit: resolving
// refs, listing tracked files with their blob identities, and reading blob
// content. It never mutates the working tree or refs (spec §4.1, C1).
package gitview

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/sourcerack/sourcerack/internal/sqerr"
)

// TrackedFile is one entry from a commit's file tree.
type TrackedFile struct {
	Path    string
	BlobSHA string
	Mode    string
}

// View is read-only access to a single repository's Git plumbing.
type View interface {
	// ResolveRef resolves a ref-like string (branch, tag, short/long SHA,
	// "HEAD") to a full 40-hex commit SHA.
	ResolveRef(ctx context.Context, repoPath, ref string) (string, error)

	// ListFiles lists every file tracked at the given commit.
	ListFiles(ctx context.Context, repoPath, commitSHA string) ([]TrackedFile, error)

	// ReadBlob reads a blob's raw content by its object SHA.
	ReadBlob(ctx context.Context, repoPath, blobSHA string) ([]byte, error)

	// WorktreeRoot returns the working tree root for repoPath, falling
	// back to repoPath itself if it is not a Git repository.
	WorktreeRoot(ctx context.Context, repoPath string) string

	// RepositoryIdentity returns a stable identity for repoPath that is
	// shared across worktrees of the same repository (the common git dir),
	// so a worktree checkout tags results with its main repository's
	// identity while still reading blobs from its own working directory.
	RepositoryIdentity(ctx context.Context, repoPath string) string
}

// gitOps is the exec.Command-backed implementation, grounded on the
// teacher's internal/git/operations.go shelling pattern.
type gitOps struct{}

// New returns the default, exec.Command-backed git View.
func New() View {
	return &gitOps{}
}

func (g *gitOps) run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

func (g *gitOps) ResolveRef(ctx context.Context, repoPath, ref string) (string, error) {
	out, err := g.run(ctx, repoPath, "rev-parse", "--verify", ref+"^{commit}")
	if err != nil {
		if isNotARepo(err) {
			return "", sqerr.New(sqerr.KindNotAGitRepository, repoPath, err)
		}
		return "", sqerr.New(sqerr.KindUnknownRef, ref, err)
	}
	sha := strings.TrimSpace(string(out))
	if len(sha) != 40 {
		return "", sqerr.New(sqerr.KindUnknownRef, ref, fmt.Errorf("unexpected rev-parse output %q", sha))
	}
	return sha, nil
}

func (g *gitOps) ListFiles(ctx context.Context, repoPath, commitSHA string) ([]TrackedFile, error) {
	out, err := g.run(ctx, repoPath, "ls-tree", "-r", "-z", "--full-tree", commitSHA)
	if err != nil {
		return nil, sqerr.New(sqerr.KindUnknownRef, commitSHA, err)
	}
	var files []TrackedFile
	for _, entry := range strings.Split(strings.TrimRight(string(out), "\x00"), "\x00") {
		if entry == "" {
			continue
		}
		// "<mode> <type> <sha>\t<path>"
		tab := strings.IndexByte(entry, '\t')
		if tab < 0 {
			continue
		}
		meta := strings.Fields(entry[:tab])
		if len(meta) != 3 {
			continue
		}
		files = append(files, TrackedFile{
			Mode:    meta[0],
			BlobSHA: meta[2],
			Path:    entry[tab+1:],
		})
	}
	return files, nil
}

func (g *gitOps) ReadBlob(ctx context.Context, repoPath, blobSHA string) ([]byte, error) {
	out, err := g.run(ctx, repoPath, "cat-file", "-p", blobSHA)
	if err != nil {
		return nil, sqerr.New(sqerr.KindBlobReadFailed, blobSHA, err)
	}
	return out, nil
}

func (g *gitOps) WorktreeRoot(ctx context.Context, repoPath string) string {
	out, err := g.run(ctx, repoPath, "rev-parse", "--show-toplevel")
	if err != nil {
		return repoPath
	}
	return strings.TrimSpace(string(out))
}

func (g *gitOps) RepositoryIdentity(ctx context.Context, repoPath string) string {
	out, err := g.run(ctx, repoPath, "rev-parse", "--git-common-dir")
	if err != nil {
		return repoPath
	}
	return strings.TrimSpace(string(out))
}

func isNotARepo(err error) bool {
	return strings.Contains(err.Error(), "not a git repository")
}

// IsBinary reports whether content looks like a binary blob, using the
// same NUL-byte-in-the-first-bytes heuristic Git itself applies.
func IsBinary(content []byte) bool {
	n := len(content)
	if n > 8000 {
		n = 8000
	}
	return bytes.IndexByte(content[:n], 0) != -1
}

// ParseMode is a convenience for callers that need the octal file mode of a
// TrackedFile.Mode string (e.g. to distinguish symlinks, "120000").
func ParseMode(mode string) (int64, error) {
	return strconv.ParseInt(mode, 8, 32)
}
