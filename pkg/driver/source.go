package driver

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/pkg/errors"
)

// Source supplies whole-file contents to the loader.
type Source interface {
	Read(ctx context.Context, path string) ([]byte, error)
}

// FileSource reads from the local file system.
type FileSource struct{}

func (FileSource) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return data, nil
}

// GitSource reads files as they were at a revision of the repository that
// contains them, ignoring the working tree.
type GitSource struct {
	// Repo is any path inside the repository; "" means the current directory.
	Repo string
	// Revision is anything git rev-parse understands; "" means HEAD.
	Revision string
}

func (g GitSource) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := g.Repo
	if start == "" {
		start = filepath.Dir(path)
	}
	repo, err := git.PlainOpenWithOptions(start, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errors.Wrapf(err, "open repository at %s", start)
	}
	revision := strings.TrimSpace(g.Revision)
	if revision == "" {
		revision = "HEAD"
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return nil, errors.Wrapf(err, "resolve revision %s", revision)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, errors.Wrapf(err, "load commit %s", hash)
	}
	rel, err := g.repoRelative(repo, path)
	if err != nil {
		return nil, err
	}
	file, err := commit.File(rel)
	if err != nil {
		return nil, errors.Wrapf(err, "%s at %s", rel, revision)
	}
	contents, err := file.Contents()
	if err != nil {
		return nil, errors.Wrapf(err, "read %s at %s", rel, revision)
	}
	return []byte(contents), nil
}

func (g GitSource) repoRelative(repo *git.Repository, path string) (string, error) {
	worktree, err := repo.Worktree()
	if err != nil {
		return "", errors.Wrap(err, "repository has no worktree")
	}
	root := worktree.Filesystem.Root()
	abs := path
	if !filepath.IsAbs(abs) {
		if abs, err = filepath.Abs(path); err != nil {
			return "", err
		}
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	if resolved, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		abs = filepath.Join(resolved, filepath.Base(abs))
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", errors.Errorf("%s is outside repository %s", path, root)
	}
	return filepath.ToSlash(rel), nil
}
