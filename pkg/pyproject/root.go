package pyproject

import (
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
	"github.com/pkg/errors"
)

// FindRoot locates the project directory containing pyproject.toml,
// starting from dir. The enclosing git worktree is tried first, then
// the directories above dir one by one.
func FindRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err == nil {
		if wt, err := repo.Worktree(); err == nil {
			root := wt.Filesystem.Root()
			if _, err := os.Stat(filepath.Join(root, "pyproject.toml")); err == nil {
				return root, nil
			}
		}
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "pyproject.toml")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("pyproject.toml not found")
		}

		dir = parent
	}
}
