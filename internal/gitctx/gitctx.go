package gitctx

import (
	"errors"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	git "github.com/go-git/go-git/v5"
)

// ErrNotARepository reports that no git worktree encloses the inspected path.
var ErrNotARepository = errors.New("not a git repository")

// ResolveRoot resolves the enclosing worktree root for dir. It is strict:
// callers that write into .git must never operate relative to a guessed
// directory. Prefers go-git; falls back to the git CLI when the repository
// layout is one go-git cannot open.
func ResolveRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if root, ok := resolveGoGit(abs); ok {
		return root, nil
	}
	if root, ok := resolveCLI(abs); ok {
		return root, nil
	}
	return "", ErrNotARepository
}

// ResolveRootLenient resolves the worktree root for dir, falling back to dir
// itself when no repository encloses it. The second return reports whether a
// repository was found so callers can surface the fallback to the user.
func ResolveRootLenient(dir string) (string, bool) {
	root, err := ResolveRoot(dir)
	if err != nil {
		abs, aerr := filepath.Abs(dir)
		if aerr != nil {
			abs = dir
		}
		return abs, false
	}
	return root, true
}

func resolveGoGit(dir string) (string, bool) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", false
	}
	wt, err := repo.Worktree()
	if err != nil {
		// Bare repository: nothing to guard
		return "", false
	}
	return wt.Filesystem.Root(), true
}

func resolveCLI(dir string) (string, bool) {
	if _, err := exec.LookPath("git"); err != nil {
		return "", false
	}
	if runGit(dir, "rev-parse", "--is-inside-work-tree") != "true" {
		return "", false
	}
	root := runGit(dir, "rev-parse", "--show-toplevel")
	if root == "" {
		return "", false
	}
	return filepath.Clean(root), true
}

// StagedFiles returns the repo-relative, slash-separated paths of all files
// staged for commit. The order is stable so path gating behaves the same
// across invocations.
func StagedFiles(root string) ([]string, error) {
	if files, ok := stagedGoGit(root); ok {
		return files, nil
	}
	if _, err := exec.LookPath("git"); err != nil {
		return nil, ErrNotARepository
	}
	out := runGit(root, "diff", "--cached", "--name-only")
	if out == "" {
		return nil, nil
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		if f := strings.TrimSpace(line); f != "" {
			files = append(files, filepath.ToSlash(f))
		}
	}
	sort.Strings(files)
	return files, nil
}

func stagedGoGit(root string) ([]string, bool) {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, false
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, false
	}
	st, err := wt.Status()
	if err != nil {
		return nil, false
	}
	var files []string
	for path, s := range st {
		if s.Staging != git.Unmodified && s.Staging != git.Untracked {
			files = append(files, filepath.ToSlash(path))
		}
	}
	sort.Strings(files)
	return files, true
}

// Head returns the current branch and commit SHA for the repository at root.
// Both are best-effort and empty on an unborn HEAD.
func Head(root string) (branch, sha string) {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err == nil {
		if head, herr := repo.Head(); herr == nil {
			return head.Name().Short(), head.Hash().String()
		}
		return "", ""
	}
	if _, err := exec.LookPath("git"); err != nil {
		return "", ""
	}
	return runGit(root, "rev-parse", "--abbrev-ref", "HEAD"), runGit(root, "rev-parse", "HEAD")
}

func runGit(dir string, args ...string) string {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, _ := cmd.Output()
	return strings.TrimSpace(string(out))
}
