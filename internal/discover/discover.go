// Package discover finds Python source files in a repository.
package discover

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"
)

const sourceExt = ".py"

var skipDirs = map[string]struct{}{
	"__pycache__":   {},
	"node_modules":  {},
	"venv":          {},
	"env":           {},
	"build":         {},
	"dist":          {},
	"site-packages": {},
}

// Filter decides which directories are walked. Test and docs directories are
// kept; the layout ranks them instead.
type Filter struct {
	exclude map[string]struct{}
}

// NewFilter builds a Filter that also skips the given directory names.
func NewFilter(exclude []string) Filter {
	f := Filter{exclude: make(map[string]struct{}, len(exclude))}
	for _, name := range exclude {
		name = strings.Trim(name, "/")
		if name != "" {
			f.exclude[name] = struct{}{}
		}
	}
	return f
}

// SkipDir reports whether a directory with this base name is never walked.
func (f Filter) SkipDir(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".egg-info") {
		return true
	}
	if _, skip := skipDirs[name]; skip {
		return true
	}
	_, skip := f.exclude[name]
	return skip
}

// IsSource reports whether a file with this base name is analyzed.
func IsSource(name string) bool {
	return !strings.HasPrefix(name, ".") && filepath.Ext(name) == sourceExt
}

// Files returns the repo-relative, forward-slash paths of every Python file
// under root, sorted. Inside a git work tree only tracked and untracked-but-not-
// ignored files are returned; otherwise a root .gitignore is honoured.
func Files(root string, f Filter) ([]string, error) {
	gitFiles := gitLsFiles(root)
	var gi *ignore.GitIgnore
	if gitFiles == nil {
		gi = loadGitignore(root)
	}

	var results []string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		name := d.Name()

		if d.IsDir() {
			if path == root {
				return nil
			}
			if f.SkipDir(name) {
				return filepath.SkipDir
			}
			return nil
		}

		if !IsSource(name) {
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if gitFiles != nil {
			if _, ok := gitFiles[rel]; !ok {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		results = append(results, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(results)
	return results, nil
}

func gitLsFiles(root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
