// Package index maps import aliases to the repository files that provide them.
package index

import (
	"sort"
	"strings"

	"github.com/phobologic/sherpa/internal/modname"
)

// Ranking weights used to pick one file when several claim the same alias.
const (
	SourceRootBonus  = 30
	TestRootPenalty  = -20
	DocsRootPenalty  = -25
	PathLengthWeight = -1
)

// Index is an immutable multi-map from alias to candidate file paths.
type Index struct {
	layout  modname.Layout
	byAlias map[string][]string
}

// Build indexes every file's aliases. paths must be the complete file set.
func Build(paths []string, layout modname.Layout) *Index {
	byAlias := make(map[string][]string)
	for _, p := range paths {
		for _, alias := range layout.Aliases(p).Names() {
			byAlias[alias] = append(byAlias[alias], p)
		}
	}
	for alias := range byAlias {
		sort.Strings(byAlias[alias])
	}
	return &Index{layout: layout, byAlias: byAlias}
}

// Candidates returns the files claiming alias exactly, sorted by path.
func (idx *Index) Candidates(alias string) []string {
	out := make([]string, len(idx.byAlias[alias]))
	copy(out, idx.byAlias[alias])
	return out
}

// Aliases returns every indexed alias, sorted.
func (idx *Index) Aliases() []string {
	aliases := make([]string, 0, len(idx.byAlias))
	for alias := range idx.byAlias {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

// Lookup resolves a dotted module name to one file. Trailing components are
// stripped until an alias matches, so "pkg.mod.Symbol" finds pkg/mod.py. The
// second result is false when the name is not provided by any local file.
func (idx *Index) Lookup(name string) (string, bool) {
	for name != "" {
		if candidates := idx.byAlias[name]; len(candidates) > 0 {
			return idx.best(candidates), true
		}
		dot := strings.LastIndex(name, ".")
		if dot < 0 {
			break
		}
		name = name[:dot]
	}
	return "", false
}

// Score ranks a candidate path; higher is preferred.
func (idx *Index) Score(p string) int {
	score := PathLengthWeight * len(p)
	if idx.layout.UnderSource(p) {
		score += SourceRootBonus
	}
	if idx.layout.UnderTests(p) {
		score += TestRootPenalty
	}
	if idx.layout.UnderDocs(p) {
		score += DocsRootPenalty
	}
	return score
}

func (idx *Index) best(candidates []string) string {
	best := candidates[0]
	bestScore := idx.Score(best)
	for _, c := range candidates[1:] {
		s := idx.Score(c)
		if s > bestScore || (s == bestScore && c < best) {
			best, bestScore = c, s
		}
	}
	return best
}
