// Package entry picks the repository's entry point among files that carry a
// top-level `if __name__ == "__main__":` guard.
package entry

import (
	"path"

	"github.com/phobologic/sherpa/internal/model"
	"github.com/phobologic/sherpa/internal/modname"
)

// Scoring weights for guard-flagged files.
const (
	PackageEntryBonus = 120
	ProgramEntryBonus = 60
	ScriptDirBonus    = 40
	TestDocsPenalty   = -40
	SourceRootPenalty = -20
)

const packageEntryName = "__main__.py"

var programEntryNames = map[string]struct{}{
	"main.py":  {},
	"app.py":   {},
	"run.py":   {},
	"start.py": {},
}

// Score rates a guard-flagged file as an entry point candidate.
func Score(p string, layout modname.Layout) int {
	score := 0
	name := path.Base(p)
	if name == packageEntryName {
		score += PackageEntryBonus
	}
	if _, ok := programEntryNames[name]; ok {
		score += ProgramEntryBonus
	}
	if layout.UnderScripts(p) {
		score += ScriptDirBonus
	}
	if layout.UnderTests(p) || layout.UnderDocs(p) {
		score += TestDocsPenalty
	}
	if layout.UnderSource(p) {
		score += SourceRootPenalty
	}
	return score
}

// Select returns the highest-scoring guard-flagged file, ties broken by
// ascending path. It reports false when no file has a guard or the best
// score is not positive.
func Select(files []model.FileModel, layout modname.Layout) (string, bool) {
	best, bestScore, found := "", 0, false
	for i := range files {
		if !files[i].Entry {
			continue
		}
		p := files[i].Path
		s := Score(p, layout)
		if !found || s > bestScore || (s == bestScore && p < best) {
			best, bestScore, found = p, s, true
		}
	}
	if !found || bestScore <= 0 {
		return "", false
	}
	return best, true
}
