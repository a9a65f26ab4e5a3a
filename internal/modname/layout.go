package modname

import "strings"

// Layout names the conventional top-level directories of a repository.
type Layout struct {
	SourceRoot string
	TestRoots  []string
	DocsRoots  []string
	ScriptDirs []string
}

// DefaultLayout returns the conventional Python project layout.
func DefaultLayout() Layout {
	return Layout{
		SourceRoot: "src",
		TestRoots:  []string{"tests", "test"},
		DocsRoots:  []string{"docs", "doc"},
		ScriptDirs: []string{"scripts", "bin"},
	}
}

// Group is a coarse classification of a file by its top-level directory.
type Group string

const (
	GroupSource  Group = "source"
	GroupProject Group = "project"
	GroupTests   Group = "tests"
	GroupDocs    Group = "docs"
)

// UnderSource reports whether p lives under the source root.
func (l Layout) UnderSource(p string) bool {
	return l.SourceRoot != "" && underAny(p, []string{l.SourceRoot})
}

// UnderTests reports whether p lives under a test root.
func (l Layout) UnderTests(p string) bool { return underAny(p, l.TestRoots) }

// UnderDocs reports whether p lives under a docs root.
func (l Layout) UnderDocs(p string) bool { return underAny(p, l.DocsRoots) }

// UnderScripts reports whether p lives under an executable-script directory.
func (l Layout) UnderScripts(p string) bool { return underAny(p, l.ScriptDirs) }

// GroupOf classifies p. Source wins over tests and docs.
func (l Layout) GroupOf(p string) Group {
	switch {
	case l.UnderSource(p):
		return GroupSource
	case l.UnderTests(p):
		return GroupTests
	case l.UnderDocs(p):
		return GroupDocs
	default:
		return GroupProject
	}
}

func underAny(p string, roots []string) bool {
	p = normalize(p)
	for _, root := range roots {
		root = strings.Trim(root, "/")
		if root != "" && strings.HasPrefix(p, root+"/") {
			return true
		}
	}
	return false
}
