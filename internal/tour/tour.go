// Package tour orders a repository's files into a learning path: the entry
// point first, then central files before peripheral ones.
package tour

import (
	"sort"

	"github.com/phobologic/sherpa/internal/model"
	"github.com/phobologic/sherpa/internal/modname"
)

var groupPriority = map[modname.Group]int{
	modname.GroupSource:  0,
	modname.GroupProject: 1,
	modname.GroupTests:   2,
	modname.GroupDocs:    3,
}

// Function is one function listed in a step.
type Function struct {
	Name        string `json:"name"`
	Explanation string `json:"explanation,omitempty"`
}

// Step is one file in the learning order.
type Step struct {
	File        string        `json:"file"`
	Functions   []Function    `json:"functions"`
	IsEntry     bool          `json:"is_entry"`
	Group       modname.Group `json:"group"`
	Explanation string        `json:"explanation,omitempty"`
}

// Metadata summarizes the tour.
type Metadata struct {
	EntryPoint  *string `json:"entry_point"`
	FileCount   int     `json:"file_count"`
	SourceCount int     `json:"source_count"`
	TestCount   int     `json:"test_count"`
	DocsCount   int     `json:"docs_count"`
}

// Tour is the learning order for one model.
type Tour struct {
	LearningOrder []Step   `json:"learning_order"`
	Metadata      Metadata `json:"metadata"`
}

// Build orders the files of m. Files other than the entry point sort by
// group (source, project, tests, docs), then by descending fan-in plus
// fan-out, then by path.
func Build(m *model.UnifiedModel, layout modname.Layout) Tour {
	paths := m.Paths()

	degree := make(map[string]int, len(paths))
	for _, p := range paths {
		deps := m.Files[p].DependsOn
		degree[p] += len(deps)
		for _, d := range deps {
			if _, ok := m.Files[d]; ok {
				degree[d]++
			}
		}
	}

	t := Tour{
		LearningOrder: make([]Step, 0, len(paths)),
		Metadata:      Metadata{EntryPoint: m.EntryPoint, FileCount: len(paths)},
	}
	for _, p := range paths {
		switch layout.GroupOf(p) {
		case modname.GroupSource:
			t.Metadata.SourceCount++
		case modname.GroupTests:
			t.Metadata.TestCount++
		case modname.GroupDocs:
			t.Metadata.DocsCount++
		}
	}

	entry := m.Entry()
	if _, ok := m.Files[entry]; ok {
		t.LearningOrder = append(t.LearningOrder, step(m, layout, entry, true))
	}

	rest := make([]string, 0, len(paths))
	for _, p := range paths {
		if p != entry {
			rest = append(rest, p)
		}
	}
	sort.Slice(rest, func(i, j int) bool {
		gi, gj := groupPriority[layout.GroupOf(rest[i])], groupPriority[layout.GroupOf(rest[j])]
		if gi != gj {
			return gi < gj
		}
		if degree[rest[i]] != degree[rest[j]] {
			return degree[rest[i]] > degree[rest[j]]
		}
		return rest[i] < rest[j]
	})
	for _, p := range rest {
		t.LearningOrder = append(t.LearningOrder, step(m, layout, p, false))
	}
	return t
}

func step(m *model.UnifiedModel, layout modname.Layout, p string, isEntry bool) Step {
	fv := m.Files[p]
	names := make([]string, 0, len(fv.Functions))
	for name := range fv.Functions {
		names = append(names, name)
	}
	sort.Strings(names)

	fns := make([]Function, len(names))
	for i, name := range names {
		fns[i] = Function{Name: name, Explanation: fv.Functions[name].Explanation}
	}
	return Step{
		File:        p,
		Functions:   fns,
		IsEntry:     isEntry,
		Group:       layout.GroupOf(p),
		Explanation: fv.Explanation,
	}
}
