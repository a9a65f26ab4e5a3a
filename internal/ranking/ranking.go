// Package ranking narrows a UnifiedModel to the files worth showing: the top
// files by PageRank, or the neighbourhood of a file or symbol.
package ranking

import (
	"sort"
	"strings"

	"github.com/phobologic/sherpa/internal/model"
)

// SelectFiles returns a view with only the maxFiles highest-ranked files.
// If maxFiles is <= 0 or >= the number of files, m is returned unchanged.
func SelectFiles(m *model.UnifiedModel, ranks map[string]float64, maxFiles int) *model.UnifiedModel {
	if maxFiles <= 0 || maxFiles >= len(m.Files) {
		return m
	}

	paths := append([]string(nil), m.Paths()...)
	sort.SliceStable(paths, func(i, j int) bool {
		ri, rj := ranks[paths[i]], ranks[paths[j]]
		if ri != rj {
			return ri > rj
		}
		return paths[i] < paths[j]
	})

	selected := make(map[string]struct{}, maxFiles)
	for _, p := range paths[:maxFiles] {
		selected[p] = struct{}{}
	}

	// Only dependencies between two selected files survive.
	return subset(m, selected, func(string) bool { return true }, true)
}

// FilterByFile returns a view with the files whose path contains substr
// (case-insensitive), their dependency edges, and call edges from functions
// they define.
func FilterByFile(m *model.UnifiedModel, substr string) *model.UnifiedModel {
	lower := strings.ToLower(substr)

	selected := make(map[string]struct{})
	for _, p := range m.Paths() {
		if strings.Contains(strings.ToLower(p), lower) {
			selected[p] = struct{}{}
		}
	}

	defined := definedIn(m, selected)
	return subset(m, selected, func(caller string) bool {
		_, ok := defined[caller]
		return ok
	}, false)
}

// FilterBySymbol returns a view focused on functions whose qualified name
// contains substr (case-insensitive): the files defining them, the files
// defining their direct callers and callees, and the edges touching them.
func FilterBySymbol(m *model.UnifiedModel, substr string) *model.UnifiedModel {
	lower := strings.ToLower(substr)

	owner := symbolOwners(m)
	matched := make(map[string]struct{})
	for sym := range owner {
		if strings.Contains(strings.ToLower(sym), lower) {
			matched[sym] = struct{}{}
		}
	}

	related := make(map[string]struct{})
	for _, e := range m.Metadata.ResolvedCallEdges {
		if _, ok := matched[e.From]; ok {
			related[e.To] = struct{}{}
		}
		if _, ok := matched[e.To]; ok {
			related[e.From] = struct{}{}
		}
	}

	selected := make(map[string]struct{})
	for sym := range matched {
		selected[owner[sym]] = struct{}{}
	}
	for sym := range related {
		if p, ok := owner[sym]; ok {
			selected[p] = struct{}{}
		}
	}

	view := subset(m, selected, func(string) bool { return false }, false)
	for _, e := range m.Metadata.ResolvedCallEdges {
		_, fromOK := matched[e.From]
		_, toOK := matched[e.To]
		if fromOK || toOK {
			view.Metadata.ResolvedCallEdges = append(view.Metadata.ResolvedCallEdges, e)
		}
	}
	return view
}

// subset copies the selected files of m. keepEdge decides which call edges
// survive by caller. With bothEnds, dependency lists are trimmed to selected
// targets.
func subset(m *model.UnifiedModel, selected map[string]struct{}, keepEdge func(caller string) bool, bothEnds bool) *model.UnifiedModel {
	view := &model.UnifiedModel{
		Files: make(map[string]model.FileView, len(selected)),
		Metadata: model.Metadata{
			ParseErrors:       []model.ParseError{},
			ResolvedCallEdges: []model.CallEdge{},
		},
	}
	if m.EntryPoint != nil {
		if _, ok := selected[*m.EntryPoint]; ok {
			entry := *m.EntryPoint
			view.EntryPoint = &entry
		}
	}

	for _, p := range m.Paths() {
		if _, ok := selected[p]; !ok {
			continue
		}
		fv := m.Files[p]
		if bothEnds {
			var deps []string
			for _, d := range fv.DependsOn {
				if _, ok := selected[d]; ok {
					deps = append(deps, d)
				}
			}
			if deps == nil {
				deps = []string{}
			}
			fv.DependsOn = deps
		}
		view.Files[p] = fv
		view.Order = append(view.Order, p)
	}

	for _, pe := range m.Metadata.ParseErrors {
		if _, ok := selected[pe.File]; ok {
			view.Metadata.ParseErrors = append(view.Metadata.ParseErrors, pe)
		}
	}

	defined := definedIn(m, selected)
	for _, e := range m.Metadata.ResolvedCallEdges {
		if _, ok := defined[e.From]; ok && keepEdge(e.From) {
			view.Metadata.ResolvedCallEdges = append(view.Metadata.ResolvedCallEdges, e)
		}
	}
	return view
}

// symbolOwners maps every defined function's qualified name to its file.
func symbolOwners(m *model.UnifiedModel) map[string]string {
	owner := make(map[string]string)
	for _, p := range m.Paths() {
		for _, sym := range qualifiedIn(m.Files[p]) {
			owner[sym] = p
		}
	}
	return owner
}

func definedIn(m *model.UnifiedModel, selected map[string]struct{}) map[string]struct{} {
	defined := make(map[string]struct{})
	for p := range selected {
		for _, sym := range qualifiedIn(m.Files[p]) {
			defined[sym] = struct{}{}
		}
	}
	return defined
}

func qualifiedIn(fv model.FileView) []string {
	out := make([]string, 0, len(fv.Functions))
	for local := range fv.Functions {
		out = append(out, fv.QualifiedName(local))
	}
	return out
}
