// Package graph builds the file dependency graph and the call graph, and
// computes PageRank over dependencies.
package graph

import (
	"math"
	"sort"

	"github.com/phobologic/sherpa/internal/index"
	"github.com/phobologic/sherpa/internal/model"
)

// BuildDependencies resolves every file's imports through the module index.
// Symbol bindings (`from pkg import sub`) are resolved too, so a submodule
// imported by name is a dependency even when pkg has no __init__.py.
// Every file is a key; an import that resolves to the importing file itself,
// or to nothing local, adds no edge.
func BuildDependencies(files []model.FileModel, idx *index.Index) model.DependencyGraph {
	deps := make(model.DependencyGraph, len(files))
	for i := range files {
		fm := &files[i]
		targets := make(map[string]struct{})
		add := func(name string) {
			target, ok := idx.Lookup(name)
			if !ok || target == fm.Path {
				return
			}
			targets[target] = struct{}{}
		}
		for _, imp := range fm.Imports {
			add(imp)
		}
		for _, b := range fm.Bindings {
			if b.Kind == model.SymbolImport {
				add(b.Target)
			}
		}
		deps[fm.Path] = sortedKeys(targets)
	}
	return deps
}

// BuildCallEdges collects every resolved call as an edge from the calling
// function's qualified name. Edges are sorted by (from, to).
func BuildCallEdges(files []model.FileModel) []model.CallEdge {
	type edgeKey struct{ from, to string }
	seen := make(map[edgeKey]struct{})

	edges := []model.CallEdge{}
	for i := range files {
		for _, fn := range files[i].Functions {
			for _, callee := range fn.ResolvedCalls {
				key := edgeKey{fn.Qualified, callee}
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				edges = append(edges, model.CallEdge{From: fn.Qualified, To: callee})
			}
		}
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges
}

// CallGraph is an adjacency view over resolved call edges.
type CallGraph struct {
	callees map[string][]string
}

// NewCallGraph indexes edges by caller. Callee lists are sorted.
func NewCallGraph(edges []model.CallEdge) *CallGraph {
	sets := make(map[string]map[string]struct{})
	for _, e := range edges {
		if sets[e.From] == nil {
			sets[e.From] = make(map[string]struct{})
		}
		sets[e.From][e.To] = struct{}{}
	}
	callees := make(map[string][]string, len(sets))
	for from, set := range sets {
		callees[from] = sortedKeys(set)
	}
	return &CallGraph{callees: callees}
}

// Callees returns the sorted callees of a qualified symbol.
func (g *CallGraph) Callees(symbol string) []string {
	return g.callees[symbol]
}

// ShortestPath finds the shortest call chain from one symbol to another using
// at most maxHops edges. Callees are explored in sorted order, so among paths
// of equal length the lexicographically earliest wins. The second result is
// false when the target is unreachable within the bound.
func (g *CallGraph) ShortestPath(from, to string, maxHops int) ([]string, bool) {
	if from == to {
		return []string{from}, true
	}
	if maxHops <= 0 {
		return nil, false
	}

	parent := map[string]string{from: ""}
	frontier := []string{from}
	for hop := 1; hop <= maxHops && len(frontier) > 0; hop++ {
		var next []string
		for _, node := range frontier {
			for _, callee := range g.callees[node] {
				if _, seen := parent[callee]; seen {
					continue
				}
				parent[callee] = node
				if callee == to {
					return tracePath(parent, from, to), true
				}
				next = append(next, callee)
			}
		}
		frontier = next
	}
	return nil, false
}

func tracePath(parent map[string]string, from, to string) []string {
	var rev []string
	for node := to; node != from; node = parent[node] {
		rev = append(rev, node)
	}
	rev = append(rev, from)

	path := make([]string, len(rev))
	for i, node := range rev {
		path[len(rev)-1-i] = node
	}
	return path
}

// Rank applies PageRank to the dependency graph. A file that many files
// depend on ranks high. Without edges every file gets the same rank.
func Rank(deps model.DependencyGraph) map[string]float64 {
	if len(deps) == 0 {
		return map[string]float64{}
	}

	nodes := make(map[string]struct{}, len(deps))
	outEdges := make(map[string][]string)
	outDegree := make(map[string]int)
	edgeCount := 0
	for src, targets := range deps {
		nodes[src] = struct{}{}
		for _, tgt := range targets {
			nodes[tgt] = struct{}{}
			outEdges[src] = append(outEdges[src], tgt)
			outDegree[src]++
			edgeCount++
		}
	}

	if edgeCount == 0 {
		uniform := 1.0 / float64(len(nodes))
		ranks := make(map[string]float64, len(nodes))
		for node := range nodes {
			ranks[node] = uniform
		}
		return ranks
	}

	return pageRank(nodes, outEdges, outDegree, 0.85, 100, 1e-6)
}

// Ranked is one file with its PageRank score.
type Ranked struct {
	Path string  `json:"path"`
	Rank float64 `json:"rank"`
}

// Central returns the n highest-ranked files, rank descending then path
// ascending. n <= 0 returns every file.
func Central(ranks map[string]float64, n int) []Ranked {
	out := make([]Ranked, 0, len(ranks))
	for p, r := range ranks {
		out = append(out, Ranked{Path: p, Rank: r})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank > out[j].Rank
		}
		return out[i].Path < out[j].Path
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func pageRank(
	nodes map[string]struct{},
	outEdges map[string][]string,
	outDegree map[string]int,
	alpha float64,
	maxIter int,
	tol float64,
) map[string]float64 {
	n := len(nodes)
	if n == 0 {
		return nil
	}

	rank := make(map[string]float64, n)
	initial := 1.0 / float64(n)
	for node := range nodes {
		rank[node] = initial
	}

	teleport := (1.0 - alpha) / float64(n)

	for iter := 0; iter < maxIter; iter++ {
		newRank := make(map[string]float64, n)

		// Dangling nodes spread their rank evenly.
		var danglingSum float64
		for node := range nodes {
			if outDegree[node] == 0 {
				danglingSum += rank[node]
			}
		}
		danglingContrib := alpha * danglingSum / float64(n)

		for node := range nodes {
			newRank[node] = teleport + danglingContrib
		}

		for src, targets := range outEdges {
			contrib := alpha * rank[src] / float64(outDegree[src])
			for _, tgt := range targets {
				newRank[tgt] += contrib
			}
		}

		var diff float64
		for node := range nodes {
			diff += math.Abs(newRank[node] - rank[node])
		}

		rank = newRank

		if diff < tol {
			break
		}
	}

	return rank
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
