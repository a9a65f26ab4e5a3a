package extract

import (
	"sort"
	"strings"
)

// adapterSuffix marks an imported symbol as a concrete adapter type.
const adapterSuffix = "Adapter"

// isAdapterFactory reports whether a qualified callee looks like an adapter
// accessor: its last component ends in get_adapter or getAdapter, ignoring
// case. get_db_adapter does not qualify.
func isAdapterFactory(qualified string) bool {
	name := qualified
	if dot := strings.LastIndex(name, "."); dot >= 0 {
		name = name[dot+1:]
	}
	name = strings.ToLower(name)
	return strings.HasSuffix(name, "get_adapter") || strings.HasSuffix(name, "getadapter")
}

// adapterCandidates returns the imported symbol targets ending in "Adapter",
// sorted.
func adapterCandidates(symbols map[string]string) []string {
	var out []string
	for _, target := range symbols {
		if strings.HasSuffix(target, adapterSuffix) {
			out = append(out, target)
		}
	}
	sort.Strings(out)
	return out
}

// substituteAdapter assumes a value returned by an adapter factory is the
// lexicographically first imported adapter class. This is a fixed
// approximation, not type inference.
func substituteAdapter(candidates []string) Target {
	if len(candidates) == 0 {
		return Unresolved
	}
	return Resolved(candidates[0])
}
