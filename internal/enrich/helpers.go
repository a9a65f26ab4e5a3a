package enrich

import (
	"sort"

	"github.com/phobologic/sherpa/internal/model"
)

func sortedNames(funcs map[string]model.FunctionView) []string {
	names := make([]string, 0, len(funcs))
	for name := range funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
