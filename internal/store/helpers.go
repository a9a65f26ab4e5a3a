package store

import (
	"encoding/json"
	"sort"

	"github.com/phobologic/sherpa/internal/model"
)

// marshalList encodes a string list column. A nil list is stored as [].
func marshalList(list []string) string {
	if list == nil {
		return "[]"
	}
	data, _ := json.Marshal(list)
	return string(data)
}

func unmarshalList(s string) ([]string, error) {
	list := []string{}
	if err := json.Unmarshal([]byte(s), &list); err != nil {
		return nil, err
	}
	return list, nil
}

func sortedNames(funcs map[string]model.FunctionView) []string {
	names := make([]string, 0, len(funcs))
	for name := range funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
