// Package toon implements TOON (Token-Oriented Object Notation) encoding.
package toon

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/phobologic/sherpa/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts a UnifiedModel into TOON format. repo names the analyzed
// repository in the header.
func Encode(repo string, m *model.UnifiedModel) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("repo: %s", encodeValue(repo)))
	entry := "null"
	if m.EntryPoint != nil {
		entry = encodeValue(*m.EntryPoint)
	}
	parts = append(parts, fmt.Sprintf("entry_point: %s", entry))

	paths := m.Paths()

	var fileRows [][]any
	for _, p := range paths {
		fv := m.Files[p]
		fileRows = append(fileRows, []any{
			p,
			fv.Entry,
			strings.Join(fv.Imports, " "),
			strings.Join(fv.DependsOn, " "),
		})
	}
	parts = append(parts, formatTabular("files", []string{"path", "entry", "imports", "depends_on"}, fileRows))

	var funcRows [][]any
	for _, p := range paths {
		fv := m.Files[p]
		names := make([]string, 0, len(fv.Functions))
		for name := range fv.Functions {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fn := fv.Functions[name]
			funcRows = append(funcRows, []any{
				p,
				name,
				strings.Join(fn.Calls, " "),
				strings.Join(fn.ResolvedCalls, " "),
			})
		}
	}
	parts = append(parts, formatTabular("functions", []string{"file", "name", "calls", "resolved_calls"}, funcRows))

	var edgeRows [][]any
	for _, e := range m.Metadata.ResolvedCallEdges {
		edgeRows = append(edgeRows, []any{e.From, e.To})
	}
	parts = append(parts, formatTabular("edges", []string{"from", "to"}, edgeRows))

	if len(m.Metadata.ParseErrors) > 0 {
		var errRows [][]any
		for _, pe := range m.Metadata.ParseErrors {
			errRows = append(errRows, []any{pe.File, pe.Error})
		}
		parts = append(parts, formatTabular("parse_errors", []string{"file", "error"}, errRows))
	}

	return strings.Join(parts, "\n")
}

// formatTabular renders a uniform array. Cells are strings, bools or ints;
// only strings are subject to quoting.
func formatTabular(name string, columns []string, rows [][]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			switch v := cell.(type) {
			case string:
				encoded[i] = encodeValue(v)
			case bool:
				encoded[i] = strconv.FormatBool(v)
			case int:
				encoded[i] = strconv.Itoa(v)
			default:
				encoded[i] = encodeValue(fmt.Sprint(v))
			}
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
