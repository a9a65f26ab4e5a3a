// Package model defines core data structures for sherpa.
package model

import "sort"

// ImportKind distinguishes `import x as y` from `from x import y as z`.
type ImportKind string

const (
	ModuleImport ImportKind = "module"
	SymbolImport ImportKind = "symbol"
)

// ImportBinding maps a local name to the dotted target it was imported as.
// Targets are not validated against the module index.
type ImportBinding struct {
	Local  string
	Target string
	Kind   ImportKind
}

// FunctionRecord describes one top-level function or method.
type FunctionRecord struct {
	// Name is the module-local name: "func" or "Class.method".
	Name string
	// Qualified is module[.Class].function.
	Qualified     string
	Class         string
	Line          int
	Calls         []string
	ResolvedCalls []string
}

// ClassRecord describes a top-level class and the methods defined directly in it.
type ClassRecord struct {
	Name      string
	Qualified string
	Line      int
	Methods   []string
}

// FileModel is the per-file result of symbol extraction.
type FileModel struct {
	Path      string
	Module    string
	IsPackage bool
	Imports   []string
	Bindings  []ImportBinding
	Functions []FunctionRecord
	Classes   []ClassRecord
	Entry     bool
	// ParseError is non-empty when the file could not be parsed.
	ParseError string
}

// DependencyGraph maps a file path to the sorted paths it depends on.
type DependencyGraph map[string][]string

// CallEdge is a resolved call from one qualified symbol to another.
type CallEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ParseError records a file that failed to parse.
type ParseError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// FunctionView is the serialized form of a FunctionRecord.
type FunctionView struct {
	Calls         []string `json:"calls"`
	ResolvedCalls []string `json:"resolved_calls"`
	Explanation   string   `json:"explanation,omitempty"`
}

// FileView is the serialized form of a FileModel plus its dependencies.
type FileView struct {
	Entry       bool                    `json:"entry"`
	Imports     []string                `json:"imports"`
	Functions   map[string]FunctionView `json:"functions"`
	DependsOn   []string                `json:"depends_on"`
	Explanation string                  `json:"explanation,omitempty"`

	// Module is the file's module identity. It is not serialized.
	Module string `json:"-"`
}

// QualifiedName returns the qualified symbol of a function defined in the
// file, given its module-local name.
func (v FileView) QualifiedName(local string) string {
	if v.Module == "" {
		return local
	}
	return v.Module + "." + local
}

// Metadata carries run-wide results that are not tied to one file.
type Metadata struct {
	ParseErrors       []ParseError `json:"parse_errors"`
	ResolvedCallEdges []CallEdge   `json:"resolved_call_edges"`
}

// UnifiedModel is the complete analyzed repository, ready for serialization.
type UnifiedModel struct {
	EntryPoint *string             `json:"entry_point"`
	Files      map[string]FileView `json:"files"`
	Metadata   Metadata            `json:"metadata"`

	// Order lists file paths in file-set order.
	Order []string `json:"-"`
}

// Entry returns the entry point path, or "" when there is none.
func (m *UnifiedModel) Entry() string {
	if m.EntryPoint == nil {
		return ""
	}
	return *m.EntryPoint
}

// Paths returns file paths in file-set order. A model decoded from JSON has no
// recorded order, so paths come back sorted.
func (m *UnifiedModel) Paths() []string {
	if len(m.Order) == len(m.Files) {
		return m.Order
	}
	paths := make([]string, 0, len(m.Files))
	for p := range m.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
