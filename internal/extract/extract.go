// Package extract builds per-file symbol models: import bindings, top-level
// definitions, the entry guard, and best-effort call targets.
package extract

import (
	"sort"

	"github.com/phobologic/sherpa/internal/model"
	"github.com/phobologic/sherpa/internal/modname"
	"github.com/phobologic/sherpa/internal/parse"
)

const (
	guardName     = "__name__"
	guardSentinel = "__main__"
)

// Source is one file ready for extraction.
type Source struct {
	Path      string
	Aliases   modname.AliasSet
	IsPackage bool
	Outcome   parse.Outcome
}

// NewSource derives a Source's module identity from its path.
func NewSource(path string, layout modname.Layout, outcome parse.Outcome) Source {
	_, isPackage := modname.Canonical(path)
	return Source{
		Path:      path,
		Aliases:   layout.Aliases(path),
		IsPackage: isPackage,
		Outcome:   outcome,
	}
}

// File extracts the FileModel for one source file. A parse failure yields an
// empty model carrying the failure message.
func File(src Source) model.FileModel {
	fm := model.FileModel{
		Path:      src.Path,
		Module:    src.Aliases.Identity(),
		IsPackage: src.IsPackage,
	}

	mod, ok := src.Outcome.Module()
	if !ok {
		fm.ParseError = src.Outcome.Failure()
		return fm
	}

	x := &extractor{
		src:       src,
		module:    fm.Module,
		imports:   make(map[string]struct{}),
		modules:   make(map[string]string),
		symbols:   make(map[string]string),
		functions: make(map[string]*funcDef),
		classes:   make(map[string]*classDef),
	}
	x.walkTop(mod.Body)

	fm.Imports = sortedKeys(x.imports)
	fm.Bindings = x.bindings
	fm.Entry = x.entry
	fm.Functions, fm.Classes = x.resolveAll()
	return fm
}

type funcDef struct {
	name  string
	class string
	line  int
	body  [][]parse.Stmt
}

type classDef struct {
	name    string
	line    int
	methods []string
}

type extractor struct {
	src    Source
	module string

	imports  map[string]struct{}
	bindings []model.ImportBinding
	modules  map[string]string
	symbols  map[string]string
	entry    bool

	functions  map[string]*funcDef
	funcOrder  []string
	classes    map[string]*classDef
	classOrder []string
}

// walkTop visits statements at nesting depth zero: module level and inside
// top-level compound statements, never inside function or class bodies.
func (x *extractor) walkTop(stmts []parse.Stmt) {
	for _, s := range stmts {
		switch s := s.(type) {
		case *parse.Import:
			x.addImport(s)
		case *parse.ImportFrom:
			x.addImportFrom(s)
		case *parse.FunctionDef:
			x.addFunction(s.Name, "", s.Line, s.Body)
		case *parse.ClassDef:
			x.addClass(s)
		case *parse.If:
			if isEntryGuard(s.Test) {
				x.entry = true
			}
			x.walkTop(s.Body)
			x.walkTop(s.Orelse)
		case *parse.Compound:
			x.walkTop(s.Body)
		}
	}
}

func (x *extractor) addImport(s *parse.Import) {
	for _, a := range s.Names {
		target := x.src.Aliases.Canonicalize(a.Name)
		x.imports[target] = struct{}{}

		// `import a.b` binds `a`; `import a.b as c` binds `c` to a.b.
		local, bound := a.AsName, target
		if local == "" {
			local = firstComponent(a.Name)
			bound = x.src.Aliases.Canonicalize(local)
		}
		x.bind(local, bound, model.ModuleImport)
	}
}

func (x *extractor) addImportFrom(s *parse.ImportFrom) {
	if s.Level == 0 {
		module := x.src.Aliases.Canonicalize(s.Module)
		x.imports[module] = struct{}{}
		for _, a := range s.Names {
			x.bind(localName(a), module+"."+a.Name, model.SymbolImport)
		}
		return
	}

	if s.Module != "" {
		resolved := modname.ResolveRelative(x.src.Aliases.Canonical, x.src.IsPackage, s.Level, s.Module, nil)
		if len(resolved) == 0 {
			return
		}
		module := x.src.Aliases.Canonicalize(resolved[0])
		x.imports[module] = struct{}{}
		for _, a := range s.Names {
			x.bind(localName(a), module+"."+a.Name, model.SymbolImport)
		}
		return
	}

	// `from . import a, b` resolves each name to its own module.
	names := make([]string, len(s.Names))
	for i, a := range s.Names {
		names[i] = a.Name
	}
	resolved := modname.ResolveRelative(x.src.Aliases.Canonical, x.src.IsPackage, s.Level, "", names)
	for i, target := range resolved {
		target = x.src.Aliases.Canonicalize(target)
		x.imports[target] = struct{}{}
		x.bind(localName(s.Names[i]), target, model.SymbolImport)
	}
}

func (x *extractor) bind(local, target string, kind model.ImportKind) {
	x.bindings = append(x.bindings, model.ImportBinding{Local: local, Target: target, Kind: kind})
	switch kind {
	case model.ModuleImport:
		x.modules[local] = target
		delete(x.symbols, local)
	case model.SymbolImport:
		x.symbols[local] = target
		delete(x.modules, local)
	}
}

// addFunction records a definition. Redefinitions of the same name (property
// setters, conditional definitions) merge into one record.
func (x *extractor) addFunction(name, class string, line int, body []parse.Stmt) {
	key := name
	if class != "" {
		key = class + "." + name
	}
	if fd, ok := x.functions[key]; ok {
		fd.body = append(fd.body, body)
		return
	}
	x.functions[key] = &funcDef{name: name, class: class, line: line, body: [][]parse.Stmt{body}}
	x.funcOrder = append(x.funcOrder, key)
}

func (x *extractor) addClass(s *parse.ClassDef) {
	cd, ok := x.classes[s.Name]
	if !ok {
		cd = &classDef{name: s.Name, line: s.Line}
		x.classes[s.Name] = cd
		x.classOrder = append(x.classOrder, s.Name)
	}
	x.walkClassBody(cd, s.Body)
}

func (x *extractor) walkClassBody(cd *classDef, stmts []parse.Stmt) {
	for _, s := range stmts {
		switch s := s.(type) {
		case *parse.FunctionDef:
			if !contains(cd.methods, s.Name) {
				cd.methods = append(cd.methods, s.Name)
			}
			x.addFunction(s.Name, cd.name, s.Line, s.Body)
		case *parse.If:
			x.walkClassBody(cd, s.Body)
			x.walkClassBody(cd, s.Orelse)
		case *parse.Compound:
			x.walkClassBody(cd, s.Body)
		}
	}
}

func (x *extractor) resolveAll() ([]model.FunctionRecord, []model.ClassRecord) {
	sc := &scope{
		module:    x.module,
		aliases:   x.src.Aliases,
		modules:   x.modules,
		symbols:   x.symbols,
		classes:   make(map[string]struct{}, len(x.classes)),
		functions: make(map[string]struct{}),
		adapters:  adapterCandidates(x.symbols),
	}
	for name := range x.classes {
		sc.classes[name] = struct{}{}
	}
	for _, fd := range x.functions {
		if fd.class == "" {
			sc.functions[fd.name] = struct{}{}
		}
	}

	funcs := make([]model.FunctionRecord, 0, len(x.funcOrder))
	for _, key := range x.funcOrder {
		fd := x.functions[key]
		r := newBodyResolver(sc, fd.class)
		for _, body := range fd.body {
			r.walk(body)
		}
		funcs = append(funcs, model.FunctionRecord{
			Name:          key,
			Qualified:     x.module + "." + key,
			Class:         fd.class,
			Line:          fd.line,
			Calls:         sortedKeys(r.calls),
			ResolvedCalls: sortedKeys(r.resolved),
		})
	}
	sort.Slice(funcs, func(i, j int) bool { return funcs[i].Name < funcs[j].Name })

	classes := make([]model.ClassRecord, 0, len(x.classOrder))
	for _, name := range x.classOrder {
		cd := x.classes[name]
		methods := append([]string(nil), cd.methods...)
		sort.Strings(methods)
		classes = append(classes, model.ClassRecord{
			Name:      name,
			Qualified: x.module + "." + name,
			Line:      cd.line,
			Methods:   methods,
		})
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })

	return funcs, classes
}

// isEntryGuard matches `__name__ == "__main__"` in either operand order.
func isEntryGuard(test parse.Expr) bool {
	cmp, ok := test.(*parse.Compare)
	if !ok || len(cmp.Ops) != 1 || len(cmp.Comparators) != 1 || cmp.Ops[0] != "==" {
		return false
	}
	left, right := cmp.Left, cmp.Comparators[0]
	return (isGuardName(left) && isSentinel(right)) || (isSentinel(left) && isGuardName(right))
}

func isGuardName(e parse.Expr) bool {
	n, ok := e.(*parse.Name)
	return ok && n.ID == guardName
}

func isSentinel(e parse.Expr) bool {
	s, ok := e.(*parse.Str)
	return ok && s.Value == guardSentinel
}

func localName(a parse.Alias) string {
	if a.AsName != "" {
		return a.AsName
	}
	return a.Name
}

func firstComponent(dotted string) string {
	for i := 0; i < len(dotted); i++ {
		if dotted[i] == '.' {
			return dotted[:i]
		}
	}
	return dotted
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
