// Package modname maps Python file paths to dotted module names and resolves
// relative imports.
package modname

import (
	"path"
	"strings"
)

const (
	sourceExt = ".py"
	indexLeaf = "__init__"
)

// Canonical returns the dotted module name for a repo-relative path and
// whether the path is a package index module (__init__.py).
//
// A root-level __init__.py keeps "__init__" as its name so every file has a
// non-empty identity.
func Canonical(p string) (string, bool) {
	p = strings.TrimSuffix(normalize(p), sourceExt)
	parts := strings.Split(p, "/")
	isPackage := parts[len(parts)-1] == indexLeaf
	if isPackage && len(parts) > 1 {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, "."), isPackage
}

// AliasSet is the set of dotted names other files may use to import one file.
type AliasSet struct {
	// Canonical is derived from the full repo-relative path.
	Canonical string
	// Stripped is derived from the path with the source root removed, or ""
	// when the file is not under the source root.
	Stripped string

	root string
}

// Aliases computes the AliasSet for a repo-relative path.
func (l Layout) Aliases(p string) AliasSet {
	canonical, _ := Canonical(p)
	set := AliasSet{Canonical: canonical, root: l.SourceRoot}

	rest, ok := cutRoot(normalize(p), l.SourceRoot)
	if ok && rest != "" {
		stripped, _ := Canonical(rest)
		if stripped != canonical && stripped != indexLeaf {
			set.Stripped = stripped
		}
	}
	return set
}

// Names returns every alias, canonical first.
func (a AliasSet) Names() []string {
	if a.Stripped == "" {
		return []string{a.Canonical}
	}
	return []string{a.Canonical, a.Stripped}
}

// Canonicalize rewrites a dotted target into the file's import space: for a
// file under the source root, a target spelled with the source-root prefix
// loses that prefix so it matches how sibling files are imported.
func (a AliasSet) Canonicalize(target string) string {
	if a.Stripped == "" || a.root == "" {
		return target
	}
	prefix := strings.ReplaceAll(a.root, "/", ".") + "."
	if rest, ok := strings.CutPrefix(target, prefix); ok && rest != "" {
		return rest
	}
	return target
}

// Identity is the file's own module name as used for qualified symbols.
func (a AliasSet) Identity() string {
	return a.Canonicalize(a.Canonical)
}

// ResolveRelative resolves `from <level dots><module> import <names>` inside
// the module current. It returns nil when the import climbs above the top of
// the package tree.
func ResolveRelative(current string, isPackage bool, level int, module string, names []string) []string {
	var packageParts []string
	if current != "" && current != indexLeaf {
		packageParts = strings.Split(current, ".")
	}
	if !isPackage && len(packageParts) > 0 {
		packageParts = packageParts[:len(packageParts)-1]
	}

	ascend := max(level-1, 0)
	if ascend > len(packageParts) {
		return nil
	}
	anchor := packageParts[:len(packageParts)-ascend]

	if module != "" {
		return []string{join(anchor, module)}
	}

	targets := make([]string, 0, len(names))
	for _, name := range names {
		targets = append(targets, join(anchor, name))
	}
	return targets
}

func join(anchor []string, suffix string) string {
	parts := make([]string, 0, len(anchor)+1)
	parts = append(parts, anchor...)
	parts = append(parts, strings.Split(suffix, ".")...)
	return strings.Join(parts, ".")
}

func normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.TrimPrefix(path.Clean(p), "./")
}

func cutRoot(p, root string) (string, bool) {
	if root == "" {
		return "", false
	}
	return strings.CutPrefix(p, strings.TrimSuffix(root, "/")+"/")
}
