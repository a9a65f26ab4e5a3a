package modname

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonical(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path      string
		want      string
		isPackage bool
	}{
		{"app.py", "app", false},
		{"pkg/a.py", "pkg.a", false},
		{"pkg/__init__.py", "pkg", true},
		{"src/pkg/sub/__init__.py", "src.pkg.sub", true},
		{"__init__.py", "__init__", true},
		{"pkg/__main__.py", "pkg.__main__", false},
		{`pkg\win.py`, "pkg.win", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			got, isPackage := Canonical(tt.path)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.isPackage, isPackage)
		})
	}
}

func TestAliases(t *testing.T) {
	t.Parallel()
	l := DefaultLayout()

	a := l.Aliases("src/pkg/mod.py")
	assert.Equal(t, "src.pkg.mod", a.Canonical)
	assert.Equal(t, "pkg.mod", a.Stripped)
	assert.Equal(t, []string{"src.pkg.mod", "pkg.mod"}, a.Names())
	assert.Equal(t, "pkg.mod", a.Identity())

	b := l.Aliases("lib/mod.py")
	assert.Equal(t, []string{"lib.mod"}, b.Names())
	assert.Equal(t, "lib.mod", b.Identity())

	// A package index directly under the source root has no stripped alias.
	c := l.Aliases("src/__init__.py")
	assert.Equal(t, []string{"src"}, c.Names())
}

func TestCanonicalize(t *testing.T) {
	t.Parallel()
	l := DefaultLayout()

	under := l.Aliases("src/pkg/a.py")
	assert.Equal(t, "pkg.b", under.Canonicalize("src.pkg.b"))
	assert.Equal(t, "pkg.b", under.Canonicalize("pkg.b"))
	assert.Equal(t, "src", under.Canonicalize("src"))
	assert.Equal(t, "srcfoo.x", under.Canonicalize("srcfoo.x"))

	outside := l.Aliases("tools/a.py")
	assert.Equal(t, "src.pkg.b", outside.Canonicalize("src.pkg.b"))
}

func TestResolveRelative(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		current   string
		isPackage bool
		level     int
		module    string
		names     []string
		want      []string
	}{
		{"sibling from module", "pkg.a", false, 1, "", []string{"b"}, []string{"pkg.b"}},
		{"sibling with suffix", "pkg.a", false, 1, "util.io", []string{"read"}, []string{"pkg.util.io"}},
		{"from package index", "pkg", true, 1, "", []string{"b", "c"}, []string{"pkg.b", "pkg.c"}},
		{"parent package", "pkg.sub.a", false, 2, "helpers", []string{"x"}, []string{"pkg.helpers"}},
		{"to repo top", "pkg.a", false, 2, "", []string{"top"}, []string{"top"}},
		{"too deep", "pkg.a", false, 3, "", []string{"x"}, nil},
		{"level zero behaves as one", "pkg.a", false, 0, "m", nil, []string{"pkg.m"}},
		{"root package index", "__init__", true, 1, "", []string{"a"}, []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ResolveRelative(tt.current, tt.isPackage, tt.level, tt.module, tt.names)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLayoutGroups(t *testing.T) {
	t.Parallel()
	l := DefaultLayout()

	assert.Equal(t, GroupSource, l.GroupOf("src/pkg/a.py"))
	assert.Equal(t, GroupTests, l.GroupOf("tests/test_a.py"))
	assert.Equal(t, GroupTests, l.GroupOf("test/test_a.py"))
	assert.Equal(t, GroupDocs, l.GroupOf("docs/conf.py"))
	assert.Equal(t, GroupProject, l.GroupOf("app.py"))
	assert.Equal(t, GroupProject, l.GroupOf("srcs/app.py"))
	assert.True(t, l.UnderScripts("scripts/run.py"))
	assert.False(t, l.UnderScripts("myscripts/run.py"))
}
