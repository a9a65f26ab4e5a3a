package flowchart

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phobologic/sherpa/internal/model"
	"github.com/phobologic/sherpa/internal/modname"
)

func TestMermaid(t *testing.T) {
	t.Parallel()

	m := &model.UnifiedModel{Files: map[string]model.FileView{
		"app.py":             {DependsOn: []string{"src/pkg/core.py"}},
		"src/pkg/core.py":    {DependsOn: []string{}},
		"tests/test-core.py": {DependsOn: []string{"src/pkg/core.py"}},
		"docs/conf.py":       {},
	}}

	got := Mermaid(m, modname.DefaultLayout())
	want := strings.Join([]string{
		"graph TD",
		"  subgraph Source",
		`    src_pkg_core_py["src/pkg/core.py"]`,
		"  end",
		"  subgraph Project",
		`    app_py["app.py"]`,
		"  end",
		"  subgraph Tests",
		`    tests_test_core_py["tests/test-core.py"]`,
		"  end",
		"  subgraph Docs",
		`    docs_conf_py["docs/conf.py"]`,
		"  end",
		"  app_py --> src_pkg_core_py",
		"  tests_test_core_py --> src_pkg_core_py",
		"",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestMermaidEmpty(t *testing.T) {
	t.Parallel()

	got := Mermaid(&model.UnifiedModel{Files: map[string]model.FileView{}}, modname.DefaultLayout())
	assert.Equal(t, "graph TD\n", got)
}

func TestNodeID(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"a.py", "a_py"},
		{"pkg/sub-mod/x.py", "pkg_sub_mod_x_py"},
		{"my dir/x.py", "my_dir_x_py"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NodeID(tt.in), tt.in)
	}
}

func TestMarkdown(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "# Flow\n\n```mermaid\ngraph TD\n```\n", Markdown("Flow", "graph TD\n"))
}
