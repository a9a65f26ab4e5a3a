package toon

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phobologic/sherpa/internal/model"
)

func TestEncodeValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", `""`},
		{"simple", "hello", "hello"},
		{"leading space", " hello", `" hello"`},
		{"trailing space", "hello ", `"hello "`},
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"carriage return", "a\rb", `"a\rb"`},
		{"true keyword", "true", `"true"`},
		{"True keyword", "True", `"True"`},
		{"false keyword", "false", `"false"`},
		{"null keyword", "null", `"null"`},
		{"integer", "42", "42"},
		{"negative integer", "-1", "-1"},
		{"float", "3.14", "3.14"},
		{"zero", "0", "0"},
		{"leading zero invalid", "01", "01"},
		{"comma", "a,b", `"a,b"`},
		{"colon", "a:b", `"a:b"`},
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
		{"bracket", "a[b", `"a[b"`},
		{"brace", "a{b", `"a{b"`},
		{"dash prefix", "-foo", `"-foo"`},
		{"path", "src/main.py", "src/main.py"},
		{"dotted name", "Foo.__init__", "Foo.__init__"},
		{"signature no special", "run(self) -> None", "run(self) -> None"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, encodeValue(tt.in))
		})
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()

	entry := "src/main.py"
	m := &model.UnifiedModel{
		EntryPoint: &entry,
		Files: map[string]model.FileView{
			"src/main.py": {
				Entry:   true,
				Imports: []string{"os", "util"},
				Functions: map[string]model.FunctionView{
					"main":    {Calls: []string{"helper"}, ResolvedCalls: []string{"util.helper"}},
					"Cli.run": {Calls: []string{}, ResolvedCalls: []string{}},
				},
				DependsOn: []string{"src/util.py"},
			},
			"src/util.py": {
				Imports:   []string{},
				Functions: map[string]model.FunctionView{"helper": {Calls: []string{}, ResolvedCalls: []string{}}},
				DependsOn: []string{},
			},
		},
		Metadata: model.Metadata{
			ParseErrors:       []model.ParseError{},
			ResolvedCallEdges: []model.CallEdge{{From: "main.main", To: "util.helper"}},
		},
		Order: []string{"src/main.py", "src/util.py"},
	}

	got := Encode("myrepo", m)

	want := []string{
		"repo: myrepo",
		"entry_point: src/main.py",
		"files[2]{path,entry,imports,depends_on}:",
		"  src/main.py,true,os util,src/util.py",
		`  src/util.py,false,"",""`,
		"functions[3]{file,name,calls,resolved_calls}:",
		`  src/main.py,Cli.run,"",""`,
		"  src/main.py,main,helper,util.helper",
		`  src/util.py,helper,"",""`,
		"edges[1]{from,to}:",
		"  main.main,util.helper",
	}
	assert.Equal(t, want, strings.Split(got, "\n"))
}

func TestEncodeParseErrors(t *testing.T) {
	t.Parallel()

	m := &model.UnifiedModel{
		Files: map[string]model.FileView{"bad.py": {}},
		Metadata: model.Metadata{
			ParseErrors: []model.ParseError{{File: "bad.py", Error: "syntax error at line 1, column 5"}},
		},
	}

	got := Encode("r", m)
	assert.Contains(t, got, "entry_point: null")
	assert.Contains(t, got, "parse_errors[1]{file,error}:\n  bad.py,\"syntax error at line 1, column 5\"")
}

func TestEncodeEmpty(t *testing.T) {
	t.Parallel()

	got := Encode("empty", &model.UnifiedModel{Files: map[string]model.FileView{}})
	assert.Contains(t, got, "files[0]{path,entry,imports,depends_on}:")
	assert.Contains(t, got, "edges[0]{from,to}:")
	assert.NotContains(t, got, "parse_errors")
}
