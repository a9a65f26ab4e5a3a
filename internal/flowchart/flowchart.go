// Package flowchart renders the file dependency graph as a Mermaid flowchart
// grouped by top-level directory.
package flowchart

import (
	"fmt"
	"sort"
	"strings"

	"github.com/phobologic/sherpa/internal/model"
	"github.com/phobologic/sherpa/internal/modname"
)

var sections = []struct {
	group modname.Group
	title string
}{
	{modname.GroupSource, "Source"},
	{modname.GroupProject, "Project"},
	{modname.GroupTests, "Tests"},
	{modname.GroupDocs, "Docs"},
}

var idReplacer = strings.NewReplacer("/", "_", ".", "_", "-", "_", " ", "_")

// NodeID turns a file path into a Mermaid-safe identifier.
func NodeID(p string) string {
	return idReplacer.Replace(p)
}

// Mermaid renders every file of m as a node inside its group's subgraph and
// every dependency as an edge. Empty groups are omitted.
func Mermaid(m *model.UnifiedModel, layout modname.Layout) string {
	paths := m.Paths()
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	byGroup := make(map[modname.Group][]string)
	for _, p := range sorted {
		g := layout.GroupOf(p)
		byGroup[g] = append(byGroup[g], p)
	}

	var b strings.Builder
	b.WriteString("graph TD\n")
	for _, s := range sections {
		nodes := byGroup[s.group]
		if len(nodes) == 0 {
			continue
		}
		fmt.Fprintf(&b, "  subgraph %s\n", s.title)
		for _, p := range nodes {
			fmt.Fprintf(&b, "    %s[\"%s\"]\n", NodeID(p), strings.ReplaceAll(p, `"`, "'"))
		}
		b.WriteString("  end\n")
	}

	for _, p := range sorted {
		for _, dep := range m.Files[p].DependsOn {
			fmt.Fprintf(&b, "  %s --> %s\n", NodeID(p), NodeID(dep))
		}
	}
	return b.String()
}

// Markdown wraps the chart in a fenced mermaid block under a heading.
func Markdown(title, chart string) string {
	return fmt.Sprintf("# %s\n\n```mermaid\n%s```\n", title, chart)
}
