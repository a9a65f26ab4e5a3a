package main

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/sherpa/internal/flowchart"
	"github.com/phobologic/sherpa/internal/graph"
	"github.com/phobologic/sherpa/internal/model"
	"github.com/phobologic/sherpa/internal/tour"
)

func newTourCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tour [dir]",
		Short: "Print the suggested learning order as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.analyze(cmd.Context(), args)
			if err != nil {
				return err
			}
			return writeJSON(a.stdout, tour.Build(r.model, r.cfg.ModuleLayout()))
		},
	}
}

func newFlowchartCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "flowchart [dir]",
		Short: "Print the file dependency graph as a Mermaid flowchart",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.analyze(cmd.Context(), args)
			if err != nil {
				return err
			}
			_, err = io.WriteString(a.stdout, flowchart.Mermaid(r.model, r.cfg.ModuleLayout()))
			return err
		},
	}
}

func newSummaryCmd(a *app) *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "summary [dir]",
		Short: "Print dependency statistics and the most central files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.analyze(cmd.Context(), args)
			if err != nil {
				return err
			}
			s := summarize(r.model, top)
			return s.write(a.stdout, filepath.Base(r.root))
		},
	}
	cmd.Flags().IntVarP(&top, "top", "n", 5, "number of central files to list")
	return cmd
}

// summary is the dependency overview printed by `sherpa summary`.
type summary struct {
	Files         int
	Functions     int
	DepEdges      int
	CallEdges     int
	ParseErrors   int
	EntryPoint    string
	Leaves        []string
	MostDependent string
	MostDepCount  int
	Central       []graph.Ranked
}

func summarize(m *model.UnifiedModel, top int) summary {
	s := summary{
		Files:       len(m.Files),
		CallEdges:   len(m.Metadata.ResolvedCallEdges),
		ParseErrors: len(m.Metadata.ParseErrors),
		EntryPoint:  m.Entry(),
		Leaves:      []string{},
	}

	paths := append([]string(nil), m.Paths()...)
	sort.Strings(paths)
	for _, p := range paths {
		fv := m.Files[p]
		s.Functions += len(fv.Functions)
		s.DepEdges += len(fv.DependsOn)
		if len(fv.DependsOn) == 0 {
			s.Leaves = append(s.Leaves, p)
		}
		if len(fv.DependsOn) > s.MostDepCount {
			s.MostDependent, s.MostDepCount = p, len(fv.DependsOn)
		}
	}
	s.Central = graph.Central(graph.Rank(dependencies(m)), top)
	return s
}

func (s summary) write(w io.Writer, repoName string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "repo: %s\n", repoName)
	fmt.Fprintf(&b, "files: %d\n", s.Files)
	fmt.Fprintf(&b, "functions: %d\n", s.Functions)
	fmt.Fprintf(&b, "dependency_edges: %d\n", s.DepEdges)
	fmt.Fprintf(&b, "call_edges: %d\n", s.CallEdges)
	fmt.Fprintf(&b, "parse_errors: %d\n", s.ParseErrors)
	fmt.Fprintf(&b, "entry_point: %s\n", orNone(s.EntryPoint))
	if s.MostDependent != "" {
		fmt.Fprintf(&b, "most_dependent: %s (%d)\n", s.MostDependent, s.MostDepCount)
	} else {
		b.WriteString("most_dependent: none\n")
	}
	fmt.Fprintf(&b, "leaf_files[%d]: %s\n", len(s.Leaves), strings.Join(s.Leaves, " "))
	fmt.Fprintf(&b, "central[%d]:\n", len(s.Central))
	for _, c := range s.Central {
		fmt.Fprintf(&b, "  %.4f %s\n", c.Rank, c.Path)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
