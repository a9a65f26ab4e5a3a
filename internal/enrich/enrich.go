// Package enrich attaches natural-language explanations to an analyzed model.
// Explanations are advisory: enrichment never changes files, imports,
// dependencies or call edges.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phobologic/sherpa/internal/model"
)

const (
	FileEntryText       = "This file acts as the entry point of the system. Execution of the application begins here."
	FileCalledText      = "This file participates in the system's execution flow and is invoked by other components."
	FileSupportText     = "This file provides supporting or utility functionality used across the project."
	FunctionEntryText   = "This function initiates execution and drives the main flow of the system."
	FunctionGenericText = "This function contributes to the system's behavior as part of its execution."
)

// FileFacts is the verified data an explainer may use for one file.
type FileFacts struct {
	Path      string
	IsEntry   bool
	DependsOn []string
	Functions []string
}

// FunctionFacts is the verified data an explainer may use for one function.
type FunctionFacts struct {
	Name    string
	File    string
	InEntry bool
	Calls   []string
}

// Explainer produces explanations from static facts.
type Explainer interface {
	ExplainFile(ctx context.Context, f FileFacts) (string, error)
	ExplainFunction(ctx context.Context, f FunctionFacts) (string, error)
}

// TemplateExplainer returns fixed role descriptions. It never fails.
type TemplateExplainer struct{}

// ExplainFile describes the file's role: entry point, a file with local
// dependencies, or a support file.
func (TemplateExplainer) ExplainFile(_ context.Context, f FileFacts) (string, error) {
	switch {
	case f.IsEntry:
		return FileEntryText, nil
	case len(f.DependsOn) > 0:
		return FileCalledText, nil
	default:
		return FileSupportText, nil
	}
}

// ExplainFunction distinguishes functions of the entry file from the rest.
func (TemplateExplainer) ExplainFunction(_ context.Context, f FunctionFacts) (string, error) {
	if f.InEntry {
		return FunctionEntryText, nil
	}
	return FunctionGenericText, nil
}

// Annotator fills explanation fields using an explainer, falling back to the
// templates when it fails.
type Annotator struct {
	explainer Explainer
	fallback  TemplateExplainer
	logger    *slog.Logger
}

// NewAnnotator returns an Annotator. A nil explainer means templates only.
func NewAnnotator(e Explainer, logger *slog.Logger) *Annotator {
	if e == nil {
		e = TemplateExplainer{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Annotator{explainer: e, logger: logger}
}

// Annotate returns a deep copy of m in which every file and function carries
// an explanation. Existing explanations are kept. A cancelled context stops
// the walk and returns its error.
func (a *Annotator) Annotate(ctx context.Context, m *model.UnifiedModel) (*model.UnifiedModel, error) {
	out := Clone(m)
	entry := out.Entry()

	for _, p := range out.Paths() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("annotating %s: %w", p, err)
		}
		fv := out.Files[p]
		names := sortedNames(fv.Functions)

		if fv.Explanation == "" {
			facts := FileFacts{Path: p, IsEntry: p == entry, DependsOn: fv.DependsOn, Functions: names}
			fv.Explanation = a.file(ctx, facts)
		}
		for _, name := range names {
			fn := fv.Functions[name]
			if fn.Explanation != "" {
				continue
			}
			facts := FunctionFacts{Name: name, File: p, InEntry: p == entry, Calls: fn.Calls}
			fn.Explanation = a.function(ctx, facts)
			fv.Functions[name] = fn
		}
		out.Files[p] = fv
	}
	return out, nil
}

func (a *Annotator) file(ctx context.Context, f FileFacts) string {
	text, err := a.explainer.ExplainFile(ctx, f)
	if err == nil && strings.TrimSpace(text) != "" {
		return strings.TrimSpace(text)
	}
	if err != nil {
		a.logger.Warn("explaining file", "path", f.Path, "error", err)
	}
	text, _ = a.fallback.ExplainFile(ctx, f)
	return text
}

func (a *Annotator) function(ctx context.Context, f FunctionFacts) string {
	text, err := a.explainer.ExplainFunction(ctx, f)
	if err == nil && strings.TrimSpace(text) != "" {
		return strings.TrimSpace(text)
	}
	if err != nil {
		a.logger.Warn("explaining function", "file", f.File, "name", f.Name, "error", err)
	}
	text, _ = a.fallback.ExplainFunction(ctx, f)
	return text
}

// Clone deep-copies a model.
func Clone(m *model.UnifiedModel) *model.UnifiedModel {
	out := &model.UnifiedModel{
		Files: make(map[string]model.FileView, len(m.Files)),
		Metadata: model.Metadata{
			ParseErrors:       append([]model.ParseError{}, m.Metadata.ParseErrors...),
			ResolvedCallEdges: append([]model.CallEdge{}, m.Metadata.ResolvedCallEdges...),
		},
		Order: append([]string(nil), m.Order...),
	}
	if m.EntryPoint != nil {
		entry := *m.EntryPoint
		out.EntryPoint = &entry
	}
	for p, fv := range m.Files {
		fns := make(map[string]model.FunctionView, len(fv.Functions))
		for name, fn := range fv.Functions {
			fns[name] = model.FunctionView{
				Calls:         append([]string{}, fn.Calls...),
				ResolvedCalls: append([]string{}, fn.ResolvedCalls...),
				Explanation:   fn.Explanation,
			}
		}
		out.Files[p] = model.FileView{
			Entry:       fv.Entry,
			Imports:     append([]string{}, fv.Imports...),
			Functions:   fns,
			DependsOn:   append([]string{}, fv.DependsOn...),
			Explanation: fv.Explanation,
			Module:      fv.Module,
		}
	}
	return out
}
