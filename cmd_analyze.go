package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/phobologic/sherpa/internal/config"
	"github.com/phobologic/sherpa/internal/enrich"
	"github.com/phobologic/sherpa/internal/flowchart"
	"github.com/phobologic/sherpa/internal/store"
	"github.com/phobologic/sherpa/internal/tour"
)

const (
	analysisFile    = "analysis.json"
	learningFile    = "learning_order.json"
	flowchartFile   = "flowchart.md"
	annotationsFile = "annotations.json"
)

type analyzeOptions struct {
	outputDir string
	enrich    bool
	dbPath    string
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var o analyzeOptions
	cmd := &cobra.Command{
		Use:   "analyze [dir]",
		Short: "Run the full pipeline and write its artifacts to a directory",
		Long: "analyze writes " + analysisFile + ", " + learningFile + " and " + flowchartFile +
			" to the output directory, plus " + annotationsFile + " with --enrich.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.analyze(cmd.Context(), args)
			if err != nil {
				return err
			}
			return a.writeArtifacts(cmd.Context(), r, o)
		},
	}
	cmd.Flags().StringVarP(&o.outputDir, "output-dir", "o", "sherpa-out", "directory for generated files")
	cmd.Flags().BoolVar(&o.enrich, "enrich", false, "write explanations to "+annotationsFile)
	cmd.Flags().StringVar(&o.dbPath, "db", "", "also save the run to this SQLite database")
	return cmd
}

func (a *app) writeArtifacts(ctx context.Context, r *repo, o analyzeOptions) error {
	if err := os.MkdirAll(o.outputDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", o.outputDir, err)
	}
	layout := r.cfg.ModuleLayout()

	if err := writeJSONFile(filepath.Join(o.outputDir, analysisFile), r.model); err != nil {
		return err
	}

	toured := r.model
	if o.enrich || r.cfg.Enrich.Enabled {
		annotated, err := enrich.NewAnnotator(a.explainer(r.cfg.Enrich), a.logger).Annotate(ctx, r.model)
		if err != nil {
			return err
		}
		if err := writeJSONFile(filepath.Join(o.outputDir, annotationsFile), annotated); err != nil {
			return err
		}
		toured = annotated
	}

	if err := writeJSONFile(filepath.Join(o.outputDir, learningFile), tour.Build(toured, layout)); err != nil {
		return err
	}

	chart := flowchart.Markdown("Dependency Flowchart", flowchart.Mermaid(r.model, layout))
	if err := os.WriteFile(filepath.Join(o.outputDir, flowchartFile), []byte(chart), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", flowchartFile, err)
	}

	if o.dbPath != "" {
		runID, err := saveRun(ctx, o.dbPath, r)
		if err != nil {
			return err
		}
		a.logger.Info("saved run", "db", o.dbPath, "run", runID)
	}

	a.logger.Info("analysis complete", "root", r.root, "files", len(r.model.Files), "output", o.outputDir)
	return nil
}

// explainer returns the LLM explainer when enrichment is configured and its
// API key is set, and templates otherwise.
func (a *app) explainer(cfg config.Enrich) enrich.Explainer {
	if !cfg.Enabled {
		return enrich.TemplateExplainer{}
	}
	token := os.Getenv(cfg.APIKeyEnv)
	if token == "" {
		a.logger.Warn("enrichment key not set, using templates", "env", cfg.APIKeyEnv)
		return enrich.TemplateExplainer{}
	}
	e, err := enrich.NewOpenAIExplainer(enrich.OpenAIOptions{
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		Token:   token,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		a.logger.Warn("creating explainer, using templates", "error", err)
		return enrich.TemplateExplainer{}
	}
	return e
}

func saveRun(ctx context.Context, dbPath string, r *repo) (string, error) {
	s, err := openStore(dbPath)
	if err != nil {
		return "", err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	return s.SaveModel(ctx, r.root, r.model)
}

func openStore(dbPath string) (*store.Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
