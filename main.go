// sherpa maps the structure of a Python repository: modules, imports,
// dependencies, the entry point and the resolved call graph.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/phobologic/sherpa/internal/analyzer"
	"github.com/phobologic/sherpa/internal/config"
	"github.com/phobologic/sherpa/internal/model"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

// app carries what every subcommand shares.
type app struct {
	stdout  io.Writer
	stderr  io.Writer
	verbose bool
	logger  *slog.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "sherpa",
		Short:         "Map the structure of a Python repository",
		Long:          "sherpa parses a Python repository and reports its modules, file dependencies, entry point and resolved call graph.",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if a.verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate("sherpa {{.Version}}\n")
	root.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "log debug output to stderr")

	root.AddCommand(
		newMapCmd(a),
		newAnalyzeCmd(a),
		newPathCmd(a),
		newTourCmd(a),
		newFlowchartCmd(a),
		newSummaryCmd(a),
		newWatchCmd(a),
		newInitCmd(a),
	)
	return root
}

// repo is an analyzed repository together with its settings.
type repo struct {
	root  string
	cfg   *config.Config
	model *model.UnifiedModel
}

// resolveRoot returns the absolute repository directory named by args, or
// the working directory.
func resolveRoot(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving root: %w", err)
	}
	return abs, nil
}

func (a *app) loadConfig(root string) (*config.Config, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("loaded config", "root", root, "workers", cfg.Workers, "max_hops", cfg.MaxHops)
	return cfg, nil
}

func (a *app) analyzerOptions(cfg *config.Config) analyzer.Options {
	return analyzer.Options{
		Layout:      cfg.ModuleLayout(),
		Exclude:     cfg.Exclude,
		MaxFileSize: cfg.MaxFileSize,
		Workers:     cfg.Workers,
		Logger:      a.logger,
	}
}

func (a *app) analyze(ctx context.Context, args []string) (*repo, error) {
	root, err := resolveRoot(args)
	if err != nil {
		return nil, err
	}
	cfg, err := a.loadConfig(root)
	if err != nil {
		return nil, err
	}
	m, err := analyzer.Analyze(ctx, root, a.analyzerOptions(cfg))
	if err != nil {
		return nil, err
	}
	a.logger.Debug("analyzed repository", "root", root, "files", len(m.Files),
		"edges", len(m.Metadata.ResolvedCallEdges), "parse_errors", len(m.Metadata.ParseErrors))
	return &repo{root: root, cfg: cfg, model: m}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}

func writeJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := writeJSON(f, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func marshalIndent(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding json: %w", err)
	}
	return append(data, '\n'), nil
}
