// Package analyzer runs the full pipeline: discover files, extract per-file
// models in parallel, then build the index, graphs and entry point.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/phobologic/sherpa/internal/discover"
	"github.com/phobologic/sherpa/internal/entry"
	"github.com/phobologic/sherpa/internal/extract"
	"github.com/phobologic/sherpa/internal/graph"
	"github.com/phobologic/sherpa/internal/index"
	"github.com/phobologic/sherpa/internal/model"
	"github.com/phobologic/sherpa/internal/modname"
	"github.com/phobologic/sherpa/internal/parse"
)

// DefaultMaxFileSize is the size above which files are not parsed.
const DefaultMaxFileSize = 1 << 20

// ErrInvalidRoot is returned when the repository root is missing or is not a
// directory. No file is read in that case.
var ErrInvalidRoot = errors.New("invalid repository root")

// Options tunes a run. The zero value uses the default layout, no extra
// excludes, DefaultMaxFileSize and one worker per CPU.
type Options struct {
	Layout      modname.Layout
	Exclude     []string
	MaxFileSize int64
	Workers     int
	Logger      *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Layout.SourceRoot == "" && o.Layout.TestRoots == nil && o.Layout.DocsRoots == nil && o.Layout.ScriptDirs == nil {
		o.Layout = modname.DefaultLayout()
	}
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = DefaultMaxFileSize
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Analyze builds the UnifiedModel for the repository at root.
func Analyze(ctx context.Context, root string, opts Options) (*model.UnifiedModel, error) {
	opts = opts.withDefaults()

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, root)
	}

	paths, err := discover.Files(root, discover.NewFilter(opts.Exclude))
	if err != nil {
		return nil, fmt.Errorf("discovering files: %w", err)
	}
	opts.Logger.Debug("discovered files", slog.String("root", root), slog.Int("count", len(paths)))

	files, err := ExtractFiles(ctx, os.DirFS(root), paths, opts)
	if err != nil {
		return nil, err
	}
	return Assemble(files, opts.Layout), nil
}

// ExtractFiles reads, parses and extracts every path from fsys. Results are in
// the order of paths. A file that cannot be read or parsed yields a FileModel
// carrying the failure; only context cancellation returns an error.
func ExtractFiles(ctx context.Context, fsys fs.FS, paths []string, opts Options) ([]model.FileModel, error) {
	opts = opts.withDefaults()

	files := make([]model.FileModel, len(paths))
	if len(paths) == 0 {
		return files, nil
	}

	numWorkers := min(opts.Workers, len(paths))
	work := make(chan int, len(paths))
	for i := range paths {
		work <- i
	}
	close(work)

	g, ctx := errgroup.WithContext(ctx)
	for range numWorkers {
		g.Go(func() error {
			// Each goroutine gets its own parser
			p := parse.NewParser()
			defer p.Close()

			for i := range work {
				if err := ctx.Err(); err != nil {
					return err
				}
				path := paths[i]
				outcome := readAndParse(ctx, p, fsys, path, opts.MaxFileSize)
				if msg := outcome.Failure(); msg != "" {
					opts.Logger.Warn("file not analyzed", slog.String("path", path), slog.String("error", msg))
				}
				files[i] = extract.File(extract.NewSource(path, opts.Layout, outcome))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extracting files: %w", err)
	}
	return files, nil
}

func readAndParse(ctx context.Context, p *parse.Parser, fsys fs.FS, path string, maxSize int64) parse.Outcome {
	info, err := fs.Stat(fsys, path)
	if err != nil {
		return parse.ParseFailed(fmt.Sprintf("reading: %v", err))
	}
	if info.Size() > maxSize {
		return parse.ParseFailed(fmt.Sprintf("skipped: exceeds %d bytes", maxSize))
	}
	source, err := fs.ReadFile(fsys, path)
	if err != nil {
		return parse.ParseFailed(fmt.Sprintf("reading: %v", err))
	}
	return p.Parse(ctx, source)
}

// Assemble merges per-file models, the dependency graph, the entry point and
// the call edges. files must be the complete file set.
func Assemble(files []model.FileModel, layout modname.Layout) *model.UnifiedModel {
	paths := make([]string, len(files))
	for i := range files {
		paths[i] = files[i].Path
	}

	idx := index.Build(paths, layout)
	deps := graph.BuildDependencies(files, idx)

	m := &model.UnifiedModel{
		Files: make(map[string]model.FileView, len(files)),
		Metadata: model.Metadata{
			ParseErrors:       []model.ParseError{},
			ResolvedCallEdges: graph.BuildCallEdges(files),
		},
		Order: paths,
	}
	if p, ok := entry.Select(files, layout); ok {
		m.EntryPoint = &p
	}

	for i := range files {
		fm := &files[i]
		view := model.FileView{
			Entry:     fm.Entry,
			Imports:   nonNil(fm.Imports),
			Functions: make(map[string]model.FunctionView, len(fm.Functions)),
			DependsOn: nonNil(deps[fm.Path]),
			Module:    fm.Module,
		}
		for _, fn := range fm.Functions {
			view.Functions[fn.Name] = model.FunctionView{
				Calls:         nonNil(fn.Calls),
				ResolvedCalls: nonNil(fn.ResolvedCalls),
			}
		}
		m.Files[fm.Path] = view

		if fm.ParseError != "" {
			m.Metadata.ParseErrors = append(m.Metadata.ParseErrors, model.ParseError{File: fm.Path, Error: fm.ParseError})
		}
	}
	return m
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
