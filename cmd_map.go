package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/phobologic/sherpa/internal/discover"
	"github.com/phobologic/sherpa/internal/graph"
	"github.com/phobologic/sherpa/internal/model"
	"github.com/phobologic/sherpa/internal/ranking"
	"github.com/phobologic/sherpa/internal/toon"
)

type mapOptions struct {
	format    string
	maxFiles  int
	file      string
	symbol    string
	cachePath string
}

func newMapCmd(a *app) *cobra.Command {
	var o mapOptions
	cmd := &cobra.Command{
		Use:   "map [dir]",
		Short: "Print the unified model as JSON or TOON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runMap(cmd, args, o)
		},
	}
	cmd.Flags().StringVarP(&o.format, "format", "f", "json", "output format: json|toon")
	cmd.Flags().IntVarP(&o.maxFiles, "max-files", "n", 0, "keep only the N most central files")
	cmd.Flags().StringVar(&o.file, "file", "", "keep files whose path contains this substring")
	cmd.Flags().StringVar(&o.symbol, "symbol", "", "keep functions whose qualified name contains this substring, with their callers and callees")
	cmd.Flags().StringVar(&o.cachePath, "cache", "", "cache file path (unfiltered, untruncated output only)")
	return cmd
}

func (a *app) runMap(cmd *cobra.Command, args []string, o mapOptions) error {
	if o.format != "json" && o.format != "toon" {
		return fmt.Errorf("unsupported format %q", o.format)
	}
	root, err := resolveRoot(args)
	if err != nil {
		return err
	}

	// Filtered or truncated maps are never cached.
	useCache := o.cachePath != "" && o.file == "" && o.symbol == "" && o.maxFiles == 0
	header := cacheHeader(o.format)
	if useCache {
		cfg, err := a.loadConfig(root)
		if err != nil {
			return err
		}
		files, err := discover.Files(root, discover.NewFilter(cfg.Exclude))
		if err == nil && cacheIsFresh(o.cachePath, root, files) {
			data, err := os.ReadFile(o.cachePath)
			if err == nil && bytes.HasPrefix(data, header) {
				a.logger.Debug("serving cached map", "path", o.cachePath)
				_, err = a.stdout.Write(data[len(header):])
				return err
			}
		}
	}

	r, err := a.analyze(cmd.Context(), []string{root})
	if err != nil {
		return err
	}
	m := r.model
	if o.maxFiles > 0 {
		m = ranking.SelectFiles(m, graph.Rank(dependencies(m)), o.maxFiles)
	}
	if o.file != "" {
		m = ranking.FilterByFile(m, o.file)
	}
	if o.symbol != "" {
		m = ranking.FilterBySymbol(m, o.symbol)
		if len(m.Files) == 0 {
			return fmt.Errorf("no function matches %q", o.symbol)
		}
	}

	var output []byte
	switch o.format {
	case "toon":
		output = []byte(toon.Encode(filepath.Base(root), m) + "\n")
	default:
		output, err = marshalIndent(m)
		if err != nil {
			return err
		}
	}

	if useCache {
		data := append(header, output...)
		if err := os.WriteFile(o.cachePath, data, 0o644); err != nil {
			a.logger.Warn("writing cache", "path", o.cachePath, "error", err)
		}
	}
	_, err = a.stdout.Write(output)
	return err
}

// cacheHeader is the first line of a cache file. A cache written in another
// format is treated as stale.
func cacheHeader(format string) []byte {
	return []byte("# sherpa map " + format + "\n")
}

// cacheIsFresh reports whether the cache file is newer than every source
// file.
func cacheIsFresh(cachePath, root string, files []string) bool {
	cacheInfo, err := os.Stat(cachePath)
	if err != nil {
		return false
	}
	cacheMtime := cacheInfo.ModTime()

	for _, f := range files {
		fi, err := os.Stat(filepath.Join(root, filepath.FromSlash(f)))
		if err != nil {
			return false
		}
		if !fi.ModTime().Before(cacheMtime) {
			return false
		}
	}
	return true
}

func dependencies(m *model.UnifiedModel) model.DependencyGraph {
	deps := make(model.DependencyGraph, len(m.Files))
	for p, fv := range m.Files {
		deps[p] = fv.DependsOn
	}
	return deps
}
