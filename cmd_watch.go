package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/phobologic/sherpa/internal/discover"
	"github.com/phobologic/sherpa/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	var o analyzeOptions
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Re-run analyze whenever Python sources change",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.runWatch(ctx, args, o)
		},
	}
	cmd.Flags().StringVarP(&o.outputDir, "output-dir", "o", "sherpa-out", "directory for generated files")
	cmd.Flags().BoolVar(&o.enrich, "enrich", false, "write explanations to "+annotationsFile)
	cmd.Flags().StringVar(&o.dbPath, "db", "", "also save each run to this SQLite database")
	return cmd
}

func (a *app) runWatch(ctx context.Context, args []string, o analyzeOptions) error {
	root, err := resolveRoot(args)
	if err != nil {
		return err
	}
	cfg, err := a.loadConfig(root)
	if err != nil {
		return err
	}

	regenerate := func(ctx context.Context) error {
		r, err := a.analyze(ctx, []string{root})
		if err != nil {
			return err
		}
		return a.writeArtifacts(ctx, r, o)
	}
	if err := regenerate(ctx); err != nil {
		return err
	}

	w, err := watch.New(root, regenerate, watch.Options{
		Filter: discover.NewFilter(cfg.Exclude),
		Logger: a.logger,
	})
	if err != nil {
		return err
	}
	a.logger.Info("watching for changes", "root", root)
	return w.Run(ctx)
}
