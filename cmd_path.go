package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/sherpa/internal/graph"
	"github.com/phobologic/sherpa/internal/model"
)

var errNoPath = errors.New("no call path")

type pathOptions struct {
	maxHops int
	dbPath  string
}

func newPathCmd(a *app) *cobra.Command {
	var o pathOptions
	cmd := &cobra.Command{
		Use:   "path <from> <to> [dir]",
		Short: "Find the shortest resolved call chain between two qualified symbols",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPath(cmd.Context(), args[0], args[1], args[2:], o)
		},
	}
	cmd.Flags().IntVar(&o.maxHops, "max-hops", 0, "maximum number of calls in the chain (default from config)")
	cmd.Flags().StringVar(&o.dbPath, "db", "", "query the latest run stored in this database instead of re-analyzing")
	return cmd
}

func (a *app) runPath(ctx context.Context, from, to string, args []string, o pathOptions) error {
	root, err := resolveRoot(args)
	if err != nil {
		return err
	}
	cfg, err := a.loadConfig(root)
	if err != nil {
		return err
	}
	maxHops := o.maxHops
	if maxHops <= 0 {
		maxHops = cfg.MaxHops
	}

	var edges []model.CallEdge
	if o.dbPath != "" {
		edges, err = storedEdges(ctx, o.dbPath, root)
	} else {
		var r *repo
		r, err = a.analyze(ctx, []string{root})
		if r != nil {
			edges = r.model.Metadata.ResolvedCallEdges
		}
	}
	if err != nil {
		return err
	}

	path, ok := graph.NewCallGraph(edges).ShortestPath(from, to, maxHops)
	if !ok {
		return fmt.Errorf("%w from %s to %s within %d hops", errNoPath, from, to, maxHops)
	}
	_, err = fmt.Fprintln(a.stdout, strings.Join(path, " -> "))
	return err
}

func storedEdges(ctx context.Context, dbPath, root string) ([]model.CallEdge, error) {
	s, err := openStore(dbPath)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	run, err := s.LatestRun(ctx, root)
	if err != nil {
		return nil, err
	}
	return s.LoadCallEdges(ctx, run.ID)
}
