package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/shadowbox/internal/shared/platform"
)

// FetchOptions holds options for the fetch command.
type FetchOptions struct {
	Jobs int
}

type fetchResult struct {
	release platform.Release
	path    string
	took    time.Duration
	err     error
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand() *cobra.Command {
	opts := &FetchOptions{}
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download framework artifacts for the enabled versions",
		Long: `Resolve the framework artifact of every enabled platform version so later
runs start from a warm cache. Artifacts already present are not downloaded
again until their cache entry expires.`,
		Example: `  # Warm the cache for every version
  shadowbox fetch

  # Only two versions, one download at a time
  shadowbox fetch --versions 21,23 --jobs 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFetch(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 4, "Concurrent downloads")
	return cmd
}

func runFetch(cmd *cobra.Command, opts *FetchOptions) error {
	rt, err := RuntimeFrom(cmd.Context())
	if err != nil {
		return err
	}
	versions, err := rt.Versions()
	if err != nil {
		return err
	}

	results := make([]fetchResult, len(versions))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(max(opts.Jobs, 1))
	for i, v := range versions {
		release, _ := rt.Catalog.Get(v)
		g.Go(func() error {
			start := time.Now()
			art, err := rt.Resolver.Resolve(ctx, release.Dependency())
			results[i] = fetchResult{release: release, path: art.Path, took: time.Since(start), err: err}
			if err != nil {
				rt.Logger.Warn("Fetch failed", zap.Stringer("version", v), zap.Error(err))
			}
			// one failure does not cancel the others
			return nil
		})
	}
	_ = g.Wait()

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Version", "Artifact", "Status", "Took"})
	failed := 0
	for _, r := range results {
		status := r.path
		if r.err != nil {
			failed++
			status = "error: " + r.err.Error()
		}
		t.AppendRow(table.Row{r.release.Version, r.release.Dependency().String(), status, r.took.Round(time.Millisecond)})
	}
	t.Render()

	if failed > 0 {
		return fmt.Errorf("%d of %d artifacts could not be fetched", failed, len(results))
	}
	return nil
}
