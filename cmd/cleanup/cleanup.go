package cleanup

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/safedriveafrica/drivesync/internal/app"
	"github.com/safedriveafrica/drivesync/internal/cleanup"
	"github.com/safedriveafrica/drivesync/internal/conf"
	"github.com/safedriveafrica/drivesync/internal/datastore"
)

// Result is the output of the cleanup command.
type Result struct {
	DryRun            bool                 `json:"dry_run" yaml:"dry_run"`
	Deleted           datastore.KindCounts `json:"deleted" yaml:"deleted"`
	RetainedLocations int                  `json:"retained_locations" yaml:"retained_locations"`
	Duration          time.Duration        `json:"duration" yaml:"duration"`
}

// Command creates the cleanup command.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		dryRun bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete synced records that are no longer needed locally",
		Long: `Delete every record that is both synced and processed, and every synced
location no unsynced unsafe behaviour or raw sensor sample references.
Uploads are not attempted; use sync for a full run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := run(cmd.Context(), settings, dryRun)
			if err != nil {
				return err
			}
			return app.Render(cmd.OutOrStdout(), output, res, func(w io.Writer) error { return WriteResult(w, res) })
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be deleted without deleting")
	cmd.Flags().StringVarP(&output, "output", "o", app.FormatText, "Output format: text, json or yaml")

	return cmd
}

func run(ctx context.Context, settings *conf.Settings, dryRun bool) (*Result, error) {
	store, err := datastore.Open(ctx, &settings.Datastore)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	planner := cleanup.NewPlanner(store)

	if dryRun {
		start := time.Now()
		plan, err := planner.Plan(ctx)
		if err != nil {
			return nil, err
		}
		counts := datastore.KindCounts{}
		for kind, ids := range plan.IDs {
			counts[kind] = int64(len(ids))
		}
		return &Result{
			DryRun:            true,
			Deleted:           counts,
			RetainedLocations: plan.RetainedLocations,
			Duration:          time.Since(start),
		}, nil
	}

	report, err := planner.Run(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{
		Deleted:           report.Deleted,
		RetainedLocations: report.RetainedLocations,
		Duration:          report.Duration,
	}, nil
}

// WriteResult renders deleted counts per kind in deletion order.
func WriteResult(w io.Writer, res *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := "DELETED"
	if res.DryRun {
		header = "TO DELETE"
	}
	fmt.Fprintf(tw, "KIND\t%s\n", header)
	for _, kind := range datastore.Kinds {
		fmt.Fprintf(tw, "%s\t%d\n", kind, res.Deleted[kind])
	}
	fmt.Fprintf(tw, "total\t%d\n", res.Deleted.Total())
	fmt.Fprintf(tw, "\nRetained locations:\t%d\n", res.RetainedLocations)
	return tw.Flush()
}
