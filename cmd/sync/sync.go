package sync

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/safedriveafrica/drivesync/internal/app"
	"github.com/safedriveafrica/drivesync/internal/conf"
	syncjob "github.com/safedriveafrica/drivesync/internal/sync"
)

// closeTimeout bounds the delivery of queued notifications on exit.
const closeTimeout = 5 * time.Second

// Command creates the sync command, which performs one sync run.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		offline bool
		output  string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Upload unsynced records and clean up local storage",
		Long: `Run one sync job: upload every unsynced record kind in order, mark
uploaded records as synced, then delete records no longer needed locally.

Exits with status 75 when the run must be retried later, e.g. without a
usable network or after a rejected batch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), settings, offline, output)
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Treat the network as unavailable")
	cmd.Flags().StringVarP(&output, "output", "o", app.FormatText, "Output format: text, json or yaml")

	return cmd
}

func run(ctx context.Context, w io.Writer, settings *conf.Settings, offline bool, output string) error {
	a, err := app.New(ctx, settings, app.Options{Offline: offline})
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		a.Close(closeCtx)
	}()

	report := a.Orchestrator.Run(ctx)
	if err := app.Render(w, output, report, func(w io.Writer) error { return WriteReport(w, report) }); err != nil {
		return err
	}

	if report.Result == syncjob.ResultRetryLater {
		return &app.ExitError{Code: app.ExitTempFail}
	}
	return nil
}

// WriteReport renders a run report as a table.
func WriteReport(w io.Writer, report *syncjob.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Result:\t%s\n", report.Result)
	if report.Reason != syncjob.ReasonNone {
		fmt.Fprintf(tw, "Reason:\t%s\n", report.Reason)
	}
	if report.Err != nil {
		fmt.Fprintf(tw, "Error:\t%v\n", report.Err)
	}
	fmt.Fprintf(tw, "Duration:\t%s\n", report.Duration.Round(time.Millisecond))

	if len(report.Stages) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "KIND\tFOUND\tSKIPPED\tCHUNKS\tUPLOADED")
		for _, s := range report.Stages {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d/%d\t%d\n", s.Kind, s.Found, s.Skipped, s.ChunksCommitted, s.Chunks, s.Uploaded)
		}
	}

	if report.Cleanup != nil {
		fmt.Fprintln(tw)
		fmt.Fprintf(tw, "Cleanup:\t%d deleted, %d locations retained\n", report.Cleanup.Deleted.Total(), report.Cleanup.RetainedLocations)
	}
	if report.CleanupErr != nil {
		fmt.Fprintf(tw, "Cleanup error:\t%v\n", report.CleanupErr)
	}
	return tw.Flush()
}
