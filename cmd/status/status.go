package status

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/safedriveafrica/drivesync/internal/app"
	"github.com/safedriveafrica/drivesync/internal/conf"
	"github.com/safedriveafrica/drivesync/internal/datastore"
)

// Status is the backlog of the local store.
type Status struct {
	Unsynced  datastore.KindCounts `json:"unsynced" yaml:"unsynced"`
	Cleanable datastore.KindCounts `json:"cleanable" yaml:"cleanable"`
}

// Command creates the status command.
func Command(settings *conf.Settings) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show unsynced and cleanable record counts",
		Long: `Show, per record kind, how many records wait for upload and how many
are eligible for cleanup. Synced locations count as cleanable here even when
an unsynced record still references them; cleanup keeps those.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := read(cmd.Context(), settings)
			if err != nil {
				return err
			}
			return app.Render(cmd.OutOrStdout(), output, st, func(w io.Writer) error { return WriteStatus(w, st) })
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", app.FormatText, "Output format: text, json or yaml")

	return cmd
}

func read(ctx context.Context, settings *conf.Settings) (*Status, error) {
	store, err := datastore.Open(ctx, &settings.Datastore)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	unsynced, cleanable, err := store.Status(ctx)
	if err != nil {
		return nil, err
	}
	return &Status{Unsynced: unsynced, Cleanable: cleanable}, nil
}

// WriteStatus renders the backlog as a table in upload order.
func WriteStatus(w io.Writer, st *Status) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tUNSYNCED\tCLEANABLE")
	for _, kind := range datastore.Kinds {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", kind, st.Unsynced[kind], st.Cleanable[kind])
	}
	fmt.Fprintf(tw, "total\t%d\t%d\n", st.Unsynced.Total(), st.Cleanable.Total())
	return tw.Flush()
}
