package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/safedriveafrica/drivesync/cmd"
	"github.com/safedriveafrica/drivesync/internal/app"
	"github.com/safedriveafrica/drivesync/internal/buildinfo"
)

// Set at build time with -ldflags "-X main.version=..."
var (
	version   string
	commit    string
	buildDate string
)

func main() {
	os.Exit(run())
}

func run() int {
	// SIGINT/SIGTERM cancel the context; an active run stops between chunks
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := cmd.RootCommand(buildinfo.NewContext(version, commit, buildDate))
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var exitErr *app.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Err != nil {
				fmt.Fprintln(os.Stderr, "Error:", exitErr.Err)
			}
			return exitErr.Code
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
