package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/safedriveafrica/drivesync/cmd/cleanup"
	"github.com/safedriveafrica/drivesync/cmd/notify"
	"github.com/safedriveafrica/drivesync/cmd/serve"
	"github.com/safedriveafrica/drivesync/cmd/status"
	synccmd "github.com/safedriveafrica/drivesync/cmd/sync"
	"github.com/safedriveafrica/drivesync/internal/buildinfo"
	"github.com/safedriveafrica/drivesync/internal/conf"
	"github.com/safedriveafrica/drivesync/internal/logger"
	"github.com/safedriveafrica/drivesync/internal/telemetry"
)

// flushTimeout bounds how long pending telemetry may delay exit.
const flushTimeout = 2 * time.Second

// RootCommand creates and returns the root command
func RootCommand(build *buildinfo.Context) *cobra.Command {
	settings := &conf.Settings{}
	var configFile string
	var central *logger.CentralLogger

	rootCmd := &cobra.Command{
		Use:           "drivesync",
		Short:         "Upload buffered driving telemetry when a network is available",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		panic(fmt.Sprintf("error binding debug flag: %v", err))
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), build.String())
		},
	}

	rootCmd.AddCommand(
		synccmd.Command(settings),
		status.Command(settings),
		cleanup.Command(settings),
		serve.Command(settings),
		notify.Command(settings),
		versionCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Skip setup for the version command
		if cmd.Name() == versionCmd.Name() {
			return nil
		}

		loaded, err := conf.LoadFrom(configFile)
		if err != nil {
			return err
		}
		*settings = *loaded

		if central, err = initLogging(settings); err != nil {
			return err
		}
		if err := telemetry.InitSentry(&settings.Sentry, build.Version()); err != nil {
			// Telemetry is optional; a bad DSN must not block uploads
			logger.Global().Module("main").Warn("error telemetry disabled", logger.Error(err))
		}
		return nil
	}

	// Runs after Execute, also when a command failed
	cobra.OnFinalize(func() {
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		telemetry.Flush(ctx)
		if central != nil {
			_ = central.Close()
		}
	})

	return rootCmd
}

// initLogging installs the central logger configured in settings.
func initLogging(settings *conf.Settings) (*logger.CentralLogger, error) {
	if settings.Debug {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return nil, fmt.Errorf("error initializing logger: %w", err)
	}
	logger.SetGlobal(central)
	return central, nil
}
