// Package sync runs one offline-to-online synchronisation: it uploads the
// unsynced records of every kind in a fixed order and reclaims local storage
// once everything has been uploaded.
package sync

import (
	"context"
	"time"

	"github.com/safedriveafrica/drivesync/internal/cleanup"
	"github.com/safedriveafrica/drivesync/internal/conf"
	"github.com/safedriveafrica/drivesync/internal/connectivity"
	"github.com/safedriveafrica/drivesync/internal/datastore"
	"github.com/safedriveafrica/drivesync/internal/errors"
	"github.com/safedriveafrica/drivesync/internal/logger"
	"github.com/safedriveafrica/drivesync/internal/notification"
	"github.com/safedriveafrica/drivesync/internal/syncapi"
)

// GetLogger returns the sync package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("sync")
}

// Recorder receives run outcomes, e.g. the Prometheus collector.
type Recorder interface {
	RecordRun(result, reason string, duration time.Duration)
	RecordStage(kind string, uploaded, skipped int, failed bool, duration time.Duration)
	RecordCleanup(deleted datastore.KindCounts, failed bool)
}

// Orchestrator runs sync jobs. A single Orchestrator must not run two jobs at
// the same time; callers serialise runs.
type Orchestrator struct {
	store           *datastore.Store
	api             syncapi.API
	guard           connectivity.Guard
	planner         *cleanup.Planner
	notifier        notification.Notifier
	recorder        Recorder
	batchSize       int
	driverProfileID string
	log             logger.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithNotifier sets the progress notifier. The default discards notifications.
func WithNotifier(n notification.Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithRecorder registers a recorder for run metrics.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithPlanner shares a cleanup planner, e.g. with the cleanup command. The
// default plans over the orchestrator's store.
func WithPlanner(p *cleanup.Planner) Option {
	return func(o *Orchestrator) { o.planner = p }
}

// New creates an Orchestrator.
func New(store *datastore.Store, api syncapi.API, guard connectivity.Guard, settings *conf.SyncSettings, opts ...Option) *Orchestrator {
	batchSize := settings.BatchSize
	if batchSize <= 0 {
		batchSize = conf.DefaultBatchSize
	}

	o := &Orchestrator{
		store:           store,
		api:             api,
		guard:           guard,
		notifier:        notification.Discard,
		batchSize:       batchSize,
		driverProfileID: settings.DriverProfileID,
		log:             GetLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.planner == nil {
		o.planner = cleanup.NewPlanner(store)
	}
	return o
}

// Planner returns the cleanup planner run after a successful upload.
func (o *Orchestrator) Planner() *cleanup.Planner {
	return o.planner
}

// Run performs one sync job and always returns a report whose Result is
// ResultSuccess or ResultRetryLater.
//
// Without connectivity nothing is read or uploaded. Stages run in order and
// the first failing stage ends the run; records committed before the failure
// stay synced. Cleanup runs only after every stage succeeded and its failure
// does not change the result. Cancellation is observed between chunks and
// between stages.
func (o *Orchestrator) Run(ctx context.Context) *Report {
	report := &Report{StartedAt: time.Now()}
	defer func() {
		report.Duration = time.Since(report.StartedAt)
		if o.recorder != nil {
			o.recorder.RecordRun(string(report.Result), string(report.Reason), report.Duration)
		}
	}()

	if !o.guard.Available(ctx) {
		o.log.Info("no usable network, sync deferred")
		return o.retryLater(report, "", errors.New(connectivity.ErrUnavailable).
			Component("sync").
			Category(errors.CategoryConnectivity).
			Build())
	}

	o.log.Info("sync started", logger.Int("batch_size", o.batchSize))

	for _, st := range o.stages() {
		if err := ctx.Err(); err != nil {
			return o.retryLater(report, st.Kind(), errors.New(err).
				Component("sync").
				Category(errors.CategoryCancellation).
				Context("kind", string(st.Kind())).
				Build())
		}

		stageReport, err := st.run(ctx, o)
		if err != nil {
			stageReport.Error = err.Error()
		}
		report.Stages = append(report.Stages, stageReport)
		if o.recorder != nil {
			o.recorder.RecordStage(string(st.Kind()), stageReport.Uploaded, stageReport.Skipped, err != nil, stageReport.Duration)
		}
		if err != nil {
			return o.retryLater(report, st.Kind(), err)
		}
	}

	cleaned, err := o.planner.Run(ctx)
	report.Cleanup = cleaned
	if err != nil {
		report.CleanupErr = err
		o.log.Warn("cleanup failed, retried on the next run", logger.Error(err))
	}
	if o.recorder != nil {
		var deleted datastore.KindCounts
		if cleaned != nil {
			deleted = cleaned.Deleted
		}
		o.recorder.RecordCleanup(deleted, err != nil)
	}

	report.Result = ResultSuccess
	o.log.Info("sync completed",
		logger.Int("uploaded", report.Uploaded()),
		logger.Duration("duration", time.Since(report.StartedAt)))
	return report
}

func (o *Orchestrator) retryLater(report *Report, kind datastore.Kind, err error) *Report {
	report.Result = ResultRetryLater
	report.Reason = reasonFor(err)
	report.FailedStage = kind
	report.Err = err

	fields := []logger.Field{
		logger.String("reason", string(report.Reason)),
		logger.Error(err),
	}
	if kind != "" {
		fields = append(fields, logger.String("stage", string(kind)))
	}
	// Lock contention with the recording app clears on its own
	transient := datastore.IsTransient(err)
	if transient {
		fields = append(fields, logger.Bool("transient", true))
	}
	if transient || report.Reason == ReasonConnectivityUnavailable || report.Reason == ReasonCancelled {
		o.log.Info("sync will be retried", fields...)
	} else {
		o.log.Warn("sync will be retried", fields...)
	}
	return report
}
