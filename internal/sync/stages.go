package sync

import (
	"context"
	"time"

	"github.com/safedriveafrica/drivesync/internal/datastore"
	"github.com/safedriveafrica/drivesync/internal/errors"
	"github.com/safedriveafrica/drivesync/internal/logger"
	"github.com/safedriveafrica/drivesync/internal/syncapi"
	"github.com/safedriveafrica/drivesync/internal/upload"
)

// Notification titles per stage.
const (
	TitleLocations        = "Data Upload: Locations"
	TitleUnsafeBehaviours = "Data Upload: Unsafe Behaviours"
	TitleSensorData       = "Data Upload: Sensor Data"
	TitleAIModelInputs    = "Data Upload: AI Model Inputs"
	TitleReportStatistics = "Data Upload: Report Statistics"
)

// ErrMissingDriverProfile is returned by the raw sensor stage when no driver
// profile id is configured.
var ErrMissingDriverProfile = errors.NewStd("driver profile id is not configured")

type stageRunner interface {
	Kind() datastore.Kind
	run(ctx context.Context, o *Orchestrator) (StageReport, error)
}

// stage uploads the unsynced records of one kind as wire records of type W.
type stage[T datastore.Record[T], W any] struct {
	kind  datastore.Kind
	title string
	repo  datastore.Repository[T]
	key   func(T) int64

	// precheck runs before any record is read; nil skips it
	precheck func() error

	// skip excludes records that cannot be uploaded; they stay unsynced
	skip func(T) bool

	wire func(T) (W, error)
	send func(context.Context, []W) error
}

func (s *stage[T, W]) Kind() datastore.Kind { return s.kind }

func (s *stage[T, W]) run(ctx context.Context, o *Orchestrator) (StageReport, error) {
	start := time.Now()
	report := StageReport{Kind: s.kind}
	log := o.log.With(logger.String("kind", string(s.kind)))

	if s.precheck != nil {
		if err := s.precheck(); err != nil {
			report.Duration = time.Since(start)
			return report, err
		}
	}

	records, err := s.repo.FindUnsynced(ctx)
	if err != nil {
		report.Duration = time.Since(start)
		return report, err
	}

	if s.skip != nil {
		kept := records[:0]
		for _, r := range records {
			if s.skip(r) {
				report.Skipped++
				continue
			}
			kept = append(kept, r)
		}
		records = kept
		if report.Skipped > 0 {
			log.Warn("records skipped, left unsynced", logger.Int("skipped", report.Skipped))
		}
	}
	report.Found = len(records)

	u := &upload.Uploader[T]{
		Kind:      string(s.kind),
		Title:     s.title,
		ChunkSize: o.batchSize,
		Key:       s.key,
		Upload: func(ctx context.Context, chunk []T) error {
			payload := make([]W, 0, len(chunk))
			for _, r := range chunk {
				w, err := s.wire(r)
				if err != nil {
					return errors.New(err).
						Component("sync").
						Category(errors.CategoryValidation).
						Context("kind", string(s.kind)).
						Context("id", r.RecordID()).
						Build()
				}
				payload = append(payload, w)
			}
			return s.send(ctx, payload)
		},
		OnSuccess: func(ctx context.Context, chunk []T) error {
			synced := make([]T, len(chunk))
			for i, r := range chunk {
				synced[i] = r.WithSync(true)
			}
			return s.repo.Update(ctx, synced...)
		},
		Notifier: o.notifier,
	}

	result, err := u.Run(ctx, records)
	report.Chunks = result.Chunks
	report.ChunksCommitted = result.ChunksCommitted
	report.Uploaded = result.RecordsCommitted
	report.Duration = time.Since(start)
	if err != nil {
		return report, err
	}

	if report.Found > 0 {
		log.Info("stage completed",
			logger.Int("uploaded", report.Uploaded),
			logger.Int("chunks", report.Chunks),
			logger.Duration("duration", report.Duration))
	}
	return report, nil
}

// stages returns the upload stages in their fixed order.
func (o *Orchestrator) stages() []stageRunner {
	return []stageRunner{
		&stage[datastore.Location, syncapi.LocationCreate]{
			kind:  datastore.KindLocation,
			title: TitleLocations,
			repo:  o.store.Locations,
			key:   func(l datastore.Location) int64 { return l.Timestamp },
			wire:  infallible(syncapi.NewLocationCreate),
			send:  o.api.BatchCreateLocations,
		},
		&stage[datastore.UnsafeBehaviour, syncapi.UnsafeBehaviourCreate]{
			kind:  datastore.KindUnsafeBehaviour,
			title: TitleUnsafeBehaviours,
			repo:  o.store.UnsafeBehaviours,
			key:   func(u datastore.UnsafeBehaviour) int64 { return u.Timestamp },
			wire:  infallible(syncapi.NewUnsafeBehaviourCreate),
			send:  o.api.BatchCreateUnsafeBehaviours,
		},
		&stage[datastore.RawSensorData, syncapi.RawSensorDataCreate]{
			kind:  datastore.KindRawSensorData,
			title: TitleSensorData,
			repo:  o.store.RawSensorData,
			key:   func(r datastore.RawSensorData) int64 { return r.Timestamp },
			precheck: func() error {
				if o.driverProfileID == "" {
					return errors.New(ErrMissingDriverProfile).
						Component("sync").
						Category(errors.CategoryConfiguration).
						Context("kind", string(datastore.KindRawSensorData)).
						Build()
				}
				return nil
			},
			skip: func(r datastore.RawSensorData) bool { return r.TripID == nil || *r.TripID == "" },
			wire: func(r datastore.RawSensorData) (syncapi.RawSensorDataCreate, error) {
				return syncapi.NewRawSensorDataCreate(r, o.driverProfileID)
			},
			send: o.api.BatchCreateRawSensorData,
		},
		&stage[datastore.AIModelInput, syncapi.AIModelInputCreate]{
			kind:  datastore.KindAIModelInput,
			title: TitleAIModelInputs,
			repo:  o.store.AIModelInputs,
			key:   func(a datastore.AIModelInput) int64 { return a.Timestamp },
			wire:  infallible(syncapi.NewAIModelInputCreate),
			send:  o.api.BatchCreateAIModelInputs,
		},
		&stage[datastore.ReportStatistics, syncapi.ReportStatisticsCreate]{
			kind:  datastore.KindReportStatistics,
			title: TitleReportStatistics,
			repo:  o.store.ReportStatistics,
			key:   reportStatisticsKey,
			wire:  infallible(syncapi.NewReportStatisticsCreate),
			send:  o.api.BatchCreateReportStatistics,
		},
	}
}

// reportStatisticsKey orders reports by the start of their last trip; reports
// without one sort first.
func reportStatisticsKey(r datastore.ReportStatistics) int64 {
	if r.LastTripStartTime == nil {
		return 0
	}
	return *r.LastTripStartTime
}

func infallible[T, W any](fn func(T) W) func(T) (W, error) {
	return func(v T) (W, error) { return fn(v), nil }
}
