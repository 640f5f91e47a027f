// Package cleanup reclaims local storage once records are synced and
// processed, without deleting a location that unsynced records still reference.
package cleanup

import (
	"context"
	"time"

	"github.com/safedriveafrica/drivesync/internal/datastore"
	"github.com/safedriveafrica/drivesync/internal/errors"
	"github.com/safedriveafrica/drivesync/internal/logger"
)

// GetLogger returns the cleanup package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("cleanup")
}

// leafKinds are deleted before locations.
var leafKinds = []datastore.Kind{
	datastore.KindUnsafeBehaviour,
	datastore.KindRawSensorData,
	datastore.KindAIModelInput,
	datastore.KindReportStatistics,
}

var deleteOrder = []datastore.Kind{
	datastore.KindUnsafeBehaviour,
	datastore.KindRawSensorData,
	datastore.KindAIModelInput,
	datastore.KindReportStatistics,
	datastore.KindLocation,
}

// Plan lists the ids selected for deletion per kind.
type Plan struct {
	IDs map[datastore.Kind][]string

	// RetainedLocations counts synced locations kept because an unsynced
	// unsafe behaviour or raw sensor sample references them.
	RetainedLocations int
}

// Total returns the number of ids in the plan.
func (p *Plan) Total() int {
	n := 0
	for _, ids := range p.IDs {
		n += len(ids)
	}
	return n
}

// Report is the outcome of a cleanup.
type Report struct {
	Deleted           datastore.KindCounts `json:"deleted" yaml:"deleted"`
	RetainedLocations int                  `json:"retained_locations" yaml:"retained_locations"`
	Duration          time.Duration        `json:"duration" yaml:"duration"`
}

// Planner selects and deletes reclaimable records.
type Planner struct {
	store *datastore.Store
	log   logger.Logger
}

// NewPlanner creates a Planner over store.
func NewPlanner(store *datastore.Store) *Planner {
	return &Planner{store: store, log: GetLogger()}
}

// Plan selects the records that Run would delete without deleting anything.
func (p *Planner) Plan(ctx context.Context) (*Plan, error) {
	plan := &Plan{IDs: make(map[datastore.Kind][]string)}

	leaves := []func(context.Context) ([]string, error){
		syncedAndProcessedIDs(p.store.UnsafeBehaviours),
		syncedAndProcessedIDs(p.store.RawSensorData),
		syncedAndProcessedIDs(p.store.AIModelInputs),
		syncedAndProcessedIDs(p.store.ReportStatistics),
	}
	for i, find := range leaves {
		ids, err := find(ctx)
		if err != nil {
			return nil, cleanupError(err, "plan", leafKinds[i])
		}
		plan.IDs[leafKinds[i]] = ids
	}

	ids, retained, err := p.planLocations(ctx)
	if err != nil {
		return nil, cleanupError(err, "plan", datastore.KindLocation)
	}
	plan.IDs[datastore.KindLocation] = ids
	plan.RetainedLocations = retained

	return plan, nil
}

// planLocations returns the synced locations no unsynced dependent references.
func (p *Planner) planLocations(ctx context.Context) (ids []string, retained int, err error) {
	synced, err := p.store.Locations.FindSynced(ctx)
	if err != nil {
		return nil, 0, err
	}
	if len(synced) == 0 {
		return nil, 0, nil
	}

	candidates := make([]string, len(synced))
	for i, l := range synced {
		candidates[i] = l.ID
	}

	referencedByEvents, err := p.store.UnsafeBehaviours.UnsyncedLocationIDs(ctx, candidates)
	if err != nil {
		return nil, 0, err
	}
	referencedBySamples, err := p.store.RawSensorData.UnsyncedLocationIDs(ctx, candidates)
	if err != nil {
		return nil, 0, err
	}

	for _, id := range candidates {
		_, byEvent := referencedByEvents[id]
		_, bySample := referencedBySamples[id]
		if byEvent || bySample {
			retained++
			continue
		}
		ids = append(ids, id)
	}
	return ids, retained, nil
}

// Run deletes synced and processed leaf records, then every synced location
// that no unsynced unsafe behaviour or raw sensor sample references.
// Deletions already made stay in place when a later kind fails.
func (p *Planner) Run(ctx context.Context) (*Report, error) {
	start := time.Now()

	plan, err := p.Plan(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Deleted:           datastore.KindCounts{},
		RetainedLocations: plan.RetainedLocations,
	}

	deleters := map[datastore.Kind]func(context.Context, []string) (int64, error){
		datastore.KindUnsafeBehaviour:  p.store.UnsafeBehaviours.DeleteByIDs,
		datastore.KindRawSensorData:    p.store.RawSensorData.DeleteByIDs,
		datastore.KindAIModelInput:     p.store.AIModelInputs.DeleteByIDs,
		datastore.KindReportStatistics: p.store.ReportStatistics.DeleteByIDs,
		datastore.KindLocation:         p.store.Locations.DeleteByIDs,
	}

	for _, kind := range deleteOrder {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			return report, errors.New(err).
				Component("cleanup").
				Category(errors.CategoryCancellation).
				Context("kind", string(kind)).
				Build()
		}

		ids := plan.IDs[kind]
		if len(ids) == 0 {
			report.Deleted[kind] = 0
			continue
		}
		n, err := deleters[kind](ctx, ids)
		report.Deleted[kind] = n
		if err != nil {
			report.Duration = time.Since(start)
			return report, cleanupError(err, "delete", kind)
		}
	}

	report.Duration = time.Since(start)
	p.log.Info("cleanup completed",
		logger.Int64("locations", report.Deleted[datastore.KindLocation]),
		logger.Int64("unsafe_behaviours", report.Deleted[datastore.KindUnsafeBehaviour]),
		logger.Int64("raw_sensor_data", report.Deleted[datastore.KindRawSensorData]),
		logger.Int64("ai_model_inputs", report.Deleted[datastore.KindAIModelInput]),
		logger.Int64("report_statistics", report.Deleted[datastore.KindReportStatistics]),
		logger.Int("retained_locations", report.RetainedLocations),
		logger.Duration("duration", report.Duration))
	return report, nil
}

func syncedAndProcessedIDs[T datastore.Record[T]](repo datastore.Repository[T]) func(context.Context) ([]string, error) {
	return func(ctx context.Context) ([]string, error) {
		records, err := repo.FindSyncedAndProcessed(ctx)
		if err != nil {
			return nil, err
		}
		ids := make([]string, len(records))
		for i, r := range records {
			ids[i] = r.RecordID()
		}
		return ids, nil
	}
}

func cleanupError(err error, operation string, kind datastore.Kind) error {
	return errors.New(err).
		Component("cleanup").
		Category(errors.CategoryCleanup).
		Context("operation", operation).
		Context("kind", string(kind)).
		Build()
}
