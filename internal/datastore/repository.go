package datastore

import (
	"context"
	"slices"

	"gorm.io/gorm"
)

// Repository provides access to one buffered record kind.
type Repository[T Record[T]] interface {
	// Kind returns the record kind served by the repository.
	Kind() Kind

	// Create inserts new records.
	Create(ctx context.Context, records ...T) error

	// FindUnsynced returns all records with sync=false.
	FindUnsynced(ctx context.Context) ([]T, error)

	// Update persists the given records in a single transaction.
	// Every column is written; records are matched by id.
	Update(ctx context.Context, records ...T) error

	// FindSyncedAndProcessed returns records with sync=true and processed=true.
	FindSyncedAndProcessed(ctx context.Context) ([]T, error)

	// DeleteByIDs deletes the records with the given ids and returns the number deleted.
	// Large id sets are deleted in chunks.
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)

	// CountUnsynced returns the number of records with sync=false.
	CountUnsynced(ctx context.Context) (int64, error)

	// CountSyncedAndProcessed returns the number of records eligible for cleanup.
	CountSyncedAndProcessed(ctx context.Context) (int64, error)
}

// LocationRepository adds the queries used by location cleanup.
type LocationRepository interface {
	Repository[Location]

	// FindSynced returns all locations with sync=true, regardless of processed.
	FindSynced(ctx context.Context) ([]Location, error)
}

// DependentRepository serves kinds that reference a location.
type DependentRepository[T Record[T]] interface {
	Repository[T]

	// UnsyncedLocationIDs returns the subset of locationIDs referenced by at
	// least one record with sync=false.
	UnsyncedLocationIDs(ctx context.Context, locationIDs []string) (map[string]struct{}, error)
}

// recordRepository implements Repository for any entity kind.
type recordRepository[T Record[T]] struct {
	db   *gorm.DB
	kind Kind
}

func newRecordRepository[T Record[T]](db *gorm.DB, kind Kind) *recordRepository[T] {
	return &recordRepository[T]{db: db, kind: kind}
}

func (r *recordRepository[T]) Kind() Kind {
	return r.kind
}

func (r *recordRepository[T]) Create(ctx context.Context, records ...T) error {
	if len(records) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(records, maxIDsPerStatement).Error; err != nil {
		return dbError(err, "create", r.kind, "count", len(records))
	}
	return nil
}

func (r *recordRepository[T]) FindUnsynced(ctx context.Context) ([]T, error) {
	return r.find(ctx, "find_unsynced", "sync = ?", false)
}

func (r *recordRepository[T]) FindSyncedAndProcessed(ctx context.Context) ([]T, error) {
	return r.find(ctx, "find_synced_processed", "sync = ? AND processed = ?", true, true)
}

func (r *recordRepository[T]) find(ctx context.Context, operation, query string, args ...any) ([]T, error) {
	var records []T
	err := r.db.WithContext(ctx).
		Where(query, args...).
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, dbError(err, operation, r.kind)
	}
	return records, nil
}

func (r *recordRepository[T]) Update(ctx context.Context, records ...T) error {
	if len(records) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range records {
			// Select("*") writes zero values too; Save would upsert deleted rows
			if err := tx.Model(&records[i]).Select("*").Updates(&records[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return dbError(err, "update", r.kind, "count", len(records))
	}
	return nil
}

func (r *recordRepository[T]) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	var deleted int64
	for chunk := range slices.Chunk(ids, maxIDsPerStatement) {
		result := r.db.WithContext(ctx).Where("id IN ?", chunk).Delete(new(T))
		if result.Error != nil {
			return deleted, dbError(result.Error, "delete", r.kind, "requested", len(ids), "deleted", deleted)
		}
		deleted += result.RowsAffected
	}
	return deleted, nil
}

func (r *recordRepository[T]) CountUnsynced(ctx context.Context) (int64, error) {
	return r.count(ctx, "count_unsynced", "sync = ?", false)
}

func (r *recordRepository[T]) CountSyncedAndProcessed(ctx context.Context) (int64, error) {
	return r.count(ctx, "count_synced_processed", "sync = ? AND processed = ?", true, true)
}

func (r *recordRepository[T]) count(ctx context.Context, operation, query string, args ...any) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(new(T)).Where(query, args...).Count(&n).Error; err != nil {
		return 0, dbError(err, operation, r.kind)
	}
	return n, nil
}

// locationRepository implements LocationRepository.
type locationRepository struct {
	*recordRepository[Location]
}

// NewLocationRepository creates a new LocationRepository.
func NewLocationRepository(db *gorm.DB) LocationRepository {
	return &locationRepository{newRecordRepository[Location](db, KindLocation)}
}

func (r *locationRepository) FindSynced(ctx context.Context) ([]Location, error) {
	return r.find(ctx, "find_synced", "sync = ?", true)
}

// dependentRepository implements DependentRepository.
type dependentRepository[T Record[T]] struct {
	*recordRepository[T]
}

// NewUnsafeBehaviourRepository creates a repository for unsafe behaviour events.
func NewUnsafeBehaviourRepository(db *gorm.DB) DependentRepository[UnsafeBehaviour] {
	return &dependentRepository[UnsafeBehaviour]{newRecordRepository[UnsafeBehaviour](db, KindUnsafeBehaviour)}
}

// NewRawSensorDataRepository creates a repository for raw sensor samples.
func NewRawSensorDataRepository(db *gorm.DB) DependentRepository[RawSensorData] {
	return &dependentRepository[RawSensorData]{newRecordRepository[RawSensorData](db, KindRawSensorData)}
}

// NewAIModelInputRepository creates a repository for AI model inputs.
func NewAIModelInputRepository(db *gorm.DB) Repository[AIModelInput] {
	return newRecordRepository[AIModelInput](db, KindAIModelInput)
}

// NewReportStatisticsRepository creates a repository for report statistics.
func NewReportStatisticsRepository(db *gorm.DB) Repository[ReportStatistics] {
	return newRecordRepository[ReportStatistics](db, KindReportStatistics)
}

func (r *dependentRepository[T]) UnsyncedLocationIDs(ctx context.Context, locationIDs []string) (map[string]struct{}, error) {
	referenced := make(map[string]struct{})
	for chunk := range slices.Chunk(locationIDs, maxIDsPerStatement) {
		var ids []string
		err := r.db.WithContext(ctx).Model(new(T)).
			Where("location_id IN ? AND sync = ?", chunk, false).
			Distinct().
			Pluck("location_id", &ids).Error
		if err != nil {
			return nil, dbError(err, "unsynced_location_ids", r.kind, "candidates", len(locationIDs))
		}
		for _, id := range ids {
			referenced[id] = struct{}{}
		}
	}
	return referenced, nil
}
