package datastore

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/safedriveafrica/drivesync/internal/conf"
	"github.com/safedriveafrica/drivesync/internal/errors"
	"github.com/safedriveafrica/drivesync/internal/logger"
)

// Store bundles the repositories of all record kinds over one connection.
type Store struct {
	db *gorm.DB

	Locations        LocationRepository
	UnsafeBehaviours DependentRepository[UnsafeBehaviour]
	RawSensorData    DependentRepository[RawSensorData]
	AIModelInputs    Repository[AIModelInput]
	ReportStatistics Repository[ReportStatistics]
}

// New wraps an open GORM connection. It does not migrate the schema.
func New(db *gorm.DB) *Store {
	return &Store{
		db:               db,
		Locations:        NewLocationRepository(db),
		UnsafeBehaviours: NewUnsafeBehaviourRepository(db),
		RawSensorData:    NewRawSensorDataRepository(db),
		AIModelInputs:    NewAIModelInputRepository(db),
		ReportStatistics: NewReportStatisticsRepository(db),
	}
}

// Open connects to the configured database and migrates the schema.
func Open(ctx context.Context, settings *conf.DatastoreSettings) (*Store, error) {
	var dialector gorm.Dialector
	var target string

	switch settings.Type {
	case conf.DatastoreSQLite:
		path := settings.SQLite.Path
		dir := filepath.Dir(path)
		if dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.New(err).
					Component("datastore").
					Category(errors.CategoryFileIO).
					Context("operation", "create_database_directory").
					Context("path", dir).
					Build()
			}
		}
		if err := checkFreeSpace(dir, settings.SQLite.MinFreeMB); err != nil {
			return nil, err
		}
		dialector = sqlite.Open(path)
		target = path
	case conf.DatastoreMySQL:
		dialector = mysql.Open(mysqlDSN(&settings.MySQL))
		target = net.JoinHostPort(settings.MySQL.Host, strconv.Itoa(settings.MySQL.Port))
	default:
		return nil, errors.New(ErrUnsupportedType).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Context("type", settings.Type).
			Build()
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(GetLogger(), settings.SlowQueryThreshold),
	})
	if err != nil {
		return nil, dbError(err, "open", "", "type", settings.Type, "target", target)
	}

	store := New(db)
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	GetLogger().Info("datastore opened",
		logger.String("type", settings.Type),
		logger.String("target", target))
	return store, nil
}

// mysqlDSN builds the connection string for the MySQL driver.
func mysqlDSN(settings *conf.MySQLSettings) string {
	cfg := mysqldriver.NewConfig()
	cfg.User = settings.Username
	cfg.Passwd = settings.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(settings.Host, strconv.Itoa(settings.Port))
	cfg.DBName = settings.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// Migrate creates or updates the tables of all record kinds.
func (s *Store) Migrate(ctx context.Context) error {
	if s.db == nil {
		return ErrNotInitialized
	}
	start := time.Now()
	if err := s.db.WithContext(ctx).AutoMigrate(allModels()...); err != nil {
		return dbError(err, "auto_migrate", "")
	}
	GetLogger().Debug("schema migrated", logger.Duration("duration", time.Since(start)))
	return nil
}

// DB returns the underlying GORM connection.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return dbError(err, "close", "")
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close", "")
	}
	return nil
}

// KindCounts holds per-kind record counts.
type KindCounts map[Kind]int64

// Total returns the sum over all kinds.
func (c KindCounts) Total() int64 {
	var n int64
	for _, v := range c {
		n += v
	}
	return n
}

// Status returns, per kind, the number of unsynced records and the number of
// records eligible for cleanup. Location cleanup candidates are all synced
// locations; whether each is referenced is decided by the cleanup planner.
func (s *Store) Status(ctx context.Context) (unsynced, cleanable KindCounts, err error) {
	unsynced = KindCounts{}
	cleanable = KindCounts{}

	type counter interface {
		Kind() Kind
		CountUnsynced(ctx context.Context) (int64, error)
		CountSyncedAndProcessed(ctx context.Context) (int64, error)
	}
	counters := []counter{s.Locations, s.UnsafeBehaviours, s.RawSensorData, s.AIModelInputs, s.ReportStatistics}

	for _, c := range counters {
		n, err := c.CountUnsynced(ctx)
		if err != nil {
			return nil, nil, err
		}
		unsynced[c.Kind()] = n

		if c.Kind() == KindLocation {
			continue
		}
		n, err = c.CountSyncedAndProcessed(ctx)
		if err != nil {
			return nil, nil, err
		}
		cleanable[c.Kind()] = n
	}

	synced, err := s.Locations.FindSynced(ctx)
	if err != nil {
		return nil, nil, err
	}
	cleanable[KindLocation] = int64(len(synced))

	return unsynced, cleanable, nil
}
