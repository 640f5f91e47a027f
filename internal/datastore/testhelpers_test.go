package datastore

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/safedriveafrica/drivesync/internal/conf"
)

// openTestStore opens a migrated sqlite store in a temporary directory
func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(context.Background(), &conf.DatastoreSettings{
		Type:   conf.DatastoreSQLite,
		SQLite: conf.SQLiteSettings{Path: filepath.Join(t.TempDir(), "test.db")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func ptr[T any](v T) *T { return &v }

func testDate() time.Time {
	return time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
}

func makeLocations(n int, synced bool) []Location {
	locs := make([]Location, n)
	for i := range locs {
		locs[i] = Location{
			ID:        fmt.Sprintf("loc-%04d", i),
			Latitude:  -1.29 + float64(i)/1000,
			Longitude: 36.82,
			Timestamp: int64(1_700_000_000_000 + i),
			Date:      testDate(),
			Sync:      synced,
		}
	}
	return locs
}
