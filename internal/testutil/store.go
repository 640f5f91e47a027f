package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/safedriveafrica/drivesync/internal/conf"
	"github.com/safedriveafrica/drivesync/internal/datastore"
)

// BaseTimestamp is the timestamp of the first fixture record, in unix milliseconds.
const BaseTimestamp int64 = 1_700_000_000_000

// OpenStore opens a migrated sqlite store in a temporary directory that is
// closed when the test ends.
func OpenStore(t *testing.T) *datastore.Store {
	t.Helper()

	store, err := datastore.Open(context.Background(), &conf.DatastoreSettings{
		Type:   conf.DatastoreSQLite,
		SQLite: conf.SQLiteSettings{Path: filepath.Join(t.TempDir(), "drivesync.db")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

// Date is the calendar date used by fixtures.
func Date() time.Time {
	return time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
}

// Locations returns n locations with ids loc-0000.. and ascending timestamps.
func Locations(n int, synced, processed bool) []datastore.Location {
	out := make([]datastore.Location, n)
	for i := range out {
		out[i] = datastore.Location{
			ID:        fmt.Sprintf("loc-%04d", i),
			Latitude:  -1.2921 + float64(i)/10000,
			Longitude: 36.8219,
			Timestamp: BaseTimestamp + int64(i)*1000,
			Date:      Date(),
			Speed:     12.5,
			Sync:      synced,
			Processed: processed,
		}
	}
	return out
}

// UnsafeBehaviour returns an event referencing locationID, or no location when empty.
func UnsafeBehaviour(id, locationID string, synced, processed bool) datastore.UnsafeBehaviour {
	u := datastore.UnsafeBehaviour{
		ID:              id,
		TripID:          "trip-1",
		DriverProfileID: "driver-1",
		BehaviourType:   "Harsh Braking",
		Severity:        0.7,
		Timestamp:       BaseTimestamp,
		Date:            Date(),
		Sync:            synced,
		Processed:       processed,
	}
	if locationID != "" {
		u.LocationID = Ptr(locationID)
	}
	return u
}

// RawSensorData returns a sample referencing locationID and tripID; empty
// values leave the reference null.
func RawSensorData(id, locationID, tripID string, synced, processed bool) datastore.RawSensorData {
	r := datastore.RawSensorData{
		ID:             id,
		SensorType:     1,
		SensorTypeName: "TYPE_ACCELEROMETER",
		Values:         []float64{0.1, 9.8, 0.2},
		Timestamp:      BaseTimestamp,
		Date:           Ptr(Date()),
		Accuracy:       3,
		Sync:           synced,
		Processed:      processed,
	}
	if locationID != "" {
		r.LocationID = Ptr(locationID)
	}
	if tripID != "" {
		r.TripID = Ptr(tripID)
	}
	return r
}

// AIModelInput returns a model input with the given timestamp.
func AIModelInput(id string, timestamp int64, synced, processed bool) datastore.AIModelInput {
	return datastore.AIModelInput{
		ID:              id,
		TripID:          "trip-1",
		DriverProfileID: "driver-1",
		Timestamp:       timestamp,
		StartTimestamp:  timestamp - 60_000,
		EndTimestamp:    timestamp,
		Date:            Date(),
		HourOfDayMean:   14.5,
		DayOfWeekMean:   3,
		SpeedStd:        2.1,
		Sync:            synced,
		Processed:       processed,
	}
}

// ReportStatistics returns a report whose last trip started at lastTripStart;
// nil leaves the start time unset.
func ReportStatistics(id string, lastTripStart *int64, synced, processed bool) datastore.ReportStatistics {
	return datastore.ReportStatistics{
		ID:                id,
		DriverProfileID:   "driver-1",
		CreatedDate:       Date(),
		TotalIncidences:   2,
		IncidencesPerTrip: map[string]int{"trip-1": 2},
		LastTripStartTime: lastTripStart,
		Sync:              synced,
		Processed:         processed,
	}
}
