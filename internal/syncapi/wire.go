package syncapi

import (
	"time"

	"github.com/safedriveafrica/drivesync/internal/datastore"
	"github.com/safedriveafrica/drivesync/internal/errors"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// ErrMissingTripID is returned when a raw sensor sample has no trip.
// The backend rejects such samples for driver uploads.
var ErrMissingTripID = errors.NewStd("raw sensor sample has no trip id")

// LocationCreate is the wire form of a location.
type LocationCreate struct {
	ID        string  `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
	Date      string  `json:"date"`
	Altitude  float64 `json:"altitude"`
	Speed     float64 `json:"speed"`
	Distance  float64 `json:"distance"`
	Sync      bool    `json:"sync"`
}

// UnsafeBehaviourCreate is the wire form of an unsafe behaviour event.
type UnsafeBehaviourCreate struct {
	ID              string  `json:"id"`
	TripID          string  `json:"trip_id"`
	LocationID      *string `json:"location_id"`
	DriverProfileID string  `json:"driverProfileId"`
	BehaviourType   string  `json:"behaviour_type"`
	Severity        float64 `json:"severity"`
	Timestamp       int64   `json:"timestamp"`
	Date            string  `json:"date"`
}

// RawSensorDataCreate is the wire form of a raw sensor sample.
type RawSensorDataCreate struct {
	ID              string    `json:"id"`
	SensorType      int       `json:"sensor_type"`
	SensorTypeName  string    `json:"sensor_type_name"`
	Values          []float64 `json:"values"`
	Timestamp       int64     `json:"timestamp"`
	Date            *string   `json:"date"`
	Accuracy        int       `json:"accuracy"`
	LocationID      *string   `json:"location_id"`
	TripID          string    `json:"trip_id"`
	DriverProfileID string    `json:"driverProfileId"`
	Sync            bool      `json:"sync"`
}

// AIModelInputCreate is the wire form of an AI model input.
type AIModelInputCreate struct {
	ID                        string  `json:"id"`
	TripID                    string  `json:"trip_id"`
	DriverProfileID           string  `json:"driver_profile_id"`
	Timestamp                 string  `json:"timestamp"`
	StartTimeStamp            string  `json:"startTimeStamp"`
	EndTimeStamp              string  `json:"endTimeStamp"`
	Date                      string  `json:"date"`
	HourOfDayMean             float64 `json:"hour_of_day_mean"`
	DayOfWeekMean             float64 `json:"day_of_week_mean"`
	SpeedStd                  float64 `json:"speed_std"`
	CourseStd                 float64 `json:"course_std"`
	AccelerationYOriginalMean float64 `json:"acceleration_y_original_mean"`
	Synced                    bool    `json:"synced"`
}

// ReportStatisticsCreate is the wire form of a report. Field names follow the
// backend schema, which is camelCase for this kind.
type ReportStatisticsCreate struct {
	ID                                          string           `json:"id"`
	DriverProfileID                             string           `json:"driverProfileId"`
	TripID                                      *string          `json:"tripId"`
	StartDate                                   *string          `json:"startDate"`
	EndDate                                     *string          `json:"endDate"`
	CreatedDate                                 string           `json:"createdDate"`
	TotalIncidences                             int              `json:"totalIncidences"`
	MostFrequentUnsafeBehaviour                 *string          `json:"mostFrequentUnsafeBehaviour"`
	MostFrequentBehaviourCount                  int              `json:"mostFrequentBehaviourCount"`
	MostFrequentBehaviourOccurrences            []map[string]any `json:"mostFrequentBehaviourOccurrences"`
	TripWithMostIncidences                      map[string]any   `json:"tripWithMostIncidences"`
	TripsPerAggregationUnit                     map[string]int   `json:"tripsPerAggregationUnit"`
	AggregationUnitWithMostIncidences           map[string]any   `json:"aggregationUnitWithMostIncidences"`
	IncidencesPerAggregationUnit                map[string]int   `json:"incidencesPerAggregationUnit"`
	IncidencesPerTrip                           map[string]int   `json:"incidencesPerTrip"`
	AggregationLevel                            *string          `json:"aggregationLevel"`
	AggregationUnitsWithAlcoholInfluence        int              `json:"aggregationUnitsWithAlcoholInfluence"`
	TripsWithAlcoholInfluencePerAggregationUnit map[string]int   `json:"tripsWithAlcoholInfluencePerAggregationUnit"`
	Sync                                        bool             `json:"sync"`
	Processed                                   bool             `json:"processed"`
	NumberOfTrips                               int              `json:"numberOfTrips"`
	NumberOfTripsWithIncidences                 int              `json:"numberOfTripsWithIncidences"`
	NumberOfTripsWithAlcoholInfluence           int              `json:"numberOfTripsWithAlcoholInfluence"`
	LastTripDuration                            *int64           `json:"lastTripDuration"`
	LastTripDistance                            *float64         `json:"lastTripDistance"`
	LastTripAverageSpeed                        *float64         `json:"lastTripAverageSpeed"`
	LastTripStartLocation                       *string          `json:"lastTripStartLocation"`
	LastTripEndLocation                         *string          `json:"lastTripEndLocation"`
	LastTripStartTime                           *string          `json:"lastTripStartTime"`
	LastTripEndTime                             *string          `json:"lastTripEndTime"`
	LastTripInfluence                           *string          `json:"lastTripInfluence"`
}

func (w LocationCreate) recordID() string         { return w.ID }
func (w UnsafeBehaviourCreate) recordID() string  { return w.ID }
func (w RawSensorDataCreate) recordID() string    { return w.ID }
func (w AIModelInputCreate) recordID() string     { return w.ID }
func (w ReportStatisticsCreate) recordID() string { return w.ID }

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func formatDatePtr(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

// formatMillis renders unix milliseconds as an ISO-8601 UTC timestamp.
func formatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(timestampLayout)
}

func formatMillisPtr(ms *int64) *string {
	if ms == nil {
		return nil
	}
	s := formatMillis(*ms)
	return &s
}

// NewLocationCreate maps a stored location to its wire form. The record is
// sent already marked synced, as the server stores what it receives.
func NewLocationCreate(l datastore.Location) LocationCreate {
	return LocationCreate{
		ID:        l.ID,
		Latitude:  l.Latitude,
		Longitude: l.Longitude,
		Timestamp: l.Timestamp,
		Date:      formatDate(l.Date),
		Altitude:  l.Altitude,
		Speed:     l.Speed,
		Distance:  l.Distance,
		Sync:      true,
	}
}

// NewUnsafeBehaviourCreate maps a stored unsafe behaviour event to its wire form.
func NewUnsafeBehaviourCreate(u datastore.UnsafeBehaviour) UnsafeBehaviourCreate {
	return UnsafeBehaviourCreate{
		ID:              u.ID,
		TripID:          u.TripID,
		LocationID:      u.LocationID,
		DriverProfileID: u.DriverProfileID,
		BehaviourType:   u.BehaviourType,
		Severity:        u.Severity,
		Timestamp:       u.Timestamp,
		Date:            formatDate(u.Date),
	}
}

// NewRawSensorDataCreate maps a stored sample to its wire form, attaching the
// uploading driver's profile id. Samples without a trip cannot be uploaded.
func NewRawSensorDataCreate(r datastore.RawSensorData, driverProfileID string) (RawSensorDataCreate, error) {
	if r.TripID == nil || *r.TripID == "" {
		return RawSensorDataCreate{}, ErrMissingTripID
	}
	return RawSensorDataCreate{
		ID:              r.ID,
		SensorType:      r.SensorType,
		SensorTypeName:  r.SensorTypeName,
		Values:          r.Values,
		Timestamp:       r.Timestamp,
		Date:            formatDatePtr(r.Date),
		Accuracy:        r.Accuracy,
		LocationID:      r.LocationID,
		TripID:          *r.TripID,
		DriverProfileID: driverProfileID,
		Sync:            true,
	}, nil
}

// NewAIModelInputCreate maps a stored AI model input to its wire form.
func NewAIModelInputCreate(a datastore.AIModelInput) AIModelInputCreate {
	return AIModelInputCreate{
		ID:                        a.ID,
		TripID:                    a.TripID,
		DriverProfileID:           a.DriverProfileID,
		Timestamp:                 formatMillis(a.Timestamp),
		StartTimeStamp:            formatMillis(a.StartTimestamp),
		EndTimeStamp:              formatMillis(a.EndTimestamp),
		Date:                      formatDate(a.Date),
		HourOfDayMean:             a.HourOfDayMean,
		DayOfWeekMean:             a.DayOfWeekMean,
		SpeedStd:                  a.SpeedStd,
		CourseStd:                 a.CourseStd,
		AccelerationYOriginalMean: a.AccelerationYOriginalMean,
		Synced:                    true,
	}
}

// NewReportStatisticsCreate maps a stored report to its wire form.
func NewReportStatisticsCreate(r datastore.ReportStatistics) ReportStatisticsCreate {
	return ReportStatisticsCreate{
		ID:                                   r.ID,
		DriverProfileID:                      r.DriverProfileID,
		TripID:                               r.TripID,
		StartDate:                            formatDatePtr(r.StartDate),
		EndDate:                              formatDatePtr(r.EndDate),
		CreatedDate:                          formatDate(r.CreatedDate),
		TotalIncidences:                      r.TotalIncidences,
		MostFrequentUnsafeBehaviour:          r.MostFrequentUnsafeBehaviour,
		MostFrequentBehaviourCount:           r.MostFrequentBehaviourCount,
		MostFrequentBehaviourOccurrences:     r.MostFrequentBehaviourOccurrences,
		TripWithMostIncidences:               r.TripWithMostIncidences,
		TripsPerAggregationUnit:              r.TripsPerAggregationUnit,
		AggregationUnitWithMostIncidences:    r.AggregationUnitWithMostIncidences,
		IncidencesPerAggregationUnit:         r.IncidencesPerAggregationUnit,
		IncidencesPerTrip:                    r.IncidencesPerTrip,
		AggregationLevel:                     r.AggregationLevel,
		AggregationUnitsWithAlcoholInfluence: r.AggregationUnitsWithAlcoholInfluence,
		TripsWithAlcoholInfluencePerAggregationUnit: r.TripsWithAlcoholInfluencePerAggregationUnit,
		Sync:                              true,
		Processed:                         r.Processed,
		NumberOfTrips:                     r.NumberOfTrips,
		NumberOfTripsWithIncidences:       r.NumberOfTripsWithIncidences,
		NumberOfTripsWithAlcoholInfluence: r.NumberOfTripsWithAlcoholInfluence,
		LastTripDuration:                  r.LastTripDuration,
		LastTripDistance:                  r.LastTripDistance,
		LastTripAverageSpeed:              r.LastTripAverageSpeed,
		LastTripStartLocation:             r.LastTripStartLocation,
		LastTripEndLocation:               r.LastTripEndLocation,
		LastTripStartTime:                 formatMillisPtr(r.LastTripStartTime),
		LastTripEndTime:                   formatMillisPtr(r.LastTripEndTime),
		LastTripInfluence:                 r.LastTripInfluence,
	}
}
