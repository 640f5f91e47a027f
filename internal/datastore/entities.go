package datastore

import "time"

// Kind identifies one of the buffered record kinds.
type Kind string

const (
	KindLocation         Kind = "location"
	KindUnsafeBehaviour  Kind = "unsafe_behaviour"
	KindRawSensorData    Kind = "raw_sensor_data"
	KindAIModelInput     Kind = "ai_model_input"
	KindReportStatistics Kind = "report_statistics"
)

// Kinds lists every record kind in upload order.
var Kinds = []Kind{
	KindLocation,
	KindUnsafeBehaviour,
	KindRawSensorData,
	KindAIModelInput,
	KindReportStatistics,
}

// Record is implemented by every buffered entity. Entities are passed by value;
// WithSync returns a modified copy and never mutates the receiver.
type Record[T any] interface {
	RecordID() string
	IsSynced() bool
	WithSync(sync bool) T
}

// Location is a GPS fix. Other kinds reference it through LocationID.
type Location struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	Latitude  float64   `gorm:"not null"`
	Longitude float64   `gorm:"not null"`
	Timestamp int64     `gorm:"not null;index"` // unix milliseconds
	Date      time.Time `gorm:"not null"`
	Altitude  float64
	Speed     float64
	Distance  float64
	Sync      bool `gorm:"not null;default:false;index"`
	Processed bool `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM.
func (Location) TableName() string { return "locations" }

func (l Location) RecordID() string { return l.ID }
func (l Location) IsSynced() bool   { return l.Sync }

// WithSync returns a copy of l with the sync flag set.
func (l Location) WithSync(sync bool) Location {
	l.Sync = sync
	return l
}

// UnsafeBehaviour is a detected unsafe driving event.
type UnsafeBehaviour struct {
	ID              string    `gorm:"primaryKey;type:varchar(36)"`
	TripID          string    `gorm:"type:varchar(36);not null;index"`
	LocationID      *string   `gorm:"type:varchar(36);index"`
	DriverProfileID string    `gorm:"type:varchar(36);not null"`
	BehaviourType   string    `gorm:"type:varchar(100);not null"`
	Severity        float64   `gorm:"not null"`
	Timestamp       int64     `gorm:"not null;index"`
	Date            time.Time `gorm:"not null"`
	Sync            bool      `gorm:"not null;default:false;index"`
	Processed       bool      `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM.
func (UnsafeBehaviour) TableName() string { return "unsafe_behaviours" }

func (u UnsafeBehaviour) RecordID() string { return u.ID }
func (u UnsafeBehaviour) IsSynced() bool   { return u.Sync }

// WithSync returns a copy of u with the sync flag set.
func (u UnsafeBehaviour) WithSync(sync bool) UnsafeBehaviour {
	u.Sync = sync
	return u
}

// RawSensorData is a single sensor sample.
type RawSensorData struct {
	ID              string    `gorm:"primaryKey;type:varchar(36)"`
	SensorType      int       `gorm:"not null"`
	SensorTypeName  string    `gorm:"type:varchar(100);not null"`
	Values          []float64 `gorm:"serializer:json;type:text"`
	Timestamp       int64     `gorm:"not null;index"`
	Date            *time.Time
	Accuracy        int
	LocationID      *string `gorm:"type:varchar(36);index"`
	TripID          *string `gorm:"type:varchar(36);index"`
	DriverProfileID *string `gorm:"type:varchar(36)"`
	Sync            bool    `gorm:"not null;default:false;index"`
	Processed       bool    `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM.
func (RawSensorData) TableName() string { return "raw_sensor_data" }

func (r RawSensorData) RecordID() string { return r.ID }
func (r RawSensorData) IsSynced() bool   { return r.Sync }

// WithSync returns a copy of r with the sync flag set.
func (r RawSensorData) WithSync(sync bool) RawSensorData {
	r.Sync = sync
	return r
}

// AIModelInput is a per-window feature vector fed to the alcohol influence model.
type AIModelInput struct {
	ID                        string    `gorm:"primaryKey;type:varchar(36)"`
	TripID                    string    `gorm:"type:varchar(36);not null;index"`
	DriverProfileID           string    `gorm:"type:varchar(36);not null"`
	Timestamp                 int64     `gorm:"not null;index"`
	StartTimestamp            int64     `gorm:"not null"`
	EndTimestamp              int64     `gorm:"not null"`
	Date                      time.Time `gorm:"not null"`
	HourOfDayMean             float64
	DayOfWeekMean             float64
	SpeedStd                  float64
	CourseStd                 float64
	AccelerationYOriginalMean float64
	Sync                      bool `gorm:"not null;default:false;index"`
	Processed                 bool `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM.
func (AIModelInput) TableName() string { return "ai_model_inputs" }

func (a AIModelInput) RecordID() string { return a.ID }
func (a AIModelInput) IsSynced() bool   { return a.Sync }

// WithSync returns a copy of a with the sync flag set.
func (a AIModelInput) WithSync(sync bool) AIModelInput {
	a.Sync = sync
	return a
}

// ReportStatistics is an aggregated driving report over a date range or a trip.
type ReportStatistics struct {
	ID              string  `gorm:"primaryKey;type:varchar(36)"`
	DriverProfileID string  `gorm:"type:varchar(36);not null"`
	TripID          *string `gorm:"type:varchar(36)"`
	StartDate       *time.Time
	EndDate         *time.Time
	CreatedDate     time.Time `gorm:"not null"`

	TotalIncidences                             int
	MostFrequentUnsafeBehaviour                 *string `gorm:"type:varchar(100)"`
	MostFrequentBehaviourCount                  int
	MostFrequentBehaviourOccurrences            []map[string]any `gorm:"serializer:json;type:text"`
	TripWithMostIncidences                      map[string]any   `gorm:"serializer:json;type:text"`
	TripsPerAggregationUnit                     map[string]int   `gorm:"serializer:json;type:text"`
	AggregationUnitWithMostIncidences           map[string]any   `gorm:"serializer:json;type:text"`
	IncidencesPerAggregationUnit                map[string]int   `gorm:"serializer:json;type:text"`
	IncidencesPerTrip                           map[string]int   `gorm:"serializer:json;type:text"`
	AggregationLevel                            *string          `gorm:"type:varchar(20)"`
	AggregationUnitsWithAlcoholInfluence        int
	TripsWithAlcoholInfluencePerAggregationUnit map[string]int `gorm:"serializer:json;type:text"`
	NumberOfTrips                               int
	NumberOfTripsWithIncidences                 int
	NumberOfTripsWithAlcoholInfluence           int

	LastTripDuration      *int64 // milliseconds
	LastTripDistance      *float64
	LastTripAverageSpeed  *float64
	LastTripStartLocation *string `gorm:"type:varchar(255)"`
	LastTripEndLocation   *string `gorm:"type:varchar(255)"`
	LastTripStartTime     *int64  // unix milliseconds
	LastTripEndTime       *int64  // unix milliseconds
	LastTripInfluence     *string `gorm:"type:varchar(50)"`

	Sync      bool `gorm:"not null;default:false;index"`
	Processed bool `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM.
func (ReportStatistics) TableName() string { return "report_statistics" }

func (r ReportStatistics) RecordID() string { return r.ID }
func (r ReportStatistics) IsSynced() bool   { return r.Sync }

// WithSync returns a copy of r with the sync flag set.
func (r ReportStatistics) WithSync(sync bool) ReportStatistics {
	r.Sync = sync
	return r
}

// allModels lists the entities managed by AutoMigrate.
func allModels() []any {
	return []any{
		&Location{},
		&UnsafeBehaviour{},
		&RawSensorData{},
		&AIModelInput{},
		&ReportStatistics{},
	}
}
