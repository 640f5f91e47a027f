// Package metrics provides custom Prometheus metrics for drivesync.
package metrics

// Label values shared by the collectors.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	// statusNoResponse labels requests that never received an HTTP response
	statusNoResponse = "none"
)

// durationBuckets spans quick local stages to long multi-chunk uploads.
var durationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}
