package sync

import (
	"context"
	"time"

	"github.com/safedriveafrica/drivesync/internal/cleanup"
	"github.com/safedriveafrica/drivesync/internal/datastore"
	"github.com/safedriveafrica/drivesync/internal/errors"
)

// Result is the outcome handed to the scheduler.
type Result string

const (
	// ResultSuccess means every stage completed and cleanup was attempted.
	ResultSuccess Result = "success"
	// ResultRetryLater means the run should be scheduled again.
	ResultRetryLater Result = "retry_later"
)

// Reason explains a RetryLater result.
type Reason string

const (
	ReasonNone                    Reason = ""
	ReasonConnectivityUnavailable Reason = "connectivity_unavailable"
	ReasonBatchUploadFailure      Reason = "batch_upload_failure"
	ReasonLocalStorageFailure     Reason = "local_storage_failure"
	ReasonMissingDriverProfile    Reason = "missing_driver_profile"
	ReasonCancelled               Reason = "cancelled"
)

// StageReport describes one stage of a run.
type StageReport struct {
	Kind            datastore.Kind `json:"kind" yaml:"kind"`
	Found           int            `json:"found" yaml:"found"`
	Skipped         int            `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Chunks          int            `json:"chunks" yaml:"chunks"`
	ChunksCommitted int            `json:"chunks_committed" yaml:"chunks_committed"`
	Uploaded        int            `json:"uploaded" yaml:"uploaded"`
	Duration        time.Duration  `json:"duration" yaml:"duration"`
	Error           string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// Report describes a whole run.
type Report struct {
	Result      Result          `json:"result" yaml:"result"`
	Reason      Reason          `json:"reason,omitempty" yaml:"reason,omitempty"`
	FailedStage datastore.Kind  `json:"failed_stage,omitempty" yaml:"failed_stage,omitempty"`
	Stages      []StageReport   `json:"stages" yaml:"stages"`
	Cleanup     *cleanup.Report `json:"cleanup,omitempty" yaml:"cleanup,omitempty"`
	StartedAt   time.Time       `json:"started_at" yaml:"started_at"`
	Duration    time.Duration   `json:"duration" yaml:"duration"`

	// Err is the failure behind a RetryLater result
	Err error `json:"-" yaml:"-"`

	// CleanupErr is a cleanup failure after a successful upload; it does
	// not change the result
	CleanupErr error `json:"-" yaml:"-"`
}

// Uploaded returns the number of records marked synced during the run.
func (r *Report) Uploaded() int {
	n := 0
	for _, s := range r.Stages {
		n += s.Uploaded
	}
	return n
}

// reasonFor maps a stage error to the reason reported with RetryLater.
// A rejected upload stays a batch upload failure even when the transport
// error is a timeout.
func reasonFor(err error) Reason {
	switch {
	case errors.IsCategory(err, errors.CategoryCancellation):
		return ReasonCancelled
	case errors.IsCategory(err, errors.CategoryBatchUpload):
		return ReasonBatchUploadFailure
	case errors.Is(err, ErrMissingDriverProfile):
		return ReasonMissingDriverProfile
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCancelled
	case errors.IsCategory(err, errors.CategoryDatabase):
		return ReasonLocalStorageFailure
	case errors.IsCategory(err, errors.CategoryConnectivity):
		return ReasonConnectivityUnavailable
	default:
		return ReasonBatchUploadFailure
	}
}
