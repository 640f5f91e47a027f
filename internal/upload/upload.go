// Package upload sends buffered records to the remote service in ordered,
// fixed-size chunks and commits each accepted chunk locally before the next
// one is sent.
package upload

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/safedriveafrica/drivesync/internal/errors"
	"github.com/safedriveafrica/drivesync/internal/logger"
	"github.com/safedriveafrica/drivesync/internal/notification"
)

// Notification messages shown while a stage uploads.
const (
	MessageUploadFailed = "Failed to upload. Retrying..."
)

// ProgressMessage returns the message shown before chunk i (1-based) of total.
func ProgressMessage(i, total int) string {
	return fmt.Sprintf("Uploading batch %d of %d...", i, total)
}

// ErrInvalidChunkSize is returned when the chunk size is not positive.
var ErrInvalidChunkSize = errors.NewStd("chunk size must be positive")

// GetLogger returns the upload package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("upload")
}

// Uploader uploads records of one kind.
type Uploader[T any] struct {
	// Kind names the records in logs and errors.
	Kind string

	// Title is the notification title, e.g. "Data Upload: Locations".
	Title string

	// ChunkSize is the maximum number of records per upload call.
	ChunkSize int

	// Key orders records before chunking. The sort is stable.
	Key func(T) int64

	// Upload sends one chunk. It is never called concurrently.
	Upload func(ctx context.Context, chunk []T) error

	// OnSuccess commits an accepted chunk locally. It runs before the next
	// chunk is uploaded; an error ends the run.
	OnSuccess func(ctx context.Context, chunk []T) error

	// Notifier receives progress and failure messages. Nil discards them.
	Notifier notification.Notifier
}

// Result summarises a run. Counts cover the chunks reached before the run ended.
type Result struct {
	Records          int
	Chunks           int
	ChunksAttempted  int
	ChunksCommitted  int
	RecordsCommitted int
	Duration         time.Duration
}

// Run uploads records using u. See Uploader.Run.
func Run[T any](ctx context.Context, u *Uploader[T], records []T) (Result, error) {
	return u.Run(ctx, records)
}

// Run sorts a copy of records by Key, splits it into chunks of at most
// ChunkSize and uploads the chunks strictly in order.
//
// The run stops at the first chunk that fails to upload or to commit.
// Chunks committed before that stay committed. Cancellation of ctx is
// observed before each chunk; an upload already in flight is not cancelled.
func (u *Uploader[T]) Run(ctx context.Context, records []T) (Result, error) {
	start := time.Now()
	result := Result{Records: len(records)}

	if u.ChunkSize <= 0 {
		return result, errors.New(ErrInvalidChunkSize).
			Component("upload").
			Category(errors.CategoryValidation).
			Context("kind", u.Kind).
			Context("chunk_size", u.ChunkSize).
			Build()
	}
	if len(records) == 0 {
		return result, nil
	}

	notifier := u.Notifier
	if notifier == nil {
		notifier = notification.Discard
	}

	sorted := slices.Clone(records)
	if u.Key != nil {
		slices.SortStableFunc(sorted, func(a, b T) int {
			ka, kb := u.Key(a), u.Key(b)
			switch {
			case ka < kb:
				return -1
			case ka > kb:
				return 1
			}
			return 0
		})
	}

	total := (len(sorted) + u.ChunkSize - 1) / u.ChunkSize
	result.Chunks = total
	log := GetLogger().With(logger.String("kind", u.Kind))

	i := 0
	for chunk := range slices.Chunk(sorted, u.ChunkSize) {
		i++
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, errors.New(err).
				Component("upload").
				Category(errors.CategoryCancellation).
				BatchContext(u.Kind, i, total).
				Build()
		}

		notifier.Display(u.Title, ProgressMessage(i, total))
		result.ChunksAttempted++

		// Once sent, a chunk is allowed to finish so its outcome is known
		if err := u.Upload(context.WithoutCancel(ctx), chunk); err != nil {
			notifier.Display(u.Title, MessageUploadFailed)
			log.Warn("batch upload failed",
				logger.Int("chunk", i),
				logger.Int("chunks_total", total),
				logger.Int("records", len(chunk)),
				logger.Error(err))
			result.Duration = time.Since(start)
			return result, errors.New(err).
				Component("upload").
				Category(errors.CategoryBatchUpload).
				BatchContext(u.Kind, i, total).
				Context("records", len(chunk)).
				Build()
		}

		if u.OnSuccess != nil {
			if err := u.OnSuccess(context.WithoutCancel(ctx), chunk); err != nil {
				log.Error("accepted batch could not be committed locally",
					logger.Int("chunk", i),
					logger.Int("records", len(chunk)),
					logger.Error(err))
				result.Duration = time.Since(start)
				return result, errors.New(err).
					Component("upload").
					Category(errors.CategoryDatabase).
					BatchContext(u.Kind, i, total).
					Context("operation", "commit_chunk").
					Build()
			}
		}

		result.ChunksCommitted++
		result.RecordsCommitted += len(chunk)
		log.Debug("batch committed",
			logger.Int("chunk", i),
			logger.Int("chunks_total", total),
			logger.Int("records", len(chunk)))
	}

	result.Duration = time.Since(start)
	return result, nil
}
