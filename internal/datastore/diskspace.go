package datastore

import (
	"github.com/safedriveafrica/drivesync/internal/errors"
	"github.com/safedriveafrica/drivesync/internal/logger"
)

// ErrInsufficientSpace indicates the database directory is below the
// configured free space floor.
var ErrInsufficientSpace = errors.NewStd("insufficient free disk space")

// checkFreeSpace fails when dir has less than minFreeMB megabytes available.
// A zero floor disables the check.
func checkFreeSpace(dir string, minFreeMB int) error {
	if minFreeMB <= 0 {
		return nil
	}

	free, err := freeBytes(dir)
	if err != nil {
		// An unknown filesystem must not block the store
		GetLogger().Warn("free space check failed",
			logger.String("path", dir),
			logger.Error(err))
		return nil
	}

	required := uint64(minFreeMB) << 20
	if free < required {
		return errors.New(ErrInsufficientSpace).
			Component("datastore").
			Category(errors.CategorySystem).
			Context("operation", "check_free_space").
			Context("path", dir).
			Context("free_mb", free>>20).
			Context("required_mb", minFreeMB).
			Build()
	}
	return nil
}
