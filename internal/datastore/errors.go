// Package datastore persists the locally buffered telemetry records and
// exposes one repository per record kind.
package datastore

import (
	"strconv"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"

	"github.com/safedriveafrica/drivesync/internal/errors"
	"github.com/safedriveafrica/drivesync/internal/logger"
)

// Sentinel errors for datastore operations.
var (
	// ErrNotInitialized indicates the store has no open database connection.
	ErrNotInitialized = errors.NewStd("datastore not initialized")

	// ErrUnsupportedType indicates an unknown datastore type in the configuration.
	ErrUnsupportedType = errors.NewStd("unsupported datastore type")
)

// maxIDsPerStatement bounds IN clauses to stay below SQL parameter limits.
const maxIDsPerStatement = 500

// GetLogger returns the datastore package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("datastore")
}

// dbError creates a properly categorized database error with context
func dbError(err error, operation string, kind Kind, context ...any) error {
	builder := errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation)

	if kind != "" {
		builder = builder.Context("kind", string(kind))
	}

	if code, transient, ok := driverCode(err); ok {
		builder = builder.Context("driver_code", code).Context("transient", transient)
	}

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// MySQL lock wait timeout and deadlock.
const (
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// driverCode extracts the driver error code. transient is set for lock
// contention, which clears on a later run.
func driverCode(err error) (code string, transient, ok bool) {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			transient = true
		}
		return "sqlite:" + sqliteErr.Code.Error(), transient, true
	}

	var mysqlErr *mysqldriver.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case mysqlLockWaitTimeout, mysqlDeadlock:
			transient = true
		}
		return "mysql:" + strconv.Itoa(int(mysqlErr.Number)), transient, true
	}
	return "", false, false
}

// IsTransient reports whether err is a lock contention failure from the
// database driver.
func IsTransient(err error) bool {
	var ee *errors.EnhancedError
	if !errors.As(err, &ee) {
		return false
	}
	transient, _ := ee.GetContext()["transient"].(bool)
	return transient
}
