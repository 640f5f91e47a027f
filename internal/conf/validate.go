// conf/validate.go

package conf

import (
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
)

// Datastore types
const (
	DatastoreSQLite = "sqlite"
	DatastoreMySQL  = "mysql"
)

const maxBatchSize = 10000

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) error{
		func(s *Settings) error { return validateSyncSettings(&s.Sync) },
		func(s *Settings) error { return validateAPISettings(&s.API) },
		func(s *Settings) error { return validateConnectivitySettings(&s.Connectivity) },
		func(s *Settings) error { return validateDatastoreSettings(&s.Datastore) },
		func(s *Settings) error { return validateLoggingSettings(s) },
		func(s *Settings) error { return validateNotificationSettings(&s.Notification) },
		func(s *Settings) error { return validateSentrySettings(&s.Sentry) },
		func(s *Settings) error { return validateServerSettings(&s.Server) },
	}

	for _, validate := range validators {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// validateSyncSettings validates batch size and the optional driver profile id.
// A missing driver profile id is not a config error; the raw sensor stage reports it.
func validateSyncSettings(settings *SyncSettings) error {
	if settings.BatchSize < 1 || settings.BatchSize > maxBatchSize {
		return fmt.Errorf("sync.batchsize must be between 1 and %d, got %d", maxBatchSize, settings.BatchSize)
	}
	if settings.DriverProfileID != "" {
		if _, err := uuid.Parse(settings.DriverProfileID); err != nil {
			return fmt.Errorf("sync.driverprofileid must be a UUID: %w", err)
		}
	}
	return nil
}

func validateAPISettings(settings *APISettings) error {
	if settings.BaseURL == "" {
		return fmt.Errorf("api.baseurl is required")
	}
	if err := validateHTTPURL(settings.BaseURL); err != nil {
		return fmt.Errorf("api.baseurl: %w", err)
	}
	if settings.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	return nil
}

func validateConnectivitySettings(settings *ConnectivitySettings) error {
	if settings.ProbeURL != "" {
		if err := validateHTTPURL(settings.ProbeURL); err != nil {
			return fmt.Errorf("connectivity.probeurl: %w", err)
		}
	}
	if settings.CacheTTL < 0 || settings.ProbeTimeout < 0 {
		return fmt.Errorf("connectivity durations must not be negative")
	}
	return nil
}

func validateDatastoreSettings(settings *DatastoreSettings) error {
	switch settings.Type {
	case DatastoreSQLite:
		if strings.TrimSpace(settings.SQLite.Path) == "" {
			return fmt.Errorf("datastore.sqlite.path is required for sqlite")
		}
	case DatastoreMySQL:
		var missing []string
		if settings.MySQL.Host == "" {
			missing = append(missing, "host")
		}
		if settings.MySQL.Database == "" {
			missing = append(missing, "database")
		}
		if settings.MySQL.Username == "" {
			missing = append(missing, "username")
		}
		if len(missing) > 0 {
			return fmt.Errorf("datastore.mysql is missing %s", strings.Join(missing, ", "))
		}
		if settings.MySQL.Port < 1 || settings.MySQL.Port > 65535 {
			return fmt.Errorf("datastore.mysql.port must be between 1 and 65535")
		}
	default:
		return fmt.Errorf("datastore.type must be %q or %q, got %q", DatastoreSQLite, DatastoreMySQL, settings.Type)
	}
	return nil
}

func validateLoggingSettings(settings *Settings) error {
	levels := map[string]string{"logging.defaultlevel": settings.Logging.DefaultLevel}
	if settings.Logging.Console != nil {
		levels["logging.console.level"] = settings.Logging.Console.Level
	}
	if settings.Logging.FileOutput != nil {
		levels["logging.fileoutput.level"] = settings.Logging.FileOutput.Level
		if settings.Logging.FileOutput.Enabled && settings.Logging.FileOutput.Path == "" {
			return fmt.Errorf("logging.fileoutput.path is required when file output is enabled")
		}
	}
	for module, level := range settings.Logging.ModuleLevels {
		levels["logging.modulelevels."+module] = level
	}

	for key, level := range levels {
		switch level {
		case "", "trace", "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("%s has unknown level %q", key, level)
		}
	}
	return nil
}

func validateNotificationSettings(settings *NotificationSettings) error {
	if settings.QueueSize < 1 {
		return fmt.Errorf("notification.queuesize must be at least 1")
	}
	if settings.RateLimit.PerSecond < 0 || settings.RateLimit.Burst < 0 {
		return fmt.Errorf("notification.ratelimit values must not be negative")
	}
	if settings.Push.Enabled && len(settings.Push.URLs) == 0 {
		return fmt.Errorf("notification.push.urls must contain at least one URL when push is enabled")
	}
	if settings.MQTT.Enabled {
		if settings.MQTT.Broker == "" || settings.MQTT.Topic == "" {
			return fmt.Errorf("notification.mqtt.broker and topic are required when MQTT is enabled")
		}
		if settings.MQTT.QoS < 0 || settings.MQTT.QoS > 2 {
			return fmt.Errorf("notification.mqtt.qos must be 0, 1 or 2")
		}
	}
	return nil
}

func validateSentrySettings(settings *SentrySettings) error {
	if settings.Enabled && settings.DSN == "" {
		return fmt.Errorf("sentry.dsn is required when sentry is enabled")
	}
	return nil
}

func validateServerSettings(settings *ServerSettings) error {
	if settings.Listen == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(settings.Listen); err != nil {
		return fmt.Errorf("server.listen must be host:port: %w", err)
	}
	return nil
}
