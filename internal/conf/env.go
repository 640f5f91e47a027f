// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "DRIVESYNC_DEBUG", validateEnvBool},

		{"sync.batchsize", "DRIVESYNC_SYNC_BATCHSIZE", validateEnvBatchSize},
		{"sync.driverprofileid", "DRIVESYNC_SYNC_DRIVERPROFILEID", validateEnvUUID},

		{"api.baseurl", "DRIVESYNC_API_BASEURL", validateEnvURL},
		{"api.token", "DRIVESYNC_API_TOKEN", nil},

		{"connectivity.probeurl", "DRIVESYNC_CONNECTIVITY_PROBEURL", validateEnvURL},

		{"datastore.type", "DRIVESYNC_DATASTORE_TYPE", validateEnvDatastoreType},
		{"datastore.sqlite.path", "DRIVESYNC_SQLITE_PATH", nil},
		{"datastore.mysql.host", "DRIVESYNC_MYSQL_HOST", nil},
		{"datastore.mysql.port", "DRIVESYNC_MYSQL_PORT", validateEnvPort},
		{"datastore.mysql.username", "DRIVESYNC_MYSQL_USERNAME", nil},
		{"datastore.mysql.password", "DRIVESYNC_MYSQL_PASSWORD", nil},
		{"datastore.mysql.database", "DRIVESYNC_MYSQL_DATABASE", nil},

		{"sentry.enabled", "DRIVESYNC_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "DRIVESYNC_SENTRY_DSN", nil},

		{"server.listen", "DRIVESYNC_SERVER_LISTEN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		if envValue := os.Getenv(binding.EnvVar); envValue != "" {
			if err := binding.Validate(envValue); err != nil {
				// Secrets are never echoed back
				warnings = append(warnings, fmt.Sprintf("invalid %s value: %v", binding.EnvVar, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid boolean value, must be true/false/1/0")
	}
	return nil
}

func validateEnvBatchSize(value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("must be an integer")
	}
	if n < 1 || n > maxBatchSize {
		return fmt.Errorf("must be between 1 and %d", maxBatchSize)
	}
	return nil
}

func validateEnvUUID(value string) error {
	if _, err := uuid.Parse(value); err != nil {
		return fmt.Errorf("must be a UUID")
	}
	return nil
}

func validateEnvURL(value string) error {
	return validateHTTPURL(value)
}

func validateEnvDatastoreType(value string) error {
	switch value {
	case DatastoreSQLite, DatastoreMySQL:
		return nil
	default:
		return fmt.Errorf("must be %q or %q", DatastoreSQLite, DatastoreMySQL)
	}
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("must be a port number between 1 and 65535")
	}
	return nil
}

// validateHTTPURL accepts absolute http and https URLs
func validateHTTPURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must include a host")
	}
	return nil
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables() error {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return bindEnvVars()
}
