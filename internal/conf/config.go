// Package conf provides configuration management for drivesync.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/safedriveafrica/drivesync/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// Settings contains all configuration options for drivesync.
type Settings struct {
	Debug bool // true to enable debug mode

	Sync         SyncSettings         // sync run behaviour
	API          APISettings          // remote batch-create service
	Connectivity ConnectivitySettings // pre-flight connectivity gate
	Datastore    DatastoreSettings    // local record store
	Logging      logger.LoggingConfig // central logger configuration
	Notification NotificationSettings // progress notification delivery
	Sentry       SentrySettings       // error telemetry
	Server       ServerSettings       // serve command HTTP listener
}

// SyncSettings controls a sync run.
type SyncSettings struct {
	BatchSize       int    // maximum records per batch-create call
	DriverProfileID string // driver profile attached to raw sensor uploads
}

// APISettings holds the remote service connection settings.
type APISettings struct {
	BaseURL   string        // e.g. https://api.safedriveafrica.com
	Token     string        // bearer token sent with every request, optional
	Timeout   time.Duration // per-request transport timeout
	UserAgent string        // User-Agent header value
}

// ConnectivitySettings configures the connectivity gate.
type ConnectivitySettings struct {
	RequireInterface bool          // require an up, non-loopback network interface
	ProbeURL         string        // optional URL probed with GET; empty disables the probe
	ProbeTimeout     time.Duration // timeout of the probe request
	CacheTTL         time.Duration // how long a probe result is reused; 0 disables caching
}

// DatastoreSettings selects and configures the local record store.
type DatastoreSettings struct {
	Type               string         // sqlite or mysql
	SQLite             SQLiteSettings // sqlite options
	MySQL              MySQLSettings  // mysql options
	SlowQueryThreshold time.Duration  // queries slower than this are logged as warnings
}

// SQLiteSettings contains settings for the SQLite store.
type SQLiteSettings struct {
	Path      string // path to the database file
	MinFreeMB int    // refuse to open below this much free space; 0 disables
}

// MySQLSettings contains settings for the MySQL store.
type MySQLSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
}

// NotificationSettings configures where progress notifications go.
type NotificationSettings struct {
	QueueSize int                // buffered notifications before new ones are dropped
	RateLimit RateLimitSettings  // push/MQTT delivery rate limit
	Log       LogNotifySettings  // notifications written to the application log
	Push      PushSettings       // shoutrrr URLs
	MQTT      MQTTNotifySettings // MQTT publishing
}

// RateLimitSettings bounds outbound notification delivery.
type RateLimitSettings struct {
	PerSecond float64
	Burst     int
}

// LogNotifySettings enables the log notification provider.
type LogNotifySettings struct {
	Enabled bool
}

// PushSettings configures shoutrrr push delivery.
type PushSettings struct {
	Enabled bool
	URLs    []string      // shoutrrr service URLs
	Timeout time.Duration // per-send timeout
}

// MQTTNotifySettings configures MQTT publishing of notifications.
type MQTTNotifySettings struct {
	Enabled  bool
	Broker   string // tcp://host:1883
	Topic    string
	ClientID string
	Username string
	Password string
	QoS      int
	Retain   bool
}

// SentrySettings configures error telemetry.
type SentrySettings struct {
	Enabled     bool
	DSN         string
	Environment string
}

// ServerSettings configures the serve command.
type ServerSettings struct {
	Listen string // host:port
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	return LoadFrom("")
}

// LoadFrom reads configuration from configFile, or from the default search
// paths when configFile is empty.
func LoadFrom(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper sets defaults, environment bindings and reads the configuration file.
func initViper(configFile string) error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	setDefaultConfig()

	if err := configureEnvironmentVariables(); err != nil {
		// Invalid environment values are reported but do not block startup
		GetLogger().Warn("environment variable issues", logger.Error(err))
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("fatal error reading config file %s: %w", configFile, err)
		}
		return nil
	}

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig(configPaths[0])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded default config into dir and reads it
func createDefaultConfig(dir string) error {
	configPath := filepath.Join(dir, "config.yaml")

	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return fmt.Errorf("error reading embedded default config: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	GetLogger().Info("created default config file", logger.String("path", configPath))
	return viper.ReadInConfig()
}

// GetSettings returns the settings loaded by the last successful Load call
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}
