// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"

	"github.com/safedriveafrica/drivesync/internal/logger"
)

// DefaultBatchSize is the number of records uploaded per batch-create call.
const DefaultBatchSize = 500

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("sync.batchsize", DefaultBatchSize)
	viper.SetDefault("sync.driverprofileid", "")

	viper.SetDefault("api.baseurl", "http://localhost:8000")
	viper.SetDefault("api.token", "")
	viper.SetDefault("api.timeout", 30*time.Second)
	viper.SetDefault("api.useragent", "drivesync")

	viper.SetDefault("connectivity.requireinterface", true)
	viper.SetDefault("connectivity.probeurl", "")
	viper.SetDefault("connectivity.probetimeout", 5*time.Second)
	viper.SetDefault("connectivity.cachettl", 30*time.Second)

	viper.SetDefault("datastore.type", "sqlite")
	viper.SetDefault("datastore.slowquerythreshold", 200*time.Millisecond)
	viper.SetDefault("datastore.sqlite.path", "drivesync.db")
	viper.SetDefault("datastore.sqlite.minfreemb", 16)
	viper.SetDefault("datastore.mysql.host", "localhost")
	viper.SetDefault("datastore.mysql.port", 3306)
	viper.SetDefault("datastore.mysql.username", "drivesync")
	viper.SetDefault("datastore.mysql.password", "")
	viper.SetDefault("datastore.mysql.database", "drivesync")

	viper.SetDefault("logging.defaultlevel", logger.DefaultLogLevel)
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	viper.SetDefault("logging.console.level", logger.DefaultLogLevel)
	viper.SetDefault("logging.fileoutput.enabled", logger.DefaultFileEnabled)
	viper.SetDefault("logging.fileoutput.path", logger.DefaultLogPath)
	viper.SetDefault("logging.fileoutput.level", logger.DefaultLogLevel)

	viper.SetDefault("notification.queuesize", 64)
	viper.SetDefault("notification.ratelimit.persecond", 2.0)
	viper.SetDefault("notification.ratelimit.burst", 5)
	viper.SetDefault("notification.log.enabled", true)
	viper.SetDefault("notification.push.enabled", false)
	viper.SetDefault("notification.push.urls", []string{})
	viper.SetDefault("notification.push.timeout", 10*time.Second)
	viper.SetDefault("notification.mqtt.enabled", false)
	viper.SetDefault("notification.mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("notification.mqtt.topic", "drivesync/notifications")
	viper.SetDefault("notification.mqtt.clientid", "drivesync")
	viper.SetDefault("notification.mqtt.qos", 0)
	viper.SetDefault("notification.mqtt.retain", false)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.environment", "production")

	viper.SetDefault("server.listen", "127.0.0.1:8090")
}
