// Package config holds the honeypot's runtime configuration: the flags
// documented in the CLI plus their component-specific defaults.
package config

import "time"

// Config is the fully resolved set of flags the CLI binds via viper.
type Config struct {
	Host            HostPort      `mapstructure:"host"`
	MongoHost       HostPort      `mapstructure:"mongo-host"`
	CheckInterval   time.Duration `mapstructure:"check-interval"`
	Verbose         bool          `mapstructure:"verbose"`
	LogFile         string        `mapstructure:"log-file"`
	Debug           bool          `mapstructure:"debug"`
	MaxMessageBytes int32         `mapstructure:"max-message-bytes"`
}

// Default component endpoints, mirroring the honeypot prototype's
// default_host / default_mongo_host.
const (
	DefaultHostAddress  = "localhost"
	DefaultHostPort     = 27017
	DefaultMongoAddress = "localhost"
	DefaultMongoPort    = 27016

	DefaultCheckInterval   = 5 * time.Second
	DefaultLogFile         = "mongohoneypot.log"
	DefaultMaxMessageBytes = 48 * 1024 * 1024
)

// New returns a Config populated with every component default.
func New() *Config {
	return &Config{
		Host:            *NewHostPort(DefaultHostAddress, DefaultHostPort),
		MongoHost:       *NewHostPort(DefaultMongoAddress, DefaultMongoPort),
		CheckInterval:   DefaultCheckInterval,
		LogFile:         DefaultLogFile,
		MaxMessageBytes: DefaultMaxMessageBytes,
	}
}
