package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	S3       S3Config       `mapstructure:"s3"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Import   ImportConfig   `mapstructure:"import"`
	Calendar CalendarConfig `mapstructure:"calendar"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig selects the document store. Driver is "mongo" or "memory".
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	URI    string `mapstructure:"uri"`
	Name   string `mapstructure:"name"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"` // scheme for an Endpoint given as host:port
}

// Enabled reports whether a bucket is configured.
func (c S3Config) Enabled() bool {
	return c.BucketName != ""
}

// JWTConfig validates bearer tokens issued by the auth provider.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	// Leeway tolerates clock skew on exp/nbf claims.
	Leeway time.Duration `mapstructure:"leeway"`
}

type ImportConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`
	SampleRows   int `mapstructure:"sample_rows"`
	PreviewLimit int `mapstructure:"preview_limit"`
}

type CalendarConfig struct {
	DeletePolicy string `mapstructure:"delete_policy"`
}

// KafkaConfig enables event publishing when Brokers is not empty.
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"` // comma separated
	Topic   string `mapstructure:"topic"`
}

// BrokerList splits Brokers, dropping blanks.
func (c KafkaConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(c.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// --- Environment Variable Handling ---
	v.AutomaticEnv()
	// server.address -> SERVER_ADDRESS
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	// --- Defaults ---
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("database.driver", "mongo")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "tri_tracker")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.leeway", "30s")
	v.SetDefault("import.chunk_size", 450)
	v.SetDefault("import.sample_rows", 50)
	v.SetDefault("import.preview_limit", 8)
	v.SetDefault("calendar.delete_policy", "orphan")
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "tri_tracker_events")

	// --- Read Config File ---
	err = v.ReadInConfig()
	// A missing file is fine; env vars and defaults still apply.
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return
	}

	// Duration strings ("30s", "1m") decode straight into time.Duration.
	if err = v.Unmarshal(&config); err != nil {
		return
	}
	return config, config.Validate()
}

// Validate rejects settings the process cannot start with.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "mongo", "memory":
	default:
		return fmt.Errorf("database.driver must be mongo or memory, got %q", c.Database.Driver)
	}
	if c.Import.ChunkSize <= 0 {
		return errors.New("import.chunk_size must be positive")
	}
	switch strings.ToLower(c.Calendar.DeletePolicy) {
	case "orphan", "cascade":
	default:
		return fmt.Errorf("calendar.delete_policy must be orphan or cascade, got %q", c.Calendar.DeletePolicy)
	}
	return nil
}
