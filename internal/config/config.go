// Package config provides service configuration via viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort     int `mapstructure:"http_port"`
	InternalPort int `mapstructure:"internal_port"`

	// Persistent store
	StoreDriver string `mapstructure:"store_driver"` // memory|sqlite|badger|postgres
	StoreDSN    string `mapstructure:"store_dsn"`

	// Blob storage for uploads and exports
	BlobDriver      string `mapstructure:"blob_driver"` // fs|s3|memory
	BlobRoot        string `mapstructure:"blob_root"`
	BlobS3Bucket    string `mapstructure:"blob_s3_bucket"`
	BlobS3Region    string `mapstructure:"blob_s3_region"`
	BlobS3Endpoint  string `mapstructure:"blob_s3_endpoint"`
	BlobS3PathStyle bool   `mapstructure:"blob_s3_path_style"`

	// News feed
	NewsFeedURL string `mapstructure:"news_feed_url"`
}

// Load reads configuration from an optional crispy.yaml and CRISPY_* env
// variables, env taking precedence.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("crispy")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/crispy")

	v.SetDefault("http_port", 8000)
	v.SetDefault("internal_port", 8001)
	v.SetDefault("store_driver", "badger")
	v.SetDefault("store_dsn", "./crispy-data")
	v.SetDefault("blob_driver", "fs")
	v.SetDefault("blob_root", "./crispy-uploads")
	v.SetDefault("blob_s3_region", "us-east-1")
	v.SetDefault("news_feed_url", "https://news.secondarymetabolites.org/feeds/tag-crispy.atom.xml")

	v.SetEnvPrefix("CRISPY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional; defaults plus env are enough.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}
