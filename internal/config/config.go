// Package config binds CLI flags, an optional config.yaml file, and
// SCRAPER_*-prefixed environment variables into one Config struct via
// github.com/spf13/viper, registered against github.com/spf13/cobra
// persistent flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config holds every run-time setting for a scrape invocation.
type Config struct {
	BaseURL                 string
	MaxWorkers              int
	Retries                 int
	Throttle                time.Duration
	Output                  string
	Cache                   bool
	CachePath               string
	ReviewExport            bool
	ExcludePrefix           []string
	Deadline                time.Duration
	LogJSON                 bool
	LogLevel                string
	UploadS3Bucket          string
	UploadS3Region          string
	UploadS3AccessKeyID     string
	UploadS3SecretAccessKey string
	UploadEmailTo           string
}

// BindFlags registers the command's persistent flags and binds them, a
// config file, and SCRAPER_* environment variables into v.
func BindFlags(cmd *cobra.Command, v *viper.Viper) error {
	flags := cmd.PersistentFlags()
	flags.String("base-url", "", "catalog site base URL")
	flags.Int("max-workers", 8, "worker-pool width per stage")
	flags.Int("retries", 2, "max retry attempts per request")
	flags.Float64("throttle", 0.7, "base inter-request sleep, in seconds")
	flags.String("output", "", "main result file (auto-timestamped if unset)")
	flags.Bool("cache", false, "enable the persistent content cache")
	flags.String("cache-path", "cache/catalog_cache.json", "path to the cache file")
	flags.Bool("review-export", false, "also emit the QC errors bucket")
	flags.StringSlice("exclude-prefix", nil, "category/product URL prefix to exclude (repeatable)")
	flags.Duration("deadline", 0, "overall run deadline (0 disables it)")
	flags.Bool("log-json", false, "emit JSON-encoded logs on the console core")
	flags.String("log-level", "info", "minimum log level")
	flags.String("upload-s3-bucket", "", "S3 bucket to upload the exported file to")
	flags.String("upload-s3-region", "", "AWS region for the S3 upload (defaults to the provider chain's)")
	flags.String("upload-s3-access-key-id", "", "static AWS access key ID (defaults to the provider chain)")
	flags.String("upload-s3-secret-access-key", "", "static AWS secret access key (defaults to the provider chain)")
	flags.String("upload-email-to", "", "email address to send the exported file to")
	flags.String("config", "", "path to a config.yaml file")

	if err := v.BindPFlags(flags); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	v.SetEnvPrefix("SCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile, _ := flags.GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("reading config file: %w", err)
		}
	}
	return nil
}

// Load materializes a Config from v after BindFlags has populated it.
func Load(v *viper.Viper) Config {
	return Config{
		BaseURL:                 v.GetString("base-url"),
		MaxWorkers:              v.GetInt("max-workers"),
		Retries:                 v.GetInt("retries"),
		Throttle:                time.Duration(v.GetFloat64("throttle") * float64(time.Second)),
		Output:                  v.GetString("output"),
		Cache:                   v.GetBool("cache"),
		CachePath:               v.GetString("cache-path"),
		ReviewExport:            v.GetBool("review-export"),
		ExcludePrefix:           v.GetStringSlice("exclude-prefix"),
		Deadline:                v.GetDuration("deadline"),
		LogJSON:                 v.GetBool("log-json"),
		LogLevel:                v.GetString("log-level"),
		UploadS3Bucket:          v.GetString("upload-s3-bucket"),
		UploadS3Region:          v.GetString("upload-s3-region"),
		UploadS3AccessKeyID:     v.GetString("upload-s3-access-key-id"),
		UploadS3SecretAccessKey: v.GetString("upload-s3-secret-access-key"),
		UploadEmailTo:           v.GetString("upload-email-to"),
	}
}

// DefaultOutputPath returns an auto-timestamped destination when Output is
// unset, honoring ext ("csv" or "xlsx").
func (c Config) DefaultOutputPath(now time.Time, ext string) string {
	if c.Output != "" {
		return c.Output
	}
	return fmt.Sprintf("export/catalog_%s.%s", now.Format("20060102_150405"), ext)
}
