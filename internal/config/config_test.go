package config

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindFlagsDefaults(t *testing.T) {
	cmd := &cobra.Command{Use: "scrape"}
	v := viper.New()
	require.NoError(t, BindFlags(cmd, v))

	cfg := Load(v)
	assert.Equal(t, 8, cfg.MaxWorkers)
	assert.Equal(t, 2, cfg.Retries)
	assert.Equal(t, 700*time.Millisecond, cfg.Throttle)
	assert.False(t, cfg.Cache)
	assert.False(t, cfg.ReviewExport)
	assert.Empty(t, cfg.UploadS3Bucket)
	assert.Empty(t, cfg.UploadS3AccessKeyID)
}

func TestBindFlagsOverridesFromFlagValue(t *testing.T) {
	cmd := &cobra.Command{Use: "scrape"}
	v := viper.New()
	require.NoError(t, BindFlags(cmd, v))
	require.NoError(t, cmd.PersistentFlags().Set("max-workers", "16"))
	require.NoError(t, cmd.PersistentFlags().Set("cache", "true"))

	cfg := Load(v)
	assert.Equal(t, 16, cfg.MaxWorkers)
	assert.True(t, cfg.Cache)
}

func TestDefaultOutputPathAutoTimestamped(t *testing.T) {
	cfg := Config{}
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	path := cfg.DefaultOutputPath(now, "csv")
	assert.Equal(t, "export/catalog_20260730_120000.csv", path)
}

func TestDefaultOutputPathHonorsExplicitOutput(t *testing.T) {
	cfg := Config{Output: "out/custom.xlsx"}
	assert.Equal(t, "out/custom.xlsx", cfg.DefaultOutputPath(time.Now(), "csv"))
}
