package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func newTestViper(values map[string]interface{}) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func TestDefaultsPointAtLoopbackBackend(t *testing.T) {
	cfg := fromViper(newTestViper(nil))

	assert.Equal(t, DefaultAPIBaseURL, cfg.Backend.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, 6, cfg.Dashboard.SearchLimit)
	assert.False(t, cfg.Cache.Enabled)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestBaseURLFallsBackToViteKey(t *testing.T) {
	cfg := fromViper(newTestViper(map[string]interface{}{"VITE_API_URL": "http://backend:5000/"}))
	assert.Equal(t, "http://backend:5000", cfg.Backend.BaseURL)

	cfg = fromViper(newTestViper(map[string]interface{}{
		"VITE_API_URL": "http://ignored:5000",
		"API_BASE_URL": "http://primary:5000",
	}))
	assert.Equal(t, "http://primary:5000", cfg.Backend.BaseURL)
}

func TestInvalidDurationsAndLimitsFallBack(t *testing.T) {
	cfg := fromViper(newTestViper(map[string]interface{}{
		"API_TIMEOUT":            "soon",
		"CACHE_TTL":              "",
		"DASHBOARD_SEARCH_LIMIT": -1,
	}))
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 6, cfg.Dashboard.SearchLimit)
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"http://a", "http://b"}, splitAndTrim(" http://a , ,http://b "))
}

func TestExportArchiveSettings(t *testing.T) {
	cfg := fromViper(newTestViper(nil))
	assert.Equal(t, "./exports", cfg.Export.Dir)
	assert.Empty(t, cfg.Export.LinkSecret)
	assert.Equal(t, time.Hour, cfg.Export.LinkTTL)

	cfg = fromViper(newTestViper(map[string]interface{}{
		"EXPORT_LINK_SECRET": "s3cret",
		"EXPORT_LINK_TTL":    "15m",
	}))
	assert.Equal(t, "s3cret", cfg.Export.LinkSecret)
	assert.Equal(t, 15*time.Minute, cfg.Export.LinkTTL)
}
