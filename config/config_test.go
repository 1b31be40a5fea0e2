package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopeasy/models"
)

// clearEnv blanks every key Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ENABLED_SOURCES", "SOURCE_TIMEOUT", "MAX_RESULTS_PER_SOURCE", "TOP_N", "MAX_TOP_N",
		"WEIGHT_PRICE", "WEIGHT_RATING", "WEIGHT_REVIEWS", "WEIGHT_DELIVERY", "WEIGHT_RETURN",
		"DELIVERY_CEILING_DAYS", "TITLE_MAX_LEN", "MAX_RETRIES", "RATE_LIMIT_MS", "HEADLESS",
		"STORAGE_DRIVER", "SOURCES_FILE", "KAFKA_BROKERS", "HTTP_ADDR", "SMTP_HOST", "SMTP_FROM",
	} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.SourceTimeout)
	assert.Equal(t, 5, cfg.MaxResultsPerSource)
	assert.Equal(t, 10, cfg.TopN)
	assert.Equal(t, models.DefaultWeights(), cfg.Weights)
	assert.Equal(t, StorageNone, cfg.StorageDriver)
	assert.True(t, cfg.Headless)
	assert.Len(t, cfg.Sites, 5)
	assert.Equal(t, ":5000", cfg.HTTPAddr)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENABLED_SOURCES", "Flipkart, amazon,flipkart")
	t.Setenv("SOURCE_TIMEOUT", "20")
	t.Setenv("WEIGHT_PRICE", "1")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("RATE_LIMIT_MS", "250")

	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.Sites, 2)
	assert.Equal(t, "flipkart", cfg.Sites[0].Name)
	assert.Equal(t, "amazon", cfg.Sites[1].Name)
	assert.Equal(t, 20*time.Second, cfg.SourceTimeout)
	assert.Equal(t, 1.0, cfg.Weights.Price)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 250*time.Millisecond, cfg.RateLimit())
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want error
	}{
		{"unknown source", "ENABLED_SOURCES", "walmart", ErrUnknownSource},
		{"negative weight", "WEIGHT_RATING", "-0.5", ErrInvalidWeights},
		{"zero timeout", "SOURCE_TIMEOUT", "0s", ErrInvalidConfig},
		{"zero max results", "MAX_RESULTS_PER_SOURCE", "0", ErrInvalidConfig},
		{"bad storage", "STORAGE_DRIVER", "mongo", ErrInvalidConfig},
		{"top above max", "TOP_N", "50", ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadZeroEnvWeightsAreAllowed(t *testing.T) {
	clearEnv(t)
	for _, k := range []string{"WEIGHT_PRICE", "WEIGHT_RATING", "WEIGHT_REVIEWS", "WEIGHT_DELIVERY", "WEIGHT_RETURN"} {
		t.Setenv(k, "0")
	}
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, models.DefaultWeights(), cfg.Weights.Normalized())
}

func TestLoadSourcesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("SOURCES_FILE", writeFile(t, `
weights:
  price: 0.5
  rating: 0.5
sources:
  - name: amazon
    timeout: 20s
  - name: ebay
    enabled: false
  - name: localshop
    base_url: https://local.example
    search_url: https://local.example/find?q={query}
    selectors:
      card: [".item"]
      title: [".name"]
      price: [".cost"]
`))

	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.Sites, 2)

	assert.Equal(t, "amazon", cfg.Sites[0].Name)
	assert.Equal(t, 20*time.Second, cfg.Sites[0].Timeout)
	assert.NotEmpty(t, cfg.Sites[0].Selectors.Card, "built-in selectors should survive the overlay")

	assert.Equal(t, "localshop", cfg.Sites[1].Name)
	assert.Equal(t, "https://local.example/find?q=tv", cfg.Sites[1].URLFor("tv"))
	assert.Equal(t, 0.5, cfg.Weights.Price)
	assert.Equal(t, 0.0, cfg.Weights.Reviews)
}

func TestLoadSourcesFileZeroWeights(t *testing.T) {
	clearEnv(t)
	t.Setenv("SOURCES_FILE", writeFile(t, "weights:\n  price: 0\n"))
	_, err := Load()
	assert.ErrorIs(t, err, ErrInvalidWeights)
}

func TestLoadSourcesFileMissing(t *testing.T) {
	clearEnv(t)
	t.Setenv("SOURCES_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	cfg := &Config{PostgresHost: "db", PostgresPort: "5432", PostgresUser: "u", PostgresPassword: "p",
		PostgresDB: "shop", PostgresSSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=shop sslmode=disable", cfg.DSN())
}
