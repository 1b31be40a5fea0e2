package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"shopeasy/models"
	"shopeasy/scraper/browser"
)

var (
	ErrNoSources      = errors.New("no enabled sources")
	ErrUnknownSource  = errors.New("unknown source")
	ErrInvalidWeights = errors.New("invalid weights")
	ErrInvalidConfig  = errors.New("invalid config")
)

// Storage drivers.
const (
	StorageNone     = "none"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// Config holds all application configuration loaded from the environment
// and the optional sources file.
type Config struct {
	LogLevel string

	EnabledSources      []string
	SourceTimeout       time.Duration
	MaxResultsPerSource int
	TopN                int
	MaxTopN             int
	Weights             models.Weights
	DeliveryCeilingDays float64
	TitleMaxLen         int
	MaxRetries          int
	RateLimitMs         int

	ChromeBin string
	Headless  bool

	StorageDriver    string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	SQLitePath       string
	CSVOutputPath    string

	KafkaBrokers []string
	KafkaTopic   string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	HTTPAddr    string
	SourcesFile string

	// Sites are the resolved, enabled browser sources in configuration order.
	Sites []browser.Site
	// EnvFileLoaded reports whether a .env file was found.
	EnvFileLoaded bool

	weightsFromFile bool
}

// sourcesFile is the YAML layout of SOURCES_FILE.
type sourcesFile struct {
	Weights *models.Weights `yaml:"weights"`
	Sources []sourceEntry   `yaml:"sources"`
}

type sourceEntry struct {
	browser.Site `yaml:",inline"`
	Enabled      *bool `yaml:"enabled"`
}

// Load reads the .env file, the environment and SOURCES_FILE, then
// validates the result.
func Load() (*Config, error) {
	envLoaded := godotenv.Load() == nil

	weights := models.Weights{
		Price:        getEnvFloat("WEIGHT_PRICE", models.DefaultWeights().Price),
		Rating:       getEnvFloat("WEIGHT_RATING", models.DefaultWeights().Rating),
		Reviews:      getEnvFloat("WEIGHT_REVIEWS", models.DefaultWeights().Reviews),
		DeliveryTime: getEnvFloat("WEIGHT_DELIVERY", models.DefaultWeights().DeliveryTime),
		ReturnPolicy: getEnvFloat("WEIGHT_RETURN", models.DefaultWeights().ReturnPolicy),
	}

	cfg := &Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),

		EnabledSources:      getEnvList("ENABLED_SOURCES"),
		SourceTimeout:       getEnvDuration("SOURCE_TIMEOUT", 45*time.Second),
		MaxResultsPerSource: getEnvInt("MAX_RESULTS_PER_SOURCE", 5),
		TopN:                getEnvInt("TOP_N", 10),
		MaxTopN:             getEnvInt("MAX_TOP_N", 20),
		Weights:             weights,
		DeliveryCeilingDays: getEnvFloat("DELIVERY_CEILING_DAYS", 30),
		TitleMaxLen:         getEnvInt("TITLE_MAX_LEN", 200),
		MaxRetries:          getEnvInt("MAX_RETRIES", 2),
		RateLimitMs:         getEnvInt("RATE_LIMIT_MS", 0),

		ChromeBin: getEnv("CHROME_BIN", ""),
		Headless:  getEnvBool("HEADLESS", true),

		StorageDriver:    strings.ToLower(getEnv("STORAGE_DRIVER", StorageNone)),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "shopeasy"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "shopeasy"),
		PostgresDB:       getEnv("POSTGRES_DB", "shopeasy"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		SQLitePath:       getEnv("SQLITE_PATH", "./output/shopeasy.db"),
		CSVOutputPath:    getEnv("CSV_OUTPUT_PATH", "./output/listings.csv"),

		KafkaBrokers: getEnvList("KAFKA_BROKERS"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "shopeasy.alerts"),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),

		HTTPAddr:    getEnv("HTTP_ADDR", ":5000"),
		SourcesFile: getEnv("SOURCES_FILE", ""),

		EnvFileLoaded: envLoaded,
	}

	known := browser.Catalogue()
	defaultEnabled := browser.Names()

	if cfg.SourcesFile != "" {
		file, err := readSourcesFile(cfg.SourcesFile)
		if err != nil {
			return nil, err
		}
		if file.Weights != nil {
			cfg.Weights = *file.Weights
			cfg.weightsFromFile = true
		}
		if len(file.Sources) > 0 {
			known, defaultEnabled = mergeSources(known, file.Sources)
		}
	}

	names := cfg.EnabledSources
	if len(names) == 0 {
		names = defaultEnabled
	}
	sites, err := pickSites(known, names)
	if err != nil {
		return nil, err
	}
	cfg.Sites = sites
	cfg.EnabledSources = names

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if len(c.Sites) == 0 {
		return ErrNoSources
	}
	for _, s := range c.Sites {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}

	w := c.Weights
	for _, v := range []float64{w.Price, w.Rating, w.Reviews, w.DeliveryTime, w.ReturnPolicy} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: weights must be finite and non-negative", ErrInvalidWeights)
		}
	}
	if c.weightsFromFile && w.Sum() <= 0 {
		return fmt.Errorf("%w: weights in %s sum to zero", ErrInvalidWeights, c.SourcesFile)
	}

	switch {
	case c.SourceTimeout <= 0:
		return fmt.Errorf("%w: SOURCE_TIMEOUT must be positive", ErrInvalidConfig)
	case c.MaxResultsPerSource < 1:
		return fmt.Errorf("%w: MAX_RESULTS_PER_SOURCE must be at least 1", ErrInvalidConfig)
	case c.TitleMaxLen < 1:
		return fmt.Errorf("%w: TITLE_MAX_LEN must be at least 1", ErrInvalidConfig)
	case c.TopN < 1 || c.MaxTopN < c.TopN:
		return fmt.Errorf("%w: need 1 <= TOP_N <= MAX_TOP_N", ErrInvalidConfig)
	case c.DeliveryCeilingDays <= 0:
		return fmt.Errorf("%w: DELIVERY_CEILING_DAYS must be positive", ErrInvalidConfig)
	}

	switch c.StorageDriver {
	case StorageNone, StoragePostgres, StorageSQLite:
	default:
		return fmt.Errorf("%w: unknown STORAGE_DRIVER %q", ErrInvalidConfig, c.StorageDriver)
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// RateLimit is the minimum spacing between calls to the same source.
func (c *Config) RateLimit() time.Duration {
	return time.Duration(c.RateLimitMs) * time.Millisecond
}

// EmailEnabled reports whether SMTP settings are complete enough to send mail.
func (c *Config) EmailEnabled() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

func readSourcesFile(path string) (*sourcesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read sources file: %w", err)
	}
	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &file, nil
}

// mergeSources layers file entries over the built-in catalogue. Entries
// naming a built-in site only override the fields they set. It returns the
// known sites and, in file order, the names the file enables.
func mergeSources(builtin []browser.Site, entries []sourceEntry) ([]browser.Site, []string) {
	known := append([]browser.Site(nil), builtin...)
	index := make(map[string]int, len(known))
	for i, s := range known {
		index[s.Name] = i
	}

	var enabled []string
	for _, e := range entries {
		e.Name = strings.ToLower(strings.TrimSpace(e.Name))
		if i, ok := index[e.Name]; ok {
			known[i] = overlay(known[i], e.Site)
		} else {
			index[e.Name] = len(known)
			known = append(known, e.Site)
		}
		if e.Enabled == nil || *e.Enabled {
			enabled = append(enabled, e.Name)
		}
	}
	return known, enabled
}

func overlay(base, o browser.Site) browser.Site {
	if o.BaseURL != "" {
		base.BaseURL = o.BaseURL
	}
	if o.SearchURL != "" {
		base.SearchURL = o.SearchURL
	}
	if o.QuerySeparator != "" {
		base.QuerySeparator = o.QuerySeparator
	}
	if o.Timeout != 0 {
		base.Timeout = o.Timeout
	}
	sel := &base.Selectors
	for _, f := range []struct{ dst *[]string; src []string }{
		{&sel.Card, o.Selectors.Card},
		{&sel.Title, o.Selectors.Title},
		{&sel.Price, o.Selectors.Price},
		{&sel.Link, o.Selectors.Link},
		{&sel.Rating, o.Selectors.Rating},
		{&sel.Reviews, o.Selectors.Reviews},
		{&sel.Delivery, o.Selectors.Delivery},
	} {
		if len(f.src) > 0 {
			*f.dst = f.src
		}
	}
	return base
}

func pickSites(known []browser.Site, names []string) ([]browser.Site, error) {
	byName := make(map[string]browser.Site, len(known))
	for _, s := range known {
		byName[s.Name] = s
	}

	seen := make(map[string]bool, len(names))
	sites := make([]browser.Site, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" || seen[n] {
			continue
		}
		s, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSource, n)
		}
		seen[n] = true
		sites = append(sites, s)
	}
	return sites, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("45s") or plain seconds ("45").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if n, err := strconv.Atoi(val); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func getEnvList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
