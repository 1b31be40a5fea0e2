package cli

import (
	"context"

	"shopeasy/config"
	"shopeasy/metrics"
	"shopeasy/notify"
	"shopeasy/scraper"
	"shopeasy/scraper/browser"
	"shopeasy/services"
	"shopeasy/storage"
	"shopeasy/utils"
)

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logger := utils.NewLogger(utils.ParseLevel(level))
	if !cfg.EnvFileLoaded {
		logger.Debug("[config] No .env file found, falling back to system env vars")
	}
	logger.Debug("[config] sources: %v | timeout: %s | per source: %d | top: %d | rate: %dms",
		cfg.EnabledSources, cfg.SourceTimeout, cfg.MaxResultsPerSource, cfg.TopN, cfg.RateLimitMs)

	a := &app{cfg: cfg, logger: logger, metrics: metrics.New()}

	sources := make([]scraper.Source, 0, len(cfg.Sites))
	for _, site := range cfg.Sites {
		sources = append(sources, browser.New(site, browser.Options{
			ChromeBin:  cfg.ChromeBin,
			Headless:   cfg.Headless,
			MaxRetries: cfg.MaxRetries,
		}, logger))
	}

	agg := services.NewAggregator(sources, services.NewNormalizer(logger, cfg.TitleMaxLen), services.AggregatorOptions{
		Timeout:  cfg.SourceTimeout,
		Gate:     utils.NewRateGate(cfg.RateLimit()),
		Observer: a.metrics,
	}, logger)

	opts := []services.SearchOption{services.WithSearchObserver(a.metrics)}

	if cfg.StorageDriver != config.StorageNone {
		dsn := cfg.SQLitePath
		if cfg.StorageDriver == config.StoragePostgres {
			dsn = cfg.DSN()
		}
		store, err := storage.Open(ctx, cfg.StorageDriver, dsn)
		if err != nil {
			logger.Error("[storage] %v; search history disabled", err)
		} else {
			a.store = store
			a.closers = append(a.closers, store.Close)
			opts = append(opts, services.WithRunRecorder(store))
		}
	}

	var notifiers notify.Multi
	if len(cfg.KafkaBrokers) > 0 {
		pub := notify.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		notifiers = append(notifiers, pub)
		a.closers = append(a.closers, pub.Close)
	}
	if cfg.EmailEnabled() {
		notifiers = append(notifiers, notify.NewEmailNotifier(notify.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}, logger))
	}
	if len(notifiers) > 0 {
		opts = append(opts, services.WithNotifier(notifiers))
	}

	scorer := services.NewScorer(cfg.Weights, cfg.DeliveryCeilingDays)
	a.search = services.NewSearchService(agg, scorer, services.SearchConfig{
		DefaultLimit: cfg.TopN,
		MaxLimit:     cfg.MaxTopN,
		MaxPerSource: cfg.MaxResultsPerSource,
	}, logger, opts...)

	return a, nil
}
