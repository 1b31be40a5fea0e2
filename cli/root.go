// Package cli is the shopeasy command line.
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"shopeasy/config"
	"shopeasy/metrics"
	"shopeasy/services"
	"shopeasy/storage"
	"shopeasy/utils"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "shopeasy",
	Short: "Compare product prices across online marketplaces",
	Long: `ShopEasy searches several marketplaces in parallel, normalises what it
finds, and ranks the offers by price, rating, reviews, delivery time and
return policy.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (overrides LOG_LEVEL)")
}

// Execute runs the root command. SIGINT and SIGTERM cancel in-flight searches.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// app bundles the services one command invocation needs.
type app struct {
	cfg     *config.Config
	logger  *utils.Logger
	search  *services.SearchService
	metrics *metrics.Recorder
	store   storage.RunStore
	closers []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// loadApp builds the app from configuration; tests replace it.
var loadApp = buildApp
