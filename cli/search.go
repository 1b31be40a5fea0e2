package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shopeasy/models"
	"shopeasy/services"
	"shopeasy/storage"
)

var (
	searchLimit     int
	searchJSON      bool
	searchDemo      bool
	searchCSV       bool
	searchThreshold float64
	searchMinPrice  float64
	searchMaxPrice  float64
	searchEmail     string
	searchReport    bool
	searchWeights   models.Weights
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search every marketplace and rank the offers",
	Long: `Queries all enabled marketplaces in parallel and ranks the combined offers.
Sources that fail or time out are reported but never abort the search.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.IntVarP(&searchLimit, "limit", "n", 0, "number of ranked results (default TOP_N)")
	f.BoolVar(&searchJSON, "json", false, "output the full response as JSON")
	f.BoolVar(&searchDemo, "demo", false, "use built-in sample offers instead of live sites")
	f.BoolVar(&searchCSV, "csv", false, "export all valid listings to CSV_OUTPUT_PATH")
	f.Float64Var(&searchThreshold, "threshold", 0, "send a price alert when the cheapest offer is at or below this price")
	f.Float64Var(&searchMinPrice, "min-price", 0, "ignore offers below this price")
	f.Float64Var(&searchMaxPrice, "max-price", 0, "ignore offers above this price")
	f.StringVar(&searchEmail, "email", "", "recipient for price alerts and reports")
	f.BoolVar(&searchReport, "report", false, "send the comparison report to --email")
	f.Float64Var(&searchWeights.Price, "w-price", 0, "price weight for this search")
	f.Float64Var(&searchWeights.Rating, "w-rating", 0, "rating weight for this search")
	f.Float64Var(&searchWeights.Reviews, "w-reviews", 0, "reviews weight for this search")
	f.Float64Var(&searchWeights.DeliveryTime, "w-delivery", 0, "delivery time weight for this search")
	f.Float64Var(&searchWeights.ReturnPolicy, "w-return", 0, "return policy weight for this search")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	req := services.SearchRequest{
		Query:        strings.Join(args, " "),
		Limit:        searchLimit,
		Email:        searchEmail,
		NotifyReport: searchReport,
		Demo:         searchDemo,
	}
	flags := cmd.Flags()
	if flags.Changed("threshold") {
		req.Threshold = models.Float(searchThreshold)
	}
	if flags.Changed("min-price") {
		req.MinPrice = models.Float(searchMinPrice)
	}
	if flags.Changed("max-price") {
		req.MaxPrice = models.Float(searchMaxPrice)
	}
	for _, name := range []string{"w-price", "w-rating", "w-reviews", "w-delivery", "w-return"} {
		if flags.Changed(name) {
			w := searchWeights
			req.Weights = &w
			break
		}
	}

	resp, err := a.search.Search(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchCSV {
		if err := exportCSV(a.cfg.CSVOutputPath, resp.Listings); err != nil {
			return err
		}
		a.logger.Info("[csv] %d listings saved to %s", len(resp.Listings), a.cfg.CSVOutputPath)
	}

	if searchJSON {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	out := cmd.OutOrStdout()
	services.PrintDiagnostics(out, resp.Diagnostics)
	if resp.SampleFallback {
		fmt.Fprintf(out, "No products found for %q. Try searching directly:\n", resp.Query)
		for _, l := range resp.FallbackLinks {
			fmt.Fprintf(out, "  %-10s %s\n", l.Source, l.URL)
		}
		return nil
	}
	services.PrintResults(out, resp.Results)
	services.PrintReport(out, resp.Query, resp.Report)
	if resp.ThresholdMet {
		fmt.Fprintf(out, "Price alert: %s is %.2f on %s, at or below %.2f\n",
			resp.Report.Cheapest.Title, resp.Report.Cheapest.Price, resp.Report.Cheapest.Source, req.Threshold.Value)
	}
	return nil
}

func exportCSV(path string, listings []models.Listing) error {
	w, err := storage.NewCSVWriter(path)
	if err != nil {
		return err
	}
	return writeListings(w, listings)
}

func writeListings(w storage.ListingWriter, listings []models.Listing) error {
	if err := w.Write(listings); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
