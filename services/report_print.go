package services

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"shopeasy/models"
)

var (
	bannerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	priceStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

const reportWidth = 60

// PrintReport renders a comparison report for the terminal.
func PrintReport(w io.Writer, query string, r models.Report) {
	sep := strings.Repeat("═", reportWidth)
	thin := strings.Repeat("─", reportWidth)

	fmt.Fprintf(w, "\n%s\n", bannerStyle.Render(sep))
	fmt.Fprintf(w, "%s\n", bannerStyle.Render("  PRICE COMPARISON REPORT: "+truncate(query, 30)))
	fmt.Fprintf(w, "%s\n\n", bannerStyle.Render(sep))

	if r.Empty {
		fmt.Fprintf(w, "  No products found.\n\n")
		return
	}

	fmt.Fprintf(w, "%s\n  %s\n", headingStyle.Render("  Overview"), thin)
	fmt.Fprintf(w, "  Total products found : %d\n", r.Total)
	fmt.Fprintf(w, "  Platforms searched   : %s\n\n", strings.Join(r.Sources, ", "))

	if c := r.Cheapest; c != nil {
		fmt.Fprintf(w, "%s\n  %s\n", headingStyle.Render("  Best Deal"), thin)
		fmt.Fprintf(w, "  Product  : %s\n", truncate(c.Title, 50))
		fmt.Fprintf(w, "  Price    : %s\n", priceStyle.Render(fmt.Sprintf("%.2f", c.Price)))
		fmt.Fprintf(w, "  Platform : %s\n", c.Source)
		fmt.Fprintf(w, "  URL      : %s\n\n", c.URL)
	}

	fmt.Fprintf(w, "%s\n  %s\n", headingStyle.Render("  Price Statistics"), thin)
	fmt.Fprintf(w, "  Average price : %.2f\n", r.MeanPrice.Or(0))
	if pr := r.PriceRange; pr != nil {
		fmt.Fprintf(w, "  Price range   : %.2f - %.2f\n", pr.Min, pr.Max)
		fmt.Fprintf(w, "  Difference    : %.2f\n", pr.Spread)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s\n  %s\n", headingStyle.Render("  Top 5 Best Deals"), thin)
	for i, d := range r.BestDeals {
		fmt.Fprintf(w, "  %d. %s %10.2f  %s\n", i+1, pad(d.Source, 10), d.Price, truncate(d.Title, 34))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s\n  %s\n", headingStyle.Render("  Platform Comparison"), thin)
	fmt.Fprintf(w, "  %s %10s %10s %10s %6s\n", pad("platform", 12), "avg", "min", "max", "count")
	for _, s := range r.PerSource {
		fmt.Fprintf(w, "  %s %10.2f %10.2f %10.2f %6d\n", pad(s.Source, 12), s.MeanPrice, s.MinPrice, s.MaxPrice, s.Count)
	}

	fmt.Fprintf(w, "\n%s\n\n", bannerStyle.Render(sep))
}

// PrintResults renders ranked recommendations with their labels.
func PrintResults(w io.Writer, results []models.ScoredListing) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintln(w, headingStyle.Render("Recommendations:"))
	for i, r := range results {
		fmt.Fprintf(w, "  [%d] %s %s  (score %.4f)\n", i+1, pad(truncate(r.Title, 44), 44), priceStyle.Render(fmt.Sprintf("%10.2f", r.Price)), r.Score)
		fmt.Fprintf(w, "      %s", r.Source)
		if r.Rating.Present() {
			fmt.Fprintf(w, " | %.1f★", r.Rating.Value)
		}
		if r.Reviews.Valid {
			fmt.Fprintf(w, " | %d reviews", r.Reviews.Value)
		}
		if r.DeliveryDays.Present() {
			fmt.Fprintf(w, " | %.0f days", r.DeliveryDays.Value)
		}
		fmt.Fprintln(w)
		if len(r.Labels) > 0 {
			labels := make([]string, len(r.Labels))
			for j, l := range r.Labels {
				labels[j] = string(l)
			}
			fmt.Fprintf(w, "      %s\n", labelStyle.Render(strings.Join(labels, " · ")))
		}
		fmt.Fprintf(w, "      %s\n", r.URL)
	}
}

// PrintDiagnostics renders one line per source outcome.
func PrintDiagnostics(w io.Writer, d models.Diagnostics) {
	fmt.Fprintln(w, headingStyle.Render("Sources:"))
	for _, s := range d.Sources {
		line := fmt.Sprintf("  %s %-9s raw=%d accepted=%d (%s)", pad(s.Source, 12), s.Outcome, s.Raw, s.Accepted, s.Duration.Round(1e6))
		if s.Error != "" {
			line += " " + s.Error
		}
		if s.Outcome != models.OutcomeOK {
			line = failStyle.Render(line)
		}
		fmt.Fprintln(w, line)
	}
}

// truncate shortens s to max display columns.
func truncate(s string, max int) string {
	return runewidth.Truncate(s, max, "...")
}

func pad(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, ""), width)
}
