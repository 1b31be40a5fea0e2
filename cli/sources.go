package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"shopeasy/scraper"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the enabled marketplaces",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		for _, src := range a.search.Sources() {
			line := src.Name() + "  " + src.BaseURL()
			if s, ok := src.(scraper.SearchLinker); ok {
				line += "  " + s.SearchURL("{query}")
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
