package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/websearch"
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the web for cultural activities in São Paulo",
	RunE: func(cmd *cobra.Command, _ []string) error {
		q := websearch.Query{}
		q.Type, _ = cmd.Flags().GetString("type")
		q.Location, _ = cmd.Flags().GetString("location")
		q.Date, _ = cmd.Flags().GetString("date")

		settings, err := loadSettings()
		if err != nil {
			return err
		}
		a, err := newApp(settings)
		if err != nil {
			return err
		}
		defer a.close()

		results, err := a.search.Search(cmd.Context(), q)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No results.")
			return nil
		}
		for _, r := range results {
			fmt.Printf("%.2f  %s\n      %s (%s)\n", r.Score, r.Title, r.URL, r.Domain)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringP("type", "t", "", "Kind of activity (e.g. show, museu, oficina)")
	searchCmd.Flags().StringP("location", "L", "", "Neighborhood or place")
	searchCmd.Flags().String("date", "", "When (free text, e.g. 'sábado')")
}
