package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/piercedata/acsdash/pkg/census"
	"github.com/piercedata/acsdash/pkg/table"
)

// newIndicatorsCmd creates the indicators command, listing the catalog.
func newIndicatorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indicators",
		Short: "List the indicator catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := &table.Table{
				Columns: []string{"Indicator", "Variable", "Dataset", "Breakdowns", "Default"},
			}
			defaults := make(map[string]bool, len(census.DefaultSelection))
			for _, name := range census.DefaultSelection {
				defaults[name] = true
			}
			for _, ind := range census.Catalog() {
				breakdowns := ""
				if ind.Detailed() {
					breakdowns = "age/sex/race"
				}
				def := ""
				if defaults[ind.Name] {
					def = iconSuccess
				}
				t.Rows = append(t.Rows, []string{ind.Name, ind.Code, ind.Dataset, breakdowns, def})
			}

			fmt.Println(renderTable(t))
			printDetail("%d indicators, pull with: acsdash pull -i \"<name>\"", len(t.Rows))
			return nil
		},
	}
}
