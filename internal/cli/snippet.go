package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/piercedata/acsdash/pkg/errors"
	"github.com/piercedata/acsdash/pkg/snippet"
)

// newSnippetCmd creates the snippet command. It executes the same run a pull
// would, then emits code reproducing the logged requests.
func newSnippetCmd(cfgPath *string) *cobra.Command {
	opts := pullOpts{level: "county"}
	var lang string

	cmd := &cobra.Command{
		Use:   "snippet",
		Short: "Emit Python or R code that reproduces a pull",
		Long: `Run a pull and print a standalone script that re-issues the same request
URLs and assembles the same table.

Examples:
  acsdash snippet --lang python -i "Median household income ($)"
  acsdash snippet --lang r --level tract > pull.R`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runOpts, err := opts.options()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, *cfgPath)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.runner.Execute(ctx, runOpts)
			if err != nil {
				return err
			}

			switch lang {
			case "python":
				fmt.Print(snippet.Python(res.URLs))
			case "r":
				fmt.Print(snippet.R(res.URLs))
			default:
				return errors.New(errors.ErrCodeInvalidInput, "unknown snippet language %q (python or r)", lang)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "python", "snippet language: python or r")
	cmd.Flags().StringVarP(&opts.level, "level", "l", opts.level, "geography level: county, tract, or zcta")
	cmd.Flags().StringVar(&opts.zctas, "zctas", "", "comma-separated ZCTA codes (zcta level only)")
	cmd.Flags().StringArrayVarP(&opts.indicators, "indicator", "i", nil, "indicator to pull (repeatable; default selection if omitted)")
	cmd.Flags().BoolVar(&opts.age, "age", false, "break down by age where available")
	cmd.Flags().BoolVar(&opts.sex, "sex", false, "break down by sex where available")
	cmd.Flags().BoolVar(&opts.race, "race", false, "break down by race/ethnicity where available")

	return cmd
}
