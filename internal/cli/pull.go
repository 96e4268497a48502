package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/piercedata/acsdash/pkg/census"
	"github.com/piercedata/acsdash/pkg/pipeline"
)

// pullOpts holds the command-line flags for the pull command.
type pullOpts struct {
	level      string   // county, tract, or zcta
	zctas      string   // comma-separated ZCTA codes
	indicators []string // indicator display names
	age        bool     // break down by age
	sex        bool     // break down by sex
	race       bool     // break down by race/ethnicity
	refresh    bool     // bypass the response cache
	output     string   // CSV output path (print table if empty)
	showURLs   bool     // print the request URL log
}

// options converts the flags into run options, splitting any comma-separated
// indicator values.
func (o *pullOpts) options() (pipeline.Options, error) {
	level, err := census.ParseLevel(o.level)
	if err != nil {
		return pipeline.Options{}, err
	}

	var indicators []string
	for _, v := range o.indicators {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				indicators = append(indicators, name)
			}
		}
	}

	return pipeline.Options{
		Level:      level,
		ZCTAs:      o.zctas,
		Indicators: indicators,
		Age:        o.age,
		Sex:        o.sex,
		Race:       o.race,
		Refresh:    o.refresh,
	}, nil
}

// newPullCmd creates the pull command.
//
// Defaults:
//   - level: county
//   - indicators: the dashboard's default selection
func newPullCmd(cfgPath *string) *cobra.Command {
	opts := pullOpts{level: "county"}

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Fetch indicators for a geography and print or export the table",
		Long: `Fetch ACS 5-year estimates for the selected indicators and geography.

Examples:
  acsdash pull                                          # Default indicators, county level
  acsdash pull --level tract                            # Every tract in the county
  acsdash pull --level zcta --zctas 98402,98405         # Selected ZIP areas
  acsdash pull -i "Disability (%)" --age --sex          # Demographic breakdowns
  acsdash pull -o pierce.csv                            # Export as CSV`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPull(cmd.Context(), *cfgPath, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.level, "level", "l", opts.level, "geography level: county, tract, or zcta")
	cmd.Flags().StringVar(&opts.zctas, "zctas", "", "comma-separated ZCTA codes (zcta level only)")
	cmd.Flags().StringArrayVarP(&opts.indicators, "indicator", "i", nil, "indicator to pull (repeatable; default selection if omitted)")
	cmd.Flags().BoolVar(&opts.age, "age", false, "break down by age where available")
	cmd.Flags().BoolVar(&opts.sex, "sex", false, "break down by sex where available")
	cmd.Flags().BoolVar(&opts.race, "race", false, "break down by race/ethnicity where available")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass the response cache")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write CSV to file instead of printing the table")
	cmd.Flags().BoolVar(&opts.showURLs, "show-urls", false, "print the request URL log")

	return cmd
}

func runPull(ctx context.Context, cfgPath string, opts *pullOpts) error {
	runOpts, err := opts.options()
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfgPath)
	if err != nil {
		return err
	}
	defer a.close()

	spinner := newSpinner(ctx, "Fetching ACS data...")
	spinner.Start()

	prog := newProgress(a.logger)
	res, err := a.runner.Execute(ctx, runOpts)
	spinner.Stop()
	if err != nil {
		if spinner.Cancelled() {
			return ctx.Err()
		}
		return err
	}
	prog.done(fmt.Sprintf("Pulled %d indicators", len(runOpts.Indicators)))

	if opts.output != "" {
		if err := writeCSVFile(res, opts.output); err != nil {
			return err
		}
		printSuccess("Exported %d rows", len(res.Table.Rows))
		printFile(opts.output)
	} else {
		fmt.Println(renderTable(res.Table))
	}

	printRunStats(res.Stats.Requests, res.Stats.CacheHits, len(res.Table.Rows))
	if opts.showURLs {
		printDetail("Request URLs:")
		for _, url := range res.URLs {
			printURL(url)
		}
	}
	return nil
}

func writeCSVFile(res *pipeline.Result, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := res.Table.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
