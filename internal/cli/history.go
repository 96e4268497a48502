package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/piercedata/acsdash/pkg/history"
	"github.com/piercedata/acsdash/pkg/table"
)

// newHistoryCmd creates the history command for listing and inspecting past
// runs.
func newHistoryCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List and inspect past pull runs",
	}

	cmd.AddCommand(newHistoryListCmd(cfgPath))
	cmd.AddCommand(newHistoryShowCmd(cfgPath))

	return cmd
}

func newHistoryListCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *cfgPath)
			if err != nil {
				return err
			}
			defer a.close()

			if a.history == nil {
				printInfo("Run history is disabled")
				return nil
			}

			records, err := a.history.List(ctx)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				printInfo("No recorded runs")
				return nil
			}

			t := &table.Table{Columns: []string{"Run", "When", "Level", "Indicators", "Rows"}}
			for _, rec := range records {
				t.Rows = append(t.Rows, []string{
					shortID(rec.ID),
					rec.CreatedAt.Format("2006-01-02 15:04"),
					rec.Level,
					fmt.Sprintf("%d", len(rec.Indicators)),
					fmt.Sprintf("%d", rec.Rows),
				})
			}
			fmt.Println(renderTable(t))
			printDetail("%d runs, inspect with: acsdash history show <run>", len(records))
			return nil
		},
	}
}

func newHistoryShowCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run>",
		Short: "Show one run's options and request URLs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *cfgPath)
			if err != nil {
				return err
			}
			defer a.close()

			if a.history == nil {
				printInfo("Run history is disabled")
				return nil
			}

			rec, err := findRun(ctx, a, args[0])
			if err != nil {
				return err
			}

			fmt.Println(StyleTitle.Render("Run " + rec.ID))
			printDetail("When:       %s", rec.CreatedAt.Format("2006-01-02 15:04:05"))
			printDetail("Level:      %s", rec.Level)
			if rec.ZCTAs != "" {
				printDetail("ZCTAs:      %s", rec.ZCTAs)
			}
			printDetail("Indicators: %s", strings.Join(rec.Indicators, ", "))
			if axes := breakdownNames(rec.Age, rec.Sex, rec.Race); axes != "" {
				printDetail("Breakdowns: %s", axes)
			}
			printDetail("Result:     %d rows × %d columns", rec.Rows, rec.Columns)
			printDetail("Requests:")
			for _, url := range rec.URLs {
				printURL(url)
			}
			return nil
		},
	}
}

// findRun resolves a full or abbreviated run id. Abbreviations must be
// unambiguous among the recorded runs.
func findRun(ctx context.Context, a *app, id string) (*history.Record, error) {
	rec, err := a.history.Get(ctx, id)
	if err == nil {
		return rec, nil
	}
	if !stderrors.Is(err, history.ErrNotFound) {
		return nil, err
	}

	records, err := a.history.List(ctx)
	if err != nil {
		return nil, err
	}
	var match *history.Record
	for i := range records {
		if strings.HasPrefix(records[i].ID, id) {
			if match != nil {
				return nil, fmt.Errorf("run id %q is ambiguous", id)
			}
			match = &records[i]
		}
	}
	if match == nil {
		return nil, history.ErrNotFound
	}
	return match, nil
}

// shortID trims a UUID to its first segment for display.
func shortID(id string) string {
	if idx := strings.IndexByte(id, '-'); idx > 0 {
		return id[:idx]
	}
	return id
}

func breakdownNames(age, sex, race bool) string {
	var axes []string
	if age {
		axes = append(axes, "age")
	}
	if sex {
		axes = append(axes, "sex")
	}
	if race {
		axes = append(axes, "race")
	}
	return strings.Join(axes, ", ")
}
