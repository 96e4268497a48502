package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/piercedata/acsdash/pkg/census"
	"github.com/piercedata/acsdash/pkg/table"
)

// varsOpts holds the command-line flags for the vars command.
type varsOpts struct {
	measure string // label fragment for selector preview
	age     bool
	sex     bool
	race    bool
}

// selecting reports whether the flags request a selector preview instead of
// the full group listing.
func (o *varsOpts) selecting() bool {
	return o.measure != "" || o.age || o.sex || o.race
}

// newVarsCmd creates the vars command, inspecting a subject-table group's
// variable metadata. With selection flags, it shows exactly the codes a pull
// with those flags would request.
func newVarsCmd(cfgPath *string) *cobra.Command {
	var opts varsOpts

	cmd := &cobra.Command{
		Use:   "vars <group>",
		Short: "List a subject-table group's variables and labels",
		Long: `List the variables of an ACS subject-table group with their raw and
cleaned labels. With --measure or breakdown flags, show only the codes the
variable selector would pick for a pull with those options.

Examples:
  acsdash vars S1810                                   # Full group listing
  acsdash vars S1810 --measure "With a disability" --age  # Selector preview`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *cfgPath)
			if err != nil {
				return err
			}
			defer a.close()

			group := args[0]
			labels, order, err := a.client.Labels(ctx, group)
			if err != nil {
				return err
			}

			codes := order
			if opts.selecting() {
				codes, err = a.client.SelectVars(ctx, group, opts.measure, opts.age, opts.sex, opts.race)
				if err != nil {
					return err
				}
			}

			t := &table.Table{Columns: []string{"Variable", "Label", "Cleaned"}}
			for _, code := range codes {
				label := labels[code]
				t.Rows = append(t.Rows, []string{code, label, census.CleanLabel(label)})
			}

			fmt.Println(renderTable(t))
			if opts.selecting() {
				printDetail("%d of %d variables selected", len(codes), len(order))
			} else {
				printDetail("%d variables", len(order))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.measure, "measure", "", "label fragment the selector filters on")
	cmd.Flags().BoolVar(&opts.age, "age", false, "preview selection with the age breakdown")
	cmd.Flags().BoolVar(&opts.sex, "sex", false, "preview selection with the sex breakdown")
	cmd.Flags().BoolVar(&opts.race, "race", false, "preview selection with the race breakdown")

	return cmd
}
