package cli

import (
	"github.com/spf13/cobra"

	"github.com/piercedata/acsdash/internal/server"
)

// newServeCmd creates the serve command, running the HTTP API.
func newServeCmd(cfgPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard HTTP API",
		Long: `Serve the dashboard over HTTP.

Endpoints:
  GET /healthz                       liveness check
  GET /api/indicators                indicator catalog
  GET /api/groups/{group}/variables  subject-table group metadata
  GET /api/pull                      run a pull, JSON result
  GET /api/pull.csv                  run a pull, CSV download`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *cfgPath)
			if err != nil {
				return err
			}
			defer a.close()

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			return server.New(a.runner, a.logger).ListenAndServe(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}
