package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newServeCmd runs the HTTP inspection server, optionally with a background
// workload feeding the registry.
func newServeCmd() *cobra.Command {
	var jobs int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the snapshot API and metrics",
		Long: `Starts the HTTP server on server.port. With --workload, demo jobs run in
the background so the snapshot and metrics endpoints have live data; -1
keeps producing jobs until shutdown.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if jobs != 0 {
				go func() {
					processed, failed, err := rt.app.RunWorkload(ctx, jobs)
					if err != nil {
						rt.logger.Error("workload stopped", zap.Error(err))
						return
					}
					rt.logger.Info("workload finished", zap.Int64("processed", processed), zap.Int64("failed", failed))
				}()
			}
			return rt.app.Serve(ctx)
		},
	}
	cmd.Flags().IntVar(&jobs, "workload", 0, "demo jobs to run in the background (0 disables, -1 unbounded)")
	return cmd
}
