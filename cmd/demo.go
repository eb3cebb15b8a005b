package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/statusinfo/internal/api"
)

type demoOptions struct {
	jobs     int
	duration time.Duration
	interval time.Duration
	output   string
}

// newDemoCmd drives the synthetic workload and prints registry snapshots
// while it runs.
func newDemoCmd() *cobra.Command {
	opts := demoOptions{}
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a synthetic workload and print snapshots",
		Long: `Runs demo jobs through the worker pool and prints a snapshot of the
registry every --interval. Stops when every job is done, after --duration,
or on SIGINT. Job shape comes from the demo.* config section.`,
		PreRunE: func(*cobra.Command, []string) error {
			return validOutput(opts.output)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("jobs") {
				opts.jobs = rt.cfg.Demo.Jobs
			}
			return runDemo(cmd, rt, opts)
		},
	}
	cmd.Flags().IntVar(&opts.jobs, "jobs", 0, "jobs to run (-1 until stopped; default demo.jobs)")
	cmd.Flags().DurationVar(&opts.duration, "duration", 0, "stop after this long (0 waits for all jobs)")
	cmd.Flags().DurationVar(&opts.interval, "interval", time.Second, "snapshot print interval")
	cmd.Flags().StringVarP(&opts.output, "output", "o", outputTable, "snapshot format: table, json or yaml")
	return cmd
}

func runDemo(cmd *cobra.Command, rt *runtime, opts demoOptions) error {
	ctx := cmd.Context()
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	type result struct {
		processed, failed int64
		err               error
	}
	done := make(chan result, 1)
	go func() {
		var r result
		r.processed, r.failed, r.err = rt.app.RunWorkload(ctx, opts.jobs)
		done <- r
	}()

	out := cmd.OutOrStdout()
	var tick <-chan time.Time
	if opts.interval > 0 {
		ticker := time.NewTicker(opts.interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-tick:
			snap := api.NewSnapshotResponse(rt.app.Registry().Snapshot())
			if err := renderSnapshot(out, snap, opts.output); err != nil {
				return err
			}
		case r := <-done:
			if r.err != nil {
				return fmt.Errorf("run workload: %w", r.err)
			}
			_, err := fmt.Fprintf(out, "processed=%d failed=%d\n", r.processed, r.failed)
			return err
		}
	}
}
