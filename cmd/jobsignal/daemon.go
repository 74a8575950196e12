package main

import (
	"context"

	"github.com/spf13/cobra"

	"jobsignal-engine/internal/scheduler"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run scheduled passes plus the query API",
	Long: `Run the engine as a long-lived process: the ingest, sweep, and aggregate
passes fire on their configured schedules, each completed pass is
published to /events subscribers, and the query API serves until the
process receives SIGINT or SIGTERM.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sched := scheduler.New(ctx, eng.log)
	if err := sched.Add(eng.cfg.Schedules.Ingest, "ingest", eng.ingestPass); err != nil {
		return err
	}
	if err := sched.Add(eng.cfg.Schedules.Sweep, "sweep", eng.sweepPass); err != nil {
		return err
	}
	if err := sched.Add(eng.cfg.Schedules.Aggregate, "aggregate", eng.aggregatePass); err != nil {
		return err
	}

	// Fire every pass once at startup so a fresh daemon has data before the
	// first scheduled tick; the API comes up without waiting on it.
	go sched.RunAll()
	sched.Start()

	err = serveAPI(ctx, eng)

	// In-flight passes must observe shutdown before Stop waits on them.
	cancel()
	sched.Stop()
	return err
}
