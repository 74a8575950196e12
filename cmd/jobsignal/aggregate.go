package main

import (
	"github.com/spf13/cobra"
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Run one aggregation pass",
	Long: `Fuse all observation and macro evidence inside the rolling window into
archetype rows, one per (employer, metro, role, seniority, record type).`,
	RunE: runAggregate,
}

func init() {
	rootCmd.AddCommand(aggregateCmd)
}

func runAggregate(cmd *cobra.Command, _ []string) error {
	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	stats, err := eng.aggregator.Run(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(stats)
}
