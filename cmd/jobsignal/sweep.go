package main

import (
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one closure sweep",
	Long: `Close every active posting lifecycle whose last sighting is older than
the staleness window, estimating whether the role was filled or
withdrawn from how long the posting stayed visible.`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, _ []string) error {
	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	stats, err := eng.sweeper.Run(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(stats)
}
