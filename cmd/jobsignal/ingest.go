package main

import (
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Drain the intake spool once",
	Long: `Read every pending observation and macro-evidence batch file from the
intake directories, apply them, and move handled files into done/.`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	stats, macro, err := eng.ingester.DrainSpool(cmd.Context(), eng.cfg.Intake.SpoolDir, eng.cfg.Intake.MacroDir)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"observations": stats,
		"macro":        macro,
	})
}
