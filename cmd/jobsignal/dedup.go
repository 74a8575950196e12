package main

import (
	"github.com/spf13/cobra"

	"jobsignal-engine/internal/dedup"
)

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Re-annotate duplicates across all employers",
	Long: `Recompute duplicate pointers for every employer in the store. Ingest
annotates the employers each batch touches on its own; this full pass
is for recovery after manual data surgery or a fingerprint change.`,
	RunE: runDedup,
}

func init() {
	rootCmd.AddCommand(dedupCmd)
}

func runDedup(cmd *cobra.Command, _ []string) error {
	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	d := &dedup.Deduper{DB: eng.db, Log: eng.log}
	stats, err := d.Run(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(stats)
}
