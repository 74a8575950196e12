// Command jobsignal runs the job-market evidence engine: spool intake,
// lifecycle sweeps, evidence aggregation, and the read-only query API.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	flagDataDir       string
	flagDefaultConfig string
)

var rootCmd = &cobra.Command{
	Use:   "jobsignal",
	Short: "Job-market evidence engine",
	Long: `jobsignal ingests job posting observations from NDJSON spool files,
tracks posting lifecycles, annotates near-duplicate postings, and fuses
the surviving evidence into per-(employer, metro, role, seniority)
hiring archetypes.

The one-shot subcommands (ingest, sweep, aggregate) run a single pass
and print its statistics as JSON. daemon runs every pass on its
configured schedule and serves the query API until interrupted.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "",
		"engine data directory (default $JOBSIGNAL_DATA_DIR, else .)")
	rootCmd.PersistentFlags().StringVar(&flagDefaultConfig, "default-config",
		filepath.Join("config", "config.yml"),
		"shipped config copied into the data dir on first run")
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// printJSON writes a one-shot command's statistics contract to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
