package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/CharlesDeJager/dprof/internal/config"
	"github.com/CharlesDeJager/dprof/internal/log"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dprof",
		Short: "A concurrent data profiling engine for files and databases",
		Long: `dprof profiles tabular data from CSV, JSON and XLSX files as well as
Oracle, SQL Server and SQLite databases. It computes per-column statistics,
inferred types, format patterns and data quality scores, profiling multiple
tables concurrently on a worker pool.

Run "dprof serve" to expose the profiling API over HTTP, or
"dprof profile <file>" for a one-shot report on a local file.`,
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			log.InitLogger(verbose)
			return config.InitConfig()
		},
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newProfileCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long:  "Inspect and adjust the profiling limits persisted in the config file.",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			c := config.AppConfig
			fmt.Println("Current configuration:")
			fmt.Printf("  max_threads:         %d\n", c.MaxThreads)
			fmt.Printf("  default_max_records: %d\n", c.DefaultMaxRecords)
			fmt.Printf("  chunk_size:          %d\n", c.ChunkSize)
			fmt.Printf("  sample_size:         %d\n", c.SampleSize)
			fmt.Printf("  distinct_cap:        %d\n", c.DistinctCap)
			fmt.Printf("  listen_addr:         %s\n", c.ListenAddr)
			fmt.Printf("  temp_dir:            %s\n", c.TempDir)
		},
	}

	setLimitsCmd := &cobra.Command{
		Use:   "set-limits",
		Short: "Set scheduling and reading limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			threads, _ := cmd.Flags().GetInt("max-threads")
			records, _ := cmd.Flags().GetInt("default-max-records")
			chunk, _ := cmd.Flags().GetInt("chunk-size")
			if threads == 0 && records == 0 && chunk == 0 {
				return fmt.Errorf("nothing to set, see --help for available limits")
			}
			if err := config.UpdateLimits(threads, records, chunk); err != nil {
				return fmt.Errorf("failed to update limits: %w", err)
			}
			fmt.Println("Limits updated")
			return nil
		},
	}
	setLimitsCmd.Flags().Int("max-threads", 0, "Worker pool size")
	setLimitsCmd.Flags().Int("default-max-records", 0, "Default per-table record limit")
	setLimitsCmd.Flags().Int("chunk-size", 0, "Rows per read batch")

	configCmd.AddCommand(showCmd, setLimitsCmd)
	return configCmd
}
