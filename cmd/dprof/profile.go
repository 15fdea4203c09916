package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/CharlesDeJager/dprof/internal/config"
	"github.com/CharlesDeJager/dprof/internal/export"
	"github.com/CharlesDeJager/dprof/internal/profile"
	"github.com/CharlesDeJager/dprof/internal/source"
)

func newProfileCmd() *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile [file]",
		Short: "Profile a local data file and print or save the report",
		Long: `Profile every table of a CSV, JSON or XLSX file in one shot, without
starting the API server. The report goes to stdout as JSON unless --output
is given, in which case the format follows the file extension of --format.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			maxRecords, _ := cmd.Flags().GetInt("max-records")
			formatFlag, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")
			tables, _ := cmd.Flags().GetStringSlice("tables")
			return runProfile(args[0], tables, maxRecords, formatFlag, output)
		},
	}

	profileCmd.Flags().Int("max-records", 0, "Per-table record limit (defaults to default_max_records from config)")
	profileCmd.Flags().String("format", "json", "Report format: json, xlsx or html")
	profileCmd.Flags().StringP("output", "o", "", "Write the report to a file instead of stdout")
	profileCmd.Flags().StringSlice("tables", nil, "Profile only these tables (default: all)")

	return profileCmd
}

func runProfile(path string, tables []string, maxRecords int, formatFlag, output string) error {
	format, err := export.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	if maxRecords <= 0 {
		maxRecords = config.AppConfig.DefaultMaxRecords
	}

	src, err := source.OpenFile(path)
	if err != nil {
		return err
	}
	defer src.Close()

	ctx := context.Background()
	available, err := src.Tables(ctx)
	if err != nil {
		return fmt.Errorf("failed to read file structure: %w", err)
	}

	selected := available
	if len(tables) > 0 {
		known := make(map[string]source.TableInfo, len(available))
		for _, info := range available {
			known[info.Name] = info
		}
		selected = selected[:0]
		for _, name := range tables {
			info, ok := known[name]
			if !ok {
				return fmt.Errorf("unknown table: %s", name)
			}
			selected = append(selected, info)
		}
	}

	opts := profile.Options{
		SampleSize:            config.AppConfig.SampleSize,
		DistinctCap:           config.AppConfig.DistinctCap,
		PatternCap:            config.AppConfig.PatternCap,
		TopPatterns:           config.AppConfig.TopPatterns,
		PatternExamples:       config.AppConfig.PatternExamples,
		TopValues:             config.AppConfig.TopValues,
		TypeThreshold:         config.AppConfig.TypeThreshold,
		HighNullThreshold:     config.AppConfig.HighNullThreshold,
		HighBlankThreshold:    config.AppConfig.HighBlankThreshold,
		LowDiversityThreshold: config.AppConfig.LowDiversityThreshold,
		CompletenessWeight:    config.AppConfig.CompletenessWeight,
		ValidityWeight:        config.AppConfig.ValidityWeight,
		DiversityWeight:       config.AppConfig.DiversityWeight,
	}

	results := make(map[string]*profile.TableProfile, len(selected))
	for _, info := range selected {
		results[info.Name] = profile.ProfileTable(ctx, src, info.Name, maxRecords, config.AppConfig.ChunkSize, opts)
	}

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return export.Write(w, format, results)
}
