package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/newswire-agent/internal/config"
	"github.com/newswire-agent/internal/models"
	"github.com/newswire-agent/internal/pipeline"
	"github.com/newswire-agent/internal/report"
	"github.com/newswire-agent/internal/source"
	"github.com/newswire-agent/internal/store"
	"github.com/newswire-agent/pkg/logger"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
	log     *logger.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "newswire-agent",
		Short: "News aggregation agent",
		Long: `Polls a fixed set of news sources, merges the results into a
deduplicated snapshot and publishes it as static JSON artifacts.`,
		PersistentPreRunE: initializeApp,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug logging")

	// Add subcommands
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(sourcesCmd())
	rootCmd.AddCommand(statusCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initializeApp(cmd *cobra.Command, args []string) error {
	var err error

	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	log = logger.New(logger.Config{
		Level:  level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	return nil
}

// ============ SYNC COMMAND ============

func syncCmd() *cobra.Command {
	var opts pipeline.Options

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch all sources and publish the merged snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			s := pipeline.New(cfg, source.NewRegistry(source.Default), log)
			res, err := s.Run(ctx, opts)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Sync Results ===\n")
			fmt.Printf("Posts Published: %d\n", len(res.Posts))
			fmt.Printf("Duration:        %dms\n", res.Status.DurationMs)
			if opts.DryRun {
				fmt.Printf("Dry run: nothing was written\n")
			}

			fmt.Printf("\nSources:\n")
			for _, src := range res.Status.Sources {
				mark := "ok"
				if !src.OK {
					mark = "FAIL"
				}
				fmt.Printf("  [%-4s] %-20s %s raw=%d new=%d", mark, src.SourceID, src.Used, src.Raw, src.New)
				if src.Error != "" {
					fmt.Printf(" (%s)", src.Error)
				}
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "compute everything, write nothing")
	cmd.Flags().IntVar(&opts.Days, "days", 0, "override the retention window in days")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "override the maximum snapshot size")
	cmd.Flags().StringVar(&opts.SourceID, "source", "", "sync a single source only")

	return cmd
}

// ============ SOURCES COMMAND ============

func sourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List configured sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := source.NewRegistry(source.Default)

			fmt.Printf("\n=== Sources (%d) ===\n\n", len(registry.All()))
			for _, src := range registry.All() {
				fmt.Printf("%-16s %-5s %s\n", src.ID, src.Kind, src.Name)
				fmt.Printf("    URL:      %s\n", src.URL)
				fmt.Printf("    Category: %s | Lang: %s\n", src.Category, src.Lang)
				if src.Include != "" {
					fmt.Printf("    Include:  %s\n", src.Include)
				}
				fmt.Println()
			}
			return nil
		},
	}
}

// ============ STATUS COMMAND ============

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the last published run status",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(cfg.Output.Dir, report.StatusFile)
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("no published status found at %s: %w", path, err)
			}

			var status models.SyncStatus
			if err := json.Unmarshal(data, &status); err != nil {
				return fmt.Errorf("unreadable status file: %w", err)
			}

			fmt.Printf("\n=== Last Sync ===\n")
			fmt.Printf("Generated: %s\n", status.GeneratedAt)
			fmt.Printf("Duration:  %dms\n\n", status.DurationMs)

			for _, src := range status.Sources {
				mark := "ok"
				if !src.OK {
					mark = "FAIL"
				}
				fmt.Printf("  [%-4s] %-20s %s published=%d new=%d %dms", mark, src.SourceID, src.Used, src.Published, src.New, src.DurationMs)
				if src.Error != "" {
					fmt.Printf(" (%s)", src.Error)
				}
				fmt.Println()
			}

			if cfg.Archive.Enabled {
				archive, err := store.OpenArchive(cfg.Archive.DSN)
				if err != nil {
					return fmt.Errorf("cannot open archive: %w", err)
				}
				defer archive.Close()

				total, err := archive.Count(cmd.Context())
				if err != nil {
					return fmt.Errorf("cannot count archive: %w", err)
				}
				fmt.Printf("\nArchived posts: %d\n", total)
			}
			return nil
		},
	}
}
