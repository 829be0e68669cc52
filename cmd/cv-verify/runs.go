// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/cv-verify/internal/store"
	"github.com/pdiddy/cv-verify/pkg/types"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List, show, export, or delete stored verification runs",
	Long: `Runs reads the local SQLite run store written by verify. Use
subcommands to list recent runs, show one run in full, export several, or
delete one.`,
}

// --- list subcommand ---

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withStore(func(s *store.Store) error {
			runs, err := s.List(context.Background(), limit)
			if err != nil {
				return err
			}
			return formatRunList(os.Stdout, runs)
		})
	},
}

func formatRunList(w io.Writer, runs []store.RunSummary) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs stored.")
		return nil
	}

	fmt.Fprintf(w, "%-36s  %-20s  %-25s  %-5s  %-8s  %s\n",
		"ID", "Created", "Candidate", "Pubs", "Verified", "Partial")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, r := range runs {
		name := r.CandidateName
		if len(name) > 25 {
			name = name[:22] + "..."
		}
		fmt.Fprintf(w, "%-36s  %-20s  %-25s  %-5d  %-8d  %v\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), name,
			r.TotalPublications, r.VerifiedCount, r.Partial)
	}
	fmt.Fprintf(w, "\n%d runs\n", len(runs))
	return nil
}

// --- show subcommand ---

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one run with its publications and author profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		return withStore(func(s *store.Store) error {
			r, err := s.Get(context.Background(), args[0])
			if err != nil {
				return err
			}
			return store.Encode(os.Stdout, format, r)
		})
	},
}

// --- export subcommand ---

var runsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recent runs to YAML, JSON, or a CSL bibliography",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		limit, _ := cmd.Flags().GetInt("limit")
		outPath, _ := cmd.Flags().GetString("output")

		var w io.Writer = os.Stdout
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("creating %s: %w", outPath, err)
			}
			defer f.Close()
			w = f
		}

		return withStore(func(s *store.Store) error {
			if err := s.Export(context.Background(), w, format, limit); err != nil {
				return err
			}
			if outPath != "" {
				fmt.Fprintf(os.Stderr, "Exported to %s\n", outPath)
			}
			return nil
		})
	},
}

// --- delete subcommand ---

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *store.Store) error {
			if err := s.Delete(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted run %s\n", args[0])
			return nil
		})
	},
}

// --- shared helpers ---

func withStore(fn func(*store.Store) error) error {
	cfg, err := loadVerifyConfig()
	if err != nil {
		return err
	}
	if p, _ := runsCmd.PersistentFlags().GetString("db"); p != "" {
		cfg.Store = types.StoreConfig{Path: p}
	}

	s, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func init() {
	runsCmd.PersistentFlags().String("db", "", "run store path (default from config: data/cv-verify.db)")

	runsListCmd.Flags().Int("limit", 20, "maximum runs to list")

	runsShowCmd.Flags().String("format", store.FormatYAML, "output format: yaml, json, or csl")

	runsExportCmd.Flags().String("format", store.FormatYAML, "export format: yaml, json, or csl")
	runsExportCmd.Flags().Int("limit", 20, "maximum runs to export")
	runsExportCmd.Flags().String("output", "", "write to this file instead of stdout")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsExportCmd)
	runsCmd.AddCommand(runsDeleteCmd)

	rootCmd.AddCommand(runsCmd)
}
