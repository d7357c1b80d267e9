package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/siyabuilds/carbontrackr/internal/analysis"
	"github.com/siyabuilds/carbontrackr/internal/persistence/postgres"
	"github.com/siyabuilds/carbontrackr/internal/tips"
)

var (
	analyzeAt   string
	analyzeUser string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run weekly analysis and print the run result",
}

var analyzeLastWeekCmd = &cobra.Command{
	Use:   "last-week",
	Short: "Summarise every user for the last completed week",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := parseReference(analyzeAt)
		if err != nil {
			return err
		}
		return runAnalysis(cmd, func(orch *analysis.Orchestrator) (analysis.RunResult, error) {
			return orch.RunLastWeekAnalysis(cmd.Context(), ref)
		})
	},
}

var analyzeCurrentWeekCmd = &cobra.Command{
	Use:   "current-week",
	Short: "Summarise the current week so far, optionally for a single user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := parseReference(analyzeAt)
		if err != nil {
			return err
		}
		return runAnalysis(cmd, func(orch *analysis.Orchestrator) (analysis.RunResult, error) {
			return orch.RunCurrentWeekAnalysis(cmd.Context(), analyzeUser, ref)
		})
	},
}

func init() {
	analyzeCmd.PersistentFlags().StringVar(&analyzeAt, "at", "", "Reference time (RFC3339), defaults to now")
	analyzeCurrentWeekCmd.Flags().StringVar(&analyzeUser, "user", "", "Restrict the run to one user ID")
	analyzeCmd.AddCommand(analyzeLastWeekCmd, analyzeCurrentWeekCmd)
}

func runAnalysis(cmd *cobra.Command, run func(*analysis.Orchestrator) (analysis.RunResult, error)) error {
	cfg := loadConfig()
	logger := newLogger(cmd, cfg)
	return withPool(cmd.Context(), cfg, func(pool *pgxpool.Pool) error {
		repo := postgres.NewRepository(pool, cfg.ActivityTopic)
		orch := analysis.NewOrchestrator(repo, repo, repo, tips.Default(),
			analysis.WithLogger(logger),
			analysis.WithConcurrency(cfg.AnalysisConcurrency),
		)
		result, err := run(orch)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	})
}

// parseReference accepts an RFC3339 timestamp or a bare date. Empty means now.
func parseReference(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q: want RFC3339 or YYYY-MM-DD", value)
	}
	return t, nil
}
