package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"daily-riddle-bot/internal/app"
	"daily-riddle-bot/internal/config"
	"daily-riddle-bot/internal/domain"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// withStores loads config, logger and storage for one-shot admin commands.
func withStores(ctx context.Context, configPath string, fn func(cfg config.Config, st *stores, logger *zap.Logger) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(cfg, st, logger)
}

// NewQuestionsCmd exposes queue moderation outside Discord.
func NewQuestionsCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Inspect or moderate the riddle queue",
	}

	var page int
	list := &cobra.Command{
		Use:   "list",
		Short: "List queued riddles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd.Context(), *configPath, func(cfg config.Config, st *stores, logger *zap.Logger) error {
				store := app.NewQuestionStore(st.questions, st.used, logger, app.QuestionStoreOptions{})
				if err := printQuestions(cmd.OutOrStdout(), store.List(cmd.Context()), page-1); err != nil {
					return err
				}
				if app.SelectionPolicy(cfg.Schedule.Policy) != app.PolicyRandom {
					return nil
				}
				unused, err := store.CountUnused(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d not yet posted in the current cycle\n", unused)
				return nil
			})
		},
	}
	list.Flags().IntVar(&page, "page", 1, "page number, starting at 1")

	remove := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a riddle by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd.Context(), *configPath, func(cfg config.Config, st *stores, logger *zap.Logger) error {
				store := app.NewQuestionStore(st.questions, st.used, logger, app.QuestionStoreOptions{})
				removed, err := store.Remove(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s: %s\n", removed.ID, removed.Text)
				return nil
			})
		},
	}

	cmd.AddCommand(list, remove)
	return cmd
}

func printQuestions(w io.Writer, questions []domain.QuestionRecord, page int) error {
	totalPages := app.PageCount(len(questions), app.DefaultPageSize)
	page = app.ClampPage(page, totalPages)
	start := page * app.DefaultPageSize
	end := start + app.DefaultPageSize
	if end > len(questions) {
		end = len(questions)
	}

	fmt.Fprintf(w, "%d riddles (page %d/%d)\n", len(questions), page+1, totalPages)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSUBMITTER\tANSWER\tQUESTION")
	for _, q := range questions[start:end] {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", q.ID, q.SubmitterID, q.Answer, q.Text)
	}
	return tw.Flush()
}

// NewLeaderboardCmd prints a leaderboard page from the configured storage.
func NewLeaderboardCmd(configPath *string) *cobra.Command {
	var (
		category string
		page     int
	)
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := domain.ParseCategory(category)
			if err != nil {
				return err
			}
			return withStores(cmd.Context(), *configPath, func(cfg config.Config, st *stores, logger *zap.Logger) error {
				lb, err := app.NewLeaderboard(app.NewPointLedger(st.scores, logger)).Page(cmd.Context(), cat, page-1, app.DefaultPageSize)
				if err != nil {
					return err
				}
				return printLeaderboard(cmd.OutOrStdout(), lb)
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "all", "all, insight or contribution")
	cmd.Flags().IntVar(&page, "page", 1, "page number, starting at 1")
	return cmd
}

func printLeaderboard(w io.Writer, lb domain.LeaderboardPage) error {
	fmt.Fprintf(w, "leaderboard %s (page %d/%d)\n", lb.Category, lb.Page+1, lb.TotalPages)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tUSER\tSCORE\tSTREAK\tRANK")
	for _, e := range lb.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\n", e.Position, e.UserID, e.Metric(lb.Category), e.Streak, e.Rank)
	}
	return tw.Flush()
}
