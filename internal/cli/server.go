package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"daily-riddle-bot/internal/app"
	"daily-riddle-bot/internal/config"
	"daily-riddle-bot/internal/domain"
	"daily-riddle-bot/internal/scheduler"
	"daily-riddle-bot/internal/transport/discord"
	transport "daily-riddle-bot/internal/transport/http"
	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewStartCmd builds the CLI subcommand that runs the bot.
func NewStartCmd(configPath, port *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Connect to Discord and run the daily schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
	cmd.Flags().StringVar(port, "port", "", "port for the health and leaderboard endpoints (overrides config)")
	return cmd
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.ValidateDiscord(); err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	postAt, revealAt, err := cfg.Times()
	if err != nil {
		return err
	}
	startDate, err := cfg.StartDate()
	if err != nil {
		return err
	}

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	feed := app.NewLeaderboardFeed()
	ledger := app.NewPointLedger(st.scores, logger).WithFeed(feed)
	if scores, err := ledger.Snapshot(ctx); err == nil {
		feed.Prime(scores)
	} else {
		logger.Warn("initial leaderboard unavailable", zap.Error(err))
	}
	questions := app.NewQuestionStore(st.questions, st.used, logger, app.QuestionStoreOptions{
		RejectDuplicates: cfg.RejectDuplicates(),
	})

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return err
	}
	publisher := discord.NewPublisher(session, cfg.Discord.ChannelID, cfg.Discord.AdminChannelID, revealAt, cfg.Discord.MessagesPerSecond)
	service := app.NewRiddleService(app.ServiceConfig{
		Policy:    app.SelectionPolicy(cfg.Schedule.Policy),
		StartDate: startDate,
		RevealAt:  revealAt,
	}, questions, ledger, app.NewRiddleSession(), publisher, logger)

	bot := discord.NewBot(session, service, cfg.Discord.ChannelID, cfg.Discord.GuildID, logger)
	if err := bot.Start(); err != nil {
		return err
	}
	defer bot.Close()

	post := scheduler.NewDaily("post_question", postAt, func(ctx context.Context) error {
		_, err := service.DailyTick(ctx)
		if errors.Is(err, domain.ErrEmptyQueue) {
			return nil
		}
		return err
	}, logger)
	reveal := scheduler.NewDaily("reveal_answer", revealAt, service.Reveal, logger)
	go post.Run(ctx)
	go reveal.Run(ctx)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}
	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           transport.NewHandler(service, feed, logger).Routes(),
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("http listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", zap.Error(err))
		}
	}()

	logger.Info("bot running",
		zap.String("post_at", postAt.String()),
		zap.String("reveal_at", revealAt.String()),
		zap.String("policy", cfg.Schedule.Policy),
		zap.String("start_date", startDate.String()))

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.TTLDuration(cfg.Server.ShutdownTimeout, 5*time.Second))
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
