package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/kamass93/quiz-bot/internal/certificate"
	"github.com/kamass93/quiz-bot/internal/config"
	"github.com/kamass93/quiz-bot/internal/infra/memory"
	redisinfra "github.com/kamass93/quiz-bot/internal/infra/redis"
	pgledger "github.com/kamass93/quiz-bot/internal/ledger/postgres"
	sqliteledger "github.com/kamass93/quiz-bot/internal/ledger/sqlite"
	"github.com/kamass93/quiz-bot/internal/quiz"
	"github.com/kamass93/quiz-bot/internal/source/xlsx"
	"github.com/kamass93/quiz-bot/internal/telegram"
)

// NewStartCmd builds the CLI subcommand to run the bot.
func NewStartCmd(configPath, token *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), *configPath, *token)
		},
	}
}

func runBot(ctx context.Context, configPath, tokenFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		log.Printf("config %s not found, using defaults", configPath)
	}

	token := tokenFlag
	if token == "" {
		token = cfg.Telegram.Token
	}
	if token == "" {
		return fmt.Errorf("telegram token not configured (set TELEGRAM_BOT_TOKEN or telegram.token)")
	}

	// Question source: the workbook, optionally behind a cache.
	sourcePath := cfg.Source.Path
	if sourcePath == "" {
		sourcePath = "quiz.xlsx"
	}
	var source quiz.QuestionSource = xlsx.New(sourcePath)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	if cacheTTL := config.Duration(cfg.Source.CacheTTL, 0); cacheTTL > 0 {
		if redisClient != nil {
			source = redisinfra.NewCachedSource(redisClient, source, cacheTTL)
		} else {
			source = memory.NewCachedSource(source, cacheTTL)
		}
	}

	// Score ledger: Postgres when configured, a local SQLite file otherwise.
	var ledger quiz.ScoreLedger
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		ledger = pgledger.New(pool)
	} else {
		store, err := sqliteledger.New(cfg.SQLite.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		ledger = store
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return err
	}

	opts := quiz.Options{
		MaxQuestions:    cfg.Quiz.MaxQuestions,
		AnswerDelay:     config.Duration(cfg.Quiz.AnswerDelay, 1500*time.Millisecond),
		LeaderboardSize: cfg.Quiz.LeaderboardSize,
		ImageDir:        cfg.Source.ImageDir,
		BotName:         api.Self.UserName,
	}
	service := quiz.NewService(telegram.NewGateway(api), source, ledger, certificate.New(cfg.Certificate.FontPath), opts)
	bot := telegram.NewBot(api, service)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-stop:
			log.Println("shutting down bot...")
		case <-runCtx.Done():
		}
		cancel()
	}()

	log.Println("starting quiz bot")
	return bot.Run(runCtx)
}
