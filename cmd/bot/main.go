package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/PoluyanbIch/QuizAuthorBot/internal/config"
	"github.com/PoluyanbIch/QuizAuthorBot/internal/health"
	"github.com/PoluyanbIch/QuizAuthorBot/internal/service"
	"github.com/PoluyanbIch/QuizAuthorBot/internal/session"
	"github.com/PoluyanbIch/QuizAuthorBot/internal/telegram"
)

func main() {
	logger := log.New(os.Stdout, "[quizbot] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Хранилище выбирается через DB_DRIVER
	quizzes, approvals, db, err := openStores(ctx, cfg)
	if err != nil {
		logger.Fatal(err)
	}
	if db != nil {
		defer db.Close()
	}

	extractor := service.WithRetry(newExtractor(cfg, logger), cfg.OCRRetries, logger)
	gate := service.NewAccessGate(cfg.AdminUserID, cfg.AdminPasscode, approvals)
	results := service.NewMemoryResultsService()

	bot, err := telegram.NewBot(cfg.TelegramToken, cfg.Debug, results, logger)
	if err != nil {
		logger.Fatal(err)
	}
	if err := bot.RegisterCommands(); err != nil {
		logger.Printf("Error registering commands: %v", err)
	}

	machine := session.NewMachine(quizzes, gate, results, logger).WithShuffle(cfg.ShuffleOptions)
	manager := session.NewManager(machine, extractor, bot, logger).WithExtractTimeout(cfg.OCRTimeout)
	heartbeat := health.NewHeartbeat(logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bot.Start(gctx, manager)
	})
	g.Go(func() error {
		heartbeat.Run(gctx, cfg.HeartbeatInterval)
		return nil
	})
	if cfg.HealthAddr != "" {
		var pinger health.Pinger
		if db != nil {
			pinger = db
		}
		g.Go(func() error {
			return health.Serve(gctx, cfg.HealthAddr, health.Router(heartbeat, pinger), logger)
		})
	}

	logger.Printf("🤖 Bot is starting (store=%s, ocr=%s)...", cfg.DBDriver, cfg.OCRProvider)
	if err := g.Wait(); err != nil {
		logger.Printf("bot stopped with error: %v", err)
	}
	manager.Wait()
	logger.Println("👋 Bot stopped")
}

func openStores(ctx context.Context, cfg *config.Config) (service.QuizStore, service.ApprovalStore, *sql.DB, error) {
	driver := service.Driver(cfg.DBDriver)
	if driver == service.DriverMemory {
		return service.NewMemoryQuizStore(), service.NewMemoryApprovalStore(), nil, nil
	}

	db, err := service.OpenDB(ctx, driver, cfg.DBDSN)
	if err != nil {
		return nil, nil, nil, err
	}
	return service.NewSQLQuizStore(db), service.NewSQLApprovalStore(db), db, nil
}

func newExtractor(cfg *config.Config, logger *log.Logger) service.TextExtractor {
	switch cfg.OCRProvider {
	case "openai":
		return service.NewOpenAIExtractor(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	case "tesseract":
		return service.NewTesseractExtractor(cfg.TesseractPath, cfg.TesseractLang)
	default:
		logger.Println("OCR is disabled, only manual input is available")
		return service.NoopExtractor{}
	}
}
