package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"life-assistant-bot/internal/advisor"
	"life-assistant-bot/internal/cache"
	"life-assistant-bot/internal/chart"
	"life-assistant-bot/internal/classifier"
	"life-assistant-bot/internal/config"
	"life-assistant-bot/internal/db"
	"life-assistant-bot/internal/dispatcher"
	"life-assistant-bot/internal/handler"
	"life-assistant-bot/internal/ledger"
	"life-assistant-bot/internal/linebot"
	"life-assistant-bot/internal/provider"
	"life-assistant-bot/internal/repository"
	"life-assistant-bot/internal/state"
	"life-assistant-bot/internal/stock"
	"life-assistant-bot/pkg/tracing"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	initPostgresFunc       = db.InitPostgres
	initRedisFunc          = cache.InitRedis
	initTracerFunc         = tracing.InitTracer
	newLineClientFunc      = linebot.NewClient
	newRouterFunc          = gin.Default
	setupSignalNotify      = ossignal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Postgres and Redis
	initPostgresFunc(ctx, cfg.DatabaseURL)
	initRedisFunc(ctx, cfg.RedisURL)

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	if err := os.MkdirAll(cfg.StaticDir, 0o755); err != nil {
		log.Fatalf("failed to create static dir: %v", err)
	}

	// Create repositories and run migrations
	txRepo := repository.NewTransactionRepository(db.Pool, tracer)
	budgetRepo := repository.NewBudgetRepository(db.Pool, tracer)
	if db.Pool != nil {
		if err := txRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run transaction migrations: %v", err)
		}
		if err := budgetRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run budget migrations: %v", err)
		}
	}
	watchRepo := repository.NewWatchlistRepository(cache.Client, tracer)

	lineClient, err := newLineClientFunc(cfg.LineChannelSecret, cfg.LineChannelToken, cfg.StaticDir)
	if err != nil {
		log.Fatalf("failed to init LINE client: %v", err)
	}

	ledgerService := ledger.NewService(tracer, txRepo, budgetRepo, lineClient, nil)

	deps := dispatcher.Deps{
		States:    state.NewStore(),
		Rules:     classifier.New(),
		Ledger:    ledgerService,
		Watchlist: watchRepo,
		Names:     lineClient,
		News:      provider.NewNews(),
		Horoscope: provider.NewHoroscope(),
		Weather:   provider.NewCWA(cfg.CWAToken, cfg.MoenvAPIKey),
		Stocks:    stock.NewClient(),
		StockNews: provider.NewStockNews(),
		Charts:    chart.NewRenderer(),
		StaticDir: cfg.StaticDir,
		BaseURL:   cfg.BaseURL,
	}
	// Optional collaborators stay nil when unconfigured so their
	// branches degrade instead of calling a dead endpoint.
	if ai := advisor.New(cfg.OpenAIAPIKey, cfg.OpenAIModel); ai != nil {
		deps.AI = ai
	}
	if p := stock.NewPredictor(cfg.PredictorURL); p != nil {
		deps.Predictor = p
	}
	if b := provider.NewBreedClassifier(cfg.BreedModelURL); b != nil {
		deps.Breeds = b
	}
	if f := provider.NewFilterService(cfg.FilterSvcURL); f != nil {
		deps.Filters = f
	}

	disp := dispatcher.New(tracer, deps)
	bot := linebot.NewBot(disp, lineClient, lineClient)
	h := handler.New(tracer, lineClient, bot, cfg.StaticDir)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("life-assistant-bot"))
	r.Use(cors.Default())
	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
