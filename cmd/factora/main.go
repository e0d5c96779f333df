package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"

	"github.com/factora-erp/factora/internal/app"
	"github.com/factora-erp/factora/internal/documents"
	"github.com/factora-erp/factora/internal/ledger"
	"github.com/factora-erp/factora/internal/ledger/accounts"
	"github.com/factora-erp/factora/internal/numbering"
	"github.com/factora-erp/factora/internal/observability"
	"github.com/factora-erp/factora/internal/party"
	"github.com/factora-erp/factora/internal/platform/cache"
	"github.com/factora-erp/factora/internal/platform/db"
	"github.com/factora-erp/factora/internal/shared"
	"github.com/factora-erp/factora/internal/stock"
	"github.com/factora-erp/factora/internal/totals"
	"github.com/factora-erp/factora/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	validate := validator.New()
	audit := shared.NewAuditLogger(pool)
	idem := shared.NewIdempotencyStore(pool)

	stockRules := stock.NewLedger(stock.Config{AllowNegative: cfg.StockAllowNegative})
	poster := ledger.NewPoster()
	rates := totals.NewCachedRates(totals.NewPGRates(pool), redisClient, cfg.TaxRateTTL)

	partyRepo := party.NewRepository(pool)
	partyService := party.NewService(partyRepo)

	numberingService := numbering.NewService(pool, cfg.LockTimeout)
	numberingAdmin := numbering.NewAdmin(pool)

	stockRepo := stock.NewRepository(pool, cfg.LockTimeout)
	stockService := stock.NewService(stockRepo, stockRules, audit)

	ledgerRepo := ledger.NewRepository(pool, cfg.LockTimeout)
	ledgerService := ledger.NewService(ledgerRepo, poster, audit)

	accountsRepo := accounts.NewRepository(pool)
	accountsService := accounts.NewService(accountsRepo)

	engine := documents.NewEngine(documents.Deps{
		Repo:     documents.NewRepository(pool, cfg.LockTimeout),
		Parties:  partyService,
		Rates:    rates,
		Accounts: documents.NewPGAccountResolver(pool),
		Stock:    stockRules,
		Poster:   poster,
		Audit:    audit,
		Metrics:  metrics,
		Logger:   logger,
	})

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		DocumentsHandler: documents.NewHandler(logger, engine, validate, idem),
		StockHandler:     stock.NewHandler(stockService),
		LedgerHandler:    ledger.NewHandler(ledgerService, validate),
		AccountsHandler:  accounts.NewHandler(accountsService, validate),
		PartyHandler:     party.NewHandler(partyService, validate),
		NumberingHandler: numbering.NewHandler(numberingService, numberingAdmin, validate),
		JobsHandler:      jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
