package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"gomokubot/engine"
)

func main() {
	cfg := loadServerConfig()
	logger := buildLogger(cfg.LogLevel)
	log.Logger = logger

	if cfg.EngineConfigPath != "" {
		if _, err := engine.ApplyConfigFile(cfg.EngineConfigPath); err != nil {
			logger.Fatal().Err(err).Str("path", cfg.EngineConfigPath).Msg("failed to load engine config")
		}
		logger.Info().Str("path", cfg.EngineConfigPath).Msg("engine config loaded")
	}
	engineConfig, err := engine.EnsureSearchBudget(cfg.EngineTimeBudgetMs)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to apply search budget")
	}
	logger.Info().Int("search_time_budget_ms", engineConfig.SearchTimeBudgetMs).Msg("engine search budget")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewMemoryRoomStore()
	if _, err := loadPersistedRooms(ctx, store, cfg.SnapshotPath, logger); err != nil {
		logger.Error().Err(err).Msg("failed to restore rooms")
	}

	var persistOnce sync.Once
	persistOnShutdown := func(reason string) {
		persistOnce.Do(func() {
			logger.Info().Str("reason", reason).Msg("persisting rooms")
			if err := persistRooms(context.Background(), store, cfg.SnapshotPath, logger); err != nil {
				logger.Error().Err(err).Msg("failed to persist rooms")
			}
		})
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error().Interface("panic", recovered).Msg("panic recovered in main")
			persistOnShutdown("panic")
		}
	}()
	defer persistOnShutdown("exit")

	eng := engine.NewEngine(engine.WithLogger(logger.With().Str("component", "engine").Logger()))
	tokens := NewSeatTokens(cfg.seatSecret(logger), cfg.TokenTTL)
	rooms := NewRoomService(store, eng, tokens, logger.With().Str("component", "rooms").Logger())
	defer rooms.Close()

	go func() {
		ticker := time.NewTicker(cfg.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rooms.Tick(ctx)
			}
		}
	}()

	server := &http.Server{
		Addr: cfg.Addr,
		Handler: newRouter(&api{
			rooms:  rooms,
			store:  store,
			engine: eng,
			logger: logger,
		}),
	}
	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
		close(serverErrCh)
	}()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	logger.Info().Str("addr", cfg.Addr).Msg("backend listening")
	var runErr error
	select {
	case <-sigCtx.Done():
		logger.Info().Err(sigCtx.Err()).Msg("shutdown signal received")
	case err, ok := <-serverErrCh:
		if ok {
			runErr = err
			logger.Error().Err(err).Msg("server error")
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if closeErr := server.Close(); closeErr != nil && !errors.Is(closeErr, http.ErrServerClosed) {
			logger.Error().Err(closeErr).Msg("forced close failed")
		}
	}

	cancel()
	rooms.Close()
	persistOnShutdown("shutdown")
	if runErr != nil {
		logger.Error().Err(runErr).Msg("exiting after server error")
	}
}
