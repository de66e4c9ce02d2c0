/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hidetak/trello-csv/internal/adapters/openai"
	"github.com/hidetak/trello-csv/internal/adapters/telegram"
	"github.com/hidetak/trello-csv/internal/adapters/trello"
	"github.com/hidetak/trello-csv/internal/config"
	httpapi "github.com/hidetak/trello-csv/internal/http"
	"github.com/hidetak/trello-csv/internal/jobs"
	"github.com/hidetak/trello-csv/internal/logger"
	"github.com/hidetak/trello-csv/internal/repo"
	"github.com/hidetak/trello-csv/internal/services"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db := repo.MustOpen(ctx, cfg, log)
	defer db.Close()

	// Adapters
	tc := trello.NewClient(cfg, log)
	llm := openai.NewClient(cfg, log)
	tg := telegram.NewClient(cfg, log)

	// Services
	repository := repo.NewRepository(db, log)
	if err := repository.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("schema init failed")
	}
	svc := services.New(cfg, log, repository, tc, llm, tg)

	// HTTP server (Gin)
	router := httpapi.NewRouter(cfg, log, svc)

	// Cron
	cr := jobs.NewCron(cfg, log, svc, repository)
	cr.Start()
	defer cr.Stop()

	// graceful shutdown
	errCh := make(chan error, 1)
	go func() { errCh <- router.Run(cfg.HTTPAddr) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info().Msg("shutting down...")
	case err := <-errCh:
		if err != nil { log.Error().Err(err).Msg("http server error") }
	}

	time.Sleep(500 * time.Millisecond)
}
