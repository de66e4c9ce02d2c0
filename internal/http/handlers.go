/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hidetak/trello-csv/internal/config"
	"github.com/hidetak/trello-csv/internal/domain"
	"github.com/hidetak/trello-csv/internal/repo"
	"github.com/hidetak/trello-csv/internal/services"
	"github.com/rs/zerolog"
)

type service interface {
	Boards(ctx context.Context) ([]domain.Board, error)
	RefreshBoard(ctx context.Context, boardID string) error
	RecordsReport(ctx context.Context, boardID, filter string) (string, error)
	StatsReport(ctx context.Context, boardID, filter, groupBy string, withDone bool) (string, error)
	BurndownReport(ctx context.Context, boardID, filter, groupBy, metric string) (string, error)
	RunDigest(ctx context.Context) error
	GetLastRun(ctx context.Context) (*repo.LastRun, error)
}

type Handlers struct {
	cfg config.Config
	log zerolog.Logger
	svc service
}

func NewHandlers(cfg config.Config, log zerolog.Logger, svc any) *Handlers {
	return &Handlers{cfg: cfg, log: log, svc: svc.(service)}
}

func (h *Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) Boards(c *gin.Context) {
	boards, err := h.svc.Boards(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, boards)
}

func (h *Handlers) Refresh(c *gin.Context) {
	boardID := c.Param("id")
	// detach from the request so a slow fetch survives client timeouts
	go func() { _ = h.svc.RefreshBoard(context.Background(), boardID) }()
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "board": boardID})
}

func (h *Handlers) Records(c *gin.Context) {
	csv, err := h.svc.RecordsReport(c.Request.Context(), c.Param("id"), c.Query("filter"))
	if err != nil {
		h.reportError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(csv))
}

func (h *Handlers) Stats(c *gin.Context) {
	withDone := c.Query("done") == "true"
	csv, err := h.svc.StatsReport(c.Request.Context(), c.Param("id"), c.Query("filter"), c.Query("groupby"), withDone)
	if err != nil {
		h.reportError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(csv))
}

func (h *Handlers) Burndown(c *gin.Context) {
	csv, err := h.svc.BurndownReport(c.Request.Context(), c.Param("id"), c.Query("filter"), c.Query("groupby"), c.Query("metric"))
	if err != nil {
		h.reportError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(csv))
}

func (h *Handlers) LastRun(c *gin.Context) {
	lr, err := h.svc.GetLastRun(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, lr)
}

func (h *Handlers) RunNow(c *gin.Context) {
	go func() { _ = h.svc.RunDigest(context.Background()) }()
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

// reportError maps missing datasets to 404; bad filter, group or metric
// input answers 400.
func (h *Handlers) reportError(c *gin.Context, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, services.ErrNoDataset) { status = http.StatusNotFound }
	c.JSON(status, gin.H{"error": err.Error()})
}
