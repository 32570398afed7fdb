package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status      string `json:"status"`
	Store       string `json:"store"`
	Database    string `json:"database,omitempty"`
	Cache       string `json:"cache,omitempty"`
	Subscribers int    `json:"subscribers"`
	Environment string `json:"environment"`
}

func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:      "ok",
		Store:       h.cfg.Store.Backend,
		Subscribers: h.portal.Bus.Subscribers(),
		Environment: h.cfg.Environment,
	}

	if h.db != nil {
		resp.Database = "ok"
		if err := h.db.Ping(ctx); err != nil {
			resp.Database = "error"
			resp.Status = "degraded"
			h.log.Error().Err(err).Msg("database ping failed")
		}
	}

	if h.cache != nil {
		resp.Cache = "ok"
		if err := h.cache.Ping(ctx).Err(); err != nil {
			resp.Cache = "error"
			resp.Status = "degraded"
			h.log.Error().Err(err).Msg("redis ping failed")
		}
	}

	c.JSON(http.StatusOK, resp)
}
