// Package rest provides the operational HTTP surface.
package rest

import (
	"net/http"
	"time"

	"github.com/businas/qwallet-bot/internal/api/rest/handlers"
	"github.com/businas/qwallet-bot/internal/config"
	"github.com/businas/qwallet-bot/internal/storage/v1"
	"github.com/go-chi/chi"
	"github.com/rs/zerolog"
)

// InitServer returns a http.Server object ready to be listening and serving.
func InitServer(cfg *config.OpsConfig, log *zerolog.Logger, st storage.Storage) (*http.Server, error) {
	opsHandler, err := handlers.InitHandlers(st, log)
	if err != nil {
		return nil, err
	}
	r := chi.NewRouter()
	r.Get("/api/ops/health", opsHandler.HandleHealth())
	r.Get("/api/ops/withdrawals", opsHandler.HandleGetPendingWithdrawals())
	srv := &http.Server{
		Addr:         cfg.OpsAddress,
		Handler:      r,
		IdleTimeout:  60 * time.Second,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return srv, nil
}
