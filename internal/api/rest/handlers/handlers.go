// Package handlers provides operational API endpoint handling functionality.

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	handlersErrors "github.com/businas/qwallet-bot/internal/api/rest/errors"
	"github.com/businas/qwallet-bot/internal/models/modeldto"
	"github.com/businas/qwallet-bot/internal/storage/v1"
	"github.com/rs/zerolog"
)

// Handler defines attributes of a struct available to its methods.
type Handler struct {
	storage storage.Storage
	log     *zerolog.Logger
}

// InitHandlers initializes a handler object.
func InitHandlers(st storage.Storage, log *zerolog.Logger) (*Handler, error) {
	if st == nil {
		return nil, &handlersErrors.HandlersFoundNilArgument{Msg: "nil storage was passed to handlers initializer"}
	}
	return &Handler{storage: st, log: log}, nil
}

// HandleHealth reports DB connectivity.
func (h *Handler) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		err := h.storage.Ping(ctx)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleHealth failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, err = w.Write([]byte("ok"))
		if err != nil {
			h.log.Error().Err(err).Msg("HandleHealth failed")
		}
	}
}

// HandleGetPendingWithdrawals lists unresolved withdrawal requests.
func (h *Handler) HandleGetPendingWithdrawals() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		withdrawals, err := h.storage.GetPendingWithdrawals(ctx)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleGetPendingWithdrawals failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if len(withdrawals) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		var responseWithdrawals []modeldto.PendingWithdrawal
		for _, withdrawal := range withdrawals {
			responseWithdrawals = append(responseWithdrawals, modeldto.PendingWithdrawal{
				RequestID: withdrawal.RequestID,
				UserID:    withdrawal.UserID,
				Username:  withdrawal.Username,
				Amount:    withdrawal.Amount,
				CreatedAt: withdrawal.CreatedAt,
			})
		}
		resBody, err := json.Marshal(responseWithdrawals)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleGetPendingWithdrawals failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, err = w.Write(resBody)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleGetPendingWithdrawals failed")
		}
	}
}
