package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/businas/qwallet-bot/internal/models/modeldto"
	"github.com/businas/qwallet-bot/internal/storage/v1"
	"github.com/businas/qwallet-bot/internal/storage/v1/modelstorage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStorage overrides only the methods the ops surface touches.
type fakeStorage struct {
	storage.Storage
	pingErr error
	pending []modelstorage.WithdrawalStorageEntry
	err     error
}

func (f *fakeStorage) Ping(_ context.Context) error {
	return f.pingErr
}

func (f *fakeStorage) GetPendingWithdrawals(_ context.Context) ([]modelstorage.WithdrawalStorageEntry, error) {
	return f.pending, f.err
}

func newTestHandler(t *testing.T, st storage.Storage) *Handler {
	t.Helper()
	log := zerolog.Nop()
	h, err := InitHandlers(st, &log)
	require.NoError(t, err)
	return h
}

func TestHandleHealth(t *testing.T) {
	h := newTestHandler(t, &fakeStorage{})
	w := httptest.NewRecorder()
	h.HandleHealth()(w, httptest.NewRequest(http.MethodGet, "/api/ops/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestHandleHealthReportsDBFailure(t *testing.T) {
	h := newTestHandler(t, &fakeStorage{pingErr: errors.New("connection refused")})
	w := httptest.NewRecorder()
	h.HandleHealth()(w, httptest.NewRequest(http.MethodGet, "/api/ops/health", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandleGetPendingWithdrawals(t *testing.T) {
	h := newTestHandler(t, &fakeStorage{pending: []modelstorage.WithdrawalStorageEntry{
		{RequestID: "2c9b54a1-51d3-4dd5-9f0e-2f9b31c6a111", UserID: 1, Username: "alice", Amount: 10, Status: modelstorage.StatusPending},
	}})
	w := httptest.NewRecorder()
	h.HandleGetPendingWithdrawals()(w, httptest.NewRequest(http.MethodGet, "/api/ops/withdrawals", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var withdrawals []modeldto.PendingWithdrawal
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &withdrawals))
	require.Len(t, withdrawals, 1)
	assert.Equal(t, "alice", withdrawals[0].Username)
	assert.Equal(t, 10.0, withdrawals[0].Amount)
}

func TestHandleGetPendingWithdrawalsEmpty(t *testing.T) {
	h := newTestHandler(t, &fakeStorage{})
	w := httptest.NewRecorder()
	h.HandleGetPendingWithdrawals()(w, httptest.NewRequest(http.MethodGet, "/api/ops/withdrawals", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
