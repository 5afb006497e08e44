// Package ledger defines the engine applying the balance business rules.
package ledger

import (
	"context"

	"github.com/businas/qwallet-bot/internal/models/modeldto"
)

// Ledger defines a set of methods for types implementing Ledger.
type Ledger interface {
	Register(ctx context.Context, userID int64, username string) error
	IsAdmin(userID int64) bool
	IsFrozen(ctx context.Context, userID int64) (bool, error)
	GetBalance(ctx context.Context, userID int64) (*modeldto.Balance, error)
	GetHistory(ctx context.Context, userID int64) ([]modeldto.HistoryEntry, error)
	ClaimBonus(ctx context.Context, userID int64) (float64, error)
	SendTip(ctx context.Context, fromID int64, toUsername string, amount float64) error
	RequestWithdrawal(ctx context.Context, userID int64, amount float64) (string, error)
	ResolveWithdrawal(ctx context.Context, adminID int64, token string) (*modeldto.Resolution, error)
	SetFrozen(ctx context.Context, adminID int64, targetID int64, frozen bool) error
	ListUserIDs(ctx context.Context, adminID int64) ([]int64, error)
	Broadcast(ctx context.Context, adminID int64, text string) error
}
