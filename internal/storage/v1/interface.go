package storage

import (
	"context"
	"time"

	"github.com/businas/qwallet-bot/internal/storage/v1/modelstorage"
)

type AccountStore interface {
	GetOrCreateAccount(ctx context.Context, userID int64, username string) (modelstorage.AccountStorageEntry, error)
	GetAccount(ctx context.Context, userID int64) (modelstorage.AccountStorageEntry, error)
	GetAccountByUsername(ctx context.Context, username string) (modelstorage.AccountStorageEntry, error)
	ApplyDelta(ctx context.Context, userID int64, amount float64) error
	ClaimBonus(ctx context.Context, userID int64, amount float64, now int64, cooldown time.Duration) error
	SetFrozen(ctx context.Context, userID int64, frozen bool) error
	GetAllUserIDs(ctx context.Context) ([]int64, error)
}

type TransactionLog interface {
	AppendTransaction(ctx context.Context, userID int64, kind string, amount float64) error
	GetRecentTransactions(ctx context.Context, userID int64, limit int) ([]modelstorage.TransactionStorageEntry, error)
}

type WithdrawalStore interface {
	CreateWithdrawal(ctx context.Context, requestID string, userID int64, username string, amount float64) error
	GetWithdrawal(ctx context.Context, requestID string) (modelstorage.WithdrawalStorageEntry, error)
	ResolveWithdrawal(ctx context.Context, requestID string, status string) (modelstorage.WithdrawalStorageEntry, error)
	GetPendingWithdrawals(ctx context.Context) ([]modelstorage.WithdrawalStorageEntry, error)
}

type TipTransfer interface {
	TransferTip(ctx context.Context, fromID int64, toID int64, amount float64) error
}

type Storage interface {
	AccountStore
	TransactionLog
	WithdrawalStore
	TipTransfer
	Ping(ctx context.Context) error
}
