// Package modelstorage provides types for querying relational DB.

package modelstorage

// Transaction kinds as stored in the transactions table.
const (
	KindBonus          = "bonus"
	KindTipSent        = "tip_sent"
	KindTipReceived    = "tip_received"
	KindWithdraw       = "withdraw"
	KindWithdrawRefund = "withdraw_refund"
)

// Withdrawal request lifecycle statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

type AccountStorageEntry struct {
	ID        uint    `db:"id"`
	UserID    int64   `db:"user_id"`
	Username  string  `db:"username"`
	Balance   float64 `db:"balance"`
	LastBonus int64   `db:"last_bonus"`
	Frozen    bool    `db:"frozen"`
}

type TransactionStorageEntry struct {
	ID        uint    `db:"id"`
	UserID    int64   `db:"user_id"`
	Kind      string  `db:"kind"`
	Amount    float64 `db:"amount"`
	CreatedAt string  `db:"created_at"`
}

type WithdrawalStorageEntry struct {
	ID        uint    `db:"id"`
	RequestID string  `db:"request_id"`
	UserID    int64   `db:"user_id"`
	Username  string  `db:"username"`
	Amount    float64 `db:"amount"`
	Status    string  `db:"status"`
	CreatedAt string  `db:"created_at"`
}
