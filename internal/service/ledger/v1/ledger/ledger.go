// Package ledger provides the engine applying the balance business rules atomically over the durable stores.

package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/businas/qwallet-bot/internal/config"
	"github.com/businas/qwallet-bot/internal/models/modeldto"
	"github.com/businas/qwallet-bot/internal/models/modelqueue"
	serviceErrors "github.com/businas/qwallet-bot/internal/service/ledger/v1/errors"
	"github.com/businas/qwallet-bot/internal/service/secretary/v1"
	"github.com/businas/qwallet-bot/internal/storage/v1"
	storageErrors "github.com/businas/qwallet-bot/internal/storage/v1/errors"
	"github.com/businas/qwallet-bot/internal/storage/v1/modelstorage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const queueCapacity = 128

// Ledger defines attributes of a struct available to its methods.
type Ledger struct {
	storage   storage.Storage
	secretary secretary.Secretary
	cfg       *config.LedgerConfig
	admins    map[int64]bool
	log       *zerolog.Logger
	// Queue carries outbound notifications to the notifier workers.
	Queue chan modelqueue.NotificationQueueEntry
	now   func() time.Time
}

// InitService initializes the ledger engine. The admin allow-list and all
// business-rule constants are injected here, never looked up globally.
func InitService(st storage.Storage, sec secretary.Secretary, cfg *config.LedgerConfig, botCfg *config.BotConfig, log *zerolog.Logger) (*Ledger, error) {
	if st == nil {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil storage was passed to service initializer"}
	}
	if sec == nil {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil secretary was passed to service initializer"}
	}
	admins := make(map[int64]bool, len(botCfg.AdminIDs))
	for _, adminID := range botCfg.AdminIDs {
		admins[adminID] = true
	}
	engine := &Ledger{
		storage:   st,
		secretary: sec,
		cfg:       cfg,
		admins:    admins,
		log:       log,
		Queue:     make(chan modelqueue.NotificationQueueEntry, queueCapacity),
		now:       time.Now,
	}
	return engine, nil
}

// Register lazily creates an account on first interaction and refreshes the
// stored username snapshot.
func (l *Ledger) Register(ctx context.Context, userID int64, username string) error {
	_, err := l.storage.GetOrCreateAccount(ctx, userID, username)
	return err
}

// IsAdmin reports whether the user belongs to the injected admin allow-list.
func (l *Ledger) IsAdmin(userID int64) bool {
	return l.admins[userID]
}

// IsFrozen reports the administrative freeze flag of an account.
func (l *Ledger) IsFrozen(ctx context.Context, userID int64) (bool, error) {
	account, err := l.storage.GetAccount(ctx, userID)
	if err != nil {
		var notFoundError *storageErrors.NotFoundError
		if errors.As(err, &notFoundError) {
			return false, nil
		}
		return false, err
	}
	return account.Frozen, nil
}

// GetBalance returns the current balance of an account. A frozen account may
// not view its balance.
func (l *Ledger) GetBalance(ctx context.Context, userID int64) (*modeldto.Balance, error) {
	account, err := l.storage.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if account.Frozen {
		return nil, &serviceErrors.AccountFrozenError{UserID: userID}
	}
	return &modeldto.Balance{Amount: account.Balance}, nil
}

// GetHistory returns the most recent transactions of an account, newest first.
func (l *Ledger) GetHistory(ctx context.Context, userID int64) ([]modeldto.HistoryEntry, error) {
	transactions, err := l.storage.GetRecentTransactions(ctx, userID, l.cfg.HistoryLimit)
	if err != nil {
		return nil, err
	}
	var history []modeldto.HistoryEntry
	for _, transaction := range transactions {
		history = append(history, modeldto.HistoryEntry{
			Kind:      transaction.Kind,
			Amount:    transaction.Amount,
			CreatedAt: transaction.CreatedAt,
		})
	}
	return history, nil
}

// ClaimBonus credits the time-gated bonus. The freeze flag is checked before
// the cooldown; the conditional storage update guards concurrent claims.
func (l *Ledger) ClaimBonus(ctx context.Context, userID int64) (float64, error) {
	account, err := l.storage.GetAccount(ctx, userID)
	if err != nil {
		return 0, err
	}
	if account.Frozen {
		return 0, &serviceErrors.AccountFrozenError{UserID: userID}
	}
	now := l.now().Unix()
	elapsed := time.Duration(now-account.LastBonus) * time.Second
	if elapsed < l.cfg.BonusCooldown {
		return 0, &serviceErrors.CooldownActiveError{Remaining: l.cfg.BonusCooldown - elapsed}
	}
	err = l.storage.ClaimBonus(ctx, userID, l.cfg.BonusAmount, now, l.cfg.BonusCooldown)
	if err != nil {
		var bonusNotAvailableError *storageErrors.BonusNotAvailableError
		if errors.As(err, &bonusNotAvailableError) {
			// lost a race against a concurrent claim
			return 0, &serviceErrors.CooldownActiveError{Remaining: l.cfg.BonusCooldown}
		}
		return 0, err
	}
	err = l.storage.AppendTransaction(ctx, userID, modelstorage.KindBonus, l.cfg.BonusAmount)
	if err != nil {
		// the credit is already committed: report the inconsistency operationally, never roll back
		l.log.Error().Err(err).Msg(fmt.Sprintf("transaction log append failed after committed bonus for %d", userID))
	}
	return l.cfg.BonusAmount, nil
}

// SendTip transfers amount from the sender to the account matching toUsername.
// The debit and credit commit as one atomic pair in storage.
func (l *Ledger) SendTip(ctx context.Context, fromID int64, toUsername string, amount float64) error {
	if amount < l.cfg.MinTip {
		return &serviceErrors.InvalidAmountError{Min: l.cfg.MinTip}
	}
	sender, err := l.storage.GetAccount(ctx, fromID)
	if err != nil {
		return err
	}
	if sender.Frozen {
		return &serviceErrors.AccountFrozenError{UserID: fromID}
	}
	recipient, err := l.storage.GetAccountByUsername(ctx, toUsername)
	if err != nil {
		var notFoundError *storageErrors.NotFoundError
		if errors.As(err, &notFoundError) {
			return &serviceErrors.RecipientNotFoundError{Username: toUsername}
		}
		return err
	}
	if recipient.UserID == fromID {
		return &serviceErrors.SelfTipError{UserID: fromID}
	}
	return l.storage.TransferTip(ctx, fromID, recipient.UserID, amount)
}

// RequestWithdrawal debits the account and records a pending withdrawal
// request as one atomic unit, then alerts every admin with sealed
// approve/reject callback tokens.
func (l *Ledger) RequestWithdrawal(ctx context.Context, userID int64, amount float64) (string, error) {
	if amount < l.cfg.MinWithdraw {
		return "", &serviceErrors.InvalidAmountError{Min: l.cfg.MinWithdraw}
	}
	account, err := l.storage.GetAccount(ctx, userID)
	if err != nil {
		return "", err
	}
	if account.Frozen {
		return "", &serviceErrors.AccountFrozenError{UserID: userID}
	}
	requestID := uuid.New().String()
	err = l.storage.CreateWithdrawal(ctx, requestID, userID, account.Username, amount)
	if err != nil {
		return "", err
	}
	approveToken, err := l.secretary.EncodeCallback(secretary.OutcomeApprove, requestID)
	if err != nil {
		return "", err
	}
	rejectToken, err := l.secretary.EncodeCallback(secretary.OutcomeReject, requestID)
	if err != nil {
		return "", err
	}
	for adminID := range l.admins {
		l.Queue <- modelqueue.NotificationQueueEntry{
			ChatID: adminID,
			Text:   fmt.Sprintf("💸 Withdraw Request\nUser: @%s\nAmount: %.2f USDT", account.Username, amount),
			Actions: []modelqueue.InlineAction{
				{Label: "✅ Approve", Token: approveToken},
				{Label: "❌ Reject", Token: rejectToken},
			},
		}
	}
	return requestID, nil
}

// ResolveWithdrawal applies an admin resolution decoded from a callback token.
// The pending -> terminal transition happens exactly once in storage, so a
// replayed tap cannot refund twice.
func (l *Ledger) ResolveWithdrawal(ctx context.Context, adminID int64, token string) (*modeldto.Resolution, error) {
	if !l.admins[adminID] {
		return nil, &serviceErrors.PermissionDeniedError{UserID: adminID}
	}
	outcome, requestID, err := l.secretary.DecodeCallback(token)
	if err != nil {
		return nil, &serviceErrors.BadCallbackError{Err: err}
	}
	status := modelstorage.StatusApproved
	if outcome == secretary.OutcomeReject {
		status = modelstorage.StatusRejected
	}
	withdrawal, err := l.storage.ResolveWithdrawal(ctx, requestID, status)
	if err != nil {
		return nil, err
	}
	notice := "✅ Withdrawal approved"
	if status == modelstorage.StatusRejected {
		notice = "❌ Withdrawal rejected (amount refunded)"
	}
	l.Queue <- modelqueue.NotificationQueueEntry{ChatID: withdrawal.UserID, Text: notice}
	return &modeldto.Resolution{
		Outcome:   outcome,
		RequestID: withdrawal.RequestID,
		UserID:    withdrawal.UserID,
		Username:  withdrawal.Username,
		Amount:    withdrawal.Amount,
	}, nil
}

// SetFrozen flips the administrative freeze flag on a target account.
func (l *Ledger) SetFrozen(ctx context.Context, adminID int64, targetID int64, frozen bool) error {
	if !l.admins[adminID] {
		return &serviceErrors.PermissionDeniedError{UserID: adminID}
	}
	return l.storage.SetFrozen(ctx, targetID, frozen)
}

// ListUserIDs lists every known account identifier for the admin panel.
func (l *Ledger) ListUserIDs(ctx context.Context, adminID int64) ([]int64, error) {
	if !l.admins[adminID] {
		return nil, &serviceErrors.PermissionDeniedError{UserID: adminID}
	}
	return l.storage.GetAllUserIDs(ctx)
}

// Broadcast queues a best-effort message to every known account.
func (l *Ledger) Broadcast(ctx context.Context, adminID int64, text string) error {
	if !l.admins[adminID] {
		return &serviceErrors.PermissionDeniedError{UserID: adminID}
	}
	userIDs, err := l.storage.GetAllUserIDs(ctx)
	if err != nil {
		return err
	}
	for _, userID := range userIDs {
		l.Queue <- modelqueue.NotificationQueueEntry{ChatID: userID, Text: text}
	}
	return nil
}
