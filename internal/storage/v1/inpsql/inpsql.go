// Package inpsql provides PSQL-backed durable stores for accounts, transactions and withdrawal requests.
package inpsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"github.com/businas/qwallet-bot/internal/config"
	storageErrors "github.com/businas/qwallet-bot/internal/storage/v1/errors"
	"github.com/businas/qwallet-bot/internal/storage/v1/modelstorage"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/rs/zerolog"
	"sync"
	"time"
)

type Storage struct {
	mu  sync.Mutex
	Cfg *config.StorageConfig
	DB  *sql.DB
	log *zerolog.Logger
}

func InitStorage(ctx context.Context, cfg *config.StorageConfig, log *zerolog.Logger) (*Storage, error) {
	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("")
	}
	// initialize a Storage
	st := Storage{
		Cfg: cfg,
		DB:  db,
		log: log,
	}
	err = st.createTables(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("")
	}
	log.Info().Msg("PSQL DB connection was established")
	return &st, nil
}

// Ping verifies the DB connection for the operational health endpoint.
func (s *Storage) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

// GetOrCreateAccount retrieves an account creating it with defaults on first interaction.
// The stored username snapshot is refreshed on every call.
func (s *Storage) GetOrCreateAccount(ctx context.Context, userID int64, username string) (modelstorage.AccountStorageEntry, error) {
	upsertStmt, err := s.DB.PrepareContext(ctx, "INSERT INTO accounts (user_id, username, balance, last_bonus, frozen) VALUES ($1, $2, 0, 0, false) ON CONFLICT (user_id) DO UPDATE SET username = EXCLUDED.username RETURNING id, user_id, username, balance, last_bonus, frozen")
	if err != nil {
		return modelstorage.AccountStorageEntry{}, &storageErrors.StatementPSQLError{Err: err}
	}
	defer upsertStmt.Close()
	chanOk := make(chan modelstorage.AccountStorageEntry)
	chanEr := make(chan error)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		var queryOutput modelstorage.AccountStorageEntry
		err := upsertStmt.QueryRowContext(ctx, userID, username).Scan(&queryOutput.ID, &queryOutput.UserID, &queryOutput.Username, &queryOutput.Balance, &queryOutput.LastBonus, &queryOutput.Frozen)
		if err != nil {
			chanEr <- &storageErrors.ExecutionPSQLError{Err: err}
			return
		}
		chanOk <- queryOutput
	}()
	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg(fmt.Sprintf("getting or creating account failed for %d", userID))
		return modelstorage.AccountStorageEntry{}, &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		s.log.Error().Err(methodErr).Msg(fmt.Sprintf("getting or creating account failed for %d", userID))
		return modelstorage.AccountStorageEntry{}, methodErr
	case account := <-chanOk:
		return account, nil
	}
}

// GetAccount retrieves an account by its user identifier.
func (s *Storage) GetAccount(ctx context.Context, userID int64) (modelstorage.AccountStorageEntry, error) {
	selectStmt, err := s.DB.PrepareContext(ctx, "SELECT id, user_id, username, balance, last_bonus, frozen FROM accounts WHERE user_id = $1")
	if err != nil {
		return modelstorage.AccountStorageEntry{}, &storageErrors.StatementPSQLError{Err: err}
	}
	defer selectStmt.Close()
	chanOk := make(chan modelstorage.AccountStorageEntry)
	chanEr := make(chan error)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		var queryOutput modelstorage.AccountStorageEntry
		err := selectStmt.QueryRowContext(ctx, userID).Scan(&queryOutput.ID, &queryOutput.UserID, &queryOutput.Username, &queryOutput.Balance, &queryOutput.LastBonus, &queryOutput.Frozen)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				chanEr <- &storageErrors.NotFoundError{Err: err}
				return
			default:
				chanEr <- err
				return
			}
		}
		chanOk <- queryOutput
	}()
	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg(fmt.Sprintf("getting account failed for %d", userID))
		return modelstorage.AccountStorageEntry{}, &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		return modelstorage.AccountStorageEntry{}, methodErr
	case account := <-chanOk:
		return account, nil
	}
}

// GetAccountByUsername retrieves an account by its stored username snapshot.
func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (modelstorage.AccountStorageEntry, error) {
	selectStmt, err := s.DB.PrepareContext(ctx, "SELECT id, user_id, username, balance, last_bonus, frozen FROM accounts WHERE username = $1")
	if err != nil {
		return modelstorage.AccountStorageEntry{}, &storageErrors.StatementPSQLError{Err: err}
	}
	defer selectStmt.Close()
	chanOk := make(chan modelstorage.AccountStorageEntry)
	chanEr := make(chan error)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		var queryOutput modelstorage.AccountStorageEntry
		err := selectStmt.QueryRowContext(ctx, username).Scan(&queryOutput.ID, &queryOutput.UserID, &queryOutput.Username, &queryOutput.Balance, &queryOutput.LastBonus, &queryOutput.Frozen)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				chanEr <- &storageErrors.NotFoundError{Err: err}
				return
			default:
				chanEr <- err
				return
			}
		}
		chanOk <- queryOutput
	}()
	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg(fmt.Sprintf("getting account failed for username %s", username))
		return modelstorage.AccountStorageEntry{}, &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		return modelstorage.AccountStorageEntry{}, methodErr
	case account := <-chanOk:
		return account, nil
	}
}

// ApplyDelta changes an account balance by a signed amount. The non-negativity
// invariant is enforced inside the UPDATE so that concurrent debits cannot
// overdraw the account.
func (s *Storage) ApplyDelta(ctx context.Context, userID int64, amount float64) error {
	updateStmt, err := s.DB.PrepareContext(ctx, "UPDATE accounts SET balance = balance + $2 WHERE user_id = $1 AND balance + $2 >= 0")
	if err != nil {
		return &storageErrors.StatementPSQLError{Err: err}
	}
	defer updateStmt.Close()
	chanOk := make(chan bool)
	chanEr := make(chan error)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		res, err := updateStmt.ExecContext(ctx, userID, amount)
		if err != nil {
			chanEr <- &storageErrors.ExecutionPSQLError{Err: err}
			return
		}
		nRows, err := res.RowsAffected()
		if err != nil {
			chanEr <- &storageErrors.ExecutionPSQLError{Err: err}
			return
		}
		if nRows == 0 {
			var exists bool
			err := s.DB.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM accounts WHERE user_id = $1)", userID).Scan(&exists)
			if err != nil {
				chanEr <- &storageErrors.ExecutionPSQLError{Err: err}
				return
			}
			if !exists {
				chanEr <- &storageErrors.NotFoundError{Err: sql.ErrNoRows}
				return
			}
			chanEr <- &storageErrors.NotEnoughFundsError{UserID: userID, Amount: amount}
			return
		}
		chanOk <- true
	}()
	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg(fmt.Sprintf("applying balance delta failed for %d", userID))
		return &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		s.log.Error().Err(methodErr).Msg(fmt.Sprintf("applying balance delta failed for %d", userID))
		return methodErr
	case <-chanOk:
		s.log.Info().Msg(fmt.Sprintf("applying balance delta done for %d", userID))
		return nil
	}
}

// ClaimBonus credits the bonus amount and stamps last_bonus in one conditional
// UPDATE, so two concurrent claims inside the cooldown window cannot both succeed.
func (s *Storage) ClaimBonus(ctx context.Context, userID int64, amount float64, now int64, cooldown time.Duration) error {
	updateStmt, err := s.DB.PrepareContext(ctx, "UPDATE accounts SET balance = balance + $2, last_bonus = $3 WHERE user_id = $1 AND $3 - last_bonus >= $4")
	if err != nil {
		return &storageErrors.StatementPSQLError{Err: err}
	}
	defer updateStmt.Close()
	chanOk := make(chan bool)
	chanEr := make(chan error)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		res, err := updateStmt.ExecContext(ctx, userID, amount, now, int64(cooldown.Seconds()))
		if err != nil {
			chanEr <- &storageErrors.ExecutionPSQLError{Err: err}
			return
		}
		nRows, err := res.RowsAffected()
		if err != nil {
			chanEr <- &storageErrors.ExecutionPSQLError{Err: err}
			return
		}
		if nRows == 0 {
			var exists bool
			err := s.DB.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM accounts WHERE user_id = $1)", userID).Scan(&exists)
			if err != nil {
				chanEr <- &storageErrors.ExecutionPSQLError{Err: err}
				return
			}
			if !exists {
				chanEr <- &storageErrors.NotFoundError{Err: sql.ErrNoRows}
				return
			}
			chanEr <- &storageErrors.BonusNotAvailableError{UserID: userID}
			return
		}
		chanOk <- true
	}()
	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg(fmt.Sprintf("claiming bonus failed for %d", userID))
		return &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		s.log.Error().Err(methodErr).Msg(fmt.Sprintf("claiming bonus failed for %d", userID))
		return methodErr
	case <-chanOk:
		s.log.Info().Msg(fmt.Sprintf("claiming bonus done for %d", userID))
		return nil
	}
}

// SetFrozen flips the administrative freeze flag.
func (s *Storage) SetFrozen(ctx context.Context, userID int64, frozen bool) error {
	updateStmt, err := s.DB.PrepareContext(ctx, "UPDATE accounts SET frozen = $2 WHERE user_id = $1")
	if err != nil {
		return &storageErrors.StatementPSQLError{Err: err}
	}
	defer updateStmt.Close()
	chanOk := make(chan bool)
	chanEr := make(chan error)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		res, err := updateStmt.ExecContext(ctx, userID, frozen)
		if err != nil {
			chanEr <- &storageErrors.ExecutionPSQLError{Err: err}
			return
		}
		nRows, err := res.RowsAffected()
		if err != nil {
			chanEr <- &storageErrors.ExecutionPSQLError{Err: err}
			return
		}
		if nRows == 0 {
			chanEr <- &storageErrors.NotFoundError{Err: sql.ErrNoRows}
			return
		}
		chanOk <- true
	}()
	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg(fmt.Sprintf("setting freeze flag failed for %d", userID))
		return &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		s.log.Error().Err(methodErr).Msg(fmt.Sprintf("setting freeze flag failed for %d", userID))
		return methodErr
	case <-chanOk:
		s.log.Info().Msg(fmt.Sprintf("setting freeze flag to %v done for %d", frozen, userID))
		return nil
	}
}

// GetAllUserIDs lists every known account identifier for broadcast fan-out.
func (s *Storage) GetAllUserIDs(ctx context.Context) ([]int64, error) {
	selectStmt, err := s.DB.PrepareContext(ctx, "SELECT user_id FROM accounts")
	if err != nil {
		return nil, &storageErrors.StatementPSQLError{Err: err}
	}
	defer selectStmt.Close()
	chanOk := make(chan []int64)
	chanEr := make(chan error)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		rows, err := selectStmt.QueryContext(ctx)
		if err != nil {
			chanEr <- &storageErrors.ExecutionPSQLError{Err: err}
			return
		}
		defer rows.Close()
		var userIDs []int64
		for rows.Next() {
			var userID int64
			err = rows.Scan(&userID)
			if err != nil {
				chanEr <- &storageErrors.ScanningPSQLError{Err: err}
				return
			}
			userIDs = append(userIDs, userID)
		}
		err = rows.Err()
		if err != nil {
			chanEr <- &storageErrors.ScanningPSQLError{Err: err}
			return
		}
		chanOk <- userIDs
	}()
	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg("listing account identifiers failed")
		return nil, &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		s.log.Error().Err(methodErr).Msg("listing account identifiers failed")
		return nil, methodErr
	case userIDs := <-chanOk:
		return userIDs, nil
	}
}

// AppendTransaction durably records one balance-affecting event.
func (s *Storage) AppendTransaction(ctx context.Context, userID int64, kind string, amount float64) error {
	insertStmt, err := s.DB.PrepareContext(ctx, "INSERT INTO transactions (user_id, kind, amount, created_at) VALUES ($1, $2, $3, $4)")
	if err != nil {
		return &storageErrors.StatementPSQLError{Err: err}
	}
	defer insertStmt.Close()
	chanOk := make(chan bool)
	chanEr := make(chan error)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		_, err := insertStmt.ExecContext(ctx, userID, kind, amount, time.Now().Format(time.RFC3339))
		if err != nil {
			chanEr <- &storageErrors.ExecutionPSQLError{Err: err}
			return
		}
		chanOk <- true
	}()
	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg(fmt.Sprintf("appending %s transaction failed for %d", kind, userID))
		return &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		s.log.Error().Err(methodErr).Msg(fmt.Sprintf("appending %s transaction failed for %d", kind, userID))
		return methodErr
	case <-chanOk:
		return nil
	}
}

// GetRecentTransactions returns the newest transactions for an account, newest first.
func (s *Storage) GetRecentTransactions(ctx context.Context, userID int64, limit int) ([]modelstorage.TransactionStorageEntry, error) {
	selectStmt, err := s.DB.PrepareContext(ctx, "SELECT id, user_id, kind, amount, created_at FROM transactions WHERE user_id = $1 ORDER BY id DESC LIMIT $2")
	if err != nil {
		return nil, &storageErrors.StatementPSQLError{Err: err}
	}
	defer selectStmt.Close()
	chanOk := make(chan []modelstorage.TransactionStorageEntry)
	chanEr := make(chan error)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		rows, err := selectStmt.QueryContext(ctx, userID, limit)
		if err != nil {
			chanEr <- &storageErrors.ExecutionPSQLError{Err: err}
			return
		}
		defer rows.Close()
		var queryOutput []modelstorage.TransactionStorageEntry
		for rows.Next() {
			var queryOutputRow modelstorage.TransactionStorageEntry
			err = rows.Scan(&queryOutputRow.ID, &queryOutputRow.UserID, &queryOutputRow.Kind, &queryOutputRow.Amount, &queryOutputRow.CreatedAt)
			if err != nil {
				chanEr <- &storageErrors.ScanningPSQLError{Err: err}
				return
			}
			queryOutput = append(queryOutput, queryOutputRow)
		}
		err = rows.Err()
		if err != nil {
			chanEr <- &storageErrors.ScanningPSQLError{Err: err}
			return
		}
		chanOk <- queryOutput
	}()
	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg(fmt.Sprintf("getting transaction history failed for %d", userID))
		return nil, &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		s.log.Error().Err(methodErr).Msg(fmt.Sprintf("getting transaction history failed for %d", userID))
		return nil, methodErr
	case transactions := <-chanOk:
		return transactions, nil
	}
}

// TransferTip moves amount between two accounts as one SQL transaction. Row
// locks are taken in ascending user_id order so that two opposite tips cannot
// deadlock each other.
func (s *Storage) TransferTip(ctx context.Context, fromID int64, toID int64, amount float64) error {
	chanOk := make(chan bool)
	chanEr := make(chan error)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		err := s.transferTip(ctx, fromID, toID, amount)
		if err != nil {
			chanEr <- err
			return
		}
		chanOk <- true
	}()
	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg(fmt.Sprintf("tip transfer failed from %d to %d", fromID, toID))
		return &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		s.log.Error().Err(methodErr).Msg(fmt.Sprintf("tip transfer failed from %d to %d", fromID, toID))
		return methodErr
	case <-chanOk:
		s.log.Info().Msg(fmt.Sprintf("tip transfer done from %d to %d", fromID, toID))
		return nil
	}
}

func (s *Storage) transferTip(ctx context.Context, fromID int64, toID int64, amount float64) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return &storageErrors.ExecutionPSQLError{Err: err}
	}
	defer tx.Rollback()
	// acquire row locks in ascending user_id order
	firstID, secondID := fromID, toID
	if firstID > secondID {
		firstID, secondID = secondID, firstID
	}
	for _, lockID := range []int64{firstID, secondID} {
		var balance float64
		err = tx.QueryRowContext(ctx, "SELECT balance FROM accounts WHERE user_id = $1 FOR UPDATE", lockID).Scan(&balance)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return &storageErrors.NotFoundError{Err: err}
			}
			return &storageErrors.ExecutionPSQLError{Err: err}
		}
		if lockID == fromID && balance < amount {
			return &storageErrors.NotEnoughFundsError{UserID: fromID, Amount: amount}
		}
	}
	_, err = tx.ExecContext(ctx, "UPDATE accounts SET balance = balance - $2 WHERE user_id = $1", fromID, amount)
	if err != nil {
		return &storageErrors.ExecutionPSQLError{Err: err}
	}
	_, err = tx.ExecContext(ctx, "UPDATE accounts SET balance = balance + $2 WHERE user_id = $1", toID, amount)
	if err != nil {
		return &storageErrors.ExecutionPSQLError{Err: err}
	}
	now := time.Now().Format(time.RFC3339)
	_, err = tx.ExecContext(ctx, "INSERT INTO transactions (user_id, kind, amount, created_at) VALUES ($1, $2, $3, $4), ($5, $6, $7, $8)",
		fromID, modelstorage.KindTipSent, amount, now, toID, modelstorage.KindTipReceived, amount, now)
	if err != nil {
		return &storageErrors.ExecutionPSQLError{Err: err}
	}
	err = tx.Commit()
	if err != nil {
		return &storageErrors.ExecutionPSQLError{Err: err}
	}
	return nil
}

// CreateWithdrawal debits the account and records the pending request plus the
// withdraw transaction inside one SQL transaction, so a crash can never lose
// debited funds without a corresponding request.
func (s *Storage) CreateWithdrawal(ctx context.Context, requestID string, userID int64, username string, amount float64) error {
	chanOk := make(chan bool)
	chanEr := make(chan error)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		err := s.createWithdrawal(ctx, requestID, userID, username, amount)
		if err != nil {
			chanEr <- err
			return
		}
		chanOk <- true
	}()
	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg(fmt.Sprintf("creating withdrawal failed for %d", userID))
		return &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		s.log.Error().Err(methodErr).Msg(fmt.Sprintf("creating withdrawal failed for %d", userID))
		return methodErr
	case <-chanOk:
		s.log.Info().Msg(fmt.Sprintf("creating withdrawal %s done for %d", requestID, userID))
		return nil
	}
}

func (s *Storage) createWithdrawal(ctx context.Context, requestID string, userID int64, username string, amount float64) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return &storageErrors.ExecutionPSQLError{Err: err}
	}
	defer tx.Rollback()
	res, err := tx.ExecContext(ctx, "UPDATE accounts SET balance = balance - $2 WHERE user_id = $1 AND balance - $2 >= 0", userID, amount)
	if err != nil {
		return &storageErrors.ExecutionPSQLError{Err: err}
	}
	nRows, err := res.RowsAffected()
	if err != nil {
		return &storageErrors.ExecutionPSQLError{Err: err}
	}
	if nRows == 0 {
		return &storageErrors.NotEnoughFundsError{UserID: userID, Amount: amount}
	}
	now := time.Now().Format(time.RFC3339)
	_, err = tx.ExecContext(ctx, "INSERT INTO withdrawals (request_id, user_id, username, amount, status, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		requestID, userID, username, amount, modelstorage.StatusPending, now)
	if err != nil {
		if err, ok := err.(*pgconn.PgError); ok && err.Code == pgerrcode.UniqueViolation {
			return &storageErrors.AlreadyExistsError{Err: err, ID: requestID}
		}
		return &storageErrors.ExecutionPSQLError{Err: err}
	}
	_, err = tx.ExecContext(ctx, "INSERT INTO transactions (user_id, kind, amount, created_at) VALUES ($1, $2, $3, $4)",
		userID, modelstorage.KindWithdraw, amount, now)
	if err != nil {
		return &storageErrors.ExecutionPSQLError{Err: err}
	}
	err = tx.Commit()
	if err != nil {
		return &storageErrors.ExecutionPSQLError{Err: err}
	}
	return nil
}

// GetWithdrawal retrieves one withdrawal request by its identifier.
func (s *Storage) GetWithdrawal(ctx context.Context, requestID string) (modelstorage.WithdrawalStorageEntry, error) {
	selectStmt, err := s.DB.PrepareContext(ctx, "SELECT id, request_id, user_id, username, amount, status, created_at FROM withdrawals WHERE request_id = $1")
	if err != nil {
		return modelstorage.WithdrawalStorageEntry{}, &storageErrors.StatementPSQLError{Err: err}
	}
	defer selectStmt.Close()
	chanOk := make(chan modelstorage.WithdrawalStorageEntry)
	chanEr := make(chan error)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		var queryOutput modelstorage.WithdrawalStorageEntry
		err := selectStmt.QueryRowContext(ctx, requestID).Scan(&queryOutput.ID, &queryOutput.RequestID, &queryOutput.UserID, &queryOutput.Username, &queryOutput.Amount, &queryOutput.Status, &queryOutput.CreatedAt)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				chanEr <- &storageErrors.NotFoundError{Err: err}
				return
			default:
				chanEr <- err
				return
			}
		}
		chanOk <- queryOutput
	}()
	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg(fmt.Sprintf("getting withdrawal failed for %s", requestID))
		return modelstorage.WithdrawalStorageEntry{}, &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		return modelstorage.WithdrawalStorageEntry{}, methodErr
	case withdrawal := <-chanOk:
		return withdrawal, nil
	}
}

// ResolveWithdrawal performs the exactly-once pending -> approved/rejected
// transition. A rejection credits the amount back and appends the refund
// transaction within the same SQL transaction; a replayed resolution finds
// zero pending rows and fails with AlreadyResolvedError.
func (s *Storage) ResolveWithdrawal(ctx context.Context, requestID string, status string) (modelstorage.WithdrawalStorageEntry, error) {
	chanOk := make(chan modelstorage.WithdrawalStorageEntry)
	chanEr := make(chan error)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		withdrawal, err := s.resolveWithdrawal(ctx, requestID, status)
		if err != nil {
			chanEr <- err
			return
		}
		chanOk <- withdrawal
	}()
	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg(fmt.Sprintf("resolving withdrawal failed for %s", requestID))
		return modelstorage.WithdrawalStorageEntry{}, &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		s.log.Error().Err(methodErr).Msg(fmt.Sprintf("resolving withdrawal failed for %s", requestID))
		return modelstorage.WithdrawalStorageEntry{}, methodErr
	case withdrawal := <-chanOk:
		s.log.Info().Msg(fmt.Sprintf("resolving withdrawal %s as %s done", requestID, status))
		return withdrawal, nil
	}
}

func (s *Storage) resolveWithdrawal(ctx context.Context, requestID string, status string) (modelstorage.WithdrawalStorageEntry, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return modelstorage.WithdrawalStorageEntry{}, &storageErrors.ExecutionPSQLError{Err: err}
	}
	defer tx.Rollback()
	var queryOutput modelstorage.WithdrawalStorageEntry
	err = tx.QueryRowContext(ctx, "UPDATE withdrawals SET status = $2 WHERE request_id = $1 AND status = $3 RETURNING id, request_id, user_id, username, amount, status, created_at",
		requestID, status, modelstorage.StatusPending).Scan(&queryOutput.ID, &queryOutput.RequestID, &queryOutput.UserID, &queryOutput.Username, &queryOutput.Amount, &queryOutput.Status, &queryOutput.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			var exists bool
			err := tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM withdrawals WHERE request_id = $1)", requestID).Scan(&exists)
			if err != nil {
				return modelstorage.WithdrawalStorageEntry{}, &storageErrors.ExecutionPSQLError{Err: err}
			}
			if !exists {
				return modelstorage.WithdrawalStorageEntry{}, &storageErrors.NotFoundError{Err: sql.ErrNoRows}
			}
			return modelstorage.WithdrawalStorageEntry{}, &storageErrors.AlreadyResolvedError{RequestID: requestID}
		}
		return modelstorage.WithdrawalStorageEntry{}, &storageErrors.ExecutionPSQLError{Err: err}
	}
	if status == modelstorage.StatusRejected {
		_, err = tx.ExecContext(ctx, "UPDATE accounts SET balance = balance + $2 WHERE user_id = $1", queryOutput.UserID, queryOutput.Amount)
		if err != nil {
			return modelstorage.WithdrawalStorageEntry{}, &storageErrors.ExecutionPSQLError{Err: err}
		}
		_, err = tx.ExecContext(ctx, "INSERT INTO transactions (user_id, kind, amount, created_at) VALUES ($1, $2, $3, $4)",
			queryOutput.UserID, modelstorage.KindWithdrawRefund, queryOutput.Amount, time.Now().Format(time.RFC3339))
		if err != nil {
			return modelstorage.WithdrawalStorageEntry{}, &storageErrors.ExecutionPSQLError{Err: err}
		}
	}
	err = tx.Commit()
	if err != nil {
		return modelstorage.WithdrawalStorageEntry{}, &storageErrors.ExecutionPSQLError{Err: err}
	}
	return queryOutput, nil
}

// GetPendingWithdrawals lists unresolved requests for the operational surface.
func (s *Storage) GetPendingWithdrawals(ctx context.Context) ([]modelstorage.WithdrawalStorageEntry, error) {
	selectStmt, err := s.DB.PrepareContext(ctx, "SELECT id, request_id, user_id, username, amount, status, created_at FROM withdrawals WHERE status = $1 ORDER BY id")
	if err != nil {
		return nil, &storageErrors.StatementPSQLError{Err: err}
	}
	defer selectStmt.Close()
	chanOk := make(chan []modelstorage.WithdrawalStorageEntry)
	chanEr := make(chan error)
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		rows, err := selectStmt.QueryContext(ctx, modelstorage.StatusPending)
		if err != nil {
			chanEr <- &storageErrors.ExecutionPSQLError{Err: err}
			return
		}
		defer rows.Close()
		var queryOutput []modelstorage.WithdrawalStorageEntry
		for rows.Next() {
			var queryOutputRow modelstorage.WithdrawalStorageEntry
			err = rows.Scan(&queryOutputRow.ID, &queryOutputRow.RequestID, &queryOutputRow.UserID, &queryOutputRow.Username, &queryOutputRow.Amount, &queryOutputRow.Status, &queryOutputRow.CreatedAt)
			if err != nil {
				chanEr <- &storageErrors.ScanningPSQLError{Err: err}
				return
			}
			queryOutput = append(queryOutput, queryOutputRow)
		}
		err = rows.Err()
		if err != nil {
			chanEr <- &storageErrors.ScanningPSQLError{Err: err}
			return
		}
		chanOk <- queryOutput
	}()
	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg("getting pending withdrawals failed")
		return nil, &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		s.log.Error().Err(methodErr).Msg("getting pending withdrawals failed")
		return nil, methodErr
	case withdrawals := <-chanOk:
		return withdrawals, nil
	}
}

func (s *Storage) createTables(ctx context.Context) error {
	var queries []string
	query := `CREATE TABLE IF NOT EXISTS accounts (
		id         BIGSERIAL      NOT NULL,
		user_id    BIGINT         NOT NULL UNIQUE,
		username   TEXT           NOT NULL,
		balance    NUMERIC(10, 2) NOT NULL,
		last_bonus BIGINT         NOT NULL,
		frozen     BOOLEAN        NOT NULL
	);`
	queries = append(queries, query)
	query = `CREATE TABLE IF NOT EXISTS transactions (
		id         BIGSERIAL      NOT NULL,
		user_id    BIGINT         NOT NULL,
		kind       TEXT           NOT NULL,
		amount     NUMERIC(10, 2) NOT NULL,
		created_at TIMESTAMPTZ    NOT NULL
	);`
	queries = append(queries, query)
	query = `CREATE TABLE IF NOT EXISTS withdrawals (
		id         BIGSERIAL      NOT NULL,
		request_id TEXT           NOT NULL UNIQUE,
		user_id    BIGINT         NOT NULL,
		username   TEXT           NOT NULL,
		amount     NUMERIC(10, 2) NOT NULL,
		status     TEXT           NOT NULL,
		created_at TIMESTAMPTZ    NOT NULL
	);`
	queries = append(queries, query)
	for _, subquery := range queries {
		_, err := s.DB.ExecContext(ctx, subquery)
		if err != nil {
			return err
		}
	}
	return nil
}
