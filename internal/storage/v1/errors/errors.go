package errors

import (
	"fmt"
)

type (
	StatementPSQLError struct {
		Err error
	}
	ExecutionPSQLError struct {
		Err error
	}
	ScanningPSQLError struct {
		Err error
	}
	ContextTimeoutExceededError struct {
		Err error
	}
	NotFoundError struct {
		Err error
	}
	AlreadyExistsError struct {
		Err error
		ID  string
	}
	NotEnoughFundsError struct {
		UserID int64
		Amount float64
	}
	AlreadyResolvedError struct {
		RequestID string
	}
	BonusNotAvailableError struct {
		UserID int64
	}
)

func (e *StatementPSQLError) Error() string {
	return fmt.Sprintf("%s: could not compile", e.Err.Error())
}

func (e *ExecutionPSQLError) Error() string {
	return fmt.Sprintf("%s: could not execute", e.Err.Error())
}

func (e *ScanningPSQLError) Error() string {
	return fmt.Sprintf("%s: could not scan", e.Err.Error())
}

func (e *ContextTimeoutExceededError) Error() string {
	return fmt.Sprintf("%s: context timeout exceeded", e.Err.Error())
}

func (e *NotFoundError) Error() string {
	return "requested entry was not found"
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s: already exists", e.ID)
}

func (e *NotEnoughFundsError) Error() string {
	return fmt.Sprintf("not enough funds on account %d to debit %.2f", e.UserID, e.Amount)
}

func (e *AlreadyResolvedError) Error() string {
	return fmt.Sprintf("withdrawal request %s was already resolved", e.RequestID)
}

func (e *BonusNotAvailableError) Error() string {
	return fmt.Sprintf("bonus cooldown is still active for account %d", e.UserID)
}
