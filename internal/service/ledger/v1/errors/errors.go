// Package errors provides custom error types.

package errors

import (
	"fmt"
	"time"
)

type (
	ServiceFoundNilArgument struct {
		Msg string
	}
	InvalidAmountError struct {
		Min float64
	}
	RecipientNotFoundError struct {
		Username string
	}
	SelfTipError struct {
		UserID int64
	}
	CooldownActiveError struct {
		Remaining time.Duration
	}
	AccountFrozenError struct {
		UserID int64
	}
	PermissionDeniedError struct {
		UserID int64
	}
	BadCallbackError struct {
		Err error
	}
)

func (e *ServiceFoundNilArgument) Error() string {
	return e.Msg
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("amount must be a number not lower than %.2f", e.Min)
}

func (e *RecipientNotFoundError) Error() string {
	return fmt.Sprintf("no account matches username %s", e.Username)
}

func (e *SelfTipError) Error() string {
	return fmt.Sprintf("account %d attempted to tip itself", e.UserID)
}

func (e *CooldownActiveError) Error() string {
	return fmt.Sprintf("bonus cooldown is active, %s remaining", e.Remaining)
}

func (e *AccountFrozenError) Error() string {
	return fmt.Sprintf("account %d is frozen", e.UserID)
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("account %d is not permitted to perform this action", e.UserID)
}

func (e *BadCallbackError) Error() string {
	return fmt.Sprintf("%s: could not decode callback token", e.Err.Error())
}
