// Package errors provides custom error types.

package errors

import (
	"fmt"
)

type (
	MalformedAmountError struct {
		Text string
	}
)

func (e *MalformedAmountError) Error() string {
	return fmt.Sprintf("%s: not a valid amount", e.Text)
}
