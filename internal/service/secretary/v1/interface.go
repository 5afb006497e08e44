// Package secretary provides methods for sealing callback tokens.
package secretary

// Outcomes carried inside a sealed callback token.
const (
	OutcomeApprove = "approve"
	OutcomeReject  = "reject"
)

// Secretary defines a set of methods for types implementing Secretary.
type Secretary interface {
	EncodeCallback(outcome string, requestID string) (string, error)
	DecodeCallback(token string) (string, string, error)
}
