// Package tracker defines the per-user conversation state machine and rate limiter.
package tracker

// Conversation flow states.
const (
	FlowNone                   = "none"
	FlowTipAwaitingTarget      = "tip_awaiting_target"
	FlowTipAwaitingAmount      = "tip_awaiting_amount"
	FlowWithdrawAwaitingAmount = "withdraw_awaiting_amount"
)

// Intent kinds resolved from a free-text reply.
const (
	IntentNone         = "none"
	IntentAskTipAmount = "ask_tip_amount"
	IntentTip          = "tip"
	IntentWithdraw     = "withdraw"
)

// Intent is the resolved meaning of a free-text reply inside a flow.
type Intent struct {
	Kind      string
	TipTarget string
	Amount    float64
}

// Tracker defines a set of methods for types implementing Tracker.
type Tracker interface {
	Accept(userID int64) bool
	BeginTipFlow(userID int64)
	BeginWithdrawFlow(userID int64)
	Abandon(userID int64)
	Advance(userID int64, text string) (Intent, error)
}
