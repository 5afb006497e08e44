// Package tracker provides the ephemeral per-user conversation state store and the anti-spam rate limiter.

package tracker

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/businas/qwallet-bot/internal/config"
	trackerModel "github.com/businas/qwallet-bot/internal/service/tracker/v1"
	trackerErrors "github.com/businas/qwallet-bot/internal/service/tracker/v1/errors"
	"github.com/rs/zerolog"
)

type session struct {
	flow         string
	tipTarget    string
	lastActionAt time.Time
	touchedAt    time.Time
}

// Tracker defines attributes of a struct available to its methods. State is
// strictly keyed by user identifier and never survives process restarts.
type Tracker struct {
	mu       sync.Mutex
	sessions map[int64]*session
	cooldown time.Duration
	ttl      time.Duration
	log      *zerolog.Logger
	now      func() time.Time
}

// InitTracker initializes a conversation state tracker.
func InitTracker(cfg *config.LedgerConfig, log *zerolog.Logger) *Tracker {
	return &Tracker{
		sessions: make(map[int64]*session),
		cooldown: cfg.ActionCooldown,
		ttl:      cfg.SessionTTL,
		log:      log,
		now:      time.Now,
	}
}

func (t *Tracker) session(userID int64) *session {
	sess, ok := t.sessions[userID]
	if !ok {
		sess = &session{flow: trackerModel.FlowNone}
		t.sessions[userID] = sess
	}
	return sess
}

// Accept applies the anti-spam window. A user action inside the cooldown of
// the last accepted one is rejected; an accepted action stamps lastActionAt
// immediately, so the action counts against the window even if it later fails.
func (t *Tracker) Accept(userID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	sess := t.session(userID)
	now := t.now()
	if now.Sub(sess.lastActionAt) < t.cooldown {
		return false
	}
	sess.lastActionAt = now
	sess.touchedAt = now
	return true
}

// BeginTipFlow starts collecting tip input, replacing any active flow.
func (t *Tracker) BeginTipFlow(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sess := t.session(userID)
	sess.flow = trackerModel.FlowTipAwaitingTarget
	sess.tipTarget = ""
	sess.touchedAt = t.now()
}

// BeginWithdrawFlow starts collecting withdrawal input, replacing any active flow.
func (t *Tracker) BeginWithdrawFlow(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sess := t.session(userID)
	sess.flow = trackerModel.FlowWithdrawAwaitingAmount
	sess.tipTarget = ""
	sess.touchedAt = t.now()
}

// Abandon silently clears any active flow; unrelated commands call this so a
// stale flow never swallows their input.
func (t *Tracker) Abandon(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sess, ok := t.sessions[userID]
	if !ok {
		return
	}
	sess.flow = trackerModel.FlowNone
	sess.tipTarget = ""
	sess.touchedAt = t.now()
}

// Advance feeds a free-text reply into the active flow and resolves it to an
// intent. The flow always clears on the amount step regardless of whether the
// subsequent ledger call succeeds; malformed numbers clear the flow too.
func (t *Tracker) Advance(userID int64, text string) (trackerModel.Intent, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sess := t.session(userID)
	sess.touchedAt = t.now()
	switch sess.flow {
	case trackerModel.FlowTipAwaitingTarget:
		sess.tipTarget = strings.TrimPrefix(strings.TrimSpace(text), "@")
		sess.flow = trackerModel.FlowTipAwaitingAmount
		return trackerModel.Intent{Kind: trackerModel.IntentAskTipAmount}, nil
	case trackerModel.FlowTipAwaitingAmount:
		target := sess.tipTarget
		sess.flow = trackerModel.FlowNone
		sess.tipTarget = ""
		amount, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return trackerModel.Intent{}, &trackerErrors.MalformedAmountError{Text: text}
		}
		return trackerModel.Intent{Kind: trackerModel.IntentTip, TipTarget: target, Amount: amount}, nil
	case trackerModel.FlowWithdrawAwaitingAmount:
		sess.flow = trackerModel.FlowNone
		amount, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return trackerModel.Intent{}, &trackerErrors.MalformedAmountError{Text: text}
		}
		return trackerModel.Intent{Kind: trackerModel.IntentWithdraw, Amount: amount}, nil
	default:
		return trackerModel.Intent{Kind: trackerModel.IntentNone}, nil
	}
}

// StartJanitor evicts sessions untouched for longer than the TTL. Durable
// state lives in the stores; losing a session only abandons a half-typed flow.
func (t *Tracker) StartJanitor(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(t.ttl / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.evictStale()
			}
		}
	}()
}

func (t *Tracker) evictStale() {
	t.mu.Lock()
	defer t.mu.Unlock()
	deadline := t.now().Add(-t.ttl)
	evicted := 0
	for userID, sess := range t.sessions {
		if sess.touchedAt.Before(deadline) {
			delete(t.sessions, userID)
			evicted++
		}
	}
	if evicted > 0 {
		t.log.Info().Msg(fmt.Sprintf("evicted %d stale conversation sessions", evicted))
	}
}
