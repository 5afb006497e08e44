// Package handlers provides chat update handling functionality.

package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	handlersErrors "github.com/businas/qwallet-bot/internal/api/tg/errors"
	"github.com/businas/qwallet-bot/internal/config"
	"github.com/businas/qwallet-bot/internal/service/ledger/v1"
	serviceErrors "github.com/businas/qwallet-bot/internal/service/ledger/v1/errors"
	"github.com/businas/qwallet-bot/internal/service/secretary/v1"
	"github.com/businas/qwallet-bot/internal/service/tracker/v1"
	trackerErrors "github.com/businas/qwallet-bot/internal/service/tracker/v1/errors"
	storageErrors "github.com/businas/qwallet-bot/internal/storage/v1/errors"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const handlerTimeout = 2 * time.Second

// Handler defines attributes of a struct available to its methods.
type Handler struct {
	bot       *tgbotapi.BotAPI
	service   ledger.Ledger
	tracker   tracker.Tracker
	botConfig *config.BotConfig
	log       *zerolog.Logger
}

// InitHandlers initializes a handler object.
func InitHandlers(bot *tgbotapi.BotAPI, mainService ledger.Ledger, trackerService tracker.Tracker, botConfig *config.BotConfig, log *zerolog.Logger) (*Handler, error) {
	if bot == nil {
		return nil, &handlersErrors.HandlersFoundNilArgument{Msg: "nil bot API was passed to handlers initializer"}
	}
	if mainService == nil {
		return nil, &handlersErrors.HandlersFoundNilArgument{Msg: "nil ledger was passed to handlers initializer"}
	}
	if trackerService == nil {
		return nil, &handlersErrors.HandlersFoundNilArgument{Msg: "nil tracker was passed to handlers initializer"}
	}
	return &Handler{bot: bot, service: mainService, tracker: trackerService, botConfig: botConfig, log: log}, nil
}

// HandleStart registers the account and shows the main menu.
func (h *Handler) HandleStart(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	h.tracker.Abandon(msg.From.ID)
	err := h.service.Register(ctx, msg.From.ID, msg.From.UserName)
	if err != nil {
		h.log.Error().Err(err).Msg("HandleStart failed")
		return
	}
	reply := tgbotapi.NewMessage(msg.Chat.ID, "👋 Welcome to QWallet")
	reply.ReplyMarkup = MainMenu
	h.send(reply)
}

// HandleBalance processes balance queries.
func (h *Handler) HandleBalance(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	h.tracker.Abandon(msg.From.ID)
	err := h.service.Register(ctx, msg.From.ID, msg.From.UserName)
	if err != nil {
		h.log.Error().Err(err).Msg("HandleBalance failed")
		return
	}
	balance, err := h.service.GetBalance(ctx, msg.From.ID)
	if err != nil {
		var accountFrozenError *serviceErrors.AccountFrozenError
		if errors.As(err, &accountFrozenError) {
			h.reply(msg.Chat.ID, "❄️ Your account is frozen")
			return
		}
		h.log.Error().Err(err).Msg("HandleBalance failed")
		return
	}
	h.reply(msg.Chat.ID, fmt.Sprintf("💰 Your Wallet Balance\n\n🔹 Total: %.2f USDT", balance.Amount))
}

// HandleBonus processes time-gated bonus claims.
func (h *Handler) HandleBonus(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	h.tracker.Abandon(msg.From.ID)
	if !h.tracker.Accept(msg.From.ID) {
		h.reply(msg.Chat.ID, "⏳ Please wait a bit")
		return
	}
	err := h.service.Register(ctx, msg.From.ID, msg.From.UserName)
	if err != nil {
		h.log.Error().Err(err).Msg("HandleBonus failed")
		return
	}
	amount, err := h.service.ClaimBonus(ctx, msg.From.ID)
	if err != nil {
		var accountFrozenError *serviceErrors.AccountFrozenError
		var cooldownActiveError *serviceErrors.CooldownActiveError
		if errors.As(err, &accountFrozenError) {
			h.reply(msg.Chat.ID, "❄️ Your account is frozen")
		} else if errors.As(err, &cooldownActiveError) {
			remaining := cooldownActiveError.Remaining
			hours := int(remaining.Hours())
			minutes := int(remaining.Minutes()) % 60
			h.reply(msg.Chat.ID, fmt.Sprintf("⏳ Bonus already claimed\nTry again in %dh %dm", hours, minutes))
		} else {
			h.log.Error().Err(err).Msg("HandleBonus failed")
		}
		return
	}
	h.reply(msg.Chat.ID, fmt.Sprintf("🎁 Daily Bonus Claimed!\n+%.2f USDT", amount))
}

// HandleTip starts the tip flow.
func (h *Handler) HandleTip(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	err := h.service.Register(ctx, msg.From.ID, msg.From.UserName)
	if err != nil {
		h.log.Error().Err(err).Msg("HandleTip failed")
		return
	}
	frozen, err := h.service.IsFrozen(ctx, msg.From.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("HandleTip failed")
		return
	}
	if frozen {
		h.reply(msg.Chat.ID, "❄️ Your account is frozen")
		return
	}
	h.tracker.BeginTipFlow(msg.From.ID)
	h.reply(msg.Chat.ID, "Send USERNAME (without @)")
}

// HandleWithdraw starts the withdraw flow.
func (h *Handler) HandleWithdraw(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	err := h.service.Register(ctx, msg.From.ID, msg.From.UserName)
	if err != nil {
		h.log.Error().Err(err).Msg("HandleWithdraw failed")
		return
	}
	frozen, err := h.service.IsFrozen(ctx, msg.From.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("HandleWithdraw failed")
		return
	}
	if frozen {
		h.reply(msg.Chat.ID, "❄️ Your account is frozen")
		return
	}
	h.tracker.BeginWithdrawFlow(msg.From.ID)
	h.reply(msg.Chat.ID, "Enter withdraw amount (USDT)")
}

// HandleHistory processes transaction history queries.
func (h *Handler) HandleHistory(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	h.tracker.Abandon(msg.From.ID)
	history, err := h.service.GetHistory(ctx, msg.From.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("HandleHistory failed")
		return
	}
	text := "📜 Transaction History\n\n"
	for _, entry := range history {
		text += fmt.Sprintf("• %s : %.2f USDT\n", entry.Kind, entry.Amount)
	}
	h.reply(msg.Chat.ID, text)
}

// HandleSupport shows the support contact.
func (h *Handler) HandleSupport(msg *tgbotapi.Message) {
	h.tracker.Abandon(msg.From.ID)
	h.reply(msg.Chat.ID, fmt.Sprintf("🆘 Support\n\nContact: %s", h.botConfig.SupportUsername))
}

// HandleAdmin shows the admin menu to allow-listed users; others get nothing.
func (h *Handler) HandleAdmin(msg *tgbotapi.Message) {
	h.tracker.Abandon(msg.From.ID)
	if !h.service.IsAdmin(msg.From.ID) {
		return
	}
	reply := tgbotapi.NewMessage(msg.Chat.ID, "🛠 Admin Panel")
	reply.ReplyMarkup = AdminMenu
	h.send(reply)
}

// HandleUsers shows the account count to allow-listed users; others get nothing.
func (h *Handler) HandleUsers(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	h.tracker.Abandon(msg.From.ID)
	if !h.service.IsAdmin(msg.From.ID) {
		return
	}
	userIDs, err := h.service.ListUserIDs(ctx, msg.From.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("HandleUsers failed")
		return
	}
	h.reply(msg.Chat.ID, fmt.Sprintf("👥 Users\n\nTotal: %d", len(userIDs)))
}

// HandleBack returns from the admin menu to the main one.
func (h *Handler) HandleBack(msg *tgbotapi.Message) {
	h.tracker.Abandon(msg.From.ID)
	reply := tgbotapi.NewMessage(msg.Chat.ID, "👋 Welcome to QWallet")
	reply.ReplyMarkup = MainMenu
	h.send(reply)
}

// HandleBroadcast queues a best-effort message to every account.
func (h *Handler) HandleBroadcast(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	h.tracker.Abandon(msg.From.ID)
	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		return
	}
	err := h.service.Broadcast(ctx, msg.From.ID, text)
	if err != nil {
		var permissionDeniedError *serviceErrors.PermissionDeniedError
		if errors.As(err, &permissionDeniedError) {
			return
		}
		h.log.Error().Err(err).Msg("HandleBroadcast failed")
	}
}

// HandleFreeze freezes the account given as the command argument.
func (h *Handler) HandleFreeze(msg *tgbotapi.Message) {
	h.setFrozen(msg, true, "❄️ User frozen")
}

// HandleUnfreeze unfreezes the account given as the command argument.
func (h *Handler) HandleUnfreeze(msg *tgbotapi.Message) {
	h.setFrozen(msg, false, "✅ User unfrozen")
}

func (h *Handler) setFrozen(msg *tgbotapi.Message, frozen bool, confirmation string) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	h.tracker.Abandon(msg.From.ID)
	if !h.service.IsAdmin(msg.From.ID) {
		return
	}
	targetID, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
	if err != nil {
		h.reply(msg.Chat.ID, "Format: /freeze USER_ID")
		return
	}
	err = h.service.SetFrozen(ctx, msg.From.ID, targetID, frozen)
	if err != nil {
		var notFoundError *storageErrors.NotFoundError
		if errors.As(err, &notFoundError) {
			h.reply(msg.Chat.ID, "❌ User not found")
			return
		}
		h.log.Error().Err(err).Msg("setting freeze flag failed")
		return
	}
	h.reply(msg.Chat.ID, confirmation)
}

// HandleText feeds a free-text reply into the active conversation flow.
func (h *Handler) HandleText(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	err := h.service.Register(ctx, msg.From.ID, msg.From.UserName)
	if err != nil {
		h.log.Error().Err(err).Msg("HandleText failed")
		return
	}
	if !h.tracker.Accept(msg.From.ID) {
		h.reply(msg.Chat.ID, "⏳ Please wait a bit")
		return
	}
	intent, err := h.tracker.Advance(msg.From.ID, msg.Text)
	if err != nil {
		var malformedAmountError *trackerErrors.MalformedAmountError
		if errors.As(err, &malformedAmountError) {
			h.reply(msg.Chat.ID, "❌ Invalid amount")
			return
		}
		h.log.Error().Err(err).Msg("HandleText failed")
		return
	}
	switch intent.Kind {
	case tracker.IntentAskTipAmount:
		h.reply(msg.Chat.ID, "Enter tip amount")
	case tracker.IntentTip:
		h.finishTip(ctx, msg, intent)
	case tracker.IntentWithdraw:
		h.finishWithdraw(ctx, msg, intent)
	default:
		h.reply(msg.Chat.ID, "ℹ️ Use the menu buttons or /start")
	}
}

func (h *Handler) finishTip(ctx context.Context, msg *tgbotapi.Message, intent tracker.Intent) {
	err := h.service.SendTip(ctx, msg.From.ID, intent.TipTarget, intent.Amount)
	if err != nil {
		var invalidAmountError *serviceErrors.InvalidAmountError
		var recipientNotFoundError *serviceErrors.RecipientNotFoundError
		var selfTipError *serviceErrors.SelfTipError
		var accountFrozenError *serviceErrors.AccountFrozenError
		var notEnoughFundsError *storageErrors.NotEnoughFundsError
		if errors.As(err, &invalidAmountError) {
			h.reply(msg.Chat.ID, "❌ Invalid amount")
		} else if errors.As(err, &recipientNotFoundError) {
			h.reply(msg.Chat.ID, "❌ User not found")
		} else if errors.As(err, &selfTipError) {
			h.reply(msg.Chat.ID, "❌ You cannot tip yourself")
		} else if errors.As(err, &accountFrozenError) {
			h.reply(msg.Chat.ID, "❄️ Your account is frozen")
		} else if errors.As(err, &notEnoughFundsError) {
			h.reply(msg.Chat.ID, "❌ Insufficient funds")
		} else {
			h.log.Error().Err(err).Msg("finishing tip failed")
		}
		return
	}
	h.reply(msg.Chat.ID, "✅ Tip sent")
}

func (h *Handler) finishWithdraw(ctx context.Context, msg *tgbotapi.Message, intent tracker.Intent) {
	_, err := h.service.RequestWithdrawal(ctx, msg.From.ID, intent.Amount)
	if err != nil {
		var invalidAmountError *serviceErrors.InvalidAmountError
		var accountFrozenError *serviceErrors.AccountFrozenError
		var notEnoughFundsError *storageErrors.NotEnoughFundsError
		if errors.As(err, &invalidAmountError) {
			h.reply(msg.Chat.ID, "❌ Invalid withdraw amount")
		} else if errors.As(err, &accountFrozenError) {
			h.reply(msg.Chat.ID, "❄️ Your account is frozen")
		} else if errors.As(err, &notEnoughFundsError) {
			h.reply(msg.Chat.ID, "❌ Insufficient funds")
		} else {
			h.log.Error().Err(err).Msg("finishing withdrawal failed")
		}
		return
	}
	h.reply(msg.Chat.ID, "⏳ Withdraw request submitted")
}

// HandleCallback applies an admin approve/reject tap. Replayed taps on a
// stale button resolve to AlreadyResolvedError and cause no further change.
func (h *Handler) HandleCallback(cb *tgbotapi.CallbackQuery) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	_, err := h.bot.Request(tgbotapi.NewCallback(cb.ID, ""))
	if err != nil {
		h.log.Error().Err(err).Msg("answering callback failed")
	}
	if cb.Message == nil {
		return
	}
	resolution, err := h.service.ResolveWithdrawal(ctx, cb.From.ID, cb.Data)
	if err != nil {
		var permissionDeniedError *serviceErrors.PermissionDeniedError
		var badCallbackError *serviceErrors.BadCallbackError
		var alreadyResolvedError *storageErrors.AlreadyResolvedError
		var notFoundError *storageErrors.NotFoundError
		if errors.As(err, &permissionDeniedError) || errors.As(err, &badCallbackError) {
			return
		}
		if errors.As(err, &alreadyResolvedError) {
			h.reply(cb.Message.Chat.ID, "⚠️ Request already resolved")
			return
		}
		if errors.As(err, &notFoundError) {
			h.reply(cb.Message.Chat.ID, "⚠️ Request not found")
			return
		}
		h.log.Error().Err(err).Msg("HandleCallback failed")
		return
	}
	if resolution.Outcome == secretary.OutcomeApprove {
		h.reply(cb.Message.Chat.ID, fmt.Sprintf("✅ Approved %.2f USDT for @%s", resolution.Amount, resolution.Username))
	} else {
		h.reply(cb.Message.Chat.ID, fmt.Sprintf("❌ Rejected %.2f USDT for @%s", resolution.Amount, resolution.Username))
	}
}

func (h *Handler) reply(chatID int64, text string) {
	h.send(tgbotapi.NewMessage(chatID, text))
}

func (h *Handler) send(msg tgbotapi.MessageConfig) {
	_, err := h.bot.Send(msg)
	if err != nil {
		h.log.Error().Err(err).Msg("sending reply failed")
	}
}
