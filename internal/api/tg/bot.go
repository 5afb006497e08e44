// Package tg provides the Telegram transport adapter around the ledger services.
package tg

import (
	"context"

	"github.com/businas/qwallet-bot/internal/api/tg/handlers"
	"github.com/businas/qwallet-bot/internal/config"
	"github.com/businas/qwallet-bot/internal/models/modelqueue"
	"github.com/businas/qwallet-bot/internal/service/ledger/v1"
	"github.com/businas/qwallet-bot/internal/service/tracker/v1"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Bot wraps the long-poll update loop and implements the notifier Courier.
type Bot struct {
	api     *tgbotapi.BotAPI
	handler *handlers.Handler
	log     *zerolog.Logger
}

// InitBot initializes the Telegram transport adapter.
func InitBot(cfg *config.BotConfig, mainService ledger.Ledger, trackerService tracker.Tracker, log *zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	handler, err := handlers.InitHandlers(api, mainService, trackerService, cfg, log)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("telegram bot API connection was established")
	return &Bot{api: api, handler: handler, log: log}, nil
}

// ListenAndServe consumes updates until the context is cancelled.
func (b *Bot) ListenAndServe(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	b.log.Info().Msg("started listening to telegram updates")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.log.Info().Msg("stopped listening to telegram updates")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.route(update)
		}
	}
}

func (b *Bot) route(update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handler.HandleCallback(update.CallbackQuery)
		return
	}
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.handler.HandleStart(msg)
		case "admin":
			b.handler.HandleAdmin(msg)
		case "broadcast":
			b.handler.HandleBroadcast(msg)
		case "freeze":
			b.handler.HandleFreeze(msg)
		case "unfreeze":
			b.handler.HandleUnfreeze(msg)
		default:
			b.handler.HandleStart(msg)
		}
		return
	}
	switch msg.Text {
	case handlers.ButtonBalance:
		b.handler.HandleBalance(msg)
	case handlers.ButtonBonus:
		b.handler.HandleBonus(msg)
	case handlers.ButtonTip:
		b.handler.HandleTip(msg)
	case handlers.ButtonWithdraw:
		b.handler.HandleWithdraw(msg)
	case handlers.ButtonHistory:
		b.handler.HandleHistory(msg)
	case handlers.ButtonSupport:
		b.handler.HandleSupport(msg)
	case handlers.ButtonUsers:
		b.handler.HandleUsers(msg)
	case handlers.ButtonBack:
		b.handler.HandleBack(msg)
	default:
		b.handler.HandleText(msg)
	}
}

// Deliver sends one queued notification, attaching inline keyboard actions
// when present. Implements the notifier Courier.
func (b *Bot) Deliver(entry modelqueue.NotificationQueueEntry) error {
	msg := tgbotapi.NewMessage(entry.ChatID, entry.Text)
	if len(entry.Actions) > 0 {
		var buttons []tgbotapi.InlineKeyboardButton
		for _, action := range entry.Actions {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(action.Label, action.Token))
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons)
	}
	_, err := b.api.Send(msg)
	return err
}
