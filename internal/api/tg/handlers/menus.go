package handlers

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Main menu button labels; free text matching one of these routes to the
// corresponding handler instead of the flow continuation.
const (
	ButtonBalance  = "💰 Balance"
	ButtonBonus    = "🎁 Bonus"
	ButtonTip      = "💸 Tip"
	ButtonWithdraw = "💵 Withdraw"
	ButtonHistory  = "📜 History"
	ButtonSupport  = "❓ Support"
	ButtonUsers    = "👥 Users"
	ButtonBack     = "⬅ Back"
)

var MainMenu = tgbotapi.NewReplyKeyboard(
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(ButtonBalance),
	),
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(ButtonBonus),
		tgbotapi.NewKeyboardButton(ButtonTip),
	),
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(ButtonWithdraw),
		tgbotapi.NewKeyboardButton(ButtonHistory),
	),
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(ButtonSupport),
	),
)

var AdminMenu = tgbotapi.NewReplyKeyboard(
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(ButtonUsers),
	),
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(ButtonBack),
	),
)
