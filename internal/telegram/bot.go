// Package telegram is the bot shell around the Mini App: it only hands out
// buttons that open the web app, all real work happens in the HTTP API.
package telegram

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/sixcontrol/moviebot/internal/config"
)

type Bot struct {
	api       *tgbotapi.BotAPI
	log       *slog.Logger
	webAppURL string
}

func NewBot(cfg config.Config, api *tgbotapi.BotAPI, log *slog.Logger) *Bot {
	return &Bot{
		api:       api,
		log:       log,
		webAppURL: cfg.WebAppURL,
	}
}

func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("telegram bot started")

	for {
		select {
		case update := <-updates:
			if update.Message != nil {
				b.handleMessage(update.Message)
			}
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		}
	}
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		b.sendText(msg.Chat.ID, "Nutze /start, um die Film-Suche zu öffnen.")
		return
	}

	switch msg.Command() {
	case "start":
		b.sendStart(msg.Chat.ID)
	case "help":
		b.sendHelp(msg.Chat.ID)
	case "search":
		b.sendSearch(msg.Chat.ID)
	default:
		b.sendText(msg.Chat.ID, "Unbekannter Befehl. Nutze /help für eine Übersicht.")
	}
}

func (b *Bot) sendStart(chatID int64) {
	reply := tgbotapi.NewMessage(chatID,
		"🎬 Willkommen beim IPTV Film-Bot!\n\nNutze die Mini App, um Filme zu durchsuchen und anzufragen.")
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🔍 Filme suchen", b.webAppURL),
		),
	)
	b.send(reply)
}

func (b *Bot) sendHelp(chatID int64) {
	b.sendText(chatID,
		"📖 Hilfe:\n\n"+
			"/start - Bot starten\n"+
			"/help - Diese Hilfe anzeigen\n"+
			"/search - Film-Suche öffnen\n\n"+
			"Nutze den \"Filme suchen\" Button, um die Mini App zu öffnen.")
}

func (b *Bot) sendSearch(chatID int64) {
	reply := tgbotapi.NewMessage(chatID, "🔍 Öffne die Film-Suche:")
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Film-Suche öffnen", b.webAppURL),
		),
	)
	b.send(reply)
}

func (b *Bot) sendText(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(msg tgbotapi.MessageConfig) {
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message failed", "chat_id", msg.ChatID, "err", err)
	}
}
