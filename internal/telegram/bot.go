package telegram

import (
	"context"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kamass93/quiz-bot/internal/quiz"
)

// Bot runs the long-polling update loop and translates Telegram updates into
// state machine events. Each event is dispatched on its own goroutine; the
// quiz service serializes transitions per user internally, so slow steps
// (like the answer pacing delay) never stall other users.
type Bot struct {
	api     *tgbotapi.BotAPI
	gateway *Gateway
	service *quiz.Service
}

func NewBot(api *tgbotapi.BotAPI, service *quiz.Service) *Bot {
	return &Bot{
		api:     api,
		gateway: NewGateway(api),
		service: service,
	}
}

// Run blocks until ctx is cancelled or the update channel closes.
func (b *Bot) Run(ctx context.Context) error {
	log.Printf("authorized on account %s", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.dispatch(ctx, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.IsCommand():
		msg := update.Message
		chatID := msg.Chat.ID
		switch msg.Command() {
		case "start":
			go b.service.Begin(ctx, chatID, displayName(msg.From))
		case "cancel":
			go b.service.Cancel(ctx, chatID)
		default:
			go func() {
				if _, err := b.gateway.SendText(ctx, chatID, "Unknown command. Send /start to play."); err != nil {
					log.Printf("telegram: reply to unknown command: %v", err)
				}
			}()
		}

	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		// Ack so the client stops the loading spinner.
		if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
			log.Printf("telegram: answer callback: %v", err)
		}

		userID := cb.From.ID
		if cb.Message != nil {
			userID = cb.Message.Chat.ID
		}
		go b.route(ctx, userID, cb.Data)
	}
}

func (b *Bot) route(ctx context.Context, userID int64, data string) {
	switch {
	case strings.HasPrefix(data, quiz.CallbackCategoryPrefix):
		b.service.ChooseCategory(ctx, userID, strings.TrimPrefix(data, quiz.CallbackCategoryPrefix))
	case strings.HasPrefix(data, quiz.CallbackAnswerPrefix):
		b.service.Answer(ctx, userID, strings.TrimPrefix(data, quiz.CallbackAnswerPrefix))
	case data == quiz.CallbackShareMenu:
		b.service.ShareMenu(ctx, userID)
	case data == quiz.CallbackShareText:
		b.service.Share(ctx, userID, quiz.ShareText)
	case data == quiz.CallbackShareImage:
		b.service.Share(ctx, userID, quiz.ShareImage)
	case data == quiz.CallbackLeaderboard:
		b.service.Share(ctx, userID, quiz.ShareLeaderboard)
	default:
		log.Printf("telegram: unknown callback %q from user %d", data, userID)
	}
}

func displayName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	if u.UserName != "" {
		return u.UserName
	}
	return u.FirstName
}
