package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kamass93/quiz-bot/internal/quiz"
)

// Gateway adapts the Bot API to the quiz.Gateway contract. In private chats
// the chat ID and the user ID coincide, so userID doubles as the chat key.
type Gateway struct {
	api *tgbotapi.BotAPI
}

func NewGateway(api *tgbotapi.BotAPI) *Gateway {
	return &Gateway{api: api}
}

func (g *Gateway) SendText(_ context.Context, userID int64, text string, rows ...[]quiz.Button) (int, error) {
	msg := tgbotapi.NewMessage(userID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if kb, ok := keyboard(rows); ok {
		msg.ReplyMarkup = kb
	}
	sent, err := g.api.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (g *Gateway) SendImage(_ context.Context, userID int64, image []byte, caption string, rows ...[]quiz.Button) (int, error) {
	photo := tgbotapi.NewPhoto(userID, tgbotapi.FileBytes{Name: "quiz.png", Bytes: image})
	photo.Caption = caption
	if kb, ok := keyboard(rows); ok {
		photo.ReplyMarkup = kb
	}
	sent, err := g.api.Send(photo)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (g *Gateway) EditText(_ context.Context, userID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(userID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	_, err := g.api.Send(edit)
	return err
}

func (g *Gateway) EditButtons(_ context.Context, userID int64, messageID int, rows ...[]quiz.Button) error {
	kb, ok := keyboard(rows)
	if !ok {
		kb = tgbotapi.NewInlineKeyboardMarkup()
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(userID, messageID, kb)
	_, err := g.api.Send(edit)
	return err
}

func (g *Gateway) DeleteMessage(_ context.Context, userID int64, messageID int) error {
	_, err := g.api.Request(tgbotapi.NewDeleteMessage(userID, messageID))
	return err
}

func keyboard(rows [][]quiz.Button) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}

	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		kbRow := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.SwitchInline != "" {
				kbRow = append(kbRow, tgbotapi.NewInlineKeyboardButtonSwitch(b.Label, b.SwitchInline))
				continue
			}
			kbRow = append(kbRow, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		kbRows = append(kbRows, kbRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(kbRows...), true
}
