package telegram

import (
	"context"
	"fmt"
	"log"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"days-together/internal/notify"
)

// Notifier delivers composed day messages to Telegram chats.
type Notifier struct {
	s Sender
}

// NewNotifier sends through s.
func NewNotifier(s Sender) *Notifier {
	return &Notifier{s: s}
}

func (n *Notifier) Notify(_ context.Context, identity string, msg notify.Message) error {
	chatID, err := chatIDFromIdentity(identity)
	if err != nil {
		return err
	}
	// the milestone photo is a bonus; its failure does not fail the notification
	if msg.PhotoURL != "" {
		if _, err := n.s.Send(tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(msg.PhotoURL))); err != nil {
			log.Printf("⚠️ failed to send milestone photo to %d: %v", chatID, err)
		}
	}
	out := tgbotapi.NewMessage(chatID, msg.Text)
	if len(msg.Buttons) > 0 {
		out.ReplyMarkup = inlineKeyboard(msg.Buttons...)
	}
	if _, err := n.s.Send(out); err != nil {
		return fmt.Errorf("send to %d: %w", chatID, err)
	}
	return nil
}

func inlineKeyboard(buttons ...notify.Button) tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func identityOf(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

func chatIDFromIdentity(identity string) (int64, error) {
	id, err := strconv.ParseInt(identity, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("identity %q is not a chat id: %w", identity, err)
	}
	return id, nil
}
