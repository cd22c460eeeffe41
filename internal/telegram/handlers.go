package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"days-together/internal/notify"
	"days-together/internal/relation"
	"days-together/internal/stats"
)

const (
	greetingText      = "Hi! 👋\nI'm a bot that counts the days of your relationship 💖"
	alreadyActiveText = "The counter is already running!"
	confirmEndText    = "Did you really break up?"
	endedText         = "💔 Counter stopped.\nThanks for using the bot."
	continueText      = "💖 Okay, we keep counting!"
)

// handleCommand
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.handleStart(ctx, msg.Chat.ID)
	case "status":
		b.handleStatus(msg.Chat.ID)
	case "stats":
		if msg.From == nil || msg.From.ID != b.adminUserID {
			b.sendMessage(msg.Chat.ID, "The command is available to the administrator only")
			return
		}
		b.sendMessage(msg.Chat.ID, stats.Summarize(b.machine.Snapshot()).Text())
	default:
		b.sendMessage(msg.Chat.ID, "Send /start to begin counting or /status to see the current day.")
	}
}

func (b *Bot) handleStart(ctx context.Context, chatID int64) {
	id := identityOf(chatID)
	if _, seen := b.machine.Status(id); !seen {
		greeting := tgbotapi.NewMessage(chatID, greetingText)
		greeting.ReplyMarkup = startKeyboard()
		if _, err := b.s.Send(greeting); err != nil {
			log.Printf("failed to send greeting: %v", err)
		}
	}
	res, err := b.machine.Start(ctx, id)
	if err != nil {
		log.Printf("❌ start for %s: %v", id, err)
	}
	if res == relation.AlreadyActive {
		b.sendMessage(chatID, alreadyActiveText)
	}
}

func (b *Bot) handleStatus(chatID int64) {
	rec, _ := b.machine.Status(identityOf(chatID))
	switch rec.Status {
	case relation.StatusActive:
		b.sendMessage(chatID, fmt.Sprintf("Counting: day %d 💖", rec.Day))
	case relation.StatusEnded:
		b.sendMessage(chatID, fmt.Sprintf("The counter stopped at day %d. Send /start to begin again.", rec.Day))
	default:
		b.sendMessage(chatID, "You are not counting yet. Send /start to begin.")
	}
}

// handleCallback
func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.Message.Chat == nil {
		b.answer(cb, "")
		return
	}
	chatID := cb.Message.Chat.ID
	id := identityOf(chatID)

	switch cb.Data {
	case notify.ActionStartRelation:
		res, err := b.machine.Start(ctx, id)
		if err != nil {
			log.Printf("❌ start for %s: %v", id, err)
		}
		if res == relation.AlreadyActive {
			b.answer(cb, alreadyActiveText)
			return
		}
		b.answer(cb, "")
	case notify.ActionBreakup:
		b.answer(cb, "")
		if !b.check(id, b.machine.RequestEnd(ctx, id)) {
			return
		}
		kb := inlineKeyboard(
			notify.Button{Label: "✅ Yes", Data: notify.ActionBreakupYes},
			notify.Button{Label: "❌ No", Data: notify.ActionBreakupNo},
		)
		b.edit(tgbotapi.NewEditMessageTextAndMarkup(chatID, cb.Message.MessageID, confirmEndText, kb))
	case notify.ActionBreakupYes:
		b.answer(cb, "")
		if !b.check(id, b.machine.ConfirmEnd(ctx, id)) {
			return
		}
		b.edit(tgbotapi.NewEditMessageTextAndMarkup(chatID, cb.Message.MessageID, endedText, startKeyboard()))
	case notify.ActionBreakupNo:
		b.answer(cb, "")
		if !b.check(id, b.machine.CancelEnd(ctx, id)) {
			return
		}
		b.edit(tgbotapi.NewEditMessageText(chatID, cb.Message.MessageID, continueText))
	default:
		b.answer(cb, "")
	}
}

// startKeyboard offers (re)starting the counter.
func startKeyboard() tgbotapi.InlineKeyboardMarkup {
	return inlineKeyboard(notify.Button{Label: "❤️ I'm in a relationship", Data: notify.ActionStartRelation})
}

// check logs a failed transition. Missing records are never shown to the user.
func (b *Bot) check(id string, err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, relation.ErrRecordMissing) {
		log.Printf("⚠️ ignoring button from %s: %v", id, err)
	} else {
		log.Printf("❌ transition for %s failed: %v", id, err)
	}
	return false
}

func (b *Bot) answer(cb *tgbotapi.CallbackQuery, text string) {
	if _, err := b.s.Request(tgbotapi.NewCallback(cb.ID, text)); err != nil {
		log.Printf("failed to answer callback: %v", err)
	}
}

func (b *Bot) edit(c tgbotapi.EditMessageTextConfig) {
	if _, err := b.s.Send(c); err != nil {
		log.Printf("failed to edit message: %v", err)
	}
}
