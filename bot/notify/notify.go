// Package notify centralizes all outbound messaging so handlers share one
// failure-handling path and tests can observe side effects.
package notify

import (
	"fmt"
	"strconv"

	tele "gopkg.in/telebot.v4"
)

// Notifier is the single outbound capability used by every component.
// Sends are best-effort: callers log failures and move on, except where a
// delivery result drives the control flow (moderator reply relay).
type Notifier interface {
	// ToApplicant sends a Markdown message to an applicant's private chat.
	ToApplicant(chatID int64, text string, markup *tele.ReplyMarkup) error
	// ToChannel publishes a Markdown message to the moderation channel and
	// returns the resulting message id.
	ToChannel(text string, markup *tele.ReplyMarkup) (int, error)
	// EditChannelMessage replaces text and controls of a prior channel message.
	EditChannelMessage(messageID int, text string, markup *tele.ReplyMarkup) error
}

type telegramNotifier struct {
	bot       *tele.Bot
	channelID int64
}

// NewTelegram builds the production Notifier on top of a running bot.
func NewTelegram(bot *tele.Bot, channelID int64) Notifier {
	return &telegramNotifier{bot: bot, channelID: channelID}
}

func (n *telegramNotifier) ToApplicant(chatID int64, text string, markup *tele.ReplyMarkup) error {
	_, err := n.bot.Send(tele.ChatID(chatID), text, &tele.SendOptions{
		ParseMode:   tele.ModeMarkdown,
		ReplyMarkup: markup,
	})
	if err != nil {
		return fmt.Errorf("send to applicant %d: %w", chatID, err)
	}
	return nil
}

func (n *telegramNotifier) ToChannel(text string, markup *tele.ReplyMarkup) (int, error) {
	msg, err := n.bot.Send(tele.ChatID(n.channelID), text, &tele.SendOptions{
		ParseMode:   tele.ModeMarkdown,
		ReplyMarkup: markup,
	})
	if err != nil {
		return 0, fmt.Errorf("send to channel: %w", err)
	}
	return msg.ID, nil
}

func (n *telegramNotifier) EditChannelMessage(messageID int, text string, markup *tele.ReplyMarkup) error {
	ref := &tele.StoredMessage{
		MessageID: strconv.Itoa(messageID),
		ChatID:    n.channelID,
	}
	_, err := n.bot.Edit(ref, text, &tele.SendOptions{
		ParseMode:   tele.ModeMarkdown,
		ReplyMarkup: markup,
	})
	if err != nil {
		return fmt.Errorf("edit channel message %d: %w", messageID, err)
	}
	return nil
}
