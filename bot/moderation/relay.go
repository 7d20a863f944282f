// Package moderation publishes submissions to the review channel, applies
// moderator decisions, and relays moderator replies back to applicants.
package moderation

import (
	"fmt"
	"log/slog"
	"time"

	"regbot/bot/applicant"
	"regbot/bot/notify"
	"regbot/core/logger"
	"regbot/core/telegram/keyboard"
)

// Callback uniques carried by the decision controls.
const (
	CallbackApprove = "submission_approve"
	CallbackReject  = "submission_reject"
)

const pendingStatusLine = "Status: ⏳ Pending Approval"

// Relay owns the moderation-channel side of the workflow.
type Relay struct {
	store    applicant.Store
	notifier notify.Notifier
}

// NewRelay wires the moderation relay to the store and notifier.
func NewRelay(store applicant.Store, notifier notify.Notifier) *Relay {
	return &Relay{store: store, notifier: notifier}
}

// PublishSubmission posts a completed submission to the channel with
// approve/reject controls and records the notice-to-applicant mapping used
// by reply relaying.
func (r *Relay) PublishSubmission(rec applicant.Record) error {
	text := fmt.Sprintf(
		"📥 *New Registration Request*\n\n"+
			"👤 *Name:* %s\n"+
			"📧 *Email:* %s\n"+
			"📱 *Phone:* %s\n"+
			"🔖 *Handle:* %s\n"+
			"👥 *Subscribers:* %s\n"+
			"🔗 *Link:* %s\n"+
			"🆔 *User ID:* %d\n"+
			"⏰ *Time:* %s\n\n"+
			"%s",
		rec.FullName, rec.Email, rec.Phone, rec.Handle,
		rec.Subscribers, rec.ChannelLink, rec.ChatID,
		rec.SubmittedAt.Format(time.RFC1123), pendingStatusLine,
	)

	payload := fmt.Sprintf("%d", rec.ChatID)
	markup := keyboard.InlineRow(
		keyboard.InlineBtn{Text: "✅ Approve", Unique: CallbackApprove, Data: payload},
		keyboard.InlineBtn{Text: "❌ Reject", Unique: CallbackReject, Data: payload},
	)

	messageID, err := r.notifier.ToChannel(text, markup)
	if err != nil {
		return fmt.Errorf("publish submission for %d: %w", rec.ChatID, err)
	}
	r.store.BindNotice(messageID, rec.ChatID)

	logger.SVCMod.Info("submission published",
		slog.String("event", "moderation.publish"),
		slog.Int64("chat_id", rec.ChatID),
		slog.Int("notice_id", messageID),
	)
	return nil
}

// RelayReply forwards a moderator's channel reply to the applicant the
// replied-to notice belongs to. Every outcome produces a channel-visible
// notice; nothing is silently dropped.
func (r *Relay) RelayReply(repliedMessageID int, text, moderatorName string) error {
	chatID, ok := r.store.ResolveNotice(repliedMessageID)
	if !ok {
		_, err := r.notifier.ToChannel(
			fmt.Sprintf("⚠️ Could not deliver reply: message %d is not a known submission notice.", repliedMessageID), nil)
		return err
	}
	if _, ok := r.store.Get(chatID); !ok {
		_, err := r.notifier.ToChannel(
			fmt.Sprintf("⚠️ Could not deliver reply: no record for user %d.", chatID), nil)
		return err
	}

	forwarded := fmt.Sprintf("📩 *Message from the team:*\n\n%s", text)
	if err := r.notifier.ToApplicant(chatID, forwarded, nil); err != nil {
		logger.SVCMod.Warn("reply delivery failed",
			slog.String("event", "moderation.relay"),
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
		_, nerr := r.notifier.ToChannel(
			fmt.Sprintf("⚠️ Could not deliver reply to user %d (they may have blocked the bot).", chatID), nil)
		return nerr
	}

	_, err := r.notifier.ToChannel(
		fmt.Sprintf("✉️ Reply from %s delivered to user %d.", moderatorName, chatID), nil)
	return err
}
