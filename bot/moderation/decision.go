package moderation

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"regbot/bot/applicant"
	"regbot/bot/notify"
	"regbot/bot/registration"
	"regbot/core/logger"
	"regbot/core/telegram/keyboard"
)

// Action is a moderator's binary decision.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// FeeSchedule is displayed to approved applicants. Amounts are whole
// currency units.
type FeeSchedule struct {
	Currency    string
	BaseFee     int
	LateFee     int
	WindowHours int
}

// Moderator identifies who triggered a decision control.
type Moderator struct {
	ID   int64
	Name string
}

// Notice locates the channel message the decision control was attached to.
type Notice struct {
	MessageID int
	Text      string
}

// Decider applies approve/reject decisions to applicant records.
type Decider struct {
	store    applicant.Store
	notifier notify.Notifier
	fees     FeeSchedule
	now      func() time.Time
}

// NewDecider wires the decision handler.
func NewDecider(store applicant.Store, notifier notify.Notifier, fees FeeSchedule) *Decider {
	return &Decider{store: store, notifier: notifier, fees: fees, now: time.Now}
}

// Decide applies a moderator decision. It always edits the notice (stripping
// the single-use controls) and returns a short acknowledgement text for the
// triggering interaction. A missing record or an already-decided record is
// tolerated, never fatal.
func (d *Decider) Decide(action Action, chatID int64, mod Moderator, notice Notice) string {
	rec, exists := d.store.Get(chatID)

	if exists && rec.Status != applicant.StatusPending {
		// Duplicate click on an already-decided submission: no-op, do not
		// re-run notifications or touch ApprovedAt.
		logger.SVCMod.Info("duplicate decision ignored",
			slog.String("event", "moderation.decide"),
			slog.Int64("chat_id", chatID),
			slog.String("status", string(rec.Status)),
		)
		return fmt.Sprintf("Already %s", rec.Status)
	}

	status := applicant.StatusRejected
	if action == ActionApprove {
		status = applicant.StatusApproved
	}

	if exists {
		now := d.now()
		d.store.Update(chatID, func(r *applicant.Record) {
			r.Status = status
			r.ModeratorID = mod.ID
			r.ModeratorName = mod.Name
			r.ModeratedAt = now
			if status == applicant.StatusApproved && r.ApprovedAt.IsZero() {
				r.ApprovedAt = now
			}
		})
	} else {
		logger.SVCMod.Warn("decision for unknown record",
			slog.String("event", "moderation.decide"),
			slog.Int64("chat_id", chatID),
			slog.String("action", string(action)),
		)
	}

	d.editNotice(notice, status, mod)

	if !exists {
		d.channelNote(fmt.Sprintf("⚠️ Decision recorded, but no registration record exists for user %d.", chatID))
		return "No record for this user"
	}

	if status == applicant.StatusApproved {
		d.notifyApproved(chatID)
		rec, _ = d.store.Get(chatID)
		d.channelNote(fmt.Sprintf("✅ User [%s](tg://user?id=%d) has been approved and notified.", rec.FullName, chatID))
		return "User approved"
	}

	d.notifyRejected(chatID)
	d.channelNote(fmt.Sprintf("❌ User [%s](tg://user?id=%d) has been rejected and notified.", rec.FullName, chatID))
	return "User rejected"
}

// editNotice rewrites the status line of the original channel notice and
// removes the decision controls so they cannot fire twice.
func (d *Decider) editNotice(notice Notice, status applicant.Status, mod Moderator) {
	label := "❌ REJECTED"
	if status == applicant.StatusApproved {
		label = "✅ APPROVED"
	}
	resolved := fmt.Sprintf("Status: %s by [%s](tg://user?id=%d)", label, mod.Name, mod.ID)

	text := replaceStatusLine(notice.Text, resolved)
	if err := d.notifier.EditChannelMessage(notice.MessageID, text, keyboard.EmptyInline()); err != nil {
		logger.SVCMod.Warn("notice edit failed",
			slog.String("event", "moderation.edit"),
			slog.Int("notice_id", notice.MessageID),
			slog.String("err", err.Error()),
		)
	}
}

func replaceStatusLine(text, resolved string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "Status:") {
			lines[i] = resolved
			return strings.Join(lines, "\n")
		}
	}
	return text + "\n\n" + resolved
}

func (d *Decider) notifyApproved(chatID int64) {
	text := fmt.Sprintf(
		"✅ *Congratulations! Your registration has been APPROVED!*\n\n"+
			"You now have %d hours to complete your payment.\n"+
			"- Standard fee: %d %s (within %dh)\n"+
			"- Late fee: %d %s (after %dh)\n\n"+
			"Click the button below to proceed with payment.",
		d.fees.WindowHours,
		d.fees.BaseFee, d.fees.Currency, d.fees.WindowHours,
		d.fees.LateFee, d.fees.Currency, d.fees.WindowHours,
	)
	if err := d.notifier.ToApplicant(chatID, text,
		keyboard.ReplyButtons([]string{registration.KeywordPay})); err != nil {
		d.deliveryFailure(chatID, err)
	}
}

func (d *Decider) notifyRejected(chatID int64) {
	text := "❌ *Registration Rejected*\n\n" +
		"Unfortunately, your registration has been rejected. This could be due to:\n" +
		"- Invalid information provided\n" +
		"- Not meeting our requirements\n\n" +
		"Please contact support if you believe this is a mistake."
	if err := d.notifier.ToApplicant(chatID, text,
		keyboard.ReplyButtons([]string{registration.KeywordRegister})); err != nil {
		d.deliveryFailure(chatID, err)
	}
}

func (d *Decider) deliveryFailure(chatID int64, err error) {
	logger.SVCMod.Warn("decision notification failed",
		slog.String("event", "moderation.notify"),
		slog.Int64("chat_id", chatID),
		slog.String("err", err.Error()),
	)
	d.channelNote(fmt.Sprintf("⚠️ Could not notify user %d of the decision.", chatID))
}

func (d *Decider) channelNote(text string) {
	if _, err := d.notifier.ToChannel(text, nil); err != nil {
		logger.SVCMod.Warn("channel note failed",
			slog.String("event", "moderation.notify"),
			slog.String("err", err.Error()),
		)
	}
}
