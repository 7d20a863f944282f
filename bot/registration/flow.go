// Package registration drives the multi-step intake conversation.
package registration

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"regbot/bot/applicant"
	"regbot/bot/notify"
	"regbot/core/logger"
	"regbot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// Reply-keyboard keywords understood in private chats.
const (
	KeywordRegister    = "Register"
	KeywordCheckStatus = "Check Status"
	KeywordPay         = "Proceed to Payment"
	KeywordDashboard   = "Dashboard"
	KeywordSupport     = "Support"
	KeywordFeatures    = "Features"
)

// Publisher hands a completed submission to the moderation channel.
type Publisher interface {
	PublishSubmission(rec applicant.Record) error
}

// question describes one step of the intake sequence: the prompt shown
// after the previous answer, an optional validator, and the field setter.
type question struct {
	prompt   string
	validate func(string) error
	assign   func(*applicant.Record, string)
}

var questions = []question{
	{
		prompt: "📝 Please enter your Full Name:",
		assign: func(r *applicant.Record, v string) { r.FullName = v },
	},
	{
		prompt:   "📧 Please enter your Business Email:",
		validate: validateEmail,
		assign:   func(r *applicant.Record, v string) { r.Email = v },
	},
	{
		prompt: "📱 Please enter your Phone Number:",
		assign: func(r *applicant.Record, v string) { r.Phone = v },
	},
	{
		prompt: "🔖 Please enter your Telegram Handle:",
		assign: func(r *applicant.Record, v string) { r.Handle = v },
	},
	{
		prompt: "👥 How many subscribers do you have?",
		assign: func(r *applicant.Record, v string) { r.Subscribers = v },
	},
	{
		prompt: "🔗 Please send a link to your channel or page:",
		assign: func(r *applicant.Record, v string) { r.ChannelLink = v },
	},
}

func validateEmail(v string) error {
	if !strings.Contains(v, "@") || !strings.Contains(v, ".") {
		return fmt.Errorf("invalid email: %q", v)
	}
	return nil
}

// Flow is the registration state machine. It mutates applicant records and
// emits exactly one reply per consumed message.
type Flow struct {
	store     applicant.Store
	notifier  notify.Notifier
	publisher Publisher
	now       func() time.Time
}

// NewFlow wires the state machine to its record store and collaborators.
func NewFlow(store applicant.Store, notifier notify.Notifier, publisher Publisher) *Flow {
	return &Flow{
		store:     store,
		notifier:  notifier,
		publisher: publisher,
		now:       time.Now,
	}
}

// InProgress reports whether the applicant is mid-sequence, so plain text
// should be consumed as an answer.
func (f *Flow) InProgress(chatID int64) bool {
	rec, ok := f.store.Get(chatID)
	return ok && rec.Step >= 1
}

// SendWelcome replies to /start with the register affordance.
func (f *Flow) SendWelcome(chatID int64) error {
	f.store.GetOrCreate(chatID)
	return f.notifier.ToApplicant(chatID,
		"Welcome 🚀 Click Register to join our platform",
		keyboard.ReplyButtons([]string{KeywordRegister}),
	)
}

// StartRegistration begins (or restarts) the question sequence. Restarting
// overwrites previously collected fields; this is the retry path for
// rejected applicants.
func (f *Flow) StartRegistration(chatID int64) error {
	f.store.GetOrCreate(chatID)
	f.store.Update(chatID, func(r *applicant.Record) {
		r.ResetForRegistration()
	})
	return f.notifier.ToApplicant(chatID, questions[0].prompt, keyboard.RemoveKeyboard())
}

// HandleAnswer consumes one message as the answer to the current question.
func (f *Flow) HandleAnswer(chatID int64, text string) error {
	rec, ok := f.store.Get(chatID)
	if !ok || rec.Step < 1 || rec.Step > len(questions) {
		return nil
	}

	q := questions[rec.Step-1]
	if q.validate != nil {
		if err := q.validate(text); err != nil {
			logger.SVCReg.Debug("answer rejected",
				slog.String("event", "registration.validate"),
				slog.Int64("chat_id", chatID),
				slog.Int("step", rec.Step),
			)
			// Re-prompt without advancing.
			return f.notifier.ToApplicant(chatID,
				"❌ That doesn't look like a valid email. "+q.prompt, nil)
		}
	}

	last := rec.Step == len(questions)
	f.store.Update(chatID, func(r *applicant.Record) {
		q.assign(r, text)
		if last {
			r.Step = applicant.StepAwaitingReview
			r.Status = applicant.StatusPending
			r.SubmittedAt = f.now()
		} else {
			r.Step++
		}
	})

	if !last {
		return f.notifier.ToApplicant(chatID, questions[rec.Step].prompt, nil)
	}
	return f.finalize(chatID)
}

func (f *Flow) finalize(chatID int64) error {
	rec, ok := f.store.Get(chatID)
	if !ok {
		return nil
	}

	// Publish before confirming to the applicant; a failed publish is
	// reported but the submission stays pending.
	if err := f.publisher.PublishSubmission(rec); err != nil {
		logger.SVCReg.Error("submission publish failed",
			slog.String("event", "registration.publish"),
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
	}

	return f.notifier.ToApplicant(chatID,
		"✅ Your registration has been submitted for approval. You'll receive a notification once reviewed.",
		keyboard.ReplyButtons([]string{KeywordCheckStatus}),
	)
}

// SendStatus replies with the current status summary. It never mutates state.
func (f *Flow) SendStatus(chatID int64) error {
	rec := f.store.GetOrCreate(chatID)

	var b strings.Builder
	b.WriteString("📊 *Your Registration Status*\n\n")
	switch rec.Status {
	case applicant.StatusApproved:
		if rec.Paid() {
			b.WriteString("💎 You are fully registered and paid.")
		} else {
			b.WriteString("✅ Your application has been approved! Click 'Proceed to Payment' to continue.")
		}
	case applicant.StatusRejected:
		b.WriteString("❌ Your application has been rejected. Please contact support for more information.")
	default:
		b.WriteString("⏳ Your application is pending admin approval.")
	}

	if rec.FullName != "" {
		fmt.Fprintf(&b, "\n\n👤 Name: %s\n📧 Email: %s\n👥 Subscribers: %s",
			rec.FullName, rec.Email, rec.Subscribers)
	}

	return f.notifier.ToApplicant(chatID, b.String(), statusKeyboard(rec))
}

func statusKeyboard(rec applicant.Record) *tele.ReplyMarkup {
	switch {
	case rec.Paid():
		return keyboard.ReplyButtons([]string{KeywordDashboard, KeywordSupport})
	case rec.Approved():
		return keyboard.ReplyButtons([]string{KeywordPay}, []string{KeywordCheckStatus})
	default:
		return keyboard.ReplyButtons([]string{KeywordRegister})
	}
}
