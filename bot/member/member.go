// Package member serves the post-payment surface: dashboard, support, and
// the feature overview.
package member

import (
	"fmt"
	"strings"

	"regbot/bot/applicant"
	"regbot/bot/notify"
	"regbot/bot/registration"
	"regbot/core/telegram/keyboard"
)

// Area answers the member keywords for paid applicants. Dashboard and
// Features are gated on a completed payment; Support is open to everyone.
type Area struct {
	store    applicant.Store
	notifier notify.Notifier
}

func New(store applicant.Store, notifier notify.Notifier) *Area {
	return &Area{store: store, notifier: notifier}
}

const notPaidText = "🔒 This area is for paid members only. Complete your payment to get access."

// SendDashboard shows the member summary, or the paywall for everyone else.
func (a *Area) SendDashboard(chatID int64) error {
	rec, ok := a.store.Get(chatID)
	if !ok || !rec.Paid() {
		return a.notifier.ToApplicant(chatID, notPaidText, nil)
	}

	var b strings.Builder
	b.WriteString("📊 *Your Dashboard*\n\n")
	fmt.Fprintf(&b, "👤 Name: %s\n", rec.FullName)
	fmt.Fprintf(&b, "📧 Email: %s\n", rec.Email)
	fmt.Fprintf(&b, "👥 Subscribers: %s\n", rec.Subscribers)
	fmt.Fprintf(&b, "💳 Payment: %d (completed)\n", rec.PaymentAmount)
	fmt.Fprintf(&b, "📅 Member since: %s\n", rec.PaidAt.Format("2 Jan 2006"))
	b.WriteString("\nMore tools are on the way. Stay tuned!")

	return a.notifier.ToApplicant(chatID, b.String(),
		keyboard.ReplyButtons(
			[]string{registration.KeywordFeatures, registration.KeywordSupport},
		))
}

// SendSupport points the applicant at the support contact.
func (a *Area) SendSupport(chatID int64) error {
	return a.notifier.ToApplicant(chatID,
		"🛟 *Support*\n\nNeed help? Reach out to our team and we'll get back to you as soon as possible.",
		nil)
}

// SendFeatures lists what membership includes.
func (a *Area) SendFeatures(chatID int64) error {
	rec, ok := a.store.Get(chatID)
	if !ok || !rec.Paid() {
		return a.notifier.ToApplicant(chatID, notPaidText, nil)
	}
	return a.notifier.ToApplicant(chatID,
		"✨ *Member Features*\n\n"+
			"📈 Growth analytics for your channel\n"+
			"🤝 Partner promotions\n"+
			"🎯 Priority review for campaigns\n"+
			"🛟 Dedicated support",
		keyboard.ReplyButtons(
			[]string{registration.KeywordDashboard, registration.KeywordSupport},
		))
}
