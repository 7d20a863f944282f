package member

import (
	"strings"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"regbot/bot/applicant"
)

type fakeNotifier struct {
	sent []string
}

func (f *fakeNotifier) ToApplicant(_ int64, text string, _ *tele.ReplyMarkup) error {
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeNotifier) ToChannel(string, *tele.ReplyMarkup) (int, error) { return 0, nil }

func (f *fakeNotifier) EditChannelMessage(int, string, *tele.ReplyMarkup) error { return nil }

func TestDashboardGatedOnPayment(t *testing.T) {
	store := applicant.NewMemoryStore()
	n := &fakeNotifier{}
	a := New(store, n)

	if err := a.SendDashboard(100); err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if !strings.Contains(n.sent[0], "paid members only") {
		t.Fatalf("unpaid dashboard = %q", n.sent[0])
	}

	store.GetOrCreate(100)
	store.Update(100, func(r *applicant.Record) {
		r.FullName = "Abebe Kebede"
		r.Email = "abebe@example.com"
		r.Subscribers = "12000"
		r.PaymentStatus = applicant.PaymentCompleted
		r.PaymentAmount = 100
		r.PaidAt = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	})

	if err := a.SendDashboard(100); err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	got := n.sent[len(n.sent)-1]
	if !strings.Contains(got, "Dashboard") || !strings.Contains(got, "Abebe Kebede") {
		t.Fatalf("paid dashboard = %q", got)
	}
}

func TestFeaturesGatedOnPayment(t *testing.T) {
	store := applicant.NewMemoryStore()
	n := &fakeNotifier{}
	a := New(store, n)

	if err := a.SendFeatures(100); err != nil {
		t.Fatalf("features: %v", err)
	}
	if !strings.Contains(n.sent[0], "paid members only") {
		t.Fatalf("unpaid features = %q", n.sent[0])
	}
}

func TestSupportIsOpenToEveryone(t *testing.T) {
	n := &fakeNotifier{}
	a := New(applicant.NewMemoryStore(), n)

	if err := a.SendSupport(100); err != nil {
		t.Fatalf("support: %v", err)
	}
	if !strings.Contains(n.sent[0], "Support") {
		t.Fatalf("support = %q", n.sent[0])
	}
}
