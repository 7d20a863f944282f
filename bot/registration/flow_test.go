package registration

import (
	"errors"
	"strings"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"regbot/bot/applicant"
)

type sentMessage struct {
	chatID int64
	text   string
	markup *tele.ReplyMarkup
}

type fakeNotifier struct {
	toApplicant []sentMessage
	toChannel   []sentMessage
	applicantEr error
}

func (f *fakeNotifier) ToApplicant(chatID int64, text string, markup *tele.ReplyMarkup) error {
	if f.applicantEr != nil {
		return f.applicantEr
	}
	f.toApplicant = append(f.toApplicant, sentMessage{chatID, text, markup})
	return nil
}

func (f *fakeNotifier) ToChannel(text string, markup *tele.ReplyMarkup) (int, error) {
	f.toChannel = append(f.toChannel, sentMessage{text: text, markup: markup})
	return len(f.toChannel), nil
}

func (f *fakeNotifier) EditChannelMessage(int, string, *tele.ReplyMarkup) error { return nil }

func (f *fakeNotifier) lastToApplicant(t *testing.T) sentMessage {
	t.Helper()
	if len(f.toApplicant) == 0 {
		t.Fatal("no applicant messages sent")
	}
	return f.toApplicant[len(f.toApplicant)-1]
}

type fakePublisher struct {
	published []applicant.Record
	err       error
}

func (f *fakePublisher) PublishSubmission(rec applicant.Record) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, rec)
	return nil
}

func newTestFlow() (*Flow, *fakeNotifier, *fakePublisher, applicant.Store) {
	store := applicant.NewMemoryStore()
	n := &fakeNotifier{}
	p := &fakePublisher{}
	f := NewFlow(store, n, p)
	f.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return f, n, p, store
}

var answers = []string{
	"Abebe Kebede",
	"abebe@example.com",
	"+251911223344",
	"@abebe",
	"12000",
	"https://t.me/abebechannel",
}

func TestFullRegistrationSequence(t *testing.T) {
	f, n, p, store := newTestFlow()
	const chatID = int64(100)

	if err := f.StartRegistration(chatID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := n.lastToApplicant(t).text; got != questions[0].prompt {
		t.Fatalf("first prompt = %q", got)
	}
	if !f.InProgress(chatID) {
		t.Fatal("flow should be in progress after start")
	}

	for _, a := range answers {
		if err := f.HandleAnswer(chatID, a); err != nil {
			t.Fatalf("answer %q: %v", a, err)
		}
	}

	rec, _ := store.Get(chatID)
	if rec.Step != applicant.StepAwaitingReview {
		t.Fatalf("step = %d, want awaiting review", rec.Step)
	}
	if rec.Status != applicant.StatusPending {
		t.Fatalf("status = %q, want pending", rec.Status)
	}
	if rec.SubmittedAt.IsZero() {
		t.Fatal("SubmittedAt not set")
	}
	if rec.FullName != answers[0] || rec.Email != answers[1] || rec.Phone != answers[2] ||
		rec.Handle != answers[3] || rec.Subscribers != answers[4] || rec.ChannelLink != answers[5] {
		t.Fatalf("fields not captured: %+v", rec)
	}

	if len(p.published) != 1 {
		t.Fatalf("published %d submissions, want 1", len(p.published))
	}
	if p.published[0].ChatID != chatID {
		t.Fatalf("published wrong applicant: %d", p.published[0].ChatID)
	}

	last := n.lastToApplicant(t)
	if !strings.Contains(last.text, "submitted for approval") {
		t.Fatalf("confirmation = %q", last.text)
	}
	if f.InProgress(chatID) {
		t.Fatal("flow still in progress after submission")
	}
}

func TestInvalidEmailRepromptsWithoutAdvancing(t *testing.T) {
	f, n, _, store := newTestFlow()
	const chatID = int64(101)

	_ = f.StartRegistration(chatID)
	_ = f.HandleAnswer(chatID, "Abebe Kebede")

	if err := f.HandleAnswer(chatID, "not-an-email"); err != nil {
		t.Fatalf("invalid answer: %v", err)
	}
	rec, _ := store.Get(chatID)
	if rec.Step != 2 {
		t.Fatalf("step advanced to %d on invalid email", rec.Step)
	}
	if rec.Email != "" {
		t.Fatalf("invalid email stored: %q", rec.Email)
	}
	if got := n.lastToApplicant(t).text; !strings.Contains(got, "valid email") {
		t.Fatalf("re-prompt = %q", got)
	}

	// A valid answer then advances normally.
	_ = f.HandleAnswer(chatID, "abebe@example.com")
	rec, _ = store.Get(chatID)
	if rec.Step != 3 || rec.Email != "abebe@example.com" {
		t.Fatalf("recovery failed: %+v", rec)
	}
}

func TestRestartOverwritesPreviousAnswers(t *testing.T) {
	f, _, _, store := newTestFlow()
	const chatID = int64(102)

	_ = f.StartRegistration(chatID)
	_ = f.HandleAnswer(chatID, "First Try")
	_ = f.HandleAnswer(chatID, "first@example.com")

	if err := f.StartRegistration(chatID); err != nil {
		t.Fatalf("restart: %v", err)
	}
	rec, _ := store.Get(chatID)
	if rec.Step != 1 {
		t.Fatalf("step = %d after restart", rec.Step)
	}
	if rec.FullName != "" || rec.Email != "" {
		t.Fatalf("answers survived restart: %+v", rec)
	}
}

func TestPublishFailureStillConfirmsPending(t *testing.T) {
	f, n, p, store := newTestFlow()
	p.err = errors.New("channel down")
	const chatID = int64(103)

	_ = f.StartRegistration(chatID)
	for _, a := range answers {
		_ = f.HandleAnswer(chatID, a)
	}

	rec, _ := store.Get(chatID)
	if rec.Status != applicant.StatusPending {
		t.Fatalf("status = %q, want pending despite publish failure", rec.Status)
	}
	if got := n.lastToApplicant(t).text; !strings.Contains(got, "submitted for approval") {
		t.Fatalf("applicant not confirmed: %q", got)
	}
}

func TestHandleAnswerIgnoresIdleChats(t *testing.T) {
	f, n, _, _ := newTestFlow()
	if err := f.HandleAnswer(555, "random text"); err != nil {
		t.Fatalf("idle answer: %v", err)
	}
	if len(n.toApplicant) != 0 {
		t.Fatalf("idle chat received %d messages", len(n.toApplicant))
	}
}

func TestSendStatusPerState(t *testing.T) {
	f, n, _, store := newTestFlow()
	const chatID = int64(104)

	_ = f.SendStatus(chatID)
	if got := n.lastToApplicant(t).text; !strings.Contains(got, "pending admin approval") {
		t.Fatalf("absent-status text = %q", got)
	}

	store.Update(chatID, func(r *applicant.Record) {
		r.Status = applicant.StatusApproved
		r.FullName = "Abebe"
		r.Email = "abebe@example.com"
		r.Subscribers = "12000"
	})
	_ = f.SendStatus(chatID)
	msg := n.lastToApplicant(t)
	if !strings.Contains(msg.text, "approved") || !strings.Contains(msg.text, "Abebe") {
		t.Fatalf("approved status = %q", msg.text)
	}
	if msg.markup == nil || len(msg.markup.ReplyKeyboard) == 0 ||
		msg.markup.ReplyKeyboard[0][0].Text != KeywordPay {
		t.Fatal("approved status should offer the payment button")
	}

	store.Update(chatID, func(r *applicant.Record) { r.Status = applicant.StatusRejected })
	_ = f.SendStatus(chatID)
	if got := n.lastToApplicant(t).text; !strings.Contains(got, "rejected") {
		t.Fatalf("rejected status = %q", got)
	}

	store.Update(chatID, func(r *applicant.Record) {
		r.Status = applicant.StatusApproved
		r.PaymentStatus = applicant.PaymentCompleted
	})
	_ = f.SendStatus(chatID)
	if got := n.lastToApplicant(t).text; !strings.Contains(got, "fully registered and paid") {
		t.Fatalf("paid status = %q", got)
	}
}
