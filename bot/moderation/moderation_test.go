package moderation

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

type editedMessage struct {
	messageID int
	text      string
	markup    *tele.ReplyMarkup
}

type fakeNotifier struct {
	toApplicant []sentMessage
	toChannel   []sentMessage
	edits       []editedMessage

	nextChannelID int
	applicantErr  error
	channelErr    error
}

func (f *fakeNotifier) ToApplicant(chatID int64, text string, markup *tele.ReplyMarkup) error {
	if f.applicantErr != nil {
		return f.applicantErr
	}
	f.toApplicant = append(f.toApplicant, sentMessage{chatID, text, markup})
	return nil
}

func (f *fakeNotifier) ToChannel(text string, markup *tele.ReplyMarkup) (int, error) {
	if f.channelErr != nil {
		return 0, f.channelErr
	}
	f.toChannel = append(f.toChannel, sentMessage{text: text, markup: markup})
	f.nextChannelID++
	return f.nextChannelID, nil
}

func (f *fakeNotifier) EditChannelMessage(messageID int, text string, markup *tele.ReplyMarkup) error {
	f.edits = append(f.edits, editedMessage{messageID, text, markup})
	return nil
}

func seedPending(store applicant.Store, chatID int64) {
	store.GetOrCreate(chatID)
	store.Update(chatID, func(r *applicant.Record) {
		r.FullName = "Abebe Kebede"
		r.Email = "abebe@example.com"
		r.Phone = "+251911223344"
		r.Handle = "@abebe"
		r.Subscribers = "12000"
		r.ChannelLink = "https://t.me/abebechannel"
		r.Status = applicant.StatusPending
		r.Step = applicant.StepAwaitingReview
		r.SubmittedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	})
}

var fees = FeeSchedule{Currency: "ETB", BaseFee: 100, LateFee: 150, WindowHours: 24}

func TestPublishSubmissionBindsNotice(t *testing.T) {
	store := applicant.NewMemoryStore()
	n := &fakeNotifier{}
	seedPending(store, 100)
	rec, _ := store.Get(100)

	if err := NewRelay(store, n).PublishSubmission(rec); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(n.toChannel) != 1 {
		t.Fatalf("channel messages = %d", len(n.toChannel))
	}

	msg := n.toChannel[0]
	for _, want := range []string{"Abebe Kebede", "abebe@example.com", "12000", pendingStatusLine} {
		if !strings.Contains(msg.text, want) {
			t.Fatalf("notice missing %q:\n%s", want, msg.text)
		}
	}
	if msg.markup == nil || len(msg.markup.InlineKeyboard) != 1 || len(msg.markup.InlineKeyboard[0]) != 2 {
		t.Fatal("notice must carry one row of two decision controls")
	}

	chatID, ok := store.ResolveNotice(1)
	if !ok || chatID != 100 {
		t.Fatalf("notice not bound: %d, %v", chatID, ok)
	}
}

func TestApproveSetsDeadlineAnchorAndNotifies(t *testing.T) {
	store := applicant.NewMemoryStore()
	n := &fakeNotifier{}
	seedPending(store, 100)

	d := NewDecider(store, n, fees)
	decidedAt := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return decidedAt }

	notice := Notice{MessageID: 10, Text: "body\n\n" + pendingStatusLine}
	toast := d.Decide(ActionApprove, 100, Moderator{ID: 9, Name: "Mod One"}, notice)
	if toast != "User approved" {
		t.Fatalf("toast = %q", toast)
	}

	rec, _ := store.Get(100)
	if rec.Status != applicant.StatusApproved {
		t.Fatalf("status = %q", rec.Status)
	}
	if !rec.ApprovedAt.Equal(decidedAt) {
		t.Fatalf("ApprovedAt = %v, want %v", rec.ApprovedAt, decidedAt)
	}
	if rec.ModeratorName != "Mod One" || rec.ModeratorID != 9 {
		t.Fatalf("moderator not recorded: %+v", rec)
	}

	if len(n.edits) != 1 {
		t.Fatalf("edits = %d", len(n.edits))
	}
	edit := n.edits[0]
	if edit.messageID != 10 {
		t.Fatalf("edited message %d", edit.messageID)
	}
	if !strings.Contains(edit.text, "✅ APPROVED") || strings.Contains(edit.text, pendingStatusLine) {
		t.Fatalf("status line not rewritten:\n%s", edit.text)
	}
	if edit.markup == nil || len(edit.markup.InlineKeyboard) != 0 {
		t.Fatal("decision controls not stripped")
	}

	if len(n.toApplicant) != 1 {
		t.Fatalf("applicant messages = %d", len(n.toApplicant))
	}
	text := n.toApplicant[0].text
	if !strings.Contains(text, "APPROVED") || !strings.Contains(text, "100 ETB") || !strings.Contains(text, "150 ETB") {
		t.Fatalf("approval notification = %q", text)
	}
}

func TestRejectNotifiesWithRetryKeyboard(t *testing.T) {
	store := applicant.NewMemoryStore()
	n := &fakeNotifier{}
	seedPending(store, 100)

	d := NewDecider(store, n, fees)
	toast := d.Decide(ActionReject, 100, Moderator{ID: 9, Name: "Mod One"}, Notice{MessageID: 10, Text: pendingStatusLine})
	if toast != "User rejected" {
		t.Fatalf("toast = %q", toast)
	}

	rec, _ := store.Get(100)
	if rec.Status != applicant.StatusRejected {
		t.Fatalf("status = %q", rec.Status)
	}
	if !rec.ApprovedAt.IsZero() {
		t.Fatal("rejection must not set ApprovedAt")
	}

	msg := n.toApplicant[0]
	if !strings.Contains(msg.text, "Rejected") {
		t.Fatalf("rejection text = %q", msg.text)
	}
	if msg.markup == nil || len(msg.markup.ReplyKeyboard) == 0 {
		t.Fatal("rejection should offer the register-again button")
	}
}

func TestDuplicateDecisionIsNoOp(t *testing.T) {
	store := applicant.NewMemoryStore()
	n := &fakeNotifier{}
	seedPending(store, 100)

	d := NewDecider(store, n, fees)
	first := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return first }
	d.Decide(ActionApprove, 100, Moderator{ID: 9, Name: "Mod One"}, Notice{MessageID: 10})

	sent := len(n.toApplicant)
	d.now = func() time.Time { return first.Add(2 * time.Hour) }
	toast := d.Decide(ActionReject, 100, Moderator{ID: 8, Name: "Mod Two"}, Notice{MessageID: 10})
	if toast != "Already approved" {
		t.Fatalf("toast = %q", toast)
	}

	rec, _ := store.Get(100)
	if rec.Status != applicant.StatusApproved {
		t.Fatalf("second decision overwrote status: %q", rec.Status)
	}
	if !rec.ApprovedAt.Equal(first) {
		t.Fatalf("ApprovedAt moved to %v", rec.ApprovedAt)
	}
	if len(n.toApplicant) != sent {
		t.Fatal("duplicate decision re-notified the applicant")
	}
}

func TestDecisionForUnknownRecord(t *testing.T) {
	store := applicant.NewMemoryStore()
	n := &fakeNotifier{}

	d := NewDecider(store, n, fees)
	toast := d.Decide(ActionApprove, 999, Moderator{ID: 9, Name: "Mod One"}, Notice{MessageID: 10})
	if toast != "No record for this user" {
		t.Fatalf("toast = %q", toast)
	}
	if len(n.edits) != 1 {
		t.Fatal("notice should still be resolved")
	}
	if len(n.toChannel) != 1 || !strings.Contains(n.toChannel[0].text, "no registration record") {
		t.Fatalf("channel note = %+v", n.toChannel)
	}
}

func TestRelayReplyDeliversAndConfirms(t *testing.T) {
	store := applicant.NewMemoryStore()
	n := &fakeNotifier{}
	seedPending(store, 100)
	store.BindNotice(77, 100)

	r := NewRelay(store, n)
	if err := r.RelayReply(77, "Please share a proper channel link.", "Mod One"); err != nil {
		t.Fatalf("relay: %v", err)
	}

	if len(n.toApplicant) != 1 {
		t.Fatalf("applicant messages = %d", len(n.toApplicant))
	}
	if got := n.toApplicant[0].text; !strings.Contains(got, "Message from the team") ||
		!strings.Contains(got, "proper channel link") {
		t.Fatalf("forwarded = %q", got)
	}
	if len(n.toChannel) != 1 || !strings.Contains(n.toChannel[0].text, "Mod One") {
		t.Fatalf("delivery confirmation = %+v", n.toChannel)
	}
}

func TestRelayReplyUnknownNotice(t *testing.T) {
	store := applicant.NewMemoryStore()
	n := &fakeNotifier{}

	if err := NewRelay(store, n).RelayReply(123, "hello", "Mod One"); err != nil {
		t.Fatalf("relay: %v", err)
	}
	if len(n.toApplicant) != 0 {
		t.Fatal("nothing should reach an applicant")
	}
	if len(n.toChannel) != 1 || !strings.Contains(n.toChannel[0].text, "not a known submission notice") {
		t.Fatalf("channel note = %+v", n.toChannel)
	}
}

func TestRelayReplyDeliveryFailure(t *testing.T) {
	store := applicant.NewMemoryStore()
	n := &fakeNotifier{applicantErr: errors.New("blocked")}
	seedPending(store, 100)
	store.BindNotice(77, 100)

	if err := NewRelay(store, n).RelayReply(77, "hello", "Mod One"); err != nil {
		t.Fatalf("relay: %v", err)
	}
	if len(n.toChannel) != 1 || !strings.Contains(n.toChannel[0].text, "Could not deliver reply to user 100") {
		t.Fatalf("failure note = %+v", n.toChannel)
	}
}
