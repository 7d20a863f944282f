package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"regbot/bot/applicant"
	"regbot/bot/notify"
	"regbot/core/logger"
)

// Config carries fee tiers and the URLs handed to the gateway.
type Config struct {
	Currency    string
	BaseFee     int
	LateFee     int
	Window      time.Duration
	CallbackURL string
	ReturnURL   string
}

// Orchestrator handles "proceed to payment" requests: precondition check,
// fee-tier selection, reference minting, and the gateway call.
type Orchestrator struct {
	store    applicant.Store
	notifier notify.Notifier
	gateway  Gateway
	cfg      Config
	now      func() time.Time
}

// NewOrchestrator wires the payment orchestrator.
func NewOrchestrator(store applicant.Store, notifier notify.Notifier, gateway Gateway, cfg Config) *Orchestrator {
	return &Orchestrator{
		store:    store,
		notifier: notifier,
		gateway:  gateway,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Fee selects the tier for a payment initiated at now. The boundary at
// exactly the window is base-fee-inclusive.
func (o *Orchestrator) Fee(approvedAt, now time.Time) int {
	if now.Sub(approvedAt) <= o.cfg.Window {
		return o.cfg.BaseFee
	}
	return o.cfg.LateFee
}

// MintRef builds a globally unique transaction reference from the chat
// identity, the current time, and a random fragment. The fragment keeps
// same-millisecond retries from colliding.
func MintRef(chatID int64, t time.Time) string {
	return fmt.Sprintf("tx-%d-%d-%s", chatID, t.UnixMilli(), uuid.NewString()[:8])
}

// HandleProceed processes one "proceed to payment" request. The per-applicant
// lock is held across the gateway call so a concurrent request for the same
// applicant cannot mint a second live reference.
func (o *Orchestrator) HandleProceed(ctx context.Context, chatID int64) error {
	lock := o.store.PaymentLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	rec, ok := o.store.Get(chatID)
	if !ok || !rec.Approved() {
		return o.notifier.ToApplicant(chatID,
			"❌ You need to be approved first before making payment.", nil)
	}

	now := o.now()
	amount := o.Fee(rec.ApprovedAt, now)
	txRef := MintRef(chatID, now)

	checkoutURL, err := o.gateway.InitializeTransaction(ctx, InitializeRequest{
		Amount:      amount,
		Currency:    o.cfg.Currency,
		Email:       rec.Email,
		FirstName:   rec.FullName,
		TxRef:       txRef,
		CallbackURL: o.cfg.CallbackURL,
		ReturnURL:   o.cfg.ReturnURL,
	})
	if err != nil {
		logger.PAY.Error("initialize failed",
			slog.String("event", "payment.initialize"),
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
		// No state committed on gateway failure.
		return o.notifier.ToApplicant(chatID,
			"❌ Payment initialization failed. Please try again later.", nil)
	}

	o.store.Update(chatID, func(r *applicant.Record) {
		r.TxRef = txRef
		r.PaymentAmount = amount
	})

	logger.PAY.Info("transaction initialized",
		slog.String("event", "payment.initialize"),
		slog.Int64("chat_id", chatID),
		slog.String("tx_ref", txRef),
		slog.Int("amount", amount),
	)

	text := fmt.Sprintf(
		"💰 *Payment Required: %d %s*\n\n"+
			"Click the link below to complete your payment:\n"+
			"[🔗 Pay Now](%s)\n\n"+
			"After payment, you'll be automatically verified.",
		amount, o.cfg.Currency, checkoutURL,
	)
	if err := o.notifier.ToApplicant(chatID, text, nil); err != nil {
		return err
	}

	// Best-effort heads-up to the moderation channel.
	if _, err := o.notifier.ToChannel(fmt.Sprintf(
		"💰 User [%s](tg://user?id=%d) initiated payment of %d %s",
		rec.FullName, chatID, amount, o.cfg.Currency), nil); err != nil {
		logger.PAY.Warn("channel notice failed",
			slog.String("event", "payment.notify"),
			slog.String("err", err.Error()),
		)
	}
	return nil
}
