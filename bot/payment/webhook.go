package payment

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"regbot/bot/applicant"
	"regbot/bot/notify"
	"regbot/bot/registration"
	"regbot/core/logger"
	"regbot/core/telegram/keyboard"
)

// Webhook receives Chapa's asynchronous payment confirmation callback.
type Webhook struct {
	store    applicant.Store
	notifier notify.Notifier
	gateway  Gateway
	currency string
	now      func() time.Time
}

// NewWebhook wires the confirmation receiver.
func NewWebhook(store applicant.Store, notifier notify.Notifier, gateway Gateway, currency string) *Webhook {
	return &Webhook{store: store, notifier: notifier, gateway: gateway, currency: currency, now: time.Now}
}

type webhookPayload struct {
	TxRef string `json:"tx_ref"`
}

// Handler returns the gin handler for POST /verify.
//
// Responses: 400 when the reference is missing, 500 only on a gateway
// transport fault, 200 otherwise — including unmatched references,
// unconfirmed transactions, and replays, so the gateway has no reason to
// retry-storm benign outcomes.
func (w *Webhook) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload webhookPayload
		if err := c.ShouldBindJSON(&payload); err != nil || payload.TxRef == "" {
			c.Status(http.StatusBadRequest)
			return
		}

		ok, err := w.gateway.VerifyTransaction(c.Request.Context(), payload.TxRef)
		if err != nil {
			logger.PAY.Error("verify failed",
				slog.String("event", "payment.verify"),
				slog.String("tx_ref", payload.TxRef),
				slog.String("err", err.Error()),
			)
			c.Status(http.StatusInternalServerError)
			return
		}
		if !ok {
			logger.PAY.Info("verify not successful",
				slog.String("event", "payment.verify"),
				slog.String("tx_ref", payload.TxRef),
			)
			c.Status(http.StatusOK)
			return
		}

		rec, found := w.store.FindByTxRef(payload.TxRef)
		if !found {
			logger.PAY.Warn("verified reference matches no record",
				slog.String("event", "payment.verify"),
				slog.String("tx_ref", payload.TxRef),
			)
			c.Status(http.StatusOK)
			return
		}

		// Mark completed exactly once; replays of an already-confirmed
		// reference must not duplicate the welcome notifications.
		first := false
		w.store.Update(rec.ChatID, func(r *applicant.Record) {
			if r.PaymentStatus != applicant.PaymentCompleted {
				r.PaymentStatus = applicant.PaymentCompleted
				r.PaidAt = w.now()
				first = true
			}
		})

		if first {
			w.welcome(rec.ChatID)
		}
		c.Status(http.StatusOK)
	}
}

func (w *Webhook) welcome(chatID int64) {
	rec, ok := w.store.Get(chatID)
	if !ok {
		return
	}

	if err := w.notifier.ToApplicant(chatID,
		"✅ *Payment Confirmed!*\n\nWelcome aboard! You now have full access to our platform. Use /start to begin.",
		nil); err != nil {
		logger.PAY.Warn("welcome delivery failed",
			slog.String("event", "payment.welcome"),
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
	}

	channelText := fmt.Sprintf(
		"💎 *New Paid Member!*\n\n"+
			"👤 *Name:* %s\n"+
			"📧 *Email:* %s\n"+
			"💰 *Amount:* %d %s\n"+
			"🆔 *User ID:* %d\n"+
			"📅 *Date:* %s\n\n"+
			"Status: ✅ Fully Registered & Paid",
		rec.FullName, rec.Email, rec.PaymentAmount, w.currency, rec.ChatID,
		rec.PaidAt.Format(time.RFC1123),
	)
	if _, err := w.notifier.ToChannel(channelText, nil); err != nil {
		logger.PAY.Warn("paid-member notice failed",
			slog.String("event", "payment.welcome"),
			slog.String("err", err.Error()),
		)
	}

	if err := w.notifier.ToApplicant(chatID, "What would you like to do next?",
		keyboard.ReplyButtons([]string{registration.KeywordDashboard, registration.KeywordSupport})); err != nil {
		logger.PAY.Warn("follow-up keyboard failed",
			slog.String("event", "payment.welcome"),
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
	}
}
