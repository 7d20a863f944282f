// Package applicant owns the in-memory applicant record store.
// Records live for the process lifetime only; there is no persistence.
package applicant

import "time"

// Status tracks the moderation outcome of a submission.
type Status string

const (
	// StatusAbsent means the applicant has not completed registration yet.
	StatusAbsent Status = ""
	// StatusPending means the submission awaits a moderator decision.
	StatusPending Status = "pending"
	// StatusApproved means a moderator accepted the submission.
	StatusApproved Status = "approved"
	// StatusRejected means a moderator declined the submission.
	StatusRejected Status = "rejected"
)

// PaymentStatus tracks whether the registration fee has been confirmed.
type PaymentStatus string

const (
	// PaymentNone means no confirmed payment exists.
	PaymentNone PaymentStatus = ""
	// PaymentCompleted means the gateway confirmed the fee.
	PaymentCompleted PaymentStatus = "completed"
)

// Registration step values. Steps 1..6 are the question sequence;
// StepIdle covers both "not started" and "finished".
const (
	StepIdle           = 0
	StepAwaitingReview = -1
)

// Record is the per-chat applicant state. The store owns all records;
// callers receive copies and mutate through Store.Update.
type Record struct {
	ChatID int64

	Step        int
	FullName    string
	Email       string
	Phone       string
	Handle      string
	Subscribers string
	ChannelLink string

	Status      Status
	SubmittedAt time.Time

	// ApprovedAt anchors the payment deadline. Set once, never reset.
	ApprovedAt    time.Time
	ModeratorID   int64
	ModeratorName string
	ModeratedAt   time.Time

	TxRef         string
	PaymentAmount int
	PaymentStatus PaymentStatus
	PaidAt        time.Time
}

// Approved reports whether the applicant may proceed to payment.
func (r *Record) Approved() bool {
	return r.Status == StatusApproved
}

// Paid reports whether the registration fee has been confirmed.
func (r *Record) Paid() bool {
	return r.PaymentStatus == PaymentCompleted
}

// ResetForRegistration clears collected fields and restarts the question
// sequence. Moderation and payment history is kept until overwritten by
// the next submission cycle.
func (r *Record) ResetForRegistration() {
	r.Step = 1
	r.FullName = ""
	r.Email = ""
	r.Phone = ""
	r.Handle = ""
	r.Subscribers = ""
	r.ChannelLink = ""
}
