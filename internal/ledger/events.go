package ledger

import (
	"context"
	"time"
)

type EventType string

const (
	EventLoanRequested          EventType = "loan_requested"
	EventLoanRequestDenied      EventType = "loan_request_denied"
	EventLoanOffered            EventType = "loan_offered"
	EventLoanOfferUpdated       EventType = "loan_offer_updated"
	EventLoanOfferCancelled     EventType = "loan_offer_cancelled"
	EventLoanOfferAccepted      EventType = "loan_offer_accepted"
	EventLoanBorrowed           EventType = "loan_borrowed"
	EventLoanRepaymentInitiated EventType = "loan_repayment_initiated"
	EventLoanRepaid             EventType = "loan_repaid"
	EventLoanDefaulted          EventType = "loan_defaulted"
	EventLoanClosed             EventType = "loan_closed"
	EventTemplateChanged        EventType = "template_changed"
)

// Event is one side-channel notification per committed state transition.
// Payload values are JSON-friendly (strings for big amounts).
type Event struct {
	Type          EventType
	ApplicationID uint64
	LoanID        uint64
	Caller        string
	Payload       map[string]any
	At            time.Time
}

// Recorder receives events after the operation's local state is committed.
// Implementations must not call back into the ledger.
type Recorder interface {
	Record(ctx context.Context, e Event)
}

// nopRecorder keeps emit unconditional.
type nopRecorder struct{}

func (nopRecorder) Record(context.Context, Event) {}

func (l *Ledger) emit(ctx context.Context, e Event) {
	e.At = l.now()
	l.events.Record(ctx, e)
}
