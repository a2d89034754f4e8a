package lending

import (
	"math/big"
	"time"
)

type ApplicationStatus string

const (
	StatusApplied        ApplicationStatus = "applied"
	StatusDenied         ApplicationStatus = "denied"
	StatusOfferMade      ApplicationStatus = "offer_made"
	StatusOfferCancelled ApplicationStatus = "offer_cancelled"
	StatusOfferAccepted  ApplicationStatus = "offer_accepted"
)

type LoanStatus string

const (
	LoanOutstanding LoanStatus = "outstanding"
	LoanRepaid      LoanStatus = "repaid"
	LoanDefaulted   LoanStatus = "defaulted"
)

// Template holds the bounds and default terms the desk applies to new loans.
// Amounts are token units, durations whole seconds, APR basis points.
type Template struct {
	MinAmount   *big.Int
	MinDuration int64
	MaxDuration int64
	GracePeriod int64
	APR         uint64
}

func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	c := *t
	c.MinAmount = new(big.Int).Set(t.MinAmount)
	return &c
}

// Application is a borrower's request for a loan. At most one application per
// borrower may sit in {applied, offer_made} at a time.
type Application struct {
	ID            uint64
	Borrower      string
	Amount        *big.Int
	Duration      int64
	RequestedAt   time.Time
	Status        ApplicationStatus
	ProfileID     string
	ProfileDigest string
}

func (a *Application) Clone() *Application {
	if a == nil {
		return nil
	}
	c := *a
	c.Amount = new(big.Int).Set(a.Amount)
	return &c
}

// Offer is the manager's terms against an application, keyed by application id.
// It exists only while the application is in offer_made.
type Offer struct {
	ApplicationID     uint64
	Borrower          string
	Amount            *big.Int
	Duration          int64
	GracePeriod       int64
	InstallmentAmount *big.Int
	Installments      uint64
	APR               uint64
	OfferedAt         time.Time
}

func (o *Offer) Clone() *Offer {
	if o == nil {
		return nil
	}
	c := *o
	c.Amount = new(big.Int).Set(o.Amount)
	c.InstallmentAmount = new(big.Int).Set(o.InstallmentAmount)
	return &c
}

// Loan is created exactly once per accepted offer. Immutable except Status.
type Loan struct {
	ID                uint64
	ApplicationID     uint64
	Borrower          string
	Amount            *big.Int
	Duration          int64
	GracePeriod       int64
	InstallmentAmount *big.Int
	Installments      uint64
	APR               uint64
	BorrowedAt        time.Time
	Status            LoanStatus
}

func (l *Loan) Clone() *Loan {
	if l == nil {
		return nil
	}
	c := *l
	c.Amount = new(big.Int).Set(l.Amount)
	c.InstallmentAmount = new(big.Int).Set(l.InstallmentAmount)
	return &c
}

// LoanDetail tracks the running repayment accounting of a loan. PaymentCarry
// holds the unsigned rounding residue from prior payments; directional
// add/subtract keeps it non-negative.
type LoanDetail struct {
	LoanID                uint64
	TotalAmountRepaid     *big.Int
	PrincipalAmountRepaid *big.Int
	InterestPaid          *big.Int
	PaymentCarry          *big.Int
	InterestPaidTill      time.Time
	LastPaymentAt         time.Time
}

func (d *LoanDetail) Clone() *LoanDetail {
	if d == nil {
		return nil
	}
	c := *d
	c.TotalAmountRepaid = new(big.Int).Set(d.TotalAmountRepaid)
	c.PrincipalAmountRepaid = new(big.Int).Set(d.PrincipalAmountRepaid)
	c.InterestPaid = new(big.Int).Set(d.InterestPaid)
	c.PaymentCarry = new(big.Int).Set(d.PaymentCarry)
	return &c
}

// Balance is the point-in-time answer of the accrual engine.
type Balance struct {
	Principal    *big.Int
	Interest     *big.Int
	InterestDays uint64
}

// Total is principal plus interest outstanding.
func (b Balance) Total() *big.Int {
	return new(big.Int).Add(b.Principal, b.Interest)
}
