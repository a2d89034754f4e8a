package ledger

import (
	"context"
	"math/big"
	"testing"
	"time"

	"loandesk/internal/domain/lending"
	"loandesk/internal/testutil/accessmock"
	"loandesk/internal/testutil/poolmock"
)

// fixed origin so accrual math is deterministic
var t0 = time.Unix(1_700_000_000, 0).UTC()

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time           { return c.t }
func (c *fakeClock) advance(d time.Duration)  { c.t = c.t.Add(d) }
func (c *fakeClock) advanceDays(days int64)   { c.advance(time.Duration(days) * 24 * time.Hour) }
func (c *fakeClock) advanceSecs(secs int64)   { c.advance(time.Duration(secs) * time.Second) }

func newTestLedger(t *testing.T, p *poolmock.Pool) (*Ledger, *fakeClock) {
	t.Helper()
	clk := &fakeClock{t: t0}
	tmpl := &lending.Template{
		MinAmount:   big.NewInt(100),
		MinDuration: daySeconds,
		MaxDuration: 2 * 365 * daySeconds,
		GracePeriod: 7 * daySeconds,
		APR:         1_000, // 10%
	}
	l, err := New(tmpl, p, accessmock.Roles(), WithClock(clk.now))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l, clk
}

func singleInstallmentTerms(amount int64, durationDays int64) OfferTerms {
	return OfferTerms{
		Amount:            big.NewInt(amount),
		Duration:          durationDays * daySeconds,
		GracePeriod:       7 * daySeconds,
		InstallmentAmount: big.NewInt(0),
		Installments:      1,
		APR:               1_000,
	}
}

// originate walks request -> offer -> borrow and returns the loan id.
func originate(t *testing.T, l *Ledger, terms OfferTerms) uint64 {
	t.Helper()
	ctx := context.Background()
	appID, err := l.RequestLoan(ctx, accessmock.Borrower, terms.Amount, terms.Duration, "profile-1", "digest-1")
	if err != nil {
		t.Fatalf("RequestLoan: %v", err)
	}
	if err := l.OfferLoan(ctx, accessmock.Manager, appID, terms); err != nil {
		t.Fatalf("OfferLoan: %v", err)
	}
	loanID, err := l.Borrow(ctx, accessmock.Borrower, appID)
	if err != nil {
		t.Fatalf("Borrow: %v", err)
	}
	return loanID
}

func mustDetail(t *testing.T, l *Ledger, loanID uint64) *lending.LoanDetail {
	t.Helper()
	d, err := l.LoanDetailByID(loanID)
	if err != nil {
		t.Fatalf("LoanDetailByID: %v", err)
	}
	return d
}

func mustLoan(t *testing.T, l *Ledger, loanID uint64) *lending.Loan {
	t.Helper()
	loan, err := l.LoanByID(loanID)
	if err != nil {
		t.Fatalf("LoanByID: %v", err)
	}
	return loan
}

func bigEq(t *testing.T, got *big.Int, want int64, label string) {
	t.Helper()
	if got.Cmp(big.NewInt(want)) != 0 {
		t.Fatalf("%s = %s, want %d", label, got, want)
	}
}
