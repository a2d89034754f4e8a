package ledger

import (
	"errors"
	"testing"
	"time"

	"loandesk/internal/domain/lending"
	"loandesk/internal/testutil/poolmock"
)

func TestCountInterestDaysCeiling(t *testing.T) {
	cases := []struct {
		offset int64 // seconds after t0
		want   uint64
	}{
		{0, 0},
		{-1, 0},
		{1, 1},
		{86_399, 1},
		{86_400, 1},
		{86_401, 2},
		{10 * 86_400, 10},
	}
	for _, tc := range cases {
		got := countInterestDays(t0, t0.Add(time.Duration(tc.offset)*time.Second))
		if got != tc.want {
			t.Fatalf("countInterestDays(+%ds) = %d, want %d", tc.offset, got, tc.want)
		}
	}
}

func TestLoanBalanceDueAccrual(t *testing.T) {
	l, clk := newTestLedger(t, &poolmock.Pool{})
	loanID := originate(t, l, singleInstallmentTerms(1000, 30))

	// 1000 at 10% APR over 10 days: floor(1000 * 0.10 * 10/365) = 2
	clk.advanceDays(10)
	bal, err := l.LoanBalanceDue(loanID)
	if err != nil {
		t.Fatalf("LoanBalanceDue: %v", err)
	}
	bigEq(t, bal.Principal, 1000, "principal")
	bigEq(t, bal.Interest, 2, "interest")
	if bal.InterestDays != 10 {
		t.Fatalf("interest days = %d, want 10", bal.InterestDays)
	}
}

func TestLoanBalanceDueIsIdempotentRead(t *testing.T) {
	l, clk := newTestLedger(t, &poolmock.Pool{})
	loanID := originate(t, l, singleInstallmentTerms(1000, 30))
	clk.advanceDays(5)

	first, err := l.LoanBalanceDue(loanID)
	if err != nil {
		t.Fatalf("LoanBalanceDue: %v", err)
	}
	second, err := l.LoanBalanceDue(loanID)
	if err != nil {
		t.Fatalf("LoanBalanceDue: %v", err)
	}
	if first.Principal.Cmp(second.Principal) != 0 ||
		first.Interest.Cmp(second.Interest) != 0 ||
		first.InterestDays != second.InterestDays {
		t.Fatalf("repeated read diverged: %+v vs %+v", first, second)
	}
}

func TestLoanBalanceDuePartialDayCountsAsFull(t *testing.T) {
	l, clk := newTestLedger(t, &poolmock.Pool{})
	loanID := originate(t, l, singleInstallmentTerms(100_000, 30))

	clk.advanceSecs(1) // one second into the first day
	bal, err := l.LoanBalanceDue(loanID)
	if err != nil {
		t.Fatalf("LoanBalanceDue: %v", err)
	}
	if bal.InterestDays != 1 {
		t.Fatalf("interest days = %d, want 1", bal.InterestDays)
	}
	// floor(100000 * 0.10 * 1/365) = 27
	bigEq(t, bal.Interest, 27, "interest")
}

func TestLoanBalanceDueUnknownLoan(t *testing.T) {
	l, _ := newTestLedger(t, &poolmock.Pool{})
	if _, err := l.LoanBalanceDue(0); !errors.Is(err, lending.ErrNotFound) {
		t.Fatalf("zero id: got %v, want ErrNotFound", err)
	}
	if _, err := l.LoanBalanceDue(42); !errors.Is(err, lending.ErrNotFound) {
		t.Fatalf("unknown id: got %v, want ErrNotFound", err)
	}
}

func TestZeroAPRAccruesNoInterest(t *testing.T) {
	l, clk := newTestLedger(t, &poolmock.Pool{})
	terms := singleInstallmentTerms(1000, 30)
	terms.APR = 0
	loanID := originate(t, l, terms)

	clk.advanceDays(20)
	bal, err := l.LoanBalanceDue(loanID)
	if err != nil {
		t.Fatalf("LoanBalanceDue: %v", err)
	}
	bigEq(t, bal.Interest, 0, "interest")
	if bal.InterestDays != 20 {
		t.Fatalf("interest days = %d, want 20", bal.InterestDays)
	}
}
