package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"loandesk/internal/domain/lending"
	"loandesk/internal/domain/pool"
	"loandesk/internal/testutil/accessmock"
	"loandesk/internal/testutil/poolmock"
)

func TestCanDefaultSingleInstallment(t *testing.T) {
	l, clk := newTestLedger(t, &poolmock.Pool{})
	// 30 day loan with a 7 day grace period, never repaid
	loanID := originate(t, l, singleInstallmentTerms(1000, 30))

	clk.advance(37 * 24 * time.Hour) // exactly due + grace
	ok, err := l.CanDefault(loanID)
	if err != nil {
		t.Fatalf("CanDefault: %v", err)
	}
	if ok {
		t.Fatal("defaultable at exactly due+grace; want not yet")
	}

	clk.advance(time.Second)
	ok, err = l.CanDefault(loanID)
	if err != nil {
		t.Fatalf("CanDefault: %v", err)
	}
	if !ok {
		t.Fatal("not defaultable one second past due+grace")
	}
}

func TestCanDefaultRequiresOutstandingLoan(t *testing.T) {
	l, clk := newTestLedger(t, &poolmock.Pool{})
	loanID := originate(t, l, singleInstallmentTerms(1000, 30))
	clk.advanceDays(1)
	if err := l.Repay(context.Background(), accessmock.Borrower, loanID, big.NewInt(5000)); err != nil {
		t.Fatalf("Repay: %v", err)
	}
	if _, err := l.CanDefault(loanID); !errors.Is(err, lending.ErrInvalidStatus) {
		t.Fatalf("repaid loan: got %v", err)
	}
	if _, err := l.CanDefault(123); !errors.Is(err, lending.ErrNotFound) {
		t.Fatalf("unknown loan: got %v", err)
	}
}

func multiInstallmentTerms() OfferTerms {
	// 1200 over 120 days in 4 installments of 330
	return OfferTerms{
		Amount:            big.NewInt(1200),
		Duration:          120 * daySeconds,
		GracePeriod:       7 * daySeconds,
		InstallmentAmount: big.NewInt(330),
		Installments:      4,
		APR:               1_000,
	}
}

func TestCanDefaultInstallmentToleranceBand(t *testing.T) {
	l, clk := newTestLedger(t, &poolmock.Pool{})
	loanID := originate(t, l, multiInstallmentTerms())
	ctx := context.Background()

	// two installment periods pass: minimum expected = 330*2 minus the 20%
	// band = 528. Repay just past the band and default must not be allowed
	// even long after the due dates.
	clk.advanceDays(61)
	if err := l.Repay(ctx, accessmock.Borrower, loanID, big.NewInt(550)); err != nil {
		t.Fatalf("Repay: %v", err)
	}
	clk.advanceDays(6) // now at day 67, past second due (60) + grace (7)... but band holds
	ok, err := l.CanDefault(loanID)
	if err != nil {
		t.Fatalf("CanDefault: %v", err)
	}
	if ok {
		t.Fatal("tolerance band ignored")
	}
}

func TestCanDefaultInstallmentScheduleLapse(t *testing.T) {
	l, clk := newTestLedger(t, &poolmock.Pool{})
	loanID := originate(t, l, multiInstallmentTerms())

	// nothing repaid; first installment due at day 30. The band on one past
	// installment is 264 > 0 repaid, so default opens at day 30 + grace 7.
	clk.advance(37 * 24 * time.Hour)
	if ok, _ := l.CanDefault(loanID); ok {
		t.Fatal("defaultable at exactly first due + grace")
	}
	clk.advance(time.Second)
	if ok, _ := l.CanDefault(loanID); !ok {
		t.Fatal("not defaultable past first due + grace")
	}
}

func TestCanDefaultCountsCoveredInstallments(t *testing.T) {
	l, clk := newTestLedger(t, &poolmock.Pool{})
	loanID := originate(t, l, multiInstallmentTerms())
	ctx := context.Background()

	// cover exactly one installment's worth; next unmet is the second,
	// due at day 60
	clk.advanceDays(29)
	if err := l.Repay(ctx, accessmock.Borrower, loanID, big.NewInt(330)); err != nil {
		t.Fatalf("Repay: %v", err)
	}

	// day 68: past second due (60) + grace (7) + 1 day; repaid total 330 is
	// under the band minimum for two installments (528)
	clk.advanceDays(39)
	if ok, _ := l.CanDefault(loanID); !ok {
		t.Fatal("not defaultable past second installment due + grace")
	}
}

func TestDefaultLoan(t *testing.T) {
	var gotLoss, gotCarry *big.Int
	p := &poolmock.Pool{
		OnDefaultFn: func(ctx context.Context, loanID uint64, apr uint64, carryUsed, loss *big.Int) (pool.LossSplit, error) {
			gotCarry = new(big.Int).Set(carryUsed)
			gotLoss = new(big.Int).Set(loss)
			return pool.LossSplit{ManagerLoss: big.NewInt(100), LenderLoss: new(big.Int).Sub(loss, big.NewInt(100))}, nil
		},
	}
	l, clk := newTestLedger(t, p)
	loanID := originate(t, l, singleInstallmentTerms(1000, 30))
	ctx := context.Background()

	if _, err := l.DefaultLoan(ctx, accessmock.Borrower, loanID); !errors.Is(err, lending.ErrUnauthorized) {
		t.Fatalf("non-manager default: got %v", err)
	}
	if _, err := l.DefaultLoan(ctx, accessmock.Manager, loanID); !errors.Is(err, lending.ErrInvalidStatus) {
		t.Fatalf("default before tolerance lapse: got %v", err)
	}

	clk.advance(37*24*time.Hour + time.Second)
	split, err := l.DefaultLoan(ctx, accessmock.Manager, loanID)
	if err != nil {
		t.Fatalf("DefaultLoan: %v", err)
	}
	bigEq(t, gotLoss, 1000, "loss")
	bigEq(t, gotCarry, 0, "carry used")
	bigEq(t, split.ManagerLoss, 100, "manager loss")
	bigEq(t, split.LenderLoss, 900, "lender loss")
	if got := mustLoan(t, l, loanID).Status; got != lending.LoanDefaulted {
		t.Fatalf("status = %s, want defaulted", got)
	}
}

func TestDefaultLoanRollsBackWhenPoolFails(t *testing.T) {
	p := &poolmock.Pool{
		OnDefaultFn: func(ctx context.Context, loanID uint64, apr uint64, carryUsed, loss *big.Int) (pool.LossSplit, error) {
			return pool.LossSplit{}, fmt.Errorf("pool down")
		},
	}
	l, clk := newTestLedger(t, p)
	loanID := originate(t, l, singleInstallmentTerms(1000, 30))
	clk.advance(38 * 24 * time.Hour)

	if _, err := l.DefaultLoan(context.Background(), accessmock.Manager, loanID); err == nil {
		t.Fatal("want error")
	}
	if got := mustLoan(t, l, loanID).Status; got != lending.LoanOutstanding {
		t.Fatalf("status = %s, want outstanding after rollback", got)
	}
}

func TestCloseLoanWithPoolCoveringShortfall(t *testing.T) {
	l, clk := newTestLedger(t, &poolmock.Pool{}) // default mock repays the full shortfall
	loanID := originate(t, l, singleInstallmentTerms(1000, 30))
	ctx := context.Background()

	clk.advanceDays(10)
	if err := l.Repay(ctx, accessmock.Borrower, loanID, big.NewInt(402)); err != nil {
		t.Fatalf("Repay: %v", err)
	}

	res, err := l.CloseLoan(ctx, accessmock.Manager, loanID)
	if err != nil {
		t.Fatalf("CloseLoan: %v", err)
	}
	bigEq(t, res.AmountRepaid, 600, "amount repaid by pool")
	bigEq(t, res.RemainingDifference, 0, "remaining difference")
	loan := mustLoan(t, l, loanID)
	if loan.Status != lending.LoanRepaid {
		t.Fatalf("status = %s, want repaid", loan.Status)
	}
	d := mustDetail(t, l, loanID)
	bigEq(t, d.PrincipalAmountRepaid, 1000, "principal repaid")
}

func TestCloseLoanWithNoPoolRecovery(t *testing.T) {
	p := &poolmock.Pool{
		OnCloseLoanFn: func(ctx context.Context, loanID uint64, apr uint64, carryUsed, shortfall *big.Int) (*big.Int, error) {
			return big.NewInt(0), nil
		},
	}
	l, clk := newTestLedger(t, p)
	loanID := originate(t, l, singleInstallmentTerms(1000, 30))
	ctx := context.Background()

	clk.advanceDays(10)
	if err := l.Repay(ctx, accessmock.Borrower, loanID, big.NewInt(402)); err != nil {
		t.Fatalf("Repay: %v", err)
	}

	res, err := l.CloseLoan(ctx, accessmock.Manager, loanID)
	if err != nil {
		t.Fatalf("CloseLoan: %v", err)
	}
	// 400 of principal settled before closure; the unrecovered difference
	// stays at 600
	bigEq(t, res.AmountRepaid, 0, "amount repaid by pool")
	bigEq(t, res.RemainingDifference, 600, "remaining difference")
	if got := mustLoan(t, l, loanID).Status; got != lending.LoanRepaid {
		t.Fatalf("status = %s, want repaid regardless of recovery", got)
	}
}

func TestCloseLoanAppliesCarryFirst(t *testing.T) {
	var gotCarry, gotShortfall *big.Int
	p := &poolmock.Pool{
		OnCloseLoanFn: func(ctx context.Context, loanID uint64, apr uint64, carryUsed, shortfall *big.Int) (*big.Int, error) {
			gotCarry = new(big.Int).Set(carryUsed)
			gotShortfall = new(big.Int).Set(shortfall)
			return big.NewInt(0), nil
		},
	}
	l, clk := newTestLedger(t, p)
	loanID := originate(t, l, singleInstallmentTerms(100_000, 30))
	ctx := context.Background()

	// sub-day payment parks 10 in carry
	clk.advanceDays(1)
	if err := l.Repay(ctx, accessmock.Borrower, loanID, big.NewInt(10)); err != nil {
		t.Fatalf("Repay: %v", err)
	}

	if _, err := l.CloseLoan(ctx, accessmock.Manager, loanID); err != nil {
		t.Fatalf("CloseLoan: %v", err)
	}
	bigEq(t, gotCarry, 10, "carry used")
	bigEq(t, gotShortfall, 99_990, "shortfall after carry")
	d := mustDetail(t, l, loanID)
	bigEq(t, d.PaymentCarry, 0, "carry drained")
}

func TestCloseLoanRollsBackWhenPoolFails(t *testing.T) {
	p := &poolmock.Pool{
		OnCloseLoanFn: func(ctx context.Context, loanID uint64, apr uint64, carryUsed, shortfall *big.Int) (*big.Int, error) {
			return nil, fmt.Errorf("pool down")
		},
	}
	l, _ := newTestLedger(t, p)
	loanID := originate(t, l, singleInstallmentTerms(1000, 30))

	if _, err := l.CloseLoan(context.Background(), accessmock.Manager, loanID); err == nil {
		t.Fatal("want error")
	}
	if got := mustLoan(t, l, loanID).Status; got != lending.LoanOutstanding {
		t.Fatalf("status = %s, want outstanding after rollback", got)
	}
	d := mustDetail(t, l, loanID)
	bigEq(t, d.TotalAmountRepaid, 0, "total repaid after rollback")
}

func TestCloseLoanRejectsReentrantCall(t *testing.T) {
	var (
		inner error
		l     *Ledger
	)
	p := &poolmock.Pool{
		OnCloseLoanFn: func(ctx context.Context, loanID uint64, apr uint64, carryUsed, shortfall *big.Int) (*big.Int, error) {
			_, inner = l.CloseLoan(ctx, accessmock.Manager, loanID)
			return big.NewInt(0), nil
		},
	}
	l, _ = newTestLedger(t, p)
	loanID := originate(t, l, singleInstallmentTerms(1000, 30))

	if _, err := l.CloseLoan(context.Background(), accessmock.Manager, loanID); err != nil {
		t.Fatalf("outer CloseLoan: %v", err)
	}
	if !errors.Is(inner, lending.ErrReentrancy) {
		t.Fatalf("inner call: got %v, want ErrReentrancy", inner)
	}
}
