package ledger

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"loandesk/internal/domain/lending"
	"loandesk/internal/domain/pool"
)

// CanDefault reports whether an outstanding loan is past its tolerance for
// delinquency. Pure predicate.
func (l *Ledger) CanDefault(loanID uint64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	loan, err := l.loanInStatus(loanID, lending.LoanOutstanding)
	if err != nil {
		return false, err
	}
	return defaultAllowed(loan, l.details[loanID], l.now()), nil
}

// defaultAllowed applies the installment schedule tolerance. Multi-installment
// loans get a fixed 20% band on the minimum expected total payment; loans with
// a zero installment amount fall back to the single-installment due time.
func defaultAllowed(loan *lending.Loan, detail *lending.LoanDetail, now time.Time) bool {
	var dueAt time.Time
	if loan.Installments > 1 && loan.InstallmentAmount.Sign() != 0 {
		installmentPeriod := loan.Duration / int64(loan.Installments)
		pastInstallments := (now.Unix() - loan.BorrowedAt.Unix()) / installmentPeriod
		if pastInstallments < 0 {
			pastInstallments = 0
		}

		minTotal := new(big.Int).Mul(loan.InstallmentAmount, big.NewInt(pastInstallments))
		minTotal = mulDiv(minTotal,
			new(big.Int).SetUint64(10_000-toleranceBps), oneHundredPercent)
		totalRepaid := new(big.Int).Add(detail.PrincipalAmountRepaid, detail.InterestPaid)
		if totalRepaid.Cmp(minTotal) >= 0 {
			return false
		}

		// due time of the first installment the repaid total does not cover
		covered := new(big.Int).Quo(totalRepaid, loan.InstallmentAmount)
		dueAt = loan.BorrowedAt.Add(time.Duration(installmentPeriod*(covered.Int64()+1)) * time.Second)
	} else {
		dueAt = loan.BorrowedAt.Add(time.Duration(loan.Duration) * time.Second)
	}
	return now.After(dueAt.Add(time.Duration(loan.GracePeriod) * time.Second))
}

// DefaultLoan moves a delinquent loan to its defaulted terminal state and
// asks the pool to absorb the loss. Manager only.
func (l *Ledger) DefaultLoan(ctx context.Context, caller string, loanID uint64) (pool.LossSplit, error) {
	if err := l.requireManager(caller); err != nil {
		return pool.LossSplit{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	loan, err := l.loanInStatus(loanID, lending.LoanOutstanding)
	if err != nil {
		return pool.LossSplit{}, err
	}
	detail := l.details[loanID]
	if !defaultAllowed(loan, detail, l.now()) {
		return pool.LossSplit{}, fmt.Errorf("loan %d not past its tolerance band: %w", loanID, lending.ErrInvalidStatus)
	}

	prevDetail := detail.Clone()
	carryUsed := applyCarryToPrincipal(loan, detail)
	loss := new(big.Int).Sub(loan.Amount, detail.PrincipalAmountRepaid)
	if loss.Sign() < 0 {
		loss.SetInt64(0)
	}
	loan.Status = lending.LoanDefaulted

	split, err := l.pool.OnDefault(ctx, loanID, loan.APR, carryUsed, loss)
	if err != nil {
		l.details[loanID] = prevDetail
		loan.Status = lending.LoanOutstanding
		return pool.LossSplit{}, fmt.Errorf("pool default notification: %w", err)
	}

	out := split
	if out.ManagerLoss == nil {
		out.ManagerLoss = zero()
	}
	if out.LenderLoss == nil {
		out.LenderLoss = zero()
	}
	l.emit(ctx, Event{
		Type:   EventLoanDefaulted,
		LoanID: loanID,
		Caller: caller,
		Payload: map[string]any{
			"loss":         loss.String(),
			"carry_used":   carryUsed.String(),
			"manager_loss": out.ManagerLoss.String(),
			"lender_loss":  out.LenderLoss.String(),
		},
	})
	return out, nil
}

// CloseResult reports what a closure settlement realized.
type CloseResult struct {
	AmountRepaid        *big.Int
	RemainingDifference *big.Int
}

// CloseLoan forces an outstanding loan to its repaid terminal state,
// independent of default status. Carry is applied to principal first, then
// the pool is asked to cover the shortfall on the borrower's behalf. The
// realized repaid amount is only known after the pool call returns, so the
// repaid totals fold in post-call; a pool error still rolls back every local
// effect including the status flip.
func (l *Ledger) CloseLoan(ctx context.Context, caller string, loanID uint64) (CloseResult, error) {
	if err := l.requireManager(caller); err != nil {
		return CloseResult{}, err
	}
	if err := l.guardEnter("close loan"); err != nil {
		return CloseResult{}, err
	}
	defer l.guardExit()
	l.mu.Lock()
	defer l.mu.Unlock()

	loan, err := l.loanInStatus(loanID, lending.LoanOutstanding)
	if err != nil {
		return CloseResult{}, err
	}
	detail := l.details[loanID]

	prevDetail := detail.Clone()
	carryUsed := applyCarryToPrincipal(loan, detail)
	shortfall := new(big.Int).Sub(loan.Amount, detail.PrincipalAmountRepaid)
	if shortfall.Sign() < 0 {
		shortfall.SetInt64(0)
	}
	loan.Status = lending.LoanRepaid

	amountRepaid, err := l.pool.OnCloseLoan(ctx, loanID, loan.APR, carryUsed, shortfall)
	if err != nil {
		l.details[loanID] = prevDetail
		loan.Status = lending.LoanOutstanding
		return CloseResult{}, fmt.Errorf("pool close notification: %w", err)
	}
	if amountRepaid == nil {
		amountRepaid = zero()
	}
	detail.TotalAmountRepaid.Add(detail.TotalAmountRepaid, amountRepaid)
	detail.PrincipalAmountRepaid.Add(detail.PrincipalAmountRepaid, amountRepaid)

	remaining := new(big.Int).Sub(loan.Amount, detail.PrincipalAmountRepaid)
	if remaining.Sign() < 0 {
		remaining.SetInt64(0)
	}
	res := CloseResult{
		AmountRepaid:        new(big.Int).Set(amountRepaid),
		RemainingDifference: remaining,
	}
	l.emit(ctx, Event{
		Type:   EventLoanClosed,
		LoanID: loanID,
		Caller: caller,
		Payload: map[string]any{
			"amount_repaid":        res.AmountRepaid.String(),
			"remaining_difference": res.RemainingDifference.String(),
			"carry_used":           carryUsed.String(),
		},
	})
	return res, nil
}

// applyCarryToPrincipal folds any payment carry into repaid principal, capped
// at the outstanding principal, and returns the amount used.
func applyCarryToPrincipal(loan *lending.Loan, detail *lending.LoanDetail) *big.Int {
	if detail.PaymentCarry.Sign() == 0 {
		return zero()
	}
	outstanding := new(big.Int).Sub(loan.Amount, detail.PrincipalAmountRepaid)
	if outstanding.Sign() <= 0 {
		return zero()
	}
	used := minBig(detail.PaymentCarry, outstanding)
	detail.PrincipalAmountRepaid.Add(detail.PrincipalAmountRepaid, used)
	detail.PaymentCarry.Sub(detail.PaymentCarry, used)
	return used
}
