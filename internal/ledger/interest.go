package ledger

import (
	"fmt"
	"math/big"
	"time"

	"loandesk/internal/domain/lending"
)

// countInterestDays counts accrual days from `from` to `to` with a ceiling:
// any started day is a full day. Zero when `to` is not after `from`.
func countInterestDays(from, to time.Time) uint64 {
	if !to.After(from) {
		return 0
	}
	secs := to.Unix() - from.Unix()
	days := uint64(secs / daySeconds)
	if secs%daySeconds > 0 {
		days++
	}
	return days
}

// balanceAt computes the outstanding principal and interest of a loan at a
// query time. Pure read, no state mutation.
func balanceAt(loan *lending.Loan, detail *lending.LoanDetail, at time.Time) lending.Balance {
	principal := new(big.Int).Sub(loan.Amount, detail.PrincipalAmountRepaid)
	if principal.Sign() < 0 {
		principal.SetInt64(0)
	}
	days := countInterestDays(detail.InterestPaidTill, at)
	if days == 0 || principal.Sign() == 0 {
		return lending.Balance{Principal: principal, Interest: zero(), InterestDays: days}
	}

	// interestPercent = APR * days / 365, held at 1e18 scale through the
	// multiply-divide so the final truncation is the only precision loss.
	scaledAPR := new(big.Int).Mul(new(big.Int).SetUint64(loan.APR), percentScale)
	interestPercent := mulDiv(scaledAPR, new(big.Int).SetUint64(days), big.NewInt(yearDays))
	interest := mulDiv(principal, interestPercent, percentDenom)

	return lending.Balance{Principal: principal, Interest: interest, InterestDays: days}
}

// LoanBalanceDue reports the loan's outstanding principal, accrued interest
// and accrued interest days at the current time.
func (l *Ledger) LoanBalanceDue(loanID uint64) (lending.Balance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	loan, ok := l.loans[loanID]
	if loanID == 0 || !ok {
		return lending.Balance{}, fmt.Errorf("loan %d: %w", loanID, lending.ErrNotFound)
	}
	return balanceAt(loan, l.details[loanID], l.now()), nil
}
