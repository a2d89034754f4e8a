package ledger

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"loandesk/internal/domain/lending"
)

// Repay applies up to maxPayment against the caller's own loan.
func (l *Ledger) Repay(ctx context.Context, caller string, loanID uint64, maxPayment *big.Int) error {
	return l.repay(ctx, caller, loanID, maxPayment, caller)
}

// RepayOnBehalf applies up to maxPayment against borrower's loan, with the
// caller as payer. The borrower on the loan is the one credited.
func (l *Ledger) RepayOnBehalf(ctx context.Context, caller string, loanID uint64, maxPayment *big.Int, borrower string) error {
	return l.repay(ctx, caller, loanID, maxPayment, borrower)
}

// repay splits an incoming payment into interest and principal. The whole
// sequence is one indivisible unit; local state is fully settled before the
// pool is notified.
func (l *Ledger) repay(ctx context.Context, payer string, loanID uint64, maxPayment *big.Int, borrower string) error {
	if err := l.requireUser(payer); err != nil {
		return err
	}
	if maxPayment == nil || maxPayment.Sign() <= 0 {
		return fmt.Errorf("payment amount: %w", lending.ErrOutOfBounds)
	}
	if err := l.guardEnter("repay"); err != nil {
		return err
	}
	defer l.guardExit()
	l.mu.Lock()
	defer l.mu.Unlock()

	loan, err := l.loanInStatus(loanID, lending.LoanOutstanding)
	if err != nil {
		return err
	}
	if loan.Borrower != borrower {
		return fmt.Errorf("loan %d does not belong to %q: %w", loanID, borrower, lending.ErrUnauthorized)
	}

	detail := l.details[loanID]
	now := l.now()
	alloc := allocatePayment(balanceAt(loan, detail, now), detail.PaymentCarry, maxPayment)

	prevDetail := detail.Clone()
	prevStatus := loan.Status

	detail.TotalAmountRepaid.Add(detail.TotalAmountRepaid, alloc.Transfer)
	detail.PrincipalAmountRepaid.Add(detail.PrincipalAmountRepaid, alloc.Principal)
	detail.LastPaymentAt = now
	detail.InterestPaidTill = detail.InterestPaidTill.Add(time.Duration(alloc.PayableDays) * daySeconds * time.Second)
	detail.PaymentCarry = alloc.NewCarry
	if alloc.Interest.Sign() != 0 {
		detail.InterestPaid.Add(detail.InterestPaid, alloc.Interest)
	}
	repaidInFull := detail.PrincipalAmountRepaid.Cmp(loan.Amount) >= 0
	if repaidInFull {
		loan.Status = lending.LoanRepaid
	}

	if err := l.pool.OnRepay(ctx, loanID, loan.Borrower, payer, loan.APR, alloc.Transfer, alloc.Payment, alloc.Interest); err != nil {
		l.details[loanID] = prevDetail
		loan.Status = prevStatus
		return fmt.Errorf("pool repay notification: %w", err)
	}

	l.emit(ctx, Event{
		Type:   EventLoanRepaymentInitiated,
		LoanID: loanID,
		Caller: payer,
		Payload: map[string]any{
			"transfer_amount":  alloc.Transfer.String(),
			"payment_amount":   alloc.Payment.String(),
			"interest_payable": alloc.Interest.String(),
		},
	})
	if repaidInFull {
		l.emit(ctx, Event{Type: EventLoanRepaid, LoanID: loanID, Caller: payer})
	}
	return nil
}

// allocation is the settled split of one payment.
type allocation struct {
	Transfer    *big.Int // tokens actually moved
	Payment     *big.Int // amount allocated, including replayed carry
	Interest    *big.Int
	Principal   *big.Int
	PayableDays uint64
	NewCarry    *big.Int
}

// allocatePayment decides how a payment bounded by maxPayment splits into
// interest and principal given the current balance and carry credit.
//
// When the payment cannot cover a full day of outstanding interest, the
// allocation is clamped to whole-day interest only: no principal credit is
// given, which blocks the small-payment exploit where sub-day drips would
// erode the daily-interest test.
func allocatePayment(bal lending.Balance, carry, maxPayment *big.Int) allocation {
	balanceDue := new(big.Int).Add(bal.Principal, bal.Interest)
	balanceDue.Sub(balanceDue, carry)
	if balanceDue.Sign() < 0 {
		balanceDue.SetInt64(0)
	}

	transfer := minBig(balanceDue, maxPayment)
	payment := new(big.Int).Add(transfer, carry)

	var (
		payableDays = bal.InterestDays
		interest    = new(big.Int).Set(bal.Interest)
	)
	if payment.Cmp(bal.Interest) < 0 {
		days := new(big.Int).SetUint64(bal.InterestDays)
		payableDays = mulDiv(payment, days, bal.Interest).Uint64()
		interest = mulDiv(bal.Interest, new(big.Int).SetUint64(payableDays), days)
		if payableDays < bal.InterestDays {
			payment = new(big.Int).Set(interest)
		}
	}

	principal := new(big.Int).Sub(payment, interest)
	newCarry := new(big.Int).Add(carry, transfer)
	newCarry.Sub(newCarry, payment)

	return allocation{
		Transfer:    transfer,
		Payment:     payment,
		Interest:    interest,
		Principal:   principal,
		PayableDays: payableDays,
		NewCarry:    newCarry,
	}
}
