// Package pool defines the contract the ledger consumes from the liquidity
// pool collaborator. The pool owns liquidity totals; the ledger only informs
// it of deltas and asks it to settle losses.
package pool

import (
	"context"
	"math/big"
)

// LossSplit reports how a default loss was absorbed.
type LossSplit struct {
	ManagerLoss *big.Int
	LenderLoss  *big.Int
}

type Pool interface {
	// CanOffer reports whether the pool is willing to commit proposedTotal,
	// the would-be sum of all outstanding offer amounts.
	CanOffer(ctx context.Context, proposedTotal *big.Int) (bool, error)

	// OnOffer commits amount of pool liquidity to a fresh offer.
	OnOffer(ctx context.Context, amount *big.Int) error

	// OnOfferUpdate moves a commitment from prevAmount to newAmount.
	// Cancellation is an update to zero.
	OnOfferUpdate(ctx context.Context, prevAmount, newAmount *big.Int) error

	// OnBorrow releases the commitment into an outstanding loan.
	OnBorrow(ctx context.Context, loanID uint64, borrower string, amount *big.Int, apr uint64) error

	// OnRepay reports a settled repayment allocation.
	OnRepay(ctx context.Context, loanID uint64, borrower, payer string, apr uint64, transferAmount, paymentAmount, interestPayable *big.Int) error

	// OnDefault asks the pool to absorb loss, returning the manager/lender
	// split. carryUsed is the payment carry applied to principal first.
	OnDefault(ctx context.Context, loanID uint64, apr uint64, carryUsed, loss *big.Int) (LossSplit, error)

	// OnCloseLoan asks the pool to cover shortfall on the borrower's behalf
	// and returns the amount it actually repaid.
	OnCloseLoan(ctx context.Context, loanID uint64, apr uint64, carryUsed, shortfall *big.Int) (*big.Int, error)
}
