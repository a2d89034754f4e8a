// Package poolmock is a function-backed mock of the pool collaborator.
// Unset hooks accept everything, so tests only wire what they assert on.
package poolmock

import (
	"context"
	"math/big"

	"loandesk/internal/domain/pool"
)

type Pool struct {
	CanOfferFn      func(ctx context.Context, proposedTotal *big.Int) (bool, error)
	OnOfferFn       func(ctx context.Context, amount *big.Int) error
	OnOfferUpdateFn func(ctx context.Context, prevAmount, newAmount *big.Int) error
	OnBorrowFn      func(ctx context.Context, loanID uint64, borrower string, amount *big.Int, apr uint64) error
	OnRepayFn       func(ctx context.Context, loanID uint64, borrower, payer string, apr uint64, transferAmount, paymentAmount, interestPayable *big.Int) error
	OnDefaultFn     func(ctx context.Context, loanID uint64, apr uint64, carryUsed, loss *big.Int) (pool.LossSplit, error)
	OnCloseLoanFn   func(ctx context.Context, loanID uint64, apr uint64, carryUsed, shortfall *big.Int) (*big.Int, error)
}

func (m *Pool) CanOffer(ctx context.Context, proposedTotal *big.Int) (bool, error) {
	if m.CanOfferFn != nil {
		return m.CanOfferFn(ctx, proposedTotal)
	}
	return true, nil
}

func (m *Pool) OnOffer(ctx context.Context, amount *big.Int) error {
	if m.OnOfferFn != nil {
		return m.OnOfferFn(ctx, amount)
	}
	return nil
}

func (m *Pool) OnOfferUpdate(ctx context.Context, prevAmount, newAmount *big.Int) error {
	if m.OnOfferUpdateFn != nil {
		return m.OnOfferUpdateFn(ctx, prevAmount, newAmount)
	}
	return nil
}

func (m *Pool) OnBorrow(ctx context.Context, loanID uint64, borrower string, amount *big.Int, apr uint64) error {
	if m.OnBorrowFn != nil {
		return m.OnBorrowFn(ctx, loanID, borrower, amount, apr)
	}
	return nil
}

func (m *Pool) OnRepay(ctx context.Context, loanID uint64, borrower, payer string, apr uint64, transferAmount, paymentAmount, interestPayable *big.Int) error {
	if m.OnRepayFn != nil {
		return m.OnRepayFn(ctx, loanID, borrower, payer, apr, transferAmount, paymentAmount, interestPayable)
	}
	return nil
}

func (m *Pool) OnDefault(ctx context.Context, loanID uint64, apr uint64, carryUsed, loss *big.Int) (pool.LossSplit, error) {
	if m.OnDefaultFn != nil {
		return m.OnDefaultFn(ctx, loanID, apr, carryUsed, loss)
	}
	return pool.LossSplit{ManagerLoss: new(big.Int), LenderLoss: new(big.Int).Set(loss)}, nil
}

func (m *Pool) OnCloseLoan(ctx context.Context, loanID uint64, apr uint64, carryUsed, shortfall *big.Int) (*big.Int, error) {
	if m.OnCloseLoanFn != nil {
		return m.OnCloseLoanFn(ctx, loanID, apr, carryUsed, shortfall)
	}
	return new(big.Int).Set(shortfall), nil
}
