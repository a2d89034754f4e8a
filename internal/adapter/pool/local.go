// Package pool provides the in-process liquidity pool backing the desk. It
// tracks lender funds, offer commitments and outstanding principal, and
// absorbs losses manager-reserve-first.
package pool

import (
	"context"
	"math/big"
	"sync"

	domain "loandesk/internal/domain/pool"
)

type Local struct {
	mu sync.Mutex

	// liquidity is the lender funds the pool can commit; managerReserve is
	// the first-loss buffer funded by the desk manager.
	liquidity      *big.Int
	managerReserve *big.Int

	allocated      *big.Int // outstanding offer commitments
	borrowed       *big.Int // principal currently out
	interestEarned *big.Int
}

func NewLocal(liquidity, managerReserve *big.Int) *Local {
	if liquidity == nil {
		liquidity = new(big.Int)
	}
	if managerReserve == nil {
		managerReserve = new(big.Int)
	}
	return &Local{
		liquidity:      new(big.Int).Set(liquidity),
		managerReserve: new(big.Int).Set(managerReserve),
		allocated:      new(big.Int),
		borrowed:       new(big.Int),
		interestEarned: new(big.Int),
	}
}

// CanOffer reports whether the proposed aggregate of offer commitments plus
// principal already out still fits the lender funds.
func (p *Local) CanOffer(_ context.Context, proposedTotal *big.Int) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if proposedTotal == nil {
		return false, nil
	}
	used := new(big.Int).Add(proposedTotal, p.borrowed)
	return used.Cmp(p.liquidity) <= 0, nil
}

func (p *Local) OnOffer(_ context.Context, amount *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allocated.Add(p.allocated, amount)
	return nil
}

func (p *Local) OnOfferUpdate(_ context.Context, prevAmount, newAmount *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allocated.Sub(p.allocated, prevAmount)
	p.allocated.Add(p.allocated, newAmount)
	if p.allocated.Sign() < 0 {
		p.allocated.SetInt64(0)
	}
	return nil
}

func (p *Local) OnBorrow(_ context.Context, _ uint64, _ string, amount *big.Int, _ uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allocated.Sub(p.allocated, amount)
	if p.allocated.Sign() < 0 {
		p.allocated.SetInt64(0)
	}
	p.borrowed.Add(p.borrowed, amount)
	return nil
}

func (p *Local) OnRepay(_ context.Context, _ uint64, _, _ string, _ uint64, _, paymentAmount, interestPayable *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	principal := new(big.Int).Sub(paymentAmount, interestPayable)
	if principal.Sign() > 0 {
		p.reduceBorrowed(principal)
	}
	p.interestEarned.Add(p.interestEarned, interestPayable)
	return nil
}

// OnDefault writes off the loss, manager reserve first, remainder against
// lender funds.
func (p *Local) OnDefault(_ context.Context, _ uint64, _ uint64, carryUsed, loss *big.Int) (domain.LossSplit, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reduceBorrowed(carryUsed)

	managerLoss := new(big.Int).Set(p.managerReserve)
	if managerLoss.Cmp(loss) > 0 {
		managerLoss.Set(loss)
	}
	lenderLoss := new(big.Int).Sub(loss, managerLoss)
	p.managerReserve.Sub(p.managerReserve, managerLoss)
	p.liquidity.Sub(p.liquidity, lenderLoss)
	if p.liquidity.Sign() < 0 {
		p.liquidity.SetInt64(0)
	}
	p.reduceBorrowed(loss)

	return domain.LossSplit{ManagerLoss: managerLoss, LenderLoss: lenderLoss}, nil
}

// OnCloseLoan settles the shortfall from the manager reserve on the
// borrower's behalf and reports how much it could cover.
func (p *Local) OnCloseLoan(_ context.Context, _ uint64, _ uint64, carryUsed, shortfall *big.Int) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reduceBorrowed(carryUsed)

	covered := new(big.Int).Set(p.managerReserve)
	if covered.Cmp(shortfall) > 0 {
		covered.Set(shortfall)
	}
	p.managerReserve.Sub(p.managerReserve, covered)
	p.reduceBorrowed(shortfall)

	return covered, nil
}

// reduceBorrowed clamps at zero; callers hold the mutex.
func (p *Local) reduceBorrowed(by *big.Int) {
	if by == nil || by.Sign() <= 0 {
		return
	}
	p.borrowed.Sub(p.borrowed, by)
	if p.borrowed.Sign() < 0 {
		p.borrowed.SetInt64(0)
	}
}

// ---- read surface, for stats and tests ----

func (p *Local) Liquidity() *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.liquidity)
}

func (p *Local) ManagerReserve() *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.managerReserve)
}

func (p *Local) Allocated() *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.allocated)
}

func (p *Local) Borrowed() *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.borrowed)
}

func (p *Local) InterestEarned() *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.interestEarned)
}
