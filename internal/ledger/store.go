// Package ledger is the loan origination and amortization core: the
// application/offer/loan state machine, daily-compounding accrual, repayment
// allocation, default evaluation and closure settlement. It exclusively owns
// every record and counter below; the pool collaborator owns liquidity totals
// and is only informed of deltas.
package ledger

import (
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"loandesk/internal/domain/access"
	"loandesk/internal/domain/lending"
	"loandesk/internal/domain/pool"
)

// Ledger is an arena of records keyed by monotonically increasing ids. One
// operation fully completes (or fails with no partial effect) before the
// next begins; the mutex enforces that, the busy flag rejects re-entry into
// repay/closeLoan while their external call is outstanding.
type Ledger struct {
	mu   sync.Mutex
	busy atomic.Bool

	template *lending.Template
	closed   bool

	apps        map[uint64]*lending.Application
	offers      map[uint64]*lending.Offer
	loans       map[uint64]*lending.Loan
	details     map[uint64]*lending.LoanDetail
	recentAppID map[string]uint64 // borrower -> most recent application id
	loanByApp   map[uint64]uint64

	nextAppID  uint64
	nextLoanID uint64

	// offeredFunds == sum of offer.Amount over applications in offer_made.
	// Every mutation is paired with a pool notification.
	offeredFunds *big.Int

	pool   pool.Pool
	roles  access.Control
	events Recorder
	now    func() time.Time
}

type Option func(*Ledger)

// WithClock injects the time source, for deterministic accrual in tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithRecorder wires the event side channel.
func WithRecorder(r Recorder) Option {
	return func(l *Ledger) { l.events = r }
}

func New(tmpl *lending.Template, p pool.Pool, roles access.Control, opts ...Option) (*Ledger, error) {
	if p == nil || roles == nil {
		return nil, fmt.Errorf("ledger: pool and access control are required")
	}
	if tmpl == nil {
		tmpl = DefaultTemplate()
	}
	if err := checkTemplate(tmpl); err != nil {
		return nil, err
	}
	l := &Ledger{
		template:     tmpl.Clone(),
		apps:         make(map[uint64]*lending.Application),
		offers:       make(map[uint64]*lending.Offer),
		loans:        make(map[uint64]*lending.Loan),
		details:      make(map[uint64]*lending.LoanDetail),
		recentAppID:  make(map[string]uint64),
		loanByApp:    make(map[uint64]uint64),
		nextAppID:    1,
		nextLoanID:   1,
		offeredFunds: zero(),
		pool:         p,
		roles:        roles,
		events:       nopRecorder{},
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Close gates the desk against new operations. Governance only.
func (l *Ledger) Close(caller string) error {
	if !l.roles.IsGovernance(caller) {
		return fmt.Errorf("close desk: %w", lending.ErrUnauthorized)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// ---- read surface ----

func (l *Ledger) ApplicationsCount() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nextAppID - 1
}

func (l *Ledger) LoansCount() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nextLoanID - 1
}

// OfferedFunds returns the current aggregate of outstanding offer amounts.
func (l *Ledger) OfferedFunds() *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.offeredFunds)
}

func (l *Ledger) Template() *lending.Template {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.template.Clone()
}

func (l *Ledger) ApplicationByID(id uint64) (*lending.Application, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	app, ok := l.apps[id]
	if id == 0 || !ok {
		return nil, fmt.Errorf("application %d: %w", id, lending.ErrNotFound)
	}
	return app.Clone(), nil
}

func (l *Ledger) OfferByApplicationID(id uint64) (*lending.Offer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	offer, ok := l.offers[id]
	if id == 0 || !ok {
		return nil, fmt.Errorf("offer for application %d: %w", id, lending.ErrNotFound)
	}
	return offer.Clone(), nil
}

func (l *Ledger) LoanByID(id uint64) (*lending.Loan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	loan, ok := l.loans[id]
	if id == 0 || !ok {
		return nil, fmt.Errorf("loan %d: %w", id, lending.ErrNotFound)
	}
	return loan.Clone(), nil
}

func (l *Ledger) LoanDetailByID(id uint64) (*lending.LoanDetail, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	detail, ok := l.details[id]
	if id == 0 || !ok {
		return nil, fmt.Errorf("loan detail %d: %w", id, lending.ErrNotFound)
	}
	return detail.Clone(), nil
}

// ---- guard clauses ----

func (l *Ledger) requireOpen() error {
	if l.closed {
		return fmt.Errorf("desk: %w", lending.ErrClosed)
	}
	return nil
}

func (l *Ledger) requireManager(caller string) error {
	if !l.roles.IsManager(caller) {
		return fmt.Errorf("caller %q: %w", caller, lending.ErrUnauthorized)
	}
	return nil
}

func (l *Ledger) requireUser(caller string) error {
	if !l.roles.IsUser(caller) {
		return fmt.Errorf("caller %q: %w", caller, lending.ErrUnauthorized)
	}
	return nil
}

func (l *Ledger) appInStatus(id uint64, want lending.ApplicationStatus) (*lending.Application, error) {
	app, ok := l.apps[id]
	if id == 0 || !ok {
		return nil, fmt.Errorf("application %d: %w", id, lending.ErrNotFound)
	}
	if app.Status != want {
		return nil, fmt.Errorf("application %d is %s, want %s: %w", id, app.Status, want, lending.ErrInvalidStatus)
	}
	return app, nil
}

func (l *Ledger) loanInStatus(id uint64, want lending.LoanStatus) (*lending.Loan, error) {
	loan, ok := l.loans[id]
	if id == 0 || !ok {
		return nil, fmt.Errorf("loan %d: %w", id, lending.ErrNotFound)
	}
	if loan.Status != want {
		return nil, fmt.Errorf("loan %d is %s, want %s: %w", id, loan.Status, want, lending.ErrInvalidStatus)
	}
	return loan, nil
}

// guardEnter rejects re-entry into repay/closeLoan. The flag is taken before
// the mutex so a pool callback re-entering on the same goroutine fails with
// ErrReentrancy instead of deadlocking.
func (l *Ledger) guardEnter(op string) error {
	if !l.busy.CompareAndSwap(false, true) {
		return fmt.Errorf("%s: %w", op, lending.ErrReentrancy)
	}
	return nil
}

func (l *Ledger) guardExit() { l.busy.Store(false) }
