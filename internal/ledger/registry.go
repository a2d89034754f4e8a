package ledger

import (
	"context"
	"fmt"
	"math/big"

	"loandesk/internal/domain/lending"
)

// RequestLoan opens a new application for the caller. A borrower may hold at
// most one application in {applied, offer_made} at a time.
func (l *Ledger) RequestLoan(ctx context.Context, caller string, amount *big.Int, duration int64, profileID, profileDigest string) (uint64, error) {
	if err := l.requireUser(caller); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireOpen(); err != nil {
		return 0, err
	}
	if amount == nil || amount.Cmp(l.template.MinAmount) < 0 {
		return 0, fmt.Errorf("requested amount below template minimum: %w", lending.ErrOutOfBounds)
	}
	if duration < l.template.MinDuration || duration > l.template.MaxDuration {
		return 0, fmt.Errorf("requested duration outside template bounds: %w", lending.ErrOutOfBounds)
	}
	if prevID, ok := l.recentAppID[caller]; ok {
		switch l.apps[prevID].Status {
		case lending.StatusApplied, lending.StatusOfferMade:
			return 0, fmt.Errorf("borrower %q has pending application %d: %w", caller, prevID, lending.ErrInvalidStatus)
		}
	}

	id := l.nextAppID
	l.nextAppID++
	l.apps[id] = &lending.Application{
		ID:            id,
		Borrower:      caller,
		Amount:        new(big.Int).Set(amount),
		Duration:      duration,
		RequestedAt:   l.now(),
		Status:        lending.StatusApplied,
		ProfileID:     profileID,
		ProfileDigest: profileDigest,
	}
	l.recentAppID[caller] = id

	l.emit(ctx, Event{
		Type:          EventLoanRequested,
		ApplicationID: id,
		Caller:        caller,
		Payload:       map[string]any{"amount": amount.String(), "duration": duration},
	})
	return id, nil
}

// DenyLoan moves an applied application to its denied terminal state.
func (l *Ledger) DenyLoan(ctx context.Context, caller string, appID uint64) error {
	if err := l.requireManager(caller); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	app, err := l.appInStatus(appID, lending.StatusApplied)
	if err != nil {
		return err
	}
	app.Status = lending.StatusDenied
	l.emit(ctx, Event{Type: EventLoanRequestDenied, ApplicationID: appID, Caller: caller})
	return nil
}

// OfferTerms are the seven numeric fields of an offer.
type OfferTerms struct {
	Amount            *big.Int
	Duration          int64
	GracePeriod       int64
	InstallmentAmount *big.Int
	Installments      uint64
	APR               uint64
}

// OfferLoan originates an offer against an applied application, committing
// pool liquidity. Check, effect, interaction, in that order.
func (l *Ledger) OfferLoan(ctx context.Context, caller string, appID uint64, terms OfferTerms) error {
	if err := l.requireManager(caller); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireOpen(); err != nil {
		return err
	}
	app, err := l.appInStatus(appID, lending.StatusApplied)
	if err != nil {
		return err
	}
	if err := l.validateLoanParams(terms.Amount, terms.Duration, terms.GracePeriod, terms.InstallmentAmount, terms.Installments, terms.APR); err != nil {
		return err
	}

	proposed := new(big.Int).Add(l.offeredFunds, terms.Amount)
	ok, err := l.pool.CanOffer(ctx, proposed)
	if err != nil {
		return fmt.Errorf("pool capacity query: %w", err)
	}
	if !ok {
		return fmt.Errorf("offer of %s declined: %w", terms.Amount, lending.ErrCapacityExceeded)
	}

	prevFunds := l.offeredFunds
	app.Status = lending.StatusOfferMade
	l.offers[appID] = &lending.Offer{
		ApplicationID:     appID,
		Borrower:          app.Borrower,
		Amount:            new(big.Int).Set(terms.Amount),
		Duration:          terms.Duration,
		GracePeriod:       terms.GracePeriod,
		InstallmentAmount: new(big.Int).Set(terms.InstallmentAmount),
		Installments:      terms.Installments,
		APR:               terms.APR,
		OfferedAt:         l.now(),
	}
	l.offeredFunds = proposed

	if err := l.pool.OnOffer(ctx, terms.Amount); err != nil {
		app.Status = lending.StatusApplied
		delete(l.offers, appID)
		l.offeredFunds = prevFunds
		return fmt.Errorf("pool offer notification: %w", err)
	}

	l.emit(ctx, Event{
		Type:          EventLoanOffered,
		ApplicationID: appID,
		Caller:        caller,
		Payload:       map[string]any{"amount": terms.Amount.String(), "apr": terms.APR},
	})
	return nil
}

// UpdateOffer replaces the terms of an outstanding offer; the amount delta is
// re-checked against pool capacity.
func (l *Ledger) UpdateOffer(ctx context.Context, caller string, appID uint64, terms OfferTerms) error {
	if err := l.requireManager(caller); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireOpen(); err != nil {
		return err
	}
	if _, err := l.appInStatus(appID, lending.StatusOfferMade); err != nil {
		return err
	}
	if err := l.validateLoanParams(terms.Amount, terms.Duration, terms.GracePeriod, terms.InstallmentAmount, terms.Installments, terms.APR); err != nil {
		return err
	}

	offer := l.offers[appID]
	prevAmount := new(big.Int).Set(offer.Amount)
	proposed := new(big.Int).Sub(l.offeredFunds, prevAmount)
	proposed.Add(proposed, terms.Amount)
	ok, err := l.pool.CanOffer(ctx, proposed)
	if err != nil {
		return fmt.Errorf("pool capacity query: %w", err)
	}
	if !ok {
		return fmt.Errorf("offer update to %s declined: %w", terms.Amount, lending.ErrCapacityExceeded)
	}

	prevOffer := offer.Clone()
	prevFunds := l.offeredFunds
	offer.Amount = new(big.Int).Set(terms.Amount)
	offer.Duration = terms.Duration
	offer.GracePeriod = terms.GracePeriod
	offer.InstallmentAmount = new(big.Int).Set(terms.InstallmentAmount)
	offer.Installments = terms.Installments
	offer.APR = terms.APR
	l.offeredFunds = proposed

	if err := l.pool.OnOfferUpdate(ctx, prevAmount, terms.Amount); err != nil {
		l.offers[appID] = prevOffer
		l.offeredFunds = prevFunds
		return fmt.Errorf("pool offer update notification: %w", err)
	}

	l.emit(ctx, Event{
		Type:          EventLoanOfferUpdated,
		ApplicationID: appID,
		Caller:        caller,
		Payload:       map[string]any{"prev_amount": prevAmount.String(), "amount": terms.Amount.String()},
	})
	return nil
}

// CanCancel reports whether an offer is still outstanding and cancellable.
func (l *Ledger) CanCancel(appID uint64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	app, ok := l.apps[appID]
	if appID == 0 || !ok {
		return false, fmt.Errorf("application %d: %w", appID, lending.ErrNotFound)
	}
	return app.Status == lending.StatusOfferMade, nil
}

// CancelLoan withdraws an outstanding offer and releases its commitment.
func (l *Ledger) CancelLoan(ctx context.Context, caller string, appID uint64) error {
	if err := l.requireManager(caller); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	app, err := l.appInStatus(appID, lending.StatusOfferMade)
	if err != nil {
		return err
	}

	offer := l.offers[appID]
	prevAmount := new(big.Int).Set(offer.Amount)
	prevFunds := l.offeredFunds
	app.Status = lending.StatusOfferCancelled
	delete(l.offers, appID)
	l.offeredFunds = new(big.Int).Sub(prevFunds, prevAmount)

	if err := l.pool.OnOfferUpdate(ctx, prevAmount, zero()); err != nil {
		app.Status = lending.StatusOfferMade
		l.offers[appID] = offer
		l.offeredFunds = prevFunds
		return fmt.Errorf("pool cancel notification: %w", err)
	}

	l.emit(ctx, Event{
		Type:          EventLoanOfferCancelled,
		ApplicationID: appID,
		Caller:        caller,
		Payload:       map[string]any{"amount": prevAmount.String()},
	})
	return nil
}

// Borrow accepts an outstanding offer, atomically creating the loan. Only the
// offer's borrower may accept.
func (l *Ledger) Borrow(ctx context.Context, caller string, appID uint64) (uint64, error) {
	if err := l.requireUser(caller); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireOpen(); err != nil {
		return 0, err
	}
	app, err := l.appInStatus(appID, lending.StatusOfferMade)
	if err != nil {
		return 0, err
	}
	if app.Borrower != caller {
		return 0, fmt.Errorf("caller %q is not the applicant: %w", caller, lending.ErrUnauthorized)
	}

	offer := l.offers[appID]
	prevFunds := l.offeredFunds
	borrowedAt := l.now()
	loanID := l.nextLoanID
	l.nextLoanID++

	app.Status = lending.StatusOfferAccepted
	delete(l.offers, appID)
	l.offeredFunds = new(big.Int).Sub(prevFunds, offer.Amount)
	l.loans[loanID] = &lending.Loan{
		ID:                loanID,
		ApplicationID:     appID,
		Borrower:          app.Borrower,
		Amount:            new(big.Int).Set(offer.Amount),
		Duration:          offer.Duration,
		GracePeriod:       offer.GracePeriod,
		InstallmentAmount: new(big.Int).Set(offer.InstallmentAmount),
		Installments:      offer.Installments,
		APR:               offer.APR,
		BorrowedAt:        borrowedAt,
		Status:            lending.LoanOutstanding,
	}
	l.details[loanID] = &lending.LoanDetail{
		LoanID:                loanID,
		TotalAmountRepaid:     zero(),
		PrincipalAmountRepaid: zero(),
		InterestPaid:          zero(),
		PaymentCarry:          zero(),
		InterestPaidTill:      borrowedAt,
	}
	l.loanByApp[appID] = loanID

	if err := l.pool.OnBorrow(ctx, loanID, app.Borrower, offer.Amount, offer.APR); err != nil {
		app.Status = lending.StatusOfferMade
		l.offers[appID] = offer
		l.offeredFunds = prevFunds
		delete(l.loans, loanID)
		delete(l.details, loanID)
		delete(l.loanByApp, appID)
		l.nextLoanID--
		return 0, fmt.Errorf("pool borrow notification: %w", err)
	}

	l.emit(ctx, Event{Type: EventLoanOfferAccepted, ApplicationID: appID, LoanID: loanID, Caller: caller})
	l.emit(ctx, Event{
		Type:          EventLoanBorrowed,
		ApplicationID: appID,
		LoanID:        loanID,
		Caller:        caller,
		Payload:       map[string]any{"amount": offer.Amount.String(), "apr": offer.APR},
	})
	return loanID, nil
}
