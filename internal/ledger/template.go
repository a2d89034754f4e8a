package ledger

import (
	"context"
	"fmt"
	"math/big"

	"loandesk/internal/domain/lending"
)

// DefaultTemplate returns conservative starting terms within the safe limits.
func DefaultTemplate() *lending.Template {
	return &lending.Template{
		MinAmount:   new(big.Int).Set(safeMinAmount),
		MinDuration: safeMinDuration,
		MaxDuration: safeMaxDuration,
		GracePeriod: 60 * daySeconds,
		APR:         3_000, // 30%
	}
}

func checkTemplate(t *lending.Template) error {
	switch {
	case t.MinAmount == nil || t.MinAmount.Cmp(safeMinAmount) < 0:
		return fmt.Errorf("template min amount below %s: %w", safeMinAmount, lending.ErrOutOfBounds)
	case t.MinDuration < safeMinDuration || t.MinDuration > t.MaxDuration || t.MaxDuration > safeMaxDuration:
		return fmt.Errorf("template duration bounds: %w", lending.ErrOutOfBounds)
	case t.GracePeriod < safeMinGracePeriod || t.GracePeriod > safeMaxGracePeriod:
		return fmt.Errorf("template grace period: %w", lending.ErrOutOfBounds)
	case t.APR > safeMaxAPR:
		return fmt.Errorf("template apr: %w", lending.ErrOutOfBounds)
	}
	return nil
}

// setTemplateField is the shared guard-check-emit path for all five setters.
// The parameter-change event carries (prev, next) read under the same lock.
func (l *Ledger) setTemplateField(ctx context.Context, caller, field string, read func(t *lending.Template) any, apply func(t *lending.Template)) error {
	if err := l.requireManager(caller); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireOpen(); err != nil {
		return err
	}
	prev := read(l.template)
	candidate := l.template.Clone()
	apply(candidate)
	if err := checkTemplate(candidate); err != nil {
		return err
	}
	l.template = candidate
	l.emit(ctx, Event{
		Type:    EventTemplateChanged,
		Caller:  caller,
		Payload: map[string]any{"field": field, "prev": prev, "next": read(candidate)},
	})
	return nil
}

func (l *Ledger) SetMinLoanAmount(ctx context.Context, caller string, amount *big.Int) error {
	if amount == nil {
		return fmt.Errorf("min loan amount: %w", lending.ErrOutOfBounds)
	}
	return l.setTemplateField(ctx, caller, "min_amount",
		func(t *lending.Template) any { return t.MinAmount.String() },
		func(t *lending.Template) { t.MinAmount = new(big.Int).Set(amount) })
}

func (l *Ledger) SetMinLoanDuration(ctx context.Context, caller string, duration int64) error {
	return l.setTemplateField(ctx, caller, "min_duration",
		func(t *lending.Template) any { return t.MinDuration },
		func(t *lending.Template) { t.MinDuration = duration })
}

func (l *Ledger) SetMaxLoanDuration(ctx context.Context, caller string, duration int64) error {
	return l.setTemplateField(ctx, caller, "max_duration",
		func(t *lending.Template) any { return t.MaxDuration },
		func(t *lending.Template) { t.MaxDuration = duration })
}

func (l *Ledger) SetTemplateGracePeriod(ctx context.Context, caller string, gracePeriod int64) error {
	return l.setTemplateField(ctx, caller, "grace_period",
		func(t *lending.Template) any { return t.GracePeriod },
		func(t *lending.Template) { t.GracePeriod = gracePeriod })
}

func (l *Ledger) SetTemplateAPR(ctx context.Context, caller string, apr uint64) error {
	return l.setTemplateField(ctx, caller, "apr",
		func(t *lending.Template) any { return t.APR },
		func(t *lending.Template) { t.APR = apr })
}

// validateLoanParams is the shared guard for offerLoan and updateOffer. It
// checks all seven numeric offer fields against the template and the safe
// limits before any state is touched.
func (l *Ledger) validateLoanParams(amount *big.Int, duration, gracePeriod int64, installmentAmount *big.Int, installments uint64, apr uint64) error {
	switch {
	case amount == nil || amount.Cmp(l.template.MinAmount) < 0:
		return fmt.Errorf("offer amount below template minimum: %w", lending.ErrOutOfBounds)
	case duration < l.template.MinDuration || duration > l.template.MaxDuration:
		return fmt.Errorf("offer duration outside template bounds: %w", lending.ErrOutOfBounds)
	case gracePeriod < safeMinGracePeriod || gracePeriod > safeMaxGracePeriod:
		return fmt.Errorf("offer grace period: %w", lending.ErrOutOfBounds)
	case installmentAmount == nil || (installmentAmount.Sign() != 0 && installmentAmount.Cmp(safeMinAmount) < 0):
		return fmt.Errorf("offer installment amount: %w", lending.ErrOutOfBounds)
	case installments < 1 || int64(installments) > duration/daySeconds:
		// more installments than days would allow sub-day installments
		return fmt.Errorf("offer installments: %w", lending.ErrOutOfBounds)
	case apr > safeMaxAPR:
		return fmt.Errorf("offer apr: %w", lending.ErrOutOfBounds)
	}
	return nil
}
