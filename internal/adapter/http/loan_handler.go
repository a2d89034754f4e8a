package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"loandesk/internal/domain/lending"
	"loandesk/internal/ledger"
)

// LoanHandler exposes the amortization side of the desk: balances, repayment,
// default and closure.
type LoanHandler struct{ led *ledger.Ledger }

func NewLoanHandler(led *ledger.Ledger) *LoanHandler { return &LoanHandler{led: led} }

type repayRequest struct {
	MaxPayment string `json:"max_payment" validate:"required,bigint"`
	// Borrower switches the request to a third-party payment on that
	// borrower's loan.
	Borrower string `json:"borrower" validate:"omitempty,hex32"`
}

type loanResponse struct {
	ID                 uint64    `json:"id"`
	ApplicationID      uint64    `json:"application_id"`
	Borrower           string    `json:"borrower"`
	Amount             string    `json:"amount"`
	DurationSeconds    int64     `json:"duration_seconds"`
	GracePeriodSeconds int64     `json:"grace_period_seconds"`
	InstallmentAmount  string    `json:"installment_amount"`
	Installments       uint64    `json:"installments"`
	APRBps             uint64    `json:"apr_bps"`
	BorrowedAt         time.Time `json:"borrowed_at"`
	Status             string    `json:"status"`
}

type loanDetailResponse struct {
	LoanID                uint64    `json:"loan_id"`
	TotalAmountRepaid     string    `json:"total_amount_repaid"`
	PrincipalAmountRepaid string    `json:"principal_amount_repaid"`
	InterestPaid          string    `json:"interest_paid"`
	PaymentCarry          string    `json:"payment_carry"`
	InterestPaidTill      time.Time `json:"interest_paid_till"`
	LastPaymentAt         time.Time `json:"last_payment_at"`
}

type balanceResponse struct {
	Principal    string `json:"principal"`
	Interest     string `json:"interest"`
	InterestDays uint64 `json:"interest_days"`
	Total        string `json:"total"`
}

func toLoanResponse(loan *lending.Loan) loanResponse {
	return loanResponse{
		ID:                 loan.ID,
		ApplicationID:      loan.ApplicationID,
		Borrower:           loan.Borrower,
		Amount:             loan.Amount.String(),
		DurationSeconds:    loan.Duration,
		GracePeriodSeconds: loan.GracePeriod,
		InstallmentAmount:  loan.InstallmentAmount.String(),
		Installments:       loan.Installments,
		APRBps:             loan.APR,
		BorrowedAt:         loan.BorrowedAt,
		Status:             string(loan.Status),
	}
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	id, ok := pathID(c, "loan_id")
	if !ok {
		return nil
	}
	loan, err := h.led.LoanByID(id)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, toLoanResponse(loan))
}

func (h *LoanHandler) GetLoanDetail(c echo.Context) error {
	id, ok := pathID(c, "loan_id")
	if !ok {
		return nil
	}
	detail, err := h.led.LoanDetailByID(id)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, loanDetailResponse{
		LoanID:                detail.LoanID,
		TotalAmountRepaid:     detail.TotalAmountRepaid.String(),
		PrincipalAmountRepaid: detail.PrincipalAmountRepaid.String(),
		InterestPaid:          detail.InterestPaid.String(),
		PaymentCarry:          detail.PaymentCarry.String(),
		InterestPaidTill:      detail.InterestPaidTill,
		LastPaymentAt:         detail.LastPaymentAt,
	})
}

func (h *LoanHandler) BalanceDue(c echo.Context) error {
	id, ok := pathID(c, "loan_id")
	if !ok {
		return nil
	}
	bal, err := h.led.LoanBalanceDue(id)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, balanceResponse{
		Principal:    bal.Principal.String(),
		Interest:     bal.Interest.String(),
		InterestDays: bal.InterestDays,
		Total:        bal.Total().String(),
	})
}

func (h *LoanHandler) Repay(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	id, ok := pathID(c, "loan_id")
	if !ok {
		return nil
	}
	var req repayRequest
	if err := bindAndValidate(c, &req); err != nil {
		return nil
	}
	ctx := c.Request().Context()
	var err error
	if req.Borrower != "" && req.Borrower != caller {
		err = h.led.RepayOnBehalf(ctx, caller, id, parseAmount(req.MaxPayment), req.Borrower)
	} else {
		err = h.led.Repay(ctx, caller, id, parseAmount(req.MaxPayment))
	}
	if err != nil {
		return domainError(c, err)
	}
	detail, err := h.led.LoanDetailByID(id)
	if err != nil {
		return domainError(c, err)
	}
	loan, err := h.led.LoanByID(id)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"loan_status":             string(loan.Status),
		"total_amount_repaid":     detail.TotalAmountRepaid.String(),
		"principal_amount_repaid": detail.PrincipalAmountRepaid.String(),
		"payment_carry":           detail.PaymentCarry.String(),
	})
}

func (h *LoanHandler) CanDefault(c echo.Context) error {
	id, ok := pathID(c, "loan_id")
	if !ok {
		return nil
	}
	can, err := h.led.CanDefault(id)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"can_default": can})
}

func (h *LoanHandler) DefaultLoan(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	id, ok := pathID(c, "loan_id")
	if !ok {
		return nil
	}
	split, err := h.led.DefaultLoan(c.Request().Context(), caller, id)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"manager_loss": split.ManagerLoss.String(),
		"lender_loss":  split.LenderLoss.String(),
	})
}

func (h *LoanHandler) CloseLoan(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	id, ok := pathID(c, "loan_id")
	if !ok {
		return nil
	}
	res, err := h.led.CloseLoan(c.Request().Context(), caller, id)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"amount_repaid":        res.AmountRepaid.String(),
		"remaining_difference": res.RemainingDifference.String(),
	})
}
