package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"loandesk/internal/domain/lending"
	"loandesk/internal/ledger"
	"loandesk/pkg/id"
)

// DeskHandler exposes the origination side of the desk: template management,
// applications, offers and acceptance.
type DeskHandler struct{ led *ledger.Ledger }

func NewDeskHandler(led *ledger.Ledger) *DeskHandler { return &DeskHandler{led: led} }

// ---- request/response DTOs ----

type setAmountRequest struct {
	Amount string `json:"amount" validate:"required,bigint"`
}

type setSecondsRequest struct {
	Seconds int64 `json:"seconds" validate:"required,gt=0"`
}

// zero APR is legal, so no required tag on the bps fields
type setAPRRequest struct {
	APRBps uint64 `json:"apr_bps" validate:"lte=100000"`
}

type requestLoanRequest struct {
	Amount          string `json:"amount" validate:"required,bigint"`
	DurationSeconds int64  `json:"duration_seconds" validate:"required,gt=0"`
	ProfileID       string `json:"profile_id" validate:"omitempty,hex32"`
	ProfileDigest   string `json:"profile_digest" validate:"omitempty"`
}

type offerRequest struct {
	Amount             string `json:"amount" validate:"required,bigint"`
	DurationSeconds    int64  `json:"duration_seconds" validate:"required,gt=0"`
	GracePeriodSeconds int64  `json:"grace_period_seconds" validate:"required,gt=0"`
	InstallmentAmount  string `json:"installment_amount" validate:"required,bigint"`
	Installments       uint64 `json:"installments" validate:"gte=1"`
	APRBps             uint64 `json:"apr_bps" validate:"lte=100000"`
}

func (r offerRequest) terms() ledger.OfferTerms {
	return ledger.OfferTerms{
		Amount:            parseAmount(r.Amount),
		Duration:          r.DurationSeconds,
		GracePeriod:       r.GracePeriodSeconds,
		InstallmentAmount: parseAmount(r.InstallmentAmount),
		Installments:      r.Installments,
		APR:               r.APRBps,
	}
}

type templateResponse struct {
	MinAmount          string `json:"min_amount"`
	MinDurationSeconds int64  `json:"min_duration_seconds"`
	MaxDurationSeconds int64  `json:"max_duration_seconds"`
	GracePeriodSeconds int64  `json:"grace_period_seconds"`
	APRBps             uint64 `json:"apr_bps"`
}

type applicationResponse struct {
	ID              uint64    `json:"id"`
	Borrower        string    `json:"borrower"`
	Amount          string    `json:"amount"`
	DurationSeconds int64     `json:"duration_seconds"`
	RequestedAt     time.Time `json:"requested_at"`
	Status          string    `json:"status"`
	ProfileID       string    `json:"profile_id,omitempty"`
}

func toApplicationResponse(app *lending.Application) applicationResponse {
	return applicationResponse{
		ID:              app.ID,
		Borrower:        app.Borrower,
		Amount:          app.Amount.String(),
		DurationSeconds: app.Duration,
		RequestedAt:     app.RequestedAt,
		Status:          string(app.Status),
		ProfileID:       app.ProfileID,
	}
}

// ---- template ----

func (h *DeskHandler) GetTemplate(c echo.Context) error {
	tmpl := h.led.Template()
	return c.JSON(http.StatusOK, templateResponse{
		MinAmount:          tmpl.MinAmount.String(),
		MinDurationSeconds: tmpl.MinDuration,
		MaxDurationSeconds: tmpl.MaxDuration,
		GracePeriodSeconds: tmpl.GracePeriod,
		APRBps:             tmpl.APR,
	})
}

func (h *DeskHandler) SetMinLoanAmount(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	var req setAmountRequest
	if err := bindAndValidate(c, &req); err != nil {
		return nil
	}
	if err := h.led.SetMinLoanAmount(c.Request().Context(), caller, parseAmount(req.Amount)); err != nil {
		return domainError(c, err)
	}
	return h.GetTemplate(c)
}

func (h *DeskHandler) SetMinLoanDuration(c echo.Context) error {
	return h.setSeconds(c, h.led.SetMinLoanDuration)
}

func (h *DeskHandler) SetMaxLoanDuration(c echo.Context) error {
	return h.setSeconds(c, h.led.SetMaxLoanDuration)
}

func (h *DeskHandler) SetTemplateGracePeriod(c echo.Context) error {
	return h.setSeconds(c, h.led.SetTemplateGracePeriod)
}

func (h *DeskHandler) setSeconds(c echo.Context, apply func(ctx context.Context, caller string, secs int64) error) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	var req setSecondsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return nil
	}
	if err := apply(c.Request().Context(), caller, req.Seconds); err != nil {
		return domainError(c, err)
	}
	return h.GetTemplate(c)
}

func (h *DeskHandler) SetTemplateAPR(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	var req setAPRRequest
	if err := bindAndValidate(c, &req); err != nil {
		return nil
	}
	if err := h.led.SetTemplateAPR(c.Request().Context(), caller, req.APRBps); err != nil {
		return domainError(c, err)
	}
	return h.GetTemplate(c)
}

// ---- applications ----

func (h *DeskHandler) RequestLoan(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	var req requestLoanRequest
	if err := bindAndValidate(c, &req); err != nil {
		return nil
	}
	if req.ProfileID == "" {
		req.ProfileID = id.NewID32()
	}
	appID, err := h.led.RequestLoan(c.Request().Context(), caller, parseAmount(req.Amount), req.DurationSeconds, req.ProfileID, req.ProfileDigest)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"application_id": appID, "profile_id": req.ProfileID})
}

func (h *DeskHandler) GetApplication(c echo.Context) error {
	id, ok := pathID(c, "app_id")
	if !ok {
		return nil
	}
	app, err := h.led.ApplicationByID(id)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, toApplicationResponse(app))
}

func (h *DeskHandler) DenyLoan(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	id, ok := pathID(c, "app_id")
	if !ok {
		return nil
	}
	if err := h.led.DenyLoan(c.Request().Context(), caller, id); err != nil {
		return domainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ---- offers ----

func (h *DeskHandler) OfferLoan(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	id, ok := pathID(c, "app_id")
	if !ok {
		return nil
	}
	var req offerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return nil
	}
	if err := h.led.OfferLoan(c.Request().Context(), caller, id, req.terms()); err != nil {
		return domainError(c, err)
	}
	return c.NoContent(http.StatusCreated)
}

func (h *DeskHandler) UpdateOffer(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	id, ok := pathID(c, "app_id")
	if !ok {
		return nil
	}
	var req offerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return nil
	}
	if err := h.led.UpdateOffer(c.Request().Context(), caller, id, req.terms()); err != nil {
		return domainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *DeskHandler) CanCancel(c echo.Context) error {
	id, ok := pathID(c, "app_id")
	if !ok {
		return nil
	}
	can, err := h.led.CanCancel(id)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"can_cancel": can})
}

func (h *DeskHandler) CancelLoan(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	id, ok := pathID(c, "app_id")
	if !ok {
		return nil
	}
	if err := h.led.CancelLoan(c.Request().Context(), caller, id); err != nil {
		return domainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *DeskHandler) Borrow(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	id, ok := pathID(c, "app_id")
	if !ok {
		return nil
	}
	loanID, err := h.led.Borrow(c.Request().Context(), caller, id)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"loan_id": loanID})
}

// CloseDesk gates the desk against new operations. Governance only.
func (h *DeskHandler) CloseDesk(c echo.Context) error {
	caller, ok := requireCaller(c)
	if !ok {
		return nil
	}
	if err := h.led.Close(caller); err != nil {
		return domainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
