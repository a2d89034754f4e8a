package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"loandesk/internal/ledger"
)

type Handler struct{ led *ledger.Ledger }

func NewHandler(led *ledger.Ledger) *Handler { return &Handler{led: led} }

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (h *Handler) Stats(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"applications_count": h.led.ApplicationsCount(),
		"loans_count":        h.led.LoansCount(),
		"offered_funds":      h.led.OfferedFunds().String(),
	})
}

// Register wires every route of the desk onto e. Mutating routes sit behind
// the extra middleware (idempotency in production wiring).
func Register(e *echo.Echo, led *ledger.Ledger, mutating ...echo.MiddlewareFunc) {
	h := NewHandler(led)
	dh := NewDeskHandler(led)
	lh := NewLoanHandler(led)

	e.GET("/health", h.Health)
	e.GET("/stats", h.Stats)

	g := e.Group("", mutating...)

	g.POST("/desk/close", dh.CloseDesk)

	g.PUT("/template/min-amount", dh.SetMinLoanAmount)
	g.PUT("/template/min-duration", dh.SetMinLoanDuration)
	g.PUT("/template/max-duration", dh.SetMaxLoanDuration)
	g.PUT("/template/grace-period", dh.SetTemplateGracePeriod)
	g.PUT("/template/apr", dh.SetTemplateAPR)
	e.GET("/template", dh.GetTemplate)

	g.POST("/applications", dh.RequestLoan)
	e.GET("/applications/:app_id", dh.GetApplication)
	e.GET("/applications/:app_id/can-cancel", dh.CanCancel)
	g.POST("/applications/:app_id/deny", dh.DenyLoan)
	g.POST("/applications/:app_id/offer", dh.OfferLoan)
	g.PUT("/applications/:app_id/offer", dh.UpdateOffer)
	g.POST("/applications/:app_id/cancel", dh.CancelLoan)
	g.POST("/applications/:app_id/borrow", dh.Borrow)

	e.GET("/loans/:loan_id", lh.GetLoan)
	e.GET("/loans/:loan_id/detail", lh.GetLoanDetail)
	e.GET("/loans/:loan_id/balance", lh.BalanceDue)
	e.GET("/loans/:loan_id/can-default", lh.CanDefault)
	g.POST("/loans/:loan_id/repay", lh.Repay)
	g.POST("/loans/:loan_id/default", lh.DefaultLoan)
	g.POST("/loans/:loan_id/close", lh.CloseLoan)
}
