package http

import (
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"loandesk/internal/domain/lending"
)

// ---- helpers ----

const headerCallerID = "Ax-Caller-Id"

// callerID pulls the authenticated caller from the request headers. Mutating
// handlers reject requests without one.
func callerID(c echo.Context) string {
	return strings.ToLower(strings.TrimSpace(c.Request().Header.Get(headerCallerID)))
}

func requireCaller(c echo.Context) (string, bool) {
	id := callerID(c)
	if !reHex32.MatchString(id) {
		_ = c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing or invalid " + headerCallerID})
		return "", false
	}
	return id, true
}

// bindAndValidate decodes the JSON body into req and runs struct validation.
// On failure the 400 response is already written; callers just return.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		_ = c.JSON(http.StatusBadRequest, ErrorResponse{Error: "malformed request body"})
		return err
	}
	if err := c.Validate(req); err != nil {
		_ = c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
		return err
	}
	return nil
}

func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		_ = c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + name + " path param"})
		return 0, false
	}
	return id, true
}

func parseAmount(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil
	}
	return n
}

// domainError maps the ledger failure taxonomy onto HTTP statuses.
func domainError(c echo.Context, err error) error {
	var code int
	switch {
	case errors.Is(err, lending.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, lending.ErrInvalidStatus),
		errors.Is(err, lending.ErrCapacityExceeded),
		errors.Is(err, lending.ErrReentrancy):
		code = http.StatusConflict
	case errors.Is(err, lending.ErrOutOfBounds):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, lending.ErrUnauthorized):
		code = http.StatusForbidden
	case errors.Is(err, lending.ErrClosed):
		code = http.StatusServiceUnavailable
	default:
		code = http.StatusInternalServerError
	}
	return c.JSON(code, ErrorResponse{Error: err.Error()})
}
