package ginserver

import (
	"context"
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"circlo/internal/app/middleware"
	domainbooking "circlo/internal/domain/booking"
	domaincatalog "circlo/internal/domain/catalog"
	domainpayment "circlo/internal/domain/payment"
	"circlo/internal/domain/pricing"
	"circlo/internal/domain/shared/daterange"
	"circlo/internal/domain/shared/money"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// errorTable is checked in order; the first match wins.
var errorTable = []errorMapping{
	{middleware.ErrValidation, http.StatusBadRequest, "validation_failed"},
	{domainpayment.ErrMalformedWebhook, http.StatusBadRequest, "malformed_webhook"},
	{daterange.ErrInvalidRange, http.StatusUnprocessableEntity, "invalid_range"},
	{domainpayment.ErrAmountMismatch, http.StatusUnprocessableEntity, "amount_mismatch"},
	{domainpayment.ErrUnsupportedCurrency, http.StatusUnprocessableEntity, "unsupported_currency"},
	{money.ErrInvalidCurrency, http.StatusUnprocessableEntity, "unsupported_currency"},
	{pricing.ErrInvalidPrice, http.StatusUnprocessableEntity, "invalid_price"},
	{middleware.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{domainpayment.ErrInvalidSignature, http.StatusUnauthorized, "invalid_signature"},
	{domainbooking.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domainbooking.ErrSelfBooking, http.StatusForbidden, "self_booking"},
	{domainbooking.ErrBookingNotFound, http.StatusNotFound, "booking_not_found"},
	{domaincatalog.ErrItemNotFound, http.StatusNotFound, "item_not_found"},
	{domainpayment.ErrOrderNotFound, http.StatusNotFound, "order_not_found"},
	{domainbooking.ErrRangeUnavailable, http.StatusConflict, "range_unavailable"},
	{domainbooking.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{domainbooking.ErrConcurrentModification, http.StatusConflict, "concurrent_modification"},
	{domainpayment.ErrOrderMismatch, http.StatusConflict, "order_mismatch"},
	{domainpayment.ErrBookingNotPayable, http.StatusConflict, "booking_not_payable"},
	{domainpayment.ErrGatewayTimeout, http.StatusGatewayTimeout, "gateway_timeout"},
	{domainpayment.ErrGatewayUnavailable, http.StatusBadGateway, "gateway_unavailable"},
	{middleware.ErrLockTimeout, http.StatusServiceUnavailable, "busy"},
	{context.DeadlineExceeded, http.StatusServiceUnavailable, "timeout"},
}

func statusFor(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

// writeError renders err. Unmapped failures are not echoed to the client.
func writeError(c *gin.Context, err error) {
	status, code := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		message = http.StatusText(status)
	}
	c.JSON(status, gin.H{"error": message, "code": code})
}
