package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"circlo/internal/app/commands"
	"circlo/internal/app/dto"
	paymentapp "circlo/internal/app/handlers/payment"
	"circlo/internal/app/policies"
	"circlo/internal/app/queries"
)

const (
	headerSignature = "X-Razorpay-Signature"
	headerEventID   = "X-Razorpay-Event-Id"
	maxWebhookBytes = 1 << 20
)

type PaymentHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	// Inbox drops redelivered webhooks that were already processed.
	Inbox  policies.Inbox
	Logger *slog.Logger
}

func (h PaymentHandler) Quote(c *gin.Context) {
	user, ok := requirePrincipal(c)
	if !ok {
		return
	}
	query := paymentapp.QuoteBookingQuery{BookingID: c.Param("id"), Actor: user.ID}
	result, err := queries.Ask[paymentapp.QuoteBookingQuery, *dto.Quote](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type createOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Notes    map[string]string `json:"notes"`
}

func (h PaymentHandler) CreateOrder(c *gin.Context) {
	user, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req createOrderRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "bad_request"})
			return
		}
	}
	cmd := paymentapp.CreateOrderCommand{
		BookingID:       c.Param("id"),
		Actor:           user.ID,
		Amount:          req.Amount,
		Currency:        req.Currency,
		Notes:           req.Notes,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[paymentapp.CreateOrderCommand, *dto.PaymentOrder](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

type verifyRequest struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
	BookingID string `json:"booking_id"`
}

func (h PaymentHandler) Verify(c *gin.Context) {
	if _, ok := requirePrincipal(c); !ok {
		return
	}
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "bad_request"})
		return
	}
	cmd := paymentapp.VerifyPaymentCommand{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
		BookingID: req.BookingID,
	}
	result, err := commands.Dispatch[paymentapp.VerifyPaymentCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Webhook passes the raw body through untouched; the signature covers the
// exact bytes.
func (h PaymentHandler) Webhook(c *gin.Context) {
	ctx := c.Request.Context()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBytes)
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body", "code": "bad_request"})
		return
	}
	eventID := c.GetHeader(headerEventID)
	if eventID != "" && h.Inbox != nil {
		seen, err := h.Inbox.Seen(ctx, eventID)
		if err != nil {
			writeError(c, err)
			return
		}
		if seen {
			c.JSON(http.StatusOK, gin.H{"duplicate": true})
			return
		}
	}
	cmd := paymentapp.WebhookCommand{Body: body, Signature: c.GetHeader(headerSignature)}
	ack, err := commands.Dispatch[paymentapp.WebhookCommand, *dto.WebhookAck](ctx, h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	if eventID != "" && h.Inbox != nil {
		if err := h.Inbox.Mark(ctx, eventID); err != nil && h.Logger != nil {
			h.Logger.Warn("webhook inbox mark failed", "event_id", eventID, "error", err)
		}
	}
	c.JSON(http.StatusOK, ack)
}

var _ PaymentHTTP = PaymentHandler{}
