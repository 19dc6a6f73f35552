package payment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseWebhookPaymentCaptured(t *testing.T) {
	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_9","order_id":"order_7","amount":545}}}}`)
	ev, err := ParseWebhookEvent(body)
	require.NoError(t, err)
	require.True(t, ev.Settles())
	require.Equal(t, OrderID("order_7"), ev.OrderID)
	require.Equal(t, "pay_9", ev.PaymentID)
}

func TestParseWebhookOrderPaidFallsBackToOrderEntity(t *testing.T) {
	body := []byte(`{"event":"order.paid","payload":{"order":{"entity":{"id":"order_7"}},"payment":{"entity":{"id":"pay_9"}}}}`)
	ev, err := ParseWebhookEvent(body)
	require.NoError(t, err)
	require.Equal(t, OrderID("order_7"), ev.OrderID)
}

func TestParseWebhookIgnoredEvent(t *testing.T) {
	ev, err := ParseWebhookEvent([]byte(`{"event":"refund.created","payload":{}}`))
	require.NoError(t, err)
	require.False(t, ev.Settles())
}

func TestParseWebhookMalformed(t *testing.T) {
	_, err := ParseWebhookEvent([]byte(`{not json`))
	require.ErrorIs(t, err, ErrMalformedWebhook)

	_, err = ParseWebhookEvent([]byte(`{"event":"payment.captured","payload":{}}`))
	require.ErrorIs(t, err, ErrMalformedWebhook)
}
