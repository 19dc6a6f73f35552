package policies

import (
	"context"

	"circlo/internal/domain/shared/money"
)

type GatewayOrderRequest struct {
	Amount  money.Money
	Receipt string
	Notes   map[string]string
}

type GatewayOrder struct {
	ID      string
	Amount  money.Money
	Receipt string
	Status  string
}

// PaymentGateway opens payment orders with an external provider. Timeouts
// surface as payment.ErrGatewayTimeout, transport and 5xx failures as
// payment.ErrGatewayUnavailable; neither is retried by the adapter.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req GatewayOrderRequest) (GatewayOrder, error)
	// KeyID is the public key the client checkout needs.
	KeyID() string
}
