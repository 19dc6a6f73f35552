package sandbox

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"circlo/internal/app/policies"
	domainpayment "circlo/internal/domain/payment"
)

// Gateway issues orders locally for dev and test runs. It can sign checkout
// callbacks the way the real gateway would.
type Gateway struct {
	Key    string
	Signer *domainpayment.Signer

	mu     sync.Mutex
	orders map[string]policies.GatewayOrder
	// Fail, when set, is returned by the next CreateOrder call.
	Fail error
	// Latency delays every CreateOrder call like a remote round trip.
	Latency time.Duration
}

func New(key string, signer *domainpayment.Signer) *Gateway {
	return &Gateway{Key: key, Signer: signer, orders: make(map[string]policies.GatewayOrder)}
}

func (g *Gateway) CreateOrder(ctx context.Context, req policies.GatewayOrderRequest) (policies.GatewayOrder, error) {
	if g.Latency > 0 {
		timer := time.NewTimer(g.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return policies.GatewayOrder{}, domainpayment.ErrGatewayTimeout
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Fail != nil {
		err := g.Fail
		g.Fail = nil
		return policies.GatewayOrder{}, err
	}
	order := policies.GatewayOrder{
		ID:      "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14],
		Amount:  req.Amount,
		Receipt: req.Receipt,
		Status:  "created",
	}
	g.orders[order.ID] = order
	return order, nil
}

func (g *Gateway) KeyID() string {
	return g.Key
}

// Order returns an order issued by this gateway.
func (g *Gateway) Order(id string) (policies.GatewayOrder, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	o, ok := g.orders[id]
	return o, ok
}

// Pay simulates a successful checkout and returns the payment id and the
// callback signature.
func (g *Gateway) Pay(orderID string) (paymentID, signature string) {
	paymentID = "pay_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
	if g.Signer == nil {
		return paymentID, ""
	}
	return paymentID, g.Signer.Sign(domainpayment.OrderID(orderID), paymentID)
}

var _ policies.PaymentGateway = (*Gateway)(nil)
