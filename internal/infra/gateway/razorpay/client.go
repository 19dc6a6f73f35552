package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"circlo/internal/app/policies"
	domainpayment "circlo/internal/domain/payment"
	"circlo/internal/domain/shared/money"
)

const defaultTimeout = 10 * time.Second

// Client opens orders through the Razorpay-compatible REST API.
type Client struct {
	BaseURL string
	Key     string
	Secret  string
	Timeout time.Duration
	HTTP    *http.Client
	Logger  *slog.Logger
}

type orderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type orderResponse struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// CreateOrder makes exactly one attempt bounded by Timeout. Callers decide
// whether to retry.
func (c *Client) CreateOrder(ctx context.Context, req policies.GatewayOrderRequest) (policies.GatewayOrder, error) {
	if c == nil || c.BaseURL == "" {
		return policies.GatewayOrder{}, errors.New("razorpay: base url not configured")
	}
	body, err := json.Marshal(orderRequest{
		Amount:   req.Amount.Amount,
		Currency: req.Amount.Currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	})
	if err != nil {
		return policies.GatewayOrder{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.BaseURL, "/")+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return policies.GatewayOrder{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.Key, c.Secret)

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			err = fmt.Errorf("%w: %s", domainpayment.ErrGatewayTimeout, c.BaseURL)
		} else {
			err = fmt.Errorf("%w: %s: %v", domainpayment.ErrGatewayUnavailable, c.BaseURL, err)
		}
		c.logError("order request failed", err)
		return policies.GatewayOrder{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("%w: gateway returned %d: %s", domainpayment.ErrGatewayUnavailable, resp.StatusCode, strings.TrimSpace(string(snippet)))
		c.logError("order rejected", err)
		return policies.GatewayOrder{}, err
	}

	var out orderResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		err = fmt.Errorf("%w: decode order: %v", domainpayment.ErrGatewayUnavailable, err)
		c.logError("order decode failed", err)
		return policies.GatewayOrder{}, err
	}
	if out.ID == "" {
		return policies.GatewayOrder{}, fmt.Errorf("%w: order id missing", domainpayment.ErrGatewayUnavailable)
	}
	if out.Amount != req.Amount.Amount || !strings.EqualFold(out.Currency, req.Amount.Currency) {
		return policies.GatewayOrder{}, fmt.Errorf("%w: gateway echoed %d %s", domainpayment.ErrAmountMismatch, out.Amount, out.Currency)
	}
	amount, err := money.New(out.Amount, out.Currency)
	if err != nil {
		return policies.GatewayOrder{}, err
	}
	return policies.GatewayOrder{ID: out.ID, Amount: amount, Receipt: out.Receipt, Status: out.Status}, nil
}

func (c *Client) KeyID() string {
	return c.Key
}

func (c *Client) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return defaultTimeout
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) logError(msg string, err error) {
	if c.Logger != nil {
		c.Logger.Error(msg, "error", err)
	}
}

var _ policies.PaymentGateway = (*Client)(nil)
