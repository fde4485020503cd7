package paymentservice

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jcmexdev/oms-sagas/internal/order-service/domain"
	"github.com/jcmexdev/oms-sagas/internal/order-service/ports"
	"github.com/jcmexdev/oms-sagas/internal/pkg/rest"
)

const (
	serviceName   = "payment"
	authorizePath = "/payments/authorize"
)

type authorizeRequest struct {
	OrderID  string      `json:"orderId"`
	Amount   json.Number `json:"amount"`
	Currency string      `json:"currency,omitempty"`
	Method   string      `json:"method,omitempty"`
}

// Gateway talks to the payment provider's REST API.
type Gateway struct {
	client *rest.Client
}

var _ ports.PaymentGateway = (*Gateway)(nil)

// NewGateway returns a gateway rooted at baseURL. hc may be nil.
func NewGateway(baseURL string, hc *http.Client) *Gateway {
	return &Gateway{client: rest.New(baseURL, hc)}
}

func (g *Gateway) Authorize(ctx context.Context, req ports.AuthorizeRequest, idempotencyKey string) (domain.PaymentResponse, error) {
	slog.InfoContext(ctx, "authorizing payment", "order_id", req.OrderID)

	body := authorizeRequest{
		OrderID:  req.OrderID,
		Amount:   json.Number(domain.RoundMoney(req.Amount).StringFixed(domain.MoneyScale)),
		Currency: req.Currency,
		Method:   req.Method,
	}
	var res domain.PaymentResponse
	if err := g.client.PostJSON(ctx, authorizePath, body, idempotencyKey, &res); err != nil {
		return domain.PaymentResponse{}, upstreamError(serviceName, err)
	}
	return res, nil
}

func upstreamError(service string, err error) error {
	var re *rest.ResponseError
	if errors.As(err, &re) {
		return domain.NewUpstreamError(service, re.Status, re.Message)
	}
	return domain.NewUpstreamError(service, 0, err.Error())
}
