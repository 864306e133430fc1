// REST API CLIENT FOR THE ALPACA TRADING v2 SURFACE
// RESTY ONLY; THE ENGINE OWNS THE RETRY PROTOCOL
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"
)

// AlpacaClient talks to an Alpaca-shaped brokerage REST API.
type AlpacaClient struct {
	baseURL string
	http    *resty.Client
}

var _ Client = (*AlpacaClient)(nil)

// NewAlpacaClient builds an authenticated client. Credentials travel in the
// APCA-API-* headers on every request.
func NewAlpacaClient(cfg Config) *AlpacaClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://paper-api.alpaca.markets"
		logger.Warnf("No base URL provided, using default: %s", cfg.BaseURL)
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.RequestTimeout).
		SetHeader("APCA-API-KEY-ID", cfg.APIKeyID).
		SetHeader("APCA-API-SECRET-KEY", cfg.APISecretKey).
		SetHeader("Content-Type", "application/json")

	return &AlpacaClient{
		baseURL: cfg.BaseURL,
		http:    httpClient,
	}
}

// -----------------------------
// WIRE SHAPES
// -----------------------------

// Numeric fields arrive as strings on this API.
type alpacaOrder struct {
	ID             string     `json:"id"`
	ClientOrderID  string     `json:"client_order_id"`
	Symbol         string     `json:"symbol"`
	Side           string     `json:"side"`
	Qty            string     `json:"qty"`
	Status         string     `json:"status"`
	FilledQty      string     `json:"filled_qty"`
	FilledAvgPrice *string    `json:"filled_avg_price"`
	SubmittedAt    *time.Time `json:"submitted_at"`
	FilledAt       *time.Time `json:"filled_at"`
}

type alpacaAccount struct {
	PortfolioValue string `json:"portfolio_value"`
	Equity         string `json:"equity"`
	LastEquity     string `json:"last_equity"`
	Cash           string `json:"cash"`
}

type alpacaPosition struct {
	Symbol      string `json:"symbol"`
	Qty         string `json:"qty"`
	MarketValue string `json:"market_value"`
}

func parseFloat(raw string) float64 {
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

func (o *alpacaOrder) toOrderInfo() *OrderInfo {
	info := &OrderInfo{
		ID:            o.ID,
		ClientOrderID: o.ClientOrderID,
		Symbol:        o.Symbol,
		Side:          o.Side,
		Qty:           parseFloat(o.Qty),
		Status:        o.Status,
		FilledQty:     parseFloat(o.FilledQty),
		SubmittedAt:   o.SubmittedAt,
		FilledAt:      o.FilledAt,
	}
	if o.FilledAvgPrice != nil {
		info.FilledAvgPrice = parseFloat(*o.FilledAvgPrice)
	}
	return info
}

// -----------------------------
// TRANSPORT
// -----------------------------

func (c *AlpacaClient) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req = req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("broker request %s %s: %w", method, path, err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}

	return resp.Body(), nil
}

// -----------------------------
// TRADING METHODS
// -----------------------------

func (c *AlpacaClient) PlaceOrder(ctx context.Context, orderReq OrderRequest) (*OrderInfo, error) {
	body := map[string]interface{}{
		"symbol":        orderReq.Symbol,
		"qty":           strconv.FormatFloat(orderReq.Qty, 'f', -1, 64),
		"side":          orderReq.Side,
		"type":          orderReq.Type,
		"time_in_force": orderReq.TimeInForce,
	}
	if orderReq.ClientOrderID != "" {
		body["client_order_id"] = orderReq.ClientOrderID
	}
	if orderReq.LimitPrice != nil {
		body["limit_price"] = strconv.FormatFloat(*orderReq.LimitPrice, 'f', -1, 64)
	}
	if orderReq.StopPrice != nil {
		body["stop_price"] = strconv.FormatFloat(*orderReq.StopPrice, 'f', -1, 64)
	}

	raw, err := c.doRequest(ctx, "POST", "/v2/orders", body)
	if err != nil {
		return nil, err
	}

	var parsed alpacaOrder
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode place order response: %w", err)
	}

	logger.WithFields(map[string]interface{}{
		"order_id":        parsed.ID,
		"client_order_id": parsed.ClientOrderID,
		"symbol":          parsed.Symbol,
		"status":          parsed.Status,
	}).Info("Order placed")

	return parsed.toOrderInfo(), nil
}

func (c *AlpacaClient) GetOrderStatus(ctx context.Context, orderID string) (*OrderInfo, error) {
	raw, err := c.doRequest(ctx, "GET", "/v2/orders/"+orderID, nil)
	if err != nil {
		return nil, err
	}

	var parsed alpacaOrder
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode order status response: %w", err)
	}
	return parsed.toOrderInfo(), nil
}

func (c *AlpacaClient) CancelOrder(ctx context.Context, orderID string) error {
	_, err := c.doRequest(ctx, "DELETE", "/v2/orders/"+orderID, nil)
	return err
}

func (c *AlpacaClient) CancelAllOrders(ctx context.Context) error {
	_, err := c.doRequest(ctx, "DELETE", "/v2/orders", nil)
	return err
}

// -----------------------------
// ACCOUNT & POSITION METHODS
// -----------------------------

func (c *AlpacaClient) GetAccountInfo(ctx context.Context) (*AccountInfo, error) {
	raw, err := c.doRequest(ctx, "GET", "/v2/account", nil)
	if err != nil {
		return nil, err
	}

	var parsed alpacaAccount
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode account response: %w", err)
	}

	return &AccountInfo{
		PortfolioValue: parseFloat(parsed.PortfolioValue),
		Equity:         parseFloat(parsed.Equity),
		LastEquity:     parseFloat(parsed.LastEquity),
		Cash:           parseFloat(parsed.Cash),
	}, nil
}

func (c *AlpacaClient) GetPositions(ctx context.Context) ([]Position, error) {
	raw, err := c.doRequest(ctx, "GET", "/v2/positions", nil)
	if err != nil {
		return nil, err
	}

	var parsed []alpacaPosition
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode positions response: %w", err)
	}

	positions := make([]Position, 0, len(parsed))
	for _, p := range parsed {
		positions = append(positions, Position{
			Symbol:      p.Symbol,
			Qty:         parseFloat(p.Qty),
			MarketValue: parseFloat(p.MarketValue),
		})
	}
	return positions, nil
}

func (c *AlpacaClient) GetPosition(ctx context.Context, ticker string) (*Position, error) {
	raw, err := c.doRequest(ctx, "GET", "/v2/positions/"+ticker, nil)
	if err != nil {
		return nil, err
	}

	var parsed alpacaPosition
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode position response: %w", err)
	}

	return &Position{
		Symbol:      parsed.Symbol,
		Qty:         parseFloat(parsed.Qty),
		MarketValue: parseFloat(parsed.MarketValue),
	}, nil
}

// Close releases the underlying HTTP transport.
func (c *AlpacaClient) Close() error {
	c.http.GetClient().CloseIdleConnections()
	return nil
}
