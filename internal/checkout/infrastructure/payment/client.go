package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avelez/storefront/internal/checkout/application"
	"github.com/avelez/storefront/internal/checkout/domain"
)

// Client talks to the external payment processor over HTTP. The core only
// keeps the session id and redirect target out of the response.
type Client struct {
	log        *slog.Logger
	baseURL    string
	httpClient *http.Client
}

func NewClient(log *slog.Logger, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		log:        log,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type sessionLineItem struct {
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	UnitAmountCent int64  `json:"unit_amount_cents"`
	Quantity       int    `json:"quantity"`
}

type createSessionReq struct {
	Reference  string            `json:"reference"`
	LineItems  []sessionLineItem `json:"line_items"`
	SuccessURL string            `json:"success_url"`
	CancelURL  string            `json:"cancel_url"`
}

type createSessionResp struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

func (c *Client) CreateSession(ctx context.Context, req application.SessionRequest) (domain.Session, error) {
	body := createSessionReq{
		Reference:  req.Reference,
		LineItems:  make([]sessionLineItem, 0, len(req.Lines)),
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	}
	for _, l := range req.Lines {
		body.LineItems = append(body.LineItems, sessionLineItem{
			ProductID:      l.ProductID,
			Name:           l.Product.Name,
			UnitAmountCent: cents(l.Product.EffectiveUnitPrice()),
			Quantity:       l.Quantity,
		})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return domain.Session{}, fmt.Errorf("marshal session request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/checkout/sessions", bytes.NewReader(payload))
	if err != nil {
		return domain.Session{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.Session{}, fmt.Errorf("payment processor request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.Session{}, fmt.Errorf("payment processor returned %d: %s", resp.StatusCode, detail)
	}

	var out createSessionResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Session{}, fmt.Errorf("decode session response: %w", err)
	}
	if out.SessionID == "" || out.RedirectURL == "" {
		return domain.Session{}, fmt.Errorf("payment processor returned incomplete session")
	}

	return domain.Session{SessionID: out.SessionID, RedirectURL: out.RedirectURL}, nil
}

func cents(amount decimal.Decimal) int64 {
	return amount.Round(2).Mul(decimal.NewFromInt(100)).IntPart()
}
