package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avelez/storefront/internal/cart/domain"
)

// Client reads product and stock data from the inventory oracle. The core
// never writes inventory; every cart mutation and checkout re-check goes
// through GetProduct for a fresh availability count.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/products/"+url.PathEscape(id), nil)
	if err != nil {
		return domain.Product{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Product{}, fmt.Errorf("inventory request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return domain.Product{}, domain.ErrProductNotFound
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.Product{}, fmt.Errorf("inventory returned %d: %s", resp.StatusCode, detail)
	}

	var product domain.Product
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return domain.Product{}, fmt.Errorf("decode product: %w", err)
	}
	if product.ID == "" {
		product.ID = id
	}
	return product, nil
}
