package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sindbad/engage/internal/model"
)

// StorefrontClient resolves product details from the shop backend.
type StorefrontClient struct {
	client *jsonClient
}

func NewStorefrontClient(baseURL, token string, timeout time.Duration) *StorefrontClient {
	return &StorefrontClient{
		client: newJSONClient(baseURL, token, timeout),
	}
}

func (c *StorefrontClient) Product(ctx context.Context, id string) (*model.Product, error) {
	body, err := c.client.do(ctx, "GET", "/api/v1/products/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch product %s: %w", id, err)
	}

	var product model.Product
	if err := json.Unmarshal(body, &product); err != nil {
		return nil, fmt.Errorf("failed to unmarshal product: %w", err)
	}
	if product.Currency == "" {
		product.Currency = "EUR"
	}
	return &product, nil
}
