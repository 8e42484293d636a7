package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sindbad/engage/internal/model"
)

// BillingClient talks to the payment provider: hosted payment links
// for one-off purchases and checkout sessions for subscriptions.
type BillingClient struct {
	client *jsonClient
}

func NewBillingClient(baseURL, apiKey string, timeout time.Duration) *BillingClient {
	return &BillingClient{
		client: newJSONClient(baseURL, apiKey, timeout),
	}
}

func (c *BillingClient) CreatePaymentLink(ctx context.Context, req model.PaymentLinkRequest) (*model.PaymentLink, error) {
	if req.Currency == "" {
		req.Currency = "EUR"
	}
	payload, err := json.Marshal(map[string]interface{}{
		"amount":      req.Amount,
		"currency":    req.Currency,
		"description": req.Description,
		"metadata": map[string]string{
			"product_id":  req.ProductID,
			"campaign_id": req.CampaignID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	body, err := c.client.do(ctx, "POST", "/v1/payment_links", payload)
	if err != nil {
		return nil, fmt.Errorf("create payment link: %w", err)
	}

	var link model.PaymentLink
	if err := json.Unmarshal(body, &link); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment link: %w", err)
	}
	link.CampaignID = req.CampaignID
	return &link, nil
}

func (c *BillingClient) CreateSubscriptionCheckout(ctx context.Context, email string, plan model.Plan, price float64) (*model.CheckoutSession, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"customer_email": email,
		"mode":           "subscription",
		"plan":           string(plan),
		"amount":         price,
		"currency":       "EUR",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	body, err := c.client.do(ctx, "POST", "/v1/checkout/sessions", payload)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	var session model.CheckoutSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}
	return &session, nil
}
