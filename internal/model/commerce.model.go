package model

import "errors"

// Product is a storefront item offered through a checkout message.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	URL         string  `json:"url"`
}

// PaymentLinkRequest asks the billing provider for a hosted payment
// page. CampaignID travels as link metadata so the payment webhook can
// attribute the conversion back to the campaign that drove it.
type PaymentLinkRequest struct {
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Description string  `json:"description"`
	ProductID   string  `json:"product_id,omitempty"`
	CampaignID  string  `json:"campaign_id,omitempty"`
}

type PaymentLink struct {
	ID         string  `json:"id"`
	URL        string  `json:"url"`
	Amount     float64 `json:"amount"`
	CampaignID string  `json:"campaign_id,omitempty"`
}

// CheckoutSession is a hosted subscription checkout page.
type CheckoutSession struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	CustomerID string `json:"customer_id"`
}

// ProductCheckoutRequest pushes a buy-now message for one product to
// one recipient.
type ProductCheckoutRequest struct {
	Phone      string  `json:"phone"`
	Email      string  `json:"email"`
	ProductID  string  `json:"product_id"`
	Channel    Channel `json:"channel"`
	CampaignID string  `json:"campaign_id,omitempty"`
}

func (r ProductCheckoutRequest) Validate() error {
	if r.Phone == "" && r.Email == "" {
		return errors.New("phone or email is required")
	}
	if r.ProductID == "" {
		return errors.New("product_id is required")
	}
	if !r.Channel.Concrete() && r.Channel != ChannelMulti {
		return errors.New("unknown channel: " + string(r.Channel))
	}
	return nil
}

// SubscribeRequest starts a plan subscription for a recipient.
type SubscribeRequest struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
	Plan  Plan   `json:"plan"`
}

func (r SubscribeRequest) Validate() error {
	if r.Phone == "" && r.Email == "" {
		return errors.New("phone or email is required")
	}
	if _, ok := PlanPrices[r.Plan]; !ok {
		return errors.New("unknown plan: " + string(r.Plan))
	}
	return nil
}

// PaymentEvent is the billing provider's completed-payment webhook
// payload after verification.
type PaymentEvent struct {
	Amount     float64 `json:"amount"`
	URL        string  `json:"url"`
	CampaignID string  `json:"campaign_id"`
}

// SubscriptionEvent is the billing provider's subscription-activated
// webhook payload after verification.
type SubscriptionEvent struct {
	Email      string `json:"email"`
	CustomerID string `json:"customer_id"`
	Plan       Plan   `json:"plan"`
}
