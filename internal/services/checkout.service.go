package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sindbad/engage/internal/model"
	"github.com/sindbad/engage/internal/repository"
	"github.com/sindbad/engage/pkg/logger"
)

var (
	ErrUnknownProduct = errors.New("unknown product")
	ErrUnknownPlan    = errors.New("unknown plan")
)

type Storefront interface {
	Product(ctx context.Context, id string) (*model.Product, error)
}

type Billing interface {
	CreatePaymentLink(ctx context.Context, req model.PaymentLinkRequest) (*model.PaymentLink, error)
	CreateSubscriptionCheckout(ctx context.Context, email string, plan model.Plan, price float64) (*model.CheckoutSession, error)
}

type CheckoutUserRepository interface {
	FindByPhoneOrEmail(ctx context.Context, phone, email string) (*model.User, error)
	UpdatePlan(ctx context.Context, userID string, plan model.Plan, customerID string) error
}

type ConversionRecorder interface {
	RecordConversion(ctx context.Context, campaignID, url string, value float64) error
}

// CheckoutService wires the storefront and the billing provider into
// the messaging flows: product offers with a hosted pay link, plan
// subscriptions, and the webhooks that close the loop.
type CheckoutService struct {
	storefront  Storefront
	billing     Billing
	users       CheckoutUserRepository
	dispatcher  Dispatcher
	engagements ConversionRecorder
}

func NewCheckoutService(storefront Storefront, billing Billing, users CheckoutUserRepository, dispatcher Dispatcher, engagements ConversionRecorder) *CheckoutService {
	return &CheckoutService{
		storefront:  storefront,
		billing:     billing,
		users:       users,
		dispatcher:  dispatcher,
		engagements: engagements,
	}
}

// SendProductCheckout looks the product up, mints a payment link
// carrying the campaign attribution and pushes the offer to the
// recipient.
func (s *CheckoutService) SendProductCheckout(ctx context.Context, req model.ProductCheckoutRequest) ([]ChannelOutcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	product, err := s.storefront.Product(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProduct, req.ProductID)
	}

	link, err := s.billing.CreatePaymentLink(ctx, model.PaymentLinkRequest{
		Amount:      product.Price,
		Currency:    product.Currency,
		Description: product.Name,
		ProductID:   product.ID,
		CampaignID:  req.CampaignID,
	})
	if err != nil {
		return nil, fmt.Errorf("create payment link: %w", err)
	}

	body := fmt.Sprintf("%s\n%s\n%.2f %s\nPay here: %s",
		product.Name, product.Description, product.Price, product.Currency, link.URL)

	outcomes, err := s.dispatcher.Send(ctx, model.DispatchRequest{
		Phone:      req.Phone,
		Email:      req.Email,
		Body:       body,
		Subject:    product.Name,
		Channel:    req.Channel,
		CampaignID: req.CampaignID,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("[checkout] product offer sent", "product_id", product.ID, "campaign_id", req.CampaignID, "sent", SentCount(outcomes))
	return outcomes, nil
}

// CreatePaymentLink mints a standalone payment link.
func (s *CheckoutService) CreatePaymentLink(ctx context.Context, req model.PaymentLinkRequest) (*model.PaymentLink, error) {
	if req.Amount <= 0 {
		return nil, errors.New("amount must be positive")
	}
	link, err := s.billing.CreatePaymentLink(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create payment link: %w", err)
	}
	return link, nil
}

// Subscribe starts a paid-plan checkout and sends the recipient the
// hosted checkout url. The plan change itself lands later through the
// subscription webhook, once the provider confirms payment.
func (s *CheckoutService) Subscribe(ctx context.Context, req model.SubscribeRequest) (*model.CheckoutSession, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	price, ok := model.PlanPrices[req.Plan]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlan, req.Plan)
	}

	user, err := s.users.FindByPhoneOrEmail(ctx, req.Phone, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find subscriber: %w", err)
	}

	session, err := s.billing.CreateSubscriptionCheckout(ctx, user.Email, req.Plan, price)
	if err != nil {
		return nil, fmt.Errorf("create subscription checkout: %w", err)
	}

	body := fmt.Sprintf("Subscribe to the %s plan (%.2f EUR/month): %s", req.Plan, price, session.URL)
	if _, err := s.dispatcher.Send(ctx, model.DispatchRequest{
		Phone:   user.Phone,
		Email:   user.Email,
		Body:    body,
		Subject: "Your subscription",
		Channel: model.ChannelWhatsApp,
	}); err != nil && !errors.Is(err, ErrUserNotFound) {
		logger.Warn("[checkout] subscription link message failed", "phone", user.Phone, "error", err)
	}

	return session, nil
}

// HandlePaymentWebhook attributes a completed payment back to its
// campaign as a conversion.
func (s *CheckoutService) HandlePaymentWebhook(ctx context.Context, event model.PaymentEvent) error {
	if event.CampaignID == "" || event.URL == "" {
		// Payments outside a campaign do not carry attribution; nothing
		// to record.
		logger.Debug("[checkout] payment without campaign attribution", "amount", event.Amount)
		return nil
	}
	return s.engagements.RecordConversion(ctx, event.CampaignID, event.URL, event.Amount)
}

// HandleSubscriptionWebhook activates the plan the provider confirmed
// and tells the subscriber.
func (s *CheckoutService) HandleSubscriptionWebhook(ctx context.Context, event model.SubscriptionEvent) error {
	if _, ok := model.PlanPrices[event.Plan]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlan, event.Plan)
	}

	user, err := s.users.FindByPhoneOrEmail(ctx, "", event.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find subscriber: %w", err)
	}

	if err := s.users.UpdatePlan(ctx, user.ID, event.Plan, event.CustomerID); err != nil {
		return fmt.Errorf("update plan: %w", err)
	}

	body := fmt.Sprintf("Your %s plan is now active. Welcome aboard!", event.Plan)
	if _, err := s.dispatcher.Send(ctx, model.DispatchRequest{
		Phone:   user.Phone,
		Email:   user.Email,
		Body:    body,
		Subject: "Subscription active",
		Channel: model.ChannelWhatsApp,
	}); err != nil {
		logger.Warn("[checkout] subscription confirmation failed", "phone", user.Phone, "error", err)
	}

	logger.Info("[checkout] plan activated", "user_id", user.ID, "plan", event.Plan)
	return nil
}
