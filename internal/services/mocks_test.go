package services

import (
	"context"
	"time"

	"github.com/sindbad/engage/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u *model.User) (*model.User, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByPhoneOrEmail(ctx context.Context, phone, email string) (*model.User, error) {
	args := m.Called(ctx, phone, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) EligibleBySegment(ctx context.Context, segment string) ([]*model.User, error) {
	args := m.Called(ctx, segment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.User), args.Error(1)
}

func (m *MockUserRepository) UpdatePlan(ctx context.Context, userID string, plan model.Plan, customerID string) error {
	args := m.Called(ctx, userID, plan, customerID)
	return args.Error(0)
}

func (m *MockUserRepository) LockForUpdate(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockUserRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, msg *model.Message) (*model.Message, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MockMessageRepository) CountSince(ctx context.Context, phone string, since time.Time) (int64, error) {
	args := m.Called(ctx, phone, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessageRepository) List(ctx context.Context, f model.MessageFilter) ([]*model.Message, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Message), args.Get(1).(int64), args.Error(2)
}

func (m *MockMessageRepository) CountByChannel(ctx context.Context, from, to time.Time) ([]model.ChannelCount, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ChannelCount), args.Error(1)
}

func (m *MockMessageRepository) TimeSeries(ctx context.Context, from, to time.Time) ([]model.DailyChannelCount, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DailyChannelCount), args.Error(1)
}

func (m *MockMessageRepository) SegmentStats(ctx context.Context, from, to time.Time) ([]model.SegmentStats, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SegmentStats), args.Error(1)
}

type MockCampaignRepository struct {
	mock.Mock
}

func (m *MockCampaignRepository) Insert(ctx context.Context, c *model.Campaign) (*model.Campaign, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Campaign), args.Error(1)
}

func (m *MockCampaignRepository) Get(ctx context.Context, id, variant string) (*model.Campaign, error) {
	args := m.Called(ctx, id, variant)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Campaign), args.Error(1)
}

func (m *MockCampaignRepository) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockCampaignRepository) IncrementSent(ctx context.Context, id, variantKey string) (int64, error) {
	args := m.Called(ctx, id, variantKey)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCampaignRepository) IncrementOpened(ctx context.Context, id, url string) (int64, error) {
	args := m.Called(ctx, id, url)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCampaignRepository) IncrementClicked(ctx context.Context, id, url string) (int64, error) {
	args := m.Called(ctx, id, url)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCampaignRepository) IncrementConverted(ctx context.Context, id, url string, value float64) (int64, error) {
	args := m.Called(ctx, id, url, value)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCampaignRepository) ListBetween(ctx context.Context, from, to time.Time) ([]*model.Campaign, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Campaign), args.Error(1)
}

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Send(ctx context.Context, ch model.Channel, recipient, subject, body string) error {
	args := m.Called(ctx, ch, recipient, subject, body)
	return args.Error(0)
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Send(ctx context.Context, req model.DispatchRequest) ([]ChannelOutcome, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ChannelOutcome), args.Error(1)
}

type MockStorefront struct {
	mock.Mock
}

func (m *MockStorefront) Product(ctx context.Context, id string) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

type MockBilling struct {
	mock.Mock
}

func (m *MockBilling) CreatePaymentLink(ctx context.Context, req model.PaymentLinkRequest) (*model.PaymentLink, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentLink), args.Error(1)
}

func (m *MockBilling) CreateSubscriptionCheckout(ctx context.Context, email string, plan model.Plan, price float64) (*model.CheckoutSession, error) {
	args := m.Called(ctx, email, plan, price)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CheckoutSession), args.Error(1)
}

type MockResponder struct {
	mock.Mock
}

func (m *MockResponder) Reply(ctx context.Context, u *model.User, text string) (string, error) {
	args := m.Called(ctx, u, text)
	return args.String(0), args.Error(1)
}

type MockConversionRecorder struct {
	mock.Mock
}

func (m *MockConversionRecorder) RecordConversion(ctx context.Context, campaignID, url string, value float64) error {
	args := m.Called(ctx, campaignID, url, value)
	return args.Error(0)
}
