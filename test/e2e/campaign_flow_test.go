package e2e

import (
	"context"
	"fmt"
	"math/rand"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sindbad/engage/internal/model"
	"github.com/sindbad/engage/internal/processor"
	"github.com/sindbad/engage/internal/queue"
	"github.com/sindbad/engage/internal/repository"
	"github.com/sindbad/engage/internal/routing"
	"github.com/sindbad/engage/internal/services"
	"github.com/sindbad/engage/pkg/pg"
	"github.com/sindbad/engage/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testDB = pg.DB

// fakeTransport records deliveries instead of calling providers.
type fakeTransport struct {
	mu   sync.Mutex
	sent []fakeDelivery
	fail map[model.Channel]error
}

type fakeDelivery struct {
	Channel   model.Channel
	Recipient string
	Subject   string
	Body      string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{fail: make(map[model.Channel]error)}
}

func (t *fakeTransport) Send(ctx context.Context, ch model.Channel, recipient, subject, body string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err, ok := t.fail[ch]; ok {
		return err
	}
	t.sent = append(t.sent, fakeDelivery{Channel: ch, Recipient: recipient, Subject: subject, Body: body})
	return nil
}

func (t *fakeTransport) deliveries() []fakeDelivery {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]fakeDelivery, len(t.sent))
	copy(out, t.sent)
	return out
}

type TestEnvironment struct {
	DB                *pg.DB
	Redis             *miniredis.Miniredis
	RedisAdapter      redis.RedisAdapter
	Queue             *queue.Queue
	Transport         *fakeTransport
	UserRepo          *repository.UserRepository
	MessageRepo       *repository.MessageRepository
	CampaignRepo      *repository.CampaignRepository
	DispatchService   *services.DispatchService
	CampaignService   *services.CampaignService
	EngagementService *services.EngagementService
}

func setupE2EEnvironment(t *testing.T) *TestEnvironment {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&repository.UserEntity{},
		&repository.CampaignEntity{},
		&repository.MessageEntity{},
	)
	require.NoError(t, err)

	pgDB := &testDB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	mr, err := miniredis.Run()
	require.NoError(t, err)

	// Use unique connection name per test to avoid global adapter caching issues
	connName := fmt.Sprintf("test-%d", time.Now().UnixNano())
	redisAdapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	queueConfig := queue.QueueConfig{
		Name:              "test:dispatch",
		ConsumerGroup:     "test-group",
		ConsumerName:      "test-consumer",
		MaxRetries:        3,
		VisibilityTimeout: 5 * time.Second,
		PollInterval:      100 * time.Millisecond,
		BatchSize:         10,
		MaxLen:            1000,
		EnableDLQ:         true,
	}

	q, err := queue.NewQueue(redisAdapter, queueConfig)
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(pgDB)
	messageRepo := repository.NewMessageRepository(pgDB)
	campaignRepo := repository.NewCampaignRepository(pgDB)

	transport := newFakeTransport()
	dispatchService := services.NewDispatchService(userRepo, messageRepo, campaignRepo, transport, "")
	campaignService := services.NewCampaignService(userRepo, campaignRepo, dispatchService, rand.New(rand.NewSource(1)))
	engagementService := services.NewEngagementService(campaignRepo)

	return &TestEnvironment{
		DB:                pgDB,
		Redis:             mr,
		RedisAdapter:      redisAdapter,
		Queue:             q,
		Transport:         transport,
		UserRepo:          userRepo,
		MessageRepo:       messageRepo,
		CampaignRepo:      campaignRepo,
		DispatchService:   dispatchService,
		CampaignService:   campaignService,
		EngagementService: engagementService,
	}
}

func (env *TestEnvironment) Cleanup() {
	// Stop queue first (gracefully drain messages)
	if env.Queue != nil {
		_ = env.Queue.Stop(5 * time.Second)
	}
	// Give time for any in-flight operations to complete
	time.Sleep(100 * time.Millisecond)
	// Then close Redis
	if env.Redis != nil {
		env.Redis.Close()
	}
}

func (env *TestEnvironment) createUser(t *testing.T, phone, email, segment string, plan model.Plan, optIn, optInEmail bool) *model.User {
	u, err := env.UserRepo.Create(context.Background(), &model.User{
		Phone:      phone,
		Email:      email,
		OptIn:      optIn,
		OptInEmail: optInEmail,
		Segment:    segment,
		Plan:       plan,
	})
	require.NoError(t, err)
	return u
}

func TestE2E_DispatchPersistsMessage(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()
	env.createUser(t, "+31601000001", "anna@example.com", "all", model.PlanPro, true, true)

	outcomes, err := env.DispatchService.Send(ctx, model.DispatchRequest{
		Phone:   "+31601000001",
		Body:    "hello from the flow test",
		Channel: model.ChannelWhatsApp,
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, services.OutcomeSent, outcomes[0].Status)

	deliveries := env.Transport.deliveries()
	require.Len(t, deliveries, 1)
	assert.Equal(t, "+31601000001", deliveries[0].Recipient)

	var count int64
	env.DB.Read(ctx).Model(&repository.MessageEntity{}).Where("user_id = ?", "+31601000001").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestE2E_MultiChannelExpansion(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()
	env.createUser(t, "+31601000002", "bram@example.com", "all", model.PlanPro, true, true)

	outcomes, err := env.DispatchService.Send(ctx, model.DispatchRequest{
		Phone:   "+31601000002",
		Body:    "everywhere at once",
		Channel: model.ChannelMulti,
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		assert.Equal(t, services.OutcomeSent, o.Status, string(o.Channel))
	}

	var count int64
	env.DB.Read(ctx).Model(&repository.MessageEntity{}).Count(&count)
	assert.Equal(t, int64(3), count)
}

func TestE2E_ProviderFailureIsolatedPerChannel(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()
	env.createUser(t, "+31601000009", "carla@example.com", "all", model.PlanPro, true, true)
	env.Transport.fail[model.ChannelSMS] = fmt.Errorf("provider down")

	outcomes, err := env.DispatchService.Send(ctx, model.DispatchRequest{
		Phone:   "+31601000009",
		Body:    "one provider is down",
		Channel: model.ChannelMulti,
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	byChannel := map[model.Channel]services.OutcomeStatus{}
	for _, o := range outcomes {
		byChannel[o.Channel] = o.Status
	}
	assert.Equal(t, services.OutcomeSent, byChannel[model.ChannelWhatsApp])
	assert.Equal(t, services.OutcomeFailed, byChannel[model.ChannelSMS])
	assert.Equal(t, services.OutcomeSent, byChannel[model.ChannelEmail])

	// Failed channels never leave a message row behind.
	var count int64
	env.DB.Read(ctx).Model(&repository.MessageEntity{}).Count(&count)
	assert.Equal(t, int64(2), count)
	assert.Len(t, env.Transport.deliveries(), 2)
}

func TestE2E_FreePlanQuota(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()
	env.createUser(t, "+31601000003", "", "all", model.PlanFree, true, false)

	// Exhaust the trailing window
	seed := make([]*repository.MessageEntity, 0, routing.FreePlanLimit)
	for i := 0; i < routing.FreePlanLimit; i++ {
		seed = append(seed, &repository.MessageEntity{
			ID:        fmt.Sprintf("seed-%d", i),
			Phone:     "+31601000003",
			Content:   "seed",
			Channel:   "whatsapp",
			CreatedAt: time.Now().Add(-time.Hour),
		})
	}
	require.NoError(t, env.DB.Write(ctx).CreateInBatches(seed, 100).Error)

	outcomes, err := env.DispatchService.Send(ctx, model.DispatchRequest{
		Phone:   "+31601000003",
		Body:    "one over the line",
		Channel: model.ChannelWhatsApp,
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, services.OutcomeSkipped, outcomes[0].Status)
	assert.Empty(t, env.Transport.deliveries())

	var count int64
	env.DB.Read(ctx).Model(&repository.MessageEntity{}).Where("user_id = ?", "+31601000003").Count(&count)
	assert.Equal(t, int64(routing.FreePlanLimit), count)
}

func TestE2E_CampaignFanoutSkipsNonConsenting(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()
	for i := 0; i < 6; i++ {
		env.createUser(t, fmt.Sprintf("+3160200%04d", i), "", "summer", model.PlanPro, true, false)
	}
	for i := 6; i < 10; i++ {
		env.createUser(t, fmt.Sprintf("+3160200%04d", i), "", "summer", model.PlanPro, false, false)
	}

	result, err := env.CampaignService.Create(ctx, model.CampaignCreateRequest{
		Name:     "summer sale",
		Message:  "Everything must go",
		Audience: "summer",
		Channel:  model.ChannelWhatsApp,
	})
	require.NoError(t, err)

	assert.Equal(t, 6, result.Recipients)
	assert.Equal(t, 6, result.Sent)
	assert.Len(t, env.Transport.deliveries(), 6)

	campaign, err := env.CampaignRepo.Get(ctx, result.CampaignID, "whatsapp")
	require.NoError(t, err)
	assert.Equal(t, int64(6), campaign.Sent)
}

func TestE2E_ABCampaignSplit(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		env.createUser(t, fmt.Sprintf("+3160300%04d", i), "", "all", model.PlanPro, true, false)
	}

	result, err := env.CampaignService.CreateAB(ctx, model.ABCampaignCreateRequest{
		Name:       "headline test",
		MessageA:   "Deal ends tonight",
		MessageB:   "Last chance for the deal",
		Audience:   "all",
		Channel:    model.ChannelWhatsApp,
		SplitRatio: 0.3,
	})
	require.NoError(t, err)

	assert.Equal(t, 10, result.Recipients)
	assert.Equal(t, 3, result.VariantA)
	assert.Equal(t, 7, result.VariantB)

	a, err := env.CampaignRepo.Get(ctx, result.CampaignID, "A")
	require.NoError(t, err)
	assert.Equal(t, int64(3), a.Sent)

	b, err := env.CampaignRepo.Get(ctx, result.CampaignID, "B")
	require.NoError(t, err)
	assert.Equal(t, int64(7), b.Sent)
}

func TestE2E_EngagementAttribution(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()
	env.createUser(t, "+31604000001", "", "all", model.PlanPro, true, false)

	result, err := env.CampaignService.Create(ctx, model.CampaignCreateRequest{
		Name:     "product push",
		Message:  "Check it out: https://shop.example.com/p/42",
		Audience: "all",
		Channel:  model.ChannelWhatsApp,
	})
	require.NoError(t, err)

	url := "https://shop.example.com/p/42"
	require.NoError(t, env.EngagementService.RecordClick(ctx, result.CampaignID, url))
	require.NoError(t, env.EngagementService.RecordClick(ctx, result.CampaignID, url))
	require.NoError(t, env.EngagementService.RecordConversion(ctx, result.CampaignID, url, 49.95))

	campaign, err := env.CampaignRepo.Get(ctx, result.CampaignID, "whatsapp")
	require.NoError(t, err)
	assert.Equal(t, int64(2), campaign.Clicked)
	assert.Equal(t, int64(1), campaign.Converted)
	assert.InDelta(t, 49.95, campaign.ConvertedValue, 0.001)
}

func TestE2E_AsyncDispatchThroughQueue(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()
	env.createUser(t, "+31605000001", "", "all", model.PlanPro, true, false)

	asyncDispatch := services.NewQueueDispatcher(env.Queue)
	outcomes, err := asyncDispatch.Send(ctx, model.DispatchRequest{
		Phone:   "+31605000001",
		Body:    "deferred delivery",
		Channel: model.ChannelWhatsApp,
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, services.OutcomeQueued, outcomes[0].Status)

	idempotency := processor.NewIdempotencyService(env.RedisAdapter, processor.DefaultIdempotencyConfig())
	jobProcessor := processor.NewDispatchProcessor(env.DispatchService, idempotency)

	done := make(chan error, 1)
	err = env.Queue.Consume(func(ctx context.Context, msg *queue.Message) error {
		err := jobProcessor.Process(ctx, msg)
		done <- err
		return err
	})
	require.NoError(t, err)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("dispatch job not consumed within timeout")
	}

	deliveries := env.Transport.deliveries()
	require.Len(t, deliveries, 1)
	assert.Equal(t, "+31605000001", deliveries[0].Recipient)

	var count int64
	env.DB.Read(ctx).Model(&repository.MessageEntity{}).Where("user_id = ?", "+31605000001").Count(&count)
	assert.Equal(t, int64(1), count)
}
