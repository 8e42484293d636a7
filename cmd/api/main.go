package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sindbad/engage/internal/config"
	gateway "github.com/sindbad/engage/internal/gateways"
	"github.com/sindbad/engage/internal/handlers"
	"github.com/sindbad/engage/internal/queue"
	"github.com/sindbad/engage/internal/repository"
	"github.com/sindbad/engage/internal/services"
	xhttp "github.com/sindbad/engage/pkg/http"
	"github.com/sindbad/engage/pkg/logger"
	"github.com/sindbad/engage/pkg/pg"
	"github.com/sindbad/engage/pkg/prom"
	"github.com/sindbad/engage/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	// transport (tcp for now)
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 10))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	pgDebug := false
	if config.Get().AppEnv == "dev" {
		pgDebug = true
	}
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "default",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	transport, err := gateway.NewTransport(transportConfig())
	if err != nil {
		logger.Error("failed to create channel transport", "error", err)
		return
	}

	userRepo := repository.NewUserRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)

	// services
	dispatchService := services.NewDispatchService(userRepo, messageRepo, campaignRepo, transport, config.Get().EmailSubject)

	// The message endpoints and the campaign fan-out either send inline
	// or publish to the dispatch queue that cmd/worker consumes.
	var messageService handlers.DispatchService = dispatchService
	var campaignDispatcher services.Dispatcher = dispatchService
	if config.Get().DispatchAsync {
		q, err := queue.NewQueue(redisAdap, queue.QueueConfig{
			Name:              config.Get().QueueName,
			ConsumerGroup:     config.Get().QueueConsumerGroup,
			ConsumerName:      config.Get().QueueConsumerName,
			MaxRetries:        config.Get().QueueMaxRetries,
			VisibilityTimeout: config.Get().QueueVisibilityTimeout,
			PollInterval:      config.Get().QueuePollInterval,
			BatchSize:         config.Get().QueueBatchSize,
			MaxLen:            config.Get().QueueMaxLen,
			EnableDLQ:         config.Get().QueueEnableDLQ,
		})
		if err != nil {
			logger.Error("failed creating dispatch queue", "error", err)
			return
		}
		async := services.NewAsyncDispatchService(q, messageRepo)
		messageService = async
		campaignDispatcher = async
	}

	campaignService := services.NewCampaignService(userRepo, campaignRepo, campaignDispatcher, nil)
	engagementService := services.NewEngagementService(campaignRepo)
	analyticsService := services.NewAnalyticsService(messageRepo, campaignRepo)

	storefront := gateway.NewStorefrontClient(config.Get().StorefrontApiUrl, config.Get().StorefrontApiToken, config.Get().TransportTimeout)
	billing := gateway.NewBillingClient(config.Get().BillingApiUrl, config.Get().BillingApiKey, config.Get().TransportTimeout)
	assistant := gateway.NewAssistantClient(config.Get().AssistantApiUrl, config.Get().AssistantApiKey, config.Get().TransportTimeout)

	checkoutService := services.NewCheckoutService(storefront, billing, userRepo, dispatchService, engagementService)
	replyService := services.NewReplyService(userRepo, assistant, dispatchService)

	// v1 handlers
	dispatchHandler := handlers.NewDispatchHandler(messageService)
	campaignHandler := handlers.NewCampaignHandler(campaignService)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService)
	webhookHandler := handlers.NewWebhookHandler(replyService, checkoutService)
	engagementHandler := handlers.NewEngagementHandler(engagementService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)
	healthHandler := handlers.NewHealthHandler(transport)

	g := s.Router.Group("/api/v1")
	handlers.RegisterDispatchRoutes(g, dispatchHandler)
	handlers.RegisterCampaignRoutes(g, campaignHandler)
	handlers.RegisterCheckoutRoutes(g, checkoutHandler)
	handlers.RegisterWebhookRoutes(g, webhookHandler)
	handlers.RegisterEngagementRoutes(g, engagementHandler)
	handlers.RegisterAnalyticsRoutes(g, analyticsHandler)
	handlers.RegisterHealthRoutes(g, healthHandler)

	var hostname string
	hostname, err = os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	if err := prom.Create(hostname, config.Get().AppEnv, config.Get().PromNamespace); err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}
	if config.Get().AppDebugMetricsAddr != "" {
		go prom.ListenAndServer(config.Get().AppDebugMetricsAddr, config.Get().AppDebugMetricsURI)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		var err = s.ListenAndServe(config.Get().HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	select {
	case <-c:
		s.Shutdown()
	}
}

func transportConfig() *gateway.TransportConfig {
	return &gateway.TransportConfig{
		WhatsApp: gateway.ChannelConfig{
			URL:   config.Get().WhatsAppApiUrl,
			Token: config.Get().WhatsAppApiToken,
		},
		SMS: gateway.ChannelConfig{
			URL:       config.Get().SmsApiUrl,
			Token:     config.Get().SmsApiToken,
			AccountID: config.Get().SmsAccountSid,
			From:      config.Get().SmsFromNumber,
		},
		Email: gateway.ChannelConfig{
			URL:      config.Get().EmailApiUrl,
			Token:    config.Get().EmailApiToken,
			From:     config.Get().EmailFromAddress,
			FromName: config.Get().EmailFromName,
		},
		Timeout:         config.Get().TransportTimeout,
		MaxRetries:      config.Get().TransportMaxRetries,
		RetryDelay:      config.Get().TransportRetryDelay,
		MaxConns:        1000,
		ReadBufferSize:  1024 * 4,
		WriteBufferSize: 1024 * 4,
	}
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
