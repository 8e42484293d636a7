package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sindbad/engage/internal/config"
	gateway "github.com/sindbad/engage/internal/gateways"
	"github.com/sindbad/engage/internal/processor"
	"github.com/sindbad/engage/internal/repository"
	"github.com/sindbad/engage/internal/services"
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
	dispatchService := services.NewDispatchService(userRepo, messageRepo, campaignRepo, transport, config.Get().EmailSubject)

	// Initialize idempotency service
	idempotencyConfig := processor.DefaultIdempotencyConfig()
	idempotencyService := processor.NewIdempotencyService(redisAdap, idempotencyConfig)

	service, err := processor.NewProcessorService(redisAdap)
	if err != nil {
		logger.Error("failed to create the processor", "error", err)
		return
	}
	service.RegisterProcessor(processor.NewDispatchProcessor(dispatchService, idempotencyService))

	var hostname string
	hostname, err = os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	err = prom.Create(hostname, config.Get().AppEnv, config.Get().PromNamespace)
	if err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}

	go func() {
		prom.ListenAndServer(":9100", "/metrics")
	}()

	go func() {
		err := service.Start()
		if err != nil {
			logger.Error("failed to start processor", "error", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	select {
	case <-c:
		service.Stop()
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
