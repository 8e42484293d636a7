package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Simulator stands in for every partner API the platform talks to:
// the whatsapp, sms and email providers, the storefront catalog, the
// billing provider and the reply assistant. One process, all routes.
type Simulator struct {
	deliveryRate float64
	minDelay     time.Duration
	maxDelay     time.Duration
	instanceID   string
	rng          *rand.Rand
}

func NewSimulator(deliveryRate float64, minDelay, maxDelay time.Duration) *Simulator {
	return &Simulator{
		deliveryRate: deliveryRate,
		minDelay:     minDelay,
		maxDelay:     maxDelay,
		instanceID:   "SIM_" + uuid.New().String()[:8],
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Simulator) randomDelay() time.Duration {
	if s.maxDelay <= s.minDelay {
		return s.minDelay
	}
	delta := s.maxDelay - s.minDelay
	return s.minDelay + time.Duration(s.rng.Int63n(int64(delta)))
}

func (s *Simulator) shouldSucceed() bool {
	return s.rng.Float64() < s.deliveryRate
}

// simulate sleeps for a provider-ish delay and rolls the dice.
func (s *Simulator) simulate() bool {
	time.Sleep(s.randomDelay())
	return s.shouldSucceed()
}

type Handler struct {
	sim *Simulator
}

func NewHandler(sim *Simulator) *Handler {
	return &Handler{sim: sim}
}

// SendWhatsApp mimics the whatsapp cloud messages endpoint.
func (h *Handler) SendWhatsApp(c *gin.Context) {
	var req struct {
		MessagingProduct string `json:"messaging_product"`
		To               string `json:"to" binding:"required"`
		Text             struct {
			Body string `json:"body"`
		} `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": err.Error()}})
		return
	}

	if !h.sim.simulate() {
		log.Warn().Str("to", req.To).Msg("whatsapp delivery failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "message undeliverable", "code": 131026}})
		return
	}

	log.Info().Str("to", req.To).Msg("whatsapp message delivered")
	c.JSON(http.StatusOK, gin.H{
		"messaging_product": "whatsapp",
		"contacts":          []gin.H{{"wa_id": req.To}},
		"messages":          []gin.H{{"id": "wamid." + uuid.New().String()}},
	})
}

// SendSMS mimics the sms provider's account-scoped messages endpoint,
// which takes form-encoded To/From/Body.
func (h *Handler) SendSMS(c *gin.Context) {
	to := c.PostForm("To")
	body := c.PostForm("Body")
	if to == "" || body == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": 21201, "message": "To and Body are required"})
		return
	}

	if !h.sim.simulate() {
		log.Warn().Str("to", to).Msg("sms delivery failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": 30005, "message": "unreachable destination handset"})
		return
	}

	log.Info().Str("to", to).Msg("sms delivered")
	c.JSON(http.StatusCreated, gin.H{
		"sid":    "SM" + uuid.New().String()[:32],
		"to":     to,
		"status": "queued",
	})
}

// SendEmail mimics the email provider's v3 send endpoint, which
// returns 202 with an empty body on success.
func (h *Handler) SendEmail(c *gin.Context) {
	var req struct {
		Personalizations []struct {
			To []struct {
				Email string `json:"email"`
			} `json:"to"`
		} `json:"personalizations" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []gin.H{{"message": err.Error()}}})
		return
	}

	to := ""
	if len(req.Personalizations) > 0 && len(req.Personalizations[0].To) > 0 {
		to = req.Personalizations[0].To[0].Email
	}

	if !h.sim.simulate() {
		log.Warn().Str("to", to).Msg("email delivery failed")
		c.JSON(http.StatusInternalServerError, gin.H{"errors": []gin.H{{"message": "upstream mail relay error"}}})
		return
	}

	log.Info().Str("to", to).Msg("email accepted")
	c.Status(http.StatusAccepted)
}

// Reply mimics the assistant that drafts answers for inbound messages.
func (h *Handler) Reply(c *gin.Context) {
	var req struct {
		Message  string `json:"message" binding:"required"`
		Language string `json:"language"`
		Segment  string `json:"segment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	replies := []string{
		"Thanks for reaching out! A teammate will follow up shortly.",
		"Great question. You can find that in your account settings.",
		"We ship within 2 business days across the EU.",
		"You can manage your subscription from the billing page.",
	}
	reply := replies[h.sim.rng.Intn(len(replies))]

	log.Info().Str("segment", req.Segment).Msg("assistant reply generated")
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

var catalog = map[string]gin.H{
	"42": {"id": "42", "name": "Linen Shirt", "description": "Relaxed fit, breathable linen.", "price": 49.95, "currency": "EUR", "url": "https://shop.example.com/p/42"},
	"43": {"id": "43", "name": "Canvas Tote", "description": "Heavy duty everyday carry.", "price": 19.50, "currency": "EUR", "url": "https://shop.example.com/p/43"},
	"44": {"id": "44", "name": "Wool Beanie", "description": "Merino wool, one size.", "price": 24.00, "currency": "EUR", "url": "https://shop.example.com/p/44"},
}

// GetProduct mimics the storefront catalog lookup.
func (h *Handler) GetProduct(c *gin.Context) {
	id := c.Param("id")
	product, ok := catalog[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	c.JSON(http.StatusOK, product)
}

// CreatePaymentLink mimics the billing provider's payment link API.
func (h *Handler) CreatePaymentLink(c *gin.Context) {
	var req struct {
		Amount   float64           `json:"amount" binding:"required"`
		Currency string            `json:"currency"`
		Metadata map[string]string `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": err.Error()}})
		return
	}

	id := "plink_" + uuid.New().String()[:24]
	log.Info().Str("id", id).Float64("amount", req.Amount).Msg("payment link created")
	c.JSON(http.StatusOK, gin.H{
		"id":       id,
		"url":      "https://pay.example.com/l/" + id,
		"amount":   req.Amount,
		"currency": req.Currency,
		"metadata": req.Metadata,
	})
}

// CreateCheckoutSession mimics the billing provider's subscription
// checkout API.
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	var req struct {
		CustomerEmail string  `json:"customer_email" binding:"required"`
		Plan          string  `json:"plan" binding:"required"`
		Price         float64 `json:"price"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": err.Error()}})
		return
	}

	id := "cs_" + uuid.New().String()[:24]
	log.Info().Str("id", id).Str("plan", req.Plan).Msg("checkout session created")
	c.JSON(http.StatusOK, gin.H{
		"id":             id,
		"url":            "https://pay.example.com/c/" + id,
		"customer_email": req.CustomerEmail,
		"plan":           req.Plan,
	})
}

// HealthCheck reports simulator health, with occasional fake downtime.
func (h *Handler) HealthCheck(c *gin.Context) {
	if h.sim.rng.Float64() < 0.05 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  "simulator temporarily unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"instance_id":   h.sim.instanceID,
		"timestamp":     time.Now(),
		"delivery_rate": h.sim.deliveryRate,
	})
}

// UpdateConfig allows changing the delivery rate at runtime, so
// failure handling can be exercised against a live stack.
func (h *Handler) UpdateConfig(c *gin.Context) {
	var config struct {
		DeliveryRate *float64 `json:"delivery_rate"`
	}

	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if config.DeliveryRate != nil {
		if *config.DeliveryRate >= 0 && *config.DeliveryRate <= 1.0 {
			h.sim.deliveryRate = *config.DeliveryRate
			log.Info().Float64("rate", *config.DeliveryRate).Msg("Updated delivery rate")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Configuration updated",
		"delivery_rate": h.sim.deliveryRate,
	})
}

// SetupRouter configures all routes
func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	// Add request logging middleware
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Msg("Request processed")
	})

	// Channel providers
	router.POST("/messages", handler.SendWhatsApp)
	router.POST("/2010-04-01/Accounts/:sid/Messages.json", handler.SendSMS)
	router.POST("/v3/mail/send", handler.SendEmail)

	// Billing provider
	router.POST("/v1/payment_links", handler.CreatePaymentLink)
	router.POST("/v1/checkout/sessions", handler.CreateCheckoutSession)

	// Storefront and assistant
	v1 := router.Group("/api/v1")
	{
		v1.GET("/products/:id", handler.GetProduct)
		v1.POST("/reply", handler.Reply)
		v1.GET("/health", handler.HealthCheck)
		v1.PUT("/config", handler.UpdateConfig)
	}

	// Root health check
	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Get configuration from environment
	port := getEnv("PORT", "8081")
	deliveryRate := getEnvFloat("DELIVERY_RATE", 1)
	minDelay := getEnvDuration("MIN_DELAY", 50*time.Millisecond)
	maxDelay := getEnvDuration("MAX_DELAY", 500*time.Millisecond)

	log.Info().
		Str("port", port).
		Float64("delivery_rate", deliveryRate).
		Dur("min_delay", minDelay).
		Dur("max_delay", maxDelay).
		Msg("Starting partner API simulator")

	sim := NewSimulator(deliveryRate, minDelay, maxDelay)
	handler := NewHandler(sim)
	router := SetupRouter(handler)

	// Setup HTTP server
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
