package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sindbad/engage/internal/model"
	"github.com/sindbad/engage/pkg/logger"
	"github.com/valyala/fasthttp"
)

var (
	ErrChannelNotConfigured = errors.New("channel not configured")
	ErrCircuitOpen          = errors.New("provider circuit open")
)

type ProviderMetrics struct {
	TotalRequests    atomic.Int64
	SuccessfulReqs   atomic.Int64
	FailedReqs       atomic.Int64
	TotalLatencyMs   atomic.Int64
	LastLatencyMs    atomic.Int64
	ConsecutiveFails atomic.Int32
	LastErrorTime    atomic.Int64
	LastSuccessTime  atomic.Int64

	mu             sync.RWMutex
	latencyHistory []int64
	maxHistorySize int
}

func NewProviderMetrics() *ProviderMetrics {
	return &ProviderMetrics{
		latencyHistory: make([]int64, 0, 100),
		maxHistorySize: 100,
	}
}

func (m *ProviderMetrics) RecordSuccess(latencyMs int64) {
	m.TotalRequests.Add(1)
	m.SuccessfulReqs.Add(1)
	m.TotalLatencyMs.Add(latencyMs)
	m.LastLatencyMs.Store(latencyMs)
	m.ConsecutiveFails.Store(0)
	m.LastSuccessTime.Store(time.Now().Unix())

	m.mu.Lock()
	if len(m.latencyHistory) >= m.maxHistorySize {
		m.latencyHistory = m.latencyHistory[1:]
	}
	m.latencyHistory = append(m.latencyHistory, latencyMs)
	m.mu.Unlock()
}

func (m *ProviderMetrics) RecordFailure() {
	m.TotalRequests.Add(1)
	m.FailedReqs.Add(1)
	m.ConsecutiveFails.Add(1)
	m.LastErrorTime.Store(time.Now().Unix())
}

func (m *ProviderMetrics) AvgLatencyMs() int64 {
	total := m.TotalRequests.Load()
	if total == 0 {
		return 0
	}
	return m.TotalLatencyMs.Load() / total
}

func (m *ProviderMetrics) SuccessRate() float64 {
	total := m.TotalRequests.Load()
	if total == 0 {
		return 1.0
	}
	return float64(m.SuccessfulReqs.Load()) / float64(total)
}

func (m *ProviderMetrics) P95LatencyMs() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.latencyHistory) == 0 {
		return 0
	}

	sorted := make([]int64, len(m.latencyHistory))
	copy(sorted, m.latencyHistory)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	p95Index := int(float64(len(sorted)) * 0.95)
	if p95Index >= len(sorted) {
		p95Index = len(sorted) - 1
	}
	return sorted[p95Index]
}

// ChannelConfig is one delivery provider endpoint.
type ChannelConfig struct {
	URL       string
	Token     string
	AccountID string // sms provider account sid
	From      string // sender phone number or email address
	FromName  string // email display name
}

type TransportConfig struct {
	WhatsApp ChannelConfig
	SMS      ChannelConfig
	Email    ChannelConfig

	Timeout                 time.Duration
	MaxRetries              int
	RetryDelay              time.Duration
	MaxConns                int
	ReadBufferSize          int
	WriteBufferSize         int
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration
}

type provider struct {
	channel          model.Channel
	config           ChannelConfig
	client           *fasthttp.Client
	metrics          *ProviderMetrics
	circuitOpenUntil atomic.Int64
}

func (p *provider) available() bool {
	return time.Now().Unix() > p.circuitOpenUntil.Load()
}

// Transport delivers messages over the configured channel providers:
// a hosted whatsapp API, an sms provider and a transactional email
// provider. Each channel keeps its own connection pool, metrics and
// circuit breaker, so a dead sms provider does not block email.
type Transport struct {
	config    *TransportConfig
	providers map[model.Channel]*provider
	mu        sync.RWMutex
}

func NewTransport(config *TransportConfig) (*Transport, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.CircuitBreakerThreshold == 0 {
		config.CircuitBreakerThreshold = 5
	}
	if config.CircuitBreakerTimeout == 0 {
		config.CircuitBreakerTimeout = 30 * time.Second
	}

	t := &Transport{
		config:    config,
		providers: make(map[model.Channel]*provider),
	}

	channels := map[model.Channel]ChannelConfig{
		model.ChannelWhatsApp: config.WhatsApp,
		model.ChannelSMS:      config.SMS,
		model.ChannelEmail:    config.Email,
	}
	for ch, cc := range channels {
		if cc.URL == "" {
			continue
		}
		t.providers[ch] = &provider{
			channel: ch,
			config:  cc,
			client: &fasthttp.Client{
				MaxConnsPerHost:     config.MaxConns,
				ReadTimeout:         config.Timeout,
				WriteTimeout:        config.Timeout,
				MaxIdleConnDuration: 60 * time.Second,
				ReadBufferSize:      config.ReadBufferSize,
				WriteBufferSize:     config.WriteBufferSize,
			},
			metrics: NewProviderMetrics(),
		}
		logger.Info("Channel provider initialized", "channel", string(ch), "url", cc.URL)
	}

	if len(t.providers) == 0 {
		return nil, errors.New("at least one channel provider is required")
	}

	return t, nil
}

// Send delivers one message over one concrete channel, retrying
// transient failures up to MaxRetries.
func (t *Transport) Send(ctx context.Context, ch model.Channel, recipient, subject, body string) error {
	p, ok := t.providers[ch]
	if !ok {
		return fmt.Errorf("%w: %s", ErrChannelNotConfigured, ch)
	}
	if !p.available() {
		return fmt.Errorf("%w: %s", ErrCircuitOpen, ch)
	}

	req, err := t.encode(p, recipient, subject, body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", ch, err)
	}

	var lastErr error
	for attempt := 0; attempt <= t.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(t.config.RetryDelay):
			}
		}

		startTime := time.Now()
		err := t.doRequest(ctx, p, req)
		latency := time.Since(startTime).Milliseconds()

		if err != nil {
			p.metrics.RecordFailure()
			t.checkCircuitBreaker(p)
			logger.Warn("Delivery request failed", "channel", string(ch), "error", err, "attempt", attempt+1)
			lastErr = err
			continue
		}

		p.metrics.RecordSuccess(latency)
		logger.Debug("Message delivered", "channel", string(ch), "latency_ms", latency)
		return nil
	}

	return fmt.Errorf("failed after %d attempts: %w", t.config.MaxRetries+1, lastErr)
}

type providerRequest struct {
	path        string
	contentType string
	authHeader  string
	body        []byte
}

// encode builds the provider-specific wire request for one delivery.
func (t *Transport) encode(p *provider, recipient, subject, body string) (*providerRequest, error) {
	switch p.channel {
	case model.ChannelWhatsApp:
		payload, err := json.Marshal(map[string]interface{}{
			"messaging_product": "whatsapp",
			"to":                recipient,
			"type":              "text",
			"text":              map[string]string{"body": body},
		})
		if err != nil {
			return nil, err
		}
		return &providerRequest{
			path:        "/messages",
			contentType: "application/json",
			authHeader:  "Bearer " + p.config.Token,
			body:        payload,
		}, nil

	case model.ChannelSMS:
		form := url.Values{}
		form.Set("To", recipient)
		form.Set("From", p.config.From)
		form.Set("Body", body)
		creds := base64.StdEncoding.EncodeToString([]byte(p.config.AccountID + ":" + p.config.Token))
		return &providerRequest{
			path:        fmt.Sprintf("/2010-04-01/Accounts/%s/Messages.json", p.config.AccountID),
			contentType: "application/x-www-form-urlencoded",
			authHeader:  "Basic " + creds,
			body:        []byte(form.Encode()),
		}, nil

	case model.ChannelEmail:
		payload, err := json.Marshal(map[string]interface{}{
			"personalizations": []map[string]interface{}{
				{"to": []map[string]string{{"email": recipient}}},
			},
			"from":    map[string]string{"email": p.config.From, "name": p.config.FromName},
			"subject": subject,
			"content": []map[string]string{
				{"type": "text/plain", "value": body},
			},
		})
		if err != nil {
			return nil, err
		}
		return &providerRequest{
			path:        "/v3/mail/send",
			contentType: "application/json",
			authHeader:  "Bearer " + p.config.Token,
			body:        payload,
		}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrChannelNotConfigured, p.channel)
}

func (t *Transport) doRequest(ctx context.Context, p *provider, pr *providerRequest) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(p.config.URL + pr.path)
	req.Header.SetMethod("POST")
	req.Header.SetContentType(pr.contentType)
	if pr.authHeader != "" {
		req.Header.Set("Authorization", pr.authHeader)
	}
	req.SetBody(pr.body)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(t.config.Timeout)
	}

	if err := p.client.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	statusCode := resp.StatusCode()
	if statusCode < fasthttp.StatusOK || statusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d, body: %s", statusCode, resp.Body())
	}
	return nil
}

func (t *Transport) checkCircuitBreaker(p *provider) {
	consecutiveFails := p.metrics.ConsecutiveFails.Load()
	if consecutiveFails >= int32(t.config.CircuitBreakerThreshold) {
		openUntil := time.Now().Add(t.config.CircuitBreakerTimeout).Unix()
		p.circuitOpenUntil.Store(openUntil)

		logger.Warn("Circuit breaker opened", "channel", string(p.channel), "consecutive_fails", consecutiveFails, "timeout", t.config.CircuitBreakerTimeout)
	}
}

type ProviderStats struct {
	Channel          string  `json:"channel"`
	URL              string  `json:"url"`
	Available        bool    `json:"available"`
	TotalRequests    int64   `json:"total_requests"`
	SuccessfulReqs   int64   `json:"successful_requests"`
	FailedReqs       int64   `json:"failed_requests"`
	SuccessRate      float64 `json:"success_rate"`
	AvgLatencyMs     int64   `json:"avg_latency_ms"`
	P95LatencyMs     int64   `json:"p95_latency_ms"`
	LastLatencyMs    int64   `json:"last_latency_ms"`
	ConsecutiveFails int32   `json:"consecutive_fails"`
}

// Stats returns per-channel delivery statistics for the admin surface.
func (t *Transport) Stats() []ProviderStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := make([]ProviderStats, 0, len(t.providers))
	for _, p := range t.providers {
		stats = append(stats, ProviderStats{
			Channel:          string(p.channel),
			URL:              p.config.URL,
			Available:        p.available(),
			TotalRequests:    p.metrics.TotalRequests.Load(),
			SuccessfulReqs:   p.metrics.SuccessfulReqs.Load(),
			FailedReqs:       p.metrics.FailedReqs.Load(),
			SuccessRate:      p.metrics.SuccessRate(),
			AvgLatencyMs:     p.metrics.AvgLatencyMs(),
			P95LatencyMs:     p.metrics.P95LatencyMs(),
			LastLatencyMs:    p.metrics.LastLatencyMs.Load(),
			ConsecutiveFails: p.metrics.ConsecutiveFails.Load(),
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Channel < stats[j].Channel
	})
	return stats
}
