package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/cuemby/vpnwatch/pkg/log"
	"github.com/cuemby/vpnwatch/pkg/metrics"
	"github.com/cuemby/vpnwatch/pkg/types"
)

const (
	// DefaultAPIURL is the Pushover message endpoint
	DefaultAPIURL = "https://api.pushover.net/1/messages.json"

	// DefaultRatePerMinute bounds outgoing messages during a burst of events
	DefaultRatePerMinute = 30

	defaultTimeout   = 10 * time.Second
	maxMessageLength = 1024
	maxResponseBytes = 64 << 10
)

// PushoverConfig holds Pushover delivery settings
type PushoverConfig struct {
	Token         string
	UserKey       string
	APIURL        string
	Title         string
	Timeout       time.Duration
	RatePerMinute int
}

// Validate checks the configuration is usable
func (c PushoverConfig) Validate() error {
	if c.Token == "" {
		return errors.New("pushover token is required")
	}
	if c.UserKey == "" {
		return errors.New("pushover user key is required")
	}
	if c.RatePerMinute < 0 {
		return fmt.Errorf("pushover rate per minute must not be negative, got %d", c.RatePerMinute)
	}
	if c.APIURL != "" {
		u, err := url.Parse(c.APIURL)
		if err != nil {
			return fmt.Errorf("invalid pushover api url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("invalid pushover api url %q: scheme must be http or https", c.APIURL)
		}
	}
	return nil
}

// APIError is a message Pushover refused
type APIError struct {
	StatusCode int
	Request    string
	Errors     []string
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("pushover returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("pushover returned status %d: %s", e.StatusCode, strings.Join(e.Errors, "; "))
}

type pushoverResponse struct {
	Status  int      `json:"status"`
	Request string   `json:"request"`
	Errors  []string `json:"errors"`
}

// Pushover delivers notifications through the Pushover HTTP API
type Pushover struct {
	cfg       PushoverConfig
	client    *http.Client
	limiter   *rate.Limiter
	formatter *Formatter
	health    *metrics.HealthChecker
	logger    zerolog.Logger
}

// NewPushover creates a Pushover sink
func NewPushover(cfg PushoverConfig) (*Pushover, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	limit := rate.Inf
	if cfg.RatePerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RatePerMinute))
	}

	return &Pushover{
		cfg:       cfg,
		client:    &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(limit, 1),
		formatter: NewFormatter(),
		health:    metrics.Default(),
		logger:    log.WithComponent("pushover"),
	}, nil
}

// WithFormatter replaces the message formatter
func (p *Pushover) WithFormatter(f *Formatter) *Pushover {
	p.formatter = f
	return p
}

// WithHTTPClient replaces the HTTP client
func (p *Pushover) WithHTTPClient(c *http.Client) *Pushover {
	p.client = c
	return p
}

// WithHealth reports delivery state to the given health checker
func (p *Pushover) WithHealth(h *metrics.HealthChecker) *Pushover {
	p.health = h
	return p
}

func (p *Pushover) ClientConnected(c *types.Client) {
	p.deliver(p.formatter.Connected(c))
}

func (p *Pushover) ClientDisconnected(c *types.Client) {
	p.deliver(p.formatter.Disconnected(c))
}

func (p *Pushover) Alert(message string) {
	p.deliver(message)
}

func (p *Pushover) deliver(message string) {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.Timeout)
	defer cancel()

	if err := p.Send(ctx, message); err != nil {
		p.logger.Error().Err(err).Str("message", message).Msg("Error sending message to pushover")
	}
}

// Send posts a single message. It waits for the rate limiter, bounded by ctx.
func (p *Pushover) Send(ctx context.Context, message string) error {
	if err := p.limiter.Wait(ctx); err != nil {
		metrics.NotificationsTotal.WithLabelValues(metrics.ResultDropped).Inc()
		return fmt.Errorf("rate limit: %w", err)
	}

	if err := p.post(ctx, message); err != nil {
		metrics.NotificationsTotal.WithLabelValues(metrics.ResultFailed).Inc()
		p.health.SetComponent(metrics.ComponentNotifier, metrics.StateDegraded, err.Error())
		return err
	}

	metrics.NotificationsTotal.WithLabelValues(metrics.ResultDelivered).Inc()
	p.health.UpdateComponent(metrics.ComponentNotifier, true, "last delivery succeeded")
	return nil
}

func (p *Pushover) post(ctx context.Context, message string) error {
	form := url.Values{}
	form.Set("token", p.cfg.Token)
	form.Set("user", p.cfg.UserKey)
	form.Set("message", truncate(message, maxMessageLength))
	if p.cfg.Title != "" {
		form.Set("title", p.cfg.Title)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.APIURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post message: %w", err)
	}
	defer resp.Body.Close()

	var body pushoverResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		if resp.StatusCode != http.StatusOK {
			return &APIError{StatusCode: resp.StatusCode}
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || body.Status != 1 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Request:    body.Request,
			Errors:     body.Errors,
		}
	}

	p.logger.Debug().Str("request", body.Request).Msg("Message delivered")
	return nil
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
