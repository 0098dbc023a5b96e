package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/osa911/portfolio/internal/api/dto/common"
	"github.com/osa911/portfolio/internal/config"
	"github.com/osa911/portfolio/internal/logging"
	"github.com/osa911/portfolio/internal/mail/mailtest"
	"github.com/osa911/portfolio/internal/ratelimit"
	"github.com/osa911/portfolio/internal/service"
	"github.com/osa911/portfolio/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	mailRoute = "/portfolio/send-mail"
	validBody = `{"name":"Alice","email":"alice@example.com","message":"Hello, I would like a quote for a website."}`
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logging.Configure(&logging.Config{Level: logging.LevelError, Output: io.Discard})
	os.Exit(m.Run())
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() *config.Config {
	return &config.Config{
		Environment:     config.Development,
		Port:            "0",
		MailRoute:       mailRoute,
		MailTransport:   config.TransportLog,
		SMTPTimeout:     5 * time.Second,
		RateLimitMax:    5,
		RateLimitWindow: time.Minute,
		GlobalRPS:       1000,
		GlobalBurst:     1000,
		MetricsEnabled:  true,
	}
}

type harness struct {
	handler   http.Handler
	transport *mailtest.Recorder
	clock     *fakeClock
	metrics   *telemetry.Metrics
	logs      *bytes.Buffer
}

func newHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()

	h := &harness{
		transport: &mailtest.Recorder{},
		clock:     &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)},
		metrics:   telemetry.NewMetrics(),
		logs:      &bytes.Buffer{},
	}
	relay := service.NewContactRelayService(h.transport, "relay@osa911.dev", "hello@osa911.dev",
		logging.New(h.logs, logging.LevelDebug), h.metrics)
	store := ratelimit.NewMemoryStore(ratelimit.WithClock(h.clock.Now))
	t.Cleanup(func() { _ = store.Close() })

	srv, err := NewServer(cfg, Dependencies{
		Relay:         relay,
		TransportName: h.transport.Name(),
		Limiter:       ratelimit.New(store, cfg.RateLimitMax, cfg.RateLimitWindow),
		Metrics:       h.metrics,
		Now:           h.clock.Now,
	})
	require.NoError(t, err)
	h.handler = srv.Handler()
	return h
}

func (h *harness) post(body string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, mailRoute, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, m := range mutate {
		m(req)
	}
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	return w
}

func fromIP(ip string) func(*http.Request) {
	return func(r *http.Request) {
		r.RemoteAddr = ip + ":40000"
	}
}

func withOrigin(origin string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Origin", origin)
	}
}

type envelope struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string                   `json:"code"`
		Message string                   `json:"message"`
		Details []common.ValidationError `json:"details"`
	} `json:"error"`
}

func TestSendMailSuccess(t *testing.T) {
	h := newHarness(t, testConfig())

	w := h.post(validBody)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Message sent", w.Body.String())
	assert.Equal(t, "5", w.Header().Get("RateLimit-Limit"))
	assert.Equal(t, "4", w.Header().Get("RateLimit-Remaining"))
	assert.Equal(t, "60", w.Header().Get("RateLimit-Reset"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	msgs := h.transport.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "alice@example.com", msgs[0].ReplyTo)
	assert.Equal(t, []string{"hello@osa911.dev"}, msgs[0].To)
	assert.Equal(t, "relay@osa911.dev", msgs[0].From)
}

func TestSendMailSanitizesMarkup(t *testing.T) {
	h := newHarness(t, testConfig())

	w := h.post(`{"name":"<script>x</script>","email":"bob@example.com","message":"1234567890"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	msgs := h.transport.Messages()
	require.Len(t, msgs, 1)
	for _, part := range []string{msgs[0].Subject, msgs[0].Text, msgs[0].HTML} {
		assert.NotContains(t, part, "<script>")
	}
	assert.Equal(t, "bob@example.com", msgs[0].ReplyTo)
}

func TestSendMailRejectsInvalidSubmission(t *testing.T) {
	h := newHarness(t, testConfig())

	w := h.post(`{"name":"Alice","email":"alice@example.com","message":"123456789"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, string(common.ErrCodeValidation), resp.Error.Code)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "message", resp.Error.Details[0].Field)
	assert.Equal(t, "message must be at least 10 characters", resp.Error.Details[0].Message)
	assert.Zero(t, h.transport.Attempts())
}

func TestSendMailRejectsMarkupOnlyMessage(t *testing.T) {
	h := newHarness(t, testConfig())

	w := h.post(`{"name":"Bob","email":"bob@example.com","message":"<b></b><i></i><u></u>"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, string(common.ErrCodeValidation), resp.Error.Code)
	assert.Zero(t, h.transport.Attempts())
}

func TestSendMailRejectsMalformedRequests(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		ctype  string
		status int
	}{
		{"wrong content type", validBody, "text/plain", http.StatusUnsupportedMediaType},
		{"form content type", "name=Alice", "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"broken json", `{"name":`, "application/json", http.StatusBadRequest},
		{"missing fields", `{}`, "application/json", http.StatusBadRequest},
		{"bad email", `{"name":"Alice","email":"alice@","message":"1234567890"}`, "application/json", http.StatusBadRequest},
		{"multi-line name", `{"name":"Alice\nBcc: x@example.com","email":"alice@example.com","message":"1234567890"}`, "application/json", http.StatusBadRequest},
		{"oversized body", `{"message":"` + strings.Repeat("a", 17<<10) + `"}`, "application/json", http.StatusRequestEntityTooLarge},
		{"json with charset", validBody, "application/json; charset=utf-8", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, testConfig())
			w := h.post(tt.body, func(r *http.Request) {
				r.Header.Set("Content-Type", tt.ctype)
			})
			assert.Equal(t, tt.status, w.Code)
			if tt.status != http.StatusOK {
				assert.Zero(t, h.transport.Attempts())
			}
		})
	}
}

func TestSendMailDeliveryFailure(t *testing.T) {
	h := newHarness(t, testConfig())
	h.transport.SendErr = errors.New("535 5.7.8 authentication failed")

	w := h.post(validBody)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to send message", w.Body.String())
	assert.NotContains(t, w.Body.String(), "535")
	assert.Equal(t, 1, h.transport.Attempts())

	// the cause stays in the operator log
	logs := h.logs.String()
	assert.Contains(t, logs, "Failed to relay message from Alice <alice@example.com> via recorder")
	assert.Contains(t, logs, "535 5.7.8 authentication failed")

	// the relay keeps serving
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientRateLimit(t *testing.T) {
	h := newHarness(t, testConfig())

	for i := 0; i < 5; i++ {
		w := h.post(validBody)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	h.clock.Advance(25 * time.Second)
	w := h.post(validBody)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, ratelimit.Message, w.Body.String())
	assert.Equal(t, "35", w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("RateLimit-Remaining"))
	assert.Equal(t, 5, h.transport.Attempts())

	// other clients are unaffected
	w = h.post(validBody, fromIP("198.51.100.7"))
	assert.Equal(t, http.StatusOK, w.Code)

	h.clock.Advance(36 * time.Second)
	w = h.post(validBody)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "4", w.Header().Get("RateLimit-Remaining"))
}

func TestClientRateLimitCountsInvalidRequests(t *testing.T) {
	h := newHarness(t, testConfig())

	for i := 0; i < 5; i++ {
		w := h.post(`{}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
	}

	w := h.post(validBody)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Zero(t, h.transport.Attempts())
}

func TestClientRateLimitIgnoresForwardedForFromUntrustedPeers(t *testing.T) {
	h := newHarness(t, testConfig())

	for i := 0; i < 5; i++ {
		w := h.post(validBody, func(r *http.Request) {
			r.Header.Set("X-Forwarded-For", "203.0.113."+string(rune('1'+i)))
		})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := h.post(validBody, func(r *http.Request) {
		r.Header.Set("X-Forwarded-For", "203.0.113.99")
	})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestClientRateLimitUsesForwardedForFromTrustedProxy(t *testing.T) {
	cfg := testConfig()
	cfg.TrustedProxies = []string{"192.0.2.1"}
	h := newHarness(t, cfg)

	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusOK, h.post(validBody, func(r *http.Request) {
			r.Header.Set("X-Forwarded-For", "203.0.113.10")
		}).Code)
	}

	w := h.post(validBody, func(r *http.Request) {
		r.Header.Set("X-Forwarded-For", "203.0.113.11")
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSDevelopment(t *testing.T) {
	h := newHarness(t, testConfig())

	w := h.post(validBody, withOrigin("http://localhost:3000"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSDisallowedOriginRejectedInDevelopment(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedOrigins = []string{"https://osa911.dev"}
	h := newHarness(t, cfg)

	w := h.post(validBody, withOrigin("https://evil.example"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("RateLimit-Limit"))
	assert.Empty(t, w.Header().Get("RateLimit-Remaining"))
	assert.Zero(t, h.transport.Attempts())

	// the rejected request did not use a slot
	w = h.post(validBody, withOrigin("https://osa911.dev"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://osa911.dev", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "4", w.Header().Get("RateLimit-Remaining"))
	assert.Equal(t, 1, h.transport.Attempts())
}

func TestCORSProduction(t *testing.T) {
	cfg := testConfig()
	cfg.Environment = config.Production
	cfg.AllowedOrigins = []string{"https://osa911.dev"}
	h := newHarness(t, cfg)
	t.Cleanup(func() { gin.SetMode(gin.TestMode) })

	w := h.post(validBody, withOrigin("https://evil.example"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Zero(t, h.transport.Attempts())

	w = h.post(validBody, withOrigin("https://osa911.dev"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://osa911.dev", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "4", w.Header().Get("RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestPreflightIsNotRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedOrigins = []string{"https://osa911.dev"}
	h := newHarness(t, cfg)

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodOptions, mailRoute, nil)
		req.Header.Set("Origin", "https://osa911.dev")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		h.handler.ServeHTTP(w, req)

		require.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://osa911.dev", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	}

	w := h.post(validBody, withOrigin("https://osa911.dev"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "4", w.Header().Get("RateLimit-Remaining"))
}

func TestHealth(t *testing.T) {
	h := newHarness(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Status    string `json:"status"`
			Transport string `json:"transport"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "ok", resp.Data.Status)
	assert.Equal(t, "recorder", resp.Data.Transport)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, testConfig())
	require.Equal(t, http.StatusOK, h.post(validBody).Code)
	require.Equal(t, http.StatusBadRequest, h.post(`{}`).Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `relay_submissions_total{outcome="sent"} 1`)
	assert.Contains(t, w.Body.String(), `relay_submissions_total{outcome="invalid"} 1`)
}

func TestMetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.MetricsEnabled = false
	h := newHarness(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnknownRoute(t *testing.T) {
	h := newHarness(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/wp-login.php", nil)
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(common.ErrCodeNotFound), resp.Error.Code)
}
