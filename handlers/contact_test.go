package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/block-nexus/blocknexus-site/config"
	"github.com/block-nexus/blocknexus-site/logger"
	"github.com/block-nexus/blocknexus-site/middleware"
	"github.com/block-nexus/blocknexus-site/store"
	"github.com/block-nexus/blocknexus-site/types"
	"github.com/block-nexus/blocknexus-site/validation"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.IsTest = true
	logger.InitLogger()
	os.Exit(m.Run())
}

type fakeNotifier struct {
	mu            sync.Mutex
	notifications []types.ContactSubmission
	confirmations []types.ContactSubmission
	notifyErr     error
	confirmErr    error
}

func (f *fakeNotifier) SendNotification(_ context.Context, sub *types.ContactSubmission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, *sub)
	return f.notifyErr
}

func (f *fakeNotifier) SendConfirmation(_ context.Context, sub *types.ContactSubmission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmations = append(f.confirmations, *sub)
	return f.confirmErr
}

func (f *fakeNotifier) snapshot() (notifications, confirmations []types.ContactSubmission) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.ContactSubmission{}, f.notifications...),
		append([]types.ContactSubmission{}, f.confirmations...)
}

type pipeline struct {
	router   *gin.Engine
	handler  *ContactHandler
	notifier *fakeNotifier
}

// newPipeline assembles the full submission chain the way the production
// router does: request ID, error handler, then the per-route guards in
// pipeline order ahead of the handler.
func newPipeline(t *testing.T, mutate func(*config.Config)) *pipeline {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Environment:    config.EnvDevelopment,
			AllowedOrigins: []string{"https://blocknexus.tech"},
			VerboseErrors:  true,
		},
		Security: config.SecurityConfig{
			MaxBodySize:            10240,
			BodyReadTimeoutSeconds: 5,
		},
		RateLimit: config.RateLimitConfig{
			MaxRequests: 100,
			WindowMS:    3600000,
		},
		Validation: config.ValidationConfig{
			DisposableEmailDomains: []string{"tempmail.com", "mailinator.com"},
		},
	}
	if mutate != nil {
		mutate(cfg)
	}

	notifier := &fakeNotifier{}
	v := validation.New(cfg.Validation.DisposableEmailDomains)
	h := NewContactHandlerWithRegistry(v, notifier, prometheus.NewRegistry())

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.ErrorHandler(cfg))
	r.POST("/contact",
		middleware.OriginGuard(cfg.Server.AllowedOrigins),
		middleware.ContentTypeGuard(),
		middleware.RateLimit(store.NewMemoryStore(), cfg.RateLimit.MaxRequests, cfg.RateLimit.Window(), cfg.Server.TrustedProxies),
		middleware.BodyGuard(cfg.Security.MaxBodySize, time.Duration(cfg.Security.BodyReadTimeoutSeconds)*time.Second),
		h.Submit,
	)
	r.GET("/contact", h.MethodNotAllowed)

	return &pipeline{router: r, handler: h, notifier: notifier}
}

func (p *pipeline) submit(body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/contact", strings.NewReader(body))
	req.RemoteAddr = "192.168.1.2:1234"
	req.Header.Set("Origin", "https://blocknexus.tech")
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	p.router.ServeHTTP(w, req)
	return w
}

func parseBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func validPayload() string {
	return `{
		"name": "Ada Lovelace",
		"email": "ada@example.com",
		"message": "Hello, I would like to discuss a project.",
		"company": "Analytical Engines Ltd",
		"phone": "+1 (415) 555-0100",
		"service": "cybersecurity",
		"consent": "on"
	}`
}

func TestSubmitHappyPath(t *testing.T) {
	p := newPipeline(t, nil)

	w := p.submit(validPayload(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := parseBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Thank you! We will be in touch soon.", body["message"])

	p.handler.Wait()

	notifications, confirmations := p.notifier.snapshot()
	require.Len(t, notifications, 1)
	require.Len(t, confirmations, 1)
	assert.Equal(t, "Ada Lovelace", notifications[0].Name)
	assert.Equal(t, "ada@example.com", confirmations[0].Email)
}

func TestSubmitSanitizesFieldsBeforeDelivery(t *testing.T) {
	p := newPipeline(t, nil)

	w := p.submit(`{
		"name": "  Ada <b>Lovelace</b>  ",
		"email": "ada@example.com",
		"message": "Hello <script>alert(1)</script> I need javascript:free advice today.",
		"consent": "on"
	}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	p.handler.Wait()
	notifications, _ := p.notifier.snapshot()
	require.Len(t, notifications, 1)
	assert.Equal(t, "Ada Lovelace", notifications[0].Name)
	assert.NotContains(t, notifications[0].Message, "<")
	assert.NotContains(t, notifications[0].Message, "javascript:")
}

func TestSubmitRejectsMissingOrigin(t *testing.T) {
	p := newPipeline(t, nil)

	req := httptest.NewRequest("POST", "/contact", strings.NewReader(validPayload()))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	p.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
	body := parseBody(t, w)
	assert.Equal(t, "Origin or Referer header required", body["detail"])

	notifications, _ := p.notifier.snapshot()
	assert.Empty(t, notifications)
}

func TestSubmitRejectsWrongContentType(t *testing.T) {
	p := newPipeline(t, nil)

	w := p.submit("name=Ada", map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestSubmitRateLimited(t *testing.T) {
	p := newPipeline(t, func(cfg *config.Config) {
		cfg.RateLimit.MaxRequests = 2
	})

	require.Equal(t, http.StatusOK, p.submit(validPayload(), nil).Code)
	require.Equal(t, http.StatusOK, p.submit(validPayload(), nil).Code)

	w := p.submit(validPayload(), nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	p.handler.Wait()
	notifications, _ := p.notifier.snapshot()
	assert.Len(t, notifications, 2)
}

func TestSubmitRejectsOversizedBody(t *testing.T) {
	p := newPipeline(t, func(cfg *config.Config) {
		cfg.Security.MaxBodySize = 64
	})

	w := p.submit(validPayload(), nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestSubmitRejectsMalformedJSON(t *testing.T) {
	p := newPipeline(t, nil)

	w := p.submit(`{"name": "Ada"`, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := parseBody(t, w)
	assert.Equal(t, "Invalid JSON in request body", body["detail"])
}

func TestSubmitRejectsNonObjectBody(t *testing.T) {
	p := newPipeline(t, nil)

	for _, payload := range []string{`[]`, `"hello"`, `42`, `null`} {
		w := p.submit(payload, nil)
		require.Equal(t, http.StatusBadRequest, w.Code, "payload %s", payload)
		body := parseBody(t, w)
		assert.Equal(t, "Request body must be a JSON object", body["detail"])
	}
}

func TestSubmitRejectsNonStringFields(t *testing.T) {
	p := newPipeline(t, nil)

	w := p.submit(`{
		"name": 42,
		"email": "ada@example.com",
		"message": "Hello, I would like to discuss a project.",
		"consent": true
	}`, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := parseBody(t, w)
	errs := body["errors"].(map[string]interface{})
	assert.Equal(t, "Must be a string", errs["name"])
	assert.Equal(t, "Must be a string", errs["consent"])
}

func TestSubmitReportsAllValidationFailures(t *testing.T) {
	p := newPipeline(t, nil)

	w := p.submit(`{
		"name": "",
		"email": "x@tempmail.com",
		"message": "short",
		"consent": "off"
	}`, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := parseBody(t, w)
	errs := body["errors"].(map[string]interface{})
	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "message")
	assert.Equal(t, "You must agree to be contacted", errs["consent"])

	notifications, _ := p.notifier.snapshot()
	assert.Empty(t, notifications)
}

func TestSubmitSucceedsWhenNotificationFails(t *testing.T) {
	p := newPipeline(t, nil)
	p.notifier.notifyErr = assert.AnError

	w := p.submit(validPayload(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := parseBody(t, w)
	assert.Equal(t, true, body["success"])
}

func TestSubmitSucceedsWhenConfirmationFails(t *testing.T) {
	p := newPipeline(t, nil)
	p.notifier.confirmErr = assert.AnError

	w := p.submit(validPayload(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	p.handler.Wait()
}

func TestMethodNotAllowed(t *testing.T) {
	p := newPipeline(t, nil)

	req := httptest.NewRequest("GET", "/contact", nil)
	w := httptest.NewRecorder()
	p.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "POST", w.Header().Get("Allow"))
	body := parseBody(t, w)
	assert.Equal(t, "GET is not supported on this endpoint", body["detail"])
}
