package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobharvest/internal/config"
	"jobharvest/internal/scheduler"
	"jobharvest/pkg/models"
)

func webhookConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Webhook.Cooldown = 2 * time.Minute
	cfg.Webhook.PerMinuteLimit = 1000
	cfg.Webhook.WindowLimit = 10
	cfg.Webhook.Window = 5 * time.Minute
	cfg.Webhook.DailyLimit = 100
	cfg.Webhook.BusinessStart = 8
	cfg.Webhook.BusinessEnd = 18
	cfg.Webhook.OffHoursMinimum = "high"
	cfg.Webhook.PerIPLimit = 100
	return cfg
}

// businessHour is a Tuesday at 10:00.
var businessHour = time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)

func newTestGateway(cfg *config.Config, at *time.Time) *Gateway {
	g := NewGateway(cfg)
	g.now = func() time.Time { return *at }
	return g
}

func TestGatewayRejectsEleventhCallInWindow(t *testing.T) {
	now := businessHour
	g := newTestGateway(webhookConfig(), &now)

	for i := 0; i < 10; i++ {
		d := g.Accept(&models.WebhookEvent{Source: "board"}, "10.0.0.1")
		require.NotEqual(t, DecisionRejected, d.Status, "call %d", i+1)
	}

	d := g.Accept(&models.WebhookEvent{Source: "board"}, "10.0.0.1")
	assert.Equal(t, DecisionRejected, d.Status)
	assert.Contains(t, d.Reason, "window")
}

func TestGatewayWindowCapIsPerSource(t *testing.T) {
	now := businessHour
	g := newTestGateway(webhookConfig(), &now)

	for i := 0; i < 10; i++ {
		g.Accept(&models.WebhookEvent{Source: "boardA"}, "10.0.0.1")
	}
	require.Equal(t, DecisionRejected,
		g.Accept(&models.WebhookEvent{Source: "boardA"}, "10.0.0.1").Status)

	// A noisy source must not starve the others.
	d := g.Accept(&models.WebhookEvent{Source: "boardB"}, "10.0.0.2")
	assert.NotEqual(t, DecisionRejected, d.Status)
}

func TestGatewayPerIPDailyCap(t *testing.T) {
	cfg := webhookConfig()
	cfg.Webhook.PerIPLimit = 3
	cfg.Webhook.WindowLimit = 1000
	now := businessHour
	g := newTestGateway(cfg, &now)

	for i := 0; i < 3; i++ {
		src := models.WebhookEvent{Source: fmt.Sprintf("board%d", i)}
		require.NotEqual(t, DecisionRejected, g.Accept(&src, "10.0.0.1").Status)
	}

	d := g.Accept(&models.WebhookEvent{Source: "board9"}, "10.0.0.1")
	assert.Equal(t, DecisionRejected, d.Status)
	assert.Contains(t, d.Reason, "caller address")

	// A different caller is unaffected.
	d = g.Accept(&models.WebhookEvent{Source: "board9"}, "10.0.0.2")
	assert.NotEqual(t, DecisionRejected, d.Status)
}

func TestGatewayWindowSlides(t *testing.T) {
	now := businessHour
	g := newTestGateway(webhookConfig(), &now)

	for i := 0; i < 10; i++ {
		g.Accept(&models.WebhookEvent{}, "10.0.0.1")
	}
	require.Equal(t, DecisionRejected, g.Accept(&models.WebhookEvent{}, "10.0.0.1").Status)

	now = now.Add(6 * time.Minute)
	d := g.Accept(&models.WebhookEvent{}, "10.0.0.1")
	assert.NotEqual(t, DecisionRejected, d.Status)
}

func TestGatewayCooldownDefersFollowUp(t *testing.T) {
	now := businessHour
	g := newTestGateway(webhookConfig(), &now)

	require.Equal(t, DecisionTriggered, g.Accept(&models.WebhookEvent{}, "10.0.0.1").Status)

	now = now.Add(30 * time.Second)
	d := g.Accept(&models.WebhookEvent{}, "10.0.0.1")
	assert.Equal(t, DecisionDeferred, d.Status)
	assert.Contains(t, d.Reason, "cooldown")

	now = now.Add(3 * time.Minute)
	assert.Equal(t, DecisionTriggered, g.Accept(&models.WebhookEvent{}, "10.0.0.1").Status)
}

func TestGatewayDailyLimit(t *testing.T) {
	cfg := webhookConfig()
	cfg.Webhook.DailyLimit = 3
	cfg.Webhook.WindowLimit = 1000
	now := businessHour
	g := newTestGateway(cfg, &now)

	for i := 0; i < 3; i++ {
		require.NotEqual(t, DecisionRejected, g.Accept(&models.WebhookEvent{}, "10.0.0.1").Status)
		now = now.Add(10 * time.Minute)
	}

	d := g.Accept(&models.WebhookEvent{}, "10.0.0.1")
	assert.Equal(t, DecisionRejected, d.Status)
	assert.Contains(t, d.Reason, "daily")

	// Next day the ledger resets.
	now = now.Add(24 * time.Hour)
	assert.NotEqual(t, DecisionRejected, g.Accept(&models.WebhookEvent{}, "10.0.0.1").Status)
}

func TestGatewayOffHoursPolicy(t *testing.T) {
	lateNight := time.Date(2025, 6, 10, 22, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		event models.WebhookEvent
		want  string
	}{
		{"medium deferred off hours", models.WebhookEvent{Urgency: "medium"}, DecisionDeferred},
		{"default deferred off hours", models.WebhookEvent{}, DecisionDeferred},
		{"low deferred off hours", models.WebhookEvent{Urgency: "low"}, DecisionDeferred},
		{"high triggers off hours", models.WebhookEvent{Urgency: "high"}, DecisionTriggered},
		{"large batch triggers off hours", models.WebhookEvent{JobCount: 8}, DecisionTriggered},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			now := lateNight
			g := newTestGateway(webhookConfig(), &now)
			assert.Equal(t, tc.want, g.Accept(&tc.event, "10.0.0.1").Status)
		})
	}
}

func TestGatewayBusinessHoursAllowsMedium(t *testing.T) {
	now := businessHour
	g := newTestGateway(webhookConfig(), &now)
	assert.Equal(t, DecisionTriggered, g.Accept(&models.WebhookEvent{Urgency: "medium"}, "10.0.0.1").Status)
}

type noopRunner struct{}

func (noopRunner) RunAll(ctx context.Context, runID string) models.RunSummary {
	return models.RunSummary{RunID: runID, Success: true}
}

func TestWebhookHandlerChecksSecret(t *testing.T) {
	cfg := webhookConfig()
	cfg.Webhook.Secret = "s3cret"
	orch := scheduler.NewOrchestrator(cfg, noopRunner{}, nil)
	gateway := NewGateway(cfg)

	e := echo.New()
	handler := WebhookScrapeHandler(cfg, gateway, orch)

	req := httptest.NewRequest(http.MethodPost, "/webhook/scrape", strings.NewReader(`{"urgency":"high"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/webhook/scrape", strings.NewReader(`{"urgency":"high"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-Webhook-Secret", "s3cret")
	rec = httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}
