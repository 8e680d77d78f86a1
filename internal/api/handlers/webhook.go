package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"jobharvest/internal/config"
	"jobharvest/internal/logging"
	"jobharvest/internal/scheduler"
	"jobharvest/pkg/models"
	"jobharvest/pkg/utils"
)

// Decision statuses returned by the gateway.
const (
	DecisionTriggered = "triggered"
	DecisionDeferred  = "deferred"
	DecisionRejected  = "rejected"
)

// Decision is the gateway's verdict for one webhook event.
type Decision struct {
	Status string
	Reason string
}

// jobCountAlwaysTrigger is the batch size above which an event triggers
// regardless of urgency or time of day.
const jobCountAlwaysTrigger = 5

// ledgerEntry records one admitted webhook call for the sliding caps.
type ledgerEntry struct {
	ts     time.Time
	source string
	ip     string
}

// Gateway admits or refuses webhook-initiated scraping. Admission is
// bounded by a per-minute limiter, a per-source sliding window, a per-caller
// daily cap, a global daily cap and a cooldown after each triggered run;
// off-hours events must meet the configured minimum urgency.
type Gateway struct {
	cfg     *config.Config
	limiter *rate.Limiter

	mu          sync.Mutex
	window      []ledgerEntry
	daily       []ledgerEntry
	lastTrigger time.Time

	// now is swappable for tests.
	now func() time.Time
}

// NewGateway builds the gateway from webhook config.
func NewGateway(cfg *config.Config) *Gateway {
	perMinute := cfg.Webhook.PerMinuteLimit
	if perMinute <= 0 {
		perMinute = 1
	}
	return &Gateway{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		now:     time.Now,
	}
}

// Accept decides whether an event from the given caller address may start a
// run. Ledgers are pruned on every call; a triggered decision arms the
// cooldown.
func (g *Gateway) Accept(event *models.WebhookEvent, ip string) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.prune(now)

	source := ""
	if event != nil {
		source = event.Source
	}

	if g.countWindowBySource(source) >= g.cfg.Webhook.WindowLimit {
		return Decision{Status: DecisionRejected, Reason: "too many webhook calls in window for source"}
	}
	if len(g.daily) >= g.cfg.Webhook.DailyLimit {
		return Decision{Status: DecisionRejected, Reason: "daily webhook limit reached"}
	}
	if g.cfg.Webhook.PerIPLimit > 0 && g.countDailyByIP(ip) >= g.cfg.Webhook.PerIPLimit {
		return Decision{Status: DecisionRejected, Reason: "daily webhook limit reached for caller address"}
	}
	if !g.limiter.Allow() {
		return Decision{Status: DecisionRejected, Reason: "per-minute rate exceeded"}
	}

	entry := ledgerEntry{ts: now, source: source, ip: ip}
	g.window = append(g.window, entry)
	g.daily = append(g.daily, entry)

	if !g.lastTrigger.IsZero() && now.Sub(g.lastTrigger) < g.cfg.Webhook.Cooldown {
		return Decision{Status: DecisionDeferred, Reason: "cooldown after previous trigger"}
	}

	if !g.urgencyAllows(event, now) {
		return Decision{Status: DecisionDeferred, Reason: "urgency below off-hours minimum"}
	}

	g.lastTrigger = now
	return Decision{Status: DecisionTriggered}
}

// prune drops window entries older than the sliding window and daily
// entries from before today.
func (g *Gateway) prune(now time.Time) {
	cutoff := now.Add(-g.cfg.Webhook.Window)
	kept := g.window[:0]
	for _, e := range g.window {
		if e.ts.After(cutoff) {
			kept = append(kept, e)
		}
	}
	g.window = kept

	dayStart := utils.StartOfDay(now)
	keptDaily := g.daily[:0]
	for _, e := range g.daily {
		if !e.ts.Before(dayStart) {
			keptDaily = append(keptDaily, e)
		}
	}
	g.daily = keptDaily
}

// countWindowBySource counts window entries for one source. Callers hold
// g.mu.
func (g *Gateway) countWindowBySource(source string) int {
	n := 0
	for _, e := range g.window {
		if e.source == source {
			n++
		}
	}
	return n
}

// countDailyByIP counts today's entries from one caller address. Callers
// hold g.mu.
func (g *Gateway) countDailyByIP(ip string) int {
	if ip == "" {
		return 0
	}
	n := 0
	for _, e := range g.daily {
		if e.ip == ip {
			n++
		}
	}
	return n
}

// urgencyAllows applies the business-hours policy. High urgency and large
// batches always trigger; medium and unspecified urgency only during
// business hours; low urgency never outside them.
func (g *Gateway) urgencyAllows(event *models.WebhookEvent, now time.Time) bool {
	urgency := "medium"
	jobCount := 0
	if event != nil {
		urgency = utils.GetStringOrDefault(event.Urgency, "medium")
		jobCount = event.JobCount
	}

	if urgency == "high" || jobCount >= jobCountAlwaysTrigger {
		return true
	}

	hour := now.Hour()
	inBusinessHours := hour >= g.cfg.Webhook.BusinessStart && hour < g.cfg.Webhook.BusinessEnd
	if inBusinessHours {
		return true
	}

	// Off hours: only events at or above the configured minimum go through,
	// and that minimum already excluded high urgency above.
	return g.cfg.Webhook.OffHoursMinimum == urgency && urgency != "low"
}

// WebhookScrapeHandler checks the shared secret, runs the event through the
// gateway and kicks off a background run on a triggered decision.
func WebhookScrapeHandler(cfg *config.Config, gateway *Gateway, orch *scheduler.Orchestrator) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := utils.GenerateRequestID()
		logger := logging.GetGlobalLogger()

		if cfg.Webhook.Secret != "" && c.Request().Header.Get("X-Webhook-Secret") != cfg.Webhook.Secret {
			return respondError(c, requestID, utils.NewUnauthorizedError("Invalid webhook secret"))
		}

		event := &models.WebhookEvent{}
		// An empty or malformed body is still a valid notification.
		_ = c.Bind(event)

		decision := gateway.Accept(event, c.RealIP())
		response := models.WebhookResponse{Status: decision.Status, Reason: decision.Reason}

		if decision.Status == DecisionTriggered {
			runID, err := orch.StartRun(scheduler.TriggerWebhook)
			if err != nil {
				response.Status = DecisionDeferred
				response.Reason = err.Error()
			} else {
				response.RunID = runID
			}
		}

		logger.Info("Webhook event processed", map[string]interface{}{
			"request_id": requestID,
			"source":     event.Source,
			"urgency":    event.Urgency,
			"decision":   response.Status,
			"reason":     response.Reason,
		})

		status := http.StatusOK
		switch response.Status {
		case DecisionTriggered:
			status = http.StatusAccepted
		case DecisionRejected:
			status = http.StatusTooManyRequests
		}
		return c.JSON(status, response)
	}
}
