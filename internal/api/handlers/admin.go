package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"jobharvest/internal/logging"
	"jobharvest/internal/scheduler"
	"jobharvest/pkg/models"
	"jobharvest/pkg/utils"
)

// StatusHandler exposes the orchestrator snapshot, which already carries
// today's job count and the health classification.
func StatusHandler(orch *scheduler.Orchestrator) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"scraper":   orch.Status(),
			"timestamp": time.Now(),
		})
	}
}

// TriggerHandler starts a manual run in the background.
func TriggerHandler(orch *scheduler.Orchestrator) echo.HandlerFunc {
	return func(c echo.Context) error {
		runID, err := orch.StartRun(scheduler.TriggerManual)
		if err != nil {
			if errors.Is(err, utils.ErrRunInProgress) {
				return c.JSON(http.StatusConflict, models.TriggerResponse{
					Started: false,
					Message: "a scraping run is already in progress",
				})
			}
			return c.JSON(http.StatusServiceUnavailable, models.TriggerResponse{
				Started: false,
				Message: err.Error(),
			})
		}

		return c.JSON(http.StatusAccepted, models.TriggerResponse{
			Started: true,
			RunID:   runID,
			Message: "scraping run started",
		})
	}
}

// UpdateIntervalHandler swaps the scraping cron spec.
func UpdateIntervalHandler(svc *scheduler.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := utils.GenerateRequestID()

		var req models.UpdateIntervalRequest
		if err := c.Bind(&req); err != nil || req.CronSpec == "" {
			return respondError(c, requestID, utils.NewBadRequestError("cron_spec is required"))
		}

		if err := svc.UpdateSchedule(req.CronSpec); err != nil {
			return respondError(c, requestID, utils.NewValidationError(err.Error()))
		}

		return c.JSON(http.StatusOK, map[string]string{
			"status":    "updated",
			"cron_spec": req.CronSpec,
		})
	}
}

// StopHandler halts the cron scheduler. Manual and webhook triggers keep
// working.
func StopHandler(svc *scheduler.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		logger := logging.GetGlobalLogger()
		logger.Info("Scheduler stop requested", map[string]interface{}{})

		go svc.Stop()

		return c.JSON(http.StatusOK, map[string]string{
			"status": "stopping",
		})
	}
}
