package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"jobharvest/pkg/models"
	"jobharvest/pkg/utils"
)

// RequestValidation middleware validates incoming requests
func RequestValidation() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Add request ID to context
			requestID := utils.GenerateRequestID()
			c.Set("request_id", requestID)
			c.Response().Header().Set("X-Request-ID", requestID)

			// Webhook and admin payloads are tiny; anything bigger is noise.
			if c.Request().Method == http.MethodPost || c.Request().Method == http.MethodPut {
				if c.Request().ContentLength > 64*1024 {
					return c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
						Error:     "request_too_large",
						Message:   "Request body too large",
						RequestID: requestID,
						Timestamp: time.Now(),
					})
				}
			}

			return next(c)
		}
	}
}
