package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"jobharvest/pkg/models"
	"jobharvest/pkg/utils"
)

// respondError renders a CustomError as the standard error payload, using
// its code as the HTTP status.
func respondError(c echo.Context, requestID string, cerr *utils.CustomError) error {
	message := cerr.Message
	if cerr.Detail != "" {
		message = cerr.Error()
	}
	return c.JSON(cerr.Code, models.ErrorResponse{
		Error:     strings.ToLower(http.StatusText(cerr.Code)),
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now(),
	})
}
