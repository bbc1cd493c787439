package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthCheck reports service liveness and database connectivity
func (h *Handler) HealthCheck(c echo.Context) error {
	status := "ok"
	dbStatus := "ok"

	sqlDB, err := h.DB.DB()
	if err != nil || sqlDB.PingContext(c.Request().Context()) != nil {
		status = "degraded"
		dbStatus = "unreachable"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, echo.Map{
		"status":   status,
		"database": dbStatus,
		"service":  h.Config.ServiceName,
	})
}
