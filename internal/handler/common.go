package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/detailing-booking/internal/middleware"
	"github.com/iliyamo/detailing-booking/internal/service"
)

// getUserID extracts the user_id set by the JWT middleware.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get(middleware.CtxUserID).(type) {
	case uint64:
		return t, nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// sessionFrom returns the signed-in caller, or nil for guests.
func sessionFrom(c echo.Context) *service.Session {
	uid, err := getUserID(c)
	if err != nil || uid == 0 {
		return nil
	}
	email, _ := c.Get(middleware.CtxEmail).(string)
	return &service.Session{UserID: uid, Email: email}
}

func success(c echo.Context, code int, data any) error {
	return c.JSON(code, echo.Map{"success": true, "data": data})
}

func fail(c echo.Context, code int, msg string) error {
	return c.JSON(code, echo.Map{"error": msg})
}

func failDetails(c echo.Context, code int, msg, details string) error {
	return c.JSON(code, echo.Map{"error": msg, "details": details})
}

func parseID(raw string) (uint64, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	return id, err == nil && id > 0
}

// Health answers load balancer probes.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
