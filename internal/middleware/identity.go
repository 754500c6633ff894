package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// userKey identifies the caller for rate limiting.  Signed-in users
// are keyed by ID, everyone else shares "guest".
func userKey(c echo.Context) string {
	if uid, ok := c.Get(CtxUserID).(uint64); ok && uid > 0 {
		return strconv.FormatUint(uid, 10)
	}
	return "guest"
}
