package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/detailing-booking/internal/config"
	"github.com/iliyamo/detailing-booking/internal/middleware"
	"github.com/iliyamo/detailing-booking/internal/repository"
	"github.com/iliyamo/detailing-booking/internal/utils"
)

var userCols = []string{"id", "email", "password_hash", "role", "email_verified", "is_active",
	"created_at", "updated_at", "full_name", "phone"}

func authEcho(t *testing.T) (*echo.Echo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{JWTSecret: "secret", AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}
	h := NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db))

	e := echo.New()
	e.POST("/api/auth/login", h.Login)
	e.POST("/api/auth/logout", h.Logout, middleware.OptionalJWT(cfg.JWTSecret))
	e.GET("/api/me", h.Me, middleware.JWTAuth(cfg.JWTSecret))
	return e, mock
}

func userRow(t *testing.T, active bool) *sqlmock.Rows {
	t.Helper()
	hash, err := utils.HashPassword("hunter22", 4)
	require.NoError(t, err)
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(userCols).
		AddRow(1, "admin@example.com", hash, "ADMIN", true, active, now, now, "Ops Admin", "")
}

func TestLoginIssuesTokens(t *testing.T) {
	e, mock := authEcho(t)
	mock.ExpectQuery("(?s)SELECT u.id.+WHERE u.email=").
		WithArgs("admin@example.com").
		WillReturnRows(userRow(t, true))
	mock.ExpectExec("INSERT INTO refresh_tokens").
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := do(e, newJSONRequest(http.MethodPost, "/api/auth/login",
		`{"email":" Admin@Example.com ","password":"hunter22"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ADMIN", resp.User.Role)
	assert.Len(t, resp.Refresh.Token, 96)

	claims, err := utils.ParseAccessToken("secret", resp.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	e, mock := authEcho(t)
	mock.ExpectQuery("(?s)SELECT u.id.+WHERE u.email=").
		WillReturnRows(userRow(t, true))
	mock.ExpectQuery("(?s)SELECT u.id.+WHERE u.email=").
		WillReturnRows(userRow(t, false))
	mock.ExpectQuery("(?s)SELECT u.id.+WHERE u.email=").
		WillReturnRows(sqlmock.NewRows(userCols))

	for _, body := range []string{
		`{"email":"admin@example.com","password":"wrong"}`,
		`{"email":"admin@example.com","password":"hunter22"}`,
		`{"email":"ghost@example.com","password":"hunter22"}`,
	} {
		rec := do(e, newJSONRequest(http.MethodPost, "/api/auth/login", body))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, body)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogoutRevokesAllForBearer(t *testing.T) {
	e, mock := authEcho(t)
	tok, err := utils.NewAccessToken("secret", 5, "CUSTOMER", "sam@example.com", 5)
	require.NoError(t, err)

	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at=NOW\\(\\) WHERE user_id=").
		WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	req := newJSONRequest(http.MethodPost, "/api/auth/logout", `{}`)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	rec := do(e, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(e, newJSONRequest(http.MethodPost, "/api/auth/logout", `{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMeRequiresToken(t *testing.T) {
	e, _ := authEcho(t)
	rec := do(e, newJSONRequest(http.MethodGet, "/api/me", ""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
