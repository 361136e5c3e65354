package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/equipdesk/backend/internal/config"
	"github.com/equipdesk/backend/internal/metrics"
	"github.com/equipdesk/backend/internal/middleware"
	"github.com/equipdesk/backend/internal/models"
	"github.com/equipdesk/backend/internal/services"
	"github.com/equipdesk/backend/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), models.GormConfig(logger.Silent))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	return db
}

type authEnv struct {
	db      *gorm.DB
	auth    *services.AuthService
	metrics *metrics.Metrics
	router  *gin.Engine
	cfg     config.AuthConfig
}

func newAuthEnv(t *testing.T, cookieMode bool) *authEnv {
	t.Helper()
	db := setupTestDB(t)
	cfg := config.DefaultConfig().Auth
	cfg.CookieMode = cookieMode
	cfg.CookieSecure = true

	issuer := utils.NewTokenIssuer(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)
	syslog := services.NewSystemLogService(db)
	sessions := services.NewSessionStore(db, issuer, syslog)
	auth := services.NewAuthService(db, issuer, sessions, syslog)
	m := metrics.New(prometheus.NewRegistry())
	h := NewAuthHandler(auth, cfg, m)

	router := gin.New()
	router.POST("/auth/register", h.Register)
	router.POST("/auth/login", h.Login)
	router.POST("/auth/refresh", h.Refresh)
	protected := router.Group("", middleware.AuthRequired(issuer))
	protected.POST("/auth/logout", h.Logout)
	protected.GET("/auth/me", h.Me)

	return &authEnv{db: db, auth: auth, metrics: m, router: router, cfg: cfg}
}

func (e *authEnv) do(t *testing.T, method, path string, body interface{}, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func bearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withCookie(c *http.Cookie) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(c) }
}

func refreshCookie(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", name)
	return nil
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

var testCredentials = gin.H{"email": "a@x.com", "password": "pw1"}

// sessionTTL is the refresh cookie lifetime configured by DefaultConfig.
const sessionTTL = 7 * 24 * time.Hour
