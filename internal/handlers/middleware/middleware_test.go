package middleware

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Larry-Schultz/FFTBViewerV3/config"
	contextutil "github.com/Larry-Schultz/FFTBViewerV3/internal/context"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-admin-secret"

func signToken(t *testing.T, secret string, claims AdminClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func adminClaims(subject, role string, expiresIn time.Duration) AdminClaims {
	return AdminClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func newAdminApp(secret string) *fiber.App {
	m := New(config.Config{AdminJWTSecret: secret})
	app := fiber.New()
	app.Post("/sync", m.RequireAdmin(), func(c *fiber.Ctx) error {
		actor, _ := contextutil.GetActor(c.UserContext())
		return c.SendString(GetActor(c) + "|" + actor)
	})
	return app
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name       string
		secret     string
		header     func(t *testing.T) string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "no secret configured passes through",
			secret:     "",
			header:     func(t *testing.T) string { return "" },
			wantStatus: fiber.StatusOK,
			wantBody:   "anonymous|",
		},
		{
			name:       "missing header",
			secret:     testSecret,
			header:     func(t *testing.T) string { return "" },
			wantStatus: fiber.StatusUnauthorized,
		},
		{
			name:       "malformed header",
			secret:     testSecret,
			header:     func(t *testing.T) string { return "Token abc" },
			wantStatus: fiber.StatusUnauthorized,
		},
		{
			name:   "wrong signing secret",
			secret: testSecret,
			header: func(t *testing.T) string {
				return "Bearer " + signToken(t, "other", adminClaims("ops", ADMIN_ROLE, time.Hour))
			},
			wantStatus: fiber.StatusUnauthorized,
		},
		{
			name:   "expired token",
			secret: testSecret,
			header: func(t *testing.T) string {
				return "Bearer " + signToken(t, testSecret, adminClaims("ops", ADMIN_ROLE, -time.Hour))
			},
			wantStatus: fiber.StatusUnauthorized,
		},
		{
			name:   "token without expiry",
			secret: testSecret,
			header: func(t *testing.T) string {
				return "Bearer " + signToken(t, testSecret, AdminClaims{Role: ADMIN_ROLE})
			},
			wantStatus: fiber.StatusUnauthorized,
		},
		{
			name:   "non-admin role",
			secret: testSecret,
			header: func(t *testing.T) string {
				return "Bearer " + signToken(t, testSecret, adminClaims("viewer", "viewer", time.Hour))
			},
			wantStatus: fiber.StatusForbidden,
		},
		{
			name:   "valid admin token",
			secret: testSecret,
			header: func(t *testing.T) string {
				return "Bearer " + signToken(t, testSecret, adminClaims("ops", ADMIN_ROLE, time.Hour))
			},
			wantStatus: fiber.StatusOK,
			wantBody:   "ops|ops",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newAdminApp(tt.secret)

			req := httptest.NewRequest("POST", "/sync", nil)
			if header := tt.header(t); header != "" {
				req.Header.Set(fiber.HeaderAuthorization, header)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantBody != "" {
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Equal(t, tt.wantBody, string(body))
			}
		})
	}
}

func TestRateLimitSync(t *testing.T) {
	m := New(config.Config{ManualSyncMinIntervalSeconds: 60})
	app := fiber.New()
	app.Post("/sync", m.RateLimitSync(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusAccepted)
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/sync", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/sync", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderRetryAfter))
}

func TestRateLimitSync_Disabled(t *testing.T) {
	m := New(config.Config{ManualSyncMinIntervalSeconds: 0})
	app := fiber.New()
	app.Post("/sync", m.RateLimitSync(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusAccepted)
	})

	for range 3 {
		resp, err := app.Test(httptest.NewRequest("POST", "/sync", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	}
}

func TestTraceID(t *testing.T) {
	m := New(config.Config{})
	app := fiber.New()
	app.Use(m.TraceID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(GetTraceID(c) + "|" + logger.TraceIDFromContext(c.UserContext()))
	})

	t.Run("generates a trace id", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)

		traceID := resp.Header.Get(TraceIDHeader)
		assert.NotEmpty(t, traceID)

		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, traceID+"|"+traceID, string(body))
	})

	t.Run("reuses the caller's trace id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(TraceIDHeader, "upstream-trace")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, "upstream-trace", resp.Header.Get(TraceIDHeader))

		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "upstream-trace|upstream-trace", string(body))
	})
}

func TestRequireRole_RelayOrAdmin(t *testing.T) {
	m := New(config.Config{AdminJWTSecret: testSecret})
	app := fiber.New()
	app.Post("/message", m.RequireRole(RELAY_ROLE, ADMIN_ROLE), func(c *fiber.Ctx) error {
		return c.SendString(GetActor(c))
	})

	tests := []struct {
		name       string
		claims     AdminClaims
		wantStatus int
		wantBody   string
	}{
		{"relay token", adminClaims("chat-relay", RELAY_ROLE, time.Hour), fiber.StatusOK, "chat-relay"},
		{"admin token", adminClaims("ops", ADMIN_ROLE, time.Hour), fiber.StatusOK, "ops"},
		{"relay without subject", adminClaims("", RELAY_ROLE, time.Hour), fiber.StatusOK, RELAY_ROLE},
		{"viewer token", adminClaims("viewer", "viewer", time.Hour), fiber.StatusForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/message", nil)
			req.Header.Set(fiber.HeaderAuthorization, "Bearer "+signToken(t, testSecret, tt.claims))

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantBody != "" {
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Equal(t, tt.wantBody, string(body))
			}
		})
	}
}

func TestRequireAdmin_RejectsRelayToken(t *testing.T) {
	app := newAdminApp(testSecret)

	req := httptest.NewRequest("POST", "/sync", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+signToken(t, testSecret, adminClaims("chat-relay", RELAY_ROLE, time.Hour)))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
