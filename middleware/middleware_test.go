package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"govbook/models"
	"govbook/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func protectedRouter(extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append([]gin.HandlerFunc{AuthMiddleware()}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"userId": p.UserID, "role": p.Role})
	})
	r.GET("/protected", handlers...)
	return r
}

func bearer(t *testing.T, subject string, role models.Role) string {
	t.Helper()
	token, err := utils.GenerateToken(subject, role, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func serve(r *gin.Engine, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := protectedRouter()

	t.Run("missing header", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve(r, "Basic abc").Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve(r, "Bearer not-a-jwt").Code)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := utils.GenerateToken("citizen-1", models.RoleCitizen, -time.Minute)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, serve(r, "Bearer "+token).Code)
	})

	t.Run("foreign signature", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "citizen-1", "role": "citizen", "exp": time.Now().Add(time.Hour).Unix(),
		}).SignedString([]byte("someone-else"))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, serve(r, "Bearer "+token).Code)
	})

	t.Run("unknown role", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve(r, bearer(t, "x", models.Role("superuser"))).Code)
	})

	t.Run("valid token", func(t *testing.T) {
		w := serve(r, bearer(t, "officer-7", models.RoleOfficer))
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"userId":"officer-7","role":"officer"}`, w.Body.String())
	})
}

func TestRequireRole(t *testing.T) {
	r := protectedRouter(RequireRole(models.RoleOfficer, models.RoleAdmin))

	assert.Equal(t, http.StatusForbidden, serve(r, bearer(t, "citizen-1", models.RoleCitizen)).Code)
	assert.Equal(t, http.StatusOK, serve(r, bearer(t, "officer-1", models.RoleOfficer)).Code)
	assert.Equal(t, http.StatusOK, serve(r, bearer(t, "admin-1", models.RoleAdmin)).Code)
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(rateLimit(newRateLimiterStore(3)))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit("203.0.113.5"))
	}
	assert.Equal(t, http.StatusTooManyRequests, hit("203.0.113.5"))
	assert.Equal(t, http.StatusOK, hit("198.51.100.9"), "limits are per client IP")
}

func TestGetClientIP(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "10.0.0.2:1234", "203.0.113.5"},
		{"real ip", map[string]string{"X-Real-IP": " 198.51.100.9 "}, "10.0.0.2:1234", "198.51.100.9"},
		{"remote addr", nil, "192.0.2.1:5555", "192.0.2.1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Request.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				c.Request.Header.Set(k, v)
			}
			assert.Equal(t, tc.want, getClientIP(c))
		})
	}
}
