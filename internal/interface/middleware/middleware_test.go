package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-ddd-task-tracker/internal/application"
	"github.com/oksasatya/go-ddd-task-tracker/pkg/helpers"
)

const (
	testSecret = "0123456789abcdef0123456789abcdef"
	aliceID    = "6f1c1a0e-7d7e-4c8e-9a57-1b2b9d0f3e11"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newAuthenticator(t *testing.T) (*application.Authenticator, *helpers.JWTManager) {
	t.Helper()
	m, err := helpers.NewJWTManager(helpers.DefaultTokenOptions(testSecret))
	require.NoError(t, err)
	return application.NewAuthenticator(nil, helpers.NewPasswordHasher(bcrypt.MinCost), m, quietLogger()), m
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func protectedRouter(auth *application.Authenticator) *gin.Engine {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/me", BearerAuth(auth), func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"sub": id.Subject, "email": id.Email})
	})
	return r
}

func TestBearerAuth_Accepts(t *testing.T) {
	auth, m := newAuthenticator(t)
	tok, _, err := m.GenerateAccessToken(aliceID, "alice@x.com")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	protectedRouter(auth).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, aliceID, body["sub"])
	assert.Equal(t, "alice@x.com", body["email"])
}

func TestBearerAuth_FailuresLookTheSame(t *testing.T) {
	auth, _ := newAuthenticator(t)
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": aliceID, "email": "a@x.com", "exp": time.Now().Add(-time.Minute).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": aliceID, "email": "a@x.com", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("another-secret-another-secret-xx"))
	require.NoError(t, err)

	headers := map[string]string{
		"missing":   "",
		"basic":     "Basic xyz",
		"no token":  "Bearer ",
		"garbage":   "Bearer abc.def.ghi",
		"expired":   "Bearer " + expired,
		"forged":    "Bearer " + forged,
		"no scheme": forged,
	}
	for name, h := range headers {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if h != "" {
				req.Header.Set("Authorization", h)
			}
			protectedRouter(auth).ServeHTTP(w, req)

			require.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
			body := decode(t, w)
			assert.Equal(t, "UNAUTHORIZED", body["error_code"])
			assert.Equal(t, "Authentication required", body["message"])
			assert.Equal(t, float64(401), body["status_code"])
			assert.Nil(t, body["error"])
		})
	}
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRateLimit_BlocksAfterMax(t *testing.T) {
	_, rdb := newRedis(t)
	r := gin.New()
	r.Use(RealIP())
	r.POST("/login", RateLimit(rdb, quietLogger(), 2, time.Minute, KeyByIPAndPath(), nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func(ip string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.Header.Set("X-Forwarded-For", ip)
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do("203.0.113.7").Code)
	w := do("203.0.113.7")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = do("203.0.113.7")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMITED", decode(t, w)["error_code"])

	assert.Equal(t, http.StatusOK, do("203.0.113.8").Code)
}

func TestRateLimit_WindowExpires(t *testing.T) {
	mr, rdb := newRedis(t)
	r := gin.New()
	r.GET("/x", RateLimit(rdb, nil, 1, time.Second, KeyByIPAndPath(), nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	do := func() int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusTooManyRequests, do())
	mr.FastForward(2 * time.Second)
	assert.Equal(t, http.StatusOK, do())
}

func TestRateLimit_FailsOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = rdb.Close() })

	r := gin.New()
	r.GET("/x", RateLimit(rdb, quietLogger(), 1, time.Minute, KeyByIPAndPath(), nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestKeyBySubject(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set(CtxRealIPKey, "198.51.100.1")

	assert.Equal(t, "rl:user:anon:ip:198.51.100.1", KeyBySubject()(c))
	c.Set(CtxUserIDKey, aliceID)
	assert.Equal(t, "rl:user:"+aliceID, KeyBySubject()(c))
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(HeaderRequestID)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, aliceID)
	r.ServeHTTP(w, req)
	assert.Equal(t, aliceID, w.Body.String())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "<script>")
	r.ServeHTTP(w, req)
	assert.NotEqual(t, "<script>", w.Body.String())
}

func TestRealIP(t *testing.T) {
	r := gin.New()
	r.Use(RealIP())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(CtxRealIPKey)) })

	cases := []struct {
		cf, xff, want string
	}{
		{cf: "198.51.100.9", xff: "203.0.113.1", want: "198.51.100.9"},
		{xff: " 203.0.113.1 , 10.0.0.1", want: "203.0.113.1"},
		{cf: "not-an-ip", xff: "also-bad", want: "192.0.2.1"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.cf != "" {
			req.Header.Set("CF-Connecting-IP", tc.cf)
		}
		req.Header.Set("X-Forwarded-For", tc.xff)
		r.ServeHTTP(w, req)
		assert.Equal(t, tc.want, w.Body.String())
	}
}

func TestRequireAllow_PrivateOnly(t *testing.T) {
	r := gin.New()
	r.Use(RealIP())
	r.GET("/metrics", RequireAllow(AllowPrivateIP()), func(c *gin.Context) { c.Status(http.StatusOK) })

	for ip, want := range map[string]int{
		"127.0.0.1":   http.StatusOK,
		"10.1.2.3":    http.StatusOK,
		"203.0.113.5": http.StatusForbidden,
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		req.Header.Set("X-Forwarded-For", ip)
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, ip)
	}
}

func TestSecureHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecureHeaders(SecureOptions(false)))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "default-src 'self'", w.Header().Get("Content-Security-Policy"))
}

func TestRecovery_HidesPanic(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware(), Recovery(quietLogger()))
	r.GET("/boom", func(c *gin.Context) { panic("pq: password authentication failed for user postgres") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "postgres")
	assert.Equal(t, "INTERNAL_ERROR", decode(t, w)["error_code"])
}

func TestMetrics_RecordsByRoute(t *testing.T) {
	r := gin.New()
	r.Use(Metrics())
	r.GET("/api/tasks/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.CollectAndCount(httpRequestDuration)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tasks/abc", nil))
	assert.Equal(t, before+1, testutil.CollectAndCount(httpRequestDuration))

	RecordAuthAttempt("sign_in", false)
	assert.GreaterOrEqual(t, testutil.ToFloat64(authAttempts.WithLabelValues("sign_in", "false")), float64(1))
}
