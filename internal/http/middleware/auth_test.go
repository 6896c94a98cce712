package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/venturecanvas/venturecanvas-backend/internal/pkg/ctxutil"
	"github.com/venturecanvas/venturecanvas-backend/internal/platform/logger"
)

const testSecret = "test-secret-key"

func signServiceToken(t *testing.T, secret, subject string, ttl time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newAuthTestRouter(t *testing.T) (*gin.Engine, *string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(func() { log.Sync() })

	var seenCaller string
	r := gin.New()
	auth := NewServiceAuth(log, testSecret)
	r.Use(auth.RequireAuth())
	r.GET("/protected", func(c *gin.Context) {
		if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil {
			seenCaller = rd.Caller
		}
		c.Status(http.StatusOK)
	})
	return r, &seenCaller
}

func TestServiceAuthAcceptsBearerToken(t *testing.T) {
	r, seenCaller := newAuthTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signServiceToken(t, testSecret, "canvas-orchestrator", time.Minute))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d body=%s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if *seenCaller != "canvas-orchestrator" {
		t.Fatalf("caller: want=%q got=%q", "canvas-orchestrator", *seenCaller)
	}
}

func TestServiceAuthAcceptsQueryToken(t *testing.T) {
	r, _ := newAuthTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/protected?token="+signServiceToken(t, testSecret, "sse-client", time.Minute), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d", http.StatusOK, rec.Code)
	}
}

func TestServiceAuthRejectsBadTokens(t *testing.T) {
	r, _ := newAuthTestRouter(t)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing", header: "", want: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + signServiceToken(t, "other-secret", "svc", time.Minute), want: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + signServiceToken(t, testSecret, "svc", -time.Minute), want: http.StatusUnauthorized},
		{name: "empty subject", header: "Bearer " + signServiceToken(t, testSecret, "", time.Minute), want: http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status: want=%d got=%d", tc.want, rec.Code)
			}
		})
	}
}
