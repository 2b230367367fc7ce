package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"folio/utils"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticVerifier map[string]string

func (v staticVerifier) Verify(ctx context.Context, token string) (string, error) {
	if uid, ok := v[token]; ok {
		return uid, nil
	}
	return "", errors.New("bad token")
}

func identityRouter(verifier TokenVerifier) *gin.Engine {
	r := gin.New()
	r.Use(IdentityMiddleware(verifier, "owner"))
	r.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, GetIdentity(c))
	})
	r.POST("/write", RequireAuth(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestIdentityMiddleware(t *testing.T) {
	r := identityRouter(staticVerifier{"good": "u1"})

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"no header", "", `{"userId":"owner","authenticated":false}`},
		{"invalid token", "Bearer nope", `{"userId":"owner","authenticated":false}`},
		{"not bearer", "Basic good", `{"userId":"owner","authenticated":false}`},
		{"valid token", "Bearer good", `{"userId":"u1","authenticated":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Body.String() != tt.want {
				t.Fatalf("body = %s, want %s", w.Body.String(), tt.want)
			}
		})
	}
}

func TestRequireAuth(t *testing.T) {
	r := identityRouter(staticVerifier{"good": "u1"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/write", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous write status = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/write", nil)
	req.Header.Set("Authorization", "Bearer good")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("authenticated write status = %d", w.Code)
	}
}

func TestJWTVerifierReadsSubject(t *testing.T) {
	secret := []byte("s3cret")
	token, err := utils.GenerateToken(secret, "u9", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	uid, err := JWTVerifier{Secret: secret}.Verify(context.Background(), token)
	if err != nil || uid != "u9" {
		t.Fatalf("uid=%q err=%v", uid, err)
	}
	if _, err := (JWTVerifier{Secret: []byte("other")}).Verify(context.Background(), token); err == nil {
		t.Fatal("token signed with another secret accepted")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	if err := r.SetTrustedProxies([]string{"192.0.2.1"}); err != nil {
		t.Fatal(err)
	}
	r.Use(RateLimitMiddleware(2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(header, value string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(header, value)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, send("X-Forwarded-For", "10.0.0.1"))
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
	if code := send("X-Forwarded-For", "10.0.0.3"); code != http.StatusOK {
		t.Fatalf("other client behind the proxy limited: %d", code)
	}
}

func TestRateLimitIgnoresForwardingHeadersFromUntrustedPeers(t *testing.T) {
	r := gin.New()
	if err := r.SetTrustedProxies(nil); err != nil {
		t.Fatal(err)
	}
	r.Use(RateLimitMiddleware(2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "10.0.0."+strconv.Itoa(i))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		last = w.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("spoofed addresses escaped the limit: %d", last)
	}
}
