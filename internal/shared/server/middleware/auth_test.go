package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"resume-builder/internal/shared/auth"
)

func newAuthRouter(t *testing.T, tokens *auth.Tokens) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(tokens))
	router.GET("/api/v1/form", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"namespace": NamespaceFromContext(c)})
	})
	router.OPTIONS("/api/v1/form", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestAuthAllowsOptionsWithoutIdentity(t *testing.T) {
	router := newAuthRouter(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/form", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func TestAuthGuestNamespace(t *testing.T) {
	router := newAuthRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/form", nil)
	req.Header.Set("X-Guest-Id", "g-1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if body := resp.Body.String(); body != `{"namespace":"guest:g-1"}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestAuthBearerNamespace(t *testing.T) {
	tokens, err := auth.NewTokens("s3cret", "dev")
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	raw, err := tokens.Sign(auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "42"}})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	router := newAuthRouter(t, tokens)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/form", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if body := resp.Body.String(); body != `{"namespace":"user:42"}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestAuthRejectsMissingIdentity(t *testing.T) {
	router := newAuthRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/form", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestAuthRejectsBadToken(t *testing.T) {
	tokens, _ := auth.NewTokens("s3cret", "dev")
	router := newAuthRouter(t, tokens)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/form", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestAuthExposesEmailAndGuestFlag(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens, _ := auth.NewTokens("s3cret", "dev")
	router := gin.New()
	router.Use(Auth(tokens))
	router.GET("/api/v1/session", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"email": UserEmailFromContext(c), "guest": IsGuestFromContext(c)})
	})

	raw, err := tokens.Sign(auth.Claims{Email: "ada@example.com", RegisteredClaims: jwt.RegisteredClaims{Subject: "42"}})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if body := resp.Body.String(); body != `{"email":"ada@example.com","guest":false}` {
		t.Fatalf("unexpected body for token caller: %s", body)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
	req.Header.Set("X-Guest-Id", "g1")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if body := resp.Body.String(); body != `{"email":"","guest":true}` {
		t.Fatalf("unexpected body for guest: %s", body)
	}
}
