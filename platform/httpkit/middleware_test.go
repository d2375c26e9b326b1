package httpkit

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sourcing_backend/platform/apperr"
	"sourcing_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type testAuthConfig struct {
	admins, privileged []string
}

func (testAuthConfig) GetJWTAccessSecret() string       { return "test-secret" }
func (testAuthConfig) GetJWTAudience() string           { return "authenticated" }
func (c testAuthConfig) GetAdminUserIDs() []string      { return c.admins }
func (c testAuthConfig) GetPrivilegedUserIDs() []string { return c.privileged }

func signToken(t *testing.T, secret, sub string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"aud": "authenticated",
		"exp": exp.Unix(),
	})
	raw, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("expected signed token, got %v", err)
	}
	return raw
}

func newAuthRouter(cfg testAuthConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthRequired(cfg, NewAccessList(cfg)))
	r.GET("/me", func(c *gin.Context) {
		id := MustGetIdentity(c)
		if id == nil {
			return
		}
		c.JSON(http.StatusOK, gin.H{"admin": id.HasRole(RoleAdmin), "privileged": id.HasRole(RolePrivileged)})
	})
	r.GET("/admin", RequireRole(RoleAdmin), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestAuthRequired(t *testing.T) {
	admin := uuid.New()
	sourcer := uuid.New()
	cfg := testAuthConfig{admins: []string{admin.String()}, privileged: []string{" " + sourcer.String() + " "}}
	r := newAuthRouter(cfg)
	valid := time.Now().Add(time.Hour)

	tests := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"missing token", "/me", "", http.StatusUnauthorized},
		{"wrong secret", "/me", "Bearer " + signToken(t, "other", sourcer.String(), valid), http.StatusUnauthorized},
		{"expired", "/me", "Bearer " + signToken(t, "test-secret", sourcer.String(), time.Now().Add(-time.Minute)), http.StatusUnauthorized},
		{"subject not a uuid", "/me", "Bearer " + signToken(t, "test-secret", "bob", valid), http.StatusUnauthorized},
		{"valid", "/me", "Bearer " + signToken(t, "test-secret", sourcer.String(), valid), http.StatusOK},
		{"query token", "/me?token=" + signToken(t, "test-secret", sourcer.String(), valid), "", http.StatusOK},
		{"sourcer on admin route", "/admin", "Bearer " + signToken(t, "test-secret", sourcer.String(), valid), http.StatusForbidden},
		{"admin on admin route", "/admin", "Bearer " + signToken(t, "test-secret", admin.String(), valid), http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
		})
	}
}

func TestAccessListRoles(t *testing.T) {
	admin := uuid.New()
	privileged := uuid.New()
	access := NewAccessList(testAuthConfig{
		admins:     []string{admin.String(), "not-a-uuid"},
		privileged: []string{privileged.String()},
	})

	if roles := access.RolesFor(admin); len(roles) != 1 || roles[0] != RoleAdmin {
		t.Fatalf("expected admin role, got %v", roles)
	}
	if !access.IsPrivileged(privileged) || access.IsPrivileged(admin) {
		t.Fatalf("expected only the privileged id to be privileged")
	}
	if ids := access.AdminIDs(); len(ids) != 1 || ids[0] != admin {
		t.Fatalf("expected one admin id, got %v", ids)
	}
}

func TestPayoutRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/payout", NewPayoutRateLimiter(logger.New("development")).RateLimit(), func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/payout", nil))
		if w.Code != http.StatusAccepted {
			t.Fatalf("expected request %d to pass, got %d", i+1, w.Code)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/payout", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
}

func TestHandleError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", apperr.Validation("bad").WithCode("no_unpaid_commission"), http.StatusBadRequest},
		{"conflict", apperr.Conflict("busy"), http.StatusConflict},
		{"external", apperr.External("stripe down", errors.New("timeout")), http.StatusBadGateway},
		{"wrapped", errors.Join(errors.New("ctx"), apperr.NotFound("lead not found")), http.StatusNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			if !HandleError(c, tt.err) {
				t.Fatalf("expected error to be handled")
			}
			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, w.Code)
			}
		})
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	if HandleError(c, nil) {
		t.Fatalf("expected nil error to be ignored")
	}
}

func TestGetIdentityWithoutAuthIsAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(ContextRolesKey, []string{RoleAdmin})

	id := GetIdentity(c)
	if id.IsAuthenticated() || id.HasRole(RoleAdmin) {
		t.Fatalf("expected anonymous identity without roles, got %+v", id)
	}
	if MustGetIdentity(c) != nil || w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	both := uuid.New()
	c.Set(ContextUserIDKey, both)
	c.Set(ContextRolesKey, []string{RoleAdmin, RolePrivileged})
	id = GetIdentity(c)
	if id.UserID() != both || !id.HasRole(RoleAdmin) || !id.HasRole(RolePrivileged) {
		t.Fatalf("expected admin and privileged roles for %s, got %+v", both, id)
	}
}
