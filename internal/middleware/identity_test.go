package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"streamchat/internal/identity"
)

func protectedHandler(t *testing.T, wantUserID string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, ok := GetIdentity(r.Context())
		if !ok {
			t.Error("expected identity on request context")
		} else if ident.UserID != wantUserID {
			t.Errorf("expected user id %s, got %s", wantUserID, ident.UserID)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestIdentity_AcceptsBearerHeader(t *testing.T) {
	registry := identity.NewTokenRegistry()
	registry.Add("secret-token", &identity.Identity{UserID: "u1", Username: "alice"})

	handler := Identity(registry)(protectedHandler(t, "u1"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms/lobby/moderation-log", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
}

func TestIdentity_AcceptsQueryToken(t *testing.T) {
	registry := identity.NewTokenRegistry()
	registry.Add("secret-token", &identity.Identity{UserID: "u1", Username: "alice"})

	handler := Identity(registry)(protectedHandler(t, "u1"))

	req := httptest.NewRequest(http.MethodGet, "/ws/chat?token=secret-token", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
}

func TestIdentity_RejectsMissingToken(t *testing.T) {
	registry := identity.NewTokenRegistry()

	handler := Identity(registry)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without a credential")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/streamkeys", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}
}

func TestIdentity_RejectsUnknownToken(t *testing.T) {
	registry := identity.NewTokenRegistry()

	handler := Identity(registry)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run with an unknown credential")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/streamkeys", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}
}

func TestIdentity_RejectsRevokedToken(t *testing.T) {
	registry := identity.NewTokenRegistry()
	registry.Add("secret-token", &identity.Identity{UserID: "u1", Username: "alice"})
	registry.Revoke("secret-token")

	handler := Identity(registry)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run with a revoked credential")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/streamkeys", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}
}
