package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func findResponseCookie(response *http.Response, name string) *http.Cookie {
	for _, cookie := range response.Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestAdminLoginSuccessSetsSessionCookie(t *testing.T) {
	_, router := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/auth/login", strings.NewReader(`{"username":"admin","password":"secret"}`))
	req.Header.Set("content-type", "application/json")
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	cookie := findResponseCookie(rec.Result(), adminCookieName)
	if cookie == nil || cookie.Value == "" {
		t.Fatal("expected session cookie to be set")
	}
	if !cookie.HttpOnly {
		t.Error("session cookie must be http-only")
	}
}

func TestAdminLoginInvalidCredentials(t *testing.T) {
	_, router := newTestRouter(t)

	cases := []struct {
		name string
		body string
	}{
		{"wrong password", `{"username":"admin","password":"wrong"}`},
		{"wrong username", `{"username":"intruder","password":"secret"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/auth/login", strings.NewReader(tc.body))
			req.Header.Set("content-type", "application/json")
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if got := decodeJSONBody(t, rec)["error"]; got != "invalid_credentials" {
				t.Errorf("unexpected error code: %v", got)
			}
		})
	}
}

func TestAdminLoginMissingFields(t *testing.T) {
	_, router := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/auth/login", strings.NewReader(`{"username":"","password":""}`))
	req.Header.Set("content-type", "application/json")
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAdminSessionEndpoint(t *testing.T) {
	app, router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authenticatedRequest(t, app, http.MethodGet, "/api/v1/admin/auth/session", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeJSONBody(t, rec)
	if body["username"] != "admin" || body["role"] != "admin" {
		t.Errorf("unexpected session payload: %v", body)
	}
}

func TestAdminSessionEndpointWithoutCookie(t *testing.T) {
	_, router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/auth/session", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestVerifyAdminSessionTokenRejectsTampering(t *testing.T) {
	app := newTestApp(t)
	token, err := app.createAdminSessionToken(AdminSession{Username: "admin", Role: "admin"})
	if err != nil {
		t.Fatalf("create token: %v", err)
	}

	other := newTestApp(t)
	other.cfg.AppSigningSecret = "fedcba9876543210"
	if _, err := other.verifyAdminSessionToken(token); err == nil {
		t.Error("token signed with a different secret must be rejected")
	}

	if _, err := app.verifyAdminSessionToken(token + "x"); err == nil {
		t.Error("tampered token must be rejected")
	}
}

func TestVerifyAdminSessionTokenRejectsNonAdminRole(t *testing.T) {
	app := newTestApp(t)
	token, err := app.createAdminSessionToken(AdminSession{Username: "admin", Role: "viewer"})
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	if _, err := app.verifyAdminSessionToken(token); err == nil {
		t.Error("non-admin role must be rejected")
	}
}

func TestAdminLogoutClearsCookie(t *testing.T) {
	app, router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authenticatedRequest(t, app, http.MethodPost, "/api/v1/admin/auth/logout", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	cookie := findResponseCookie(rec.Result(), adminCookieName)
	if cookie == nil {
		t.Fatal("expected cleared session cookie")
	}
	if cookie.Value != "" || cookie.MaxAge >= 0 {
		t.Error("logout must expire the session cookie")
	}
}
