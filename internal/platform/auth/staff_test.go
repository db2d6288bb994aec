package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	testSecret = "test-staff-secret"
	testIssuer = "table-order-api"
)

func TestVerifyAcceptsValidToken(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	raw, err := IssueStaffToken(testSecret, testIssuer, "staff-1", "Aoki", time.Hour, now)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	verifier, err := NewStaffVerifier(testSecret, testIssuer, WithClock(func() time.Time { return now.Add(time.Minute) }))
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	identity, err := verifier.Verify(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity.Subject != "staff-1" || identity.Name != "Aoki" {
		t.Fatalf("unexpected identity %+v", identity)
	}
	if !identity.IsStaff() {
		t.Fatal("expected staff identity")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	raw, err := IssueStaffToken(testSecret, testIssuer, "staff-1", "", time.Minute, now)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	verifier, err := NewStaffVerifier(testSecret, testIssuer, WithClock(func() time.Time { return now.Add(time.Hour) }))
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	if _, err := verifier.Verify(raw); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	now := time.Now()

	raw, err := IssueStaffToken("other-secret", testIssuer, "staff-1", "", time.Hour, now)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	verifier, err := NewStaffVerifier(testSecret, testIssuer)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	if _, err := verifier.Verify(raw); err == nil {
		t.Fatal("expected signature mismatch to fail")
	}
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	now := time.Now()

	raw, err := IssueStaffToken(testSecret, "someone-else", "staff-1", "", time.Hour, now)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	verifier, err := NewStaffVerifier(testSecret, testIssuer)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	if _, err := verifier.Verify(raw); err == nil {
		t.Fatal("expected issuer mismatch to fail")
	}
}

func TestRequireStaffMiddleware(t *testing.T) {
	now := time.Now()
	verifier, err := NewStaffVerifier(testSecret, testIssuer)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	var sawIdentity *Identity
	handler := verifier.RequireStaff()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawIdentity, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/staff/orders", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/staff/orders", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("non staff role", func(t *testing.T) {
		claims := StaffClaims{
			Role: "customer",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    testIssuer,
				Subject:   "user-9",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/staff/orders", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("valid staff token", func(t *testing.T) {
		raw, err := IssueStaffToken(testSecret, testIssuer, "staff-2", "Sato", time.Hour, now)
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/staff/orders", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", rec.Code)
		}
		if sawIdentity == nil || sawIdentity.Subject != "staff-2" {
			t.Fatalf("identity not propagated: %+v", sawIdentity)
		}
	})
}
