package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestUserFromToken_RoundTrip(t *testing.T) {
	userID := uuid.NewString()
	token, err := SignToken(userID, "secret", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	v := NewJWTVerifier("secret", "", "")
	got, err := v.UserFromToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != userID {
		t.Fatalf("expected %q, got %q", userID, got)
	}
}

func TestUserFromToken_WrongSecret(t *testing.T) {
	token, _ := SignToken(uuid.NewString(), "secret-a", time.Hour)

	v := NewJWTVerifier("secret-b", "", "")
	if _, err := v.UserFromToken(token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestUserFromToken_Expired(t *testing.T) {
	token, _ := SignToken(uuid.NewString(), "secret", -time.Minute)

	v := NewJWTVerifier("secret", "", "")
	if _, err := v.UserFromToken(token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestUserFromToken_NonUUIDSubject(t *testing.T) {
	token, _ := SignToken("admin", "secret", time.Hour)

	v := NewJWTVerifier("secret", "", "")
	if _, err := v.UserFromToken(token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestUserFromToken_Garbage(t *testing.T) {
	v := NewJWTVerifier("secret", "", "")
	if _, err := v.UserFromToken("not.a.jwt"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestDeleteUser_CallsAdminAPI(t *testing.T) {
	userID := uuid.NewString()
	var gotPath, gotAuth, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	v := NewJWTVerifier("secret", srv.URL, "service-key")
	if err := v.DeleteUser(context.Background(), userID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if gotMethod != http.MethodDelete {
		t.Fatalf("expected DELETE, got %s", gotMethod)
	}
	if gotPath != "/admin/users/"+userID {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotAuth != "Bearer service-key" {
		t.Fatalf("expected service credential, got %q", gotAuth)
	}
}

func TestDeleteUser_AdminRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	v := NewJWTVerifier("secret", srv.URL, "service-key")
	if err := v.DeleteUser(context.Background(), uuid.NewString()); err == nil {
		t.Fatalf("expected error on non-2xx")
	}
}

func TestDeleteUser_Unconfigured(t *testing.T) {
	v := NewJWTVerifier("secret", "", "")
	if err := v.DeleteUser(context.Background(), uuid.NewString()); err == nil {
		t.Fatalf("expected error when admin URL missing")
	}
}
