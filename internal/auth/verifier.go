package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrUnauthenticated = errors.New("unauthorized")

// Verifier resolves a bearer credential to a user identity and can delete
// that identity through the provider's admin API.
type Verifier interface {
	UserFromToken(token string) (string, error)
	DeleteUser(ctx context.Context, userID string) error
}

// JWTVerifier checks HS256 tokens minted by the external auth provider and
// calls its admin endpoint for identity deletion.
type JWTVerifier struct {
	Secret     string
	AdminURL   string
	ServiceKey string
	HTTPClient *http.Client
}

func NewJWTVerifier(secret, adminURL, serviceKey string) *JWTVerifier {
	return &JWTVerifier{
		Secret:     secret,
		AdminURL:   adminURL,
		ServiceKey: serviceKey,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// UserFromToken validates the signature and expiry and returns the subject,
// which must be a UUID.
func (v *JWTVerifier) UserFromToken(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(v.Secret), nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrUnauthenticated
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrUnauthenticated
	}
	if _, err := uuid.Parse(sub); err != nil {
		return "", ErrUnauthenticated
	}
	return sub, nil
}

// DeleteUser removes the identity itself, so the user can no longer
// authenticate. Runs with the service credential, not the user's token.
func (v *JWTVerifier) DeleteUser(ctx context.Context, userID string) error {
	if v.AdminURL == "" {
		return errors.New("auth admin URL not configured")
	}
	url := fmt.Sprintf("%s/admin/users/%s", v.AdminURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+v.ServiceKey)

	resp, err := v.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("auth admin delete: status %d", resp.StatusCode)
	}
	return nil
}

// SignToken mints a token the verifier accepts. Used by tests and local
// tooling; production tokens come from the auth provider.
func SignToken(userID, secret string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(ttl).Unix(),
		"iat": time.Now().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
