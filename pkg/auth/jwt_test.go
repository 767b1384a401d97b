package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Parvesbd02/doctor-backend/internal/config"
	"github.com/Parvesbd02/doctor-backend/internal/domain"
)

func newTestManager() *JWTManager {
	return NewJWTManager(config.JWTConfig{
		Secret:          "0123456789abcdef0123456789abcdef",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "doctor-backend",
	})
}

func TestJWTManager_RoundTrip(t *testing.T) {
	m := newTestManager()
	userID := uuid.New()

	pair, err := m.GenerateTokenPair(&domain.Claims{Subject: userID.String(), Email: "a@example.com", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if pair.TokenType != "Bearer" {
		t.Errorf("token type = %q", pair.TokenType)
	}

	claims, err := m.ValidateAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("validate access: %v", err)
	}
	if id, ok := claims.UserID(); !ok || id != userID {
		t.Errorf("subject = %q", claims.Subject)
	}
	if claims.Email != "a@example.com" || claims.Role != domain.RoleUser {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := m.ValidateRefreshToken(pair.RefreshToken); err != nil {
		t.Errorf("validate refresh: %v", err)
	}
}

func TestJWTManager_Rejections(t *testing.T) {
	m := newTestManager()
	pair, err := m.GenerateTokenPair(&domain.Claims{Subject: uuid.NewString(), Role: domain.RoleUser})
	if err != nil {
		t.Fatal(err)
	}

	other := newTestManager()
	other.cfg.Secret = "another-secret-another-secret-xx"
	forged, err := other.GenerateTokenPair(&domain.Claims{Subject: uuid.NewString(), Role: domain.RoleAdmin})
	if err != nil {
		t.Fatal(err)
	}

	badRole, err := m.GenerateTokenPair(&domain.Claims{Subject: "x", Role: domain.Role("superuser")})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		token string
		fn    func(string) (*domain.Claims, error)
		want  error
	}{
		{"empty", "", m.ValidateAccessToken, ErrMissingToken},
		{"garbage", "not.a.jwt", m.ValidateAccessToken, ErrTokenInvalid},
		{"wrong secret", forged.AccessToken, m.ValidateAccessToken, ErrTokenInvalid},
		{"refresh used as access", pair.RefreshToken, m.ValidateAccessToken, ErrTokenTypeMismatch},
		{"access used as refresh", pair.AccessToken, m.ValidateRefreshToken, ErrTokenTypeMismatch},
		{"unknown role", badRole.AccessToken, m.ValidateAccessToken, ErrTokenInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.fn(tt.token); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestJWTManager_Expired(t *testing.T) {
	m := newTestManager()
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }

	pair, err := m.GenerateTokenPair(&domain.Claims{Subject: uuid.NewString(), Role: domain.RoleUser})
	if err != nil {
		t.Fatal(err)
	}

	m.now = func() time.Time { return issued.Add(16 * time.Minute) }
	if _, err := m.ValidateAccessToken(pair.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("err = %v, want ErrTokenExpired", err)
	}
	if _, err := m.ValidateRefreshToken(pair.RefreshToken); err != nil {
		t.Errorf("refresh token should still be valid: %v", err)
	}
}
