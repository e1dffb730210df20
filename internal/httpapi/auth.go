package httpapi

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"kasirinaja/backoffice/internal/domain"
	"kasirinaja/backoffice/internal/service"
)

// AuthManager issues and verifies the gateway's own access tokens. The
// tenant API token obtained at login rides inside the claims so later
// requests can be forwarded on the user's behalf.
type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

type backofficeClaims struct {
	jwtlib.RegisteredClaims
	Role          domain.Role `json:"role"`
	UpstreamToken string      `json:"upt,omitempty"`
}

func NewAuthManager(secret string, tokenTTL time.Duration) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (a *AuthManager) Issue(identity service.Identity, source domain.Source) (domain.LoginResponse, error) {
	expiresAt := a.now().Add(a.tokenTTL)
	token, err := a.sign(identity, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	return domain.LoginResponse{
		AccessToken: token,
		Role:        identity.Role,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
		Source:      source,
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &backofficeClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	if !claims.Role.Valid() {
		return domain.Actor{}, errors.New("invalid token role")
	}
	return domain.Actor{Username: sub, Role: claims.Role, Token: claims.UpstreamToken}, nil
}

func (a *AuthManager) sign(identity service.Identity, expiresAt time.Time) (string, error) {
	claims := backofficeClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   identity.Username,
			IssuedAt:  jwtlib.NewNumericDate(a.now()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "kasirinaja-backoffice",
		},
		Role:          identity.Role,
		UpstreamToken: identity.UpstreamToken,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}
