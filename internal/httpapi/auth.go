package httpapi

import (
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"dukapos/internal/domain"
)

type AuthManager struct {
	secret        []byte
	tokenTTL      time.Duration
	adminEmail    string
	adminPassword string
}

type ledgerClaims struct {
	jwtlib.RegisteredClaims
	Role    string `json:"role"`
	StoreID string `json:"store_id,omitempty"`
}

// NewAuthManager signs and verifies HS256 owner and admin tokens. The admin
// credentials come from configuration; admin login is disabled when either
// is empty.
func NewAuthManager(secret string, tokenTTL time.Duration, adminEmail string, adminPassword string) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}

	hashed := ""
	if adminPassword != "" {
		if h, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost); err == nil {
			hashed = string(h)
		}
	}

	return &AuthManager{
		secret:        []byte(secret),
		tokenTTL:      tokenTTL,
		adminEmail:    strings.ToLower(strings.TrimSpace(adminEmail)),
		adminPassword: hashed,
	}
}

// TokenForOwner issues a token scoped to the owner's store. Every
// store-facing endpoint takes its tenancy from this claim.
func (a *AuthManager) TokenForOwner(owner domain.StoreOwner, storeID string) (domain.LoginResponse, error) {
	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(owner.ID, domain.RoleOwner, storeID, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	return domain.LoginResponse{
		AccessToken: token,
		StoreID:     storeID,
		Role:        domain.RoleOwner,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) AdminLogin(email string, password string) (domain.LoginResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if a.adminEmail == "" || a.adminPassword == "" {
		return domain.LoginResponse{}, errors.New("admin login disabled")
	}
	if email != a.adminEmail || bcrypt.CompareHashAndPassword([]byte(a.adminPassword), []byte(password)) != nil {
		return domain.LoginResponse{}, errors.New("invalid credentials")
	}

	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign("admin", domain.RoleAdmin, "", expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	return domain.LoginResponse{
		AccessToken: token,
		Role:        domain.RoleAdmin,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &ledgerClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	return domain.Actor{OwnerID: sub, StoreID: claims.StoreID, Role: claims.Role}, nil
}

func (a *AuthManager) sign(subject string, role string, storeID string, expiresAt time.Time) (string, error) {
	claims := ledgerClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "dukapos",
		},
		Role:    role,
		StoreID: storeID,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}
