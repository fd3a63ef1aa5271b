package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"

	"ms-checkin/internal/clock"
	"ms-checkin/internal/models"
)

// Claims is the part of a verified token the service cares about.
type Claims struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
}

type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*Claims, error)
}

// ExtractTokenFromRequest returns the bearer token of the Authorization header.
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header is missing")
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("authorization header format must be 'Bearer {token}'")
	}
	return parts[1], nil
}

// HMAC signs and verifies HS256 tokens issued by the login endpoint.
type HMAC struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	Clock  clock.Clock
}

func NewHMAC(secret string, ttl time.Duration, clk clock.Clock) *HMAC {
	return &HMAC{Secret: []byte(secret), TTL: ttl, Issuer: "ms-checkin", Clock: clk}
}

type hmacClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Issue returns a signed token for user and its expiry.
func (h *HMAC) Issue(user *models.User) (string, time.Time, error) {
	now := h.Clock.Now()
	exp := now.Add(h.TTL)
	claims := hmacClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    h.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

func (h *HMAC) Verify(_ context.Context, raw string) (*Claims, error) {
	var claims hmacClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return h.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(h.Issuer),
		jwt.WithTimeFunc(h.Clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthenticated, err)
	}
	return &Claims{Subject: claims.Subject, Email: claims.Email}, nil
}

// OIDC verifies tokens issued by an external identity provider.
type OIDC struct {
	verifier *oidc.IDTokenVerifier
}

func NewOIDC(ctx context.Context, issuer, clientID string) (*OIDC, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("create OIDC provider: %w", err)
	}
	cfg := &oidc.Config{ClientID: clientID, SkipClientIDCheck: clientID == ""}
	return &OIDC{verifier: provider.Verifier(cfg)}, nil
}

func (o *OIDC) Verify(ctx context.Context, raw string) (*Claims, error) {
	idToken, err := o.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthenticated, err)
	}
	var claims Claims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: failed to parse claims", models.ErrUnauthenticated)
	}
	return &claims, nil
}
