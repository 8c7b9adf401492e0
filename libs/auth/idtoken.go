package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenMissing = errors.New("token missing")
	ErrInvalidToken = errors.New("invalid token")
)

// FirebaseJWKSURL publishes the keys that sign Firebase ID tokens.
const FirebaseJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

type KeySource interface {
	Key(ctx context.Context, keyID string) (*rsa.PublicKey, error)
}

type Claims struct {
	jwt.RegisteredClaims
	Email    string `json:"email,omitempty"`
	AuthTime int64  `json:"auth_time,omitempty"`
}

// UserID is the stable identifier of the authenticated user.
func (c *Claims) UserID() string {
	return c.Subject
}

type VerifierConfig struct {
	ProjectID string
	Keys      KeySource
	Leeway    time.Duration
	Now       func() time.Time
}

// Verifier checks ID tokens issued for a single project.
type Verifier struct {
	keys   KeySource
	parser *jwt.Parser
}

func NewVerifier(cfg VerifierConfig) *Verifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(cfg.ProjectID),
		jwt.WithIssuer("https://securetoken.google.com/" + cfg.ProjectID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(cfg.Now))
	}
	return &Verifier{keys: cfg.Keys, parser: jwt.NewParser(opts...)}
}

func (v *Verifier) Verify(ctx context.Context, token string) (*Claims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrTokenMissing
	}
	var claims Claims
	var keyErr error
	_, err := v.parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		key, err := v.keys.Key(ctx, kid)
		keyErr = err
		return key, err
	})
	if errors.Is(keyErr, ErrUnavailable) {
		return nil, keyErr
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || len(claims.Subject) > 128 {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return &claims, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrTokenMissing
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrInvalidToken
	}
	return strings.TrimSpace(token), nil
}
