package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"
)

var (
	ErrKeyNotFound = errors.New("jwks key not found")
	// ErrUnavailable means the key set could not be fetched; the token
	// itself may be fine.
	ErrUnavailable = errors.New("identity keys unavailable")
)

// minRefreshInterval bounds how often key lookups can trigger a fetch.
const minRefreshInterval = 30 * time.Second

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

// JWKSClient serves RSA signing keys from a JWKS endpoint, refetching after ttl
// or when an unknown key id shows up (keys rotate ahead of token issuance).
// Fetches are at least minRefresh apart whatever the key id.
type JWKSClient struct {
	url        string
	ttl        time.Duration
	minRefresh time.Duration
	http       *http.Client
	now        func() time.Time

	mu          sync.Mutex
	expires     time.Time
	lastAttempt time.Time
	lastErr     error
	keys        map[string]*rsa.PublicKey
}

func NewJWKSClient(url string, ttl time.Duration) *JWKSClient {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &JWKSClient{
		url:        url,
		ttl:        ttl,
		minRefresh: minRefreshInterval,
		http:       &http.Client{Timeout: 5 * time.Second},
		now:        time.Now,
		keys:       map[string]*rsa.PublicKey{},
	}
}

func (c *JWKSClient) Key(ctx context.Context, keyID string) (*rsa.PublicKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	key, known := c.keys[keyID]
	if known && now.Before(c.expires) {
		return key, nil
	}

	if !c.lastAttempt.IsZero() && now.Sub(c.lastAttempt) < c.minRefresh {
		if known {
			return key, nil
		}
		if c.lastErr != nil {
			return nil, c.lastErr
		}
		return nil, ErrKeyNotFound
	}

	c.lastAttempt = now
	c.lastErr = c.refresh(ctx)
	if c.lastErr != nil {
		// Serve a stale key rather than failing every request during an outage.
		if known {
			return key, nil
		}
		return nil, c.lastErr
	}

	if key, ok := c.keys[keyID]; ok {
		return key, nil
	}
	return nil, ErrKeyNotFound
}

// refresh replaces the key set. Every failure wraps ErrUnavailable.
func (c *JWKSClient) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: jwks endpoint returned %d", ErrUnavailable, resp.StatusCode)
	}

	var data jwks
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return fmt.Errorf("%w: decode jwks: %v", ErrUnavailable, err)
	}

	keys := map[string]*rsa.PublicKey{}
	for _, k := range data.Keys {
		if k.Kty != "RSA" || k.N == "" || k.E == "" || k.Kid == "" {
			continue
		}
		pub, err := jwkToPublicKey(k)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}

	c.keys = keys
	c.expires = c.now().Add(c.ttl)
	return nil
}

func jwkToPublicKey(k jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, err
	}

	n := new(big.Int).SetBytes(nBytes)
	e := new(big.Int).SetBytes(eBytes).Int64()
	if e <= 0 || e > int64(^uint32(0)>>1) {
		return nil, errors.New("invalid jwk exponent")
	}

	return &rsa.PublicKey{
		N: n,
		E: int(e),
	}, nil
}

// StaticKeys is a fixed key set, used for tests and local development.
type StaticKeys map[string]*rsa.PublicKey

func (s StaticKeys) Key(_ context.Context, keyID string) (*rsa.PublicKey, error) {
	if key, ok := s[keyID]; ok {
		return key, nil
	}
	return nil, ErrKeyNotFound
}
