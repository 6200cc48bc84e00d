// Package license validates product keys and issues the signed session
// tokens that browser plugin clients present afterwards.
package license

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the lifetime of an issued token.
const DefaultTTL = 30 * 24 * time.Hour

const issuer = "seo-linker"

var (
	// ErrInvalidKey is returned for unknown or expired product keys.
	ErrInvalidKey = errors.New("invalid product key")
	// ErrInvalidToken is returned for tokens that fail signature or time checks.
	ErrInvalidToken = errors.New("token is invalid or has expired")
	// ErrUnknownUser is returned when a valid token names a key that is no
	// longer in the store.
	ErrUnknownUser = errors.New("user not found for the provided token")
)

// Key is the record stored for one product key.
type Key struct {
	User string
	// Expires is the last day the key may be redeemed; zero never expires.
	Expires time.Time
}

// Claims are the JWT claims carried by an issued token.
type Claims struct {
	ProductKey string `json:"productKey"`
	User       string `json:"user"`
	jwt.RegisteredClaims
}

// Config configures a Service.
type Config struct {
	Secret []byte
	TTL    time.Duration
	// Keys maps product keys (dashes allowed) to their records.
	Keys map[string]Key
	Now  func() time.Time
}

// Service issues and verifies HS256 tokens for a fixed key store.
type Service struct {
	secret []byte
	ttl    time.Duration
	keys   map[string]Key
	now    func() time.Time
	parser *jwt.Parser
}

// NormalizeKey strips dashes and surrounding whitespace, so
// "1234-5678-9101" and "123456789101" name the same key.
func NormalizeKey(key string) string {
	return strings.ReplaceAll(strings.TrimSpace(key), "-", "")
}

// New validates cfg and builds a Service.
func New(cfg Config) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("license secret is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	keys := make(map[string]Key, len(cfg.Keys))
	for raw, k := range cfg.Keys {
		norm := NormalizeKey(raw)
		if norm == "" {
			return nil, fmt.Errorf("empty product key")
		}
		if _, dup := keys[norm]; dup {
			return nil, fmt.Errorf("duplicate product key %q", raw)
		}
		keys[norm] = k
	}
	s := &Service{
		secret: cfg.Secret,
		ttl:    cfg.TTL,
		keys:   keys,
		now:    cfg.Now,
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	return s, nil
}

// Lookup returns the record for productKey after normalization.
func (s *Service) Lookup(productKey string) (Key, bool) {
	k, ok := s.keys[NormalizeKey(productKey)]
	return k, ok
}

// Issue signs a token for productKey. Keys past their expiry day are refused.
func (s *Service) Issue(productKey string) (string, error) {
	norm := NormalizeKey(productKey)
	k, ok := s.keys[norm]
	if !ok || norm == "" {
		return "", ErrInvalidKey
	}
	now := s.now()
	if !k.Expires.IsZero() && now.After(endOfDay(k.Expires)) {
		return "", ErrInvalidKey
	}
	claims := Claims{
		ProductKey: norm,
		User:       k.User,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   k.User,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, issuer and expiry of token.
func (s *Service) Verify(token string) (Claims, error) {
	var claims Claims
	_, err := s.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims, nil
}

// User verifies token and resolves the user from the current key store.
func (s *Service) User(token string) (string, error) {
	claims, err := s.Verify(token)
	if err != nil {
		return "", err
	}
	k, ok := s.keys[claims.ProductKey]
	if !ok {
		return "", ErrUnknownUser
	}
	return k.User, nil
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}
