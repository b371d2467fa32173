// Package identity resolves the owner of the local data: the subject of a signed
// session token, or else an identifier generated once per device and kept.
package identity

import (
	"context"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrNoSession    = errors.New("no session")
	errInvalidToken = errors.New("invalid session token")
)

// Issuer of the session tokens.
const Issuer = "UniLife"

// Provider yields the current owner's identifier.
type Provider interface {
	OwnerID(ctx context.Context) (string, error)
}

// Claims represents the claims transmitted via a session token; the subject is the owner id.
type Claims struct {
	jwt.StandardClaims
}

// GenerateToken signs a session token for ownerID.
func GenerateToken(secret []byte, ownerID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{StandardClaims: jwt.StandardClaims{
		Issuer:    Issuer,
		Subject:   ownerID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}}
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", errors.Wrap(err, "signing session token")
	}
	return ss, nil
}

// ParseToken verifies an HS256 session token and returns its claims.
// The subject must be a UUID.
func ParseToken(secret []byte, token string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, errors.Wrap(errInvalidToken, err.Error())
	}
	if _, err = uuid.Parse(claims.Subject); err != nil {
		return nil, errors.Wrap(errInvalidToken, "subject is not a valid identifier")
	}
	return claims, nil
}

// TokenSource yields the current session token, or "" when there is none.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed session token, e.g. from the configuration.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// SessionProvider resolves the owner from a signed session token.
type SessionProvider struct {
	secret []byte
	tokens TokenSource
}

func NewSessionProvider(secret []byte, tokens TokenSource) *SessionProvider {
	return &SessionProvider{secret: secret, tokens: tokens}
}

func (p *SessionProvider) OwnerID(ctx context.Context) (string, error) {
	token, err := p.tokens.Token(ctx)
	if err != nil {
		return "", errors.Wrap(err, "reading session token")
	}
	if token == "" {
		return "", ErrNoSession
	}
	claims, err := ParseToken(p.secret, token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Settings is where the fallback identifier is kept.
type Settings interface {
	PutIfAbsent(ctx context.Context, key, val string) (string, error)
}

// FallbackKey is the settings key of the fallback identifier.
const FallbackKey = "owner_id"

// FallbackProvider returns the identifier kept in settings, generating it on first use.
type FallbackProvider struct {
	settings Settings
}

func NewFallbackProvider(settings Settings) *FallbackProvider {
	return &FallbackProvider{settings: settings}
}

func (p *FallbackProvider) OwnerID(ctx context.Context) (string, error) {
	id, err := p.settings.PutIfAbsent(ctx, FallbackKey, uuid.New().String())
	if err != nil {
		return "", errors.Wrap(err, "reading fallback identifier")
	}
	return id, nil
}

// Chain tries each provider in turn and returns the first identifier found.
type Chain []Provider

func (c Chain) OwnerID(ctx context.Context) (string, error) {
	reasons := make([]string, 0, len(c))
	for _, p := range c {
		id, err := p.OwnerID(ctx)
		if err == nil && id != "" {
			return id, nil
		}
		if err != nil {
			reasons = append(reasons, err.Error())
		}
	}
	if len(reasons) == 0 {
		return "", ErrNoSession
	}
	return "", errors.Wrap(ErrNoSession, strings.Join(reasons, "; "))
}

// Static always yields the same owner.
type Static string

func (s Static) OwnerID(context.Context) (string, error) {
	if s == "" {
		return "", ErrNoSession
	}
	return string(s), nil
}
