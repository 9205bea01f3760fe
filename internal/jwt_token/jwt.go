package jwttoken

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind classifies a token validation failure. Callers outside this package
// treat every kind as "not authenticated"; the kind exists for logs and metrics.
type Kind string

const (
	KindExpired      Kind = "expired"
	KindMalformed    Kind = "malformed"
	KindBadSignature Kind = "bad_signature"
)

var (
	ErrExpiredToken   = errors.New("token has expired")
	ErrMalformedToken = errors.New("malformed token")
	ErrBadSignature   = errors.New("token signature is invalid")
)

// TokenError carries the failure kind alongside the parser's cause.
type TokenError struct {
	Kind Kind
	Err  error
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Reason exposes the kind as a plain string for consumers that only log or
// count failures.
func (e *TokenError) Reason() string {
	return string(e.Kind)
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the exported sentinels by kind.
func (e *TokenError) Is(target error) bool {
	switch target {
	case ErrExpiredToken:
		return e.Kind == KindExpired
	case ErrMalformedToken:
		return e.Kind == KindMalformed
	case ErrBadSignature:
		return e.Kind == KindBadSignature
	}
	return false
}

// KindOf returns the failure kind of err, or "" when err is not a token error.
func KindOf(err error) Kind {
	var te *TokenError
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}

// Service issues and validates HS256 session tokens carrying sub, iat and exp.
// The signing key is fixed at construction; rotating it means building a new
// Service, which invalidates every outstanding token.
type Service struct {
	signingKey []byte
	ttl        time.Duration
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for iat/exp and validation.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService decodes the base64 secret once and returns a Service that signs
// tokens valid for ttl.
func NewService(secretBase64 string, ttl time.Duration, opts ...Option) (*Service, error) {
	key, err := DecodeSecret(secretBase64)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	s := &Service{
		signingKey: key,
		ttl:        ttl,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DecodeSecret turns a configured secret into signing key bytes. Standard
// base64 is tried first, then URL-safe with or without padding.
func DecodeSecret(secret string) ([]byte, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("signing secret is required")
	}
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		key, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(secret, "="))
		if err != nil {
			return nil, fmt.Errorf("signing secret is not valid base64: %w", err)
		}
	}
	if len(key) == 0 {
		return nil, errors.New("signing secret decodes to an empty key")
	}
	return key, nil
}

// TTL reports the configured token lifetime.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for subject valid from now until now+TTL, rounded up
// to the next whole second.
func (s *Service) Issue(subject string) (string, error) {
	if subject == "" {
		return "", errors.New("token subject is required")
	}
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiry(now, s.ttl)),
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// expiry rounds the deadline up to the whole second a NumericDate carries, so
// a token never expires before its full TTL has elapsed.
func expiry(issued time.Time, ttl time.Duration) time.Time {
	deadline := issued.Add(ttl)
	if whole := deadline.Truncate(time.Second); !whole.Equal(deadline) {
		return whole.Add(time.Second)
	}
	return deadline
}

// SubjectOf verifies the token and returns its subject. Failures are
// *TokenError values of kind expired, malformed or bad_signature.
func (s *Service) SubjectOf(tokenString string) (string, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// IsValid reports whether the token belongs to expectedSubject and has not
// expired. Expiry and subject mismatch are a plain false; malformed tokens and
// bad signatures are returned as errors.
func (s *Service) IsValid(tokenString, expectedSubject string) (bool, error) {
	subject, err := s.SubjectOf(tokenString)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			return false, nil
		}
		return false, err
	}
	return subject == expectedSubject, nil
}

func (s *Service) parse(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, classify(err)
	}
	if !parsed.Valid {
		return nil, &TokenError{Kind: KindMalformed, Err: jwt.ErrTokenUnverifiable}
	}
	if claims.Subject == "" {
		return nil, &TokenError{Kind: KindMalformed, Err: errors.New("token has no subject")}
	}
	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return &TokenError{Kind: KindExpired, Err: err}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return &TokenError{Kind: KindBadSignature, Err: err}
	default:
		return &TokenError{Kind: KindMalformed, Err: err}
	}
}
