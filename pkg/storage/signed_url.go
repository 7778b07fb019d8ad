package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	// ErrInvalidToken covers malformed and tampered tokens.
	ErrInvalidToken = errors.New("invalid download token")
	// ErrTokenExpired is returned for well-formed tokens past their expiry.
	ErrTokenExpired = errors.New("download token expired")
)

// Ref identifies a stored file behind a token.
type Ref struct {
	ID          string `json:"id"`
	Path        string `json:"path"`
	ContentType string `json:"ct,omitempty"`
}

type claims struct {
	Ref
	Exp int64 `json:"exp"`
}

// SignedURLSigner issues HMAC-SHA256 download tokens of the form
// base64(claims).base64(mac).
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner builds a signer; ttl <= 0 means one hour.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a token for ref and its expiry.
func (s *SignedURLSigner) Sign(ref Ref) (string, time.Time, error) {
	if ref.ID == "" || ref.Path == "" {
		return "", time.Time{}, errors.New("ref id and path required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	body, err := json.Marshal(claims{Ref: ref, Exp: expiresAt.Unix()})
	if err != nil {
		return "", time.Time{}, err
	}
	payload := base64.RawURLEncoding.EncodeToString(body)
	return payload + "." + s.mac(payload), expiresAt, nil
}

// Verify checks the signature and expiry of token.
func (s *SignedURLSigner) Verify(token string) (Ref, time.Time, error) {
	payload, sig, ok := strings.Cut(token, ".")
	if !ok || payload == "" || sig == "" {
		return Ref{}, time.Time{}, ErrInvalidToken
	}
	if !hmac.Equal([]byte(sig), []byte(s.mac(payload))) {
		return Ref{}, time.Time{}, ErrInvalidToken
	}
	body, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return Ref{}, time.Time{}, ErrInvalidToken
	}
	var c claims
	if err := json.Unmarshal(body, &c); err != nil {
		return Ref{}, time.Time{}, ErrInvalidToken
	}
	expiresAt := time.Unix(c.Exp, 0)
	if s.now().After(expiresAt) {
		return Ref{}, expiresAt, ErrTokenExpired
	}
	return c.Ref, expiresAt, nil
}

func (s *SignedURLSigner) mac(payload string) string {
	m := hmac.New(sha256.New, s.secret)
	_, _ = m.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(m.Sum(nil))
}
