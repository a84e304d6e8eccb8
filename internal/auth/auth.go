// Package auth holds the cryptographic helpers behind browser sessions.
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

// GenerateSessionToken returns a random 64 character hex id.
func GenerateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ErrOpen is returned when a sealed value cannot be decrypted.
var ErrOpen = errors.New("auth: cannot open sealed value")

// Sealer encrypts bearer tokens before they are written to disk.
type Sealer struct {
	key    [32]byte
	macKey [32]byte
}

// NewSealer derives the encryption key from secret. An empty secret gets
// a random key, so sealed values do not survive a restart.
func NewSealer(secret string) (*Sealer, error) {
	s := &Sealer{}
	var r io.Reader = rand.Reader
	if secret != "" {
		r = hkdf.New(sha256.New, []byte(secret), nil, []byte("hostel-portal session token"))
	}
	if _, err := io.ReadFull(r, s.key[:]); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(r, s.macKey[:]); err != nil {
		return nil, err
	}
	return s, nil
}

// Seal encrypts plaintext. The empty string seals to the empty string.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", err
	}
	out := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil || len(raw) < 24 {
		return "", ErrOpen
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	plain, ok := secretbox.Open(nil, raw[24:], &nonce, &s.key)
	if !ok {
		return "", ErrOpen
	}
	return string(plain), nil
}

// Fingerprint returns a short keyed hash of value. It is stable for one
// secret and cannot be reversed into value.
func (s *Sealer) Fingerprint(value string) string {
	mac := hmac.New(sha256.New, s.macKey[:])
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil)[:8])
}

// TokenExpiry reads the exp claim of a JWT without verifying its
// signature. Only the backend can verify it; the portal just wants to
// drop tokens that are obviously dead. ok is false for opaque tokens or
// tokens without exp.
func TokenExpiry(token string) (exp time.Time, ok bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// TokenExpired reports whether token carries an exp claim before now.
func TokenExpired(token string, now time.Time) bool {
	exp, ok := TokenExpiry(token)
	return ok && !exp.After(now)
}
