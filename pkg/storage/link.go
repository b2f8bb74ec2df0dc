package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrLinkInvalid reports a token that was not issued by this signer.
	ErrLinkInvalid = errors.New("invalid download link")
	// ErrLinkExpired reports a token past its expiry.
	ErrLinkExpired = errors.New("download link expired")
)

// LinkSigner issues and checks expiring download tokens for archived exports.
type LinkSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewLinkSigner constructs a signer. A non-positive ttl defaults to one hour.
func NewLinkSigner(secret string, ttl time.Duration) *LinkSigner {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &LinkSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns how long issued links stay valid.
func (s *LinkSigner) TTL() time.Duration { return s.ttl }

// Sign returns a token of the form name.expiry.signature.
func (s *LinkSigner) Sign(name string) (string, time.Time, error) {
	if name == "" {
		return "", time.Time{}, fmt.Errorf("name required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expires := s.now().Add(s.ttl).Truncate(time.Second)
	encoded := base64.RawURLEncoding.EncodeToString([]byte(name))
	ts := strconv.FormatInt(expires.Unix(), 10)
	return strings.Join([]string{encoded, ts, s.mac(encoded, ts)}, "."), expires, nil
}

// Verify checks the token and returns the archived file name it refers to.
func (s *LinkSigner) Verify(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || len(s.secret) == 0 {
		return "", ErrLinkInvalid
	}
	encoded, ts, signature := parts[0], parts[1], parts[2]
	if !hmac.Equal([]byte(s.mac(encoded, ts)), []byte(signature)) {
		return "", ErrLinkInvalid
	}
	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", ErrLinkInvalid
	}
	if s.now().After(time.Unix(expUnix, 0)) {
		return "", ErrLinkExpired
	}
	name, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrLinkInvalid
	}
	return string(name), nil
}

func (s *LinkSigner) mac(encoded, ts string) string {
	m := hmac.New(sha256.New, s.secret)
	_, _ = m.Write([]byte(encoded + "|" + ts))
	return hex.EncodeToString(m.Sum(nil))
}
