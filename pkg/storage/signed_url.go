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
	// ErrTokenInvalid covers malformed tokens and signature mismatches.
	ErrTokenInvalid = errors.New("invalid download token")
	// ErrTokenExpired is returned for well-signed tokens past their expiry.
	ErrTokenExpired = errors.New("download token expired")
)

// DownloadGrant is what a signed token authorises: one stored file until ExpiresAt.
type DownloadGrant struct {
	ResourceID string    `json:"r"`
	Path       string    `json:"p"`
	ExpiresAt  time.Time `json:"-"`
	Expiry     int64     `json:"e"`
}

// Signer issues short-lived HMAC-signed download tokens.
type Signer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewSigner constructs a signer; a non-positive ttl defaults to 15 minutes.
func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Signer{key: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a URL-safe token granting access to path.
func (s *Signer) Sign(resourceID, path string) (string, DownloadGrant, error) {
	if resourceID == "" || path == "" {
		return "", DownloadGrant{}, errors.New("resource id and path are required")
	}
	if len(s.key) == 0 {
		return "", DownloadGrant{}, errors.New("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	grant := DownloadGrant{ResourceID: resourceID, Path: path, ExpiresAt: expiresAt, Expiry: expiresAt.Unix()}
	payload, err := json.Marshal(grant)
	if err != nil {
		return "", DownloadGrant{}, err
	}
	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + s.mac(encoded), grant, nil
}

// Verify checks the signature first, then expiry.
func (s *Signer) Verify(token string) (DownloadGrant, error) {
	encoded, signature, ok := strings.Cut(token, ".")
	if !ok || encoded == "" || signature == "" {
		return DownloadGrant{}, ErrTokenInvalid
	}
	if !hmac.Equal([]byte(s.mac(encoded)), []byte(signature)) {
		return DownloadGrant{}, ErrTokenInvalid
	}
	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return DownloadGrant{}, ErrTokenInvalid
	}
	var grant DownloadGrant
	if err := json.Unmarshal(payload, &grant); err != nil || grant.ResourceID == "" || grant.Path == "" {
		return DownloadGrant{}, ErrTokenInvalid
	}
	grant.ExpiresAt = time.Unix(grant.Expiry, 0)
	if !s.now().Before(grant.ExpiresAt) {
		return grant, ErrTokenExpired
	}
	return grant, nil
}

func (s *Signer) mac(encoded string) string {
	h := hmac.New(sha256.New, s.key)
	h.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
