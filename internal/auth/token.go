package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// Claims is the CBOR payload of an admin session token.
type Claims struct {
	AdminID   int64  `cbor:"1,keyasint"`
	Username  string `cbor:"2,keyasint"`
	ID        string `cbor:"3,keyasint"`
	IssuedAt  int64  `cbor:"4,keyasint"`
	ExpiresAt int64  `cbor:"5,keyasint"`
}

var (
	ErrTokenMalformed   = errors.New("auth: malformed token")
	ErrInvalidSignature = errors.New("auth: invalid token signature")
	ErrTokenExpired     = errors.New("auth: token has expired")
)

const signatureSize = sha256.Size

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("auth: CBOR encoder initialization failed: " + err.Error())
	}
}

// Signer mints and verifies tokens with an HMAC-SHA256 key. The wire form is
// base64url(cbor(claims) || mac).
type Signer struct {
	key []byte
	ttl time.Duration
}

func NewSigner(secret []byte, ttl time.Duration) (*Signer, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("auth: signing secret must be at least 32 bytes, got %d", len(secret))
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("auth: token ttl must be positive")
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &Signer{key: key, ttl: ttl}, nil
}

// Mint issues a token for the admin valid for the signer's TTL from now.
func (s *Signer) Mint(adminID int64, username string, now time.Time) (string, *Claims, error) {
	claims := &Claims{
		AdminID:   adminID,
		Username:  username,
		ID:        uuid.NewString(),
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
	}

	payload, err := encMode.Marshal(claims)
	if err != nil {
		return "", nil, fmt.Errorf("auth: encoding token payload: %w", err)
	}

	raw := make([]byte, 0, len(payload)+signatureSize)
	raw = append(raw, payload...)
	raw = append(raw, s.sign(payload)...)

	return base64.RawURLEncoding.EncodeToString(raw), claims, nil
}

func (s *Signer) Verify(token string) (*Claims, error) {
	return s.VerifyAt(token, time.Now())
}

// VerifyAt is like Verify but checks expiry against now.
func (s *Signer) VerifyAt(token string, now time.Time) (*Claims, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrTokenMalformed
	}
	if len(raw) <= signatureSize {
		return nil, ErrTokenMalformed
	}

	split := len(raw) - signatureSize
	payload, signature := raw[:split], raw[split:]
	if !hmac.Equal(signature, s.sign(payload)) {
		return nil, ErrInvalidSignature
	}

	var claims Claims
	if err := cbor.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if now.Unix() >= claims.ExpiresAt {
		return nil, ErrTokenExpired
	}
	return &claims, nil
}

func (s *Signer) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(payload)
	return mac.Sum(nil)
}
