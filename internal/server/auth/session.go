package auth

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/memorialboard/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionCookieName is the cookie carrying the admin session token.
const SessionCookieName = "admin_session"

// SessionTTL bounds the session through the cookie Max-Age. The token
// itself carries no expiry.
const SessionTTL = 8 * time.Hour

var errEmptySecret = errors.New("session secret must not be empty")

// strictSig rejects non-canonical encodings so a signature has exactly one
// accepted spelling.
var strictSig = base64.RawURLEncoding.Strict()

// SessionCodec issues and verifies stateless admin session tokens of the
// form "<adminID>.<base64url(HMAC-SHA256(secret, adminID))>".
type SessionCodec struct {
	secret []byte
}

// NewSessionCodec copies secret; later changes to the caller's slice do not
// affect the codec.
func NewSessionCodec(secret []byte) (*SessionCodec, error) {
	if len(secret) == 0 {
		return nil, errEmptySecret
	}
	s := make([]byte, len(secret))
	copy(s, secret)
	return &SessionCodec{secret: s}, nil
}

func (c *SessionCodec) sign(adminID string) ([]byte, error) {
	return jwt.SigningMethodHS256.Sign(adminID, c.secret)
}

// Issue returns a session token for adminID.
func (c *SessionCodec) Issue(adminID string) (string, error) {
	sig, err := c.sign(adminID)
	if err != nil {
		return "", err
	}
	return adminID + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

// Verify returns the admin id carried by a well-signed token. Every failure
// is reported as common.ErrInvalidToken.
func (c *SessionCodec) Verify(token string) (string, error) {
	adminID, encoded, ok := strings.Cut(token, ".")
	if !ok || adminID == "" || encoded == "" {
		return "", common.ErrInvalidToken
	}

	sig, err := strictSig.DecodeString(encoded)
	if err != nil {
		return "", common.ErrInvalidToken
	}

	if err := jwt.SigningMethodHS256.Verify(adminID, sig, c.secret); err != nil {
		return "", common.ErrInvalidToken
	}

	return adminID, nil
}

// PeekSubject reads the admin id from a token without checking the
// signature. It only tells whether the token has the right shape.
func PeekSubject(token string) (string, bool) {
	adminID, sig, ok := strings.Cut(token, ".")
	if !ok || sig == "" {
		return "", false
	}
	if _, err := uuid.Parse(adminID); err != nil {
		return "", false
	}
	return adminID, true
}
