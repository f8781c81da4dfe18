package auth

import (
	"crypto/rand"
	"io"

	"github.com/dmitrijs2005/memorialboard/internal/common"
)

// ModerationTokenBytes is the entropy of a moderation token.
const ModerationTokenBytes = 32

// TokenIssuer generates moderation tokens: 64 lowercase hex characters.
type TokenIssuer struct {
	source io.Reader
}

// NewTokenIssuer uses source for entropy, or crypto/rand when source is nil.
func NewTokenIssuer(source io.Reader) *TokenIssuer {
	if source == nil {
		source = rand.Reader
	}
	return &TokenIssuer{source: source}
}

func (i *TokenIssuer) Generate() (string, error) {
	return common.ReadRandHexString(i.source, ModerationTokenBytes)
}
