package client

import (
	"crypto/sha256"
	"encoding/base64"

	"github.com/dmitrijs2005/xplit/internal/common"
)

// ChallengeMethod is the only PKCE method the provider is asked to use.
const ChallengeMethod = "s256"

// NewCodeVerifier returns a 43 character base64url verifier.
func NewCodeVerifier() string {
	return base64.RawURLEncoding.EncodeToString(common.GenerateRandByteArray(32))
}

// CodeChallengeS256 derives the challenge sent alongside a verifier.
func CodeChallengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
