// Package fluvius implements the browser-less login flow against the Fluvius
// identity provider. It reproduces the multi-step Azure AD B2C policy flow
// (authorize, self-asserted credential submission, confirmation redirect,
// code-for-token exchange) purely through HTTP requests, session cookies, and
// scraping of the configuration embedded in intermediate pages.
package fluvius

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// PKCECodes holds a PKCE code verifier and its derived challenge as specified
// in RFC 7636. The verifier is only transmitted at the final token exchange.
type PKCECodes struct {
	CodeVerifier  string
	CodeChallenge string
}

// ChallengeMethod is the PKCE challenge derivation method sent to the provider.
const ChallengeMethod = "S256"

// GeneratePKCECodes generates a new pair of PKCE codes. It creates a
// cryptographically random code verifier and its corresponding SHA256 code
// challenge.
func GeneratePKCECodes() (*PKCECodes, error) {
	codeVerifier, err := generateCodeVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}

	return &PKCECodes{
		CodeVerifier:  codeVerifier,
		CodeChallenge: generateCodeChallenge(codeVerifier),
	}, nil
}

// generateCodeVerifier creates a cryptographically secure random string to be
// used as the code verifier. 96 random bytes encode to 128 base64 characters,
// the upper bound of the accepted 43-128 range.
func generateCodeVerifier() (string, error) {
	bytes := make([]byte, 96)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	// Encode to URL-safe base64 without padding
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(bytes), nil
}

// generateCodeChallenge derives the S256 code challenge from a code verifier.
func generateCodeChallenge(codeVerifier string) string {
	hash := sha256.Sum256([]byte(codeVerifier))
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(hash[:])
}

// GenerateRandomState generates a cryptographically secure random state
// parameter to bind the final redirect back to this login attempt.
func GenerateRandomState() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
