package fluvius

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// AuthResult is the outcome of a successful login: the bearer token for the
// consumption API plus an informational payload (token metadata and, when the
// token is a decodable JWT, its claims).
type AuthResult struct {
	AccessToken string
	Payload     map[string]any
}

// tokenResponse models the B2C token endpoint response.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// exchangeCode trades the captured authorization code plus the PKCE verifier
// for a bearer token. A non-2xx answer here is reported as a
// *TokenEndpointError so callers can tell it apart from failures at earlier
// steps; a 400 at this endpoint commonly clears up on a fresh attempt.
func (a *Authenticator) exchangeCode(ctx context.Context, sess *Session, code string, pkce *PKCECodes) (*AuthResult, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", a.clientID)
	form.Set("scope", a.scope)
	form.Set("code", code)
	form.Set("redirect_uri", a.redirectURI)
	form.Set("code_verifier", pkce.CodeVerifier)

	resp, err := sess.PostForm(ctx, a.tokenURL, form, nil)
	if err != nil {
		return nil, fmt.Errorf("token exchange request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TokenEndpointError{
			StatusCode:  resp.StatusCode,
			Code:        gjson.GetBytes(resp.Body, "error").String(),
			Description: gjson.GetBytes(resp.Body, "error_description").String(),
		}
	}

	var token tokenResponse
	if err = json.Unmarshal(resp.Body, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, &ScrapeError{Field: "access_token"}
	}

	payload := map[string]any{"expires_in": token.ExpiresIn}
	if token.TokenType != "" {
		payload["token_type"] = token.TokenType
	}
	if token.Scope != "" {
		payload["scope"] = token.Scope
	}
	// Trust is anchored in the authenticated HTTPS channel; the claims are
	// decoded for display only, without signature verification.
	if claims, errClaims := ParseJWTClaims(token.AccessToken); errClaims == nil {
		for name, value := range claims {
			payload[name] = value
		}
	}

	return &AuthResult{AccessToken: token.AccessToken, Payload: payload}, nil
}

// ParseJWTClaims decodes the claims section of a JWT without verifying its
// signature. Useful for introspecting issuer, subject, audience, and expiry
// of a token that the provider just handed over.
func ParseJWTClaims(token string) (map[string]any, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid JWT token format: expected 3 parts, got %d", len(parts))
	}

	claimsData, err := base64URLDecode(parts[1])
	if err != nil {
		return nil, fmt.Errorf("failed to decode JWT claims: %w", err)
	}

	var claims map[string]any
	if err = json.Unmarshal(claimsData, &claims); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JWT claims: %w", err)
	}
	return claims, nil
}

// base64URLDecode decodes a base64url string, re-adding the padding JWTs omit.
func base64URLDecode(data string) ([]byte, error) {
	switch len(data) % 4 {
	case 2:
		data += "=="
	case 3:
		data += "="
	}
	return base64.URLEncoding.DecodeString(data)
}
