package fluvius

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func TestGeneratePKCECodes(t *testing.T) {
	t.Parallel()

	pkce, err := GeneratePKCECodes()
	if err != nil {
		t.Fatalf("GeneratePKCECodes returned error: %v", err)
	}

	if length := len(pkce.CodeVerifier); length < 43 || length > 128 {
		t.Errorf("verifier length = %d, want 43..128", length)
	}
	if _, err = base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(pkce.CodeVerifier); err != nil {
		t.Errorf("verifier is not URL-safe base64: %v", err)
	}

	// Round-trip law: re-deriving the challenge from the stored verifier must
	// yield exactly the stored challenge.
	hash := sha256.Sum256([]byte(pkce.CodeVerifier))
	expected := base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(hash[:])
	if pkce.CodeChallenge != expected {
		t.Errorf("challenge %q does not derive from verifier", pkce.CodeChallenge)
	}
}

func TestGeneratePKCECodesUnique(t *testing.T) {
	t.Parallel()

	first, err := GeneratePKCECodes()
	if err != nil {
		t.Fatal(err)
	}
	second, err := GeneratePKCECodes()
	if err != nil {
		t.Fatal(err)
	}
	if first.CodeVerifier == second.CodeVerifier {
		t.Error("two generated verifiers are identical")
	}
}

func TestGenerateRandomState(t *testing.T) {
	t.Parallel()

	first, err := GenerateRandomState()
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 32 {
		t.Errorf("state length = %d, want 32 hex characters", len(first))
	}
	second, err := GenerateRandomState()
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Error("two generated states are identical")
	}
}
