package config

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

const redacted = "[REDACTED]"

// Secret is a string secret that redacts itself on every dump path. The
// raw value is only reachable through Value, at the protocol boundary.
type Secret string

func (Secret) String() string { return redacted }

func (Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(redacted)
}

// Value returns the raw secret.
func (s Secret) Value() string { return string(s) }

// KeyBytes holds raw key material. The key file carries it as URL-safe
// base64 text; it decodes to raw bytes on load so callers never feed the
// textual form into signature verification.
type KeyBytes []byte

func (k *KeyBytes) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return fmt.Errorf("key material must be a base64url string: %w", err)
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(text, "="))
	if err != nil {
		return fmt.Errorf("decoding base64url key material: %w", err)
	}
	*k = raw
	return nil
}

func (KeyBytes) String() string { return redacted }

func (KeyBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(redacted)
}

// SigningKey is the shared symmetric key the authorization server signs
// access tokens with. Since the console runs on the same host, it reads
// the server's key directly.
type SigningKey struct {
	Kty string   `json:"kty"`
	Alg string   `json:"alg"`
	Kid string   `json:"kid"`
	K   KeyBytes `json:"k"`
}

// LoadSigningKey reads the JWT signature verification key from the JSON
// key file at path.
func LoadSigningKey(path string) (*SigningKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading signing key %s: %w", path, err)
	}

	var key SigningKey
	if err := json.Unmarshal(raw, &key); err != nil {
		return nil, fmt.Errorf("parsing signing key %s: %w", path, err)
	}
	if len(key.K) == 0 {
		return nil, fmt.Errorf("signing key %s: empty key material", path)
	}

	return &key, nil
}
