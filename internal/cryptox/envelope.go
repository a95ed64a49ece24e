package cryptox

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwe"
)

// MasterKeySize is the A256GCM key length the master key must decode to.
const MasterKeySize = 32

var (
	ErrInvalidMasterKey = errors.New("invalid master key")
	ErrEnvelopeInvalid  = errors.New("invalid envelope")
)

// Sealer produces compact JWE tokens (alg "dir", enc "A256GCM") under a
// process-wide master key. The master key is the content-encryption key.
type Sealer struct {
	key []byte
}

// NewSealer decodes masterKeyHex and checks that it is exactly MasterKeySize
// bytes long.
func NewSealer(masterKeyHex string) (*Sealer, error) {
	key, err := hex.DecodeString(strings.TrimSpace(masterKeyHex))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMasterKey, err)
	}
	if len(key) != MasterKeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidMasterKey, len(key), MasterKeySize)
	}
	return &Sealer{key: key}, nil
}

// Seal encrypts payload. Every call uses a fresh IV, so sealing the same
// payload twice gives different tokens.
func (s *Sealer) Seal(payload map[string]string) (string, error) {
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	token, err := jwe.Encrypt(plaintext,
		jwe.WithKey(jwa.DIRECT, s.key),
		jwe.WithContentEncryption(jwa.A256GCM),
	)
	if err != nil {
		return "", fmt.Errorf("error sealing payload: %w", err)
	}
	return string(token), nil
}

// Open is the inverse of Seal. Any failure (wrong key, altered token,
// malformed input) yields ErrEnvelopeInvalid and no payload.
func (s *Sealer) Open(token string) (map[string]string, error) {
	plaintext, err := jwe.Decrypt([]byte(token), jwe.WithKey(jwa.DIRECT, s.key))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnvelopeInvalid, err)
	}

	var payload map[string]string
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnvelopeInvalid, err)
	}
	return payload, nil
}
