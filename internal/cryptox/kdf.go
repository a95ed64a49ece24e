package cryptox

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	KDFIterations = 10000
	KDFKeyLength  = 32
)

var ErrInvalidSalt = errors.New("invalid salt")

// DeriveKey computes the per-user secret key from the account password and
// the account's stored hex salt (PBKDF2-HMAC-SHA256).
//
// The salt is the same one stored on the user record, so the key can be
// recomputed at every login without being persisted. It also means the key
// changes whenever the password or the salt changes; it cannot be rotated on
// its own.
func DeriveKey(password, saltHex string) ([]byte, error) {
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSalt, err)
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidSalt)
	}
	return pbkdf2.Key([]byte(password), salt, KDFIterations, KDFKeyLength, sha256.New), nil
}
