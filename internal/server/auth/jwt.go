// Package auth signs and verifies the JWTs handed out by the authentication
// service. Access and refresh tokens share one codec and one claim shape;
// they differ only by the Policy they are signed with.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mailauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carried by both access and refresh tokens. The registered ID (jti)
// is random so that tokens issued in the same second never collide.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Policy is the signing key and lifetime for one kind of token.
type Policy struct {
	Secret []byte
	TTL    time.Duration
}

// Codec signs and verifies HS256 tokens.
type Codec struct {
	now func() time.Time
}

func NewCodec() *Codec {
	return &Codec{now: time.Now}
}

// Sign issues a token for the user in claims. Any registered claims already
// set on the argument are replaced.
func (c *Codec) Sign(claims Claims, p Policy) (string, error) {
	if len(p.Secret) == 0 {
		return "", errors.New("empty signing secret")
	}

	now := c.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(p.TTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(p.Secret)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// Verify checks signature, algorithm and expiry against p. Expired tokens
// yield common.ErrTokenExpired; everything else wraps common.ErrInvalidToken.
func (c *Codec) Verify(tokenString string, p Policy) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return p.Secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing userId", common.ErrInvalidToken)
	}

	return claims, nil
}
