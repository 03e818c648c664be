// Package token mints and validates the self-contained bearer tokens handed out
// at registration and login.
//
// Tokens are HS256 JWTs. Nothing is stored server side: a token is valid while
// its signature matches under the process secret and it is younger than TTL.
// There is no revocation, and replacing the secret invalidates every token
// issued under the old one.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"zylorb/internal/model"
)

// TTL is the fixed lifetime of a token, counted from its issued-at claim.
const TTL = 24 * time.Hour

func init() {
	// iat is compared at millisecond granularity.
	jwt.TimePrecision = time.Millisecond
}

type Claims struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func (c Claims) AccountID() string {
	return c.Subject
}

func (c Claims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

type Codec struct {
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

func NewCodec(secret string) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token secret is required")
	}

	return &Codec{
		secret: []byte(secret),
		now:    time.Now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithStrictDecoding(),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// SetClock replaces the time source used for iat and expiry checks.
func (c *Codec) SetClock(now func() time.Time) {
	c.now = now
}

func (c *Codec) Mint(account model.Account) (string, error) {
	if account.ID == "" {
		return "", errors.New("mint token: account id is empty")
	}

	issuedAt := c.now().UTC()
	claims := Claims{
		Email:    account.Email,
		Username: account.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(TTL)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate returns the claims of a well-formed, correctly signed, unexpired
// token. Failures wrap model.ErrTokenMalformed, ErrTokenBadSignature or
// ErrTokenExpired.
func (c *Codec) Validate(tokenString string) (Claims, error) {
	var claims Claims
	_, err := c.parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return Claims{}, fmt.Errorf("%w: %v", model.ErrTokenBadSignature, err)
		}
		return Claims{}, fmt.Errorf("%w: %v", model.ErrTokenMalformed, err)
	}

	if claims.Subject == "" || claims.IssuedAt == nil {
		return Claims{}, fmt.Errorf("%w: missing sub or iat", model.ErrTokenMalformed)
	}

	if c.now().Sub(claims.IssuedAt.Time) > TTL {
		return Claims{}, model.ErrTokenExpired
	}

	return claims, nil
}
