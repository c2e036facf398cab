package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

// Issuer is stamped into every key and required on verification.
const Issuer = "accounts-api"

var (
	// ErrInvalidToken covers every reason a key is rejected: bad signature,
	// wrong algorithm or issuer, malformed subject.
	ErrInvalidToken = errors.New("auth: invalid token")
)

// TokenService mints and checks token keys.
//
// WHY SIGNED KEYS WHEN THEY ARE STORED ANYWAY?
// A token is an opaque credential that lives in the tokens table until its
// user is deleted; the table is the source of truth. Making the key an
// HS256 JWT adds a cheap first gate: a forged or mistyped key is rejected
// by its signature before any query runs, and the subject tells us whose
// row to expect.
//
// Keys never expire. The only ways to invalidate one are deleting the user
// or rotating the secret, which invalidates every key at once.
//
// KEY STRUCTURE:
//
//	{"alg":"HS256","typ":"JWT"} . {"iss":"accounts-api","sub":"42","iat":..,"jti":"<xid>"} . sig
//
// jti is a fresh xid per key, so two keys minted in the same second for
// the same user still differ.
type TokenService struct {
	secret []byte
}

// NewTokenService rejects secrets shorter than 16 characters.
// Generate one with: openssl rand -hex 32
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: token secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// NewKey mints a candidate key for userID. Whether it becomes the user's
// token is decided by storage (first key stored wins).
func (s *TokenService) NewKey(userID int64) (string, error) {
	c := jwt.RegisteredClaims{
		Issuer:   Issuer,
		Subject:  strconv.FormatInt(userID, 10),
		IssuedAt: jwt.NewNumericDate(time.Now()),
		ID:       xid.New().String(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and returns the user ID the key was minted
// for. It says nothing about whether the key is still stored.
//
// jwt.WithValidMethods pins HS256, which blocks "alg":"none" and
// algorithm-confusion tricks.
func (s *TokenService) Verify(key string) (int64, error) {
	var c jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(key, &c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, c.Subject)
	}
	return userID, nil
}
