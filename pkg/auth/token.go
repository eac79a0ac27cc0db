// Package auth issues and verifies the bearer tokens of the web application.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// DefaultTTL is how long an issued token stays valid.
const DefaultTTL = 24 * time.Hour

const issuer = "jobdocs"

// Claims identify the user and the browser session a token belongs to. The session id keys
// the user's pipeline run, so two logins never share run state.
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// UserID returns the subject.
func (c *Claims) UserID() (id string) {
	id = c.Subject
	return id
}

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an issuer. A ttl of zero means DefaultTTL.
func NewIssuer(secret string, ttl time.Duration) (iss *Issuer, err error) {
	if secret == "" {
		err = errors.New("JWT secret is required")
		return iss, err
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	iss = &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
	return iss, err
}

// Issue creates a token for userID with a fresh session id.
func (i *Issuer) Issue(userID string) (token string, claims Claims, err error) {
	now := i.now()
	claims = Claims{
		SessionID: uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		err = errors.Wrap(err, "failed to sign token")
		return token, claims, err
	}

	return token, claims, err
}

// Verify parses a token and checks its signature, expiry and issuer.
func (i *Issuer) Verify(token string) (claims *Claims, err error) {
	var parsed *jwt.Token
	parsed, err = jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		err = errors.Wrap(err, "invalid token")
		return claims, err
	}

	var ok bool
	claims, ok = parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		err = errors.New("invalid or expired token")
		return nil, err
	}

	if claims.Subject == "" || claims.SessionID == "" {
		err = errors.New("token is missing subject or session")
		return nil, err
	}

	return claims, err
}
