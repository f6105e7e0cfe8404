// Package auth implements the token issuer: short-lived signed JWT access
// tokens and long-lived opaque refresh tokens. Nothing here is persisted;
// the caller stores refresh tokens through the repositories.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/seabattle/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the access-token claim set: the registered claims plus the
// username for client convenience.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"name,omitempty"`
}

// GenerateToken mints an HS256-signed access token for userID and returns
// it together with the exact expiry stamped into the exp claim. Extra claims
// are merged in first, so they can never shadow the registered claim set.
func GenerateToken(userID, username string, secret []byte, validity time.Duration, issuer, audience string, extra map[string]any) (string, time.Time, error) {
	now := time.Now()
	expiry := now.Add(validity)

	claims := jwt.MapClaims{}
	for k, v := range extra {
		claims[k] = v
	}
	claims["sub"] = userID
	claims["jti"] = uuid.NewString()
	claims["iss"] = issuer
	claims["aud"] = audience
	claims["iat"] = jwt.NewNumericDate(now)
	claims["exp"] = jwt.NewNumericDate(expiry)
	if username != "" {
		claims["name"] = username
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiry, nil
}

// GetUserIDFromToken verifies signature, expiry, issuer, and audience, and
// returns the subject claim.
func GetUserIDFromToken(tokenString string, secret []byte, issuer, audience string) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}
