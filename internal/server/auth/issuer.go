package auth

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/seabattle/internal/common"
	"github.com/dmitrijs2005/seabattle/internal/server/models"
)

const (
	// MinSecretLength is the minimum HMAC secret size in bytes. A shorter
	// secret is a configuration fault caught at startup, never per request.
	MinSecretLength = 32

	// RefreshTokenEntropyBytes is the random payload of an opaque refresh
	// token before base64 encoding.
	RefreshTokenEntropyBytes = 64
)

// AuthBundle is the pair of credentials returned to a caller after
// registration, authentication, or rotation.
type AuthBundle struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
	Username           string
	UserID             string
}

// Issuer mints access and refresh tokens from a fixed signing configuration.
type Issuer struct {
	secret          []byte
	issuer          string
	audience        string
	accessValidity  time.Duration
	refreshValidity time.Duration
}

// NewIssuer validates the signing secret and constructs an Issuer.
// A missing or undersized secret yields common.ErrorInvalidSecret.
func NewIssuer(secret, issuer, audience string, accessValidity, refreshValidity time.Duration) (*Issuer, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: need at least %d bytes", common.ErrorInvalidSecret, MinSecretLength)
	}
	return &Issuer{
		secret:          []byte(secret),
		issuer:          issuer,
		audience:        audience,
		accessValidity:  accessValidity,
		refreshValidity: refreshValidity,
	}, nil
}

// MintAccessToken returns a signed access token for the user and its expiry.
// The expiry is the one stamped into the token's exp claim, not a separate
// clock reading.
func (i *Issuer) MintAccessToken(user *models.User, extra map[string]any) (string, time.Time, error) {
	token, expiry, err := GenerateToken(user.ID, user.Name, i.secret, i.accessValidity, i.issuer, i.audience, extra)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("error signing access token: %w", err)
	}
	return token, expiry, nil
}

// MintRefreshToken returns a new unpersisted refresh token row with its
// value, creation time, and expiry filled in. The caller binds it to a user
// and client address before storing it.
func (i *Issuer) MintRefreshToken() (*models.RefreshToken, error) {
	value, err := common.MakeRandBase64String(RefreshTokenEntropyBytes)
	if err != nil {
		return nil, fmt.Errorf("error generating refresh token: %w", err)
	}
	now := time.Now()
	return &models.RefreshToken{
		Token:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(i.refreshValidity),
	}, nil
}

// MintAuthBundle composes an access token and a refresh token for the user.
// The returned refresh token row is bound to clientIP but not persisted.
func (i *Issuer) MintAuthBundle(user *models.User, clientIP string, extra map[string]any) (*AuthBundle, *models.RefreshToken, error) {
	accessToken, accessExpiry, err := i.MintAccessToken(user, extra)
	if err != nil {
		return nil, nil, err
	}

	refreshToken, err := i.MintRefreshToken()
	if err != nil {
		return nil, nil, err
	}
	refreshToken.UserID = user.ID
	refreshToken.CreatedByIP = clientIP

	bundle := &AuthBundle{
		AccessToken:        accessToken,
		AccessTokenExpiry:  accessExpiry,
		RefreshToken:       refreshToken.Token,
		RefreshTokenExpiry: refreshToken.ExpiresAt,
		Username:           user.Name,
		UserID:             user.ID,
	}
	return bundle, refreshToken, nil
}
