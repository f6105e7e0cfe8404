// Package recaptcha verifies CAPTCHA challenge responses attached to
// registration and login requests.
package recaptcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/seabattle/internal/common"
)

const defaultEndpoint = "https://www.google.com/recaptcha/api/siteverify"

// Verifier checks a challenge response token supplied by a client.
type Verifier interface {
	// Verify returns nil when the token is valid for the given client
	// address, common.ErrorUnauthorized when the provider rejects it.
	Verify(ctx context.Context, token string, remoteIP string) error
}

// GoogleVerifier validates tokens against the Google siteverify endpoint.
type GoogleVerifier struct {
	secret   string
	endpoint string
	client   *http.Client
}

// NewGoogleVerifier creates a verifier with the given shared secret.
func NewGoogleVerifier(secret string) *GoogleVerifier {
	return &GoogleVerifier{
		secret:   secret,
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func (v *GoogleVerifier) Verify(ctx context.Context, token string, remoteIP string) error {
	if token == "" {
		return common.ErrorUnauthorized
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("error building siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("error calling siteverify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("siteverify returned status %d", resp.StatusCode)
	}

	var body siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("error decoding siteverify response: %w", err)
	}
	if !body.Success {
		return common.ErrorUnauthorized
	}
	return nil
}

// NoopVerifier accepts every token. Used when CAPTCHA checking is disabled
// in the configuration.
type NoopVerifier struct{}

func (NoopVerifier) Verify(context.Context, string, string) error { return nil }
