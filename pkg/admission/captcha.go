package admission

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/machaonweb/machaonweb/pkg/log"
)

// siteVerifyURL is the reCAPTCHA server-side verification endpoint.
const siteVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// Verifier decides whether a submission's CAPTCHA token is genuine.
type Verifier interface {
	Verify(ctx context.Context, token string) (bool, error)
}

// RecaptchaVerifier validates tokens against the reCAPTCHA service.
type RecaptchaVerifier struct {
	secret   string
	endpoint string
	client   *http.Client
}

// NewRecaptchaVerifier builds a verifier holding the server-side secret.
func NewRecaptchaVerifier(secret string) *RecaptchaVerifier {
	return &RecaptchaVerifier{
		secret:   secret,
		endpoint: siteVerifyURL,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type captchaResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify posts the token and the secret to the verification endpoint and
// returns the service's verdict.
func (v *RecaptchaVerifier) Verify(ctx context.Context, token string) (bool, error) {
	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("failed to build captcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to verify captcha token: %w", err)
	}
	defer resp.Body.Close()

	var result captchaResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("failed to decode captcha response: %w", err)
	}
	if len(result.ErrorCodes) > 0 {
		logger := log.WithComponent("admission")
		logger.Debug().
			Strs("error_codes", result.ErrorCodes).Msg("captcha verification errors")
	}
	return result.Success, nil
}
