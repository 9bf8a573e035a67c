package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Config struct {
	Secret    string
	VerifyURL string
	Timeout   time.Duration
}

// TurnstileProvider verifies tokens against a Turnstile-compatible
// siteverify endpoint with a bounded timeout.
type TurnstileProvider struct {
	cfg    Config
	client *http.Client
}

func NewTurnstile(cfg Config) *TurnstileProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &TurnstileProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *TurnstileProvider) Verify(ctx context.Context, token string, remoteIP string) (bool, error) {
	if strings.TrimSpace(token) == "" {
		return false, nil
	}

	form := url.Values{}
	form.Set("secret", p.cfg.Secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.VerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("captcha verify: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("captcha verify: %w", err)
	}
	return body.Success, nil
}
