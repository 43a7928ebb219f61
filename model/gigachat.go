package model

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"ragchat/loader"
)

const (
	defaultGigaChatAuthURL = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"
	defaultGigaChatAPIURL  = "https://gigachat.devices.sberbank.ru/api/v1"
	defaultGigaChatModel   = "GigaChat"
)

// GigaChat is the remote hosted chat backend. TLS certificate verification
// is on unless explicitly disabled through the config.
type GigaChat struct {
	authURL  string
	apiURL   string
	apiKey   string
	model    string
	client   *http.Client
	token    string
	tokenExp time.Time
}

type GigaChatConfig struct {
	APIKey  string
	AuthURL string
	APIURL  string
	Model   string

	// InsecureSkipTLSVerify disables certificate checks against the
	// remote endpoint. Never enable this outside of isolated testing.
	InsecureSkipTLSVerify bool
}

func NewGigaChat(cfg GigaChatConfig) (*GigaChat, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gigachat api_key", loader.ErrMissingCredential)
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultGigaChatAuthURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = defaultGigaChatAPIURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultGigaChatModel
	}

	client := &http.Client{Timeout: 120 * time.Second}
	if cfg.InsecureSkipTLSVerify {
		log.Printf("[GIGACHAT] WARNING: TLS certificate verification is DISABLED")
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &GigaChat{
		authURL: cfg.AuthURL,
		apiURL:  strings.TrimRight(cfg.APIURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  client,
	}, nil
}

func (g *GigaChat) Generate(ctx context.Context, prompt string) (string, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(map[string]any{
		"model": g.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("gigachat API error: status %d, body: %s", resp.StatusCode, string(msg))
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("gigachat API returned no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// accessToken returns a cached OAuth token, requesting a fresh one when
// the cached token is within a minute of expiry.
func (g *GigaChat) accessToken(ctx context.Context) (string, error) {
	if g.token != "" && time.Until(g.tokenExp) > time.Minute {
		return g.token, nil
	}

	form := url.Values{"scope": {"GIGACHAT_API_PERS"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Basic "+g.apiKey)
	req.Header.Set("RqUID", uuid.New().String())

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to request token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("gigachat auth error: status %d, body: %s", resp.StatusCode, string(msg))
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresAt   int64  `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	g.token = out.AccessToken
	g.tokenExp = time.UnixMilli(out.ExpiresAt)
	return g.token, nil
}
