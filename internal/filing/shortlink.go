package filing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// LinkClient calls the SMS short-link generator's create-link API.
type LinkClient struct {
	baseURL string
	client  *http.Client
}

func NewLinkClient(baseURL string, timeout time.Duration) *LinkClient {
	return &LinkClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type createLinkRequest struct {
	OriginalURL   string `json:"originalUrl"`
	ExpiryMinutes int    `json:"expiryMinutes"`
}

type createLinkResponse struct {
	ShortURL  string `json:"shortUrl"`
	ShortCode string `json:"shortCode"`
}

func (c *LinkClient) Shorten(ctx context.Context, longURL string, expiry time.Duration) (string, error) {
	payload, err := json.Marshal(createLinkRequest{
		OriginalURL:   longURL,
		ExpiryMinutes: int(expiry.Minutes()),
	})
	if err != nil {
		return "", fmt.Errorf("marshal create-link request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/create-link", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build create-link request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call link service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("link service returned status %d", resp.StatusCode)
	}

	var out createLinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode link service response: %w", err)
	}
	if out.ShortURL == "" {
		return "", fmt.Errorf("link service returned empty URL")
	}
	return out.ShortURL, nil
}
