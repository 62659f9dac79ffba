package challenge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"nileasy/internal/profile"
)

// HTTPProvider talks to the GST portal scraping service. The scraping
// protocol itself lives behind that service; this client only moves
// challenges and answers across.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

func NewHTTPProvider(baseURL string) *HTTPProvider {
	return &HTTPProvider{
		baseURL: baseURL,
		// Per-call deadlines come from the caller's context.
		client: &http.Client{},
	}
}

type fetchChallengeRequest struct {
	GSTIN string `json:"gstin"`
}

type fetchChallengeResponse struct {
	Token    string `json:"token"`
	ImageURL string `json:"image_url"`
}

func (p *HTTPProvider) FetchChallenge(ctx context.Context, gstin string) (*Captcha, error) {
	var resp fetchChallengeResponse
	if err := p.post(ctx, "/captcha", fetchChallengeRequest{GSTIN: gstin}, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("provider returned no session token")
	}
	return &Captcha{ImageRef: resp.ImageURL, ProviderToken: resp.Token}, nil
}

type submitResponseRequest struct {
	Token    string `json:"token"`
	Response string `json:"response"`
}

type submitResponseResponse struct {
	Matched bool `json:"matched"`
	Details *struct {
		TradeName        string `json:"trade_name"`
		LegalName        string `json:"legal_name"`
		Address          string `json:"address"`
		RegistrationDate string `json:"registration_date"`
		Status           string `json:"status"`
	} `json:"details"`
}

func (p *HTTPProvider) SubmitResponse(ctx context.Context, providerToken, response string) (*SubmitResult, error) {
	var resp submitResponseResponse
	if err := p.post(ctx, "/verify", submitResponseRequest{Token: providerToken, Response: response}, &resp); err != nil {
		return nil, err
	}
	result := &SubmitResult{Matched: resp.Matched}
	if resp.Matched && resp.Details != nil {
		result.Profile = &profile.Profile{
			TradeName:        resp.Details.TradeName,
			LegalName:        resp.Details.LegalName,
			Address:          resp.Details.Address,
			RegistrationDate: resp.Details.RegistrationDate,
			Status:           resp.Details.Status,
		}
	}
	return result, nil
}

func (p *HTTPProvider) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("call provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}
