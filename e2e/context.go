// Package e2e runs the webhook API end to end against an in-process server
// with a scripted GST portal.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	"nileasy/internal/audit"
	"nileasy/internal/challenge"
	"nileasy/internal/filing"
	"nileasy/internal/orchestrator"
	"nileasy/internal/profile"
	"nileasy/internal/ratelimit"
	ratelimitstore "nileasy/internal/ratelimit/store"
	httptransport "nileasy/internal/transport/http"
)

// scriptedPortal plays the GST portal. correctAnswer is the only captcha
// response it accepts.
type scriptedPortal struct {
	correctAnswer string
	calls         atomic.Int64
}

func (p *scriptedPortal) FetchChallenge(_ context.Context, gstin string) (*challenge.Captcha, error) {
	p.calls.Add(1)
	return &challenge.Captcha{
		ImageRef:      "https://portal/captcha/" + gstin + ".png",
		ProviderToken: "tok-" + gstin,
	}, nil
}

func (p *scriptedPortal) SubmitResponse(_ context.Context, providerToken, response string) (*challenge.SubmitResult, error) {
	p.calls.Add(1)
	if response != p.correctAnswer {
		return &challenge.SubmitResult{Matched: false}, nil
	}
	return &challenge.SubmitResult{
		Matched: true,
		Profile: &profile.Profile{TradeName: "ACME Traders", LegalName: "ACME Traders Pvt Ltd", Status: "Active"},
	}, nil
}

type scriptedShortener struct{}

func (scriptedShortener) Shorten(_ context.Context, longURL string, _ time.Duration) (string, error) {
	return "https://sm.example/abc123", nil
}

// TestContext holds the running server and the last response between steps.
type TestContext struct {
	server   *httptest.Server
	portal   *scriptedPortal
	profiles *profile.InMemoryStore

	lastStatus int
	lastBody   map[string]any

	sessionID string
	gstin     string
}

// NewTestContext builds the full service with in-memory stores and the
// scripted portal, served over httptest.
func NewTestContext() *TestContext {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	portal := &scriptedPortal{correctAnswer: "AB12CD"}
	profiles := profile.NewInMemoryStore()
	users := profile.NewInMemoryUserStore()

	limiter := ratelimit.New(ratelimitstore.NewInMemoryStore(), 3, time.Hour, log)
	challenges := challenge.NewService(portal, challenge.NewInMemorySessionStore(), profiles, log, 3*time.Minute, time.Second)
	encoder := filing.NewEncoder(scriptedShortener{}, "14409", 10*time.Minute, log)
	tracker := filing.NewTracker(filing.NewInMemorySubmissionStore(), users, log)
	publisher := audit.NewPublisher(make(chan audit.Event, 64), log)

	core := orchestrator.New(limiter, challenges, profiles, users, encoder, tracker, publisher, log)
	router := httptransport.NewRouter(httptransport.New(core, log, nil))

	return &TestContext{
		server:   httptest.NewServer(router),
		portal:   portal,
		profiles: profiles,
	}
}

// Close shuts the in-process server down.
func (tc *TestContext) Close() {
	tc.server.Close()
}

// POST sends a JSON request and captures the decoded response.
func (tc *TestContext) POST(path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	resp, err := http.Post(tc.server.URL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody = map[string]any{}
	if err := json.NewDecoder(resp.Body).Decode(&tc.lastBody); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Field returns a top-level field of the last response.
func (tc *TestContext) Field(name string) (any, bool) {
	v, ok := tc.lastBody[name]
	return v, ok
}
