package httptransport

import "nileasy/internal/profile"

// All four endpoints answer 200 with a structured envelope whether the
// operation succeeded or failed, so the platform maps every outcome to one
// response shape. Error and Code are only set on failure.

type ValidateGSTINResponse struct {
	Valid bool `json:"valid"`
	// Cached is set when verification was skipped via the cache.
	Cached *profile.Profile `json:"cached_profile,omitempty"`
	// CaptchaURL and SessionID are set when a challenge was issued.
	CaptchaURL string `json:"captcha_url,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	Code       string `json:"code,omitempty"`
	Error      string `json:"error,omitempty"`
	// RetryAfterMinutes is set with code RATE_LIMITED.
	RetryAfterMinutes int `json:"retry_after_minutes,omitempty"`
}

type VerifyCaptchaResponse struct {
	Verified bool             `json:"verified"`
	Profile  *profile.Profile `json:"profile,omitempty"`
	Code     string           `json:"code,omitempty"`
	Error    string           `json:"error,omitempty"`
}

type GenerateSMSLinkResponse struct {
	OK bool `json:"ok"`
	// SMSText is the exact payload to relay, byte for byte.
	SMSText string `json:"sms_text,omitempty"`
	// SMSLink is the short HTTP link; empty when the link service failed
	// and the user must send SMSText manually.
	SMSLink string `json:"sms_link,omitempty"`
	// DeepLink is the raw sms: URL behind the short link.
	DeepLink    string `json:"deep_link,omitempty"`
	PeriodLabel string `json:"period_label,omitempty"`
	Code        string `json:"code,omitempty"`
	Error       string `json:"error,omitempty"`
}

type TrackCompletionResponse struct {
	Tracked bool   `json:"tracked"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse is the read-only liveness probe body.
type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp string            `json:"timestamp"`
	Endpoints map[string]string `json:"endpoints"`
}
