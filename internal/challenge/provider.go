package challenge

import (
	"context"

	"nileasy/internal/profile"
)

// Captcha is one challenge fetched from the portal.
type Captcha struct {
	// ImageRef locates the captcha image for presentation.
	ImageRef string
	// ProviderToken is the portal-side session the answer must be
	// submitted against.
	ProviderToken string
}

// SubmitResult is the portal's verdict on a captcha answer. Profile is only
// set when Matched is true.
type SubmitResult struct {
	Matched bool
	Profile *profile.Profile
}

// Provider is the scraping client that talks to the GST portal. It is an
// opaque capability: fetch a challenge for a GSTIN, submit an answer, get
// the linked business record back. Implementations must respect ctx
// deadlines; the service treats a deadline hit as provider unavailability,
// not as a wrong answer.
type Provider interface {
	FetchChallenge(ctx context.Context, gstin string) (*Captcha, error)
	SubmitResponse(ctx context.Context, providerToken, response string) (*SubmitResult, error)
}
