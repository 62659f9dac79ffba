// Package filing renders the NIL filing SMS payload and records filing
// outcomes. The SMS text is the one artifact the GST portal parses, so its
// encoding is byte-exact with no locale variance.
package filing

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"nileasy/internal/gstin"
)

// actionNil is the literal action keyword the portal expects.
const actionNil = "NIL"

// EncodeSMS renders the fixed-format filing text:
// NIL <type> <GSTIN> <period>, single spaces, nothing optional.
func EncodeSMS(returnType gstin.ReturnType, gstinKey, period string) string {
	return fmt.Sprintf("%s %s %s %s", actionNil, returnType, gstinKey, period)
}

// SMSDeepLink builds an sms: URL that opens the user's messaging app with
// the filing text pre-filled for the portal number.
func SMSDeepLink(number, body string) string {
	return "sms:" + number + "?body=" + url.QueryEscape(body)
}

// Shortener wraps the external short-link service. Messaging platforms do
// not render sms: URLs as tappable links, so the deep link is wrapped in an
// HTTP redirect.
type Shortener interface {
	Shorten(ctx context.Context, longURL string, expiry time.Duration) (string, error)
}

// Encoded is the result of one submission encoding.
type Encoded struct {
	// Text is the exact payload to relay, always present.
	Text string
	// DeepLink opens the SMS app pre-filled, always present.
	DeepLink string
	// ShortURL is empty when the short-link service failed; the caller
	// proceeds manually with Text.
	ShortURL string
	// PeriodLabel is the human-readable period for message copy.
	PeriodLabel string
}

// Encoder produces the filing SMS artifacts.
type Encoder struct {
	shortener    Shortener
	filingNumber string
	linkExpiry   time.Duration
	logger       *slog.Logger
}

func NewEncoder(shortener Shortener, filingNumber string, linkExpiry time.Duration, logger *slog.Logger) *Encoder {
	return &Encoder{
		shortener:    shortener,
		filingNumber: filingNumber,
		linkExpiry:   linkExpiry,
		logger:       logger,
	}
}

// Encode builds the fixed-format text and its delivery artifacts. Short-link
// failure is non-fatal: the text and deep link are always returned.
func (e *Encoder) Encode(ctx context.Context, returnType gstin.ReturnType, gstinKey, period string) *Encoded {
	text := EncodeSMS(returnType, gstinKey, period)
	deepLink := SMSDeepLink(e.filingNumber, text)

	out := &Encoded{
		Text:        text,
		DeepLink:    deepLink,
		PeriodLabel: gstin.PeriodLabel(period),
	}

	shortURL, err := e.shortener.Shorten(ctx, deepLink, e.linkExpiry)
	if err != nil {
		e.logger.WarnContext(ctx, "short link generation failed, returning raw text",
			"gstin", gstinKey,
			"error", err,
		)
		return out
	}
	out.ShortURL = shortURL
	return out
}
