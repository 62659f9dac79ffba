package e2e

import (
	"context"
	"fmt"
	"time"

	"github.com/cucumber/godog"

	"nileasy/internal/profile"
)

// RegisterSteps wires the step definitions for the filing flow features.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	steps := &filingSteps{tc: tc}

	ctx.Step(`^the GST portal is available$`, steps.portalAvailable)
	ctx.Step(`^GSTIN "([^"]*)" has already been verified$`, steps.gstinAlreadyVerified)

	ctx.Step(`^I validate GSTIN "([^"]*)" from phone "([^"]*)"$`, steps.validateGSTIN)
	ctx.Step(`^I validate GSTIN "([^"]*)" (\d+) times$`, steps.validateGSTINTimes)
	ctx.Step(`^I answer the captcha correctly$`, steps.answerCaptchaCorrectly)
	ctx.Step(`^I answer the captcha incorrectly$`, steps.answerCaptchaIncorrectly)
	ctx.Step(`^I answer the captcha again$`, steps.answerCaptchaAgain)
	ctx.Step(`^I request the SMS link for type "([^"]*)" and period "([^"]*)"$`, steps.requestSMSLink)
	ctx.Step(`^I report the filing outcome "([^"]*)"$`, steps.reportOutcome)

	ctx.Step(`^the response field "([^"]*)" is true$`, steps.fieldIsTrue)
	ctx.Step(`^the response field "([^"]*)" is false$`, steps.fieldIsFalse)
	ctx.Step(`^the response field "([^"]*)" is "([^"]*)"$`, steps.fieldEquals)
	ctx.Step(`^the response field "([^"]*)" is not empty$`, steps.fieldNotEmpty)
	ctx.Step(`^a captcha session is issued$`, steps.captchaSessionIssued)
	ctx.Step(`^no captcha session is issued$`, steps.noCaptchaSessionIssued)
	ctx.Step(`^the cached profile is returned$`, steps.cachedProfileReturned)
	ctx.Step(`^the profile trade name is "([^"]*)"$`, steps.profileTradeNameIs)
	ctx.Step(`^the retry hint is a positive number of minutes$`, steps.retryHintPositive)
	ctx.Step(`^the portal was never contacted$`, steps.portalNeverContacted)
}

type filingSteps struct {
	tc *TestContext
}

func (s *filingSteps) portalAvailable(ctx context.Context) error {
	s.tc.portal.calls.Store(0)
	return nil
}

func (s *filingSteps) gstinAlreadyVerified(ctx context.Context, gstin string) error {
	return s.tc.profiles.Save(ctx, &profile.Profile{
		GSTIN:      gstin,
		TradeName:  "ACME Traders",
		Status:     "Active",
		VerifiedAt: time.Now(),
	})
}

func (s *filingSteps) validateGSTIN(ctx context.Context, gstin, phone string) error {
	s.tc.gstin = gstin
	if err := s.tc.POST("/api/v1/validate-gstin", map[string]any{
		"gstin": gstin,
		"phone": phone,
	}); err != nil {
		return err
	}
	if id, ok := s.tc.Field("session_id"); ok {
		if sid, ok := id.(string); ok && sid != "" {
			s.tc.sessionID = sid
		}
	}
	return nil
}

func (s *filingSteps) validateGSTINTimes(ctx context.Context, gstin string, times int) error {
	for i := 0; i < times; i++ {
		if err := s.validateGSTIN(ctx, gstin, ""); err != nil {
			return err
		}
	}
	return nil
}

func (s *filingSteps) answerCaptcha(answer string) error {
	return s.tc.POST("/api/v1/verify-captcha", map[string]any{
		"gstin":      s.tc.gstin,
		"session_id": s.tc.sessionID,
		"captcha":    answer,
	})
}

func (s *filingSteps) answerCaptchaCorrectly(ctx context.Context) error {
	return s.answerCaptcha(s.tc.portal.correctAnswer)
}

func (s *filingSteps) answerCaptchaIncorrectly(ctx context.Context) error {
	return s.answerCaptcha("WRONG")
}

func (s *filingSteps) answerCaptchaAgain(ctx context.Context) error {
	return s.answerCaptcha(s.tc.portal.correctAnswer)
}

func (s *filingSteps) requestSMSLink(ctx context.Context, gstType, period string) error {
	return s.tc.POST("/api/v1/generate-sms-link", map[string]any{
		"gstin":    s.tc.gstin,
		"gst_type": gstType,
		"period":   period,
	})
}

func (s *filingSteps) reportOutcome(ctx context.Context, outcome string) error {
	return s.tc.POST("/api/v1/track-completion", map[string]any{
		"gstin":    s.tc.gstin,
		"gst_type": "3B",
		"period":   "012026",
		"status":   outcome,
	})
}

func (s *filingSteps) fieldIsTrue(ctx context.Context, field string) error {
	v, ok := s.tc.Field(field)
	if !ok {
		return fmt.Errorf("field %q missing from response %v", field, s.tc.lastBody)
	}
	if v != true {
		return fmt.Errorf("field %q is %v, want true", field, v)
	}
	return nil
}

func (s *filingSteps) fieldIsFalse(ctx context.Context, field string) error {
	if v, ok := s.tc.Field(field); ok && v != false {
		return fmt.Errorf("field %q is %v, want false", field, v)
	}
	return nil
}

func (s *filingSteps) fieldEquals(ctx context.Context, field, want string) error {
	v, ok := s.tc.Field(field)
	if !ok {
		return fmt.Errorf("field %q missing from response %v", field, s.tc.lastBody)
	}
	if got := fmt.Sprintf("%v", v); got != want {
		return fmt.Errorf("field %q is %q, want %q", field, got, want)
	}
	return nil
}

func (s *filingSteps) fieldNotEmpty(ctx context.Context, field string) error {
	v, ok := s.tc.Field(field)
	if !ok || v == "" {
		return fmt.Errorf("field %q is empty", field)
	}
	return nil
}

func (s *filingSteps) captchaSessionIssued(ctx context.Context) error {
	if s.tc.sessionID == "" {
		return fmt.Errorf("no captcha session in response %v", s.tc.lastBody)
	}
	return s.fieldNotEmpty(ctx, "captcha_url")
}

func (s *filingSteps) noCaptchaSessionIssued(ctx context.Context) error {
	if v, ok := s.tc.Field("session_id"); ok && v != "" {
		return fmt.Errorf("unexpected captcha session %v", v)
	}
	return nil
}

func (s *filingSteps) cachedProfileReturned(ctx context.Context) error {
	v, ok := s.tc.Field("cached_profile")
	if !ok || v == nil {
		return fmt.Errorf("no cached profile in response %v", s.tc.lastBody)
	}
	return nil
}

func (s *filingSteps) profileTradeNameIs(ctx context.Context, want string) error {
	v, ok := s.tc.Field("profile")
	if !ok {
		return fmt.Errorf("no profile in response %v", s.tc.lastBody)
	}
	p, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("profile has unexpected shape %v", v)
	}
	if p["trade_name"] != want {
		return fmt.Errorf("trade name is %v, want %q", p["trade_name"], want)
	}
	return nil
}

func (s *filingSteps) retryHintPositive(ctx context.Context) error {
	v, ok := s.tc.Field("retry_after_minutes")
	if !ok {
		return fmt.Errorf("no retry hint in response %v", s.tc.lastBody)
	}
	minutes, ok := v.(float64)
	if !ok || minutes <= 0 {
		return fmt.Errorf("retry hint is %v, want a positive number", v)
	}
	return nil
}

func (s *filingSteps) portalNeverContacted(ctx context.Context) error {
	if calls := s.tc.portal.calls.Load(); calls != 0 {
		return fmt.Errorf("portal was contacted %d times", calls)
	}
	return nil
}
