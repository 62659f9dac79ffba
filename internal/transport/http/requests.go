package httptransport

// ValidateGSTINRequest is the first call in the flow: the platform sends the
// GSTIN the user typed, plus the phone it arrived from when known.
type ValidateGSTINRequest struct {
	GSTIN string `json:"gstin"`
	Phone string `json:"phone,omitempty"`
}

// VerifyCaptchaRequest submits the user's captcha answer for the session
// that validate-gstin opened.
type VerifyCaptchaRequest struct {
	GSTIN     string `json:"gstin"`
	SessionID string `json:"session_id"`
	Captcha   string `json:"captcha"`
}

// GenerateSMSLinkRequest asks for the filing SMS once type and period are
// chosen.
type GenerateSMSLinkRequest struct {
	GSTIN   string `json:"gstin"`
	GSTType string `json:"gst_type"`
	Period  string `json:"period"`
}

// TrackCompletionRequest reports the terminal outcome the user observed.
type TrackCompletionRequest struct {
	GSTIN   string `json:"gstin"`
	GSTType string `json:"gst_type"`
	Period  string `json:"period"`
	Status  string `json:"status"`
	Phone   string `json:"phone,omitempty"`
}
