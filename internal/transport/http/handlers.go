package httptransport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"nileasy/internal/orchestrator"
	"nileasy/internal/platform/middleware"
	dErrors "nileasy/pkg/domain-errors"
)

// Handler is the thin HTTP layer over the orchestrator. It delegates to the
// domain service without embedding business logic so transport concerns
// remain isolated.
type Handler struct {
	logger       *slog.Logger
	core         *orchestrator.Service
	jwtValidator middleware.JWTValidator
}

// New creates the webhook API handler. jwtValidator may be nil, in which
// case the API is open (development mode).
func New(core *orchestrator.Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		core:         core,
		jwtValidator: jwtValidator,
	}
}

// Register registers the webhook API routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	api := chi.NewRouter()
	api.Use(middleware.Recovery(h.logger))
	api.Use(middleware.RequestID)
	api.Use(middleware.Logger(h.logger))
	api.Use(middleware.Timeout(30 * time.Second))
	api.Use(middleware.ContentTypeJSON)
	if h.jwtValidator != nil {
		api.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	}

	api.Post("/validate-gstin", h.handleValidateGSTIN)
	api.Post("/verify-captcha", h.handleVerifyCaptcha)
	api.Post("/generate-sms-link", h.handleGenerateSMSLink)
	api.Post("/track-completion", h.handleTrackCompletion)
	api.Get("/health", h.handleHealth)

	r.Mount("/api/v1", api)
}

func (h *Handler) handleValidateGSTIN(w http.ResponseWriter, r *http.Request) {
	var req ValidateGSTINRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ValidateGSTINResponse{
			Code:  string(dErrors.CodeBadRequest),
			Error: "invalid request body",
		})
		return
	}

	outcome, err := h.core.ValidateIdentity(r.Context(), req.GSTIN, req.Phone)
	if err != nil {
		resp := ValidateGSTINResponse{
			Code:  string(dErrors.CodeOf(err)),
			Error: errorMessage(err),
		}
		var de *dErrors.Error
		if errors.As(err, &de) && de.Code == dErrors.CodeRateLimited {
			resp.RetryAfterMinutes = dErrors.RetryAfterMinutes(de.RetryAfter)
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	switch v := outcome.(type) {
	case orchestrator.Cached:
		writeJSON(w, http.StatusOK, ValidateGSTINResponse{
			Valid:  true,
			Cached: v.Profile,
		})
	case orchestrator.NeedsChallenge:
		writeJSON(w, http.StatusOK, ValidateGSTINResponse{
			Valid:      true,
			CaptchaURL: v.ChallengeRef,
			SessionID:  v.SessionID,
		})
	default:
		h.logger.ErrorContext(r.Context(), "unknown validation outcome",
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeJSON(w, http.StatusInternalServerError, ValidateGSTINResponse{
			Code:  string(dErrors.CodeInternal),
			Error: "internal error",
		})
	}
}

func (h *Handler) handleVerifyCaptcha(w http.ResponseWriter, r *http.Request) {
	var req VerifyCaptchaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, VerifyCaptchaResponse{
			Code:  string(dErrors.CodeBadRequest),
			Error: "invalid request body",
		})
		return
	}

	p, err := h.core.VerifyChallenge(r.Context(), req.SessionID, req.GSTIN, req.Captcha)
	if err != nil {
		writeJSON(w, http.StatusOK, VerifyCaptchaResponse{
			Code:  string(dErrors.CodeOf(err)),
			Error: errorMessage(err),
		})
		return
	}

	writeJSON(w, http.StatusOK, VerifyCaptchaResponse{
		Verified: true,
		Profile:  p,
	})
}

func (h *Handler) handleGenerateSMSLink(w http.ResponseWriter, r *http.Request) {
	var req GenerateSMSLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, GenerateSMSLinkResponse{
			Code:  string(dErrors.CodeBadRequest),
			Error: "invalid request body",
		})
		return
	}

	encoded, err := h.core.GenerateSubmission(r.Context(), req.GSTIN, req.GSTType, req.Period)
	if err != nil {
		writeJSON(w, http.StatusOK, GenerateSMSLinkResponse{
			Code:  string(dErrors.CodeOf(err)),
			Error: errorMessage(err),
		})
		return
	}

	writeJSON(w, http.StatusOK, GenerateSMSLinkResponse{
		OK:          true,
		SMSText:     encoded.Text,
		SMSLink:     encoded.ShortURL,
		DeepLink:    encoded.DeepLink,
		PeriodLabel: encoded.PeriodLabel,
	})
}

func (h *Handler) handleTrackCompletion(w http.ResponseWriter, r *http.Request) {
	var req TrackCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, TrackCompletionResponse{
			Code:  string(dErrors.CodeBadRequest),
			Error: "invalid request body",
		})
		return
	}

	tracked, err := h.core.RecordCompletion(r.Context(), req.GSTIN, req.GSTType, req.Period, req.Status, req.Phone)
	if err != nil {
		// Tracking failure is soft: the user's filing may have succeeded
		// regardless, so this is still a 200.
		writeJSON(w, http.StatusOK, TrackCompletionResponse{
			Tracked: tracked,
			Code:    string(dErrors.CodeOf(err)),
			Error:   errorMessage(err),
		})
		return
	}

	writeJSON(w, http.StatusOK, TrackCompletionResponse{Tracked: true})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Service:   "nileasy",
		Timestamp: time.Now().Format(time.RFC3339),
		Endpoints: map[string]string{
			"validate-gstin":    "POST /api/v1/validate-gstin",
			"verify-captcha":    "POST /api/v1/verify-captcha",
			"generate-sms-link": "POST /api/v1/generate-sms-link",
			"track-completion":  "POST /api/v1/track-completion",
		},
	})
}

// errorMessage surfaces domain error messages verbatim and hides everything
// else behind a generic line.
func errorMessage(err error) string {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "an unexpected error occurred, please try again"
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
