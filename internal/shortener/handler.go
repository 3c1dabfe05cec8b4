package shortener

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sundayezeilo/shortlink/internal/errx"
	"github.com/sundayezeilo/shortlink/internal/httpx"
)

// PasswordHeader carries a link password when it should not appear in the URL.
const PasswordHeader = "X-Link-Password"

// HTTPCreateLinkRequest represents the JSON request body for creating a link.
type HTTPCreateLinkRequest struct {
	URL       string     `json:"url"`
	TTLHours  *int       `json:"ttl_hours,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Password  string     `json:"password,omitempty"`
}

// LinkResponse is returned by create and metadata lookups.
type LinkResponse struct {
	ShortCode         string    `json:"short_code"`
	ShortURL          string    `json:"short_url"`
	OriginalURL       string    `json:"original_url"`
	CreatedAt         time.Time `json:"created_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	VisitCount        int64     `json:"visit_count"`
	PasswordProtected bool      `json:"password_protected"`
}

// PreviewResponse is returned instead of a redirect for ?format=json.
type PreviewResponse struct {
	ShortCode  string `json:"short_code"`
	ShortURL   string `json:"short_url"`
	RedirectTo string `json:"redirect_to"`
}

type AccessEventResponse struct {
	IPAddress  string    `json:"ip_address"`
	UserAgent  string    `json:"user_agent"`
	AccessedAt time.Time `json:"accessed_at"`
}

type AnalyticsResponse struct {
	OriginalURL string                `json:"original_url"`
	ShortCode   string                `json:"short_code"`
	ShortURL    string                `json:"short_url"`
	VisitCount  int64                 `json:"visit_count"`
	Events      []AccessEventResponse `json:"events"`
}

// Handler provides HTTP handlers for the URL shortener service.
type Handler struct {
	service Service
	logger  *slog.Logger
	baseURL string
}

// HandlerConfig holds configuration for the handler.
type HandlerConfig struct {
	Service Service
	Logger  *slog.Logger
	BaseURL string // Base URL for constructing short URLs (e.g., "https://short.ly")
}

// NewHandler creates a new Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		service: cfg.Service,
		logger:  logger,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	return h.logger.With(
		"request_id", httpx.GetRequestID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
	)
}

func (h *Handler) shortURL(code string) string {
	return h.baseURL + "/" + code
}

func (h *Handler) toLinkResponse(link Link) LinkResponse {
	return LinkResponse{
		ShortCode:         link.ShortCode,
		ShortURL:          h.shortURL(link.ShortCode),
		OriginalURL:       link.OriginalURL,
		CreatedAt:         link.CreatedAt,
		ExpiresAt:         link.ExpiresAt,
		VisitCount:        link.VisitCount,
		PasswordProtected: link.Protected(),
	}
}

// CreateLink handles POST /api/links. A new link yields 201; re-submitting a
// URL that already has a deterministic code yields 200.
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	req, err := httpx.DecodeJSON[HTTPCreateLinkRequest](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	if err := validateCreateRequest(req); err != nil {
		logger.WarnContext(ctx, "request validation failed",
			"error", err.Error(),
			"url", req.URL,
		)
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", err.Error(), nil)
		return
	}

	link, inserted, err := h.service.Create(ctx, CreateLinkRequest{
		OriginalURL: req.URL,
		TTLHours:    req.TTLHours,
		ExpiresAt:   req.ExpiresAt,
		Password:    req.Password,
	})
	if err != nil {
		h.handleError(ctx, logger, w, err)
		return
	}

	status := http.StatusOK
	if inserted {
		status = http.StatusCreated
	}

	logger.InfoContext(ctx, "link saved",
		"short_code", link.ShortCode,
		"created", inserted,
		"password_protected", link.Protected(),
	)

	httpx.WriteJSON(w, status, h.toLinkResponse(link))
}

// ResolveLink handles GET /{code}. The password is read from ?password= or
// the X-Link-Password header.
func (h *Handler) ResolveLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)
	code := r.PathValue("code")

	password := r.URL.Query().Get("password")
	if password == "" {
		password = r.Header.Get(PasswordHeader)
	}

	out, err := h.service.Resolve(ctx, code, password, RequestMeta{
		IPAddress: httpx.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		h.handleError(ctx, logger.With("short_code", code), w, err)
		return
	}

	switch out.Kind {
	case OutcomeRedirect:
		logger.InfoContext(ctx, "short code resolved",
			"short_code", code,
			"visit_count", out.Link.VisitCount,
			"access_recorded", out.RecordErr == nil,
		)
		if r.URL.Query().Get("format") == "json" {
			httpx.NoStore(w)
			httpx.WriteJSON(w, http.StatusOK, PreviewResponse{
				ShortCode:  code,
				ShortURL:   h.shortURL(code),
				RedirectTo: out.Link.OriginalURL,
			})
			return
		}
		httpx.Redirect(w, r, out.Link.OriginalURL)

	case OutcomeExpired:
		logger.InfoContext(ctx, "short code expired", "short_code", code)
		writeOutcome(w, out.Kind, "this short link has expired", nil)

	case OutcomePasswordRequired:
		writeOutcome(w, out.Kind, "this short link is password protected",
			map[string]string{"hint": "supply ?password= or the " + PasswordHeader + " header"})

	case OutcomePasswordIncorrect:
		logger.WarnContext(ctx, "incorrect link password", "short_code", code)
		writeOutcome(w, out.Kind, "incorrect password", nil)

	default:
		writeOutcome(w, OutcomeNotFound, "short link doesn't exist", nil)
	}
}

// writeOutcome reports a blocked resolution with the status of its error kind.
func writeOutcome(w http.ResponseWriter, kind OutcomeKind, message string, details any) {
	httpx.WriteError(w, httpx.ErrorKindToStatus(kind.ErrorKind()), kind.String(), message, details)
}

// GetLink handles GET /api/links/{code}.
func (h *Handler) GetLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := r.PathValue("code")

	link, err := h.service.Get(ctx, code)
	if err != nil {
		h.handleError(ctx, h.requestLogger(r).With("short_code", code), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.toLinkResponse(link))
}

// LinkAnalytics handles GET /api/links/{code}/analytics.
func (h *Handler) LinkAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := r.PathValue("code")

	summary, err := h.service.Summarize(ctx, code)
	if err != nil {
		h.handleError(ctx, h.requestLogger(r).With("short_code", code), w, err)
		return
	}

	events := make([]AccessEventResponse, 0, len(summary.Events))
	for _, e := range summary.Events {
		events = append(events, AccessEventResponse{
			IPAddress:  e.IPAddress,
			UserAgent:  e.UserAgent,
			AccessedAt: e.AccessedAt,
		})
	}

	httpx.WriteJSON(w, http.StatusOK, AnalyticsResponse{
		OriginalURL: summary.OriginalURL,
		ShortCode:   summary.ShortCode,
		ShortURL:    h.shortURL(summary.ShortCode),
		VisitCount:  summary.VisitCount,
		Events:      events,
	})
}

// DeleteLink handles DELETE /api/links/{code}. Deleting an unknown code
// still succeeds.
func (h *Handler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)
	code := r.PathValue("code")

	if err := h.service.Delete(ctx, code); err != nil {
		h.handleError(ctx, logger.With("short_code", code), w, err)
		return
	}

	logger.InfoContext(ctx, "link deleted", "short_code", code)
	httpx.NoContent(w)
}

// handleError maps a service error onto a JSON error response. Server-side
// failures never expose their detail.
func (h *Handler) handleError(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, err error) {
	kind := errx.KindOf(err)
	status := httpx.ErrorKindToStatus(kind)

	logAttrs := []any{
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
	}

	switch kind {
	case errx.NotFound:
		logger.WarnContext(ctx, "short link not found", logAttrs...)
		httpx.WriteError(w, status, "not_found", "short link doesn't exist", nil)

	case errx.Invalid:
		logger.WarnContext(ctx, "invalid link request", logAttrs...)
		code := "invalid_input"
		if errors.Is(err, ErrInvalidURL) {
			code = "invalid_url"
		}
		httpx.WriteError(w, status, code, clientMessage(err), nil)

	case errx.Exhausted, errx.Unavailable:
		logger.ErrorContext(ctx, "service unavailable", logAttrs...)
		httpx.SetRetryAfter(w, kind)
		httpx.WriteError(w, status, httpx.ErrorKindToCode(kind),
			"Unable to process this link at this time. Please try again.", nil)

	default:
		logger.ErrorContext(ctx, "unexpected error", logAttrs...)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error",
			"an unexpected error occurred", nil)
	}
}

// clientMessage strips the op prefixes errx adds so only the validation
// message reaches the caller.
func clientMessage(err error) string {
	for {
		var e *errx.Error
		if !errors.As(err, &e) || e.Err == nil {
			return err.Error()
		}
		err = e.Err
	}
}

// validateCreateRequest validates the HTTPCreateLinkRequest.
func validateCreateRequest(req HTTPCreateLinkRequest) error {
	if strings.TrimSpace(req.URL) == "" {
		return errors.New("url is required")
	}
	return nil
}
