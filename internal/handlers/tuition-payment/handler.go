package tuitionpayment

import (
	"net/http"
	"strings"

	"tuition-checkout/internal/common/errors"
	"tuition-checkout/internal/common/logger"
	"tuition-checkout/internal/common/middleware"
)

// Flow labels used for request metrics.
const (
	FlowCheckout = "checkout"
	FlowLookup   = "lookup"
	FlowForm     = "form"
	FlowReturn   = "return"
)

// Handler serves the lookup pages and starts checkouts.
type Handler struct {
	service   *Service
	renderer  *Renderer
	errors    *errors.ErrorHandler
	logger    logger.Logger
	publicURL string
}

func NewHandler(service *Service, renderer *Renderer, log logger.Logger, publicURL string) *Handler {
	return &Handler{
		service:   service,
		renderer:  renderer,
		errors:    errors.NewErrorHandler(log),
		logger:    log,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	params, err := parseQuery(r.URL.Query())
	if err != nil {
		h.errors.HandleHTTPError(w, r, err)
		return
	}

	requestID := middleware.GetRequestID(r.Context())

	if params[ParamCheckout] == "1" {
		// Only GET starts a checkout.
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.handleCheckout(w, r, params, requestID)
		return
	}
	h.handleLookup(w, r, params, requestID)
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request, params map[string]string, requestID string) {
	out, err := h.service.Checkout(r.Context(), &CheckoutInput{
		DealID:    params[ParamDealID],
		Email:     params[ParamEmail],
		Type:      params[ParamType],
		Amount:    params[ParamAmount],
		BaseURL:   h.baseURL(r),
		RequestID: requestID,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Location", out.RedirectURL)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusSeeOther)
}

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request, params map[string]string, requestID string) {
	out, err := h.service.Lookup(r.Context(), &LookupInput{
		DealID:    params[ParamDealID],
		Email:     params[ParamEmail],
		Status:    parseStatus(params[ParamStatus]),
		RequestID: requestID,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.renderer.Lookup(w, http.StatusOK, out); err != nil {
		h.logger.Error("Failed to render page", map[string]interface{}{
			"requestId": requestID,
			"view":      string(out.View),
			"error":     err.Error(),
		})
		h.errors.HandleHTTPError(w, r, errors.NewInternalError(err))
	}
}

// fail renders not-found errors as an HTML page and everything else as text.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := errors.Normalize(err)
	if !errors.IsNotFound(stdErr) {
		h.errors.HandleHTTPError(w, r, stdErr)
		return
	}

	h.logger.Warn("Not found", map[string]interface{}{
		"requestId": middleware.GetRequestID(r.Context()),
		"errorCode": string(stdErr.Code),
		"details":   stdErr.Details,
	})
	if err := h.renderer.NotFound(w, stdErr.Message); err != nil {
		h.errors.HandleHTTPError(w, r, errors.NewInternalError(err))
	}
}

// baseURL is the absolute origin used for checkout return links.
func (h *Handler) baseURL(r *http.Request) string {
	if h.publicURL != "" {
		return h.publicURL
	}
	scheme := "https"
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	} else if r.TLS == nil {
		scheme = "http"
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	return scheme + "://" + host + strings.TrimRight(r.URL.Path, "/")
}

func parseStatus(raw string) LookupStatus {
	switch LookupStatus(strings.ToLower(raw)) {
	case StatusSuccess:
		return StatusSuccess
	case StatusCancelled, "canceled":
		return StatusCancelled
	default:
		return StatusNone
	}
}

// FlowOf classifies a request for metrics without validating it.
func FlowOf(r *http.Request) string {
	q := r.URL.Query()
	switch {
	case strings.TrimSpace(q.Get(ParamCheckout)) == "1":
		return FlowCheckout
	case strings.TrimSpace(q.Get(ParamStatus)) != "":
		return FlowReturn
	case strings.TrimSpace(q.Get(ParamDealID)) != "" || strings.TrimSpace(q.Get(ParamEmail)) != "":
		return FlowLookup
	default:
		return FlowForm
	}
}
