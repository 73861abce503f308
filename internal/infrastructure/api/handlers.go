package api

import (
	"errors"
	"net/http"
	"strings"

	"vendhub-portal-api/internal/application"
	"vendhub-portal-api/internal/domain"
	securitymiddleware "vendhub-portal-api/internal/infrastructure/middleware"
	"vendhub-portal-api/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler carries the application services behind the /api surface.
type Handler struct {
	auth     *application.AuthService
	requests *application.RequestService
	portal   *application.PortalService // nil when the storefront token is not configured
	logger   zerolog.Logger
}

// NewHandler creates the API handler set.
func NewHandler(auth *application.AuthService, requests *application.RequestService, portal *application.PortalService, logger zerolog.Logger) *Handler {
	return &Handler{
		auth:     auth,
		requests: requests,
		portal:   portal,
		logger:   logger,
	}
}

// Routes mounts all endpoints. Registering per-method handlers lets chi
// answer 405 for non-matching methods on known paths.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/admin-login", h.adminLogin)
	r.Post("/submit-access-request", h.submitAccessRequest)
	r.Post("/update-customer-notes", h.updateCustomerNotes)

	r.Group(func(r chi.Router) {
		r.Use(securitymiddleware.AdminAuth(h.auth, h.logger))
		r.Get("/get-access-requests", h.getAccessRequests)
		r.Post("/update-request-status", h.updateRequestStatus)
	})

	r.Route("/portal", func(r chi.Router) {
		r.Post("/signup", h.portalSignUp)
		r.Post("/signin", h.portalSignIn)
		r.Post("/signout", h.portalSignOut)
		r.Post("/recover", h.portalRecover)
		r.Get("/me", h.portalMe)
	})
}

// POST /api/admin-login

func (h *Handler) adminLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Email == "" || body.Password == "" {
		respondError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	token, user, err := h.auth.Login(body.Email, body.Password)
	if err != nil {
		h.mapError(w, err, "Internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
		"user":    user,
	})
}

// GET /api/get-access-requests

func (h *Handler) getAccessRequests(w http.ResponseWriter, r *http.Request) {
	var filter domain.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := domain.ParseStatus(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid status filter")
			return
		}
		filter = parsed
	}

	result, err := h.requests.List(r.Context(), filter)
	if err != nil {
		h.mapError(w, err, "Failed to fetch access requests")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"requests": result.Requests,
		"degraded": result.Degraded,
	})
}

// POST /api/submit-access-request

func (h *Handler) submitAccessRequest(w http.ResponseWriter, r *http.Request) {
	var sub domain.Submission
	if err := decodeBody(r, &sub); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id, err := h.requests.Submit(r.Context(), sub)
	if err != nil {
		h.mapError(w, err, "Failed to submit request. Please try again.")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Access request submitted successfully",
		"id":      id,
	})
}

// POST /api/update-request-status

func (h *Handler) updateRequestStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CustomerID flexID `json:"customerId"`
		Status     string `json:"status"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.CustomerID == "" || body.Status == "" {
		respondError(w, http.StatusBadRequest, "Customer ID and status are required")
		return
	}

	status, err := domain.ParseStatus(body.Status)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid status: must be pending, approved or rejected")
		return
	}
	customerID, err := body.CustomerID.Uint64()
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid customer ID")
		return
	}

	if err := h.requests.SetStatus(r.Context(), customerID, status); err != nil {
		h.mapError(w, err, "Failed to update status")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Status updated successfully",
	})
}

// POST /api/update-customer-notes

func (h *Handler) updateCustomerNotes(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CustomerID   flexID `json:"customerId"`
		Company      string `json:"company"`
		Location     string `json:"location"`
		MachineCount string `json:"machineCount"`
		Role         string `json:"role"`
		Message      string `json:"message"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.CustomerID == "" {
		respondError(w, http.StatusBadRequest, "Customer ID is required")
		return
	}

	note, customer, err := h.requests.UpdateNotes(r.Context(), body.CustomerID.String(), domain.Submission{
		Company:      body.Company,
		Location:     body.Location,
		MachineCount: body.MachineCount,
		Role:         body.Role,
		Message:      body.Message,
	})
	if err != nil {
		h.mapError(w, err, "Internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"note":     note,
		"customer": customer,
	})
}

// Portal endpoints

func (h *Handler) portalSignUp(w http.ResponseWriter, r *http.Request) {
	if h.portal == nil {
		respondError(w, http.StatusInternalServerError, "Server configuration error")
		return
	}
	var input ports.SignUpInput
	if err := decodeBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, customer, err := h.portal.SignUp(r.Context(), input)
	if err != nil {
		h.mapError(w, err, "Sign up failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"token":     token.AccessToken,
		"expiresAt": token.ExpiresAt,
		"customer":  customer,
	})
}

func (h *Handler) portalSignIn(w http.ResponseWriter, r *http.Request) {
	if h.portal == nil {
		respondError(w, http.StatusInternalServerError, "Server configuration error")
		return
	}
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, err := h.portal.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		h.mapError(w, err, "Sign in failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"token":     token.AccessToken,
		"expiresAt": token.ExpiresAt,
	})
}

func (h *Handler) portalSignOut(w http.ResponseWriter, r *http.Request) {
	if h.portal == nil {
		respondError(w, http.StatusInternalServerError, "Server configuration error")
		return
	}
	if token, ok := bearerToken(r); ok {
		h.portal.SignOut(r.Context(), token)
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) portalRecover(w http.ResponseWriter, r *http.Request) {
	if h.portal == nil {
		respondError(w, http.StatusInternalServerError, "Server configuration error")
		return
	}
	var body struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Always succeeds, whether or not the email exists.
	h.portal.Recover(r.Context(), body.Email)
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) portalMe(w http.ResponseWriter, r *http.Request) {
	if h.portal == nil {
		respondError(w, http.StatusInternalServerError, "Server configuration error")
		return
	}
	token, ok := bearerToken(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	profile, err := h.portal.GetProfile(r.Context(), token)
	if err != nil {
		h.mapError(w, err, "Failed to fetch customer")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"customer": profile.Customer,
		"approved": profile.Approved,
	})
}

// mapError translates application errors into the HTTP taxonomy: validation
// 400, auth 401, everything upstream a generic 500 with detail only in logs.
func (h *Handler) mapError(w http.ResponseWriter, err error, upstreamMessage string) {
	switch {
	case errors.Is(err, application.ErrValidation):
		respondError(w, http.StatusBadRequest, validationMessage(err))
	case errors.Is(err, application.ErrDuplicateEmail):
		respondError(w, http.StatusBadRequest, "A request with this email already exists")
	case errors.Is(err, application.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, ports.ErrInvalidAccessToken):
		respondError(w, http.StatusUnauthorized, "Invalid or expired access token")
	case errors.Is(err, application.ErrNotConfigured):
		respondError(w, http.StatusInternalServerError, "Server configuration error")
	default:
		h.logger.Error().Err(err).Msg("Request failed")
		respondError(w, http.StatusInternalServerError, upstreamMessage)
	}
}

// validationMessage strips the sentinel prefix so the caller sees only the
// field-specific message.
func validationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), application.ErrValidation.Error()+": ")
}
