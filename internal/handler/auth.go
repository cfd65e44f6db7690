package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/rebano/rebano-go/internal/model"
	"github.com/rebano/rebano-go/internal/service"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

var errInvalidPayload = &service.ProviderError{Status: http.StatusBadRequest, Code: "INVALID_JSON_PAYLOAD"}

// writeProviderError writes err in the auth provider envelope.
func writeProviderError(w http.ResponseWriter, r *http.Request, err error) {
	var perr *service.ProviderError
	if !errors.As(err, &perr) {
		slog.ErrorContext(r.Context(), "auth provider failed", "path", r.URL.Path, "error", err)
		perr = &service.ProviderError{Status: http.StatusInternalServerError, Code: "INTERNAL_ERROR"}
	}
	var body model.ProviderErrorBody
	body.Error.Code = perr.Status
	body.Error.Message = perr.Error()
	writeJSON(w, perr.Status, body)
}

// TooManyAttempts is the provider response for throttled clients.
func TooManyAttempts(w http.ResponseWriter, r *http.Request) {
	writeProviderError(w, r, &service.ProviderError{Status: http.StatusTooManyRequests, Code: "TOO_MANY_ATTEMPTS_TRY_LATER"})
}

// readProvider is readBody for the provider endpoints.
func readProvider(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decodeBody(w, r, v); err != nil {
		writeProviderError(w, r, errInvalidPayload)
		return false
	}
	return true
}

// HandleSignUp handles POST /auth/v1/accounts/signUp requests.
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req model.SignUpRequest
	if !readProvider(w, r, &req) {
		return
	}

	acct, err := h.service.SignUp(r.Context(), req)
	if err != nil {
		writeProviderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// HandleSignIn handles POST /auth/v1/accounts/signInWithPassword requests.
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req model.SignInRequest
	if !readProvider(w, r, &req) {
		return
	}

	acct, err := h.service.SignIn(r.Context(), req)
	if err != nil {
		writeProviderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// HandleLookup handles POST /auth/v1/accounts/lookup requests.
func (h *AuthHandler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	var req model.LookupRequest
	if !readProvider(w, r, &req) {
		return
	}

	resp, err := h.service.Lookup(r.Context(), req.IDToken)
	if err != nil {
		writeProviderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleCreateAdmin handles POST /api/auth/create-admin requests.
func (h *AuthHandler) HandleCreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req model.CreateAdminRequest
	if !readBody(w, r, &req) {
		return
	}

	profile, err := h.service.CreateAdmin(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Administrador registrado", "user": profile})
}

// HandleVerify handles POST /api/auth/verify requests. An unusable token
// is reported as {"valid":false}, not as an error status.
func (h *AuthHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req model.VerifyRequest
	if !readBody(w, r, &req) {
		return
	}

	resp, err := h.service.Verify(r.Context(), req.Token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
