package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/tasaciones/crm-backend/internal/apperrors"
	"github.com/tasaciones/crm-backend/internal/handlers/middleware"
	"github.com/tasaciones/crm-backend/internal/handlers/render"
	"github.com/tasaciones/crm-backend/internal/logger"
	"github.com/tasaciones/crm-backend/internal/models"
)

type calendarAuthService interface {
	// Exchange a one-time consent code, persist the token pair and return
	// the access part only
	ExchangeCode(ctx context.Context, code string, uid string) (models.IssuedAccess, error)

	// Mint a fresh access token from the stored refresh token
	// Has to return apperrors.ErrIntegrationNotFound when no record stored
	// and apperrors.ErrNoRefreshToken when re-consent is required
	Refresh(ctx context.Context, uid string) (models.IssuedAccess, error)

	// Drop the user's access token
	SignOut(ctx context.Context, uid string) error
}

type CalendarAuthHandler struct {
	service calendarAuthService
	logger  logger.Logger
}

func NewCalendarAuth(s calendarAuthService, l logger.Logger) *CalendarAuthHandler {
	return &CalendarAuthHandler{service: s, logger: l}
}

// Wire shape of every successful token operation. No field of this struct
// may ever carry the refresh token.
type accessResponse struct {
	Success     bool   `json:"success"`
	AccessToken string `json:"access_token"`
	ExpiryDate  int64  `json:"expiry_date"` // epoch milliseconds
}

func newAccessResponse(issued models.IssuedAccess) accessResponse {
	return accessResponse{
		Success:     true,
		AccessToken: issued.AccessToken,
		ExpiryDate:  issued.ExpiresAt.UnixMilli(),
	}
}

// Dispatch serves the legacy single-endpoint contract: the operation is
// picked by payload shape. Code plus uid runs the consent exchange, uid
// alone runs the refresh. Deployed browser clients depend on this route;
// new ones should call the explicit /exchange and /refresh routes instead.
func (h *CalendarAuthHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	type AuthRequest struct {
		Code string `json:"code"`
		UID  string `json:"uid" validate:"required"`
	}

	if !requirePost(w, r) {
		return
	}

	data, err := render.BindAndValidate[AuthRequest](w, r)
	if err != nil {
		return
	}

	if !uidAllowed(w, r, data.UID, h.logger) {
		return
	}

	if data.Code != "" {
		h.exchange(w, r, data.Code, data.UID)
		return
	}
	h.refresh(w, r, data.UID)
}

// Exchange is the explicit consent-code route
func (h *CalendarAuthHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	type ExchangeRequest struct {
		Code string `json:"code" validate:"required"`
		UID  string `json:"uid" validate:"required"`
	}

	if !requirePost(w, r) {
		return
	}

	data, err := render.BindAndValidate[ExchangeRequest](w, r)
	if err != nil {
		return
	}

	if !uidAllowed(w, r, data.UID, h.logger) {
		return
	}

	h.exchange(w, r, data.Code, data.UID)
}

// Refresh is the explicit refresh route
func (h *CalendarAuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	type RefreshRequest struct {
		UID string `json:"uid" validate:"required"`
	}

	if !requirePost(w, r) {
		return
	}

	data, err := render.BindAndValidate[RefreshRequest](w, r)
	if err != nil {
		return
	}

	if !uidAllowed(w, r, data.UID, h.logger) {
		return
	}

	h.refresh(w, r, data.UID)
}

// SignOut clears the user's access token
func (h *CalendarAuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	type SignOutRequest struct {
		UID string `json:"uid" validate:"required"`
	}
	type SignOutResponse struct {
		Success bool `json:"success"`
	}

	if !requirePost(w, r) {
		return
	}

	data, err := render.BindAndValidate[SignOutRequest](w, r)
	if err != nil {
		return
	}

	if !uidAllowed(w, r, data.UID, h.logger) {
		return
	}

	err = h.service.SignOut(r.Context(), data.UID)
	switch {
	case err == nil:
		render.JSON(w, SignOutResponse{Success: true})
	case errors.Is(err, apperrors.ErrIntegrationNotFound):
		render.Error(w, "No calendar integration found", http.StatusNotFound)
	default:
		h.logger.Error("Sign-out failed", "uid", data.UID, "error", err)
		render.Error(w, "Sign-out failed", http.StatusInternalServerError)
	}
}

func (h *CalendarAuthHandler) exchange(w http.ResponseWriter, r *http.Request, code string, uid string) {
	issued, err := h.service.ExchangeCode(r.Context(), code, uid)
	if err != nil {
		h.renderAuthError(w, uid, err)
		return
	}

	render.JSON(w, newAccessResponse(issued))
}

func (h *CalendarAuthHandler) refresh(w http.ResponseWriter, r *http.Request, uid string) {
	issued, err := h.service.Refresh(r.Context(), uid)
	if err != nil {
		h.renderAuthError(w, uid, err)
		return
	}

	render.JSON(w, newAccessResponse(issued))
}

func (h *CalendarAuthHandler) renderAuthError(w http.ResponseWriter, uid string, err error) {
	switch {
	case errors.Is(err, apperrors.ErrIntegrationNotFound):
		h.logger.Warn("No integration record", "uid", uid)
		render.Error(w, "No calendar integration found", http.StatusNotFound)
	case errors.Is(err, apperrors.ErrNoRefreshToken):
		h.logger.Warn("Record without refresh token, re-auth required", "uid", uid)
		render.Error(w, "No refresh token available. Re-auth required.", http.StatusBadRequest)
	case errors.Is(err, apperrors.ErrNotConfigured):
		h.logger.Error("Missing server-side Google OAuth2 credentials")
		render.Error(w, "Server configuration error", http.StatusInternalServerError)
	case errors.Is(err, apperrors.ErrExchangeRejected):
		h.logger.Warn("Provider rejected the grant", "uid", uid, "error", err)
		render.ErrorDetails(w, "Authentication failed", err.Error(), http.StatusInternalServerError)
	default:
		h.logger.Error("Auth operation failed", "uid", uid, "error", err)
		render.ErrorDetails(w, "Authentication failed", err.Error(), http.StatusInternalServerError)
	}
}

// uidAllowed cross-checks the uid named in the payload against the verified
// identity assertion, when the request carried one.
func uidAllowed(w http.ResponseWriter, r *http.Request, uid string, l logger.Logger) bool {
	verified, ok := middleware.VerifiedUID(r.Context())
	if ok && verified != uid {
		l.Warn("UID mismatch between assertion and payload", "verified", verified, "uid", uid)
		render.Error(w, "UID mismatch", http.StatusForbidden)
		return false
	}
	return true
}

// requirePost keeps non-POST answers as JSON, browser clients parse every
// response body
func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		render.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}
