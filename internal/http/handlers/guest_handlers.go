package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/stayserve/hotel-orders/internal/domain"
	mw "github.com/stayserve/hotel-orders/internal/http/middleware"
	"github.com/stayserve/hotel-orders/internal/http/response"
	"github.com/stayserve/hotel-orders/pkg/logger"
)

// GuestLogin captures or refreshes a guest identity and returns a
// session token.
func (h *Handlers) GuestLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.GuestLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	guest, token, err := h.guestService.Login(r.Context(), &req)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			response.BadRequest(w, err.Error())
			return
		}
		logger.ErrorContext(r.Context(), "Failed to log in guest", "error", err)
		response.InternalError(w, "Something went wrong")
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"token":   token,
		"guestId": guest.ID,
	})
}

// GuestMe returns the authenticated guest's current profile.
func (h *Handlers) GuestMe(w http.ResponseWriter, r *http.Request) {
	auth := mw.Auth(r)
	if auth == nil || auth.Guest == nil {
		response.Unauthorized(w, "Authentication required")
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"guest": map[string]interface{}{
			"id":    auth.Guest.ID,
			"name":  auth.Guest.Name,
			"email": auth.Guest.Email,
		},
	})
}

// GuestHotelAccess is a probe endpoint behind the guest hotel guard.
func (h *Handlers) GuestHotelAccess(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
