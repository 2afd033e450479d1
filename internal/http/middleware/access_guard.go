package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stayserve/hotel-orders/internal/domain"
	"github.com/stayserve/hotel-orders/internal/http/response"
	"github.com/stayserve/hotel-orders/internal/repository"
	"github.com/stayserve/hotel-orders/pkg/logger"
	"github.com/stayserve/hotel-orders/pkg/token"
)

type ctxKey string

const (
	ctxAuth    ctxKey = "auth"
	ctxHotelID ctxKey = "hotel_id"
)

// AuthContext is the immutable authenticated-principal value attached to
// a request after the guard admits it. Exactly one of Admin/Guest is set,
// matching Type; the fields carry the repository's current state, not the
// possibly stale token claims.
type AuthContext struct {
	Type   token.PrincipalType
	Admin  *domain.Admin
	Guest  *domain.Guest
	Claims *token.Claims
}

// Auth returns the authenticated principal for the request, or nil when
// no guard ran.
func Auth(r *http.Request) *AuthContext {
	if v := r.Context().Value(ctxAuth); v != nil {
		if a, ok := v.(*AuthContext); ok {
			return a
		}
	}
	return nil
}

// HotelID returns the hotel id resolved by a hotel-scope authorizer.
func HotelID(r *http.Request) (int64, bool) {
	if v := r.Context().Value(ctxHotelID); v != nil {
		if id, ok := v.(int64); ok {
			return id, true
		}
	}
	return 0, false
}

// Guard authenticates bearer tokens and authorizes hotel-scoped access.
// Every admitted request costs one repository lookup: a valid signature is
// not enough, the principal must still exist.
type Guard struct {
	tokens *token.Service
	admins repository.AdminRepository
	guests repository.GuestRepository
}

func NewGuard(tokens *token.Service, admins repository.AdminRepository, guests repository.GuestRepository) *Guard {
	return &Guard{
		tokens: tokens,
		admins: admins,
		guests: guests,
	}
}

func (g *Guard) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth, status, msg := g.authenticate(r, token.PrincipalAdmin)
		if auth == nil {
			response.WriteError(w, status, msg, codeForStatus(status))
			return
		}
		next.ServeHTTP(w, r.WithContext(withAuth(r.Context(), auth)))
	})
}

func (g *Guard) RequireGuest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth, status, msg := g.authenticate(r, token.PrincipalGuest)
		if auth == nil {
			response.WriteError(w, status, msg, codeForStatus(status))
			return
		}
		next.ServeHTTP(w, r.WithContext(withAuth(r.Context(), auth)))
	})
}

// RequireAny admits either principal kind: the admin branch is tried
// first, guests fall through, anything else is rejected.
func (g *Guard) RequireAny(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth, status, msg := g.authenticate(r, "")
		if auth == nil {
			response.WriteError(w, status, msg, codeForStatus(status))
			return
		}
		next.ServeHTTP(w, r.WithContext(withAuth(r.Context(), auth)))
	})
}

func (g *Guard) authenticate(r *http.Request, want token.PrincipalType) (*AuthContext, int, string) {
	raw := token.ExtractFromHeader(r.Header.Get("Authorization"))
	if raw == "" {
		return nil, http.StatusUnauthorized, "Authentication required"
	}

	claims := g.tokens.Verify(raw)
	if claims == nil {
		return nil, http.StatusUnauthorized, "Invalid or expired token"
	}

	if want != "" && claims.Type != want {
		return nil, http.StatusUnauthorized, "Invalid or expired token"
	}

	// Freshness check: a valid signature for a deleted principal is still
	// a rejection.
	switch claims.Type {
	case token.PrincipalAdmin:
		admin, err := g.admins.FindByID(r.Context(), claims.AdminID)
		if err != nil {
			logger.ErrorContext(r.Context(), "Failed to resolve admin principal", "error", err, "admin_id", claims.AdminID)
			return nil, http.StatusInternalServerError, "Something went wrong"
		}
		if admin == nil {
			return nil, http.StatusUnauthorized, "Admin not found"
		}
		return &AuthContext{Type: token.PrincipalAdmin, Admin: admin, Claims: claims}, 0, ""
	case token.PrincipalGuest:
		guest, err := g.guests.FindByID(r.Context(), claims.GuestID)
		if err != nil {
			logger.ErrorContext(r.Context(), "Failed to resolve guest principal", "error", err, "guest_id", claims.GuestID)
			return nil, http.StatusInternalServerError, "Something went wrong"
		}
		if guest == nil {
			return nil, http.StatusUnauthorized, "Guest not found"
		}
		return &AuthContext{Type: token.PrincipalGuest, Guest: guest, Claims: claims}, 0, ""
	default:
		return nil, http.StatusUnauthorized, "Invalid or expired token"
	}
}

// AuthorizeAdminHotel narrows an admin request to a target hotel. The
// hotel id comes from the route, body, or query in that order; an admin
// with no explicit target falls back to their own hotel.
func (g *Guard) AuthorizeAdminHotel(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := Auth(r)
		if auth == nil || auth.Type != token.PrincipalAdmin {
			response.Unauthorized(w, "Authentication required")
			return
		}

		hotelID, found, err := resolveHotelID(r)
		if err != nil {
			response.BadRequest(w, "Invalid hotel id")
			return
		}
		if !found {
			hotelID = auth.Admin.HotelID
		}

		ok, err := g.admins.BelongsToHotel(r.Context(), auth.Admin.ID, hotelID)
		if err != nil {
			logger.ErrorContext(r.Context(), "Failed to check admin hotel access", "error", err, "admin_id", auth.Admin.ID)
			response.InternalError(w, "Something went wrong")
			return
		}
		if !ok {
			response.Forbidden(w, "You do not have access to this hotel")
			return
		}

		ctx := context.WithValue(r.Context(), ctxHotelID, hotelID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthorizeGuestHotel requires an explicit target hotel and at least one
// prior order there; guests have no fallback hotel.
func (g *Guard) AuthorizeGuestHotel(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := Auth(r)
		if auth == nil || auth.Type != token.PrincipalGuest {
			response.Unauthorized(w, "Authentication required")
			return
		}

		hotelID, found, err := resolveHotelID(r)
		if err != nil {
			response.BadRequest(w, "Invalid hotel id")
			return
		}
		if !found {
			response.BadRequest(w, "Hotel id is required")
			return
		}

		ok, err := g.guests.HasOrderedAtHotel(r.Context(), auth.Guest.ID, hotelID)
		if err != nil {
			logger.ErrorContext(r.Context(), "Failed to check guest hotel access", "error", err, "guest_id", auth.Guest.ID)
			response.InternalError(w, "Something went wrong")
			return
		}
		if !ok {
			response.Forbidden(w, "You do not have access to this hotel")
			return
		}

		ctx := context.WithValue(r.Context(), ctxHotelID, hotelID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func withAuth(ctx context.Context, auth *AuthContext) context.Context {
	ctx = context.WithValue(ctx, ctxAuth, auth)
	if auth.Claims != nil {
		ctx = context.WithValue(ctx, logger.PrincipalKey, auth.Claims.Subject)
	}
	return ctx
}

// resolveHotelID checks route param, JSON body, then query string.
func resolveHotelID(r *http.Request) (int64, bool, error) {
	if raw := chi.URLParam(r, "hotelID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, false, err
		}
		return id, true, nil
	}

	if r.Body != nil && r.Body != http.NoBody {
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err == nil {
			// Leave the body readable for downstream handlers
			r.Body = io.NopCloser(bytes.NewReader(body))

			var payload struct {
				HotelID *json.Number `json:"hotelId"`
			}
			if json.Unmarshal(body, &payload) == nil && payload.HotelID != nil {
				id, err := payload.HotelID.Int64()
				if err != nil {
					return 0, false, err
				}
				return id, true, nil
			}
		}
	}

	if raw := r.URL.Query().Get("hotelId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, false, err
		}
		return id, true, nil
	}

	return 0, false, nil
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return response.CodeUnauthorized
	case http.StatusInternalServerError:
		return response.CodeInternalError
	default:
		return response.CodeInvalidInput
	}
}
