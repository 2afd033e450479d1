package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/stayserve/hotel-orders/pkg/logger"
)

// Issuer identifies tokens minted by this service.
const Issuer = "hotel-orders-auth"

type PrincipalType string

const (
	PrincipalAdmin PrincipalType = "admin"
	PrincipalGuest PrincipalType = "guest"
)

// Payload is the claim set embedded in a session token. Exactly one
// variant exists per principal kind; tokens carry the variant verbatim.
type Payload interface {
	Kind() PrincipalType
	Subject() string
}

type AdminPayload struct {
	AdminID int64
	HotelID int64
	Email   string
}

func (p AdminPayload) Kind() PrincipalType { return PrincipalAdmin }
func (p AdminPayload) Subject() string     { return fmt.Sprintf("admin:%d", p.AdminID) }

type GuestPayload struct {
	GuestID int64
	Email   string
}

func (p GuestPayload) Kind() PrincipalType { return PrincipalGuest }
func (p GuestPayload) Subject() string     { return fmt.Sprintf("guest:%d", p.GuestID) }

type Claims struct {
	Type    PrincipalType `json:"typ"`
	AdminID int64         `json:"admin_id,omitempty"`
	HotelID int64         `json:"hotel_id,omitempty"`
	GuestID int64         `json:"guest_id,omitempty"`
	Email   string        `json:"email"`
	jwt.RegisteredClaims
}

// Payload reconstructs the tagged variant from verified claims.
// Unknown discriminants yield nil and must be rejected by callers.
func (c *Claims) Payload() Payload {
	switch c.Type {
	case PrincipalAdmin:
		return AdminPayload{AdminID: c.AdminID, HotelID: c.HotelID, Email: c.Email}
	case PrincipalGuest:
		return GuestPayload{GuestID: c.GuestID, Email: c.Email}
	default:
		return nil
	}
}

// Service mints and verifies signed session tokens. It holds the signing
// secret and never touches storage; verification is purely computational.
type Service struct {
	secret []byte
	ttl    time.Duration
}

func NewService(secret string, ttl time.Duration) *Service {
	return &Service{secret: []byte(secret), ttl: ttl}
}

func (s *Service) Mint(p Payload) (string, error) {
	if p == nil {
		return "", errors.New("nil payload")
	}

	now := time.Now()
	claims := Claims{
		Type: p.Kind(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   p.Subject(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	switch v := p.(type) {
	case AdminPayload:
		claims.AdminID = v.AdminID
		claims.HotelID = v.HotelID
		claims.Email = v.Email
	case GuestPayload:
		claims.GuestID = v.GuestID
		claims.Email = v.Email
	default:
		return "", fmt.Errorf("unsupported payload type %T", p)
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.secret)
}

// Verify checks signature, issuer, and time bounds. It returns nil on any
// failure; the reason is logged but never surfaced to the caller.
func (s *Service) Verify(tokenString string) *Claims {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(Issuer))
	if err != nil {
		logger.Debug("Token verification failed", "reason", verifyFailureReason(err))
		return nil
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		logger.Debug("Token verification failed", "reason", "invalid claims")
		return nil
	}
	return claims
}

// Decode parses claims without verifying the signature. Diagnostics only;
// never use the result for authorization decisions.
func (s *Service) Decode(tokenString string) *Claims {
	var claims Claims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, &claims); err != nil {
		return nil
	}
	return &claims
}

// ExtractFromHeader accepts "Bearer <token>" or a bare token value.
func ExtractFromHeader(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return header
}

func verifyFailureReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return "not yet valid"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return "wrong issuer"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "bad signature"
	default:
		return "malformed"
	}
}
