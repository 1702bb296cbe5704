package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID     uuid.UUID
	VendorType *string
	IsAdmin    bool
	JTI        string
}

// AccessTokenClaims represents the typed JWT issued by the identity service.
// The API trusts these claims; it does not issue or refresh tokens itself.
type AccessTokenClaims struct {
	UserID     uuid.UUID `json:"user_id"`
	VendorType *string   `json:"vendor_type,omitempty"`
	IsAdmin    bool      `json:"is_admin,omitempty"`
	jwt.RegisteredClaims
}
