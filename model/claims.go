package model

import "github.com/golang-jwt/jwt/v5"

// TokenTypeBearer is the only token type this service issues.
const TokenTypeBearer = "bearer"

// AccessClaims are the claims carried by an access token: sub, iat and exp.
type AccessClaims struct {
	jwt.RegisteredClaims
}
