// file: model/request.go

package model

// CredentialsRequest is the payload of both register and login.
// Email is matched case-sensitively, exactly as stored.
type CredentialsRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,min=8,maxbytes=72"`
}

// RefreshRequest carries the refresh token presented to /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}
