package model

const (
	DetailOK      = "OK"
	DetailCreated = "Created"
)

// RegisterResponse is returned once the account has been created.
type RegisterResponse struct {
	Detail string `json:"detail" example:"Created"`
}

// LoginResponse carries both tokens issued by a password login.
type LoginResponse struct {
	LoginResult
	Detail string `json:"detail" example:"OK"`
}

// UserResponse is the public profile of the session owner.
type UserResponse struct {
	Email string `json:"email"`
	Tier  Tier   `json:"tier"`
}

// SessionResponse describes the authenticated user.
type SessionResponse struct {
	User   UserResponse `json:"user"`
	Detail string       `json:"detail" example:"OK"`
}

// RefreshResponse carries a freshly minted access token.
type RefreshResponse struct {
	AccessToken
	Detail string `json:"detail" example:"OK"`
}
