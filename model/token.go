// file: model/token.go

package model

import "time"

// RefreshToken is one entry of a user's refresh token ledger.
type RefreshToken struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	TokenHash string    `json:"-"` // The hash is not exposed in JSON responses.
	CreatedAt time.Time `json:"created_at"`

	// Token holds the plaintext secret. It is only set on the value returned
	// from ledger creation and is never persisted.
	Token string `json:"-"`
}

// AccessToken is a signed bearer credential together with its metadata.
type AccessToken struct {
	AccessToken     string `json:"access_token"`
	TokenType       string `json:"token_type"`
	ExpiryTimestamp int64  `json:"expiry_timestamp"`
}

// LoginResult is what a successful password login yields.
type LoginResult struct {
	AccessToken
	RefreshToken string `json:"refresh_token"`
}
