package model

import "time"

// APIClient is a machine client allowed to call the analytics API.
type APIClient struct {
	ID          int       `json:"id"`
	ClientID    string    `json:"client_id"`
	Name        string    `json:"name"`
	SecretHash  string    `json:"-"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
}

// TokenRequest is the payload for the client-credentials token exchange.
type TokenRequest struct {
	ClientID     string `json:"client_id" binding:"required,max=64"`
	ClientSecret string `json:"client_secret" binding:"required,min=12,max=128"`
}

// TokenResponse is returned after a successful token exchange.
type TokenResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	ExpiresIn   int      `json:"expires_in"`
	Permissions []string `json:"permissions"`
}
