package dto

// IssueTokenRequest represents the request to exchange tenant credentials for tokens
type IssueTokenRequest struct {
	TenantUUID string `json:"tenant_uuid" validate:"required,uuid"`
	APIKey     string `json:"api_key" validate:"required,min=16,max=64"`
}

// RefreshTokenRequest represents the request to rotate a token pair
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenResponse represents an issued token pair
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}
