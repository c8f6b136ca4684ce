package auth

// DevAuthRequest: тело POST /v1/auth/dev (user_id опционален)
type DevAuthRequest struct {
	UserID string `json:"user_id"`
}

// DevAuthResponse: ответ на dev-авторизацию
type DevAuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	UserID      string `json:"user_id"`
}

// ErrorResponse mirrors the planned meals error body.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}
