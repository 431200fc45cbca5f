package handler

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	TenantID string `json:"tenantId" binding:"required,notblank,max=64"`
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=8,max=256"`
}

// TokenResponse carries a freshly signed access token
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
}
