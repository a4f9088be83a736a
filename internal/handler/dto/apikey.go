package dto

// CreateAPIKeyRequest is the body of POST /api/v1/api-keys.
type CreateAPIKeyRequest struct {
	Name          string   `json:"name,omitempty"`
	Scopes        []string `json:"scopes,omitempty"`
	RateLimitTier string   `json:"rate_limit_tier,omitempty"`
}
