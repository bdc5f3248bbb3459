package api

// TokenTypeRefreshToken is the token_type_hint sent with revocations; the
// console only ever revokes refresh tokens.
const TokenTypeRefreshToken = "refresh_token"

// TokenResponse represents an OAuth 2.0 token response
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// RefreshResponse is the JSON bundle the refresh flow hands back to the
// console. The admin flag is numeric because the console scripts consume
// it as 0/1.
type RefreshResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	IsAdmin      int    `json:"isadmin"`
}
