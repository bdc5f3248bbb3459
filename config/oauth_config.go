package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// ClientConfig is the console's OAuth client registration with the
// authorization server. Loaded once and held read-only afterwards.
type ClientConfig struct {
	ClientID       string `json:"client_id"        mapstructure:"client_id"`
	ClientPassword Secret `json:"client_password"  mapstructure:"client_password"`
	OAuthTokenURL  string `json:"oauth_token_url"  mapstructure:"oauth_token_url"`
	OAuthRevokeURL string `json:"oauth_revoke_url" mapstructure:"oauth_revoke_url"`
	AuthorizeURL   string `json:"authorize_url"    mapstructure:"authorize_url"`
}

// ClaimRule is one named validation rule from jwt_claims_options. A nil
// rule means the claim is unconstrained.
type ClaimRule struct {
	// Essential requires the claim to be present.
	Essential bool `json:"essential,omitempty" mapstructure:"essential"`
	// Value is the single acceptable value for the claim.
	Value string `json:"value,omitempty" mapstructure:"value"`
	// Values is the set of acceptable values. For multi-valued claims the
	// rule matches when any acceptable value is a member of the claim.
	Values []string `json:"values,omitempty" mapstructure:"values"`
}

// ClaimsOptions is the declarative claim rule set applied on every token
// validation. The rule shapes are fixed at compile time; which rules apply
// and their values come from the config file.
type ClaimsOptions struct {
	Issuer     *ClaimRule `json:"iss,omitempty"   mapstructure:"iss"`
	Subject    *ClaimRule `json:"sub,omitempty"   mapstructure:"sub"`
	Audience   *ClaimRule `json:"aud,omitempty"   mapstructure:"aud"`
	IssuedAt   *ClaimRule `json:"iat,omitempty"   mapstructure:"iat"`
	Expiry     *ClaimRule `json:"exp,omitempty"   mapstructure:"exp"`
	Privileges *ClaimRule `json:"privs,omitempty" mapstructure:"privs"`
}

// OAuthConfig mirrors the on-disk JSON OAuth config file.
type OAuthConfig struct {
	Client        ClientConfig  `json:"client"             mapstructure:"client"`
	ClaimsOptions ClaimsOptions `json:"jwt_claims_options" mapstructure:"jwt_claims_options"`
}

// LoadOAuthConfig reads the client registration and claim rules from the
// JSON config file at path. The path is locally trusted; a missing or
// unparsable file fails the load.
func LoadOAuthConfig(path string) (*OAuthConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading oauth config %s: %w", path, err)
	}

	var cfg OAuthConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding oauth config %s: %w", path, err)
	}

	if cfg.Client.ClientID == "" {
		return nil, fmt.Errorf("oauth config %s: client.client_id is required", path)
	}
	if cfg.Client.OAuthTokenURL == "" {
		return nil, fmt.Errorf("oauth config %s: client.oauth_token_url is required", path)
	}

	return &cfg, nil
}
