package consoleauth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mailbridge/console-auth/api"
	"github.com/mailbridge/console-auth/config"
	"github.com/mailbridge/console-auth/errors"
)

// remoteTimeout bounds every call to the authorization server so a
// degraded server cannot stall console requests.
const remoteTimeout = 5 * time.Second

const msgServerError = "Error contacting oauth server"

// TokenExchanger is the remote surface of the authorization server's token
// and revocation endpoints.
type TokenExchanger interface {
	ExchangeAuthorizationCode(ctx context.Context, code string) (*api.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*api.TokenResponse, error)
	Revoke(ctx context.Context, token, tokenTypeHint string) error
}

// TokenClient performs the three token-endpoint operations with HTTP Basic
// client authentication and form-encoded bodies. Redirects are never
// followed: a token endpoint answering with one is a misconfiguration,
// not a destination.
type TokenClient struct {
	cfg    config.ClientConfig
	http   *http.Client
	logger zerolog.Logger
}

// NewTokenClient creates a TokenClient for the registered console client.
func NewTokenClient(cfg config.ClientConfig, logger zerolog.Logger) *TokenClient {
	return &TokenClient{
		cfg: cfg,
		http: &http.Client{
			Timeout: remoteTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger.With().Str("client_id", cfg.ClientID).Logger(),
	}
}

// ExchangeAuthorizationCode obtains an access token using an authorization
// code grant.
func (c *TokenClient) ExchangeAuthorizationCode(ctx context.Context, code string) (*api.TokenResponse, error) {
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {c.cfg.AuthorizeURL},
	}
	return c.postForToken(ctx, c.cfg.OAuthTokenURL, form)
}

// Refresh obtains a new access token and refresh token using a refresh
// token grant.
func (c *TokenClient) Refresh(ctx context.Context, refreshToken string) (*api.TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	return c.postForToken(ctx, c.cfg.OAuthTokenURL, form)
}

// Revoke invalidates the token at the authorization server. A nil return
// is the acknowledgement; the 200 body is ignored.
func (c *TokenClient) Revoke(ctx context.Context, token, tokenTypeHint string) error {
	form := url.Values{
		"token":           {token},
		"token_type_hint": {tokenTypeHint},
	}
	resp, body, err := c.post(ctx, c.cfg.OAuthRevokeURL, form)
	if err != nil {
		return err
	}
	return c.classify(resp, body)
}

func (c *TokenClient) postForToken(ctx context.Context, endpoint string, form url.Values) (*api.TokenResponse, error) {
	resp, body, err := c.post(ctx, endpoint, form)
	if err != nil {
		return nil, err
	}
	if err := c.classify(resp, body); err != nil {
		return nil, err
	}

	var token api.TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("malformed token endpoint response")
		return nil, &errors.RemoteError{StatusCode: resp.StatusCode, Message: msgServerError, Err: err}
	}
	return &token, nil
}

// post sends the form with client credentials and drains the body.
// Transport failures, the timeout included, classify as the generic
// remote error.
func (c *TokenClient) post(ctx context.Context, endpoint string, form url.Values) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, nil, &errors.RemoteError{Message: msgServerError, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientPassword.Value())

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("oauth server unreachable")
		return nil, nil, &errors.RemoteError{Message: msgServerError, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("reading oauth server response")
		return nil, nil, &errors.RemoteError{StatusCode: resp.StatusCode, Message: msgServerError, Err: err}
	}
	return resp, body, nil
}

// classify maps the response status onto the outcome contract: 200 passes,
// 400 surfaces the server's own message, everything else is generic. Only
// the 400 body is trusted to be JSON.
func (c *TokenClient) classify(resp *http.Response, body []byte) error {
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusBadRequest:
		var oauthErr errors.OAuth2Error
		if err := json.Unmarshal(body, &oauthErr); err != nil || oauthErr.Code == "" && oauthErr.Description == "" {
			c.logger.Error().Int("status", resp.StatusCode).Str("body", string(body)).
				Msg("unparsable error body from oauth server")
			return &errors.RemoteError{StatusCode: resp.StatusCode, Message: msgServerError}
		}
		c.logger.Error().Int("status", resp.StatusCode).Str("error", oauthErr.Code).
			Str("error_description", oauthErr.Description).Msg("oauth server rejected request")
		return &errors.RemoteError{StatusCode: resp.StatusCode, Message: oauthErr.Message(), Err: &oauthErr}
	default:
		c.logger.Error().Int("status", resp.StatusCode).Str("body", string(body)).
			Msg("unexpected status from oauth server")
		return &errors.RemoteError{StatusCode: resp.StatusCode, Message: msgServerError}
	}
}
