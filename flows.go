package consoleauth

import (
	"context"
	goerrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/mailbridge/console-auth/api"
	"github.com/mailbridge/console-auth/config"
	"github.com/mailbridge/console-auth/errors"
)

// Session cookie names produced by the login-callback flow.
const (
	CookieUser         = "auth-user"
	CookieToken        = "auth-token"
	CookieRefreshToken = "auth-refresh-token"
	CookieExpiresIn    = "auth-expires-in"
	CookieIsAdmin      = "auth-isadmin"
	CookieStateSSI     = "auth-state-ssi"
)

// Fixed session cookie attributes. The max-age is short because the
// console copies the values out of the cookies immediately after the
// redirect lands.
const (
	CookiePath   = "/admin"
	CookieMaxAge = 30
)

// PrivilegeAdmin is the privilege claim value that grants console admin
// rights.
const PrivilegeAdmin = "admin"

// SessionCookie is one session artifact produced by the login flow. The
// web layer attaches it with the fixed attributes above.
type SessionCookie struct {
	Name  string
	Value string
}

// AuthOutcome is the terminal result of a flow: either a success payload
// (session cookies or a token bundle) under status 200, or a status and a
// short message. Every flow ends in exactly one of the two shapes.
type AuthOutcome struct {
	Status  int
	Message string
	Cookies []SessionCookie
	Bundle  *api.RefreshResponse
}

// OK reports whether the flow succeeded.
func (o *AuthOutcome) OK() bool { return o.Status == http.StatusOK }

// FlowService composes the token client and the claims validator into the
// three console auth flows. It is stateless across invocations; concurrent
// flows share only the read-only config and key.
type FlowService struct {
	cfg    *config.OAuthConfig
	key    *config.SigningKey
	tokens TokenExchanger
	leeway time.Duration
	logger zerolog.Logger
}

// NewFlowService creates a FlowService. leeway widens expiry checks to
// absorb clock skew between the console and the authorization server.
func NewFlowService(cfg *config.OAuthConfig, key *config.SigningKey, tokens TokenExchanger, leeway time.Duration, logger zerolog.Logger) *FlowService {
	return &FlowService{
		cfg:    cfg,
		key:    key,
		tokens: tokens,
		leeway: leeway,
		logger: logger.With().Str("client_id", cfg.Client.ClientID).Logger(),
	}
}

// ValidateAccessToken decodes and validates a bare access token against
// the configured key and claim rules.
func (s *FlowService) ValidateAccessToken(tokenText string) (*Claims, error) {
	return DecodeAndValidate(s.key, s.cfg.ClaimsOptions, tokenText, s.leeway)
}

// LoginCallback exchanges the authorization code for tokens, validates the
// access token, and on success produces the session cookies. stateSSI is
// the caller-supplied anti-forgery value, echoed back as a cookie.
func (s *FlowService) LoginCallback(ctx context.Context, code, stateSSI string) *AuthOutcome {
	token, err := s.tokens.ExchangeAuthorizationCode(ctx, code)
	if err != nil {
		return remoteOutcome(err)
	}

	claims, err := s.ValidateAccessToken(token.AccessToken)
	if err != nil {
		s.logger.Error().Err(err).Msg("unable to validate token")
		return &AuthOutcome{Status: http.StatusInternalServerError, Message: err.Error()}
	}

	return &AuthOutcome{
		Status: http.StatusOK,
		Cookies: []SessionCookie{
			{CookieUser, claims.UserID()},
			{CookieToken, token.AccessToken},
			{CookieRefreshToken, token.RefreshToken},
			{CookieExpiresIn, strconv.Itoa(token.ExpiresIn)},
			{CookieIsAdmin, strconv.Itoa(adminFlag(claims))},
			{CookieStateSSI, stateSSI},
		},
	}
}

// RefreshSession obtains fresh tokens with the refresh token, validates
// the new access token, and cross-checks its subject against the identity
// of the already-authenticated caller. A mismatch is an expected
// adversarial case: it is rejected as forbidden without revealing which
// identity was expected.
func (s *FlowService) RefreshSession(ctx context.Context, userEmail, refreshToken string) *AuthOutcome {
	token, err := s.tokens.Refresh(ctx, refreshToken)
	if err != nil {
		return remoteOutcome(err)
	}

	logger := s.logger.With().Str("username", userEmail).Logger()

	claims, err := s.ValidateAccessToken(token.AccessToken)
	if err != nil {
		logger.Error().Err(err).Msg("unable to validate token")
		return &AuthOutcome{Status: http.StatusInternalServerError, Message: err.Error()}
	}

	if claims.UserID() != userEmail {
		// The authenticated user presented someone else's refresh token.
		logger.Warn().Str("token_user", claims.UserID()).Msg("refreshed token user id mismatch")
		return &AuthOutcome{Status: http.StatusForbidden, Message: "Invalid request"}
	}

	return &AuthOutcome{
		Status: http.StatusOK,
		Bundle: &api.RefreshResponse{
			Token:        token.AccessToken,
			RefreshToken: token.RefreshToken,
			ExpiresIn:    token.ExpiresIn,
			IsAdmin:      adminFlag(claims),
		},
	}
}

// RevokeSession invalidates the refresh token at the authorization server.
func (s *FlowService) RevokeSession(ctx context.Context, refreshToken string) *AuthOutcome {
	if err := s.tokens.Revoke(ctx, refreshToken, api.TokenTypeRefreshToken); err != nil {
		return remoteOutcome(err)
	}
	return &AuthOutcome{Status: http.StatusOK, Message: "OK"}
}

// remoteOutcome maps a token client failure onto the flow contract: the
// server's own message for a 400, the generic message for everything else.
func remoteOutcome(err error) *AuthOutcome {
	var remote *errors.RemoteError
	if goerrors.As(err, &remote) && remote.BadRequest() {
		return &AuthOutcome{Status: http.StatusBadRequest, Message: remote.Message}
	}
	return &AuthOutcome{Status: http.StatusInternalServerError, Message: msgServerError}
}

// adminFlag encodes the admin privilege in the 0/1 form the console's
// scripts consume.
func adminFlag(claims *Claims) int {
	if claims.HasPrivilege(PrivilegeAdmin) {
		return 1
	}
	return 0
}
