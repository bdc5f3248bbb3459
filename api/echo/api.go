package echo

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	consoleauth "github.com/mailbridge/console-auth"
	"github.com/mailbridge/console-auth/cache"
	"github.com/mailbridge/console-auth/config"
)

// AuthAPI adapts the auth flows to the console's HTTP surface. It renders
// AuthOutcome values; all token and claims logic lives in the flows.
type AuthAPI struct {
	flows  *consoleauth.FlowService
	states *cache.StateStore
	oauth  oauth2.Config
	logger zerolog.Logger
}

// NewAuthAPI initializes the auth API.
func NewAuthAPI(cfg *config.OAuthConfig, flows *consoleauth.FlowService, states *cache.StateStore, logger zerolog.Logger) *AuthAPI {
	return &AuthAPI{
		flows:  flows,
		states: states,
		oauth: oauth2.Config{
			ClientID: cfg.Client.ClientID,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.Client.AuthorizeURL,
				TokenURL: cfg.Client.OAuthTokenURL,
			},
			RedirectURL: cfg.Client.AuthorizeURL,
		},
		logger: logger,
	}
}

// RegisterRoutes registers the console auth routes.
func (a *AuthAPI) RegisterRoutes(e *echo.Echo) {
	e.GET("/admin/auth/login", a.LoginHandler)
	e.GET("/admin/auth/callback", a.CallbackHandler)
	e.POST("/admin/auth/refresh", a.RefreshHandler)
	e.POST("/admin/auth/logout", a.LogoutHandler)
}

// LoginHandler issues a fresh state nonce and redirects the browser to the
// authorization server. The caller's ssi value rides along in the state
// store and comes back as the auth-state-ssi cookie after the callback.
func (a *AuthAPI) LoginHandler(c echo.Context) error {
	ssi := c.QueryParam("ssi")
	if ssi == "" {
		ssi = uuid.NewString()
	}
	nonce := uuid.NewString()
	a.states.Put(nonce, ssi)

	return c.Redirect(http.StatusFound, a.oauth.AuthCodeURL(nonce))
}

// CallbackHandler runs the login-callback flow: the state nonce must be
// known and unused, then the code is exchanged and the session cookies set.
func (a *AuthAPI) CallbackHandler(c echo.Context) error {
	ssi, ok := a.states.Consume(c.QueryParam("state"))
	if !ok {
		a.logger.Warn().Msg("login callback with unknown or replayed state")
		return c.String(http.StatusForbidden, "Invalid request")
	}

	outcome := a.flows.LoginCallback(c.Request().Context(), c.QueryParam("code"), ssi)
	if !outcome.OK() {
		return c.String(outcome.Status, outcome.Message)
	}

	for _, sc := range outcome.Cookies {
		c.SetCookie(sessionCookie(sc.Name, sc.Value, consoleauth.CookieMaxAge))
	}
	return c.Redirect(http.StatusFound, "/")
}

// RefreshHandler runs the refresh flow for the already-authenticated
// caller. The caller's identity comes from the validated access token
// cookie, never from anything it merely asserts.
func (a *AuthAPI) RefreshHandler(c echo.Context) error {
	userEmail, err := a.authenticatedUser(c)
	if err != nil {
		a.logger.Warn().Err(err).Msg("refresh without a valid session")
		return c.String(http.StatusUnauthorized, "Unauthorized")
	}

	refresh, err := c.Cookie(consoleauth.CookieRefreshToken)
	if err != nil || refresh.Value == "" {
		return c.String(http.StatusBadRequest, "Missing refresh token")
	}

	outcome := a.flows.RefreshSession(c.Request().Context(), userEmail, refresh.Value)
	if !outcome.OK() {
		return c.String(outcome.Status, outcome.Message)
	}
	return c.JSON(http.StatusOK, outcome.Bundle)
}

// LogoutHandler revokes the refresh token and clears the session cookies.
func (a *AuthAPI) LogoutHandler(c echo.Context) error {
	refresh, err := c.Cookie(consoleauth.CookieRefreshToken)
	if err != nil || refresh.Value == "" {
		return c.String(http.StatusBadRequest, "Missing refresh token")
	}

	outcome := a.flows.RevokeSession(c.Request().Context(), refresh.Value)
	if !outcome.OK() {
		return c.String(outcome.Status, outcome.Message)
	}

	a.clearSessionCookies(c)
	return c.String(http.StatusOK, outcome.Message)
}

func (a *AuthAPI) authenticatedUser(c echo.Context) (string, error) {
	token, err := c.Cookie(consoleauth.CookieToken)
	if err != nil {
		return "", err
	}
	claims, err := a.flows.ValidateAccessToken(token.Value)
	if err != nil {
		return "", err
	}
	return claims.UserID(), nil
}

func (a *AuthAPI) clearSessionCookies(c echo.Context) {
	names := []string{
		consoleauth.CookieUser,
		consoleauth.CookieToken,
		consoleauth.CookieRefreshToken,
		consoleauth.CookieExpiresIn,
		consoleauth.CookieIsAdmin,
		consoleauth.CookieStateSSI,
	}
	for _, name := range names {
		c.SetCookie(sessionCookie(name, "", -1))
	}
}

// sessionCookie applies the fixed session cookie attributes: Secure,
// rooted at the admin path, SameSite=Strict.
func sessionCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     consoleauth.CookiePath,
		MaxAge:   maxAge,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}
