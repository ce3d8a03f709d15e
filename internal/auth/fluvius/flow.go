package fluvius

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/gvnuland/Fluvius-API/internal/config"
	"github.com/gvnuland/Fluvius-API/internal/util"
	log "github.com/sirupsen/logrus"
)

// Endpoints and client metadata mirror the mijn.fluvius.be web frontend. The
// self-asserted and confirmation endpoints are not listed here: they are
// discovered at runtime from the SETTINGS document the authorize page embeds.
const (
	AuthorizeURL = "https://login.fluvius.be/fluviusweb.onmicrosoft.com/b2c_1a_signin/oauth2/v2.0/authorize"
	TokenURL     = "https://login.fluvius.be/fluviusweb.onmicrosoft.com/b2c_1a_signin/oauth2/v2.0/token"
	ClientID     = "cc2e8e27-9503-4b74-a9a8-2d2a9b3ed6e9"
	RedirectURI  = "https://mijn.fluvius.be/"
	Scope        = "openid offline_access https://fluviusweb.onmicrosoft.com/mijnfluvius/api.request"
)

// DefaultTimeout bounds every HTTP exchange of the flow.
const DefaultTimeout = 30 * time.Second

// Authenticator drives the full login sequence. Each Authenticate call is an
// independent attempt with fresh PKCE material and a fresh cookie session;
// nothing is cached or reused between calls.
type Authenticator struct {
	httpClient *http.Client
	timeout    time.Duration

	authorizeURL string
	tokenURL     string
	clientID     string
	redirectURI  string
	scope        string
}

// NewAuthenticator creates an authenticator with a proxy-aware HTTP transport.
func NewAuthenticator(cfg *config.Config) *Authenticator {
	timeout := DefaultTimeout
	if cfg.RequestTimeout > 0 {
		timeout = time.Duration(cfg.RequestTimeout) * time.Second
	}
	return &Authenticator{
		httpClient:   util.SetProxy(cfg, &http.Client{}),
		timeout:      timeout,
		authorizeURL: AuthorizeURL,
		tokenURL:     TokenURL,
		clientID:     ClientID,
		redirectURI:  RedirectURI,
		scope:        Scope,
	}
}

// Authenticate performs the complete browser-less login and returns the
// bearer token with its informational payload. On failure it returns one of
// the typed errors of this package; use Retryable to decide whether a single
// fresh attempt is worthwhile. Credentials never appear in returned errors.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string, rememberMe bool) (*AuthResult, error) {
	pkce, err := GeneratePKCECodes()
	if err != nil {
		return nil, err
	}
	state, err := GenerateRandomState()
	if err != nil {
		return nil, err
	}
	nonce, err := GenerateRandomState()
	if err != nil {
		return nil, err
	}

	sess, err := NewSession(a.httpClient, a.timeout)
	if err != nil {
		return nil, err
	}

	settings, origin, err := a.requestAuthorize(ctx, sess, pkce, state, nonce)
	if err != nil {
		return nil, err
	}
	log.Debugf("authorize page scraped, transaction %s", settings.TransID)

	if err = a.submitCredentials(ctx, sess, origin, settings, email, password); err != nil {
		return nil, err
	}
	log.Debug("credentials accepted")

	location, err := a.confirmSignin(ctx, sess, origin, settings, rememberMe)
	if err != nil {
		return nil, err
	}

	code, returnedState, err := ExtractRedirectCode(location)
	if err != nil {
		return nil, err
	}
	if returnedState != state {
		return nil, ErrStateMismatch
	}
	log.Debug("authorization code captured")

	return a.exchangeCode(ctx, sess, code, pkce)
}

// requestAuthorize issues the initial authorize GET carrying the PKCE
// challenge and scrapes the embedded SETTINGS document from the response. The
// response's final URL establishes the origin that the discovered endpoint
// fragments are resolved against.
func (a *Authenticator) requestAuthorize(ctx context.Context, sess *Session, pkce *PKCECodes, state, nonce string) (*PageSettings, string, error) {
	query := url.Values{}
	query.Set("client_id", a.clientID)
	query.Set("response_type", "code")
	query.Set("redirect_uri", a.redirectURI)
	query.Set("response_mode", "query")
	query.Set("scope", a.scope)
	query.Set("state", state)
	query.Set("nonce", nonce)
	query.Set("code_challenge", pkce.CodeChallenge)
	query.Set("code_challenge_method", ChallengeMethod)

	resp, err := sess.Get(ctx, a.authorizeURL, query, true)
	if err != nil {
		return nil, "", fmt.Errorf("authorize request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", &HTTPError{Step: StepAuthorize, StatusCode: resp.StatusCode}
	}

	settings, err := ExtractSettings(resp.Body)
	if err != nil {
		return nil, "", err
	}
	origin := resp.FinalURL.Scheme + "://" + resp.FinalURL.Host
	return settings, origin, nil
}

// submitCredentials POSTs the email and password to the self-asserted
// endpoint discovered from the page settings. The provider answers 200 with a
// JSON body whose status marker decides the outcome; anything other than
// "200" is a credential rejection and ends the attempt immediately.
func (a *Authenticator) submitCredentials(ctx context.Context, sess *Session, origin string, settings *PageSettings, email, password string) error {
	form := url.Values{}
	form.Set("request_type", "RESPONSE")
	form.Set("signInName", email)
	form.Set("password", password)
	form.Set("tx", settings.TransID)
	form.Set("p", settings.Policy)

	endpoint := origin + settings.TenantPath + "/SelfAsserted?" + url.Values{
		"tx": {settings.TransID},
		"p":  {settings.Policy},
	}.Encode()

	headers := http.Header{}
	headers.Set("X-CSRF-TOKEN", settings.CSRF)

	resp, err := sess.PostForm(ctx, endpoint, form, headers)
	if err != nil {
		return fmt.Errorf("credential submission failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &HTTPError{Step: StepCredentials, StatusCode: resp.StatusCode}
	}

	status := gjson.GetBytes(resp.Body, "status").String()
	if status != "200" {
		return &InvalidCredentialsError{
			Status:  status,
			Message: gjson.GetBytes(resp.Body, "message").String(),
		}
	}
	return nil
}

// confirmSignin re-requests the policy's confirmation endpoint for the same
// transaction with redirect following disabled, so the Location header that
// carries the authorization code can be inspected instead of consumed.
func (a *Authenticator) confirmSignin(ctx context.Context, sess *Session, origin string, settings *PageSettings, rememberMe bool) (string, error) {
	query := url.Values{}
	query.Set("rememberMe", fmt.Sprintf("%t", rememberMe))
	query.Set("csrf_token", settings.CSRF)
	query.Set("tx", settings.TransID)
	query.Set("p", settings.Policy)

	endpoint := origin + settings.TenantPath + "/api/" + settings.API + "/confirmed"
	resp, err := sess.Get(ctx, endpoint, query, false)
	if err != nil {
		return "", fmt.Errorf("confirmation request failed: %w", err)
	}
	if resp.StatusCode < 300 || resp.StatusCode > 399 {
		return "", &HTTPError{Step: StepConfirm, StatusCode: resp.StatusCode}
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return "", &ScrapeError{Field: "Location"}
	}
	return location, nil
}
