package fluvius

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

const (
	testTenantPath = "/te/fluviusweb.onmicrosoft.com/b2c_1a_signin"
	testPolicy     = "b2c_1a_signin"
	testAPI        = "CombinedSigninAndSignup"
	testTransID    = "StateProperties=T1"
	testCSRF       = "C1"
)

// mockProvider emulates the identity provider's policy flow endpoints.
type mockProvider struct {
	settingsJSON    string
	authorizeStatus int
	credentialBody  string
	credentialCode  int
	redirectState   string // overrides the echoed state when set
	tokenStatus     int
	tokenBody       string

	authorizeQuery url.Values
	credentialForm url.Values
	csrfHeader     string
	confirmQuery   url.Values
	tokenForm      url.Values
	confirmCalled  bool
	tokenCalled    bool
}

func defaultProvider() *mockProvider {
	settings := fmt.Sprintf(`{"csrf":%q,"transId":%q,"api":%q,"hosts":{"tenant":%q,"policy":%q}}`,
		testCSRF, testTransID, testAPI, testTenantPath, testPolicy)
	return &mockProvider{
		settingsJSON:    settings,
		authorizeStatus: http.StatusOK,
		credentialBody:  `{"status":"200"}`,
		credentialCode:  http.StatusOK,
		tokenStatus:     http.StatusOK,
		tokenBody:       `{"access_token":"tok123","token_type":"Bearer","expires_in":3600}`,
	}
}

func (p *mockProvider) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/authorize", func(w http.ResponseWriter, r *http.Request) {
		p.authorizeQuery = r.URL.Query()
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(p.authorizeStatus)
		fmt.Fprintf(w, "<html><head><script>\nvar SETTINGS = %s;\n</script></head><body></body></html>", p.settingsJSON)
	})

	mux.HandleFunc(testTenantPath+"/SelfAsserted", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		p.credentialForm = r.PostForm
		p.csrfHeader = r.Header.Get("X-CSRF-TOKEN")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(p.credentialCode)
		fmt.Fprint(w, p.credentialBody)
	})

	mux.HandleFunc(testTenantPath+"/api/"+testAPI+"/confirmed", func(w http.ResponseWriter, r *http.Request) {
		p.confirmCalled = true
		p.confirmQuery = r.URL.Query()
		state := p.redirectState
		if state == "" {
			state = p.authorizeQuery.Get("state")
		}
		location := fmt.Sprintf("https://example.invalid/?code=ABC&state=%s", url.QueryEscape(state))
		http.Redirect(w, r, location, http.StatusFound)
	})

	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		p.tokenCalled = true
		_ = r.ParseForm()
		p.tokenForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(p.tokenStatus)
		fmt.Fprint(w, p.tokenBody)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func (p *mockProvider) authenticator(srv *httptest.Server) *Authenticator {
	return &Authenticator{
		httpClient:   srv.Client(),
		timeout:      5 * time.Second,
		authorizeURL: srv.URL + "/authorize",
		tokenURL:     srv.URL + "/token",
		clientID:     "test-client",
		redirectURI:  "https://example.invalid/",
		scope:        "openid",
	}
}

func TestAuthenticateSuccess(t *testing.T) {
	provider := defaultProvider()
	srv := provider.server(t)
	auth := provider.authenticator(srv)

	result, err := auth.Authenticate(context.Background(), "a@b.com", "x", false)
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if result.AccessToken != "tok123" {
		t.Errorf("access token = %q, want tok123", result.AccessToken)
	}
	if got, ok := result.Payload["expires_in"].(int); !ok || got != 3600 {
		t.Errorf("payload expires_in = %v, want 3600", result.Payload["expires_in"])
	}

	// The authorize request must carry PKCE material whose challenge matches
	// the verifier sent at the token exchange.
	challenge := provider.authorizeQuery.Get("code_challenge")
	verifier := provider.tokenForm.Get("code_verifier")
	if challenge == "" || verifier == "" {
		t.Fatalf("missing PKCE parameters: challenge=%q verifier=%q", challenge, verifier)
	}
	if derived := generateCodeChallenge(verifier); derived != challenge {
		t.Errorf("challenge %q does not derive from transmitted verifier", challenge)
	}
	if method := provider.authorizeQuery.Get("code_challenge_method"); method != ChallengeMethod {
		t.Errorf("code_challenge_method = %q, want %s", method, ChallengeMethod)
	}

	if provider.csrfHeader != testCSRF {
		t.Errorf("X-CSRF-TOKEN = %q, want %s", provider.csrfHeader, testCSRF)
	}
	if tx := provider.credentialForm.Get("tx"); tx != testTransID {
		t.Errorf("credential tx = %q, want %s", tx, testTransID)
	}
	if code := provider.tokenForm.Get("code"); code != "ABC" {
		t.Errorf("token exchange code = %q, want ABC", code)
	}
}

func TestAuthenticateStateMismatch(t *testing.T) {
	provider := defaultProvider()
	provider.redirectState = "S2"
	srv := provider.server(t)
	auth := provider.authenticator(srv)

	result, err := auth.Authenticate(context.Background(), "a@b.com", "x", false)
	if !errors.Is(err, ErrStateMismatch) {
		t.Fatalf("error = %v, want ErrStateMismatch", err)
	}
	if result != nil {
		t.Error("result must be nil on state mismatch")
	}
	if provider.tokenCalled {
		t.Error("token endpoint must not be called after a state mismatch")
	}
}

func TestAuthenticateInvalidCredentials(t *testing.T) {
	provider := defaultProvider()
	provider.credentialBody = `{"status":"400","message":"Het e-mailadres of wachtwoord is onjuist."}`
	srv := provider.server(t)
	auth := provider.authenticator(srv)

	_, err := auth.Authenticate(context.Background(), "a@b.com", "wrong", false)
	var credErr *InvalidCredentialsError
	if !errors.As(err, &credErr) {
		t.Fatalf("error = %v, want *InvalidCredentialsError", err)
	}
	if credErr.Status != "400" {
		t.Errorf("status = %q, want 400", credErr.Status)
	}
	if provider.confirmCalled {
		t.Error("confirmation must not be requested after rejected credentials")
	}
}

func TestAuthenticateUnrecognizedCredentialStatus(t *testing.T) {
	provider := defaultProvider()
	provider.credentialBody = `{"status":"504","message":"Account locked."}`
	srv := provider.server(t)
	auth := provider.authenticator(srv)

	_, err := auth.Authenticate(context.Background(), "a@b.com", "x", false)
	var credErr *InvalidCredentialsError
	if !errors.As(err, &credErr) {
		t.Fatalf("error = %v, want *InvalidCredentialsError", err)
	}
	if credErr.Status != "504" {
		t.Errorf("status = %q, want raw provider status preserved", credErr.Status)
	}
}

func TestAuthenticateScrapeErrorOnMissingField(t *testing.T) {
	provider := defaultProvider()
	provider.settingsJSON = fmt.Sprintf(`{"csrf":%q,"api":%q,"hosts":{"tenant":%q,"policy":%q}}`,
		testCSRF, testAPI, testTenantPath, testPolicy)
	srv := provider.server(t)
	auth := provider.authenticator(srv)

	_, err := auth.Authenticate(context.Background(), "a@b.com", "x", false)
	var scrapeErr *ScrapeError
	if !errors.As(err, &scrapeErr) {
		t.Fatalf("error = %v, want *ScrapeError", err)
	}
	if scrapeErr.Field != "transId" {
		t.Errorf("missing field = %q, want transId", scrapeErr.Field)
	}
}

func TestAuthenticateHTTPErrorAtAuthorize(t *testing.T) {
	provider := defaultProvider()
	provider.authorizeStatus = http.StatusServiceUnavailable
	srv := provider.server(t)
	auth := provider.authenticator(srv)

	_, err := auth.Authenticate(context.Background(), "a@b.com", "x", false)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("error = %v, want *HTTPError", err)
	}
	if httpErr.Step != StepAuthorize || httpErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("got step=%s status=%d, want authorize/503", httpErr.Step, httpErr.StatusCode)
	}
}

// A 400 at the credential step and a 400 at the token exchange must be
// distinguishable: only the latter is worth a caller retry.
func TestBadRequestDistinction(t *testing.T) {
	t.Run("early step", func(t *testing.T) {
		provider := defaultProvider()
		provider.credentialCode = http.StatusBadRequest
		provider.credentialBody = `{}`
		srv := provider.server(t)
		auth := provider.authenticator(srv)

		_, err := auth.Authenticate(context.Background(), "a@b.com", "x", false)
		var httpErr *HTTPError
		if !errors.As(err, &httpErr) {
			t.Fatalf("error = %v, want *HTTPError", err)
		}
		if httpErr.Step != StepCredentials {
			t.Errorf("step = %q, want %s", httpErr.Step, StepCredentials)
		}
		if Retryable(err) {
			t.Error("an early-step HTTP error must not be retryable")
		}
	})

	t.Run("token step", func(t *testing.T) {
		provider := defaultProvider()
		provider.tokenStatus = http.StatusBadRequest
		provider.tokenBody = `{"error":"invalid_grant","error_description":"AADB2C90080"}`
		srv := provider.server(t)
		auth := provider.authenticator(srv)

		_, err := auth.Authenticate(context.Background(), "a@b.com", "x", false)
		var tokenErr *TokenEndpointError
		if !errors.As(err, &tokenErr) {
			t.Fatalf("error = %v, want *TokenEndpointError", err)
		}
		if tokenErr.StatusCode != http.StatusBadRequest || tokenErr.Code != "invalid_grant" {
			t.Errorf("got status=%d code=%q", tokenErr.StatusCode, tokenErr.Code)
		}
		if !Retryable(err) {
			t.Error("a token endpoint error must be retryable")
		}
	})
}

func TestAuthenticateRememberMeForwarded(t *testing.T) {
	provider := defaultProvider()
	srv := provider.server(t)
	auth := provider.authenticator(srv)

	if _, err := auth.Authenticate(context.Background(), "a@b.com", "x", true); err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if got := provider.confirmQuery.Get("rememberMe"); got != "true" {
		t.Errorf("rememberMe = %q, want true", got)
	}
	if got := provider.confirmQuery.Get("tx"); got != testTransID {
		t.Errorf("confirm tx = %q, want %s", got, testTransID)
	}
}
