package fluvius

import (
	"net/url"
	"regexp"

	"github.com/tidwall/gjson"
)

// settingsPattern locates the SETTINGS object the B2C policy page inlines in a
// script block. The surrounding markup shifts between provider releases, so
// only the assignment itself is matched.
var settingsPattern = regexp.MustCompile(`(?s)var\s+SETTINGS\s*=\s*(\{.*?\})\s*;`)

// PageSettings holds the per-transaction configuration scraped from the
// authorize response: the CSRF token and transaction ID that must accompany
// the credential submission, and the dynamic endpoint fragments the page
// would otherwise resolve in JavaScript.
type PageSettings struct {
	CSRF       string
	TransID    string
	API        string
	TenantPath string
	Policy     string
}

// ExtractSettings scrapes the embedded SETTINGS document from an authorize
// response body. Every field is required; a missing one yields a *ScrapeError
// naming it, never a partially filled result.
func ExtractSettings(body []byte) (*PageSettings, error) {
	match := settingsPattern.FindSubmatch(body)
	if match == nil {
		return nil, &ScrapeError{Field: "SETTINGS"}
	}

	doc := gjson.ParseBytes(match[1])
	settings := &PageSettings{}
	for _, field := range []struct {
		path string
		dst  *string
	}{
		{"csrf", &settings.CSRF},
		{"transId", &settings.TransID},
		{"api", &settings.API},
		{"hosts.tenant", &settings.TenantPath},
		{"hosts.policy", &settings.Policy},
	} {
		value := doc.Get(field.path)
		if !value.Exists() || value.String() == "" {
			return nil, &ScrapeError{Field: field.path}
		}
		*field.dst = value.String()
	}
	return settings, nil
}

// ExtractRedirectCode parses the authorization code and state out of the
// Location header of the confirmation redirect.
func ExtractRedirectCode(location string) (code, state string, err error) {
	parsed, errParse := url.Parse(location)
	if errParse != nil {
		return "", "", &ScrapeError{Field: "Location"}
	}
	query := parsed.Query()
	code = query.Get("code")
	if code == "" {
		return "", "", &ScrapeError{Field: "code"}
	}
	return code, query.Get("state"), nil
}
