package randomuser

import (
	"fmt"
	"net/url"
)

// DefaultURL is the public random user endpoint
const DefaultURL = "https://randomuser.me/api/"

// ValidateURL checks that raw is an absolute http(s) URL
func ValidateURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid API URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid API URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid API URL %q: missing host", raw)
	}
	return u.String(), nil
}
