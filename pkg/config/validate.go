package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateURL checks that a value is an absolute http(s) URL. The name is
// used in the error message only.
func ValidateURL(raw string, name string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", name, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s is missing a host", name)
	}
	return nil
}

// ValidateToken rejects obviously broken credentials before they hit the API.
func ValidateToken(token string, name string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("%s must not be empty", name)
	}
	if strings.ContainsAny(token, " \t\n\r") {
		return fmt.Errorf("%s must not contain whitespace", name)
	}
	return nil
}

// ValidateThreadCount bounds the scan worker pool size.
func ValidateThreadCount(threads int) error {
	if threads < 1 || threads > 64 {
		return fmt.Errorf("thread count must be between 1 and 64, got %d", threads)
	}
	return nil
}
