package fetcher

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// HTTPError is returned when a server answers with a non-2xx status.
// URL is redacted: credentials, query and fragment are removed.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status code: %d (%s)", e.StatusCode, e.URL)
}

// IsNotFound reports whether err is an HTTPError with status 404
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}

// RedactURL strips userinfo, query and fragment so API keys never reach logs or errors
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	u.User = nil
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// requestError rewrites the *url.Error returned by http.Client.Do without the raw URL
func requestError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("network error: %s %s: %w", urlErr.Op, RedactURL(urlErr.URL), urlErr.Err)
	}
	return fmt.Errorf("network error: %w", err)
}
