// Package httpclient provides the shared retrying HTTP client used for all
// imageleek API calls.
package httpclient

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"
)

// GetClient returns a retryablehttp client preconfigured for imageleek:
// exponential backoff, per-request timeout and optional static headers that
// are attached to every request (e.g. an Authorization header).
func GetClient(headers map[string]string) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 1 * time.Second
	client.RetryWaitMax = 10 * time.Second
	client.HTTPClient.Timeout = 30 * time.Second
	client.Logger = zerologAdapter{}

	if len(headers) > 0 {
		// Wrap the pooled transport retryablehttp installed rather than
		// the process-global default.
		client.HTTPClient.Transport = &headerTransport{
			headers: headers,
			next:    client.HTTPClient.Transport,
		}
	}

	return client
}

// headerTransport injects static headers into every outgoing request.
type headerTransport struct {
	headers map[string]string
	next    http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for name, value := range t.headers {
		req.Header.Set(name, value)
	}
	return t.next.RoundTrip(req)
}

// zerologAdapter maps retryablehttp's leveled logging onto the global
// zerolog logger. Request/retry chatter is demoted below info so normal
// scans stay quiet.
type zerologAdapter struct{}

func (zerologAdapter) Error(msg string, keysAndValues ...interface{}) {
	log.Error().Fields(keysAndValues).Msg(msg)
}

func (zerologAdapter) Warn(msg string, keysAndValues ...interface{}) {
	log.Warn().Fields(keysAndValues).Msg(msg)
}

func (zerologAdapter) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg(msg)
}

func (zerologAdapter) Debug(msg string, keysAndValues ...interface{}) {
	log.Trace().Fields(keysAndValues).Msg(msg)
}
