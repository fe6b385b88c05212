// Package providers downloads tracker positions from the Geodynamics feeds.
package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"linker/internal/constants"
	"linker/internal/logging"
	"linker/internal/metrics"
	"linker/internal/models/dtos"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
)

const userAgent = "https://github.com/Tijs-B/linker"

// GeodynamicsProvider fetches one feed URL. The minisite and the API feed
// share the payload format and only differ in URL and source tag.
type GeodynamicsProvider struct {
	URL     string
	Source  constants.TrackerLogSource
	Client  *http.Client
	cb      *gobreaker.CircuitBreaker[*dtos.GeodynamicsPayload]
	metrics *metrics.MetricsRegistry
	now     func() time.Time
}

// NewGeodynamicsProvider creates a provider with its own circuit breaker.
// The breaker opens after five consecutive failures and lets a trial request through after a minute.
func NewGeodynamicsProvider(feedURL string, source constants.TrackerLogSource, timeout time.Duration, metricsReg *metrics.MetricsRegistry) *GeodynamicsProvider {
	name := "geodynamics-" + source.String()

	cb := gobreaker.NewCircuitBreaker[*dtos.GeodynamicsPayload](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    5 * time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn("[Geodynamics] Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &GeodynamicsProvider{
		URL:     feedURL,
		Source:  source,
		Client:  &http.Client{Timeout: timeout},
		cb:      cb,
		metrics: metricsReg,
		now:     time.Now,
	}
}

// GetProviderType returns the provider type identifier
func (p *GeodynamicsProvider) GetProviderType() string {
	return "geodynamics_" + p.Source.String()
}

// FetchTrackers downloads the current feed snapshot.
func (p *GeodynamicsProvider) FetchTrackers(ctx context.Context) (*dtos.GeodynamicsPayload, error) {
	if p.URL == "" {
		return nil, &ProviderError{
			Code:    constants.ErrCodeNotConfigured,
			Message: constants.GetErrorMessage(constants.ErrCodeNotConfigured),
		}
	}

	payload, err := p.cb.Execute(func() (*dtos.GeodynamicsPayload, error) {
		return p.doGET(ctx)
	})
	if err != nil {
		if p.metrics != nil {
			p.metrics.VendorFetchFailureTotal.Inc()
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &ProviderError{
				Code:    constants.ErrCodeCircuitOpen,
				Message: constants.GetErrorMessage(constants.ErrCodeCircuitOpen),
				Err:     err,
			}
		}
		return nil, err
	}
	return payload, nil
}

// doGET performs the request. The "_" parameter defeats intermediate caches.
func (p *GeodynamicsProvider) doGET(ctx context.Context) (*dtos.GeodynamicsPayload, error) {
	u, err := url.Parse(p.URL)
	if err != nil {
		return nil, &ProviderError{
			Code:    constants.ErrCodeNotConfigured,
			Message: "Invalid feed URL",
			Err:     err,
		}
	}
	q := u.Query()
	q.Set("_", strconv.FormatInt(p.now().UnixMilli(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &ProviderError{
			Code:    constants.ErrCodeNetworkError,
			Message: "Failed to create request",
			Err:     err,
		}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, &ProviderError{
			Code:    constants.ErrCodeNetworkError,
			Message: constants.GetErrorMessage(constants.ErrCodeNetworkError),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{
			Code:    constants.ErrCodeNetworkError,
			Message: "Failed to read response body",
			Err:     err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, buildHTTPError(resp.StatusCode, string(bodyBytes))
	}

	var payload dtos.GeodynamicsPayload
	if err := json.Unmarshal(bodyBytes, &payload); err != nil {
		return nil, &ProviderError{
			Code:       constants.ErrCodeInvalidPayload,
			Message:    constants.GetErrorMessage(constants.ErrCodeInvalidPayload),
			Details:    truncate(string(bodyBytes), 512),
			StatusCode: resp.StatusCode,
			Err:        err,
		}
	}

	logging.Debug("[Geodynamics] Fetched feed", "source", p.Source.String(), "trackers", len(payload.Data))
	return &payload, nil
}

// buildHTTPError creates appropriate error based on status code
func buildHTTPError(statusCode int, body string) error {
	code := constants.ErrCodeUpstreamStatus
	switch statusCode {
	case http.StatusNotFound:
		code = constants.ErrCodeResourceNotFound
	case http.StatusTooManyRequests:
		code = constants.ErrCodeRateLimited
	}
	return &ProviderError{
		Code:       code,
		Message:    fmt.Sprintf("%s (HTTP %d)", constants.GetErrorMessage(code), statusCode),
		Details:    truncate(body, 512),
		StatusCode: statusCode,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
