package owm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sony/gobreaker"
)

var errNoHTTPClient = errors.New("http client not configured")

// fetcher performs one GET per call, optionally behind a circuit breaker.
type fetcher struct {
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

// get returns the response body of a 200 response. Any other status yields a *StatusError.
func (f *fetcher) get(ctx context.Context, u string) (string, error) {
	if f.client == nil {
		return "", errNoHTTPClient
	}
	if f.circuit == nil {
		return f.do(ctx, u)
	}

	result, err := f.circuit.Execute(func() (interface{}, error) {
		return f.do(ctx, u)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	if err != nil {
		return "", err
	}

	body, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("unexpected result type from circuit breaker")
	}
	return body, nil
}

func (f *fetcher) do(ctx context.Context, u string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", newStatusError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return string(body), nil
}
