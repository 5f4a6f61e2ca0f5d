// Package providers holds one unit per supported provider. Each unit owns
// its provider's login flow, credential refresh, and quota fetch, and maps
// every failure onto the domain sentinels so callers never branch on
// provider-specific errors.
package providers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bnema/limitwatch/internal/domain"
)

const maxResponseBytes = 1 << 20

// do runs the request and returns status plus the bounded body. Transport
// failures, including deadline expiry mid-request, come back wrapped in
// ErrUnreachable; HTTP status handling is the caller's business.
func do(client *http.Client, req *http.Request) (int, []byte, error) {
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", domain.ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read response: %v", domain.ErrUnreachable, err)
	}

	return resp.StatusCode, body, nil
}

// statusError maps an HTTP status onto the domain error taxonomy. A nil
// return means the status is a success.
func statusError(status int, body []byte) error {
	switch {
	case status >= http.StatusOK && status < http.StatusMultipleChoices:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: status %d: %s", domain.ErrUnauthorized, status, trimBody(body))
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", domain.ErrRateLimited, status)
	default:
		return fmt.Errorf("provider returned status %d: %s", status, trimBody(body))
	}
}

func decodeJSON(body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrMalformedResponse, err)
	}

	return nil
}

func trimBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}

	return text
}
