package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	defaultRequestTimeout = 10 * time.Second
	maxErrorBodyBytes     = 512
)

// HTTPModerator calls a hosted moderation endpoint. The endpoint receives
// {"text": "..."} and answers {"safe": bool, "reason": "..."}.
type HTTPModerator struct {
	endpoint string
	apiKey   string
	client   *http.Client
	timeout  time.Duration
}

// NewHTTPModerator constructs an HTTPModerator. A non-positive timeout falls
// back to the default.
func NewHTTPModerator(endpoint, apiKey string, timeout time.Duration) *HTTPModerator {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &HTTPModerator{
		endpoint: strings.TrimSpace(endpoint),
		apiKey:   strings.TrimSpace(apiKey),
		client:   &http.Client{},
		timeout:  timeout,
	}
}

// Moderate posts the inspected prefix to the endpoint.
func (m *HTTPModerator) Moderate(ctx context.Context, text string) (Result, error) {
	if m == nil || m.endpoint == "" {
		return Result{}, errors.New("moderation: endpoint not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	body, errMarshal := json.Marshal(map[string]string{"text": inspectPrefix(text)})
	if errMarshal != nil {
		return Result{}, fmt.Errorf("moderation: encode request: %w", errMarshal)
	}

	reqCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	req, errReq := http.NewRequestWithContext(reqCtx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if errReq != nil {
		return Result{}, errReq
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, errResp := m.client.Do(req)
	if errResp != nil {
		return Result{}, errResp
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.Errorf("moderation: close response body error: %v", errClose)
		}
	}()

	payload, errRead := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if errRead != nil {
		return Result{}, errRead
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return Result{}, fmt.Errorf("moderation: status=%d body=%s", resp.StatusCode, summarizePayload(payload))
	}

	var result Result
	if errUnmarshal := json.Unmarshal(payload, &result); errUnmarshal != nil {
		return Result{}, fmt.Errorf("moderation: decode response: %w", errUnmarshal)
	}
	return result, nil
}

func summarizePayload(payload []byte) string {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return ""
	}
	if len(trimmed) > maxErrorBodyBytes {
		return string(trimmed[:maxErrorBodyBytes]) + "...(truncated)"
	}
	return string(trimmed)
}
