package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrNonOKStatus is returned when the report endpoint answers with anything
// other than 200.
var ErrNonOKStatus = errors.New("report endpoint returned non-200 status")

// Sender transmits a single report attempt.
type Sender interface {
	Send(ctx context.Context, p Payload) error
}

// HTTPSender POSTs reports as JSON. Timeouts come from the caller's context.
type HTTPSender struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// NewHTTPSender creates a sender for url. headers are added to every request.
func NewHTTPSender(url string, headers map[string]string, client *http.Client) (*HTTPSender, error) {
	if url == "" {
		return nil, fmt.Errorf("report url is empty")
	}
	if client == nil {
		client = &http.Client{}
	}
	hdr := make(map[string]string, len(headers))
	for k, v := range headers {
		hdr[k] = v
	}
	return &HTTPSender{url: url, headers: hdr, client: client}, nil
}

// URL returns the destination endpoint.
func (s *HTTPSender) URL() string { return s.url }

// Send performs one POST. Only 200 counts as success.
func (s *HTTPSender) Send(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post report: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d body=%q", ErrNonOKStatus, resp.StatusCode, truncateBody(respBody))
	}
	return nil
}

func truncateBody(b []byte) string {
	const limit = 200
	if len(b) <= limit {
		return string(b)
	}
	return string(b[:limit]) + "..."
}
