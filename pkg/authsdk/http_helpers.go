package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// rawResponse is a fully read HTTP response. Every exchange is small, so the
// body is buffered once and interpreted by the caller.
type rawResponse struct {
	status int
	body   []byte
}

func (r *rawResponse) ok() bool {
	return r.status >= 200 && r.status < 300
}

// url builds a complete URL by appending the path to the base URL.
func (c *SDKClient) url(path string) string {
	return c.BaseURL + path
}

// send performs one request. A nil payload sends no body. Failures that never
// produced an HTTP response come back as a KindNetworkUnreachable AuthError
// wrapping the transport error, which in turn wraps any context error. A body
// that breaks off after the status line is a malformed response.
func (c *SDKClient) send(ctx context.Context, method, path string, payload any) (*rawResponse, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, &AuthError{Kind: KindNetworkUnreachable, Message: msgUnreachable, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, malformed(msgInvalidResponse, resp.StatusCode, err)
	}

	return &rawResponse{status: resp.StatusCode, body: data}, nil
}

// decodeJSON decodes a successful response into target. An empty or
// undecodable body is a malformed response.
func decodeJSON(resp *rawResponse, target any) error {
	if isBlank(resp.body) {
		return malformed(msgEmptyResponse, resp.status, nil)
	}
	if err := json.Unmarshal(resp.body, target); err != nil {
		return malformed(msgInvalidResponse, resp.status, err)
	}
	return nil
}

// exchange sends payload and decodes a 2xx body into target. Non-2xx responses
// become KindRejected errors whose message is taken from the body, or fallback.
func (c *SDKClient) exchange(ctx context.Context, method, path string, payload, target any, fallback string) error {
	resp, err := c.send(ctx, method, path, payload)
	if err != nil {
		return err
	}
	if !resp.ok() {
		return rejection(resp, fallback)
	}
	if target == nil {
		return nil
	}
	return decodeJSON(resp, target)
}
