package slogx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/labauth/pkg/idx"
)

// Transport is an http.RoundTripper that stamps every outbound request with an
// X-Request-ID and logs its outcome at debug level.
type Transport struct {
	// Base is the underlying transport; http.DefaultTransport when nil.
	Base http.RoundTripper

	// Logger receives the request records; the context logger when nil.
	Logger *slog.Logger
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	logger := t.Logger
	if logger == nil {
		logger = FromContext(req.Context())
	}

	// RoundTrippers must not mutate the caller's request
	if req.Header.Get(HeaderRequestID) == "" {
		req = req.Clone(req.Context())
		req.Header.Set(HeaderRequestID, idx.New().String())
	}

	start := time.Now()
	resp, err := base.RoundTrip(req)

	attrs := []any{
		"req_id", req.Header.Get(HeaderRequestID),
		"method", req.Method,
		"path", req.URL.Path,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if err != nil {
		logger.Debug("http_client_request", append(attrs, "err", err)...)
		return nil, err
	}

	logger.Debug("http_client_request", append(attrs, "status", resp.StatusCode)...)
	return resp, nil
}
