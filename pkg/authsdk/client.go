package authsdk

import (
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/aussiebroadwan/labauth/pkg/slogx"
)

// DefaultTimeout bounds every request made by a client built with NewSDKClient.
const DefaultTimeout = 10 * time.Second

// SDKClient talks to the laboratory authentication authority. The session
// credential lives in the HTTPClient's cookie jar, so one SDKClient represents
// one signed-in user.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// Logger receives orchestration decisions (fallbacks, outcomes).
	// slog.Default() is used when nil.
	Logger *slog.Logger
}

// NewSDKClient creates a client with a cookie jar for the ambient session and
// a transport that tags requests with an X-Request-ID.
func NewSDKClient(baseURL string) *SDKClient {
	// cookiejar.New only fails when given a non-nil PublicSuffixList
	jar, _ := cookiejar.New(nil)

	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout:   DefaultTimeout,
			Jar:       jar,
			Transport: &slogx.Transport{},
		},
	}
}

func (c *SDKClient) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *SDKClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
