package rostersdk

import (
	"net/http"
	"strings"
	"time"
)

// Client talks to one roster service instance. It is safe for concurrent
// use.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			// Large workbooks take a while to reconcile.
			Timeout: 2 * time.Minute,
		},
	}
}
