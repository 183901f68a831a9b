package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)"

type Connection interface {
	Request(ctx context.Context, endpoint *url.URL) (*http.Response, error)
}

type ClientHost struct {
	client *http.Client
	scheme string
	host   string
}

type Client struct {
	Connection Connection
	ApiKey     string
}

func (conn *ClientHost) Request(ctx context.Context, endpoint *url.URL) (*http.Response, error) {
	endpoint.Scheme = conn.scheme
	endpoint.Host = conn.host

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("error building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	return conn.client.Do(req)
}

// ClientFactory builds a client for baseURL, which carries the scheme and host (eg https://www.alphavantage.co)
func ClientFactory(baseURL string, apiKey string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("error parsing base url %s: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %s needs a scheme and a host", baseURL)
	}

	clientHost := &ClientHost{
		client: &http.Client{Timeout: timeout},
		scheme: u.Scheme,
		host:   u.Host,
	}

	return &Client{
		Connection: clientHost,
		ApiKey:     apiKey,
	}, nil
}
