package llm

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/itsmostafa/paperalchemy/internal/config"
)

// NewTransport returns a transport configured from network. Only the
// returned transport is affected; process-wide defaults are left alone.
func NewTransport(network config.NetworkConfig) (*http.Transport, error) {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		base = &http.Transport{}
	}
	t := base.Clone()
	t.Proxy = nil

	if network.ProxyURL != "" {
		u, err := url.Parse(network.ProxyURL)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy url %q", network.ProxyURL)
		}
		t.Proxy = http.ProxyURL(u)
	}
	if network.InsecureSkipVerify {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // explicit opt-in for intercepting proxies
	}
	return t, nil
}

// NewHTTPClient returns a client using NewTransport and timeout.
func NewHTTPClient(network config.NetworkConfig, timeout time.Duration) (*http.Client, error) {
	t, err := NewTransport(network)
	if err != nil {
		return nil, err
	}
	return &http.Client{Transport: t, Timeout: timeout}, nil
}

// customized reports whether network differs from a direct connection.
func customized(network config.NetworkConfig) bool {
	return network.ProxyURL != "" || network.InsecureSkipVerify
}
