package util

import (
	"fmt"
	"net/http"
	"net/url"
)

// ProxyFunc is the signature http.Transport expects for proxy selection
type ProxyFunc func(*http.Request) (*url.URL, error)

// NewProxyFunc creates a proxy function for the upstream transport.
// With no explicit proxies it falls back to HTTP_PROXY/HTTPS_PROXY/NO_PROXY.
func NewProxyFunc(httpProxy, httpsProxy string) (ProxyFunc, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment, nil
	}

	var plain, secure *url.URL
	if httpProxy != "" {
		u, err := url.Parse(httpProxy)
		if err != nil {
			return nil, fmt.Errorf("parse http proxy: %w", err)
		}
		plain = u
	}
	if httpsProxy != "" {
		u, err := url.Parse(httpsProxy)
		if err != nil {
			return nil, fmt.Errorf("parse https proxy: %w", err)
		}
		secure = u
	}

	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" && secure != nil {
			return secure, nil
		}
		if plain != nil {
			return plain, nil
		}
		return http.ProxyFromEnvironment(req)
	}, nil
}
