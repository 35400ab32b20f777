package util

import (
	"net/http"
	"net/url"
	"strings"
)

// NewProxyFunc builds the Transport proxy callback for outbound HTTP
// clients. Explicit proxy URLs win over environment variables; hosts
// listed in noProxy (comma separated) bypass the proxy entirely.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	byScheme := map[string]*url.URL{}
	if u, err := url.Parse(httpProxy); err == nil && httpProxy != "" {
		byScheme["http"] = u
	}
	if u, err := url.Parse(httpsProxy); err == nil && httpsProxy != "" {
		byScheme["https"] = u
	}

	skip := make(map[string]bool)
	for _, host := range strings.Split(noProxy, ",") {
		if host = strings.TrimSpace(host); host != "" {
			skip[host] = true
		}
	}

	return func(req *http.Request) (*url.URL, error) {
		if skip[req.URL.Hostname()] {
			return nil, nil
		}
		if u, ok := byScheme[req.URL.Scheme]; ok {
			return u, nil
		}
		if u, ok := byScheme["http"]; ok {
			return u, nil
		}
		return http.ProxyFromEnvironment(req)
	}
}
