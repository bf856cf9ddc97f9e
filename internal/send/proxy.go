package send

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.followtheprocess.codes/snip/internal/model"
)

// ErrUnresolvedProxyReference is returned when the proxy config refers to a rule
// parameter, those must be dereferenced before a request can be sent.
var ErrUnresolvedProxyReference = errors.New("proxy config refers to an unresolved rule parameter")

// resolvedProxy is the single proxy a request goes through, a nil setting
// means the request is sent directly.
type resolvedProxy struct {
	setting *model.ProxySetting
	err     error
}

// resolveProxy picks the proxy to use for config.
//
// A list uses its first concrete setting. References can't be followed here so
// a list made up only of references fails like a lone reference does.
func resolveProxy(config model.ClientProxyConfig) (resolvedProxy, error) {
	resolved := model.MatchProxy(config, model.ProxyCases[resolvedProxy]{
		None: func() resolvedProxy {
			return resolvedProxy{}
		},
		Direct: func(setting model.ProxySetting) resolvedProxy {
			return resolvedProxy{setting: &setting}
		},
		Reference: func(ref model.ParamReference) resolvedProxy {
			return resolvedProxy{err: fmt.Errorf("%w: %q", ErrUnresolvedProxyReference, ref.Name)}
		},
		List: func(list model.ProxyList) resolvedProxy {
			var skipped []string

			for _, entry := range list {
				switch entry := entry.(type) {
				case model.ProxySetting:
					return resolvedProxy{setting: &entry}
				case model.ParamReference:
					skipped = append(skipped, entry.Name)
				}
			}

			if len(skipped) != 0 {
				return resolvedProxy{err: fmt.Errorf("%w: %q", ErrUnresolvedProxyReference, skipped)}
			}

			return resolvedProxy{}
		},
	})

	return resolved, resolved.err
}

// transportFunc returns the function for [http.Transport.Proxy].
func (p resolvedProxy) transportFunc() (func(*http.Request) (*url.URL, error), error) {
	if p.setting == nil {
		return nil, nil //nolint:nilnil // nil Proxy is how the transport sends directly
	}

	proxyURL, err := url.Parse(p.setting.ProxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL %q: %w", p.setting.ProxyURL, err)
	}

	if proxyURL.Scheme == "" || proxyURL.Host == "" {
		return nil, fmt.Errorf("invalid proxy URL %q: must be absolute", p.setting.ProxyURL)
	}

	noProxy := p.setting.NoProxy

	return func(req *http.Request) (*url.URL, error) {
		if bypass(req.URL.Hostname(), noProxy) {
			return nil, nil
		}

		return proxyURL, nil
	}, nil
}

// bypass reports whether host matches any of the patterns in noProxy.
//
// "*" matches everything, a leading "." or "*." matches the domain and all its
// subdomains, anything else must match exactly.
func bypass(host string, noProxy []string) bool {
	host = strings.ToLower(host)

	for _, pattern := range noProxy {
		pattern = strings.ToLower(strings.TrimSpace(pattern))

		switch {
		case pattern == "":
			continue
		case pattern == "*":
			return true
		case strings.HasPrefix(pattern, "*."), strings.HasPrefix(pattern, "."):
			domain := strings.TrimPrefix(strings.TrimPrefix(pattern, "*"), ".")
			if host == domain || strings.HasSuffix(host, "."+domain) {
				return true
			}
		case host == pattern:
			return true
		}
	}

	return false
}
