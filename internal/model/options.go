package model

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// RequestOptions are transport level settings applied when sending a request.
type RequestOptions struct {
	// ProxyConfig decides how the request reaches its target, nil means direct
	ProxyConfig ClientProxyConfig `json:"-"`

	// ClientCertificate is presented to servers requesting one
	ClientCertificate *ClientCertificate `json:"clientCertificate,omitempty"`

	// IgnoreHostHTTPSErrors lists hosts whose TLS errors are ignored
	IgnoreHostHTTPSErrors HTTPSErrorPolicy `json:"ignoreHostHttpsErrors,omitzero"`

	// TrustAdditionalCAs are trusted on top of the system roots
	TrustAdditionalCAs []CACert `json:"trustAdditionalCAs,omitempty"`

	// LookupOptions overrides DNS resolution
	LookupOptions LookupOptions `json:"lookupOptions,omitzero"`
}

// CACert is a PEM encoded CA certificate.
type CACert struct {
	Cert string `json:"cert" toml:"cert" yaml:"cert"`
}

// ClientCertificate is a PKCS#12 (.pfx) client certificate.
type ClientCertificate struct {
	Passphrase string `json:"passphrase,omitempty"`
	PFX        []byte `json:"pfx"`
}

// LookupOptions controls DNS resolution.
type LookupOptions struct {
	// Servers are DNS servers to use instead of the system resolver,
	// tried in order
	Servers []string `json:"servers,omitempty"`
}

// HTTPSErrorPolicy says which hosts' TLS errors are ignored: either all of them
// or just those listed.
//
// In JSON it's either a boolean or a list of hostnames.
type HTTPSErrorPolicy struct {
	Hosts []string // Hostnames whose errors are ignored
	All   bool     // Ignore errors for every host
}

// Ignores reports whether TLS errors for host should be ignored.
func (p HTTPSErrorPolicy) Ignores(host string) bool {
	if p.All {
		return true
	}

	return slices.ContainsFunc(p.Hosts, func(h string) bool {
		return strings.EqualFold(h, host)
	})
}

// IsZero reports whether the policy ignores nothing.
func (p HTTPSErrorPolicy) IsZero() bool {
	return !p.All && len(p.Hosts) == 0
}

// MarshalJSON implements [json.Marshaler] for [HTTPSErrorPolicy].
func (p HTTPSErrorPolicy) MarshalJSON() ([]byte, error) {
	if p.All {
		return []byte("true"), nil
	}

	if p.Hosts == nil {
		return []byte("false"), nil
	}

	return json.Marshal(p.Hosts)
}

// UnmarshalJSON implements [json.Unmarshaler] for [HTTPSErrorPolicy].
func (p *HTTPSErrorPolicy) UnmarshalJSON(data []byte) error {
	var all bool
	if err := json.Unmarshal(data, &all); err == nil {
		*p = HTTPSErrorPolicy{All: all}
		return nil
	}

	var hosts []string
	if err := json.Unmarshal(data, &hosts); err != nil {
		return fmt.Errorf("ignoreHostHttpsErrors must be a boolean or a list of hosts: %w", err)
	}

	*p = HTTPSErrorPolicy{Hosts: hosts}

	return nil
}

// requestOptionsJSON is the JSON shape of [RequestOptions].
type requestOptionsJSON struct {
	ProxyConfig json.RawMessage `json:"proxyConfig,omitempty"`
	options
}

// options avoids infinite recursion through RequestOptions' own marshal methods.
type options RequestOptions

// MarshalJSON implements [json.Marshaler] for [RequestOptions].
func (o RequestOptions) MarshalJSON() ([]byte, error) {
	out := requestOptionsJSON{options: options(o)}

	if _, none := o.ProxyConfig.(NoProxy); o.ProxyConfig != nil && !none {
		proxy, err := json.Marshal(o.ProxyConfig)
		if err != nil {
			return nil, fmt.Errorf("could not encode proxy config: %w", err)
		}

		out.ProxyConfig = proxy
	}

	return json.Marshal(out)
}

// UnmarshalJSON implements [json.Unmarshaler] for [RequestOptions].
func (o *RequestOptions) UnmarshalJSON(data []byte) error {
	var in requestOptionsJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	proxy, err := UnmarshalProxyConfig(in.ProxyConfig)
	if err != nil {
		return err
	}

	*o = RequestOptions(in.options)
	o.ProxyConfig = proxy

	return nil
}
