package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ParamReferenceKey is the JSON key identifying a [ParamReference].
const ParamReferenceKey = "__rule_param_reference__"

// ClientProxyConfig describes how a request should reach its target.
//
// It is a closed set of exactly four shapes: [NoProxy], [ProxySetting], [ParamReference]
// and [ProxyList]. Use [MatchProxy] to handle each of them.
type ClientProxyConfig interface {
	isClientProxyConfig()
}

// ProxyEntry is an element of a [ProxyList], either a [ProxySetting] or a [ParamReference].
type ProxyEntry interface {
	ClientProxyConfig
	isProxyEntry()
}

// NoProxy means the request is sent directly, there's no user or system proxy.
type NoProxy struct{}

// ProxySetting is a concrete proxy, typically the user's or the system's.
type ProxySetting struct {
	// ProxyURL is the proxy to use e.g. "http://localhost:8080"
	ProxyURL string `json:"proxyUrl" toml:"url" yaml:"url"`

	// NoProxy lists hosts that bypass the proxy
	NoProxy []string `json:"noProxy,omitempty" toml:"no_proxy,omitempty" yaml:"noProxy,omitempty"`

	// TrustedCAs are additionally trusted when connecting to the proxy
	TrustedCAs []CACert `json:"trustedCAs,omitempty" toml:"trusted_cas,omitempty" yaml:"trustedCAs,omitempty"`
}

// ParamReference refers to a proxy held in a named rule parameter that must be
// dereferenced before use.
type ParamReference struct {
	Name string // Name of the rule parameter
}

// ProxyList is an ordered combination of proxy settings and references, earlier
// entries take precedence.
type ProxyList []ProxyEntry

func (NoProxy) isClientProxyConfig()        {}
func (ProxySetting) isClientProxyConfig()   {}
func (ParamReference) isClientProxyConfig() {}
func (ProxyList) isClientProxyConfig()      {}

func (ProxySetting) isProxyEntry()   {}
func (ParamReference) isProxyEntry() {}

// ProxyCases holds one handler for every shape of [ClientProxyConfig].
type ProxyCases[T any] struct {
	None      func() T
	Direct    func(setting ProxySetting) T
	Reference func(ref ParamReference) T
	List      func(list ProxyList) T
}

// MatchProxy calls the handler in cases matching the shape of config and returns its result.
//
// A nil config is [NoProxy]. Every handler in cases must be non-nil.
func MatchProxy[T any](config ClientProxyConfig, cases ProxyCases[T]) T {
	switch config := config.(type) {
	case nil:
		return cases.None()
	case NoProxy:
		return cases.None()
	case ProxySetting:
		return cases.Direct(config)
	case ParamReference:
		return cases.Reference(config)
	case ProxyList:
		return cases.List(config)
	default:
		// The interface is sealed, only the types above implement it
		panic(fmt.Sprintf("unreachable: unexpected ClientProxyConfig %T", config))
	}
}

// MarshalJSON implements [json.Marshaler] for [NoProxy].
func (NoProxy) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// MarshalJSON implements [json.Marshaler] for [ParamReference].
func (r ParamReference) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{ParamReferenceKey: r.Name})
}

// UnmarshalProxyConfig decodes the JSON form of a [ClientProxyConfig]: null (or empty
// input) for [NoProxy], an object for a [ProxySetting] or [ParamReference], or an array
// of those for a [ProxyList].
func UnmarshalProxyConfig(data []byte) (ClientProxyConfig, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return NoProxy{}, nil
	}

	if data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("invalid proxy list: %w", err)
		}

		list := make(ProxyList, 0, len(raw))

		for i, element := range raw {
			entry, err := unmarshalProxyEntry(element)
			if err != nil {
				return nil, fmt.Errorf("proxy list entry %d: %w", i, err)
			}

			list = append(list, entry)
		}

		return list, nil
	}

	return unmarshalProxyEntry(data)
}

// unmarshalProxyEntry decodes a single object in a proxy config.
func unmarshalProxyEntry(data []byte) (ProxyEntry, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("proxy config must be an object: %w", err)
	}

	if raw, ok := fields[ParamReferenceKey]; ok {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return nil, fmt.Errorf("invalid rule parameter reference: %w", err)
		}

		return ParamReference{Name: name}, nil
	}

	var setting ProxySetting
	if err := json.Unmarshal(data, &setting); err != nil {
		return nil, fmt.Errorf("invalid proxy setting: %w", err)
	}

	if setting.ProxyURL == "" {
		return nil, errors.New("proxy setting has no proxyUrl")
	}

	return setting, nil
}
