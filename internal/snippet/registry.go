package snippet

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultKey is the key of the option used when none has been chosen, or the
// chosen one is not recognised.
const DefaultKey = "shell~~curl"

// keySeparator separates the target and client in an option key.
const keySeparator = "~~"

// Option is a single snippet format: a client library on a target platform.
type Option struct {
	// Generate produces the snippet text
	Generate Generator

	// Target is the platform or language e.g. "shell", "node"
	Target string

	// TargetTitle is the display name of the target e.g. "Node.js"
	TargetTitle string

	// Client is the client library e.g. "curl", "axios"
	Client string

	// Title is the display name of the client e.g. "cURL"
	Title string

	// Description is a one sentence description of the client
	Description string

	// Link is a link to the client's documentation
	Link string
}

// Key returns the stable key identifying the option e.g. "shell~~curl".
func (o Option) Key() string {
	return o.Target + keySeparator + o.Client
}

// Name returns the human readable name of the option e.g. "Shell + cURL".
func (o Option) Name() string {
	return o.TargetTitle + " + " + o.Title
}

// Language returns the syntax highlighting language for snippets generated
// by this option: "javascript", "shell" or "text".
func (o Option) Language() string {
	switch o.Target {
	case "javascript", "node":
		return "javascript"
	case "shell":
		return "shell"
	default:
		return "text"
	}
}

// ParseKey splits an option key into its target and client.
func ParseKey(key string) (target, client string, ok bool) {
	target, client, ok = strings.Cut(key, keySeparator)
	if !ok || target == "" || client == "" {
		return "", "", false
	}

	return target, client, true
}

// Group is a set of options sharing a target, for presentation.
type Group struct {
	Target  string   // e.g. "shell"
	Title   string   // e.g. "Shell"
	Options []Option // Options for the target, in registration order
}

// Registry holds every available [Option] keyed by [Option.Key].
//
// A Registry is read only once built so it is safe for concurrent use.
type Registry struct {
	options map[string]Option // Option key to option, the source of truth
	order   []string          // Keys in registration order
}

// NewRegistry builds a [Registry] from options.
//
// It is an error for two options to share a key, for an option to have an
// empty target or client, or to have no generator.
func NewRegistry(options ...Option) (*Registry, error) {
	registry := &Registry{
		options: make(map[string]Option, len(options)),
		order:   make([]string, 0, len(options)),
	}

	for _, option := range options {
		if option.Target == "" || option.Client == "" {
			return nil, fmt.Errorf("option %q must have a target and a client", option.Key())
		}

		if strings.Contains(option.Target, keySeparator) || strings.Contains(option.Client, keySeparator) {
			return nil, fmt.Errorf("option %q: target and client cannot contain %q", option.Key(), keySeparator)
		}

		if option.Generate == nil {
			return nil, fmt.Errorf("option %q has no generator", option.Key())
		}

		key := option.Key()
		if _, exists := registry.options[key]; exists {
			return nil, fmt.Errorf("duplicate option %q", key)
		}

		registry.options[key] = option
		registry.order = append(registry.order, key)
	}

	if len(registry.order) == 0 {
		return nil, errors.New("a registry needs at least one option")
	}

	return registry, nil
}

// Builtin returns a [Registry] holding every built in option.
func Builtin() *Registry {
	registry, err := NewRegistry(builtinOptions()...)
	if err != nil {
		panic(fmt.Sprintf("invalid builtin snippet options: %v", err))
	}

	return registry
}

// Has reports whether an option with the given key is registered.
func (r *Registry) Has(key string) bool {
	_, ok := r.options[key]
	return ok
}

// Get returns the option registered under key, and whether it exists.
func (r *Registry) Get(key string) (Option, bool) {
	option, ok := r.options[key]
	return option, ok
}

// Lookup returns the option registered under key.
//
// Unknown keys fall back to [DefaultKey], or to the first registered option
// if the registry doesn't have the default.
func (r *Registry) Lookup(key string) Option {
	if option, ok := r.options[key]; ok {
		return option
	}

	if option, ok := r.options[DefaultKey]; ok {
		return option
	}

	return r.options[r.order[0]]
}

// Options returns every option in registration order.
func (r *Registry) Options() []Option {
	options := make([]Option, 0, len(r.order))
	for _, key := range r.order {
		options = append(options, r.options[key])
	}

	return options
}

// Groups returns the options grouped by target, groups are ordered by the first
// registration of their target.
func (r *Registry) Groups() []Group {
	var groups []Group

	index := make(map[string]int)

	for _, key := range r.order {
		option := r.options[key]

		i, ok := index[option.Target]
		if !ok {
			i = len(groups)
			index[option.Target] = i
			groups = append(groups, Group{Target: option.Target, Title: option.TargetTitle})
		}

		groups[i].Options = append(groups[i].Options, option)
	}

	return groups
}
