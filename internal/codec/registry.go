package codec

import (
	"sort"
	"strings"
	"sync"
)

// Backend names wired by default.
const (
	BackendScramjet = "sc"
	BackendUltra    = "uv"
)

// Registry holds the codecs of every configured backend, keyed by name.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Codec
}

func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Codec)}
}

// NewDefaultRegistry registers the two stock rewrite backends.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(BackendScramjet, &xorCodec{prefix: "/v1/data/", key: 7})
	r.Register(BackendUltra, &xorCodec{prefix: "/pre/", key: 7})
	return r
}

// Register adds or replaces the codec for name.
func (r *Registry) Register(name string, c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[name] = c
}

func (r *Registry) Get(name string) (Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[name]
	return c, ok
}

// Names returns registered backend names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.codecs))
	for name := range r.codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Encode returns the routed address for destination under the named backend.
// Unknown backends and empty destinations yield "".
func (r *Registry) Encode(name, destination string) string {
	if destination == "" {
		return ""
	}
	c, ok := r.Get(name)
	if !ok {
		return ""
	}
	return c.Prefix() + c.Encode(destination)
}

// Decode strips the longest matching registered prefix and decodes the rest.
// Input that matches no prefix is returned unchanged.
func (r *Registry) Decode(pathOrToken string) string {
	if pathOrToken == "" {
		return ""
	}
	c, ok := r.match(pathOrToken)
	if !ok {
		return pathOrToken
	}
	return c.Decode(strings.TrimPrefix(pathOrToken, c.Prefix()))
}

// Routed reports whether address carries any registered prefix.
func (r *Registry) Routed(address string) bool {
	_, ok := r.match(address)
	return ok
}

func (r *Registry) match(address string) (Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best Codec
	for _, c := range r.codecs {
		p := c.Prefix()
		if p == "" || !strings.HasPrefix(address, p) {
			continue
		}
		if best == nil || len(p) > len(best.Prefix()) {
			best = c
		}
	}
	return best, best != nil
}
