package props

import (
	"sort"
	"strings"
)

// Properties is a flat, string-keyed property map, the shape Maven-style
// tooling uses to pass configuration around (-Dkey=value). Later writes to
// the same key win.
type Properties struct {
	m map[string]string
}

func New() *Properties {
	return &Properties{m: make(map[string]string)}
}

// FromMap copies m into a fresh Properties.
func FromMap(m map[string]string) *Properties {
	p := New()
	for k, v := range m {
		p.m[k] = v
	}
	return p
}

func (p *Properties) Set(key, value string) {
	if p.m == nil {
		p.m = make(map[string]string)
	}
	p.m[key] = value
}

// Get returns the value for key, or "" when absent. Use Lookup when the
// caller must distinguish "absent" from "set to empty".
func (p *Properties) Get(key string) string {
	return p.m[key]
}

func (p *Properties) Lookup(key string) (string, bool) {
	v, ok := p.m[key]
	return v, ok
}

// GetDefault returns the value for key, or def when the key is absent. An
// empty value that was explicitly set is returned as-is.
func (p *Properties) GetDefault(key, def string) string {
	if v, ok := p.m[key]; ok {
		return v
	}
	return def
}

func (p *Properties) Len() int {
	return len(p.m)
}

// Keys returns all property names, sorted.
func (p *Properties) Keys() []string {
	out := make([]string, 0, len(p.m))
	for k := range p.m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ByPrefix collects every property whose name starts with prefix, keyed by
// the remainder after stripping it. A property named exactly prefix yields
// the empty-string remainder, which is a real entry to callers.
func (p *Properties) ByPrefix(prefix string) map[string]string {
	out := make(map[string]string)
	for k, v := range p.m {
		if strings.HasPrefix(k, prefix) {
			out[k[len(prefix):]] = v
		}
	}
	return out
}
