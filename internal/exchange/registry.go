package exchange

import (
	"fmt"
	"sort"

	"exgate/internal/core"
)

// Registry maps exchange names to adapters. It is filled once at startup and
// only read afterwards, so lookups take no lock.
type Registry struct {
	adapters map[string]Exchange
}

func NewRegistry(adapters ...Exchange) (*Registry, error) {
	r := &Registry{adapters: make(map[string]Exchange, len(adapters))}
	for _, ex := range adapters {
		if ex == nil {
			return nil, fmt.Errorf("nil exchange adapter")
		}
		name := ex.Name()
		if name == "" {
			return nil, fmt.Errorf("exchange adapter name required")
		}
		if _, dup := r.adapters[name]; dup {
			return nil, fmt.Errorf("exchange %q registered twice", name)
		}
		r.adapters[name] = ex
	}
	return r, nil
}

// Lookup matches the name exactly; an unknown name is a validation failure.
func (r *Registry) Lookup(name string) (Exchange, error) {
	if r != nil {
		if ex, ok := r.adapters[name]; ok {
			return ex, nil
		}
	}
	return nil, core.Validation("param exchange_name is wrong")
}

func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
