package argument

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/gyaneshwarpardhi/cmdgraph/internal/config"
)

// Factory builds an Argument from its command-file definition. Composite
// factories use r to build their members.
type Factory func(r *Registry, def *config.ArgumentDef) (Argument, error)

// Registry maps command-file type names to factories.
// It is safe for concurrent reads; Register should only be called at startup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a Registry with every built-in kind registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("bool", func(_ *Registry, d *config.ArgumentDef) (Argument, error) { return NewBool(d.ID), nil })
	r.Register("word", func(_ *Registry, d *config.ArgumentDef) (Argument, error) { return NewWord(d.ID), nil })
	r.Register("string", func(_ *Registry, d *config.ArgumentDef) (Argument, error) { return NewString(d.ID), nil })
	r.Register("greedy", func(_ *Registry, d *config.ArgumentDef) (Argument, error) { return NewGreedy(d.ID), nil })
	r.Register("resource_location", func(_ *Registry, d *config.ArgumentDef) (Argument, error) {
		return NewResourceLocation(d.ID), nil
	})
	r.Register("literal", func(_ *Registry, d *config.ArgumentDef) (Argument, error) { return NewLiteral(d.ID), nil })
	r.Register("integer", buildInteger)
	r.Register("long", buildLong)
	r.Register("float", buildFloat)
	r.Register("double", buildDouble)
	r.Register("entity", func(_ *Registry, d *config.ArgumentDef) (Argument, error) {
		a := NewEntity(d.ID)
		if d.Single {
			a.Single()
		}
		if d.PlayersOnly {
			a.PlayersOnly()
		}
		return a, nil
	})
	r.Register("enum", func(_ *Registry, d *config.ArgumentDef) (Argument, error) {
		if len(d.Entries) == 0 {
			return nil, fmt.Errorf("enum %s: entries must not be empty", d.ID)
		}
		return NewEnum(d.ID, d.Entries...), nil
	})
	r.Register("group", func(r *Registry, d *config.ArgumentDef) (Argument, error) {
		members, err := r.BuildAll(d.Members)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", d.ID, err)
		}
		if len(members) == 0 {
			return nil, fmt.Errorf("group %s: members must not be empty", d.ID)
		}
		return NewGroup(d.ID, members...), nil
	})
	r.Register("loop", func(r *Registry, d *config.ArgumentDef) (Argument, error) {
		body, err := r.BuildAll(d.Body)
		if err != nil {
			return nil, fmt.Errorf("loop %s: %w", d.ID, err)
		}
		if len(body) == 0 {
			return nil, fmt.Errorf("loop %s: body must not be empty", d.ID)
		}
		return NewLoop(d.ID, body...), nil
	})
	return r
}

// Register adds a factory. Panics on duplicate type to surface misconfiguration early.
func (r *Registry) Register(typ string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[typ]; exists {
		panic(fmt.Sprintf("argument registry: duplicate type %q", typ))
	}
	r.factories[typ] = f
}

// Build creates the argument described by def, including its suggestion type
// and redirect.
func (r *Registry) Build(def *config.ArgumentDef) (Argument, error) {
	r.mu.RLock()
	f, ok := r.factories[def.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no argument type %q (argument %s)", def.Type, def.ID)
	}
	a, err := f(r, def)
	if err != nil {
		return nil, err
	}
	if s, ok := a.(interface {
		SuggestWith(string)
		SetRedirect(*Redirect)
	}); ok {
		s.SuggestWith(suggestionID(def.Suggestions))
		s.SetRedirect(ParseRedirect(def.Redirect))
	}
	return a, nil
}

// suggestionID qualifies bare names such as "ask_server" with the minecraft namespace.
func suggestionID(s string) string {
	if s == "" || strings.Contains(s, ":") {
		return s
	}
	return "minecraft:" + s
}

// BuildAll builds defs in order.
func (r *Registry) BuildAll(defs []config.ArgumentDef) ([]Argument, error) {
	out := make([]Argument, 0, len(defs))
	for i := range defs {
		a, err := r.Build(&defs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Types returns all registered type names, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func buildInteger(_ *Registry, d *config.ArgumentDef) (Argument, error) {
	a := NewInteger(d.ID)
	if d.Min != nil {
		if *d.Min < math.MinInt32 || *d.Min > math.MaxInt32 {
			return nil, fmt.Errorf("integer %s: min %v out of range", d.ID, *d.Min)
		}
		a.Min(int32(*d.Min))
	}
	if d.Max != nil {
		if *d.Max < math.MinInt32 || *d.Max > math.MaxInt32 {
			return nil, fmt.Errorf("integer %s: max %v out of range", d.ID, *d.Max)
		}
		a.Max(int32(*d.Max))
	}
	return a, nil
}

func buildLong(_ *Registry, d *config.ArgumentDef) (Argument, error) {
	a := NewLong(d.ID)
	if d.Min != nil {
		a.Min(int64(*d.Min))
	}
	if d.Max != nil {
		a.Max(int64(*d.Max))
	}
	return a, nil
}

func buildFloat(_ *Registry, d *config.ArgumentDef) (Argument, error) {
	a := NewFloat(d.ID)
	if d.Min != nil {
		a.Min(float32(*d.Min))
	}
	if d.Max != nil {
		a.Max(float32(*d.Max))
	}
	return a, nil
}

func buildDouble(_ *Registry, d *config.ArgumentDef) (Argument, error) {
	a := NewDouble(d.ID)
	if d.Min != nil {
		a.Min(*d.Min)
	}
	if d.Max != nil {
		a.Max(*d.Max)
	}
	return a, nil
}
