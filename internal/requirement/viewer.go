package requirement

// Viewer describes who a command graph is being built for.
type Viewer struct {
	Name        string            `json:"name,omitempty"`
	OpLevel     int               `json:"op_level"`
	GameMode    string            `json:"gamemode,omitempty"`
	World       string            `json:"world,omitempty"`
	Permissions []string          `json:"permissions,omitempty"`
	Attrs       map[string]string `json:"attrs,omitempty"`
}

// Resolve implements Subject. Attrs are reached as attrs.<key>.
func (v *Viewer) Resolve(path []string) (any, bool) {
	if len(path) == 2 && path[0] == "attrs" {
		s, ok := v.Attrs[path[1]]
		return s, ok
	}
	if len(path) != 1 {
		return nil, false
	}
	switch path[0] {
	case "name":
		return v.Name, true
	case "op_level":
		return v.OpLevel, true
	case "gamemode":
		return v.GameMode, true
	case "world":
		return v.World, true
	case "permissions":
		return v.Permissions, true
	}
	return nil, false
}

// Allows reports whether e admits v. A nil Expr admits everyone; an expression
// that cannot be evaluated for v does not admit it.
func Allows(e Expr, v *Viewer) bool {
	if e == nil {
		return true
	}
	ok, err := e.Eval(v)
	return err == nil && ok
}
