package argument

// Literal is a fixed keyword declared in argument position. It becomes a
// literal node named after its id.
type Literal struct{ Base }

func NewLiteral(id string) *Literal { return &Literal{Base{id: id}} }

// Enum accepts exactly one of a fixed list of keywords. It expands into one
// literal node per entry.
type Enum struct {
	Base
	entries []string
}

func NewEnum(id string, entries ...string) *Enum {
	return &Enum{Base: Base{id: id}, entries: append([]string(nil), entries...)}
}

func (a *Enum) Entries() []string { return a.entries }

// Group is a fixed sequence of arguments parsed one after another. A redirect
// declared on the group applies to the last node of the sequence only.
type Group struct {
	Base
	members []Argument
}

func NewGroup(id string, members ...Argument) *Group {
	return &Group{Base: Base{id: id}, members: append([]Argument(nil), members...)}
}

func (a *Group) Members() []Argument { return a.members }

// Loop repeats its body indefinitely: every node of the body redirects back to
// the node the loop is anchored on.
type Loop struct {
	Base
	body []Argument
}

func NewLoop(id string, body ...Argument) *Loop {
	return &Loop{Base: Base{id: id}, body: append([]Argument(nil), body...)}
}

func (a *Loop) Body() []Argument { return a.body }
