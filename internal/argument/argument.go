// Package argument declares the typed input slots a command grammar is built
// from. Parsing live input is not done here; an Argument only describes how it
// appears on the wire and how it expands into graph structure.
package argument

import "strings"

// Suggestion types understood by the client.
const (
	SuggestAskServer          = "minecraft:ask_server"
	SuggestAllRecipes         = "minecraft:all_recipes"
	SuggestAvailableSounds    = "minecraft:available_sounds"
	SuggestSummonableEntities = "minecraft:summonable_entities"
)

// Argument is one declared slot of a command.
type Argument interface {
	// ID is the declared identifier; argument nodes are named after it.
	ID() string
	// Parser is the client parser identifier, e.g. "brigadier:integer".
	Parser() string
	// Properties is the parser-specific blob written after the parser id.
	Properties() []byte
	// SuggestionType is empty when the argument has no suggestion provider.
	SuggestionType() string
	// Redirect is nil when the argument does not redirect.
	Redirect() *Redirect
}

// Redirect names a redirect target by the literal/argument names leading to it
// from the root. An empty path targets the root itself.
type Redirect struct {
	Path []string
}

// To builds a redirect to the node reached by names.
func To(names ...string) *Redirect {
	return &Redirect{Path: append([]string(nil), names...)}
}

// ParseRedirect reads the slash-separated form used in command files:
// "" is no redirect, "/" is the root, "execute/as" is [execute as].
func ParseRedirect(s string) *Redirect {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var path []string
	for _, seg := range strings.Split(strings.Trim(s, "/"), "/") {
		if seg = strings.TrimSpace(seg); seg != "" {
			path = append(path, seg)
		}
	}
	return &Redirect{Path: path}
}

func (r *Redirect) String() string {
	return "/" + strings.Join(r.Path, "/")
}

// Base carries the fields every kind shares. Embed it.
type Base struct {
	id          string
	suggestions string
	redirect    *Redirect
}

func (b *Base) ID() string              { return b.id }
func (b *Base) SuggestionType() string  { return b.suggestions }
func (b *Base) Redirect() *Redirect     { return b.redirect }
func (b *Base) Properties() []byte      { return nil }
func (b *Base) Parser() string          { return "" }

// RedirectTo makes the argument redirect to the node reached by names.
func (b *Base) RedirectTo(names ...string) { b.redirect = To(names...) }

// SetRedirect sets or clears (nil) the redirect.
func (b *Base) SetRedirect(r *Redirect) { b.redirect = r }

// SuggestWith sets the suggestion type identifier.
func (b *Base) SuggestWith(suggestionType string) { b.suggestions = suggestionType }
