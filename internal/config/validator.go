package config

import (
	"fmt"
	"strings"

	"github.com/gyaneshwarpardhi/cmdgraph/internal/requirement"
)

// Validate checks the command set for:
//   - Required fields
//   - Duplicate command names and aliases under the root
//   - Duplicate literal names among siblings (redirect paths could not tell them apart)
//   - Node definitions setting both or neither of literal/argument
//   - Composite arguments without entries, members or body
//   - Requirement expressions that do not parse
func Validate(cfg *CommandSet) error {
	if cfg.Version == "" {
		return fmt.Errorf("config: version is required")
	}
	var errs []string
	names := make(map[string]string) // root-level name → location

	for i, c := range cfg.Commands {
		if c.Name == "" {
			errs = append(errs, fmt.Sprintf("commands[%d]: name is required", i))
			continue
		}
		loc := fmt.Sprintf("command %s", c.Name)
		if strings.ContainsAny(c.Name, " /") {
			errs = append(errs, fmt.Sprintf("%s: name must not contain spaces or slashes", loc))
		}
		if prev, ok := names[c.Name]; ok {
			errs = append(errs, fmt.Sprintf("duplicate name %q (first seen at %s, again at %s)", c.Name, prev, loc))
		} else {
			names[c.Name] = loc
		}
		for _, a := range c.Aliases {
			aloc := fmt.Sprintf("alias %s of %s", a, c.Name)
			if a == "" {
				errs = append(errs, fmt.Sprintf("%s: empty alias", loc))
				continue
			}
			if prev, ok := names[a]; ok {
				errs = append(errs, fmt.Sprintf("duplicate name %q (first seen at %s, again at %s)", a, prev, aloc))
			} else {
				names[a] = aloc
			}
		}
		validateRequirement(c.Requires, loc, &errs)
		validateNodeDefs(c.Children, loc, &errs)
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateNodeDefs(defs []NodeDef, parent string, errs *[]string) {
	siblings := make(map[string]bool)
	for j, d := range defs {
		switch {
		case d.Literal != "" && d.Argument != nil:
			*errs = append(*errs, fmt.Sprintf("%s.children[%d]: only one of literal/argument may be set", parent, j))
		case d.Literal == "" && d.Argument == nil:
			*errs = append(*errs, fmt.Sprintf("%s.children[%d]: one of literal/argument must be set", parent, j))
		case d.Literal != "":
			loc := fmt.Sprintf("%s literal %s", parent, d.Literal)
			if siblings[d.Literal] {
				*errs = append(*errs, fmt.Sprintf("%s: duplicate sibling name", loc))
			}
			siblings[d.Literal] = true
			validateRequirement(d.Requires, loc, errs)
			validateNodeDefs(d.Children, loc, errs)
		case d.Argument != nil:
			a := d.Argument
			if a.ID == "" {
				*errs = append(*errs, fmt.Sprintf("%s.children[%d].argument: id is required", parent, j))
				continue
			}
			loc := fmt.Sprintf("%s argument %s", parent, a.ID)
			if siblings[a.ID] {
				*errs = append(*errs, fmt.Sprintf("%s: duplicate sibling name", loc))
			}
			siblings[a.ID] = true
			if d.Redirect != "" {
				*errs = append(*errs, fmt.Sprintf("%s: set redirect on the argument, not the node", loc))
			}
			validateRequirement(d.Requires, loc, errs)
			validateArgumentDef(a, loc, errs)
			validateNodeDefs(d.Children, loc, errs)
		}
	}
}

func validateArgumentDef(a *ArgumentDef, loc string, errs *[]string) {
	if a.Type == "" {
		*errs = append(*errs, fmt.Sprintf("%s: type is required", loc))
		return
	}
	if a.Min != nil && a.Max != nil && *a.Min > *a.Max {
		*errs = append(*errs, fmt.Sprintf("%s: min %v greater than max %v", loc, *a.Min, *a.Max))
	}
	switch a.Type {
	case "enum":
		if len(a.Entries) == 0 {
			*errs = append(*errs, fmt.Sprintf("%s: enum entries must not be empty", loc))
		}
	case "group", "loop":
		sub := a.Members
		if a.Type == "loop" {
			sub = a.Body
		}
		if len(sub) == 0 {
			*errs = append(*errs, fmt.Sprintf("%s: %s must declare at least one argument", loc, a.Type))
		}
		for i := range sub {
			m := &sub[i]
			if m.ID == "" {
				*errs = append(*errs, fmt.Sprintf("%s[%d]: id is required", loc, i))
				continue
			}
			validateArgumentDef(m, fmt.Sprintf("%s.%s", loc, m.ID), errs)
		}
	}
}

func validateRequirement(src, loc string, errs *[]string) {
	if src == "" {
		return
	}
	if _, err := requirement.Parse(src); err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: requires: %v", loc, err))
	}
}
