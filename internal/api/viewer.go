package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/gyaneshwarpardhi/cmdgraph/internal/requirement"
)

// viewerFromQuery reads a viewer from query parameters:
//
//	?name=steve&op_level=2&gamemode=creative&world=lobby&permission=a&permission=b&attr.team=red
//
// ok is false when no viewer parameter is present.
func viewerFromQuery(q url.Values) (v *requirement.Viewer, ok bool, err error) {
	v = &requirement.Viewer{
		Name:        q.Get("name"),
		GameMode:    q.Get("gamemode"),
		World:       q.Get("world"),
		Permissions: q["permission"],
	}
	ok = v.Name != "" || v.GameMode != "" || v.World != "" || len(v.Permissions) > 0
	if s := q.Get("op_level"); s != "" {
		if v.OpLevel, err = strconv.Atoi(s); err != nil || v.OpLevel < 0 || v.OpLevel > 4 {
			return nil, false, fmt.Errorf("op_level must be 0-4, got %q", s)
		}
		ok = true
	}
	for key, vals := range q {
		if name, found := strings.CutPrefix(key, "attr."); found && name != "" && len(vals) > 0 {
			if v.Attrs == nil {
				v.Attrs = make(map[string]string)
			}
			v.Attrs[name] = vals[0]
			ok = true
		}
	}
	return v, ok, nil
}
