package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// Diff classifies property changes between two schema versions, at the top level and
// within the detail object. Each list is sorted.
type Diff struct {
	AddedTop   []string
	RemovedTop []string
	ChangedTop []string

	AddedDetail   []string
	RemovedDetail []string
	ChangedDetail []string
}

// HasChanges reports whether anything changed at either level.
func (d Diff) HasChanges() bool {
	return len(d.AddedTop)+len(d.RemovedTop)+len(d.ChangedTop)+
		len(d.AddedDetail)+len(d.RemovedDetail)+len(d.ChangedDetail) > 0
}

// Summary renders the diff as human-readable lines.
func (d Diff) Summary(detail string) []string {
	if !d.HasChanges() {
		return []string{"No schema differences detected since the last snapshot."}
	}
	return []string{
		"Schema changes detected:",
		fmt.Sprintf("  added top-level fields: %s", list(d.AddedTop)),
		fmt.Sprintf("  removed top-level fields: %s", list(d.RemovedTop)),
		fmt.Sprintf("  changed top-level fields: %s", list(d.ChangedTop)),
		fmt.Sprintf("  added %s fields: %s", detail, list(d.AddedDetail)),
		fmt.Sprintf("  removed %s fields: %s", detail, list(d.RemovedDetail)),
		fmt.Sprintf("  changed %s fields: %s", detail, list(d.ChangedDetail)),
	}
}

func list(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}

// Compute diffs prev against cur. A nil prev is treated as a schema with no properties.
func Compute(prev, cur Node, detail string) Diff {
	prevProps := rawProperties(prev)
	curProps := rawProperties(cur)

	d := Diff{}
	d.AddedTop, d.RemovedTop, d.ChangedTop = compare(prevProps, curProps)
	d.AddedDetail, d.RemovedDetail, d.ChangedDetail = compare(
		rawProperties(subNode(prevProps, detail)),
		rawProperties(subNode(curProps, detail)),
	)
	return d
}

func rawProperties(n Node) map[string]any {
	if n == nil {
		return map[string]any{}
	}
	m, ok := n["properties"].(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return m
}

func subNode(props map[string]any, name string) Node {
	m, ok := props[name].(map[string]any)
	if !ok {
		return nil
	}
	return Node(m)
}

func compare(prev, cur map[string]any) (added, removed, changed []string) {
	added, removed, changed = []string{}, []string{}, []string{}
	for k, cv := range cur {
		pv, ok := prev[k]
		switch {
		case !ok:
			added = append(added, k)
		case !cmp.Equal(pv, cv):
			changed = append(changed, k)
		}
	}
	for k := range prev {
		if _, ok := cur[k]; !ok {
			removed = append(removed, k)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	sort.Strings(changed)
	return added, removed, changed
}
