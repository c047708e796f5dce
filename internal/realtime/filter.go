// AngelaMos | 2026
// filter.go

package realtime

import (
	"fmt"
	"regexp"
	"strings"
)

var columnPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Filter is a column equality predicate written as "column=eq.value".
type Filter struct {
	Column string
	Value  string
}

func ParseFilter(raw string) (*Filter, error) {
	if raw == "" {
		return nil, nil
	}

	column, rest, ok := strings.Cut(raw, "=")
	if !ok {
		return nil, fmt.Errorf("filter %q: expected column=eq.value", raw)
	}

	op, value, ok := strings.Cut(rest, ".")
	if !ok || op != "eq" {
		return nil, fmt.Errorf("filter %q: only the eq operator is supported", raw)
	}

	if !columnPattern.MatchString(column) {
		return nil, fmt.Errorf("filter %q: invalid column name", raw)
	}

	if value == "" {
		return nil, fmt.Errorf("filter %q: empty value", raw)
	}

	return &Filter{Column: column, Value: value}, nil
}

func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.Column + "=eq." + f.Value
}

func (f *Filter) Matches(c Change) bool {
	if f == nil {
		return true
	}
	return c.Keys[f.Column] == f.Value
}

// Subscription selects changes by table, event type and optional filter.
type Subscription struct {
	Table  string
	Event  EventType
	Filter *Filter
}

func (s Subscription) Matches(c Change) bool {
	if c.Table != s.Table {
		return false
	}
	if s.Event != EventAll && s.Event != c.Type {
		return false
	}
	return s.Filter.Matches(c)
}

func (s Subscription) String() string {
	out := s.Table + ":" + string(s.Event)
	if s.Filter != nil {
		out += ":" + s.Filter.String()
	}
	return out
}
