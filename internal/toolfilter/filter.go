package toolfilter

import "strings"

// adapterPrefixes are backend name prefixes stripped for base-name matching,
// so a filter string can stay adapter-agnostic: a rule written "list_tables"
// matches the tool "sqlite_list_tables".
var adapterPrefixes = []string{"sqlite_", "pg_", "postgres_"}

// BaseName strips a known adapter prefix from a tool name. Names without a
// known prefix are returned unchanged.
func BaseName(name string) string {
	for _, p := range adapterPrefixes {
		if strings.HasPrefix(name, p) {
			return strings.TrimPrefix(name, p)
		}
	}
	return name
}

// IsToolEnabled decides whether a tool passes the filter. Precedence,
// strictly in order: explicit per-tool exclusion, explicit per-tool
// inclusion, group membership. A nil config allows everything.
func (c *Config) IsToolEnabled(name string, group Group) bool {
	if c == nil {
		return true
	}
	base := BaseName(name)
	if _, ok := c.ExcludedTools[name]; ok {
		return false
	}
	if _, ok := c.ExcludedTools[base]; ok {
		return false
	}
	if _, ok := c.IncludedTools[name]; ok {
		return true
	}
	if _, ok := c.IncludedTools[base]; ok {
		return true
	}
	_, ok := c.EnabledGroups[group]
	return ok
}

// Filter returns the elements of defs that pass the filter, preserving
// input order. info reports each element's tool name and group.
func Filter[T any](defs []T, c *Config, info func(T) (string, Group)) []T {
	out := make([]T, 0, len(defs))
	for _, d := range defs {
		name, group := info(d)
		if c.IsToolEnabled(name, group) {
			out = append(out, d)
		}
	}
	return out
}
