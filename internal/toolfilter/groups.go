// Package toolfilter decides which tools a dbmcp server exposes. A single
// configuration string ("core,json,-drop_table") is parsed into a filter
// configuration that is applied per tool at registration time, and again at
// call time when the filter has been hot-reloaded.
package toolfilter

// Group classifies a tool by functional area. Every tool belongs to exactly
// one group; the set is closed and fixed at compile time.
type Group string

const (
	GroupCore   Group = "core"
	GroupJSON   Group = "json"
	GroupText   Group = "text"
	GroupStats  Group = "stats"
	GroupVector Group = "vector"
	GroupGeo    Group = "geo"
	GroupFTS    Group = "fts"
	GroupPragma Group = "pragma"
	GroupBackup Group = "backup"
	GroupAdmin  Group = "admin"
)

var allGroups = []Group{
	GroupCore, GroupJSON, GroupText, GroupStats, GroupVector,
	GroupGeo, GroupFTS, GroupPragma, GroupBackup, GroupAdmin,
}

// metaGroups are parsing conveniences: one token enabling several groups.
// The namespace is disjoint from Group; a name is never both.
var metaGroups = map[string][]Group{
	"starter":   {GroupCore, GroupJSON, GroupText},
	"analytics": {GroupStats, GroupVector},
	"full":      allGroups,
}

// AllGroups returns every tool group, in declaration order.
func AllGroups() []Group {
	out := make([]Group, len(allGroups))
	copy(out, allGroups)
	return out
}

// IsGroup reports whether name is a tool group. Case-sensitive exact match.
func IsGroup(name string) bool {
	for _, g := range allGroups {
		if string(g) == name {
			return true
		}
	}
	return false
}

// IsMetaGroup reports whether name is a meta-group alias.
func IsMetaGroup(name string) bool {
	_, ok := metaGroups[name]
	return ok
}

// MetaGroupGroups returns the groups a meta-group expands to, or nil if name
// is not a meta-group.
func MetaGroupGroups(name string) []Group {
	gs, ok := metaGroups[name]
	if !ok {
		return nil
	}
	out := make([]Group, len(gs))
	copy(out, gs)
	return out
}
