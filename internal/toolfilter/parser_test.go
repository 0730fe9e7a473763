package toolfilter

import (
	"strings"
	"testing"
)

func groupSet(gs ...Group) map[Group]struct{} {
	m := make(map[Group]struct{}, len(gs))
	for _, g := range gs {
		m[g] = struct{}{}
	}
	return m
}

func sameGroups(a, b map[Group]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for g := range a {
		if _, ok := b[g]; !ok {
			return false
		}
	}
	return true
}

func TestParseDefaultAllow(t *testing.T) {
	for _, raw := range []string{"", "   ", ",,,", " , ,"} {
		cfg := Parse(raw)
		if len(cfg.EnabledGroups) != len(AllGroups()) {
			t.Errorf("Parse(%q): %d groups enabled, want all %d", raw, len(cfg.EnabledGroups), len(AllGroups()))
		}
		if len(cfg.IncludedTools) != 0 || len(cfg.ExcludedTools) != 0 {
			t.Errorf("Parse(%q): tool rules present, want none", raw)
		}
	}
}

func TestParseSingleGroupWhitelist(t *testing.T) {
	for _, g := range AllGroups() {
		cfg := Parse(string(g))
		if !sameGroups(cfg.EnabledGroups, groupSet(g)) {
			t.Errorf("Parse(%q).EnabledGroups = %v, want just %q", g, cfg.EnabledGroups, g)
		}
	}
}

func TestParseMetaGroupExpansion(t *testing.T) {
	cfg := Parse("starter")
	want := groupSet(GroupCore, GroupJSON, GroupText)
	if !sameGroups(cfg.EnabledGroups, want) {
		t.Errorf("starter expanded to %v, want %v", cfg.EnabledGroups, want)
	}

	cfg = Parse("analytics")
	want = groupSet(GroupStats, GroupVector)
	if !sameGroups(cfg.EnabledGroups, want) {
		t.Errorf("analytics expanded to %v, want %v", cfg.EnabledGroups, want)
	}
}

func TestParseFullMetaGroupRoundTrip(t *testing.T) {
	cfg := Parse("full")
	if len(cfg.EnabledGroups) != len(AllGroups()) {
		t.Errorf("full enabled %d groups, want %d", len(cfg.EnabledGroups), len(AllGroups()))
	}
}

func TestParseLeadingExcludeIsExclusionBase(t *testing.T) {
	cfg := Parse("-geo")
	if len(cfg.EnabledGroups) != len(AllGroups())-1 {
		t.Fatalf("enabled %d groups, want %d", len(cfg.EnabledGroups), len(AllGroups())-1)
	}
	if _, ok := cfg.EnabledGroups[GroupGeo]; ok {
		t.Error("geo should be excluded")
	}
}

func TestParseExcludeMetaGroup(t *testing.T) {
	cfg := Parse("-starter")
	if _, ok := cfg.EnabledGroups[GroupCore]; ok {
		t.Error("core should be excluded via -starter")
	}
	if _, ok := cfg.EnabledGroups[GroupStats]; !ok {
		t.Error("stats should survive -starter")
	}
}

func TestParseIdempotence(t *testing.T) {
	cfg := Parse("core,core,core")
	if len(cfg.EnabledGroups) != 1 {
		t.Errorf("enabled %d groups, want 1", len(cfg.EnabledGroups))
	}
}

func TestParseLastTokenWins(t *testing.T) {
	cfg := Parse("core,-core")
	if _, ok := cfg.EnabledGroups[GroupCore]; ok {
		t.Error("core,-core should end with core excluded")
	}

	cfg = Parse("-core,core")
	if _, ok := cfg.EnabledGroups[GroupCore]; !ok {
		t.Error("-core,core should end with core enabled")
	}

	cfg = Parse("read_query,-read_query")
	if _, ok := cfg.ExcludedTools["read_query"]; !ok {
		t.Error("later tool exclude should win")
	}
	if _, ok := cfg.IncludedTools["read_query"]; ok {
		t.Error("tool must not stay included after a later exclude")
	}
}

func TestParseMixedMode(t *testing.T) {
	// Whitelist base with trailing group and tool excludes.
	cfg := Parse("starter, analytics, -json, -drop_table")
	if _, ok := cfg.EnabledGroups[GroupJSON]; ok {
		t.Error("json should be trimmed from the whitelist")
	}
	if _, ok := cfg.EnabledGroups[GroupStats]; !ok {
		t.Error("stats should remain enabled")
	}
	if _, ok := cfg.ExcludedTools["drop_table"]; !ok {
		t.Error("drop_table should be excluded")
	}
}

func TestParseAllKeyword(t *testing.T) {
	cfg := Parse("+all")
	if len(cfg.EnabledGroups) != len(AllGroups()) {
		t.Errorf("+all enabled %d groups, want all", len(cfg.EnabledGroups))
	}

	cfg = Parse("-all,core")
	if !sameGroups(cfg.EnabledGroups, groupSet(GroupCore)) {
		t.Errorf("-all,core = %v, want just core", cfg.EnabledGroups)
	}

	if IsMetaGroup("all") {
		t.Error("all is a keyword, not a meta-group")
	}
}

func TestParseUnknownTokenBecomesToolInclude(t *testing.T) {
	cfg := Parse("vector_search")
	if len(cfg.EnabledGroups) != 0 {
		t.Errorf("tool-only whitelist enabled %d groups, want 0", len(cfg.EnabledGroups))
	}
	if _, ok := cfg.IncludedTools["vector_search"]; !ok {
		t.Error("vector_search should be an included tool")
	}
}

func TestParseLeadingToolExclude(t *testing.T) {
	cfg := Parse("-drop_table")
	if len(cfg.EnabledGroups) != len(AllGroups()) {
		t.Error("leading tool exclude should keep all groups enabled")
	}
	if _, ok := cfg.ExcludedTools["drop_table"]; !ok {
		t.Error("drop_table should be excluded")
	}
}

func TestParseRulesTrail(t *testing.T) {
	cfg := Parse("core, +vector_search, -geo")
	if len(cfg.Rules) != 3 {
		t.Fatalf("rules = %d, want 3", len(cfg.Rules))
	}
	if cfg.Rules[0] != (Rule{Type: RuleInclude, Target: "core", IsGroup: true}) {
		t.Errorf("rule[0] = %+v", cfg.Rules[0])
	}
	if cfg.Rules[1] != (Rule{Type: RuleInclude, Target: "vector_search"}) {
		t.Errorf("rule[1] = %+v", cfg.Rules[1])
	}
	if cfg.Rules[2] != (Rule{Type: RuleExclude, Target: "geo", IsGroup: true}) {
		t.Errorf("rule[2] = %+v", cfg.Rules[2])
	}
}

func TestGroupAndMetaGroupNamespacesDisjoint(t *testing.T) {
	for name := range metaGroups {
		if IsGroup(name) {
			t.Errorf("%q is both a group and a meta-group", name)
		}
	}
}

func TestSummary(t *testing.T) {
	s := Parse("core,-drop_table").Summary()
	if !strings.Contains(s, "core") || !strings.Contains(s, "drop_table") {
		t.Errorf("summary missing detail: %q", s)
	}

	s = Parse("").Summary()
	if !strings.Contains(s, "all groups enabled") {
		t.Errorf("default summary = %q", s)
	}
}
