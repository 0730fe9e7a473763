package toolfilter

import (
	"sort"
	"strconv"
	"strings"
)

// RuleType marks a parsed token as including or excluding its target.
type RuleType string

const (
	RuleInclude RuleType = "include"
	RuleExclude RuleType = "exclude"
)

// Rule records one token from the configuration string, in parse order.
// Rules are an audit trail for Summary; evaluation uses the materialized
// sets on Config.
type Rule struct {
	Type    RuleType
	Target  string
	IsGroup bool
}

// Config is the materialized result of parsing a filter string.
type Config struct {
	EnabledGroups map[Group]struct{}
	IncludedTools map[string]struct{}
	ExcludedTools map[string]struct{}
	Rules         []Rule
	Raw           string
}

// parseMode is the parser's base-set state. It is decided by the first
// group-bearing or excluding token and never revisited.
type parseMode int

const (
	modeUnset parseMode = iota
	modeWhitelist     // enabled groups accumulate from empty
	modeExclusionBase // enabled groups start as all, excludes remove
)

// Parse converts a filter configuration string into a Config. It never
// fails: unknown tokens are treated as individual tool names, and an empty
// or all-whitespace string enables every group (default-allow). Tokens are
// comma-separated and may be whitespace-padded; empty tokens are dropped.
func Parse(raw string) *Config {
	cfg := &Config{
		EnabledGroups: make(map[Group]struct{}),
		IncludedTools: make(map[string]struct{}),
		ExcludedTools: make(map[string]struct{}),
		Raw:           raw,
	}

	var tokens []string
	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}

	if len(tokens) == 0 {
		for _, g := range allGroups {
			cfg.EnabledGroups[g] = struct{}{}
		}
		return cfg
	}

	mode := modeUnset
	for _, tok := range tokens {
		exclude := strings.HasPrefix(tok, "-")
		name := strings.TrimPrefix(strings.TrimPrefix(tok, "-"), "+")
		if name == "" {
			continue
		}

		switch {
		case name == "all":
			if mode == modeUnset {
				if exclude {
					mode = modeExclusionBase
				} else {
					mode = modeWhitelist
				}
			}
			if exclude {
				cfg.EnabledGroups = make(map[Group]struct{})
			} else {
				for _, g := range allGroups {
					cfg.EnabledGroups[g] = struct{}{}
				}
			}
			cfg.Rules = append(cfg.Rules, Rule{Type: ruleType(exclude), Target: "all", IsGroup: true})

		case IsGroup(name) || IsMetaGroup(name):
			groups := []Group{Group(name)}
			if IsMetaGroup(name) {
				groups = MetaGroupGroups(name)
			}
			if mode == modeUnset {
				if exclude {
					mode = modeExclusionBase
					for _, g := range allGroups {
						cfg.EnabledGroups[g] = struct{}{}
					}
				} else {
					mode = modeWhitelist
				}
			}
			for _, g := range groups {
				if exclude {
					delete(cfg.EnabledGroups, g)
				} else {
					cfg.EnabledGroups[g] = struct{}{}
				}
			}
			cfg.Rules = append(cfg.Rules, Rule{Type: ruleType(exclude), Target: name, IsGroup: true})

		default:
			// Individual tool name, known or not. Typos land here on
			// purpose: the parser must not reject a configuration.
			if exclude {
				if mode == modeUnset {
					mode = modeExclusionBase
					for _, g := range allGroups {
						cfg.EnabledGroups[g] = struct{}{}
					}
				}
				cfg.ExcludedTools[name] = struct{}{}
				delete(cfg.IncludedTools, name)
			} else {
				cfg.IncludedTools[name] = struct{}{}
				delete(cfg.ExcludedTools, name)
			}
			cfg.Rules = append(cfg.Rules, Rule{Type: ruleType(exclude), Target: name})
		}
	}

	return cfg
}

func ruleType(exclude bool) RuleType {
	if exclude {
		return RuleExclude
	}
	return RuleInclude
}

// Summary renders a human-readable description of the filter for startup
// logs. Not a stable machine contract.
func (c *Config) Summary() string {
	var b strings.Builder
	b.WriteString("tool filter: ")

	groups := make([]string, 0, len(c.EnabledGroups))
	for g := range c.EnabledGroups {
		groups = append(groups, string(g))
	}
	sort.Strings(groups)
	if len(groups) == len(allGroups) {
		b.WriteString("all groups enabled")
	} else if len(groups) == 0 {
		b.WriteString("no groups enabled")
	} else {
		b.WriteString("groups [" + strings.Join(groups, " ") + "]")
	}

	if len(c.IncludedTools) > 0 {
		b.WriteString("; include tools [" + strings.Join(sortedKeys(c.IncludedTools), " ") + "]")
	}
	if len(c.ExcludedTools) > 0 {
		b.WriteString("; exclude tools [" + strings.Join(sortedKeys(c.ExcludedTools), " ") + "]")
	}
	if c.Raw != "" {
		b.WriteString(" (from " + strconv.Quote(c.Raw) + ")")
	}
	return b.String()
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
