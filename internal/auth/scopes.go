package auth

// ScopeAdmin grants access to every tool, regardless of the tool's declared
// required scopes. This universal override is relied-upon behavior; do not
// narrow it to per-tool admin checks.
const ScopeAdmin = "admin"

// ScopesGrantAccess reports whether a caller's granted scopes satisfy a
// tool's required scopes. The gate is any-of: a single shared scope is
// enough. Tools with no required scopes are open to any authenticated
// caller.
func ScopesGrantAccess(granted, required []string) bool {
	for _, s := range granted {
		if s == ScopeAdmin {
			return true
		}
	}
	if len(required) == 0 {
		return true
	}
	for _, need := range required {
		for _, have := range granted {
			if have == need {
				return true
			}
		}
	}
	return false
}
