package domain

import (
	"regexp"
	"sort"
	"strings"
)

const scopeDelimiter = ","

var impliedScopeRe = regexp.MustCompile(`^(unauthenticated_)?write_(.*)$`)

// ScopeSet is a normalized collection of access scopes. The compressed form
// excludes scopes implied by others already present (write_x implies read_x);
// the expanded form includes the full implied closure.
type ScopeSet struct {
	compressed map[string]struct{}
	expanded   map[string]struct{}
}

// NewScopeSet parses a comma-delimited scope string.
func NewScopeSet(scopes string) ScopeSet {
	return NewScopeSetFromList(strings.Split(scopes, scopeDelimiter))
}

// NewScopeSetFromList builds a ScopeSet from an explicit list, trimming
// whitespace and dropping empty entries.
func NewScopeSetFromList(scopes []string) ScopeSet {
	cleaned := make([]string, 0, len(scopes))
	for _, s := range scopes {
		s = strings.TrimSpace(s)
		if s != "" {
			cleaned = append(cleaned, s)
		}
	}

	implied := make(map[string]struct{})
	for _, s := range cleaned {
		if m := impliedScopeRe.FindStringSubmatch(s); m != nil {
			implied[m[1]+"read_"+m[2]] = struct{}{}
		}
	}

	set := ScopeSet{
		compressed: make(map[string]struct{}),
		expanded:   make(map[string]struct{}),
	}
	for _, s := range cleaned {
		if _, ok := implied[s]; !ok {
			set.compressed[s] = struct{}{}
		}
		set.expanded[s] = struct{}{}
	}
	for s := range implied {
		set.expanded[s] = struct{}{}
	}
	return set
}

// Has reports whether every scope in other's expanded form is covered by
// this set's expanded form.
func (s ScopeSet) Has(other ScopeSet) bool {
	for scope := range other.compressed {
		if _, ok := s.expanded[scope]; !ok {
			return false
		}
	}
	return true
}

// Equals reports whether both sets cover exactly the same scopes.
func (s ScopeSet) Equals(other ScopeSet) bool {
	return len(s.compressed) == len(other.compressed) && other.Has(s)
}

// Missing returns the scopes of required that this set does not cover,
// sorted for stable reporting.
func (s ScopeSet) Missing(required ScopeSet) []string {
	var missing []string
	for scope := range required.compressed {
		if _, ok := s.expanded[scope]; !ok {
			missing = append(missing, scope)
		}
	}
	sort.Strings(missing)
	return missing
}

// List returns the compressed scopes, sorted.
func (s ScopeSet) List() []string {
	out := make([]string, 0, len(s.compressed))
	for scope := range s.compressed {
		out = append(out, scope)
	}
	sort.Strings(out)
	return out
}

// String returns the compressed form as a comma-delimited string.
func (s ScopeSet) String() string {
	return strings.Join(s.List(), scopeDelimiter)
}
