package config

import (
	"strings"

	"github.com/michalovjan/depalign/internal/rest"
)

// constraintDraft accumulates the fields contributed to one scope before the
// scope is frozen into a rest.Constraint.
type constraintDraft struct {
	ranks     []string
	allowList *string
	denyList  *string
}

// BuildConstraints merges the global override with the per-scope overrides
// into a deduplicated constraint set. The global inputs are nil when the
// property was absent; the scoped maps come from the three property prefixes
// and hold raw, unsplit values. delimiter must already be validated to be a
// single character.
//
// Each scope ends up with exactly one constraint no matter how many of the
// three maps mention it. Empty-string values are real: they produce
// pointer-to-"" fields, distinct from nil ("no restriction"). The result is
// ordered global-first, then by scope name; the order carries no meaning.
func BuildConstraints(delimiter string, globalRanks, globalAllow, globalDeny *string, scopedRanks, scopedAllows, scopedDenies map[string]string) []rest.Constraint {
	var out []rest.Constraint

	if globalRanks != nil || globalAllow != nil || globalDeny != nil {
		global := rest.Constraint{
			AllowList: globalAllow,
			DenyList:  globalDeny,
		}
		if globalRanks != nil {
			global.Ranks = strings.Split(*globalRanks, delimiter)
		}
		out = append(out, global)
	}

	drafts := make(map[string]*constraintDraft)
	draft := func(scope string) *constraintDraft {
		d, ok := drafts[scope]
		if !ok {
			d = &constraintDraft{}
			drafts[scope] = d
		}
		return d
	}

	for scope, raw := range scopedRanks {
		draft(scope).ranks = strings.Split(raw, delimiter)
	}
	for scope, raw := range scopedAllows {
		v := raw
		draft(scope).allowList = &v
	}
	for scope, raw := range scopedDenies {
		v := raw
		draft(scope).denyList = &v
	}

	for scope, d := range drafts {
		name := scope
		out = append(out, rest.Constraint{
			Scope:     &name,
			Ranks:     d.ranks,
			AllowList: d.allowList,
			DenyList:  d.denyList,
		})
	}

	rest.SortConstraints(out)
	return out
}
