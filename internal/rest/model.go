// Package rest talks to a DependencyAnalysis-style version recommendation
// service: it posts batches of Maven coordinates and collects the best-match
// versions the service suggests, honoring the constraint set and connection
// settings resolved by the config package.
package rest

import (
	"fmt"
	"sort"
	"strings"
)

// GAV identifies one Maven artifact.
type GAV struct {
	GroupID    string `json:"groupId"`
	ArtifactID string `json:"artifactId"`
	Version    string `json:"version"`
}

// ParseGAV parses a groupId:artifactId:version coordinate.
func ParseGAV(coord string) (GAV, error) {
	parts := strings.Split(strings.TrimSpace(coord), ":")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return GAV{}, fmt.Errorf("invalid coordinate %q, want groupId:artifactId:version", coord)
	}
	return GAV{GroupID: parts[0], ArtifactID: parts[1], Version: parts[2]}, nil
}

func (g GAV) String() string {
	return g.GroupID + ":" + g.ArtifactID + ":" + g.Version
}

// Header is one HTTP header sent with every lookup request. Order is
// preserved from the configuration.
type Header struct {
	Name  string
	Value string
}

// Constraint restricts which versions the service may recommend, either
// globally (nil Scope) or for one artifact scope. Nil and empty-string
// pointer values are distinct: nil means no restriction, a pointer to ""
// restricts to nothing.
type Constraint struct {
	Scope     *string  `json:"artifactScope,omitempty"`
	Ranks     []string `json:"ranks,omitempty"`
	AllowList *string  `json:"allowList,omitempty"`
	DenyList  *string  `json:"denyList,omitempty"`
}

// Equal reports whether all four fields match, distinguishing nil from
// pointer-to-empty throughout.
func (c Constraint) Equal(o Constraint) bool {
	if !eqStringPtr(c.Scope, o.Scope) ||
		!eqStringPtr(c.AllowList, o.AllowList) ||
		!eqStringPtr(c.DenyList, o.DenyList) {
		return false
	}
	if (c.Ranks == nil) != (o.Ranks == nil) || len(c.Ranks) != len(o.Ranks) {
		return false
	}
	for i := range c.Ranks {
		if c.Ranks[i] != o.Ranks[i] {
			return false
		}
	}
	return true
}

func eqStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// SortConstraints orders a constraint set deterministically: the global
// constraint first, then scoped constraints by scope name. The order carries
// no meaning beyond stable output.
func SortConstraints(cs []Constraint) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i].Scope, cs[j].Scope
		switch {
		case a == nil:
			return b != nil
		case b == nil:
			return false
		default:
			return *a < *b
		}
	})
}

// LookupReport is one row of the service's lookup response.
type LookupReport struct {
	GroupID           string   `json:"groupId"`
	ArtifactID        string   `json:"artifactId"`
	Version           string   `json:"version"`
	BestMatchVersion  string   `json:"bestMatchVersion"`
	AvailableVersions []string `json:"availableVersions,omitempty"`
	Blacklisted       bool     `json:"blacklisted,omitempty"`
}

func (r LookupReport) gav() GAV {
	return GAV{GroupID: r.GroupID, ArtifactID: r.ArtifactID, Version: r.Version}
}

type lookupRequest struct {
	Artifacts      []GAV        `json:"artifacts"`
	Mode           string       `json:"mode,omitempty"`
	BrewPullActive bool         `json:"brewPullActive"`
	Constraints    []Constraint `json:"constraints,omitempty"`
}
