package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/michalovjan/depalign/internal/props"
	"github.com/michalovjan/depalign/internal/rest"
)

// State is the resolved alignment configuration: built once from the
// property map, read-only afterwards, safe to share.
type State struct {
	url            string
	suffixAlign    bool
	brewPullActive bool
	mode           string
	maxSize        int
	minSize        int
	headers        []rest.Header
	connTimeout    time.Duration
	socketTimeout  time.Duration
	retryDuration  time.Duration
	rankDelimiter  string
	constraints    []rest.Constraint
	cacheMode      string
	cacheTTL       time.Duration
}

// Load resolves the property map against the schema: defaults applied,
// numerics parsed, the rank delimiter validated before any rank list is
// split, headers parsed, and the constraint set merged.
func Load(p *props.Properties) (*State, error) {
	s := &State{}
	var err error

	s.url = p.Get(keyURL)
	if s.suffixAlign, err = boolProp(p, keySuffixAlign, defaultSuffixAlign); err != nil {
		return nil, err
	}
	if s.brewPullActive, err = boolProp(p, keyBrewPullActive, false); err != nil {
		return nil, err
	}
	s.mode = p.GetDefault(keyMode, defaultMode)
	if s.maxSize, err = intProp(p, keyMaxSize, defaultMaxSize); err != nil {
		return nil, err
	}
	if s.minSize, err = intProp(p, keyMinSize, rest.ChunkSplitCount); err != nil {
		return nil, err
	}
	s.headers = ParseHeaders(p.Get(keyHeaders))
	if s.connTimeout, err = secondsProp(p, keyConnTimeout, rest.DefaultConnectionTimeout); err != nil {
		return nil, err
	}
	if s.socketTimeout, err = secondsProp(p, keySocketTimeout, rest.DefaultSocketTimeout); err != nil {
		return nil, err
	}
	if s.retryDuration, err = secondsProp(p, keyRetryDuration, rest.DefaultRetryDuration); err != nil {
		return nil, err
	}

	s.rankDelimiter = p.GetDefault(keyRankDelimiter, defaultRankDelimiter)
	if len(s.rankDelimiter) != 1 {
		return nil, fmt.Errorf("%s %q must be exactly one character", keyRankDelimiter, s.rankDelimiter)
	}

	s.cacheMode = p.GetDefault(keyCache, defaultCacheMode)
	switch s.cacheMode {
	case CacheOff, CacheMemory, CacheSQLite, CachePostgres:
	default:
		return nil, fmt.Errorf("%s %q must be one of off, memory, sqlite, postgres", keyCache, s.cacheMode)
	}
	if s.cacheTTL, err = secondsProp(p, keyCacheTTL, defaultCacheTTL); err != nil {
		return nil, err
	}

	s.constraints = BuildConstraints(s.rankDelimiter,
		lookupPtr(p, keyRanks), lookupPtr(p, keyAllowList), lookupPtr(p, keyDenyList),
		p.ByPrefix(scopedRanksPrefix), p.ByPrefix(scopedAllowPrefix), p.ByPrefix(scopedDenyPrefix),
	)

	return s, nil
}

// Enabled reports whether alignment is active. An empty URL is a deliberate
// soft-disable, not an error: consumers skip all network work.
func (s *State) Enabled() bool { return s.url != "" }

func (s *State) URL() string { return s.url }

func (s *State) SuffixAlign() bool { return s.suffixAlign }

func (s *State) BrewPullActive() bool { return s.brewPullActive }

func (s *State) Mode() string { return s.mode }

func (s *State) MaxSize() int { return s.maxSize }

func (s *State) MinSize() int { return s.minSize }

func (s *State) Headers() []rest.Header {
	out := make([]rest.Header, len(s.headers))
	copy(out, s.headers)
	return out
}

func (s *State) ConnectionTimeout() time.Duration { return s.connTimeout }

func (s *State) SocketTimeout() time.Duration { return s.socketTimeout }

func (s *State) RetryDuration() time.Duration { return s.retryDuration }

func (s *State) RankDelimiter() string { return s.rankDelimiter }

func (s *State) Constraints() []rest.Constraint {
	out := make([]rest.Constraint, len(s.constraints))
	copy(out, s.constraints)
	return out
}

func (s *State) CacheMode() string { return s.cacheMode }

func (s *State) CacheTTL() time.Duration { return s.cacheTTL }

// TranslatorSettings bundles everything the lookup client needs. The client
// treats the bundle as opaque configuration.
func (s *State) TranslatorSettings() rest.Settings {
	return rest.Settings{
		URL:               s.url,
		MaxSize:           s.maxSize,
		MinSize:           s.minSize,
		Mode:              s.mode,
		BrewPullActive:    s.brewPullActive,
		Headers:           s.Headers(),
		ConnectionTimeout: s.connTimeout,
		SocketTimeout:     s.socketTimeout,
		RetryDuration:     s.retryDuration,
		Constraints:       s.Constraints(),
	}
}

func lookupPtr(p *props.Properties, key string) *string {
	if v, ok := p.Lookup(key); ok {
		return &v
	}
	return nil
}

func boolProp(p *props.Properties, key string, def bool) (bool, error) {
	raw, ok := p.Lookup(key)
	if !ok {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s %q is not a boolean", key, raw)
	}
	return v, nil
}

func intProp(p *props.Properties, key string, def int) (int, error) {
	raw, ok := p.Lookup(key)
	if !ok {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not an integer", key, raw)
	}
	return v, nil
}

func secondsProp(p *props.Properties, key string, def time.Duration) (time.Duration, error) {
	raw, ok := p.Lookup(key)
	if !ok {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not an integer number of seconds", key, raw)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s %q must not be negative", key, raw)
	}
	return time.Duration(v) * time.Second, nil
}
