// Package config resolves flat alignment properties into the immutable
// state that drives version lookups: scalar connection settings, extra
// request headers, and the merged global/scoped constraint set.
package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/michalovjan/depalign/internal/rest"
)

const (
	keyURL            = "restURL"
	keySuffixAlign    = "restSuffixAlign"
	keyBrewPullActive = "restBrewPullActive"
	keyMode           = "restMode"
	keyMaxSize        = "restMaxSize"
	keyMinSize        = "restMinSize"
	keyHeaders        = "restHeaders"
	keyConnTimeout    = "restConnectionTimeout"
	keySocketTimeout  = "restSocketTimeout"
	keyRetryDuration  = "restRetryDuration"
	keyRanks          = "restDependencyRanks"
	keyAllowList      = "restDependencyAllowList"
	keyDenyList       = "restDependencyDenyList"
	keyRankDelimiter  = "restDependencyRankDelimiter"
	keyCache          = "restCache"
	keyCacheTTL       = "restCacheTTL"

	scopedRanksPrefix = keyRanks + "."
	scopedAllowPrefix = keyAllowList + "."
	scopedDenyPrefix  = keyDenyList + "."
)

const (
	defaultSuffixAlign   = true
	defaultMode          = ""
	defaultMaxSize       = -1
	defaultRankDelimiter = ";"
	defaultCacheMode     = CacheOff
	defaultCacheTTL      = 24 * time.Hour
)

// Cache backend names accepted by restCache.
const (
	CacheOff      = "off"
	CacheMemory   = "memory"
	CacheSQLite   = "sqlite"
	CachePostgres = "postgres"
)

// Kind tells how a property value is parsed.
type Kind string

const (
	KindString  Kind = "string"
	KindBool    Kind = "bool"
	KindInt     Kind = "int"
	KindSeconds Kind = "seconds"
	KindHeaders Kind = "headers"
	// KindScoped rows are name prefixes: the scope name follows the dot.
	KindScoped Kind = "scoped"
)

// Key is one recognized configuration property.
type Key struct {
	Name        string `json:"name"`
	Kind        Kind   `json:"kind"`
	Default     string `json:"default,omitempty"`
	Description string `json:"description"`
}

// Schema enumerates every recognized property. Validation warnings and the
// `config keys` command are generated from this table.
var Schema = []Key{
	{Name: keyURL, Kind: KindString, Description: "recommendation service base URL; empty disables alignment"},
	{Name: keySuffixAlign, Kind: KindBool, Default: "true", Description: "align rebuild suffixes of project versions"},
	{Name: keyBrewPullActive, Kind: KindBool, Default: "false", Description: "let the service consult brew builds"},
	{Name: keyMode, Kind: KindString, Description: "lookup mode passed to the service (e.g. PERSISTENT, TEMPORARY)"},
	{Name: keyMaxSize, Kind: KindInt, Default: strconv.Itoa(defaultMaxSize), Description: "artifacts per initial request; <=0 sends one request"},
	{Name: keyMinSize, Kind: KindInt, Default: strconv.Itoa(rest.ChunkSplitCount), Description: "split fan-out after a gateway timeout; smaller chunks fail"},
	{Name: keyHeaders, Kind: KindHeaders, Description: "extra request headers as key:value,key2:value2"},
	{Name: keyConnTimeout, Kind: KindSeconds, Default: seconds(rest.DefaultConnectionTimeout), Description: "connection timeout in seconds"},
	{Name: keySocketTimeout, Kind: KindSeconds, Default: seconds(rest.DefaultSocketTimeout), Description: "per-request response timeout in seconds"},
	{Name: keyRetryDuration, Kind: KindSeconds, Default: seconds(rest.DefaultRetryDuration), Description: "wait in seconds between a gateway timeout and the split retry"},
	{Name: keyRanks, Kind: KindString, Description: "global version ranks, separated by the rank delimiter"},
	{Name: keyAllowList, Kind: KindString, Description: "global allow-list, passed verbatim"},
	{Name: keyDenyList, Kind: KindString, Description: "global deny-list, passed verbatim"},
	{Name: scopedRanksPrefix, Kind: KindScoped, Description: "per-scope version ranks"},
	{Name: scopedAllowPrefix, Kind: KindScoped, Description: "per-scope allow-list"},
	{Name: scopedDenyPrefix, Kind: KindScoped, Description: "per-scope deny-list"},
	{Name: keyRankDelimiter, Kind: KindString, Default: defaultRankDelimiter, Description: "rank token delimiter, exactly one character"},
	{Name: keyCache, Kind: KindString, Default: defaultCacheMode, Description: "lookup cache backend: off, memory, sqlite, postgres"},
	{Name: keyCacheTTL, Kind: KindSeconds, Default: seconds(defaultCacheTTL), Description: "lookup cache entry lifetime in seconds; 0 keeps entries forever"},
}

func seconds(d time.Duration) string {
	return strconv.Itoa(int(d / time.Second))
}

// Recognized reports whether name is a schema property, either exactly or
// under one of the scoped prefixes.
func Recognized(name string) bool {
	for _, k := range Schema {
		if k.Kind == KindScoped {
			if strings.HasPrefix(name, k.Name) {
				return true
			}
			continue
		}
		if k.Name == name {
			return true
		}
	}
	return false
}
