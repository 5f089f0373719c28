package rest

import (
	"context"
	"errors"
	"time"
)

// Defaults applied by the config package when the corresponding properties
// are absent.
const (
	// ChunkSplitCount is how many sub-chunks a timed-out lookup is split
	// into, and the floor below which chunks are not split further.
	ChunkSplitCount = 4

	DefaultConnectionTimeout = 30 * time.Second
	DefaultSocketTimeout     = 600 * time.Second
	DefaultRetryDuration     = 30 * time.Second
)

var ErrDisabled = errors.New("no endpoint configured")

// Settings is the connection and behavior bundle the config package
// assembles for the translator.
type Settings struct {
	// URL is the service base endpoint. Empty disables lookups.
	URL string

	// MaxSize bounds the number of artifacts per initial request; zero or
	// negative sends everything in one request.
	MaxSize int
	// MinSize is the split fan-out after a gateway timeout. Chunks smaller
	// than MinSize fail instead of splitting.
	MinSize int

	Mode           string
	BrewPullActive bool

	Headers []Header

	ConnectionTimeout time.Duration
	SocketTimeout     time.Duration
	RetryDuration     time.Duration

	Constraints []Constraint
}

// Translator resolves recommended versions for artifact coordinates.
type Translator interface {
	// LookupVersions returns the best-match version per GAV. Coordinates
	// the service has no recommendation for are absent from the result.
	LookupVersions(ctx context.Context, gavs []GAV) (map[GAV]string, error)
}
