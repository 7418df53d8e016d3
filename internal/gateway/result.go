package gateway

import (
	"errors"

	"github.com/UnknownOlympus/waypoint/internal/models"
)

// Source tells where the markers of a Result live after the call.
type Source int

const (
	// SourceNone means nothing was persisted.
	SourceNone Source = iota
	// SourceCache means the collection was served from or persisted to the local cache only.
	SourceCache
	// SourceServer means the marker API completed the round trip.
	SourceServer
)

func (s Source) String() string {
	switch s {
	case SourceServer:
		return "server"
	case SourceCache:
		return "cache"
	default:
		return "none"
	}
}

// ErrRejected is reported when the marker API answers a save without success.
var ErrRejected = errors.New("marker API did not confirm the save")

// Result is the outcome of a gateway call.
// Err is the reason the server round trip failed, even when a fallback kept the call OK.
type Result struct {
	Markers models.Collection
	Source  Source
	Err     error
}

// OK reports whether the caller may treat the operation as done.
func (r Result) OK() bool {
	return r.Source != SourceNone
}

// Synced reports whether the marker API holds the collection.
func (r Result) Synced() bool {
	return r.Source == SourceServer
}
