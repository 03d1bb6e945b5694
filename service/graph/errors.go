package graph

import (
	"errors"
	"fmt"
)

// ErrConfiguration marks errors caused by deployment configuration rather
// than by the subgraph. They are not worth retrying.
var ErrConfiguration = errors.New("graph configuration error")

var (
	ErrNoSubgraphForNetwork = fmt.Errorf("%w: no railgun-transaction subgraph for this network", ErrConfiguration)
	ErrSourceMisconfigured  = fmt.Errorf("%w: subgraph source misconfigured", ErrConfiguration)
	ErrUnsupportedNetwork   = fmt.Errorf("%w: unsupported network", ErrConfiguration)

	// ErrClientClosed is returned by a Client after Close.
	ErrClientClosed = errors.New("graph client closed")

	// ErrCursorStalled is returned when a full page ends on the ID it was
	// requested from, so the next request would repeat it.
	ErrCursorStalled = errors.New("pagination cursor did not advance")
)
