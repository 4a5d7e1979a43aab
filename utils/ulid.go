// Package utils holds small, dependency-light helpers shared by
// tablehealth's CLI and logging layers: currently just run-ID
// generation.
package utils

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyLock sync.Mutex
	entropy     = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// NewRunID mints a ULID identifying one analyzer invocation, used to
// correlate a run's log lines (see cli.runAnalyze); it never appears in
// the wire-level HealthReport.
func NewRunID() ulid.ULID {
	entropyLock.Lock()
	defer entropyLock.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}

// NewRunIDString mints a run ID and renders it as a string.
func NewRunIDString() string {
	return NewRunID().String()
}

// NewRunIDAt mints a run ID stamped with t instead of the current time,
// for tests that need deterministic ordering.
func NewRunIDAt(t time.Time) ulid.ULID {
	entropyLock.Lock()
	defer entropyLock.Unlock()

	return ulid.MustNew(ulid.Timestamp(t), entropy)
}

// ParseRunID parses a run ID previously rendered by NewRunIDString.
func ParseRunID(s string) (ulid.ULID, error) {
	return ulid.Parse(s)
}

// MustParseRunID parses a run ID, panicking if s isn't a valid ULID.
func MustParseRunID(s string) ulid.ULID {
	return ulid.MustParse(s)
}
