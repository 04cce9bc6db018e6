package core

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// NewID returns a random v4 UUID string.
func NewID() string {
	return uuid.NewString()
}

var lastMillis atomic.Int64

// NowMillis returns the current Unix time in milliseconds. Successive calls
// within a process always return strictly increasing values so creation
// order survives entries created within the same millisecond.
func NowMillis() int64 {
	for {
		now := time.Now().UnixMilli()
		prev := lastMillis.Load()
		if now <= prev {
			now = prev + 1
		}
		if lastMillis.CompareAndSwap(prev, now) {
			return now
		}
	}
}
