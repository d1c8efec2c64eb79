// Package id provides time-derived identifiers for catalog records.
package id

import (
	"strconv"
	"sync/atomic"
	"time"
)

var last atomic.Int64

// Generate returns the current Unix time in milliseconds as a decimal string.
// Values are strictly increasing within a process: when two calls land in the
// same millisecond the later one is bumped forward.
func Generate() string {
	return GenerateAt(time.Now())
}

// GenerateAt is Generate with an explicit clock reading.
func GenerateAt(t time.Time) string {
	ms := t.UnixMilli()
	for {
		prev := last.Load()
		next := ms
		if next <= prev {
			next = prev + 1
		}
		if last.CompareAndSwap(prev, next) {
			return strconv.FormatInt(next, 10)
		}
	}
}
