package xid

import (
	"strconv"
	"sync"
	"time"
)

var (
	mu   sync.Mutex
	last int64
)

// New returns a millisecond timestamp id for records created in the local
// cache. Ids are strictly increasing within the process, so two records
// created in the same millisecond still get distinct ids.
func New(now time.Time) string {
	ms := now.UnixMilli()

	mu.Lock()
	if ms <= last {
		ms = last + 1
	}
	last = ms
	mu.Unlock()

	return strconv.FormatInt(ms, 10)
}

// Prefixed is New with a short type prefix, used for ids that never reach
// the backend (stock movements, local backups).
func Prefixed(prefix string, now time.Time) string {
	return prefix + "-" + New(now)
}
