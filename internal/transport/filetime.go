package transport

import "time"

// 1601-01-01 to 1970-01-01 in 100ns ticks.
const fileTimeEpochDelta = 116444736000000000

// FileTime converts t to a Windows FILETIME: 100ns ticks since 1601-01-01 UTC.
// Sub-tick precision is truncated.
func FileTime(t time.Time) int64 {
	return t.UnixNano()/100 + fileTimeEpochDelta
}
