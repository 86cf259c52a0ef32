package com

import "time"

// epochDelta is the number of 100ns ticks between 1601-01-01 and
// 1970-01-01 UTC (11,644,473,600 seconds).
const epochDelta = 116444736000000000

// FILETIME is a count of 100-nanosecond ticks since 1601-01-01 UTC, split
// into two 32-bit halves.
type FILETIME struct {
	LowDateTime  uint32
	HighDateTime uint32
}

// FileTimeFromTicks builds a FILETIME from a tick count.
func FileTimeFromTicks(ticks uint64) FILETIME {
	return FILETIME{LowDateTime: uint32(ticks), HighDateTime: uint32(ticks >> 32)}
}

// FileTimeFromTime converts t, truncating to 100ns. The zero time maps to
// the zero FILETIME.
func FileTimeFromTime(t time.Time) FILETIME {
	if t.IsZero() {
		return FILETIME{}
	}
	ticks := t.Unix()*1e7 + int64(t.Nanosecond())/100
	return FileTimeFromTicks(uint64(ticks + epochDelta))
}

// Ticks returns the tick count.
func (f FILETIME) Ticks() uint64 {
	return uint64(f.HighDateTime)<<32 | uint64(f.LowDateTime)
}

// IsZero reports whether f is unset.
func (f FILETIME) IsZero() bool { return f.LowDateTime == 0 && f.HighDateTime == 0 }

// Time converts f to UTC wall-clock time. The zero FILETIME maps to the
// zero time.
func (f FILETIME) Time() time.Time {
	if f.IsZero() {
		return time.Time{}
	}
	ticks := int64(f.Ticks()) - epochDelta
	return time.Unix(ticks/1e7, (ticks%1e7)*100).UTC()
}
