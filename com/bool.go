package com

// BOOL is the 32-bit Win32 boolean.
type BOOL int32

const (
	FALSE BOOL = 0
	TRUE  BOOL = 1
)

// BoolOf converts b.
func BoolOf(b bool) BOOL {
	if b {
		return TRUE
	}
	return FALSE
}

// Bool reports whether b is non-zero.
func (b BOOL) Bool() bool { return b != 0 }
