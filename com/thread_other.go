//go:build !linux && !windows

package com

func threadID() (uint64, bool) {
	return 0, false
}
