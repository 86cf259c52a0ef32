//go:build windows

package com

import "golang.org/x/sys/windows"

func threadID() (uint64, bool) {
	return uint64(windows.GetCurrentThreadId()), true
}
