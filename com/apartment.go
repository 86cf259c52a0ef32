package com

import (
	stderrors "errors"
	"runtime"
	"sync"

	ole "github.com/go-ole/go-ole"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/errors"
)

// comRuntime is the per-thread COM library initialization.
type comRuntime interface {
	Initialize() error
	Uninitialize()
}

type oleRuntime struct{}

// Initialize enters the multi-threaded apartment. S_FALSE (already
// initialized) counts as success and still requires Uninitialize. On hosts
// without a COM runtime go-ole reports E_NOTIMPL, which is treated as an
// in-process apartment with nothing to tear down.
func (oleRuntime) Initialize() error {
	err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED)
	if err == nil {
		return nil
	}
	var oe *ole.OleError
	if stderrors.As(err, &oe) {
		switch opc.HRESULT(uint32(oe.Code())) {
		case opc.S_FALSE:
			return nil
		case opc.E_NOTIMPL:
			return errNoRuntime
		}
	}
	return errors.FromOle(errors.PhaseCOM, err, "CoInitializeEx")
}

func (oleRuntime) Uninitialize() { ole.CoUninitialize() }

var errNoRuntime = stderrors.New("no COM runtime on this host")

var (
	runtimeImpl comRuntime = oleRuntime{}

	threadsMu sync.Mutex
	threads   = map[uint64]*threadState{}
)

// threadState is the apartment latch of one OS thread.
type threadState struct {
	refs   int
	hosted bool
}

// Apartment is a scoped acquisition of the multi-threaded apartment on the
// current OS thread. The goroutine is locked to its thread until Release.
// Acquisitions nest: only the outermost Enter initializes the runtime and
// only the matching outermost Release tears it down.
type Apartment struct {
	tid      uint64
	tracked  bool
	hosted   bool
	released bool
}

// Enter acquires the apartment for the calling goroutine's thread.
func Enter() (*Apartment, error) {
	runtime.LockOSThread()

	tid, ok := threadID()
	if !ok {
		return enterUntracked()
	}

	threadsMu.Lock()
	defer threadsMu.Unlock()

	st := threads[tid]
	if st == nil {
		st = &threadState{}
		if err := runtimeImpl.Initialize(); err != nil {
			if !stderrors.Is(err, errNoRuntime) {
				runtime.UnlockOSThread()
				return nil, err
			}
		} else {
			st.hosted = true
		}
		threads[tid] = st
	}
	st.refs++
	return &Apartment{tid: tid, tracked: true, hosted: st.hosted}, nil
}

// enterUntracked is used where the thread id is unavailable; every
// acquisition pairs its own Initialize and Uninitialize.
func enterUntracked() (*Apartment, error) {
	err := runtimeImpl.Initialize()
	if err != nil && !stderrors.Is(err, errNoRuntime) {
		runtime.UnlockOSThread()
		return nil, err
	}
	return &Apartment{hosted: err == nil}, nil
}

// Release ends the acquisition. Release must run on the goroutine that
// called Enter; a second Release is a no-op.
func (a *Apartment) Release() {
	if a == nil || a.released {
		return
	}
	a.released = true
	defer runtime.UnlockOSThread()

	if !a.tracked {
		if a.hosted {
			runtimeImpl.Uninitialize()
		}
		return
	}

	threadsMu.Lock()
	defer threadsMu.Unlock()

	st := threads[a.tid]
	if st == nil {
		return
	}
	st.refs--
	if st.refs > 0 {
		return
	}
	delete(threads, a.tid)
	if st.hosted {
		runtimeImpl.Uninitialize()
	}
}

// WithApartment runs fn inside a scoped acquisition.
func WithApartment(fn func() error) error {
	apt, err := Enter()
	if err != nil {
		return err
	}
	defer apt.Release()
	return fn()
}

// Hosted reports whether a COM runtime backs the current thread's
// apartment.
func Hosted() bool {
	tid, ok := threadID()
	if !ok {
		return false
	}
	threadsMu.Lock()
	defer threadsMu.Unlock()
	st := threads[tid]
	return st != nil && st.hosted
}

// ThreadID returns the OS thread id of the caller where the platform
// exposes one.
func ThreadID() (uint64, bool) { return threadID() }
