package client

import (
	"iter"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/errors"
	"github.com/wippyai/opc-classic/memory"
)

// chunkSize is how many elements an iterator fetches per Next call on the
// underlying enumerator.
const chunkSize = 16

// Iter reads a foreign enumerator in chunks. It is not safe for
// concurrent use.
type Iter[T any] struct {
	fetch func(buf []T) (int, opc.HRESULT)
	buf   []T
	pos   int
	n     int
	done  bool
	err   error
}

// StringIter iterates an IEnumString, releasing each fetched string.
type StringIter = Iter[string]

// GUIDIter iterates an IEnumGUID.
type GUIDIter = Iter[com.GUID]

// UnknownIter iterates an IEnumUnknown.
type UnknownIter = Iter[com.Unknown]

// NewStringIter wraps e. Strings are decoded and released through alloc.
func NewStringIter(e com.EnumString, alloc memory.Allocator) *StringIter {
	raw := make([]*uint16, chunkSize)
	return &Iter[string]{
		buf: make([]string, chunkSize),
		fetch: func(buf []string) (int, opc.HRESULT) {
			var fetched uint32
			hr := e.Next(uint32(len(raw)), raw, &fetched)
			for i := range raw[:fetched] {
				buf[i] = memory.WStringToString(raw[i])
				memory.FreeWString(alloc, raw[i])
				raw[i] = nil
			}
			return int(fetched), hr
		},
	}
}

// NewGUIDIter wraps e.
func NewGUIDIter(e com.EnumGUID) *GUIDIter {
	return &Iter[com.GUID]{
		buf: make([]com.GUID, chunkSize),
		fetch: func(buf []com.GUID) (int, opc.HRESULT) {
			var fetched uint32
			hr := e.Next(uint32(len(buf)), buf, &fetched)
			return int(fetched), hr
		},
	}
}

// NewUnknownIter wraps e.
func NewUnknownIter(e com.EnumUnknown) *UnknownIter {
	return &Iter[com.Unknown]{
		buf: make([]com.Unknown, chunkSize),
		fetch: func(buf []com.Unknown) (int, opc.HRESULT) {
			var fetched uint32
			hr := e.Next(uint32(len(buf)), buf, &fetched)
			return int(fetched), hr
		},
	}
}

// Next returns the next element. It returns false at the end of the
// sequence or after an error; check Err.
func (it *Iter[T]) Next() (T, bool) {
	var zero T
	for it.pos >= it.n {
		if it.done {
			return zero, false
		}
		n, hr := it.fetch(it.buf)
		it.pos, it.n = 0, n
		switch {
		case hr.Failed():
			it.done = true
			it.err = errors.FromHRESULT(errors.PhaseEnumerate, hr, "enumerator Next")
			return zero, false
		case hr != opc.S_OK:
			it.done = true
		}
	}
	v := it.buf[it.pos]
	it.buf[it.pos] = zero
	it.pos++
	return v, true
}

// Err returns the error that ended the iteration, if any.
func (it *Iter[T]) Err() error { return it.err }

// All returns the remaining elements as a range-over-func sequence.
func (it *Iter[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, ok := it.Next()
			if !ok || !yield(v) {
				return
			}
		}
	}
}

// Collect drains the iterator.
func (it *Iter[T]) Collect() ([]T, error) {
	var out []T
	for v := range it.All() {
		out = append(out, v)
	}
	return out, it.Err()
}
