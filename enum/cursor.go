package enum

import (
	"sync"

	"github.com/wippyai/opc-classic"
)

// cursor is a position over a shared, immutable sequence.
type cursor[S any] struct {
	items []S
	mu    sync.Mutex
	pos   int
}

func newCursor[S any](items []S) *cursor[S] {
	return &cursor[S]{items: items}
}

// take advances over up to count elements and returns them.
func (c *cursor[S]) take(count uint32) []S {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := min(uint64(count), uint64(len(c.items)-c.pos))
	batch := c.items[c.pos : c.pos+int(n)]
	c.pos += int(n)
	return batch
}

// rewind moves the cursor back by n after a failed materialization.
func (c *cursor[S]) rewind(n int) {
	c.mu.Lock()
	c.pos -= n
	c.mu.Unlock()
}

func (c *cursor[S]) skip(count uint32) opc.HRESULT {
	c.mu.Lock()
	defer c.mu.Unlock()
	remaining := uint64(len(c.items) - c.pos)
	if uint64(count) > remaining {
		c.pos = len(c.items)
		return opc.S_FALSE
	}
	c.pos += int(count)
	return opc.S_OK
}

func (c *cursor[S]) reset() {
	c.mu.Lock()
	c.pos = 0
	c.mu.Unlock()
}

func (c *cursor[S]) clone() *cursor[S] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &cursor[S]{items: c.items, pos: c.pos}
}

func (c *cursor[S]) len() int { return len(c.items) }

// checkNext validates the arguments shared by every Next.
func checkNext(count uint32, capacity int, fetched *uint32) opc.HRESULT {
	if fetched == nil && count != 1 {
		return opc.E_POINTER
	}
	if uint64(capacity) < uint64(count) {
		return opc.E_INVALIDARG
	}
	return opc.S_OK
}

// nextInto copies the next batch into out, converting each element with
// emit. If emit fails, already emitted elements are released with drop,
// the cursor is restored and E_OUTOFMEMORY is returned.
func nextInto[S, T any](c *cursor[S], count uint32, out []T, fetched *uint32, emit func(S) (T, error), drop func(T)) opc.HRESULT {
	if hr := checkNext(count, len(out), fetched); hr != opc.S_OK {
		return hr
	}
	if fetched != nil {
		*fetched = 0
	}
	batch := c.take(count)
	for i, s := range batch {
		v, err := emit(s)
		if err != nil {
			if drop != nil {
				for j := range i {
					drop(out[j])
				}
			}
			clear(out[:i])
			c.rewind(len(batch))
			return opc.E_OUTOFMEMORY
		}
		out[i] = v
	}
	if fetched != nil {
		*fetched = uint32(len(batch))
	}
	if len(batch) < int(count) {
		return opc.S_FALSE
	}
	return opc.S_OK
}

func identity[T any](v T) (T, error) { return v, nil }
