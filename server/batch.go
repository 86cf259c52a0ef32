package server

import (
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/errors"
	"github.com/wippyai/opc-classic/memory"
)

// outputs collects the callee-allocated results of one call. Blocks and
// nested values are recorded as they are produced; abort releases them
// all, commit hands them to the caller.
type outputs struct {
	alloc  memory.Allocator
	blocks *memory.AllocationList
	undo   []func()
}

func newOutputs(a memory.Allocator) *outputs {
	return &outputs{alloc: a, blocks: memory.NewAllocationList(a)}
}

// onAbort registers fn to run if the call fails.
func (o *outputs) onAbort(fn func()) {
	o.undo = append(o.undo, fn)
}

func (o *outputs) abort() {
	for i := len(o.undo) - 1; i >= 0; i-- {
		o.undo[i]()
	}
	o.undo = nil
	o.blocks.Free()
}

func (o *outputs) commit() {
	o.undo = nil
	o.blocks.Reset()
}

// finish commits on success and aborts otherwise.
func (o *outputs) finish(err error) error {
	if err != nil {
		if errors.Is(err, errors.ErrOutOfMemory) {
			Logger().Error("out-parameter allocation failed", zap.Error(err))
		}
		o.abort()
		return err
	}
	o.commit()
	return nil
}

// array allocates n elements for out. A nil out is a pointer error.
func array[T any](o *outputs, n int, out **T, name string) ([]T, error) {
	if out == nil {
		return nil, errors.NilPointer(errors.PhaseServer, name)
	}
	*out = nil
	p, s, err := memory.AllocSlice[T](o.alloc, n)
	if err != nil {
		return nil, err
	}
	o.blocks.Add(unsafe.Pointer(p))
	*out = p
	return s, nil
}

// one allocates a single record.
func one[T any](o *outputs) (*T, error) {
	p, err := memory.Alloc[T](o.alloc)
	if err != nil {
		return nil, err
	}
	return memory.Track(o.blocks, p), nil
}

// variant exports v into dst and records it for release on abort.
func (o *outputs) variant(dst *com.VARIANT, v com.Variant) error {
	out, err := v.ToVARIANT(o.alloc)
	if err != nil {
		return err
	}
	*dst = out
	o.onAbort(func() { com.ClearVARIANT(o.alloc, dst) })
	return nil
}

// wstring allocates s and records it for release on abort.
func (o *outputs) wstring(s string) (*uint16, error) {
	p, err := memory.AllocWString(o.alloc, s)
	if err != nil {
		return nil, err
	}
	o.onAbort(func() { memory.FreeWString(o.alloc, p) })
	return p, nil
}

// codes writes a per-item status array.
func (o *outputs) codes(src []opc.HRESULT, out **opc.HRESULT) error {
	dst, err := array(o, len(src), out, "ppErrors")
	if err != nil {
		return err
	}
	copy(dst, src)
	return nil
}

// writeCodes allocates a per-item status array on its own.
func writeCodes(a memory.Allocator, src []opc.HRESULT, out **opc.HRESULT) error {
	o := newOutputs(a)
	return o.finish(o.codes(src, out))
}

// checkCount rejects empty batches and mismatched parallel inputs.
func checkCount(n int, others ...int) error {
	if n == 0 {
		return errors.InvalidArgument(errors.PhaseServer, nil, "empty batch")
	}
	if _, err := memory.Len32(n); err != nil {
		return err
	}
	for _, m := range others {
		if m != n {
			return errors.InvalidArgument(errors.PhaseServer, nil, "parallel inputs differ in length")
		}
	}
	return nil
}

// status reports whether any position failed, as S_OK or S_FALSE.
func status(codes []opc.HRESULT) opc.HRESULT {
	for _, c := range codes {
		if c.Failed() {
			return opc.S_FALSE
		}
	}
	return opc.S_OK
}
