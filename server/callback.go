package server

import (
	"go.uber.org/zap"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
	"github.com/wippyai/opc-classic/memory"
)

// Callback names used for logging and the notification counter.
const (
	kindDataChange     = "OnDataChange"
	kindReadComplete   = "OnReadComplete"
	kindWriteComplete  = "OnWriteComplete"
	kindCancelComplete = "OnCancelComplete"
)

// valueArrays are the parallel arrays passed to OnDataChange and
// OnReadComplete. They are owned by the server for the duration of the
// callback.
type valueArrays struct {
	alloc      memory.Allocator
	handles    []uint32
	values     []com.VARIANT
	qualities  []uint16
	timestamps []com.FILETIME
	errs       []opc.HRESULT
}

func newValueArrays(a memory.Allocator, ups []update) (*valueArrays, error) {
	n := len(ups)
	va := &valueArrays{
		alloc:      a,
		handles:    make([]uint32, n),
		values:     make([]com.VARIANT, n),
		qualities:  make([]uint16, n),
		timestamps: make([]com.FILETIME, n),
		errs:       make([]opc.HRESULT, n),
	}
	for i, u := range ups {
		va.handles[i] = u.clientHandle
		va.qualities[i] = u.sample.Quality
		va.timestamps[i] = com.FileTimeFromTime(u.sample.Timestamp)
		va.errs[i] = u.code
		if u.code.Failed() {
			continue
		}
		v, err := u.sample.Value.ToVARIANT(a)
		if err != nil {
			va.free()
			return nil, err
		}
		va.values[i] = v
	}
	return va, nil
}

func (va *valueArrays) free() {
	com.ClearVARIANTs(va.alloc, va.values)
}

// master returns the master quality and master error of the callback:
// S_FALSE when any quality is not good or any item failed.
func (va *valueArrays) master() (quality, errCode opc.HRESULT) {
	quality = opc.S_OK
	for _, q := range va.qualities {
		if q&da.QualityMask != da.QualityGood {
			quality = opc.S_FALSE
			break
		}
	}
	return quality, status(va.errs)
}

// deliverValues sends ups to every advised data callback as kind.
func (g *Group) deliverValues(kind string, txn, clientGroup uint32, ups []update) {
	cp, ok := g.callback()
	if !ok {
		return
	}
	va, err := newValueArrays(g.alloc, ups)
	if err != nil {
		Logger().Error("building callback values failed",
			zap.String("callback", kind),
			zap.Uint32("transaction", txn),
			zap.Error(err))
		return
	}
	defer va.free()

	mq, me := va.master()
	fanOut(cp, kind, func(sink da.DataCallback) error {
		if kind == kindReadComplete {
			return sink.OnReadComplete(txn, clientGroup, mq, me, va.handles, va.values, va.qualities, va.timestamps, va.errs)
		}
		return sink.OnDataChange(txn, clientGroup, mq, me, va.handles, va.values, va.qualities, va.timestamps, va.errs)
	})
	g.server.touch(g.server.opts.Clock())
}

// deliverWrite sends a write completion.
func (g *Group) deliverWrite(txn, clientGroup uint32, handles []uint32, codes []opc.HRESULT) {
	cp, ok := g.callback()
	if !ok {
		return
	}
	me := status(codes)
	fanOut(cp, kindWriteComplete, func(sink da.DataCallback) error {
		return sink.OnWriteComplete(txn, clientGroup, me, handles, codes)
	})
}

// deliverCancel sends a cancel completion.
func (g *Group) deliverCancel(txn, clientGroup uint32) {
	cp, ok := g.callback()
	if !ok {
		return
	}
	fanOut(cp, kindCancelComplete, func(sink da.DataCallback) error {
		return sink.OnCancelComplete(txn, clientGroup)
	})
}
