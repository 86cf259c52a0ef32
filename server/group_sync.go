package server

import (
	"time"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/addrspace"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
	"github.com/wippyai/opc-classic/errors"
	"github.com/wippyai/opc-classic/memory"
	"github.com/wippyai/opc-classic/resource"
)

// syncIO is the IOPCSyncIO and IOPCSyncIO2 face of a Group.
type syncIO Group

func (v *syncIO) group() *Group { return (*Group)(v) }

func (v *syncIO) QueryInterface(iid *com.GUID) (com.Unknown, error) {
	return v.group().QueryInterface(iid)
}

// lookup resolves handles under the group lock. Unknown handles leave a
// nil item and E_INVALIDARG at their position.
func (g *Group) lookup(handles []uint32) ([]*item, []opc.HRESULT, error) {
	if err := g.checkLive(); err != nil {
		return nil, nil, err
	}
	items := make([]*item, len(handles))
	codes := make([]opc.HRESULT, len(handles))
	for i, h := range handles {
		it, ok := g.items.Get(resource.Handle(h))
		if !ok {
			codes[i] = opc.E_INVALIDARG
			continue
		}
		items[i] = it
	}
	return items, codes, nil
}

// readSample reads one item for a synchronous or asynchronous read.
// Cache reads of inactive items report out-of-service quality.
func (g *Group) readSample(it *item, source da.DataSource) (addrspace.Sample, opc.HRESULT) {
	smp, code := it.sample()
	if code.Succeeded() && source == da.SourceCache && (!g.st.active || !it.active) {
		smp.Quality = da.QualityBad | da.QualityOutOfService
	}
	return smp, code
}

// Read implements IOPCSyncIO.Read.
func (v *syncIO) Read(source da.DataSource, serverHandles []uint32, states **da.ItemState, errs **opc.HRESULT) (err error) {
	g := v.group()
	defer g.tel.start("IOPCSyncIO.Read").end(&err)
	if !source.Valid() {
		return errors.InvalidEnum(errors.PhaseServer, uint32(source), "OPCDATASOURCE")
	}
	if err := checkCount(len(serverHandles)); err != nil {
		return err
	}
	o := newOutputs(g.alloc)
	out, err := array(o, len(serverHandles), states, "ppItemValues")
	if err != nil {
		return o.finish(err)
	}
	codes, err := array(o, len(serverHandles), errs, "ppErrors")
	if err != nil {
		return o.finish(err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	items, pre, err := g.lookup(serverHandles)
	if err != nil {
		return o.finish(err)
	}
	for i, it := range items {
		codes[i] = pre[i]
		if it == nil {
			continue
		}
		out[i].ClientHandle = it.clientHandle
		smp, code := g.readSample(it, source)
		codes[i] = code
		if code.Failed() {
			continue
		}
		out[i].Timestamp = com.FileTimeFromTime(smp.Timestamp)
		out[i].Quality = smp.Quality
		if err := o.variant(&out[i].DataValue, smp.Value); err != nil {
			return o.finish(err)
		}
	}
	return o.finish(nil)
}

// writeItem applies one write. Quality and timestamp are optional.
func writeItem(it *item, value *com.VARIANT, quality *uint16, ts *time.Time) opc.HRESULT {
	return writeNode(it.node, value, quality, ts)
}

func writeNode(n *addrspace.Node, value *com.VARIANT, quality *uint16, ts *time.Time) opc.HRESULT {
	v, err := com.FromVARIANT(value)
	if err != nil {
		return itemCode(err)
	}
	if quality == nil && ts == nil {
		err = n.Write(v)
	} else {
		err = n.WriteVQT(v, quality, ts)
	}
	if err != nil {
		return itemCode(err)
	}
	return opc.S_OK
}

// vqtParts returns the optional quality and timestamp of a VQT record.
func vqtParts(r *da.ItemVQT) (*uint16, *time.Time) {
	var q *uint16
	var ts *time.Time
	if r.QualitySpecified.Bool() {
		q = &r.Quality
	}
	if r.TimestampSpecified.Bool() {
		t := r.Timestamp.Time()
		ts = &t
	}
	return q, ts
}

// Write implements IOPCSyncIO.Write. Values are converted to the node's
// canonical type; quality and timestamp are kept.
func (v *syncIO) Write(serverHandles []uint32, values []com.VARIANT, errs **opc.HRESULT) (err error) {
	g := v.group()
	defer g.tel.start("IOPCSyncIO.Write").end(&err)
	if err := checkCount(len(serverHandles), len(values)); err != nil {
		return err
	}
	return g.batch(serverHandles, errs, func(i int, it *item) opc.HRESULT {
		return writeItem(it, &values[i], nil, nil)
	})
}

// ReadMaxAge implements IOPCSyncIO2.ReadMaxAge. Values always come from
// the address space, which satisfies any max age.
func (v *syncIO) ReadMaxAge(serverHandles []uint32, maxAge []uint32, values **com.VARIANT, qualities **uint16, timestamps **com.FILETIME, errs **opc.HRESULT) (err error) {
	g := v.group()
	defer g.tel.start("IOPCSyncIO2.ReadMaxAge").end(&err)
	if err := checkCount(len(serverHandles), len(maxAge)); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	items, codes, err := g.lookup(serverHandles)
	if err != nil {
		return err
	}
	return readInto(g.alloc, codes, func(i int) (addrspace.Sample, opc.HRESULT) {
		return items[i].sample()
	}, values, qualities, timestamps, errs)
}

// WriteVQT implements IOPCSyncIO2.WriteVQT.
func (v *syncIO) WriteVQT(serverHandles []uint32, vqts []da.ItemVQT, errs **opc.HRESULT) (err error) {
	g := v.group()
	defer g.tel.start("IOPCSyncIO2.WriteVQT").end(&err)
	if err := checkCount(len(serverHandles), len(vqts)); err != nil {
		return err
	}
	return g.batch(serverHandles, errs, func(i int, it *item) opc.HRESULT {
		q, ts := vqtParts(&vqts[i])
		return writeItem(it, &vqts[i].Value, q, ts)
	})
}

// readInto fills the parallel outputs of a max-age read. read is called
// for every position whose code is still a success.
func readInto(a memory.Allocator, codes []opc.HRESULT, read func(i int) (addrspace.Sample, opc.HRESULT), values **com.VARIANT, qualities **uint16, timestamps **com.FILETIME, errs **opc.HRESULT) error {
	n := len(codes)
	o := newOutputs(a)
	vals, err := array(o, n, values, "ppvValues")
	if err != nil {
		return o.finish(err)
	}
	qs, err := array(o, n, qualities, "ppwQualities")
	if err != nil {
		return o.finish(err)
	}
	tss, err := array(o, n, timestamps, "ppftTimeStamps")
	if err != nil {
		return o.finish(err)
	}
	for i := range codes {
		if codes[i].Failed() {
			continue
		}
		smp, code := read(i)
		codes[i] = code
		if code.Failed() {
			continue
		}
		qs[i] = smp.Quality
		tss[i] = com.FileTimeFromTime(smp.Timestamp)
		if err := o.variant(&vals[i], smp.Value); err != nil {
			return o.finish(err)
		}
	}
	if err := o.codes(codes, errs); err != nil {
		return o.finish(err)
	}
	return o.finish(nil)
}
