package server

import (
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
	"github.com/wippyai/opc-classic/errors"
)

// asyncIO is the IOPCAsyncIO2 and IOPCAsyncIO3 face of a Group.
type asyncIO Group

func (v *asyncIO) group() *Group { return (*Group)(v) }

func (v *asyncIO) QueryInterface(iid *com.GUID) (com.Unknown, error) {
	return v.group().QueryInterface(iid)
}

// transaction is one pending asynchronous request, keyed by the cancel id
// the server issued for it.
type transaction struct {
	id        uint32
	cancelID  uint32
	cancelled bool
}

func errNoCallback() error {
	return errors.New(errors.PhaseServer, errors.KindForeign).
		Code(opc.CONNECT_E_NOCONNECTION).
		Detail("no IOPCDataCallback advised").
		Build()
}

// begin registers a transaction. The caller holds g.mu.
func (g *Group) begin(txn uint32) *transaction {
	g.nextCancel++
	if g.nextCancel == 0 {
		g.nextCancel++
	}
	t := &transaction{id: txn, cancelID: g.nextCancel}
	g.txns[t.cancelID] = t
	return t
}

// settle completes t. It reports false when t was cancelled or the group
// was removed, in which case no completion may be sent.
func (g *Group) settle(t *transaction) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if t.cancelled || g.dropped {
		return false
	}
	delete(g.txns, t.cancelID)
	return true
}

// slot is one accepted position of an asynchronous batch.
type slot struct {
	it  *item
	pos int
}

// prepare validates an asynchronous batch. It writes the preliminary
// error array, registers a transaction for the positions that passed and
// writes its cancel id. With no position passing, no transaction is
// created and the returned transaction is nil.
func (g *Group) prepare(txn uint32, handles []uint32, cancelID *uint32, errs **opc.HRESULT, check func(*item) opc.HRESULT) (*transaction, []slot, error) {
	if cancelID == nil {
		return nil, nil, errors.NilPointer(errors.PhaseServer, "pdwCancelID")
	}
	*cancelID = 0
	if _, ok := g.callback(); !ok {
		return nil, nil, errNoCallback()
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	items, codes, err := g.lookup(handles)
	if err != nil {
		return nil, nil, err
	}
	var accepted []slot
	for i, it := range items {
		if it == nil {
			continue
		}
		if check != nil {
			if codes[i] = check(it); codes[i].Failed() {
				continue
			}
		}
		accepted = append(accepted, slot{it: it, pos: i})
	}
	if err := writeCodes(g.alloc, codes, errs); err != nil {
		return nil, nil, err
	}
	if len(accepted) == 0 {
		return nil, nil, nil
	}
	t := g.begin(txn)
	*cancelID = t.cancelID
	return t, accepted, nil
}

func readable(it *item) opc.HRESULT {
	if it.node.AccessRights()&da.AccessReadable == 0 {
		return opc.OPC_E_BADRIGHTS
	}
	return opc.S_OK
}

func writeable(it *item) opc.HRESULT {
	if it.node.AccessRights()&da.AccessWriteable == 0 {
		return opc.OPC_E_BADRIGHTS
	}
	return opc.S_OK
}

// completeRead samples the accepted items when the job runs and sends
// OnReadComplete.
func (g *Group) completeRead(t *transaction, accepted []slot, source da.DataSource) {
	g.exec.Submit(func() {
		if !g.settle(t) {
			return
		}
		g.mu.Lock()
		ups := make([]update, len(accepted))
		for i, p := range accepted {
			smp, code := g.readSample(p.it, source)
			ups[i] = update{clientHandle: p.it.clientHandle, sample: smp, code: code}
		}
		cg := g.st.clientGroup
		g.mu.Unlock()
		g.deliverValues(kindReadComplete, t.id, cg, ups)
	})
}

// completeWrite applies the writes when the job runs and sends
// OnWriteComplete.
func (g *Group) completeWrite(t *transaction, accepted []slot, apply func(p slot) opc.HRESULT) {
	g.exec.Submit(func() {
		if !g.settle(t) {
			return
		}
		g.mu.Lock()
		handles := make([]uint32, len(accepted))
		codes := make([]opc.HRESULT, len(accepted))
		for i, p := range accepted {
			handles[i] = p.it.clientHandle
			codes[i] = apply(p)
		}
		cg := g.st.clientGroup
		g.mu.Unlock()
		g.deliverWrite(t.id, cg, handles, codes)
	})
}

// Read implements IOPCAsyncIO2.Read. The values are read from the device
// when the completion runs.
func (v *asyncIO) Read(serverHandles []uint32, transactionID uint32, cancelID *uint32, errs **opc.HRESULT) (err error) {
	g := v.group()
	defer g.tel.start("IOPCAsyncIO2.Read").end(&err)
	if err := checkCount(len(serverHandles)); err != nil {
		return err
	}
	t, accepted, err := g.prepare(transactionID, serverHandles, cancelID, errs, readable)
	if err != nil || t == nil {
		return err
	}
	g.completeRead(t, accepted, da.SourceDevice)
	return nil
}

// Write implements IOPCAsyncIO2.Write.
func (v *asyncIO) Write(serverHandles []uint32, values []com.VARIANT, transactionID uint32, cancelID *uint32, errs **opc.HRESULT) (err error) {
	g := v.group()
	defer g.tel.start("IOPCAsyncIO2.Write").end(&err)
	if err := checkCount(len(serverHandles), len(values)); err != nil {
		return err
	}
	t, accepted, err := g.prepare(transactionID, serverHandles, cancelID, errs, writeable)
	if err != nil || t == nil {
		return err
	}
	// The caller owns values only for the duration of this call.
	vals := make([]com.Variant, len(values))
	bad := make([]error, len(values))
	for _, p := range accepted {
		vals[p.pos], bad[p.pos] = com.FromVARIANT(&values[p.pos])
	}
	g.completeWrite(t, accepted, func(p slot) opc.HRESULT {
		if bad[p.pos] != nil {
			return itemCode(bad[p.pos])
		}
		if err := p.it.node.Write(vals[p.pos]); err != nil {
			return itemCode(err)
		}
		return opc.S_OK
	})
	return nil
}

// refresh queues an OnDataChange carrying every active item and the
// caller's transaction id. It fails when the group or all its items are
// inactive.
func (g *Group) refresh(source da.DataSource, txn uint32, cancelID *uint32) error {
	if cancelID == nil {
		return errors.NilPointer(errors.PhaseServer, "pdwCancelID")
	}
	*cancelID = 0
	if _, ok := g.callback(); !ok {
		return errNoCallback()
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.checkLive(); err != nil {
		return err
	}
	if !g.st.active {
		return errors.New(errors.PhaseServer, errors.KindInvalidArgument).
			Code(opc.E_FAIL).
			Detail("group is inactive").
			Build()
	}
	var accepted []slot
	for _, it := range g.items.Values() {
		if it.active {
			accepted = append(accepted, slot{it: it})
		}
	}
	if len(accepted) == 0 {
		return errors.New(errors.PhaseServer, errors.KindInvalidArgument).
			Code(opc.E_FAIL).
			Detail("group has no active items").
			Build()
	}
	t := g.begin(txn)
	*cancelID = t.cancelID

	g.exec.Submit(func() {
		if !g.settle(t) {
			return
		}
		g.mu.Lock()
		ups := make([]update, len(accepted))
		for i, p := range accepted {
			smp, code := g.readSample(p.it, source)
			p.it.markSent(smp)
			ups[i] = update{clientHandle: p.it.clientHandle, sample: smp, code: code}
		}
		cg := g.st.clientGroup
		g.mu.Unlock()
		g.deliverValues(kindDataChange, t.id, cg, ups)
	})
	return nil
}

// Refresh2 implements IOPCAsyncIO2.Refresh2. Refreshes are sent whether
// or not OnDataChange is enabled.
func (v *asyncIO) Refresh2(source da.DataSource, transactionID uint32, cancelID *uint32) (err error) {
	g := v.group()
	defer g.tel.start("IOPCAsyncIO2.Refresh2").end(&err)
	if !source.Valid() {
		return errors.InvalidEnum(errors.PhaseServer, uint32(source), "OPCDATASOURCE")
	}
	return g.refresh(source, transactionID, cancelID)
}

// Cancel2 implements IOPCAsyncIO2.Cancel2. A transaction that already
// completed or was cancelled cannot be cancelled and returns E_FAIL.
func (v *asyncIO) Cancel2(cancelID uint32) (err error) {
	g := v.group()
	defer g.tel.start("IOPCAsyncIO2.Cancel2").end(&err)

	g.mu.Lock()
	t, ok := g.txns[cancelID]
	if !ok {
		g.mu.Unlock()
		return errors.New(errors.PhaseServer, errors.KindInvalidArgument).
			Code(opc.E_FAIL).
			Value(cancelID).
			Detail("no pending transaction").
			Build()
	}
	t.cancelled = true
	delete(g.txns, cancelID)
	cg := g.st.clientGroup
	g.mu.Unlock()

	Logger().Debug("transaction cancelled",
		zap.Uint32("transaction", t.id),
		zap.Uint32("cancel_id", cancelID))
	g.exec.Submit(func() { g.deliverCancel(t.id, cg) })
	return nil
}

// SetEnable implements IOPCAsyncIO2.SetEnable. It gates OnDataChange from
// the update loop only.
func (v *asyncIO) SetEnable(enable com.BOOL) (err error) {
	g := v.group()
	defer g.tel.start("IOPCAsyncIO2.SetEnable").end(&err)
	if _, ok := g.callback(); !ok {
		return errNoCallback()
	}
	g.mu.Lock()
	g.enabled = enable.Bool()
	g.mu.Unlock()
	if enable.Bool() {
		g.kick()
	}
	return nil
}

// GetEnable implements IOPCAsyncIO2.GetEnable.
func (v *asyncIO) GetEnable(enable *com.BOOL) (err error) {
	g := v.group()
	defer g.tel.start("IOPCAsyncIO2.GetEnable").end(&err)
	if _, ok := g.callback(); !ok {
		return errNoCallback()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return writeOut(enable, com.BoolOf(g.enabled), "pbEnable")
}

// ReadMaxAge implements IOPCAsyncIO3.ReadMaxAge. Values always come from
// the address space, which satisfies any max age.
func (v *asyncIO) ReadMaxAge(serverHandles []uint32, maxAge []uint32, transactionID uint32, cancelID *uint32, errs **opc.HRESULT) (err error) {
	g := v.group()
	defer g.tel.start("IOPCAsyncIO3.ReadMaxAge").end(&err)
	if err := checkCount(len(serverHandles), len(maxAge)); err != nil {
		return err
	}
	t, accepted, err := g.prepare(transactionID, serverHandles, cancelID, errs, readable)
	if err != nil || t == nil {
		return err
	}
	g.completeRead(t, accepted, da.SourceDevice)
	return nil
}

// WriteVQT implements IOPCAsyncIO3.WriteVQT.
func (v *asyncIO) WriteVQT(serverHandles []uint32, vqts []da.ItemVQT, transactionID uint32, cancelID *uint32, errs **opc.HRESULT) (err error) {
	g := v.group()
	defer g.tel.start("IOPCAsyncIO3.WriteVQT").end(&err)
	if err := checkCount(len(serverHandles), len(vqts)); err != nil {
		return err
	}
	t, accepted, err := g.prepare(transactionID, serverHandles, cancelID, errs, writeable)
	if err != nil || t == nil {
		return err
	}
	type vqt struct {
		value   com.Variant
		bad     error
		quality *uint16
		ts      *time.Time
	}
	recs := make([]vqt, len(vqts))
	for _, p := range accepted {
		r := &vqts[p.pos]
		rec := &recs[p.pos]
		rec.value, rec.bad = com.FromVARIANT(&r.Value)
		q, ts := vqtParts(r)
		if q != nil {
			qv := *q
			rec.quality = &qv
		}
		rec.ts = ts
	}
	g.completeWrite(t, accepted, func(p slot) opc.HRESULT {
		r := recs[p.pos]
		if r.bad != nil {
			return itemCode(r.bad)
		}
		if err := p.it.node.WriteVQT(r.value, r.quality, r.ts); err != nil {
			return itemCode(err)
		}
		return opc.S_OK
	})
	return nil
}

// RefreshMaxAge implements IOPCAsyncIO3.RefreshMaxAge. Like ReadMaxAge it
// reads the address space for every max age.
func (v *asyncIO) RefreshMaxAge(maxAge uint32, transactionID uint32, cancelID *uint32) (err error) {
	g := v.group()
	defer g.tel.start("IOPCAsyncIO3.RefreshMaxAge").end(&err)
	return g.refresh(da.SourceDevice, transactionID, cancelID)
}
