package server

import (
	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
)

// analog reports whether deadband applies to the item.
func (it *item) analog() bool {
	return it.node.EUType() == da.EUAnalog
}

// SetItemDeadband implements IOPCItemDeadbandMgt.SetItemDeadband. The
// item deadband overrides the group's percent deadband.
func (g *Group) SetItemDeadband(serverHandles []uint32, deadbands []float32, errs **opc.HRESULT) (err error) {
	defer g.tel.start("IOPCItemDeadbandMgt.SetItemDeadband").end(&err)
	if err := checkCount(len(serverHandles), len(deadbands)); err != nil {
		return err
	}
	return g.batch(serverHandles, errs, func(i int, it *item) opc.HRESULT {
		if checkDeadband(deadbands[i]) != nil {
			return opc.E_INVALIDARG
		}
		if !it.analog() {
			return opc.OPC_E_DEADBANDNOTSUPPORTED
		}
		it.deadband, it.hasDeadband = deadbands[i], true
		return opc.S_OK
	})
}

// GetItemDeadband implements IOPCItemDeadbandMgt.GetItemDeadband.
func (g *Group) GetItemDeadband(serverHandles []uint32, deadbands **float32, errs **opc.HRESULT) (err error) {
	defer g.tel.start("IOPCItemDeadbandMgt.GetItemDeadband").end(&err)
	if err := checkCount(len(serverHandles)); err != nil {
		return err
	}
	o := newOutputs(g.alloc)
	out, err := array(o, len(serverHandles), deadbands, "ppPercentDeadband")
	if err != nil {
		return o.finish(err)
	}
	return o.finish(g.eachItem(o, serverHandles, errs, func(i int, it *item) opc.HRESULT {
		if !it.analog() {
			return opc.OPC_E_DEADBANDNOTSUPPORTED
		}
		if !it.hasDeadband {
			return opc.OPC_E_DEADBANDNOTSET
		}
		out[i] = it.deadband
		return opc.S_OK
	}))
}

// ClearItemDeadband implements IOPCItemDeadbandMgt.ClearItemDeadband.
func (g *Group) ClearItemDeadband(serverHandles []uint32, errs **opc.HRESULT) (err error) {
	defer g.tel.start("IOPCItemDeadbandMgt.ClearItemDeadband").end(&err)
	return g.batch(serverHandles, errs, func(_ int, it *item) opc.HRESULT {
		if !it.analog() {
			return opc.OPC_E_DEADBANDNOTSUPPORTED
		}
		if !it.hasDeadband {
			return opc.OPC_E_DEADBANDNOTSET
		}
		it.deadband, it.hasDeadband = 0, false
		return opc.S_OK
	})
}

// SetItemSamplingRate implements IOPCItemSamplingMgt.SetItemSamplingRate.
// Rates below the server minimum are revised up and reported with
// OPC_S_UNSUPPORTEDRATE.
func (g *Group) SetItemSamplingRate(serverHandles []uint32, rates []uint32, revised **uint32, errs **opc.HRESULT) (err error) {
	defer g.tel.start("IOPCItemSamplingMgt.SetItemSamplingRate").end(&err)
	if err := checkCount(len(serverHandles), len(rates)); err != nil {
		return err
	}
	o := newOutputs(g.alloc)
	out, err := array(o, len(serverHandles), revised, "ppdwRevisedSamplingRate")
	if err != nil {
		return o.finish(err)
	}
	floor := g.server.opts.MinSamplingRate
	return o.finish(g.eachItem(o, serverHandles, errs, func(i int, it *item) opc.HRESULT {
		rate := reviseRate(rates[i], floor)
		it.samplingRate, it.hasSampling = rate, true
		out[i] = rate
		if rate != rates[i] {
			return opc.OPC_S_UNSUPPORTEDRATE
		}
		return opc.S_OK
	}))
}

// GetItemSamplingRate implements IOPCItemSamplingMgt.GetItemSamplingRate.
func (g *Group) GetItemSamplingRate(serverHandles []uint32, rates **uint32, errs **opc.HRESULT) (err error) {
	defer g.tel.start("IOPCItemSamplingMgt.GetItemSamplingRate").end(&err)
	if err := checkCount(len(serverHandles)); err != nil {
		return err
	}
	o := newOutputs(g.alloc)
	out, err := array(o, len(serverHandles), rates, "ppdwSamplingRate")
	if err != nil {
		return o.finish(err)
	}
	return o.finish(g.eachItem(o, serverHandles, errs, func(i int, it *item) opc.HRESULT {
		if !it.hasSampling {
			return opc.OPC_E_RATENOTSET
		}
		out[i] = it.samplingRate
		return opc.S_OK
	}))
}

// ClearItemSamplingRate implements IOPCItemSamplingMgt.ClearItemSamplingRate.
// The item reverts to the group update rate.
func (g *Group) ClearItemSamplingRate(serverHandles []uint32, errs **opc.HRESULT) (err error) {
	defer g.tel.start("IOPCItemSamplingMgt.ClearItemSamplingRate").end(&err)
	return g.batch(serverHandles, errs, func(_ int, it *item) opc.HRESULT {
		if !it.hasSampling {
			return opc.OPC_E_RATENOTSET
		}
		it.samplingRate, it.hasSampling = 0, false
		return opc.S_OK
	})
}

// SetItemBufferEnable implements IOPCItemSamplingMgt.SetItemBufferEnable.
// The flag is stored; values are never queued between updates.
func (g *Group) SetItemBufferEnable(serverHandles []uint32, enable []com.BOOL, errs **opc.HRESULT) (err error) {
	defer g.tel.start("IOPCItemSamplingMgt.SetItemBufferEnable").end(&err)
	if err := checkCount(len(serverHandles), len(enable)); err != nil {
		return err
	}
	return g.batch(serverHandles, errs, func(i int, it *item) opc.HRESULT {
		it.buffered = enable[i].Bool()
		return opc.S_OK
	})
}

// GetItemBufferEnable implements IOPCItemSamplingMgt.GetItemBufferEnable.
func (g *Group) GetItemBufferEnable(serverHandles []uint32, enable **com.BOOL, errs **opc.HRESULT) (err error) {
	defer g.tel.start("IOPCItemSamplingMgt.GetItemBufferEnable").end(&err)
	if err := checkCount(len(serverHandles)); err != nil {
		return err
	}
	o := newOutputs(g.alloc)
	out, err := array(o, len(serverHandles), enable, "ppbEnable")
	if err != nil {
		return o.finish(err)
	}
	return o.finish(g.eachItem(o, serverHandles, errs, func(i int, it *item) opc.HRESULT {
		out[i] = com.BoolOf(it.buffered)
		return opc.S_OK
	}))
}

