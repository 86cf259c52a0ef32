package server

import (
	"time"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/addrspace"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
	"github.com/wippyai/opc-classic/errors"
)

// item binds one address-space node into a group. Fields other than
// node, itemID and accessPath are guarded by the group mutex.
type item struct {
	node       *addrspace.Node
	itemID     string
	accessPath string

	handle       uint32
	clientHandle uint32
	requested    com.VT
	active       bool

	deadband     float32
	hasDeadband  bool
	samplingRate uint32
	hasSampling  bool
	buffered     bool

	sent      bool
	lastSent  addrspace.Sample
	sampledAt time.Time
}

func (it *item) clone() *item {
	return &item{
		node:         it.node,
		itemID:       it.itemID,
		accessPath:   it.accessPath,
		clientHandle: it.clientHandle,
		requested:    it.requested,
		active:       it.active,
		deadband:     it.deadband,
		hasDeadband:  it.hasDeadband,
		samplingRate: it.samplingRate,
		hasSampling:  it.hasSampling,
		buffered:     it.buffered,
	}
}

// attributes returns the item's attribute record.
func (it *item) attributes() da.Attributes {
	return da.Attributes{
		AccessPath:    it.accessPath,
		ItemID:        it.itemID,
		Active:        it.active,
		ClientHandle:  it.clientHandle,
		ServerHandle:  it.handle,
		AccessRights:  it.node.AccessRights(),
		RequestedType: it.requested,
		CanonicalType: it.node.CanonicalType(),
		EUType:        it.node.EUType(),
	}
}

// attributeSnapshot is a frozen attribute record for enumerators.
type attributeSnapshot da.Attributes

func (a attributeSnapshot) Attributes() da.Attributes { return da.Attributes(a) }

// sample reads the node and converts the value to the requested type.
// Unreadable nodes and failed conversions yield a per-item code.
func (it *item) sample() (addrspace.Sample, opc.HRESULT) {
	smp, err := it.node.Read()
	if err != nil {
		return addrspace.Sample{}, itemCode(err)
	}
	v, err := smp.Value.ConvertTo(it.requested)
	if err != nil {
		return addrspace.Sample{Quality: da.QualityBad, Timestamp: smp.Timestamp}, itemCode(err)
	}
	smp.Value = v
	return smp, opc.S_OK
}

// changed reports whether smp differs from the last delivered sample
// enough to be sent, given the group's percent deadband.
func (it *item) changed(smp addrspace.Sample, groupDeadband float32) bool {
	if !it.sent {
		return true
	}
	last := it.lastSent
	if smp.Quality != last.Quality {
		return true
	}
	if smp.Value.Equal(last.Value) {
		return false
	}
	db := groupDeadband
	if it.hasDeadband {
		db = it.deadband
	}
	if db <= 0 {
		return true
	}
	lo, hi, ok := it.node.EURange()
	if !ok {
		return true
	}
	now, ok1 := smp.Value.Float()
	prev, ok2 := last.Value.Float()
	if !ok1 || !ok2 {
		return true
	}
	diff := now - prev
	if diff < 0 {
		diff = -diff
	}
	return diff > float64(db)/100*(hi-lo)
}

// due reports whether an item with its own sampling rate should be
// sampled at now, and records the sample time when it is.
func (it *item) due(now time.Time) bool {
	if it.hasSampling && it.samplingRate > 0 && it.sent &&
		now.Sub(it.sampledAt) < time.Duration(it.samplingRate)*time.Millisecond {
		return false
	}
	it.sampledAt = now
	return true
}

func (it *item) markSent(smp addrspace.Sample) {
	it.sent = true
	it.lastSent = smp
}

// itemCode maps a per-item failure to the status code reported in an
// error array.
func itemCode(err error) opc.HRESULT {
	if errors.Is(err, errors.ErrOverflow) {
		return opc.OPC_E_RANGE
	}
	return errors.HResult(err)
}

// update is one item's contribution to a data callback.
type update struct {
	clientHandle uint32
	sample       addrspace.Sample
	code         opc.HRESULT
}
