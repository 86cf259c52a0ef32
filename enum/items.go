package enum

import (
	"slices"
	"unsafe"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
	"github.com/wippyai/opc-classic/memory"
)

var itemIfaces = com.InterfaceSet{&da.IID_IEnumOPCItemAttributes}

// AttributeSource yields the current attribute record of one item.
type AttributeSource interface {
	Attributes() da.Attributes
}

// ItemAttributes enumerates the items of a group. The set of items is
// fixed at creation; each record is read from its item when Next
// reaches it.
type ItemAttributes struct {
	cur   *cursor[AttributeSource]
	alloc memory.Allocator
}

var _ da.EnumItemAttributes = (*ItemAttributes)(nil)

// NewItemAttributes snapshots items. Records returned by Next are
// allocated through a.
func NewItemAttributes(a memory.Allocator, items []AttributeSource) *ItemAttributes {
	return &ItemAttributes{cur: newCursor(slices.Clone(items)), alloc: memory.OrDefault(a)}
}

func (e *ItemAttributes) QueryInterface(iid *com.GUID) (com.Unknown, error) {
	return itemIfaces.Query(e, iid)
}

// Next returns a callee-allocated array of up to count records in items.
func (e *ItemAttributes) Next(count uint32, items **da.ItemAttributes, fetched *uint32) opc.HRESULT {
	if items == nil {
		return opc.E_POINTER
	}
	*items = nil
	if fetched == nil && count != 1 {
		return opc.E_POINTER
	}
	if fetched != nil {
		*fetched = 0
	}

	batch := e.cur.take(count)
	if len(batch) == 0 {
		if count > 0 {
			return opc.S_FALSE
		}
		return opc.S_OK
	}

	base, out, err := memory.AllocSlice[da.ItemAttributes](e.alloc, len(batch))
	if err != nil {
		e.cur.rewind(len(batch))
		return opc.E_OUTOFMEMORY
	}
	for i, src := range batch {
		rec, err := src.Attributes().Export(e.alloc)
		if err != nil {
			da.FreeItemAttributes(e.alloc, out[:i])
			e.alloc.Free(unsafe.Pointer(base))
			e.cur.rewind(len(batch))
			return opc.E_OUTOFMEMORY
		}
		out[i] = rec
	}

	*items = base
	if fetched != nil {
		*fetched = uint32(len(batch))
	}
	if len(batch) < int(count) {
		return opc.S_FALSE
	}
	return opc.S_OK
}

func (e *ItemAttributes) Skip(count uint32) opc.HRESULT { return e.cur.skip(count) }

func (e *ItemAttributes) Reset() error {
	e.cur.reset()
	return nil
}

func (e *ItemAttributes) Clone() (da.EnumItemAttributes, error) {
	return &ItemAttributes{cur: e.cur.clone(), alloc: e.alloc}, nil
}
