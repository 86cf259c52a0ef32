package client

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/enum"
	"github.com/wippyai/opc-classic/errors"
	"github.com/wippyai/opc-classic/memory"
)

func TestStringIter_Chunks(t *testing.T) {
	heap := memory.NewHeapAllocator()
	want := make([]string, chunkSize*2+3)
	for i := range want {
		want[i] = fmt.Sprintf("tag%02d", i)
	}

	got, err := NewStringIter(enum.NewStrings(heap, want), heap).Collect()
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Zero(t, heap.Live())
}

func TestStringIter_EarlyStop(t *testing.T) {
	heap := memory.NewHeapAllocator()
	it := NewStringIter(enum.NewStrings(heap, []string{"a", "b", "c"}), heap)

	for s := range it.All() {
		assert.Equal(t, "a", s)
		break
	}
	rest, err := it.Collect()
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, rest)
}

func TestGUIDIter_Empty(t *testing.T) {
	got, err := NewGUIDIter(enum.NewGUIDs(nil)).Collect()
	require.NoError(t, err)
	assert.Empty(t, got)
}

// failingEnum returns one element and then fails.
type failingEnum struct {
	calls int
}

func (e *failingEnum) QueryInterface(iid *com.GUID) (com.Unknown, error) {
	return com.InterfaceSet{&com.IID_IEnumGUID}.Query(e, iid)
}

func (e *failingEnum) Next(count uint32, elements []com.GUID, fetched *uint32) opc.HRESULT {
	e.calls++
	if e.calls > 1 {
		*fetched = 0
		return opc.E_OUTOFMEMORY
	}
	elements[0] = com.IID_IUnknown
	*fetched = 1
	return opc.S_OK
}

func (e *failingEnum) Skip(uint32) opc.HRESULT { return opc.S_OK }
func (e *failingEnum) Reset() error { return nil }
func (e *failingEnum) Clone() (com.EnumGUID, error) { return e, nil }

func TestIter_Error(t *testing.T) {
	it := NewGUIDIter(&failingEnum{})
	got, err := it.Collect()
	assert.Equal(t, []com.GUID{com.IID_IUnknown}, got)
	assert.ErrorIs(t, err, errors.ErrOutOfMemory)

	_, ok := it.Next()
	assert.False(t, ok)
}
