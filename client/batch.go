package client

import (
	"slices"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
	"github.com/wippyai/opc-classic/errors"
	"github.com/wippyai/opc-classic/memory"
)

// slot resolves an optional interface. A missing interface leaves the
// slot empty.
func slot[T any](unk com.Unknown, iid *com.GUID) (T, bool) {
	v, err := com.Query[T](unk, iid)
	return v, err == nil
}

func missing(iface string) error {
	return errors.NotImplemented(errors.PhaseClient, iface)
}

// take copies a callee-allocated array of n elements and releases it.
func take[T any](a memory.Allocator, p *T, n int) []T {
	arr := memory.AdoptArray(a, p, uint32(n))
	out := slices.Clone(arr.Slice())
	arr.Free()
	return out
}

func wstrings(ss []string) (*memory.LocalWStrings, error) {
	if len(ss) == 0 {
		return nil, errors.InvalidArgument(errors.PhaseClient, nil, "empty batch")
	}
	return memory.NewLocalWStrings(ss)
}

func wstring(s string) (*uint16, error) {
	w, err := memory.NewLocalWString(s)
	if err != nil {
		return nil, err
	}
	return w.PCWSTR(), nil
}

// optWString returns nil for the empty string.
func optWString(s string) (*uint16, error) {
	if s == "" {
		return nil, nil
	}
	return wstring(s)
}

// takeString decodes and releases a callee-allocated string.
func takeString(a memory.Allocator, p *uint16) string {
	s := memory.WStringToString(p)
	memory.FreeWString(a, p)
	return s
}

// exportVariants converts vs to boundary values. Release them with
// com.ClearVARIANTs.
func exportVariants(a memory.Allocator, vs []com.Variant) ([]com.VARIANT, error) {
	out := make([]com.VARIANT, len(vs))
	for i, v := range vs {
		x, err := v.ToVARIANT(a)
		if err != nil {
			com.ClearVARIANTs(a, out[:i])
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

func exportVQTs(a memory.Allocator, vqts []VQT) ([]da.ItemVQT, error) {
	out := make([]da.ItemVQT, len(vqts))
	for i, q := range vqts {
		v, err := q.Value.ToVARIANT(a)
		if err != nil {
			clearVQTs(a, out[:i])
			return nil, err
		}
		out[i].Value = v
		if q.Quality != nil {
			out[i].QualitySpecified = com.BoolOf(true)
			out[i].Quality = *q.Quality
		}
		if q.Timestamp != nil {
			out[i].TimestampSpecified = com.BoolOf(true)
			out[i].Timestamp = com.FileTimeFromTime(*q.Timestamp)
		}
	}
	return out, nil
}

func clearVQTs(a memory.Allocator, vqts []da.ItemVQT) {
	for i := range vqts {
		com.ClearVARIANT(a, &vqts[i].Value)
	}
}

// takeValues imports and releases the parallel read outputs of n items.
func takeValues(a memory.Allocator, n int, values *com.VARIANT, qualities *uint16, stamps *com.FILETIME, errs *opc.HRESULT) ([]ItemValue, []opc.HRESULT) {
	vs := memory.AdoptArray(a, values, uint32(n))
	qs := take(a, qualities, n)
	ts := take(a, stamps, n)
	codes := take(a, errs, n)

	out := make([]ItemValue, n)
	for i, raw := range vs.Slice() {
		if i < len(codes) && codes[i].Failed() {
			continue
		}
		v, err := com.FromVARIANT(&raw)
		if err != nil {
			codes[i] = errors.HResult(err)
			continue
		}
		out[i] = ItemValue{Value: v}
		if i < len(qs) {
			out[i].Quality = qs[i]
		}
		if i < len(ts) {
			out[i].Timestamp = ts[i].Time()
		}
	}
	com.ClearVARIANTs(a, vs.Slice())
	vs.Free()
	return out, codes
}

// importProperties copies a property list and releases it.
func importProperties(a memory.Allocator, rec *da.ItemProperties) ItemProperties {
	out := ItemProperties{Error: rec.Error}
	raw := memory.AdoptArray(a, rec.Properties, rec.NumProperties)
	for _, p := range raw.Slice() {
		prop := Property{
			ID:          p.PropertyID,
			Description: memory.WStringToString(p.Description),
			DataType:    p.DataType,
			ItemID:      memory.WStringToString(p.ItemID),
			Error:       p.Error,
		}
		if v, err := com.FromVARIANT(&p.Value); err == nil {
			prop.Value = v
		}
		out.Properties = append(out.Properties, prop)
	}
	da.FreeItemPropertyList(a, rec)
	return out
}
