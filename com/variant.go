package com

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unsafe"

	ole "github.com/go-ole/go-ole"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/errors"
	"github.com/wippyai/opc-classic/memory"
)

// VT is the variant type code.
type VT = ole.VT

// VARIANT is the tagged union exchanged with the COM runtime.
type VARIANT = ole.VARIANT

// The type codes a Variant can carry.
const (
	VT_EMPTY = ole.VT_EMPTY
	VT_NULL  = ole.VT_NULL
	VT_I2    = ole.VT_I2
	VT_I4    = ole.VT_I4
	VT_R4    = ole.VT_R4
	VT_R8    = ole.VT_R8
	VT_BSTR  = ole.VT_BSTR
	VT_BOOL  = ole.VT_BOOL
	VT_I1    = ole.VT_I1
	VT_UI1   = ole.VT_UI1
	VT_UI2   = ole.VT_UI2
	VT_UI4   = ole.VT_UI4
	VT_I8    = ole.VT_I8
	VT_UI8   = ole.VT_UI8
)

var vtNames = map[VT]string{
	VT_EMPTY: "empty",
	VT_NULL:  "null",
	VT_BOOL:  "bool",
	VT_I1:    "i1",
	VT_I2:    "i2",
	VT_I4:    "i4",
	VT_I8:    "i8",
	VT_UI1:   "ui1",
	VT_UI2:   "ui2",
	VT_UI4:   "ui4",
	VT_UI8:   "ui8",
	VT_R4:    "r4",
	VT_R8:    "r8",
	VT_BSTR:  "bstr",
}

// VTName returns the short name of a supported type code.
func VTName(vt VT) string {
	if n, ok := vtNames[vt]; ok {
		return n
	}
	return vt.String()
}

// VTByName resolves a short name ("r8", "bstr", ...) or alias ("float64",
// "string", ...) to a type code.
func VTByName(name string) (VT, error) {
	switch strings.ToLower(name) {
	case "", "empty":
		return VT_EMPTY, nil
	case "null":
		return VT_NULL, nil
	case "bool", "boolean":
		return VT_BOOL, nil
	case "i1", "int8":
		return VT_I1, nil
	case "i2", "int16":
		return VT_I2, nil
	case "i4", "int32", "int":
		return VT_I4, nil
	case "i8", "int64":
		return VT_I8, nil
	case "ui1", "uint8", "byte":
		return VT_UI1, nil
	case "ui2", "uint16":
		return VT_UI2, nil
	case "ui4", "uint32":
		return VT_UI4, nil
	case "ui8", "uint64":
		return VT_UI8, nil
	case "r4", "float32":
		return VT_R4, nil
	case "r8", "float64", "double":
		return VT_R8, nil
	case "bstr", "string":
		return VT_BSTR, nil
	}
	return 0, errors.InvalidEnum(errors.PhaseCOM, name, "VARTYPE")
}

// Supported reports whether vt is one of the scalar codes a Variant carries.
func Supported(vt VT) bool {
	_, ok := vtNames[vt]
	return ok
}

// Variant is a tagged scalar: empty, null, bool, signed and unsigned
// integers of 8 to 64 bits, float32, float64 or string.
type Variant struct {
	str  string
	bits uint64
	vt   VT
}

func Empty() Variant { return Variant{vt: VT_EMPTY} }
func Null() Variant { return Variant{vt: VT_NULL} }
func NewInt8(v int8) Variant { return Variant{vt: VT_I1, bits: uint64(int64(v))} }
func NewInt16(v int16) Variant { return Variant{vt: VT_I2, bits: uint64(int64(v))} }
func NewInt32(v int32) Variant { return Variant{vt: VT_I4, bits: uint64(int64(v))} }
func NewInt64(v int64) Variant { return Variant{vt: VT_I8, bits: uint64(v)} }
func NewUint8(v uint8) Variant { return Variant{vt: VT_UI1, bits: uint64(v)} }
func NewUint16(v uint16) Variant { return Variant{vt: VT_UI2, bits: uint64(v)} }
func NewUint32(v uint32) Variant { return Variant{vt: VT_UI4, bits: uint64(v)} }
func NewUint64(v uint64) Variant { return Variant{vt: VT_UI8, bits: v} }
func NewFloat32(v float32) Variant { return Variant{vt: VT_R4, bits: uint64(math.Float32bits(v))} }
func NewFloat64(v float64) Variant { return Variant{vt: VT_R8, bits: math.Float64bits(v)} }
func NewString(v string) Variant { return Variant{vt: VT_BSTR, str: v} }

// NewBool builds a boolean variant.
func NewBool(v bool) Variant {
	if v {
		return Variant{vt: VT_BOOL, bits: 1}
	}
	return Variant{vt: VT_BOOL}
}

// FromValue wraps a Go scalar.
func FromValue(v any) (Variant, error) {
	switch x := v.(type) {
	case nil:
		return Empty(), nil
	case Variant:
		return x, nil
	case bool:
		return NewBool(x), nil
	case int8:
		return NewInt8(x), nil
	case int16:
		return NewInt16(x), nil
	case int32:
		return NewInt32(x), nil
	case int:
		return NewInt64(int64(x)), nil
	case int64:
		return NewInt64(x), nil
	case uint8:
		return NewUint8(x), nil
	case uint16:
		return NewUint16(x), nil
	case uint32:
		return NewUint32(x), nil
	case uint:
		return NewUint64(uint64(x)), nil
	case uint64:
		return NewUint64(x), nil
	case float32:
		return NewFloat32(x), nil
	case float64:
		return NewFloat64(x), nil
	case string:
		return NewString(x), nil
	}
	return Variant{}, errors.New(errors.PhaseCOM, errors.KindInvalidArgument).
		Value(v).
		Detail("unsupported Go type %T", v).
		Build()
}

// Type returns the type code.
func (v Variant) Type() VT { return v.vt }

// IsEmpty reports whether v is VT_EMPTY.
func (v Variant) IsEmpty() bool { return v.vt == VT_EMPTY }

// IsNumeric reports whether v holds an integer or floating point value.
func (v Variant) IsNumeric() bool {
	switch v.vt {
	case VT_I1, VT_I2, VT_I4, VT_I8, VT_UI1, VT_UI2, VT_UI4, VT_UI8, VT_R4, VT_R8:
		return true
	}
	return false
}

// Value returns the Go scalar held by v, or nil for empty and null.
func (v Variant) Value() any {
	switch v.vt {
	case VT_BOOL:
		return v.bits != 0
	case VT_I1:
		return int8(v.bits)
	case VT_I2:
		return int16(v.bits)
	case VT_I4:
		return int32(v.bits)
	case VT_I8:
		return int64(v.bits)
	case VT_UI1:
		return uint8(v.bits)
	case VT_UI2:
		return uint16(v.bits)
	case VT_UI4:
		return uint32(v.bits)
	case VT_UI8:
		return v.bits
	case VT_R4:
		return math.Float32frombits(uint32(v.bits))
	case VT_R8:
		return math.Float64frombits(v.bits)
	case VT_BSTR:
		return v.str
	}
	return nil
}

// Float returns the numeric value as float64.
func (v Variant) Float() (float64, bool) {
	switch x := v.Value().(type) {
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// Equal reports whether v and o have the same type and value.
func (v Variant) Equal(o Variant) bool {
	return v.vt == o.vt && v.bits == o.bits && v.str == o.str
}

// String formats the value for display.
func (v Variant) String() string {
	switch v.vt {
	case VT_EMPTY:
		return "<empty>"
	case VT_NULL:
		return "<null>"
	case VT_BSTR:
		return v.str
	}
	return fmt.Sprint(v.Value())
}

// ConvertTo coerces v to vt. VT_EMPTY means the canonical type and returns
// v unchanged.
func (v Variant) ConvertTo(vt VT) (Variant, error) {
	if vt == VT_EMPTY || vt == v.vt {
		return v, nil
	}
	if !Supported(vt) {
		return Variant{}, errors.InvalidEnum(errors.PhaseCOM, vt, "VARTYPE")
	}
	if vt == VT_NULL {
		return Null(), nil
	}
	if v.vt == VT_EMPTY || v.vt == VT_NULL {
		return Variant{}, badType(v.vt, vt)
	}
	if vt == VT_BSTR {
		return NewString(v.String()), nil
	}
	if v.vt == VT_BSTR {
		return ParseVariant(vt, v.str)
	}
	if v.vt == VT_BOOL {
		if v.bits != 0 {
			return NewInt64(1).ConvertTo(vt)
		}
		return NewInt64(0).ConvertTo(vt)
	}

	f, _ := v.Float()
	if vt == VT_BOOL {
		return NewBool(f != 0), nil
	}
	if vt == VT_R4 {
		return NewFloat32(float32(f)), nil
	}
	if vt == VT_R8 {
		return NewFloat64(f), nil
	}
	if f != math.Trunc(f) {
		f = math.Round(f)
	}
	return fromNumber(vt, f, v)
}

func fromNumber(vt VT, f float64, src Variant) (Variant, error) {
	in := func(lo, hi float64) bool { return f >= lo && f <= hi }
	switch vt {
	case VT_I1:
		if in(math.MinInt8, math.MaxInt8) {
			return NewInt8(int8(f)), nil
		}
	case VT_I2:
		if in(math.MinInt16, math.MaxInt16) {
			return NewInt16(int16(f)), nil
		}
	case VT_I4:
		if in(math.MinInt32, math.MaxInt32) {
			return NewInt32(int32(f)), nil
		}
	case VT_I8:
		if src.vt == VT_UI8 && src.bits <= math.MaxInt64 {
			return NewInt64(int64(src.bits)), nil
		}
		if src.vt == VT_I8 {
			return src, nil
		}
		if f >= -(1<<63) && f < 1<<63 {
			return NewInt64(int64(f)), nil
		}
	case VT_UI1:
		if in(0, math.MaxUint8) {
			return NewUint8(uint8(f)), nil
		}
	case VT_UI2:
		if in(0, math.MaxUint16) {
			return NewUint16(uint16(f)), nil
		}
	case VT_UI4:
		if in(0, math.MaxUint32) {
			return NewUint32(uint32(f)), nil
		}
	case VT_UI8:
		if src.vt == VT_I8 && int64(src.bits) >= 0 {
			return NewUint64(src.bits), nil
		}
		if f >= 0 && f < 1<<64 {
			return NewUint64(uint64(f)), nil
		}
	}
	return Variant{}, errors.New(errors.PhaseCOM, errors.KindOverflow).
		Value(src.Value()).
		Detail("%s does not fit %s", src, VTName(vt)).
		Build()
}

func badType(from, to VT) error {
	return errors.New(errors.PhaseCOM, errors.KindInvalidArgument).
		Code(opc.OPC_E_BADTYPE).
		Detail("cannot convert %s to %s", VTName(from), VTName(to)).
		Build()
}

// ParseVariant parses text as a value of type vt.
func ParseVariant(vt VT, text string) (Variant, error) {
	text = strings.TrimSpace(text)
	fail := func(err error) (Variant, error) {
		return Variant{}, errors.New(errors.PhaseCOM, errors.KindInvalidArgument).
			Code(opc.OPC_E_BADTYPE).
			Cause(err).
			Detail("parse %q as %s", text, VTName(vt)).
			Build()
	}
	switch vt {
	case VT_EMPTY:
		return Empty(), nil
	case VT_NULL:
		return Null(), nil
	case VT_BSTR:
		return NewString(text), nil
	case VT_BOOL:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return fail(err)
		}
		return NewBool(b), nil
	case VT_I1, VT_I2, VT_I4, VT_I8:
		n, err := strconv.ParseInt(text, 0, bitSize(vt))
		if err != nil {
			return fail(err)
		}
		switch vt {
		case VT_I1:
			return NewInt8(int8(n)), nil
		case VT_I2:
			return NewInt16(int16(n)), nil
		case VT_I4:
			return NewInt32(int32(n)), nil
		}
		return NewInt64(n), nil
	case VT_UI1, VT_UI2, VT_UI4, VT_UI8:
		n, err := strconv.ParseUint(text, 0, bitSize(vt))
		if err != nil {
			return fail(err)
		}
		switch vt {
		case VT_UI1:
			return NewUint8(uint8(n)), nil
		case VT_UI2:
			return NewUint16(uint16(n)), nil
		case VT_UI4:
			return NewUint32(uint32(n)), nil
		}
		return NewUint64(n), nil
	case VT_R4:
		f, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return fail(err)
		}
		return NewFloat32(float32(f)), nil
	case VT_R8:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return fail(err)
		}
		return NewFloat64(f), nil
	}
	return Variant{}, errors.InvalidEnum(errors.PhaseCOM, vt, "VARTYPE")
}

func bitSize(vt VT) int {
	switch vt {
	case VT_I1, VT_UI1:
		return 8
	case VT_I2, VT_UI2:
		return 16
	case VT_I4, VT_UI4:
		return 32
	}
	return 64
}

// ToVARIANT exports v. String payloads are allocated as a BSTR through a
// and must be released with ClearVARIANT.
func (v Variant) ToVARIANT(a memory.Allocator) (VARIANT, error) {
	switch v.vt {
	case VT_EMPTY, VT_NULL:
		return ole.NewVariant(v.vt, 0), nil
	case VT_BOOL:
		if v.bits != 0 {
			return ole.NewVariant(VT_BOOL, -1), nil
		}
		return ole.NewVariant(VT_BOOL, 0), nil
	case VT_BSTR:
		p, err := memory.AllocBSTR(a, v.str)
		if err != nil {
			return VARIANT{}, err
		}
		return ole.NewVariant(VT_BSTR, int64(uintptr(unsafe.Pointer(p)))), nil
	}
	return ole.NewVariant(v.vt, int64(v.bits)), nil
}

// FromVARIANT imports a VARIANT. Unsupported type codes are an
// invalid_argument error.
func FromVARIANT(src *VARIANT) (Variant, error) {
	if src == nil {
		return Variant{}, errors.NilPointer(errors.PhaseCOM, "VARIANT")
	}
	val := src.Val
	switch src.VT {
	case VT_EMPTY:
		return Empty(), nil
	case VT_NULL:
		return Null(), nil
	case VT_BOOL:
		return NewBool(int16(val) != 0), nil
	case VT_I1:
		return NewInt8(int8(val)), nil
	case VT_I2:
		return NewInt16(int16(val)), nil
	case VT_I4:
		return NewInt32(int32(val)), nil
	case VT_I8:
		return NewInt64(val), nil
	case VT_UI1:
		return NewUint8(uint8(val)), nil
	case VT_UI2:
		return NewUint16(uint16(val)), nil
	case VT_UI4:
		return NewUint32(uint32(val)), nil
	case VT_UI8:
		return NewUint64(uint64(val)), nil
	case VT_R4:
		return NewFloat32(math.Float32frombits(uint32(val))), nil
	case VT_R8:
		return NewFloat64(math.Float64frombits(uint64(val))), nil
	case VT_BSTR:
		return NewString(memory.BSTRToString(bstrOf(src))), nil
	}
	return Variant{}, errors.InvalidEnum(errors.PhaseCOM, src.VT, "VARTYPE")
}

// ClearVARIANT releases any payload owned by v and resets it to VT_EMPTY.
func ClearVARIANT(a memory.Allocator, v *VARIANT) {
	if v == nil {
		return
	}
	if v.VT == VT_BSTR {
		memory.FreeBSTR(a, bstrOf(v))
	}
	*v = ole.NewVariant(VT_EMPTY, 0)
}

// ClearVARIANTs clears every element of vs.
func ClearVARIANTs(a memory.Allocator, vs []VARIANT) {
	for i := range vs {
		ClearVARIANT(a, &vs[i])
	}
}

func bstrOf(v *VARIANT) *uint16 {
	return *(**uint16)(unsafe.Pointer(&v.Val))
}
