package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	ole "github.com/go-ole/go-ole"

	"github.com/wippyai/opc-classic"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseMemory     Phase = "memory"     // boundary allocation and conversion
	PhaseActivation Phase = "activation" // class lookup and instantiation
	PhaseCOM        Phase = "com"        // COM runtime and object identity
	PhaseClient     Phase = "client"     // facade calls into a server
	PhaseServer     Phase = "server"     // server object implementation
	PhaseEnumerate  Phase = "enumerate"  // enumerator objects
	PhaseBrowse     Phase = "browse"     // address space browsing
	PhaseMailbox    Phase = "mailbox"    // worker message passing
	PhaseConfig     Phase = "config"     // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindActivationFailure  Kind = "activation_failure"
	KindClassNotRegistered Kind = "class_not_registered"
	KindVersionUnsupported Kind = "version_unsupported"
	KindInterfaceMissing   Kind = "interface_missing"
	KindNotImplemented     Kind = "not_implemented"
	KindInvalidArgument    Kind = "invalid_argument"
	KindPointer            Kind = "pointer"
	KindOutOfMemory        Kind = "out_of_memory"
	KindMailboxClosed      Kind = "mailbox_closed"
	KindCancelled          Kind = "cancelled"
	KindForeign            Kind = "foreign"
	KindOverflow           Kind = "overflow"
	KindInvalidEnum        Kind = "invalid_enum"
	KindNotFound           Kind = "not_found"
	KindBadRights          Kind = "bad_rights"
	KindInvalidData        Kind = "invalid_data"
)

// defaultCodes maps each kind to the status code it reports when no
// explicit code was set.
var defaultCodes = map[Kind]opc.HRESULT{
	KindActivationFailure:  opc.E_FAIL,
	KindClassNotRegistered: opc.REGDB_E_CLASSNOTREG,
	KindVersionUnsupported: opc.E_NOINTERFACE,
	KindInterfaceMissing:   opc.E_NOINTERFACE,
	KindNotImplemented:     opc.E_NOTIMPL,
	KindInvalidArgument:    opc.E_INVALIDARG,
	KindPointer:            opc.E_POINTER,
	KindOutOfMemory:        opc.E_OUTOFMEMORY,
	KindMailboxClosed:      opc.E_ABORT,
	KindCancelled:          opc.E_ABORT,
	KindForeign:            opc.E_FAIL,
	KindOverflow:           opc.E_INVALIDARG,
	KindInvalidEnum:        opc.E_INVALIDARG,
	KindNotFound:           opc.E_INVALIDARG,
	KindBadRights:          opc.OPC_E_BADRIGHTS,
	KindInvalidData:        opc.E_INVALIDARG,
}

// Error is the structured error type used throughout the library
type Error struct {
	Value     any
	Cause     error
	Phase     Phase
	Kind      Kind
	Interface string
	Detail    string
	Path      []string
	Code      opc.HRESULT
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Interface != "" {
		b.WriteString(": interface ")
		b.WriteString(e.Interface)
	}

	if e.Detail != "" {
		if e.Interface != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Code != 0 && e.Code != defaultCodes[e.Kind] {
		b.WriteString(" [")
		b.WriteString(e.Code.String())
		b.WriteByte(']')
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. A target with an empty
// Phase matches on Kind alone. The overflow, invalid_enum, not_found and
// invalid_data kinds also match invalid_argument.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && e.Phase != t.Phase {
		return false
	}
	if e.Kind == t.Kind {
		return true
	}
	return t.Kind == KindInvalidArgument && argumentKinds[e.Kind]
}

var argumentKinds = map[Kind]bool{
	KindOverflow:    true,
	KindInvalidEnum: true,
	KindNotFound:    true,
	KindInvalidData: true,
}

// HRESULT returns the status code carried by the error.
func (e *Error) HRESULT() opc.HRESULT {
	if e.Code != 0 {
		return e.Code
	}
	if hr, ok := defaultCodes[e.Kind]; ok {
		return hr
	}
	return opc.E_FAIL
}

// Kind-only sentinels for errors.Is comparisons across phases.
var (
	ErrActivationFailure  = &Error{Kind: KindActivationFailure}
	ErrClassNotRegistered = &Error{Kind: KindClassNotRegistered}
	ErrVersionUnsupported = &Error{Kind: KindVersionUnsupported}
	ErrInterfaceMissing   = &Error{Kind: KindInterfaceMissing}
	ErrNotImplemented     = &Error{Kind: KindNotImplemented}
	ErrInvalidArgument    = &Error{Kind: KindInvalidArgument}
	ErrPointer            = &Error{Kind: KindPointer}
	ErrOutOfMemory        = &Error{Kind: KindOutOfMemory}
	ErrMailboxClosed      = &Error{Kind: KindMailboxClosed}
	ErrCancelled          = &Error{Kind: KindCancelled}
	ErrForeign            = &Error{Kind: KindForeign}
	ErrOverflow           = &Error{Kind: KindOverflow}
	ErrInvalidEnum        = &Error{Kind: KindInvalidEnum}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrBadRights          = &Error{Kind: KindBadRights}
	ErrInvalidData        = &Error{Kind: KindInvalidData}
)

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool { return stderrors.As(err, target) }

// Join returns an error that wraps the given errors.
func Join(errs ...error) error { return stderrors.Join(errs...) }

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the operation path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Interface sets the interface name involved
func (b *Builder) Interface(name string) *Builder {
	b.err.Interface = name
	return b
}

// Code overrides the status code
func (b *Builder) Code(hr opc.HRESULT) *Builder {
	b.err.Code = hr
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	e := b.err
	if e.Code == 0 {
		e.Code = e.HRESULT()
	}
	return &e
}

// Convenience constructors for common error patterns

// ActivationFailed creates an activation failure error
func ActivationFailed(detail string, cause error) *Error {
	return New(PhaseActivation, KindActivationFailure).Detail("%s", detail).Cause(cause).Build()
}

// ClassNotRegistered creates an error for an unknown class id
func ClassNotRegistered(clsid string) *Error {
	return New(PhaseActivation, KindClassNotRegistered).
		Value(clsid).
		Detail("class %s is not registered", clsid).
		Build()
}

// VersionUnsupported creates an error for a server that satisfies none of
// the requested versions
func VersionUnsupported(phase Phase, detail string) *Error {
	return New(phase, KindVersionUnsupported).Detail("%s", detail).Build()
}

// InterfaceMissing creates an error for a required interface that could not
// be obtained
func InterfaceMissing(phase Phase, iface string) *Error {
	return New(phase, KindInterfaceMissing).Interface(iface).Detail("required interface not available").Build()
}

// NotImplemented creates an error for an absent optional capability
func NotImplemented(phase Phase, iface string) *Error {
	return New(phase, KindNotImplemented).Interface(iface).Build()
}

// InvalidArgument creates an invalid argument error
func InvalidArgument(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidArgument,
		Path:   path,
		Detail: detail,
		Code:   opc.E_INVALIDARG,
	}
}

// NilPointer creates an error for a nil required out-parameter
func NilPointer(phase Phase, path ...string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindPointer,
		Path:   path,
		Detail: "nil pointer",
		Code:   opc.E_POINTER,
	}
}

// OutOfMemory creates an allocation failure error
func OutOfMemory(phase Phase, size uintptr) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfMemory,
		Detail: fmt.Sprintf("failed to allocate %d bytes", size),
		Value:  size,
		Code:   opc.E_OUTOFMEMORY,
	}
}

// Overflow creates an error for a length that does not fit the target width
func Overflow(phase Phase, value any, target string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Detail: fmt.Sprintf("value %v overflows %s", value, target),
		Value:  value,
		Code:   opc.E_INVALIDARG,
	}
}

// InvalidEnum creates an invalid enum value error
func InvalidEnum(phase Phase, value any, enumType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidEnum,
		Detail: fmt.Sprintf("invalid enum value %v for %s", value, enumType),
		Value:  value,
		Code:   opc.E_INVALIDARG,
	}
}

// NotFound creates an error for an unknown name or handle
func NotFound(phase Phase, what string, name any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %v not found", what, name),
		Value:  name,
		Code:   opc.E_INVALIDARG,
	}
}

// MailboxClosed creates an error for a send to a stopped worker
func MailboxClosed(name string) *Error {
	return &Error{
		Phase:  PhaseMailbox,
		Kind:   KindMailboxClosed,
		Detail: fmt.Sprintf("mailbox %s closed", name),
		Code:   opc.E_ABORT,
	}
}

// Cancelled creates a cancellation error
func Cancelled(phase Phase, cause error) *Error {
	return &Error{
		Phase: phase,
		Kind:  KindCancelled,
		Cause: cause,
		Code:  opc.E_ABORT,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return New(phase, kind).Detail("%s", detail).Cause(cause).Build()
}

// FromHRESULT converts a foreign status code into a typed error. It returns
// nil for success codes.
func FromHRESULT(phase Phase, hr opc.HRESULT, detail string) error {
	if hr.Succeeded() {
		return nil
	}
	kind := KindForeign
	switch hr {
	case opc.E_NOTIMPL:
		kind = KindNotImplemented
	case opc.E_NOINTERFACE:
		kind = KindInterfaceMissing
	case opc.E_INVALIDARG:
		kind = KindInvalidArgument
	case opc.E_POINTER:
		kind = KindPointer
	case opc.E_OUTOFMEMORY:
		kind = KindOutOfMemory
	case opc.REGDB_E_CLASSNOTREG, opc.CO_E_CLASSSTRING:
		kind = KindClassNotRegistered
	case opc.OPC_E_BADRIGHTS:
		kind = KindBadRights
	}
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Code:   hr,
	}
}

// HResult maps any error to the status code that represents it on the
// object boundary.
func HResult(err error) opc.HRESULT {
	if err == nil {
		return opc.S_OK
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.HRESULT()
	}
	var oe *ole.OleError
	if stderrors.As(err, &oe) {
		return opc.HRESULT(uint32(oe.Code()))
	}
	return opc.E_FAIL
}

// FromOle converts a go-ole error into a typed error, preserving its code.
func FromOle(phase Phase, err error, detail string) error {
	if err == nil {
		return nil
	}
	var oe *ole.OleError
	if !stderrors.As(err, &oe) {
		return Wrap(phase, KindForeign, err, detail)
	}
	e := FromHRESULT(phase, opc.HRESULT(uint32(oe.Code())), detail)
	if e == nil {
		return nil
	}
	e.(*Error).Cause = err
	return e
}
