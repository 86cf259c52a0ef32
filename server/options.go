package server

import (
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
	"github.com/wippyai/opc-classic/memory"
)

// Default registration names.
const (
	DefaultProgID       = "OPC.InMemory.1"
	DefaultVerIndProgID = "OPC.InMemory"
	DefaultUserType     = "In-memory OPC DA server"
	DefaultVendorInfo   = "opc-classic in-memory server"
)

// minTick bounds how often a group's update loop polls.
const minTick = 10 * time.Millisecond

// Options configures a Server. The zero value is usable.
type Options struct {
	// CLSID identifies the server class. A zero value is replaced with a
	// fresh random identifier by Register.
	CLSID        com.GUID
	ProgID       string
	VerIndProgID string
	UserType     string

	VendorInfo   string
	MajorVersion uint16
	MinorVersion uint16
	BuildNumber  uint16

	// Locales lists the locale identifiers IOPCCommon accepts. The first
	// entry is the initial locale. Defaults to system default and en-US.
	Locales []uint32

	// MinUpdateRate is the fastest group update rate in milliseconds.
	// Requested rates below it are revised up.
	MinUpdateRate uint32
	// MinSamplingRate is the fastest per-item sampling rate in milliseconds.
	MinSamplingRate uint32

	// Allocator allocates every out-parameter. Defaults to memory.Default.
	Allocator memory.Allocator

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider

	// Clock supplies timestamps for status records. Defaults to time.Now.
	Clock func() time.Time

	// Executor delivers asynchronous completions and data changes. When
	// nil every group gets its own serial worker goroutine.
	Executor Executor

	// DisablePolling stops groups from starting their update loop. Data
	// changes are then only produced by Group.Poll.
	DisablePolling bool
}

func (o Options) withDefaults() Options {
	if o.ProgID == "" {
		o.ProgID = DefaultProgID
	}
	if o.VerIndProgID == "" {
		o.VerIndProgID = DefaultVerIndProgID
	}
	if o.UserType == "" {
		o.UserType = DefaultUserType
	}
	if o.VendorInfo == "" {
		o.VendorInfo = DefaultVendorInfo
	}
	if o.MajorVersion == 0 && o.MinorVersion == 0 {
		o.MajorVersion, o.MinorVersion = 3, 0
	}
	if len(o.Locales) == 0 {
		o.Locales = []uint32{da.LocaleSystemDefault, da.LocaleEnglishUS}
	}
	o.Allocator = memory.OrDefault(o.Allocator)
	if o.TracerProvider == nil {
		o.TracerProvider = otel.GetTracerProvider()
	}
	if o.MeterProvider == nil {
		o.MeterProvider = otel.GetMeterProvider()
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

// reviseRate applies a lower bound to a requested rate.
func reviseRate(requested, floor uint32) uint32 {
	if requested < floor {
		return floor
	}
	return requested
}
