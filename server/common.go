package server

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/errors"
	"github.com/wippyai/opc-classic/memory"
)

// commonView is the IOPCCommon face of a Server.
type commonView Server

func (c *commonView) server() *Server { return (*Server)(c) }

func (c *commonView) QueryInterface(iid *com.GUID) (com.Unknown, error) {
	return c.server().QueryInterface(iid)
}

// SetLocaleID selects the locale for error strings and group defaults.
func (c *commonView) SetLocaleID(lcid uint32) (err error) {
	s := c.server()
	defer s.tel.start("IOPCCommon.SetLocaleID").end(&err)
	if !s.localeSupported(lcid) {
		return errors.InvalidArgument(errors.PhaseServer, nil, fmt.Sprintf("unsupported locale 0x%X", lcid))
	}
	s.mu.Lock()
	s.lcid = lcid
	s.mu.Unlock()
	return nil
}

func (c *commonView) GetLocaleID(lcid *uint32) (err error) {
	s := c.server()
	defer s.tel.start("IOPCCommon.GetLocaleID").end(&err)
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeOut(lcid, s.lcid, "pdwLcid")
}

func (c *commonView) QueryAvailableLocaleIDs(count *uint32, lcids **uint32) (err error) {
	s := c.server()
	defer s.tel.start("IOPCCommon.QueryAvailableLocaleIDs").end(&err)
	if count == nil {
		return errors.NilPointer(errors.PhaseServer, "pdwCount")
	}
	*count = 0
	o := newOutputs(s.alloc)
	dst, err := array(o, len(s.opts.Locales), lcids, "pdwLcid")
	if err != nil {
		return o.finish(err)
	}
	copy(dst, s.opts.Locales)
	*count = uint32(len(dst))
	return o.finish(nil)
}

// GetErrorString returns the text for code in the current locale.
func (c *commonView) GetErrorString(code opc.HRESULT, str **uint16) (err error) {
	s := c.server()
	defer s.tel.start("IOPCCommon.GetErrorString").end(&err)
	if str == nil {
		return errors.NilPointer(errors.PhaseServer, "ppString")
	}
	*str = nil
	return s.errorString(code, str)
}

func (c *commonView) SetClientName(name *uint16) (err error) {
	s := c.server()
	defer s.tel.start("IOPCCommon.SetClientName").end(&err)
	if name == nil {
		return errors.NilPointer(errors.PhaseServer, "szName")
	}
	n := memory.WStringToString(name)
	s.mu.Lock()
	s.clientName = n
	s.mu.Unlock()
	Logger().Debug("client name set", zap.String("client", n))
	return nil
}

// ClientName returns the name the client supplied through IOPCCommon.
func (s *Server) ClientName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientName
}

var errorTexts = map[opc.HRESULT]string{
	opc.S_OK:                           "The operation succeeded.",
	opc.S_FALSE:                        "The operation succeeded with partial results.",
	opc.E_NOTIMPL:                      "Not implemented.",
	opc.E_NOINTERFACE:                  "No such interface supported.",
	opc.E_POINTER:                      "Invalid pointer.",
	opc.E_ABORT:                        "Operation aborted.",
	opc.E_FAIL:                         "Unspecified error.",
	opc.E_UNEXPECTED:                   "Catastrophic failure.",
	opc.E_ACCESSDENIED:                 "General access denied error.",
	opc.E_OUTOFMEMORY:                  "Not enough memory is available to complete this operation.",
	opc.E_INVALIDARG:                   "The parameter is incorrect.",
	opc.REGDB_E_CLASSNOTREG:            "Class not registered.",
	opc.CO_E_CLASSSTRING:               "Invalid class string.",
	opc.CONNECT_E_NOCONNECTION:         "The client has no callback registered.",
	opc.CONNECT_E_ADVISELIMIT:          "The connection point has reached its limit of connections.",
	opc.CONNECT_E_CANNOTCONNECT:        "The sink does not support the interface of this connection point.",
	opc.OPC_E_INVALIDHANDLE:            "The value of the handle is invalid.",
	opc.OPC_E_BADTYPE:                  "The server cannot convert the data between the specified format and the requested data type.",
	opc.OPC_E_PUBLIC:                   "The requested operation cannot be done on a public group.",
	opc.OPC_E_BADRIGHTS:                "The item's access rights do not allow the operation.",
	opc.OPC_E_UNKNOWNITEMID:            "The item ID is not defined in the server address space.",
	opc.OPC_E_INVALIDITEMID:            "The item ID does not conform to the server's syntax.",
	opc.OPC_E_INVALIDFILTER:            "The filter string was not valid.",
	opc.OPC_E_UNKNOWNPATH:              "The item's access path is not known to the server.",
	opc.OPC_E_RANGE:                    "The value was out of range.",
	opc.OPC_E_DUPLICATENAME:            "Duplicate name not allowed.",
	opc.OPC_S_UNSUPPORTEDRATE:          "The server does not support the requested data rate but will use the closest available rate.",
	opc.OPC_S_CLAMP:                    "A value passed to write was accepted but the output was clamped.",
	opc.OPC_S_INUSE:                    "The operation cannot be performed because the object is being referenced.",
	opc.OPC_E_INVALIDCONFIGFILE:        "The server's configuration file is an invalid format.",
	opc.OPC_E_NOTFOUND:                 "The requested object was not found.",
	opc.OPC_E_INVALID_PID:              "The specified property ID is not valid for the item.",
	opc.OPC_E_DEADBANDNOTSET:           "The item deadband has not been set for this item.",
	opc.OPC_E_DEADBANDNOTSUPPORTED:     "The item does not support deadband.",
	opc.OPC_E_NOBUFFERING:              "The server does not support buffering of data items that are collected at a faster rate than the group update rate.",
	opc.OPC_E_INVALIDCONTINUATIONPOINT: "The continuation point is not valid.",
	opc.OPC_S_DATAQUEUEOVERFLOW:        "Not every detected change has been returned since the server's buffer reached its limit.",
	opc.OPC_E_RATENOTSET:               "There is no sampling rate set for the specified item.",
	opc.OPC_E_NOTSUPPORTED:             "The server does not support writing of quality and/or timestamp.",
}

// ErrorText returns the English description of code.
func ErrorText(code opc.HRESULT) (string, bool) {
	text, ok := errorTexts[code]
	return text, ok
}
