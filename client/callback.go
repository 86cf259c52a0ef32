package client

import (
	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
	"github.com/wippyai/opc-classic/memory"
)

// DataChange is one OnDataChange or OnReadComplete notification. The
// slices are owned by the receiver.
type DataChange struct {
	TransactionID uint32
	Group         uint32
	MasterQuality opc.HRESULT
	MasterError   opc.HRESULT
	Items         []ItemState
	Errors        []opc.HRESULT
}

// WriteComplete is one OnWriteComplete notification.
type WriteComplete struct {
	TransactionID uint32
	Group         uint32
	MasterError   opc.HRESULT
	ClientHandles []uint32
	Errors        []opc.HRESULT
}

// DataHandler receives group notifications. Methods are called on the
// server's delivery goroutine and must not block for long.
type DataHandler interface {
	OnDataChange(DataChange)
	OnReadComplete(DataChange)
	OnWriteComplete(WriteComplete)
	OnCancelComplete(transactionID, group uint32)
}

// DataHandlerFuncs adapts functions to DataHandler. Nil fields ignore the
// notification.
type DataHandlerFuncs struct {
	DataChange     func(DataChange)
	ReadComplete   func(DataChange)
	WriteComplete  func(WriteComplete)
	CancelComplete func(transactionID, group uint32)
}

func (f DataHandlerFuncs) OnDataChange(c DataChange) {
	if f.DataChange != nil {
		f.DataChange(c)
	}
}

func (f DataHandlerFuncs) OnReadComplete(c DataChange) {
	if f.ReadComplete != nil {
		f.ReadComplete(c)
	}
}

func (f DataHandlerFuncs) OnWriteComplete(c WriteComplete) {
	if f.WriteComplete != nil {
		f.WriteComplete(c)
	}
}

func (f DataHandlerFuncs) OnCancelComplete(txn, group uint32) {
	if f.CancelComplete != nil {
		f.CancelComplete(txn, group)
	}
}

// dataSink is the IOPCDataCallback a group advises. It copies the
// server-owned arguments into native values before calling the handler.
type dataSink struct {
	h DataHandler
}

var dataSinkInterfaces = com.InterfaceSet{&da.IID_IOPCDataCallback}

func (s *dataSink) QueryInterface(iid *com.GUID) (com.Unknown, error) {
	return dataSinkInterfaces.Query(s, iid)
}

func importChange(txn, group uint32, quality, master opc.HRESULT, handles []uint32, values []com.VARIANT, qualities []uint16, stamps []com.FILETIME, errs []opc.HRESULT) DataChange {
	c := DataChange{
		TransactionID: txn,
		Group:         group,
		MasterQuality: quality,
		MasterError:   master,
		Items:         make([]ItemState, len(handles)),
		Errors:        append([]opc.HRESULT(nil), errs...),
	}
	for i, h := range handles {
		st := ItemState{ClientHandle: h}
		if i < len(values) {
			if v, err := com.FromVARIANT(&values[i]); err == nil {
				st.Value = v
			}
		}
		if i < len(qualities) {
			st.Quality = qualities[i]
		}
		if i < len(stamps) {
			st.Timestamp = stamps[i].Time()
		}
		c.Items[i] = st
	}
	return c
}

func (s *dataSink) OnDataChange(txn uint32, group uint32, quality opc.HRESULT, master opc.HRESULT, handles []uint32, values []com.VARIANT, qualities []uint16, stamps []com.FILETIME, errs []opc.HRESULT) error {
	s.h.OnDataChange(importChange(txn, group, quality, master, handles, values, qualities, stamps, errs))
	return nil
}

func (s *dataSink) OnReadComplete(txn uint32, group uint32, quality opc.HRESULT, master opc.HRESULT, handles []uint32, values []com.VARIANT, qualities []uint16, stamps []com.FILETIME, errs []opc.HRESULT) error {
	s.h.OnReadComplete(importChange(txn, group, quality, master, handles, values, qualities, stamps, errs))
	return nil
}

func (s *dataSink) OnWriteComplete(txn uint32, group uint32, master opc.HRESULT, handles []uint32, errs []opc.HRESULT) error {
	s.h.OnWriteComplete(WriteComplete{
		TransactionID: txn,
		Group:         group,
		MasterError:   master,
		ClientHandles: append([]uint32(nil), handles...),
		Errors:        append([]opc.HRESULT(nil), errs...),
	})
	return nil
}

func (s *dataSink) OnCancelComplete(txn uint32, group uint32) error {
	s.h.OnCancelComplete(txn, group)
	return nil
}

// shutdownSink is the IOPCShutdown a server advises.
type shutdownSink struct {
	fn func(reason string)
}

var shutdownSinkInterfaces = com.InterfaceSet{&da.IID_IOPCShutdown}

func (s *shutdownSink) QueryInterface(iid *com.GUID) (com.Unknown, error) {
	return shutdownSinkInterfaces.Query(s, iid)
}

func (s *shutdownSink) ShutdownRequest(reason *uint16) error {
	s.fn(memory.WStringToString(reason))
	return nil
}

var (
	_ da.DataCallback = (*dataSink)(nil)
	_ da.Shutdown     = (*shutdownSink)(nil)
)
