package server

import (
	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/addrspace"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
	"github.com/wippyai/opc-classic/memory"
)

// resolveItems looks up item identifiers for IOPCItemIO. Unknown
// identifiers and branches report OPC_E_UNKNOWNITEMID.
func (s *Server) resolveItems(itemIDs []*uint16) ([]*addrspace.Node, []opc.HRESULT) {
	nodes := make([]*addrspace.Node, len(itemIDs))
	codes := make([]opc.HRESULT, len(itemIDs))
	for i, id := range itemIDs {
		n, ok := s.space.Lookup(memory.WStringToString(id))
		if !ok || !n.IsItem() {
			codes[i] = opc.OPC_E_UNKNOWNITEMID
			continue
		}
		nodes[i] = n
	}
	return nodes, codes
}

// Read implements IOPCItemIO.Read. Values come straight from the address
// space and satisfy any max age.
func (s *Server) Read(itemIDs []*uint16, maxAge []uint32, values **com.VARIANT, qualities **uint16, timestamps **com.FILETIME, errs **opc.HRESULT) (err error) {
	defer s.tel.start("IOPCItemIO.Read").end(&err)
	if err := checkCount(len(itemIDs), len(maxAge)); err != nil {
		return err
	}
	if err := s.checkLive(); err != nil {
		return err
	}
	nodes, codes := s.resolveItems(itemIDs)
	return readInto(s.alloc, codes, func(i int) (addrspace.Sample, opc.HRESULT) {
		smp, err := nodes[i].Read()
		if err != nil {
			return addrspace.Sample{}, itemCode(err)
		}
		return smp, opc.S_OK
	}, values, qualities, timestamps, errs)
}

// WriteVQT implements IOPCItemIO.WriteVQT.
func (s *Server) WriteVQT(itemIDs []*uint16, vqts []da.ItemVQT, errs **opc.HRESULT) (err error) {
	defer s.tel.start("IOPCItemIO.WriteVQT").end(&err)
	if err := checkCount(len(itemIDs), len(vqts)); err != nil {
		return err
	}
	if err := s.checkLive(); err != nil {
		return err
	}
	nodes, codes := s.resolveItems(itemIDs)
	for i, n := range nodes {
		if n == nil {
			continue
		}
		q, ts := vqtParts(&vqts[i])
		codes[i] = writeNode(n, &vqts[i].Value, q, ts)
	}
	return writeCodes(s.alloc, codes, errs)
}
