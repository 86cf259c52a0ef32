// Package da defines the OPC Data Access object boundary: interface and
// category identifiers, the records that cross it, its enumerations and
// the contracts a server object implements.
//
// Records whose names match the DA IDL (ItemDef, ItemState, ...) have the
// IDL layout and carry *uint16 wide strings and VARIANT values. Arrays of
// them returned by a contract are callee-allocated and are released with
// the Free helpers in this package.
//
// The version-capability matrix (Matrix) states, for each of DA 1.0, 2.0
// and 3.0, which server and group interfaces are required, optional or
// unavailable.
package da
