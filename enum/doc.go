// Package enum implements the server side of the COM enumeration
// contracts: strings, objects, GUIDs, connection points, connections and
// OPC item attributes.
//
// Every enumerator is a cursor over a sequence that is captured when the
// enumerator is created and never changes afterwards. Clone copies the
// cursor and shares the sequence, so clones advance independently.
//
// Next fills up to count elements and reports S_FALSE when it produced
// fewer. Elements that own foreign memory (strings, item attributes) are
// materialized through the enumerator's allocator at the Next boundary
// and become the receiver's to free.
package enum
