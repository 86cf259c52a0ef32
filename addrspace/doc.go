// Package addrspace is the in-memory address space a server exposes: a
// tree of named nodes, each holding a value, a quality word, a timestamp
// and access rights.
//
// Item identifiers are node paths joined with the space separator ("." by
// default), so "plant.tank.level" names the level node under tank under
// plant. A node owns its children; the link back to its parent is weak.
//
// Every node has its own reader-writer lock covering its sample and its
// child list. Reads of different nodes never contend, and a writer
// excludes only readers of the same node.
//
// A space can be seeded from YAML:
//
//	separator: "."
//	nodes:
//	  - path: plant.tank.level
//	    type: r8
//	    value: "42.5"
//	    access: rw
//	    description: Tank level in percent
package addrspace
