// Package config loads the YAML configuration of an opcda host.
//
// A file is decoded over Default, so every section is optional:
//
//	server:
//	  prog_id: Plant.Sim.1
//	  min_update_rate: 50
//	address_space:
//	  seed: plant.yaml
//	  nodes:
//	    - path: plant.tank.level
//	      type: r8
//	      value: "42.5"
//	mailbox:
//	  capacity: 64
//	  timeout: 5s
//	client:
//	  versions: [DA2.0, DA3.0]
//	log:
//	  level: debug
//
// Validation uses struct tags. Version names accept the forms
// opc.ParseVersion understands and class ids the forms com.ParseGUID
// understands. Node specs are checked with the address space rules.
//
// Watch reloads the file after it changes and hands each valid result to
// a callback. The host uses it to re-apply node values to a running
// address space.
package config
