// Package errors provides structured error types for the OPC Classic binding.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). Every Error carries the HRESULT that represents it on the object
// boundary, so a Go error can always be turned back into a status code.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseServer, errors.KindInvalidArgument).
//		Path("AddGroup", "percent_deadband").
//		Value(deadband).
//		Detail("deadband must be within [0, 100]").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NotImplemented(errors.PhaseClient, "IOPCBrowse")
//	err := errors.FromHRESULT(errors.PhaseClient, hr, "AddItems")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
