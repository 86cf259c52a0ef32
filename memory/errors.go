package memory

import (
	"github.com/wippyai/opc-classic/errors"
)

func errOutOfMemory(size uintptr) error {
	return errors.OutOfMemory(errors.PhaseMemory, size)
}

func errNilPointer(what string) error {
	return errors.NilPointer(errors.PhaseMemory, what)
}
