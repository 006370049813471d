// Package kernel holds process-wide types shared by every subsystem of the
// virtual-memory core.
package kernel

// Error describes a kernel error; the packages of the kernel use Error
// values as panic payloads for fatal conditions. All kernel errors are defined
// as package-level variables that are pointers to Error; this avoids relying
// on the Go allocator (not yet available during early boot) the way
// errors.New would.
type Error struct {
	// Module names the subsystem where the error originated.
	Module string

	// Message is a short, human readable description of the error.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}
