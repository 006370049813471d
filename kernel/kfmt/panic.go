package kfmt

import (
	"vmkernel/kernel"
	"vmkernel/kernel/arch"
)

var (
	// cpuHaltFn is mocked by tests and is automatically inlined by the
	// compiler.
	cpuHaltFn = arch.Halt

	errRuntimePanic = &kernel.Error{Module: "rt", Message: "unknown cause"}
)

// Panic prints the cause of an unrecoverable error to the output sink and
// halts the hart. It never returns. Besides direct calls from kernel code,
// it is the redirect target for the runtime's own panic entry point, so a
// plain panic() anywhere in the kernel lands here.
//
//go:redirect-from runtime.gopanic
func Panic(e interface{}) {
	var err *kernel.Error

	switch cause := e.(type) {
	case *kernel.Error:
		err = cause
	case string:
		panicString(cause)
		return
	case error:
		errRuntimePanic.Message = cause.Error()
		err = errRuntimePanic
	}

	Printf("\n-----------------------------------\n")
	if err != nil {
		Printf("[%s] unrecoverable error: %s\n", err.Module, err.Message)
	}
	Printf("*** kernel panic: system halted ***")
	Printf("\n-----------------------------------\n")

	cpuHaltFn()
}

// panicString wraps a bare message into the runtime error value. It is the
// redirect target for runtime.throw.
//
//go:redirect-from runtime.throw
func panicString(msg string) {
	errRuntimePanic.Message = msg
	Panic(errRuntimePanic)
}
