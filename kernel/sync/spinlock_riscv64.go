package sync

// archAcquireSpinlock is an arch-specific implementation for acquiring the
// lock; it busy-waits, optionally yielding after attemptsBeforeYielding
// failed attempts. The riscv64 body lives in the boot/trap assembly.
func archAcquireSpinlock(state *uint32, attemptsBeforeYielding uint32)
