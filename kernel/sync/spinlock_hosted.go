//go:build !riscv64

package sync

import "sync/atomic"

// archAcquireSpinlock busy-waits on a CAS loop, invoking yieldFn after
// attemptsBeforeYielding failed attempts so hosted tests can make progress
// on a single OS thread.
func archAcquireSpinlock(state *uint32, attemptsBeforeYielding uint32) {
	var attempts uint32
	for !atomic.CompareAndSwapUint32(state, 0, 1) {
		attempts++
		if attempts >= attemptsBeforeYielding && yieldFn != nil {
			attempts = 0
			yieldFn()
		}
	}
}
