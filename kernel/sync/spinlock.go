// Package sync provides the interrupt-aware spinlock primitives used to
// protect the kernel allocators' shared state (free lists, slab classes,
// vmalloc regions) across harts.
package sync

import (
	"sync/atomic"

	"vmkernel/kernel/arch"
)

var (
	// TODO: replace with real yield function when context-switching is implemented.
	yieldFn func()
)

// Spinlock implements a lock where each task trying to acquire it busy-waits
// till the lock becomes available. It does not touch interrupts; use
// IRQSpinlock for any state that is also accessed from interrupt context.
type Spinlock struct {
	state uint32
}

// Acquire blocks until the lock can be acquired by the currently active task.
// Any attempt to re-acquire a lock already held by the current task will
// deadlock.
func (l *Spinlock) Acquire() {
	archAcquireSpinlock(&l.state, 1)
}

// TryToAcquire attempts to acquire the lock and returns true if the lock
// could be acquired or false otherwise.
func (l *Spinlock) TryToAcquire() bool {
	return atomic.SwapUint32(&l.state, 1) == 0
}

// Release relinquishes a held lock, allowing other tasks to acquire it.
// Calling Release while the lock is free has no effect.
func (l *Spinlock) Release() {
	atomic.StoreUint32(&l.state, 0)
}

var (
	// the following are used by tests to mock calls into the arch package
	// and are automatically inlined by the compiler.
	isInterruptOnFn = arch.IsInterruptOn
	interruptOnFn   = arch.InterruptOn
	interruptOffFn  = arch.InterruptOff
)

// IRQSpinlock is a Spinlock that also disables local interrupts for the
// duration of the critical section. This is the lock every kernel allocator
// uses: a handler running on the same hart can never
// observe the allocator mid-mutation.
type IRQSpinlock struct {
	lock Spinlock

	// irqWasOn records, for the hart that currently holds the lock,
	// whether interrupts were enabled at the time Lock was called.
	irqWasOn bool
}

// Lock disables local interrupts and then acquires the underlying spinlock.
func (l *IRQSpinlock) Lock() {
	wasOn := isInterruptOnFn()
	interruptOffFn()
	l.lock.Acquire()
	l.irqWasOn = wasOn
}

// TryLock disables local interrupts and attempts to acquire the underlying
// spinlock without blocking. If acquisition fails, interrupts are restored
// to their prior state and TryLock returns false.
func (l *IRQSpinlock) TryLock() bool {
	wasOn := isInterruptOnFn()
	interruptOffFn()
	if !l.lock.TryToAcquire() {
		if wasOn {
			interruptOnFn()
		}
		return false
	}
	l.irqWasOn = wasOn
	return true
}

// Unlock releases the underlying spinlock and restores the interrupt-enable
// state sampled by the matching Lock/TryLock call.
func (l *IRQSpinlock) Unlock() {
	wasOn := l.irqWasOn
	l.lock.Release()
	if wasOn {
		interruptOnFn()
	}
}

// Guard acquires an IRQSpinlock on construction and releases it via a
// deferred call to Release, so every exit path of the critical section
// unlocks exactly once.
type Guard struct {
	l *IRQSpinlock
}

// NewGuard locks l and returns a Guard that will unlock it when Release is
// called. Callers should immediately defer g.Release().
func NewGuard(l *IRQSpinlock) Guard {
	l.Lock()
	return Guard{l: l}
}

// Release unlocks the guarded IRQSpinlock. Calling Release more than once
// has the same effect as calling IRQSpinlock.Unlock twice: undefined for a
// lock that does not tolerate it, so callers must only call it once.
func (g Guard) Release() {
	g.l.Unlock()
}
