//go:build !riscv64

package arch

import "vmkernel/kernel/mem"

// Hosted fallbacks for the asm-backed HAL, so packages built on top of it
// can be compiled and tested on the development machine. The interrupt flag
// and page table base are modelled as plain package state; TLB maintenance
// has nothing to invalidate and is a no-op.

var (
	hostedInterruptsOn  bool
	hostedPageTableBase mem.PA
)

// TLBFlush invalidates every TLB entry (an unqualified sfence.vma).
func TLBFlush() {}

// TLBFlushVA invalidates the TLB entry for a single virtual address
// (sfence.vma with the address operand set).
func TLBFlushVA(va mem.VA) {}

// GetPageTableBase returns the physical address of the currently active
// root page table, read back from the SATP register.
func GetPageTableBase() mem.PA {
	return hostedPageTableBase
}

// SetPageTableBase installs pa as the root page table by writing SATP (Sv39
// mode) and then flushes the entire local TLB.
func SetPageTableBase(pa mem.PA) {
	hostedPageTableBase = pa
}

// IsInterruptOn reports whether interrupts are currently enabled on this
// hart (the SIE bit of sstatus).
func IsInterruptOn() bool {
	return hostedInterruptsOn
}

// InterruptOn enables interrupts on this hart.
func InterruptOn() {
	hostedInterruptsOn = true
}

// InterruptOff disables interrupts on this hart.
func InterruptOff() {
	hostedInterruptsOn = false
}

// Halt stops instruction execution on this hart (wfi loop). The hosted
// version blocks forever instead.
func Halt() {
	select {}
}

func sbiCall(ext, fid int64, arg0, arg1, arg2, arg3, arg4, arg5 int64) (int64, int64) {
	return 0, 0
}
