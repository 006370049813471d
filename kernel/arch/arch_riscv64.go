// Package arch exposes the architecture HAL consumed by the rest of the
// kernel: TLB maintenance, the SATP page table base register, and the
// interrupt-enable flag. On riscv64 these are all one or two instructions,
// so the functions in this file have no Go body and are provided by the
// boot/trap assembly; they are declared here purely as the contract the
// core consumes. Hosted builds (go test on the development machine) use
// the Go fallbacks in arch_hosted.go instead.
package arch

import "vmkernel/kernel/mem"

// TLBFlush invalidates every TLB entry (an unqualified sfence.vma).
func TLBFlush()

// TLBFlushVA invalidates the TLB entry for a single virtual address
// (sfence.vma with the address operand set).
func TLBFlushVA(va mem.VA)

// GetPageTableBase returns the physical address of the currently active
// root page table, read back from the SATP register.
func GetPageTableBase() mem.PA

// SetPageTableBase installs pa as the root page table by writing SATP (Sv39
// mode) and then flushes the entire local TLB.
func SetPageTableBase(pa mem.PA)

// IsInterruptOn reports whether interrupts are currently enabled on this
// hart (the SIE bit of sstatus).
func IsInterruptOn() bool

// InterruptOn enables interrupts on this hart.
func InterruptOn()

// InterruptOff disables interrupts on this hart.
func InterruptOff()

// Halt stops instruction execution on this hart (wfi loop). It never
// returns.
func Halt()
