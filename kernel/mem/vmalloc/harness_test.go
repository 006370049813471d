package vmalloc

import (
	"vmkernel/kernel/mem"
	"vmkernel/kernel/mem/vmm"
)

// useIdentityTranslation overrides both this package's and the page-table
// engine's PA<->VA translation seams with a numeric identity for the
// duration of a test, since tests run outside the real direct-map window.
// See vmm.SetTranslationForTesting.
func useIdentityTranslation() func() {
	restoreVMM := vmm.SetTranslationForTesting(
		func(pa mem.PA) mem.VA { return mem.VA(pa) },
		func(va mem.VA) mem.PA { return mem.PA(va) },
	)

	origPAtoVA, origVAtoPA := paToVAFn, vaToPAFn
	paToVAFn = func(pa mem.PA) mem.VA { return mem.VA(pa) }
	vaToPAFn = func(va mem.VA) mem.PA { return mem.PA(va) }

	return func() {
		paToVAFn, vaToPAFn = origPAtoVA, origVAtoPA
		restoreVMM()
	}
}
