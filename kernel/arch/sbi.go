package arch

import "vmkernel/kernel/mem"

// SBI RFENCE extension, used to broadcast TLB shootdowns to other harts.
const (
	sbiExtRFENCE           = 0x52464E43
	sbiFuncRemoteSFenceVMA = 1
	sbiBroadcastAllHarts   = -1
)

// RemoteTLBFlush broadcasts a full TLB invalidation to every other hart via
// the SBI RFENCE extension.
func RemoteTLBFlush() {
	sbiCall(sbiExtRFENCE, sbiFuncRemoteSFenceVMA, sbiBroadcastAllHarts, 0, 0, 0, 0, 0)
}

// RemoteTLBFlushRange broadcasts invalidation of the TLB entries covering
// [va, va+length) to every other hart via the SBI RFENCE extension.
func RemoteTLBFlushRange(va mem.VA, length mem.Size) {
	sbiCall(sbiExtRFENCE, sbiFuncRemoteSFenceVMA, sbiBroadcastAllHarts, 0, int64(va), int64(length), 0, 0)
}
