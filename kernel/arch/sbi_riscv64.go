package arch

// sbiCall issues the 8-argument ecall used by every SBI extension. It has no
// Go body; the real ecall instruction and register shuffling live in the
// trap assembly.
func sbiCall(ext, fid int64, arg0, arg1, arg2, arg3, arg4, arg5 int64) (int64, int64)
