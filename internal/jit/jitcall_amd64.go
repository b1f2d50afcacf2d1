//go:build amd64

package jit

// jitcall invokes the native trace at codePtr with rdi = locals base,
// rsi = exits base (reserved, currently unused). Implemented in
// jitcall_amd64.s; this declaration carries no body, the same
// convention the teacher's example pack uses for raw trampoline calls
// (other_examples' jit_amd64.go declares `func jitcall(...)` the same
// way).
func jitcall(codePtr uintptr, locals *int32, exits *int32) int32
