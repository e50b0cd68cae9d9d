package chip8

import "errors"

var (
	// ErrROMTooLarge is returned when a ROM does not fit between StartAddress and the end of memory.
	ErrROMTooLarge = errors.New("rom too large")
	// ErrStackOverflow is returned by a subroutine call with a full call stack.
	ErrStackOverflow = errors.New("call stack overflow")
	// ErrStackUnderflow is returned by a subroutine return with an empty call stack.
	ErrStackUnderflow = errors.New("call stack underflow")
)
