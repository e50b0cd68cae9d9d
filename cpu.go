package chip8

import (
	"fmt"
	"io"
)

const (
	StartAddress = 0x200
	RegCarry     = 0xF
	StackDepth   = 16
)

// waitState is the condition a stalled instruction waits for. A stalled
// instruction rewinds PC and is executed again on the next tick.
type waitState uint8

const (
	waitNone       waitState = iota
	waitVBlank               // DXYN: draw gate closed
	waitKeyPress             // FX0A: last key down not held yet
	waitKeyRelease           // FX0A: key latched, waiting for release
)

func (w waitState) String() string {
	switch w {
	case waitVBlank:
		return "vblank"
	case waitKeyPress:
		return "key press"
	case waitKeyRelease:
		return "key release"
	}
	return "none"
}

type CPU struct {
	V     [16]uint8 // general-purpose registers
	I     uint16    // Index register
	PC    uint16    // program counter
	SP    uint16    // stack pointer
	Stack [StackDepth]uint16

	wait   waitState
	cycles int64
}

func (cpu *CPU) Print(w io.Writer, mem *Memory) {
	opc := mem.fetchOpcode(cpu.PC)
	fmt.Fprintf(w, "Cycles #%d\n", cpu.cycles)
	fmt.Fprintf(w, "PC = 0x%04x, SP = %d, I = 0x%04x\n", cpu.PC, cpu.SP, cpu.I)
	fmt.Fprintf(w, "0x%04x: %s\n", opc, Disassemble(opc))
	if cpu.wait != waitNone {
		fmt.Fprintf(w, "waiting for %s\n", cpu.wait)
	}
	for i := 0; i < len(cpu.V); i += 4 {
		fmt.Fprintf(w, "V%X = 0x%02x, V%X = 0x%02x, V%X = 0x%02x, V%X = 0x%02x\n",
			i, cpu.V[i], i+1, cpu.V[i+1], i+2, cpu.V[i+2], i+3, cpu.V[i+3])
	}
}

func (cpu *CPU) reset() {
	*cpu = CPU{PC: StartAddress}
}

// step executes the instruction at PC. On error the instruction has no effect
// and PC still points at it.
func (cpu *CPU) step(sys *System, opc uint16) error {
	pc := cpu.PC
	cpu.PC = (cpu.PC + 2) & AddressMask
	cpu.wait = waitNone
	cpu.cycles++

	if err := cpu.execute(sys, opc); err != nil {
		cpu.PC = pc
		return err
	}
	return nil
}

// execute decodes the opcode by its high nibble, then by its low nibble or
// low byte for the 0, 8, E and F groups.
func (cpu *CPU) execute(sys *System, opc uint16) error {
	x := uint8((opc & 0x0F00) >> 8)
	y := uint8((opc & 0x00F0) >> 4)
	n := uint8(opc & 0x000F)
	nn := uint8(opc & 0x00FF)
	nnn := opc & 0x0FFF

	switch opc & 0xF000 {
	case 0x0000:
		switch opc {
		case 0x0000: // 0x0000: Idle until reset
			sys.idle = true
		case 0x00E0: // 0x00E0: Clears the screen
			cpu.cls(&sys.gfx)
		case 0x00EE: // 0x00EE: Returns from subroutine
			return cpu.ret()
		}
		// 0x0NNN machine code routines are not supported

	case 0x1000: // 0x1NNN: Jumps to address NNN
		cpu.jpAddr(nnn)

	case 0x2000: // 0x2NNN: Calls subroutine at NNN.
		return cpu.callAddr(nnn)

	case 0x3000: // 0x3XNN: Skips the next instruction if VX equals NN
		cpu.seVxByte(x, nn)

	case 0x4000: // 0x4XNN: Skips the next instruction if VX doesn't equal NN
		cpu.sneVxByte(x, nn)

	case 0x5000: // 0x5XY0: Skips the next instruction if VX equals VY.
		if n == 0 {
			cpu.seVxVy(x, y)
		}

	case 0x6000: // 0x6XNN: Sets VX to NN.
		cpu.ldVxByte(x, nn)

	case 0x7000: // 0x7XNN: Adds NN to VX, VF is unchanged
		cpu.addVxByte(x, nn)

	case 0x8000:
		cpu.executeALU(x, y, n)

	case 0x9000: // 0x9XY0: Skips the next instruction if VX doesn't equal VY
		if n == 0 {
			cpu.sneVxVy(x, y)
		}

	case 0xA000: // ANNN: Sets I to the address NNN
		cpu.ldIAddr(nnn)

	case 0xB000: // BNNN: Jumps to the address NNN plus V0
		cpu.jpV0Addr(nnn)

	case 0xC000: // CXNN: Sets VX to a random number and NN
		return cpu.rndVxByte(sys.rng, x, nn)

	case 0xD000: // DXYN: Draws a sprite at coordinate (VX, VY) that has a width of 8 pixels and a height of N pixels.
		cpu.drwVxVyNibble(sys, x, y, n)

	case 0xE000:
		switch nn {
		case 0x9E: // EX9E: Skips the next instruction if the key stored in VX is pressed
			cpu.skpVx(&sys.keypad, x)
		case 0xA1: // EXA1: Skips the next instruction if the key stored in VX isn't pressed
			cpu.sknpVx(&sys.keypad, x)
		}

	case 0xF000:
		cpu.executeMisc(sys, x, nn)
	}
	return nil
}

func (cpu *CPU) executeALU(x, y, n uint8) {
	switch n {
	case 0x0: // 0x8XY0: Sets VX to the value of VY
		cpu.ldVxVy(x, y)
	case 0x1: // 0x8XY1: Sets VX to "VX OR VY", VF is reset
		cpu.orVxVy(x, y)
	case 0x2: // 0x8XY2: Sets VX to "VX AND VY", VF is reset
		cpu.andVxVy(x, y)
	case 0x3: // 0x8XY3: Sets VX to "VX XOR VY", VF is reset
		cpu.xorVxVy(x, y)
	case 0x4: // 0x8XY4: Adds VY to VX. VF is set to 1 when there's a carry, and to 0 when there isn't
		cpu.addVxVy(x, y)
	case 0x5: // 0x8XY5: VY is subtracted from VX. VF is set to 0 when there's a borrow, and 1 when there isn't
		cpu.subVxVy(x, y)
	case 0x6: // 0x8XY6: Sets VX to VY shifted right by one. VF is set to the shifted out bit
		cpu.shrVxVy(x, y)
	case 0x7: // 0x8XY7: Sets VX to VY minus VX. VF is set to 0 when there's a borrow, and 1 when there isn't
		cpu.subnVxVy(x, y)
	case 0xE: // 0x8XYE: Sets VX to VY shifted left by one. VF is set to the shifted out bit
		cpu.shlVxVy(x, y)
	}
}

func (cpu *CPU) executeMisc(sys *System, x, nn uint8) {
	switch nn {
	case 0x07: // FX07: Sets VX to the value of the delay timer
		cpu.ldVxDT(sys, x)
	case 0x0A: // FX0A: A key press and release is awaited, and then stored in VX
		cpu.ldVxK(&sys.keypad, x)
	case 0x15: // FX15: Sets the delay timer to VX
		cpu.ldDTVx(sys, x)
	case 0x18: // FX18: Sets the sound timer to VX
		cpu.ldSTVx(sys, x)
	case 0x1E: // FX1E: Adds VX to I
		cpu.addIVx(x)
	case 0x29: // FX29: Sets I to the location of the 4x5 font sprite for the character in VX
		cpu.ldFVx(x)
	case 0x33: // FX33: Stores the binary-coded decimal representation of VX at I, I+1 and I+2
		cpu.ldBVx(&sys.mem, x)
	case 0x55: // FX55: Stores V0 to VX in memory starting at address I, I is advanced
		cpu.ldIVx(&sys.mem, x)
	case 0x65: // FX65: Fills V0 to VX with values from memory starting at address I, I is advanced
		cpu.ldVxI(&sys.mem, x)
	}
}

// stall rewinds PC so the current instruction executes again on the next tick.
func (cpu *CPU) stall(w waitState) {
	cpu.wait = w
	cpu.PC = (cpu.PC - 2) & AddressMask
}

func (cpu *CPU) skip() {
	cpu.PC = (cpu.PC + 2) & AddressMask
}

func (cpu *CPU) jpAddr(addr uint16) {
	cpu.PC = addr & AddressMask
}

func (cpu *CPU) callAddr(addr uint16) error {
	if cpu.SP >= StackDepth {
		return ErrStackOverflow
	}
	cpu.Stack[cpu.SP] = cpu.PC
	cpu.SP++
	cpu.PC = addr & AddressMask
	return nil
}

func (cpu *CPU) ret() error {
	if cpu.SP == 0 {
		return ErrStackUnderflow
	}
	cpu.SP--
	cpu.PC = cpu.Stack[cpu.SP]
	cpu.Stack[cpu.SP] = 0
	return nil
}

func (cpu *CPU) cls(gfx *Graphics) {
	gfx.clear()
}

func (cpu *CPU) seVxByte(x, val uint8) {
	if cpu.V[x] == val {
		cpu.skip()
	}
}

func (cpu *CPU) sneVxByte(x, val uint8) {
	if cpu.V[x] != val {
		cpu.skip()
	}
}

func (cpu *CPU) seVxVy(x, y uint8) {
	if cpu.V[x] == cpu.V[y] {
		cpu.skip()
	}
}

func (cpu *CPU) ldVxByte(x, val uint8) {
	cpu.V[x] = val
}

func (cpu *CPU) addVxByte(x, val uint8) {
	cpu.V[x] += val
}

func (cpu *CPU) ldVxVy(x, y uint8) {
	cpu.V[x] = cpu.V[y]
}

func (cpu *CPU) orVxVy(x, y uint8) {
	cpu.V[x] |= cpu.V[y]
	cpu.setCarry(0)
}

func (cpu *CPU) andVxVy(x, y uint8) {
	cpu.V[x] &= cpu.V[y]
	cpu.setCarry(0)
}

func (cpu *CPU) xorVxVy(x, y uint8) {
	cpu.V[x] ^= cpu.V[y]
	cpu.setCarry(0)
}

// The flag is written last in the ALU instructions so that it wins when X is F.

func (cpu *CPU) addVxVy(x, y uint8) {
	sum := uint16(cpu.V[x]) + uint16(cpu.V[y])
	cpu.V[x] = uint8(sum)
	cpu.setCarry(uint8(sum >> 8))
}

func (cpu *CPU) subVxVy(x, y uint8) {
	var carry uint8
	if cpu.V[x] > cpu.V[y] {
		carry = 1
	}
	cpu.V[x] -= cpu.V[y]
	cpu.setCarry(carry)
}

func (cpu *CPU) subnVxVy(x, y uint8) {
	var carry uint8
	if cpu.V[y] > cpu.V[x] {
		carry = 1
	}
	cpu.V[x] = cpu.V[y] - cpu.V[x]
	cpu.setCarry(carry)
}

func (cpu *CPU) setCarry(carry uint8) {
	cpu.V[RegCarry] = carry
}

func (cpu *CPU) shrVxVy(x, y uint8) {
	cpu.V[x] = cpu.V[y]
	carry := cpu.V[x] & 0x01
	cpu.V[x] >>= 1
	cpu.setCarry(carry)
}

func (cpu *CPU) shlVxVy(x, y uint8) {
	cpu.V[x] = cpu.V[y]
	carry := cpu.V[x] >> 7
	cpu.V[x] <<= 1
	cpu.setCarry(carry)
}

func (cpu *CPU) sneVxVy(x, y uint8) {
	if cpu.V[x] != cpu.V[y] {
		cpu.skip()
	}
}

func (cpu *CPU) ldIAddr(index uint16) {
	cpu.I = index & AddressMask
}

func (cpu *CPU) jpV0Addr(addr uint16) {
	cpu.PC = (addr + uint16(cpu.V[0])) & AddressMask
}

func (cpu *CPU) rndVxByte(rng io.Reader, x, val uint8) error {
	var b [1]byte
	if _, err := io.ReadFull(rng, b[:]); err != nil {
		return fmt.Errorf("reading random source: %w", err)
	}
	cpu.V[x] = b[0] & val
	return nil
}

func (cpu *CPU) drwVxVyNibble(sys *System, x, y, h uint8) {
	if !sys.vblank {
		cpu.stall(waitVBlank)
		return
	}
	sys.vblank = false

	// Each row of 8 pixels is read as bit-coded starting from memory location I;
	// I value doesn't change after the execution of this instruction.
	// VF is set to 1 if any screen pixels are flipped from set to unset when the sprite is drawn,
	// and to 0 if that doesn't happen
	if hit := sys.gfx.draw(&sys.mem, cpu.I, cpu.V[x]%GfxWidth, cpu.V[y]%GfxHeight, h); hit {
		cpu.setCarry(1)
	} else {
		cpu.setCarry(0)
	}
}

func (cpu *CPU) skpVx(keys *Keypad, x uint8) {
	if keys.pressed(cpu.V[x]) {
		cpu.skip()
	}
}

func (cpu *CPU) sknpVx(keys *Keypad, x uint8) {
	if !keys.pressed(cpu.V[x]) {
		cpu.skip()
	}
}

func (cpu *CPU) ldVxDT(sys *System, x uint8) {
	cpu.V[x] = uint8(sys.delayTimer)
}

func (cpu *CPU) ldVxK(keys *Keypad, x uint8) {
	key, latched, done := keys.waitKey()
	switch {
	case done:
		return
	case latched:
		cpu.V[x] = key
		cpu.stall(waitKeyRelease)
	case keys.latched:
		cpu.stall(waitKeyRelease)
	default:
		cpu.stall(waitKeyPress)
	}
}

func (cpu *CPU) ldDTVx(sys *System, x uint8) {
	sys.delayTimer = timer(cpu.V[x])
}

func (cpu *CPU) ldSTVx(sys *System, x uint8) {
	sys.soundTimer = timer(cpu.V[x])
}

func (cpu *CPU) addIVx(x uint8) {
	cpu.I = (cpu.I + uint16(cpu.V[x])) & AddressMask
}

func (cpu *CPU) ldFVx(x uint8) {
	cpu.I = FontAddress + uint16(cpu.V[x]&0xF)*FontHeight
}

func (cpu *CPU) ldBVx(mem *Memory, x uint8) {
	mem.write(cpu.I, cpu.V[x]/100)
	mem.write(cpu.I+1, (cpu.V[x]/10)%10)
	mem.write(cpu.I+2, cpu.V[x]%10)
}

func (cpu *CPU) ldIVx(mem *Memory, x uint8) {
	for i := uint8(0); i <= x; i++ {
		mem.write(cpu.I, cpu.V[i])
		cpu.I = (cpu.I + 1) & AddressMask
	}
}

func (cpu *CPU) ldVxI(mem *Memory, x uint8) {
	for i := uint8(0); i <= x; i++ {
		cpu.V[i] = mem.read(cpu.I)
		cpu.I = (cpu.I + 1) & AddressMask
	}
}
