package chip8

import (
	"fmt"

	chip8cpu "github.com/retroenv/retrogolib/arch/cpu/chip8"
)

// lookupOpcode returns the instruction definition matching the opcode word,
// or nil if the word does not encode one of the 35 instructions.
func lookupOpcode(opc uint16) *chip8cpu.Instruction {
	nibble := int(opc >> 12)
	for _, op := range chip8cpu.Opcodes[nibble] {
		if op.Info.Mask&opc == op.Info.Value {
			return op.Instruction
		}
	}
	return nil
}

// Disassemble returns the assembly notation of an opcode word.
// Unknown words are returned as a data word.
func Disassemble(opc uint16) string {
	ins := lookupOpcode(opc)
	if ins == nil {
		return fmt.Sprintf("DW $%04X", opc)
	}
	if params := formatParams(opc); params != "" {
		return fmt.Sprintf("%s %s", ins.Name, params)
	}
	return ins.Name
}

func formatParams(opc uint16) string {
	x := (opc & 0x0F00) >> 8
	y := (opc & 0x00F0) >> 4
	nn := opc & 0x00FF
	nnn := opc & 0x0FFF

	switch opc & 0xF000 {
	case 0x0000:
		if opc == 0x00E0 || opc == 0x00EE {
			return ""
		}
		return fmt.Sprintf("$%03X", nnn)
	case 0x1000, 0x2000:
		return fmt.Sprintf("$%03X", nnn)
	case 0x3000, 0x4000, 0x6000, 0x7000, 0xC000:
		return fmt.Sprintf("V%X, $%02X", x, nn)
	case 0x5000, 0x8000, 0x9000:
		switch opc & 0xF00F {
		case 0x8006, 0x800E:
			return fmt.Sprintf("V%X {, V%X}", x, y)
		}
		return fmt.Sprintf("V%X, V%X", x, y)
	case 0xA000:
		return fmt.Sprintf("I, $%03X", nnn)
	case 0xB000:
		return fmt.Sprintf("V0, $%03X", nnn)
	case 0xD000:
		return fmt.Sprintf("V%X, V%X, %d", x, y, opc&0x000F)
	case 0xE000:
		return fmt.Sprintf("V%X", x)
	case 0xF000:
		return formatTimerParams(x, nn)
	}
	return ""
}

func formatTimerParams(x, nn uint16) string {
	switch nn {
	case 0x07:
		return fmt.Sprintf("V%X, DT", x)
	case 0x0A:
		return fmt.Sprintf("V%X, K", x)
	case 0x15:
		return fmt.Sprintf("DT, V%X", x)
	case 0x18:
		return fmt.Sprintf("ST, V%X", x)
	case 0x1E:
		return fmt.Sprintf("I, V%X", x)
	case 0x29:
		return fmt.Sprintf("F, V%X", x)
	case 0x33:
		return fmt.Sprintf("B, V%X", x)
	case 0x55:
		return fmt.Sprintf("[I], V%X", x)
	case 0x65:
		return fmt.Sprintf("V%X, [I]", x)
	}
	return ""
}
