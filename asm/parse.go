// Package asm parses APEX assembly text into decoded instructions.
//
// The grammar is exactly the operand-formatting table insts.Instruction
// renders through its String method: one comma-separated mnemonic line
// per instruction, registers written "R<n>", immediates written
// "#<signed-int>". A parsed program is fed straight to pipeline.NewDriver.
package asm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/apexsim/insts"
)

// Parse reads APEX assembly text from r, one instruction per line, and
// returns the decoded program in file order. Blank lines and lines
// beginning with "#" or ";" are skipped. Any other malformed line is
// reported with its line number rather than silently treated as a NOP:
// an unrecognized-opcode-as-NOP rule governs decoded opcodes already in
// the instruction stream, not assembler syntax.
func Parse(r io.Reader) ([]insts.Instruction, error) {
	var program []insts.Instruction

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		inst, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("asm: line %d: %w", lineNo, err)
		}
		program = append(program, inst)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("asm: %w", err)
	}

	return program, nil
}

func parseLine(line string) (insts.Instruction, error) {
	fields := strings.Split(line, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	op, ok := insts.ParseOpcode(fields[0])
	if !ok {
		return insts.Instruction{}, fmt.Errorf("unrecognized mnemonic %q", fields[0])
	}

	args := fields[1:]
	switch op {
	case insts.OpHALT:
		return insts.Instruction{Op: op}, expectArgs(args, 0)

	case insts.OpMOVC:
		if err := expectArgs(args, 2); err != nil {
			return insts.Instruction{}, err
		}
		rd, err := parseReg(args[0])
		if err != nil {
			return insts.Instruction{}, err
		}
		imm, err := parseImm(args[1])
		if err != nil {
			return insts.Instruction{}, err
		}
		return insts.Instruction{Op: op, Rd: rd, Imm: imm}, nil

	case insts.OpADD, insts.OpSUB, insts.OpMUL, insts.OpAND, insts.OpOR, insts.OpExOr:
		if err := expectArgs(args, 3); err != nil {
			return insts.Instruction{}, err
		}
		rd, err := parseReg(args[0])
		if err != nil {
			return insts.Instruction{}, err
		}
		rs1, err := parseReg(args[1])
		if err != nil {
			return insts.Instruction{}, err
		}
		rs2, err := parseReg(args[2])
		if err != nil {
			return insts.Instruction{}, err
		}
		return insts.Instruction{Op: op, Rd: rd, Rs1: rs1, Rs2: rs2}, nil

	case insts.OpLDR:
		if err := expectArgs(args, 3); err != nil {
			return insts.Instruction{}, err
		}
		rd, err := parseReg(args[0])
		if err != nil {
			return insts.Instruction{}, err
		}
		rs1, err := parseReg(args[1])
		if err != nil {
			return insts.Instruction{}, err
		}
		rs2, err := parseReg(args[2])
		if err != nil {
			return insts.Instruction{}, err
		}
		return insts.Instruction{Op: op, Rd: rd, Rs1: rs1, Rs2: rs2}, nil

	case insts.OpADDL, insts.OpSUBL, insts.OpLOAD:
		if err := expectArgs(args, 3); err != nil {
			return insts.Instruction{}, err
		}
		rd, err := parseReg(args[0])
		if err != nil {
			return insts.Instruction{}, err
		}
		rs1, err := parseReg(args[1])
		if err != nil {
			return insts.Instruction{}, err
		}
		imm, err := parseImm(args[2])
		if err != nil {
			return insts.Instruction{}, err
		}
		return insts.Instruction{Op: op, Rd: rd, Rs1: rs1, Imm: imm}, nil

	case insts.OpSTORE:
		if err := expectArgs(args, 3); err != nil {
			return insts.Instruction{}, err
		}
		rs1, err := parseReg(args[0])
		if err != nil {
			return insts.Instruction{}, err
		}
		rs2, err := parseReg(args[1])
		if err != nil {
			return insts.Instruction{}, err
		}
		imm, err := parseImm(args[2])
		if err != nil {
			return insts.Instruction{}, err
		}
		return insts.Instruction{Op: op, Rs1: rs1, Rs2: rs2, Imm: imm}, nil

	case insts.OpSTR:
		if err := expectArgs(args, 3); err != nil {
			return insts.Instruction{}, err
		}
		rs1, err := parseReg(args[0])
		if err != nil {
			return insts.Instruction{}, err
		}
		rs2, err := parseReg(args[1])
		if err != nil {
			return insts.Instruction{}, err
		}
		rs3, err := parseReg(args[2])
		if err != nil {
			return insts.Instruction{}, err
		}
		return insts.Instruction{Op: op, Rs1: rs1, Rs2: rs2, Rs3: rs3}, nil

	case insts.OpBZ, insts.OpBNZ:
		if err := expectArgs(args, 1); err != nil {
			return insts.Instruction{}, err
		}
		imm, err := parseImm(args[0])
		if err != nil {
			return insts.Instruction{}, err
		}
		return insts.Instruction{Op: op, Imm: imm}, nil

	case insts.OpJUMP:
		if err := expectArgs(args, 2); err != nil {
			return insts.Instruction{}, err
		}
		rs1, err := parseReg(args[0])
		if err != nil {
			return insts.Instruction{}, err
		}
		imm, err := parseImm(args[1])
		if err != nil {
			return insts.Instruction{}, err
		}
		return insts.Instruction{Op: op, Rs1: rs1, Imm: imm}, nil
	}

	return insts.Instruction{}, fmt.Errorf("unhandled mnemonic %q", fields[0])
}

func expectArgs(args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("expected %d operand(s), got %d", n, len(args))
	}
	return nil
}

func parseReg(s string) (int, error) {
	if !strings.HasPrefix(s, "R") {
		return 0, fmt.Errorf("malformed register operand %q", s)
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil {
		return 0, fmt.Errorf("malformed register operand %q: %w", s, err)
	}
	return n, nil
}

func parseImm(s string) (int, error) {
	if !strings.HasPrefix(s, "#") {
		return 0, fmt.Errorf("malformed immediate operand %q", s)
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil {
		return 0, fmt.Errorf("malformed immediate operand %q: %w", s, err)
	}
	return n, nil
}
