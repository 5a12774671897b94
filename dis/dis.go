// Package dis disassembles class files produced by the assembler. It decodes
// method bodies with the opcodes defined in the op package and annotates
// every operand that refers to the constant pool.
package dis

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/risor-io/jasm/bytecode"
	"github.com/risor-io/jasm/classfile"
	"github.com/risor-io/jasm/op"
	"github.com/risor-io/jasm/pool"
)

// Instruction represents a single decoded instruction and its operands.
type Instruction struct {
	Offset     int
	Name       string
	Opcode     op.Code
	Operands   []int
	Annotation string
	Constant   pool.Symbol
}

// Method is a disassembled method.
type Method struct {
	Name         string
	Descriptor   string
	Access       bytecode.AccessFlags
	MaxStack     uint16
	MaxLocals    uint16
	HasCode      bool
	Instructions []Instruction
}

// Disassemble decodes the code of every method in f.
func Disassemble(f *classfile.File) ([]Method, error) {
	var methods []Method
	for _, m := range f.Methods {
		dm := Method{
			Name:       m.Name,
			Descriptor: m.Descriptor,
			Access:     bytecode.AccessFlags(m.AccessFlags),
		}
		if m.Code != nil {
			instructions, err := DisassembleCode(f, m.Code.Code)
			if err != nil {
				return nil, fmt.Errorf("method %s%s: %w", m.Name, m.Descriptor, err)
			}
			dm.HasCode = true
			dm.MaxStack = m.Code.MaxStack
			dm.MaxLocals = m.Code.MaxLocals
			dm.Instructions = instructions
		}
		methods = append(methods, dm)
	}
	return methods, nil
}

// DisassembleCode decodes one method body, resolving pool operands through f.
func DisassembleCode(f *classfile.File, code []byte) ([]Instruction, error) {
	var instructions []Instruction
	for offset := 0; offset < len(code); {
		info, ok := op.Lookup(code[offset])
		if !ok {
			return nil, fmt.Errorf("unknown opcode 0x%02x at offset %d", code[offset], offset)
		}
		width := operandWidth(info)
		if offset+1+width > len(code) {
			return nil, fmt.Errorf("%s at offset %d is truncated", info.Name, offset)
		}
		raw := code[offset+1 : offset+1+width]
		instr := Instruction{Offset: offset, Name: info.Name, Opcode: info.Code}
		switch info.Form {
		case op.FormByte:
			instr.Operands = []int{int(int8(raw[0]))}
		case op.FormShort:
			instr.Operands = []int{int(int16(binary.BigEndian.Uint16(raw)))}
		case op.FormLocal:
			instr.Operands = []int{int(raw[0])}
			instr.Annotation = fmt.Sprintf("local_%d", raw[0])
		case op.FormSymbol:
			idx := int(raw[0])
			if width == 2 {
				idx = int(binary.BigEndian.Uint16(raw))
			}
			sym, err := symbolAt(f, idx)
			if err != nil {
				return nil, err
			}
			instr.Operands = []int{idx}
			instr.Annotation = sym.String()
			switch sym.(type) {
			case pool.String, pool.Integer:
				instr.Constant = sym
			}
		case op.FormTwoSymbols:
			first := int(binary.BigEndian.Uint16(raw))
			second := int(binary.BigEndian.Uint16(raw[2:]))
			a, err := symbolAt(f, first)
			if err != nil {
				return nil, err
			}
			b, err := symbolAt(f, second)
			if err != nil {
				return nil, err
			}
			instr.Operands = []int{first, second}
			instr.Annotation = a.String() + ", " + b.String()
		}
		instructions = append(instructions, instr)
		offset += 1 + width
	}
	return instructions, nil
}

func operandWidth(info op.Info) int {
	switch info.Form {
	case op.FormByte, op.FormLocal:
		return 1
	case op.FormShort:
		return 2
	case op.FormSymbol:
		if info.IsShortForm() {
			return 1
		}
		return 2
	case op.FormTwoSymbols:
		return 4
	default:
		return 0
	}
}

func symbolAt(f *classfile.File, idx int) (pool.Symbol, error) {
	sym, ok := f.Symbol(idx)
	if !ok {
		return nil, fmt.Errorf("constant pool index out of range: %d", idx)
	}
	return sym, nil
}

var (
	bold    = color.New(color.Bold).SprintFunc()
	green   = color.New(color.FgGreen).SprintFunc()
	yellow  = color.New(color.FgYellow).SprintFunc()
	cyan    = color.New(color.FgHiCyan).SprintFunc()
	magenta = color.New(color.FgMagenta).SprintFunc()
)

// Print a listing of the class, its constant pool and its methods to the
// given writer. Color follows color.NoColor.
func Print(f *classfile.File, writer io.Writer) error {
	methods, err := Disassemble(f)
	if err != nil {
		return err
	}
	fmt.Fprintf(writer, "class %s extends %s (%s)\n", bold(f.This), f.Super,
		bytecode.AccessFlags(f.AccessFlags))
	fmt.Fprintf(writer, "version %d.%d\n\n", f.MajorVersion, f.MinorVersion)

	tw := tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tTAG\tVALUE")
	for i := 1; i <= f.PoolCount(); i++ {
		sym, _ := f.Symbol(i)
		fmt.Fprintf(tw, "#%d\t%s\t%s\n", i, sym.Tag(), sym)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, m := range methods {
		fmt.Fprintf(writer, "\n%s %s%s\n", m.Access, magenta(m.Name), m.Descriptor)
		if !m.HasCode {
			fmt.Fprintln(writer, "  no code")
			continue
		}
		fmt.Fprintf(writer, "  max_stack=%d max_locals=%d\n", m.MaxStack, m.MaxLocals)
		if err := PrintInstructions(m.Instructions, writer); err != nil {
			return err
		}
	}
	return nil
}

// PrintInstructions writes one row per instruction.
func PrintInstructions(instructions []Instruction, writer io.Writer) error {
	tw := tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  OFFSET\tOPCODE\tOPERANDS\tINFO")
	for _, instr := range instructions {
		var info string
		switch c := instr.Constant.(type) {
		case pool.String:
			v := c.Value.Value
			if len(v) > 80 {
				v = v[:77] + "..."
			}
			info = green(fmt.Sprintf("%q", v))
		case pool.Integer:
			info = yellow(fmt.Sprintf("%d", c.Value))
		default:
			if instr.Annotation != "" {
				info = cyan(instr.Annotation)
			}
		}
		fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\n", instr.Offset, bold(instr.Name), formatOperands(instr.Operands), info)
	}
	return tw.Flush()
}

func formatOperands(operands []int) string {
	var sb strings.Builder
	for i, v := range operands {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprintf("%d", v))
	}
	return sb.String()
}
