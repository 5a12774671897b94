package bytecode

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/risor-io/jasm/errz"
	"github.com/risor-io/jasm/op"
	"github.com/risor-io/jasm/pool"
)

// Method is an assembled method. It is immutable after creation.
type Method struct {
	access       AccessFlags
	name         pool.Utf8
	descriptor   pool.Utf8
	instructions []Instruction
	maxStack     uint16
	maxLocals    uint16
}

// MethodParams contains parameters for creating a new Method.
type MethodParams struct {
	Access       AccessFlags
	Name         pool.Utf8
	Descriptor   pool.Utf8
	Instructions []Instruction
	MaxStack     uint16
	MaxLocals    uint16
}

// NewMethod validates the parameters and creates an immutable Method. The
// name and descriptor must be non-empty and every instruction must use a
// known opcode; all violations are reported together as a Precondition error.
func NewMethod(params MethodParams) (*Method, error) {
	var result *multierror.Error
	if params.Name.Value == "" {
		result = multierror.Append(result, fmt.Errorf("method name is empty"))
	}
	if params.Descriptor.Value == "" {
		result = multierror.Append(result, fmt.Errorf("method %q has an empty descriptor", params.Name.Value))
	}
	for i, instr := range params.Instructions {
		if instr == nil {
			result = multierror.Append(result, fmt.Errorf("instruction %d is nil", i))
			continue
		}
		if !op.GetInfo(instr.Opcode()).IsValid() {
			result = multierror.Append(result, fmt.Errorf("instruction %d has unknown opcode 0x%02x", i, byte(instr.Opcode())))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, errz.New(errz.Precondition, "bytecode.NewMethod", err)
	}
	return &Method{
		access:       params.Access,
		name:         params.Name,
		descriptor:   params.Descriptor,
		instructions: copyInstructions(params.Instructions),
		maxStack:     params.MaxStack,
		maxLocals:    params.MaxLocals,
	}, nil
}

// Access returns the method access flags.
func (m *Method) Access() AccessFlags {
	return m.access
}

// Name returns the method name symbol.
func (m *Method) Name() pool.Utf8 {
	return m.name
}

// Descriptor returns the method descriptor symbol.
func (m *Method) Descriptor() pool.Utf8 {
	return m.descriptor
}

// HasCode reports whether the method has a body. Methods without
// instructions are written without a Code attribute.
func (m *Method) HasCode() bool {
	return len(m.instructions) > 0
}

// InstructionCount returns the number of instructions.
func (m *Method) InstructionCount() int {
	return len(m.instructions)
}

// InstructionAt returns the instruction at the given index.
func (m *Method) InstructionAt(index int) Instruction {
	return m.instructions[index]
}

// MaxStack returns the max operand stack depth written to the Code attribute.
func (m *Method) MaxStack() uint16 {
	return m.maxStack
}

// MaxLocals returns the local slot count written to the Code attribute.
func (m *Method) MaxLocals() uint16 {
	return m.maxLocals
}

// Code returns the encoded instruction bytes.
func (m *Method) Code(r Resolver) ([]byte, error) {
	return Encode(m.instructions, r)
}

// Symbols returns every pool entry referenced by the method's instructions.
func (m *Method) Symbols() []pool.Symbol {
	var symbols []pool.Symbol
	for _, instr := range m.instructions {
		symbols = append(symbols, instr.Symbols()...)
	}
	return symbols
}

func (m *Method) String() string {
	return m.name.Value + m.descriptor.Value
}

// copyInstructions returns a copy of the given instruction slice.
func copyInstructions(src []Instruction) []Instruction {
	if src == nil {
		return nil
	}
	dst := make([]Instruction, len(src))
	copy(dst, src)
	return dst
}
