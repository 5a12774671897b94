package bytecode

import (
	"fmt"

	"github.com/risor-io/jasm/descriptor"
	"github.com/risor-io/jasm/errz"
	"github.com/risor-io/jasm/op"
	"github.com/risor-io/jasm/pool"
)

// Limits computes max stack and max locals for a method body by walking the
// instructions in order. The instruction set has no branches, so the walk
// visits every reachable state. Parameters implied by the descriptor (and the
// receiver of an instance method) count toward max locals.
func Limits(instructions []Instruction, access AccessFlags, methodDescriptor string) (maxStack, maxLocals uint16, err error) {
	const opName = "bytecode.Limits"
	md, err := descriptor.ParseMethod(methodDescriptor)
	if err != nil {
		return 0, 0, errz.New(errz.Precondition, opName, err)
	}
	locals := md.ArgSlots()
	if !access.Has(AccStatic) {
		locals++
	}
	depth, peak := 0, 0
	for i, instr := range instructions {
		pops, pushes, err := stackEffect(instr)
		if err != nil {
			return 0, 0, errz.New(errz.Precondition, opName, fmt.Errorf("instruction %d (%s): %w", i, instr, err))
		}
		if depth < pops {
			return 0, 0, errz.Preconditionf(opName, "instruction %d (%s) pops %d with only %d on the stack", i, instr, pops, depth)
		}
		depth = depth - pops + pushes
		if depth > peak {
			peak = depth
		}
		if l, ok := instr.(LocalOperand); ok && int(l.Slot)+1 > locals {
			locals = int(l.Slot) + 1
		}
	}
	if peak > 0xffff || locals > 0xffff {
		return 0, 0, errz.Overflowf(opName, "stack %d or locals %d exceed 65535", peak, locals)
	}
	return uint16(peak), uint16(locals), nil
}

func stackEffect(instr Instruction) (pops, pushes int, err error) {
	info := op.GetInfo(instr.Opcode())
	if info.Pops != op.Variable && info.Pushes != op.Variable {
		return info.Pops, info.Pushes, nil
	}
	var member pool.MemberRef
	if s, ok := instr.(SymbolOperand); ok {
		member, _ = s.Symbol.(pool.MemberRef)
	}
	if member == nil {
		return 0, 0, fmt.Errorf("%s needs a field or method reference", info.Name)
	}
	desc := member.Member().Descriptor.Value
	switch info.Code {
	case op.GetStatic, op.PutStatic, op.GetField, op.PutField:
		field, err := descriptor.ParseField(desc)
		if err != nil {
			return 0, 0, err
		}
		switch info.Code {
		case op.GetStatic:
			return 0, field.Slots(), nil
		case op.PutStatic:
			return field.Slots(), 0, nil
		case op.GetField:
			return 1, field.Slots(), nil
		default:
			return 1 + field.Slots(), 0, nil
		}
	default:
		method, err := descriptor.ParseMethod(desc)
		if err != nil {
			return 0, 0, err
		}
		pops = method.ArgSlots()
		if info.Code != op.InvokeStatic {
			pops++
		}
		return pops, method.Return.Slots(), nil
	}
}
