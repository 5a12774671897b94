package bytecode

import (
	"encoding/binary"
	"fmt"

	"github.com/risor-io/jasm/errz"
	"github.com/risor-io/jasm/op"
	"github.com/risor-io/jasm/pool"
)

// MaxShortIndex is the largest pool index the one-byte form of a dual-width
// instruction can carry.
const MaxShortIndex = 0xff

// Resolver maps symbols to their final constant pool indices.
// *pool.Index implements it.
type Resolver interface {
	Lookup(s pool.Symbol) (uint16, error)
}

// Instruction is a single JVM instruction.
type Instruction interface {
	// Opcode returns the full-width opcode of the instruction.
	Opcode() op.Code

	// Len returns the encoded length in bytes.
	Len(r Resolver) (int, error)

	// AppendTo appends the encoding of the instruction to dst.
	AppendTo(dst []byte, r Resolver) ([]byte, error)

	// Symbols returns the pool entries referenced by the instruction.
	Symbols() []pool.Symbol

	String() string
}

// NoOperand is an instruction with no operand, e.g. return.
type NoOperand struct {
	Op op.Code
}

func (i NoOperand) Opcode() op.Code           { return i.Op }
func (i NoOperand) Len(Resolver) (int, error) { return 1, nil }
func (i NoOperand) Symbols() []pool.Symbol    { return nil }
func (i NoOperand) String() string            { return i.Op.String() }

func (i NoOperand) AppendTo(dst []byte, _ Resolver) ([]byte, error) {
	return append(dst, byte(i.Op)), nil
}

// ByteOperand carries a signed 8-bit immediate, e.g. bipush.
type ByteOperand struct {
	Op    op.Code
	Value int8
}

func (i ByteOperand) Opcode() op.Code           { return i.Op }
func (i ByteOperand) Len(Resolver) (int, error) { return 2, nil }
func (i ByteOperand) Symbols() []pool.Symbol    { return nil }
func (i ByteOperand) String() string            { return fmt.Sprintf("%s %d", i.Op, i.Value) }

func (i ByteOperand) AppendTo(dst []byte, _ Resolver) ([]byte, error) {
	return append(dst, byte(i.Op), byte(i.Value)), nil
}

// ShortOperand carries a signed 16-bit big-endian immediate, e.g. sipush.
type ShortOperand struct {
	Op    op.Code
	Value int16
}

func (i ShortOperand) Opcode() op.Code           { return i.Op }
func (i ShortOperand) Len(Resolver) (int, error) { return 3, nil }
func (i ShortOperand) Symbols() []pool.Symbol    { return nil }
func (i ShortOperand) String() string            { return fmt.Sprintf("%s %d", i.Op, i.Value) }

func (i ShortOperand) AppendTo(dst []byte, _ Resolver) ([]byte, error) {
	dst = append(dst, byte(i.Op))
	return binary.BigEndian.AppendUint16(dst, uint16(i.Value)), nil
}

// LocalOperand addresses a local variable slot, e.g. aload.
type LocalOperand struct {
	Op   op.Code
	Slot uint8
}

func (i LocalOperand) Opcode() op.Code           { return i.Op }
func (i LocalOperand) Len(Resolver) (int, error) { return 2, nil }
func (i LocalOperand) Symbols() []pool.Symbol    { return nil }
func (i LocalOperand) String() string            { return fmt.Sprintf("%s %d", i.Op, i.Slot) }

func (i LocalOperand) AppendTo(dst []byte, _ Resolver) ([]byte, error) {
	return append(dst, byte(i.Op), i.Slot), nil
}

// SymbolOperand references one constant pool entry, e.g. getstatic or ldc.
type SymbolOperand struct {
	Op     op.Code
	Symbol pool.Symbol
}

// Opcode returns the full-width opcode. An instruction built with the short
// form of a dual-width opcode reports the wide one, since the width is chosen
// at encoding time.
func (i SymbolOperand) Opcode() op.Code {
	if info := op.GetInfo(i.Op); info.IsShortForm() {
		return info.Wide
	}
	return i.Op
}

func (i SymbolOperand) Symbols() []pool.Symbol { return []pool.Symbol{i.Symbol} }
func (i SymbolOperand) String() string         { return fmt.Sprintf("%s %s", i.Opcode(), i.Symbol) }

// Len returns 2 when the short form applies and 3 otherwise.
func (i SymbolOperand) Len(r Resolver) (int, error) {
	code, _, err := i.resolve(r)
	if err != nil {
		return 0, err
	}
	if code != i.Opcode() {
		return 2, nil
	}
	return 3, nil
}

func (i SymbolOperand) AppendTo(dst []byte, r Resolver) ([]byte, error) {
	code, idx, err := i.resolve(r)
	if err != nil {
		return dst, err
	}
	if code != i.Opcode() {
		return append(dst, byte(code), byte(idx)), nil
	}
	dst = append(dst, byte(code))
	return binary.BigEndian.AppendUint16(dst, idx), nil
}

// resolve picks the opcode to encode: the short form when the opcode has one
// and idx fits in a byte, the standard opcode otherwise.
func (i SymbolOperand) resolve(r Resolver) (op.Code, uint16, error) {
	if i.Symbol == nil {
		return 0, 0, errz.Invariantf("bytecode.SymbolOperand", "%s has no symbol", i.Op)
	}
	idx, err := r.Lookup(i.Symbol)
	if err != nil {
		return 0, 0, err
	}
	code := i.Opcode()
	if info := op.GetInfo(code); info.HasShortForm() && idx <= MaxShortIndex {
		return info.Short, idx, nil
	}
	return code, idx, nil
}

// TwoSymbolOperand references two constant pool entries. It is always
// encoded at full width.
type TwoSymbolOperand struct {
	Op     op.Code
	First  pool.Symbol
	Second pool.Symbol
}

func (i TwoSymbolOperand) Opcode() op.Code           { return i.Op }
func (i TwoSymbolOperand) Len(Resolver) (int, error) { return 5, nil }

func (i TwoSymbolOperand) Symbols() []pool.Symbol {
	return []pool.Symbol{i.First, i.Second}
}

func (i TwoSymbolOperand) String() string {
	return fmt.Sprintf("%s %s, %s", i.Op, i.First, i.Second)
}

func (i TwoSymbolOperand) AppendTo(dst []byte, r Resolver) ([]byte, error) {
	if i.First == nil || i.Second == nil {
		return dst, errz.Invariantf("bytecode.TwoSymbolOperand", "%s is missing a symbol", i.Op)
	}
	a, err := r.Lookup(i.First)
	if err != nil {
		return dst, err
	}
	b, err := r.Lookup(i.Second)
	if err != nil {
		return dst, err
	}
	dst = append(dst, byte(i.Op))
	dst = binary.BigEndian.AppendUint16(dst, a)
	return binary.BigEndian.AppendUint16(dst, b), nil
}

// Encode concatenates the encodings of the instructions.
func Encode(instructions []Instruction, r Resolver) ([]byte, error) {
	var code []byte
	for _, instr := range instructions {
		var err error
		if code, err = instr.AppendTo(code, r); err != nil {
			return nil, err
		}
	}
	return code, nil
}

// EncodedLen returns the total encoded length of the instructions.
func EncodedLen(instructions []Instruction, r Resolver) (int, error) {
	total := 0
	for _, instr := range instructions {
		n, err := instr.Len(r)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

var smallInts = [...]op.Code{
	op.IConstM1, op.IConst0, op.IConst1, op.IConst2, op.IConst3, op.IConst4, op.IConst5,
}

// IntConstant returns the shortest instruction that pushes v: iconst_* for
// -1..5, bipush for the signed 8-bit range, sipush for the signed 16-bit
// range, and ldc of a pool integer otherwise. The table is only touched in
// the last case.
func IntConstant(table *pool.Table, v int32) Instruction {
	switch {
	case v >= -1 && v <= 5:
		return NoOperand{Op: smallInts[v+1]}
	case v >= -128 && v <= 127:
		return ByteOperand{Op: op.BiPush, Value: int8(v)}
	case v >= -32768 && v <= 32767:
		return ShortOperand{Op: op.SiPush, Value: int16(v)}
	default:
		return SymbolOperand{Op: op.LdcW, Symbol: table.IntConst(v)}
	}
}
