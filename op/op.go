// Package op defines the JVM opcodes emitted by the jasm assembler.
package op

// Code is a one-byte JVM opcode.
type Code uint8

const (
	Nop        Code = 0x00
	AConstNull Code = 0x01

	// Push constants
	IConstM1 Code = 0x02
	IConst0  Code = 0x03
	IConst1  Code = 0x04
	IConst2  Code = 0x05
	IConst3  Code = 0x06
	IConst4  Code = 0x07
	IConst5  Code = 0x08
	BiPush   Code = 0x10
	SiPush   Code = 0x11
	Ldc      Code = 0x12
	LdcW     Code = 0x13

	// Load
	ILoad Code = 0x15
	ALoad Code = 0x19

	// Store
	IStore Code = 0x36
	AStore Code = 0x3a

	// Stack
	Pop  Code = 0x57
	Dup  Code = 0x59
	Swap Code = 0x5f

	// Arithmetic
	IAdd Code = 0x60
	ISub Code = 0x64
	IMul Code = 0x68
	IDiv Code = 0x6c
	IRem Code = 0x70
	INeg Code = 0x74

	// Return
	IReturn Code = 0xac
	AReturn Code = 0xb0
	Return  Code = 0xb1

	// Fields
	GetStatic Code = 0xb2
	PutStatic Code = 0xb3
	GetField  Code = 0xb4
	PutField  Code = 0xb5

	// Invocation
	InvokeVirtual Code = 0xb6
	InvokeSpecial Code = 0xb7
	InvokeStatic  Code = 0xb8
)

// Form describes the operand shape of an instruction.
type Form uint8

const (
	FormNone       Form = iota // opcode only
	FormByte                   // signed 8-bit immediate
	FormShort                  // signed 16-bit immediate
	FormLocal                  // unsigned 8-bit local slot
	FormSymbol                 // one constant pool index
	FormTwoSymbols             // two constant pool indices
)

// String returns the name of the form.
func (f Form) String() string {
	switch f {
	case FormNone:
		return "none"
	case FormByte:
		return "byte"
	case FormShort:
		return "short"
	case FormLocal:
		return "local"
	case FormSymbol:
		return "symbol"
	case FormTwoSymbols:
		return "two-symbols"
	default:
		return ""
	}
}

// Variable marks a stack effect that depends on a descriptor.
const Variable = -1

// Info contains information about an opcode.
type Info struct {
	Code Code
	Name string
	Form Form

	// Short is the opcode used instead of Code when the operand's pool index
	// fits in one byte. Zero when the instruction has a single width.
	Short Code

	// Wide is set on the short form of a dual-width instruction and names
	// its full-width opcode.
	Wide Code

	// Pops and Pushes give the operand stack effect in slots, or Variable.
	Pops   int
	Pushes int
}

// HasShortForm reports whether the opcode has a one-byte-index encoding.
func (i Info) HasShortForm() bool {
	return i.Short != 0
}

// IsShortForm reports whether the opcode is the one-byte-index encoding of a
// dual-width instruction.
func (i Info) IsShortForm() bool {
	return i.Wide != 0
}

// IsValid reports whether the opcode is known to this package.
func (i Info) IsValid() bool {
	return i.Name != ""
}

var infos = make([]Info, 256)

func init() {
	type opInfo struct {
		op     Code
		name   string
		form   Form
		short  Code
		pops   int
		pushes int
	}
	ops := []opInfo{
		{Nop, "nop", FormNone, 0, 0, 0},
		{AConstNull, "aconst_null", FormNone, 0, 0, 1},
		{IConstM1, "iconst_m1", FormNone, 0, 0, 1},
		{IConst0, "iconst_0", FormNone, 0, 0, 1},
		{IConst1, "iconst_1", FormNone, 0, 0, 1},
		{IConst2, "iconst_2", FormNone, 0, 0, 1},
		{IConst3, "iconst_3", FormNone, 0, 0, 1},
		{IConst4, "iconst_4", FormNone, 0, 0, 1},
		{IConst5, "iconst_5", FormNone, 0, 0, 1},
		{BiPush, "bipush", FormByte, 0, 0, 1},
		{SiPush, "sipush", FormShort, 0, 0, 1},
		{Ldc, "ldc", FormSymbol, 0, 0, 1},
		{LdcW, "ldc_w", FormSymbol, Ldc, 0, 1},
		{ILoad, "iload", FormLocal, 0, 0, 1},
		{ALoad, "aload", FormLocal, 0, 0, 1},
		{IStore, "istore", FormLocal, 0, 1, 0},
		{AStore, "astore", FormLocal, 0, 1, 0},
		{Pop, "pop", FormNone, 0, 1, 0},
		{Dup, "dup", FormNone, 0, 1, 2},
		{Swap, "swap", FormNone, 0, 2, 2},
		{IAdd, "iadd", FormNone, 0, 2, 1},
		{ISub, "isub", FormNone, 0, 2, 1},
		{IMul, "imul", FormNone, 0, 2, 1},
		{IDiv, "idiv", FormNone, 0, 2, 1},
		{IRem, "irem", FormNone, 0, 2, 1},
		{INeg, "ineg", FormNone, 0, 1, 1},
		{IReturn, "ireturn", FormNone, 0, 1, 0},
		{AReturn, "areturn", FormNone, 0, 1, 0},
		{Return, "return", FormNone, 0, 0, 0},
		{GetStatic, "getstatic", FormSymbol, 0, 0, Variable},
		{PutStatic, "putstatic", FormSymbol, 0, Variable, 0},
		{GetField, "getfield", FormSymbol, 0, 1, Variable},
		{PutField, "putfield", FormSymbol, 0, Variable, 0},
		{InvokeVirtual, "invokevirtual", FormSymbol, 0, Variable, Variable},
		{InvokeSpecial, "invokespecial", FormSymbol, 0, Variable, Variable},
		{InvokeStatic, "invokestatic", FormSymbol, 0, Variable, Variable},
	}
	for _, o := range ops {
		infos[o.op] = Info{
			Code:   o.op,
			Name:   o.name,
			Form:   o.form,
			Short:  o.short,
			Pops:   o.pops,
			Pushes: o.pushes,
		}
	}
	for _, o := range ops {
		if o.short != 0 {
			infos[o.short].Wide = o.op
		}
	}
}

// GetInfo returns information about the given opcode.
func GetInfo(op Code) Info {
	return infos[op]
}

// Lookup returns the opcode whose encoded byte is b, including the short
// forms of dual-width instructions.
func Lookup(b byte) (Info, bool) {
	info := infos[b]
	return info, info.IsValid()
}

// String returns the mnemonic of the opcode.
func (c Code) String() string {
	if name := infos[c].Name; name != "" {
		return name
	}
	return "unknown"
}
