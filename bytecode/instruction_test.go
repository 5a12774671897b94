package bytecode

import (
	"errors"
	"testing"

	"github.com/risor-io/jasm/errz"
	"github.com/risor-io/jasm/op"
	"github.com/risor-io/jasm/pool"
	"github.com/stretchr/testify/require"
)

// fixedResolver resolves symbols to preset indices.
type fixedResolver map[pool.Symbol]uint16

func (r fixedResolver) Lookup(s pool.Symbol) (uint16, error) {
	if i, ok := r[s]; ok {
		return i, nil
	}
	return 0, errz.Invariantf("test", "%s not interned", s)
}

func encode(t *testing.T, instr Instruction, r Resolver) []byte {
	t.Helper()
	b, err := instr.AppendTo(nil, r)
	require.Nil(t, err)
	n, err := instr.Len(r)
	require.Nil(t, err)
	require.Len(t, b, n)
	return b
}

func TestFixedWidthEncodings(t *testing.T) {
	tests := []struct {
		name  string
		instr Instruction
		want  []byte
	}{
		{"return", NoOperand{Op: op.Return}, []byte{0xb1}},
		{"bipush 127", ByteOperand{Op: op.BiPush, Value: 127}, []byte{0x10, 0x7f}},
		{"bipush -128", ByteOperand{Op: op.BiPush, Value: -128}, []byte{0x10, 0x80}},
		{"sipush 1000", ShortOperand{Op: op.SiPush, Value: 1000}, []byte{0x11, 0x03, 0xe8}},
		{"sipush -2", ShortOperand{Op: op.SiPush, Value: -2}, []byte{0x11, 0xff, 0xfe}},
		{"sipush -32768", ShortOperand{Op: op.SiPush, Value: -32768}, []byte{0x11, 0x80, 0x00}},
		{"aload 3", LocalOperand{Op: op.ALoad, Slot: 3}, []byte{0x19, 0x03}},
		{"istore 255", LocalOperand{Op: op.IStore, Slot: 255}, []byte{0x36, 0xff}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, encode(t, tt.instr, fixedResolver{}))
			require.Equal(t, tt.name, tt.instr.String())
		})
	}
}

func TestDualWidthSelection(t *testing.T) {
	s := pool.String{Value: pool.Utf8{Value: "hi"}}
	instr := SymbolOperand{Op: op.LdcW, Symbol: s}

	tests := []struct {
		index uint16
		want  []byte
	}{
		{1, []byte{0x12, 0x01}},
		{8, []byte{0x12, 0x08}},
		{255, []byte{0x12, 0xff}},
		{256, []byte{0x13, 0x01, 0x00}},
		{1000, []byte{0x13, 0x03, 0xe8}},
		{0xffff, []byte{0x13, 0xff, 0xff}},
	}
	for _, tt := range tests {
		got := encode(t, instr, fixedResolver{s: tt.index})
		require.Equal(t, tt.want, got, "index %d", tt.index)
	}
}

func TestShortOpcodeIsNormalized(t *testing.T) {
	s := pool.Integer{Value: 100000}
	instr := SymbolOperand{Op: op.Ldc, Symbol: s}
	require.Equal(t, op.LdcW, instr.Opcode())
	require.Equal(t, []byte{0x12, 0x02}, encode(t, instr, fixedResolver{s: 2}))
	require.Equal(t, []byte{0x13, 0x01, 0x2c}, encode(t, instr, fixedResolver{s: 300}))
}

func TestSingleWidthSymbolOperand(t *testing.T) {
	f := pool.FieldRef{
		Class:       pool.Class{Name: pool.Utf8{Value: "java/lang/System"}},
		NameAndType: pool.NameAndType{Name: pool.Utf8{Value: "out"}, Descriptor: pool.Utf8{Value: "Ljava/io/PrintStream;"}},
	}
	instr := SymbolOperand{Op: op.GetStatic, Symbol: f}
	require.Equal(t, []byte{0xb2, 0x00, 0x06}, encode(t, instr, fixedResolver{f: 6}))
}

func TestTwoSymbolOperandIsAlwaysWide(t *testing.T) {
	a := pool.Utf8{Value: "a"}
	b := pool.Utf8{Value: "b"}
	instr := TwoSymbolOperand{Op: op.LdcW, First: a, Second: b}
	require.Equal(t, []byte{0x13, 0x00, 0x01, 0x00, 0x02}, encode(t, instr, fixedResolver{a: 1, b: 2}))
	require.Equal(t, []pool.Symbol{a, b}, instr.Symbols())
}

func TestUnresolvedSymbolFails(t *testing.T) {
	instr := SymbolOperand{Op: op.LdcW, Symbol: pool.Utf8{Value: "missing"}}
	_, err := instr.AppendTo(nil, fixedResolver{})
	require.True(t, errors.Is(err, errz.Invariant))
	_, err = instr.Len(fixedResolver{})
	require.True(t, errors.Is(err, errz.Invariant))

	_, err = SymbolOperand{Op: op.LdcW}.AppendTo(nil, fixedResolver{})
	require.True(t, errors.Is(err, errz.Invariant))
}

func TestIntConstantTiers(t *testing.T) {
	tests := []struct {
		value int32
		want  Instruction
		size  int
	}{
		{-1, NoOperand{Op: op.IConstM1}, 1},
		{0, NoOperand{Op: op.IConst0}, 1},
		{3, NoOperand{Op: op.IConst3}, 1},
		{5, NoOperand{Op: op.IConst5}, 1},
		{6, ByteOperand{Op: op.BiPush, Value: 6}, 2},
		{127, ByteOperand{Op: op.BiPush, Value: 127}, 2},
		{-2, ByteOperand{Op: op.BiPush, Value: -2}, 2},
		{-128, ByteOperand{Op: op.BiPush, Value: -128}, 2},
		{128, ShortOperand{Op: op.SiPush, Value: 128}, 3},
		{-129, ShortOperand{Op: op.SiPush, Value: -129}, 3},
		{1000, ShortOperand{Op: op.SiPush, Value: 1000}, 3},
		{32767, ShortOperand{Op: op.SiPush, Value: 32767}, 3},
		{-32768, ShortOperand{Op: op.SiPush, Value: -32768}, 3},
	}
	for _, tt := range tests {
		table := pool.NewTable()
		instr := IntConstant(table, tt.value)
		require.Equal(t, tt.want, instr, "value %d", tt.value)
		require.Equal(t, 0, table.Len(), "value %d should not touch the pool", tt.value)
		n, err := instr.Len(fixedResolver{})
		require.Nil(t, err)
		require.Equal(t, tt.size, n)
	}
}

func TestIntConstantFallsBackToPool(t *testing.T) {
	for _, v := range []int32{32768, -32769, 100000, -2147483648, 2147483647} {
		table := pool.NewTable()
		instr := IntConstant(table, v)
		require.Equal(t, SymbolOperand{Op: op.LdcW, Symbol: pool.Integer{Value: v}}, instr)
		require.Equal(t, 1, table.Count(pool.Integer{Value: v}))
	}
}

func TestEncodeSequence(t *testing.T) {
	s := pool.String{Value: pool.Utf8{Value: "Hello World"}}
	r := fixedResolver{s: 8}
	instrs := []Instruction{
		SymbolOperand{Op: op.LdcW, Symbol: s},
		NoOperand{Op: op.Pop},
		NoOperand{Op: op.Return},
	}
	code, err := Encode(instrs, r)
	require.Nil(t, err)
	require.Equal(t, []byte{0x12, 0x08, 0x57, 0xb1}, code)

	n, err := EncodedLen(instrs, r)
	require.Nil(t, err)
	require.Equal(t, 4, n)
}
