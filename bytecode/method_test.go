package bytecode

import (
	"errors"
	"testing"

	"github.com/risor-io/jasm/errz"
	"github.com/risor-io/jasm/op"
	"github.com/risor-io/jasm/pool"
	"github.com/stretchr/testify/require"
)

func utf8(s string) pool.Utf8 {
	return pool.Utf8{Value: s}
}

func TestNewMethodImmutability(t *testing.T) {
	instructions := []Instruction{NoOperand{Op: op.IConst0}, NoOperand{Op: op.IReturn}}
	m, err := NewMethod(MethodParams{
		Access:       AccPublic | AccStatic,
		Name:         utf8("zero"),
		Descriptor:   utf8("()I"),
		Instructions: instructions,
		MaxStack:     1,
		MaxLocals:    0,
	})
	require.Nil(t, err)

	instructions[0] = NoOperand{Op: op.IConst5}

	require.Equal(t, NoOperand{Op: op.IConst0}, m.InstructionAt(0))
	require.Equal(t, 2, m.InstructionCount())
	require.True(t, m.HasCode())
	require.Equal(t, "zero()I", m.String())
	require.Equal(t, "public static", m.Access().String())
	require.Equal(t, uint16(1), m.MaxStack())
	require.Equal(t, uint16(0), m.MaxLocals())
}

func TestNewMethodPreconditions(t *testing.T) {
	tests := []struct {
		name   string
		params MethodParams
		errs   int
	}{
		{"empty name", MethodParams{Descriptor: utf8("()V")}, 1},
		{"empty descriptor", MethodParams{Name: utf8("main")}, 1},
		{"both empty", MethodParams{}, 2},
		{"nil instruction", MethodParams{Name: utf8("f"), Descriptor: utf8("()V"), Instructions: []Instruction{nil}}, 1},
		{"unknown opcode", MethodParams{Name: utf8("f"), Descriptor: utf8("()V"), Instructions: []Instruction{NoOperand{Op: 0xfe}}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMethod(tt.params)
			require.Nil(t, m)
			require.NotNil(t, err)
			require.True(t, errors.Is(err, errz.Precondition))
			require.Contains(t, err.Error(), "bytecode.NewMethod")
			if tt.errs > 1 {
				require.Contains(t, err.Error(), "2 errors occurred")
			}
		})
	}
}

func TestMethodWithoutCode(t *testing.T) {
	m, err := NewMethod(MethodParams{
		Access:     AccPublic | AccAbstract,
		Name:       utf8("run"),
		Descriptor: utf8("()V"),
	})
	require.Nil(t, err)
	require.False(t, m.HasCode())
	code, err := m.Code(fixedResolver{})
	require.Nil(t, err)
	require.Empty(t, code)
}

func TestMethodSymbols(t *testing.T) {
	s := pool.String{Value: utf8("x")}
	m, err := NewMethod(MethodParams{
		Name:         utf8("f"),
		Descriptor:   utf8("()V"),
		Instructions: []Instruction{SymbolOperand{Op: op.LdcW, Symbol: s}, NoOperand{Op: op.Pop}, NoOperand{Op: op.Return}},
	})
	require.Nil(t, err)
	require.Equal(t, []pool.Symbol{s}, m.Symbols())
}

func TestNewClass(t *testing.T) {
	m, err := NewMethod(MethodParams{Name: utf8("f"), Descriptor: utf8("()V")})
	require.Nil(t, err)
	methods := []*Method{m}

	c, err := NewClass(ClassParams{
		Access:  AccPublic | AccSuper,
		This:    pool.Class{Name: utf8("HelloWorld")},
		Super:   pool.Class{Name: utf8(ObjectClass)},
		Methods: methods,
	})
	require.Nil(t, err)
	methods[0] = nil

	require.Equal(t, "HelloWorld", c.Name())
	require.Equal(t, 1, c.MethodCount())
	require.Equal(t, m, c.MethodAt(0))
	require.Equal(t, "public super", c.Access().String())
	require.Equal(t, ObjectClass, c.Super().Name.Value)
}

func TestNewClassPreconditions(t *testing.T) {
	_, err := NewClass(ClassParams{Super: pool.Class{Name: utf8(ObjectClass)}})
	require.True(t, errors.Is(err, errz.Precondition))
	require.Contains(t, err.Error(), "class name is empty")

	_, err = NewClass(ClassParams{This: pool.Class{Name: utf8("A")}})
	require.True(t, errors.Is(err, errz.Precondition))
	require.Contains(t, err.Error(), "super class name")

	_, err = NewClass(ClassParams{
		This:    pool.Class{Name: utf8("A")},
		Super:   pool.Class{Name: utf8(ObjectClass)},
		Methods: []*Method{nil},
	})
	require.True(t, errors.Is(err, errz.Precondition))
}

func TestAccessFlags(t *testing.T) {
	f := AccPublic | AccStatic
	require.True(t, f.Has(AccPublic))
	require.True(t, f.Has(AccPublic|AccStatic))
	require.False(t, f.Has(AccFinal))
	require.Equal(t, AccessFlags(9), f)
	require.Equal(t, "", AccessFlags(0).String())
}
