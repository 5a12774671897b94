package op

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo(LdcW)
	require.Equal(t, "ldc_w", info.Name)
	require.Equal(t, FormSymbol, info.Form)
	require.Equal(t, LdcW, info.Code)
	require.True(t, info.HasShortForm())
	require.Equal(t, Ldc, info.Short)
}

func TestGetInfoAllOpcodes(t *testing.T) {
	tests := []struct {
		code Code
		byte byte
		name string
		form Form
	}{
		{Nop, 0x00, "nop", FormNone},
		{AConstNull, 0x01, "aconst_null", FormNone},
		{IConstM1, 0x02, "iconst_m1", FormNone},
		{IConst0, 0x03, "iconst_0", FormNone},
		{IConst5, 0x08, "iconst_5", FormNone},
		{BiPush, 0x10, "bipush", FormByte},
		{SiPush, 0x11, "sipush", FormShort},
		{Ldc, 0x12, "ldc", FormSymbol},
		{LdcW, 0x13, "ldc_w", FormSymbol},
		{ILoad, 0x15, "iload", FormLocal},
		{ALoad, 0x19, "aload", FormLocal},
		{IStore, 0x36, "istore", FormLocal},
		{AStore, 0x3a, "astore", FormLocal},
		{Pop, 0x57, "pop", FormNone},
		{Dup, 0x59, "dup", FormNone},
		{IReturn, 0xac, "ireturn", FormNone},
		{AReturn, 0xb0, "areturn", FormNone},
		{Return, 0xb1, "return", FormNone},
		{GetStatic, 0xb2, "getstatic", FormSymbol},
		{InvokeVirtual, 0xb6, "invokevirtual", FormSymbol},
		{InvokeSpecial, 0xb7, "invokespecial", FormSymbol},
		{InvokeStatic, 0xb8, "invokestatic", FormSymbol},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.byte, byte(tt.code))
			info := GetInfo(tt.code)
			require.Equal(t, tt.name, info.Name)
			require.Equal(t, tt.form, info.Form)
			require.Equal(t, tt.name, tt.code.String())
		})
	}
}

func TestOnlyLdcWHasShortForm(t *testing.T) {
	for b := 0; b < 256; b++ {
		info, ok := Lookup(byte(b))
		if !ok {
			continue
		}
		require.Equal(t, info.Code == LdcW, info.HasShortForm(), info.Name)
	}
}

func TestLookupUnknown(t *testing.T) {
	_, ok := Lookup(0xff)
	require.False(t, ok)
	require.Equal(t, "unknown", Code(0xff).String())
}

func TestVariableStackEffects(t *testing.T) {
	for _, code := range []Code{InvokeVirtual, InvokeSpecial, InvokeStatic} {
		info := GetInfo(code)
		require.Equal(t, Variable, info.Pops)
		require.Equal(t, Variable, info.Pushes)
	}
	require.Equal(t, Variable, GetInfo(GetStatic).Pushes)
	require.Equal(t, 0, GetInfo(GetStatic).Pops)
}

func TestShortFormLinksBack(t *testing.T) {
	ldc := GetInfo(Ldc)
	require.True(t, ldc.IsShortForm())
	require.Equal(t, LdcW, ldc.Wide)
	require.False(t, GetInfo(LdcW).IsShortForm())
}
