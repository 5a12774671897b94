package classfile

import (
	"errors"
	"testing"

	"github.com/risor-io/jasm/errz"
	"github.com/stretchr/testify/require"
)

func TestWriterBigEndian(t *testing.T) {
	w := NewWriter()
	w.U1("a", 0x01)
	w.U2("b", 0x0203)
	w.U4("c", 0x04050607)
	w.Bytes([]byte{0x08})
	out, err := w.Result()
	require.Nil(t, err)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, out)
	require.Equal(t, 8, w.Len())
}

func TestWriterOverflow(t *testing.T) {
	w := NewWriter()
	w.U1("tag", 1)
	w.U2("constant pool count", 0x10000)
	w.U2("later", 1)
	require.Equal(t, 1, w.Len())
	out, err := w.Result()
	require.Nil(t, out)
	require.True(t, errors.Is(err, errz.Overflow))
	require.Equal(t, "overflow: classfile.Writer: constant pool count is 65536, must be between 0 and 65535", err.Error())

	w = NewWriter()
	w.U1("tag", -1)
	require.True(t, errors.Is(w.Err(), errz.Overflow))

	w = NewWriter()
	w.U4("code length", 1<<32)
	require.True(t, errors.Is(w.Err(), errz.Overflow))
}

func TestModifiedUTF8(t *testing.T) {
	tests := []struct {
		input string
		want  []byte
	}{
		{"abc", []byte("abc")},
		{"a\x00b", []byte{'a', 0xc0, 0x80, 'b'}},
		{"é", []byte{0xc3, 0xa9}},
		{"€", []byte{0xe2, 0x82, 0xac}},
		{"😀", []byte{0xed, 0xa0, 0xbd, 0xed, 0xb8, 0x80}},
	}
	for _, tt := range tests {
		got := encodeModifiedUTF8(tt.input)
		require.Equal(t, tt.want, got, tt.input)
		back, err := decodeModifiedUTF8(got)
		require.Nil(t, err)
		require.Equal(t, tt.input, back)
	}
	_, err := decodeModifiedUTF8([]byte{0})
	require.NotNil(t, err)
	_, err = decodeModifiedUTF8([]byte{0xe2, 0x82})
	require.NotNil(t, err)
}
