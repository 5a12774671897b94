package classfile

import (
	"bytes"
	"encoding/binary"

	"github.com/risor-io/jasm/errz"
)

// Writer accumulates big-endian class-file data. Every write is range checked;
// the first failure is kept and later writes become no-ops, so a sequence of
// writes can be checked once with Err.
type Writer struct {
	buf bytes.Buffer
	err error
}

// NewWriter returns an empty writer.
func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) fail(field string, v int64, max int64) {
	if w.err == nil {
		w.err = errz.Overflowf("classfile.Writer", "%s is %d, must be between 0 and %d", field, v, max)
	}
}

// U1 writes one unsigned byte.
func (w *Writer) U1(field string, v int) {
	if w.err != nil {
		return
	}
	if v < 0 || v > 0xff {
		w.fail(field, int64(v), 0xff)
		return
	}
	w.buf.WriteByte(byte(v))
}

// U2 writes an unsigned 16-bit value.
func (w *Writer) U2(field string, v int) {
	if w.err != nil {
		return
	}
	if v < 0 || v > 0xffff {
		w.fail(field, int64(v), 0xffff)
		return
	}
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], uint16(v))
	w.buf.Write(b[:])
}

// U4 writes an unsigned 32-bit value.
func (w *Writer) U4(field string, v int64) {
	if w.err != nil {
		return
	}
	if v < 0 || v > 0xffffffff {
		w.fail(field, v, 0xffffffff)
		return
	}
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	w.buf.Write(b[:])
}

// Bytes writes raw bytes.
func (w *Writer) Bytes(b []byte) {
	if w.err != nil {
		return
	}
	w.buf.Write(b)
}

// Err returns the first error encountered.
func (w *Writer) Err() error {
	return w.err
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Result returns the written bytes, or the first error.
func (w *Writer) Result() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf.Bytes(), nil
}
