// Package classfile serializes assembled classes to the JVM class-file format
// and decodes that format back.
//
// Writing is a two-phase pipeline. The constant pool is first resolved into
// its final index mapping (see pool.Table.Resolve); only then are bytes
// emitted, with every pool entry and instruction operand referring to other
// symbols through that mapping. Choosing the width of dual-width instructions
// before ranking is complete would be unsound, so the phases never interleave.
//
// The output is a minimal class file: no interfaces, no fields, one Code
// attribute per method with a body, no exception tables, no stack maps and no
// class attributes.
package classfile

import (
	"fmt"
	"unicode/utf8"

	"github.com/risor-io/jasm/bytecode"
	"github.com/risor-io/jasm/errz"
	"github.com/risor-io/jasm/pool"
	"github.com/rs/zerolog"
)

const (
	// Magic is the first four bytes of every class file.
	Magic = 0xcafebabe

	// DefaultMajorVersion is the Java 8 class-file version.
	DefaultMajorVersion = 52

	// DefaultMinorVersion is the minor version paired with DefaultMajorVersion.
	DefaultMinorVersion = 0

	// CodeAttribute is the name of the method attribute carrying bytecode.
	CodeAttribute = "Code"

	// codeOverhead is the size of the Code attribute body besides the code
	// bytes: max stack (2), max locals (2), code length (4), exception
	// table length (2) and attribute count (2).
	codeOverhead = 12
)

// Option configures Write.
type Option func(*options)

type options struct {
	major  uint16
	minor  uint16
	logger zerolog.Logger
}

// WithVersion sets the class-file version written to the header.
func WithVersion(major, minor uint16) Option {
	return func(o *options) {
		o.major = major
		o.minor = minor
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Write serializes class using the symbols interned in table. It does not
// modify either argument and returns identical bytes for identical input.
// Any symbol referenced by the class but missing from the table is an
// Invariant error; any value too large for its field is an Overflow error.
// No bytes are returned on failure.
func Write(class *bytecode.Class, table *pool.Table, opts ...Option) ([]byte, error) {
	o := options{
		major:  DefaultMajorVersion,
		minor:  DefaultMinorVersion,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if class == nil {
		return nil, errz.Invariantf("classfile.Write", "class is nil")
	}
	idx, err := table.Resolve()
	if err != nil {
		return nil, err
	}
	w := NewWriter()
	w.U4("magic", Magic)
	w.U2("minor version", int(o.minor))
	w.U2("major version", int(o.major))

	if err := writePool(w, idx); err != nil {
		return nil, err
	}

	this, err := idx.Lookup(class.This())
	if err != nil {
		return nil, err
	}
	super, err := idx.Lookup(class.Super())
	if err != nil {
		return nil, err
	}
	w.U2("class access flags", int(class.Access()))
	w.U2("this class", int(this))
	w.U2("super class", int(super))
	w.U2("interfaces count", 0)
	w.U2("fields count", 0)

	w.U2("methods count", class.MethodCount())
	for i := 0; i < class.MethodCount(); i++ {
		if err := writeMethod(w, class.MethodAt(i), idx); err != nil {
			return nil, err
		}
	}
	w.U2("class attributes count", 0)

	out, err := w.Result()
	if err != nil {
		return nil, err
	}
	o.logger.Debug().
		Str("class", class.Name()).
		Int("pool_entries", idx.Len()).
		Int("methods", class.MethodCount()).
		Int("bytes", len(out)).
		Msg("class written")
	return out, nil
}

func writePool(w *Writer, idx *pool.Index) error {
	w.U2("constant pool count", idx.Len()+1)
	for _, sym := range idx.Entries() {
		if err := writeEntry(w, sym, idx); err != nil {
			return err
		}
	}
	return w.Err()
}

func writeEntry(w *Writer, sym pool.Symbol, idx *pool.Index) error {
	w.U1("tag", int(sym.Tag()))
	switch s := sym.(type) {
	case pool.Utf8:
		if !utf8.ValidString(s.Value) {
			return errz.Invariantf("classfile.Write", "Utf8 %q is not valid UTF-8", s.Value)
		}
		text := encodeModifiedUTF8(s.Value)
		w.U2(fmt.Sprintf("length of text %.20q", s.Value), len(text))
		w.Bytes(text)
	case pool.Integer:
		w.U4("integer", int64(uint32(s.Value)))
	case pool.Class, pool.String, pool.NameAndType, pool.FieldRef, pool.MethodRef:
		for _, ref := range s.Refs() {
			i, err := idx.Lookup(ref)
			if err != nil {
				return err
			}
			w.U2("pool reference", int(i))
		}
	default:
		return errz.Invariantf("classfile.Write", "unsupported pool entry %T", sym)
	}
	return w.Err()
}

func writeMethod(w *Writer, m *bytecode.Method, idx *pool.Index) error {
	name, err := idx.Lookup(m.Name())
	if err != nil {
		return err
	}
	desc, err := idx.Lookup(m.Descriptor())
	if err != nil {
		return err
	}
	w.U2("method access flags", int(m.Access()))
	w.U2("method name", int(name))
	w.U2("method descriptor", int(desc))
	if !m.HasCode() {
		w.U2("method attributes count", 0)
		return w.Err()
	}
	codeName, err := idx.Lookup(pool.Utf8{Value: CodeAttribute})
	if err != nil {
		return err
	}
	code, err := m.Code(idx)
	if err != nil {
		return err
	}
	w.U2("method attributes count", 1)
	w.U2("attribute name", int(codeName))
	w.U4("code attribute length", int64(len(code))+codeOverhead)
	w.U2("max stack", int(m.MaxStack()))
	w.U2("max locals", int(m.MaxLocals()))
	w.U4("code length", int64(len(code)))
	w.Bytes(code)
	w.U2("exception table length", 0)
	w.U2("code attributes count", 0)
	return w.Err()
}
