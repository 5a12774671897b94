package classfile

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/risor-io/jasm/pool"
)

// File is a decoded class file.
type File struct {
	MinorVersion uint16
	MajorVersion uint16
	AccessFlags  uint16
	ThisClass    uint16
	SuperClass   uint16
	This         string
	Super        string
	Methods      []MethodInfo

	pool []pool.Symbol
}

// MethodInfo is a decoded method.
type MethodInfo struct {
	AccessFlags uint16
	NameIndex   uint16
	Name        string
	Descriptor  string
	Code        *CodeInfo
}

// CodeInfo is a decoded Code attribute.
type CodeInfo struct {
	MaxStack  uint16
	MaxLocals uint16
	Code      []byte
}

// PoolCount returns the number of constant pool entries.
func (f *File) PoolCount() int {
	return len(f.pool)
}

// Symbol returns the pool entry at the 1-based index i.
func (f *File) Symbol(i int) (pool.Symbol, bool) {
	if i < 1 || i > len(f.pool) {
		return nil, false
	}
	return f.pool[i-1], true
}

// IndexOf returns the index of the pool entry equal to s.
func (f *File) IndexOf(s pool.Symbol) (int, bool) {
	for i, sym := range f.pool {
		if sym == s {
			return i + 1, true
		}
	}
	return 0, false
}

var errTruncated = errors.New("classfile: unexpected end of data")

type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) u1() uint8 {
	if r.err != nil || r.pos+1 > len(r.data) {
		r.err = errTruncated
		return 0
	}
	v := r.data[r.pos]
	r.pos++
	return v
}

func (r *reader) u2() uint16 {
	if r.err != nil || r.pos+2 > len(r.data) {
		r.err = errTruncated
		return 0
	}
	v := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v
}

func (r *reader) u4() uint32 {
	if r.err != nil || r.pos+4 > len(r.data) {
		r.err = errTruncated
		return 0
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil || n < 0 || r.pos+n > len(r.data) {
		r.err = errTruncated
		return nil
	}
	v := r.data[r.pos : r.pos+n]
	r.pos += n
	return v
}

// rawEntry is a pool entry before its references are resolved.
type rawEntry struct {
	tag  pool.Tag
	a, b uint16
	text string
	num  int32
}

// Parse decodes a class file. Pool entries may reference entries at any
// index, as produced by the frequency-ranked pool of Write.
func Parse(data []byte) (*File, error) {
	r := &reader{data: data}
	if magic := r.u4(); r.err == nil && magic != Magic {
		return nil, fmt.Errorf("classfile: bad magic 0x%08x", magic)
	}
	f := &File{}
	f.MinorVersion = r.u2()
	f.MajorVersion = r.u2()

	count := int(r.u2())
	if r.err != nil {
		return nil, r.err
	}
	if count == 0 {
		return nil, fmt.Errorf("classfile: constant pool count is 0")
	}
	raw := make([]rawEntry, count-1)
	for i := range raw {
		e := rawEntry{tag: pool.Tag(r.u1())}
		switch e.tag {
		case pool.TagUtf8:
			text, err := decodeModifiedUTF8(r.bytes(int(r.u2())))
			if err != nil && r.err == nil {
				return nil, fmt.Errorf("classfile: pool entry %d: %w", i+1, err)
			}
			e.text = text
		case pool.TagInteger:
			e.num = int32(r.u4())
		case pool.TagClass, pool.TagString:
			e.a = r.u2()
		case pool.TagNameAndType, pool.TagFieldRef, pool.TagMethodRef:
			e.a = r.u2()
			e.b = r.u2()
		default:
			if r.err != nil {
				return nil, r.err
			}
			return nil, fmt.Errorf("classfile: pool entry %d: unsupported tag %d", i+1, e.tag)
		}
		if r.err != nil {
			return nil, r.err
		}
		raw[i] = e
	}
	b := &poolBuilder{raw: raw, built: make([]pool.Symbol, len(raw))}
	f.pool = make([]pool.Symbol, len(raw))
	for i := range raw {
		sym, err := b.build(i+1, 0)
		if err != nil {
			return nil, err
		}
		f.pool[i] = sym
	}

	f.AccessFlags = r.u2()
	f.ThisClass = r.u2()
	f.SuperClass = r.u2()
	if r.err != nil {
		return nil, r.err
	}
	var err error
	if f.This, err = f.className(f.ThisClass); err != nil {
		return nil, err
	}
	if f.Super, err = f.className(f.SuperClass); err != nil {
		return nil, err
	}

	interfaces := int(r.u2())
	r.bytes(2 * interfaces)
	fields := int(r.u2())
	for i := 0; i < fields && r.err == nil; i++ {
		r.bytes(6)
		skipAttributes(r)
	}

	methods := int(r.u2())
	for i := 0; i < methods && r.err == nil; i++ {
		m, err := f.parseMethod(r)
		if err != nil {
			return nil, err
		}
		f.Methods = append(f.Methods, m)
	}
	skipAttributes(r)
	if r.err != nil {
		return nil, r.err
	}
	if r.pos != len(data) {
		return nil, fmt.Errorf("classfile: %d trailing bytes", len(data)-r.pos)
	}
	return f, nil
}

func (f *File) parseMethod(r *reader) (MethodInfo, error) {
	m := MethodInfo{AccessFlags: r.u2(), NameIndex: r.u2()}
	descIndex := r.u2()
	attrs := int(r.u2())
	if r.err != nil {
		return m, r.err
	}
	var err error
	if m.Name, err = f.text(m.NameIndex); err != nil {
		return m, err
	}
	if m.Descriptor, err = f.text(descIndex); err != nil {
		return m, err
	}
	for i := 0; i < attrs && r.err == nil; i++ {
		nameIndex := r.u2()
		length := int(r.u4())
		body := r.bytes(length)
		if r.err != nil {
			break
		}
		name, err := f.text(nameIndex)
		if err != nil {
			return m, err
		}
		if name != CodeAttribute {
			continue
		}
		cr := &reader{data: body}
		code := &CodeInfo{MaxStack: cr.u2(), MaxLocals: cr.u2()}
		code.Code = cr.bytes(int(cr.u4()))
		cr.bytes(8 * int(cr.u2()))
		skipAttributes(cr)
		if cr.err != nil {
			return m, fmt.Errorf("classfile: method %s: malformed Code attribute: %w", m.Name, cr.err)
		}
		m.Code = code
	}
	return m, r.err
}

func skipAttributes(r *reader) {
	n := int(r.u2())
	for i := 0; i < n && r.err == nil; i++ {
		r.u2()
		r.bytes(int(r.u4()))
	}
}

func (f *File) text(i uint16) (string, error) {
	s, ok := f.Symbol(int(i))
	if !ok {
		return "", fmt.Errorf("classfile: pool index %d out of range", i)
	}
	u, ok := s.(pool.Utf8)
	if !ok {
		return "", fmt.Errorf("classfile: pool index %d is %s, want Utf8", i, s.Tag())
	}
	return u.Value, nil
}

func (f *File) className(i uint16) (string, error) {
	s, ok := f.Symbol(int(i))
	if !ok {
		return "", fmt.Errorf("classfile: pool index %d out of range", i)
	}
	c, ok := s.(pool.Class)
	if !ok {
		return "", fmt.Errorf("classfile: pool index %d is %s, want Class", i, s.Tag())
	}
	return c.Name.Value, nil
}

type poolBuilder struct {
	raw   []rawEntry
	built []pool.Symbol
}

// build turns the raw entry at index i into a symbol, resolving references
// recursively. Well-formed pools are at most three levels deep.
func (b *poolBuilder) build(i int, depth int) (pool.Symbol, error) {
	if i < 1 || i > len(b.raw) {
		return nil, fmt.Errorf("classfile: pool index %d out of range", i)
	}
	if s := b.built[i-1]; s != nil {
		return s, nil
	}
	if depth > 3 {
		return nil, fmt.Errorf("classfile: pool entry %d nests too deeply", i)
	}
	e := b.raw[i-1]
	var sym pool.Symbol
	switch e.tag {
	case pool.TagUtf8:
		sym = pool.Utf8{Value: e.text}
	case pool.TagInteger:
		sym = pool.Integer{Value: e.num}
	case pool.TagClass:
		name, err := b.utf8(int(e.a), depth)
		if err != nil {
			return nil, err
		}
		sym = pool.Class{Name: name}
	case pool.TagString:
		value, err := b.utf8(int(e.a), depth)
		if err != nil {
			return nil, err
		}
		sym = pool.String{Value: value}
	case pool.TagNameAndType:
		name, err := b.utf8(int(e.a), depth)
		if err != nil {
			return nil, err
		}
		desc, err := b.utf8(int(e.b), depth)
		if err != nil {
			return nil, err
		}
		sym = pool.NameAndType{Name: name, Descriptor: desc}
	case pool.TagFieldRef, pool.TagMethodRef:
		ref, err := b.build(int(e.a), depth+1)
		if err != nil {
			return nil, err
		}
		class, ok := ref.(pool.Class)
		if !ok {
			return nil, fmt.Errorf("classfile: pool entry %d: class index %d is %s", i, e.a, ref.Tag())
		}
		ref, err = b.build(int(e.b), depth+1)
		if err != nil {
			return nil, err
		}
		nat, ok := ref.(pool.NameAndType)
		if !ok {
			return nil, fmt.Errorf("classfile: pool entry %d: name and type index %d is %s", i, e.b, ref.Tag())
		}
		if e.tag == pool.TagFieldRef {
			sym = pool.FieldRef{Class: class, NameAndType: nat}
		} else {
			sym = pool.MethodRef{Class: class, NameAndType: nat}
		}
	}
	b.built[i-1] = sym
	return sym, nil
}

func (b *poolBuilder) utf8(i int, depth int) (pool.Utf8, error) {
	s, err := b.build(i, depth+1)
	if err != nil {
		return pool.Utf8{}, err
	}
	u, ok := s.(pool.Utf8)
	if !ok {
		return pool.Utf8{}, fmt.Errorf("classfile: pool index %d is %s, want Utf8", i, s.Tag())
	}
	return u, nil
}
