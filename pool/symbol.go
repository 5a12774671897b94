// Package pool implements the constant pool of a class file.
//
// Symbols are plain comparable values: two Utf8{"main"} values are the same
// symbol no matter where they were created, so a Table deduplicates by value.
// Composite symbols embed the symbols they depend on, which gives the pool the
// shape of a DAG:
//
//	FieldRef/MethodRef -> Class + NameAndType
//	NameAndType        -> Utf8 (name) + Utf8 (descriptor)
//	Class/String       -> Utf8
//
// A Table counts how often each symbol is interned and, once the class is
// complete, ranks all symbols into their final 1-based indices (see Resolve).
package pool

import (
	"fmt"
	"strconv"
)

// Tag is the class-file tag byte of a constant pool entry.
type Tag uint8

const (
	TagUtf8        Tag = 1
	TagInteger     Tag = 3
	TagClass       Tag = 7
	TagString      Tag = 8
	TagFieldRef    Tag = 9
	TagMethodRef   Tag = 10
	TagNameAndType Tag = 12
)

// String returns the name of the tag.
func (t Tag) String() string {
	switch t {
	case TagUtf8:
		return "Utf8"
	case TagInteger:
		return "Integer"
	case TagClass:
		return "Class"
	case TagString:
		return "String"
	case TagFieldRef:
		return "Fieldref"
	case TagMethodRef:
		return "Methodref"
	case TagNameAndType:
		return "NameAndType"
	default:
		return "Tag(" + strconv.Itoa(int(t)) + ")"
	}
}

// Symbol is a constant pool entry. The set of implementations is closed.
type Symbol interface {
	// Tag returns the class-file tag of the entry.
	Tag() Tag
	// Refs returns the symbols this entry references, in encoding order.
	Refs() []Symbol
	String() string
	symbol()
}

// Utf8 is a text constant.
type Utf8 struct {
	Value string
}

func (Utf8) Tag() Tag         { return TagUtf8 }
func (Utf8) Refs() []Symbol   { return nil }
func (u Utf8) String() string { return strconv.Quote(u.Value) }
func (Utf8) symbol()          {}

// Integer is a 32-bit integer literal.
type Integer struct {
	Value int32
}

func (Integer) Tag() Tag         { return TagInteger }
func (Integer) Refs() []Symbol   { return nil }
func (i Integer) String() string { return strconv.Itoa(int(i.Value)) }
func (Integer) symbol()          {}

// Class references a class or interface by its internal name.
type Class struct {
	Name Utf8
}

func (Class) Tag() Tag         { return TagClass }
func (c Class) Refs() []Symbol { return []Symbol{c.Name} }
func (c Class) String() string { return c.Name.Value }
func (Class) symbol()          {}

// String is a string literal.
type String struct {
	Value Utf8
}

func (String) Tag() Tag         { return TagString }
func (s String) Refs() []Symbol { return []Symbol{s.Value} }
func (s String) String() string { return strconv.Quote(s.Value.Value) }
func (String) symbol()          {}

// NameAndType pairs a member name with its descriptor.
type NameAndType struct {
	Name       Utf8
	Descriptor Utf8
}

func (NameAndType) Tag() Tag { return TagNameAndType }

func (n NameAndType) Refs() []Symbol {
	return []Symbol{n.Name, n.Descriptor}
}

func (n NameAndType) String() string {
	return n.Name.Value + ":" + n.Descriptor.Value
}

func (NameAndType) symbol() {}

// FieldRef references a field of a class.
type FieldRef struct {
	Class       Class
	NameAndType NameAndType
}

func (FieldRef) Tag() Tag { return TagFieldRef }

func (f FieldRef) Refs() []Symbol {
	return []Symbol{f.Class, f.NameAndType}
}

func (f FieldRef) String() string {
	return fmt.Sprintf("%s.%s", f.Class, f.NameAndType)
}

func (FieldRef) symbol() {}

// MethodRef references a method of a class.
type MethodRef struct {
	Class       Class
	NameAndType NameAndType
}

func (MethodRef) Tag() Tag { return TagMethodRef }

func (m MethodRef) Refs() []Symbol {
	return []Symbol{m.Class, m.NameAndType}
}

func (m MethodRef) String() string {
	return fmt.Sprintf("%s.%s", m.Class, m.NameAndType)
}

func (MethodRef) symbol() {}

// MemberRef is implemented by FieldRef and MethodRef.
type MemberRef interface {
	Symbol
	Owner() Class
	Member() NameAndType
}

func (f FieldRef) Owner() Class         { return f.Class }
func (f FieldRef) Member() NameAndType  { return f.NameAndType }
func (m MethodRef) Owner() Class        { return m.Class }
func (m MethodRef) Member() NameAndType { return m.NameAndType }
