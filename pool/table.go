package pool

import (
	"sort"

	"github.com/risor-io/jasm/errz"
)

// MaxEntries is the largest number of symbols a pool can hold. The count
// field written to the class file is MaxEntries+1 and must fit in 16 bits.
const MaxEntries = 0xffff - 1

type entry struct {
	symbol Symbol
	count  int
	order  int
}

// Table tracks the unique symbols referenced by one class and how often each
// one was interned. It only grows. A Table is not safe for concurrent use.
type Table struct {
	entries  []*entry
	bySymbol map[Symbol]*entry
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{bySymbol: map[Symbol]*entry{}}
}

// Intern registers the symbol, or bumps its usage count if an equal symbol
// is already present, and returns it. Callers intern dependencies first; the
// chain helpers below do this for them.
func (t *Table) Intern(s Symbol) Symbol {
	if e, ok := t.bySymbol[s]; ok {
		e.count++
		return e.symbol
	}
	e := &entry{symbol: s, count: 1, order: len(t.entries)}
	t.entries = append(t.entries, e)
	t.bySymbol[s] = e
	return s
}

// Text interns a Utf8 constant.
func (t *Table) Text(value string) Utf8 {
	return t.Intern(Utf8{Value: value}).(Utf8)
}

// ClassRef interns a class by internal name, e.g. "java/lang/Object".
func (t *Table) ClassRef(name string) Class {
	return t.Intern(Class{Name: t.Text(name)}).(Class)
}

// StringConst interns a string literal.
func (t *Table) StringConst(value string) String {
	return t.Intern(String{Value: t.Text(value)}).(String)
}

// IntConst interns an integer literal.
func (t *Table) IntConst(value int32) Integer {
	return t.Intern(Integer{Value: value}).(Integer)
}

// NameAndType interns a name and descriptor pair.
func (t *Table) NameAndType(name, descriptor string) NameAndType {
	n := NameAndType{Name: t.Text(name), Descriptor: t.Text(descriptor)}
	return t.Intern(n).(NameAndType)
}

// FieldRef interns a reference to field name of type descriptor on owner.
func (t *Table) FieldRef(owner, name, descriptor string) FieldRef {
	class := t.ClassRef(owner)
	f := FieldRef{Class: class, NameAndType: t.NameAndType(name, descriptor)}
	return t.Intern(f).(FieldRef)
}

// MethodRef interns a reference to method name with descriptor on owner.
func (t *Table) MethodRef(owner, name, descriptor string) MethodRef {
	class := t.ClassRef(owner)
	m := MethodRef{Class: class, NameAndType: t.NameAndType(name, descriptor)}
	return t.Intern(m).(MethodRef)
}

// Count returns how many times the symbol was interned, 0 if never.
func (t *Table) Count(s Symbol) int {
	if e, ok := t.bySymbol[s]; ok {
		return e.count
	}
	return 0
}

// Contains reports whether the symbol was interned.
func (t *Table) Contains(s Symbol) bool {
	_, ok := t.bySymbol[s]
	return ok
}

// Len returns the number of unique symbols.
func (t *Table) Len() int {
	return len(t.entries)
}

// Symbols returns the symbols in the order they were first interned.
func (t *Table) Symbols() []Symbol {
	symbols := make([]Symbol, len(t.entries))
	for i, e := range t.entries {
		symbols[i] = e.symbol
	}
	return symbols
}

// Resolve assigns the final indices. Symbols are ranked by descending usage
// count, ties keep insertion order, and a symbol's index is its rank plus one
// so that frequently used symbols land in the one-byte index range. Resolve
// does not modify the table and may be called again after more interning.
func (t *Table) Resolve() (*Index, error) {
	if len(t.entries) > MaxEntries {
		return nil, errz.Overflowf("pool.Resolve",
			"constant pool has %d entries, at most %d allowed", len(t.entries), MaxEntries)
	}
	ranked := make([]*entry, len(t.entries))
	copy(ranked, t.entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].count > ranked[j].count
	})
	idx := &Index{
		symbols: make([]Symbol, len(ranked)),
		indices: make(map[Symbol]uint16, len(ranked)),
	}
	for rank, e := range ranked {
		idx.symbols[rank] = e.symbol
		idx.indices[e.symbol] = uint16(rank + 1)
	}
	for _, e := range t.entries {
		for _, ref := range e.symbol.Refs() {
			if _, ok := t.bySymbol[ref]; !ok {
				return nil, errz.Invariantf("pool.Resolve",
					"%s %s references %s %s which was never interned",
					e.symbol.Tag(), e.symbol, ref.Tag(), ref)
			}
		}
	}
	return idx, nil
}

// Index is the resolved symbol to index mapping of a Table.
type Index struct {
	symbols []Symbol
	indices map[Symbol]uint16
}

// Lookup returns the 1-based index of the symbol. A miss means the symbol was
// never interned, which is an assembler bug rather than bad input.
func (x *Index) Lookup(s Symbol) (uint16, error) {
	i, ok := x.indices[s]
	if !ok {
		return 0, errz.Invariantf("pool.Lookup", "%s %s was never interned", s.Tag(), s)
	}
	return i, nil
}

// At returns the symbol at the given 1-based index.
func (x *Index) At(i int) (Symbol, bool) {
	if i < 1 || i > len(x.symbols) {
		return nil, false
	}
	return x.symbols[i-1], true
}

// Len returns the number of resolved symbols.
func (x *Index) Len() int {
	return len(x.symbols)
}

// Entries returns the symbols in ascending index order.
func (x *Index) Entries() []Symbol {
	symbols := make([]Symbol, len(x.symbols))
	copy(symbols, x.symbols)
	return symbols
}
