// Package bytecode provides the in-memory model of an assembled class.
//
// This package defines instructions, methods and classes as pure data. They
// refer to constant pool entries by symbol value, never by index: indices are
// only known once the whole class is complete and the pool has been ranked, so
// encoding takes a [Resolver] produced at that point.
//
// # Key Types
//
//   - [Instruction]: one of [NoOperand], [ByteOperand], [ShortOperand],
//     [LocalOperand], [SymbolOperand] or [TwoSymbolOperand]
//   - [Method]: an immutable method with its instruction sequence
//   - [Class]: an immutable class, the unit handed to the serializer
//   - [AccessFlags]: class and method access flags
//
// # Immutability Guarantees
//
// Methods and classes are immutable after construction:
//
//   - All fields are unexported
//   - Constructors validate their input and copy input slices
//   - Index-based accessors are provided instead of slice accessors
//
// # Encoding Width
//
// The encoded length of a [SymbolOperand] depends on the index its symbol
// resolves to. Dual-width instructions (ldc/ldc_w) use the one-byte form when
// the index is at most [MaxShortIndex]:
//
//	idx, _ := table.Resolve()
//	code, err := method.Code(idx)
package bytecode
