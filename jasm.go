// Package jasm assembles JVM class files.
//
// An Assembler builds one class through nested builders. Symbols referenced
// while emitting (classes, fields, methods, string and integer constants) are
// interned into a single constant pool; once the class is ended the pool is
// ranked by usage and the class is serialized:
//
//	a := jasm.New()
//	cb := a.BeginClass("HelloWorld", jasm.DefaultClassFlags)
//	mb := cb.BeginMethod(jasm.DefaultMethodFlags, "main", "([Ljava/lang/String;)V")
//	mb.GetStatic("java/lang/System", "out", "Ljava/io/PrintStream;").
//		LoadString("Hello World").
//		InvokeVirtual("java/io/PrintStream", "println", "(Ljava/lang/String;)V").
//		Return()
//	if err := mb.End(); err != nil {
//		return err
//	}
//	if _, err := cb.End(); err != nil {
//		return err
//	}
//	data, err := a.Write()
//
// Misuse such as emitting after End, or beginning a second class, is recorded
// and reported as a Precondition error by the next End call.
package jasm

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
	"github.com/risor-io/jasm/bytecode"
	"github.com/risor-io/jasm/classfile"
	"github.com/risor-io/jasm/descriptor"
	"github.com/risor-io/jasm/errz"
	"github.com/risor-io/jasm/op"
	"github.com/risor-io/jasm/pool"
)

// Default access flags for generated classes and entry-point methods.
const (
	DefaultClassFlags  = bytecode.AccPublic | bytecode.AccSuper
	DefaultMethodFlags = bytecode.AccPublic | bytecode.AccStatic
)

// MaxLocalSlot is the highest local slot reachable by the one-byte local
// instructions.
const MaxLocalSlot = math.MaxUint8

// Assembler owns the constant pool and the single class being built. It is
// not safe for concurrent use.
type Assembler struct {
	opts    *options
	table   *pool.Table
	builder *ClassBuilder
	class   *bytecode.Class
}

// New returns an Assembler configured with the given options.
func New(opts ...Option) *Assembler {
	return &Assembler{
		opts:  collectOptions(opts...),
		table: pool.NewTable(),
	}
}

// Table returns the constant pool. Symbols passed to MethodBuilder.Emit must
// be interned here.
func (a *Assembler) Table() *pool.Table {
	return a.table
}

// Class returns the ended class, or nil.
func (a *Assembler) Class() *bytecode.Class {
	return a.class
}

// BeginClass starts the class. Super defaults to java/lang/Object. Only one
// class may be begun per Assembler.
func (a *Assembler) BeginClass(name string, flags bytecode.AccessFlags, super ...string) *ClassBuilder {
	cb := &ClassBuilder{
		asm:   a,
		name:  name,
		flags: flags,
		super: bytecode.ObjectClass,
	}
	switch {
	case a.builder != nil:
		cb.fail(errz.Preconditionf("jasm.BeginClass", "class %q was already begun", a.builder.name))
	case len(super) > 1:
		cb.fail(errz.Preconditionf("jasm.BeginClass", "class %q has %d super classes", name, len(super)))
	case len(super) == 1:
		cb.super = super[0]
	}
	if a.builder == nil {
		a.builder = cb
	}
	return cb
}

// Write serializes the ended class.
func (a *Assembler) Write() ([]byte, error) {
	if a.class == nil {
		return nil, errz.Preconditionf("jasm.Write", "no class has been ended")
	}
	return a.Serialize(a.class)
}

// Serialize writes class using this Assembler's constant pool and version.
func (a *Assembler) Serialize(class *bytecode.Class) ([]byte, error) {
	return classfile.Write(class, a.table, a.opts.writeOpts()...)
}

// ClassBuilder collects the methods of a class.
type ClassBuilder struct {
	asm     *Assembler
	name    string
	flags   bytecode.AccessFlags
	super   string
	methods []*bytecode.Method
	open    *MethodBuilder
	ended   bool
	err     *multierror.Error
}

func (cb *ClassBuilder) fail(err error) {
	cb.err = multierror.Append(cb.err, err)
}

// Name returns the internal name of the class.
func (cb *ClassBuilder) Name() string {
	return cb.name
}

// BeginMethod starts a method. The previous method must have been ended.
func (cb *ClassBuilder) BeginMethod(flags bytecode.AccessFlags, name, descriptor string) *MethodBuilder {
	mb := &MethodBuilder{
		class:      cb,
		flags:      flags,
		name:       name,
		descriptor: descriptor,
		locals:     map[string]int{},
	}
	switch {
	case cb.ended:
		mb.detached = true
		cb.fail(errz.Preconditionf("jasm.BeginMethod", "method %s%s begun after class %q ended", name, descriptor, cb.name))
	case cb.open != nil:
		mb.detached = true
		cb.fail(errz.Preconditionf("jasm.BeginMethod", "method %s%s begun while %s%s is open",
			name, descriptor, cb.open.name, cb.open.descriptor))
	default:
		cb.open = mb
	}
	return mb
}

// End freezes the class. The class name is interned, then the super class.
func (cb *ClassBuilder) End() (*bytecode.Class, error) {
	const opName = "jasm.ClassBuilder.End"
	if cb.ended {
		return nil, errz.Preconditionf(opName, "class %q already ended", cb.name)
	}
	cb.ended = true
	if cb.open != nil {
		cb.fail(fmt.Errorf("method %s%s is still open", cb.open.name, cb.open.descriptor))
		cb.open.ended = true
		cb.open = nil
	}
	if cb.name == "" {
		cb.fail(fmt.Errorf("class name is empty"))
	}
	if cb.super == "" {
		cb.fail(fmt.Errorf("super class name of %q is empty", cb.name))
	}
	if err := checkText("class name", cb.name); err != nil {
		cb.fail(err)
	}
	if err := checkText("super class name", cb.super); err != nil {
		cb.fail(err)
	}
	if err := cb.err.ErrorOrNil(); err != nil {
		return nil, errz.New(errz.Precondition, opName, err)
	}
	table := cb.asm.table
	class, err := bytecode.NewClass(bytecode.ClassParams{
		Access:  cb.flags,
		This:    table.ClassRef(cb.name),
		Super:   table.ClassRef(cb.super),
		Methods: cb.methods,
	})
	if err != nil {
		return nil, err
	}
	if cb.asm.builder == cb {
		cb.asm.class = class
	}
	cb.asm.opts.logger.Debug().
		Str("class", cb.name).
		Str("super", cb.super).
		Int("methods", len(cb.methods)).
		Int("pool_entries", table.Len()).
		Msg("class ended")
	return class, nil
}

// MethodBuilder appends instructions to a method. Emitters return the
// builder so calls can be chained; problems are reported by End.
type MethodBuilder struct {
	class        *ClassBuilder
	flags        bytecode.AccessFlags
	name         string
	descriptor   string
	instructions []bytecode.Instruction
	locals       map[string]int
	nextSlot     int
	ended        bool
	detached     bool
	err          *multierror.Error
}

func (mb *MethodBuilder) fail(err error) {
	mb.err = multierror.Append(mb.err, err)
}

func (mb *MethodBuilder) emit(instr bytecode.Instruction) *MethodBuilder {
	if mb.detached {
		return mb
	}
	if mb.ended {
		mb.class.fail(errz.Preconditionf("jasm.MethodBuilder", "%s emitted after method %s%s ended",
			instr, mb.name, mb.descriptor))
		return mb
	}
	mb.instructions = append(mb.instructions, instr)
	return mb
}

func (mb *MethodBuilder) table() *pool.Table {
	return mb.class.asm.table
}

// checkText reports text that cannot be encoded in a Utf8 pool entry.
func checkText(what, s string) error {
	if utf8.ValidString(s) {
		return nil
	}
	return fmt.Errorf("%s %q is not valid UTF-8", what, s)
}

// validText records an error for the first invalid text. Nothing should be
// interned or emitted when it returns false.
func (mb *MethodBuilder) validText(what string, texts ...string) bool {
	for _, s := range texts {
		err := checkText(what, s)
		if err == nil {
			continue
		}
		if mb.ended {
			mb.class.fail(errz.New(errz.Precondition, "jasm.MethodBuilder", err))
		} else {
			mb.fail(err)
		}
		return false
	}
	return true
}

// Name returns the method name.
func (mb *MethodBuilder) Name() string {
	return mb.name
}

// Emit appends an instruction. Its symbols must come from Assembler.Table.
func (mb *MethodBuilder) Emit(instr bytecode.Instruction) *MethodBuilder {
	if instr == nil {
		mb.fail(fmt.Errorf("instruction %d is nil", len(mb.instructions)))
		return mb
	}
	return mb.emit(instr)
}

// Parameter names the next local slot without emitting code. Declare
// parameters in descriptor order, before other locals.
func (mb *MethodBuilder) Parameter(name string) *MethodBuilder {
	if _, ok := mb.locals[name]; ok {
		mb.fail(fmt.Errorf("parameter %q is already declared", name))
		return mb
	}
	mb.slot(name)
	return mb
}

// slot returns the slot of the named local, assigning the next free one on
// first use.
func (mb *MethodBuilder) slot(name string) uint8 {
	if s, ok := mb.locals[name]; ok {
		return uint8(s)
	}
	s := mb.nextSlot
	mb.nextSlot++
	mb.locals[name] = s
	if s > MaxLocalSlot {
		mb.fail(fmt.Errorf("local %q needs slot %d, the highest available is %d", name, s, MaxLocalSlot))
		return 0
	}
	return uint8(s)
}

// Slot returns the slot assigned to the named local.
func (mb *MethodBuilder) Slot(name string) (int, bool) {
	s, ok := mb.locals[name]
	return s, ok
}

func (mb *MethodBuilder) local(code op.Code, name string) *MethodBuilder {
	return mb.emit(bytecode.LocalOperand{Op: code, Slot: mb.slot(name)})
}

// ILoad pushes the named int local.
func (mb *MethodBuilder) ILoad(name string) *MethodBuilder { return mb.local(op.ILoad, name) }

// IStore pops an int into the named local.
func (mb *MethodBuilder) IStore(name string) *MethodBuilder { return mb.local(op.IStore, name) }

// ALoad pushes the named reference local.
func (mb *MethodBuilder) ALoad(name string) *MethodBuilder { return mb.local(op.ALoad, name) }

// AStore pops a reference into the named local.
func (mb *MethodBuilder) AStore(name string) *MethodBuilder { return mb.local(op.AStore, name) }

// LoadString pushes a string constant.
func (mb *MethodBuilder) LoadString(s string) *MethodBuilder {
	if !mb.validText("string constant", s) {
		return mb
	}
	return mb.emit(bytecode.SymbolOperand{Op: op.LdcW, Symbol: mb.table().StringConst(s)})
}

// LoadInt pushes an int constant using the shortest instruction. Values
// outside the 32-bit signed range are rejected.
func (mb *MethodBuilder) LoadInt(v int64) *MethodBuilder {
	if v < math.MinInt32 || v > math.MaxInt32 {
		mb.fail(fmt.Errorf("int constant %d does not fit in 32 bits", v))
		return mb
	}
	return mb.emit(bytecode.IntConstant(mb.table(), int32(v)))
}

func (mb *MethodBuilder) field(code op.Code, owner, name, desc string) *MethodBuilder {
	if !mb.validText("field reference", owner, name, desc) {
		return mb
	}
	return mb.emit(bytecode.SymbolOperand{Op: code, Symbol: mb.table().FieldRef(owner, name, desc)})
}

func (mb *MethodBuilder) method(code op.Code, owner, name, desc string) *MethodBuilder {
	if !mb.validText("method reference", owner, name, desc) {
		return mb
	}
	return mb.emit(bytecode.SymbolOperand{Op: code, Symbol: mb.table().MethodRef(owner, name, desc)})
}

// GetStatic pushes the value of a static field.
func (mb *MethodBuilder) GetStatic(owner, name, desc string) *MethodBuilder {
	return mb.field(op.GetStatic, owner, name, desc)
}

// PutStatic pops a value into a static field.
func (mb *MethodBuilder) PutStatic(owner, name, desc string) *MethodBuilder {
	return mb.field(op.PutStatic, owner, name, desc)
}

// GetField replaces an object reference with the value of one of its fields.
func (mb *MethodBuilder) GetField(owner, name, desc string) *MethodBuilder {
	return mb.field(op.GetField, owner, name, desc)
}

// PutField pops a value and an object reference and stores the field.
func (mb *MethodBuilder) PutField(owner, name, desc string) *MethodBuilder {
	return mb.field(op.PutField, owner, name, desc)
}

// InvokeStatic calls a static method.
func (mb *MethodBuilder) InvokeStatic(owner, name, desc string) *MethodBuilder {
	return mb.method(op.InvokeStatic, owner, name, desc)
}

// InvokeVirtual calls an instance method with virtual dispatch.
func (mb *MethodBuilder) InvokeVirtual(owner, name, desc string) *MethodBuilder {
	return mb.method(op.InvokeVirtual, owner, name, desc)
}

// InvokeSpecial calls a constructor, private or super method.
func (mb *MethodBuilder) InvokeSpecial(owner, name, desc string) *MethodBuilder {
	return mb.method(op.InvokeSpecial, owner, name, desc)
}

func (mb *MethodBuilder) simple(code op.Code) *MethodBuilder {
	return mb.emit(bytecode.NoOperand{Op: code})
}

// Instructions without operands.

func (mb *MethodBuilder) Return() *MethodBuilder     { return mb.simple(op.Return) }
func (mb *MethodBuilder) IReturn() *MethodBuilder    { return mb.simple(op.IReturn) }
func (mb *MethodBuilder) AReturn() *MethodBuilder    { return mb.simple(op.AReturn) }
func (mb *MethodBuilder) Dup() *MethodBuilder        { return mb.simple(op.Dup) }
func (mb *MethodBuilder) Pop() *MethodBuilder        { return mb.simple(op.Pop) }
func (mb *MethodBuilder) Swap() *MethodBuilder       { return mb.simple(op.Swap) }
func (mb *MethodBuilder) IAdd() *MethodBuilder       { return mb.simple(op.IAdd) }
func (mb *MethodBuilder) ISub() *MethodBuilder       { return mb.simple(op.ISub) }
func (mb *MethodBuilder) IMul() *MethodBuilder       { return mb.simple(op.IMul) }
func (mb *MethodBuilder) IDiv() *MethodBuilder       { return mb.simple(op.IDiv) }
func (mb *MethodBuilder) IRem() *MethodBuilder       { return mb.simple(op.IRem) }
func (mb *MethodBuilder) INeg() *MethodBuilder       { return mb.simple(op.INeg) }
func (mb *MethodBuilder) AConstNull() *MethodBuilder { return mb.simple(op.AConstNull) }
func (mb *MethodBuilder) Nop() *MethodBuilder        { return mb.simple(op.Nop) }

// End validates the method and adds it to the class. When the method has
// instructions the "Code" attribute name is interned first, then the method
// name and descriptor.
func (mb *MethodBuilder) End() error {
	const opName = "jasm.MethodBuilder.End"
	cb := mb.class
	if mb.detached {
		return errz.Preconditionf(opName, "method %s%s was never begun", mb.name, mb.descriptor)
	}
	if mb.ended {
		return errz.Preconditionf(opName, "method %s%s already ended", mb.name, mb.descriptor)
	}
	mb.ended = true
	cb.open = nil

	if mb.name == "" {
		mb.fail(fmt.Errorf("method name is empty"))
	} else if err := checkText("method name", mb.name); err != nil {
		mb.fail(err)
	}
	if mb.descriptor == "" {
		mb.fail(fmt.Errorf("method %q has an empty descriptor", mb.name))
	} else if err := checkText("method descriptor", mb.descriptor); err != nil {
		mb.fail(err)
	} else if _, err := descriptor.ParseMethod(mb.descriptor); err != nil {
		mb.fail(err)
	}
	if err := mb.err.ErrorOrNil(); err != nil {
		err = errz.New(errz.Precondition, opName, fmt.Errorf("%s%s: %w", mb.name, mb.descriptor, err))
		cb.fail(err)
		return err
	}

	maxStack, maxLocals := cb.asm.opts.maxStack, cb.asm.opts.maxLocals
	if cb.asm.opts.computeLimits {
		var err error
		maxStack, maxLocals, err = bytecode.Limits(mb.instructions, mb.flags, mb.descriptor)
		if err != nil {
			cb.fail(err)
			return err
		}
	}

	table := mb.table()
	if len(mb.instructions) > 0 {
		table.Text(classfile.CodeAttribute)
	}
	method, err := bytecode.NewMethod(bytecode.MethodParams{
		Access:       mb.flags,
		Name:         table.Text(mb.name),
		Descriptor:   table.Text(mb.descriptor),
		Instructions: mb.instructions,
		MaxStack:     maxStack,
		MaxLocals:    maxLocals,
	})
	if err != nil {
		cb.fail(err)
		return err
	}
	cb.methods = append(cb.methods, method)
	cb.asm.opts.logger.Debug().
		Str("class", cb.name).
		Str("method", method.String()).
		Int("instructions", method.InstructionCount()).
		Uint16("max_stack", maxStack).
		Uint16("max_locals", maxLocals).
		Msg("method ended")
	return nil
}
