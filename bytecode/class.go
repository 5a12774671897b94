package bytecode

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/risor-io/jasm/errz"
	"github.com/risor-io/jasm/pool"
)

// ObjectClass is the internal name of the default super class.
const ObjectClass = "java/lang/Object"

// Class is an assembled class ready for serialization. It is immutable
// after creation.
type Class struct {
	access  AccessFlags
	this    pool.Class
	super   pool.Class
	methods []*Method
}

// ClassParams contains parameters for creating a new Class.
type ClassParams struct {
	Access  AccessFlags
	This    pool.Class
	Super   pool.Class
	Methods []*Method
}

// NewClass validates the parameters and creates an immutable Class.
func NewClass(params ClassParams) (*Class, error) {
	var result *multierror.Error
	if params.This.Name.Value == "" {
		result = multierror.Append(result, fmt.Errorf("class name is empty"))
	}
	if params.Super.Name.Value == "" {
		result = multierror.Append(result, fmt.Errorf("super class name of %q is empty", params.This.Name.Value))
	}
	if len(params.Methods) > 0xffff {
		result = multierror.Append(result, fmt.Errorf("class has %d methods, at most 65535 allowed", len(params.Methods)))
	}
	for i, m := range params.Methods {
		if m == nil {
			result = multierror.Append(result, fmt.Errorf("method %d is nil", i))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, errz.New(errz.Precondition, "bytecode.NewClass", err)
	}
	var methods []*Method
	if len(params.Methods) > 0 {
		methods = make([]*Method, len(params.Methods))
		copy(methods, params.Methods)
	}
	return &Class{
		access:  params.Access,
		this:    params.This,
		super:   params.Super,
		methods: methods,
	}, nil
}

// Access returns the class access flags.
func (c *Class) Access() AccessFlags {
	return c.access
}

// This returns the symbol of the class itself.
func (c *Class) This() pool.Class {
	return c.this
}

// Super returns the symbol of the super class.
func (c *Class) Super() pool.Class {
	return c.super
}

// Name returns the internal name of the class.
func (c *Class) Name() string {
	return c.this.Name.Value
}

// MethodCount returns the number of methods.
func (c *Class) MethodCount() int {
	return len(c.methods)
}

// MethodAt returns the method at the given index.
func (c *Class) MethodAt(index int) *Method {
	return c.methods[index]
}
