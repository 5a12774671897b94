package jasm

import (
	"github.com/risor-io/jasm/classfile"
	"github.com/rs/zerolog"
)

// Placeholder limits written to every Code attribute unless WithLimits or
// WithComputedLimits says otherwise.
const (
	DefaultMaxStack  = 10
	DefaultMaxLocals = 10
)

// Option configures an Assembler.
type Option func(*options)

type options struct {
	logger        zerolog.Logger
	major         uint16
	minor         uint16
	maxStack      uint16
	maxLocals     uint16
	computeLimits bool
}

func collectOptions(opts ...Option) *options {
	o := &options{
		logger:    zerolog.Nop(),
		major:     classfile.DefaultMajorVersion,
		minor:     classfile.DefaultMinorVersion,
		maxStack:  DefaultMaxStack,
		maxLocals: DefaultMaxLocals,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func (o *options) writeOpts() []classfile.Option {
	return []classfile.Option{
		classfile.WithVersion(o.major, o.minor),
		classfile.WithLogger(o.logger),
	}
}

// WithLogger sets the logger used for debug output. The default discards
// everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithVersion sets the class-file version. The default is 52.0 (Java 8).
func WithVersion(major, minor uint16) Option {
	return func(o *options) {
		o.major = major
		o.minor = minor
	}
}

// WithLimits sets the max stack and max locals written for every method.
func WithLimits(maxStack, maxLocals uint16) Option {
	return func(o *options) {
		o.maxStack = maxStack
		o.maxLocals = maxLocals
	}
}

// WithComputedLimits derives max stack and max locals from each method's
// instructions and descriptor instead of writing the placeholders.
func WithComputedLimits() Option {
	return func(o *options) {
		o.computeLimits = true
	}
}
