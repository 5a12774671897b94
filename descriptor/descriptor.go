// Package descriptor parses JVM field and method descriptors such as
// "Ljava/io/PrintStream;" and "([Ljava/lang/String;)V".
package descriptor

import (
	"fmt"
	"strings"
)

// Type is a single field type, parameter type or return type.
type Type struct {
	// Kind is the base type character: B C D F I J S Z V, L for objects.
	// Arrays report '['.
	Kind byte
	// Text is the descriptor text of the type.
	Text string
}

// Slots returns the number of local variable or operand stack slots a value
// of the type occupies.
func (t Type) Slots() int {
	switch t.Kind {
	case 'V':
		return 0
	case 'J', 'D':
		return 2
	default:
		return 1
	}
}

// IsVoid reports whether the type is the void return type.
func (t Type) IsVoid() bool {
	return t.Kind == 'V'
}

func (t Type) String() string {
	return t.Text
}

// Method is a parsed method descriptor.
type Method struct {
	Params []Type
	Return Type
}

// ArgSlots returns the slots occupied by the parameters, not counting the
// receiver of an instance method.
func (m Method) ArgSlots() int {
	n := 0
	for _, p := range m.Params {
		n += p.Slots()
	}
	return n
}

func (m Method) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, p := range m.Params {
		sb.WriteString(p.Text)
	}
	sb.WriteByte(')')
	sb.WriteString(m.Return.Text)
	return sb.String()
}

// ParseField parses a field descriptor.
func ParseField(s string) (Type, error) {
	t, n, err := parseType(s, 0, false)
	if err != nil {
		return Type{}, err
	}
	if n != len(s) {
		return Type{}, fmt.Errorf("invalid field descriptor %q: trailing characters", s)
	}
	return t, nil
}

// ParseMethod parses a method descriptor.
func ParseMethod(s string) (Method, error) {
	if len(s) == 0 || s[0] != '(' {
		return Method{}, fmt.Errorf("invalid method descriptor %q: missing '('", s)
	}
	var m Method
	pos := 1
	for {
		if pos >= len(s) {
			return Method{}, fmt.Errorf("invalid method descriptor %q: missing ')'", s)
		}
		if s[pos] == ')' {
			pos++
			break
		}
		t, next, err := parseType(s, pos, false)
		if err != nil {
			return Method{}, err
		}
		m.Params = append(m.Params, t)
		pos = next
	}
	ret, next, err := parseType(s, pos, true)
	if err != nil {
		return Method{}, err
	}
	if next != len(s) {
		return Method{}, fmt.Errorf("invalid method descriptor %q: trailing characters", s)
	}
	m.Return = ret
	return m, nil
}

func parseType(s string, pos int, allowVoid bool) (Type, int, error) {
	if pos >= len(s) {
		return Type{}, pos, fmt.Errorf("invalid descriptor %q: unexpected end", s)
	}
	start := pos
	switch c := s[pos]; c {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return Type{Kind: c, Text: s[pos : pos+1]}, pos + 1, nil
	case 'V':
		if !allowVoid {
			return Type{}, pos, fmt.Errorf("invalid descriptor %q: void is only valid as a return type", s)
		}
		return Type{Kind: c, Text: "V"}, pos + 1, nil
	case 'L':
		end := strings.IndexByte(s[pos:], ';')
		if end <= 1 {
			return Type{}, pos, fmt.Errorf("invalid descriptor %q: unterminated class name at %d", s, pos)
		}
		next := pos + end + 1
		return Type{Kind: 'L', Text: s[start:next]}, next, nil
	case '[':
		for pos < len(s) && s[pos] == '[' {
			pos++
		}
		if pos-start > 255 {
			return Type{}, pos, fmt.Errorf("invalid descriptor %q: more than 255 array dimensions", s)
		}
		_, next, err := parseType(s, pos, false)
		if err != nil {
			return Type{}, next, err
		}
		return Type{Kind: '[', Text: s[start:next]}, next, nil
	default:
		return Type{}, pos, fmt.Errorf("invalid descriptor %q: unexpected %q at %d", s, c, pos)
	}
}
