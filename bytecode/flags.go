package bytecode

import "strings"

// AccessFlags holds class or method access flags.
type AccessFlags uint16

const (
	AccPublic    AccessFlags = 0x0001
	AccPrivate   AccessFlags = 0x0002
	AccProtected AccessFlags = 0x0004
	AccStatic    AccessFlags = 0x0008
	AccFinal     AccessFlags = 0x0010
	AccSuper     AccessFlags = 0x0020
	AccAbstract  AccessFlags = 0x0400
	AccSynthetic AccessFlags = 0x1000
)

// Has reports whether all bits of flag are set.
func (f AccessFlags) Has(flag AccessFlags) bool {
	return f&flag == flag
}

var flagNames = []struct {
	flag AccessFlags
	name string
}{
	{AccPublic, "public"},
	{AccPrivate, "private"},
	{AccProtected, "protected"},
	{AccStatic, "static"},
	{AccFinal, "final"},
	{AccSuper, "super"},
	{AccAbstract, "abstract"},
	{AccSynthetic, "synthetic"},
}

// String returns the set flag names separated by spaces, e.g. "public static".
func (f AccessFlags) String() string {
	var names []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, " ")
}
