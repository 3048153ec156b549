package typesystem

// Type is the value shape carried by every checked expression.
type Type int

const (
	Unknown Type = iota // compile-time placeholder only
	Scalar
	List
)

func (t Type) String() string {
	switch t {
	case Scalar:
		return "scalar"
	case List:
		return "list"
	default:
		return "unknown"
	}
}

// Combine returns the result type of a binary operation. Differing operand
// types always produce List, which callers must reject unless the operation
// is a list replacement or append.
func Combine(left, right Type) Type {
	if left == right {
		return left
	}
	return List
}
