package user

import (
	"errors"
	"fmt"
)

var ErrUnsupportedSpec = errors.New("unsupported user specification")

type Field int

const (
	FieldID Field = iota + 1
	FieldUsername
)

func (f Field) String() string {
	switch f {
	case FieldID:
		return "id"
	case FieldUsername:
		return "username"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

type Comparison int

const (
	Equals Comparison = iota + 1
	Gte
	Lte
	Lt
	Gt
)

func (c Comparison) String() string {
	switch c {
	case Equals:
		return "="
	case Gte:
		return ">="
	case Lte:
		return "<="
	case Lt:
		return "<"
	case Gt:
		return ">"
	default:
		return fmt.Sprintf("cmp(%d)", int(c))
	}
}

// Spec selects users by comparing one column against a value.
// Build it with the constructors below; the zero value matches nothing.
type Spec struct {
	field    Field
	op       Comparison
	id       int64
	username string
}

func IDEquals(id int64) Spec {
	return IDCompare(Equals, id)
}

func UsernameEquals(username string) Spec {
	return UsernameCompare(Equals, username)
}

func IDCompare(op Comparison, id int64) Spec {
	return Spec{field: FieldID, op: op, id: id}
}

func UsernameCompare(op Comparison, username string) Spec {
	return Spec{field: FieldUsername, op: op, username: username}
}

func (s Spec) Field() Field {
	return s.field
}

func (s Spec) Op() Comparison {
	return s.op
}

func (s Spec) ID() int64 {
	return s.id
}

func (s Spec) Username() string {
	return s.username
}

func (s Spec) IsEquality() bool {
	return s.op == Equals
}

func (s Spec) String() string {
	switch s.field {
	case FieldID:
		return fmt.Sprintf("id %s %d", s.op, s.id)
	case FieldUsername:
		return fmt.Sprintf("username %s %q", s.op, s.username)
	default:
		return "empty spec"
	}
}
