package query

import (
	"fmt"
	"reflect"
	"strings"
)

// Operation applies an operator to an ordered list of arguments.
type Operation struct {
	op   Operator
	args []Expression
	typ  reflect.Type
	key  string
}

// NewOperation creates an operation of the given result type. It fails when an
// argument is nil or the argument count does not match the operator arity.
func NewOperation(typ reflect.Type, op Operator, args ...Expression) (*Operation, error) {
	if typ == nil {
		return nil, fmt.Errorf("%w: %s has no result type", ErrInvalidArgument, op)
	}
	if !op.accepts(len(args)) {
		return nil, fmt.Errorf("%w: %s expects %d arguments, got %d", ErrInvalidArgument, op, op.Arity, len(args))
	}
	keys := make([]string, len(args))
	for i, a := range args {
		if a == nil {
			return nil, fmt.Errorf("%w: argument %d of %s is nil", ErrInvalidArgument, i, op)
		}
		keys[i] = a.Key()
	}
	return &Operation{
		op:   op,
		args: append([]Expression(nil), args...),
		typ:  typ,
		key:  "o:" + op.ID + "(" + strings.Join(keys, ",") + ")",
	}, nil
}

// MustOperation is like NewOperation but panics on invalid arguments.
func MustOperation(typ reflect.Type, op Operator, args ...Expression) *Operation {
	o, err := NewOperation(typ, op, args...)
	if err != nil {
		panic(err)
	}
	return o
}

// Operator returns the operator tag.
func (o *Operation) Operator() Operator { return o.op }

// Args returns a copy of the arguments.
func (o *Operation) Args() []Expression { return append([]Expression(nil), o.args...) }

// Arg returns the argument at index i.
func (o *Operation) Arg(i int) Expression { return o.args[i] }

// WithArgs returns an operation with the same operator and type over new
// arguments. The receiver is returned when every argument is unchanged.
func (o *Operation) WithArgs(args []Expression) (*Operation, error) {
	if sameArgs(o.args, args) {
		return o, nil
	}
	return NewOperation(o.typ, o.op, args...)
}

func sameArgs(a, b []Expression) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (o *Operation) Type() reflect.Type { return o.typ }
func (o *Operation) Key() string        { return o.key }
func (*Operation) expressionNode()      {}

func (o *Operation) String() string {
	parts := make([]string, len(o.args))
	for i, a := range o.args {
		parts[i] = a.String()
	}
	return strings.ToLower(o.op.ID) + "(" + strings.Join(parts, ", ") + ")"
}
