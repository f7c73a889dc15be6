// Package query defines the expression model and the query metadata aggregate.
// Expressions are immutable trees of constants, paths, operations, templates,
// parameters, order specifiers and subqueries. Metadata collects them into a
// query (projection, joins, predicates, ordering, grouping and modifiers) and
// validates every expression against the declared join targets as it is added.
package query

import (
	"fmt"
	"hash/fnv"
	"reflect"
)

// Common result types used by the DSL helpers.
var (
	BoolType    = reflect.TypeOf(false)
	StringType  = reflect.TypeOf("")
	IntType     = reflect.TypeOf(0)
	Int64Type   = reflect.TypeOf(int64(0))
	Float64Type = reflect.TypeOf(float64(0))
	AnyType     = reflect.TypeOf((*any)(nil)).Elem()
)

// Expression is a node of the query model.
//
// This is a sealed interface: Constant, Path, Operation, TemplateExpression,
// Param, OrderSpecifier, SubQuery and BooleanBuilder are its only
// implementations, which lets Accept dispatch with an exhaustive type switch.
type Expression interface {
	// Type reports the Go type the expression evaluates to.
	Type() reflect.Type

	// Key is the structural identity of the expression. Two expressions with
	// the same key are interchangeable, regardless of allocation.
	Key() string

	String() string

	expressionNode()
}

// Equal reports whether two expressions are structurally equal.
func Equal(a, b Expression) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Key() == b.Key()
}

// Hash returns a structural hash of the expression, consistent with Equal.
func Hash(e Expression) uint64 {
	h := fnv.New64a()
	if e != nil {
		h.Write([]byte(e.Key()))
	}
	return h.Sum64()
}

// IsPredicate reports whether the expression evaluates to a boolean.
func IsPredicate(e Expression) bool {
	return e != nil && e.Type() == BoolType
}

// Constant is a fixed literal value.
type Constant struct {
	value any
	typ   reflect.Type
	key   string
}

// NewConstant wraps a non-nil value as a constant expression.
func NewConstant(value any) (*Constant, error) {
	if value == nil {
		return nil, fmt.Errorf("%w: constant value is nil", ErrInvalidArgument)
	}
	typ := reflect.TypeOf(value)
	return &Constant{
		value: value,
		typ:   typ,
		key:   fmt.Sprintf("c:%s:%#v", typ, value),
	}, nil
}

// ConstantOf is like NewConstant but panics on a nil value.
func ConstantOf(value any) *Constant {
	c, err := NewConstant(value)
	if err != nil {
		panic(err)
	}
	return c
}

// ExprOf returns v unchanged when it is already an Expression and wraps it as a
// Constant otherwise. It panics on nil.
func ExprOf(v any) Expression {
	if e, ok := v.(Expression); ok {
		if e == nil || reflect.ValueOf(e).IsNil() {
			panic(fmt.Errorf("%w: nil expression", ErrInvalidArgument))
		}
		return e
	}
	return ConstantOf(v)
}

// Value returns the wrapped value.
func (c *Constant) Value() any { return c.value }

func (c *Constant) Type() reflect.Type { return c.typ }
func (c *Constant) Key() string        { return c.key }
func (c *Constant) String() string     { return fmt.Sprintf("%v", c.value) }
func (*Constant) expressionNode()      {}
