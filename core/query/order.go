package query

import (
	"fmt"
	"reflect"
)

// Order is the sort direction of an OrderSpecifier.
type Order int

const (
	Ascending Order = iota
	Descending
)

func (o Order) String() string {
	if o == Descending {
		return "desc"
	}
	return "asc"
}

// NullHandling places nulls explicitly in an ordering.
type NullHandling int

const (
	NullsDefault NullHandling = iota
	NullsFirst
	NullsLast
)

// OrderSpecifier orders query results by a target expression.
type OrderSpecifier struct {
	target Expression
	order  Order
	nulls  NullHandling
}

// NewOrderSpecifier creates an ordering over target.
func NewOrderSpecifier(order Order, target Expression) (*OrderSpecifier, error) {
	if target == nil {
		return nil, fmt.Errorf("%w: order target is nil", ErrInvalidArgument)
	}
	return &OrderSpecifier{target: target, order: order}, nil
}

// Target returns the ordered expression.
func (o *OrderSpecifier) Target() Expression { return o.target }

// Order returns the direction.
func (o *OrderSpecifier) Order() Order { return o.order }

// IsAscending reports whether the direction is ascending.
func (o *OrderSpecifier) IsAscending() bool { return o.order == Ascending }

// NullHandling returns the null placement.
func (o *OrderSpecifier) NullHandling() NullHandling { return o.nulls }

// NullsFirst returns a copy that sorts nulls first.
func (o *OrderSpecifier) NullsFirst() *OrderSpecifier {
	c := *o
	c.nulls = NullsFirst
	return &c
}

// NullsLast returns a copy that sorts nulls last.
func (o *OrderSpecifier) NullsLast() *OrderSpecifier {
	c := *o
	c.nulls = NullsLast
	return &c
}

// WithTarget returns a copy ordering a different expression.
func (o *OrderSpecifier) WithTarget(target Expression) *OrderSpecifier {
	if target == o.target {
		return o
	}
	c := *o
	c.target = target
	return &c
}

func (o *OrderSpecifier) Type() reflect.Type { return o.target.Type() }
func (o *OrderSpecifier) Key() string {
	return fmt.Sprintf("order:%s:%d:%s", o.order, o.nulls, o.target.Key())
}
func (o *OrderSpecifier) String() string { return o.target.String() + " " + o.order.String() }
func (*OrderSpecifier) expressionNode()  {}
