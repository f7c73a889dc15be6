package query

import (
	"reflect"
)

// BooleanBuilder accumulates predicates. An empty builder has no value, which
// is distinct from a predicate that is always true. The first predicate added
// becomes the value as is; later ones are folded in with AND or OR.
//
// A BooleanBuilder is not safe for concurrent mutation.
type BooleanBuilder struct {
	value Expression
}

// NewBooleanBuilder returns a builder seeded with the given predicates ANDed
// together.
func NewBooleanBuilder(predicates ...Expression) *BooleanBuilder {
	b := &BooleanBuilder{}
	for _, p := range predicates {
		b.And(p)
	}
	return b
}

// unwrap resolves nil and builder arguments. ok is false when the argument
// contributes nothing.
func unwrap(p Expression) (Expression, bool) {
	if p == nil {
		return nil, false
	}
	if b, isBuilder := p.(*BooleanBuilder); isBuilder {
		if b == nil || b.value == nil {
			return nil, false
		}
		return b.value, true
	}
	return p, true
}

// And folds p into the value with AND. A nil predicate or an empty builder is
// ignored.
func (b *BooleanBuilder) And(p Expression) *BooleanBuilder {
	return b.fold(OpAnd, p)
}

// Or folds p into the value with OR. A nil predicate or an empty builder is
// ignored.
func (b *BooleanBuilder) Or(p Expression) *BooleanBuilder {
	return b.fold(OpOr, p)
}

// AndAnyOf ANDs the disjunction of the given predicates.
func (b *BooleanBuilder) AndAnyOf(predicates ...Expression) *BooleanBuilder {
	inner := &BooleanBuilder{}
	for _, p := range predicates {
		inner.Or(p)
	}
	return b.And(inner)
}

// OrAllOf ORs the conjunction of the given predicates.
func (b *BooleanBuilder) OrAllOf(predicates ...Expression) *BooleanBuilder {
	return b.Or(NewBooleanBuilder(predicates...))
}

// Not negates the current value. It is a no-op on an empty builder.
func (b *BooleanBuilder) Not() *BooleanBuilder {
	if b.value != nil {
		b.value = MustOperation(BoolType, OpNot, b.value)
	}
	return b
}

func (b *BooleanBuilder) fold(op Operator, p Expression) *BooleanBuilder {
	p, ok := unwrap(p)
	if !ok {
		return b
	}
	if b.value == nil {
		b.value = p
	} else {
		b.value = MustOperation(BoolType, op, b.value, p)
	}
	return b
}

// HasValue reports whether any predicate has been accumulated.
func (b *BooleanBuilder) HasValue() bool { return b.value != nil }

// Value returns the accumulated predicate, or ErrEmptyPredicate.
func (b *BooleanBuilder) Value() (Expression, error) {
	if b.value == nil {
		return nil, ErrEmptyPredicate
	}
	return b.value, nil
}

// Clone returns an independent builder with the same value.
func (b *BooleanBuilder) Clone() *BooleanBuilder {
	return &BooleanBuilder{value: b.value}
}

func (b *BooleanBuilder) Type() reflect.Type { return BoolType }

// Key returns the key of the accumulated value, so a builder equals the
// predicate it holds. An empty builder has an empty key.
func (b *BooleanBuilder) Key() string {
	if b.value == nil {
		return ""
	}
	return b.value.Key()
}

func (b *BooleanBuilder) String() string {
	if b.value == nil {
		return ""
	}
	return b.value.String()
}

func (*BooleanBuilder) expressionNode() {}
