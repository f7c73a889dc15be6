package query

import (
	"fmt"
	"reflect"
	"strings"
)

// The helpers below build operations over arbitrary arguments. An argument
// that is not already an Expression is wrapped as a Constant. They panic on
// nil arguments, like the Must constructors.

func exprs(values []any) []Expression {
	out := make([]Expression, len(values))
	for i, v := range values {
		out[i] = ExprOf(v)
	}
	return out
}

func predicate(op Operator, args ...any) *Operation {
	return MustOperation(BoolType, op, exprs(args)...)
}

// Eq is left = right.
func Eq(left, right any) *Operation { return predicate(OpEq, left, right) }

// Ne is left <> right.
func Ne(left, right any) *Operation { return predicate(OpNe, left, right) }

// Lt is left < right.
func Lt(left, right any) *Operation { return predicate(OpLt, left, right) }

// Gt is left > right.
func Gt(left, right any) *Operation { return predicate(OpGt, left, right) }

// Loe is left <= right.
func Loe(left, right any) *Operation { return predicate(OpLoe, left, right) }

// Goe is left >= right.
func Goe(left, right any) *Operation { return predicate(OpGoe, left, right) }

// Between is from <= e <= to.
func Between(e, from, to any) *Operation { return predicate(OpBetween, e, from, to) }

// IsNull tests e for null.
func IsNull(e any) *Operation { return predicate(OpIsNull, e) }

// IsNotNull tests e for a value.
func IsNotNull(e any) *Operation { return predicate(OpIsNotNull, e) }

// Like matches e against a pattern.
func Like(e, pattern any) *Operation { return predicate(OpLike, e, pattern) }

// In tests e for membership. A single subquery or collection-valued
// expression is used as is; otherwise the values form a list. An empty list
// yields a predicate that is always false.
func In(e any, values ...any) Expression {
	right, ok := membership(values)
	if !ok {
		return Literal(BoolType, "1 = 0")
	}
	return predicate(OpIn, e, right)
}

// NotIn is the negation of In. An empty list yields a predicate that is
// always true.
func NotIn(e any, values ...any) Expression {
	right, ok := membership(values)
	if !ok {
		return Literal(BoolType, "1 = 1")
	}
	return predicate(OpNotIn, e, right)
}

func membership(values []any) (Expression, bool) {
	if len(values) == 1 {
		if e, ok := values[0].(Expression); ok {
			return ExprOf(e), true
		}
		if v := reflect.ValueOf(values[0]); v.Kind() == reflect.Slice && v.Type().Elem().Kind() != reflect.Uint8 {
			if v.Len() == 0 {
				return nil, false
			}
			return ConstantOf(values[0]), true
		}
	}
	if len(values) == 0 {
		return nil, false
	}
	list := exprs(values)
	for _, e := range list {
		if _, ok := e.(*Constant); !ok {
			return expressionList(list), true
		}
	}
	raw := make([]any, len(values))
	copy(raw, values)
	return ConstantOf(raw), true
}

// expressionList renders expressions as a parenthesised list.
func expressionList(list []Expression) *TemplateExpression {
	slots := make([]string, len(list))
	for i := range list {
		slots[i] = fmt.Sprintf("{%d}", i)
	}
	return MustTemplate(reflect.SliceOf(list[0].Type()), "("+strings.Join(slots, ", ")+")", list...)
}

// And is left and right. Use BooleanBuilder to fold a variable number of
// predicates.
func And(left, right Expression) *Operation { return MustOperation(BoolType, OpAnd, left, right) }

// Or is left or right.
func Or(left, right Expression) *Operation { return MustOperation(BoolType, OpOr, left, right) }

// Not negates a predicate.
func Not(p Expression) *Operation { return MustOperation(BoolType, OpNot, p) }

// AllOf folds predicates with AND. Nil predicates are skipped.
func AllOf(predicates ...Expression) *BooleanBuilder { return NewBooleanBuilder(predicates...) }

// AnyOf folds predicates with OR. Nil predicates are skipped.
func AnyOf(predicates ...Expression) *BooleanBuilder {
	b := &BooleanBuilder{}
	for _, p := range predicates {
		b.Or(p)
	}
	return b
}

func stringOp(op Operator, args ...any) *Operation {
	return MustOperation(StringType, op, exprs(args)...)
}

// Concat joins two strings.
func Concat(left, right any) *Operation { return stringOp(OpConcat, left, right) }

// Lower converts to lower case.
func Lower(e any) *Operation { return stringOp(OpLower, e) }

// Upper converts to upper case.
func Upper(e any) *Operation { return stringOp(OpUpper, e) }

// Trim removes surrounding whitespace.
func Trim(e any) *Operation { return stringOp(OpTrim, e) }

// Length is the string length.
func Length(e any) *Operation { return MustOperation(IntType, OpLength, ExprOf(e)) }

// Substring takes the substring from a zero-based start, optionally limited
// to an end index.
func Substring(e any, start int, end ...int) *Operation {
	if len(end) > 0 {
		return stringOp(OpSubstr2, e, start, end[0])
	}
	return stringOp(OpSubstr1, e, start)
}

// StartsWith tests for a prefix.
func StartsWith(e, prefix any) *Operation { return predicate(OpStartsWith, e, prefix) }

// EndsWith tests for a suffix.
func EndsWith(e, suffix any) *Operation { return predicate(OpEndsWith, e, suffix) }

// Contains tests for a substring.
func Contains(e, sub any) *Operation { return predicate(OpContains, e, sub) }

func numeric(op Operator, args ...any) *Operation {
	list := exprs(args)
	return MustOperation(list[0].Type(), op, list...)
}

// Add is left + right, typed as left.
func Add(left, right any) *Operation { return numeric(OpAdd, left, right) }

// Sub is left - right, typed as left.
func Sub(left, right any) *Operation { return numeric(OpSub, left, right) }

// Mult is left * right, typed as left.
func Mult(left, right any) *Operation { return numeric(OpMult, left, right) }

// Div is left / right, typed as left.
func Div(left, right any) *Operation { return numeric(OpDiv, left, right) }

// Mod is left % right, typed as left.
func Mod(left, right any) *Operation { return numeric(OpMod, left, right) }

// Negate is -e.
func Negate(e any) *Operation { return numeric(OpNegate, e) }

// Count counts rows with a value for e.
func Count(e any) *Operation { return MustOperation(Int64Type, OpCount, ExprOf(e)) }

// CountDistinct counts distinct values of e.
func CountDistinct(e any) *Operation { return MustOperation(Int64Type, OpCountDistinct, ExprOf(e)) }

// Sum aggregates e.
func Sum(e any) *Operation { return numeric(OpSum, e) }

// Avg averages e.
func Avg(e any) *Operation { return MustOperation(Float64Type, OpAvg, ExprOf(e)) }

// Min is the smallest value of e.
func Min(e any) *Operation { return numeric(OpMin, e) }

// Max is the largest value of e.
func Max(e any) *Operation { return numeric(OpMax, e) }

// Exists tests whether a subquery has rows.
func Exists(q *SubQuery) *Operation { return MustOperation(BoolType, OpExists, q) }

// InElements tests whether e is an element of a collection path.
func InElements(e Expression, collection *Path) *Operation {
	return MustOperation(BoolType, OpInElements, e, collection)
}

// IsEmpty tests whether a collection path has no elements.
func IsEmpty(collection *Path) *Operation { return MustOperation(BoolType, OpIsEmpty, collection) }

// Size is the element count of a collection path.
func Size(collection *Path) *Operation { return MustOperation(IntType, OpSize, collection) }

// As names e with alias. In a join target the alias becomes a join target
// itself.
func As(e Expression, alias *Path) *Operation {
	if alias == nil {
		panic(fmt.Errorf("%w: alias is nil", ErrInvalidArgument))
	}
	return MustOperation(e.Type(), OpAlias, e, alias)
}

// Coalesce is the first non-null argument, typed as the first.
func Coalesce(first any, rest ...any) *Operation {
	return numeric(OpCoalesce, append([]any{first}, rest...)...)
}

// Asc orders by e ascending.
func Asc(e Expression) *OrderSpecifier { return mustOrder(NewOrderSpecifier(Ascending, e)) }

// Desc orders by e descending.
func Desc(e Expression) *OrderSpecifier { return mustOrder(NewOrderSpecifier(Descending, e)) }

func mustOrder(o *OrderSpecifier, err error) *OrderSpecifier {
	if err != nil {
		panic(err)
	}
	return o
}
