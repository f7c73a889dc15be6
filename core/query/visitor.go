package query

import "fmt"

// Visitor is the double-dispatch contract over the expression variants. R is
// the result type and C the caller-chosen context threaded through a traversal.
type Visitor[R, C any] interface {
	VisitConstant(e *Constant, ctx C) (R, error)
	VisitPath(e *Path, ctx C) (R, error)
	VisitOperation(e *Operation, ctx C) (R, error)
	VisitTemplate(e *TemplateExpression, ctx C) (R, error)
	VisitParam(e *Param, ctx C) (R, error)
	VisitOrder(e *OrderSpecifier, ctx C) (R, error)
	VisitSubQuery(e *SubQuery, ctx C) (R, error)
}

// Accept dispatches e to the matching Visitor method. A BooleanBuilder is
// visited through its accumulated value; an empty builder is an error.
func Accept[R, C any](e Expression, v Visitor[R, C], ctx C) (R, error) {
	var zero R
	switch n := e.(type) {
	case *Constant:
		return v.VisitConstant(n, ctx)
	case *Path:
		return v.VisitPath(n, ctx)
	case *Operation:
		return v.VisitOperation(n, ctx)
	case *TemplateExpression:
		return v.VisitTemplate(n, ctx)
	case *Param:
		return v.VisitParam(n, ctx)
	case *OrderSpecifier:
		return v.VisitOrder(n, ctx)
	case *SubQuery:
		return v.VisitSubQuery(n, ctx)
	case *BooleanBuilder:
		value, err := n.Value()
		if err != nil {
			return zero, err
		}
		return Accept(value, v, ctx)
	case nil:
		return zero, fmt.Errorf("%w: nil expression", ErrInvalidArgument)
	default:
		return zero, fmt.Errorf("%w: unknown expression %T", ErrInvalidArgument, e)
	}
}
