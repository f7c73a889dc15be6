package query

import "errors"

// Errors reported while building expressions and query metadata. Callers should
// match them with errors.Is; the wrapped message names the offending
// expression, operator or context.
var (
	// ErrInvalidArgument is returned when an expression is constructed with a
	// missing argument or the wrong number of arguments.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDuplicateJoinTarget is returned when a join target is declared twice.
	ErrDuplicateJoinTarget = errors.New("duplicate join target")

	// ErrInvalidRootJoin is returned when a default join targets a non-root path.
	ErrInvalidRootJoin = errors.New("only root paths are allowed for default joins")

	// ErrUnboundPath is returned by validation when a path is not rooted in a
	// declared join target.
	ErrUnboundPath = errors.New("path is not bound by a join")

	// ErrIllegalSubquery is returned by validation when a subquery appears in a
	// position where it cannot be rendered.
	ErrIllegalSubquery = errors.New("illegal subquery")

	// ErrUnsupportedOperator is returned when the active dialect has no template
	// for an operator.
	ErrUnsupportedOperator = errors.New("unsupported operator")

	// ErrUnsupportedQuantificationContext is returned when a collection any()
	// marker appears outside of a predicate.
	ErrUnsupportedQuantificationContext = errors.New("unsupported quantification context")

	// ErrUnboundParam is returned when a parameter has no value at bind time.
	ErrUnboundParam = errors.New("parameter has no value")

	// ErrEmptyPredicate is returned when the value of an empty BooleanBuilder is
	// requested.
	ErrEmptyPredicate = errors.New("predicate builder is empty")
)
