package query

import (
	"fmt"
	"sync"
)

// Variadic is the arity of operators that accept one or more arguments.
const Variadic = -1

// Operator tags an Operation. Operators are compared by value, so an operator
// defined twice with the same ID and arity is the same operator.
type Operator struct {
	ID    string
	Arity int
}

func (o Operator) String() string { return o.ID }

// accepts reports whether n arguments satisfy the operator arity.
func (o Operator) accepts(n int) bool {
	if o.Arity == Variadic {
		return n > 0
	}
	return n == o.Arity
}

var (
	operatorsMu sync.RWMutex
	operators   = map[string]Operator{}
)

// DefineOperator registers an operator. Redefining an ID with the same arity
// returns the existing operator; a different arity is an error.
func DefineOperator(id string, arity int) (Operator, error) {
	if id == "" || arity < Variadic {
		return Operator{}, fmt.Errorf("%w: operator %q with arity %d", ErrInvalidArgument, id, arity)
	}
	operatorsMu.Lock()
	defer operatorsMu.Unlock()
	if existing, ok := operators[id]; ok {
		if existing.Arity != arity {
			return Operator{}, fmt.Errorf("%w: operator %s already defined with arity %d", ErrInvalidArgument, id, existing.Arity)
		}
		return existing, nil
	}
	op := Operator{ID: id, Arity: arity}
	operators[id] = op
	return op, nil
}

// LookupOperator returns the operator registered under id.
func LookupOperator(id string) (Operator, bool) {
	operatorsMu.RLock()
	defer operatorsMu.RUnlock()
	op, ok := operators[id]
	return op, ok
}

func builtin(id string, arity int) Operator {
	op, err := DefineOperator(id, arity)
	if err != nil {
		panic(err)
	}
	return op
}

// Built-in operators.
var (
	// boolean
	OpAnd = builtin("AND", 2)
	OpOr  = builtin("OR", 2)
	OpNot = builtin("NOT", 1)

	// comparison
	OpEq        = builtin("EQ", 2)
	OpNe        = builtin("NE", 2)
	OpLt        = builtin("LT", 2)
	OpGt        = builtin("GT", 2)
	OpLoe       = builtin("LOE", 2)
	OpGoe       = builtin("GOE", 2)
	OpBetween   = builtin("BETWEEN", 3)
	OpIsNull    = builtin("IS_NULL", 1)
	OpIsNotNull = builtin("IS_NOT_NULL", 1)
	OpIn        = builtin("IN", 2)
	OpNotIn     = builtin("NOT_IN", 2)
	OpLike      = builtin("LIKE", 2)

	// string
	OpConcat     = builtin("CONCAT", 2)
	OpLower      = builtin("LOWER", 1)
	OpUpper      = builtin("UPPER", 1)
	OpTrim       = builtin("TRIM", 1)
	OpLength     = builtin("LENGTH", 1)
	OpSubstr1    = builtin("SUBSTR_1ARG", 2)
	OpSubstr2    = builtin("SUBSTR_2ARGS", 3)
	OpStartsWith = builtin("STARTS_WITH", 2)
	OpEndsWith   = builtin("ENDS_WITH", 2)
	OpContains   = builtin("STRING_CONTAINS", 2)

	// arithmetic
	OpAdd    = builtin("ADD", 2)
	OpSub    = builtin("SUB", 2)
	OpMult   = builtin("MULT", 2)
	OpDiv    = builtin("DIV", 2)
	OpMod    = builtin("MOD", 2)
	OpNegate = builtin("NEGATE", 1)

	// aggregates
	OpCount         = builtin("COUNT_AGG", 1)
	OpCountDistinct = builtin("COUNT_DISTINCT_AGG", 1)
	OpSum           = builtin("SUM_AGG", 1)
	OpAvg           = builtin("AVG_AGG", 1)
	OpMin           = builtin("MIN_AGG", 1)
	OpMax           = builtin("MAX_AGG", 1)

	// collections and subqueries
	OpInElements = builtin("IN_ELEMENTS", 2)
	OpIsEmpty    = builtin("COL_IS_EMPTY", 1)
	OpSize       = builtin("COL_SIZE", 1)
	OpExists     = builtin("EXISTS", 1)

	// misc
	OpAlias    = builtin("ALIAS", 2)
	OpCoalesce = builtin("COALESCE", Variadic)

	// path kinds, rendered through dialect templates like any other operator
	OpProperty  = builtin("PROPERTY", 2)
	OpListIndex = builtin("LIST_INDEX", 2)
)
