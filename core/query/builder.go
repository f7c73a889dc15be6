package query

import (
	"errors"
	"fmt"
)

// QueryBuilder provides a fluent API over Metadata. Each step records its
// error instead of returning it, so calls can be chained; Build reports every
// recorded error at once.
type QueryBuilder struct {
	md   *Metadata
	errs []error
}

// NewQueryBuilder creates a new, empty query builder instance.
func NewQueryBuilder() *QueryBuilder {
	return &QueryBuilder{md: NewMetadata()}
}

// NewQueryBuilderFor wraps existing metadata. The builder mutates md in place.
func NewQueryBuilderFor(md *Metadata) *QueryBuilder {
	return &QueryBuilder{md: md}
}

func (qb *QueryBuilder) record(step string, err error) *QueryBuilder {
	if err != nil {
		qb.errs = append(qb.errs, fmt.Errorf("%s: %w", step, err))
	}
	return qb
}

// From adds root sources to the from clause.
func (qb *QueryBuilder) From(sources ...Expression) *QueryBuilder {
	for _, s := range sources {
		qb.record("from", qb.md.AddJoin(JoinDefault, s))
	}
	return qb
}

// Join adds an inner join on target, optionally aliased.
func (qb *QueryBuilder) Join(target Expression, alias ...*Path) *QueryBuilder {
	return qb.join(JoinInner, "join", target, alias)
}

// LeftJoin adds a left join on target, optionally aliased.
func (qb *QueryBuilder) LeftJoin(target Expression, alias ...*Path) *QueryBuilder {
	return qb.join(JoinLeft, "left join", target, alias)
}

// RightJoin adds a right join on target, optionally aliased.
func (qb *QueryBuilder) RightJoin(target Expression, alias ...*Path) *QueryBuilder {
	return qb.join(JoinRight, "right join", target, alias)
}

// FullJoin adds a full join on target, optionally aliased.
func (qb *QueryBuilder) FullJoin(target Expression, alias ...*Path) *QueryBuilder {
	return qb.join(JoinFull, "full join", target, alias)
}

func (qb *QueryBuilder) join(kind JoinType, step string, target Expression, alias []*Path) *QueryBuilder {
	if target == nil {
		return qb.record(step, fmt.Errorf("%w: join target is nil", ErrInvalidArgument))
	}
	if len(alias) > 0 && alias[0] != nil {
		target = As(target, alias[0])
	}
	return qb.record(step, qb.md.AddJoin(kind, target))
}

// On adds conditions to the most recent join.
func (qb *QueryBuilder) On(conditions ...Expression) *QueryBuilder {
	for _, c := range conditions {
		qb.record("on", qb.md.AddJoinCondition(c))
	}
	return qb
}

// Where ANDs predicates into the where clause.
func (qb *QueryBuilder) Where(predicates ...Expression) *QueryBuilder {
	return qb.record("where", qb.md.AddWhere(predicates...))
}

// GroupBy appends grouping expressions.
func (qb *QueryBuilder) GroupBy(exprs ...Expression) *QueryBuilder {
	return qb.record("group by", qb.md.AddGroupBy(exprs...))
}

// Having ANDs predicates into the having clause.
func (qb *QueryBuilder) Having(predicates ...Expression) *QueryBuilder {
	return qb.record("having", qb.md.AddHaving(predicates...))
}

// OrderBy appends order specifiers.
func (qb *QueryBuilder) OrderBy(specs ...*OrderSpecifier) *QueryBuilder {
	return qb.record("order by", qb.md.AddOrderBy(specs...))
}

// Limit sets the maximum number of rows.
func (qb *QueryBuilder) Limit(limit int64) *QueryBuilder {
	qb.md.SetLimit(limit)
	return qb
}

// Offset sets the number of rows to skip.
func (qb *QueryBuilder) Offset(offset int64) *QueryBuilder {
	qb.md.SetOffset(offset)
	return qb
}

// Distinct makes the projection distinct.
func (qb *QueryBuilder) Distinct() *QueryBuilder {
	qb.md.SetDistinct(true)
	return qb
}

// Unique marks the query as returning at most one row.
func (qb *QueryBuilder) Unique() *QueryBuilder {
	qb.md.SetUnique(true)
	return qb
}

// Select appends projection expressions.
func (qb *QueryBuilder) Select(exprs ...Expression) *QueryBuilder {
	return qb.record("select", qb.md.AddProjection(exprs...))
}

// Set binds a parameter value.
func (qb *QueryBuilder) Set(p *Param, value any) *QueryBuilder {
	if p == nil {
		return qb.record("set", fmt.Errorf("%w: param is nil", ErrInvalidArgument))
	}
	qb.md.SetParam(p, value)
	return qb
}

// Flag adds a positioned flag.
func (qb *QueryBuilder) Flag(pos Position, flag Expression) *QueryBuilder {
	return qb.record("flag", qb.md.AddFlag(NewFlag(pos, flag)))
}

// Clone creates a deep copy of the builder, including recorded errors, so
// variants can be derived from a common base.
func (qb *QueryBuilder) Clone() *QueryBuilder {
	return &QueryBuilder{md: qb.md.Clone(), errs: append([]error(nil), qb.errs...)}
}

// Reset clears the projection, parameters, modifiers and recorded errors,
// keeping joins and predicates for another projection pass.
func (qb *QueryBuilder) Reset() *QueryBuilder {
	qb.md.Reset()
	qb.errs = nil
	return qb
}

// Metadata returns the metadata being built. It is not a copy.
func (qb *QueryBuilder) Metadata() *Metadata { return qb.md }

// Err returns the recorded errors joined, or nil.
func (qb *QueryBuilder) Err() error { return errors.Join(qb.errs...) }

// Build returns a copy of the built metadata, or the recorded errors.
func (qb *QueryBuilder) Build() (*Metadata, error) {
	if err := qb.Err(); err != nil {
		return nil, err
	}
	return qb.md.Clone(), nil
}
