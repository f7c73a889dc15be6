package query

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// JoinType is the kind of a join. JoinDefault is a plain from-clause entry.
type JoinType int

const (
	JoinDefault JoinType = iota
	JoinInner
	JoinLeft
	JoinRight
	JoinFull
)

func (j JoinType) String() string {
	switch j {
	case JoinInner:
		return "inner"
	case JoinLeft:
		return "left"
	case JoinRight:
		return "right"
	case JoinFull:
		return "full"
	default:
		return "default"
	}
}

// JoinExpression is one from-clause source with an optional join condition.
type JoinExpression struct {
	joinType  JoinType
	target    Expression
	condition *BooleanBuilder
}

// Type returns the join kind.
func (j *JoinExpression) Type() JoinType { return j.joinType }

// Target returns the joined expression.
func (j *JoinExpression) Target() Expression { return j.target }

// Condition returns the join condition, nil when there is none.
func (j *JoinExpression) Condition() Expression {
	if !j.condition.HasValue() {
		return nil
	}
	return j.condition.value
}

func (j *JoinExpression) clone() *JoinExpression {
	return &JoinExpression{joinType: j.joinType, target: j.target, condition: j.condition.Clone()}
}

func (j *JoinExpression) key() string {
	return j.joinType.String() + ":" + j.target.Key() + ":" + j.condition.Key()
}

// Modifiers carries the optional limit and offset of a query.
type Modifiers struct {
	Limit  *int64
	Offset *int64
}

// IsEmpty reports whether neither limit nor offset is set.
func (m Modifiers) IsEmpty() bool { return m.Limit == nil && m.Offset == nil }

// Equal compares limit and offset by value.
func (m Modifiers) Equal(o Modifiers) bool {
	return eqInt64Ptr(m.Limit, o.Limit) && eqInt64Ptr(m.Offset, o.Offset)
}

func (m Modifiers) clone() Modifiers {
	var c Modifiers
	if m.Limit != nil {
		c.Limit = Int64Ptr(*m.Limit)
	}
	if m.Offset != nil {
		c.Offset = Int64Ptr(*m.Offset)
	}
	return c
}

func (m Modifiers) String() string {
	return "limit=" + int64PtrString(m.Limit) + ", offset=" + int64PtrString(m.Offset)
}

func eqInt64Ptr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func int64PtrString(v *int64) string {
	if v == nil {
		return "nil"
	}
	return strconv.FormatInt(*v, 10)
}

// Position places a query flag within the rendered statement.
type Position int

const (
	Start Position = iota
	StartOverride
	AfterSelect
	AfterProjection
	BeforeFilters
	AfterFilters
	BeforeGroupBy
	AfterGroupBy
	BeforeHaving
	AfterHaving
	BeforeOrder
	AfterOrder
	End
)

// Flag is an expression rendered at a fixed position of the statement, such
// as a hint or a dialect specific modifier.
type Flag struct {
	Position Position
	Flag     Expression
}

// NewFlag creates a flag from an expression.
func NewFlag(pos Position, flag Expression) Flag {
	return Flag{Position: pos, Flag: flag}
}

// NewTextFlag creates a flag rendering text verbatim.
func NewTextFlag(pos Position, text string) Flag {
	return Flag{Position: pos, Flag: Literal(StringType, text)}
}

func (f Flag) key() string { return strconv.Itoa(int(f.Position)) + ":" + f.Flag.Key() }

// Assignment pairs a column path with the value expression of a DML statement.
type Assignment struct {
	Path  *Path
	Value Expression
}

type paramValue struct {
	param *Param
	value any
}

// Metadata is the mutable description of one query: projection, joins,
// predicates, grouping, ordering, modifiers, parameter values and flags.
//
// Metadata is owned by a single builder at a time and is not safe for
// concurrent mutation. Use Clone to fork independent variants.
type Metadata struct {
	distinct    bool
	unique      bool
	validate    bool
	joins       []*JoinExpression
	joinTargets map[string]struct{}
	groupBy     []Expression
	having      *BooleanBuilder
	projection  []Expression
	where       *BooleanBuilder
	orderBy     []*OrderSpecifier
	modifiers   Modifiers
	params      map[string]paramValue
	flags       []Flag
	validator   *ValidatingVisitor
}

// NewMetadata returns empty metadata with validation enabled.
func NewMetadata() *Metadata {
	md := &Metadata{
		validate:    true,
		joinTargets: make(map[string]struct{}),
		having:      &BooleanBuilder{},
		where:       &BooleanBuilder{},
		params:      make(map[string]paramValue),
	}
	md.validator = NewValidatingVisitor(md.joinTargets)
	return md
}

// SetValidate toggles validation of added expressions.
func (m *Metadata) SetValidate(v bool) { m.validate = v }

// IsValidating reports whether added expressions are validated.
func (m *Metadata) IsValidating() bool { return m.validate }

func (m *Metadata) check(exprs ...Expression) error {
	if !m.validate {
		return nil
	}
	for _, e := range exprs {
		if err := m.validator.Validate(e); err != nil {
			return err
		}
	}
	return nil
}

// AddJoin appends a join. The target must not already be a join target, and a
// default join must target a root path. The target and conditions are
// validated when validation is enabled; on failure nothing is recorded.
func (m *Metadata) AddJoin(joinType JoinType, target Expression, conditions ...Expression) error {
	if target == nil {
		return fmt.Errorf("%w: join target is nil", ErrInvalidArgument)
	}
	key := target.Key()
	if _, ok := m.joinTargets[key]; ok {
		return fmt.Errorf("%w: %s is already used", ErrDuplicateJoinTarget, target)
	}
	if p, ok := target.(*Path); ok && joinType == JoinDefault && !p.IsRoot() {
		return fmt.Errorf("%w: %s", ErrInvalidRootJoin, p)
	}
	declared := []string{key}
	if o, ok := target.(*Operation); ok && o.op == OpAlias {
		if alias, ok := o.args[1].(*Path); ok && alias.IsRoot() {
			if _, taken := m.joinTargets[alias.Key()]; taken {
				return fmt.Errorf("%w: alias %s is already used", ErrDuplicateJoinTarget, alias)
			}
			declared = append(declared, alias.Key())
		}
	}
	for _, k := range declared {
		m.joinTargets[k] = struct{}{}
	}
	join := &JoinExpression{joinType: joinType, target: target, condition: &BooleanBuilder{}}
	err := m.check(target)
	if err == nil {
		for _, c := range conditions {
			if c, ok := unwrap(c); ok {
				if err = m.check(c); err != nil {
					break
				}
				join.condition.And(c)
			}
		}
	}
	if err != nil {
		for _, k := range declared {
			delete(m.joinTargets, k)
		}
		return err
	}
	m.joins = append(m.joins, join)
	return nil
}

// AddJoinCondition ANDs a predicate into the condition of the most recent
// join. It does nothing when there are no joins.
func (m *Metadata) AddJoinCondition(predicate Expression) error {
	if len(m.joins) == 0 {
		return nil
	}
	p, ok := unwrap(predicate)
	if !ok {
		return nil
	}
	if err := m.check(p); err != nil {
		return err
	}
	m.joins[len(m.joins)-1].condition.And(p)
	return nil
}

// AddWhere validates and ANDs each predicate into the where clause. Nil
// predicates and empty builders are skipped. All predicates are validated
// before any is added, so a failed call leaves the clause unchanged.
func (m *Metadata) AddWhere(predicates ...Expression) error {
	return m.addPredicates(m.where, predicates)
}

// AddHaving is AddWhere for the having clause.
func (m *Metadata) AddHaving(predicates ...Expression) error {
	return m.addPredicates(m.having, predicates)
}

func (m *Metadata) addPredicates(into *BooleanBuilder, predicates []Expression) error {
	accepted := make([]Expression, 0, len(predicates))
	for _, p := range predicates {
		p, ok := unwrap(p)
		if !ok {
			continue
		}
		if err := m.check(p); err != nil {
			return err
		}
		accepted = append(accepted, p)
	}
	for _, p := range accepted {
		into.And(p)
	}
	return nil
}

// AddProjection validates and appends projection expressions.
func (m *Metadata) AddProjection(exprs ...Expression) error {
	if err := m.checkAll(exprs); err != nil {
		return err
	}
	m.projection = append(m.projection, exprs...)
	return nil
}

// AddGroupBy validates and appends grouping expressions.
func (m *Metadata) AddGroupBy(exprs ...Expression) error {
	if err := m.checkAll(exprs); err != nil {
		return err
	}
	m.groupBy = append(m.groupBy, exprs...)
	return nil
}

// AddOrderBy validates and appends order specifiers.
func (m *Metadata) AddOrderBy(specs ...*OrderSpecifier) error {
	for _, o := range specs {
		if o == nil {
			return fmt.Errorf("%w: order specifier is nil", ErrInvalidArgument)
		}
		if err := m.check(o.target); err != nil {
			return err
		}
	}
	m.orderBy = append(m.orderBy, specs...)
	return nil
}

func (m *Metadata) checkAll(exprs []Expression) error {
	for _, e := range exprs {
		if e == nil {
			return fmt.Errorf("%w: expression is nil", ErrInvalidArgument)
		}
	}
	return m.check(exprs...)
}

// SetLimit sets the limit, keeping any offset already set.
func (m *Metadata) SetLimit(limit int64) {
	m.modifiers = Modifiers{Limit: Int64Ptr(limit), Offset: m.modifiers.Offset}
}

// SetOffset sets the offset, keeping any limit already set.
func (m *Metadata) SetOffset(offset int64) {
	m.modifiers = Modifiers{Limit: m.modifiers.Limit, Offset: Int64Ptr(offset)}
}

// SetModifiers replaces limit and offset.
func (m *Metadata) SetModifiers(mod Modifiers) { m.modifiers = mod.clone() }

// Modifiers returns a copy of the limit and offset.
func (m *Metadata) Modifiers() Modifiers { return m.modifiers.clone() }

// SetParam binds a value to a parameter. The last value set wins.
func (m *Metadata) SetParam(p *Param, value any) {
	m.params[p.Key()] = paramValue{param: p, value: value}
}

// Param returns the value bound to p.
func (m *Metadata) Param(p *Param) (any, bool) {
	v, ok := m.params[p.Key()]
	return v.value, ok
}

// Params returns a copy of the parameter bindings.
func (m *Metadata) Params() map[*Param]any {
	out := make(map[*Param]any, len(m.params))
	for _, v := range m.params {
		out[v.param] = v.value
	}
	return out
}

// AddFlag adds a flag unless an equal one is already present.
func (m *Metadata) AddFlag(f Flag) error {
	if f.Flag == nil {
		return fmt.Errorf("%w: flag expression is nil", ErrInvalidArgument)
	}
	if m.HasFlag(f) {
		return nil
	}
	m.flags = append(m.flags, f)
	return nil
}

// HasFlag reports whether an equal flag is present.
func (m *Metadata) HasFlag(f Flag) bool {
	if f.Flag == nil {
		return false
	}
	k := f.key()
	for _, existing := range m.flags {
		if existing.key() == k {
			return true
		}
	}
	return false
}

// Flags returns the flags in insertion order.
func (m *Metadata) Flags() []Flag { return append([]Flag(nil), m.flags...) }

// SetDistinct toggles distinct projection.
func (m *Metadata) SetDistinct(v bool) { m.distinct = v }

// IsDistinct reports whether the projection is distinct.
func (m *Metadata) IsDistinct() bool { return m.distinct }

// SetUnique marks the query as returning at most one result.
func (m *Metadata) SetUnique(v bool) { m.unique = v }

// IsUnique reports whether the query returns at most one result.
func (m *Metadata) IsUnique() bool { return m.unique }

// Joins returns the joins in declaration order.
func (m *Metadata) Joins() []*JoinExpression { return append([]*JoinExpression(nil), m.joins...) }

// IsJoinTarget reports whether e is declared by a join.
func (m *Metadata) IsJoinTarget(e Expression) bool {
	_, ok := m.joinTargets[e.Key()]
	return ok
}

// Projection returns the projection in call order.
func (m *Metadata) Projection() []Expression { return append([]Expression(nil), m.projection...) }

// GroupBy returns the grouping expressions.
func (m *Metadata) GroupBy() []Expression { return append([]Expression(nil), m.groupBy...) }

// OrderBy returns the order specifiers.
func (m *Metadata) OrderBy() []*OrderSpecifier { return append([]*OrderSpecifier(nil), m.orderBy...) }

// Where returns the folded where predicate, nil when empty.
func (m *Metadata) Where() Expression {
	if !m.where.HasValue() {
		return nil
	}
	return m.where.value
}

// Having returns the folded having predicate, nil when empty.
func (m *Metadata) Having() Expression {
	if !m.having.HasValue() {
		return nil
	}
	return m.having.value
}

// ClearProjection removes all projection expressions.
func (m *Metadata) ClearProjection() { m.projection = nil }

// ClearWhere removes the where predicate.
func (m *Metadata) ClearWhere() { m.where = &BooleanBuilder{} }

// ClearOrderBy removes all order specifiers.
func (m *Metadata) ClearOrderBy() { m.orderBy = nil }

// Reset clears the projection, parameter bindings and modifiers, keeping
// joins and predicates for another projection pass.
func (m *Metadata) Reset() {
	m.projection = nil
	m.params = make(map[string]paramValue)
	m.modifiers = Modifiers{}
}

// Clone returns a deep copy. Collections and builders are copied; expression
// nodes are immutable and shared.
func (m *Metadata) Clone() *Metadata {
	c := &Metadata{
		distinct:    m.distinct,
		unique:      m.unique,
		validate:    m.validate,
		joins:       make([]*JoinExpression, len(m.joins)),
		joinTargets: make(map[string]struct{}, len(m.joinTargets)),
		groupBy:     append([]Expression(nil), m.groupBy...),
		having:      m.having.Clone(),
		projection:  append([]Expression(nil), m.projection...),
		where:       m.where.Clone(),
		orderBy:     append([]*OrderSpecifier(nil), m.orderBy...),
		modifiers:   m.modifiers.clone(),
		params:      make(map[string]paramValue, len(m.params)),
		flags:       append([]Flag(nil), m.flags...),
	}
	for i, j := range m.joins {
		c.joins[i] = j.clone()
	}
	for k := range m.joinTargets {
		c.joinTargets[k] = struct{}{}
	}
	for k, v := range m.params {
		c.params[k] = v
	}
	c.validator = NewValidatingVisitor(c.joinTargets)
	return c
}

// Key is the structural identity of the metadata across flags, grouping,
// having, distinct, unique, joins, modifiers, ordering, params, projection and
// where.
func (m *Metadata) Key() string {
	var sb strings.Builder
	sb.WriteString("distinct=" + strconv.FormatBool(m.distinct))
	sb.WriteString(";unique=" + strconv.FormatBool(m.unique))
	sb.WriteString(";joins=")
	for _, j := range m.joins {
		sb.WriteString("[" + j.key() + "]")
	}
	writeKeys(&sb, ";projection=", m.projection)
	sb.WriteString(";where=" + m.where.Key())
	writeKeys(&sb, ";groupBy=", m.groupBy)
	sb.WriteString(";having=" + m.having.Key())
	sb.WriteString(";orderBy=")
	for _, o := range m.orderBy {
		sb.WriteString("[" + o.Key() + "]")
	}
	sb.WriteString(";modifiers=" + m.modifiers.String())
	sb.WriteString(";params=")
	keys := make([]string, 0, len(m.params))
	for k := range m.params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("[%s=%#v]", k, m.params[k].value))
	}
	sb.WriteString(";flags=")
	for _, f := range m.flags {
		sb.WriteString("[" + f.key() + "]")
	}
	return sb.String()
}

func writeKeys(sb *strings.Builder, label string, exprs []Expression) {
	sb.WriteString(label)
	for _, e := range exprs {
		sb.WriteString("[" + e.Key() + "]")
	}
}

// Equal reports whether two metadata values are structurally equal.
func (m *Metadata) Equal(o *Metadata) bool {
	if m == nil || o == nil {
		return m == o
	}
	return m.Key() == o.Key()
}

// Hash returns a structural hash consistent with Equal.
func (m *Metadata) Hash() uint64 {
	h := fnv.New64a()
	h.Write([]byte(m.Key()))
	return h.Sum64()
}

func (m *Metadata) String() string {
	var parts []string
	if len(m.projection) > 0 {
		parts = append(parts, "select "+joinStrings(m.projection))
	}
	if len(m.joins) > 0 {
		targets := make([]string, len(m.joins))
		for i, j := range m.joins {
			targets[i] = j.target.String()
		}
		parts = append(parts, "from "+strings.Join(targets, ", "))
	}
	if m.where.HasValue() {
		parts = append(parts, "where "+m.where.String())
	}
	return strings.Join(parts, " ")
}

func joinStrings(exprs []Expression) string {
	s := make([]string, len(exprs))
	for i, e := range exprs {
		s[i] = e.String()
	}
	return strings.Join(s, ", ")
}
