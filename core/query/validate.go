package query

import "fmt"

// ValidatingVisitor checks that every path in an expression is rooted in a
// declared join target. It shares the join-target set of the metadata that
// owns it, so targets added later are visible to later validations.
type ValidatingVisitor struct {
	known map[string]struct{}
}

// NewValidatingVisitor returns a visitor over the given join-target keys.
func NewValidatingVisitor(known map[string]struct{}) *ValidatingVisitor {
	return &ValidatingVisitor{known: known}
}

// scope is the validation context: the join targets visible at the current
// nesting level, chained to the enclosing query for correlated subqueries.
type scope struct {
	known  map[string]struct{}
	parent *scope
}

func (s *scope) isKnown(key string) bool {
	for c := s; c != nil; c = c.parent {
		if _, ok := c.known[key]; ok {
			return true
		}
	}
	return false
}

// Validate visits e and returns the first validation failure.
func (v *ValidatingVisitor) Validate(e Expression) error {
	_, err := Accept[struct{}, *scope](e, v, &scope{known: v.known})
	return err
}

func (v *ValidatingVisitor) VisitConstant(*Constant, *scope) (struct{}, error) {
	return struct{}{}, nil
}

func (v *ValidatingVisitor) VisitParam(*Param, *scope) (struct{}, error) {
	return struct{}{}, nil
}

func (v *ValidatingVisitor) VisitPath(p *Path, s *scope) (struct{}, error) {
	root := p.Root()
	if !s.isKnown(root.Key()) {
		return struct{}{}, fmt.Errorf("%w: %s (root %s is not a join target)", ErrUnboundPath, p, root)
	}
	return struct{}{}, nil
}

func (v *ValidatingVisitor) VisitOperation(o *Operation, s *scope) (struct{}, error) {
	if o.op == OpAlias {
		// The second argument is the alias being declared, not a reference.
		if _, ok := o.args[1].(*SubQuery); ok {
			return struct{}{}, fmt.Errorf("%w: a subquery cannot be used as an alias in %s", ErrIllegalSubquery, o)
		}
		return Accept[struct{}, *scope](o.args[0], v, s)
	}
	return v.visitAll(o.args, s)
}

func (v *ValidatingVisitor) VisitTemplate(t *TemplateExpression, s *scope) (struct{}, error) {
	return v.visitAll(t.args, s)
}

func (v *ValidatingVisitor) VisitOrder(o *OrderSpecifier, s *scope) (struct{}, error) {
	return Accept[struct{}, *scope](o.target, v, s)
}

// VisitSubQuery validates the nested query against its own join targets plus
// those of every enclosing query.
func (v *ValidatingVisitor) VisitSubQuery(q *SubQuery, s *scope) (struct{}, error) {
	md := q.metadataRef()
	if len(md.joins) == 0 {
		return struct{}{}, fmt.Errorf("%w: subquery has no from clause", ErrIllegalSubquery)
	}
	inner := &scope{known: md.joinTargets, parent: s}
	for _, j := range md.joins {
		if _, err := Accept[struct{}, *scope](j.target, v, inner); err != nil {
			return struct{}{}, err
		}
		if j.condition.HasValue() {
			if _, err := Accept[struct{}, *scope](j.condition, v, inner); err != nil {
				return struct{}{}, err
			}
		}
	}
	exprs := make([]Expression, 0, len(md.projection)+len(md.groupBy)+len(md.orderBy)+2)
	exprs = append(exprs, md.projection...)
	exprs = append(exprs, md.groupBy...)
	for _, o := range md.orderBy {
		exprs = append(exprs, o)
	}
	if md.where.HasValue() {
		exprs = append(exprs, md.where)
	}
	if md.having.HasValue() {
		exprs = append(exprs, md.having)
	}
	return v.visitAll(exprs, inner)
}

func (v *ValidatingVisitor) visitAll(args []Expression, s *scope) (struct{}, error) {
	for _, a := range args {
		if _, err := Accept[struct{}, *scope](a, v, s); err != nil {
			return struct{}{}, err
		}
	}
	return struct{}{}, nil
}
