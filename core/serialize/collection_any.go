package serialize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/asaidimu/go-weft/core/query"
)

// CollectionAnyVisitor rewrites predicates over any() collection elements into
// correlated exists subqueries:
//
//	cat.kittens.any().name = ?
//
// becomes
//
//	exists (select 1 from Kitten cat_kittens
//	        where cat_kittens in elements(cat.kittens) and cat_kittens.name = ?)
//
// Each predicate holding any() paths gets its own subquery. Two any()
// predicates combined with and yield two exists clauses; they are not merged
// into one subquery.
type CollectionAnyVisitor struct{}

// NewCollectionAnyVisitor returns the rewrite visitor.
func NewCollectionAnyVisitor() *CollectionAnyVisitor { return &CollectionAnyVisitor{} }

type anySite struct {
	alias      *query.Path
	collection *query.Path
}

// anyScope collects the any() sites found under one predicate.
type anyScope struct {
	sites []anySite
	seen  map[string]*query.Path
}

func newAnyScope() *anyScope { return &anyScope{seen: make(map[string]*query.Path)} }

// Rewrite returns e with every any() predicate replaced by an exists
// subquery. Expressions without any() paths are returned unchanged. An any()
// path outside a predicate fails with query.ErrUnsupportedQuantificationContext.
func (v *CollectionAnyVisitor) Rewrite(e query.Expression) (query.Expression, error) {
	top := newAnyScope()
	out, err := query.Accept[query.Expression, *anyScope](e, v, top)
	if err != nil {
		return nil, err
	}
	if len(top.sites) > 0 {
		return nil, fmt.Errorf("%w: %s is not inside a predicate", query.ErrUnsupportedQuantificationContext, top.sites[0].collection)
	}
	return out, nil
}

func (v *CollectionAnyVisitor) VisitConstant(c *query.Constant, _ *anyScope) (query.Expression, error) {
	return c, nil
}

func (v *CollectionAnyVisitor) VisitParam(p *query.Param, _ *anyScope) (query.Expression, error) {
	return p, nil
}

// VisitSubQuery leaves nested queries alone; they are rewritten when they are
// serialized.
func (v *CollectionAnyVisitor) VisitSubQuery(q *query.SubQuery, _ *anyScope) (query.Expression, error) {
	return q, nil
}

func (v *CollectionAnyVisitor) VisitOrder(o *query.OrderSpecifier, s *anyScope) (query.Expression, error) {
	target, err := query.Accept[query.Expression, *anyScope](o.Target(), v, s)
	if err != nil {
		return nil, err
	}
	return o.WithTarget(target), nil
}

func (v *CollectionAnyVisitor) VisitPath(p *query.Path, s *anyScope) (query.Expression, error) {
	out, err := v.rewritePath(p, s)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (v *CollectionAnyVisitor) rewritePath(p *query.Path, s *anyScope) (*query.Path, error) {
	if !p.HasAny() {
		return p, nil
	}
	parent, err := v.rewritePath(p.Parent(), s)
	if err != nil {
		return nil, err
	}
	if p.Kind() != query.PathCollectionAny {
		return p.WithParent(parent)
	}
	name := aliasName(parent)
	if alias, ok := s.seen[name]; ok {
		return alias, nil
	}
	alias, err := query.NewRootPath(p.Type(), name)
	if err != nil {
		return nil, err
	}
	s.seen[name] = alias
	s.sites = append(s.sites, anySite{alias: alias, collection: parent})
	return alias, nil
}

// aliasName joins the elements of a collection path with underscores, so
// cat.kittens becomes cat_kittens.
func aliasName(p *query.Path) string {
	var parts []string
	for c := p; c != nil; c = c.Parent() {
		if c.Kind() == query.PathListIndex {
			parts = append(parts, strconv.Itoa(c.Metadata().Index))
		} else {
			parts = append(parts, c.Element())
		}
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "_")
}

func (v *CollectionAnyVisitor) VisitOperation(o *query.Operation, s *anyScope) (query.Expression, error) {
	inner := s
	if query.IsPredicate(o) {
		inner = newAnyScope()
	}
	args, err := v.rewriteAll(o.Args(), inner)
	if err != nil {
		return nil, err
	}
	out, err := o.WithArgs(args)
	if err != nil {
		return nil, err
	}
	if inner == s {
		return out, nil
	}
	return v.wrap(out, inner)
}

func (v *CollectionAnyVisitor) VisitTemplate(t *query.TemplateExpression, s *anyScope) (query.Expression, error) {
	inner := s
	if query.IsPredicate(t) {
		inner = newAnyScope()
	}
	args, err := v.rewriteAll(t.Args(), inner)
	if err != nil {
		return nil, err
	}
	out, err := t.WithArgs(args)
	if err != nil {
		return nil, err
	}
	if inner == s {
		return out, nil
	}
	return v.wrap(out, inner)
}

func (v *CollectionAnyVisitor) rewriteAll(args []query.Expression, s *anyScope) ([]query.Expression, error) {
	out := make([]query.Expression, len(args))
	for i, a := range args {
		r, err := query.Accept[query.Expression, *anyScope](a, v, s)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// wrap turns a predicate over the sites of s into an exists subquery. A
// predicate without sites is returned as is.
func (v *CollectionAnyVisitor) wrap(predicate query.Expression, s *anyScope) (query.Expression, error) {
	if len(s.sites) == 0 {
		return predicate, nil
	}
	md := query.NewMetadata()
	md.SetValidate(false)
	where := query.NewBooleanBuilder()
	for _, site := range s.sites {
		if err := md.AddJoin(query.JoinDefault, site.alias); err != nil {
			return nil, err
		}
		where.And(query.InElements(site.alias, site.collection))
	}
	where.And(predicate)
	if err := md.AddProjection(query.Literal(query.IntType, "1")); err != nil {
		return nil, err
	}
	if err := md.AddWhere(where); err != nil {
		return nil, err
	}
	sub, err := query.NewSubQuery(md)
	if err != nil {
		return nil, err
	}
	return query.Exists(sub), nil
}
