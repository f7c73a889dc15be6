package serialize

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/asaidimu/go-weft/core/query"
	"go.uber.org/zap"
)

// SerializerOptions configures a Serializer.
type SerializerOptions struct {
	// UseLiterals renders constants inline with the dialect literal rules
	// instead of as bind placeholders. Parameters are still bound.
	UseLiterals bool

	Logger *zap.Logger
}

// DefaultSerializerOptions returns options that bind every constant and log
// nothing.
func DefaultSerializerOptions() *SerializerOptions {
	return &SerializerOptions{}
}

// Serializer renders metadata into statements of one dialect. It holds no
// per-call state and may be shared between goroutines.
type Serializer struct {
	templates *Templates
	options   *SerializerOptions
	logger    *zap.Logger
	rewriter  *CollectionAnyVisitor
}

// Ensure Serializer implements the QueryGenerator interface.
var _ QueryGenerator = (*Serializer)(nil)

// NewSerializer creates a serializer for a dialect. Nil templates select the
// generic SQL dialect and nil options the defaults.
func NewSerializer(templates *Templates, options *SerializerOptions) *Serializer {
	if templates == nil {
		templates = SQLTemplates()
	}
	if options == nil {
		options = DefaultSerializerOptions()
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Serializer{
		templates: templates,
		options:   options,
		logger:    logger,
		rewriter:  NewCollectionAnyVisitor(),
	}
}

// Templates returns the dialect.
func (s *Serializer) Templates() *Templates { return s.templates }

// Serialize renders a select statement.
func (s *Serializer) Serialize(md *query.Metadata) (*Statement, error) {
	if md == nil {
		return nil, fmt.Errorf("%w: metadata is nil", query.ErrInvalidArgument)
	}
	r := s.newRenderer(md)
	parts, err := r.selectParts(md)
	if err != nil {
		return nil, fmt.Errorf("serialize select: %w", err)
	}
	return s.statement("select", r, parts, md.Modifiers()), nil
}

// SerializeExpression renders a single expression, applying the any()
// rewrite when the dialect enables it.
func (s *Serializer) SerializeExpression(e query.Expression) (*Statement, error) {
	r := s.newRenderer(nil)
	text, err := r.fragment(func() error {
		prepared, err := r.prepare(e)
		if err != nil {
			return err
		}
		return r.expr(prepared, frame{})
	})
	if err != nil {
		return nil, fmt.Errorf("serialize expression: %w", err)
	}
	return s.statement("expression", r, []string{text}, query.Modifiers{}), nil
}

// SerializeForUpdate renders "update entity set col = value, ... where ...".
// Assignment values are bound before the where clause.
func (s *Serializer) SerializeForUpdate(md *query.Metadata, entity *query.Path, updates []query.Assignment) (*Statement, error) {
	if err := checkDML(md, entity); err != nil {
		return nil, fmt.Errorf("serialize update: %w", err)
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("serialize update: %w: no assignments", query.ErrInvalidArgument)
	}
	r := s.newRenderer(md)
	if s.templates.UnqualifiedDMLColumns {
		r.dmlRoot = entity.Key()
	}
	kw := s.templates.Keywords
	parts := []string{kw.Update + " " + r.dmlTarget(entity)}
	set, err := r.fragment(func() error {
		r.write(kw.Set + " ")
		for i, a := range updates {
			if i > 0 {
				r.write(", ")
			}
			if err := r.assignmentColumn(entity, a.Path); err != nil {
				return err
			}
			r.write(" = ")
			if err := r.value(a.Value, a.Path); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("serialize update: %w", err)
	}
	parts = append(parts, set)
	where, err := r.whereClause(md)
	if err != nil {
		return nil, fmt.Errorf("serialize update: %w", err)
	}
	parts = append(parts, where)
	parts, err = r.wrapFlags(md, parts)
	if err != nil {
		return nil, fmt.Errorf("serialize update: %w", err)
	}
	return s.statement("update", r, parts, query.Modifiers{}), nil
}

// SerializeForInsert renders "insert into entity (cols) values (...)". With
// no values, the projection of md is rendered as a sub-select instead.
func (s *Serializer) SerializeForInsert(md *query.Metadata, entity *query.Path, columns []*query.Path, values []query.Expression) (*Statement, error) {
	if err := checkDML(md, entity); err != nil {
		return nil, fmt.Errorf("serialize insert: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("serialize insert: %w: no columns", query.ErrInvalidArgument)
	}
	if len(values) > 0 && len(values) != len(columns) {
		return nil, fmt.Errorf("serialize insert: %w: %d columns but %d values", query.ErrInvalidArgument, len(columns), len(values))
	}
	if len(values) == 0 && len(md.Projection()) == 0 {
		return nil, fmt.Errorf("serialize insert: %w: no values and no sub-select projection", query.ErrInvalidArgument)
	}
	r := s.newRenderer(md)
	r.dmlRoot = entity.Key()
	kw := s.templates.Keywords
	head, err := r.fragment(func() error {
		r.write(kw.InsertInto + " " + s.templates.QuoteIdentifier(entity.EntityName()) + " (")
		for i, c := range columns {
			if i > 0 {
				r.write(", ")
			}
			if err := r.assignmentColumn(entity, c); err != nil {
				return err
			}
		}
		r.write(")")
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("serialize insert: %w", err)
	}
	parts := []string{head}
	if len(values) > 0 {
		vals, err := r.fragment(func() error {
			r.write(kw.Values + " (")
			for i, v := range values {
				if i > 0 {
					r.write(", ")
				}
				if err := r.value(v, columns[i]); err != nil {
					return err
				}
			}
			r.write(")")
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("serialize insert: %w", err)
		}
		parts = append(parts, vals)
	} else {
		r.dmlRoot = ""
		sub, err := r.selectParts(md)
		if err != nil {
			return nil, fmt.Errorf("serialize insert: %w", err)
		}
		parts = append(parts, sub...)
		return s.statement("insert", r, parts, md.Modifiers()), nil
	}
	parts, err = r.wrapFlags(md, parts)
	if err != nil {
		return nil, fmt.Errorf("serialize insert: %w", err)
	}
	return s.statement("insert", r, parts, query.Modifiers{}), nil
}

// SerializeForDelete renders "delete from entity where ...".
func (s *Serializer) SerializeForDelete(md *query.Metadata, entity *query.Path) (*Statement, error) {
	if err := checkDML(md, entity); err != nil {
		return nil, fmt.Errorf("serialize delete: %w", err)
	}
	r := s.newRenderer(md)
	if s.templates.UnqualifiedDMLColumns {
		r.dmlRoot = entity.Key()
	}
	parts := []string{s.templates.Keywords.DeleteFrom + " " + r.dmlTarget(entity)}
	where, err := r.whereClause(md)
	if err != nil {
		return nil, fmt.Errorf("serialize delete: %w", err)
	}
	parts = append(parts, where)
	parts, err = r.wrapFlags(md, parts)
	if err != nil {
		return nil, fmt.Errorf("serialize delete: %w", err)
	}
	return s.statement("delete", r, parts, query.Modifiers{}), nil
}

func checkDML(md *query.Metadata, entity *query.Path) error {
	if md == nil {
		return fmt.Errorf("%w: metadata is nil", query.ErrInvalidArgument)
	}
	if entity == nil || !entity.IsRoot() {
		return fmt.Errorf("%w: target entity must be a root path", query.ErrInvalidArgument)
	}
	return nil
}

func (s *Serializer) statement(kind string, r *renderer, parts []string, mod query.Modifiers) *Statement {
	stmt := &Statement{
		Text:      joinParts(parts, s.templates.ClauseSeparator),
		Bindings:  r.bindings,
		Modifiers: mod,
	}
	s.logger.Debug("Rendered statement",
		zap.String("dialect", s.templates.Name),
		zap.String("kind", kind),
		zap.String("text", stmt.Text),
		zap.Int("bindings", len(stmt.Bindings)))
	return stmt
}

func joinParts(parts []string, sep string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// frame is the traversal context of the renderer: the path constants under
// the current node are reported against.
type frame struct {
	path *query.Path
}

// renderer holds the state of one serialization call.
type renderer struct {
	s        *Serializer
	t        *Templates
	sb       *strings.Builder
	bindings []Binding
	scopes   []*query.Metadata
	dmlRoot  string
}

func (s *Serializer) newRenderer(md *query.Metadata) *renderer {
	r := &renderer{s: s, t: s.templates, sb: &strings.Builder{}}
	if md != nil {
		r.scopes = append(r.scopes, md)
	}
	return r
}

func (r *renderer) write(text string) { r.sb.WriteString(text) }

// fragment runs fn against a fresh buffer and returns what it wrote. Bindings
// keep accumulating in order.
func (r *renderer) fragment(fn func() error) (string, error) {
	prev := r.sb
	r.sb = &strings.Builder{}
	err := fn()
	out := r.sb.String()
	r.sb = prev
	return out, err
}

func (r *renderer) expr(e query.Expression, f frame) error {
	_, err := query.Accept[struct{}, frame](e, r, f)
	return err
}

// prepare applies the any() rewrite when the dialect asks for it.
func (r *renderer) prepare(e query.Expression) (query.Expression, error) {
	if !r.t.RewriteCollectionAny {
		return e, nil
	}
	return r.s.rewriter.Rewrite(e)
}

func (r *renderer) bind(b Binding) {
	r.bindings = append(r.bindings, b)
	r.write(r.t.Placeholder(len(r.bindings)))
}

func (r *renderer) paramValue(p *query.Param) (any, bool) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if v, ok := r.scopes[i].Param(p); ok {
			return v, true
		}
	}
	return nil, false
}

func (r *renderer) selectParts(md *query.Metadata) ([]string, error) {
	kw := r.t.Keywords
	var parts []string
	add := func(fn func() error) error {
		text, err := r.fragment(fn)
		if err != nil {
			return err
		}
		parts = append(parts, text)
		return nil
	}
	flags := func(pos query.Position) error {
		return add(func() error { return r.flags(md, pos) })
	}

	if err := flags(query.Start); err != nil {
		return nil, err
	}
	err := add(func() error {
		projection := md.Projection()
		if len(projection) == 0 && r.t.EmptyProjection == "" && !hasFlag(md, query.StartOverride) {
			return nil
		}
		if hasFlag(md, query.StartOverride) {
			if err := r.flags(md, query.StartOverride); err != nil {
				return err
			}
		} else {
			r.write(kw.Select)
			if md.IsDistinct() {
				r.write(" " + kw.Distinct)
			}
		}
		if hasFlag(md, query.AfterSelect) {
			r.write(" ")
			if err := r.flags(md, query.AfterSelect); err != nil {
				return err
			}
		}
		r.write(" ")
		if len(projection) == 0 {
			r.write(r.t.EmptyProjection)
		}
		for i, p := range projection {
			if i > 0 {
				r.write(", ")
			}
			if err := r.expr(p, frame{}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, step := range []func() error{
		func() error { return flags(query.AfterProjection) },
		func() error { return add(func() error { return r.from(md) }) },
		func() error { return flags(query.BeforeFilters) },
		func() error {
			where, err := r.whereClause(md)
			parts = append(parts, where)
			return err
		},
		func() error { return flags(query.AfterFilters) },
		func() error { return flags(query.BeforeGroupBy) },
		func() error { return add(func() error { return r.groupBy(md) }) },
		func() error { return flags(query.AfterGroupBy) },
		func() error { return flags(query.BeforeHaving) },
		func() error { return add(func() error { return r.having(md) }) },
		func() error { return flags(query.AfterHaving) },
		func() error { return flags(query.BeforeOrder) },
		func() error { return add(func() error { return r.orderBy(md) }) },
		func() error { return flags(query.AfterOrder) },
		func() error { return add(func() error { r.modifiers(md.Modifiers()); return nil }) },
		func() error { return flags(query.End) },
	} {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return parts, nil
}

// wrapFlags surrounds DML parts with the Start and End flags.
func (r *renderer) wrapFlags(md *query.Metadata, parts []string) ([]string, error) {
	start, err := r.fragment(func() error { return r.flags(md, query.Start) })
	if err != nil {
		return nil, err
	}
	end, err := r.fragment(func() error { return r.flags(md, query.End) })
	if err != nil {
		return nil, err
	}
	return append(append([]string{start}, parts...), end), nil
}

func hasFlag(md *query.Metadata, pos query.Position) bool {
	for _, f := range md.Flags() {
		if f.Position == pos {
			return true
		}
	}
	return false
}

func (r *renderer) flags(md *query.Metadata, pos query.Position) error {
	first := true
	for _, f := range md.Flags() {
		if f.Position != pos {
			continue
		}
		if !first {
			r.write(r.t.ClauseSeparator)
		}
		first = false
		if err := r.expr(f.Flag, frame{}); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) from(md *query.Metadata) error {
	joins := md.Joins()
	if len(joins) == 0 {
		return nil
	}
	kw := r.t.Keywords
	r.write(kw.From + " ")
	for i, j := range joins {
		if i > 0 {
			switch j.Type() {
			case query.JoinDefault:
				r.write(", ")
			case query.JoinInner:
				r.write(" " + kw.InnerJoin + " ")
			case query.JoinLeft:
				r.write(" " + kw.LeftJoin + " ")
			case query.JoinRight:
				r.write(" " + kw.RightJoin + " ")
			case query.JoinFull:
				r.write(" " + kw.FullJoin + " ")
			}
		}
		if err := r.joinTarget(j.Target()); err != nil {
			return err
		}
		if cond := j.Condition(); cond != nil {
			prepared, err := r.prepare(cond)
			if err != nil {
				return err
			}
			r.write(" " + kw.On + " ")
			if err := r.expr(prepared, frame{}); err != nil {
				return err
			}
		}
	}
	return nil
}

// joinTarget renders a root path as "Entity variable"; anything else renders
// as an expression.
func (r *renderer) joinTarget(target query.Expression) error {
	if p, ok := target.(*query.Path); ok && p.IsRoot() {
		r.write(r.t.QuoteIdentifier(p.EntityName()) + " " + r.t.QuoteIdentifier(p.Element()))
		return nil
	}
	return r.expr(target, frame{})
}

func (r *renderer) dmlTarget(entity *query.Path) string {
	if r.t.UnqualifiedDMLColumns {
		return r.t.QuoteIdentifier(entity.EntityName())
	}
	return r.t.QuoteIdentifier(entity.EntityName()) + " " + r.t.QuoteIdentifier(entity.Element())
}

func (r *renderer) assignmentColumn(entity, column *query.Path) error {
	if column == nil {
		return fmt.Errorf("%w: column is nil", query.ErrInvalidArgument)
	}
	if column.Root().Key() != entity.Key() {
		return fmt.Errorf("%w: column %s does not belong to %s", query.ErrUnboundPath, column, entity)
	}
	return r.expr(column, frame{})
}

func (r *renderer) value(v query.Expression, column *query.Path) error {
	if v == nil {
		return r.expr(query.Null, frame{})
	}
	return r.expr(v, frame{path: column})
}

func (r *renderer) whereClause(md *query.Metadata) (string, error) {
	return r.predicateClause(r.t.Keywords.Where, md.Where())
}

func (r *renderer) having(md *query.Metadata) error {
	text, err := r.predicateClause(r.t.Keywords.Having, md.Having())
	r.write(text)
	return err
}

func (r *renderer) predicateClause(keyword string, p query.Expression) (string, error) {
	if p == nil {
		return "", nil
	}
	prepared, err := r.prepare(p)
	if err != nil {
		return "", err
	}
	return r.fragment(func() error {
		r.write(keyword + " ")
		return r.expr(prepared, frame{})
	})
}

func (r *renderer) groupBy(md *query.Metadata) error {
	return r.list(r.t.Keywords.GroupBy, md.GroupBy())
}

func (r *renderer) orderBy(md *query.Metadata) error {
	specs := md.OrderBy()
	exprs := make([]query.Expression, len(specs))
	for i, o := range specs {
		exprs[i] = o
	}
	return r.list(r.t.Keywords.OrderBy, exprs)
}

func (r *renderer) list(keyword string, exprs []query.Expression) error {
	if len(exprs) == 0 {
		return nil
	}
	r.write(keyword + " ")
	for i, e := range exprs {
		if i > 0 {
			r.write(", ")
		}
		if err := r.expr(e, frame{}); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) modifiers(mod query.Modifiers) {
	kw := r.t.Keywords
	var parts []string
	if mod.Limit != nil && kw.Limit != "" {
		parts = append(parts, kw.Limit+" "+strconv.FormatInt(*mod.Limit, 10))
	}
	if mod.Offset != nil && kw.Offset != "" {
		if mod.Limit == nil && r.t.NoLimit != "" && kw.Limit != "" {
			parts = append(parts, kw.Limit+" "+r.t.NoLimit)
		}
		parts = append(parts, kw.Offset+" "+strconv.FormatInt(*mod.Offset, 10))
	}
	r.write(strings.Join(parts, " "))
}

// applyTemplate writes the literal segments of tmpl and calls args[i] for
// each reference to argument i.
func (r *renderer) applyTemplate(tmpl query.Template, args []func() error) error {
	for _, el := range tmpl.Elements() {
		if !el.IsArg() {
			r.write(el.Text)
			continue
		}
		if el.Arg >= len(args) {
			return fmt.Errorf("%w: template %q references argument %d of %d", query.ErrInvalidArgument, tmpl.Text(), el.Arg, len(args))
		}
		if err := args[el.Arg](); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) lookup(op query.Operator, context fmt.Stringer) (OperatorTemplate, error) {
	ot, ok := r.t.Lookup(op)
	if !ok {
		return OperatorTemplate{}, fmt.Errorf("%w: %s in %s (dialect %s)", query.ErrUnsupportedOperator, op, context, r.t.Name)
	}
	return ot, nil
}

func (r *renderer) VisitConstant(c *query.Constant, f frame) (struct{}, error) {
	v := reflect.ValueOf(c.Value())
	if v.Kind() == reflect.Slice && v.Type().Elem().Kind() != reflect.Uint8 {
		if v.Len() == 0 {
			r.write("(null)")
			return struct{}{}, nil
		}
		r.write("(")
		for i := 0; i < v.Len(); i++ {
			if i > 0 {
				r.write(", ")
			}
			if err := r.constant(v.Index(i).Interface(), f); err != nil {
				return struct{}{}, err
			}
		}
		r.write(")")
		return struct{}{}, nil
	}
	return struct{}{}, r.constant(c.Value(), f)
}

func (r *renderer) constant(v any, f frame) error {
	if r.s.options.UseLiterals {
		lit, err := r.t.Literal(v)
		if err != nil {
			return err
		}
		r.write(lit)
		return nil
	}
	r.bind(Binding{Value: v, Path: f.path})
	return nil
}

func (r *renderer) VisitParam(p *query.Param, f frame) (struct{}, error) {
	v, ok := r.paramValue(p)
	r.bind(Binding{Value: v, Param: p, Path: f.path, Bound: ok})
	return struct{}{}, nil
}

func (r *renderer) VisitPath(p *query.Path, _ frame) (struct{}, error) {
	switch p.Kind() {
	case query.PathVariable:
		r.write(r.t.QuoteIdentifier(p.Element()))
		return struct{}{}, nil
	case query.PathCollectionAny:
		return struct{}{}, fmt.Errorf("%w: %s cannot be rendered in dialect %s", query.ErrUnsupportedQuantificationContext, p, r.t.Name)
	case query.PathProperty:
		parent := p.Parent()
		if r.dmlRoot != "" && parent.IsRoot() && parent.Key() == r.dmlRoot {
			r.write(r.t.QuoteIdentifier(p.Element()))
			return struct{}{}, nil
		}
		ot, err := r.lookup(query.OpProperty, p)
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, r.applyTemplate(ot.Template, []func() error{
			func() error { return r.expr(parent, frame{}) },
			func() error { r.write(r.t.QuoteIdentifier(p.Element())); return nil },
		})
	default:
		ot, err := r.lookup(query.OpListIndex, p)
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, r.applyTemplate(ot.Template, []func() error{
			func() error { return r.expr(p.Parent(), frame{}) },
			func() error { r.write(strconv.Itoa(p.Metadata().Index)); return nil },
		})
	}
}

func (r *renderer) VisitOperation(o *query.Operation, f frame) (struct{}, error) {
	ot, err := r.lookup(o.Operator(), o)
	if err != nil {
		return struct{}{}, err
	}
	args := o.Args()
	cf := f
	if p := firstPath(args); p != nil {
		cf.path = p
	}
	if o.Operator().Arity == query.Variadic {
		return struct{}{}, r.applyTemplate(ot.Template, []func() error{func() error {
			for i, a := range args {
				if i > 0 {
					r.write(", ")
				}
				if err := r.expr(a, cf); err != nil {
					return err
				}
			}
			return nil
		}})
	}
	renderers := make([]func() error, len(args))
	for i, a := range args {
		i, a := i, a
		renderers[i] = func() error {
			if r.needsParens(o.Operator(), ot.Precedence, i, a) {
				r.write("(")
				defer r.write(")")
			}
			return r.expr(a, cf)
		}
	}
	return struct{}{}, r.applyTemplate(ot.Template, renderers)
}

func (r *renderer) VisitTemplate(t *query.TemplateExpression, f frame) (struct{}, error) {
	args := t.Args()
	cf := f
	if p := firstPath(args); p != nil {
		cf.path = p
	}
	renderers := make([]func() error, len(args))
	for i, a := range args {
		a := a
		renderers[i] = func() error { return r.expr(a, cf) }
	}
	return struct{}{}, r.applyTemplate(t.Template(), renderers)
}

func (r *renderer) VisitOrder(o *query.OrderSpecifier, _ frame) (struct{}, error) {
	if err := r.expr(o.Target(), frame{}); err != nil {
		return struct{}{}, err
	}
	kw := r.t.Keywords
	if o.IsAscending() {
		r.write(" " + kw.Asc)
	} else {
		r.write(" " + kw.Desc)
	}
	switch o.NullHandling() {
	case query.NullsFirst:
		r.write(" " + kw.NullsFirst)
	case query.NullsLast:
		r.write(" " + kw.NullsLast)
	}
	return struct{}{}, nil
}

// VisitSubQuery renders a nested select in parentheses. Placeholders continue
// the numbering of the enclosing statement.
func (r *renderer) VisitSubQuery(q *query.SubQuery, _ frame) (struct{}, error) {
	md := q.Metadata()
	r.scopes = append(r.scopes, md)
	defer func() { r.scopes = r.scopes[:len(r.scopes)-1] }()
	root := r.dmlRoot
	r.dmlRoot = ""
	defer func() { r.dmlRoot = root }()

	parts, err := r.selectParts(md)
	if err != nil {
		return struct{}{}, err
	}
	r.write("(" + joinParts(parts, r.t.ClauseSeparator) + ")")
	return struct{}{}, nil
}

// needsParens reports whether argument i of an operation must be wrapped:
// when it binds looser than its parent, or equally loose on the right of a
// non-associative operator.
func (r *renderer) needsParens(parent query.Operator, parentPrec, i int, arg query.Expression) bool {
	if parentPrec < 0 {
		return false
	}
	childOp, childPrec, ok := r.precedence(arg)
	if !ok || childPrec <= 0 {
		return false
	}
	if childPrec > parentPrec {
		return true
	}
	if childPrec == parentPrec && i > 0 {
		return childOp != parent || !associative(parent)
	}
	return false
}

func (r *renderer) precedence(e query.Expression) (query.Operator, int, bool) {
	switch n := e.(type) {
	case *query.Operation:
		ot, ok := r.t.Lookup(n.Operator())
		return n.Operator(), ot.Precedence, ok
	case *query.BooleanBuilder:
		v, err := n.Value()
		if err != nil {
			return query.Operator{}, 0, false
		}
		return r.precedence(v)
	}
	return query.Operator{}, PrecedenceAtom, true
}

func associative(op query.Operator) bool {
	switch op {
	case query.OpAnd, query.OpOr, query.OpAdd, query.OpMult, query.OpConcat:
		return true
	}
	return false
}

func firstPath(args []query.Expression) *query.Path {
	for _, a := range args {
		if p, ok := a.(*query.Path); ok {
			return p
		}
	}
	return nil
}
