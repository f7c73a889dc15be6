// Package serialize renders query metadata and expressions into query text for
// a configurable dialect. A Templates value describes the dialect: clause
// keywords, placeholder style, identifier quoting and one template per
// operator. The Serializer walks metadata in clause order and returns the text
// together with the values to bind, in the order their placeholders appear.
package serialize

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/asaidimu/go-weft/core/query"
)

// PlaceholderStyle selects how bind placeholders are written.
type PlaceholderStyle int

const (
	// PlaceholderPositional writes "?".
	PlaceholderPositional PlaceholderStyle = iota
	// PlaceholderNumbered writes "?1", "?2", ...
	PlaceholderNumbered
	// PlaceholderDollar writes "$1", "$2", ...
	PlaceholderDollar
)

func (s PlaceholderStyle) String() string {
	switch s {
	case PlaceholderNumbered:
		return "numbered"
	case PlaceholderDollar:
		return "dollar"
	default:
		return "positional"
	}
}

// ParsePlaceholderStyle parses the names produced by String.
func ParsePlaceholderStyle(s string) (PlaceholderStyle, error) {
	switch strings.ToLower(s) {
	case "positional", "":
		return PlaceholderPositional, nil
	case "numbered":
		return PlaceholderNumbered, nil
	case "dollar":
		return PlaceholderDollar, nil
	}
	return 0, fmt.Errorf("%w: unknown placeholder style %q", query.ErrInvalidArgument, s)
}

// Keywords are the clause keywords of a dialect. An empty Limit or Offset
// keyword leaves the modifier out of the text; it is still reported on the
// Statement.
type Keywords struct {
	Select     string `yaml:"select"`
	Distinct   string `yaml:"distinct"`
	From       string `yaml:"from"`
	Where      string `yaml:"where"`
	GroupBy    string `yaml:"groupBy"`
	Having     string `yaml:"having"`
	OrderBy    string `yaml:"orderBy"`
	Asc        string `yaml:"asc"`
	Desc       string `yaml:"desc"`
	NullsFirst string `yaml:"nullsFirst"`
	NullsLast  string `yaml:"nullsLast"`
	Limit      string `yaml:"limit"`
	Offset     string `yaml:"offset"`
	InnerJoin  string `yaml:"innerJoin"`
	LeftJoin   string `yaml:"leftJoin"`
	RightJoin  string `yaml:"rightJoin"`
	FullJoin   string `yaml:"fullJoin"`
	On         string `yaml:"on"`
	Update     string `yaml:"update"`
	Set        string `yaml:"set"`
	InsertInto string `yaml:"insertInto"`
	Values     string `yaml:"values"`
	DeleteFrom string `yaml:"deleteFrom"`
}

// Operator precedences. A lower value binds tighter. Arguments that bind
// looser than their parent are parenthesised.
const (
	PrecedenceFunction   = -1
	PrecedenceAtom       = 0
	PrecedenceUnary      = 10
	PrecedenceMult       = 20
	PrecedenceAdd        = 30
	PrecedenceComparison = 40
	PrecedenceNot        = 50
	PrecedenceAnd        = 60
	PrecedenceOr         = 70
)

// OperatorTemplate is the rendering of one operator.
type OperatorTemplate struct {
	Template   query.Template
	Precedence int
}

// Templates describes a dialect. The operator table is guarded by a mutex so a
// shared Templates value can be extended while serializers read it.
type Templates struct {
	Name             string
	Keywords         Keywords
	PlaceholderStyle PlaceholderStyle
	ClauseSeparator  string
	IdentifierQuote  string
	TrueLiteral      string
	FalseLiteral     string

	// StringQuote delimits inline string literals. Embedded quotes are
	// doubled unless StringEscape is set, in which case they and the escape
	// itself are prefixed with it.
	StringQuote  string
	StringEscape string

	// EmptyProjection is rendered when a select has no projection. When it is
	// empty the select clause is left out entirely.
	EmptyProjection string

	// NoLimit is rendered as the limit when only an offset is set, for
	// dialects that require a limit before an offset.
	NoLimit string

	// RewriteCollectionAny enables the any() to exists subquery rewrite for
	// predicates.
	RewriteCollectionAny bool

	// UnqualifiedDMLColumns renders columns of the target entity without the
	// entity variable in update and delete statements, and the target as its
	// bare entity name.
	UnqualifiedDMLColumns bool

	mu        sync.RWMutex
	operators map[query.Operator]OperatorTemplate
}

// NewTemplates returns a dialect with the given name, default keywords and no
// operators.
func NewTemplates(name string) *Templates {
	return &Templates{
		Name: name,
		Keywords: Keywords{
			Select:     "select",
			Distinct:   "distinct",
			From:       "from",
			Where:      "where",
			GroupBy:    "group by",
			Having:     "having",
			OrderBy:    "order by",
			Asc:        "asc",
			Desc:       "desc",
			NullsFirst: "nulls first",
			NullsLast:  "nulls last",
			Limit:      "limit",
			Offset:     "offset",
			InnerJoin:  "inner join",
			LeftJoin:   "left join",
			RightJoin:  "right join",
			FullJoin:   "full join",
			On:         "on",
			Update:     "update",
			Set:        "set",
			InsertInto: "insert into",
			Values:     "values",
			DeleteFrom: "delete from",
		},
		ClauseSeparator: " ",
		TrueLiteral:     "true",
		FalseLiteral:    "false",
		StringQuote:     "'",
		operators:       make(map[query.Operator]OperatorTemplate),
	}
}

// Register sets the template of an operator, replacing any previous one.
func (t *Templates) Register(op query.Operator, pattern string, precedence int) error {
	tmpl, err := query.ParseTemplate(pattern)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.operators[op] = OperatorTemplate{Template: tmpl, Precedence: precedence}
	return nil
}

func (t *Templates) mustRegister(op query.Operator, pattern string, precedence int) {
	if err := t.Register(op, pattern, precedence); err != nil {
		panic(err)
	}
}

// Unregister removes the template of an operator.
func (t *Templates) Unregister(op query.Operator) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.operators, op)
}

// Lookup returns the template of an operator.
func (t *Templates) Lookup(op query.Operator) (OperatorTemplate, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ot, ok := t.operators[op]
	return ot, ok
}

// Clone returns an independent copy that can be customised.
func (t *Templates) Clone() *Templates {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c := &Templates{
		Name:                  t.Name,
		Keywords:              t.Keywords,
		PlaceholderStyle:      t.PlaceholderStyle,
		ClauseSeparator:       t.ClauseSeparator,
		IdentifierQuote:       t.IdentifierQuote,
		TrueLiteral:           t.TrueLiteral,
		FalseLiteral:          t.FalseLiteral,
		StringQuote:           t.StringQuote,
		StringEscape:          t.StringEscape,
		EmptyProjection:       t.EmptyProjection,
		NoLimit:               t.NoLimit,
		RewriteCollectionAny:  t.RewriteCollectionAny,
		UnqualifiedDMLColumns: t.UnqualifiedDMLColumns,
		operators:             make(map[query.Operator]OperatorTemplate, len(t.operators)),
	}
	for op, ot := range t.operators {
		c.operators[op] = ot
	}
	return c
}

// Placeholder returns the placeholder for the bind value at a one-based index.
func (t *Templates) Placeholder(index int) string {
	switch t.PlaceholderStyle {
	case PlaceholderNumbered:
		return "?" + strconv.Itoa(index)
	case PlaceholderDollar:
		return "$" + strconv.Itoa(index)
	default:
		return "?"
	}
}

// QuoteIdentifier quotes a name with the dialect quote, doubling embedded
// quotes. Names are returned unchanged when the dialect does not quote.
func (t *Templates) QuoteIdentifier(name string) string {
	q := t.IdentifierQuote
	if q == "" {
		return name
	}
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// Literal renders a value inline. Strings, times and stringers are quoted with
// QuoteString.
func (t *Templates) Literal(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "null", nil
	case string:
		return t.QuoteString(val), nil
	case bool:
		if val {
			return t.TrueLiteral, nil
		}
		return t.FalseLiteral, nil
	case int:
		return strconv.Itoa(val), nil
	case int8, int16, int32, int64:
		return fmt.Sprintf("%d", val), nil
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), nil
	case time.Time:
		return t.QuoteString(val.Format(time.RFC3339Nano)), nil
	case fmt.Stringer:
		return t.QuoteString(val.String()), nil
	}
	return "", fmt.Errorf("%w: cannot render %T as a literal", query.ErrInvalidArgument, v)
}

// QuoteString renders s as a string literal of the dialect. A dialect without
// a StringQuote uses single quotes.
func (t *Templates) QuoteString(s string) string {
	q := t.StringQuote
	if q == "" {
		q = "'"
	}
	if t.StringEscape == "" {
		return q + strings.ReplaceAll(s, q, q+q) + q
	}
	e := t.StringEscape
	s = strings.ReplaceAll(s, e, e+e)
	if q != e {
		s = strings.ReplaceAll(s, q, e+q)
	}
	return q + s + q
}

// registerCommon registers the operators whose rendering is shared by the
// built-in dialects.
func registerCommon(t *Templates) {
	t.mustRegister(query.OpAnd, "{0} and {1}", PrecedenceAnd)
	t.mustRegister(query.OpOr, "{0} or {1}", PrecedenceOr)
	t.mustRegister(query.OpNot, "not {0}", PrecedenceNot)

	t.mustRegister(query.OpEq, "{0} = {1}", PrecedenceComparison)
	t.mustRegister(query.OpNe, "{0} <> {1}", PrecedenceComparison)
	t.mustRegister(query.OpLt, "{0} < {1}", PrecedenceComparison)
	t.mustRegister(query.OpGt, "{0} > {1}", PrecedenceComparison)
	t.mustRegister(query.OpLoe, "{0} <= {1}", PrecedenceComparison)
	t.mustRegister(query.OpGoe, "{0} >= {1}", PrecedenceComparison)
	t.mustRegister(query.OpBetween, "{0} between {1} and {2}", PrecedenceComparison)
	t.mustRegister(query.OpIsNull, "{0} is null", PrecedenceComparison)
	t.mustRegister(query.OpIsNotNull, "{0} is not null", PrecedenceComparison)
	t.mustRegister(query.OpIn, "{0} in {1}", PrecedenceComparison)
	t.mustRegister(query.OpNotIn, "{0} not in {1}", PrecedenceComparison)
	t.mustRegister(query.OpLike, "{0} like {1}", PrecedenceComparison)

	t.mustRegister(query.OpLower, "lower({0})", PrecedenceFunction)
	t.mustRegister(query.OpUpper, "upper({0})", PrecedenceFunction)
	t.mustRegister(query.OpTrim, "trim({0})", PrecedenceFunction)
	t.mustRegister(query.OpLength, "length({0})", PrecedenceFunction)

	t.mustRegister(query.OpAdd, "{0} + {1}", PrecedenceAdd)
	t.mustRegister(query.OpSub, "{0} - {1}", PrecedenceAdd)
	t.mustRegister(query.OpMult, "{0} * {1}", PrecedenceMult)
	t.mustRegister(query.OpDiv, "{0} / {1}", PrecedenceMult)
	t.mustRegister(query.OpNegate, "-{0}", PrecedenceUnary)

	t.mustRegister(query.OpCount, "count({0})", PrecedenceFunction)
	t.mustRegister(query.OpCountDistinct, "count(distinct {0})", PrecedenceFunction)
	t.mustRegister(query.OpSum, "sum({0})", PrecedenceFunction)
	t.mustRegister(query.OpAvg, "avg({0})", PrecedenceFunction)
	t.mustRegister(query.OpMin, "min({0})", PrecedenceFunction)
	t.mustRegister(query.OpMax, "max({0})", PrecedenceFunction)

	t.mustRegister(query.OpExists, "exists {0}", PrecedenceFunction)
	t.mustRegister(query.OpAlias, "{0} as {1}", PrecedenceFunction)
	t.mustRegister(query.OpCoalesce, "coalesce({0})", PrecedenceFunction)
	t.mustRegister(query.OpProperty, "{0}.{1}", PrecedenceAtom)
}

// JPQLTemplates returns the generic object query dialect: numbered
// placeholders, unquoted identifiers, collection operators and the any()
// rewrite. Limit and offset are reported on the Statement rather than
// rendered.
func JPQLTemplates() *Templates {
	t := NewTemplates("jpql")
	t.PlaceholderStyle = PlaceholderNumbered
	t.Keywords.Limit = ""
	t.Keywords.Offset = ""
	t.RewriteCollectionAny = true
	registerCommon(t)

	t.mustRegister(query.OpConcat, "concat({0},{1})", PrecedenceFunction)
	t.mustRegister(query.OpSubstr1, "substring({0},{1}+1)", PrecedenceFunction)
	t.mustRegister(query.OpSubstr2, "substring({0},{1}+1,{2}-{1})", PrecedenceFunction)
	t.mustRegister(query.OpStartsWith, "{0} like concat({1},'%')", PrecedenceComparison)
	t.mustRegister(query.OpEndsWith, "{0} like concat('%',{1})", PrecedenceComparison)
	t.mustRegister(query.OpContains, "locate({1},{0}) > 0", PrecedenceComparison)
	t.mustRegister(query.OpMod, "mod({0},{1})", PrecedenceFunction)

	t.mustRegister(query.OpInElements, "{0} in elements({1})", PrecedenceComparison)
	t.mustRegister(query.OpIsEmpty, "{0} is empty", PrecedenceComparison)
	t.mustRegister(query.OpSize, "size({0})", PrecedenceFunction)
	t.mustRegister(query.OpListIndex, "{0}[{1}]", PrecedenceAtom)
	return t
}

// SQLTemplates returns a generic relational dialect: positional placeholders,
// "*" for an empty projection, limit and offset clauses and unqualified DML
// columns. Collection operators are not supported.
func SQLTemplates() *Templates {
	t := NewTemplates("sql")
	t.EmptyProjection = "*"
	t.UnqualifiedDMLColumns = true
	registerCommon(t)

	t.mustRegister(query.OpConcat, "{0} || {1}", PrecedenceAdd)
	t.mustRegister(query.OpSubstr1, "substr({0},{1}+1)", PrecedenceFunction)
	t.mustRegister(query.OpSubstr2, "substr({0},{1}+1,{2}-{1})", PrecedenceFunction)
	t.mustRegister(query.OpStartsWith, "{0} like {1} || '%'", PrecedenceComparison)
	t.mustRegister(query.OpEndsWith, "{0} like '%' || {1}", PrecedenceComparison)
	t.mustRegister(query.OpContains, "{0} like '%' || {1} || '%'", PrecedenceComparison)
	t.mustRegister(query.OpMod, "{0} % {1}", PrecedenceMult)
	return t
}
