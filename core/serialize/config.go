package serialize

import (
	"errors"
	"fmt"
	"io"

	"github.com/asaidimu/go-weft/core/query"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// templatesDocument is the YAML form of a dialect override. Absent fields keep
// the value of the base dialect.
type templatesDocument struct {
	Name                  string                      `yaml:"name"`
	Placeholder           *string                     `yaml:"placeholder,omitempty"`
	Separator             *string                     `yaml:"separator,omitempty"`
	IdentifierQuote       *string                     `yaml:"identifierQuote,omitempty"`
	TrueLiteral           *string                     `yaml:"trueLiteral,omitempty"`
	FalseLiteral          *string                     `yaml:"falseLiteral,omitempty"`
	StringQuote           *string                     `yaml:"stringQuote,omitempty"`
	StringEscape          *string                     `yaml:"stringEscape,omitempty"`
	EmptyProjection       *string                     `yaml:"emptyProjection,omitempty"`
	NoLimit               *string                     `yaml:"noLimit,omitempty"`
	RewriteCollectionAny  *bool                       `yaml:"rewriteCollectionAny,omitempty"`
	UnqualifiedDMLColumns *bool                       `yaml:"unqualifiedDmlColumns,omitempty"`
	Keywords              yaml.Node                   `yaml:"keywords,omitempty"`
	Operators             map[string]operatorDocument `yaml:"operators,omitempty"`
}

type operatorDocument struct {
	Template   string `yaml:"template"`
	Precedence *int   `yaml:"precedence,omitempty"`
	// Arity defines the operator when its ID is not yet known.
	Arity *int `yaml:"arity,omitempty"`
}

// LoadTemplates reads a YAML dialect definition layered over base, which is
// not modified. A nil base starts from SQLTemplates. For example:
//
//	name: postgres
//	placeholder: dollar
//	identifierQuote: '"'
//	keywords:
//	  limit: fetch first
//	operators:
//	  ILIKE: {template: "{0} ilike {1}", precedence: 40, arity: 2}
//
// Operators with an unknown ID are defined when an arity is given.
func LoadTemplates(r io.Reader, base *Templates, logger *zap.Logger) (*Templates, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if base == nil {
		base = SQLTemplates()
	}

	var doc templatesDocument
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	t := base.Clone()
	if doc.Name != "" {
		t.Name = doc.Name
	}
	if doc.Placeholder != nil {
		style, err := ParsePlaceholderStyle(*doc.Placeholder)
		if err != nil {
			return nil, fmt.Errorf("failed to load templates %s: %w", t.Name, err)
		}
		t.PlaceholderStyle = style
	}
	setString(&t.ClauseSeparator, doc.Separator)
	setString(&t.IdentifierQuote, doc.IdentifierQuote)
	setString(&t.TrueLiteral, doc.TrueLiteral)
	setString(&t.FalseLiteral, doc.FalseLiteral)
	setString(&t.StringQuote, doc.StringQuote)
	setString(&t.StringEscape, doc.StringEscape)
	setString(&t.EmptyProjection, doc.EmptyProjection)
	setString(&t.NoLimit, doc.NoLimit)
	if doc.RewriteCollectionAny != nil {
		t.RewriteCollectionAny = *doc.RewriteCollectionAny
	}
	if doc.UnqualifiedDMLColumns != nil {
		t.UnqualifiedDMLColumns = *doc.UnqualifiedDMLColumns
	}

	// Decoding into the cloned keywords overwrites only the keys present.
	if !doc.Keywords.IsZero() {
		if err := doc.Keywords.Decode(&t.Keywords); err != nil {
			return nil, fmt.Errorf("failed to load keywords of %s: %w", t.Name, err)
		}
	}

	for id, od := range doc.Operators {
		op, err := resolveOperator(id, od)
		if err != nil {
			return nil, fmt.Errorf("failed to load operator %s of %s: %w", id, t.Name, err)
		}
		precedence := PrecedenceFunction
		if current, ok := t.Lookup(op); ok {
			precedence = current.Precedence
		}
		if od.Precedence != nil {
			precedence = *od.Precedence
		}
		if err := t.Register(op, od.Template, precedence); err != nil {
			return nil, fmt.Errorf("failed to load operator %s of %s: %w", id, t.Name, err)
		}
	}

	logger.Debug("Loaded templates",
		zap.String("name", t.Name),
		zap.String("placeholder", t.PlaceholderStyle.String()),
		zap.Int("operators", len(doc.Operators)))
	return t, nil
}

func resolveOperator(id string, od operatorDocument) (query.Operator, error) {
	op, ok := query.LookupOperator(id)
	if ok {
		if od.Arity != nil && *od.Arity != op.Arity {
			return query.Operator{}, fmt.Errorf("%w: arity %d conflicts with defined arity %d", query.ErrInvalidArgument, *od.Arity, op.Arity)
		}
		return op, nil
	}
	if od.Arity == nil {
		return query.Operator{}, fmt.Errorf("%w: unknown operator without arity", query.ErrUnsupportedOperator)
	}
	return query.DefineOperator(id, *od.Arity)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
