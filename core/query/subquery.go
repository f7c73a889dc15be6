package query

import (
	"fmt"
	"reflect"
)

// SubQuery nests query metadata inside an expression. The metadata is cloned
// on construction so the subquery stays immutable.
type SubQuery struct {
	metadata *Metadata
	typ      reflect.Type
	key      string
}

// NewSubQuery wraps a copy of md.
func NewSubQuery(md *Metadata) (*SubQuery, error) {
	if md == nil {
		return nil, fmt.Errorf("%w: subquery metadata is nil", ErrInvalidArgument)
	}
	c := md.Clone()
	typ := reflect.TypeOf([]any(nil))
	if p := c.Projection(); len(p) == 1 {
		typ = p[0].Type()
	}
	return &SubQuery{metadata: c, typ: typ, key: "q:{" + c.Key() + "}"}, nil
}

// Metadata returns a copy of the nested metadata.
func (s *SubQuery) Metadata() *Metadata { return s.metadata.Clone() }

// metadataRef returns the nested metadata without copying. Callers must not
// mutate it.
func (s *SubQuery) metadataRef() *Metadata { return s.metadata }

func (s *SubQuery) Type() reflect.Type { return s.typ }
func (s *SubQuery) Key() string        { return s.key }
func (s *SubQuery) String() string     { return "subquery(" + s.metadata.String() + ")" }
func (*SubQuery) expressionNode()      {}
