package serialize

import (
	"github.com/asaidimu/go-weft/core/query"
)

// QueryGenerator turns query metadata into dialect text and ordered bindings.
// Each dialect supplies its own Templates; execution layers depend only on
// this interface.
type QueryGenerator interface {
	// Serialize renders a select statement. Placeholders are numbered in
	// emission order, which is the order values must be bound in.
	Serialize(md *query.Metadata) (*Statement, error)

	// SerializeForUpdate renders an update of entity. Assignment values are
	// bound before any value of the where clause.
	SerializeForUpdate(md *query.Metadata, entity *query.Path, updates []query.Assignment) (*Statement, error)

	// SerializeForInsert renders an insert into entity, either from explicit
	// values or from the projection of md.
	SerializeForInsert(md *query.Metadata, entity *query.Path, columns []*query.Path, values []query.Expression) (*Statement, error)

	// SerializeForDelete renders a delete from entity filtered by the where
	// clause of md.
	SerializeForDelete(md *query.Metadata, entity *query.Path) (*Statement, error)
}

// GeneratorFactory creates QueryGenerator instances for a dialect.
type GeneratorFactory interface {
	CreateGenerator(options *SerializerOptions) (QueryGenerator, error)
}

// TemplatesFactory is a GeneratorFactory that builds Serializers over a fixed
// dialect.
type TemplatesFactory struct {
	Templates *Templates
}

// CreateGenerator returns a Serializer for the factory's dialect.
func (f TemplatesFactory) CreateGenerator(options *SerializerOptions) (QueryGenerator, error) {
	return NewSerializer(f.Templates, options), nil
}
