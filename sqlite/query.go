package sqlite

import (
	"github.com/asaidimu/go-weft/core/query"
	"github.com/asaidimu/go-weft/core/serialize"
)

// SQLiteTemplates returns the SQLite dialect: double-quoted identifiers,
// positional placeholders, integer booleans and "limit -1" when only an offset
// is set.
func SQLiteTemplates() *serialize.Templates {
	t := serialize.SQLTemplates()
	t.Name = "sqlite"
	t.IdentifierQuote = `"`
	t.TrueLiteral = "1"
	t.FalseLiteral = "0"
	t.NoLimit = "-1"

	overrides := []struct {
		op         query.Operator
		pattern    string
		precedence int
	}{
		{query.OpContains, "instr({0},{1}) > 0", serialize.PrecedenceComparison},
		{query.OpMod, "{0} % {1}", serialize.PrecedenceMult},
	}
	for _, o := range overrides {
		if err := t.Register(o.op, o.pattern, o.precedence); err != nil {
			panic(err)
		}
	}
	return t
}

// NewGeneratorFactory returns a factory of SQLite serializers.
func NewGeneratorFactory() serialize.GeneratorFactory {
	return serialize.TemplatesFactory{Templates: SQLiteTemplates()}
}
