package serialize

import (
	"reflect"
	"testing"

	"github.com/asaidimu/go-weft/core/query"
	"github.com/stretchr/testify/require"
)

type Cat struct {
	Name       string
	BodyWeight float64
	Kittens    []Kitten
	Mate       *Cat
}

type Kitten struct {
	Name       string
	BodyWeight float64
}

var (
	catType    = reflect.TypeOf(Cat{})
	kittenType = reflect.TypeOf(Kitten{})

	cat           = query.Root(catType, "cat")
	catName       = cat.Get("name", query.StringType)
	catBodyWeight = cat.Get("bodyWeight", query.Float64Type)
	catKittens    = cat.Collection("kittens", kittenType)
	catMate       = cat.Get("mate", catType)
	kitten        = query.Root(kittenType, "kitten")
	kittenName    = kitten.Get("name", query.StringType)

	anyKittenName   = catKittens.Any().Get("name", query.StringType)
	anyKittenWeight = catKittens.Any().Get("bodyWeight", query.Float64Type)
)

// catQuery returns metadata selecting from cat.
func catQuery(t *testing.T) *query.Metadata {
	t.Helper()
	md := query.NewMetadata()
	require.NoError(t, md.AddJoin(query.JoinDefault, cat))
	return md
}
