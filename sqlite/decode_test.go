package sqlite

import (
	"context"
	"testing"

	"github.com/asaidimu/go-weft/core/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type catSummary struct {
	Name   string   `json:"name"`
	Weight float64  `json:"weight"`
	Tags   []string `json:"tags"`
}

func TestDecodeRow(t *testing.T) {
	got, err := DecodeRow[catSummary](Row{"name": "Tom", "weight": 4.5, "tags": `["lazy","orange"]`})
	require.NoError(t, err)
	assert.Equal(t, catSummary{Name: "Tom", Weight: 4.5, Tags: []string{"lazy", "orange"}}, got)

	ptr, err := DecodeRow[*catSummary](Row{"name": "Ruth"})
	require.NoError(t, err)
	assert.Equal(t, "Ruth", ptr.Name)

	_, err = DecodeRow[catSummary](nil)
	assert.ErrorIs(t, err, query.ErrInvalidArgument)
	_, err = DecodeRow[int](Row{})
	assert.ErrorIs(t, err, query.ErrInvalidArgument)
	_, err = DecodeRow[catSummary](Row{"weight": "heavy"})
	assert.Error(t, err)
}

func TestQueryInto(t *testing.T) {
	i := newTestInteractor(t)
	insertCat(t, i, "Tom", 4.5, true)
	insertCat(t, i, "Ruth", 3.0, false)

	md, err := query.NewQueryBuilder().From(c).Select(cName, cWeight).OrderBy(query.Desc(cWeight)).Build()
	require.NoError(t, err)

	cats, err := QueryInto[catSummary](context.Background(), i, md, nil)
	require.NoError(t, err)
	assert.Equal(t, []catSummary{{Name: "Tom", Weight: 4.5}, {Name: "Ruth", Weight: 3.0}}, cats)
}
