package serialize

import (
	"testing"

	"github.com/asaidimu/go-weft/core/query"
	"github.com/google/go-cmp/cmp"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSerializer_CollectionAnyPredicate(t *testing.T) {
	s := NewSerializer(JPQLTemplates(), nil)

	stmt, err := s.SerializeExpression(query.Eq(anyKittenName, "Ruth123"))
	require.NoError(t, err)

	assert.Equal(t, "exists (select 1 from Kitten cat_kittens where cat_kittens in elements(cat.kittens) and cat_kittens.name = ?1)", stmt.Text)
	assert.Equal(t, []any{"Ruth123"}, stmt.Constants())
	paths := stmt.ConstantPaths()
	require.Len(t, paths, 1)
	assert.Equal(t, "cat_kittens.name", paths[0].String())
}

func TestSerializer_TwoCollectionAnyPredicates(t *testing.T) {
	s := NewSerializer(JPQLTemplates(), nil)

	stmt, err := s.SerializeExpression(query.And(
		query.Eq(anyKittenName, "Ruth123"),
		query.Gt(anyKittenWeight, 10.0),
	))
	require.NoError(t, err)

	assert.Equal(t, "exists (select 1 from Kitten cat_kittens where cat_kittens in elements(cat.kittens) and cat_kittens.name = ?1)"+
		" and exists (select 1 from Kitten cat_kittens where cat_kittens in elements(cat.kittens) and cat_kittens.bodyWeight > ?2)", stmt.Text)
	assert.Equal(t, []any{"Ruth123", 10.0}, stmt.Constants())
}

func TestSerializer_CollectionAnyTemplate(t *testing.T) {
	s := NewSerializer(JPQLTemplates(), nil)
	pred := query.MustTemplate(query.BoolType, "{0} = {1}", anyKittenName, query.ConstantOf("Ruth123"))

	stmt, err := s.SerializeExpression(pred)
	require.NoError(t, err)
	assert.Equal(t, "exists (select 1 from Kitten cat_kittens where cat_kittens in elements(cat.kittens) and cat_kittens.name = ?1)", stmt.Text)
}

func TestSerializer_CollectionAnyOutsidePredicate(t *testing.T) {
	_, err := NewSerializer(JPQLTemplates(), nil).SerializeExpression(anyKittenName)
	assert.ErrorIs(t, err, query.ErrUnsupportedQuantificationContext)

	// dialects without the rewrite cannot render any() at all
	_, err = NewSerializer(SQLTemplates(), nil).SerializeExpression(query.Eq(anyKittenName, "x"))
	assert.ErrorIs(t, err, query.ErrUnsupportedQuantificationContext)
}

func TestSerializer_WhereWithCollectionAny(t *testing.T) {
	md := catQuery(t)
	require.NoError(t, md.AddWhere(query.Eq(catName, "Tom"), query.Eq(anyKittenName, "Ruth123")))

	stmt, err := NewSerializer(JPQLTemplates(), nil).Serialize(md)
	require.NoError(t, err)
	assert.Equal(t, "from Cat cat where cat.name = ?1 and exists (select 1 from Kitten cat_kittens where cat_kittens in elements(cat.kittens) and cat_kittens.name = ?2)", stmt.Text)
	assert.Equal(t, []any{"Tom", "Ruth123"}, stmt.Constants())

	// the metadata keeps the any() form
	assert.True(t, query.Equal(query.And(query.Eq(catName, "Tom"), query.Eq(anyKittenName, "Ruth123")), md.Where()))
}

func TestSerializer_Golden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	name, err := query.NewParam(query.StringType, "name")
	require.NoError(t, err)

	tests := []struct {
		name   string
		render func(t *testing.T) (*Statement, error)
	}{
		{
			name: "jpql_select_join_group_order",
			render: func(t *testing.T) (*Statement, error) {
				md, err := query.NewQueryBuilder().
					From(cat).
					LeftJoin(catKittens, kitten).
					On(query.Like(kittenName, "T%")).
					Where(query.Gt(catBodyWeight, 2.5)).
					Select(catName, query.Count(kitten)).
					GroupBy(catName).
					Having(query.Gt(query.Count(kitten), 1)).
					OrderBy(query.Desc(catName)).
					Limit(10).
					Offset(5).
					Build()
				require.NoError(t, err)
				return NewSerializer(JPQLTemplates(), nil).Serialize(md)
			},
		},
		{
			name: "sql_select_distinct_paging",
			render: func(t *testing.T) (*Statement, error) {
				md, err := query.NewQueryBuilder().
					From(cat).
					Where(query.Or(query.In(catName, "Tom", "Ruth"), query.IsNull(catBodyWeight))).
					OrderBy(query.Asc(catName).NullsLast()).
					Distinct().
					Limit(10).
					Offset(5).
					Build()
				require.NoError(t, err)
				return NewSerializer(SQLTemplates(), nil).Serialize(md)
			},
		},
		{
			name: "jpql_subquery_numbering",
			render: func(t *testing.T) (*Statement, error) {
				sub, err := query.NewQueryBuilder().
					From(kitten).
					Select(kitten).
					Where(query.Eq(kittenName, "Ruth")).
					Build()
				require.NoError(t, err)
				subquery, err := query.NewSubQuery(sub)
				require.NoError(t, err)

				md, err := query.NewQueryBuilder().
					From(cat).
					Where(query.Eq(catName, name), query.Exists(subquery)).
					Set(name, "Tom").
					Build()
				require.NoError(t, err)
				return NewSerializer(JPQLTemplates(), nil).Serialize(md)
			},
		},
		{
			name: "sql_update",
			render: func(t *testing.T) (*Statement, error) {
				md := catQuery(t)
				require.NoError(t, md.AddWhere(query.Eq(catName, "Tom")))
				return NewSerializer(SQLTemplates(), nil).SerializeForUpdate(md, cat, []query.Assignment{
					{Path: catName, Value: query.ConstantOf("Ruth")},
					{Path: catBodyWeight, Value: query.ConstantOf(3.5)},
				})
			},
		},
		{
			name: "jpql_delete",
			render: func(t *testing.T) (*Statement, error) {
				md := catQuery(t)
				require.NoError(t, md.AddWhere(query.Lt(catBodyWeight, 1.0)))
				return NewSerializer(JPQLTemplates(), nil).SerializeForDelete(md, cat)
			},
		},
		{
			name: "sql_insert",
			render: func(t *testing.T) (*Statement, error) {
				return NewSerializer(SQLTemplates(), nil).SerializeForInsert(catQuery(t), cat,
					[]*query.Path{catName, catBodyWeight},
					[]query.Expression{query.ConstantOf("Tom"), query.ConstantOf(3.5)})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := tt.render(t)
			require.NoError(t, err)
			g.Assert(t, tt.name, []byte(stmt.Text))
		})
	}
}

func TestSerializer_BindingOrder(t *testing.T) {
	name, err := query.NewParam(query.StringType, "name")
	require.NoError(t, err)

	md, err := query.NewQueryBuilder().
		From(cat).
		LeftJoin(catKittens, kitten).
		On(query.Like(kittenName, "T%")).
		Where(query.Gt(catBodyWeight, 2.5), query.Ne(catName, name)).
		Select(catName, query.Coalesce(kittenName, "none")).
		Having(query.Gt(query.Count(kitten), 1)).
		Set(name, "Tom").
		Build()
	require.NoError(t, err)

	stmt, err := NewSerializer(JPQLTemplates(), nil).Serialize(md)
	require.NoError(t, err)

	// projection, join condition, where, having
	args, err := stmt.Args(nil)
	require.NoError(t, err)
	if diff := cmp.Diff([]any{"none", "T%", 2.5, "Tom", 1}, args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "select cat.name, coalesce(kitten.name, ?1) from Cat cat left join cat.kittens as kitten on kitten.name like ?2"+
		" where cat.bodyWeight > ?3 and cat.name <> ?4 having count(kitten) > ?5", stmt.Text)

	require.Len(t, stmt.Bindings, 5)
	assert.Same(t, name, stmt.Bindings[3].Param)
	assert.True(t, stmt.Bindings[3].Bound)
	assert.Equal(t, catName.Key(), stmt.Bindings[3].Path.Key())
	assert.Equal(t, []any{"none", "T%", 2.5, 1}, stmt.Constants())
}

func TestSerializer_Modifiers(t *testing.T) {
	md := catQuery(t)
	md.SetLimit(10)
	md.SetOffset(5)

	stmt, err := NewSerializer(JPQLTemplates(), nil).Serialize(md)
	require.NoError(t, err)
	assert.Equal(t, "from Cat cat", stmt.Text)
	require.NotNil(t, stmt.Modifiers.Limit)
	assert.Equal(t, int64(10), *stmt.Modifiers.Limit)
	assert.Equal(t, int64(5), *stmt.Modifiers.Offset)

	offsetOnly := catQuery(t)
	offsetOnly.SetOffset(5)
	sql := SQLTemplates()
	stmt, err = NewSerializer(sql, nil).Serialize(offsetOnly)
	require.NoError(t, err)
	assert.Equal(t, "select * from Cat cat offset 5", stmt.Text)

	sql.NoLimit = "-1"
	stmt, err = NewSerializer(sql, nil).Serialize(offsetOnly)
	require.NoError(t, err)
	assert.Equal(t, "select * from Cat cat limit -1 offset 5", stmt.Text)
}

func TestSerializer_Precedence(t *testing.T) {
	s := NewSerializer(SQLTemplates(), nil)
	a := query.Eq(catName, "x")
	b := query.IsNull(catName)
	c := query.Gt(catBodyWeight, 1.0)

	tests := []struct {
		name string
		expr query.Expression
		want string
	}{
		{"looser child", query.Mult(query.Add(catBodyWeight, 1.0), 2.0), "(cat.bodyWeight + ?) * ?"},
		{"tighter child", query.Add(query.Mult(catBodyWeight, 2.0), 1.0), "cat.bodyWeight * ? + ?"},
		{"non-associative right", query.Sub(catBodyWeight, query.Sub(catBodyWeight, 1.0)), "cat.bodyWeight - (cat.bodyWeight - ?)"},
		{"non-associative left", query.Sub(query.Sub(catBodyWeight, 1.0), 2.0), "cat.bodyWeight - ? - ?"},
		{"associative right", query.Add(catBodyWeight, query.Add(catBodyWeight, 1.0)), "cat.bodyWeight + cat.bodyWeight + ?"},
		{"or under and", query.And(query.Or(a, b), c), "(cat.name = ? or cat.name is null) and cat.bodyWeight > ?"},
		{"and under or", query.Or(query.And(a, c), b), "cat.name = ? and cat.bodyWeight > ? or cat.name is null"},
		{"not", query.Not(query.And(a, c)), "not (cat.name = ? and cat.bodyWeight > ?)"},
		{"function argument", query.Lower(query.Concat(catName, "x")), "lower(cat.name || ?)"},
		{"builder argument", query.And(query.AnyOf(a, b), c), "(cat.name = ? or cat.name is null) and cat.bodyWeight > ?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := s.SerializeExpression(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stmt.Text)
		})
	}
}

func TestSerializer_Constants(t *testing.T) {
	s := NewSerializer(SQLTemplates(), nil)

	t.Run("slice expands to a list", func(t *testing.T) {
		stmt, err := s.SerializeExpression(query.In(catName, []string{"Tom", "Ruth"}))
		require.NoError(t, err)
		assert.Equal(t, "cat.name in (?, ?)", stmt.Text)
		assert.Equal(t, []any{"Tom", "Ruth"}, stmt.Constants())
	})

	t.Run("empty membership", func(t *testing.T) {
		stmt, err := s.SerializeExpression(query.In(catName))
		require.NoError(t, err)
		assert.Equal(t, "1 = 0", stmt.Text)
		assert.Empty(t, stmt.Bindings)
	})

	t.Run("literals", func(t *testing.T) {
		inline := NewSerializer(SQLTemplates(), &SerializerOptions{UseLiterals: true})
		stmt, err := inline.SerializeExpression(query.And(query.Eq(catName, "O'Hara"), query.Gt(catBodyWeight, 2.5)))
		require.NoError(t, err)
		assert.Equal(t, "cat.name = 'O''Hara' and cat.bodyWeight > 2.5", stmt.Text)
		assert.Empty(t, stmt.Bindings)
	})

	t.Run("dollar placeholders", func(t *testing.T) {
		pg := SQLTemplates()
		pg.PlaceholderStyle = PlaceholderDollar
		stmt, err := NewSerializer(pg, nil).SerializeExpression(query.Between(catBodyWeight, 1.0, 2.0))
		require.NoError(t, err)
		assert.Equal(t, "cat.bodyWeight between $1 and $2", stmt.Text)
	})
}

func TestSerializer_Params(t *testing.T) {
	name, err := query.NewParam(query.StringType, "name")
	require.NoError(t, err)
	md := catQuery(t)
	require.NoError(t, md.AddWhere(query.Eq(catName, name)))

	stmt, err := NewSerializer(SQLTemplates(), nil).Serialize(md)
	require.NoError(t, err)
	assert.Equal(t, "select * from Cat cat where cat.name = ?", stmt.Text)
	assert.Empty(t, stmt.Constants())

	_, err = stmt.Args(nil)
	assert.ErrorIs(t, err, query.ErrUnboundParam)

	// overrides match by name
	same, err := query.NewParam(query.StringType, "name")
	require.NoError(t, err)
	args, err := stmt.Args(map[*query.Param]any{same: "Ruth"})
	require.NoError(t, err)
	assert.Equal(t, []any{"Ruth"}, args)
}

func TestSerializer_Flags(t *testing.T) {
	md := catQuery(t)
	require.NoError(t, md.AddFlag(query.NewTextFlag(query.StartOverride, "select top 5")))
	require.NoError(t, md.AddFlag(query.NewTextFlag(query.Start, "/* report */")))
	require.NoError(t, md.AddFlag(query.NewTextFlag(query.End, "for update")))

	stmt, err := NewSerializer(SQLTemplates(), nil).Serialize(md)
	require.NoError(t, err)
	assert.Equal(t, "/* report */ select top 5 * from Cat cat for update", stmt.Text)
}

func TestSerializer_Joins(t *testing.T) {
	md, err := query.NewQueryBuilder().
		From(cat).
		Join(catKittens, kitten).
		RightJoin(catMate, query.Root(catType, "mate")).
		Select(catName).
		Build()
	require.NoError(t, err)
	require.NoError(t, md.AddJoin(query.JoinDefault, query.Root(kittenType, "stray")))

	stmt, err := NewSerializer(JPQLTemplates(), nil).Serialize(md)
	require.NoError(t, err)
	assert.Equal(t, "select cat.name from Cat cat inner join cat.kittens as kitten right join cat.mate as mate, Kitten stray", stmt.Text)
}

func TestSerializer_CollectionOperators(t *testing.T) {
	jpql := NewSerializer(JPQLTemplates(), nil)

	stmt, err := jpql.SerializeExpression(query.And(query.InElements(kitten, catKittens), query.Gt(query.Size(catKittens), 2)))
	require.NoError(t, err)
	assert.Equal(t, "kitten in elements(cat.kittens) and size(cat.kittens) > ?1", stmt.Text)

	stmt, err = jpql.SerializeExpression(query.Eq(catKittens.At(0).Get("name", query.StringType), "Tom"))
	require.NoError(t, err)
	assert.Equal(t, "cat.kittens[0].name = ?1", stmt.Text)

	_, err = NewSerializer(SQLTemplates(), nil).SerializeExpression(query.IsEmpty(catKittens))
	assert.ErrorIs(t, err, query.ErrUnsupportedOperator)
	assert.Contains(t, err.Error(), "COL_IS_EMPTY")
}

func TestSerializer_DML(t *testing.T) {
	t.Run("update binds assignments before where", func(t *testing.T) {
		md := catQuery(t)
		require.NoError(t, md.AddWhere(query.Eq(catName, "Tom")))

		stmt, err := NewSerializer(JPQLTemplates(), nil).SerializeForUpdate(md, cat, []query.Assignment{
			{Path: catBodyWeight, Value: query.ConstantOf(3.5)},
			{Path: catName, Value: nil},
		})
		require.NoError(t, err)
		assert.Equal(t, "update Cat cat set cat.bodyWeight = ?1, cat.name = null where cat.name = ?2", stmt.Text)
		assert.Equal(t, []any{3.5, "Tom"}, stmt.Constants())
		assert.Equal(t, catBodyWeight.Key(), stmt.Bindings[0].Path.Key())
	})

	t.Run("update needs assignments", func(t *testing.T) {
		_, err := NewSerializer(SQLTemplates(), nil).SerializeForUpdate(catQuery(t), cat, nil)
		assert.ErrorIs(t, err, query.ErrInvalidArgument)
	})

	t.Run("update column of another entity", func(t *testing.T) {
		_, err := NewSerializer(SQLTemplates(), nil).SerializeForUpdate(catQuery(t), cat, []query.Assignment{
			{Path: kittenName, Value: query.ConstantOf("x")},
		})
		assert.ErrorIs(t, err, query.ErrUnboundPath)
	})

	t.Run("insert value count", func(t *testing.T) {
		_, err := NewSerializer(SQLTemplates(), nil).SerializeForInsert(catQuery(t), cat,
			[]*query.Path{catName, catBodyWeight}, []query.Expression{query.ConstantOf("Tom")})
		assert.ErrorIs(t, err, query.ErrInvalidArgument)
	})

	t.Run("insert from select", func(t *testing.T) {
		md, err := query.NewQueryBuilder().
			From(kitten).
			Select(kittenName).
			Where(query.StartsWith(kittenName, "T")).
			Build()
		require.NoError(t, err)

		stmt, err := NewSerializer(SQLTemplates(), nil).SerializeForInsert(md, cat, []*query.Path{catName}, nil)
		require.NoError(t, err)
		assert.Equal(t, "insert into Cat (name) select kitten.name from Kitten kitten where kitten.name like ? || '%'", stmt.Text)
	})

	t.Run("delete target must be a root", func(t *testing.T) {
		_, err := NewSerializer(SQLTemplates(), nil).SerializeForDelete(catQuery(t), catKittens)
		assert.ErrorIs(t, err, query.ErrInvalidArgument)
	})

	t.Run("sql delete", func(t *testing.T) {
		md := catQuery(t)
		require.NoError(t, md.AddWhere(query.Or(query.IsNull(catName), query.Lt(catBodyWeight, 1.0))))
		stmt, err := NewSerializer(SQLTemplates(), nil).SerializeForDelete(md, cat)
		require.NoError(t, err)
		assert.Equal(t, "delete from Cat where name is null or bodyWeight < ?", stmt.Text)
	})
}

func TestSerializer_Logging(t *testing.T) {
	s := NewSerializer(SQLTemplates(), &SerializerOptions{Logger: zaptest.NewLogger(t)})
	stmt, err := s.Serialize(catQuery(t))
	require.NoError(t, err)
	assert.Equal(t, "select * from Cat cat", stmt.Text)

	_, err = s.Serialize(nil)
	assert.ErrorIs(t, err, query.ErrInvalidArgument)
}
