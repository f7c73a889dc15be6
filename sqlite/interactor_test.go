package sqlite

import (
	"context"
	"database/sql"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/asaidimu/go-weft/core/query"
	"github.com/asaidimu/go-weft/core/serialize"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type catRow struct {
	Name   string
	Weight float64
	Indoor bool
}

var (
	catRowType = reflect.TypeOf(catRow{})
	c          = query.Entity(catRowType, "cats", "c")
	cName      = c.Get("name", query.StringType)
	cWeight    = c.Get("weight", query.Float64Type)
	cIndoor    = c.Get("indoor", query.BoolType)
)

func newTestInteractor(t *testing.T) *Interactor {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`create table cats (name text primary key, weight real, indoor integer)`)
	require.NoError(t, err)

	i, err := NewInteractor(db, zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	return i
}

func fromCats(t *testing.T) *query.Metadata {
	t.Helper()
	md := query.NewMetadata()
	require.NoError(t, md.AddJoin(query.JoinDefault, c))
	return md
}

func insertCat(t *testing.T, i *Interactor, name string, weight float64, indoor bool) {
	t.Helper()
	n, err := i.Insert(context.Background(), fromCats(t), c,
		[]*query.Path{cName, cWeight, cIndoor},
		[]query.Expression{query.ConstantOf(name), query.ConstantOf(weight), query.ConstantOf(indoor)})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestSQLiteTemplates(t *testing.T) {
	s := serialize.NewSerializer(SQLiteTemplates(), nil)

	stmt, err := s.SerializeExpression(query.Contains(cName, "o"))
	require.NoError(t, err)
	assert.Equal(t, `instr("c"."name",?) > 0`, stmt.Text)

	md := fromCats(t)
	md.SetOffset(2)
	stmt, err = s.Serialize(md)
	require.NoError(t, err)
	assert.Equal(t, `select * from "cats" "c" limit -1 offset 2`, stmt.Text)

	gen, err := NewGeneratorFactory().CreateGenerator(nil)
	require.NoError(t, err)
	stmt, err = gen.SerializeForDelete(fromCats(t), c)
	require.NoError(t, err)
	assert.Equal(t, `delete from "cats"`, stmt.Text)
}

func TestInteractor_CRUD(t *testing.T) {
	ctx := context.Background()
	i := newTestInteractor(t)

	insertCat(t, i, "Tom", 4.5, true)
	insertCat(t, i, "Ruth", 3.0, true)
	insertCat(t, i, "Felix", 5.5, false)

	md, err := query.NewQueryBuilder().
		From(c).
		Select(cName, cWeight).
		Where(query.Eq(cIndoor, true)).
		OrderBy(query.Asc(cName)).
		Build()
	require.NoError(t, err)

	rows, err := i.Query(ctx, md, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Ruth", rows[0]["name"])
	assert.Equal(t, 3.0, rows[0]["weight"])
	assert.Equal(t, "Tom", rows[1]["name"])

	where := fromCats(t)
	require.NoError(t, where.AddWhere(query.Eq(cName, "Tom")))
	n, err := i.Update(ctx, where, c, []query.Assignment{{Path: cIndoor, Value: query.ConstantOf(false)}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rows, err = i.Query(ctx, md, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ruth", rows[0]["name"])

	heavy := fromCats(t)
	require.NoError(t, heavy.AddWhere(query.Gt(cWeight, 4.0)))
	n, err = i.Delete(ctx, heavy, c)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rows, err = i.Query(ctx, fromCats(t), nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0]["indoor"])
}

func TestInteractor_Params(t *testing.T) {
	ctx := context.Background()
	i := newTestInteractor(t)
	insertCat(t, i, "Tom", 4.5, true)
	insertCat(t, i, "Ruth", 3.0, true)

	name, err := query.NewParam(query.StringType, "name")
	require.NoError(t, err)
	md, err := query.NewQueryBuilder().From(c).Select(cWeight).Where(query.Eq(cName, name)).Build()
	require.NoError(t, err)

	_, err = i.Query(ctx, md, nil)
	assert.ErrorIs(t, err, query.ErrUnboundParam)

	rows, err := i.Query(ctx, md, map[*query.Param]any{name: "Ruth"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 3.0, rows[0]["weight"])
}

func TestInteractor_CollectionAnyUnsupported(t *testing.T) {
	i := newTestInteractor(t)
	toys := c.Collection("toys", query.StringType).Any()

	md := fromCats(t)
	require.NoError(t, md.AddWhere(query.Eq(toys, "ball")))
	_, err := i.Query(context.Background(), md, nil)
	assert.ErrorIs(t, err, query.ErrUnsupportedQuantificationContext)
}

func TestInteractor_Unique(t *testing.T) {
	ctx := context.Background()
	i := newTestInteractor(t)
	insertCat(t, i, "Tom", 4.5, true)
	insertCat(t, i, "Ruth", 3.0, true)

	md := fromCats(t)
	md.SetUnique(true)
	_, err := i.Query(ctx, md, nil)
	assert.ErrorIs(t, err, ErrNotUnique)

	require.NoError(t, md.AddWhere(query.Eq(cName, "Tom")))
	rows, err := i.Query(ctx, md, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestInteractor_Events(t *testing.T) {
	i := newTestInteractor(t)

	var (
		mu     sync.Mutex
		events []StatementEvent
	)
	record := func(ctx context.Context, e StatementEvent) error {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
		return nil
	}
	unsubscribe := i.Subscribe(StatementSuccess, record)
	defer unsubscribe()
	defer i.Subscribe(StatementFailed, record)()

	insertCat(t, i, "Tom", 4.5, true)
	_, err := i.Insert(context.Background(), fromCats(t), c,
		[]*query.Path{cName}, []query.Expression{query.ConstantOf("Tom")})
	require.Error(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 2
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	byType := map[StatementEventType]StatementEvent{}
	for _, e := range events {
		byType[e.Type] = e
	}
	success := byType[StatementSuccess]
	assert.Equal(t, "INSERT", success.Operation)
	assert.Equal(t, `insert into "cats" ("name", "weight", "indoor") values (?, ?, ?)`, success.SQL)
	assert.Equal(t, []any{"Tom", 4.5, 1}, success.Args)
	require.NotNil(t, success.RowsAffected)
	assert.Equal(t, int64(1), *success.RowsAffected)
	assert.NotEmpty(t, success.ID)

	failed := byType[StatementFailed]
	require.NotNil(t, failed.Error)
	assert.Contains(t, *failed.Error, "UNIQUE")
}

func TestInteractor_Transaction(t *testing.T) {
	ctx := context.Background()
	i := newTestInteractor(t)
	insertCat(t, i, "Tom", 4.5, true)

	tx, err := i.StartTransaction(ctx)
	require.NoError(t, err)
	_, err = tx.StartTransaction(ctx)
	assert.Error(t, err)

	insertCat(t, tx, "Ruth", 3.0, true)
	rows, err := tx.Query(ctx, fromCats(t), nil)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	require.NoError(t, tx.Rollback(ctx))

	rows, err = i.Query(ctx, fromCats(t), nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	assert.Error(t, i.Commit(ctx))
	assert.Error(t, i.Rollback(ctx))
}

func TestInteractor_ExecBatch(t *testing.T) {
	ctx := context.Background()
	i := newTestInteractor(t)

	batch := serialize.NewBatch(i.Generator())
	md := fromCats(t)
	columns := []*query.Path{cName, cWeight, cIndoor}
	for _, cat := range []catRow{{"Tom", 4.5, true}, {"Ruth", 3.0, false}, {"Felix", 5.5, true}} {
		require.NoError(t, batch.AddInsert(md, c, columns, []query.Expression{
			query.ConstantOf(cat.Name), query.ConstantOf(cat.Weight), query.ConstantOf(cat.Indoor),
		}))
	}

	tx, err := i.StartTransaction(ctx)
	require.NoError(t, err)
	n, err := tx.ExecBatch(ctx, batch, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, tx.Commit(ctx))

	count, err := query.NewQueryBuilder().From(c).Select(query.Count(cName)).Where(query.Eq(cIndoor, true)).Build()
	require.NoError(t, err)
	rows, err := i.Query(ctx, count, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	for _, v := range rows[0] {
		assert.Equal(t, int64(2), v)
	}

	n, err = i.ExecBatch(ctx, serialize.NewBatch(i.Generator()), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
