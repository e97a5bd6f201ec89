package builder

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbtest "github.com/gaborage/qdb/database/testing"
	"github.com/gaborage/qdb/database/types"
)

const (
	tableUsers  = "users"
	tableOrders = "orders"
	colName     = "name"
	fromUsers   = "FROM users"
	selectAll   = "SELECT *"
)

func newBasic(t *testing.T) (*Builder, *dbtest.TestConnector) {
	t.Helper()
	conn := dbtest.NewTestConnector(types.MySQL)
	return New(conn, Options{}), conn
}

func newExtended(t *testing.T, opts ...func(*Options)) (*Builder, *dbtest.TestConnector) {
	t.Helper()
	conn := dbtest.NewTestConnector(types.MySQL)
	o := Options{Extended: true}
	for _, fn := range opts {
		fn(&o)
	}
	return New(conn, o), conn
}

// previewSelect runs Select in preview mode and returns the lines.
func previewSelect(t *testing.T, b *Builder) []string {
	t.Helper()
	res, err := b.Preview().Select(context.Background())
	require.NoError(t, err)
	require.True(t, res.Previewed)
	return res.Lines
}

func TestSelectLayout(t *testing.T) {
	t.Run("no columns selects star", func(t *testing.T) {
		b, _ := newBasic(t)
		assert.Equal(t, []string{selectAll, fromUsers}, previewSelect(t, b.Table(tableUsers)))
	})

	t.Run("short column list stays on one line", func(t *testing.T) {
		b, _ := newBasic(t)
		lines := previewSelect(t, b.Table("users u").Columns("u.id, u.name"))
		assert.Equal(t, []string{"SELECT u.id, u.name", "FROM users AS u"}, lines)
	})

	t.Run("long column list goes multi-line", func(t *testing.T) {
		b, _ := newBasic(t)
		lines := previewSelect(t, b.Table(tableUsers).
			Columns("first_name, last_name, email_address, phone_number, created_at"))
		assert.Equal(t, []string{
			"SELECT",
			"\tfirst_name,",
			"\tlast_name,",
			"\temail_address,",
			"\tphone_number,",
			"\tcreated_at",
			fromUsers,
		}, lines)
	})

	t.Run("no table omits FROM", func(t *testing.T) {
		b, _ := newBasic(t)
		assert.Equal(t, []string{"SELECT NOW()"}, previewSelect(t, b.Columns("NOW()")))
	})

	t.Run("clause order", func(t *testing.T) {
		b, _ := newExtended(t)
		lines := previewSelect(t, b.
			Limit(10, 20).
			OrderBy("n DESC").
			Having("n", "> 5").
			GroupBy("user_id").
			Where("status", "paid").
			Columns("user_id, COUNT(*) AS n").
			Table(tableOrders))
		assert.Equal(t, []string{
			"SELECT user_id, COUNT(*) AS n",
			"FROM orders",
			"WHERE status = 'paid'",
			"GROUP BY user_id",
			"HAVING n > 5",
			"ORDER BY n DESC",
			"LIMIT 10 OFFSET 20",
		}, lines)
	})

	t.Run("distinct", func(t *testing.T) {
		b, _ := newExtended(t)
		res, err := b.Table(tableUsers).Columns("city").Preview().SelectDistinct(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "SELECT DISTINCT city\nFROM users", res.SQL())
	})

	t.Run("column parser keeps function arguments together", func(t *testing.T) {
		b, _ := newBasic(t)
		lines := previewSelect(t, b.Table(tableUsers).Columns("COUNT(a, b), c"))
		assert.Equal(t, "SELECT COUNT(a, b), c", lines[0])
	})
}

func TestBackticks(t *testing.T) {
	t.Run("quotes identifiers and skips keywords", func(t *testing.T) {
		b, _ := newBasic(t)
		lines := previewSelect(t, b.Backticks(true).
			Table("shop.users u").
			Columns("u.id, COUNT(o.id) AS total, *").
			Where("u.id", 5).
			GroupBy("u.id").
			OrderBy("total desc"))
		assert.Equal(t, []string{
			"SELECT `u`.`id`, COUNT(`o`.`id`) AS `total`, *",
			"FROM `shop`.`users` AS u",
			"WHERE `u`.`id` = 5",
			"GROUP BY `u`.`id`",
			"ORDER BY `total` DESC",
		}, lines)
	})

	t.Run("override lasts one statement", func(t *testing.T) {
		b, _ := newBasic(t)
		previewSelect(t, b.Backticks(true).Table(tableUsers))
		assert.Equal(t, []string{selectAll, fromUsers}, previewSelect(t, b.Table(tableUsers)))
	})

	t.Run("default survives resets", func(t *testing.T) {
		b, _ := newBasic(t)
		previewSelect(t, b.BackticksAsDefault(true).Table(tableUsers))
		assert.Equal(t, []string{selectAll, "FROM `users`"}, previewSelect(t, b.Table(tableUsers)))
	})
}

func TestTableSpec(t *testing.T) {
	t.Run("AS keyword", func(t *testing.T) {
		b, _ := newBasic(t)
		assert.Equal(t, "FROM users AS u", previewSelect(t, b.Table("users AS u"))[1])
	})

	t.Run("prefix", func(t *testing.T) {
		conn := dbtest.NewTestConnector(types.MySQL)
		b := New(conn, Options{Prefix: "wp"})
		assert.Equal(t, "FROM wp_posts AS p", previewSelect(t, b.Table("posts p"))[1])
	})

	t.Run("default table is re-seeded", func(t *testing.T) {
		conn := dbtest.NewTestConnector(types.MySQL)
		b := New(conn, Options{Prefix: "wp", DefaultTable: "posts p"})
		assert.Equal(t, "FROM wp_posts AS p", previewSelect(t, b)[1])
		assert.Equal(t, "FROM wp_posts AS p", previewSelect(t, b)[1])
	})

	t.Run("TableAsDefault", func(t *testing.T) {
		b, _ := newBasic(t)
		previewSelect(t, b.TableAsDefault("accounts a"))
		assert.Equal(t, "FROM accounts AS a", previewSelect(t, b)[1])
	})

	t.Run("malformed spec", func(t *testing.T) {
		b, conn := newBasic(t)
		_, err := b.Table("users x y").Select(context.Background())

		var specErr *types.SpecError
		require.True(t, errors.As(err, &specErr))
		assert.Equal(t, "Table", specErr.Op)
		assert.Equal(t, "builder/builder_test.go", specErr.File)
		assert.Positive(t, specErr.Line)
		dbtest.AssertNothingExecuted(t, conn)
		dbtest.AssertReleased(t, conn)
	})
}

func TestValuesAndWrites(t *testing.T) {
	ctx := context.Background()

	t.Run("insert", func(t *testing.T) {
		b, conn := newBasic(t)
		conn.ExpectExec("INSERT INTO users").WillReturnRowsAffected(1)

		res, err := b.Table(tableUsers).Values(types.P(colName, "O'Brien"), types.P("age", 30)).Insert(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"INSERT INTO users", "\t(name, age)", `VALUES ('O\'Brien', 30)`}, res.Lines)
		n, _ := res.Exec.RowsAffected()
		assert.Equal(t, int64(1), n)
		assert.Equal(t, []string{res.SQL()}, conn.ExecLog())
	})

	t.Run("insert with backticks and rules", func(t *testing.T) {
		b, _ := newBasic(t)
		res, err := b.Backticks(true).Table(tableUsers).Values(
			types.P("created", types.Raw("NOW()")),
			types.P("bio", types.Partial("CONCAT(bio, 'it's')", "it's")),
			types.P("active", true),
		).Preview().Insert(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"INSERT INTO `users`",
			"\t(`created`, `bio`, `active`)",
			`VALUES (NOW(), CONCAT(bio, 'it\'s'), 1)`,
		}, res.Lines)
	})

	t.Run("values map is ordered by column", func(t *testing.T) {
		b, _ := newBasic(t)
		res, err := b.Table(tableUsers).ValuesMap(map[string]any{"b": 2, "a": "x"}).Preview().Insert(ctx)
		require.NoError(t, err)
		assert.Equal(t, "\t(a, b)", res.Lines[1])
		assert.Equal(t, "VALUES ('x', 2)", res.Lines[2])
	})

	t.Run("values from struct", func(t *testing.T) {
		type user struct {
			Name  string `db:"name"`
			Email string `db:"email"`
			Skip  string
		}
		b, _ := newBasic(t)
		res, err := b.Table(tableUsers).ValuesOf(&user{Name: "Ann", Email: "ann@example.com"}).Preview().Insert(ctx)
		require.NoError(t, err)
		assert.Equal(t, "VALUES ('Ann', 'ann@example.com')", res.Lines[2])
	})

	t.Run("update", func(t *testing.T) {
		b, _ := newBasic(t)
		res, err := b.Table(tableUsers).
			Values(types.P(colName, "Bob"), types.P("age", 31)).
			Where("id", 7).
			OrderBy("id").
			Limit(1).
			Preview().
			Update(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"UPDATE users SET",
			"\tname = 'Bob',",
			"\tage = 31",
			"WHERE id = 7",
			"ORDER BY id",
			"LIMIT 1",
		}, res.Lines)
	})

	t.Run("delete", func(t *testing.T) {
		b, conn := newBasic(t)
		conn.ExpectExec("DELETE FROM users").WillReturnRowsAffected(3)
		res, err := b.Table(tableUsers).Where("status", "banned").Delete(ctx)
		require.NoError(t, err)
		assert.Equal(t, "DELETE FROM users\nWHERE status = 'banned'", res.SQL())
	})

	t.Run("values without column names", func(t *testing.T) {
		b, conn := newBasic(t)
		_, err := b.Table(tableUsers).Values(types.P("", 1)).Insert(ctx)
		assert.ErrorIs(t, err, types.ErrMalformedSpec)
		dbtest.AssertNothingExecuted(t, conn)
	})

	t.Run("insert without values", func(t *testing.T) {
		b, _ := newBasic(t)
		_, err := b.Table(tableUsers).Insert(ctx)
		assert.ErrorIs(t, err, types.ErrMalformedSpec)
	})

	t.Run("insert without table", func(t *testing.T) {
		b, _ := newBasic(t)
		_, err := b.Values(types.P("a", 1)).Insert(ctx)
		assert.ErrorIs(t, err, types.ErrMalformedSpec)
	})
}

func TestLimit(t *testing.T) {
	tests := []struct {
		name   string
		count  any
		offset []any
		want   string
	}{
		{name: "count", count: 10, want: "LIMIT 10"},
		{name: "count and offset", count: 10, offset: []any{20}, want: "LIMIT 10 OFFSET 20"},
		{name: "zero offset is dropped", count: "5", offset: []any{0}, want: "LIMIT 5"},
		{name: "sized integers", count: int64(10), offset: []any{uint(5)}, want: "LIMIT 10 OFFSET 5"},
		{name: "unsigned count", count: uint8(3), offset: []any{"07"}, want: "LIMIT 3 OFFSET 07"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newBasic(t)
			lines := previewSelect(t, b.Table(tableUsers).Limit(tt.count, tt.offset...))
			assert.Equal(t, tt.want, lines[len(lines)-1])
		})
	}

	for _, bad := range [][]any{{"ten"}, {-1}, {1.5}, {5.0}, {float32(2)}, {int8(-3)}, {true}, {nil}, {10, 2.0}, {10, "x"}, {1, 2, 3}} {
		b, conn := newBasic(t)
		_, err := b.Table(tableUsers).Limit(bad[0], bad[1:]...).Select(context.Background())
		assert.ErrorIs(t, err, types.ErrMalformedSpec, "%v", bad)
		dbtest.AssertNothingExecuted(t, conn)
	}
}

func TestExtendedOnlyFeatures(t *testing.T) {
	ctx := context.Background()
	calls := map[string]func(b *Builder) *Builder{
		"join":       func(b *Builder) *Builder { return b.Join("orders o", "o.user_id = u.id") },
		"having":     func(b *Builder) *Builder { return b.Having("n", 1) },
		"table sub":  func(b *Builder) *Builder { return b.Table(types.SubToken) },
		"column sub": func(b *Builder) *Builder { return b.Columns("id, " + types.SubToken) },
		"where sub":  func(b *Builder) *Builder { return b.Where("id", types.Sub) },
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			b, conn := newBasic(t)
			_, err := call(b.Table("users u")).Select(ctx)
			assert.ErrorIs(t, err, types.ErrMalformedSpec)
			assert.Equal(t, 0, b.Level())
			dbtest.AssertNothingExecuted(t, conn)
		})
	}

	t.Run("distinct", func(t *testing.T) {
		b, _ := newBasic(t)
		_, err := b.Table(tableUsers).SelectDistinct(ctx)
		assert.ErrorIs(t, err, types.ErrMalformedSpec)
	})
}

func TestJoins(t *testing.T) {
	b, _ := newExtended(t, func(o *Options) { o.Prefix = "shop" })
	lines := previewSelect(t, b.
		Table("users u").
		Columns("u.name, o.total").
		LeftJoin("orders AS o", "o.user_id = u.id").
		JoinWith("right  outer", "refunds r", "r.order_id = o.id").
		Join("notes n", "n.user_id = u.id"))

	assert.Equal(t, []string{
		"SELECT u.name, o.total",
		"FROM shop_users AS u",
		"LEFT JOIN shop_orders AS o ON o.user_id = u.id",
		"RIGHT OUTER JOIN shop_refunds AS r ON r.order_id = o.id",
		"JOIN shop_notes AS n ON n.user_id = u.id",
	}, lines)

	t.Run("missing ON", func(t *testing.T) {
		b, _ := newExtended(t)
		_, err := b.Table("users u").InnerJoin("orders o", " ").Select(context.Background())
		assert.ErrorIs(t, err, types.ErrMalformedSpec)
	})
}

func TestColumnsExcept(t *testing.T) {
	ctx := context.Background()
	b, conn := newBasic(t)
	conn.WithTable(tableUsers, "id", colName, "password", "salt")

	first := previewSelect(t, b.Table(tableUsers).ColumnsExcept(ctx, "password, salt"))
	second := previewSelect(t, b.Backticks(true).Table(tableUsers).ColumnsExcept(ctx, "password"))

	assert.Equal(t, "SELECT id, name", first[0])
	assert.Equal(t, "SELECT `id`, `name`, `salt`", second[0])
	assert.Equal(t, 1, conn.ColumnCalls(tableUsers))

	t.Run("unknown table", func(t *testing.T) {
		b, conn := newBasic(t)
		_, err := b.Table("ghosts").ColumnsExcept(ctx, "id").Select(ctx)
		assert.ErrorIs(t, err, types.ErrQueryFailed)
		assert.ErrorIs(t, err, types.ErrUnknownTable)
		dbtest.AssertReleased(t, conn)
	})

	t.Run("no table", func(t *testing.T) {
		b, _ := newBasic(t)
		_, err := b.ColumnsExcept(ctx, "id").Select(ctx)
		assert.ErrorIs(t, err, types.ErrMalformedSpec)
	})
}

func TestColumnsOf(t *testing.T) {
	type order struct {
		ID    int64   `db:"id"`
		Total float64 `db:"total"`
	}
	b, _ := newBasic(t)
	lines := previewSelect(t, b.Backticks(true).Table(tableOrders).ColumnsOf(order{}))
	assert.Equal(t, "SELECT `id`, `total`", lines[0])
}

func TestExecution(t *testing.T) {
	ctx := context.Background()

	t.Run("select returns rows", func(t *testing.T) {
		b, conn := newBasic(t)
		conn.ExpectQuery("FROM users").
			WillReturnRows(dbtest.NewRowSet("id", colName).AddRow(int64(1), "Alice"))

		res, err := b.Table(tableUsers).Columns("id, name").Select(ctx)
		require.NoError(t, err)
		require.NotNil(t, res.Rows)
		defer res.Rows.Close()

		require.True(t, res.Rows.Next())
		var id int64
		var name string
		require.NoError(t, res.Rows.Scan(&id, &name))
		assert.Equal(t, "Alice", name)

		dbtest.AssertQueryExecuted(t, conn, "SELECT id, name\nFROM users")
		assert.Equal(t, []string{"SELECT id, name", fromUsers}, b.SQL())
		dbtest.AssertNotReleased(t, conn)
	})

	t.Run("connector failure is wrapped and fatal", func(t *testing.T) {
		b, conn := newBasic(t)
		boom := errors.New("syntax error near FROM")
		conn.ExpectQuery("FROM users").WillReturnError(boom)

		_, err := b.Table(tableUsers).Select(ctx)
		var qe *types.QueryError
		require.True(t, errors.As(err, &qe))
		assert.ErrorIs(t, err, boom)
		assert.ErrorIs(t, err, types.ErrQueryFailed)
		assert.Equal(t, "SELECT *\nFROM users", qe.SQL)
		assert.Equal(t, "Select", qe.Op)
		dbtest.AssertReleased(t, conn)

		_, again := b.Table(tableUsers).Select(ctx)
		assert.Same(t, err, again)
		assert.Len(t, conn.QueryLog(), 1)
	})

	t.Run("preview executes nothing", func(t *testing.T) {
		b, conn := newBasic(t)
		res, err := b.Table(tableUsers).Where("id", 1).Preview().Delete(ctx)
		require.NoError(t, err)
		assert.True(t, res.Previewed)
		dbtest.AssertNothingExecuted(t, conn)
	})

	t.Run("explicit release", func(t *testing.T) {
		b, conn := newBasic(t)
		require.NoError(t, b.Release())
		require.NoError(t, b.Release())
		dbtest.AssertReleased(t, conn)

		_, err := b.Table(tableUsers).Select(ctx)
		assert.ErrorIs(t, err, types.ErrReleased)
	})
}

func TestResetIdempotence(t *testing.T) {
	opts := Options{Extended: true, Prefix: "app", DefaultTable: "users u", Backticks: true}
	b := New(dbtest.NewTestConnector(types.MySQL), opts)
	fresh := New(dbtest.NewTestConnector(types.MySQL), opts)

	_, err := b.Table("orders o").
		Columns("o.id, o.total").
		LeftJoin("items i", "i.order_id = o.id").
		Where("o.total", "> 10").
		OrWhere("o.vip", true).
		GroupBy("o.id").
		Having("o.total", "> 100").
		OrderBy("o.id DESC").
		Limit(5).
		Backticks(false).
		Preview().
		SelectDistinct(context.Background())
	require.NoError(t, err)

	assert.Equal(t, fresh.live, b.live)
	assert.Equal(t, 0, b.Level())
	assert.Empty(t, b.spheres)
	assert.False(t, b.preview)
	assert.Equal(t, fresh.defaults, b.defaults)
	assert.True(t, strings.HasPrefix(b.SQL()[0], "SELECT DISTINCT"))
}
