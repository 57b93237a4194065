package capability

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"cogni/internal/tester"
	"cogni/internal/value"
)

func mockDB(t *testing.T) (*Set, sqlmock.Sqlmock, string) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	tester.NoErr(t, err)
	s, err := New(Config{})
	tester.NoErr(t, err)
	t.Cleanup(func() { s.Close() })
	return s, mock, s.databases.put(db)
}

func TestSQLQueryRowsAsMaps(t *testing.T) {
	s, mock, handle := mockDB(t)
	mock.ExpectQuery("SELECT id, name FROM users WHERE id > ?").
		WithArgs(float64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(2, "ada").
			AddRow(3, "grace"))

	v, err := s.Builtins()["sql_query"].Impl([]value.Value{
		value.Str(handle),
		value.Str("SELECT id, name FROM users WHERE id > ?"),
		value.Num(1),
	})
	tester.NoErr(t, err)
	rows := v.AsList()
	tester.Eq(t, len(rows), 2)
	tester.Eq(t, rows[0].AsMap()["id"].AsNum(), float64(2))
	tester.Eq(t, rows[0].AsMap()["name"].AsStr(), "ada")
	tester.Eq(t, rows[1].AsMap()["name"].AsStr(), "grace")
	tester.NoErr(t, mock.ExpectationsWereMet())
}

func TestSQLQueryEmptyResultIsEmptyList(t *testing.T) {
	s, mock, handle := mockDB(t)
	mock.ExpectQuery("SELECT id FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	v, err := s.Builtins()["sql_query"].Impl([]value.Value{
		value.Str(handle),
		value.Str("SELECT id FROM users"),
	})
	tester.NoErr(t, err)
	tester.Eq(t, v.Kind, value.KindList)
	tester.Eq(t, len(v.AsList()), 0)
}

func TestSQLExecReportsAffectedRows(t *testing.T) {
	s, mock, handle := mockDB(t)
	mock.ExpectExec("DELETE FROM users WHERE id = ?").
		WithArgs(float64(7)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	v, err := s.Builtins()["sql_exec"].Impl([]value.Value{
		value.Str(handle),
		value.Str("DELETE FROM users WHERE id = ?"),
		value.Num(7),
	})
	tester.NoErr(t, err)
	tester.Eq(t, v.AsNum(), float64(2))
	tester.NoErr(t, mock.ExpectationsWereMet())
}

func TestSQLCloseRemovesHandle(t *testing.T) {
	s, mock, handle := mockDB(t)
	mock.ExpectClose()

	_, err := s.Builtins()["sql_close"].Impl([]value.Value{value.Str(handle)})
	tester.NoErr(t, err)

	_, err = s.Builtins()["sql_query"].Impl([]value.Value{value.Str(handle), value.Str("SELECT 1")})
	tester.ErrContains(t, err, "unknown handle")

	_, err = s.Builtins()["sql_close"].Impl([]value.Value{value.Str(handle)})
	tester.ErrContains(t, err, "unknown handle")
}

func TestSQLOpenRejectsUnknownDriver(t *testing.T) {
	s, err := New(Config{})
	tester.NoErr(t, err)
	defer s.Close()

	_, err = s.Builtins()["sql_open"].Impl([]value.Value{value.Str("oracle9i"), value.Str("dsn")})
	tester.ErrContains(t, err, "unknown driver")
}

func TestSQLOpenSQLiteHandle(t *testing.T) {
	s, err := New(Config{})
	tester.NoErr(t, err)
	defer s.Close()

	v, err := s.Builtins()["sql_open"].Impl([]value.Value{value.Str("sqlite"), value.Str(":memory:")})
	tester.NoErr(t, err)
	tester.Eq(t, v.Kind, value.KindStr)

	_, err = s.Builtins()["sql_close"].Impl([]value.Value{value.Str(v.AsStr())})
	tester.NoErr(t, err)
}

func TestSQLDSNLookup(t *testing.T) {
	s, err := New(Config{Databases: map[string]string{"main": "postgres://db/app"}})
	tester.NoErr(t, err)
	defer s.Close()

	v, err := s.Builtins()["sql_dsn"].Impl([]value.Value{value.Str("main")})
	tester.NoErr(t, err)
	tester.Eq(t, v.AsStr(), "postgres://db/app")

	_, err = s.Builtins()["sql_dsn"].Impl([]value.Value{value.Str("reporting")})
	tester.ErrContains(t, err, `unknown database "reporting"`)
}

func TestSQLDSNAbsentWithoutConfig(t *testing.T) {
	s, err := New(Config{})
	tester.NoErr(t, err)
	defer s.Close()

	_, ok := s.Builtins()["sql_dsn"]
	tester.False(t, ok)
}
