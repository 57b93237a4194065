package capability

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"cogni/internal/value"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// handleTable maps opaque handle strings to open databases. Programs hold
// handles as ordinary string values, so they survive checkpoint snapshots;
// the connections themselves live here, outside checkpointed state.
type handleTable struct {
	mu  sync.Mutex
	seq int
	dbs map[string]*sql.DB
}

func newHandleTable() *handleTable {
	return &handleTable{dbs: map[string]*sql.DB{}}
}

func (h *handleTable) put(db *sql.DB) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	name := fmt.Sprintf("db:%d", h.seq)
	h.dbs[name] = db
	return name
}

func (h *handleTable) get(name string) (*sql.DB, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	db, ok := h.dbs[name]
	return db, ok
}

func (h *handleTable) remove(name string) (*sql.DB, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	db, ok := h.dbs[name]
	if ok {
		delete(h.dbs, name)
	}
	return db, ok
}

func (h *handleTable) closeAll() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	var first error
	for name, db := range h.dbs {
		if err := db.Close(); err != nil && first == nil {
			first = err
		}
		delete(h.dbs, name)
	}
	return first
}

func driverName(alias string) (string, error) {
	switch alias {
	case "pgx", "postgres", "postgresql":
		return "pgx", nil
	case "sqlite", "sqlite3":
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unknown driver %q (want postgres or sqlite)", alias)
	}
}

func (s *Set) sqlOpenBuiltin(args []value.Value) (value.Value, error) {
	alias, err := wantStr("sql_open", args[0], "driver")
	if err != nil {
		return value.Nil, err
	}
	dsn, err := wantStr("sql_open", args[1], "dsn")
	if err != nil {
		return value.Nil, err
	}
	driver, err := driverName(alias)
	if err != nil {
		return value.Nil, fmt.Errorf("sql_open: %w", err)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return value.Nil, fmt.Errorf("sql_open: %w", err)
	}
	handle := s.databases.put(db)
	s.log.Debug("sql_open", "driver", driver, "handle", handle)
	return value.Str(handle), nil
}

func (s *Set) sqlDSNBuiltin(args []value.Value) (value.Value, error) {
	name, err := wantStr("sql_dsn", args[0], "name")
	if err != nil {
		return value.Nil, err
	}
	dsn, ok := s.dsns[name]
	if !ok {
		names := make([]string, 0, len(s.dsns))
		for n := range s.dsns {
			names = append(names, n)
		}
		sort.Strings(names)
		return value.Nil, fmt.Errorf("sql_dsn: unknown database %q (configured: %s)", name, strings.Join(names, ", "))
	}
	return value.Str(dsn), nil
}

func (s *Set) sqlQueryBuiltin(args []value.Value) (value.Value, error) {
	db, query, params, err := s.sqlCall("sql_query", args)
	if err != nil {
		return value.Nil, err
	}
	rows, err := db.Query(query, params...)
	if err != nil {
		return value.Nil, fmt.Errorf("sql_query: %w", err)
	}
	defer rows.Close()
	return rowsValue(rows)
}

func (s *Set) sqlExecBuiltin(args []value.Value) (value.Value, error) {
	db, stmt, params, err := s.sqlCall("sql_exec", args)
	if err != nil {
		return value.Nil, err
	}
	res, err := db.Exec(stmt, params...)
	if err != nil {
		return value.Nil, fmt.Errorf("sql_exec: %w", err)
	}
	// Not every driver reports affected rows; treat that as zero.
	n, err := res.RowsAffected()
	if err != nil {
		n = 0
	}
	return value.Num(float64(n)), nil
}

func (s *Set) sqlCloseBuiltin(args []value.Value) (value.Value, error) {
	handle, err := wantStr("sql_close", args[0], "handle")
	if err != nil {
		return value.Nil, err
	}
	db, ok := s.databases.remove(handle)
	if !ok {
		return value.Nil, fmt.Errorf("sql_close: unknown handle %q", handle)
	}
	if err := db.Close(); err != nil {
		return value.Nil, fmt.Errorf("sql_close: %w", err)
	}
	return value.Nil, nil
}

func (s *Set) sqlCall(name string, args []value.Value) (*sql.DB, string, []any, error) {
	if len(args) < 2 {
		return nil, "", nil, fmt.Errorf("%s: want at least handle and statement, got %d arguments", name, len(args))
	}
	handle, err := wantStr(name, args[0], "handle")
	if err != nil {
		return nil, "", nil, err
	}
	stmt, err := wantStr(name, args[1], "statement")
	if err != nil {
		return nil, "", nil, err
	}
	db, ok := s.databases.get(handle)
	if !ok {
		return nil, "", nil, fmt.Errorf("%s: unknown handle %q", name, handle)
	}
	return db, stmt, sqlParams(args[2:]), nil
}

func sqlParams(args []value.Value) []any {
	out := make([]any, len(args))
	for i, a := range args {
		switch a.Kind {
		case value.KindNil:
			out[i] = nil
		case value.KindBool:
			out[i] = a.AsBool()
		case value.KindNum:
			out[i] = a.AsNum()
		case value.KindStr:
			out[i] = a.AsStr()
		default:
			out[i] = a.String()
		}
	}
	return out
}

func rowsValue(rows *sql.Rows) (value.Value, error) {
	cols, err := rows.Columns()
	if err != nil {
		return value.Nil, fmt.Errorf("sql_query: %w", err)
	}
	out := []value.Value{}
	for rows.Next() {
		cells := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return value.Nil, fmt.Errorf("sql_query: %w", err)
		}
		m := make(map[string]value.Value, len(cols))
		for i, c := range cols {
			m[c] = cellValue(cells[i])
		}
		out = append(out, value.Map(m))
	}
	if err := rows.Err(); err != nil {
		return value.Nil, fmt.Errorf("sql_query: %w", err)
	}
	return value.List(out), nil
}

func cellValue(x any) value.Value {
	switch t := x.(type) {
	case nil:
		return value.Nil
	case bool:
		return value.Bool(t)
	case int64:
		return value.Num(float64(t))
	case float64:
		return value.Num(t)
	case []byte:
		return value.Str(string(t))
	case string:
		return value.Str(t)
	case time.Time:
		return value.Str(t.Format(time.RFC3339))
	default:
		return value.Str(fmt.Sprint(t))
	}
}
