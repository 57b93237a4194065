// Package capability provides the host-boundary builtins a program may be
// granted: sandboxed file access, HTTP, JSON codecs, environment reads,
// and SQL handles. Everything here is injected into the evaluator as
// ordinary builtins; the evaluator itself has no host access.
package capability

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"cogni/internal/value"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	maxHTTPBody        = 4 << 20
)

// Config selects which capabilities a Set grants and how far they reach.
type Config struct {
	// SandboxRoot is the directory file capabilities are confined to.
	// Empty disables read_file, write_file, and list_dir.
	SandboxRoot string

	// HTTPTimeout bounds each http_get call. Zero means 30s.
	HTTPTimeout time.Duration

	// Databases maps logical names to DSNs. Non-empty adds the sql_dsn
	// builtin so programs reference connections by name instead of
	// carrying credentials in source.
	Databases map[string]string

	Logger *slog.Logger
}

// Set is one program's capability grant. Close releases any SQL handles
// the program left open.
type Set struct {
	fs   *sandbox
	http *http.Client
	log  *slog.Logger
	dsns map[string]string

	databases *handleTable
}

func New(cfg Config) (*Set, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = defaultHTTPTimeout
	}
	s := &Set{
		http:      &http.Client{Timeout: cfg.HTTPTimeout},
		log:       cfg.Logger,
		dsns:      cfg.Databases,
		databases: newHandleTable(),
	}
	if cfg.SandboxRoot != "" {
		fs, err := newSandbox(cfg.SandboxRoot)
		if err != nil {
			return nil, fmt.Errorf("capability: %w", err)
		}
		s.fs = fs
	}
	return s, nil
}

// Builtins returns the builtin table for this grant, keyed by the name the
// program calls.
func (s *Set) Builtins() map[string]*value.Builtin {
	out := map[string]*value.Builtin{}
	add := func(name string, arity int, impl func([]value.Value) (value.Value, error)) {
		out[name] = &value.Builtin{Name: name, Arity: arity, Impl: impl}
	}

	add("env", 1, s.envBuiltin)
	add("json_parse", 1, jsonParseBuiltin)
	add("json_stringify", 1, jsonStringifyBuiltin)
	add("http_get", 1, s.httpGetBuiltin)
	add("sql_open", 2, s.sqlOpenBuiltin)
	add("sql_query", -1, s.sqlQueryBuiltin)
	add("sql_exec", -1, s.sqlExecBuiltin)
	add("sql_close", 1, s.sqlCloseBuiltin)

	if len(s.dsns) > 0 {
		add("sql_dsn", 1, s.sqlDSNBuiltin)
	}
	if s.fs != nil {
		add("read_file", 1, s.readFileBuiltin)
		add("write_file", 2, s.writeFileBuiltin)
		add("list_dir", 1, s.listDirBuiltin)
	}
	return out
}

// Close closes every SQL handle still open.
func (s *Set) Close() error {
	return s.databases.closeAll()
}

func (s *Set) envBuiltin(args []value.Value) (value.Value, error) {
	if args[0].Kind != value.KindStr {
		return value.Nil, fmt.Errorf("env: name must be a string, got %s", args[0].Kind)
	}
	v, ok := os.LookupEnv(args[0].AsStr())
	if !ok {
		return value.Nil, nil
	}
	return value.Str(v), nil
}

func wantStr(name string, v value.Value, what string) (string, error) {
	if v.Kind != value.KindStr {
		return "", fmt.Errorf("%s: %s must be a string, got %s", name, what, v.Kind)
	}
	return v.AsStr(), nil
}
