package capability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"cogni/internal/interp"
	"cogni/internal/tester"
	"cogni/internal/value"
)

func TestEnvBuiltin(t *testing.T) {
	s, err := New(Config{})
	tester.NoErr(t, err)
	defer s.Close()
	b := s.Builtins()["env"]

	t.Setenv("COGNI_CAP_TEST", "yes")
	v, err := b.Impl([]value.Value{value.Str("COGNI_CAP_TEST")})
	tester.NoErr(t, err)
	tester.Eq(t, v.AsStr(), "yes")

	v, err = b.Impl([]value.Value{value.Str("COGNI_CAP_TEST_UNSET_1234")})
	tester.NoErr(t, err)
	tester.Eq(t, v.Kind, value.KindNil)
}

func TestJSONRoundTrip(t *testing.T) {
	v, err := jsonParseBuiltin([]value.Value{value.Str(`{"n": 2, "tags": ["a", "b"], "ok": true}`)})
	tester.NoErr(t, err)
	m := v.AsMap()
	tester.Eq(t, m["n"].AsNum(), float64(2))
	tester.Eq(t, m["tags"].AsList()[1].AsStr(), "b")
	tester.Eq(t, m["ok"].AsBool(), true)

	out, err := jsonStringifyBuiltin([]value.Value{value.Map(map[string]value.Value{
		"n": value.Num(2),
	})})
	tester.NoErr(t, err)
	tester.Eq(t, out.AsStr(), `{"n":2}`)

	_, err = jsonParseBuiltin([]value.Value{value.Str("{broken")})
	tester.ErrContains(t, err, "json_parse")
}

func TestHTTPGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	s, err := New(Config{})
	tester.NoErr(t, err)
	defer s.Close()

	v, err := s.Builtins()["http_get"].Impl([]value.Value{value.Str(srv.URL)})
	tester.NoErr(t, err)
	m := v.AsMap()
	tester.Eq(t, m["status"].AsNum(), float64(http.StatusCreated))
	tester.Eq(t, m["body"].AsStr(), `{"ok":true}`)
}

func TestBuiltinsThroughInterpreter(t *testing.T) {
	dir := t.TempDir()
	tester.NoErr(t, os.WriteFile(filepath.Join(dir, "in.txt"), []byte("41"), 0o644))

	s, err := New(Config{SandboxRoot: dir})
	tester.NoErr(t, err)
	defer s.Close()

	prog, err := interp.Load(`
let raw = read_file("in.txt")
let n = num(raw) + 1
write_file("out.txt", str(n))
n
`)
	tester.NoErr(t, err)
	v, err := interp.New(prog, interp.Options{Builtins: s.Builtins()}).Run(context.Background())
	tester.NoErr(t, err)
	tester.Eq(t, v.AsNum(), float64(42))

	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	tester.NoErr(t, err)
	tester.Eq(t, string(data), "42")
}
