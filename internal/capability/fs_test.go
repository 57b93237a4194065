package capability

import (
	"os"
	"path/filepath"
	"testing"

	"cogni/internal/tester"
	"cogni/internal/value"
)

func grantFS(t *testing.T, root string) *Set {
	t.Helper()
	s, err := New(Config{SandboxRoot: root})
	tester.NoErr(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestReadWriteInsideSandbox(t *testing.T) {
	dir := t.TempDir()
	tester.NoErr(t, os.WriteFile(filepath.Join(dir, "in.txt"), []byte("hello"), 0o644))
	s := grantFS(t, dir)
	b := s.Builtins()

	v, err := b["read_file"].Impl([]value.Value{value.Str("in.txt")})
	tester.NoErr(t, err)
	tester.Eq(t, v.AsStr(), "hello")

	_, err = b["write_file"].Impl([]value.Value{value.Str("out.txt"), value.Str("bye")})
	tester.NoErr(t, err)
	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	tester.NoErr(t, err)
	tester.Eq(t, string(data), "bye")
}

func TestAbsolutePathUnderRootAllowed(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.txt")
	tester.NoErr(t, os.WriteFile(p, []byte("x"), 0o644))
	s := grantFS(t, dir)

	resolved, err := s.fs.resolveExisting(p)
	tester.NoErr(t, err)
	tester.True(t, underRoot(resolved, s.fs.absRoot))
}

func TestTraversalRejected(t *testing.T) {
	s := grantFS(t, t.TempDir())
	_, err := s.Builtins()["read_file"].Impl([]value.Value{value.Str("../escape.txt")})
	tester.ErrContains(t, err, "escapes the sandbox")

	_, err = s.Builtins()["write_file"].Impl([]value.Value{value.Str("../escape.txt"), value.Str("x")})
	tester.ErrContains(t, err, "escapes the sandbox")
}

func TestSymlinkEscapeRejected(t *testing.T) {
	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.txt")
	tester.NoErr(t, os.WriteFile(secret, []byte("no"), 0o644))

	root := t.TempDir()
	tester.NoErr(t, os.Symlink(secret, filepath.Join(root, "link.txt")))
	s := grantFS(t, root)

	_, err := s.Builtins()["read_file"].Impl([]value.Value{value.Str("link.txt")})
	tester.ErrContains(t, err, "outside the sandbox")
}

func TestListDirSorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.txt", "a.txt"} {
		tester.NoErr(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	s := grantFS(t, dir)

	v, err := s.Builtins()["list_dir"].Impl([]value.Value{value.Str(".")})
	tester.NoErr(t, err)
	names := v.AsList()
	tester.Eq(t, len(names), 2)
	tester.Eq(t, names[0].AsStr(), "a.txt")
	tester.Eq(t, names[1].AsStr(), "b.txt")
}

func TestNoSandboxMeansNoFileBuiltins(t *testing.T) {
	s, err := New(Config{})
	tester.NoErr(t, err)
	defer s.Close()

	b := s.Builtins()
	_, ok := b["read_file"]
	tester.False(t, ok)
	_, ok = b["http_get"]
	tester.True(t, ok)
}
