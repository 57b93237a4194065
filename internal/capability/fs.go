package capability

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cogni/internal/value"
)

// sandbox confines file capabilities to a fixed root. Paths are resolved
// through symlinks before the containment check, so a link pointing out of
// the root is rejected even though its own path looks contained.
type sandbox struct {
	absRoot string
}

func newSandbox(root string) (*sandbox, error) {
	if root == "" {
		return nil, errors.New("empty sandbox root")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("sandbox root %s is not a directory", abs)
	}
	return &sandbox{absRoot: abs}, nil
}

// resolveExisting maps a program path to an absolute host path and verifies
// containment. The target must exist (reads, listings).
func (s *sandbox) resolveExisting(userPath string) (string, error) {
	joined, err := s.join(userPath)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return "", err
	}
	if !underRoot(resolved, s.absRoot) {
		return "", fmt.Errorf("path %s resolves outside the sandbox", userPath)
	}
	return resolved, nil
}

// resolveForWrite resolves the parent directory instead of the full path,
// so a file that does not exist yet can still be created.
func (s *sandbox) resolveForWrite(userPath string) (string, error) {
	joined, err := s.join(userPath)
	if err != nil {
		return "", err
	}
	dir, base := filepath.Split(joined)
	resolvedDir, err := filepath.EvalSymlinks(filepath.Clean(dir))
	if err != nil {
		return "", err
	}
	if !underRoot(resolvedDir, s.absRoot) {
		return "", fmt.Errorf("path %s resolves outside the sandbox", userPath)
	}
	return filepath.Join(resolvedDir, base), nil
}

func (s *sandbox) join(userPath string) (string, error) {
	if userPath == "" {
		return "", errors.New("empty path")
	}
	clean := filepath.Clean(userPath)
	if filepath.IsAbs(clean) {
		return clean, nil
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s escapes the sandbox", userPath)
	}
	return filepath.Join(s.absRoot, clean), nil
}

func underRoot(path, root string) bool {
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	if path == root {
		return true
	}
	sep := string(os.PathSeparator)
	if !strings.HasSuffix(root, sep) {
		root += sep
	}
	return strings.HasPrefix(path, root)
}

func (s *Set) readFileBuiltin(args []value.Value) (value.Value, error) {
	path, err := wantStr("read_file", args[0], "path")
	if err != nil {
		return value.Nil, err
	}
	resolved, err := s.fs.resolveExisting(path)
	if err != nil {
		return value.Nil, fmt.Errorf("read_file: %w", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return value.Nil, fmt.Errorf("read_file: %w", err)
	}
	if info.IsDir() {
		return value.Nil, fmt.Errorf("read_file: %s is a directory", path)
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return value.Nil, fmt.Errorf("read_file: %w", err)
	}
	return value.Str(string(data)), nil
}

func (s *Set) writeFileBuiltin(args []value.Value) (value.Value, error) {
	path, err := wantStr("write_file", args[0], "path")
	if err != nil {
		return value.Nil, err
	}
	content, err := wantStr("write_file", args[1], "content")
	if err != nil {
		return value.Nil, err
	}
	resolved, err := s.fs.resolveForWrite(path)
	if err != nil {
		return value.Nil, fmt.Errorf("write_file: %w", err)
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return value.Nil, fmt.Errorf("write_file: %w", err)
	}
	return value.Nil, nil
}

func (s *Set) listDirBuiltin(args []value.Value) (value.Value, error) {
	path, err := wantStr("list_dir", args[0], "path")
	if err != nil {
		return value.Nil, err
	}
	resolved, err := s.fs.resolveExisting(path)
	if err != nil {
		return value.Nil, fmt.Errorf("list_dir: %w", err)
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return value.Nil, fmt.Errorf("list_dir: %w", err)
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	sort.Strings(names)
	out := make([]value.Value, len(names))
	for i, n := range names {
		out[i] = value.Str(n)
	}
	return value.List(out), nil
}
