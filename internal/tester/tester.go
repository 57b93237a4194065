package tester

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

// Eq asserts that got == want using reflect.DeepEqual for non-comparable types.
func Eq[T any](t *testing.T, got, want T, msgAndArgs ...any) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%v: got=%v want=%v", msgAndArgs[0], got, want)
		}
		t.Fatalf("got=%v want=%v", got, want)
	}
}

// True asserts that cond is true.
func True(t *testing.T, cond bool, msgAndArgs ...any) {
	t.Helper()
	if !cond {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%v", msgAndArgs[0])
		}
		t.Fatalf("expected condition to be true")
	}
}

// False asserts that cond is false.
func False(t *testing.T, cond bool, msgAndArgs ...any) {
	t.Helper()
	if cond {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%v", msgAndArgs[0])
		}
		t.Fatalf("expected condition to be false")
	}
}

// NoErr asserts that err is nil.
func NoErr(t *testing.T, err error, msgAndArgs ...any) {
	t.Helper()
	if err != nil {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%v: %v", msgAndArgs[0], err)
		}
		t.Fatalf("unexpected error: %v", err)
	}
}

// Err asserts that err is non-nil.
func Err(t *testing.T, err error, msgAndArgs ...any) {
	t.Helper()
	if err == nil {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%v: expected an error", msgAndArgs[0])
		}
		t.Fatalf("expected an error, got nil")
	}
}

// ErrIs asserts that errors.Is(err, target).
func ErrIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("error %v is not %v", err, target)
	}
}

// ErrContains asserts that err is non-nil and its message contains substr.
func ErrContains(t *testing.T, err error, substr string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected an error containing %q, got nil", substr)
	}
	if !strings.Contains(err.Error(), substr) {
		t.Fatalf("error %q does not contain %q", err.Error(), substr)
	}
}
