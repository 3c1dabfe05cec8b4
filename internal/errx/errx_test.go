package errx

import (
	"errors"
	"fmt"
	"testing"
)

func TestE(t *testing.T) {
	t.Run("returns nil when error is nil", func(t *testing.T) {
		if got := E("op", NotFound, nil); got != nil {
			t.Errorf("E() with nil error = %v, want nil", got)
		}
	})

	t.Run("constructs Error with all fields", func(t *testing.T) {
		root := errors.New("root cause")
		err := E("shortener.repo.GetLinkByCode", NotFound, root)

		var e *Error
		if !errors.As(err, &e) {
			t.Fatal("expected error to be of type *errx.Error")
		}
		if got, want := e.Op, "shortener.repo.GetLinkByCode"; got != want {
			t.Errorf("Op = %q, want %q", got, want)
		}
		if got, want := e.Kind, NotFound; got != want {
			t.Errorf("Kind = %v, want %v", got, want)
		}
		if !errors.Is(e.Err, root) {
			t.Errorf("Err = %v, want %v", e.Err, root)
		}
	})

	t.Run("preserves all error kinds", func(t *testing.T) {
		kinds := []Kind{Unknown, NotFound, Conflict, Invalid, Unauthorized, Forbidden, Gone, Exhausted, Unavailable, Internal}
		for _, kind := range kinds {
			t.Run(kind.String(), func(t *testing.T) {
				err := E("operation", kind, errors.New("test error"))
				if got := KindOf(err); got != kind {
					t.Errorf("KindOf() = %v, want %v", got, kind)
				}
			})
		}
	})
}

func TestWrap(t *testing.T) {
	t.Run("keeps the inner kind", func(t *testing.T) {
		inner := E("shortener.repo.InsertLink", Conflict, errors.New("duplicate"))
		err := Wrap("shortener.registry.Upsert", inner)

		if got := KindOf(err); got != Conflict {
			t.Errorf("KindOf() = %v, want %v", got, Conflict)
		}
		if got, want := OpOf(err), "shortener.registry.Upsert"; got != want {
			t.Errorf("OpOf() = %q, want %q", got, want)
		}
	})

	t.Run("plain errors become Unknown", func(t *testing.T) {
		err := Wrap("op", errors.New("boom"))
		if got := KindOf(err); got != Unknown {
			t.Errorf("KindOf() = %v, want %v", got, Unknown)
		}
	})

	t.Run("nil stays nil", func(t *testing.T) {
		if err := Wrap("op", nil); err != nil {
			t.Errorf("Wrap(nil) = %v, want nil", err)
		}
	})
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "nil inner error returns op",
			err:  &Error{Op: "handler.Resolve", Kind: NotFound},
			want: "handler.Resolve",
		},
		{
			name: "empty op returns inner error message",
			err:  &Error{Kind: Unknown, Err: errors.New("root cause")},
			want: "root cause",
		},
		{
			name: "formats op and error",
			err:  &Error{Op: "service.Resolve", Kind: NotFound, Err: errors.New("root cause")},
			want: "service.Resolve: root cause",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	t.Run("returns Unknown for standard and nil errors", func(t *testing.T) {
		if got := KindOf(errors.New("standard")); got != Unknown {
			t.Errorf("KindOf() = %v, want %v", got, Unknown)
		}
		if got := KindOf(nil); got != Unknown {
			t.Errorf("KindOf(nil) = %v, want %v", got, Unknown)
		}
	})

	t.Run("extracts kind through wrapping chain", func(t *testing.T) {
		root := errors.New("root")
		repo := E("repo.GetLinkByCode", NotFound, root)
		registry := Wrap("registry.Lookup", repo)
		wrapped := fmt.Errorf("resolve: %w", registry)

		if got := KindOf(wrapped); got != NotFound {
			t.Errorf("KindOf() = %v, want %v", got, NotFound)
		}
		if !errors.Is(wrapped, root) {
			t.Error("errors.Is() failed to find root error")
		}
	})
}

func TestOpOf(t *testing.T) {
	t.Run("returns empty for standard error", func(t *testing.T) {
		if got := OpOf(errors.New("standard")); got != "" {
			t.Errorf("OpOf() = %q, want empty string", got)
		}
	})

	t.Run("extracts outermost op from chain", func(t *testing.T) {
		repo := E("repo.GetLinkByCode", NotFound, errors.New("root"))
		handler := Wrap("handler.Resolve", Wrap("service.Resolve", repo))

		if got, want := OpOf(handler), "handler.Resolve"; got != want {
			t.Errorf("OpOf() = %q, want %q", got, want)
		}
	})
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("x"), false},
		{"unavailable", E("repo.Query", Unavailable, errors.New("conn reset")), true},
		{"wrapped unavailable", fmt.Errorf("outer: %w", E("repo.Query", Unavailable, errors.New("timeout"))), true},
		{"not found", E("repo.Query", NotFound, errors.New("no rows")), false},
		{"conflict", E("repo.Insert", Conflict, errors.New("dup")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{Unknown, "Unknown"},
		{NotFound, "NotFound"},
		{Conflict, "Conflict"},
		{Invalid, "Invalid"},
		{Unauthorized, "Unauthorized"},
		{Forbidden, "Forbidden"},
		{Gone, "Gone"},
		{Exhausted, "Exhausted"},
		{Unavailable, "Unavailable"},
		{Internal, "Internal"},
		{Kind(99), "Kind(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.want {
				t.Errorf("Kind.String() = %q, want %q", got, tt.want)
			}
		})
	}
}
