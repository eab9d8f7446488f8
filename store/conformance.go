package store

import (
	"context"
	"testing"
)

// ConformanceSuite runs the same battery of checks against any Store
// implementation, grounded on the teacher's cross-backend pattern in
// graph/store/common_test.go (one suite exercised by MemStore, SQLiteStore,
// and MySQLStore alike). new(t) must return a fresh, empty store; the
// suite calls Close on it when done.
//
// This directly exercises testable property #1 from spec §8: for any
// sequence of put/delete/batch operations, Scan(p) returns exactly the
// keys beginning with p, in ascending lexicographic order.
func ConformanceSuite(t *testing.T, new func(t *testing.T) Store) {
	t.Helper()

	t.Run("get_put_delete", func(t *testing.T) {
		s := new(t)
		defer s.Close()
		ctx := context.Background()

		if _, err := s.Get(ctx, []byte("missing")); err != ErrNotFound {
			t.Fatalf("Get(missing) = %v, want ErrNotFound", err)
		}

		if err := s.Put(ctx, []byte("a"), []byte("1")); err != nil {
			t.Fatalf("Put: %v", err)
		}
		v, err := s.Get(ctx, []byte("a"))
		if err != nil || string(v) != "1" {
			t.Fatalf("Get(a) = %q, %v, want \"1\", nil", v, err)
		}

		if err := s.Put(ctx, []byte("a"), []byte("2")); err != nil {
			t.Fatalf("Put overwrite: %v", err)
		}
		v, _ = s.Get(ctx, []byte("a"))
		if string(v) != "2" {
			t.Fatalf("Get(a) after overwrite = %q, want \"2\"", v)
		}

		if err := s.Delete(ctx, []byte("a")); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := s.Get(ctx, []byte("a")); err != ErrNotFound {
			t.Fatalf("Get(a) after delete = %v, want ErrNotFound", err)
		}

		if err := s.Delete(ctx, []byte("never-existed")); err != nil {
			t.Fatalf("Delete of absent key should not error: %v", err)
		}
	})

	t.Run("scan_prefix_ascending", func(t *testing.T) {
		s := new(t)
		defer s.Close()
		ctx := context.Background()

		keys := []string{"p:b", "p:a", "q:x", "p:c", "p:aa"}
		for _, k := range keys {
			if err := s.Put(ctx, []byte(k), []byte(k)); err != nil {
				t.Fatalf("Put(%s): %v", k, err)
			}
		}

		it, err := s.Scan(ctx, []byte("p:"))
		if err != nil {
			t.Fatalf("Scan: %v", err)
		}
		defer it.Close()

		var got []string
		for it.Next() {
			got = append(got, string(it.Entry().Key))
		}
		if err := it.Err(); err != nil {
			t.Fatalf("iterator error: %v", err)
		}

		want := []string{"p:a", "p:aa", "p:b", "p:c"}
		if !equalStrings(got, want) {
			t.Fatalf("Scan(p:) = %v, want %v", got, want)
		}
	})

	t.Run("scan_range_half_open", func(t *testing.T) {
		s := new(t)
		defer s.Close()
		ctx := context.Background()

		for _, k := range []string{"1", "2", "3", "4", "5"} {
			if err := s.Put(ctx, []byte(k), []byte(k)); err != nil {
				t.Fatalf("Put: %v", err)
			}
		}

		it, err := s.ScanRange(ctx, []byte("2"), []byte("4"))
		if err != nil {
			t.Fatalf("ScanRange: %v", err)
		}
		defer it.Close()

		var got []string
		for it.Next() {
			got = append(got, string(it.Entry().Key))
		}
		want := []string{"2", "3"}
		if !equalStrings(got, want) {
			t.Fatalf("ScanRange(2,4) = %v, want %v", got, want)
		}
	})

	t.Run("batch_atomic_visibility", func(t *testing.T) {
		s := new(t)
		defer s.Close()
		ctx := context.Background()

		if err := s.Put(ctx, []byte("x"), []byte("old")); err != nil {
			t.Fatalf("Put: %v", err)
		}

		ops := []Op{
			Put([]byte("x"), []byte("new")),
			Put([]byte("y"), []byte("1")),
			Delete([]byte("z-never-existed")),
		}
		if err := s.Batch(ctx, ops); err != nil {
			t.Fatalf("Batch: %v", err)
		}

		vx, _ := s.Get(ctx, []byte("x"))
		vy, _ := s.Get(ctx, []byte("y"))
		if string(vx) != "new" || string(vy) != "1" {
			t.Fatalf("batch did not apply: x=%q y=%q", vx, vy)
		}
	})

	t.Run("closed_store_rejects_ops", func(t *testing.T) {
		s := new(t)
		ctx := context.Background()
		if err := s.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if err := s.Put(ctx, []byte("a"), []byte("1")); err != ErrClosed {
			t.Fatalf("Put after Close = %v, want ErrClosed", err)
		}
	})
}

// equalStrings compares two slices element-by-element, preserving order:
// scan ordering is itself the property under test, so sorting before
// comparing would hide an ordering bug instead of catching it.
func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
