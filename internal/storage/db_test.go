package storage

import (
	"bytes"
	"errors"
	"testing"
)

// testDB runs the shared test suite against a DB implementation.
func testDB(t *testing.T, db DB) {
	t.Helper()

	t.Run("PutGetHas", func(t *testing.T) {
		if err := db.Put([]byte("key1"), []byte("value1")); err != nil {
			t.Fatalf("Put() error: %v", err)
		}
		val, err := db.Get([]byte("key1"))
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if !bytes.Equal(val, []byte("value1")) {
			t.Errorf("Get() = %q, want %q", val, "value1")
		}
		ok, err := db.Has([]byte("key1"))
		if err != nil || !ok {
			t.Errorf("Has() = %v, %v; want true", ok, err)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := db.Get([]byte("missing"))
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() missing error = %v, want ErrNotFound", err)
		}
		ok, err := db.Has([]byte("missing"))
		if err != nil || ok {
			t.Errorf("Has() missing = %v, %v; want false", ok, err)
		}
	})

	t.Run("ValueIsCopied", func(t *testing.T) {
		v := []byte("abc")
		if err := db.Put([]byte("copy"), v); err != nil {
			t.Fatal(err)
		}
		v[0] = 'x'
		got, _ := db.Get([]byte("copy"))
		if string(got) != "abc" {
			t.Errorf("stored value changed with caller slice: %q", got)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db.Put([]byte("del"), []byte("value"))
		if err := db.Delete([]byte("del")); err != nil {
			t.Fatalf("Delete() error: %v", err)
		}
		if ok, _ := db.Has([]byte("del")); ok {
			t.Error("key should be gone after Delete()")
		}
		if err := db.Delete([]byte("never-existed")); err != nil {
			t.Errorf("Delete() nonexistent key error: %v", err)
		}
	})

	t.Run("EmptyValue", func(t *testing.T) {
		if err := db.Put([]byte("empty"), []byte{}); err != nil {
			t.Fatalf("Put() empty value error: %v", err)
		}
		val, err := db.Get([]byte("empty"))
		if err != nil {
			t.Fatalf("Get() empty value error: %v", err)
		}
		if len(val) != 0 {
			t.Errorf("expected empty value, got %d bytes", len(val))
		}
	})

	t.Run("ForEachOrdered", func(t *testing.T) {
		db.Put([]byte("prefix/c"), []byte("3"))
		db.Put([]byte("prefix/a"), []byte("1"))
		db.Put([]byte("prefix/b"), []byte("2"))
		db.Put([]byte("other/x"), []byte("4"))

		var keys []string
		err := db.ForEach([]byte("prefix/"), func(key, _ []byte) error {
			keys = append(keys, string(key))
			return nil
		})
		if err != nil {
			t.Fatalf("ForEach() error: %v", err)
		}
		want := []string{"prefix/a", "prefix/b", "prefix/c"}
		if len(keys) != len(want) {
			t.Fatalf("ForEach(prefix/) keys = %v, want %v", keys, want)
		}
		for i := range want {
			if keys[i] != want[i] {
				t.Errorf("key %d = %q, want %q", i, keys[i], want[i])
			}
		}
	})

	t.Run("ForEachStop", func(t *testing.T) {
		stop := errors.New("stop")
		var count int
		err := db.ForEach([]byte("prefix/"), func(_, _ []byte) error {
			count++
			return stop
		})
		if !errors.Is(err, stop) || count != 1 {
			t.Errorf("ForEach() = %v after %d calls, want stop after 1", err, count)
		}
	})

	t.Run("Batch", func(t *testing.T) {
		batcher, ok := db.(Batcher)
		if !ok {
			t.Skip("not a Batcher")
		}
		db.Put([]byte("b/old"), []byte("x"))
		b := batcher.NewBatch()
		b.Put([]byte("b/new"), []byte("y"))
		b.Delete([]byte("b/old"))
		if ok, _ := db.Has([]byte("b/new")); ok {
			t.Fatal("batch write visible before Commit")
		}
		if err := b.Commit(); err != nil {
			t.Fatalf("Commit() error: %v", err)
		}
		if ok, _ := db.Has([]byte("b/new")); !ok {
			t.Error("b/new missing after Commit")
		}
		if ok, _ := db.Has([]byte("b/old")); ok {
			t.Error("b/old present after Commit")
		}
	})
}

func TestMemoryDB(t *testing.T) {
	db := NewMemory()
	defer db.Close()
	testDB(t, db)
}

func TestBadgerInMemory(t *testing.T) {
	db, err := NewBadgerInMemory()
	if err != nil {
		t.Fatalf("NewBadgerInMemory() error: %v", err)
	}
	defer db.Close()
	testDB(t, db)
}
