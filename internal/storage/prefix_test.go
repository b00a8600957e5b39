package storage

import (
	"errors"
	"slices"
	"testing"
)

// plainDB hides the inner store's NewBatch.
type plainDB struct{ DB }

func TestPrefixDB_Namespaces(t *testing.T) {
	inner := NewMemory()
	creds := NewPrefixDB(inner, []byte("cred/"))
	other := NewPrefixDB(inner, []byte("cache/"))

	if err := creds.Put([]byte("rec/a"), []byte("sealed")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := other.Put([]byte("rec/a"), []byte("plain")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	tests := []struct {
		name string
		db   *PrefixDB
		want string
	}{
		{"creds", creds, "sealed"},
		{"other", other, "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.db.Get([]byte("rec/a"))
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Get = %q, want %q", got, tt.want)
			}
		})
	}

	raw, err := inner.Get([]byte("cred/rec/a"))
	if err != nil || string(raw) != "sealed" {
		t.Errorf("inner key = %q, %v", raw, err)
	}
	if ok, _ := creds.Has([]byte("cache/rec/a")); ok {
		t.Error("namespace leaked into another")
	}

	if err := creds.Delete([]byte("rec/a")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := creds.Get([]byte("rec/a")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete error = %v, want ErrNotFound", err)
	}
	if ok, _ := other.Has([]byte("rec/a")); !ok {
		t.Error("Delete removed a key of another namespace")
	}
}

func TestPrefixDB_ForEach(t *testing.T) {
	db := NewPrefixDB(NewMemory(), []byte("cred/"))
	for _, k := range []string{"meta/2", "meta/1", "rec/1"} {
		db.Put([]byte(k), []byte("v"))
	}

	var keys []string
	err := db.ForEach([]byte("meta/"), func(key, _ []byte) error {
		keys = append(keys, string(key))
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	slices.Sort(keys)
	if !slices.Equal(keys, []string{"meta/1", "meta/2"}) {
		t.Errorf("ForEach keys = %v", keys)
	}

	stop := errors.New("stop")
	calls := 0
	err = db.ForEach(nil, func(_, _ []byte) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Errorf("ForEach stop: err %v after %d calls", err, calls)
	}
}

func TestPrefixDB_Batch(t *testing.T) {
	tests := []struct {
		name  string
		inner DB
	}{
		{"atomic", NewMemory()},
		{"fallback", plainDB{NewMemory()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := NewPrefixDB(tt.inner, []byte("ns/"))
			db.Put([]byte("old"), []byte("x"))

			b := db.NewBatch()
			value := []byte("v1")
			if err := b.Put([]byte("k1"), value); err != nil {
				t.Fatal(err)
			}
			if err := b.Delete([]byte("old")); err != nil {
				t.Fatal(err)
			}
			value[0] = 'X'

			if ok, _ := db.Has([]byte("k1")); ok {
				t.Fatal("batch visible before Commit")
			}
			if err := b.Commit(); err != nil {
				t.Fatalf("Commit: %v", err)
			}

			got, err := tt.inner.Get([]byte("ns/k1"))
			if err != nil || string(got) != "v1" {
				t.Errorf("inner Get = %q, %v", got, err)
			}
			if ok, _ := db.Has([]byte("old")); ok {
				t.Error("batched Delete not applied")
			}

			canceled := db.NewBatch()
			canceled.Put([]byte("k2"), []byte("v2"))
			canceled.Cancel()
			if ok, _ := tt.inner.Has([]byte("ns/k2")); ok {
				t.Error("canceled batch write applied")
			}
		})
	}
}

func TestPrefixDB_CloseKeepsInner(t *testing.T) {
	inner := NewMemory()
	db := NewPrefixDB(inner, []byte("x/"))
	db.Put([]byte("key"), []byte("val"))

	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got, err := inner.Get([]byte("x/key")); err != nil || string(got) != "val" {
		t.Errorf("inner Get after Close = %q, %v", got, err)
	}
}
