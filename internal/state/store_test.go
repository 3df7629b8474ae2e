package state

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/user/finsight/internal/types"
)

func exerciseStore(t *testing.T, store types.PersistentStore) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, types.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}

	if err := store.Set(ctx, "session", []byte(`{"session_id":"abc"}`)); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(ctx, "session")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"session_id":"abc"}` {
		t.Errorf("unexpected value %s", got)
	}

	// last write wins
	if err := store.Set(ctx, "session", []byte(`{"session_id":"def"}`)); err != nil {
		t.Fatal(err)
	}
	got, err = store.Get(ctx, "session")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"session_id":"def"}` {
		t.Errorf("expected overwritten value, got %s", got)
	}

	if err := store.Remove(ctx, "session"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, "session"); !errors.Is(err, types.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound after remove, got %v", err)
	}

	// removing a missing key is not an error
	if err := store.Remove(ctx, "session"); err != nil {
		t.Errorf("expected nil error removing missing key, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	buf := []byte(`"a"`)
	if err := store.Set(ctx, "k", buf); err != nil {
		t.Fatal(err)
	}
	buf[1] = 'b'
	got, _ := store.Get(ctx, "k")
	if string(got) != `"a"` {
		t.Errorf("expected stored value to be isolated from caller buffer, got %s", got)
	}
}

func TestFileStore(t *testing.T) {
	exerciseStore(t, NewFileStore(t.TempDir()))
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	if err := NewFileStore(dir).Set(ctx, "access_status", []byte(`{"status":"active"}`)); err != nil {
		t.Fatal(err)
	}

	got, err := NewFileStore(dir).Get(ctx, "access_status")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"status":"active"}` {
		t.Errorf("unexpected value %s", got)
	}
}

func TestFileStoreRejectsInvalidJSON(t *testing.T) {
	store := NewFileStore(t.TempDir())
	if err := store.Set(context.Background(), "k", []byte("not json")); err == nil {
		t.Error("expected error for non-JSON value")
	}
}

func TestBoltStore(t *testing.T) {
	store, err := OpenBoltStore(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	exerciseStore(t, store)
}

func TestBoltStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	store, err := OpenBoltStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Set(ctx, "session", []byte(`{"session_id":"s1"}`)); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenBoltStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, "session")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"session_id":"s1"}` {
		t.Errorf("unexpected value %s", got)
	}
}
