package overlay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"planner/internal/task"
)

// exerciseStore 后端共用的行为检查 / shared behavior checks for every backend
func exerciseStore(t *testing.T, store Store) {
	t.Helper()

	// 空后端必须给出完整脚手架 / an empty backend yields the full scaffold
	ov := store.Load()
	if ov == nil || ov.TaskOverrides == nil || len(ov.Deletions) != 0 {
		t.Fatalf("empty load should yield scaffold, got %+v", ov)
	}

	ov.Patch("t1", map[string]any{"title": "X"})
	ov.Deletions = append(ov.Deletions, "t2")
	store.Save(ov)

	if ov.UpdatedAt == "" {
		t.Fatal("Save must stamp updated_at")
	}

	loaded := store.Load()
	if loaded.UpdatedAt != ov.UpdatedAt {
		t.Fatalf("UpdatedAt=%q, want %q", loaded.UpdatedAt, ov.UpdatedAt)
	}
	if got := loaded.TaskOverrides["t1"]["title"]; got != "X" {
		t.Fatalf("patch title=%v", got)
	}
	if !loaded.IsDeleted("t2") {
		t.Fatal("deletion lost across save/load")
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlay.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	exerciseStore(t, store)
}

func TestFileStoreCorruptFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlay.json")
	if err := os.WriteFile(path, []byte("{{{{"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ov := store.Load()
	if ov == nil || len(ov.NewTasks) != 0 {
		t.Fatalf("corrupt file should yield scaffold, got %+v", ov)
	}
}

func TestFileStoreReadsBareRecord(t *testing.T) {
	// 旧版文件直接存裸覆盖层记录 / older files hold the bare overlay record
	path := filepath.Join(t.TempDir(), "overlay.json")
	if err := os.WriteFile(path, []byte(`{"deletions":["t1"]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if !store.Load().IsDeleted("t1") {
		t.Fatal("bare record not readable")
	}
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "planner.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	exerciseStore(t, store)
}

func TestSQLiteStoreOverwritesRecord(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "planner.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ov := store.Load()
	ov.NewTasks = append(ov.NewTasks, task.Item{ID: "tmp_1", Title: "first"})
	store.Save(ov)
	ov.NewTasks[0].Title = "second"
	store.Save(ov)

	loaded := store.Load()
	if len(loaded.NewTasks) != 1 || loaded.NewTasks[0].Title != "second" {
		t.Fatalf("record not overwritten: %+v", loaded.NewTasks)
	}
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client)
	t.Cleanup(func() { _ = store.Close() })
	exerciseStore(t, store)
}

func TestRedisStoreCorruptValueFallsBack(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.Set("planner:"+RecordKey, "not json")
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client)
	t.Cleanup(func() { _ = store.Close() })

	ov := store.Load()
	if ov == nil || len(ov.Deletions) != 0 {
		t.Fatalf("corrupt value should yield scaffold, got %+v", ov)
	}
}
