package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T, limit int) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "historico.json")
	base := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	var mu sync.Mutex
	n := 0
	store := NewStore(Config{
		Path:  path,
		Limit: limit,
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			n++
			return base.Add(time.Duration(n) * time.Second)
		},
	})
	return store, path
}

func TestStore_List_MissingFile(t *testing.T) {
	store, _ := newTestStore(t, 0)

	records, err := store.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("records = %v, want empty non-nil slice", records)
	}
}

func TestStore_Append_NewestFirst(t *testing.T) {
	store, path := newTestStore(t, 0)
	ctx := context.Background()

	first, err := store.Append(ctx, "computers", map[string]any{"name_computer": "PC-01"}, 1)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := store.Append(ctx, "printers", map[string]any{"name_printer": "HP"}, 2); err != nil {
		t.Fatalf("Append: %v", err)
	}

	records, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len = %d, want 2", len(records))
	}
	if records[0].Source != "printers" || records[1].ID != first.ID {
		t.Errorf("order = %s, %s", records[0].Source, records[1].Source)
	}
	if records[1].ActorID != 1 || records[0].ActorID != 2 {
		t.Errorf("actor ids = %d, %d", records[1].ActorID, records[0].ActorID)
	}
	if first.ID == "" || records[0].ID == first.ID {
		t.Error("each record needs a distinct id")
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("history file not written: %v", err)
	}
}

func TestStore_Append_EnforcesLimit(t *testing.T) {
	store, _ := newTestStore(t, 3)
	ctx := context.Background()

	for i := range 5 {
		if _, err := store.Append(ctx, "computers", map[string]any{"n": float64(i)}, 1); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	records, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len = %d, want 3", len(records))
	}
	newest := records[0].Entry.(map[string]any)["n"]
	oldest := records[2].Entry.(map[string]any)["n"]
	if newest != float64(4) || oldest != float64(2) {
		t.Errorf("kept n = %v..%v, want 4..2", newest, oldest)
	}
}

func TestStore_Append_SanitizesStrings(t *testing.T) {
	store, _ := newTestStore(t, 0)
	ctx := context.Background()

	rec, err := store.Append(ctx, "<b>computers</b>",
		map[string]any{"reason": `<img src=x onerror="alert(1)">Troca`}, 1)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if rec.Source != "computers" {
		t.Errorf("source = %q", rec.Source)
	}

	records, _ := store.List(ctx, "computers")
	if len(records) != 1 {
		t.Fatalf("len = %d, want 1", len(records))
	}
	if got := records[0].Entry.(map[string]any)["reason"]; got != "Troca" {
		t.Errorf("reason = %v", got)
	}
}

func TestStore_Append_Invalid(t *testing.T) {
	store, _ := newTestStore(t, 0)
	ctx := context.Background()

	tests := []struct {
		name   string
		source string
		entry  any
	}{
		{"empty source", "", map[string]any{"a": "b"}},
		{"markup-only source", "<script>x</script>", map[string]any{"a": "b"}},
		{"nil entry", "computers", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.Append(ctx, tt.source, tt.entry, 1); !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("err = %v, want ErrInvalidRecord", err)
			}
		})
	}
}

func TestStore_List_FiltersBySource(t *testing.T) {
	store, _ := newTestStore(t, 0)
	ctx := context.Background()

	for _, src := range []string{"computers", "printers", "computers"} {
		if _, err := store.Append(ctx, src, map[string]any{"x": "y"}, 1); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	records, err := store.List(ctx, "computers")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("len = %d, want 2", len(records))
	}
	for _, r := range records {
		if r.Source != "computers" {
			t.Errorf("unexpected source %q", r.Source)
		}
	}
}

func TestStore_CorruptFile(t *testing.T) {
	store, path := newTestStore(t, 0)
	if err := os.WriteFile(path, []byte(`{"not":"an array"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := store.List(context.Background(), ""); !errors.Is(err, ErrCorruptFile) {
		t.Errorf("List err = %v, want ErrCorruptFile", err)
	}
	if _, err := store.Append(context.Background(), "computers", map[string]any{"a": "b"}, 1); !errors.Is(err, ErrCorruptFile) {
		t.Errorf("Append err = %v, want ErrCorruptFile", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != `{"not":"an array"}` {
		t.Error("corrupt file must be left untouched")
	}
}

func TestStore_ConcurrentAppends(t *testing.T) {
	store, _ := newTestStore(t, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := store.Append(ctx, "computers", map[string]any{"i": fmt.Sprint(i)}, int64(i)); err != nil {
				t.Errorf("Append %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	records, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 20 {
		t.Errorf("len = %d, want 20 (no lost updates)", len(records))
	}
}

func TestStore_CanceledContext(t *testing.T) {
	store, _ := newTestStore(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Append(ctx, "computers", map[string]any{"a": "b"}, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
