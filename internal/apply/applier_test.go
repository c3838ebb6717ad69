package apply

import (
	"strings"
	"testing"
	"time"

	"planner/internal/overlay"
	"planner/internal/suggest"
	"planner/internal/task"
)

// memStore 记录 Save 次数的内存后端 / in-memory backend counting Save calls
type memStore struct {
	ov    *overlay.Overlay
	saves int
}

func (s *memStore) Load() *overlay.Overlay {
	if s.ov == nil {
		s.ov = overlay.New()
	}
	return s.ov
}

func (s *memStore) Save(ov *overlay.Overlay) {
	s.ov = ov
	s.saves++
}

func (s *memStore) Close() error { return nil }

func testBase() *task.BaseDataset {
	return &task.BaseDataset{
		Tasks: []task.Item{
			{ID: "t1", Title: "Draft report", Type: "task", Priority: 2, Status: "open", DueDate: "2024-03-10"},
			{ID: "t2", Title: "Book flights", Type: "task", Priority: 3, Status: "open"},
		},
		Events: []task.Item{
			{ID: "e1", Title: "Standup", Type: "event", StartDate: "2024-03-01"},
		},
	}
}

func testApplier(t *testing.T) (*Applier, *memStore) {
	t.Helper()
	store := &memStore{}
	a := New(store, testBase())
	a.now = func() time.Time {
		return time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	}
	return a, store
}

func TestApplyBatchPersistsOnce(t *testing.T) {
	a, store := testApplier(t)
	n := a.Apply([]suggest.Op{
		{Kind: suggest.KindUpdate, ID: "t1", Fields: map[string]any{"title": "Draft Q1 report"}},
		{Kind: suggest.KindComplete, ID: "t2"},
		{Kind: suggest.KindDelete, ID: "e1"},
	})
	if n != 3 {
		t.Fatalf("applied=%d", n)
	}
	// 批次级：持久化一次、重算一次 / batch level: one save, one remerge
	if store.saves != 1 {
		t.Fatalf("saves=%d, want 1", store.saves)
	}

	view := a.View()
	if it, _ := view.FindTask("t1"); it.Title != "Draft Q1 report" {
		t.Fatalf("t1=%+v", it)
	}
	if view.StatusOf("t2") != task.StatusCompleted {
		t.Fatal("t2 should be completed")
	}
	if len(view.Events) != 0 {
		t.Fatalf("e1 should be tombstoned, Events=%+v", view.Events)
	}
}

func TestApplyAddSynthesizesTempID(t *testing.T) {
	a, _ := testApplier(t)
	a.Apply([]suggest.Op{
		{Kind: suggest.KindAdd, Fields: map[string]any{"title": "New thing", "priority": float64(1)}},
		{Kind: suggest.KindAdd, ID: "t99", Fields: map[string]any{"title": "Bad id"}},
		{Kind: suggest.KindAdd, ID: "tmp_keep", Fields: map[string]any{}},
	})

	added := a.Overlay().NewTasks
	if len(added) != 3 {
		t.Fatalf("NewTasks=%+v", added)
	}
	if !task.IsTempID(added[0].ID) {
		t.Fatalf("id=%q should be synthesized temp id", added[0].ID)
	}
	if added[0].Title != "New thing" || added[0].Priority != 1 {
		t.Fatalf("added[0]=%+v", added[0])
	}
	// 非临时 id 会被替换 / a non-temp id is replaced
	if added[1].ID == "t99" || !task.IsTempID(added[1].ID) {
		t.Fatalf("added[1].ID=%q", added[1].ID)
	}
	if added[2].ID != "tmp_keep" {
		t.Fatalf("supplied temp id should be kept, got %q", added[2].ID)
	}
	// 缺标题落占位 / a missing title falls back to the placeholder
	if added[2].Title != placeholderTitle {
		t.Fatalf("added[2].Title=%q", added[2].Title)
	}

	if _, ok := a.View().FindTask(added[0].ID); !ok {
		t.Fatal("added task missing from merged view")
	}
}

func TestCompleteLogsAndStampsTime(t *testing.T) {
	a, _ := testApplier(t)
	a.Apply([]suggest.Op{{Kind: suggest.KindComplete, ID: "t1"}})

	ov := a.Overlay()
	patch := ov.TaskOverrides["t1"]
	if patch["status"] != task.StatusCompleted {
		t.Fatalf("patch=%v", patch)
	}
	if patch["completed_at"] != "2024-03-05T10:00:00Z" {
		t.Fatalf("completed_at=%v", patch["completed_at"])
	}
	if len(ov.Learning.CompletionLog) != 1 || !ov.Learning.CompletionLog[0].Completed {
		t.Fatalf("log=%+v", ov.Learning.CompletionLog)
	}
	if ov.Learning.Stats.Completes != 1 {
		t.Fatalf("Completes=%d", ov.Learning.Stats.Completes)
	}

	a.Apply([]suggest.Op{{Kind: suggest.KindUndoComplete, ID: "t1"}})
	patch = a.Overlay().TaskOverrides["t1"]
	if patch["status"] != task.StatusOpen || patch["completed_at"] != nil {
		t.Fatalf("undo patch=%v", patch)
	}
}

func TestToggleComplete(t *testing.T) {
	a, _ := testApplier(t)
	if err := a.ToggleComplete("t1"); err != nil {
		t.Fatalf("ToggleComplete: %v", err)
	}
	if a.View().StatusOf("t1") != task.StatusCompleted {
		t.Fatal("first toggle should complete")
	}
	if err := a.ToggleComplete("t1"); err != nil {
		t.Fatalf("ToggleComplete: %v", err)
	}
	if a.View().StatusOf("t1") != task.StatusOpen {
		t.Fatal("second toggle should reopen")
	}
	if err := a.ToggleComplete("nope"); err == nil {
		t.Fatal("unknown id must error")
	}
}

func TestDeleteCancelsPendingAdd(t *testing.T) {
	a, _ := testApplier(t)
	a.Apply([]suggest.Op{{Kind: suggest.KindAdd, ID: "tmp_x", Fields: map[string]any{"title": "scratch"}}})
	a.Apply([]suggest.Op{{Kind: suggest.KindDelete, ID: "tmp_x"}})

	if len(a.Overlay().NewTasks) != 0 {
		t.Fatalf("NewTasks=%+v", a.Overlay().NewTasks)
	}
	if _, ok := a.View().FindTask("tmp_x"); ok {
		t.Fatal("cancelled add still visible")
	}
}

func TestMoveToToday(t *testing.T) {
	a, store := testApplier(t)
	if err := a.MoveToToday("t1"); err != nil {
		t.Fatalf("MoveToToday: %v", err)
	}
	it, _ := a.View().FindTask("t1")
	if it.StartDate != "2024-03-05" || it.DueDate != "2024-03-05" {
		t.Fatalf("dates=%q/%q", it.StartDate, it.DueDate)
	}
	log := a.Overlay().Learning.MoveLog
	if len(log) != 1 || log[0].Action != ActionMoveToToday || log[0].Date != "2024-03-05" {
		t.Fatalf("move log=%+v", log)
	}
	if a.Overlay().Learning.Stats.Moves != 1 {
		t.Fatalf("Moves=%d", a.Overlay().Learning.Stats.Moves)
	}
	if store.saves != 1 {
		t.Fatalf("saves=%d", store.saves)
	}
	if err := a.MoveToToday("nope"); err == nil {
		t.Fatal("unknown id must error")
	}
}

func TestDeferOneDay(t *testing.T) {
	a, _ := testApplier(t)

	// t1 只有截止日期，顺延落在 due_date / only a due date, defer moves due_date
	if err := a.DeferOneDay("t1"); err != nil {
		t.Fatalf("DeferOneDay: %v", err)
	}
	it, _ := a.View().FindTask("t1")
	if it.DueDate != "2024-03-11" || it.StartDate != "" {
		t.Fatalf("t1 dates=%q/%q", it.StartDate, it.DueDate)
	}

	// e1 只有开始日期 / only a start date
	if err := a.DeferOneDay("e1"); err != nil {
		t.Fatalf("DeferOneDay(e1): %v", err)
	}

	// t2 没有日期 / no date at all
	err := a.DeferOneDay("t2")
	if err == nil || !strings.Contains(err.Error(), "no date") {
		t.Fatalf("dateless defer err=%v", err)
	}

	log := a.Overlay().Learning.MoveLog
	if len(log) != 2 || log[0].Action != ActionDefer {
		t.Fatalf("move log=%+v", log)
	}
}

func TestDeferPicksLaterDate(t *testing.T) {
	cases := []struct {
		start, due string
		wantField  string
		wantDate   string
	}{
		{start: "2024-03-01", due: "2024-03-10", wantField: "due_date", wantDate: "2024-03-10"},
		{start: "2024-03-20", due: "2024-03-10", wantField: "start_date", wantDate: "2024-03-20"},
		{start: "2024-03-10", due: "2024-03-10", wantField: "due_date", wantDate: "2024-03-10"},
		{start: "", due: "2024-03-10", wantField: "due_date", wantDate: "2024-03-10"},
		{start: "2024-03-01", due: "", wantField: "start_date", wantDate: "2024-03-01"},
	}
	for _, tc := range cases {
		field, date := laterDate(tc.start, tc.due)
		if field != tc.wantField || date != tc.wantDate {
			t.Fatalf("laterDate(%q,%q)=(%q,%q), want (%q,%q)",
				tc.start, tc.due, field, date, tc.wantField, tc.wantDate)
		}
	}
}

// 顺序到达的两个批次：后到者基于前者的结果继续生效
// two sequential batches: the later one builds on the earlier one's outcome
func TestSequentialBatchesLastResolvedWins(t *testing.T) {
	a, _ := testApplier(t)
	a.Apply([]suggest.Op{{Kind: suggest.KindUpdate, ID: "t1", Fields: map[string]any{"title": "first pass", "priority": float64(1)}}})
	a.Apply([]suggest.Op{{Kind: suggest.KindUpdate, ID: "t1", Fields: map[string]any{"title": "second pass"}}})

	it, _ := a.View().FindTask("t1")
	if it.Title != "second pass" {
		t.Fatalf("Title=%q", it.Title)
	}
	// 后批未触及的键保持前批的值 / keys untouched by the later batch survive
	if it.Priority != 1 {
		t.Fatalf("Priority=%d", it.Priority)
	}
}

func TestReplaceOverlay(t *testing.T) {
	a, store := testApplier(t)
	imported := overlay.New()
	imported.Deletions = append(imported.Deletions, "t1")
	a.ReplaceOverlay(imported)

	if _, ok := a.View().FindTask("t1"); ok {
		t.Fatal("imported tombstone not reflected")
	}
	if store.saves != 1 {
		t.Fatalf("saves=%d", store.saves)
	}
}
