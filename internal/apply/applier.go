// Package apply executes op batches against the overlay. The Applier is the
// only mutator of the overlay: every user-facing action and every accepted
// suggestion flows through the same path.
package apply

import (
	"fmt"
	"strings"
	"time"

	"planner/internal/merge"
	"planner/internal/overlay"
	"planner/internal/suggest"
	"planner/internal/task"
)

// 移动日志动作 / move log actions
const (
	ActionMoveToToday = "move_to_today"
	ActionDefer       = "defer"
)

const placeholderTitle = "Untitled task"

// Applier 持有覆盖层句柄并在每个批次后持久化一次、重算一次合并视图。
// Applier holds the overlay handle, persists once per batch, and recomputes
// the merged view once per batch.
type Applier struct {
	store overlay.Store
	base  *task.BaseDataset
	ov    *overlay.Overlay
	view  *merge.MergedView
	now   func() time.Time
}

// New 打开覆盖层并计算初始合并视图
// New loads the overlay and computes the initial merged view
func New(store overlay.Store, base *task.BaseDataset) *Applier {
	a := &Applier{
		store: store,
		base:  base,
		now:   time.Now,
	}
	a.ov = store.Load()
	a.view = merge.Merge(base, a.ov)
	return a
}

// View returns the current merged view.
func (a *Applier) View() *merge.MergedView {
	return a.view
}

// Overlay returns the overlay handle.
func (a *Applier) Overlay() *overlay.Overlay {
	return a.ov
}

// ReplaceOverlay 以导入的覆盖层替换当前状态（import 路径），随即持久化并重算。
// ReplaceOverlay swaps in an imported overlay, then persists and recomputes.
func (a *Applier) ReplaceOverlay(ov *overlay.Overlay) {
	a.ov = ov
	a.flush()
}

// Apply 依次执行批次内的每条 op，批次结束后持久化一次并重算合并视图一次。
// 返回已执行的 op 数。调用方必须先通过 suggest 的结构校验；此处不再逐条复验。
// Apply executes each op in the batch, then persists once and recomputes the
// merged view once. Returns the number of ops applied. Callers must have
// passed structural validation; ops are not re-validated here.
func (a *Applier) Apply(ops []suggest.Op) int {
	count := 0
	for _, op := range ops {
		switch op.Kind {
		case suggest.KindAdd:
			a.applyAdd(op)
		case suggest.KindUpdate:
			a.ov.Patch(op.ID, op.Fields)
		case suggest.KindComplete:
			a.setCompleted(op.ID, true)
		case suggest.KindUndoComplete:
			a.setCompleted(op.ID, false)
		case suggest.KindDelete:
			a.ov.Delete(op.ID)
		default:
			continue
		}
		count++
	}
	a.flush()
	return count
}

func (a *Applier) applyAdd(op suggest.Op) {
	id := strings.TrimSpace(op.ID)
	if id == "" || !task.IsTempID(id) {
		id = task.NewTempID()
	}
	item := task.Item{
		ID:       id,
		Title:    placeholderTitle,
		Type:     task.TypeTask,
		Priority: task.DefaultPriority,
		Status:   task.StatusOpen,
	}
	if s, ok := op.Fields["title"].(string); ok && strings.TrimSpace(s) != "" {
		item.Title = s
	}
	if s, ok := op.Fields["notes"].(string); ok {
		item.Notes = s
	}
	if s, ok := op.Fields["type"].(string); ok {
		item.Type = task.NormalizeType(s)
	}
	if s, ok := op.Fields["pillar"].(string); ok {
		item.Pillar = s
	}
	if s, ok := op.Fields["owner_id"].(string); ok {
		item.OwnerID = s
	}
	if s, ok := op.Fields["start_date"].(string); ok {
		item.StartDate = s
	}
	if s, ok := op.Fields["due_date"].(string); ok {
		item.DueDate = s
	}
	if n, ok := op.Fields["priority"].(float64); ok {
		item.Priority = task.NormalizePriority(int(n))
	}
	// 可选字段仅在出现时携带 / optional fields carried only when present
	if n, ok := op.Fields["estimated_minutes"].(float64); ok && n >= 0 {
		item.EstimatedMinutes = int(n)
	}
	if s, ok := op.Fields["energy"].(string); ok {
		item.Energy = s
	}
	if v, ok := op.Fields["subtasks"]; ok {
		item = task.ApplyPatch(item, map[string]any{"subtasks": v})
	}
	a.ov.NewTasks = append(a.ov.NewTasks, item)
}

// setCompleted 写补丁状态并记录完成日志 / patch status and log the event
func (a *Applier) setCompleted(id string, completed bool) {
	now := a.now()
	if completed {
		a.ov.Patch(id, map[string]any{
			"status":       task.StatusCompleted,
			"completed_at": now.UTC().Format(time.RFC3339),
		})
	} else {
		a.ov.Patch(id, map[string]any{
			"status":       task.StatusOpen,
			"completed_at": nil,
		})
	}
	a.ov.LogCompletion(id, completed, now)
}

// ToggleComplete 翻转条目状态：open→completed 或 completed→open。
// ToggleComplete flips the item between open and completed.
func (a *Applier) ToggleComplete(id string) error {
	if !a.knownID(id) {
		return fmt.Errorf("unknown item %q", id)
	}
	kind := suggest.KindComplete
	if a.view.StatusOf(id) == task.StatusCompleted {
		kind = suggest.KindUndoComplete
	}
	a.Apply([]suggest.Op{{Kind: kind, ID: id}})
	return nil
}

// MoveToToday 将条目的起止日期都设为本地当天，并记入移动日志。
// MoveToToday sets both dates to the current local date and logs the move.
func (a *Applier) MoveToToday(id string) error {
	if !a.knownID(id) {
		return fmt.Errorf("unknown item %q", id)
	}
	today := a.now().Format("2006-01-02")
	a.ov.Patch(id, map[string]any{"start_date": today, "due_date": today})
	a.ov.LogMove(id, ActionMoveToToday, today, a.now())
	a.flush()
	return nil
}

// DeferOneDay 将起止日期中较晚的一个顺延一天，并记入移动日志。
// 没有任何日期的条目无法顺延。
// DeferOneDay advances the later of due/start by one calendar day and logs
// the move. An item without any date cannot be deferred.
func (a *Applier) DeferOneDay(id string) error {
	it, ok := a.currentItem(id)
	if !ok {
		return fmt.Errorf("unknown item %q", id)
	}
	field, date := laterDate(it.StartDate, it.DueDate)
	if date == "" {
		return fmt.Errorf("item %q has no date to defer", id)
	}
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return fmt.Errorf("item %q has malformed date %q", id, date)
	}
	next := parsed.AddDate(0, 0, 1).Format("2006-01-02")
	a.ov.Patch(id, map[string]any{field: next})
	a.ov.LogMove(id, ActionDefer, next, a.now())
	a.flush()
	return nil
}

// flush 批次级持久化 + 重算，保证视图反映最新已提交状态。
// flush persists and recomputes at batch level so the view always reflects
// the latest committed state.
func (a *Applier) flush() {
	a.store.Save(a.ov)
	a.view = merge.Merge(a.base, a.ov)
}

func (a *Applier) knownID(id string) bool {
	_, ok := a.currentItem(id)
	return ok
}

// currentItem 在合并视图的任务与日程中查找条目 / look up id across merged tasks and events
func (a *Applier) currentItem(id string) (task.Item, bool) {
	if it, ok := a.view.FindTask(id); ok {
		return it, true
	}
	for _, it := range a.view.Events {
		if it.ID == id {
			return it, true
		}
	}
	return task.Item{}, false
}

func laterDate(start, due string) (field, date string) {
	switch {
	case due == "" && start == "":
		return "", ""
	case due == "":
		return "start_date", start
	case start == "":
		return "due_date", due
	case start > due:
		// ISO 日期可按字典序比较 / ISO dates compare lexicographically
		return "start_date", start
	default:
		return "due_date", due
	}
}
