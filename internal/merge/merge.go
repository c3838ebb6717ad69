// Package merge combines the read-only base dataset with the local overlay
// into the merged view presented to consumers. Merge is pure: it never
// mutates its inputs and yields identical output for identical inputs.
package merge

import (
	"planner/internal/overlay"
	"planner/internal/task"
)

// MergedView 基础数据集与覆盖层合并后的派生视图；按需重算，从不直接持久化。
// Overlay 保留对所用覆盖层的回引，供需要感知补丁状态的下游使用。
// MergedView is the derived view of base ⊕ overlay; recomputed on demand,
// never persisted directly. Overlay back-references the overlay used, for
// downstream consumers that need patch-aware status lookups.
type MergedView struct {
	Tasks           []task.Item
	Events          []task.Item
	RecurrenceRules []task.RecurrenceRule
	Overlay         *overlay.Overlay
}

// Merge 合并基础数据集与覆盖层。顺序：
// 1) 过滤掉被删除的条目；2) 对幸存条目应用浅补丁；
// 3) 追加未被删除的新增任务（保持存储顺序）；
// 4) 按覆盖解析重复规则的启用位（缺省启用）。
// Merge combines base and overlay: filter tombstoned items, apply shallow
// patches to survivors, append surviving new tasks in stored order, and
// resolve each recurrence rule's enabled flag (default enabled).
func Merge(base *task.BaseDataset, ov *overlay.Overlay) *MergedView {
	if base == nil {
		base = &task.BaseDataset{}
	}
	if ov == nil {
		ov = overlay.New()
	}
	deleted := ov.DeletedSet()

	view := &MergedView{
		Tasks:           mergeItems(base.Tasks, ov, deleted),
		Events:          mergeItems(base.Events, ov, deleted),
		RecurrenceRules: make([]task.RecurrenceRule, 0, len(base.RecurrenceRules)),
		Overlay:         ov,
	}

	for _, it := range ov.NewTasks {
		if _, gone := deleted[it.ID]; gone {
			continue
		}
		view.Tasks = append(view.Tasks, it)
	}

	for _, rule := range base.RecurrenceRules {
		rule.Enabled = true
		if o, ok := ov.RecurrenceOverrides[rule.ID]; ok {
			rule.Enabled = o.Enabled
		}
		view.RecurrenceRules = append(view.RecurrenceRules, rule)
	}
	return view
}

func mergeItems(items []task.Item, ov *overlay.Overlay, deleted map[string]struct{}) []task.Item {
	out := make([]task.Item, 0, len(items))
	for _, it := range items {
		if _, gone := deleted[it.ID]; gone {
			continue
		}
		if patch, ok := ov.TaskOverrides[it.ID]; ok {
			it = task.ApplyPatch(it, patch)
		}
		it.Status = task.NormalizeStatus(it.Status)
		out = append(out, it)
	}
	return out
}

// FindTask returns the merged task with the given id, if present.
func (v *MergedView) FindTask(id string) (task.Item, bool) {
	for _, it := range v.Tasks {
		if it.ID == id {
			return it, true
		}
	}
	return task.Item{}, false
}

// StatusOf 返回条目的覆盖感知状态：补丁优先，其次合并视图中的值。
// StatusOf returns the overlay-aware status for id: the patch wins, else the
// merged value.
func (v *MergedView) StatusOf(id string) string {
	base := ""
	if it, ok := v.FindTask(id); ok {
		base = it.Status
	}
	return v.Overlay.StatusOf(id, base)
}
