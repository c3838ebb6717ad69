package overlay

import (
	"encoding/json"
	"strings"
	"time"

	"planner/internal/task"
)

// RecordKey 覆盖层在持久化后端中的固定版本化键
// RecordKey is the fixed versioned key the overlay record is stored under
const RecordKey = "overlay_v1"

// Version 当前覆盖层结构版本
// Version is the current overlay schema version
const Version = 1

// LogCap 审计日志上限；超出后最旧的条目先被丢弃
// LogCap bounds the audit logs; the oldest entries are dropped first
const LogCap = 400

// CompletionEntry 完成/取消完成事件日志条目
// CompletionEntry records a complete / undo-complete event
type CompletionEntry struct {
	ID        string `json:"id"`
	Completed bool   `json:"completed"`
	At        string `json:"at"`
}

// MoveEntry 移动/顺延事件日志条目
// MoveEntry records a move-to-today / defer event
type MoveEntry struct {
	ID     string `json:"id"`
	Action string `json:"action"`
	Date   string `json:"date"`
	At     string `json:"at"`
}

// Stats 学习计数器
// Stats holds the learning counters
type Stats struct {
	Moves     int `json:"moves"`
	Completes int `json:"completes"`
}

// Learning 有界审计日志与计数器
// Learning is the bounded audit trail plus counters
type Learning struct {
	CompletionLog []CompletionEntry `json:"completion_log"`
	MoveLog       []MoveEntry       `json:"move_log"`
	Stats         Stats             `json:"stats"`
}

// RecurrenceOverride 重复规则开关覆盖
// RecurrenceOverride toggles a recurrence rule
type RecurrenceOverride struct {
	Enabled bool `json:"enabled"`
}

// Overlay 唯一可变且被持久化的本地增量层
// Overlay is the sole mutable, persisted local delta layer
type Overlay struct {
	Deletions           []string                      `json:"deletions"`
	TaskOverrides       map[string]map[string]any     `json:"task_overrides"`
	NewTasks            []task.Item                   `json:"new_tasks"`
	RecurrenceOverrides map[string]RecurrenceOverride `json:"recurrence_overrides"`
	Learning            Learning                      `json:"learning"`
	Version             int                           `json:"version"`
	UpdatedAt           string                        `json:"updated_at"`
}

// New 返回结构完整的空覆盖层脚手架
// New returns a structurally complete empty overlay scaffold
func New() *Overlay {
	return &Overlay{
		Deletions:           []string{},
		TaskOverrides:       map[string]map[string]any{},
		NewTasks:            []task.Item{},
		RecurrenceOverrides: map[string]RecurrenceOverride{},
		Learning: Learning{
			CompletionLog: []CompletionEntry{},
			MoveLog:       []MoveEntry{},
		},
		Version: Version,
	}
}

// IsDeleted reports whether id carries a tombstone.
func (ov *Overlay) IsDeleted(id string) bool {
	for _, d := range ov.Deletions {
		if d == id {
			return true
		}
	}
	return false
}

// DeletedSet returns the tombstones as a set for O(1) lookups.
func (ov *Overlay) DeletedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(ov.Deletions))
	for _, d := range ov.Deletions {
		set[d] = struct{}{}
	}
	return set
}

// Delete 为 id 打墓碑：幂等追加删除记录，清除补丁，并撤销仍在等待的新增。
// Delete tombstones id: idempotent append, clears any patch, and cancels a
// still-pending addition outright.
func (ov *Overlay) Delete(id string) {
	if !ov.IsDeleted(id) {
		ov.Deletions = append(ov.Deletions, id)
	}
	delete(ov.TaskOverrides, id)
	for i, it := range ov.NewTasks {
		if it.ID == id {
			ov.NewTasks = append(ov.NewTasks[:i], ov.NewTasks[i+1:]...)
			break
		}
	}
}

// Patch 将字段浅合并进 id 的补丁，后写的键覆盖先写的。
// Patch shallow-merges fields into the patch for id; later keys win.
func (ov *Overlay) Patch(id string, fields map[string]any) {
	if ov.TaskOverrides == nil {
		ov.TaskOverrides = map[string]map[string]any{}
	}
	patch, ok := ov.TaskOverrides[id]
	if !ok {
		patch = map[string]any{}
		ov.TaskOverrides[id] = patch
	}
	for k, v := range fields {
		patch[k] = v
	}
}

// StatusOf 返回 id 当前派生状态：补丁优先，其次回退到给定的基础值。
// StatusOf returns the derived status for id: the patch wins, else the given
// base fallback.
func (ov *Overlay) StatusOf(id, baseStatus string) string {
	if patch, ok := ov.TaskOverrides[id]; ok {
		if s, ok := patch["status"].(string); ok {
			return task.NormalizeStatus(s)
		}
	}
	for _, it := range ov.NewTasks {
		if it.ID == id {
			return task.NormalizeStatus(it.Status)
		}
	}
	return task.NormalizeStatus(baseStatus)
}

// LogCompletion 追加一条完成事件并递增计数；日志按上限截断。
// LogCompletion appends a completion event and bumps the counter; the log is
// truncated to the cap, oldest first.
func (ov *Overlay) LogCompletion(id string, completed bool, at time.Time) {
	ov.Learning.CompletionLog = append(ov.Learning.CompletionLog, CompletionEntry{
		ID:        id,
		Completed: completed,
		At:        at.UTC().Format(time.RFC3339),
	})
	if n := len(ov.Learning.CompletionLog); n > LogCap {
		ov.Learning.CompletionLog = ov.Learning.CompletionLog[n-LogCap:]
	}
	ov.Learning.Stats.Completes++
}

// LogMove 追加一条移动事件并递增计数；日志按上限截断。
// LogMove appends a move event and bumps the counter; the log is truncated to
// the cap, oldest first.
func (ov *Overlay) LogMove(id, action, date string, at time.Time) {
	ov.Learning.MoveLog = append(ov.Learning.MoveLog, MoveEntry{
		ID:     id,
		Action: action,
		Date:   date,
		At:     at.UTC().Format(time.RFC3339),
	})
	if n := len(ov.Learning.MoveLog); n > LogCap {
		ov.Learning.MoveLog = ov.Learning.MoveLog[n-LogCap:]
	}
	ov.Learning.Stats.Moves++
}

// Decode 从持久化记录还原覆盖层。每个顶层字段独立恢复：
// 单个字段损坏只回退该字段的默认值，不会丢弃整个覆盖层。
// Decode restores an overlay from a persisted record. Every top-level field
// is recovered independently: a corrupt field falls back to its default
// without discarding the rest of the overlay.
func Decode(data []byte) *Overlay {
	ov := New()
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return ov
	}

	if b, ok := raw["deletions"]; ok {
		var v []string
		if err := json.Unmarshal(b, &v); err == nil {
			ov.Deletions = sanitizeIDs(v)
		}
	}
	if b, ok := raw["task_overrides"]; ok {
		var v map[string]map[string]any
		if err := json.Unmarshal(b, &v); err == nil {
			out := make(map[string]map[string]any, len(v))
			for id, patch := range v {
				if strings.TrimSpace(id) == "" || patch == nil {
					continue
				}
				out[id] = patch
			}
			ov.TaskOverrides = out
		}
	}
	if b, ok := raw["new_tasks"]; ok {
		var v []task.Item
		if err := json.Unmarshal(b, &v); err == nil {
			items := make([]task.Item, 0, len(v))
			for _, it := range v {
				if strings.TrimSpace(it.ID) == "" {
					continue
				}
				it.Type = task.NormalizeType(it.Type)
				it.Priority = task.NormalizePriority(it.Priority)
				items = append(items, it)
			}
			ov.NewTasks = items
		}
	}
	if b, ok := raw["recurrence_overrides"]; ok {
		var v map[string]RecurrenceOverride
		if err := json.Unmarshal(b, &v); err == nil && v != nil {
			ov.RecurrenceOverrides = v
		}
	}
	if b, ok := raw["learning"]; ok {
		decodeLearning(b, &ov.Learning)
	}
	if b, ok := raw["version"]; ok {
		var v int
		if err := json.Unmarshal(b, &v); err == nil && v > 0 {
			ov.Version = v
		}
	}
	if b, ok := raw["updated_at"]; ok {
		var v string
		if err := json.Unmarshal(b, &v); err == nil {
			ov.UpdatedAt = v
		}
	}
	return ov
}

// decodeLearning 子字段同样独立恢复 / learning sub-fields recover independently too
func decodeLearning(data []byte, out *Learning) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return
	}
	if b, ok := raw["completion_log"]; ok {
		var v []CompletionEntry
		if err := json.Unmarshal(b, &v); err == nil {
			if n := len(v); n > LogCap {
				v = v[n-LogCap:]
			}
			out.CompletionLog = v
		}
	}
	if b, ok := raw["move_log"]; ok {
		var v []MoveEntry
		if err := json.Unmarshal(b, &v); err == nil {
			if n := len(v); n > LogCap {
				v = v[n-LogCap:]
			}
			out.MoveLog = v
		}
	}
	if b, ok := raw["stats"]; ok {
		var v Stats
		if err := json.Unmarshal(b, &v); err == nil {
			if v.Moves < 0 {
				v.Moves = 0
			}
			if v.Completes < 0 {
				v.Completes = 0
			}
			out.Stats = v
		}
	}
}

// Encode 序列化覆盖层记录 / Encode serializes the overlay record
func Encode(ov *Overlay) ([]byte, error) {
	return json.Marshal(ov)
}

func sanitizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := map[string]struct{}{}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
