package task

import "strings"

// 条目类型 / Item types
const (
	TypeTask    = "task"
	TypeEvent   = "event"
	TypeMeeting = "meeting"
)

// 状态 / Status values
const (
	StatusOpen      = "open"
	StatusCompleted = "completed"
)

// DefaultPriority 优先级默认值（1 最高，4 最低）
// DefaultPriority is the default priority (1 highest, 4 lowest)
const DefaultPriority = 2

// Subtask 子任务
// Subtask is a single subtask entry
type Subtask struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
	Done  bool   `json:"done,omitempty"`
}

// Item 任务或日程条目
// Item is a single task or event entry
type Item struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Notes            string    `json:"notes,omitempty"`
	Type             string    `json:"type"`
	Pillar           string    `json:"pillar,omitempty"`
	OwnerID          string    `json:"owner_id,omitempty"`
	StartDate        string    `json:"start_date,omitempty"`
	DueDate          string    `json:"due_date,omitempty"`
	Priority         int       `json:"priority"`
	Status           string    `json:"status,omitempty"`
	CompletedAt      string    `json:"completed_at,omitempty"`
	Subtasks         []Subtask `json:"subtasks,omitempty"`
	EstimatedMinutes int       `json:"estimated_minutes,omitempty"`
	Energy           string    `json:"energy,omitempty"`
}

// Owner 条目归属人
// Owner is a person items can be assigned to
type Owner struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Pillar 分类支柱（类别码）
// Pillar is a category code items can belong to
type Pillar struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
}

// RecurrenceRule 重复规则；Enabled 在合并阶段按覆盖层解析
// RecurrenceRule is a repeat rule; Enabled is resolved against the overlay during merge
type RecurrenceRule struct {
	ID      string `json:"id"`
	ItemID  string `json:"item_id,omitempty"`
	Label   string `json:"label,omitempty"`
	Freq    string `json:"freq,omitempty"`
	Enabled bool   `json:"enabled"`
}

// Meta 基础数据集元信息
// Meta is the base dataset metadata
type Meta struct {
	Version     string `json:"version"`
	LastUpdated string `json:"last_updated"`
	Timezone    string `json:"timezone"`
}

// BaseDataset 外部提供的只读数据集；本地修改一律落在覆盖层
// BaseDataset is the externally supplied read-only dataset; local edits never touch it
type BaseDataset struct {
	Tasks           []Item           `json:"tasks"`
	Events          []Item           `json:"events"`
	Owners          []Owner          `json:"owners"`
	Pillars         []Pillar         `json:"pillars"`
	RecurrenceRules []RecurrenceRule `json:"recurrence_rules"`
	Meta            Meta             `json:"meta"`
}

// NormalizeType 归一化条目类型，无效或为空时回退到 task
// NormalizeType normalizes the item type, falling back to task on invalid/empty input
func NormalizeType(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case TypeTask, TypeEvent, TypeMeeting:
		return strings.ToLower(strings.TrimSpace(s))
	default:
		return TypeTask
	}
}

// NormalizePriority 归一化优先级到 1–4，越界或非法时回退默认值
// NormalizePriority clamps priority into 1–4, falling back to the default otherwise
func NormalizePriority(p int) int {
	if p < 1 || p > 4 {
		return DefaultPriority
	}
	return p
}

// NormalizeStatus 归一化状态；除 completed 外一律视为 open
// NormalizeStatus normalizes status; anything other than completed is open
func NormalizeStatus(s string) string {
	if strings.ToLower(strings.TrimSpace(s)) == StatusCompleted {
		return StatusCompleted
	}
	return StatusOpen
}

// Completed reports whether the item's derived status is completed.
func (it Item) Completed() bool {
	return NormalizeStatus(it.Status) == StatusCompleted
}
