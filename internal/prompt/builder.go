// Package prompt assembles the suggestion prompt: a fixed system contract and
// a user message carrying the merged-view context, trimmed to a token budget.
package prompt

import (
	"encoding/json"
	"time"

	"planner/internal/merge"
	"planner/internal/task"
)

// systemPrompt 引导模型产出 suggest 包约定的精确 JSON 形状。
// systemPrompt steers the model toward the exact JSON shape the suggest
// package consumes.
const systemPrompt = `You are a planning assistant for a personal task list.
Reply with a single JSON object and nothing else:
{"summary":"<one sentence>","ops":[{"op":"add|update|complete|undo_complete|delete","id":"<item id>","fields":{...},"reason":"<why>"}]}
Rules:
- "id" is required for every op. For "add", leave id empty or reuse an id starting with "tmp_".
- "fields" is required for "add" and "update" and must be an object.
- Valid field keys: title, notes, type, pillar, owner_id, start_date, due_date, priority, estimated_minutes, energy, subtasks.
- Dates are ISO calendar dates (YYYY-MM-DD). priority is an integer 1-4.
- Propose only changes the context supports. When unsure, propose nothing.`

type contextItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Type      string `json:"type"`
	Pillar    string `json:"pillar,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	DueDate   string `json:"due_date,omitempty"`
	Priority  int    `json:"priority"`
	Status    string `json:"status"`
}

type contextObject struct {
	Today     string        `json:"today"`
	Tasks     []contextItem `json:"tasks"`
	Events    []contextItem `json:"events"`
	Pillars   []task.Pillar `json:"pillars,omitempty"`
	Truncated bool          `json:"truncated,omitempty"`
}

// Builder 负责拼装建议请求的提示词
// Builder assembles the suggestion request prompts
type Builder struct {
	tokenizer *Tokenizer
	limit     int
}

// NewBuilder 创建 Builder；limit 为用户消息的 token 预算（<=0 表示不限）。
// NewBuilder creates a Builder; limit is the user-message token budget
// (<=0 means unbounded).
func NewBuilder(tokenizer *Tokenizer, limit int) *Builder {
	if tokenizer == nil {
		tokenizer = DefaultTokenizer()
	}
	return &Builder{tokenizer: tokenizer, limit: limit}
}

// System returns the fixed system prompt.
func (b *Builder) System() string {
	return systemPrompt
}

// User 构造用户消息：指令 + 合并视图上下文。超出预算时先丢弃已完成任务，
// 再从尾部截断列表。
// User builds the user message: instruction + merged-view context. Over
// budget, completed tasks are dropped first, then the list is truncated from
// the tail.
func (b *Builder) User(instruction string, view *merge.MergedView, pillars []task.Pillar) string {
	obj := contextObject{
		Today:   time.Now().Format("2006-01-02"),
		Tasks:   toContextItems(view.Tasks),
		Events:  toContextItems(view.Events),
		Pillars: pillars,
	}

	msg := render(instruction, obj)
	if b.limit <= 0 || b.tokenizer.CountText(msg) <= b.limit {
		return msg
	}

	obj.Tasks = dropCompleted(obj.Tasks)
	obj.Truncated = true
	msg = render(instruction, obj)
	for b.tokenizer.CountText(msg) > b.limit && (len(obj.Tasks) > 0 || len(obj.Events) > 0) {
		if len(obj.Events) > 0 {
			obj.Events = obj.Events[:len(obj.Events)/2]
		} else {
			obj.Tasks = obj.Tasks[:len(obj.Tasks)/2]
		}
		msg = render(instruction, obj)
	}
	return msg
}

func render(instruction string, obj contextObject) string {
	data, err := json.Marshal(obj)
	if err != nil {
		data = []byte("{}")
	}
	return instruction + "\n\nContext:\n" + string(data)
}

func toContextItems(items []task.Item) []contextItem {
	out := make([]contextItem, 0, len(items))
	for _, it := range items {
		out = append(out, contextItem{
			ID:        it.ID,
			Title:     it.Title,
			Type:      it.Type,
			Pillar:    it.Pillar,
			StartDate: it.StartDate,
			DueDate:   it.DueDate,
			Priority:  it.Priority,
			Status:    task.NormalizeStatus(it.Status),
		})
	}
	return out
}

func dropCompleted(items []contextItem) []contextItem {
	out := make([]contextItem, 0, len(items))
	for _, it := range items {
		if it.Status == task.StatusCompleted {
			continue
		}
		out = append(out, it)
	}
	return out
}
