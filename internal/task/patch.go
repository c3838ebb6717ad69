package task

import "encoding/json"

// ApplyPatch 将浅补丁合并到条目上并返回新副本；原条目不被修改。
// 未知字段被忽略；显式 null 清空对应的可空字段。
// ApplyPatch shallow-merges a field patch into the item and returns a new copy;
// the input item is never mutated. Unknown keys are ignored; an explicit null
// clears the corresponding nullable field.
func ApplyPatch(item Item, patch map[string]any) Item {
	out := item
	for key, val := range patch {
		switch key {
		case "title":
			if s, ok := asString(val); ok {
				out.Title = s
			}
		case "notes":
			out.Notes, _ = asString(val)
		case "type":
			if s, ok := asString(val); ok {
				out.Type = NormalizeType(s)
			}
		case "pillar":
			out.Pillar, _ = asString(val)
		case "owner_id":
			out.OwnerID, _ = asString(val)
		case "start_date":
			out.StartDate, _ = asString(val)
		case "due_date":
			out.DueDate, _ = asString(val)
		case "priority":
			if n, ok := asInt(val); ok {
				out.Priority = NormalizePriority(n)
			}
		case "status":
			if s, ok := asString(val); ok {
				out.Status = NormalizeStatus(s)
			}
		case "completed_at":
			out.CompletedAt, _ = asString(val)
		case "estimated_minutes":
			if n, ok := asInt(val); ok && n >= 0 {
				out.EstimatedMinutes = n
			}
		case "energy":
			out.Energy, _ = asString(val)
		case "subtasks":
			if subs, ok := asSubtasks(val); ok {
				out.Subtasks = subs
			}
		}
	}
	return out
}

func asString(v any) (string, bool) {
	if v == nil {
		return "", true
	}
	s, ok := v.(string)
	return s, ok
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

func asSubtasks(v any) ([]Subtask, bool) {
	if v == nil {
		return nil, true
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var subs []Subtask
	if err := json.Unmarshal(raw, &subs); err != nil {
		return nil, false
	}
	return subs, true
}
