package suggest

import "planner/internal/task"

// Tier 风险分层决策 / risk-tier decision
type Tier string

const (
	TierAuto   Tier = "auto"
	TierReview Tier = "review"
)

// Result 单条 op 的分层结果与理由
// Result is the tiering outcome for one op, with a reason
type Result struct {
	Tier   Tier
	Reason string
}

// autoFieldAllowlist 可静默应用的窄字段集：纯文本与分类编辑。
// autoFieldAllowlist is the narrow set of silently appliable fields: textual
// and categorical edits only.
var autoFieldAllowlist = map[string]struct{}{
	"title":             {},
	"notes":             {},
	"pillar":            {},
	"owner_id":          {},
	"priority":          {},
	"type":              {},
	"estimated_minutes": {},
	"energy":            {},
}

// reviewFields 日程与结构字段：改动总是要求确认。
// reviewFields are schedule/structural fields: changes always need
// confirmation.
var reviewFields = map[string]struct{}{
	"start_date": {},
	"due_date":   {},
	"subtasks":   {},
}

// Split 分层后的两个桶；各自保持原始相对顺序。
// Split holds the two buckets; relative order within each is preserved.
type Split struct {
	Auto   []Op
	Review []Op
}

// Route 按策略给单条 op 分层。自动应用当且仅当：
// update 且目标不是临时 id，且字段键全部命中允许名单、不含日程/结构键。
// Route tiers a single op. Auto-apply iff it is an update, the target is not
// a temporary id, and every field key is allowlisted with no schedule or
// structural key present.
func Route(op Op) Result {
	if op.Kind != KindUpdate {
		return Result{Tier: TierReview, Reason: string(op.Kind) + " requires confirmation"}
	}
	if task.IsTempID(op.ID) {
		return Result{Tier: TierReview, Reason: "target is an uncommitted item"}
	}
	for key := range op.Fields {
		if _, risky := reviewFields[key]; risky {
			return Result{Tier: TierReview, Reason: "changes " + key}
		}
		if _, ok := autoFieldAllowlist[key]; !ok {
			return Result{Tier: TierReview, Reason: "field " + key + " is not auto-appliable"}
		}
	}
	return Result{Tier: TierAuto}
}

// Classify 按原始顺序逐条分层 / Classify tiers ops in their original order
func Classify(ops []Op) Split {
	var split Split
	for _, op := range ops {
		if Route(op).Tier == TierAuto {
			split.Auto = append(split.Auto, op)
		} else {
			split.Review = append(split.Review, op)
		}
	}
	return split
}
