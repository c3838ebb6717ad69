// Package suggest parses, validates, and risk-classifies model-proposed edit
// batches before anything touches the overlay.
package suggest

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind 五种固定操作类型 / the five fixed op kinds
type Kind string

const (
	KindAdd          Kind = "add"
	KindUpdate       Kind = "update"
	KindComplete     Kind = "complete"
	KindUndoComplete Kind = "undo_complete"
	KindDelete       Kind = "delete"
)

var kinds = map[Kind]struct{}{
	KindAdd:          {},
	KindUpdate:       {},
	KindComplete:     {},
	KindUndoComplete: {},
	KindDelete:       {},
}

// Op 单条提议的变更；仅在通过结构校验后构造。
// Op is a single proposed mutation, constructed only after the payload has
// passed structural validation.
type Op struct {
	Kind   Kind           `json:"op"`
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields,omitempty"`
	Reason string         `json:"reason,omitempty"`
}

// Payload 建议批次 / a suggestion batch
type Payload struct {
	Summary string `json:"summary"`
	Ops     []Op   `json:"ops"`
}

// ParseError 模型输出中找不到可解析的 JSON 对象
// ParseError means no parseable JSON object was found in the model output
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string {
	return "parse suggestion: " + e.Msg
}

// ValidationError 载荷结构非法；整个批次被拒绝，不做部分执行。
// ValidationError means the payload is structurally invalid; the whole batch
// is rejected, never partially executed.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid suggestion payload: " + e.Reason
}

// Parse 两段式解析模型回复：先整体严格解析，失败后回退到提取首个
// 括号平衡的 JSON 对象；随后做结构校验并构造类型化载荷。
// Parse decodes a model reply in two stages: strict parse of the full text,
// falling back to the first balanced JSON object; then validates the
// structure and builds the typed payload.
func Parse(raw string) (Payload, error) {
	obj, err := ExtractObject(raw)
	if err != nil {
		return Payload{}, err
	}
	return Decode(obj)
}

// ExtractObject 从自由文本中取出 JSON 对象字节
// ExtractObject pulls the JSON object bytes out of free text
func ExtractObject(raw string) ([]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, &ParseError{Msg: "empty response"}
	}
	if json.Valid([]byte(trimmed)) && strings.HasPrefix(trimmed, "{") {
		return []byte(trimmed), nil
	}
	if obj, ok := firstBalancedObject(trimmed); ok {
		return []byte(obj), nil
	}
	return nil, &ParseError{Msg: "no JSON object found in response"}
}

// firstBalancedObject 扫描首个括号平衡的 {...}，跳过字符串字面量。
// firstBalancedObject scans for the first balanced {...}, skipping string
// literals.
func firstBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				candidate := s[start : i+1]
				if json.Valid([]byte(candidate)) {
					return candidate, true
				}
				// 首个对象无效时继续向后找 / keep scanning past an invalid first object
				rest, ok := firstBalancedObject(s[i+1:])
				return rest, ok
			}
		}
	}
	return "", false
}

// Decode 结构校验：首个违规即拒绝整个载荷，不聚合多个错误。
// Decode validates structure, short-circuiting at the first violation; the
// caller must discard the entire payload on any failure.
func Decode(data []byte) (Payload, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil || root == nil {
		return Payload{}, &ValidationError{Reason: "payload must be a JSON object"}
	}

	var payload Payload
	if b, ok := root["summary"]; ok {
		_ = json.Unmarshal(b, &payload.Summary)
	}

	rawOps, ok := root["ops"]
	if !ok {
		return Payload{}, &ValidationError{Reason: "ops is missing"}
	}
	var opsList []json.RawMessage
	if err := json.Unmarshal(rawOps, &opsList); err != nil {
		return Payload{}, &ValidationError{Reason: "ops must be an array"}
	}

	payload.Ops = make([]Op, 0, len(opsList))
	for i, rawOp := range opsList {
		op, err := decodeOp(rawOp, i)
		if err != nil {
			return Payload{}, err
		}
		payload.Ops = append(payload.Ops, op)
	}
	return payload, nil
}

func decodeOp(data json.RawMessage, idx int) (Op, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return Op{}, &ValidationError{Reason: fmt.Sprintf("ops[%d] must be an object", idx)}
	}

	var kind string
	if b, ok := fields["op"]; ok {
		_ = json.Unmarshal(b, &kind)
	}
	op := Op{Kind: Kind(strings.TrimSpace(kind))}
	if _, ok := kinds[op.Kind]; !ok {
		return Op{}, &ValidationError{Reason: fmt.Sprintf("ops[%d] has unknown op %q", idx, kind)}
	}

	if b, ok := fields["id"]; ok {
		_ = json.Unmarshal(b, &op.ID)
	}
	if strings.TrimSpace(op.ID) == "" {
		return Op{}, &ValidationError{Reason: fmt.Sprintf("ops[%d] id must be a non-empty string", idx)}
	}

	if b, ok := fields["fields"]; ok {
		var m map[string]any
		if err := json.Unmarshal(b, &m); err == nil {
			op.Fields = m
		}
	}
	if op.Kind == KindAdd || op.Kind == KindUpdate {
		if op.Fields == nil {
			return Op{}, &ValidationError{Reason: fmt.Sprintf("ops[%d] %s requires a fields object", idx, op.Kind)}
		}
	}

	if b, ok := fields["reason"]; ok {
		_ = json.Unmarshal(b, &op.Reason)
	}
	return op, nil
}
