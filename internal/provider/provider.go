package provider

import "context"

// CompletionService 单一不透明的补全协作方：一个 system 提示、一个 user
// 提示、一段原始文本回复。调用方自行解析回复内容。
// CompletionService is the single opaque completion collaborator: one system
// prompt, one user prompt, one raw text reply. Callers parse the reply
// themselves.
type CompletionService interface {
	Complete(ctx context.Context, system, user string) (string, error)
}
