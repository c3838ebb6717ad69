package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// LoadBase 从 JSON 文件读取基础数据集；文件不存在时返回空数据集。
// 兼容 owners 与 people 两种字段名。
// LoadBase reads the base dataset from a JSON file; a missing file yields an
// empty dataset. Accepts either owners or people for the owner list.
func LoadBase(path string) (*BaseDataset, error) {
	if path == "" {
		return &BaseDataset{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &BaseDataset{}, nil
		}
		return nil, fmt.Errorf("read base dataset %q: %w", path, err)
	}
	return DecodeBase(data)
}

// DecodeBase 解析基础数据集并归一化条目字段
// DecodeBase parses and normalizes a base dataset document
func DecodeBase(data []byte) (*BaseDataset, error) {
	var raw struct {
		BaseDataset
		People []Owner `json:"people"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse base dataset: %w", err)
	}
	base := raw.BaseDataset
	if len(base.Owners) == 0 && len(raw.People) > 0 {
		base.Owners = raw.People
	}
	for i := range base.Tasks {
		normalizeItem(&base.Tasks[i])
	}
	for i := range base.Events {
		normalizeItem(&base.Events[i])
	}
	return &base, nil
}

func normalizeItem(it *Item) {
	it.Type = NormalizeType(it.Type)
	it.Priority = NormalizePriority(it.Priority)
	it.Status = NormalizeStatus(it.Status)
}
