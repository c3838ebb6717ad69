package overlay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore 基于单个 JSON 文件的持久化实现（legacy 后端）。
// 记录以固定版本化键包裹，便于与其他后端互换。
// FileStore persists the overlay as a single JSON file (legacy backend).
// The record is wrapped under the fixed versioned key so backends stay
// interchangeable.
type FileStore struct {
	path string
}

type fileRecord struct {
	Key     string          `json:"key"`
	Payload json.RawMessage `json:"payload"`
}

// NewFileStore 创建 JSON 文件后端 / NewFileStore creates the JSON file backend
func NewFileStore(path string) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("overlay file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create overlay directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Load() *Overlay {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return New()
	}
	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err == nil && rec.Key == RecordKey && len(rec.Payload) > 0 {
		return Decode(rec.Payload)
	}
	// 旧文件可能直接存裸记录 / older files may hold the bare record
	return Decode(data)
}

func (s *FileStore) Save(ov *Overlay) {
	stamp(ov)
	payload, err := Encode(ov)
	if err != nil {
		warn("encode", err)
		return
	}
	data, err := json.MarshalIndent(fileRecord{Key: RecordKey, Payload: payload}, "", "  ")
	if err != nil {
		warn("encode", err)
		return
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		warn("write", err)
		return
	}
	warn("write", os.Rename(tmp, s.path))
}

func (s *FileStore) Close() error {
	return nil
}
