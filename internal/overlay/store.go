package overlay

import (
	"fmt"
	"os"
	"time"
)

// Store 覆盖层持久化接口，支持多后端 (SQLite / JSON file / Redis)。
// Load 永不失败：缺失或损坏的记录回退为默认脚手架。
// Save 在本层边界吞掉失败（持久性不做保证），只向 stderr 提示。
// Store is the overlay persistence interface supporting multiple backends
// (SQLite / JSON file / Redis). Load never fails: a missing or corrupt record
// falls back to the default scaffold. Save swallows failures at this
// boundary (durability is not guaranteed) and only warns on stderr.
type Store interface {
	Load() *Overlay
	Save(ov *Overlay)
	Close() error
}

// stamp 写入前打上更新时间戳 / stamp sets the update timestamp before writing
func stamp(ov *Overlay) {
	ov.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	if ov.Version <= 0 {
		ov.Version = Version
	}
}

func warn(op string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "overlay %s failed: %v\n", op, err)
	}
}
