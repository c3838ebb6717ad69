package task

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// TempIDPrefix 临时 id 前缀：本地新建、尚未提交的条目使用保留前缀标识。
// TempIDPrefix marks locally created, not-yet-committed items.
const TempIDPrefix = "tmp_"

// NewTempID 生成新的临时条目 ID / Generates a new temporary item ID
func NewTempID() string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("%s%d_%s", TempIDPrefix, time.Now().UTC().UnixNano(), hex.EncodeToString(buf))
}

// IsTempID reports whether id carries the reserved temporary prefix.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}
