package signing

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/BaSui01/modelgate/types"
)

// Clock 返回当前时间
type Clock func() time.Time

// UUIDFunc 生成一个新的 UUID 文本
type UUIDFunc func() (string, error)

// Source 提供签名所需的时钟与随机源。每次签名都重新读取，不缓存任何值。
type Source struct {
	Now     Clock
	NewUUID UUIDFunc
}

// DefaultSource 使用系统时钟与 UUIDv4
func DefaultSource() Source {
	return Source{Now: time.Now, NewUUID: RandomUUID}
}

// RandomUUID 生成 UUIDv4 文本
func RandomUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (s Source) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s Source) uuid() (string, error) {
	gen := s.NewUUID
	if gen == nil {
		gen = RandomUUID
	}
	id, err := gen()
	if err != nil {
		return "", types.NewError(types.ErrSigning, "failed to generate uuid").WithCause(err)
	}
	return id, nil
}

// FormatDate 返回 RFC 1123 GMT 格式的日期，例如 "Mon, 01 Jan 2024 00:00:00 GMT"。
func FormatDate(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}
