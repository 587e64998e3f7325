package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/modelgate/types"
)

// Store 是按 modelKey 索引的只读模型表。
// 构造完成后不再修改，可被任意 goroutine 并发读取。
type Store struct {
	models map[string]*ModelInfo
	keys   []string
	logger *zap.Logger
}

// NewStore 校验并收录模型定义。所有问题一次性汇总返回。
func NewStore(models map[string]*ModelInfo, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "model_store"))

	var errs []error
	store := &Store{
		models: make(map[string]*ModelInfo, len(models)),
		logger: logger,
	}

	for key, info := range models {
		if err := validateModel(key, info); err != nil {
			errs = append(errs, err)
			continue
		}
		store.models[key] = info
		store.keys = append(store.keys, key)
	}

	if len(errs) > 0 {
		return nil, types.NewError(types.ErrConfig, "invalid model configuration").
			WithCause(errors.Join(errs...))
	}

	sort.Strings(store.keys)

	logger.Info("model configuration loaded", zap.Int("models", len(store.keys)))
	for _, key := range store.keys {
		info := store.models[key]
		p, _ := info.Params()
		logger.Debug("model registered",
			zap.String("model_key", key),
			zap.String("name", info.Name),
			zap.String("provider", info.Provider),
			zap.String("transport", string(p.Transport)),
		)
	}

	return store, nil
}

func validateModel(key string, info *ModelInfo) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("model key must not be blank")
	}
	if info == nil {
		return fmt.Errorf("model %q: definition is empty", key)
	}

	var problems []string
	if strings.TrimSpace(info.Name) == "" {
		problems = append(problems, "name is required")
	}
	if strings.TrimSpace(info.Provider) == "" {
		problems = append(problems, "provider is required")
	}

	p, err := info.Params()
	if err != nil {
		problems = append(problems, err.Error())
	} else {
		if strings.TrimSpace(p.APIKey) == "" {
			problems = append(problems, "params.api-key is required")
		}
		if strings.TrimSpace(p.Endpoint) == "" {
			problems = append(problems, "params.endpoint is required")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("model %q: %s", key, strings.Join(problems, "; "))
	}
	return nil
}

// GetModelInfo 按 modelKey 查找模型
func (s *Store) GetModelInfo(key string) (*ModelInfo, error) {
	info, ok := s.models[key]
	if !ok {
		return nil, types.Errorf(types.ErrConfig, "model %q not found", key).WithModelKey(key)
	}
	return info, nil
}

// Keys 返回排序后的 modelKey 列表
func (s *Store) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Len 返回模型数量
func (s *Store) Len() int {
	return len(s.keys)
}
