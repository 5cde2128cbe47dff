// Package dataset 加载海外股票别名数据集
package dataset

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/wyfcoding/stockrouter/internal/stock/domain"
)

// Load 读取 JSON 数组格式的数据集，失败时错误链包含 domain.ErrDatasetUnavailable
func Load(path string) ([]domain.StockAliasEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDatasetUnavailable, err)
	}

	var entries []domain.StockAliasEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", domain.ErrDatasetUnavailable, path, err)
	}
	return entries, nil
}
